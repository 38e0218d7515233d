package models

import "time"

// Service — позиция каталога, которую можно забронировать.
type Service struct {
	ID          int64     `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description,omitempty"`
	Category    string    `yaml:"category" json:"category"`
	Price       float64   `yaml:"price" json:"price"`
	Duration    float64   `yaml:"duration" json:"duration"` // часы
	Currency    Currency  `yaml:"currency" json:"currency"`
	IsActive    bool      `yaml:"is_active" json:"is_active"`
	SortOrder   int64     `yaml:"sort_order" json:"sort_order"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updated_at"`
}

// PricePerHour — тариф за час по цене каталога.
// Позиции с нулевой длительностью считаются невалидными выше по стеку.
func (s Service) PricePerHour() float64 {
	if s.Duration == 0 {
		return 0
	}
	return s.Price / s.Duration
}
