package models

import "time"

type User struct {
	ID            int64         `json:"id"`
	TelegramID    int64         `json:"telegram_id"` // Уникальный ID Telegram для уведомлений
	Username      string        `json:"username"`
	DisplayName   string        `json:"display_name"`
	Role          string        `json:"role"` // buyer, seller, agency
	ReferralCode  string        `json:"referral_code"`
	ReferredBy    string        `json:"referred_by,omitempty"` // Код пригласившего
	IsBlacklisted bool          `json:"is_blacklisted"`
	Schedule      *WorkSchedule `json:"schedule,omitempty"` // График доступности (для продавцов)
	LastActivity  time.Time     `json:"last_activity"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ReferralUser — запись реферального дерева для выдачи наружу.
type ReferralUser struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	RegisteredDate time.Time `json:"registered_date"`
	Level          int       `json:"level"` // 1..3
	TotalSpent     float64   `json:"total_spent"`
	YourEarnings   float64   `json:"your_earnings"`
	IsActive       bool      `json:"is_active"`
}
