package models

import "time"

type BookingStatus string

const (
	StatusPendingConfirmation BookingStatus = "pending_seller_confirmation"
	StatusConfirmed           BookingStatus = "confirmed"
	StatusSellerReady         BookingStatus = "seller_ready"
	StatusBuyerReady          BookingStatus = "buyer_ready"
	StatusInProgress          BookingStatus = "in_progress"
	StatusCompleted           BookingStatus = "completed"
	StatusCancelled           BookingStatus = "cancelled"
	StatusRejected            BookingStatus = "rejected"
)

// AllBookingStatuses перечисляет все статусы в порядке жизненного цикла.
var AllBookingStatuses = []BookingStatus{
	StatusPendingConfirmation,
	StatusConfirmed,
	StatusSellerReady,
	StatusBuyerReady,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusRejected,
}

// IsTerminal сообщает, является ли статус конечным: из него нет переходов.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

type Booking struct {
	ID              int64         `json:"id"`
	ServiceID       int64         `json:"service_id"`
	ServiceName     string        `json:"service_name"`
	ServiceCategory string        `json:"service_category"`
	SellerID        int64         `json:"seller_id"`
	SellerName      string        `json:"seller_name"`
	BuyerID         int64         `json:"buyer_id"`
	BuyerName       string        `json:"buyer_name"`
	Date            string        `json:"date"` // YYYY-MM-DD
	Time            string        `json:"time"` // HH:MM
	Duration        float64       `json:"duration"` // в часах, может быть дробной
	PricePerHour    float64       `json:"price_per_hour"`
	TotalPrice      float64       `json:"total_price"`
	Currency        Currency      `json:"currency"`
	Status          BookingStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	ConfirmedAt     *time.Time    `json:"confirmed_at,omitempty"`
	SellerReadyAt   *time.Time    `json:"seller_ready_at,omitempty"`
	BuyerReadyAt    *time.Time    `json:"buyer_ready_at,omitempty"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	// ExpiresAt заполнен только пока бронирование ждет подтверждения продавца.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// RemainingTime — оставшееся оплаченное время сессии в секундах.
	RemainingTime int64  `json:"remaining_time,omitempty"`
	Note          string `json:"note,omitempty"`
	Version       int64  `json:"version"`
}
