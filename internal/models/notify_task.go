package models

import "time"

// NotifyTask — отложенная задача на доставку Telegram-уведомления.
// Перед постановкой в очередь сохраняется в outbox-таблицу.
type NotifyTask struct {
	ID          int64      `json:"id"`
	DedupKey    string     `json:"dedup_key"`
	BookingID   int64      `json:"booking_id"`
	ChatID      int64      `json:"chat_id"`
	Kind        string     `json:"kind"` // booking, message, system, referral
	Message     string     `json:"message"`
	Status      string     `json:"status"` // pending, completed, retry, failed
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}
