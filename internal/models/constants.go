package models

import "time"

const (
	// ConfirmationWindow — время на подтверждение бронирования продавцом.
	ConfirmationWindow = 15 * time.Minute

	// CategoryVirtual — категория услуг, продление которых измеряется
	// в минутах, а не в часах.
	CategoryVirtual = "virtual"
)

const (
	// DefaultRedisTTL время жизни состояния сессии в Redis
	DefaultRedisTTL = 24 * 60 * 60 // 24 часа в секундах

	// ExpirySweepInterval период опроса просроченных бронирований
	ExpirySweepInterval = time.Second

	// WorkerQueueSize размер очереди воркера уведомлений
	WorkerQueueSize = 128

	// RateLimitRequests количество запросов пользователя в окне
	RateLimitRequests = 30

	// RateLimitWindow окно ограничения частоты запросов
	RateLimitWindow = 60 // 1 минута в секундах

	// DefaultPlatformFeePercent комиссия площадки с продавца
	DefaultPlatformFeePercent = 0.10
)
