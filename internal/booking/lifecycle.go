package booking

import (
	"math"
	"sync/atomic"
	"time"

	"svidanie/internal/models"
)

// Clock отдает текущее время; подменяется в тестах.
type Clock func() time.Time

// Lifecycle владеет переходами бронирования по конечному автомату:
//
//	pending_seller_confirmation -> confirmed -> seller_ready -> in_progress -> completed
//	pending_seller_confirmation -> rejected
//	любой нетерминальный -> cancelled
//
// Все переходы — чистые функции: бронирование на входе не изменяется,
// результат возвращается новым значением. Переход из неподходящего статуса
// молча возвращает вход без изменений, вызывающий код может безопасно
// повторять вызовы.
type Lifecycle struct {
	clock  Clock
	lastID atomic.Int64
}

func NewLifecycle(clock Clock) *Lifecycle {
	if clock == nil {
		clock = time.Now
	}
	l := &Lifecycle{clock: clock}
	l.lastID.Store(clock().UnixMilli())
	return l
}

// NextID выдает уникальный в пределах процесса монотонный идентификатор.
func (l *Lifecycle) NextID() int64 {
	return l.lastID.Add(1)
}

// CreateParams — данные заявки покупателя.
type CreateParams struct {
	ServiceID       int64
	ServiceName     string
	ServiceCategory string
	SellerID        int64
	SellerName      string
	BuyerID         int64
	BuyerName       string
	Date            string
	Time            string
	Duration        float64
	PricePerHour    float64
	Currency        models.Currency
	Note            string
}

// Create создает бронирование в статусе ожидания подтверждения продавца.
// Окно подтверждения — 15 минут от момента создания.
func (l *Lifecycle) Create(p CreateParams) models.Booking {
	now := l.clock()
	expiresAt := now.Add(models.ConfirmationWindow)

	return models.Booking{
		ID:              l.NextID(),
		ServiceID:       p.ServiceID,
		ServiceName:     p.ServiceName,
		ServiceCategory: p.ServiceCategory,
		SellerID:        p.SellerID,
		SellerName:      p.SellerName,
		BuyerID:         p.BuyerID,
		BuyerName:       p.BuyerName,
		Date:            p.Date,
		Time:            p.Time,
		Duration:        p.Duration,
		PricePerHour:    p.PricePerHour,
		TotalPrice:      p.PricePerHour * p.Duration,
		Currency:        p.Currency,
		Status:          models.StatusPendingConfirmation,
		CreatedAt:       now,
		ExpiresAt:       &expiresAt,
		Note:            p.Note,
		Version:         1,
	}
}

// transition применяет mutate, только если бронирование в статусе from.
// Иначе вход возвращается без изменений.
func (l *Lifecycle) transition(b models.Booking, from models.BookingStatus, mutate func(*models.Booking)) models.Booking {
	if b.Status != from {
		return b
	}
	mutate(&b)
	return b
}

// Confirm переводит заявку в confirmed и снимает окно ожидания.
func (l *Lifecycle) Confirm(b models.Booking) models.Booking {
	return l.transition(b, models.StatusPendingConfirmation, func(b *models.Booking) {
		now := l.clock()
		b.Status = models.StatusConfirmed
		b.ConfirmedAt = &now
		b.ExpiresAt = nil
	})
}

// Reject — отказ продавца; отличается от cancelled для истории.
func (l *Lifecycle) Reject(b models.Booking) models.Booking {
	return l.transition(b, models.StatusPendingConfirmation, func(b *models.Booking) {
		b.Status = models.StatusRejected
	})
}

func (l *Lifecycle) SellerReady(b models.Booking) models.Booking {
	return l.transition(b, models.StatusConfirmed, func(b *models.Booking) {
		now := l.clock()
		b.Status = models.StatusSellerReady
		b.SellerReadyAt = &now
	})
}

// BuyerReady стартует сессию: запускается отсчет оплаченного времени.
func (l *Lifecycle) BuyerReady(b models.Booking) models.Booking {
	return l.transition(b, models.StatusSellerReady, func(b *models.Booking) {
		now := l.clock()
		b.Status = models.StatusInProgress
		b.BuyerReadyAt = &now
		b.StartedAt = &now
		b.RemainingTime = int64(math.Round(b.Duration * 3600))
	})
}

// Extend продлевает идущую сессию. Единица amount зависит от категории
// услуги: для virtual это минуты, для остальных — часы. Дробные часы
// допустимы.
func (l *Lifecycle) Extend(b models.Booking, amount, pricePerHour float64) models.Booking {
	return l.transition(b, models.StatusInProgress, func(b *models.Booking) {
		var additionalSeconds, additionalHours, additionalCost float64
		if b.ServiceCategory == models.CategoryVirtual {
			additionalSeconds = amount * 60
			additionalHours = amount / 60
			additionalCost = (amount / 60) * pricePerHour
		} else {
			additionalSeconds = amount * 3600
			additionalHours = amount
			additionalCost = amount * pricePerHour
		}

		b.Duration += additionalHours
		b.TotalPrice += additionalCost
		b.RemainingTime += int64(math.Round(additionalSeconds))
	})
}

// ExtensionCost считает стоимость продления без применения перехода.
func ExtensionCost(serviceCategory string, amount, pricePerHour float64) float64 {
	if serviceCategory == models.CategoryVirtual {
		return (amount / 60) * pricePerHour
	}
	return amount * pricePerHour
}

// Complete завершает идущую сессию. Из других статусов — no-op.
func (l *Lifecycle) Complete(b models.Booking) models.Booking {
	return l.transition(b, models.StatusInProgress, func(b *models.Booking) {
		now := l.clock()
		b.Status = models.StatusCompleted
		b.CompletedAt = &now
		b.RemainingTime = 0
	})
}

// Cancel допустим из любого нетерминального статуса. Итоговая цена
// сохраняется для истории.
func (l *Lifecycle) Cancel(b models.Booking) models.Booking {
	if b.Status.IsTerminal() {
		return b
	}
	b.Status = models.StatusCancelled
	return b
}

// CanExtend — покупатель может продлить идущую сессию, если баланса
// хватает на час. Сравнение именно с часовым тарифом, а не со стоимостью
// запрошенного продления — так ведет себя продукт.
func (l *Lifecycle) CanExtend(b models.Booking, userBalance float64) bool {
	return b.Status == models.StatusInProgress && userBalance >= b.PricePerHour
}

// IsExpired — истекло ли окно подтверждения. Ядро таймеров не держит,
// предикат опрашивается снаружи.
func (l *Lifecycle) IsExpired(b models.Booking) bool {
	if b.ExpiresAt == nil {
		return false
	}
	return l.clock().After(*b.ExpiresAt)
}
