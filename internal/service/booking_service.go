package service

import (
	"context"
	"fmt"
	"time"

	"svidanie/internal/booking"
	"svidanie/internal/database"
	"svidanie/internal/domain"
	"svidanie/internal/events"
	"svidanie/internal/models"
	"svidanie/internal/wallet"

	"github.com/rs/zerolog"
)

// Статусы, в которых деньги покупателя уже удержаны.
var paidStatuses = map[models.BookingStatus]bool{
	models.StatusConfirmed:   true,
	models.StatusSellerReady: true,
	models.StatusBuyerReady:  true,
	models.StatusInProgress:  true,
}

type BookingService struct {
	repo       domain.Repository
	lifecycle  *booking.Lifecycle
	eventBus   domain.EventPublisher
	notify     domain.NotifyQueue
	referral   domain.ReferralService
	feePercent float64
	clock      booking.Clock
	logger     *zerolog.Logger
}

func NewBookingService(
	repo domain.Repository,
	lifecycle *booking.Lifecycle,
	eventBus domain.EventPublisher,
	notify domain.NotifyQueue,
	referral domain.ReferralService,
	feePercent float64,
	clock booking.Clock,
	logger *zerolog.Logger,
) *BookingService {
	if feePercent <= 0 {
		feePercent = models.DefaultPlatformFeePercent
	}
	if clock == nil {
		clock = time.Now
	}
	return &BookingService{
		repo:       repo,
		lifecycle:  lifecycle,
		eventBus:   eventBus,
		notify:     notify,
		referral:   referral,
		feePercent: feePercent,
		clock:      clock,
		logger:     logger,
	}
}

func (s *BookingService) CreateBooking(ctx context.Context, serviceID, sellerID, buyerID int64, date, timeStr, note string) (*models.Booking, error) {
	svc, ok := s.repo.GetService(serviceID)
	if !ok || !svc.IsActive {
		return nil, fmt.Errorf("service %d: %w", serviceID, database.ErrNotFound)
	}

	seller, err := s.repo.GetUserByTelegramID(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("seller %d: %w", sellerID, err)
	}
	buyer, err := s.repo.GetUserByTelegramID(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("buyer %d: %w", buyerID, err)
	}

	b := s.lifecycle.Create(booking.CreateParams{
		ServiceID:       svc.ID,
		ServiceName:     svc.Name,
		ServiceCategory: svc.Category,
		SellerID:        seller.TelegramID,
		SellerName:      seller.DisplayName,
		BuyerID:         buyer.TelegramID,
		BuyerName:       buyer.DisplayName,
		Date:            date,
		Time:            timeStr,
		Duration:        svc.Duration,
		PricePerHour:    svc.PricePerHour(),
		Currency:        models.Currency(svc.Currency),
		Note:            note,
	})

	if err := s.repo.CreateBooking(ctx, &b); err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingCreated, &b)
	s.enqueueNotify(ctx, &b, b.SellerID, events.EventBookingCreated,
		fmt.Sprintf("📅 Новая заявка на встречу: %s, %s %s", b.ServiceName, b.Date, b.Time))

	s.logger.Info().Int64("booking_id", b.ID).Int64("buyer_id", buyerID).Msg("Встреча создана")
	return &b, nil
}

// ConfirmBooking подтверждает заявку продавцом. Деньги покупателя
// удерживаются в момент подтверждения.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if s.lifecycle.IsExpired(*b) {
		return nil, database.ErrInvalidTransition
	}

	next := s.lifecycle.Confirm(*b)
	if next.Status == b.Status {
		return nil, database.ErrInvalidTransition
	}

	balance, err := s.balanceOf(ctx, b.BuyerID, b.Currency)
	if err != nil {
		return nil, err
	}
	if balance < b.TotalPrice {
		return nil, database.ErrInsufficientFunds
	}

	if err := s.saveTransition(ctx, b, next); err != nil {
		return nil, err
	}

	// Смена статуса и проводка — отдельные записи без общей транзакции:
	// при сбое проводки статус уже сохранен. Сверка ведется по леджеру.
	payment := wallet.NewBookingPayment(s.clock(), b.BuyerID, b.ID, b.TotalPrice, b.Currency, b.SellerName)
	if err := s.repo.CreateTransaction(ctx, &payment); err != nil {
		return nil, fmt.Errorf("failed to hold payment: %w", err)
	}

	s.publishEvent(events.EventBookingConfirmed, b)
	s.enqueueNotify(ctx, b, b.BuyerID, events.EventBookingConfirmed,
		fmt.Sprintf("🔔 Встреча подтверждена: %s, %s %s", b.ServiceName, b.Date, b.Time))

	return b, nil
}

func (s *BookingService) RejectBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	next := s.lifecycle.Reject(*b)
	if next.Status == b.Status {
		return nil, database.ErrInvalidTransition
	}

	if err := s.saveTransition(ctx, b, next); err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingRejected, b)
	s.enqueueNotify(ctx, b, b.BuyerID, events.EventBookingRejected,
		fmt.Sprintf("💬 Продавец отклонила заявку: %s", b.ServiceName))

	return b, nil
}

func (s *BookingService) SellerReady(ctx context.Context, bookingID int64) (*models.Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	next := s.lifecycle.SellerReady(*b)
	if next.Status == b.Status {
		return nil, database.ErrInvalidTransition
	}

	if err := s.saveTransition(ctx, b, next); err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingSellerReady, b)
	s.enqueueNotify(ctx, b, b.BuyerID, events.EventBookingSellerReady,
		fmt.Sprintf("⭐ Продавец готова к встрече: %s", b.ServiceName))

	return b, nil
}

// BuyerReady запускает встречу и счетчик оставшегося времени.
func (s *BookingService) BuyerReady(ctx context.Context, bookingID int64) (*models.Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	next := s.lifecycle.BuyerReady(*b)
	if next.Status == b.Status {
		return nil, database.ErrInvalidTransition
	}

	if err := s.saveTransition(ctx, b, next); err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingStarted, b)
	s.enqueueNotify(ctx, b, b.SellerID, events.EventBookingStarted,
		fmt.Sprintf("⭐ Встреча началась: %s", b.ServiceName))

	return b, nil
}

func (s *BookingService) ExtendBooking(ctx context.Context, bookingID int64, amount float64) (*models.Booking, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("extension amount must be positive")
	}

	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	balance, err := s.balanceOf(ctx, b.BuyerID, b.Currency)
	if err != nil {
		return nil, err
	}
	if !s.lifecycle.CanExtend(*b, balance) {
		if b.Status != models.StatusInProgress {
			return nil, database.ErrInvalidTransition
		}
		return nil, database.ErrInsufficientFunds
	}

	next := s.lifecycle.Extend(*b, amount, b.PricePerHour)
	if next.Status == b.Status && next.TotalPrice == b.TotalPrice {
		return nil, database.ErrInvalidTransition
	}

	cost := next.TotalPrice - b.TotalPrice
	hours := next.Duration - b.Duration

	if err := s.saveTransition(ctx, b, next); err != nil {
		return nil, err
	}

	extend := wallet.NewBookingExtend(s.clock(), b.BuyerID, b.ID, cost, b.Currency, hours, b.SellerName)
	if err := s.repo.CreateTransaction(ctx, &extend); err != nil {
		return nil, fmt.Errorf("failed to charge extension: %w", err)
	}

	s.publishEvent(events.EventBookingExtended, b)
	s.enqueueNotify(ctx, b, b.SellerID, events.EventBookingExtended,
		fmt.Sprintf("💰 Встреча продлена на %g ч", hours))

	return b, nil
}

// CompleteBooking завершает встречу и рассчитывает продавца:
// сумма за вычетом комиссии площадки плюс реферальные выплаты.
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	next := s.lifecycle.Complete(*b)
	if next.Status == b.Status {
		return nil, database.ErrInvalidTransition
	}

	if err := s.saveTransition(ctx, b, next); err != nil {
		return nil, err
	}

	fee := b.TotalPrice * s.feePercent
	received := wallet.NewBookingReceived(s.clock(), b.SellerID, b.ID, b.TotalPrice, b.Currency, b.BuyerName, fee)
	if err := s.repo.CreateTransaction(ctx, &received); err != nil {
		return nil, fmt.Errorf("failed to credit seller: %w", err)
	}

	if s.referral != nil {
		if err := s.referral.PayCommissions(ctx, b); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("Не удалось начислить реферальные комиссии")
		}
	}

	s.publishEvent(events.EventBookingCompleted, b)
	s.enqueueNotify(ctx, b, b.SellerID, events.EventBookingCompleted,
		fmt.Sprintf("💰 Встреча завершена, зачислено %.2f %s", b.TotalPrice-fee, b.Currency))
	s.enqueueNotify(ctx, b, b.BuyerID, events.EventBookingCompleted+"_buyer",
		fmt.Sprintf("🔔 Встреча завершена: %s", b.ServiceName))

	return b, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64, reason string) (*models.Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	wasPaid := paidStatuses[b.Status]

	next := s.lifecycle.Cancel(*b)
	if next.Status == b.Status {
		return nil, database.ErrInvalidTransition
	}

	if err := s.saveTransition(ctx, b, next); err != nil {
		return nil, err
	}

	if wasPaid {
		if reason == "" {
			reason = "отмена встречи"
		}
		refund := wallet.NewBookingRefund(s.clock(), b.BuyerID, b.ID, b.TotalPrice, b.Currency, reason)
		if err := s.repo.CreateTransaction(ctx, &refund); err != nil {
			return nil, fmt.Errorf("failed to refund buyer: %w", err)
		}
	}

	s.publishEvent(events.EventBookingCancelled, b)
	s.enqueueNotify(ctx, b, b.SellerID, events.EventBookingCancelled,
		fmt.Sprintf("💬 Встреча отменена: %s", b.ServiceName))

	return b, nil
}

// SweepExpired отменяет заявки с истекшим окном подтверждения.
// Вызывается внешним тикером.
func (s *BookingService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.repo.GetExpiredPending(ctx, s.clock())
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, b := range expired {
		next := s.lifecycle.Cancel(*b)
		if next.Status == b.Status {
			continue
		}
		if err := s.saveTransition(ctx, b, next); err != nil {
			// Кто-то успел изменить заявку, пропускаем
			s.logger.Warn().Err(err).Int64("booking_id", b.ID).Msg("Пропуск истекшей заявки")
			continue
		}

		s.publishEvent(events.EventBookingExpired, b)
		s.enqueueNotify(ctx, b, b.BuyerID, events.EventBookingExpired,
			fmt.Sprintf("🔔 Продавец не подтвердила заявку вовремя: %s", b.ServiceName))
		swept++
	}

	if swept > 0 {
		s.logger.Info().Int("count", swept).Msg("Отменены просроченные заявки")
	}
	return swept, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

// GetUserBookings возвращает встречи пользователя в обеих ролях.
func (s *BookingService) GetUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	asBuyer, err := s.repo.GetBuyerBookings(ctx, userID)
	if err != nil {
		return nil, err
	}
	asSeller, err := s.repo.GetSellerBookings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return append(asBuyer, asSeller...), nil
}

// saveTransition записывает результат перехода поверх прочитанной версии.
func (s *BookingService) saveTransition(ctx context.Context, b *models.Booking, next models.Booking) error {
	next.Version = b.Version
	if err := s.repo.UpdateBookingWithVersion(ctx, &next); err != nil {
		return err
	}
	*b = next
	return nil
}

func (s *BookingService) balanceOf(ctx context.Context, userID int64, currency models.Currency) (float64, error) {
	txs, err := s.repo.GetUserTransactions(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance(txs, currency, 0), nil
}

func (s *BookingService) publishEvent(eventType string, b *models.Booking) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:   b.ID,
		ServiceName: b.ServiceName,
		SellerID:    b.SellerID,
		SellerName:  b.SellerName,
		BuyerID:     b.BuyerID,
		BuyerName:   b.BuyerName,
		Status:      string(b.Status),
		Date:        b.Date,
		Time:        b.Time,
		TotalPrice:  b.TotalPrice,
		Currency:    string(b.Currency),
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("Не удалось опубликовать событие")
	}
}

func (s *BookingService) enqueueNotify(ctx context.Context, b *models.Booking, chatID int64, kind, message string) {
	if s.notify == nil {
		return
	}
	task := &models.NotifyTask{
		DedupKey:  fmt.Sprintf("%s:%d", kind, b.ID),
		BookingID: b.ID,
		ChatID:    chatID,
		Kind:      kind,
		Message:   message,
		Status:    "pending",
	}
	if err := s.notify.Enqueue(ctx, task); err != nil {
		s.logger.Error().Err(err).Str("kind", kind).Int64("booking_id", b.ID).Msg("Не удалось поставить уведомление в очередь")
	}
}
