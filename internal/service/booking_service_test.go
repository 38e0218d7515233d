package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svidanie/internal/booking"
	"svidanie/internal/database"
	"svidanie/internal/events"
	"svidanie/internal/models"
	"svidanie/internal/wallet"
)

type capturedNotify struct {
	tasks []*models.NotifyTask
}

func (c *capturedNotify) Enqueue(ctx context.Context, task *models.NotifyTask) error {
	c.tasks = append(c.tasks, task)
	return nil
}

type fixture struct {
	svc      *BookingService
	wallet   *WalletService
	referral *ReferralService
	db       *database.DB
	notify   *capturedNotify
	now      *time.Time
	ctx      context.Context
}

func setupFixture(t *testing.T) *fixture {
	logger := zerolog.New(os.Stdout)
	db, err := database.NewDB(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	now := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	require.NoError(t, db.SyncServices(ctx, []models.Service{
		{ID: 1, Name: "Ужин", Category: "offline", Price: 3000, Duration: 2, Currency: "RUB", IsActive: true, SortOrder: 1},
		{ID: 2, Name: "Видеозвонок", Category: "virtual", Price: 1000, Duration: 1, Currency: "RUB", IsActive: true, SortOrder: 2},
	}))

	for _, u := range []*models.User{
		{TelegramID: 100, DisplayName: "Анна", Role: "seller", ReferralCode: "ANNA100AAAA", LastActivity: now, CreatedAt: now},
		{TelegramID: 200, DisplayName: "Иван", Role: "buyer", ReferralCode: "IVAN200BBBB", LastActivity: now, CreatedAt: now},
		{TelegramID: 300, DisplayName: "Петр", Role: "buyer", ReferralCode: "PETR300CCCC", LastActivity: now, CreatedAt: now},
	} {
		require.NoError(t, db.CreateOrUpdateUser(ctx, u))
	}

	notify := &capturedNotify{}
	lifecycle := booking.NewLifecycle(clock)
	referralSvc := NewReferralService(db, "https://t.me/svidanie_bot/app", clock, &logger)
	svc := NewBookingService(db, lifecycle, events.NewEventBus(), notify, referralSvc, 0.10, clock, &logger)
	walletSvc := NewWalletService(db, t.TempDir(), clock, &logger)

	return &fixture{
		svc:      svc,
		wallet:   walletSvc,
		referral: referralSvc,
		db:       db,
		notify:   notify,
		now:      &now,
		ctx:      ctx,
	}
}

func (f *fixture) deposit(t *testing.T, userID int64, amount float64) {
	tx := wallet.NewDeposit(*f.now, userID, amount, models.CurrencyRUB)
	require.NoError(t, f.db.CreateTransaction(f.ctx, &tx))
}

func TestCreateBooking(t *testing.T) {
	f := setupFixture(t)

	b, err := f.svc.CreateBooking(f.ctx, 1, 100, 200, "2025-06-03", "19:00", "столик у окна")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPendingConfirmation, b.Status)
	assert.Equal(t, 3000.0, b.TotalPrice)
	assert.Equal(t, 1500.0, b.PricePerHour)
	require.NotNil(t, b.ExpiresAt)
	assert.Equal(t, f.now.Add(15*time.Minute), *b.ExpiresAt)

	// Уведомление ушло продавцу
	require.Len(t, f.notify.tasks, 1)
	assert.Equal(t, int64(100), f.notify.tasks[0].ChatID)

	// Неизвестная услуга
	_, err = f.svc.CreateBooking(f.ctx, 99, 100, 200, "2025-06-03", "19:00", "")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestConfirmBooking(t *testing.T) {
	f := setupFixture(t)

	b, err := f.svc.CreateBooking(f.ctx, 1, 100, 200, "2025-06-03", "19:00", "")
	require.NoError(t, err)

	t.Run("insufficient funds", func(t *testing.T) {
		_, err := f.svc.ConfirmBooking(f.ctx, b.ID)
		assert.ErrorIs(t, err, database.ErrInsufficientFunds)
	})

	t.Run("holds payment", func(t *testing.T) {
		f.deposit(t, 200, 5000)

		confirmed, err := f.svc.ConfirmBooking(f.ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusConfirmed, confirmed.Status)
		assert.Nil(t, confirmed.ExpiresAt)

		balance, err := f.wallet.GetBalance(f.ctx, 200, models.CurrencyRUB)
		require.NoError(t, err)
		assert.Equal(t, 2000.0, balance)
	})

	t.Run("double confirm is rejected", func(t *testing.T) {
		_, err := f.svc.ConfirmBooking(f.ctx, b.ID)
		assert.ErrorIs(t, err, database.ErrInvalidTransition)
	})
}

func TestConfirmExpiredBooking(t *testing.T) {
	f := setupFixture(t)

	b, err := f.svc.CreateBooking(f.ctx, 1, 100, 200, "2025-06-03", "19:00", "")
	require.NoError(t, err)
	f.deposit(t, 200, 5000)

	*f.now = f.now.Add(16 * time.Minute)

	_, err = f.svc.ConfirmBooking(f.ctx, b.ID)
	assert.ErrorIs(t, err, database.ErrInvalidTransition)
}

func TestRejectBooking(t *testing.T) {
	f := setupFixture(t)

	b, err := f.svc.CreateBooking(f.ctx, 1, 100, 200, "2025-06-03", "19:00", "")
	require.NoError(t, err)

	rejected, err := f.svc.RejectBooking(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)

	// Деньги не удерживались, возврата нет
	txs, err := f.db.GetBookingTransactions(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestFullMeetingFlow(t *testing.T) {
	f := setupFixture(t)
	f.deposit(t, 200, 10000)

	b, err := f.svc.CreateBooking(f.ctx, 1, 100, 200, "2025-06-03", "19:00", "")
	require.NoError(t, err)

	_, err = f.svc.ConfirmBooking(f.ctx, b.ID)
	require.NoError(t, err)

	_, err = f.svc.SellerReady(f.ctx, b.ID)
	require.NoError(t, err)

	started, err := f.svc.BuyerReady(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, started.Status)
	assert.Equal(t, int64(7200), started.RemainingTime)

	extended, err := f.svc.ExtendBooking(f.ctx, b.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, extended.Duration)
	assert.Equal(t, 4500.0, extended.TotalPrice)
	assert.Equal(t, int64(10800), extended.RemainingTime)

	completed, err := f.svc.CompleteBooking(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
	assert.Equal(t, int64(0), completed.RemainingTime)

	// Продавец получила сумму за вычетом комиссии 10%
	sellerBalance, err := f.wallet.GetBalance(f.ctx, 100, models.CurrencyRUB)
	require.NoError(t, err)
	assert.Equal(t, 4500.0*0.9, sellerBalance)

	// Покупатель заплатил за встречу и продление
	buyerBalance, err := f.wallet.GetBalance(f.ctx, 200, models.CurrencyRUB)
	require.NoError(t, err)
	assert.Equal(t, 10000.0-3000-1500, buyerBalance)
}

func TestExtendVirtualMeeting(t *testing.T) {
	f := setupFixture(t)
	f.deposit(t, 200, 10000)

	b, err := f.svc.CreateBooking(f.ctx, 2, 100, 200, "2025-06-03", "21:00", "")
	require.NoError(t, err)

	_, err = f.svc.ConfirmBooking(f.ctx, b.ID)
	require.NoError(t, err)
	_, err = f.svc.SellerReady(f.ctx, b.ID)
	require.NoError(t, err)
	_, err = f.svc.BuyerReady(f.ctx, b.ID)
	require.NoError(t, err)

	// Для виртуальной категории количество — минуты
	extended, err := f.svc.ExtendBooking(f.ctx, b.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, 1.5, extended.Duration)
	assert.Equal(t, 1500.0, extended.TotalPrice)
	assert.Equal(t, int64(3600+1800), extended.RemainingTime)
}

func TestExtendRequiresInProgress(t *testing.T) {
	f := setupFixture(t)
	f.deposit(t, 200, 10000)

	b, err := f.svc.CreateBooking(f.ctx, 1, 100, 200, "2025-06-03", "19:00", "")
	require.NoError(t, err)

	_, err = f.svc.ExtendBooking(f.ctx, b.ID, 1)
	assert.ErrorIs(t, err, database.ErrInvalidTransition)
}

func TestCancelRefundsAfterConfirm(t *testing.T) {
	f := setupFixture(t)
	f.deposit(t, 200, 5000)

	b, err := f.svc.CreateBooking(f.ctx, 1, 100, 200, "2025-06-03", "19:00", "")
	require.NoError(t, err)
	_, err = f.svc.ConfirmBooking(f.ctx, b.ID)
	require.NoError(t, err)

	cancelled, err := f.svc.CancelBooking(f.ctx, b.ID, "планы изменились")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	// Сумма сохраняется для истории
	assert.Equal(t, 3000.0, cancelled.TotalPrice)

	balance, err := f.wallet.GetBalance(f.ctx, 200, models.CurrencyRUB)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, balance)

	t.Run("cancel of terminal is rejected", func(t *testing.T) {
		_, err := f.svc.CancelBooking(f.ctx, b.ID, "")
		assert.ErrorIs(t, err, database.ErrInvalidTransition)
	})
}

func TestCancelPendingWithoutRefund(t *testing.T) {
	f := setupFixture(t)

	b, err := f.svc.CreateBooking(f.ctx, 1, 100, 200, "2025-06-03", "19:00", "")
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(f.ctx, b.ID, "")
	require.NoError(t, err)

	txs, err := f.db.GetBookingTransactions(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestSweepExpired(t *testing.T) {
	f := setupFixture(t)

	b, err := f.svc.CreateBooking(f.ctx, 1, 100, 200, "2025-06-03", "19:00", "")
	require.NoError(t, err)

	// Окно еще не вышло
	swept, err := f.svc.SweepExpired(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)

	*f.now = f.now.Add(16 * time.Minute)

	swept, err = f.svc.SweepExpired(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	got, err := f.svc.GetBooking(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	// Повторный проход ничего не находит
	swept, err = f.svc.SweepExpired(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)
}

func TestReferralCommissionOnComplete(t *testing.T) {
	f := setupFixture(t)

	// Петр пригласил Ивана
	require.NoError(t, f.referral.RegisterReferral(f.ctx, 200, "PETR300CCCC"))
	f.deposit(t, 200, 10000)

	b, err := f.svc.CreateBooking(f.ctx, 1, 100, 200, "2025-06-03", "19:00", "")
	require.NoError(t, err)
	_, err = f.svc.ConfirmBooking(f.ctx, b.ID)
	require.NoError(t, err)
	_, err = f.svc.SellerReady(f.ctx, b.ID)
	require.NoError(t, err)
	_, err = f.svc.BuyerReady(f.ctx, b.ID)
	require.NoError(t, err)
	_, err = f.svc.CompleteBooking(f.ctx, b.ID)
	require.NoError(t, err)

	// Комиссия первого уровня 10%
	balance, err := f.wallet.GetBalance(f.ctx, 300, models.CurrencyRUB)
	require.NoError(t, err)
	assert.Equal(t, 300.0, balance)

	refs, err := f.referral.GetReferrals(f.ctx, 300)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, 1, refs[0].Level)
	assert.Equal(t, "Иван", refs[0].Name)
	assert.True(t, refs[0].IsActive)
}

func TestGetUserBookings(t *testing.T) {
	f := setupFixture(t)

	_, err := f.svc.CreateBooking(f.ctx, 1, 100, 200, "2025-06-03", "19:00", "")
	require.NoError(t, err)
	_, err = f.svc.CreateBooking(f.ctx, 2, 100, 300, "2025-06-04", "12:00", "")
	require.NoError(t, err)

	asSeller, err := f.svc.GetUserBookings(f.ctx, 100)
	require.NoError(t, err)
	assert.Len(t, asSeller, 2)

	asBuyer, err := f.svc.GetUserBookings(f.ctx, 200)
	require.NoError(t, err)
	assert.Len(t, asBuyer, 1)
}
