package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svidanie/internal/config"
	"svidanie/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.New(os.Stdout)
	db, err := NewDB(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testBooking(id int64) *models.Booking {
	now := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	expires := now.Add(15 * time.Minute)
	return &models.Booking{
		ID:              id,
		ServiceID:       1,
		ServiceName:     "Ужин",
		ServiceCategory: "offline",
		SellerID:        100,
		SellerName:      "Анна",
		BuyerID:         200,
		BuyerName:       "Иван",
		Date:            "2025-06-03",
		Time:            "19:00",
		Duration:        2,
		PricePerHour:    1500,
		TotalPrice:      3000,
		Currency:        "RUB",
		Status:          models.StatusPendingConfirmation,
		CreatedAt:       now,
		ExpiresAt:       &expires,
		Version:         1,
	}
}

func TestBookingCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := testBooking(1001)
	require.NoError(t, db.CreateBooking(ctx, b))

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, models.StatusPendingConfirmation, got.Status)
	assert.Equal(t, 3000.0, got.TotalPrice)
	require.NotNil(t, got.ExpiresAt)
	assert.Nil(t, got.ConfirmedAt)

	_, err = db.GetBooking(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOptimisticLocking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := testBooking(1002)
	require.NoError(t, db.CreateBooking(ctx, b))

	// Successful update
	err := db.UpdateBookingStatusWithVersion(ctx, b.ID, b.Version, models.StatusConfirmed)
	require.NoError(t, err)

	// Failed update with old version
	err = db.UpdateBookingStatusWithVersion(ctx, b.ID, b.Version, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrConcurrentModification)

	// Successful update with new version
	updated, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	err = db.UpdateBookingStatusWithVersion(ctx, updated.ID, updated.Version, models.StatusCancelled)
	require.NoError(t, err)
}

func TestUpdateBookingWithVersion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := testBooking(1003)
	require.NoError(t, db.CreateBooking(ctx, b))

	now := time.Now().UTC().Truncate(time.Second)
	b.Status = models.StatusConfirmed
	b.ConfirmedAt = &now
	b.ExpiresAt = nil
	require.NoError(t, db.UpdateBookingWithVersion(ctx, b))
	assert.Equal(t, int64(2), b.Version)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Nil(t, got.ExpiresAt)
	require.NotNil(t, got.ConfirmedAt)

	// Повторная запись со старой версией
	stale := testBooking(1003)
	err = db.UpdateBookingWithVersion(ctx, stale)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestGetExpiredPending(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()

	expired := testBooking(2001)
	past := now.Add(-time.Minute)
	expired.ExpiresAt = &past
	require.NoError(t, db.CreateBooking(ctx, expired))

	fresh := testBooking(2002)
	future := now.Add(10 * time.Minute)
	fresh.ExpiresAt = &future
	require.NoError(t, db.CreateBooking(ctx, fresh))

	confirmed := testBooking(2003)
	confirmed.Status = models.StatusConfirmed
	confirmed.ExpiresAt = nil
	require.NoError(t, db.CreateBooking(ctx, confirmed))

	got, err := db.GetExpiredPending(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2001), got[0].ID)
}

func TestBuyerSellerBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b1 := testBooking(3001)
	b2 := testBooking(3002)
	b2.BuyerID = 999
	require.NoError(t, db.CreateBooking(ctx, b1))
	require.NoError(t, db.CreateBooking(ctx, b2))

	buyer, err := db.GetBuyerBookings(ctx, 200)
	require.NoError(t, err)
	require.Len(t, buyer, 1)
	assert.Equal(t, int64(3001), buyer[0].ID)

	seller, err := db.GetSellerBookings(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, seller, 2)
}

func TestTransactions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	tx := &models.Transaction{
		UserID:           200,
		Type:             models.TxDeposit,
		Amount:           1000,
		Currency:         models.CurrencyRUB,
		Status:           models.TxCompleted,
		Description:      "Пополнение счета RUB",
		CreatedAt:        now,
		CompletedAt:      &now,
		RelatedBookingID: 0,
	}
	require.NoError(t, db.CreateTransaction(ctx, tx))
	assert.NotZero(t, tx.ID)

	got, err := db.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxDeposit, got.Type)
	assert.Equal(t, 1000.0, got.Amount)

	list, err := db.GetUserTransactions(ctx, 200)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = db.GetUserTransactionsByDateRange(ctx, 200, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	other, err := db.GetUserTransactions(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	user := &models.User{
		TelegramID:   555,
		Username:     "anna",
		DisplayName:  "Анна",
		Role:         "seller",
		ReferralCode: "ANNA1A2B",
		LastActivity: now,
		CreatedAt:    now,
	}
	require.NoError(t, db.CreateOrUpdateUser(ctx, user))

	got, err := db.GetUserByTelegramID(ctx, 555)
	require.NoError(t, err)
	assert.Equal(t, "Анна", got.DisplayName)

	byCode, err := db.GetUserByReferralCode(ctx, "ANNA1A2B")
	require.NoError(t, err)
	assert.Equal(t, int64(555), byCode.TelegramID)

	// Реферал
	ref := &models.User{
		TelegramID:   556,
		DisplayName:  "Иван",
		Role:         "buyer",
		ReferralCode: "IVAN3C4D",
		ReferredBy:   "ANNA1A2B",
		LastActivity: now,
		CreatedAt:    now,
	}
	require.NoError(t, db.CreateOrUpdateUser(ctx, ref))

	referred, err := db.GetReferredUsers(ctx, "ANNA1A2B")
	require.NoError(t, err)
	require.Len(t, referred, 1)
	assert.Equal(t, int64(556), referred[0].TelegramID)

	// Повторный upsert обязан сохранить реферальную привязку:
	// код выдается лениво, referred_by проставляется после регистрации.
	ref.ReferredBy = "ANNA1A2B"
	ref.ReferralCode = "IVAN5E6F"
	require.NoError(t, db.CreateOrUpdateUser(ctx, ref))
	got, err = db.GetUserByTelegramID(ctx, 556)
	require.NoError(t, err)
	assert.Equal(t, "ANNA1A2B", got.ReferredBy)
	assert.Equal(t, "IVAN5E6F", got.ReferralCode)

	// Черный список
	require.NoError(t, db.SetUserBlacklisted(ctx, 556, true))
	got, err = db.GetUserByTelegramID(ctx, 556)
	require.NoError(t, err)
	assert.True(t, got.IsBlacklisted)

	// График доступности
	ws := &models.WorkSchedule{
		Type: models.ScheduleCustom,
		CustomHours: map[string]models.DaySchedule{
			"monday": {Start: "10:00", End: "18:00", Enabled: true},
		},
	}
	require.NoError(t, db.SetUserSchedule(ctx, 555, ws))
	got, err = db.GetUserByTelegramID(ctx, 555)
	require.NoError(t, err)
	require.NotNil(t, got.Schedule)
	assert.Equal(t, models.ScheduleCustom, got.Schedule.Type)
	assert.Equal(t, "10:00", got.Schedule.CustomHours["monday"].Start)

	require.NoError(t, db.SetUserSchedule(ctx, 555, nil))
	got, err = db.GetUserByTelegramID(ctx, 555)
	require.NoError(t, err)
	assert.Nil(t, got.Schedule)

	assert.ErrorIs(t, db.SetUserSchedule(ctx, 999, ws), ErrNotFound)
}

func TestNotifyOutbox(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := &models.NotifyTask{
		DedupKey:  "booking_confirmed:1001",
		BookingID: 1001,
		ChatID:    200,
		Kind:      "booking_confirmed",
		Message:   "Встреча подтверждена",
		Status:    "pending",
	}
	require.NoError(t, db.CreateNotifyTask(ctx, task))
	assert.NotZero(t, task.ID)

	// Дубликат по dedup ключу
	dup := &models.NotifyTask{
		DedupKey:  "booking_confirmed:1001",
		BookingID: 1001,
		ChatID:    200,
		Kind:      "booking_confirmed",
		Message:   "Встреча подтверждена",
		Status:    "pending",
	}
	err := db.CreateNotifyTask(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateTask)

	pending, err := db.GetPendingNotifyTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// retry увеличивает счетчик
	next := time.Now().Add(time.Minute)
	require.NoError(t, db.UpdateNotifyTaskStatus(ctx, task.ID, "retry", "telegram timeout", &next))

	pending, err = db.GetPendingNotifyTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending) // next_retry_at в будущем

	require.NoError(t, db.UpdateNotifyTaskStatus(ctx, task.ID, "failed", "gave up", nil))
	failed, err := db.GetFailedNotifyTasks(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].RetryCount)
}

func TestSyncServices(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	services := []models.Service{
		{ID: 1, Name: "Ужин", Category: "offline", Price: 3000, Duration: 2, Currency: "RUB", IsActive: true, SortOrder: 1},
		{ID: 2, Name: "Видеозвонок", Category: "virtual", Price: 1000, Duration: 1, Currency: "RUB", IsActive: false, SortOrder: 2},
	}
	require.NoError(t, db.SyncServices(ctx, services))

	s, ok := db.GetService(1)
	require.True(t, ok)
	assert.Equal(t, "Ужин", s.Name)

	active := db.GetActiveServices()
	require.Len(t, active, 1)
	assert.Equal(t, int64(1), active[0].ID)

	// Повторная синхронизация обновляет запись
	services[1].IsActive = true
	require.NoError(t, db.SyncServices(ctx, services))
	assert.Len(t, db.GetActiveServices(), 2)
}

func TestBackupOnce(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "svidanie.db")

	db, err := NewDB(dbPath, logger)
	require.NoError(t, err)
	require.NoError(t, db.CreateBooking(context.Background(), testBooking(1)))
	db.Close()

	backupDir := filepath.Join(dir, "backups")
	svc := NewBackupService(dbPath, config.BackupConfig{
		Enabled:     true,
		StoragePath: backupDir,
	}, &logger)
	require.NoError(t, svc.BackupOnce())

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "svidanie_")

	// Копия открывается и содержит данные
	copyDB, err := NewDB(filepath.Join(backupDir, entries[0].Name()), logger)
	require.NoError(t, err)
	defer copyDB.Close()
	b, err := copyDB.GetBooking(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingConfirmation, b.Status)
}
