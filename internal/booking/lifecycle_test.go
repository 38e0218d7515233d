package booking

import (
	"testing"
	"time"

	"svidanie/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClock(start time.Time) (*time.Time, Clock) {
	current := start
	return &current, func() time.Time { return current }
}

func baseParams() CreateParams {
	return CreateParams{
		ServiceID:       7,
		ServiceName:     "Вечерняя встреча",
		ServiceCategory: "escort",
		SellerID:        100,
		SellerName:      "Ева",
		BuyerID:         200,
		BuyerName:       "Максим",
		Date:            "2025-06-01",
		Time:            "20:00",
		Duration:        2,
		PricePerHour:    5000,
		Currency:        models.CurrencyRUB,
	}
}

func TestCreate(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, clock := testClock(start)
	lc := NewLifecycle(clock)

	b := lc.Create(baseParams())

	assert.Equal(t, models.StatusPendingConfirmation, b.Status)
	assert.Equal(t, float64(10000), b.TotalPrice)
	assert.Equal(t, start, b.CreatedAt)
	require.NotNil(t, b.ExpiresAt)
	assert.Equal(t, 15*time.Minute, b.ExpiresAt.Sub(b.CreatedAt))
	assert.Equal(t, int64(1), b.Version)
}

func TestCreate_UniqueIDs(t *testing.T) {
	_, clock := testClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	lc := NewLifecycle(clock)

	a := lc.Create(baseParams())
	b := lc.Create(baseParams())
	assert.NotEqual(t, a.ID, b.ID)
	assert.Greater(t, b.ID, a.ID)
}

func TestHappyPath(t *testing.T) {
	current, clock := testClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	lc := NewLifecycle(clock)

	b := lc.Create(baseParams())
	original := b.TotalPrice

	*current = current.Add(time.Minute)
	b = lc.Confirm(b)
	assert.Equal(t, models.StatusConfirmed, b.Status)
	require.NotNil(t, b.ConfirmedAt)
	assert.Nil(t, b.ExpiresAt)

	b = lc.SellerReady(b)
	assert.Equal(t, models.StatusSellerReady, b.Status)
	require.NotNil(t, b.SellerReadyAt)

	b = lc.BuyerReady(b)
	assert.Equal(t, models.StatusInProgress, b.Status)
	require.NotNil(t, b.StartedAt)
	assert.Equal(t, int64(7200), b.RemainingTime)

	b = lc.Extend(b, 1, 5000)
	assert.Equal(t, float64(3), b.Duration)
	assert.Equal(t, original+5000, b.TotalPrice)
	assert.Equal(t, int64(10800), b.RemainingTime)

	b = lc.Complete(b)
	assert.Equal(t, models.StatusCompleted, b.Status)
	assert.Equal(t, int64(0), b.RemainingTime)
	require.NotNil(t, b.CompletedAt)
}

func TestGuards_NoOp(t *testing.T) {
	_, clock := testClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	lc := NewLifecycle(clock)
	pending := lc.Create(baseParams())

	t.Run("SellerReadyFromPending", func(t *testing.T) {
		got := lc.SellerReady(pending)
		assert.Equal(t, pending, got)
		assert.Nil(t, got.SellerReadyAt)
	})

	t.Run("BuyerReadyFromPending", func(t *testing.T) {
		got := lc.BuyerReady(pending)
		assert.Equal(t, pending, got)
	})

	t.Run("ExtendFromPending", func(t *testing.T) {
		got := lc.Extend(pending, 1, 5000)
		assert.Equal(t, pending, got)
	})

	t.Run("CompleteFromPending", func(t *testing.T) {
		got := lc.Complete(pending)
		assert.Equal(t, pending, got)
	})

	t.Run("ConfirmFromConfirmed", func(t *testing.T) {
		confirmed := lc.Confirm(pending)
		got := lc.Confirm(confirmed)
		assert.Equal(t, confirmed, got)
	})

	t.Run("RejectFromConfirmed", func(t *testing.T) {
		confirmed := lc.Confirm(pending)
		got := lc.Reject(confirmed)
		assert.Equal(t, confirmed, got)
	})

	t.Run("CancelFromTerminal", func(t *testing.T) {
		rejected := lc.Reject(pending)
		got := lc.Cancel(rejected)
		assert.Equal(t, models.StatusRejected, got.Status)
	})
}

func TestCancel_PreservesTotal(t *testing.T) {
	_, clock := testClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	lc := NewLifecycle(clock)

	b := lc.Create(baseParams())
	cancelled := lc.Cancel(b)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, b.TotalPrice, cancelled.TotalPrice)
}

func TestExtend_VirtualUnitIsMinutes(t *testing.T) {
	_, clock := testClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	lc := NewLifecycle(clock)

	p := baseParams()
	p.ServiceCategory = models.CategoryVirtual
	p.Duration = 1
	p.PricePerHour = 100

	b := lc.BuyerReady(lc.SellerReady(lc.Confirm(lc.Create(p))))
	require.Equal(t, models.StatusInProgress, b.Status)
	require.Equal(t, int64(3600), b.RemainingTime)

	got := lc.Extend(b, 30, 100)
	assert.InDelta(t, 1.5, got.Duration, 1e-9)
	assert.InDelta(t, b.TotalPrice+50, got.TotalPrice, 1e-9)
	assert.Equal(t, b.RemainingTime+1800, got.RemainingTime)
}

func TestExtend_NonVirtualUnitIsHours(t *testing.T) {
	_, clock := testClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	lc := NewLifecycle(clock)

	p := baseParams()
	p.ServiceCategory = "massage"
	p.Duration = 1
	p.PricePerHour = 100

	b := lc.BuyerReady(lc.SellerReady(lc.Confirm(lc.Create(p))))

	got := lc.Extend(b, 2, 100)
	assert.InDelta(t, 3, got.Duration, 1e-9)
	assert.InDelta(t, b.TotalPrice+200, got.TotalPrice, 1e-9)
	assert.Equal(t, b.RemainingTime+7200, got.RemainingTime)
}

func TestExtend_FractionalHours(t *testing.T) {
	_, clock := testClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	lc := NewLifecycle(clock)

	p := baseParams()
	p.Duration = 0.5
	p.PricePerHour = 1000

	b := lc.BuyerReady(lc.SellerReady(lc.Confirm(lc.Create(p))))
	require.Equal(t, int64(1800), b.RemainingTime)

	got := lc.Extend(b, 0.5, 1000)
	assert.InDelta(t, 1, got.Duration, 1e-9)
	assert.InDelta(t, b.TotalPrice+500, got.TotalPrice, 1e-9)
	assert.Equal(t, int64(3600), got.RemainingTime)
}

func TestIsExpired(t *testing.T) {
	current, clock := testClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	lc := NewLifecycle(clock)

	b := lc.Create(baseParams())
	assert.False(t, lc.IsExpired(b))

	*current = current.Add(14 * time.Minute)
	assert.False(t, lc.IsExpired(b))

	*current = current.Add(2 * time.Minute)
	assert.True(t, lc.IsExpired(b))

	// После подтверждения окно снято, просрочки быть не может.
	*current = current.Add(-3 * time.Minute)
	confirmed := lc.Confirm(b)
	*current = current.Add(time.Hour)
	assert.False(t, lc.IsExpired(confirmed))
}

func TestCanExtend(t *testing.T) {
	_, clock := testClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	lc := NewLifecycle(clock)

	p := baseParams()
	p.PricePerHour = 1000
	b := lc.Create(p)

	// Не in_progress — нельзя при любом балансе.
	assert.False(t, lc.CanExtend(b, 1_000_000))

	active := lc.BuyerReady(lc.SellerReady(lc.Confirm(b)))
	assert.True(t, lc.CanExtend(active, 1000))
	assert.True(t, lc.CanExtend(active, 5000))
	assert.False(t, lc.CanExtend(active, 999))

	for _, terminal := range []models.Booking{lc.Cancel(active), lc.Complete(active)} {
		assert.False(t, lc.CanExtend(terminal, 1_000_000))
	}
}

func TestExtensionCost(t *testing.T) {
	assert.InDelta(t, 50, ExtensionCost(models.CategoryVirtual, 30, 100), 1e-9)
	assert.InDelta(t, 200, ExtensionCost("massage", 2, 100), 1e-9)
}

func TestStatusLabel_Total(t *testing.T) {
	for _, status := range models.AllBookingStatuses {
		label := StatusLabel(status)
		assert.NotEmpty(t, label.Text, "status %s", status)
		assert.NotEmpty(t, label.Color, "status %s", status)
	}

	unknown := StatusLabel(models.BookingStatus("???"))
	assert.NotEmpty(t, unknown.Text)
	assert.Equal(t, "gray", unknown.Color)
}
