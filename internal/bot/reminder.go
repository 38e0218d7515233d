package bot

import (
	"context"
	"fmt"
	"time"

	"svidanie/internal/models"
	"svidanie/internal/notify"
)

// Продавец получает напоминание, когда до истечения окна подтверждения
// остается меньше пяти минут. Повторы гасятся dedup-ключом очереди.
const reminderThreshold = 5 * time.Minute

func (b *Bot) StartReminders(ctx context.Context) {
	if b == nil || b.repo == nil || b.notifyQ == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.remindExpiring(ctx)
			}
		}
	}()
}

func (b *Bot) remindExpiring(ctx context.Context) {
	pending, err := b.repo.GetBookingsByStatus(ctx, models.StatusPendingConfirmation)
	if err != nil {
		b.logger.Error().Err(err).Msg("reminder: load pending bookings")
		return
	}

	now := b.clock()
	for _, bk := range pending {
		if bk.ExpiresAt == nil {
			continue
		}
		left := bk.ExpiresAt.Sub(now)
		if left <= 0 || left > reminderThreshold {
			continue
		}

		text := fmt.Sprintf("%s Заявка №%d от %s истекает через %s. Подтвердите или отклоните.",
			notify.Icon("expired"), bk.ID, bk.BuyerName, left.Round(time.Minute))

		task := &models.NotifyTask{
			Kind:      "expiring",
			BookingID: bk.ID,
			ChatID:    bk.SellerID,
			Message:   text,
			DedupKey:  fmt.Sprintf("expiring:%d", bk.ID),
		}
		if err := b.notifyQ.Enqueue(ctx, task); err != nil {
			b.logger.Error().Err(err).Int64("booking_id", bk.ID).Msg("reminder: enqueue")
		}
	}
}
