package notify

import (
	"fmt"
	"strings"

	"svidanie/internal/booking"
	"svidanie/internal/events"
	"svidanie/internal/models"
)

// Иконки по типу события, как в мини-аппе.
var kindIcons = map[string]string{
	events.EventBookingCreated:     "📅",
	events.EventBookingConfirmed:   "🔔",
	events.EventBookingRejected:    "💬",
	events.EventBookingSellerReady: "⭐",
	events.EventBookingStarted:     "⭐",
	events.EventBookingExtended:    "💰",
	events.EventBookingCompleted:   "💰",
	events.EventBookingCancelled:   "💬",
	events.EventBookingExpired:     "🔔",
}

func Icon(kind string) string {
	if icon, ok := kindIcons[kind]; ok {
		return icon
	}
	return "🔔"
}

// FormatBooking — карточка встречи для сообщения в чат.
func FormatBooking(b *models.Booking) string {
	var sb strings.Builder

	label := booking.StatusLabel(b.Status)
	fmt.Fprintf(&sb, "*%s*\n", b.ServiceName)
	fmt.Fprintf(&sb, "Статус: %s\n", label.Text)
	fmt.Fprintf(&sb, "Дата: %s %s\n", b.Date, b.Time)
	fmt.Fprintf(&sb, "Длительность: %g ч\n", b.Duration)
	fmt.Fprintf(&sb, "Сумма: %.2f %s", b.TotalPrice, b.Currency)
	if b.Note != "" {
		fmt.Fprintf(&sb, "\nКомментарий: %s", b.Note)
	}

	return sb.String()
}

// FormatRemaining — оставшееся время встречи в виде Ч:ММ:СС.
func FormatRemaining(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
