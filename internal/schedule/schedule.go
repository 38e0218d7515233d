package schedule

import (
	"fmt"
	"strings"
	"time"

	"svidanie/internal/models"
)

var weekdayKeys = map[time.Weekday]string{
	time.Sunday:    "sunday",
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
}

var weekdayNames = map[string]string{
	"monday":    "Понедельник",
	"tuesday":   "Вторник",
	"wednesday": "Среда",
	"thursday":  "Четверг",
	"friday":    "Пятница",
	"saturday":  "Суббота",
	"sunday":    "Воскресенье",
}

var weekdayShort = map[string]string{
	"monday":    "Пн",
	"tuesday":   "Вт",
	"wednesday": "Ср",
	"thursday":  "Чт",
	"friday":    "Пт",
	"saturday":  "Сб",
	"sunday":    "Вс",
}

// порядок дней для форматирования
var weekdayOrder = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// parseHHMM переводит "HH:MM" в минуты от полуночи.
func parseHHMM(s string) (int, bool) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, false
	}
	return h*60 + m, true
}

// IsActiveNow сообщает, доступен ли продавец в момент now.
// Отсутствие графика трактуется как "всегда доступен".
func IsActiveNow(ws *models.WorkSchedule, now time.Time) bool {
	if ws == nil {
		return true
	}

	switch ws.Type {
	case models.ScheduleInactive:
		return false
	case models.ScheduleAlwaysOn:
		return true
	case models.ScheduleCustom:
		if ws.CustomHours == nil {
			return true
		}

		day, ok := ws.CustomHours[weekdayKeys[now.Weekday()]]
		if !ok || !day.Enabled {
			return false
		}

		start, okStart := parseHHMM(day.Start)
		end, okEnd := parseHHMM(day.End)
		if !okStart || !okEnd {
			return false
		}

		current := now.Hour()*60 + now.Minute()
		if end < start {
			// Окно через полночь, например 22:00-06:00.
			return current >= start || current <= end
		}
		return current >= start && current <= end
	}

	return true
}

// NextAvailable возвращает подпись ближайшего окна доступности
// ("Сегодня с 10:00", "Завтра с 12:00", "Пятница с 18:00") либо
// пустую строку, если продавец не работает.
func NextAvailable(ws *models.WorkSchedule, now time.Time) string {
	if ws == nil || ws.Type == models.ScheduleInactive {
		return ""
	}

	if ws.Type == models.ScheduleAlwaysOn {
		return "Доступен круглосуточно"
	}

	if ws.Type != models.ScheduleCustom || ws.CustomHours == nil {
		return ""
	}

	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, i)
		key := weekdayKeys[day.Weekday()]
		daySchedule, ok := ws.CustomHours[key]
		if !ok || !daySchedule.Enabled {
			continue
		}

		if i == 0 {
			start, ok := parseHHMM(daySchedule.Start)
			if ok && now.Hour()*60+now.Minute() < start {
				return "Сегодня с " + daySchedule.Start
			}
			continue
		}
		if i == 1 {
			return "Завтра с " + daySchedule.Start
		}
		return weekdayNames[key] + " с " + daySchedule.Start
	}

	return ""
}

// Format — компактная строка графика для карточки продавца.
func Format(ws *models.WorkSchedule) string {
	if ws == nil || ws.Type == models.ScheduleAlwaysOn {
		return "Круглосуточно"
	}

	if ws.Type == models.ScheduleInactive {
		return "Не работает"
	}

	if ws.Type == models.ScheduleCustom && ws.CustomHours != nil {
		var parts []string
		for _, key := range weekdayOrder {
			day, ok := ws.CustomHours[key]
			if !ok || !day.Enabled {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s %s-%s", weekdayShort[key], day.Start, day.End))
		}
		if len(parts) == 0 {
			return "График не настроен"
		}
		return strings.Join(parts, ", ")
	}

	return "Не указан"
}
