package models

import "time"

// SessionState — состояние мини-аппа пользователя между запросами:
// активное бронирование, экран, черновики форм. Хранится в Redis
// с фолбэком в память.
type SessionState struct {
	UserID          int64                  `json:"user_id"`
	ActiveBookingID int64                  `json:"active_booking_id,omitempty"`
	Screen          string                 `json:"screen,omitempty"`
	Data            map[string]interface{} `json:"data,omitempty"`
}

func (s *SessionState) GetInt64(key string) int64 {
	if s.Data == nil {
		return 0
	}
	val, ok := s.Data[key]
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 0
	}
}

func (s *SessionState) GetFloat64(key string) float64 {
	if s.Data == nil {
		return 0
	}
	val, ok := s.Data[key]
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func (s *SessionState) GetString(key string) string {
	if s.Data == nil {
		return ""
	}
	if str, ok := s.Data[key].(string); ok {
		return str
	}
	return ""
}

func (s *SessionState) GetTime(key string) time.Time {
	if s.Data == nil {
		return time.Time{}
	}
	val, ok := s.Data[key]
	if !ok {
		return time.Time{}
	}
	switch v := val.(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}
