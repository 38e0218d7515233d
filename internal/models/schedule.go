package models

type WorkScheduleType string

const (
	ScheduleAlwaysOn WorkScheduleType = "24/7"
	ScheduleCustom   WorkScheduleType = "custom"
	ScheduleInactive WorkScheduleType = "inactive"
)

// DaySchedule — окно доступности на один день недели, времена в формате HH:MM.
type DaySchedule struct {
	Start   string `json:"start" yaml:"start"`
	End     string `json:"end" yaml:"end"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// WorkSchedule описывает доступность продавца: всегда, никогда
// или по окнам на дни недели (ключи map — monday..sunday).
type WorkSchedule struct {
	Type        WorkScheduleType       `json:"type" yaml:"type"`
	CustomHours map[string]DaySchedule `json:"custom_hours,omitempty" yaml:"custom_hours,omitempty"`
}
