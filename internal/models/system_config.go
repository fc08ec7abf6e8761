package models

import (
	"strings"
	"time"
)

// Dispatch frequencies.
const (
	FrequencyWeekly   = "weekly"
	FrequencyBiweekly = "biweekly"
	FrequencyMonthly  = "monthly"
)

// SystemConfig holds the operator-tunable business parameters. It is stored
// as a single row.
type SystemConfig struct {
	SendDay           string    `db:"send_day" json:"send_day"`
	SendTime          string    `db:"send_time" json:"send_time"`
	Frequency         string    `db:"frequency" json:"frequency"`
	ExpirationDays    int       `db:"expiration_days" json:"expiration_days"`
	ReminderEnabled   bool      `db:"reminder_enabled" json:"reminder_enabled"`
	ReminderDays      int       `db:"reminder_days" json:"reminder_days"`
	InactiveDays      int       `db:"inactive_days" json:"inactive_days"`
	RiskDays          int       `db:"risk_days" json:"risk_days"`
	AllowResubmission bool      `db:"allow_resubmission" json:"allow_resubmission"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultSystemConfig returns the values used before an operator changes anything.
func DefaultSystemConfig() SystemConfig {
	return SystemConfig{
		SendDay:           "monday",
		SendTime:          "09:00",
		Frequency:         FrequencyWeekly,
		ExpirationDays:    7,
		ReminderEnabled:   true,
		ReminderDays:      3,
		InactiveDays:      21,
		RiskDays:          14,
		AllowResubmission: true,
	}
}

// WithDefaults replaces zero or blank fields with their defaults.
func (c SystemConfig) WithDefaults() SystemConfig {
	d := DefaultSystemConfig()
	if strings.TrimSpace(c.SendDay) == "" {
		c.SendDay = d.SendDay
	}
	if strings.TrimSpace(c.SendTime) == "" {
		c.SendTime = d.SendTime
	}
	if strings.TrimSpace(c.Frequency) == "" {
		c.Frequency = d.Frequency
	}
	if c.ExpirationDays <= 0 {
		c.ExpirationDays = d.ExpirationDays
	}
	if c.ReminderDays <= 0 {
		c.ReminderDays = d.ReminderDays
	}
	if c.InactiveDays <= 0 {
		c.InactiveDays = d.InactiveDays
	}
	if c.RiskDays <= 0 {
		c.RiskDays = d.RiskDays
	}
	c.SendDay = strings.ToLower(strings.TrimSpace(c.SendDay))
	c.Frequency = strings.ToLower(strings.TrimSpace(c.Frequency))
	return c
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday maps a lowercase English day name to a time.Weekday.
func ParseWeekday(name string) (time.Weekday, bool) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// ParseClock parses an HH:MM wall-clock time.
func ParseClock(value string) (hour, minute int, ok bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}
