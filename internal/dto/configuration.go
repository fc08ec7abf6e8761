package dto

// UpdateSystemConfigRequest is a partial update of the business settings.
// Nil fields keep their current value.
type UpdateSystemConfigRequest struct {
	SendDay           *string `json:"send_day" validate:"omitempty,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	SendTime          *string `json:"send_time" validate:"omitempty,clock"`
	Frequency         *string `json:"frequency" validate:"omitempty,oneof=weekly biweekly monthly"`
	ExpirationDays    *int    `json:"expiration_days" validate:"omitempty,min=1,max=60"`
	ReminderEnabled   *bool   `json:"reminder_enabled"`
	ReminderDays      *int    `json:"reminder_days" validate:"omitempty,min=1,max=60"`
	InactiveDays      *int    `json:"inactive_days" validate:"omitempty,min=1,max=365"`
	RiskDays          *int    `json:"risk_days" validate:"omitempty,min=1,max=365"`
	AllowResubmission *bool   `json:"allow_resubmission"`
}
