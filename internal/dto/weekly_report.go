package dto

// SubmitWeeklyReportRequest is the payload posted by the report form.
type SubmitWeeklyReportRequest struct {
	Token               string `json:"token" validate:"required,max=128"`
	ActiveProcesses     int    `json:"active_processes" validate:"gte=0,lte=1000"`
	HRInterviews        int    `json:"hr_interviews" validate:"gte=0,lte=1000"`
	TechnicalInterviews int    `json:"technical_interviews" validate:"gte=0,lte=1000"`
	Challenges          int    `json:"challenges" validate:"gte=0,lte=1000"`
	Rejections          int    `json:"rejections" validate:"gte=0,lte=1000"`
	Ghosting            int    `json:"ghosting" validate:"gte=0,lte=1000"`
	Offers              int    `json:"offers" validate:"gte=0,lte=1000"`
	Summary             string `json:"summary" validate:"max=5000"`
	Blockers            string `json:"blockers" validate:"max=5000"`
}
