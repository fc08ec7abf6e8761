package models

import "time"

// WeeklyReport is one student's job search summary for a week.
type WeeklyReport struct {
	ID                  int64     `db:"id" json:"id"`
	StudentID           int64     `db:"student_id" json:"student_id"`
	MagicLinkID         *int64    `db:"magic_link_id" json:"magic_link_id,omitempty"`
	ActiveProcesses     int       `db:"active_processes" json:"active_processes"`
	HRInterviews        int       `db:"hr_interviews" json:"hr_interviews"`
	TechnicalInterviews int       `db:"technical_interviews" json:"technical_interviews"`
	Challenges          int       `db:"challenges" json:"challenges"`
	Rejections          int       `db:"rejections" json:"rejections"`
	Ghosting            int       `db:"ghosting" json:"ghosting"`
	Offers              int       `db:"offers" json:"offers"`
	Summary             string    `db:"summary" json:"summary"`
	Blockers            string    `db:"blockers" json:"blockers"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// WeeklyReportWithStudent is a report joined with its author.
type WeeklyReportWithStudent struct {
	WeeklyReport
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
}
