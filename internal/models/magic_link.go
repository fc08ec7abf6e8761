package models

import "time"

// MagicLinkStatus is the stored state of a link. Expiry is derived from
// ExpiresAt and never stored.
type MagicLinkStatus string

const (
	MagicLinkStatusPending   MagicLinkStatus = "pending"
	MagicLinkStatusCompleted MagicLinkStatus = "completed"
	MagicLinkStatusExpired   MagicLinkStatus = "expired"
)

// MagicLink is a single-purpose token that lets a student open the report form.
type MagicLink struct {
	ID            int64           `db:"id" json:"id"`
	StudentID     int64           `db:"student_id" json:"student_id"`
	Token         string          `db:"token" json:"token"`
	Status        MagicLinkStatus `db:"status" json:"status"`
	WeekStartDate time.Time       `db:"week_start_date" json:"week_start_date"`
	ExpiresAt     time.Time       `db:"expires_at" json:"expires_at"`
	CompletedAt   *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// IsExpired reports whether now is strictly after the expiry instant.
func (l MagicLink) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// EffectiveStatus folds expiry into the stored status.
func (l MagicLink) EffectiveStatus(now time.Time) MagicLinkStatus {
	if l.Status == MagicLinkStatusCompleted {
		return MagicLinkStatusCompleted
	}
	if l.IsExpired(now) {
		return MagicLinkStatusExpired
	}
	return MagicLinkStatusPending
}

// MagicLinkWithStudent is a link joined with its owner's contact fields.
type MagicLinkWithStudent struct {
	MagicLink
	StudentName   string        `db:"student_name" json:"student_name"`
	StudentEmail  string        `db:"student_email" json:"student_email"`
	StudentStatus StudentStatus `db:"student_status" json:"student_status"`
}

// WeekStart returns midnight UTC of the day t falls on. Links record the
// date the dispatch happened.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
