package models

import "time"

// StudentStatus is the engagement level derived from report activity.
type StudentStatus string

const (
	StudentStatusActive            StudentStatus = "active"
	StudentStatusAtRisk            StudentStatus = "at_risk"
	StudentStatusInactive          StudentStatus = "inactive"
	StudentStatusActiveWithFailure StudentStatus = "active_with_failure"
)

// AllStudentStatuses lists every status in display order.
var AllStudentStatuses = []StudentStatus{
	StudentStatusActive,
	StudentStatusActiveWithFailure,
	StudentStatusAtRisk,
	StudentStatusInactive,
}

// DispatchableStatuses are the statuses that receive the recurring report link.
var DispatchableStatuses = []StudentStatus{
	StudentStatusActive,
	StudentStatusActiveWithFailure,
	StudentStatusAtRisk,
}

// Valid reports whether s is a known status.
func (s StudentStatus) Valid() bool {
	for _, known := range AllStudentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Student is a program participant who files weekly job search reports.
type Student struct {
	ID                int64         `db:"id" json:"id"`
	Email             string        `db:"email" json:"email"`
	FullName          string        `db:"full_name" json:"full_name"`
	Phone             string        `db:"phone" json:"phone"`
	Country           string        `db:"country" json:"country"`
	City              string        `db:"city" json:"city"`
	ExternalContactID *string       `db:"external_contact_id" json:"external_contact_id,omitempty"`
	Status            StudentStatus `db:"status" json:"status"`
	LastInteractionAt *time.Time    `db:"last_interaction_at" json:"last_interaction_at,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Statuses  []StudentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
