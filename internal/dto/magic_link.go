package dto

import (
	"time"

	"github.com/noah-isme/alumnos-crm-api/internal/models"
)

// SendLinkResult is the outcome of issuing a link and attempting delivery.
// The link is persisted even when Success is false.
type SendLinkResult struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	StudentID int64     `json:"student_id"`
	Link      string    `json:"link"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Error     string    `json:"error,omitempty"`
}

// ValidateTokenResult reports whether a token may open the report form.
type ValidateTokenResult struct {
	Valid   bool                     `json:"valid"`
	Message string                   `json:"message,omitempty"`
	Link    *models.MagicLink        `json:"link,omitempty"`
	Student *ValidatedStudentSummary `json:"student,omitempty"`
}

// ValidatedStudentSummary is the student data the report form shows.
type ValidatedStudentSummary struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}
