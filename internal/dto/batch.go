package dto

import (
	"time"

	"github.com/noah-isme/alumnos-crm-api/internal/models"
)

// DispatchFailure records one student whose link was not delivered.
type DispatchFailure struct {
	StudentID int64  `json:"student_id"`
	Email     string `json:"email"`
	Reason    string `json:"reason"`
}

// DispatchResult summarises a dispatch run.
type DispatchResult struct {
	Skipped      bool              `json:"skipped"`
	Reason       string            `json:"reason,omitempty"`
	Total        int               `json:"total"`
	SuccessCount int               `json:"success_count"`
	ErrorCount   int               `json:"error_count"`
	Failures     []DispatchFailure `json:"failures,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
}

// StatusTransition is one written status change.
type StatusTransition struct {
	StudentID int64                `json:"student_id"`
	From      models.StudentStatus `json:"from"`
	To        models.StudentStatus `json:"to"`
}

// ScanResult summarises a status scan.
type ScanResult struct {
	Scanned     int                `json:"scanned"`
	Updated     int                `json:"updated"`
	Failed      int                `json:"failed"`
	Transitions []StatusTransition `json:"transitions,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
}

// SyncResult summarises a contact import.
type SyncResult struct {
	Processed  int       `json:"processed"`
	Skipped    int       `json:"skipped"`
	Saved      int       `json:"saved"`
	Created    int       `json:"created"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// JobRun is the stored record of the latest run of a background job.
type JobRun struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Trigger    string      `json:"trigger"`
	Status     string      `json:"status"`
	Error      string      `json:"error,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	QueuedAt   time.Time   `json:"queued_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}
