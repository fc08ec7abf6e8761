package dto

import (
	"time"

	"github.com/noah-isme/alumnos-crm-api/internal/models"
)

// AuditLink is a link with its derived state for audit views.
type AuditLink struct {
	models.MagicLinkWithStudent
	EffectiveStatus models.MagicLinkStatus `json:"effective_status"`
}

// AuditStats aggregates the audit lists.
type AuditStats struct {
	TotalLinks     int `json:"total_links"`
	TotalReports   int `json:"total_reports"`
	TotalStudents  int `json:"total_students"`
	PendingLinks   int `json:"pending_links"`
	CompletedLinks int `json:"completed_links"`
	ExpiredLinks   int `json:"expired_links"`
	FailedReports  int `json:"failed_reports"`
}

// AuditReport is the full operator audit view.
type AuditReport struct {
	GeneratedAt time.Time                        `json:"generated_at"`
	Links       []AuditLink                      `json:"links"`
	Reports     []models.WeeklyReportWithStudent `json:"reports"`
	Students    []models.Student                 `json:"students"`
	FailedLinks []AuditLink                      `json:"failed_links"`
	Stats       AuditStats                       `json:"stats"`
}
