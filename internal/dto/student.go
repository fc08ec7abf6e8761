package dto

import "github.com/noah-isme/alumnos-crm-api/internal/models"

// CreateStudentRequest registers a student manually.
type CreateStudentRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	FullName string `json:"full_name" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"max=50"`
	Country  string `json:"country" validate:"max=100"`
	City     string `json:"city" validate:"max=100"`
}

// UpdateStudentRequest edits contact fields. Nil fields are unchanged.
type UpdateStudentRequest struct {
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=200"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
	Country  *string `json:"country" validate:"omitempty,max=100"`
	City     *string `json:"city" validate:"omitempty,max=100"`
}

// UpdateStudentStatusRequest is an operator override of the computed status.
type UpdateStudentStatusRequest struct {
	Status models.StudentStatus `json:"status" validate:"required,oneof=active at_risk inactive active_with_failure"`
}

// StudentDetail bundles a student with recent activity.
type StudentDetail struct {
	models.Student
	RecentReports []models.WeeklyReport `json:"recent_reports"`
	RecentLinks   []models.MagicLink    `json:"recent_links"`
}
