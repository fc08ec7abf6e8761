package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/internal/models"
	"github.com/noah-isme/alumnos-crm-api/pkg/response"
)

type weeklyReportService interface {
	Submit(ctx context.Context, req dto.SubmitWeeklyReportRequest) (*models.WeeklyReport, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.WeeklyReport, error)
	ListAll(ctx context.Context) ([]models.WeeklyReportWithStudent, error)
}

// WeeklyReportHandler exposes report submission and listing.
type WeeklyReportHandler struct {
	reports weeklyReportService
}

// NewWeeklyReportHandler constructs WeeklyReportHandler.
func NewWeeklyReportHandler(reports weeklyReportService) *WeeklyReportHandler {
	return &WeeklyReportHandler{reports: reports}
}

// Submit godoc
// @Summary Submit a weekly report with a magic link token
// @Tags WeeklyReports
// @Accept json
// @Produce json
// @Param payload body dto.SubmitWeeklyReportRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /weekly-reports [post]
func (h *WeeklyReportHandler) Submit(c *gin.Context) {
	var req dto.SubmitWeeklyReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	report, err := h.reports.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// List godoc
// @Summary List recent weekly reports
// @Tags WeeklyReports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /weekly-reports [get]
func (h *WeeklyReportHandler) List(c *gin.Context) {
	reports, err := h.reports.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// ListByStudent godoc
// @Summary List weekly reports of a student
// @Tags WeeklyReports
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /weekly-reports/student/{id} [get]
func (h *WeeklyReportHandler) ListByStudent(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	reports, err := h.reports.ListByStudent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}
