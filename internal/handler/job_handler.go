package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/pkg/response"
)

type jobService interface {
	Enqueue(ctx context.Context, jobType string) (*dto.JobRun, error)
	Last(ctx context.Context, jobType string) (*dto.JobRun, error)
}

// JobHandler lets operators trigger batch jobs by hand.
type JobHandler struct {
	jobs jobService
}

// NewJobHandler constructs JobHandler.
func NewJobHandler(jobs jobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// Trigger godoc
// @Summary Queue a batch job
// @Tags Jobs
// @Produce json
// @Param type path string true "dispatch, status_scan or contact_sync"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /jobs/{type} [post]
func (h *JobHandler) Trigger(c *gin.Context) {
	run, err := h.jobs.Enqueue(c.Request.Context(), c.Param("type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, run)
}

// Last godoc
// @Summary Latest run of a batch job
// @Tags Jobs
// @Produce json
// @Param type path string true "dispatch, status_scan or contact_sync"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{type}/last [get]
func (h *JobHandler) Last(c *gin.Context) {
	run, err := h.jobs.Last(c.Request.Context(), c.Param("type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}
