package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/internal/service"
	"github.com/noah-isme/alumnos-crm-api/pkg/response"
)

type auditService interface {
	FullAudit(ctx context.Context, now time.Time) (*dto.AuditReport, error)
	Export(ctx context.Context, rawFormat string, now time.Time) (*service.AuditExport, error)
}

// AuditHandler exposes the link and report audit.
type AuditHandler struct {
	audit auditService
	now   func() time.Time
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audit auditService) *AuditHandler {
	return &AuditHandler{audit: audit, now: time.Now}
}

// Full godoc
// @Summary Full audit of issued links and submitted reports
// @Tags Audit
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /audit [get]
func (h *AuditHandler) Full(c *gin.Context) {
	report, err := h.audit.FullAudit(c.Request.Context(), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Download the link audit
// @Tags Audit
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /audit/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	export, err := h.audit.Export(c.Request.Context(), c.DefaultQuery("format", "csv"), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, export.Filename, export.ContentType, export.Body)
}
