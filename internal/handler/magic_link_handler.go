package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/pkg/response"
)

type magicLinkService interface {
	IssueAndSend(ctx context.Context, studentID int64) (*dto.SendLinkResult, error)
	ValidateToken(ctx context.Context, token string) (*dto.ValidateTokenResult, error)
}

// MagicLinkHandler exposes report link endpoints.
type MagicLinkHandler struct {
	links magicLinkService
}

// NewMagicLinkHandler constructs MagicLinkHandler.
func NewMagicLinkHandler(links magicLinkService) *MagicLinkHandler {
	return &MagicLinkHandler{links: links}
}

// Validate godoc
// @Summary Validate a report token
// @Description Invalid, expired and already used tokens answer 200 with valid=false.
// @Tags MagicLinks
// @Produce json
// @Param token query string true "Report token"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /magic-links/validate [get]
func (h *MagicLinkHandler) Validate(c *gin.Context) {
	result, err := h.links.ValidateToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Send godoc
// @Summary Issue and email a report link to one student
// @Description Delivery failures are reported in the payload, not as an HTTP error.
// @Tags MagicLinks
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /magic-links/send/{id} [post]
func (h *MagicLinkHandler) Send(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.links.IssueAndSend(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
