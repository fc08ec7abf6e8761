package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/internal/models"
	"github.com/noah-isme/alumnos-crm-api/pkg/response"
)

type configurationService interface {
	Get(ctx context.Context) models.SystemConfig
	Update(ctx context.Context, req dto.UpdateSystemConfigRequest) (*models.SystemConfig, error)
}

// ConfigurationHandler exposes the tunable business parameters.
type ConfigurationHandler struct {
	service configurationService
}

// NewConfigurationHandler builds a new handler.
func NewConfigurationHandler(service configurationService) *ConfigurationHandler {
	return &ConfigurationHandler{service: service}
}

// Get godoc
// @Summary Get system configuration
// @Tags Configuration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /config [get]
func (h *ConfigurationHandler) Get(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Get(c.Request.Context()), nil)
}

// Update godoc
// @Summary Update system configuration
// @Description Omitted fields keep their current value.
// @Tags Configuration
// @Accept json
// @Produce json
// @Param payload body dto.UpdateSystemConfigRequest true "Configuration payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /config [put]
func (h *ConfigurationHandler) Update(c *gin.Context) {
	var req dto.UpdateSystemConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	cfg, err := h.service.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}
