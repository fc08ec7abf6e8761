package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/internal/models"
	appErrors "github.com/noah-isme/alumnos-crm-api/pkg/errors"
)

type configurationServiceMock struct {
	current   models.SystemConfig
	updateReq *dto.UpdateSystemConfigRequest
	updateErr error
}

func (m *configurationServiceMock) Get(ctx context.Context) models.SystemConfig {
	return m.current
}

func (m *configurationServiceMock) Update(ctx context.Context, req dto.UpdateSystemConfigRequest) (*models.SystemConfig, error) {
	m.updateReq = &req
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	cfg := m.current
	if req.RiskDays != nil {
		cfg.RiskDays = *req.RiskDays
	}
	return &cfg, nil
}

func TestConfigurationHandlerGet(t *testing.T) {
	mock := &configurationServiceMock{current: models.DefaultSystemConfig()}
	c, w := newTestContext(http.MethodGet, "/config", nil)

	NewConfigurationHandler(mock).Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	var cfg models.SystemConfig
	decodeEnvelope(t, w, &cfg)
	assert.Equal(t, "monday", cfg.SendDay)
	assert.Equal(t, 21, cfg.InactiveDays)
}

func TestConfigurationHandlerUpdatePartial(t *testing.T) {
	mock := &configurationServiceMock{current: models.DefaultSystemConfig()}
	c, w := newTestContext(http.MethodPut, "/config", []byte(`{"risk_days":10}`))

	NewConfigurationHandler(mock).Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.updateReq)
	require.NotNil(t, mock.updateReq.RiskDays)
	assert.Nil(t, mock.updateReq.SendDay)
	var cfg models.SystemConfig
	decodeEnvelope(t, w, &cfg)
	assert.Equal(t, 10, cfg.RiskDays)
}

func TestConfigurationHandlerUpdateInvalidBody(t *testing.T) {
	mock := &configurationServiceMock{}
	c, w := newTestContext(http.MethodPut, "/config", []byte(`invalid`))

	NewConfigurationHandler(mock).Update(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, mock.updateReq)
}

func TestConfigurationHandlerUpdateRejected(t *testing.T) {
	mock := &configurationServiceMock{updateErr: appErrors.Clone(appErrors.ErrValidation, "risk_days must be lower than inactive_days")}
	c, w := newTestContext(http.MethodPut, "/config", []byte(`{"risk_days":30}`))

	NewConfigurationHandler(mock).Update(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, w))
}
