package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/internal/models"
	appErrors "github.com/noah-isme/alumnos-crm-api/pkg/errors"
)

const systemConfigCacheKey = "config:system"

type systemConfigRepository interface {
	Get(ctx context.Context) (*models.SystemConfig, error)
	Insert(ctx context.Context, cfg *models.SystemConfig) error
	Upsert(ctx context.Context, cfg *models.SystemConfig) error
}

// ConfigurationService serves the business settings that drive dispatch and
// status escalation. Reads never fail: storage problems fall back to defaults.
type ConfigurationService struct {
	repo      systemConfigRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewConfigurationService constructs a ConfigurationService. cache may be nil.
func NewConfigurationService(repo systemConfigRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ConfigurationService {
	if validate == nil {
		validate = newValidator()
	} else {
		registerValidations(validate)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigurationService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Get returns the current configuration. A missing row is created with the
// defaults; any other read failure is logged and the defaults are returned.
func (s *ConfigurationService) Get(ctx context.Context) models.SystemConfig {
	var cached models.SystemConfig
	if s.cache.Get(ctx, systemConfigCacheKey, &cached) {
		return cached.WithDefaults()
	}

	stored, err := s.repo.Get(ctx)
	if err != nil {
		defaults := models.DefaultSystemConfig()
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Sugar().Warnw("system config read failed, using defaults", "error", err)
			return defaults
		}
		if err := s.repo.Insert(ctx, &defaults); err != nil {
			s.logger.Sugar().Warnw("system config seed failed", "error", err)
		}
		return defaults
	}

	cfg := stored.WithDefaults()
	s.cache.Set(ctx, systemConfigCacheKey, cfg, 0)
	return cfg
}

// Update merges req over the current configuration and persists it.
func (s *ConfigurationService) Update(ctx context.Context, req dto.UpdateSystemConfigRequest) (*models.SystemConfig, error) {
	if req.SendDay != nil {
		day := strings.ToLower(strings.TrimSpace(*req.SendDay))
		req.SendDay = &day
	}
	if req.SendTime != nil {
		clock := strings.TrimSpace(*req.SendTime)
		req.SendTime = &clock
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid configuration payload")
	}

	cfg := s.Get(ctx)
	if req.SendDay != nil {
		cfg.SendDay = *req.SendDay
	}
	if req.SendTime != nil {
		cfg.SendTime = *req.SendTime
	}
	if req.Frequency != nil {
		cfg.Frequency = *req.Frequency
	}
	if req.ExpirationDays != nil {
		cfg.ExpirationDays = *req.ExpirationDays
	}
	if req.ReminderEnabled != nil {
		cfg.ReminderEnabled = *req.ReminderEnabled
	}
	if req.ReminderDays != nil {
		cfg.ReminderDays = *req.ReminderDays
	}
	if req.InactiveDays != nil {
		cfg.InactiveDays = *req.InactiveDays
	}
	if req.RiskDays != nil {
		cfg.RiskDays = *req.RiskDays
	}
	if req.AllowResubmission != nil {
		cfg.AllowResubmission = *req.AllowResubmission
	}

	if cfg.RiskDays >= cfg.InactiveDays {
		return nil, appErrors.Clone(appErrors.ErrValidation, "risk_days must be lower than inactive_days")
	}

	if err := s.repo.Upsert(ctx, &cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update configuration")
	}
	s.cache.Delete(ctx, systemConfigCacheKey)

	s.logger.Sugar().Infow("system config updated",
		"send_day", cfg.SendDay,
		"send_time", cfg.SendTime,
		"frequency", cfg.Frequency,
		"risk_days", cfg.RiskDays,
		"inactive_days", cfg.InactiveDays,
	)
	return &cfg, nil
}
