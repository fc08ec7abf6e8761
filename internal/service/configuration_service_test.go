package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/internal/models"
	appErrors "github.com/noah-isme/alumnos-crm-api/pkg/errors"
)

type systemConfigRepoStub struct {
	stored  *models.SystemConfig
	getErr  error
	inserts int
	upserts int
	gets    int
}

func (s *systemConfigRepoStub) Get(context.Context) (*models.SystemConfig, error) {
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.stored == nil {
		return nil, sql.ErrNoRows
	}
	cp := *s.stored
	return &cp, nil
}

func (s *systemConfigRepoStub) Insert(_ context.Context, cfg *models.SystemConfig) error {
	s.inserts++
	if s.stored == nil {
		cp := *cfg
		s.stored = &cp
	}
	return nil
}

func (s *systemConfigRepoStub) Upsert(_ context.Context, cfg *models.SystemConfig) error {
	s.upserts++
	cp := *cfg
	s.stored = &cp
	return nil
}

type memoryCacheRepo struct {
	items map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(_ context.Context, key string) error {
	delete(m.items, key)
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(context.Context, string) error {
	m.items = map[string][]byte{}
	return nil
}

func TestConfigurationServiceSeedsDefaultsOnFirstRead(t *testing.T) {
	repo := &systemConfigRepoStub{}
	svc := NewConfigurationService(repo, nil, nil, nil)

	cfg := svc.Get(context.Background())

	assert.Equal(t, models.DefaultSystemConfig(), cfg)
	assert.Equal(t, 1, repo.inserts)
	require.NotNil(t, repo.stored)
	assert.Equal(t, 7, repo.stored.ExpirationDays)
}

func TestConfigurationServiceFallsBackOnReadFailure(t *testing.T) {
	repo := &systemConfigRepoStub{getErr: errBoom}
	svc := NewConfigurationService(repo, nil, nil, nil)

	cfg := svc.Get(context.Background())

	assert.Equal(t, models.DefaultSystemConfig(), cfg)
	assert.Zero(t, repo.inserts)
}

func TestConfigurationServiceFillsBlankColumns(t *testing.T) {
	repo := &systemConfigRepoStub{stored: &models.SystemConfig{SendDay: "Friday", RiskDays: 10}}
	svc := NewConfigurationService(repo, nil, nil, nil)

	cfg := svc.Get(context.Background())

	assert.Equal(t, "friday", cfg.SendDay)
	assert.Equal(t, 10, cfg.RiskDays)
	assert.Equal(t, 21, cfg.InactiveDays)
	assert.Equal(t, "09:00", cfg.SendTime)
}

func TestConfigurationServiceCachesReads(t *testing.T) {
	stored := models.DefaultSystemConfig()
	stored.SendDay = "wednesday"
	repo := &systemConfigRepoStub{stored: &stored}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewConfigurationService(repo, cache, nil, nil)

	first := svc.Get(context.Background())
	second := svc.Get(context.Background())

	assert.Equal(t, "wednesday", first.SendDay)
	assert.Equal(t, first.SendDay, second.SendDay)
	assert.Equal(t, 1, repo.gets)
}

func TestConfigurationServiceUpdate(t *testing.T) {
	repo := &systemConfigRepoStub{stored: ptrConfig(models.DefaultSystemConfig())}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewConfigurationService(repo, cache, nil, nil)
	_ = svc.Get(context.Background())

	day := "thursday"
	clock := "18:30"
	allow := false
	risk := 10
	updated, err := svc.Update(context.Background(), dto.UpdateSystemConfigRequest{
		SendDay:           &day,
		SendTime:          &clock,
		RiskDays:          &risk,
		AllowResubmission: &allow,
	})
	require.NoError(t, err)

	assert.Equal(t, "thursday", updated.SendDay)
	assert.Equal(t, "18:30", updated.SendTime)
	assert.Equal(t, 10, updated.RiskDays)
	assert.False(t, updated.AllowResubmission)
	assert.Equal(t, 21, updated.InactiveDays)
	assert.Equal(t, 1, repo.upserts)

	assert.Equal(t, "thursday", svc.Get(context.Background()).SendDay)
}

func TestConfigurationServiceUpdateValidation(t *testing.T) {
	repo := &systemConfigRepoStub{stored: ptrConfig(models.DefaultSystemConfig())}
	svc := NewConfigurationService(repo, nil, nil, nil)

	badDay := "someday"
	_, err := svc.Update(context.Background(), dto.UpdateSystemConfigRequest{SendDay: &badDay})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	badClock := "25:99"
	_, err = svc.Update(context.Background(), dto.UpdateSystemConfigRequest{SendTime: &badClock})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	risk := 30
	_, err = svc.Update(context.Background(), dto.UpdateSystemConfigRequest{RiskDays: &risk})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Zero(t, repo.upserts)
}

func TestConfigurationServiceUpdateNormalizesBeforeValidation(t *testing.T) {
	repo := &systemConfigRepoStub{stored: ptrConfig(models.DefaultSystemConfig())}
	svc := NewConfigurationService(repo, nil, nil, nil)

	day := " Friday "
	clock := " 07:15 "
	updated, err := svc.Update(context.Background(), dto.UpdateSystemConfigRequest{SendDay: &day, SendTime: &clock})
	require.NoError(t, err)
	assert.Equal(t, "friday", updated.SendDay)
	assert.Equal(t, "07:15", updated.SendTime)
	assert.Equal(t, "friday", repo.stored.SendDay)
}

func ptrConfig(cfg models.SystemConfig) *models.SystemConfig {
	return &cfg
}
