package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/alumnos-crm-api/internal/models"
)

const systemConfigColumns = `send_day, send_time, frequency, expiration_days, reminder_enabled, reminder_days,
    inactive_days, risk_days, allow_resubmission, updated_at`

// SystemConfigRepository persists the singleton business configuration row.
type SystemConfigRepository struct {
	db *sqlx.DB
}

// NewSystemConfigRepository constructs the repository.
func NewSystemConfigRepository(db *sqlx.DB) *SystemConfigRepository {
	return &SystemConfigRepository{db: db}
}

// Get loads the configuration row. It returns sql.ErrNoRows before the first write.
func (r *SystemConfigRepository) Get(ctx context.Context) (*models.SystemConfig, error) {
	var cfg models.SystemConfig
	if err := r.db.GetContext(ctx, &cfg, "SELECT "+systemConfigColumns+" FROM system_config WHERE id = 1"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Insert creates the row if it is missing. A concurrent insert wins silently.
func (r *SystemConfigRepository) Insert(ctx context.Context, cfg *models.SystemConfig) error {
	cfg.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO system_config (id, send_day, send_time, frequency, expiration_days, reminder_enabled, reminder_days,
    inactive_days, risk_days, allow_resubmission, updated_at)
VALUES (1, :send_day, :send_time, :frequency, :expiration_days, :reminder_enabled, :reminder_days,
    :inactive_days, :risk_days, :allow_resubmission, :updated_at)
ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("insert system config: %w", err)
	}
	return nil
}

// Upsert writes every field of cfg.
func (r *SystemConfigRepository) Upsert(ctx context.Context, cfg *models.SystemConfig) error {
	cfg.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO system_config (id, send_day, send_time, frequency, expiration_days, reminder_enabled, reminder_days,
    inactive_days, risk_days, allow_resubmission, updated_at)
VALUES (1, :send_day, :send_time, :frequency, :expiration_days, :reminder_enabled, :reminder_days,
    :inactive_days, :risk_days, :allow_resubmission, :updated_at)
ON CONFLICT (id) DO UPDATE SET send_day = EXCLUDED.send_day, send_time = EXCLUDED.send_time,
    frequency = EXCLUDED.frequency, expiration_days = EXCLUDED.expiration_days,
    reminder_enabled = EXCLUDED.reminder_enabled, reminder_days = EXCLUDED.reminder_days,
    inactive_days = EXCLUDED.inactive_days, risk_days = EXCLUDED.risk_days,
    allow_resubmission = EXCLUDED.allow_resubmission, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("upsert system config: %w", err)
	}
	return nil
}
