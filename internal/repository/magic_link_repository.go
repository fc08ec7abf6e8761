package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/alumnos-crm-api/internal/models"
)

const magicLinkJoinSelect = `SELECT l.id, l.student_id, l.token, l.status, l.week_start_date, l.expires_at, l.completed_at, l.created_at,
        s.full_name AS student_name, s.email AS student_email, s.status AS student_status
        FROM magic_links l JOIN students s ON s.id = l.student_id`

// MagicLinkRepository persists magic links.
type MagicLinkRepository struct {
	db *sqlx.DB
}

// NewMagicLinkRepository constructs a MagicLinkRepository.
func NewMagicLinkRepository(db *sqlx.DB) *MagicLinkRepository {
	return &MagicLinkRepository{db: db}
}

// Create inserts a pending link and fills its ID and creation time. A
// duplicate token surfaces as a unique violation.
func (r *MagicLinkRepository) Create(ctx context.Context, link *models.MagicLink) error {
	if link.Status == "" {
		link.Status = models.MagicLinkStatusPending
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO magic_links (student_id, token, status, week_start_date, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.GetContext(ctx, &link.ID, query,
		link.StudentID, link.Token, link.Status, link.WeekStartDate, link.ExpiresAt.UTC(), link.CreatedAt); err != nil {
		return fmt.Errorf("create magic link: %w", err)
	}
	return nil
}

// FindByToken returns the link with its student. It returns sql.ErrNoRows
// for an unknown token.
func (r *MagicLinkRepository) FindByToken(ctx context.Context, token string) (*models.MagicLinkWithStudent, error) {
	var link models.MagicLinkWithStudent
	if err := r.db.GetContext(ctx, &link, magicLinkJoinSelect+" WHERE l.token = $1", token); err != nil {
		return nil, err
	}
	return &link, nil
}

// MarkCompleted flags the link as used. The first completion time is kept.
func (r *MagicLinkRepository) MarkCompleted(ctx context.Context, token string, at time.Time) error {
	const query = `UPDATE magic_links SET status = $2, completed_at = COALESCE(completed_at, $3) WHERE token = $1`
	if _, err := r.db.ExecContext(ctx, query, token, models.MagicLinkStatusCompleted, at.UTC()); err != nil {
		return fmt.Errorf("complete magic link: %w", err)
	}
	return nil
}

// ListByStudent returns a student's links, newest first.
func (r *MagicLinkRepository) ListByStudent(ctx context.Context, studentID int64, limit int) ([]models.MagicLink, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, student_id, token, status, week_start_date, expires_at, completed_at, created_at
        FROM magic_links WHERE student_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	var links []models.MagicLink
	if err := r.db.SelectContext(ctx, &links, query, studentID, limit); err != nil {
		return nil, fmt.Errorf("list magic links by student: %w", err)
	}
	return links, nil
}

// ListAll returns the most recent links across students.
func (r *MagicLinkRepository) ListAll(ctx context.Context, limit int) ([]models.MagicLinkWithStudent, error) {
	if limit <= 0 {
		limit = 500
	}
	var links []models.MagicLinkWithStudent
	if err := r.db.SelectContext(ctx, &links, magicLinkJoinSelect+" ORDER BY l.created_at DESC, l.id DESC LIMIT $1", limit); err != nil {
		return nil, fmt.Errorf("list magic links: %w", err)
	}
	return links, nil
}
