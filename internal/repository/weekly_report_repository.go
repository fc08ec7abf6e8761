package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/alumnos-crm-api/internal/models"
)

const weeklyReportColumns = `r.id, r.student_id, r.magic_link_id, r.active_processes, r.hr_interviews, r.technical_interviews,
        r.challenges, r.rejections, r.ghosting, r.offers, r.summary, r.blockers, r.created_at`

// WeeklyReportRepository persists submitted weekly reports.
type WeeklyReportRepository struct {
	db *sqlx.DB
}

// NewWeeklyReportRepository constructs a WeeklyReportRepository.
func NewWeeklyReportRepository(db *sqlx.DB) *WeeklyReportRepository {
	return &WeeklyReportRepository{db: db}
}

// Create inserts a report and fills its ID.
func (r *WeeklyReportRepository) Create(ctx context.Context, report *models.WeeklyReport) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO weekly_reports (student_id, magic_link_id, active_processes, hr_interviews, technical_interviews,
        challenges, rejections, ghosting, offers, summary, blockers, created_at)
        VALUES (:student_id, :magic_link_id, :active_processes, :hr_interviews, :technical_interviews,
        :challenges, :rejections, :ghosting, :offers, :summary, :blockers, :created_at)
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, report)
	if err != nil {
		return fmt.Errorf("create weekly report: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&report.ID); err != nil {
			return fmt.Errorf("scan weekly report id: %w", err)
		}
	}
	return rows.Err()
}

// ListByStudent returns up to limit reports for a student, most recent first.
func (r *WeeklyReportRepository) ListByStudent(ctx context.Context, studentID int64, limit int) ([]models.WeeklyReport, error) {
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT " + weeklyReportColumns + " FROM weekly_reports r WHERE r.student_id = $1 ORDER BY r.created_at DESC, r.id DESC LIMIT $2"
	var reports []models.WeeklyReport
	if err := r.db.SelectContext(ctx, &reports, query, studentID, limit); err != nil {
		return nil, fmt.Errorf("list weekly reports by student: %w", err)
	}
	return reports, nil
}

// ListAll returns the most recent reports joined with their authors.
func (r *WeeklyReportRepository) ListAll(ctx context.Context, limit int) ([]models.WeeklyReportWithStudent, error) {
	if limit <= 0 {
		limit = 500
	}
	query := "SELECT " + weeklyReportColumns + `, s.full_name AS student_name, s.email AS student_email
        FROM weekly_reports r JOIN students s ON s.id = r.student_id ORDER BY r.created_at DESC, r.id DESC LIMIT $1`
	var reports []models.WeeklyReportWithStudent
	if err := r.db.SelectContext(ctx, &reports, query, limit); err != nil {
		return nil, fmt.Errorf("list weekly reports: %w", err)
	}
	return reports, nil
}
