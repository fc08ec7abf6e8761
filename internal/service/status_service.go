package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/internal/models"
	appErrors "github.com/noah-isme/alumnos-crm-api/pkg/errors"
	"github.com/noah-isme/alumnos-crm-api/pkg/events"
)

const (
	// gapWindow is how many recent reports are inspected for missed weeks.
	gapWindow = 10
	// maxReportGap is the largest spacing between two reports that is not a gap.
	maxReportGap = 14 * 24 * time.Hour
)

// ComputeStatus derives a student's status from their report history. It is
// pure: the same inputs always produce the same status.
func ComputeStatus(student models.Student, reports []models.WeeklyReport, cfg models.SystemConfig, now time.Time) models.StudentStatus {
	cfg = cfg.WithDefaults()
	recent := latestReports(reports, gapWindow)

	reference := student.CreatedAt
	if len(recent) > 0 {
		reference = recent[0].CreatedAt
	}
	days := int(now.Sub(reference) / (24 * time.Hour))
	if days < 0 {
		days = 0
	}

	switch {
	case days >= cfg.InactiveDays:
		return models.StudentStatusInactive
	case days >= cfg.RiskDays:
		return models.StudentStatusAtRisk
	case hasGaps(recent):
		return models.StudentStatusActiveWithFailure
	default:
		return models.StudentStatusActive
	}
}

// HasDeliveryGaps reports whether two consecutive reports among the most
// recent ones are more than fourteen days apart.
func HasDeliveryGaps(reports []models.WeeklyReport) bool {
	return hasGaps(latestReports(reports, gapWindow))
}

func hasGaps(newestFirst []models.WeeklyReport) bool {
	for i := 1; i < len(newestFirst); i++ {
		if newestFirst[i-1].CreatedAt.Sub(newestFirst[i].CreatedAt) > maxReportGap {
			return true
		}
	}
	return false
}

// latestReports returns up to n reports, newest first, without touching the input.
func latestReports(reports []models.WeeklyReport, n int) []models.WeeklyReport {
	sorted := make([]models.WeeklyReport, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

type statusStudentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	ListByStatus(ctx context.Context, statuses []models.StudentStatus) ([]models.Student, error)
	UpdateStatus(ctx context.Context, id int64, status models.StudentStatus) error
}

type statusReportReader interface {
	ListByStudent(ctx context.Context, studentID int64, limit int) ([]models.WeeklyReport, error)
}

// StatusService applies ComputeStatus to stored students.
type StatusService struct {
	students statusStudentRepository
	reports  statusReportReader
	config   configProvider
	metrics  *MetricsService
	events   events.Publisher
	logger   *zap.Logger
}

// NewStatusService constructs a StatusService.
func NewStatusService(students statusStudentRepository, reports statusReportReader, config configProvider, metrics *MetricsService, publisher events.Publisher, logger *zap.Logger) *StatusService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{
		students: students,
		reports:  reports,
		config:   config,
		metrics:  metrics,
		events:   publisher,
		logger:   logger,
	}
}

// RunDailyScan recomputes every active or at-risk student. Inactive students
// are left alone: an import or an operator put them there, and only a new
// report (through Refresh) brings them back. Only a failure to list students
// aborts the run.
func (s *StatusService) RunDailyScan(ctx context.Context, now time.Time) (*dto.ScanResult, error) {
	students, err := s.students.ListByStatus(ctx, models.DispatchableStatuses)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students for status scan")
	}
	result := s.ScanStudents(ctx, students, now)
	return &result, nil
}

// ScanStudents recomputes the given students one at a time and writes only
// changed statuses. A failing student is logged and counted; the rest still run.
func (s *StatusService) ScanStudents(ctx context.Context, students []models.Student, now time.Time) dto.ScanResult {
	cfg := s.config.Get(ctx)
	result := dto.ScanResult{StartedAt: time.Now().UTC()}

	for _, student := range students {
		if ctx.Err() != nil {
			s.logger.Sugar().Warnw("status scan interrupted", "remaining", len(students)-result.Scanned, "error", ctx.Err())
			break
		}
		result.Scanned++
		transition, err := s.apply(ctx, student, cfg, now)
		if err != nil {
			result.Failed++
			s.logger.Sugar().Errorw("status scan failed for student", "student_id", student.ID, "error", err)
			continue
		}
		if transition != nil {
			result.Updated++
			result.Transitions = append(result.Transitions, *transition)
		}
	}

	result.FinishedAt = time.Now().UTC()
	s.logger.Sugar().Infow("status scan finished",
		"scanned", result.Scanned,
		"updated", result.Updated,
		"failed", result.Failed,
	)
	return result
}

// Refresh recomputes a single student, typically right after a report arrives.
func (s *StatusService) Refresh(ctx context.Context, studentID int64, now time.Time) (models.StudentStatus, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	transition, err := s.apply(ctx, *student, s.config.Get(ctx), now)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refresh student status")
	}
	if transition != nil {
		return transition.To, nil
	}
	return student.Status, nil
}

func (s *StatusService) apply(ctx context.Context, student models.Student, cfg models.SystemConfig, now time.Time) (*dto.StatusTransition, error) {
	reports, err := s.reports.ListByStudent(ctx, student.ID, gapWindow)
	if err != nil {
		return nil, err
	}
	next := ComputeStatus(student, reports, cfg, now)
	if next == student.Status {
		return nil, nil
	}
	if err := s.students.UpdateStatus(ctx, student.ID, next); err != nil {
		return nil, err
	}

	s.metrics.RecordStatusTransition(student.Status, next)
	s.events.Publish(ctx, events.StudentStatusChange, map[string]interface{}{
		"student_id": student.ID,
		"from":       student.Status,
		"to":         next,
	})
	return &dto.StatusTransition{StudentID: student.ID, From: student.Status, To: next}, nil
}
