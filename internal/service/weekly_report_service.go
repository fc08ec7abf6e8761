package service

import (
	"context"
	"database/sql"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/internal/models"
	appErrors "github.com/noah-isme/alumnos-crm-api/pkg/errors"
	"github.com/noah-isme/alumnos-crm-api/pkg/events"
)

const (
	studentReportLimit = 100
	allReportsLimit    = 1000
)

type reportTokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*dto.ValidateTokenResult, error)
	MarkCompleted(ctx context.Context, token string, at time.Time) error
}

type weeklyReportRepository interface {
	Create(ctx context.Context, report *models.WeeklyReport) error
	ListByStudent(ctx context.Context, studentID int64, limit int) ([]models.WeeklyReport, error)
	ListAll(ctx context.Context, limit int) ([]models.WeeklyReportWithStudent, error)
}

type reportStudentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	TouchLastInteraction(ctx context.Context, id int64, at time.Time) error
}

type statusRefresher interface {
	Refresh(ctx context.Context, studentID int64, now time.Time) (models.StudentStatus, error)
}

// WeeklyReportService accepts reports submitted through magic links.
type WeeklyReportService struct {
	links     reportTokenValidator
	reports   weeklyReportRepository
	students  reportStudentRepository
	status    statusRefresher
	metrics   *MetricsService
	events    events.Publisher
	validator *validator.Validate
	policy    *bluemonday.Policy
	logger    *zap.Logger
	now       func() time.Time
}

// NewWeeklyReportService constructs a WeeklyReportService.
func NewWeeklyReportService(
	links reportTokenValidator,
	reports weeklyReportRepository,
	students reportStudentRepository,
	status statusRefresher,
	metrics *MetricsService,
	publisher events.Publisher,
	validate *validator.Validate,
	logger *zap.Logger,
) *WeeklyReportService {
	if validate == nil {
		validate = newValidator()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeeklyReportService{
		links:     links,
		reports:   reports,
		students:  students,
		status:    status,
		metrics:   metrics,
		events:    publisher,
		validator: validate,
		policy:    bluemonday.StrictPolicy(),
		logger:    logger,
		now:       time.Now,
	}
}

// Submit records a report for the student that owns req.Token. Once the
// report is stored, follow-up bookkeeping failures are logged only.
func (s *WeeklyReportService) Submit(ctx context.Context, req dto.SubmitWeeklyReportRequest) (*models.WeeklyReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}

	check, err := s.links.ValidateToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if !check.Valid {
		if check.Message == TokenNotFound {
			return nil, appErrors.Clone(appErrors.ErrNotFound, TokenNotFound)
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, check.Message)
	}

	now := s.now().UTC()
	linkID := check.Link.ID
	report := &models.WeeklyReport{
		StudentID:           check.Link.StudentID,
		MagicLinkID:         &linkID,
		ActiveProcesses:     req.ActiveProcesses,
		HRInterviews:        req.HRInterviews,
		TechnicalInterviews: req.TechnicalInterviews,
		Challenges:          req.Challenges,
		Rejections:          req.Rejections,
		Ghosting:            req.Ghosting,
		Offers:              req.Offers,
		Summary:             s.sanitize(req.Summary),
		Blockers:            s.sanitize(req.Blockers),
		CreatedAt:           now,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store weekly report")
	}

	log := s.logger.Sugar().With("student_id", report.StudentID, "report_id", report.ID)
	if err := s.links.MarkCompleted(ctx, check.Link.Token, now); err != nil {
		log.Warnw("failed to complete magic link", "error", err)
	}
	if err := s.students.TouchLastInteraction(ctx, report.StudentID, now); err != nil {
		log.Warnw("failed to record last interaction", "error", err)
	}
	if s.status != nil {
		if _, err := s.status.Refresh(ctx, report.StudentID, now); err != nil {
			log.Warnw("failed to refresh student status", "error", err)
		}
	}

	s.metrics.RecordReportSubmitted()
	s.events.Publish(ctx, events.ReportSubmitted, map[string]interface{}{
		"student_id": report.StudentID,
		"report_id":  report.ID,
		"link_id":    linkID,
	})
	log.Infow("weekly report submitted")
	return report, nil
}

// sanitize strips markup and stores plain text. The policy escapes entities
// in what it keeps, so they are decoded back.
func (s *WeeklyReportService) sanitize(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(value)))
}

// ListByStudent returns a student's reports, most recent first.
func (s *WeeklyReportService) ListByStudent(ctx context.Context, studentID int64) ([]models.WeeklyReport, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	reports, err := s.reports.ListByStudent(ctx, studentID, studentReportLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list weekly reports")
	}
	if reports == nil {
		reports = []models.WeeklyReport{}
	}
	return reports, nil
}

// ListAll returns recent reports across students with their author.
func (s *WeeklyReportService) ListAll(ctx context.Context) ([]models.WeeklyReportWithStudent, error) {
	reports, err := s.reports.ListAll(ctx, allReportsLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list weekly reports")
	}
	if reports == nil {
		reports = []models.WeeklyReportWithStudent{}
	}
	return reports, nil
}
