package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/internal/models"
	"github.com/noah-isme/alumnos-crm-api/internal/repository"
	appErrors "github.com/noah-isme/alumnos-crm-api/pkg/errors"
	"github.com/noah-isme/alumnos-crm-api/pkg/events"
	"github.com/noah-isme/alumnos-crm-api/pkg/mail"
)

const tokenAttempts = 3

// Reasons a token fails validation.
const (
	TokenNotFound         = "token not found"
	TokenExpired          = "link expired"
	TokenAlreadySubmitted = "report already submitted"
)

type magicLinkStudentReader interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

type magicLinkRepository interface {
	Create(ctx context.Context, link *models.MagicLink) error
	FindByToken(ctx context.Context, token string) (*models.MagicLinkWithStudent, error)
	MarkCompleted(ctx context.Context, token string, at time.Time) error
}

type configProvider interface {
	Get(ctx context.Context) models.SystemConfig
}

// MagicLinkServiceConfig tunes link generation and delivery.
type MagicLinkServiceConfig struct {
	FrontendBaseURL string
	SendTimeout     time.Duration
	Now             func() time.Time
}

// MagicLinkService issues report links and validates tokens presented by the form.
type MagicLinkService struct {
	students magicLinkStudentReader
	links    magicLinkRepository
	config   configProvider
	sender   mail.Sender
	tokens   TokenGenerator
	metrics  *MetricsService
	events   events.Publisher
	logger   *zap.Logger

	baseURL     string
	sendTimeout time.Duration
	now         func() time.Time
}

// NewMagicLinkService constructs a MagicLinkService.
func NewMagicLinkService(
	students magicLinkStudentReader,
	links magicLinkRepository,
	config configProvider,
	sender mail.Sender,
	tokens TokenGenerator,
	metrics *MetricsService,
	publisher events.Publisher,
	logger *zap.Logger,
	cfg MagicLinkServiceConfig,
) *MagicLinkService {
	if tokens == nil {
		tokens = UUIDTokenGenerator{}
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &MagicLinkService{
		students:    students,
		links:       links,
		config:      config,
		sender:      sender,
		tokens:      tokens,
		metrics:     metrics,
		events:      publisher,
		logger:      logger,
		baseURL:     strings.TrimRight(cfg.FrontendBaseURL, "/"),
		sendTimeout: cfg.SendTimeout,
		now:         cfg.Now,
	}
}

// BuildReportURL returns the form address for token.
func (s *MagicLinkService) BuildReportURL(token string) string {
	return s.baseURL + "/report?token=" + url.QueryEscape(token)
}

// IssueAndSend persists a new link for the student and emails it. The link
// is stored before delivery is attempted; a delivery failure is reported in
// the result and never removes the link.
func (s *MagicLinkService) IssueAndSend(ctx context.Context, studentID int64) (*dto.SendLinkResult, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	cfg := s.config.Get(ctx)
	now := s.now().UTC()
	link, err := s.createLink(ctx, student.ID, now, cfg.ExpirationDays)
	if err != nil {
		return nil, err
	}

	reportURL := s.BuildReportURL(link.Token)
	result := &dto.SendLinkResult{
		StudentID: student.ID,
		Link:      reportURL,
		Token:     link.Token,
		ExpiresAt: link.ExpiresAt,
	}

	delivery := s.deliver(ctx, student, reportURL, link.ExpiresAt)
	result.Success = delivery.Success
	if delivery.Success {
		result.Message = "magic link sent"
	} else {
		result.Message = "magic link created but email delivery failed"
		result.Error = delivery.Detail
		s.logger.Sugar().Warnw("magic link delivery failed",
			"student_id", student.ID,
			"provider", s.sender.Name(),
			"detail", delivery.Detail,
		)
	}

	s.metrics.RecordLinkIssued(delivery.Success)
	s.events.Publish(ctx, events.LinkIssued, map[string]interface{}{
		"student_id": student.ID,
		"link_id":    link.ID,
		"expires_at": link.ExpiresAt,
		"delivered":  delivery.Success,
	})
	return result, nil
}

func (s *MagicLinkService) createLink(ctx context.Context, studentID int64, now time.Time, expirationDays int) (*models.MagicLink, error) {
	var lastErr error
	for attempt := 0; attempt < tokenAttempts; attempt++ {
		token, err := s.tokens.Generate()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate token")
		}
		link := &models.MagicLink{
			StudentID:     studentID,
			Token:         token,
			Status:        models.MagicLinkStatusPending,
			WeekStartDate: models.WeekStart(now),
			ExpiresAt:     now.Add(time.Duration(expirationDays) * 24 * time.Hour),
			CreatedAt:     now,
		}
		err = s.links.Create(ctx, link)
		if err == nil {
			return link, nil
		}
		lastErr = err
		if !repository.IsUniqueViolation(err) {
			break
		}
	}
	return nil, appErrors.Wrap(lastErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create magic link")
}

func (s *MagicLinkService) deliver(ctx context.Context, student *models.Student, reportURL string, expiresAt time.Time) mail.Result {
	if s.sender == nil {
		return mail.Result{Detail: "no email sender configured"}
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	res, err := s.sender.Send(sendCtx, mail.Message{
		To:          student.Email,
		StudentName: student.FullName,
		ReportURL:   reportURL,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return mail.Result{Detail: fmt.Sprintf("%s: %v", s.sender.Name(), err)}
	}
	if !res.Success && res.Detail == "" {
		res.Detail = "delivery rejected"
	}
	return res
}

// ValidateToken checks whether token may open the report form. Unknown,
// expired and (when resubmission is off) completed links are reported as
// invalid results, not errors.
func (s *MagicLinkService) ValidateToken(ctx context.Context, token string) (*dto.ValidateTokenResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "token is required")
	}

	link, err := s.links.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &dto.ValidateTokenResult{Valid: false, Message: TokenNotFound}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up token")
	}

	if link.IsExpired(s.now()) {
		return &dto.ValidateTokenResult{Valid: false, Message: TokenExpired}, nil
	}
	if link.Status == models.MagicLinkStatusCompleted && !s.config.Get(ctx).AllowResubmission {
		return &dto.ValidateTokenResult{Valid: false, Message: TokenAlreadySubmitted}, nil
	}

	return &dto.ValidateTokenResult{
		Valid: true,
		Link:  &link.MagicLink,
		Student: &dto.ValidatedStudentSummary{
			ID:       link.StudentID,
			FullName: link.StudentName,
			Email:    link.StudentEmail,
		},
	}, nil
}

// MarkCompleted flags the link behind token as used.
func (s *MagicLinkService) MarkCompleted(ctx context.Context, token string, at time.Time) error {
	if err := s.links.MarkCompleted(ctx, token, at); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete magic link")
	}
	return nil
}
