package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/internal/models"
	appErrors "github.com/noah-isme/alumnos-crm-api/pkg/errors"
)

type dispatchStudentLister interface {
	ListByStatus(ctx context.Context, statuses []models.StudentStatus) ([]models.Student, error)
}

type linkIssuer interface {
	IssueAndSend(ctx context.Context, studentID int64) (*dto.SendLinkResult, error)
}

// DispatchServiceConfig tunes the recurring dispatch.
type DispatchServiceConfig struct {
	// Delay is the pause between two sends.
	Delay time.Duration
	// Location is the timezone the send day is evaluated in.
	Location *time.Location
}

// DispatchService fans report links out to every eligible student.
type DispatchService struct {
	students dispatchStudentLister
	links    linkIssuer
	config   configProvider
	logger   *zap.Logger
	delay    time.Duration
	location *time.Location
}

// NewDispatchService constructs a DispatchService.
func NewDispatchService(students dispatchStudentLister, links linkIssuer, config configProvider, logger *zap.Logger, cfg DispatchServiceConfig) *DispatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &DispatchService{
		students: students,
		links:    links,
		config:   config,
		logger:   logger,
		delay:    cfg.Delay,
		location: cfg.Location,
	}
}

// DispatchDue reports whether a dispatch should happen on now's local day.
// When it should not, the reason is returned.
func DispatchDue(cfg models.SystemConfig, now time.Time) (bool, string) {
	cfg = cfg.WithDefaults()
	day, ok := models.ParseWeekday(cfg.SendDay)
	if !ok {
		return false, fmt.Sprintf("unknown send day %q", cfg.SendDay)
	}
	if now.Weekday() != day {
		return false, "not the configured send day"
	}
	switch cfg.Frequency {
	case models.FrequencyBiweekly:
		if weeksSinceAnchor(now)%2 != 0 {
			return false, "biweekly dispatch runs every other week"
		}
	case models.FrequencyMonthly:
		if now.Day() > 7 {
			return false, "monthly dispatch runs in the first week"
		}
	}
	return true, ""
}

// biweeklyAnchor is the Monday the every-other-week cycle counts from, so
// the cycle stays two weeks long across 53-week ISO years.
var biweeklyAnchor = time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)

// weeksSinceAnchor counts whole weeks between the anchor and now's local
// calendar date. Dates before the anchor count backwards.
func weeksSinceAnchor(now time.Time) int {
	y, m, d := now.Date()
	days := int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Sub(biweeklyAnchor).Hours() / 24)
	weeks := days / 7
	if days < 0 && days%7 != 0 {
		weeks--
	}
	if weeks < 0 {
		weeks = -weeks
	}
	return weeks
}

// RunWeeklyDispatch sends links when now falls on a configured dispatch day
// and returns a skipped result otherwise. It is meant to be called daily.
func (s *DispatchService) RunWeeklyDispatch(ctx context.Context, now time.Time) (*dto.DispatchResult, error) {
	cfg := s.config.Get(ctx)
	if due, reason := DispatchDue(cfg, now.In(s.location)); !due {
		s.logger.Sugar().Infow("dispatch skipped", "reason", reason, "send_day", cfg.SendDay, "frequency", cfg.Frequency)
		return &dto.DispatchResult{Skipped: true, Reason: reason, StartedAt: now.UTC(), FinishedAt: now.UTC()}, nil
	}
	return s.Dispatch(ctx)
}

// Dispatch sends a link to every active, active_with_failure and at_risk
// student, one at a time. Individual failures are counted, never returned.
func (s *DispatchService) Dispatch(ctx context.Context) (*dto.DispatchResult, error) {
	students, err := s.students.ListByStatus(ctx, models.DispatchableStatuses)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students for dispatch")
	}

	result := &dto.DispatchResult{Total: len(students), StartedAt: time.Now().UTC()}
	for i, student := range students {
		if i > 0 && !s.wait(ctx) {
			s.logger.Sugar().Warnw("dispatch interrupted", "remaining", len(students)-i, "error", ctx.Err())
			break
		}
		res, err := s.links.IssueAndSend(ctx, student.ID)
		switch {
		case err != nil:
			s.fail(result, student, err.Error())
		case !res.Success:
			s.fail(result, student, res.Error)
		default:
			result.SuccessCount++
		}
	}
	result.FinishedAt = time.Now().UTC()

	s.logger.Sugar().Infow("dispatch finished",
		"total", result.Total,
		"success", result.SuccessCount,
		"errors", result.ErrorCount,
	)
	return result, nil
}

func (s *DispatchService) fail(result *dto.DispatchResult, student models.Student, reason string) {
	result.ErrorCount++
	result.Failures = append(result.Failures, dto.DispatchFailure{StudentID: student.ID, Email: student.Email, Reason: reason})
	s.logger.Sugar().Errorw("dispatch failed for student", "student_id", student.ID, "reason", reason)
}

// wait pauses between sends and reports false when ctx ends first.
func (s *DispatchService) wait(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if s.delay <= 0 {
		return true
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
