package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumnos-crm-api/internal/models"
	appErrors "github.com/noah-isme/alumnos-crm-api/pkg/errors"
	"github.com/noah-isme/alumnos-crm-api/pkg/events"
)

type magicLinkFixture struct {
	students *studentStore
	links    *linkStore
	sender   *senderStub
	events   *publisherStub
	metrics  *MetricsService
	service  *MagicLinkService
	now      time.Time
}

func newMagicLinkFixture(t *testing.T, cfg models.SystemConfig, tokens TokenGenerator) *magicLinkFixture {
	t.Helper()
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	students := newStudentStore(
		models.Student{ID: 1, Email: "ana@example.com", FullName: "Ana Torres", Status: models.StudentStatusActive},
		models.Student{ID: 2, Email: "luis@example.com", FullName: "Luis Pérez", Status: models.StudentStatusAtRisk},
	)
	f := &magicLinkFixture{
		students: students,
		links:    newLinkStore(students),
		sender:   &senderStub{fail: map[string]bool{}},
		events:   &publisherStub{},
		metrics:  NewMetricsService(),
		now:      now,
	}
	f.service = NewMagicLinkService(f.students, f.links, staticConfig{cfg: cfg}, f.sender, tokens, f.metrics, f.events, nil, MagicLinkServiceConfig{
		FrontendBaseURL: "https://alumnos.example.com/",
		SendTimeout:     time.Second,
		Now:             fixedClock(now),
	})
	return f
}

func TestIssueAndSendPersistsLinkThenSends(t *testing.T) {
	f := newMagicLinkFixture(t, models.DefaultSystemConfig(), &sequenceTokens{tokens: []string{"tok-1"}})

	res, err := f.service.IssueAndSend(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "tok-1", res.Token)
	assert.Equal(t, "https://alumnos.example.com/report?token=tok-1", res.Link)
	assert.Equal(t, f.now.Add(7*24*time.Hour), res.ExpiresAt)

	require.Len(t, f.links.items, 1)
	link := f.links.items[0]
	assert.Equal(t, models.MagicLinkStatusPending, link.Status)
	assert.Equal(t, int64(1), link.StudentID)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), link.WeekStartDate)

	require.Len(t, f.sender.messages, 1)
	msg := f.sender.messages[0]
	assert.Equal(t, "ana@example.com", msg.To)
	assert.Equal(t, "Ana Torres", msg.StudentName)
	assert.Equal(t, res.Link, msg.ReportURL)
	assert.True(t, f.sender.deadline, "send must be bounded by a timeout")

	assert.Equal(t, []string{events.LinkIssued}, f.events.types())
	assert.Contains(t, scrape(t, f.metrics), `magic_links_issued_total{delivery="sent"} 1`)
}

func TestIssueAndSendLinkSurvivesDeliveryFailure(t *testing.T) {
	f := newMagicLinkFixture(t, models.DefaultSystemConfig(), &sequenceTokens{tokens: []string{"tok-fail"}})
	f.sender.fail["ana@example.com"] = true

	res, err := f.service.IssueAndSend(context.Background(), 1)
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, "rejected by provider", res.Error)
	assert.Equal(t, "https://alumnos.example.com/report?token=tok-fail", res.Link)

	require.Len(t, f.links.items, 1)
	stored, err := f.links.FindByToken(context.Background(), "tok-fail")
	require.NoError(t, err)
	assert.Equal(t, res.ExpiresAt, stored.ExpiresAt)
	assert.Contains(t, scrape(t, f.metrics), `magic_links_issued_total{delivery="failed"} 1`)
}

func TestIssueAndSendSenderErrorBecomesResult(t *testing.T) {
	f := newMagicLinkFixture(t, models.DefaultSystemConfig(), &sequenceTokens{tokens: []string{"tok-err"}})
	f.sender.err = fmt.Errorf("no credentials")

	res, err := f.service.IssueAndSend(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no credentials")
	assert.Len(t, f.links.items, 1)
}

func TestIssueAndSendUnknownStudent(t *testing.T) {
	f := newMagicLinkFixture(t, models.DefaultSystemConfig(), nil)

	_, err := f.service.IssueAndSend(context.Background(), 99)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Empty(t, f.links.items)
	assert.Empty(t, f.sender.messages)
}

func TestIssueAndSendLinkInsertFailureSkipsEmail(t *testing.T) {
	f := newMagicLinkFixture(t, models.DefaultSystemConfig(), nil)
	f.links.createErr = errBoom

	_, err := f.service.IssueAndSend(context.Background(), 1)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Empty(t, f.sender.messages)
}

func TestIssueAndSendRetriesTokenCollision(t *testing.T) {
	f := newMagicLinkFixture(t, models.DefaultSystemConfig(), &sequenceTokens{tokens: []string{"dup", "fresh"}})
	f.links.duplicates = 1

	res, err := f.service.IssueAndSend(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "fresh", res.Token)
}

func TestIssueAndSendGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newMagicLinkFixture(t, models.DefaultSystemConfig(), &sequenceTokens{tokens: []string{"a", "b", "c", "d"}})
	f.links.duplicates = tokenAttempts

	_, err := f.service.IssueAndSend(context.Background(), 1)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Empty(t, f.sender.messages)
}

func TestIssueAndSendTokensAreDistinct(t *testing.T) {
	f := newMagicLinkFixture(t, models.DefaultSystemConfig(), UUIDTokenGenerator{})

	const n = 500
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		res, err := f.service.IssueAndSend(context.Background(), 1)
		require.NoError(t, err)
		_, dup := seen[res.Token]
		require.False(t, dup, "duplicate token %s", res.Token)
		seen[res.Token] = struct{}{}
	}
	assert.Len(t, f.links.items, n)
}

func TestUUIDTokenGeneratorDistinct(t *testing.T) {
	gen := UUIDTokenGenerator{}
	seen := make(map[string]struct{})
	for i := 0; i < 10000; i++ {
		token, err := gen.Generate()
		require.NoError(t, err)
		assert.Len(t, token, 36)
		_, dup := seen[token]
		require.False(t, dup)
		seen[token] = struct{}{}
	}
}

func TestValidateTokenEmptyIsInvalidArgument(t *testing.T) {
	f := newMagicLinkFixture(t, models.DefaultSystemConfig(), nil)

	for _, token := range []string{"", "   "} {
		_, err := f.service.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, appErrors.ErrValidation)
	}
	assert.Zero(t, f.links.lookups)
}

func TestValidateTokenNotFound(t *testing.T) {
	f := newMagicLinkFixture(t, models.DefaultSystemConfig(), nil)

	res, err := f.service.ValidateToken(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, TokenNotFound, res.Message)
}

func TestValidateTokenExpiryBoundary(t *testing.T) {
	cfg := models.DefaultSystemConfig()
	for _, status := range []models.MagicLinkStatus{models.MagicLinkStatusPending, models.MagicLinkStatusCompleted} {
		t.Run(string(status), func(t *testing.T) {
			f := newMagicLinkFixture(t, cfg, nil)
			expires := f.now.Add(time.Hour)
			f.links.items = append(f.links.items, models.MagicLink{ID: 1, StudentID: 1, Token: "tok", Status: status, ExpiresAt: expires})

			f.service.now = fixedClock(expires)
			res, err := f.service.ValidateToken(context.Background(), "tok")
			require.NoError(t, err)
			assert.True(t, res.Valid, "valid exactly at expiry")
			require.NotNil(t, res.Student)
			assert.Equal(t, "Ana Torres", res.Student.FullName)

			f.service.now = fixedClock(expires.Add(time.Nanosecond))
			res, err = f.service.ValidateToken(context.Background(), "tok")
			require.NoError(t, err)
			assert.False(t, res.Valid)
			assert.Equal(t, TokenExpired, res.Message)
		})
	}
}

func TestValidateTokenResubmissionPolicy(t *testing.T) {
	cfg := models.DefaultSystemConfig()
	cfg.AllowResubmission = false
	f := newMagicLinkFixture(t, cfg, nil)
	f.links.items = append(f.links.items, models.MagicLink{ID: 1, StudentID: 1, Token: "done", Status: models.MagicLinkStatusCompleted, ExpiresAt: f.now.Add(time.Hour)})

	res, err := f.service.ValidateToken(context.Background(), "done")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, TokenAlreadySubmitted, res.Message)
}

func TestBuildReportURLEscapesToken(t *testing.T) {
	f := newMagicLinkFixture(t, models.DefaultSystemConfig(), nil)
	assert.Equal(t, "https://alumnos.example.com/report?token=a%2Bb%26c", f.service.BuildReportURL("a+b&c"))
}
