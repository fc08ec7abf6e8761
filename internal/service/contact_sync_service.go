package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/internal/models"
	"github.com/noah-isme/alumnos-crm-api/pkg/contacts"
	appErrors "github.com/noah-isme/alumnos-crm-api/pkg/errors"
)

type contactSource interface {
	Configured() bool
	Each(ctx context.Context, fn func(contacts.Page) error) error
}

type studentUpserter interface {
	UpsertByEmail(ctx context.Context, student *models.Student) (bool, error)
}

// ContactSyncConfig selects which marketing contacts are students.
type ContactSyncConfig struct {
	StudentTag        string
	InactiveTagMarker string
}

// ContactSyncService imports the student roster from the marketing platform.
type ContactSyncService struct {
	source   contactSource
	students studentUpserter
	tag      string
	marker   string
	logger   *zap.Logger
}

// NewContactSyncService constructs a ContactSyncService.
func NewContactSyncService(source contactSource, students studentUpserter, logger *zap.Logger, cfg ContactSyncConfig) *ContactSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactSyncService{
		source:   source,
		students: students,
		tag:      strings.TrimSpace(cfg.StudentTag),
		marker:   strings.TrimSpace(cfg.InactiveTagMarker),
		logger:   logger,
	}
}

// Sync upserts every tagged contact as a student. A page failure stops the
// run; the partial totals are returned together with the error.
func (s *ContactSyncService) Sync(ctx context.Context) (*dto.SyncResult, error) {
	if s.source == nil || !s.source.Configured() {
		return nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "contact import is not configured")
	}

	result := &dto.SyncResult{StartedAt: time.Now().UTC()}
	err := s.source.Each(ctx, func(page contacts.Page) error {
		for _, contact := range page.Contacts {
			s.importContact(ctx, contact, result)
		}
		return nil
	})
	result.FinishedAt = time.Now().UTC()

	if err != nil {
		result.Error = err.Error()
		s.logger.Sugar().Errorw("contact sync stopped", "processed", result.Processed, "saved", result.Saved, "error", err)
		return result, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "contact sync stopped early")
	}

	s.logger.Sugar().Infow("contact sync finished",
		"processed", result.Processed,
		"skipped", result.Skipped,
		"saved", result.Saved,
		"created", result.Created,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *ContactSyncService) importContact(ctx context.Context, contact contacts.Contact, result *dto.SyncResult) {
	result.Processed++
	email := strings.ToLower(strings.TrimSpace(contact.Email))
	if !contact.HasTag(s.tag) || email == "" {
		result.Skipped++
		return
	}

	status := models.StudentStatusActive
	if contact.HasTagContaining(s.marker) {
		status = models.StudentStatusInactive
	}
	var externalID *string
	if contact.ID != "" {
		id := contact.ID
		externalID = &id
	}
	name := contact.DisplayName()
	if name == "" {
		name = email
	}

	student := &models.Student{
		Email:             email,
		FullName:          name,
		Phone:             strings.TrimSpace(contact.Phone),
		Country:           strings.TrimSpace(contact.Country),
		City:              strings.TrimSpace(contact.City),
		ExternalContactID: externalID,
		Status:            status,
	}
	inserted, err := s.students.UpsertByEmail(ctx, student)
	if err != nil {
		result.Failed++
		s.logger.Sugar().Errorw("contact import failed", "contact_id", contact.ID, "error", err)
		return
	}
	result.Saved++
	if inserted {
		result.Created++
	}
}
