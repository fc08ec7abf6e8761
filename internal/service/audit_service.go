package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/internal/models"
	appErrors "github.com/noah-isme/alumnos-crm-api/pkg/errors"
	"github.com/noah-isme/alumnos-crm-api/pkg/export"
)

const auditLinkLimit = 1000

type auditLinkReader interface {
	ListAll(ctx context.Context, limit int) ([]models.MagicLinkWithStudent, error)
}

type auditReportReader interface {
	ListAll(ctx context.Context, limit int) ([]models.WeeklyReportWithStudent, error)
}

type auditStudentReader interface {
	ListAll(ctx context.Context) ([]models.Student, error)
}

// AuditExport is a rendered audit download.
type AuditExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// AuditService assembles the operator view of link delivery and reporting.
type AuditService struct {
	links    auditLinkReader
	reports  auditReportReader
	students auditStudentReader
	logger   *zap.Logger
}

// NewAuditService constructs an AuditService.
func NewAuditService(links auditLinkReader, reports auditReportReader, students auditStudentReader, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{links: links, reports: reports, students: students, logger: logger}
}

// FullAudit lists links, reports and students with summary counters. A
// link counts as failed while it has not been completed.
func (s *AuditService) FullAudit(ctx context.Context, now time.Time) (*dto.AuditReport, error) {
	links, err := s.links.ListAll(ctx, auditLinkLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list magic links")
	}
	reports, err := s.reports.ListAll(ctx, auditLinkLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list weekly reports")
	}
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	report := &dto.AuditReport{
		GeneratedAt: now.UTC(),
		Links:       make([]dto.AuditLink, 0, len(links)),
		Reports:     reports,
		Students:    students,
		FailedLinks: []dto.AuditLink{},
	}
	if report.Reports == nil {
		report.Reports = []models.WeeklyReportWithStudent{}
	}
	if report.Students == nil {
		report.Students = []models.Student{}
	}

	for _, link := range links {
		entry := dto.AuditLink{MagicLinkWithStudent: link, EffectiveStatus: link.EffectiveStatus(now)}
		report.Links = append(report.Links, entry)
		switch entry.EffectiveStatus {
		case models.MagicLinkStatusCompleted:
			report.Stats.CompletedLinks++
		case models.MagicLinkStatusExpired:
			report.Stats.ExpiredLinks++
			report.FailedLinks = append(report.FailedLinks, entry)
		default:
			report.Stats.PendingLinks++
			report.FailedLinks = append(report.FailedLinks, entry)
		}
	}
	report.Stats.TotalLinks = len(report.Links)
	report.Stats.TotalReports = len(report.Reports)
	report.Stats.TotalStudents = len(report.Students)
	report.Stats.FailedReports = len(report.FailedLinks)
	return report, nil
}

var auditExportHeaders = []string{"Student", "Email", "Student Status", "Link Status", "Week", "Sent At", "Expires At", "Completed At"}

// Export renders the link history as CSV or PDF.
func (s *AuditService) Export(ctx context.Context, rawFormat string, now time.Time) (*AuditExport, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}
	audit, err := s.FullAudit(ctx, now)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(audit.Links))
	for _, link := range audit.Links {
		completed := ""
		if link.CompletedAt != nil {
			completed = link.CompletedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, map[string]string{
			"Student":        link.StudentName,
			"Email":          link.StudentEmail,
			"Student Status": string(link.StudentStatus),
			"Link Status":    string(link.EffectiveStatus),
			"Week":           link.WeekStartDate.UTC().Format("2006-01-02"),
			"Sent At":        link.CreatedAt.UTC().Format(time.RFC3339),
			"Expires At":     link.ExpiresAt.UTC().Format(time.RFC3339),
			"Completed At":   completed,
		})
	}

	body, err := export.Render(format, export.Dataset{
		Title:   fmt.Sprintf("Magic link audit %s", now.UTC().Format("2006-01-02")),
		Headers: auditExportHeaders,
		Rows:    rows,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render audit export")
	}
	s.logger.Sugar().Infow("audit exported", "format", format, "links", len(rows))
	return &AuditExport{
		Filename:    fmt.Sprintf("magic-link-audit-%s.%s", now.UTC().Format("20060102"), format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}
