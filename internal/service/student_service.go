package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/internal/models"
	"github.com/noah-isme/alumnos-crm-api/internal/repository"
	appErrors "github.com/noah-isme/alumnos-crm-api/pkg/errors"
)

const recentActivityLimit = 10

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	UpdateStatus(ctx context.Context, id int64, status models.StudentStatus) error
	Delete(ctx context.Context, id int64) error
}

type studentReportReader interface {
	ListByStudent(ctx context.Context, studentID int64, limit int) ([]models.WeeklyReport, error)
}

type studentLinkReader interface {
	ListByStudent(ctx context.Context, studentID int64, limit int) ([]models.MagicLink, error)
}

// StudentService handles student administration.
type StudentService struct {
	repo      studentRepository
	reports   studentReportReader
	links     studentLinkReader
	status    statusRefresher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, reports studentReportReader, links studentLinkReader, status statusRefresher, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = newValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, reports: reports, links: links, status: status, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown status "+string(status))
		}
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.Student{}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns the student with recent reports and links.
func (s *StudentService) Get(ctx context.Context, id int64) (*dto.StudentDetail, error) {
	student, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	reports, err := s.reports.ListByStudent(ctx, id, recentActivityLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student reports")
	}
	links, err := s.links.ListByStudent(ctx, id, recentActivityLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student links")
	}
	if reports == nil {
		reports = []models.WeeklyReport{}
	}
	if links == nil {
		links = []models.MagicLink{}
	}
	return &dto.StudentDetail{Student: *student, RecentReports: reports, RecentLinks: links}, nil
}

// Create registers a new student with status active.
func (s *StudentService) Create(ctx context.Context, req dto.CreateStudentRequest) (*models.Student, error) {
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	email := req.Email
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return nil, err
	}
	student := &models.Student{
		Email:    email,
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
		Country:  strings.TrimSpace(req.Country),
		City:     strings.TrimSpace(req.City),
		Status:   models.StudentStatusActive,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Sugar().Infow("student created", "student_id", student.ID)
	return student, nil
}

// Update modifies the contact fields of an existing student.
func (s *StudentService) Update(ctx context.Context, id int64, req dto.UpdateStudentRequest) (*models.Student, error) {
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		req.Email = &email
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Email != nil {
		email := *req.Email
		if email != student.Email {
			if err := s.ensureEmailFree(ctx, email, id); err != nil {
				return nil, err
			}
		}
		student.Email = email
	}
	if req.FullName != nil {
		student.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		student.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Country != nil {
		student.Country = strings.TrimSpace(*req.Country)
	}
	if req.City != nil {
		student.City = strings.TrimSpace(*req.City)
	}
	if err := s.repo.Update(ctx, student); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// OverrideStatus sets a status by hand. The next scan may recompute it.
func (s *StudentService) OverrideStatus(ctx context.Context, id int64, req dto.UpdateStudentStatusRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	student, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if student.Status == req.Status {
		return student, nil
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student status")
	}
	s.logger.Sugar().Infow("student status overridden", "student_id", id, "from", student.Status, "to", req.Status)
	student.Status = req.Status
	return student, nil
}

// Recompute applies the status rules to one student now.
func (s *StudentService) Recompute(ctx context.Context, id int64) (*models.Student, error) {
	if _, err := s.status.Refresh(ctx, id, time.Now()); err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

// Delete removes the student together with their links and reports.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.logger.Sugar().Infow("student deleted", "student_id", id)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *StudentService) find(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *StudentService) ensureEmailFree(ctx context.Context, email string, selfID int64) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if existing.ID != selfID {
		return appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	return nil
}
