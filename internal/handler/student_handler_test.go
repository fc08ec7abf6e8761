package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/internal/models"
	appErrors "github.com/noah-isme/alumnos-crm-api/pkg/errors"
)

type studentServiceMock struct {
	filter     models.StudentFilter
	created    *dto.CreateStudentRequest
	createErr  error
	statusReq  *dto.UpdateStudentStatusRequest
	lastID     int64
	deleted    int64
	deleteErr  error
	recomputed *models.Student
}

func (m *studentServiceMock) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	m.filter = filter
	return []models.Student{{ID: 1, Email: "ana@example.com"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (m *studentServiceMock) Get(ctx context.Context, id int64) (*dto.StudentDetail, error) {
	m.lastID = id
	if id == 404 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &dto.StudentDetail{Student: models.Student{ID: id}}, nil
}

func (m *studentServiceMock) Create(ctx context.Context, req dto.CreateStudentRequest) (*models.Student, error) {
	m.created = &req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Student{ID: 10, Email: req.Email, Status: models.StudentStatusActive}, nil
}

func (m *studentServiceMock) Update(ctx context.Context, id int64, req dto.UpdateStudentRequest) (*models.Student, error) {
	m.lastID = id
	return &models.Student{ID: id}, nil
}

func (m *studentServiceMock) OverrideStatus(ctx context.Context, id int64, req dto.UpdateStudentStatusRequest) (*models.Student, error) {
	m.lastID = id
	m.statusReq = &req
	return &models.Student{ID: id, Status: req.Status}, nil
}

func (m *studentServiceMock) Recompute(ctx context.Context, id int64) (*models.Student, error) {
	m.lastID = id
	return m.recomputed, nil
}

func (m *studentServiceMock) Delete(ctx context.Context, id int64) error {
	m.deleted = id
	return m.deleteErr
}

func TestStudentHandlerListParsesFilters(t *testing.T) {
	mock := &studentServiceMock{}
	c, w := newTestContext(http.MethodGet, "/students?search=%20ana%20&status=active,at_risk&status=inactive&page=2&limit=5&sort=full_name&order=asc", nil)

	NewStudentHandler(mock).List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana", mock.filter.Search)
	assert.Equal(t, []models.StudentStatus{models.StudentStatusActive, models.StudentStatusAtRisk, models.StudentStatusInactive}, mock.filter.Statuses)
	assert.Equal(t, 2, mock.filter.Page)
	assert.Equal(t, 5, mock.filter.PageSize)
	assert.Equal(t, "full_name", mock.filter.SortBy)
	assert.Equal(t, "asc", mock.filter.SortOrder)
	env := decodeEnvelope(t, w, nil)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	mock := &studentServiceMock{}
	c, w := newTestContext(http.MethodGet, "/students/404", nil)
	withID(c, "404")

	NewStudentHandler(mock).Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, w))
}

func TestStudentHandlerNonNumericID(t *testing.T) {
	mock := &studentServiceMock{}
	h := NewStudentHandler(mock)
	for name, run := range map[string]gin.HandlerFunc{
		"get":       h.Get,
		"recompute": h.Recompute,
		"delete":    h.Delete,
	} {
		t.Run(name, func(t *testing.T) {
			c, w := newTestContext(http.MethodGet, "/students/x", nil)
			withID(c, "x")
			run(c)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, w))
		})
	}
	assert.Zero(t, mock.lastID)
	assert.Zero(t, mock.deleted)
}

func TestStudentHandlerCreate(t *testing.T) {
	mock := &studentServiceMock{}
	body, _ := json.Marshal(dto.CreateStudentRequest{Email: "ana@example.com", FullName: "Ana"})
	c, w := newTestContext(http.MethodPost, "/students", body)

	NewStudentHandler(mock).Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var student models.Student
	decodeEnvelope(t, w, &student)
	assert.Equal(t, int64(10), student.ID)
	assert.Equal(t, models.StudentStatusActive, student.Status)
}

func TestStudentHandlerCreateConflict(t *testing.T) {
	mock := &studentServiceMock{createErr: appErrors.Clone(appErrors.ErrConflict, "email already registered")}
	body, _ := json.Marshal(dto.CreateStudentRequest{Email: "ana@example.com", FullName: "Ana"})
	c, w := newTestContext(http.MethodPost, "/students", body)

	NewStudentHandler(mock).Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStudentHandlerUpdateStatus(t *testing.T) {
	mock := &studentServiceMock{}
	c, w := newTestContext(http.MethodPatch, "/students/3/status", []byte(`{"status":"at_risk"}`))
	withID(c, "3")

	NewStudentHandler(mock).UpdateStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.statusReq)
	assert.Equal(t, models.StudentStatusAtRisk, mock.statusReq.Status)
	assert.Equal(t, int64(3), mock.lastID)
}

func TestStudentHandlerRecompute(t *testing.T) {
	mock := &studentServiceMock{recomputed: &models.Student{ID: 4, Status: models.StudentStatusInactive}}
	c, w := newTestContext(http.MethodPost, "/students/4/recompute", nil)
	withID(c, "4")

	NewStudentHandler(mock).Recompute(c)

	require.Equal(t, http.StatusOK, w.Code)
	var student models.Student
	decodeEnvelope(t, w, &student)
	assert.Equal(t, models.StudentStatusInactive, student.Status)
}

func TestStudentHandlerDelete(t *testing.T) {
	mock := &studentServiceMock{}
	c, w := newTestContext(http.MethodDelete, "/students/8", nil)
	withID(c, "8")

	NewStudentHandler(mock).Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(8), mock.deleted)
}
