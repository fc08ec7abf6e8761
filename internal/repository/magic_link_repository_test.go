package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumnos-crm-api/internal/models"
)

func newMagicLinkMock(t *testing.T) (*MagicLinkRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMagicLinkRepository(sqlx.NewDb(db, "postgres")), mock
}

var magicLinkJoinColumns = []string{"id", "student_id", "token", "status", "week_start_date", "expires_at", "completed_at", "created_at", "student_name", "student_email", "student_status"}

func TestMagicLinkRepositoryCreate(t *testing.T) {
	repo, mock := newMagicLinkMock(t)
	expires := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	week := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO magic_links")).
		WithArgs(int64(5), "tok-1", models.MagicLinkStatusPending, week, expires, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(77))

	link := &models.MagicLink{StudentID: 5, Token: "tok-1", WeekStartDate: week, ExpiresAt: expires}
	require.NoError(t, repo.Create(context.Background(), link))
	assert.Equal(t, int64(77), link.ID)
	assert.Equal(t, models.MagicLinkStatusPending, link.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMagicLinkRepositoryCreateDuplicateToken(t *testing.T) {
	repo, mock := newMagicLinkMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO magic_links")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &models.MagicLink{StudentID: 5, Token: "dup"})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestMagicLinkRepositoryFindByToken(t *testing.T) {
	repo, mock := newMagicLinkMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE l.token = $1")).
		WithArgs("tok-1").
		WillReturnRows(sqlmock.NewRows(magicLinkJoinColumns).
			AddRow(1, 5, "tok-1", "pending", now, now.Add(time.Hour), nil, now, "Ana", "ana@example.com", "active"))

	link, err := repo.FindByToken(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), link.StudentID)
	assert.Equal(t, "Ana", link.StudentName)
	assert.Nil(t, link.CompletedAt)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE l.token = $1")).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByToken(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMagicLinkRepositoryMarkCompleted(t *testing.T) {
	repo, mock := newMagicLinkMock(t)
	at := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("completed_at = COALESCE(completed_at, $3)")).
		WithArgs("tok-1", models.MagicLinkStatusCompleted, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkCompleted(context.Background(), "tok-1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMagicLinkRepositoryListAll(t *testing.T) {
	repo, mock := newMagicLinkMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY l.created_at DESC, l.id DESC LIMIT $1")).
		WithArgs(500).
		WillReturnRows(sqlmock.NewRows(magicLinkJoinColumns).
			AddRow(2, 5, "b", "completed", now, now, now, now, "Ana", "ana@example.com", "active").
			AddRow(1, 6, "a", "pending", now, now, nil, now, "Luis", "luis@example.com", "at_risk"))

	links, err := repo.ListAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, links, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
