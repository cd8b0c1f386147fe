package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/request-portal-api/internal/models"
)

func newCommentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCommentRepositoryCreateTouchesRequest(t *testing.T) {
	db, mock, cleanup := newCommentMock(t)
	defer cleanup()
	repo := NewCommentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO request_comments").
		WithArgs(sqlmock.AnyArg(), "req-1", "student-1", "student", "please provide term", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET updated_at = $1 WHERE id = $2")).
		WithArgs(sqlmock.AnyArg(), "req-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	comment := &models.Comment{
		RequestID:  "req-1",
		AuthorID:   "student-1",
		AuthorRole: models.RoleStudent,
		Content:    "please provide term",
	}
	err := repo.Create(context.Background(), comment)
	require.NoError(t, err)
	assert.NotEmpty(t, comment.ID)
	assert.False(t, comment.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepositoryListOrderedOldestFirst(t *testing.T) {
	db, mock, cleanup := newCommentMock(t)
	defer cleanup()
	repo := NewCommentRepository(db)

	first := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "request_id", "author_id", "author_role", "content", "created_at"}).
		AddRow("c-1", "req-1", "lecturer-1", "lecturer", "please provide term", first).
		AddRow("c-2", "req-1", "student-1", "student", "term is 2025A", first.Add(time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("FROM request_comments WHERE request_id = $1 ORDER BY created_at ASC, id ASC")).
		WithArgs("req-1").
		WillReturnRows(rows)

	comments, err := repo.ListByRequest(context.Background(), "req-1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "c-1", comments[0].ID)
	assert.Equal(t, models.RoleLecturer, comments[0].AuthorRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}
