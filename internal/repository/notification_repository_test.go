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

func newNotificationMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestNotificationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(sqlmock.AnyArg(), "student-1", "req-1", `Your request "Grade appeal" is now approved`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.Notification{
		RecipientID: "student-1",
		RequestID:   "req-1",
		Message:     `Your request "Grade appeal" is now approved`,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryListOldestFirst(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "recipient_id", "request_id", "message", "created_at"}).
		AddRow("n-1", "student-1", "req-1", "first", now.Add(-time.Hour)).
		AddRow("n-2", "student-1", "req-2", "second", now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM notifications WHERE recipient_id = $1 ORDER BY created_at ASC, id ASC")).
		WithArgs("student-1").
		WillReturnRows(rows)

	notifications, err := repo.ListByRecipient(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, notifications, 2)
	assert.Equal(t, "n-1", notifications[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryDeleteOneScopedToRecipient(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notifications WHERE recipient_id = $1 AND id = $2")).
		WithArgs("student-1", "n-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.DeleteOne(context.Background(), "student-1", "n-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryDeleteByRecipient(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notifications WHERE recipient_id = $1")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := repo.DeleteByRecipient(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
