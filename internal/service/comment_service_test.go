package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/request-portal-api/internal/models"
	appErrors "github.com/campusdesk/request-portal-api/pkg/errors"
)

type mockCommentRepo struct {
	comments []models.Comment
	seq      int
}

func (m *mockCommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	m.seq++
	if comment.ID == "" {
		comment.ID = "c-" + string(rune('0'+m.seq))
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC().Add(time.Duration(m.seq) * time.Millisecond)
	}
	m.comments = append(m.comments, *comment)
	return nil
}

func (m *mockCommentRepo) ListByRequest(ctx context.Context, requestID string) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range m.comments {
		if c.RequestID == requestID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func newCommentService(repo *mockCommentRepo, requests *mockRequestRepo, dir *mockLecturerDirectory, dispatcher *captureDispatcher) *CommentService {
	return NewCommentService(repo, requests, dir, dispatcher, NewAccessScope(), nil)
}

func TestCommentAddAppendsAndSortsLast(t *testing.T) {
	repo := &mockCommentRepo{}
	requests := newMockRequestRepo(seedRequest())
	svc := newCommentService(repo, requests, &mockLecturerDirectory{}, &captureDispatcher{})
	lecturer := models.Actor{ID: "lecturer-1", Role: models.RoleLecturer}
	student := models.Actor{ID: "student-1", Role: models.RoleStudent}

	_, err := svc.Add(context.Background(), lecturer, "req-1", "please provide term")
	require.NoError(t, err)
	latest, err := svc.Add(context.Background(), student, "req-1", "term is 2025A")
	require.NoError(t, err)

	comments, err := svc.List(context.Background(), student, "req-1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, latest.ID, comments[1].ID, "newest comment sorts last")
	assert.Equal(t, models.RoleLecturer, comments[0].AuthorRole)
	assert.Equal(t, models.RoleStudent, comments[1].AuthorRole)
}

func TestCommentAddRejectsBlankContent(t *testing.T) {
	svc := newCommentService(&mockCommentRepo{}, newMockRequestRepo(seedRequest()), &mockLecturerDirectory{}, &captureDispatcher{})
	actor := models.Actor{ID: "student-1", Role: models.RoleStudent}

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := svc.Add(context.Background(), actor, "req-1", content)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestCommentAddByStudentNotifiesAssignedLecturer(t *testing.T) {
	dispatcher := &captureDispatcher{}
	svc := newCommentService(&mockCommentRepo{}, newMockRequestRepo(seedRequest()), &mockLecturerDirectory{}, dispatcher)

	_, err := svc.Add(context.Background(), models.Actor{ID: "student-1", Role: models.RoleStudent}, "req-1", "any update?")
	require.NoError(t, err)
	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, models.EventCommentAdded, dispatcher.events[0].Kind)
	assert.Equal(t, "lecturer-1", dispatcher.events[0].RecipientID)
}

func TestCommentAddByStudentFallsBackToDepartmentAdmin(t *testing.T) {
	unassigned := seedRequest()
	unassigned.AssignedLecturerID = nil
	dispatcher := &captureDispatcher{}
	dir := &mockLecturerDirectory{admins: map[string]string{"dept-1": "admin-1"}}
	svc := newCommentService(&mockCommentRepo{}, newMockRequestRepo(unassigned), dir, dispatcher)

	_, err := svc.Add(context.Background(), models.Actor{ID: "student-1", Role: models.RoleStudent}, "req-1", "any update?")
	require.NoError(t, err)
	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, "admin-1", dispatcher.events[0].RecipientID)
}

func TestCommentAddByStaffNotifiesStudentOnly(t *testing.T) {
	dispatcher := &captureDispatcher{}
	svc := newCommentService(&mockCommentRepo{}, newMockRequestRepo(seedRequest()), &mockLecturerDirectory{}, dispatcher)

	_, err := svc.Add(context.Background(), models.Actor{ID: "lecturer-1", Role: models.RoleLecturer}, "req-1", "please provide term")
	require.NoError(t, err)
	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, "student-1", dispatcher.events[0].RecipientID)
}

func TestCommentAddOutsideScopeForbidden(t *testing.T) {
	dispatcher := &captureDispatcher{}
	svc := newCommentService(&mockCommentRepo{}, newMockRequestRepo(seedRequest()), &mockLecturerDirectory{}, dispatcher)

	_, err := svc.Add(context.Background(), models.Actor{ID: "lecturer-2", Role: models.RoleLecturer}, "req-1", "hello")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, dispatcher.events)
}

func TestCommentListUnknownRequest(t *testing.T) {
	svc := newCommentService(&mockCommentRepo{}, newMockRequestRepo(), &mockLecturerDirectory{}, &captureDispatcher{})

	_, err := svc.List(context.Background(), models.Actor{ID: "student-1", Role: models.RoleStudent}, "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
