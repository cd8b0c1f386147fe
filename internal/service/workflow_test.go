package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/request-portal-api/internal/models"
	"github.com/campusdesk/request-portal-api/pkg/jobs"
)

// syncDispatcher delivers events inline so the workflow tests can observe
// unread queues without racing the background workers.
type syncDispatcher struct {
	svc *NotificationService
	t   *testing.T
}

func (d *syncDispatcher) Dispatch(event models.NotificationEvent) {
	if event.RecipientID == "" {
		return
	}
	err := d.svc.handle(context.Background(), jobs.Job{Type: string(event.Kind), Payload: event})
	require.NoError(d.t, err)
}

func TestWorkflowAppealReviewedWithFeedback(t *testing.T) {
	notifRepo := &mockNotificationRepo{}
	notifSvc := newNotificationService(notifRepo)
	dispatcher := &syncDispatcher{svc: notifSvc, t: t}

	requestRepo := newMockRequestRepo()
	dir := &mockLecturerDirectory{members: map[string]string{"lecturer-1": "dept-1"}}
	requestSvc := NewRequestService(requestRepo, dir, dispatcher, NewAccessScope(), nil, nil)
	commentSvc := NewCommentService(&mockCommentRepo{}, requestRepo, dir, dispatcher, NewAccessScope(), nil)

	student := models.Actor{ID: "student-1", Role: models.RoleStudent}
	lecturer := models.Actor{ID: "lecturer-1", Role: models.RoleLecturer}

	request, err := requestSvc.Create(context.Background(), student, CreateRequestInput{
		Type:               "appeal",
		Subject:            "Final exam regrade",
		Description:        "Question 4 was marked wrong but matches the model answer.",
		DepartmentID:       "dept-1",
		AssignedLecturerID: strPtr("lecturer-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, request.Status)

	// The lecturer asks for clarification; the student replies.
	_, err = commentSvc.Add(context.Background(), lecturer, request.ID, "Which exam sitting was this?")
	require.NoError(t, err)
	_, err = commentSvc.Add(context.Background(), student, request.ID, "The winter sitting.")
	require.NoError(t, err)

	updated, err := requestSvc.Transition(context.Background(), lecturer, request.ID, "approved", "Regrade accepted, grade raised to 88.")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
	require.Len(t, requestRepo.feedback, 1)
	assert.Equal(t, "Regrade accepted, grade raised to 88.", requestRepo.feedback[0].Content)

	// The student sees the lecturer's question plus the approval; the
	// lecturer sees only the student's reply.
	studentCount, err := notifSvc.UnreadCount(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, studentCount)

	lecturerUnread, err := notifSvc.ListUnread(context.Background(), lecturer.ID)
	require.NoError(t, err)
	require.Len(t, lecturerUnread, 1)

	require.NoError(t, notifSvc.MarkOne(context.Background(), lecturer.ID, lecturerUnread[0].ID))
	lecturerCount, err := notifSvc.UnreadCount(context.Background(), lecturer.ID)
	require.NoError(t, err)
	assert.Zero(t, lecturerCount)
}

func TestWorkflowUnassignedRequestRoutesToAdmin(t *testing.T) {
	notifRepo := &mockNotificationRepo{}
	notifSvc := newNotificationService(notifRepo)
	dispatcher := &syncDispatcher{svc: notifSvc, t: t}

	requestRepo := newMockRequestRepo()
	dir := &mockLecturerDirectory{admins: map[string]string{"dept-1": "admin-1"}}
	requestSvc := NewRequestService(requestRepo, dir, dispatcher, NewAccessScope(), nil, nil)
	commentSvc := NewCommentService(&mockCommentRepo{}, requestRepo, dir, dispatcher, NewAccessScope(), nil)

	student := models.Actor{ID: "student-1", Role: models.RoleStudent}
	admin := models.Actor{ID: "admin-1", Role: models.RoleAdmin, DepartmentID: strPtr("dept-1")}

	request, err := requestSvc.Create(context.Background(), student, CreateRequestInput{
		Type:         "military",
		Subject:      "Reserve duty during exams",
		Description:  "Called up for the exam week, need an alternate date.",
		DepartmentID: "dept-1",
	})
	require.NoError(t, err)

	_, err = commentSvc.Add(context.Background(), student, request.ID, "Attaching my call-up order.")
	require.NoError(t, err)

	adminUnread, err := notifSvc.ListUnread(context.Background(), admin.ID)
	require.NoError(t, err)
	require.Len(t, adminUnread, 1, "student comment on an unassigned request reaches the department admin")

	updated, err := requestSvc.Transition(context.Background(), admin, request.ID, "in_progress", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)

	studentUnread, err := notifSvc.ListUnread(context.Background(), student.ID)
	require.NoError(t, err)
	require.Len(t, studentUnread, 1)
	assert.Equal(t, request.ID, studentUnread[0].RequestID)
}
