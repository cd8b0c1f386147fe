package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/request-portal-api/internal/models"
	appErrors "github.com/campusdesk/request-portal-api/pkg/errors"
)

type mockRequestRepo struct {
	requests map[string]models.Request
	feedback []models.Comment
	updates  []map[string]interface{}
}

func newMockRequestRepo(seed ...models.Request) *mockRequestRepo {
	repo := &mockRequestRepo{requests: make(map[string]models.Request)}
	for _, r := range seed {
		repo.requests[r.ID] = r
	}
	return repo
}

func (m *mockRequestRepo) Create(ctx context.Context, request *models.Request) error {
	if request.ID == "" {
		request.ID = "req-new"
	}
	now := time.Now().UTC()
	request.SubmittedAt = now
	request.UpdatedAt = now
	if request.Status == "" {
		request.Status = models.StatusPending
	}
	m.requests[request.ID] = *request
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id string) (*models.Request, error) {
	if r, ok := m.requests[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestRepo) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error) {
	var out []models.Request
	for _, r := range m.requests {
		if filter.StudentID != "" && r.StudentID != filter.StudentID {
			continue
		}
		if filter.AssignedLecturerID != "" && (r.AssignedLecturerID == nil || *r.AssignedLecturerID != filter.AssignedLecturerID) {
			continue
		}
		if filter.DepartmentID != "" && r.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		out = append(out, r)
	}
	return out, len(out), nil
}

func (m *mockRequestRepo) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*models.Request, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	m.updates = append(m.updates, fields)
	if lecturer, ok := fields["assigned_lecturer_id"].(string); ok {
		r.AssignedLecturerID = &lecturer
	}
	r.UpdatedAt = time.Now().UTC()
	m.requests[id] = r
	return &r, nil
}

func (m *mockRequestRepo) TransitionTx(ctx context.Context, id string, status models.RequestStatus, feedback *models.Comment) (*models.Request, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	if feedback != nil {
		feedback.RequestID = id
		m.feedback = append(m.feedback, *feedback)
	}
	m.requests[id] = r
	return &r, nil
}

type mockLecturerDirectory struct {
	members map[string]string // lecturer id -> department id
	admins  map[string]string // department id -> admin id
}

func (m *mockLecturerDirectory) LecturerInDepartment(ctx context.Context, lecturerID, departmentID string) (bool, error) {
	return m.members[lecturerID] == departmentID, nil
}

func (m *mockLecturerDirectory) FindDepartmentAdmin(ctx context.Context, departmentID string) (string, error) {
	return m.admins[departmentID], nil
}

type captureDispatcher struct {
	events []models.NotificationEvent
}

func (c *captureDispatcher) Dispatch(event models.NotificationEvent) {
	c.events = append(c.events, event)
}

func seedRequest() models.Request {
	return models.Request{
		ID:                 "req-1",
		StudentID:          "student-1",
		Type:               models.RequestTypeAppeal,
		Subject:            "Grade appeal",
		Description:        "Please review",
		AssignedLecturerID: strPtr("lecturer-1"),
		DepartmentID:       "dept-1",
		Status:             models.StatusPending,
		SubmittedAt:        time.Now().UTC().Add(-time.Hour),
		UpdatedAt:          time.Now().UTC().Add(-time.Hour),
	}
}

func newRequestService(repo *mockRequestRepo, dir *mockLecturerDirectory, dispatcher *captureDispatcher) *RequestService {
	return NewRequestService(repo, dir, dispatcher, NewAccessScope(), nil, nil)
}

func TestRequestServiceCreate(t *testing.T) {
	repo := newMockRequestRepo()
	dir := &mockLecturerDirectory{members: map[string]string{"lecturer-1": "dept-1"}}
	svc := newRequestService(repo, dir, &captureDispatcher{})
	actor := models.Actor{ID: "student-1", Role: models.RoleStudent}

	request, err := svc.Create(context.Background(), actor, CreateRequestInput{
		Type:               "appeal",
		Subject:            "Grade appeal",
		Description:        "Please review my final grade",
		DepartmentID:       "dept-1",
		AssignedLecturerID: strPtr("lecturer-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, request.Status)
	assert.Equal(t, "student-1", request.StudentID)
	assert.NotEmpty(t, request.ID)
}

func TestRequestServiceCreateRejectsUnknownType(t *testing.T) {
	svc := newRequestService(newMockRequestRepo(), &mockLecturerDirectory{}, &captureDispatcher{})
	actor := models.Actor{ID: "student-1", Role: models.RoleStudent}

	_, err := svc.Create(context.Background(), actor, CreateRequestInput{
		Type:         "complaint",
		Subject:      "x",
		Description:  "y",
		DepartmentID: "dept-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRequestServiceCreateRejectsLecturerOutsideDepartment(t *testing.T) {
	dir := &mockLecturerDirectory{members: map[string]string{"lecturer-1": "dept-2"}}
	svc := newRequestService(newMockRequestRepo(), dir, &captureDispatcher{})
	actor := models.Actor{ID: "student-1", Role: models.RoleStudent}

	_, err := svc.Create(context.Background(), actor, CreateRequestInput{
		Type:               "exemption",
		Subject:            "Course exemption",
		Description:        "Already passed elsewhere",
		DepartmentID:       "dept-1",
		AssignedLecturerID: strPtr("lecturer-1"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRequestServiceCreateStaffForbidden(t *testing.T) {
	svc := newRequestService(newMockRequestRepo(), &mockLecturerDirectory{}, &captureDispatcher{})

	_, err := svc.Create(context.Background(), models.Actor{ID: "admin-1", Role: models.RoleAdmin, DepartmentID: strPtr("dept-1")}, CreateRequestInput{
		Type:         "other",
		Subject:      "x",
		Description:  "y",
		DepartmentID: "dept-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRequestServiceTransitionSetsStatusAndNotifies(t *testing.T) {
	repo := newMockRequestRepo(seedRequest())
	dispatcher := &captureDispatcher{}
	svc := newRequestService(repo, &mockLecturerDirectory{}, dispatcher)
	actor := models.Actor{ID: "lecturer-1", Role: models.RoleLecturer}

	updated, err := svc.Transition(context.Background(), actor, "req-1", "approved", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, models.EventStatusChanged, dispatcher.events[0].Kind)
	assert.Equal(t, "student-1", dispatcher.events[0].RecipientID)
}

func TestRequestServiceTransitionIdempotent(t *testing.T) {
	seed := seedRequest()
	repo := newMockRequestRepo(seed)
	dispatcher := &captureDispatcher{}
	svc := newRequestService(repo, &mockLecturerDirectory{}, dispatcher)
	actor := models.Actor{ID: "lecturer-1", Role: models.RoleLecturer}

	updated, err := svc.Transition(context.Background(), actor, "req-1", string(seed.Status), "")
	require.NoError(t, err)
	assert.Equal(t, seed.Status, updated.Status)
	assert.True(t, updated.UpdatedAt.After(seed.UpdatedAt))
	assert.Empty(t, dispatcher.events, "same-status transition must not notify")
}

func TestRequestServiceTransitionBundlesFeedback(t *testing.T) {
	repo := newMockRequestRepo(seedRequest())
	dispatcher := &captureDispatcher{}
	svc := newRequestService(repo, &mockLecturerDirectory{}, dispatcher)
	actor := models.Actor{ID: "lecturer-1", Role: models.RoleLecturer}

	updated, err := svc.Transition(context.Background(), actor, "req-1", "approved", "grade corrected")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
	require.Len(t, repo.feedback, 1)
	assert.Equal(t, "grade corrected", repo.feedback[0].Content)
	assert.Equal(t, models.RoleLecturer, repo.feedback[0].AuthorRole)
	require.Len(t, dispatcher.events, 1)
}

func TestRequestServiceTransitionRejectsUnknownStatus(t *testing.T) {
	repo := newMockRequestRepo(seedRequest())
	svc := newRequestService(repo, &mockLecturerDirectory{}, &captureDispatcher{})
	actor := models.Actor{ID: "lecturer-1", Role: models.RoleLecturer}

	_, err := svc.Transition(context.Background(), actor, "req-1", "done", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRequestServiceTransitionCrossDepartmentAdminForbidden(t *testing.T) {
	seed := seedRequest()
	repo := newMockRequestRepo(seed)
	dispatcher := &captureDispatcher{}
	svc := newRequestService(repo, &mockLecturerDirectory{}, dispatcher)
	actor := models.Actor{ID: "admin-1", Role: models.RoleAdmin, DepartmentID: strPtr("dept-2")}

	_, err := svc.Transition(context.Background(), actor, "req-1", "approved", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	current, getErr := repo.GetByID(context.Background(), "req-1")
	require.NoError(t, getErr)
	assert.Equal(t, seed.Status, current.Status, "status must be unchanged after denied transition")
	assert.Empty(t, dispatcher.events)
}

func TestRequestServiceListScopedToActor(t *testing.T) {
	mine := seedRequest()
	other := seedRequest()
	other.ID = "req-2"
	other.StudentID = "student-2"
	other.AssignedLecturerID = strPtr("lecturer-2")
	repo := newMockRequestRepo(mine, other)
	svc := newRequestService(repo, &mockLecturerDirectory{}, &captureDispatcher{})

	requests, pagination, err := svc.List(context.Background(), models.Actor{ID: "student-1", Role: models.RoleStudent}, ListRequestsInput{})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "req-1", requests[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestRequestServiceAssignValidatesDepartment(t *testing.T) {
	repo := newMockRequestRepo(seedRequest())
	dir := &mockLecturerDirectory{members: map[string]string{"lecturer-2": "dept-1"}}
	svc := newRequestService(repo, dir, &captureDispatcher{})
	admin := models.Actor{ID: "admin-1", Role: models.RoleAdmin, DepartmentID: strPtr("dept-1")}

	updated, err := svc.Assign(context.Background(), admin, "req-1", "lecturer-2")
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedLecturerID)
	assert.Equal(t, "lecturer-2", *updated.AssignedLecturerID)

	_, err = svc.Assign(context.Background(), admin, "req-1", "lecturer-9")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
