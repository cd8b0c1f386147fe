package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusdesk/request-portal-api/internal/models"
	"github.com/campusdesk/request-portal-api/internal/repository"
	appErrors "github.com/campusdesk/request-portal-api/pkg/errors"
)

type requestRepository interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error)
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*models.Request, error)
	TransitionTx(ctx context.Context, id string, status models.RequestStatus, feedback *models.Comment) (*models.Request, error)
}

type lecturerDirectory interface {
	LecturerInDepartment(ctx context.Context, lecturerID, departmentID string) (bool, error)
}

// RequestService owns the request lifecycle: submission, scoped listing,
// status transitions and lecturer assignment.
type RequestService struct {
	repo      requestRepository
	directory lecturerDirectory
	notifier  notificationDispatcher
	scope     *AccessScope
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRequestService constructs the service.
func NewRequestService(repo requestRepository, directory lecturerDirectory, notifier notificationDispatcher, scope *AccessScope, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if scope == nil {
		scope = NewAccessScope()
	}
	return &RequestService{repo: repo, directory: directory, notifier: notifier, scope: scope, validator: validate, logger: logger}
}

// CreateRequestInput describes a student submission.
type CreateRequestInput struct {
	Type               string  `json:"request_type" validate:"required"`
	Subject            string  `json:"subject" validate:"required,max=200"`
	Description        string  `json:"description" validate:"required"`
	DepartmentID       string  `json:"department_id" validate:"required"`
	AssignedLecturerID *string `json:"assigned_lecturer_id"`
	AttachmentRef      *string `json:"-"`
}

// ListRequestsInput carries optional listing refinements on top of the
// actor's visible set.
type ListRequestsInput struct {
	Status   string
	Type     string
	Page     int
	PageSize int
}

// Create registers a new pending request submitted by the acting student.
func (s *RequestService) Create(ctx context.Context, actor models.Actor, input CreateRequestInput) (*models.Request, error) {
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students submit requests")
	}
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	requestType := models.RequestType(input.Type)
	if !requestType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown request type %q", input.Type))
	}
	if input.AssignedLecturerID != nil && *input.AssignedLecturerID != "" {
		ok, err := s.directory.LecturerInDepartment(ctx, *input.AssignedLecturerID, input.DepartmentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify lecturer assignment")
		}
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "assigned lecturer does not belong to the department")
		}
	}

	request := &models.Request{
		StudentID:          actor.ID,
		Type:               requestType,
		Subject:            strings.TrimSpace(input.Subject),
		Description:        input.Description,
		DepartmentID:       input.DepartmentID,
		AssignedLecturerID: normalizeRef(input.AssignedLecturerID),
		AttachmentRef:      normalizeRef(input.AttachmentRef),
		Status:             models.StatusPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}
	return request, nil
}

// Get returns a single request after checking the actor's visible set.
func (s *RequestService) Get(ctx context.Context, actor models.Actor, id string) (*models.Request, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.scope.Authorize(actor, request, ActionView); err != nil {
		return nil, err
	}
	return request, nil
}

// List returns the requests in the actor's visible set, newest first.
func (s *RequestService) List(ctx context.Context, actor models.Actor, input ListRequestsInput) ([]models.Request, *models.Pagination, error) {
	filter, err := s.scope.VisibleFilter(actor)
	if err != nil {
		return nil, nil, err
	}
	if input.Status != "" {
		status := models.RequestStatus(input.Status)
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", input.Status))
		}
		filter.Status = status
	}
	if input.Type != "" {
		requestType := models.RequestType(input.Type)
		if !requestType.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown request type %q", input.Type))
		}
		filter.Type = requestType
	}
	filter.Page = input.Page
	filter.PageSize = input.PageSize
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return requests, pagination, nil
}

// Transition applies a status change with optional bundled feedback. The
// status write and the feedback comment commit atomically; on a genuine
// change the student is notified after commit. Re-applying the current status
// succeeds, still moves updated_at, and emits nothing.
func (s *RequestService) Transition(ctx context.Context, actor models.Actor, id, newStatus, feedback string) (*models.Request, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.scope.Authorize(actor, request, ActionTransition); err != nil {
		return nil, err
	}
	status := models.RequestStatus(newStatus)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", newStatus))
	}

	var comment *models.Comment
	if trimmed := strings.TrimSpace(feedback); trimmed != "" {
		comment = &models.Comment{
			AuthorID:   actor.ID,
			AuthorRole: actor.Role,
			Content:    trimmed,
		}
	}

	changed := request.Status != status
	updated, err := s.repo.TransitionTx(ctx, request.ID, status, comment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "status transition failed")
	}

	if changed {
		s.notifier.Dispatch(models.NotificationEvent{
			Kind:        models.EventStatusChanged,
			RecipientID: updated.StudentID,
			RequestID:   updated.ID,
			Message:     fmt.Sprintf("Your request %q is now %s", updated.Subject, updated.Status),
		})
	}
	return updated, nil
}

// Assign routes a request to a lecturer within its department. Admin only.
func (s *RequestService) Assign(ctx context.Context, actor models.Actor, id, lecturerID string) (*models.Request, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins assign requests")
	}
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.scope.Authorize(actor, request, ActionView); err != nil {
		return nil, err
	}
	if lecturerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lecturer id required")
	}
	ok, err := s.directory.LecturerInDepartment(ctx, lecturerID, request.DepartmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify lecturer assignment")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assigned lecturer does not belong to the department")
	}

	updated, err := s.repo.UpdateFields(ctx, request.ID, map[string]interface{}{"assigned_lecturer_id": lecturerID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		var unknown repository.ErrUnknownField
		if errors.As(err, &unknown) {
			return nil, appErrors.Clone(appErrors.ErrValidation, unknown.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign request")
	}
	return updated, nil
}

func (s *RequestService) load(ctx context.Context, id string) (*models.Request, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}

func normalizeRef(ref *string) *string {
	if ref == nil || strings.TrimSpace(*ref) == "" {
		return nil
	}
	return ref
}
