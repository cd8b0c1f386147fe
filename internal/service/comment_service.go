package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/campusdesk/request-portal-api/internal/models"
	appErrors "github.com/campusdesk/request-portal-api/pkg/errors"
)

type commentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByRequest(ctx context.Context, requestID string) ([]models.Comment, error)
}

type commentRequestReader interface {
	GetByID(ctx context.Context, id string) (*models.Request, error)
}

type departmentAdminFinder interface {
	FindDepartmentAdmin(ctx context.Context, departmentID string) (string, error)
}

type notificationDispatcher interface {
	Dispatch(event models.NotificationEvent)
}

// CommentService manages the append-only discussion thread on a request.
type CommentService struct {
	repo      commentRepository
	requests  commentRequestReader
	directory departmentAdminFinder
	notifier  notificationDispatcher
	scope     *AccessScope
	logger    *zap.Logger
}

// NewCommentService constructs the service.
func NewCommentService(repo commentRepository, requests commentRequestReader, directory departmentAdminFinder, notifier notificationDispatcher, scope *AccessScope, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scope == nil {
		scope = NewAccessScope()
	}
	return &CommentService{repo: repo, requests: requests, directory: directory, notifier: notifier, scope: scope, logger: logger}
}

// Add appends an immutable comment authored by the actor and notifies the
// other party. The notification is dispatched only after the comment write
// committed, and its failure never surfaces to the caller.
func (s *CommentService) Add(ctx context.Context, actor models.Actor, requestID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment content must not be empty")
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if err := s.scope.Authorize(actor, request, ActionComment); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		RequestID:  request.ID,
		AuthorID:   actor.ID,
		AuthorRole: actor.Role,
		Content:    content,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add comment")
	}

	s.notifyOtherParty(ctx, actor, request)
	return comment, nil
}

// List returns the request's thread oldest first.
func (s *CommentService) List(ctx context.Context, actor models.Actor, requestID string) ([]models.Comment, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if err := s.scope.Authorize(actor, request, ActionView); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListByRequest(ctx, request.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return comments, nil
}

// notifyOtherParty routes the CommentAdded event: a student's comment goes to
// the assigned lecturer, falling back to the department's reviewing admin;
// staff comments go to the request's student.
func (s *CommentService) notifyOtherParty(ctx context.Context, actor models.Actor, request *models.Request) {
	recipient := request.StudentID
	if actor.Role == models.RoleStudent {
		switch {
		case request.AssignedLecturerID != nil && *request.AssignedLecturerID != "":
			recipient = *request.AssignedLecturerID
		default:
			admin, err := s.directory.FindDepartmentAdmin(ctx, request.DepartmentID)
			if err != nil {
				s.logger.Warn("failed to resolve reviewing admin for comment notification",
					zap.String("request_id", request.ID), zap.Error(err))
				return
			}
			if admin == "" {
				s.logger.Warn("no reviewing staff for comment notification",
					zap.String("request_id", request.ID), zap.String("department_id", request.DepartmentID))
				return
			}
			recipient = admin
		}
	}

	s.notifier.Dispatch(models.NotificationEvent{
		Kind:        models.EventCommentAdded,
		RecipientID: recipient,
		RequestID:   request.ID,
		Message:     fmt.Sprintf("New reply on request %q", request.Subject),
	})
}
