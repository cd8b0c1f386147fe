package service

import (
	"github.com/campusdesk/request-portal-api/internal/models"
	appErrors "github.com/campusdesk/request-portal-api/pkg/errors"
)

// AccessAction enumerates the operations gated by the access rules.
type AccessAction string

const (
	ActionView       AccessAction = "view"
	ActionTransition AccessAction = "transition"
	ActionComment    AccessAction = "comment"
)

// AccessScope computes which requests an actor may see or act on. It is
// stateless, has no side effects and is safe for concurrent use.
type AccessScope struct{}

// NewAccessScope constructs the rule set.
func NewAccessScope() *AccessScope {
	return &AccessScope{}
}

// VisibleFilter returns the listing filter for the actor's visible set:
// students see their own submissions, lecturers their assigned requests,
// admins everything in their department.
func (s *AccessScope) VisibleFilter(actor models.Actor) (models.RequestFilter, error) {
	switch actor.Role {
	case models.RoleStudent:
		return models.RequestFilter{StudentID: actor.ID}, nil
	case models.RoleLecturer:
		return models.RequestFilter{AssignedLecturerID: actor.ID}, nil
	case models.RoleAdmin:
		if actor.Department() == "" {
			return models.RequestFilter{}, appErrors.Clone(appErrors.ErrForbidden, "admin account has no department")
		}
		return models.RequestFilter{DepartmentID: actor.Department()}, nil
	default:
		return models.RequestFilter{}, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}
}

// Authorize fails when the actor is outside the request's visible set for the
// action, or when a student attempts a status transition.
func (s *AccessScope) Authorize(actor models.Actor, request *models.Request, action AccessAction) error {
	if request == nil {
		return appErrors.Clone(appErrors.ErrForbidden, "no request in scope")
	}
	if action == ActionTransition && actor.Role == models.RoleStudent {
		return appErrors.Clone(appErrors.ErrForbidden, "students cannot change request status")
	}
	if !s.visible(actor, request) {
		return appErrors.Clone(appErrors.ErrForbidden, "request outside your scope")
	}
	switch action {
	case ActionView, ActionTransition, ActionComment:
		return nil
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "unknown action")
	}
}

func (s *AccessScope) visible(actor models.Actor, request *models.Request) bool {
	switch actor.Role {
	case models.RoleStudent:
		return request.StudentID == actor.ID
	case models.RoleLecturer:
		return request.AssignedLecturerID != nil && *request.AssignedLecturerID == actor.ID
	case models.RoleAdmin:
		return actor.Department() != "" && request.DepartmentID == actor.Department()
	default:
		return false
	}
}
