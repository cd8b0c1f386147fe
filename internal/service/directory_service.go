package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/campusdesk/request-portal-api/internal/models"
	appErrors "github.com/campusdesk/request-portal-api/pkg/errors"
)

type directoryRepository interface {
	ListDepartments(ctx context.Context) ([]models.Department, error)
	ListCoursesByDepartment(ctx context.Context, departmentID string) ([]models.Course, error)
	ListLecturersByDepartment(ctx context.Context, departmentID string) ([]models.LecturerRef, error)
}

// DirectoryService exposes the read-only institutional catalog used for
// display and for assignment validation.
type DirectoryService struct {
	repo   directoryRepository
	logger *zap.Logger
}

// NewDirectoryService constructs the service.
func NewDirectoryService(repo directoryRepository, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{repo: repo, logger: logger}
}

// Departments lists all departments.
func (s *DirectoryService) Departments(ctx context.Context) ([]models.Department, error) {
	departments, err := s.repo.ListDepartments(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	return departments, nil
}

// Courses lists a department's courses.
func (s *DirectoryService) Courses(ctx context.Context, departmentID string) ([]models.Course, error) {
	courses, err := s.repo.ListCoursesByDepartment(ctx, departmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Lecturers lists lecturers teaching in a department.
func (s *DirectoryService) Lecturers(ctx context.Context, departmentID string) ([]models.LecturerRef, error) {
	lecturers, err := s.repo.ListLecturersByDepartment(ctx, departmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lecturers")
	}
	return lecturers, nil
}
