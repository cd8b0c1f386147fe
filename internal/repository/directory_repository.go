package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusdesk/request-portal-api/internal/models"
)

// DirectoryRepository reads the institutional catalog: departments, courses
// and lecturer assignments. The catalog is reference data and never written
// through this API.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository constructs the repository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// ListDepartments returns all departments ordered by name.
func (r *DirectoryRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, "SELECT id, name FROM departments ORDER BY name ASC"); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// ListCoursesByDepartment returns the department's courses.
func (r *DirectoryRepository) ListCoursesByDepartment(ctx context.Context, departmentID string) ([]models.Course, error) {
	const query = `SELECT id, department_id, name, code FROM courses WHERE department_id = $1 ORDER BY code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, departmentID); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListLecturersByDepartment returns lecturers teaching at least one course in
// the department.
func (r *DirectoryRepository) ListLecturersByDepartment(ctx context.Context, departmentID string) ([]models.LecturerRef, error) {
	const query = `SELECT DISTINCT u.id, u.full_name
FROM users u
JOIN course_lecturers cl ON cl.lecturer_id = u.id
JOIN courses c ON c.id = cl.course_id
WHERE u.role = 'lecturer' AND c.department_id = $1
ORDER BY u.full_name ASC`
	var lecturers []models.LecturerRef
	if err := r.db.SelectContext(ctx, &lecturers, query, departmentID); err != nil {
		return nil, fmt.Errorf("list lecturers: %w", err)
	}
	return lecturers, nil
}

// LecturerInDepartment reports whether the lecturer belongs to the department,
// either by home department or by teaching one of its courses.
func (r *DirectoryRepository) LecturerInDepartment(ctx context.Context, lecturerID, departmentID string) (bool, error) {
	const query = `SELECT EXISTS (
  SELECT 1 FROM users u WHERE u.id = $1 AND u.role = 'lecturer' AND u.department_id = $2
  UNION
  SELECT 1 FROM course_lecturers cl JOIN courses c ON c.id = cl.course_id
  WHERE cl.lecturer_id = $1 AND c.department_id = $2
)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, lecturerID, departmentID); err != nil {
		return false, fmt.Errorf("lecturer in department: %w", err)
	}
	return exists, nil
}

// FindDepartmentAdmin returns the department's reviewing admin, used when a
// request has no assigned lecturer. Returns "" when the department has none.
func (r *DirectoryRepository) FindDepartmentAdmin(ctx context.Context, departmentID string) (string, error) {
	const query = `SELECT id FROM users WHERE role = 'admin' AND department_id = $1 ORDER BY registered_at ASC LIMIT 1`
	var id string
	if err := r.db.GetContext(ctx, &id, query, departmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("find department admin: %w", err)
	}
	return id, nil
}
