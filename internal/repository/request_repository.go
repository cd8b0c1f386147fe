package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusdesk/request-portal-api/internal/models"
)

const requestColumns = `id, student_id, request_type, subject, description, attachment_ref, assigned_lecturer_id, department_id, status, submitted_at, updated_at`

// ErrUnknownField is returned when an update names a column outside the
// allowed set.
type ErrUnknownField struct {
	Field string
}

func (e ErrUnknownField) Error() string {
	return fmt.Sprintf("unknown request field %q", e.Field)
}

// updatableRequestFields is the closed set of columns UpdateFields may touch.
var updatableRequestFields = map[string]struct{}{
	"status":               {},
	"department_id":        {},
	"assigned_lecturer_id": {},
	"updated_at":           {},
}

// RequestRepository provides persistence for service requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request with a fresh identifier and pending status.
func (r *RequestRepository) Create(ctx context.Context, request *models.Request) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.SubmittedAt.IsZero() {
		request.SubmittedAt = now
	}
	request.UpdatedAt = now
	if request.Status == "" {
		request.Status = models.StatusPending
	}
	query := `INSERT INTO requests (id, student_id, request_type, subject, description, attachment_ref, assigned_lecturer_id, department_id, status, submitted_at, updated_at)
VALUES (:id, :student_id, :request_type, :subject, :description, :attachment_ref, :assigned_lecturer_id, :department_id, :status, :submitted_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetByID returns a request by identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	query := fmt.Sprintf("SELECT %s FROM requests WHERE id = $1", requestColumns)
	var request models.Request
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter, newest submissions first.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error) {
	base := "FROM requests"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.AssignedLecturerID != "" {
		where = append(where, fmt.Sprintf("assigned_lecturer_id = $%d", len(args)+1))
		args = append(args, filter.AssignedLecturerID)
	}
	if filter.DepartmentID != "" {
		where = append(where, fmt.Sprintf("department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		where = append(where, fmt.Sprintf("request_type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s
%s WHERE %s ORDER BY submitted_at DESC LIMIT %d OFFSET %d`, requestColumns, base, whereClause, size, offset)
	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}
	return requests, total, nil
}

// UpdateFields applies a partial update restricted to the allowed columns and
// returns the updated row. An unknown column yields ErrUnknownField before any
// write happens.
func (r *RequestRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*models.Request, error) {
	if len(fields) == 0 {
		return r.GetByID(ctx, id)
	}
	set := make([]string, 0, len(fields)+1)
	args := []interface{}{}
	for column, value := range fields {
		if _, ok := updatableRequestFields[column]; !ok {
			return nil, ErrUnknownField{Field: column}
		}
		if column == "updated_at" {
			continue
		}
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)+1))
		args = append(args, value)
	}
	set = append(set, fmt.Sprintf("updated_at = $%d", len(args)+1))
	args = append(args, time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE requests SET %s WHERE id = $%d RETURNING %s",
		strings.Join(set, ", "), len(args), requestColumns)
	var request models.Request
	if err := r.db.GetContext(ctx, &request, query, args...); err != nil {
		return nil, err
	}
	return &request, nil
}

// TransitionTx atomically updates the request status and, when feedback is
// provided, appends the feedback comment in the same transaction. Either both
// writes commit or neither does.
func (r *RequestRepository) TransitionTx(ctx context.Context, id string, status models.RequestStatus, feedback *models.Comment) (*models.Request, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := fmt.Sprintf(`UPDATE requests SET status = $1, updated_at = $2 WHERE id = $3 RETURNING %s`, requestColumns)
	var request models.Request
	if err := tx.GetContext(ctx, &request, query, status, time.Now().UTC(), id); err != nil {
		return nil, err
	}

	if feedback != nil {
		if feedback.ID == "" {
			feedback.ID = uuid.NewString()
		}
		if feedback.CreatedAt.IsZero() {
			feedback.CreatedAt = time.Now().UTC()
		}
		feedback.RequestID = request.ID
		insert := `INSERT INTO request_comments (id, request_id, author_id, author_role, content, created_at)
VALUES (:id, :request_id, :author_id, :author_role, :content, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insert, feedback); err != nil {
			return nil, fmt.Errorf("append transition feedback: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return &request, nil
}
