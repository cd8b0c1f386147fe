package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusdesk/request-portal-api/internal/models"
)

// CommentRepository provides persistence for request thread comments.
// Comments are append-only: there is no update or delete.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository constructs the repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create appends an immutable comment and bumps the parent request's
// updated_at inside one transaction.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin comment: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `INSERT INTO request_comments (id, request_id, author_id, author_role, content, created_at)
VALUES (:id, :request_id, :author_id, :author_role, :content, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE requests SET updated_at = $1 WHERE id = $2", comment.CreatedAt, comment.RequestID); err != nil {
		return fmt.Errorf("touch request: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit comment: %w", err)
	}
	return nil
}

// ListByRequest returns the thread oldest first, ties broken by identifier.
func (r *CommentRepository) ListByRequest(ctx context.Context, requestID string) ([]models.Comment, error) {
	const query = `SELECT id, request_id, author_id, author_role, content, created_at
FROM request_comments WHERE request_id = $1 ORDER BY created_at ASC, id ASC`
	var comments []models.Comment
	if err := r.db.SelectContext(ctx, &comments, query, requestID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}
