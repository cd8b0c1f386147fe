package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusdesk/request-portal-api/internal/models"
)

// UserRepository provides persistence for portal accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, full_name, id_number, role, department_id, registered_at, updated_at`

// Create inserts a new account.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.RegisteredAt.IsZero() {
		user.RegisteredAt = now
	}
	user.UpdatedAt = now
	query := `INSERT INTO users (id, email, password_hash, full_name, id_number, role, department_id, registered_at, updated_at)
VALUES (:id, :email, :password_hash, :full_name, :id_number, :role, :department_id, :registered_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByEmail returns the account for an email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns the account for an identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3", passwordHash, updatedAt, id); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// CreateResetToken stores a single-use password reset token.
func (r *UserRepository) CreateResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO password_reset_tokens (id, user_id, token, expires_at, used_at, created_at)
VALUES (:id, :user_id, :token, :expires_at, :used_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}
	return nil
}

// FindResetToken returns an unused, unexpired reset token for a user.
func (r *UserRepository) FindResetToken(ctx context.Context, userID, token string) (*models.PasswordResetToken, error) {
	const query = `SELECT id, user_id, token, expires_at, used_at, created_at
FROM password_reset_tokens
WHERE user_id = $1 AND token = $2 AND used_at IS NULL AND expires_at > $3`
	var reset models.PasswordResetToken
	if err := r.db.GetContext(ctx, &reset, query, userID, token, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &reset, nil
}

// MarkResetTokenUsed consumes a reset token.
func (r *UserRepository) MarkResetTokenUsed(ctx context.Context, id string, usedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE password_reset_tokens SET used_at = $1 WHERE id = $2", usedAt, id); err != nil {
		return fmt.Errorf("mark reset token used: %w", err)
	}
	return nil
}
