package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"classroom_api/internal/model"

	"github.com/jackc/pgx/v5"
)

// UserRepository defines operations for user data
type UserRepository interface {
	CreateWithProfile(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int) (*model.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id int) error

	List(ctx context.Context, filters model.UserFilters) ([]model.User, error)
	UpdateDetails(ctx context.Context, user *model.User) error
	UpdateStatus(ctx context.Context, id int, status string) error
	SoftDelete(ctx context.Context, id int) error
}

type userRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, phone_number, role, status, email_verified, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.PhoneNumber,
		&u.Role, &u.Status, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateWithProfile inserts the user and its empty role profile in one transaction.
// Admins get no profile row.
func (r *userRepository) CreateWithProfile(ctx context.Context, user *model.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	sql := `INSERT INTO users (email, password_hash, first_name, last_name, phone_number, role, status)
            VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, email_verified, created_at, updated_at`
	err = tx.QueryRow(ctx, sql, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.PhoneNumber, user.Role, user.Status).Scan(&user.ID, &user.EmailVerified, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	switch user.Role {
	case model.RoleTeacher:
		_, err = tx.Exec(ctx, `INSERT INTO teacher_profiles (user_id) VALUES ($1)`, user.ID)
	case model.RoleStudent:
		_, err = tx.Exec(ctx, `INSERT INTO student_profiles (user_id) VALUES ($1)`, user.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user creation: %w", err)
	}
	return nil
}

// FindByEmail retrieves a user by email. Returns nil, nil when absent.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return u, nil
}

// FindByID retrieves a user by their ID
func (r *userRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return u, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET email_verified = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List retrieves non-deleted users with optional filters
func (r *userRepository) List(ctx context.Context, filters model.UserFilters) ([]model.User, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + userColumns + ` FROM users WHERE status <> 'deleted'`)

	args := []interface{}{}
	argCount := 1
	if filters.Role != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND role = $%d", argCount))
		args = append(args, *filters.Role)
		argCount++
	}
	if filters.Status != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND status = $%d", argCount))
		args = append(args, *filters.Status)
		argCount++
	}
	if filters.Search != nil && *filters.Search != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND (email ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d)",
			argCount, argCount, argCount))
		args = append(args, "%"+*filters.Search+"%")
	}
	queryBuilder.WriteString(" ORDER BY id")

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

// UpdateDetails writes the self-editable fields of user
func (r *userRepository) UpdateDetails(ctx context.Context, user *model.User) error {
	sql := `UPDATE users SET first_name = $1, last_name = $2, phone_number = $3
            WHERE id = $4 AND status <> 'deleted' RETURNING updated_at`
	err := r.db.QueryRow(ctx, sql, user.FirstName, user.LastName, user.PhoneNumber, user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *userRepository) UpdateStatus(ctx context.Context, id int, status string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET status = $1 WHERE id = $2 AND status <> 'deleted'`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete anonymizes the account and marks it deleted. The row stays for foreign keys.
func (r *userRepository) SoftDelete(ctx context.Context, id int) error {
	sql := `UPDATE users
            SET status = 'deleted', email = 'deleted-' || id || '@example.com',
                first_name = 'Deleted', last_name = 'User', phone_number = NULL
            WHERE id = $1 AND status <> 'deleted'`
	tag, err := r.db.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
