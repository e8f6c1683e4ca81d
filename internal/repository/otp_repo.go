package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classroom_api/internal/model"

	"github.com/jackc/pgx/v5"
)

// OtpRepository persists one-time codes. Both write paths run in a single transaction.
type OtpRepository interface {
	// ReplaceActive consumes every outstanding code for (user, purpose) and inserts code.
	// beforeCommit, when set, runs inside the transaction; an error from it rolls the replacement back.
	ReplaceActive(ctx context.Context, code *model.OtpCode, beforeCommit func(ctx context.Context) error) error
	// UpdateLatest locks the newest code for (user, purpose), passes it to fn (nil when none exists)
	// and persists its attempts/consumed state afterwards, whether or not fn returned an error.
	UpdateLatest(ctx context.Context, userID int, purpose string, fn func(code *model.OtpCode) error) error
	PurgeStale(ctx context.Context, before time.Time) (int64, error)
}

type otpRepository struct {
	db DB
}

func NewOtpRepository(db DB) OtpRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) ReplaceActive(ctx context.Context, code *model.OtpCode, beforeCommit func(ctx context.Context) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// serializes concurrent issuance for the same user
	var lockedID int
	err = tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, code.UserID).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to lock user: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE otp_codes SET consumed = TRUE, consumed_at = $3
                           WHERE user_id = $1 AND purpose = $2 AND NOT consumed`,
		code.UserID, code.Purpose, code.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to invalidate previous codes: %w", err)
	}

	err = tx.QueryRow(ctx, `INSERT INTO otp_codes (user_id, purpose, code_hash, created_at, expires_at)
                            VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		code.UserID, code.Purpose, code.CodeHash, code.CreatedAt, code.ExpiresAt).Scan(&code.ID)
	if err != nil {
		return fmt.Errorf("failed to insert code: %w", err)
	}

	if beforeCommit != nil {
		if err := beforeCommit(ctx); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit code replacement: %w", err)
	}
	return nil
}

func (r *otpRepository) UpdateLatest(ctx context.Context, userID int, purpose string, fn func(code *model.OtpCode) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	code := &model.OtpCode{}
	sql := `SELECT id, user_id, purpose, code_hash, attempts, consumed, created_at, expires_at, consumed_at
            FROM otp_codes WHERE user_id = $1 AND purpose = $2
            ORDER BY created_at DESC, id DESC LIMIT 1 FOR UPDATE`
	err = tx.QueryRow(ctx, sql, userID, purpose).Scan(&code.ID, &code.UserID, &code.Purpose, &code.CodeHash,
		&code.Attempts, &code.Consumed, &code.CreatedAt, &code.ExpiresAt, &code.ConsumedAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to load latest code: %w", err)
		}
		return fn(nil)
	}

	fnErr := fn(code)

	_, err = tx.Exec(ctx, `UPDATE otp_codes SET attempts = $1, consumed = $2, consumed_at = $3 WHERE id = $4`,
		code.Attempts, code.Consumed, code.ConsumedAt, code.ID)
	if err != nil {
		return fmt.Errorf("failed to update code: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit code update: %w", err)
	}
	return fnErr
}

// PurgeStale deletes codes that expired or were consumed before the cutoff.
func (r *otpRepository) PurgeStale(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM otp_codes WHERE expires_at < $1 OR (consumed AND consumed_at < $1)`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge codes: %w", err)
	}
	return tag.RowsAffected(), nil
}
