package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"authservice/internal/models"
)

type TokenRepository interface {
	Replace(ctx context.Context, t *models.Token) error
	// Consume burns a live token. A valid owner restricts the match to that
	// account; another account's token is then left untouched.
	Consume(ctx context.Context, value string, purpose models.Purpose, owner uuid.NullUUID, now time.Time) (*models.Token, error)
	PurgeStale(ctx context.Context, before time.Time) (int64, error)
}

type tokenRepository struct {
	DB *sql.DB
}

func NewTokenRepository(db *sql.DB) TokenRepository {
	return &tokenRepository{DB: db}
}

// Replace deactivates every live token of t's account and purpose and inserts t,
// in one transaction. Live tokens are unique per (purpose, token) and per
// (account_id, purpose): a concurrent Replace for the same account blocks on the
// index until the other commits, then fails with ErrDuplicate and is retried by
// the issuer. Either clash leaves the previous tokens untouched.
func (r *tokenRepository) Replace(ctx context.Context, t *models.Token) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("token replace begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE tokens SET active=FALSE, updated_at=$3
		WHERE account_id=$1 AND purpose=$2 AND active
	`, t.AccountID, t.Purpose, t.CreatedAt); err != nil {
		return fmt.Errorf("token deactivate: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tokens (id, account_id, token, purpose, medium, active, expires_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,TRUE,$6,$7,$7)
	`, t.ID, t.AccountID, t.Value, t.Purpose, t.Medium, t.ExpiresAt, t.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("token insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("token replace commit: %w", err)
	}
	t.Active = true
	t.UpdatedAt = t.CreatedAt
	return nil
}

// Consume flips a live token to inactive and returns it. The update is a
// compare-and-swap on active, so two concurrent consumers cannot both win.
// Expiry is not checked here: an expired token is still burned.
func (r *tokenRepository) Consume(ctx context.Context, value string, purpose models.Purpose, owner uuid.NullUUID, now time.Time) (*models.Token, error) {
	const q = `
		UPDATE tokens SET active=FALSE, updated_at=$3
		WHERE token=$1 AND purpose=$2 AND active AND ($4::uuid IS NULL OR account_id=$4)
		RETURNING id, account_id, token, purpose, medium, active, expires_at, created_at, updated_at
	`
	t := &models.Token{}
	err := r.DB.QueryRowContext(ctx, q, value, purpose, now, owner).Scan(
		&t.ID, &t.AccountID, &t.Value, &t.Purpose, &t.Medium, &t.Active, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("token consume: %w", err)
	}
	return t, nil
}

// PurgeStale deletes tokens that were consumed or expired before the cutoff.
func (r *tokenRepository) PurgeStale(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM tokens
		WHERE (NOT active AND updated_at < $1) OR expires_at < $1
	`, before)
	if err != nil {
		return 0, fmt.Errorf("token purge: %w", err)
	}
	return res.RowsAffected()
}
