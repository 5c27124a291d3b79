package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"authservice/internal/models"
)

type TOTPRepository interface {
	Get(ctx context.Context, accountID uuid.UUID) (*models.TOTPSecret, error)
	Upsert(ctx context.Context, s *models.TOTPSecret) error
}

type totpRepository struct {
	DB *sql.DB
}

func NewTOTPRepository(db *sql.DB) TOTPRepository {
	return &totpRepository{DB: db}
}

func (r *totpRepository) Get(ctx context.Context, accountID uuid.UUID) (*models.TOTPSecret, error) {
	s := &models.TOTPSecret{}
	err := r.DB.QueryRowContext(ctx,
		`SELECT account_id, secret, url, created_at FROM account_totp WHERE account_id=$1`, accountID,
	).Scan(&s.AccountID, &s.Secret, &s.URL, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("totp get: %w", err)
	}
	return s, nil
}

func (r *totpRepository) Upsert(ctx context.Context, s *models.TOTPSecret) error {
	const q = `
		INSERT INTO account_totp (account_id, secret, url, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE
		SET secret = EXCLUDED.secret, url = EXCLUDED.url, created_at = EXCLUDED.created_at
	`
	if _, err := r.DB.ExecContext(ctx, q, s.AccountID, s.Secret, s.URL, s.CreatedAt); err != nil {
		return fmt.Errorf("totp upsert: %w", err)
	}
	return nil
}
