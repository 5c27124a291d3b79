package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"authservice/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, a *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.Account, error)
	ExistsBy(ctx context.Context, field models.Identifier, value string) (bool, error)
	UpdateProfile(ctx context.Context, a *models.Account) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, loginValidFrom *time.Time, now time.Time) error
	SetLoginValidFrom(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID, now time.Time) error
	MarkPhoneVerified(ctx context.Context, id uuid.UUID, now time.Time) error
	List(ctx context.Context, f models.AccountFilter) ([]*models.Account, int, error)
}

type accountRepository struct {
	DB *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{DB: db}
}

const accountColumns = `
	id, email, phone, username, first_name, last_name, other_names, avatar, location,
	password_hash, email_verified, phone_verified, active, deleted, role, permissions,
	login_valid_from, created_at, updated_at`

func scanAccount(row rowScanner) (*models.Account, error) {
	a := &models.Account{}
	var phone, username sql.NullString
	err := row.Scan(
		&a.ID, &a.Email, &phone, &username, &a.FirstName, &a.LastName, &a.OtherNames, &a.Avatar, &a.Location,
		&a.PasswordHash, &a.EmailVerified, &a.PhoneVerified, &a.Active, &a.Deleted, &a.Role, pq.Array(&a.Permissions),
		&a.LoginValidFrom, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Phone = phone.String
	a.Username = username.String
	if a.Permissions == nil {
		a.Permissions = []string{}
	}
	return a, nil
}

func (r *accountRepository) Create(ctx context.Context, a *models.Account) error {
	const q = `
		INSERT INTO accounts (
			id, email, phone, username, first_name, last_name, other_names, avatar, location,
			password_hash, email_verified, phone_verified, active, deleted, role, permissions,
			login_valid_from, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`
	_, err := r.DB.ExecContext(ctx, q,
		a.ID, a.Email, nullString(a.Phone), nullString(a.Username),
		a.FirstName, a.LastName, a.OtherNames, a.Avatar, a.Location,
		a.PasswordHash, a.EmailVerified, a.PhoneVerified, a.Active, a.Deleted,
		a.Role, pq.Array(a.Permissions),
		a.LoginValidFrom, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("account create: %w", err)
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND NOT deleted`
	a, err := scanAccount(r.DB.QueryRowContext(ctx, q, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("account by id: %w", err)
	}
	return a, err
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 AND NOT deleted`
	a, err := scanAccount(r.DB.QueryRowContext(ctx, q, strings.ToLower(strings.TrimSpace(email))))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("account by email: %w", err)
	}
	return a, err
}

// FindByIdentifier matches the identifier against email, phone or username.
func (r *accountRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.Account, error) {
	identifier = strings.TrimSpace(identifier)
	q := `SELECT ` + accountColumns + `
		FROM accounts
		WHERE NOT deleted AND (email = LOWER($1) OR phone = $1 OR username = $1)
		ORDER BY created_at
		LIMIT 1`
	a, err := scanAccount(r.DB.QueryRowContext(ctx, q, identifier))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("account by identifier: %w", err)
	}
	return a, err
}

// ExistsBy also counts soft-deleted rows: their unique values are still taken.
func (r *accountRepository) ExistsBy(ctx context.Context, field models.Identifier, value string) (bool, error) {
	var column string
	switch field {
	case models.IdentifierEmail:
		column = "email"
		value = strings.ToLower(strings.TrimSpace(value))
	case models.IdentifierPhone:
		column = "phone"
	case models.IdentifierUsername:
		column = "username"
	default:
		return false, fmt.Errorf("unknown identifier %q", field)
	}
	var exists bool
	q := `SELECT EXISTS(SELECT 1 FROM accounts WHERE ` + column + ` = $1)`
	if err := r.DB.QueryRowContext(ctx, q, value).Scan(&exists); err != nil {
		return false, fmt.Errorf("account exists by %s: %w", column, err)
	}
	return exists, nil
}

func (r *accountRepository) UpdateProfile(ctx context.Context, a *models.Account) error {
	const q = `
		UPDATE accounts
		SET first_name=$1, last_name=$2, other_names=$3, avatar=$4, location=$5, updated_at=$6
		WHERE id=$7 AND NOT deleted
	`
	res, err := r.DB.ExecContext(ctx, q,
		a.FirstName, a.LastName, a.OtherNames, a.Avatar, a.Location, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("account update profile: %w", err)
	}
	return expectAffected(res)
}

// UpdatePassword stores a new hash; a non-nil loginValidFrom also moves the session watermark.
func (r *accountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, loginValidFrom *time.Time, now time.Time) error {
	const q = `
		UPDATE accounts
		SET password_hash=$1, login_valid_from=COALESCE($2, login_valid_from), updated_at=$3
		WHERE id=$4 AND NOT deleted
	`
	var lvf sql.NullTime
	if loginValidFrom != nil {
		lvf = sql.NullTime{Time: *loginValidFrom, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx, q, hash, lvf, now, id)
	if err != nil {
		return fmt.Errorf("account update password: %w", err)
	}
	return expectAffected(res)
}

func (r *accountRepository) SetLoginValidFrom(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE accounts SET login_valid_from=$1, updated_at=$1 WHERE id=$2 AND NOT deleted`, at, id)
	if err != nil {
		return fmt.Errorf("account set login_valid_from: %w", err)
	}
	return expectAffected(res)
}

func (r *accountRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID, now time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE accounts SET email_verified=TRUE, updated_at=$1 WHERE id=$2 AND NOT deleted`, now, id)
	if err != nil {
		return fmt.Errorf("account mark email verified: %w", err)
	}
	return expectAffected(res)
}

func (r *accountRepository) MarkPhoneVerified(ctx context.Context, id uuid.UUID, now time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE accounts SET phone_verified=TRUE, updated_at=$1 WHERE id=$2 AND NOT deleted`, now, id)
	if err != nil {
		return fmt.Errorf("account mark phone verified: %w", err)
	}
	return expectAffected(res)
}

func (r *accountRepository) List(ctx context.Context, f models.AccountFilter) ([]*models.Account, int, error) {
	f.Normalize()

	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Name != "" {
		add("(first_name || ' ' || last_name || ' ' || other_names) ILIKE $%d", "%"+f.Name+"%")
	}
	if f.Email != "" {
		add("email ILIKE $%d", "%"+f.Email+"%")
	}
	if f.Phone != "" {
		add("phone LIKE $%d", "%"+f.Phone+"%")
	}
	if f.Role != "" {
		add("role = $%d", f.Role)
	}
	if f.EmailVerified != nil {
		add("email_verified = $%d", *f.EmailVerified)
	}
	if f.PhoneVerified != nil {
		add("phone_verified = $%d", *f.PhoneVerified)
	}
	if f.Active != nil {
		add("active = $%d", *f.Active)
	}
	if f.Deleted != nil {
		add("deleted = $%d", *f.Deleted)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("account count: %w", err)
	}

	pageArgs := append(append([]any{}, args...), f.PageSize, f.Offset())
	q := fmt.Sprintf(`SELECT %s FROM accounts%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		accountColumns, clause, len(args)+1, len(args)+2)
	rows, err := r.DB.QueryContext(ctx, q, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("account list: %w", err)
	}
	defer rows.Close()

	res := []*models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("account list scan: %w", err)
		}
		res = append(res, a)
	}
	return res, total, rows.Err()
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
