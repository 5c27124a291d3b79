package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"authservice/internal/models"
)

// SessionClaims is what a verified session credential carries.
// Watermark is unix milliseconds.
type SessionClaims struct {
	AccountID uuid.UUID
	Watermark int64
}

type SessionService interface {
	Issue(accountID uuid.UUID, watermark time.Time) (string, error)
	Verify(token string) (*SessionClaims, error)
	Authorize(claims *SessionClaims, account *models.Account) error
}

// jwtClaims has no exp: a session lives until the account watermark moves past lvf.
type jwtClaims struct {
	LoginValidFrom *int64 `json:"lvf"`
	jwt.RegisteredClaims
}

type sessionService struct {
	secret []byte
}

func NewSessionService(secret string) SessionService {
	return &sessionService{secret: []byte(secret)}
}

func (s *sessionService) Issue(accountID uuid.UUID, watermark time.Time) (string, error) {
	lvf := models.Watermark(watermark).UnixMilli()
	claims := &jwtClaims{
		LoginValidFrom: &lvf,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  accountID.String(),
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

func (s *sessionService) Verify(token string) (*SessionClaims, error) {
	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if claims.Subject == "" || claims.LoginValidFrom == nil {
		return nil, fmt.Errorf("%w: missing sub or lvf", ErrInvalidCredential)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidCredential)
	}
	return &SessionClaims{AccountID: id, Watermark: *claims.LoginValidFrom}, nil
}

// Authorize rejects credentials minted before the account's current watermark.
func (s *sessionService) Authorize(claims *SessionClaims, account *models.Account) error {
	if claims == nil || account == nil {
		return ErrUnauthorized
	}
	if claims.AccountID != account.ID {
		return ErrUnauthorized
	}
	if account.Deleted || !account.Active {
		return ErrUnauthorized
	}
	if claims.Watermark < models.Watermark(account.LoginValidFrom).UnixMilli() {
		return errors.Join(ErrUnauthorized, errors.New("session predates login_valid_from"))
	}
	return nil
}
