package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"authservice/internal/models"
	"authservice/internal/repositories"
	"authservice/internal/utils"
)

const maxIssueAttempts = 5

// TokenPolicy shapes a one-time token: its alphabet, length and lifetime.
type TokenPolicy struct {
	Charset utils.Charset
	Length  int
	TTL     time.Duration
}

// TokenPolicies holds the policy per flow.
type TokenPolicies struct {
	Verify TokenPolicy
	Phone  TokenPolicy
	Reset  TokenPolicy
	Update TokenPolicy
}

func DefaultTokenPolicies() TokenPolicies {
	return TokenPolicies{
		Verify: TokenPolicy{Charset: utils.CharsetAlphanumeric, Length: 32, TTL: 24 * time.Hour},
		Phone:  TokenPolicy{Charset: utils.CharsetNumeric, Length: 6, TTL: 10 * time.Minute},
		Reset:  TokenPolicy{Charset: utils.CharsetAlphanumeric, Length: 32, TTL: time.Hour},
		Update: TokenPolicy{Charset: utils.CharsetAlphanumeric, Length: 48, TTL: 15 * time.Minute},
	}
}

func (p TokenPolicies) For(purpose models.Purpose) TokenPolicy {
	switch purpose {
	case models.PurposePhone:
		return p.Phone
	case models.PurposeReset:
		return p.Reset
	case models.PurposeUpdate:
		return p.Update
	}
	return p.Verify
}

type TokenService interface {
	Issue(ctx context.Context, accountID uuid.UUID, purpose models.Purpose, medium models.Medium) (string, error)
	IssueWith(ctx context.Context, accountID uuid.UUID, purpose models.Purpose, medium models.Medium, policy TokenPolicy) (string, error)
	Consume(ctx context.Context, value string, purpose models.Purpose) (*models.Token, error)
	ConsumeFor(ctx context.Context, accountID uuid.UUID, value string, purpose models.Purpose) (*models.Token, error)
	PurgeStale(ctx context.Context, before time.Time) (int64, error)
}

type tokenService struct {
	repo     repositories.TokenRepository
	policies TokenPolicies
	clock    utils.Clock
	log      *zap.Logger
}

func NewTokenService(repo repositories.TokenRepository, policies TokenPolicies, clock utils.Clock, log *zap.Logger) TokenService {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &tokenService{repo: repo, policies: policies, clock: clock, log: log.Named("tokens")}
}

func (s *tokenService) Issue(ctx context.Context, accountID uuid.UUID, purpose models.Purpose, medium models.Medium) (string, error) {
	return s.IssueWith(ctx, accountID, purpose, medium, s.policies.For(purpose))
}

// IssueWith mints a token and makes it the only live one for (account, purpose).
// The plaintext is returned for out-of-band delivery only.
func (s *tokenService) IssueWith(ctx context.Context, accountID uuid.UUID, purpose models.Purpose, medium models.Medium, policy TokenPolicy) (string, error) {
	if !purpose.Valid() {
		return "", fmt.Errorf("issue token: unknown purpose %q", purpose)
	}
	if policy.TTL <= 0 {
		return "", fmt.Errorf("issue token: non-positive ttl %s", policy.TTL)
	}

	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		value, err := utils.RandomString(policy.Charset, policy.Length)
		if err != nil {
			return "", fmt.Errorf("issue token: %w", err)
		}
		now := s.clock.Now()
		t := &models.Token{
			ID:        uuid.New(),
			AccountID: accountID,
			Value:     value,
			Purpose:   purpose,
			Medium:    medium,
			ExpiresAt: now.Add(policy.TTL),
			CreatedAt: now,
		}
		err = s.repo.Replace(ctx, t)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, repositories.ErrDuplicate) {
			return "", fmt.Errorf("issue token: %w", err)
		}
		// коллизия с живым токеном, генерируем заново
		s.log.Warn("token collision", zap.String("purpose", string(purpose)), zap.Int("attempt", attempt))
	}
	return "", fmt.Errorf("issue token: %w: %d collisions in a row", ErrInternal, maxIssueAttempts)
}

// Consume burns the token even when it turns out to be expired.
func (s *tokenService) Consume(ctx context.Context, value string, purpose models.Purpose) (*models.Token, error) {
	return s.consume(ctx, value, purpose, uuid.NullUUID{})
}

// ConsumeFor only matches tokens owned by accountID, so a wrong guess never
// burns someone else's token.
func (s *tokenService) ConsumeFor(ctx context.Context, accountID uuid.UUID, value string, purpose models.Purpose) (*models.Token, error) {
	return s.consume(ctx, value, purpose, uuid.NullUUID{UUID: accountID, Valid: true})
}

func (s *tokenService) consume(ctx context.Context, value string, purpose models.Purpose, owner uuid.NullUUID) (*models.Token, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrInvalidToken
	}
	now := s.clock.Now()
	t, err := s.repo.Consume(ctx, value, purpose, owner, now)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("consume token: %w", err)
	}
	if t.Expired(now) {
		return nil, ErrTokenExpired
	}
	return t, nil
}

func (s *tokenService) PurgeStale(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.repo.PurgeStale(ctx, before)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("stale tokens purged", zap.Int64("count", n))
	}
	return n, nil
}
