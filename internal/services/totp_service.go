package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"authservice/internal/models"
	"authservice/internal/repositories"
	"authservice/internal/utils"
)

const (
	totpPeriod = 30
	qrSize     = 256
)

type TOTPOptions struct {
	Issuer string
	Skew   uint
	// Strict accepts only the current time step.
	Strict bool
}

type TOTPService interface {
	Provision(ctx context.Context, account *models.Account) (*models.TOTPProvisioning, error)
	Validate(ctx context.Context, accountID uuid.UUID, code string) (bool, error)
	Regenerate(ctx context.Context, account *models.Account) (*models.TOTPProvisioning, error)
}

type totpService struct {
	repo  repositories.TOTPRepository
	opts  TOTPOptions
	clock utils.Clock
}

func NewTOTPService(repo repositories.TOTPRepository, opts TOTPOptions, clock utils.Clock) TOTPService {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &totpService{repo: repo, opts: opts, clock: clock}
}

// Provision returns the account's secret, creating it on first use.
func (s *totpService) Provision(ctx context.Context, account *models.Account) (*models.TOTPProvisioning, error) {
	secret, err := s.repo.Get(ctx, account.ID)
	switch {
	case err == nil:
		return provisioning(secret.URL)
	case errors.Is(err, repositories.ErrNotFound):
		return s.Regenerate(ctx, account)
	default:
		return nil, fmt.Errorf("totp provision: %w", err)
	}
}

// Regenerate replaces the secret; codes derived from the old one stop validating.
func (s *totpService) Regenerate(ctx context.Context, account *models.Account) (*models.TOTPProvisioning, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.opts.Issuer,
		AccountName: account.Email,
		Period:      totpPeriod,
		SecretSize:  32,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("totp generate: %w", err)
	}
	err = s.repo.Upsert(ctx, &models.TOTPSecret{
		AccountID: account.ID,
		Secret:    key.Secret(),
		URL:       key.URL(),
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("totp store: %w", err)
	}
	return provisioning(key.URL())
}

func (s *totpService) Validate(ctx context.Context, accountID uuid.UUID, code string) (bool, error) {
	secret, err := s.repo.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("totp validate: %w", err)
	}
	skew := s.opts.Skew
	if s.opts.Strict {
		skew = 0
	}
	ok, err := totp.ValidateCustom(code, secret.Secret, s.clock.Now(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		// неверный формат кода, не ошибка сервиса
		return false, nil
	}
	return ok, nil
}

func provisioning(otpURL string) (*models.TOTPProvisioning, error) {
	key, err := otp.NewKeyFromURL(otpURL)
	if err != nil {
		return nil, fmt.Errorf("totp url: %w", err)
	}
	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return nil, fmt.Errorf("totp qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("totp qr encode: %w", err)
	}
	return &models.TOTPProvisioning{
		URL:    otpURL,
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}
