package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"authservice/internal/logging"
	"authservice/internal/models"
	"authservice/internal/repositories"
	"authservice/internal/utils"
)

const resetRequestedMessage = "If we found an account associated with that email, we've sent password reset instructions to that email address on the account"

// AuthService drives the account lifecycle: sign-up, sign-in, email
// verification and the two-step password reset. Every operation returns a
// models.Result and never an error.
type AuthService interface {
	SignUp(ctx context.Context, req models.SignUpRequest) models.Result
	SignIn(ctx context.Context, req models.LoginRequest) models.Result
	VerifyAccount(ctx context.Context, req models.VerifyAccountRequest) models.Result
	InitiateReset(ctx context.Context, email string) models.Result
	VerifyReset(ctx context.Context, token string) models.Result
	ResetPassword(ctx context.Context, req models.ResetPasswordRequest) models.Result
}

// Deps are the collaborators shared by AuthService and UserService.
type Deps struct {
	Accounts      repositories.AccountRepository
	Tokens        TokenService
	Credentials   CredentialService
	Sessions      SessionService
	TOTP          TOTPService
	Notifications NotificationQueue
	Templates     Templates
	Clock         utils.Clock
	Logger        *zap.Logger
	Debug         bool
}

func (d *Deps) defaults() {
	if d.Clock == nil {
		d.Clock = utils.SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
}

type authService struct {
	Deps
	guard resultGuard
	log   *zap.Logger
}

func NewAuthService(d Deps) AuthService {
	d.defaults()
	log := d.Logger.Named("auth")
	return &authService{Deps: d, guard: resultGuard{log: log, debug: d.Debug}, log: log}
}

func conflict(field models.Identifier) models.Result {
	return models.WithCode(http.StatusConflict, false,
		fmt.Sprintf("This %s has been used to open an account on this platform", field), nil)
}

func (s *authService) SignUp(ctx context.Context, req models.SignUpRequest) (res models.Result) {
	defer s.guard.recover("sign_up", &res)

	fields := req.Fields()
	acc := models.NewAccount(fields, "", s.Clock.Now())

	// по очереди, первое совпадение выигрывает
	checks := []struct {
		field models.Identifier
		value string
	}{
		{models.IdentifierEmail, acc.Email},
		{models.IdentifierPhone, acc.Phone},
		{models.IdentifierUsername, acc.Username},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		taken, err := s.Accounts.ExistsBy(ctx, c.field, c.value)
		if err != nil {
			return s.guard.internal("sign_up", err)
		}
		if taken {
			s.log.Info("sign-up conflict", zap.String("field", string(c.field)))
			return conflict(c.field)
		}
	}

	hash, err := s.Credentials.Hash(req.Password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return passwordTooLong
		}
		return s.guard.internal("sign_up", err)
	}
	acc.PasswordHash = hash

	if err := s.Accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			// проиграли гонку с параллельной регистрацией
			return conflict("identifier")
		}
		return s.guard.internal("sign_up", err)
	}

	token, err := s.Tokens.Issue(ctx, acc.ID, models.PurposeVerify, models.MediumEmail)
	if err != nil {
		return s.guard.internal("sign_up", err)
	}
	s.Notifications.Enqueue(s.Templates.Welcome(acc.Email, acc.FirstName, token))

	s.log.Info("account created", zap.String("account_id", acc.ID.String()), zap.String("email", logging.MaskEmail(acc.Email)))
	return models.WithCode(http.StatusCreated, true, "Registration Successful", acc.Profile())
}

func (s *authService) SignIn(ctx context.Context, req models.LoginRequest) (res models.Result) {
	defer s.guard.recover("sign_in", &res)

	invalid := models.WithCode(http.StatusUnauthorized, false, "Invalid username or password", nil)

	acc, err := s.Accounts.FindByIdentifier(ctx, req.User)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return invalid
		}
		return s.guard.internal("sign_in", err)
	}
	if !s.Credentials.Verify(req.Password, acc.PasswordHash) {
		s.log.Info("sign-in rejected: bad password", zap.String("account_id", acc.ID.String()))
		return invalid
	}
	if !acc.Active {
		return models.WithCode(http.StatusForbidden, false, "Account is banned contact admin", nil)
	}
	if !acc.EmailVerified {
		token, err := s.Tokens.Issue(ctx, acc.ID, models.PurposeVerify, models.MediumEmail)
		if err != nil {
			return s.guard.internal("sign_in", err)
		}
		s.Notifications.Enqueue(s.Templates.VerifyEmail(acc.Email, token))
		return models.WithCode(models.StatusNeedsVerification, false, "Please verify your email", nil)
	}

	session, err := s.Sessions.Issue(acc.ID, acc.LoginValidFrom)
	if err != nil {
		return s.guard.internal("sign_in", err)
	}
	s.log.Info("sign-in", zap.String("account_id", acc.ID.String()))
	return models.OK("Login successful", models.SignInData{Token: session, Profile: acc.Profile()})
}

func (s *authService) VerifyAccount(ctx context.Context, req models.VerifyAccountRequest) (res models.Result) {
	defer s.guard.recover("verify_account", &res)

	acc, err := s.Accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.WithCode(http.StatusNotFound, false, "User not found", nil)
		}
		return s.guard.internal("verify_account", err)
	}

	if req.Resend {
		if acc.EmailVerified {
			return models.OK("Profile is already verified", nil)
		}
		token, err := s.Tokens.Issue(ctx, acc.ID, models.PurposeVerify, models.MediumEmail)
		if err != nil {
			return s.guard.internal("verify_account", err)
		}
		s.Notifications.Enqueue(s.Templates.VerifyEmail(acc.Email, token))
		return models.OK("Check your email", nil)
	}

	if _, err := s.Tokens.ConsumeFor(ctx, acc.ID, req.Token, models.PurposeVerify); err != nil {
		return s.guard.tokenFailure("verify_account", err)
	}
	if err := s.Accounts.MarkEmailVerified(ctx, acc.ID, s.Clock.Now()); err != nil {
		return s.guard.internal("verify_account", err)
	}
	s.log.Info("email verified", zap.String("account_id", acc.ID.String()))
	return models.WithCode(http.StatusAccepted, true, "Account verified", nil)
}

// InitiateReset answers the same way whether or not the email is known.
func (s *authService) InitiateReset(ctx context.Context, email string) (res models.Result) {
	defer s.guard.recover("initiate_reset", &res)

	done := models.OK(resetRequestedMessage, nil)

	acc, err := s.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.log.Error("initiate reset: lookup failed", zap.Error(err))
		}
		return done
	}
	token, err := s.Tokens.Issue(ctx, acc.ID, models.PurposeReset, models.MediumEmail)
	if err != nil {
		s.log.Error("initiate reset: issue failed", zap.String("account_id", acc.ID.String()), zap.Error(err))
		return done
	}
	s.Notifications.Enqueue(s.Templates.ResetPassword(acc.Email, token))
	return done
}

func (s *authService) VerifyReset(ctx context.Context, token string) (res models.Result) {
	defer s.guard.recover("verify_reset", &res)

	t, err := s.Tokens.Consume(ctx, token, models.PurposeReset)
	if err != nil {
		return s.guard.tokenFailure("verify_reset", err)
	}
	update, err := s.Tokens.Issue(ctx, t.AccountID, models.PurposeUpdate, models.MediumAny)
	if err != nil {
		return s.guard.internal("verify_reset", err)
	}
	return models.WithCode(http.StatusAccepted, true, "Valid token", update)
}

func (s *authService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) (res models.Result) {
	defer s.guard.recover("reset_password", &res)

	// хешируем до consume: отказ по паролю не должен сжигать токен
	hash, err := s.Credentials.Hash(req.Password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return passwordTooLong
		}
		return s.guard.internal("reset_password", err)
	}
	t, err := s.Tokens.Consume(ctx, req.Token, models.PurposeUpdate)
	if err != nil {
		return s.guard.tokenFailure("reset_password", err)
	}

	now := models.Watermark(s.Clock.Now())
	var watermark *time.Time
	if req.LogOtherDevicesOut {
		watermark = &now
	}
	if err := s.Accounts.UpdatePassword(ctx, t.AccountID, hash, watermark, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.WithCode(http.StatusNotFound, false, "User not found", nil)
		}
		return s.guard.internal("reset_password", err)
	}
	s.log.Info("password reset", zap.String("account_id", t.AccountID.String()), zap.Bool("logged_out", req.LogOtherDevicesOut))
	return models.WithCode(http.StatusAccepted, true, "Password updated", nil)
}
