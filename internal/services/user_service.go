package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"authservice/internal/models"
	"authservice/internal/repositories"
)

// UserService covers what a signed-in account does with itself, plus the
// admin listing.
type UserService interface {
	GetProfile(ctx context.Context, id uuid.UUID) models.Result
	UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) models.Result
	ChangePassword(ctx context.Context, id uuid.UUID, req models.ChangePasswordRequest) models.Result
	LogOtherDevicesOut(ctx context.Context, id uuid.UUID) models.Result
	SignOut(ctx context.Context, id uuid.UUID) models.Result
	VerifyPhone(ctx context.Context, id uuid.UUID, token string) models.Result
	ListAccounts(ctx context.Context, f models.AccountFilter) models.Result
	TOTPProvisioning(ctx context.Context, id uuid.UUID) models.Result
	ValidateTOTP(ctx context.Context, id uuid.UUID, code string) models.Result
	RegenerateTOTP(ctx context.Context, id uuid.UUID) models.Result
}

type userService struct {
	Deps
	guard resultGuard
	log   *zap.Logger
}

func NewUserService(d Deps) UserService {
	d.defaults()
	log := d.Logger.Named("user")
	return &userService{Deps: d, guard: resultGuard{log: log, debug: d.Debug}, log: log}
}

var profileMissing = models.WithCode(http.StatusNotFound, false, "Profile does not exist", nil)

// account loads the caller; ok=false means res is already the answer.
func (s *userService) account(ctx context.Context, op string, id uuid.UUID) (*models.Account, models.Result, bool) {
	acc, err := s.Accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, profileMissing, false
		}
		return nil, s.guard.internal(op, err), false
	}
	return acc, models.Result{}, true
}

func (s *userService) GetProfile(ctx context.Context, id uuid.UUID) (res models.Result) {
	defer s.guard.recover("get_profile", &res)

	acc, res, ok := s.account(ctx, "get_profile", id)
	if !ok {
		return res
	}
	return models.OK("Profile retrieved", acc.Profile())
}

func (s *userService) UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) (res models.Result) {
	defer s.guard.recover("update_profile", &res)

	acc, res, ok := s.account(ctx, "update_profile", id)
	if !ok {
		return res
	}
	upd.Apply(acc)
	acc.UpdatedAt = s.Clock.Now()
	if err := s.Accounts.UpdateProfile(ctx, acc); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return profileMissing
		}
		return s.guard.internal("update_profile", err)
	}
	return models.OK("Profile updated", acc.Profile())
}

// ChangePassword returns a new session only when other devices were logged
// out; otherwise the caller's credential stays valid.
func (s *userService) ChangePassword(ctx context.Context, id uuid.UUID, req models.ChangePasswordRequest) (res models.Result) {
	defer s.guard.recover("change_password", &res)

	acc, res, ok := s.account(ctx, "change_password", id)
	if !ok {
		return res
	}
	if !s.Credentials.Verify(req.OldPassword, acc.PasswordHash) {
		return models.Fail("Old password is invalid")
	}
	hash, err := s.Credentials.Hash(req.NewPassword)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return passwordTooLong
		}
		return s.guard.internal("change_password", err)
	}

	now := models.Watermark(s.Clock.Now())
	var watermark *time.Time
	if req.LogOtherDevicesOut {
		watermark = &now
	}
	if err := s.Accounts.UpdatePassword(ctx, id, hash, watermark, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return profileMissing
		}
		return s.guard.internal("change_password", err)
	}
	s.log.Info("password changed", zap.String("account_id", id.String()), zap.Bool("logged_out", req.LogOtherDevicesOut))

	if !req.LogOtherDevicesOut {
		return models.OK("Password changed", nil)
	}
	session, err := s.Sessions.Issue(id, now)
	if err != nil {
		return s.guard.internal("change_password", err)
	}
	return models.OK("Password changed", models.SessionData{Token: session})
}

func (s *userService) bumpWatermark(ctx context.Context, op string, id uuid.UUID) (time.Time, models.Result, bool) {
	now := models.Watermark(s.Clock.Now())
	if err := s.Accounts.SetLoginValidFrom(ctx, id, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return now, profileMissing, false
		}
		return now, s.guard.internal(op, err), false
	}
	return now, models.Result{}, true
}

func (s *userService) LogOtherDevicesOut(ctx context.Context, id uuid.UUID) (res models.Result) {
	defer s.guard.recover("log_other_devices_out", &res)

	now, res, ok := s.bumpWatermark(ctx, "log_other_devices_out", id)
	if !ok {
		return res
	}
	session, err := s.Sessions.Issue(id, now)
	if err != nil {
		return s.guard.internal("log_other_devices_out", err)
	}
	return models.OK("Other devices logged out", models.SessionData{Token: session})
}

func (s *userService) SignOut(ctx context.Context, id uuid.UUID) (res models.Result) {
	defer s.guard.recover("sign_out", &res)

	if _, res, ok := s.bumpWatermark(ctx, "sign_out", id); !ok {
		return res
	}
	return models.OK("Signed out", nil)
}

// VerifyPhone sends a code when token is empty and checks it otherwise.
func (s *userService) VerifyPhone(ctx context.Context, id uuid.UUID, token string) (res models.Result) {
	defer s.guard.recover("verify_phone", &res)

	acc, res, ok := s.account(ctx, "verify_phone", id)
	if !ok {
		return res
	}
	if acc.Phone == "" {
		return models.Fail("Add a phone number to your profile first")
	}

	if strings.TrimSpace(token) == "" {
		if acc.PhoneVerified {
			return models.OK("Phone is already verified", nil)
		}
		code, err := s.Tokens.Issue(ctx, acc.ID, models.PurposePhone, models.MediumSMS)
		if err != nil {
			return s.guard.internal("verify_phone", err)
		}
		s.Notifications.Enqueue(s.Templates.VerifyPhone(acc.Phone, code))
		return models.OK("OTP sent", nil)
	}

	if _, err := s.Tokens.ConsumeFor(ctx, acc.ID, token, models.PurposePhone); err != nil {
		return s.guard.tokenFailure("verify_phone", err)
	}
	if err := s.Accounts.MarkPhoneVerified(ctx, acc.ID, s.Clock.Now()); err != nil {
		return s.guard.internal("verify_phone", err)
	}
	return models.WithCode(http.StatusAccepted, true, "Phone verified", nil)
}

func (s *userService) ListAccounts(ctx context.Context, f models.AccountFilter) (res models.Result) {
	defer s.guard.recover("list_accounts", &res)

	f.Normalize()
	list, total, err := s.Accounts.List(ctx, f)
	if err != nil {
		return s.guard.internal("list_accounts", err)
	}
	res = models.OK("Accounts retrieved", list)
	res.Payload.Metadata = models.PageMeta{Page: f.Page, PageSize: f.PageSize, Total: total}
	return res
}

func (s *userService) TOTPProvisioning(ctx context.Context, id uuid.UUID) (res models.Result) {
	defer s.guard.recover("totp_provisioning", &res)

	acc, res, ok := s.account(ctx, "totp_provisioning", id)
	if !ok {
		return res
	}
	p, err := s.TOTP.Provision(ctx, acc)
	if err != nil {
		return s.guard.internal("totp_provisioning", err)
	}
	return models.OK("TOTP provisioning", p)
}

func (s *userService) ValidateTOTP(ctx context.Context, id uuid.UUID, code string) (res models.Result) {
	defer s.guard.recover("validate_totp", &res)

	valid, err := s.TOTP.Validate(ctx, id, code)
	if err != nil {
		return s.guard.internal("validate_totp", err)
	}
	if !valid {
		return models.WithCode(http.StatusUnauthorized, false, "Invalid TOTP", nil)
	}
	return models.OK("TOTP valid", nil)
}

func (s *userService) RegenerateTOTP(ctx context.Context, id uuid.UUID) (res models.Result) {
	defer s.guard.recover("regenerate_totp", &res)

	acc, res, ok := s.account(ctx, "regenerate_totp", id)
	if !ok {
		return res
	}
	p, err := s.TOTP.Regenerate(ctx, acc)
	if err != nil {
		return s.guard.internal("regenerate_totp", err)
	}
	return models.OK("TOTP regenerated", p)
}
