package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authservice/internal/models"
)

func secretFromURL(t *testing.T, u string) string {
	t.Helper()
	key, err := otp.NewKeyFromURL(u)
	require.NoError(t, err)
	return key.Secret()
}

func TestTOTP_ProvisionIsStable(t *testing.T) {
	clock := newFakeClock()
	svc := NewTOTPService(&fakeTOTPRepo{}, TOTPOptions{Issuer: "acme", Skew: 1}, clock)
	acc := models.NewAccount(models.AccountFields{Email: "a@x.com"}, "h", clock.Now())

	p1, err := svc.Provision(context.Background(), acc)
	require.NoError(t, err)
	p2, err := svc.Provision(context.Background(), acc)
	require.NoError(t, err)

	assert.Equal(t, p1.URL, p2.URL)
	assert.True(t, strings.HasPrefix(p1.URL, "otpauth://totp/"))
	assert.Contains(t, p1.URL, "issuer=acme")
	assert.True(t, strings.HasPrefix(p1.QRCode, "data:image/png;base64,"))
}

func TestTOTP_ValidateWindow(t *testing.T) {
	clock := newFakeClock()
	repo := &fakeTOTPRepo{}
	ctx := context.Background()
	acc := models.NewAccount(models.AccountFields{Email: "a@x.com"}, "h", clock.Now())

	lenient := NewTOTPService(repo, TOTPOptions{Issuer: "acme", Skew: 1}, clock)
	strict := NewTOTPService(repo, TOTPOptions{Issuer: "acme", Skew: 1, Strict: true}, clock)

	p, err := lenient.Provision(ctx, acc)
	require.NoError(t, err)
	secret := secretFromURL(t, p.URL)

	current, err := totp.GenerateCode(secret, clock.Now())
	require.NoError(t, err)
	previous, err := totp.GenerateCode(secret, clock.Now().Add(-30*time.Second))
	require.NoError(t, err)
	stale, err := totp.GenerateCode(secret, clock.Now().Add(-5*time.Minute))
	require.NoError(t, err)

	ok, err := lenient.Validate(ctx, acc.ID, current)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = lenient.Validate(ctx, acc.ID, previous)
	assert.True(t, ok)
	ok, _ = strict.Validate(ctx, acc.ID, previous)
	assert.False(t, ok)
	ok, _ = strict.Validate(ctx, acc.ID, current)
	assert.True(t, ok)

	ok, _ = lenient.Validate(ctx, acc.ID, stale)
	assert.False(t, ok)
	ok, err = lenient.Validate(ctx, acc.ID, "12")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestTOTP_RegenerateInvalidatesOldCodes(t *testing.T) {
	clock := newFakeClock()
	svc := NewTOTPService(&fakeTOTPRepo{}, TOTPOptions{Issuer: "acme", Skew: 1}, clock)
	ctx := context.Background()
	acc := models.NewAccount(models.AccountFields{Email: "a@x.com"}, "h", clock.Now())

	p, err := svc.Provision(ctx, acc)
	require.NoError(t, err)
	oldCode, _ := totp.GenerateCode(secretFromURL(t, p.URL), clock.Now())

	np, err := svc.Regenerate(ctx, acc)
	require.NoError(t, err)
	assert.NotEqual(t, p.URL, np.URL)

	ok, _ := svc.Validate(ctx, acc.ID, oldCode)
	assert.False(t, ok)
	newCode, _ := totp.GenerateCode(secretFromURL(t, np.URL), clock.Now())
	ok, _ = svc.Validate(ctx, acc.ID, newCode)
	assert.True(t, ok)
}
