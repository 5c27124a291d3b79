package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfig_YAMLAndDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, ".", "config.yaml", `
server:
  port: 9090
database:
  url: postgres://localhost/auth
jwt:
  secret: s3cret
tokens:
  reset:
    ttl: 30m
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/auth", cfg.Database.DSN)
	assert.Equal(t, 30*time.Minute, cfg.Tokens.Reset.TTL)
	assert.Equal(t, "alphanumeric", cfg.Tokens.Reset.Charset)
	assert.Equal(t, "numeric", cfg.Tokens.Phone.Charset)
	assert.Equal(t, 6, cfg.Tokens.Phone.Length)
	assert.Equal(t, uint(1), cfg.TOTP.Skew)
	assert.Equal(t, 10, cfg.Jobs.MaxAttempts)
	assert.Equal(t, "@hourly", cfg.Jobs.CleanupSchedule)
}

func TestLoadConfig_EnvOverridesYAML(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, ".", "config.yaml", `
database:
  url: postgres://yaml/auth
jwt:
  secret: from-yaml
`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("PORT", "7000")
	t.Setenv("JOB_BACKOFF", "5s")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Jobs.Backoff)
	assert.Equal(t, "postgres://yaml/auth", cfg.Database.DSN)
}

func TestLoadConfig_MissingFileUsesEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_URL", "postgres://env/auth")
	t.Setenv("JWT_SECRET", "x")

	cfg, err := LoadConfig("does-not-exist.yaml")
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/auth", cfg.Database.DSN)
}

func TestLoadConfig_RequiresSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, ".", "config.yaml", "database:\n  url: postgres://x\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt secret")
}

func TestLoadConfig_BadYAML(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, ".", "config.yaml", "server: [")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_StrictTOTPKeepsZeroSkew(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, ".", "config.yaml", `
database:
  url: postgres://x
jwt:
  secret: x
totp:
  strict: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint(0), cfg.TOTP.Skew)
}
