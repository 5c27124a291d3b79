package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type ServerConfig struct {
	Port  int  `yaml:"port" env:"PORT"`
	Debug bool `yaml:"debug" env:"DEBUG"`
}

type DatabaseConfig struct {
	DSN     string `yaml:"url" env:"DB_URL"`
	Migrate bool   `yaml:"migrate" env:"DB_MIGRATE"`
}

type JWTConfig struct {
	Secret string `yaml:"secret" env:"JWT_SECRET"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort     int    `yaml:"smtp_port" env:"SMTP_PORT"`
	SMTPUser     string `yaml:"smtp_user" env:"SMTP_USER"`
	SMTPPassword string `yaml:"smtp_password" env:"SMTP_PASSWORD"`
	FromEmail    string `yaml:"from_email" env:"EMAIL_FROM"`
	FromName     string `yaml:"from_name" env:"EMAIL_NAME"`
}

type MobizonConfig struct {
	APIKey   string `yaml:"api_key" env:"MOBIZON_API_KEY"`
	SenderID string `yaml:"sender_id" env:"MOBIZON_SENDER_ID"`
	DryRun   bool   `yaml:"dry_run" env:"MOBIZON_DRY_RUN"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	AlertChatID int64  `yaml:"alert_chat_id" env:"TELEGRAM_ALERT_CHAT_ID"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type RateLimitConfig struct {
	Limit  int           `yaml:"limit" env:"RATE_LIMIT"`
	Window time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW"`
	Block  time.Duration `yaml:"block" env:"RATE_LIMIT_BLOCK"`
}

type TokenPolicyConfig struct {
	Charset string        `yaml:"charset"`
	Length  int           `yaml:"length"`
	TTL     time.Duration `yaml:"ttl"`
}

type TokensConfig struct {
	Verify TokenPolicyConfig `yaml:"verify"`
	Phone  TokenPolicyConfig `yaml:"phone"`
	Reset  TokenPolicyConfig `yaml:"reset"`
	Update TokenPolicyConfig `yaml:"update"`
}

type TOTPConfig struct {
	Issuer string `yaml:"issuer" env:"TOTP_ISSUER"`
	Skew   uint   `yaml:"skew" env:"TOTP_SKEW"`
	Strict bool   `yaml:"strict" env:"TOTP_STRICT"`
}

type JobsConfig struct {
	Workers         int           `yaml:"workers" env:"JOB_WORKERS"`
	QueueSize       int           `yaml:"queue_size" env:"JOB_QUEUE_SIZE"`
	MaxAttempts     int           `yaml:"max_attempts" env:"JOB_MAX_ATTEMPTS"`
	Backoff         time.Duration `yaml:"backoff" env:"JOB_BACKOFF"`
	CleanupSchedule string        `yaml:"cleanup_schedule" env:"JOB_CLEANUP_SCHEDULE"`
	TokenRetention  time.Duration `yaml:"token_retention" env:"JOB_TOKEN_RETENTION"`
}

type SecurityConfig struct {
	BcryptCost int `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
}

type FrontendConfig struct {
	BaseURL string `yaml:"base_url" env:"FRONTEND_BASEURL"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Email     EmailConfig     `yaml:"email"`
	Mobizon   MobizonConfig   `yaml:"mobizon"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Tokens    TokensConfig    `yaml:"tokens"`
	TOTP      TOTPConfig      `yaml:"totp"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Security  SecurityConfig  `yaml:"security"`
	Frontend  FrontendConfig  `yaml:"frontend"`
}

// LoadConfig reads the yaml file at path (a missing file is fine), loads .env
// when present, applies environment overrides and fills defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only deployment
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.RateLimit.Limit == 0 {
		c.RateLimit.Limit = 100
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = 15 * time.Minute
	}
	if c.RateLimit.Block == 0 {
		c.RateLimit.Block = 15 * time.Minute
	}
	defaultPolicy(&c.Tokens.Verify, "alphanumeric", 32, 24*time.Hour)
	defaultPolicy(&c.Tokens.Phone, "numeric", 6, 10*time.Minute)
	defaultPolicy(&c.Tokens.Reset, "alphanumeric", 32, time.Hour)
	defaultPolicy(&c.Tokens.Update, "alphanumeric", 48, 15*time.Minute)
	if c.TOTP.Issuer == "" {
		c.TOTP.Issuer = "authservice"
	}
	if c.TOTP.Skew == 0 && !c.TOTP.Strict {
		c.TOTP.Skew = 1
	}
	if c.Jobs.Workers == 0 {
		c.Jobs.Workers = 4
	}
	if c.Jobs.QueueSize == 0 {
		c.Jobs.QueueSize = 256
	}
	if c.Jobs.MaxAttempts == 0 {
		c.Jobs.MaxAttempts = 10
	}
	if c.Jobs.Backoff == 0 {
		c.Jobs.Backoff = 30 * time.Second
	}
	if c.Jobs.CleanupSchedule == "" {
		c.Jobs.CleanupSchedule = "@hourly"
	}
	if c.Jobs.TokenRetention == 0 {
		c.Jobs.TokenRetention = 7 * 24 * time.Hour
	}
	if c.Security.BcryptCost == 0 {
		c.Security.BcryptCost = 10
	}
}

func defaultPolicy(p *TokenPolicyConfig, charset string, length int, ttl time.Duration) {
	if p.Charset == "" {
		p.Charset = charset
	}
	if p.Length == 0 {
		p.Length = length
	}
	if p.TTL == 0 {
		p.TTL = ttl
	}
}

func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database url is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required")
	}
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost %d out of range", c.Security.BcryptCost)
	}
	return nil
}
