// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/courier/internal/httpapi"
	"github.com/dmitrymomot/courier/pkg/db"
	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/mailer"
	"github.com/dmitrymomot/courier/pkg/mailer/resend"
	"github.com/dmitrymomot/courier/pkg/oauth"
	"github.com/dmitrymomot/courier/pkg/redis"
	"github.com/dmitrymomot/courier/pkg/secrets"
	"github.com/dmitrymomot/courier/pkg/storage"
)

// ErrInvalid is returned when the environment does not form a usable
// configuration.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the full service configuration.
type Config struct {
	DB      db.Config
	Redis   redis.Config
	Google  oauth.GoogleConfig
	Resend  resend.Config
	Mailer  mailer.Config
	Log     logger.Config
	Storage storage.Config
	HTTP    httpapi.Config

	AuthJWTSecret string `env:"AUTH_JWT_SECRET,notEmpty"`
	AuthJWTIssuer string `env:"AUTH_JWT_ISSUER"`

	// 64 lowercase hex characters.
	TokenEncryptionKey string        `env:"TOKEN_ENCRYPTION_KEY,notEmpty"`
	TokenRefreshMargin time.Duration `env:"TOKEN_REFRESH_MARGIN" envDefault:"60s"`

	QuotaDailyLimit int `env:"QUOTA_DAILY_LIMIT" envDefault:"500"`

	DispatchWorkers     int           `env:"DISPATCH_WORKERS" envDefault:"4"`
	DispatchMaxAttempts int           `env:"DISPATCH_MAX_ATTEMPTS" envDefault:"3"`
	DispatchSendTimeout time.Duration `env:"DISPATCH_SEND_TIMEOUT" envDefault:"15s"`

	TestSubjectPrefix  string `env:"TEST_SUBJECT_PREFIX" envDefault:"[TEST] "`
	MaxAttachmentBytes int64  `env:"CAMPAIGN_MAX_ATTACHMENT_BYTES" envDefault:"20971520"`

	JobWorkers int `env:"JOB_WORKERS" envDefault:"5"`
}

// Load reads an optional .env file, then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return Parse()
}

// Parse builds the configuration from the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Join(ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks constraints the env tags cannot express.
func (c *Config) Validate() error {
	if err := secrets.ValidateKey(c.TokenEncryptionKey); err != nil {
		return errors.Join(ErrInvalid, fmt.Errorf("TOKEN_ENCRYPTION_KEY: %w", err))
	}
	if c.QuotaDailyLimit < 1 {
		return fmt.Errorf("%w: QUOTA_DAILY_LIMIT must be positive", ErrInvalid)
	}
	if c.DispatchWorkers < 1 {
		return fmt.Errorf("%w: DISPATCH_WORKERS must be positive", ErrInvalid)
	}
	if c.DispatchMaxAttempts < 1 {
		return fmt.Errorf("%w: DISPATCH_MAX_ATTEMPTS must be positive", ErrInvalid)
	}
	if c.DispatchSendTimeout <= 0 {
		return fmt.Errorf("%w: DISPATCH_SEND_TIMEOUT must be positive", ErrInvalid)
	}
	return nil
}
