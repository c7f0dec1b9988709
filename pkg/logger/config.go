package logger

import "log/slog"

// Config holds logger configuration.
type Config struct {
	Level             slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	Format            string     `env:"LOG_FORMAT" envDefault:"json"`
	SentryDSN         string     `env:"SENTRY_DSN"`
	SentryEnvironment string     `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	// SentryErrorsOnly limits Sentry logs to error records.
	SentryErrorsOnly bool `env:"SENTRY_ERRORS_ONLY" envDefault:"false"`
}
