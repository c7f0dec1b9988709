package db

import (
	"io/fs"
	"log/slog"
)

type options struct {
	migrations fs.FS
	logger     *slog.Logger
}

// Option configures Open.
type Option func(*options)

// WithMigrations applies the goose SQL migrations found at the root of fsys
// once the pool is connected.
func WithMigrations(fsys fs.FS) Option {
	return func(o *options) {
		o.migrations = fsys
	}
}

// WithLogger sets the logger used for connection retries and migrations.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
