package credential

import (
	"log/slog"

	"github.com/dmitrymomot/courier/pkg/logger"
)

// Secret holds plaintext token material. It formats, marshals and logs as
// "[REDACTED]"; the value is only reachable through Reveal.
type Secret string

// Reveal returns the plaintext value.
func (s Secret) Reveal() string { return string(s) }

// IsZero reports whether the secret is empty.
func (s Secret) IsZero() bool { return s == "" }

func (s Secret) String() string { return logger.Redacted }

func (s Secret) GoString() string { return logger.Redacted }

func (s Secret) LogValue() slog.Value { return slog.StringValue(logger.Redacted) }

func (s Secret) MarshalText() ([]byte, error) { return []byte(logger.Redacted), nil }
