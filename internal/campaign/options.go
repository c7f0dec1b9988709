package campaign

import (
	"log/slog"
	"time"
)

const (
	defaultTestSubjectPrefix  = "[TEST] "
	defaultMaxAttachmentBytes = 20 << 20
	defaultAuditTimeout       = 5 * time.Second
)

// Option configures a Service.
type Option func(*Service)

// WithBlobs enables attachments referenced by storage key.
func WithBlobs(b Blobs) Option {
	return func(s *Service) { s.blobs = b }
}

// WithMarkdown sets the markdown renderer used for FormatMarkdown bodies.
func WithMarkdown(m Markdown) Option {
	return func(s *Service) {
		if m != nil {
			s.markdown = m
		}
	}
}

// WithTestSubjectPrefix sets the prefix added to test send subjects.
func WithTestSubjectPrefix(p string) Option {
	return func(s *Service) { s.testPrefix = p }
}

// WithMaxAttachmentBytes caps the combined size of a campaign's attachments.
func WithMaxAttachmentBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttachmentBytes = n
		}
	}
}

// WithAuditTimeout bounds the audit write after a send.
func WithAuditTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.auditTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
