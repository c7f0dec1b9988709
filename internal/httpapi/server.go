// Package httpapi exposes campaign sending, mailbox connection, quota and
// subscriber management over JSON HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/dmitrymomot/courier/internal/audit"
	"github.com/dmitrymomot/courier/internal/campaign"
	"github.com/dmitrymomot/courier/internal/profile"
	"github.com/dmitrymomot/courier/internal/quota"
	"github.com/dmitrymomot/courier/internal/recipient"
	"github.com/dmitrymomot/courier/internal/subscriber"
	"github.com/dmitrymomot/courier/pkg/health"
	"github.com/dmitrymomot/courier/pkg/logger"
)

// Config holds HTTP settings.
type Config struct {
	Addr               string        `env:"HTTP_ADDR" envDefault:":8080"`
	AllowedOrigins     []string      `env:"HTTP_CORS_ALLOWED_ORIGINS" envSeparator:","`
	ConnectRedirectURL string        `env:"MAILBOX_CONNECTED_REDIRECT_URL"`
	IPRateLimit        int           `env:"HTTP_IP_RATE_LIMIT" envDefault:"100"`
	SendRateLimit      int           `env:"HTTP_SEND_RATE_LIMIT" envDefault:"10"`
	MaxBodyBytes       int64         `env:"HTTP_MAX_BODY_BYTES" envDefault:"33554432"`
	ReadTimeout        time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout       time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"5m"`
	ShutdownTimeout    time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Verifier resolves a bearer token to a user id.
type Verifier interface {
	Verify(raw string) (string, error)
}

// Campaigns sends campaigns for the user in the context.
type Campaigns interface {
	Send(ctx context.Context, req campaign.Request) (*campaign.Outcome, error)
	SendTest(ctx context.Context, req campaign.Request) (*campaign.Outcome, error)
}

// Mailboxes runs the mailbox connection flows.
type Mailboxes interface {
	ConnectURL(ctx context.Context, userID string) (string, error)
	Callback(ctx context.Context, state, code string) (*profile.Profile, error)
	Disconnect(ctx context.Context, userID string) error
}

// Quotas reports the daily send quota.
type Quotas interface {
	Status(ctx context.Context, userID string) (quota.Status, error)
}

// Subscribers manages the user's saved audience.
type Subscribers interface {
	Import(ctx context.Context, userID string, list []recipient.Recipient) (int, error)
	List(ctx context.Context, userID string, limit, offset int) ([]subscriber.Subscriber, error)
	Recipients(ctx context.Context, userID string) ([]recipient.Recipient, error)
}

// AuditLog lists past campaign sends.
type AuditLog interface {
	List(ctx context.Context, userID string, limit int) ([]audit.Record, error)
}

// Deps are the services behind the routes. Subscribers and Audit are
// optional; their routes are not mounted when nil.
type Deps struct {
	Verifier    Verifier
	Campaigns   Campaigns
	Mailboxes   Mailboxes
	Quota       Quotas
	Subscribers Subscribers
	Audit       AuditLog
	Checks      health.Checks
}

type server struct {
	Deps
	logger *slog.Logger
	cfg    Config
}

// NewRouter builds the HTTP handler.
func NewRouter(cfg Config, deps Deps, log *slog.Logger) http.Handler {
	if log == nil {
		log = logger.NewNope()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 32 << 20
	}
	if cfg.SendRateLimit <= 0 {
		cfg.SendRateLimit = 10
	}
	s := &server{Deps: deps, logger: log, cfg: cfg}

	r := chi.NewRouter()
	r.Use(requestID, s.recoverer, s.accessLog)
	if cfg.IPRateLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.IPRateLimit, time.Minute))
	}
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(deps.Checks, health.WithLogger(log)))

	// The provider redirects the browser here; the state identifies the user.
	r.Get("/api/mailbox/callback", s.mailboxCallback)

	r.Route("/api", func(api chi.Router) {
		api.Use(s.authenticate)

		api.Route("/campaigns", func(c chi.Router) {
			sendLimit := s.perUserLimit(s.cfg.SendRateLimit, time.Minute)
			c.With(sendLimit).Post("/send", s.sendCampaign)
			c.With(sendLimit).Post("/test", s.sendTest)
			if deps.Audit != nil {
				c.Get("/", s.listCampaigns)
			}
		})

		api.Get("/mailbox/connect", s.mailboxConnect)
		api.Delete("/mailbox", s.mailboxDisconnect)
		api.Get("/quota", s.quotaStatus)

		if deps.Subscribers != nil {
			api.Post("/subscribers", s.importSubscribers)
			api.Get("/subscribers", s.listSubscribers)
		}
	})

	return r
}

// NewServer wraps the router in an http.Server with the configured
// timeouts.
func NewServer(cfg Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}
