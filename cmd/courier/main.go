package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/courier/internal/audit"
	"github.com/dmitrymomot/courier/internal/auth"
	"github.com/dmitrymomot/courier/internal/campaign"
	"github.com/dmitrymomot/courier/internal/config"
	"github.com/dmitrymomot/courier/internal/credential"
	"github.com/dmitrymomot/courier/internal/db/migrations"
	"github.com/dmitrymomot/courier/internal/dispatch"
	"github.com/dmitrymomot/courier/internal/httpapi"
	"github.com/dmitrymomot/courier/internal/mailbox"
	"github.com/dmitrymomot/courier/internal/profile"
	"github.com/dmitrymomot/courier/internal/quota"
	"github.com/dmitrymomot/courier/internal/subscriber"
	"github.com/dmitrymomot/courier/internal/tasks"
	"github.com/dmitrymomot/courier/internal/token"
	"github.com/dmitrymomot/courier/pkg/cache"
	"github.com/dmitrymomot/courier/pkg/db"
	"github.com/dmitrymomot/courier/pkg/health"
	"github.com/dmitrymomot/courier/pkg/job"
	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/mailer"
	"github.com/dmitrymomot/courier/pkg/mailer/gmail"
	"github.com/dmitrymomot/courier/pkg/mailer/resend"
	"github.com/dmitrymomot/courier/pkg/oauth"
	"github.com/dmitrymomot/courier/pkg/redis"
	"github.com/dmitrymomot/courier/pkg/secrets"
	"github.com/dmitrymomot/courier/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, flush := logger.New(cfg.Log, logger.RequestID(), logger.UserID())
	defer flush(2 * time.Second)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("courier stopped", slog.Any("error", err))
		flush(2 * time.Second)
		os.Exit(1)
	}
}

// app holds what run needs to serve and later tear down.
type app struct {
	deps     httpapi.Deps
	jobs     *job.Manager
	shutdown []func(context.Context) error
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	pool, err := db.Open(ctx, cfg.DB, db.WithMigrations(migrations.FS), db.WithLogger(log))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	var rdb goredis.UniversalClient
	if cfg.Redis.Enabled() {
		rdb, err = redis.Open(ctx, cfg.Redis)
		if err != nil {
			pool.Close()
			return fmt.Errorf("open redis: %w", err)
		}
	}

	a, err := build(ctx, cfg, log, pool, rdb)
	if err != nil {
		pool.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
		return err
	}

	if err := a.jobs.Start(ctx); err != nil {
		return errors.Join(err, closeAll(a.shutdown, log))
	}

	return serve(cfg.HTTP, httpapi.NewRouter(cfg.HTTP, a.deps, log), log, a.shutdown)
}

// build wires the services. Construction order follows the dependency
// graph: the job manager needs the notification task, the mailbox service
// needs the job manager and the token manager needs the mailbox service.
func build(ctx context.Context, cfg *config.Config, log *slog.Logger, pool *pgxpool.Pool, rdb goredis.UniversalClient) (*app, error) {
	cipher, err := secrets.NewCipher(cfg.TokenEncryptionKey)
	if err != nil {
		return nil, err
	}
	verifier, err := auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
	if err != nil {
		return nil, err
	}
	provider, err := oauth.NewGoogleProvider(cfg.Google)
	if err != nil {
		return nil, err
	}

	profiles := profile.NewPostgresStore(pool)
	credentials := credential.NewStore(credential.NewPostgresRecords(pool), cipher)
	quotas := quota.NewService(quota.NewPostgresStore(pool), cfg.QuotaDailyLimit,
		quota.WithLimits(profile.Limits{Store: profiles}),
	)

	jobOpts := []job.Option{
		job.WithMigrations(),
		job.WithLogger(log),
		job.WithMaxWorkers(cfg.JobWorkers),
		job.WithScheduledTask(tasks.NewResetSendQuotas(quotas, log)),
	}
	notifications := cfg.Resend.APIKey != ""
	if notifications {
		notifier := mailer.New(resend.New(cfg.Resend), tasks.NewRenderer(), cfg.Mailer)
		jobOpts = append(jobOpts,
			job.WithTask[tasks.ReconnectPayload](tasks.NewNotifyReconnect(profiles, notifier, log)),
		)
	} else {
		log.Warn("RESEND_API_KEY is not set, reconnect notifications are disabled")
	}
	jobs, err := job.NewManager(ctx, pool, jobOpts...)
	if err != nil {
		return nil, err
	}

	var states cache.Cache[string] = cache.NewMemory[string]()
	if rdb != nil {
		states = cache.NewRedis[string](rdb, cache.WithPrefix("courier:"))
	}
	mailboxOpts := []mailbox.Option{mailbox.WithLogger(log)}
	if notifications {
		mailboxOpts = append(mailboxOpts, mailbox.WithEnqueuer(jobs))
	}
	mailboxes := mailbox.NewService(provider, credentials, profiles, states, mailboxOpts...)

	tokenOpts := []token.Option{
		token.WithRefreshMargin(cfg.TokenRefreshMargin),
		token.WithNotifier(mailboxes),
		token.WithLogger(log),
	}
	if rdb != nil {
		tokenOpts = append(tokenOpts, token.WithLocker(redis.NewLocker(rdb, redis.WithLockPrefix("courier:refresh:"))))
	}
	tokens := token.NewManager(credentials, provider, tokenOpts...)

	dispatcher := dispatch.New(gmail.New(),
		dispatch.WithWorkers(cfg.DispatchWorkers),
		dispatch.WithMaxAttempts(cfg.DispatchMaxAttempts),
		dispatch.WithSendTimeout(cfg.DispatchSendTimeout),
		dispatch.WithLogger(log),
	)

	auditLog := audit.NewPostgresStore(pool)
	campaignOpts := []campaign.Option{
		campaign.WithTestSubjectPrefix(cfg.TestSubjectPrefix),
		campaign.WithMaxAttachmentBytes(cfg.MaxAttachmentBytes),
		campaign.WithLogger(log),
	}
	if cfg.Storage.Enabled() {
		blobs, err := storage.New(cfg.Storage)
		if err != nil {
			return nil, err
		}
		campaignOpts = append(campaignOpts, campaign.WithBlobs(blobs))
	}
	campaigns := campaign.New(campaign.Deps{
		Tokens:     tokens,
		Profiles:   profiles,
		Quota:      quotas,
		Dispatcher: dispatcher,
		Audit:      auditLog,
	}, campaignOpts...)

	checks := health.Checks{
		"postgres": db.Healthcheck(pool),
		"jobs":     health.Optional(jobs.Healthcheck()),
	}
	if rdb != nil {
		checks["redis"] = redis.Healthcheck(rdb)
	}

	// Jobs stop before the pool they run on closes.
	shutdown := []func(context.Context) error{
		func(ctx context.Context) error {
			if err := jobs.Stop(ctx); err != nil && !errors.Is(err, job.ErrNotStarted) {
				return err
			}
			return nil
		},
		db.Shutdown(pool),
	}
	if rdb != nil {
		shutdown = append(shutdown, redis.Shutdown(rdb))
	}

	return &app{
		deps: httpapi.Deps{
			Verifier:    verifier,
			Campaigns:   campaigns,
			Mailboxes:   mailboxes,
			Quota:       quotas,
			Subscribers: subscriber.NewService(subscriber.NewPostgresStore(pool)),
			Audit:       auditLog,
			Checks:      checks,
		},
		jobs:     jobs,
		shutdown: shutdown,
	}, nil
}
