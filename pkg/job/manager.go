package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/robfig/cron/v3"
)

const defaultMaxWorkers = 10

// Manager enqueues and processes tasks through a single River client.
type Manager struct {
	pool     *pgxpool.Pool
	client   *river.Client[pgx.Tx]
	handlers handlers
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewManager builds the River client. Jobs may be enqueued before Start.
func NewManager(ctx context.Context, pool *pgxpool.Pool, opts ...Option) (*Manager, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	cfg := &config{
		handlers:   make(handlers),
		queues:     make(map[string]int),
		logger:     slog.New(slog.DiscardHandler),
		maxWorkers: defaultMaxWorkers,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := errors.Join(cfg.errs...); err != nil {
		return nil, err
	}

	driver := riverpgxv5.New(pool)
	if cfg.migrate {
		migrator, err := rivermigrate.New(driver, &rivermigrate.Config{Logger: cfg.logger})
		if err != nil {
			return nil, fmt.Errorf("job: create migrator: %w", err)
		}
		if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
			return nil, fmt.Errorf("job: migrate river schema: %w", err)
		}
	}

	queues := map[string]river.QueueConfig{
		river.QueueDefault: {MaxWorkers: cfg.maxWorkers},
	}
	for name, n := range cfg.queues {
		queues[name] = river.QueueConfig{MaxWorkers: n}
	}

	periodic := make([]*river.PeriodicJob, 0, len(cfg.schedules))
	for _, sched := range cfg.schedules {
		schedule, err := parseCronSchedule(sched.schedule)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q: %v", ErrInvalidSchedule, sched.name, sched.schedule, err)
		}
		name := sched.name
		periodic = append(periodic, river.NewPeriodicJob(
			schedule,
			func() (river.JobArgs, *river.InsertOpts) {
				return &taskArgs{TaskName: name}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: false},
		))
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &taskWorker{handlers: cfg.handlers, logger: cfg.logger})

	client, err := river.NewClient(driver, &river.Config{
		Queues:       queues,
		Workers:      workers,
		PeriodicJobs: periodic,
		Logger:       cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("job: create client: %w", err)
	}

	return &Manager{
		pool:     pool,
		client:   client,
		handlers: cfg.handlers,
		logger:   cfg.logger,
	}, nil
}

// Start begins processing jobs.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}
	if err := m.client.Start(ctx); err != nil {
		return fmt.Errorf("job: start client: %w", err)
	}
	m.started = true
	m.logger.InfoContext(ctx, "job manager started", slog.Any("tasks", m.handlers.names()))
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}
	if err := m.client.Stop(ctx); err != nil {
		return fmt.Errorf("job: stop client: %w", err)
	}
	m.started = false
	m.logger.InfoContext(ctx, "job manager stopped")
	return nil
}

// Enqueue inserts a job for the named task.
func (m *Manager) Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) error {
	if _, ok := m.handlers[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}

	args, insertOpts, err := buildJobArgs(name, payload, opts...)
	if err != nil {
		return err
	}
	if _, err := m.client.Insert(ctx, args, insertOpts); err != nil {
		return fmt.Errorf("job: enqueue %s: %w", name, err)
	}
	return nil
}

// Healthcheck returns a readiness probe for the manager.
func (m *Manager) Healthcheck() func(context.Context) error {
	return func(ctx context.Context) error {
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()

		if !started {
			return errors.Join(ErrHealthcheckFailed, ErrNotStarted)
		}
		if err := m.pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// taskArgs is the single River job kind for every registered task.
type taskArgs struct {
	TaskName  string          `json:"task_name" river:"unique"`
	UniqueKey string          `json:"unique_key,omitempty" river:"unique"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (taskArgs) Kind() string { return "courier:task" }

type taskWorker struct {
	river.WorkerDefaults[taskArgs]
	handlers handlers
	logger   *slog.Logger
}

func (w *taskWorker) Work(ctx context.Context, job *river.Job[taskArgs]) error {
	return w.execute(ctx, job.Args, job.ID, job.Attempt)
}

func (w *taskWorker) execute(ctx context.Context, args taskArgs, id int64, attempt int) error {
	handle, ok := w.handlers[args.TaskName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, args.TaskName)
	}

	if err := handle(ctx, args.Payload); err != nil {
		w.logger.ErrorContext(ctx, "task failed",
			slog.String("task", args.TaskName),
			slog.Int64("job_id", id),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
		return err
	}

	w.logger.DebugContext(ctx, "task completed",
		slog.String("task", args.TaskName),
		slog.Int64("job_id", id),
	)
	return nil
}

type cronSchedule struct {
	schedule cron.Schedule
}

func (s cronSchedule) Next(current time.Time) time.Time {
	return s.schedule.Next(current)
}

func parseCronSchedule(expr string) (river.PeriodicSchedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	return cronSchedule{schedule: schedule}, nil
}
