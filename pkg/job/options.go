package job

import (
	"context"
	"log/slog"
)

type config struct {
	handlers   handlers
	errs       []error
	queues     map[string]int
	logger     *slog.Logger
	schedules  []scheduleConfig
	maxWorkers int
	migrate    bool
}

type scheduleConfig struct {
	name     string
	schedule string
}

// Option configures the Manager.
type Option func(*config)

// WithTask registers a task with a typed payload. P must be given
// explicitly: WithTask[Payload](task).
func WithTask[P any, T interface {
	Name() string
	Handle(context.Context, P) error
}](task T) Option {
	return func(c *config) {
		if err := c.handlers.add(task.Name(), decoded(task.Handle)); err != nil {
			c.errs = append(c.errs, err)
		}
	}
}

// WithScheduledTask registers a periodic task run on its cron schedule.
func WithScheduledTask[T interface {
	Name() string
	Schedule() string
	Handle(context.Context) error
}](task T) Option {
	return func(c *config) {
		if err := c.handlers.add(task.Name(), periodic(task.Handle)); err != nil {
			c.errs = append(c.errs, err)
			return
		}
		c.schedules = append(c.schedules, scheduleConfig{
			name:     task.Name(),
			schedule: task.Schedule(),
		})
	}
}

// WithQueue adds a named queue with its own worker count.
func WithQueue(name string, workers int) Option {
	return func(c *config) {
		if workers > 0 {
			c.queues[name] = workers
		}
	}
}

// WithMaxWorkers sets the default queue's worker count. Default: 10.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// WithLogger sets the logger for the manager and River itself.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMigrations applies River's schema migrations before the client is built.
func WithMigrations() Option {
	return func(c *config) {
		c.migrate = true
	}
}
