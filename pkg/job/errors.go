package job

import "errors"

var (
	// ErrUnknownTask is returned when a task name has no registered handler.
	ErrUnknownTask = errors.New("job: unknown task")

	// ErrInvalidPayload is returned when a payload does not decode into the
	// task's payload type.
	ErrInvalidPayload = errors.New("job: invalid payload")

	// ErrDuplicateTask is returned by NewManager when two tasks share a name.
	ErrDuplicateTask = errors.New("job: duplicate task name")

	ErrEmptyTaskName     = errors.New("job: task name is empty")
	ErrAlreadyStarted    = errors.New("job: already started")
	ErrNotStarted        = errors.New("job: not started")
	ErrPoolRequired      = errors.New("job: pool is required")
	ErrInvalidSchedule   = errors.New("job: invalid cron schedule")
	ErrHealthcheckFailed = errors.New("job: healthcheck failed")
)
