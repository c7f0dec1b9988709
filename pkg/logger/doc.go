// Package logger builds the service's slog.Logger.
//
// Records are written as JSON to stdout and, when a Sentry DSN is configured,
// fanned out to Sentry as well: errors become issues, warnings and errors are
// kept as Sentry logs. Two decorators wrap the output handler:
//
//   - context extractors add request-scoped attributes such as request_id
//     and user_id to every record;
//   - the redaction handler masks the value of any attribute whose key names
//     token material (access_token, refresh_token, authorization and similar),
//     at any group depth.
//
// Usage:
//
//	log, flush := logger.New(cfg.Log, logger.RequestID(), logger.UserID())
//	defer flush(2 * time.Second)
//
//	log.InfoContext(ctx, "token refreshed", slog.String("user_id", id))
package logger
