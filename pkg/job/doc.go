// Package job runs background tasks on River, a PostgreSQL-backed queue.
//
// Tasks are registered by structural typing. A one-off task has a name and a
// typed payload:
//
//	type NotifyReconnect struct{ ... }
//
//	func (t *NotifyReconnect) Name() string { return "notify_reconnect_required" }
//	func (t *NotifyReconnect) Handle(ctx context.Context, p ReconnectPayload) error { ... }
//
// A scheduled task adds a five-field cron expression and takes no payload:
//
//	func (t *ResetQuotas) Name() string     { return "reset_send_quotas" }
//	func (t *ResetQuotas) Schedule() string { return "0 0 * * *" }
//	func (t *ResetQuotas) Handle(ctx context.Context) error { ... }
//
// Every task travels as the same River job kind carrying the task name and a
// JSON payload, so adding a task never needs a new River worker:
//
//	m, err := job.NewManager(ctx, pool,
//		job.WithTask[tasks.ReconnectPayload](notify),
//		job.WithScheduledTask(reset),
//		job.WithMigrations(),
//	)
//	_ = m.Start(ctx)
//	_ = m.Enqueue(ctx, "notify_reconnect_required", payload, job.UniqueFor(time.Hour), job.UniqueKey(userID))
package job
