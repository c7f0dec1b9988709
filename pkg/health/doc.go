// Package health serves liveness and readiness probes.
//
// Readiness runs named checks concurrently under one timeout. Any
// func(context.Context) error fits, which covers db.Healthcheck,
// redis.Healthcheck and the job manager's Healthcheck:
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//		"postgres": db.Healthcheck(pool),
//		"jobs":     health.Optional(jobs.Healthcheck()),
//	}, health.WithTimeout(3*time.Second)))
//
// A failing Optional check reports "degraded" but keeps the probe at 200.
//
// Probes get plain "OK" or "Service Unavailable". Clients sending
// Accept: application/json or ?format=json get per-check detail:
//
//	{"status":"unhealthy","checks":{"redis":{"status":"unhealthy","error":"health: check timeout","latency_ms":3000}}}
package health
