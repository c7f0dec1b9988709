// Package cache provides a small generic TTL store with in-memory and Redis
// backends.
//
// It holds short-lived values such as OAuth state parameters, where a value
// must be readable exactly once:
//
//	states := cache.NewRedis[string](client, cache.WithPrefix("oauth-state"))
//	_ = states.Set(ctx, state, userID, 10*time.Minute)
//
//	// in the callback
//	userID, err := states.Take(ctx, state)
//	if errors.Is(err, cache.ErrNotFound) {
//		// unknown, expired or already used
//	}
//
// A zero TTL in Set uses the backend's default; a negative TTL never expires.
package cache
