// Package redis opens the shared Redis client and provides a distributed
// lock built on it.
//
// [Open] takes a [Config] with a redis:// or rediss:// URL and retries the
// initial ping with linear backoff. [Locker] implements a single-instance lease lock
// (SET NX PX, released with a compare-and-delete script) used to make sure
// only one process refreshes a given user's OAuth token at a time:
//
//	client, err := redis.Open(ctx, cfg.Redis)
//	locker := redis.NewLocker(client, redis.WithLockTTL(15*time.Second))
//
//	release, err := locker.Acquire(ctx, "token-refresh:"+userID)
//	if err != nil {
//		return err
//	}
//	defer release()
package redis
