package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a lease-based mutual exclusion lock over a single Redis node.
// Leases expire after the TTL, so a crashed holder cannot block others for
// longer than that.
type Locker struct {
	client    redis.UniversalClient
	prefix    string
	ttl       time.Duration
	retry     time.Duration
	maxWait   time.Duration
	releaseTO time.Duration
}

// LockerOption configures a Locker.
type LockerOption func(*Locker)

// WithLockTTL sets the lease duration. Default: 30 seconds.
func WithLockTTL(d time.Duration) LockerOption {
	return func(l *Locker) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// WithLockRetry sets the polling interval while waiting for a held lock.
// Default: 50 milliseconds.
func WithLockRetry(d time.Duration) LockerOption {
	return func(l *Locker) {
		if d > 0 {
			l.retry = d
		}
	}
}

// WithLockWait bounds how long Acquire waits for a held lock. Default: the lease TTL.
func WithLockWait(d time.Duration) LockerOption {
	return func(l *Locker) {
		if d > 0 {
			l.maxWait = d
		}
	}
}

// WithLockPrefix sets the key prefix. Default: "lock:".
func WithLockPrefix(prefix string) LockerOption {
	return func(l *Locker) {
		l.prefix = prefix
	}
}

// NewLocker creates a Locker backed by client.
func NewLocker(client redis.UniversalClient, opts ...LockerOption) *Locker {
	l := &Locker{
		client:    client,
		prefix:    "lock:",
		ttl:       30 * time.Second,
		retry:     50 * time.Millisecond,
		releaseTO: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.maxWait == 0 {
		l.maxWait = l.ttl
	}
	return l
}

// Acquire blocks until the lock for key is held, ctx is done, or the wait
// bound elapses. The returned release function is safe to call once; it only
// deletes the key if this holder still owns it.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	token, err := lockToken()
	if err != nil {
		return nil, err
	}
	fullKey := l.prefix + key

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, fullKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, errors.Join(ErrLockNotAcquired, err)
		}
		if ok {
			return l.releaseFunc(fullKey, token), nil
		}

		select {
		case <-waitCtx.Done():
			return nil, errors.Join(ErrLockNotAcquired, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Locker) releaseFunc(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.releaseTO)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
}

// Held reports whether key is currently locked by anyone.
func (l *Locker) Held(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, l.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func lockToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrLockNotAcquired, err)
	}
	return hex.EncodeToString(b), nil
}
