package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache stored in Redis, shared by every process.
type Redis[V any] struct {
	client     redis.UniversalClient
	marshaler  Marshaler[V]
	prefix     string
	defaultTTL time.Duration
}

// RedisOption configures a Redis cache.
type RedisOption func(*redisConfig)

type redisConfig struct {
	prefix     string
	defaultTTL time.Duration
	marshaler  any
}

// WithPrefix namespaces every key as "<prefix>:<key>".
func WithPrefix(prefix string) RedisOption {
	return func(c *redisConfig) { c.prefix = prefix }
}

// WithRedisDefaultTTL sets the TTL used when Set receives zero. Default: 10 minutes.
func WithRedisDefaultTTL(d time.Duration) RedisOption {
	return func(c *redisConfig) { c.defaultTTL = d }
}

// WithMarshaler replaces the default JSON encoding.
func WithMarshaler[V any](m Marshaler[V]) RedisOption {
	return func(c *redisConfig) { c.marshaler = m }
}

// NewRedis creates a Redis-backed cache using client from pkg/redis.Open.
func NewRedis[V any](client redis.UniversalClient, opts ...RedisOption) *Redis[V] {
	cfg := redisConfig{defaultTTL: 10 * time.Minute}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Redis[V]{
		client:     client,
		marshaler:  jsonMarshaler[V]{},
		prefix:     cfg.prefix,
		defaultTTL: cfg.defaultTTL,
	}
	if m, ok := cfg.marshaler.(Marshaler[V]); ok {
		r.marshaler = m
	}
	return r
}

func (r *Redis[V]) Get(ctx context.Context, key string) (V, error) {
	return r.decode(r.client.Get(ctx, r.key(key)).Bytes())
}

// Take uses GETDEL so two callbacks racing on one state value cannot both win.
func (r *Redis[V]) Take(ctx context.Context, key string) (V, error) {
	return r.decode(r.client.GetDel(ctx, r.key(key)).Bytes())
}

func (r *Redis[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	data, err := r.marshaler.Marshal(value)
	if err != nil {
		return err
	}

	switch {
	case ttl == 0:
		ttl = r.defaultTTL
	case ttl < 0:
		ttl = 0 // no expiration
	}
	return r.client.Set(ctx, r.key(key), data, ttl).Err()
}

func (r *Redis[V]) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

// Close is a no-op; the client is owned by the caller.
func (r *Redis[V]) Close() error {
	return nil
}

func (r *Redis[V]) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

func (r *Redis[V]) decode(data []byte, err error) (V, error) {
	var zero V
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return r.marshaler.Unmarshal(data)
}
