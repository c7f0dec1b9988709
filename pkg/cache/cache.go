package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Cache is a generic key-value store with expiration.
type Cache[V any] interface {
	// Get returns ErrNotFound if the key is absent or expired.
	Get(ctx context.Context, key string) (V, error)

	// Take returns the value and removes it in one step, so concurrent
	// callers can never both observe the same entry.
	Take(ctx context.Context, key string) (V, error)

	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Marshaler converts values for byte-oriented backends.
type Marshaler[V any] interface {
	Marshal(v V) ([]byte, error)
	Unmarshal(data []byte) (V, error)
}

type jsonMarshaler[V any] struct{}

func (jsonMarshaler[V]) Marshal(v V) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrMarshal, err)
	}
	return data, nil
}

func (jsonMarshaler[V]) Unmarshal(data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrUnmarshal, err)
	}
	return v, nil
}
