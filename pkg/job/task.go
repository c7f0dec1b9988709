package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// handlerFunc runs one task with its raw JSON payload.
type handlerFunc func(ctx context.Context, payload json.RawMessage) error

// handlers maps task names to handlers. Options fill it before the River
// client is built; afterwards it is only read.
type handlers map[string]handlerFunc

func (h handlers) add(name string, fn handlerFunc) error {
	if name == "" {
		return ErrEmptyTaskName
	}
	if _, dup := h[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	}
	h[name] = fn
	return nil
}

func (h handlers) names() []string {
	return slices.Sorted(maps.Keys(h))
}

// decoded adapts a typed handler. An empty payload leaves P at its zero
// value.
func decoded[P any](handle func(context.Context, P) error) handlerFunc {
	return func(ctx context.Context, raw json.RawMessage) error {
		var payload P
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return errors.Join(ErrInvalidPayload, err)
			}
		}
		return handle(ctx, payload)
	}
}

// periodic adapts a payload-less scheduled handler.
func periodic(handle func(context.Context) error) handlerFunc {
	return func(ctx context.Context, _ json.RawMessage) error {
		return handle(ctx)
	}
}
