package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is the cause of a context ended by WithTimeout. It matches
// ErrUnreachable.
var ErrTimeout = fmt.Errorf("%w: no response before the store call deadline", ErrUnreachable)

// WithTimeout bounds a store call. Once the deadline passes, context.Cause
// reports ErrTimeout, which tells the expired call apart from a caller that
// gave up.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeoutCause(ctx, d, ErrTimeout)
}

// Abandoned reports whether ctx ended for any reason other than a store call
// deadline set by WithTimeout: the caller canceled, or its own deadline passed.
func Abandoned(ctx context.Context) bool {
	return ctx.Err() != nil && !errors.Is(context.Cause(ctx), ErrTimeout)
}
