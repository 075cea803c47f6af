package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/internal/metrics"
	"github.com/geochange/landchange/schema"
)

// RetryingBackend retries retryable remote failures with exponential backoff.
type RetryingBackend struct {
	next     contract.ComputeBackend
	attempts uint
	logger   *slog.Logger

	// newBackOff is swapped in tests to avoid real sleeps.
	newBackOff func() backoff.BackOff
}

var _ contract.ComputeBackend = &RetryingBackend{} // Compile-time check

// NewRetryingBackend wraps next so each Execute is attempted at most attempts times.
func NewRetryingBackend(next contract.ComputeBackend, attempts int, logger *slog.Logger) *RetryingBackend {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingBackend{
		next:     next,
		attempts: uint(attempts),
		logger:   logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 2 * time.Second
			b.MaxInterval = 30 * time.Second
			return b
		},
	}
}

// Execute runs the wrapped backend until success, a permanent error or the attempt limit.
func (r *RetryingBackend) Execute(ctx context.Context, expr *schema.Expr) (schema.Value, error) {
	attempt := 0
	op := func() (schema.Value, error) {
		attempt++
		v, err := r.next.Execute(ctx, expr)
		if err == nil {
			return v, nil
		}
		err = AsRemoteError(expr, err)
		var rce *schema.RemoteComputeError
		if !errors.As(err, &rce) || !rce.Retryable || ctx.Err() != nil {
			return schema.Value{}, backoff.Permanent(err)
		}
		return schema.Value{}, err
	}
	notify := func(err error, wait time.Duration) {
		metrics.RemoteRetriesTotal.Inc()
		r.logger.Warn("remote_retry", "op", expr.Op, "attempt", attempt, "wait", wait, "err", err)
	}

	v, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(r.attempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return schema.Value{}, &schema.RemoteComputeError{Op: expr.Op, Message: ctxErr.Error(), Cause: errors.Join(ctxErr, err)}
		}
		return schema.Value{}, AsRemoteError(expr, err)
	}
	return v, nil
}
