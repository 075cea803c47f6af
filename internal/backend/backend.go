// Package backend implements contract.ComputeBackend over HTTP and fixture files, plus the
// retry, durable cache, metrics and recording decorators wrapped around it.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// Func adapts a plain function to contract.ComputeBackend.
type Func func(ctx context.Context, expr *schema.Expr) (schema.Value, error)

var _ contract.ComputeBackend = Func(nil) // Compile-time check

// Execute calls f.
func (f Func) Execute(ctx context.Context, expr *schema.Expr) (schema.Value, error) {
	return f(ctx, expr)
}

// AsRemoteError normalizes err into a *schema.RemoteComputeError for expr's root op.
// Context errors are kept as causes and never marked retryable.
func AsRemoteError(expr *schema.Expr, err error) error {
	if err == nil {
		return nil
	}
	var rce *schema.RemoteComputeError
	if errors.As(err, &rce) {
		return err
	}
	op := ""
	if expr != nil {
		op = expr.Op
	}
	return &schema.RemoteComputeError{Op: op, Message: err.Error(), Cause: err}
}

// Options selects the decorators applied by New.
type Options struct {
	Store  contract.CacheStore // Durable result cache; nil disables it
	Logger *slog.Logger
}

// New builds the backend chain described by cfg:
// base (http or replay) -> recorder -> durable cache -> retry -> metrics.
// The returned closer flushes recorded fixtures and must be called on shutdown.
func New(cfg *contract.Config, opts Options) (contract.ComputeBackend, func() error, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var base contract.ComputeBackend
	switch cfg.Backend {
	case schema.HTTPBackend:
		base = NewHTTPBackend(cfg.BackendURL, cfg.BackendToken, cfg.RemoteTimeout, logger)
	case schema.ReplayBackend:
		replay, err := LoadReplayBackend(cfg.BackendFixtures)
		if err != nil {
			return nil, nil, err
		}
		base = replay
	default:
		return nil, nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}

	closer := func() error { return nil }
	if cfg.RecordFixtures != "" {
		rec := NewRecorder(base)
		base = rec
		closer = func() error { return rec.Save(cfg.RecordFixtures) }
	}

	var chain contract.ComputeBackend = base
	if opts.Store != nil {
		chain = NewCachingBackend(chain, opts.Store)
	}
	chain = NewRetryingBackend(chain, cfg.RemoteRetries, logger)
	chain = NewInstrumentedBackend(chain)
	return chain, closer, nil
}
