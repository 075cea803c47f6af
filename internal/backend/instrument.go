package backend

import (
	"context"
	"time"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/internal/metrics"
	"github.com/geochange/landchange/schema"
)

// InstrumentedBackend records Prometheus metrics per root operation.
type InstrumentedBackend struct {
	next contract.ComputeBackend
}

var _ contract.ComputeBackend = &InstrumentedBackend{} // Compile-time check

// NewInstrumentedBackend wraps next.
func NewInstrumentedBackend(next contract.ComputeBackend) *InstrumentedBackend {
	return &InstrumentedBackend{next: next}
}

// Execute forwards to the wrapped backend and counts the outcome.
func (b *InstrumentedBackend) Execute(ctx context.Context, expr *schema.Expr) (schema.Value, error) {
	start := time.Now()
	v, err := b.next.Execute(ctx, expr)
	metrics.RemoteRequestsTotal.WithLabelValues(expr.Op).Inc()
	metrics.RemoteDurationSeconds.WithLabelValues(expr.Op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RemoteFailuresTotal.WithLabelValues(expr.Op).Inc()
	}
	return v, err
}
