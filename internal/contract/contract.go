// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/geochange/landchange/schema"
)

// ComputeBackend executes operation graphs on the remote imagery backend.
// Describing an operation is done by building a schema.Expr; Execute blocks until the
// backend returns a concrete value or ctx is done. Every failure is a *schema.RemoteComputeError.
type ComputeBackend interface {
	Execute(ctx context.Context, expr *schema.Expr) (schema.Value, error)
}

// Catalog resolves persisted training geometries.
type Catalog interface {
	// Resolve returns the collection for key, or a *schema.MissingTrainingDataError
	// naming key when nothing is stored for it.
	Resolve(ctx context.Context, key schema.TrainingKey) (schema.GeometryCollection, error)
}

// BoundaryResolver resolves the region every operation is clipped to.
type BoundaryResolver interface {
	Resolve(ctx context.Context) (schema.Region, error)
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetResultStore() CacheStore
	GetAnalysisStore() AnalysisStore
}

// CacheStore defines the interface for durable result storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// AnalysisStore defines the interface for tracking initialization runs and their per-year results.
type AnalysisStore interface {
	// BeginAnalysis creates a new run and returns its unique ID
	BeginAnalysis(sessionID string, startTime time.Time, configParams map[string]any) (int64, error)

	// EndAnalysis updates the run with completion data
	EndAnalysis(analysisID int64, endTime time.Time, yearsSucceeded, yearsFailed int) error

	// RecordYearResult stores the outcome of one year
	RecordYearResult(analysisID int64, record schema.YearResultRecord) error

	// GetStatus returns status information about the analysis store
	GetStatus() (schema.AnalysisStatus, error)

	// GetAllAnalysisRuns returns every recorded run
	GetAllAnalysisRuns() ([]schema.AnalysisRunRecord, error)

	// GetAllYearResults returns every recorded year row
	GetAllYearResults() ([]schema.YearResultRecord, error)

	// Close closes the underlying connection
	Close() error
}
