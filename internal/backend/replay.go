package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// Fixture is one recorded expression and its result. Err is set for recorded failures.
type Fixture struct {
	Op    string        `json:"op"`
	Value *schema.Value `json:"value,omitempty"`
	Err   *fixtureError `json:"error,omitempty"`
}

type fixtureError struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// FixtureFile maps expression fingerprints to recorded outcomes.
type FixtureFile map[string]Fixture

// ReplayBackend answers from a fixture file without network access.
type ReplayBackend struct {
	fixtures FixtureFile
}

var _ contract.ComputeBackend = &ReplayBackend{} // Compile-time check

// LoadReplayBackend reads fixtures from path.
func LoadReplayBackend(path string) (*ReplayBackend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures %s: %w", path, err)
	}
	var fixtures FixtureFile
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures %s: %w", path, err)
	}
	return NewReplayBackend(fixtures), nil
}

// NewReplayBackend serves the given fixtures.
func NewReplayBackend(fixtures FixtureFile) *ReplayBackend {
	return &ReplayBackend{fixtures: fixtures}
}

// Execute returns the recorded outcome, or a permanent error for unknown expressions.
func (r *ReplayBackend) Execute(_ context.Context, expr *schema.Expr) (schema.Value, error) {
	fx, ok := r.fixtures[expr.Fingerprint()]
	if !ok {
		return schema.Value{}, &schema.RemoteComputeError{Op: expr.Op, Message: "no fixture recorded for expression"}
	}
	if fx.Err != nil {
		return schema.Value{}, &schema.RemoteComputeError{Op: expr.Op, Message: fx.Err.Message, Retryable: fx.Err.Retryable}
	}
	if fx.Value == nil {
		return schema.Value{}, &schema.RemoteComputeError{Op: expr.Op, Message: "fixture has no value"}
	}
	return *fx.Value, nil
}

// Recorder captures every outcome of the wrapped backend for later replay.
type Recorder struct {
	next contract.ComputeBackend

	mu       sync.Mutex
	fixtures FixtureFile
}

var _ contract.ComputeBackend = &Recorder{} // Compile-time check

// NewRecorder wraps next.
func NewRecorder(next contract.ComputeBackend) *Recorder {
	return &Recorder{next: next, fixtures: make(FixtureFile)}
}

// Execute forwards to the wrapped backend and records the outcome.
// Cancellations are not recorded since they say nothing about the expression.
func (r *Recorder) Execute(ctx context.Context, expr *schema.Expr) (schema.Value, error) {
	v, err := r.next.Execute(ctx, expr)
	if ctx.Err() != nil {
		return v, err
	}

	fx := Fixture{Op: expr.Op}
	if err != nil {
		fx.Err = &fixtureError{Message: err.Error()}
		var rce *schema.RemoteComputeError
		if errors.As(err, &rce) {
			fx.Err = &fixtureError{Message: rce.Message, Retryable: rce.Retryable}
		}
	} else {
		val := v
		fx.Value = &val
	}

	r.mu.Lock()
	r.fixtures[expr.Fingerprint()] = fx
	r.mu.Unlock()
	return v, err
}

// Fixtures returns a copy of everything recorded so far.
func (r *Recorder) Fixtures() FixtureFile {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(FixtureFile, len(r.fixtures))
	for k, v := range r.fixtures {
		out[k] = v
	}
	return out
}

// Save writes the recorded fixtures as indented JSON.
func (r *Recorder) Save(path string) error {
	data, err := json.MarshalIndent(r.Fixtures(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode fixtures: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write fixtures %s: %w", path, err)
	}
	return nil
}
