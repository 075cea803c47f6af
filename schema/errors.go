package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for session lifecycle.
var (
	ErrNotInitialized  = errors.New("analysis session is not initialized")
	ErrNoYearSucceeded = errors.New("no analysis year initialized successfully")
)

// InvalidYearError rejects a year outside the fixed analysis set.
type InvalidYearError struct {
	Raw string
}

func (e *InvalidYearError) Error() string {
	return fmt.Sprintf("invalid analysis year %q. must be one of 1995, 2005, 2015, 2024", e.Raw)
}

// InvalidYearPairError rejects a change request with identical years.
type InvalidYearPairError struct {
	From, To AnalysisYear
}

func (e *InvalidYearPairError) Error() string {
	return fmt.Sprintf("change detection needs two distinct years (got %d and %d)", e.From, e.To)
}

// MissingTrainingDataError lists every (year, class) key that did not resolve.
type MissingTrainingDataError struct {
	Keys []TrainingKey
}

func (e *MissingTrainingDataError) Error() string {
	names := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		names[i] = k.String()
	}
	return fmt.Sprintf("missing training data for %d key(s): %s", len(e.Keys), strings.Join(names, ", "))
}

// ForYear narrows the error to the keys of one year, or returns nil when none match.
func (e *MissingTrainingDataError) ForYear(year AnalysisYear) *MissingTrainingDataError {
	var keys []TrainingKey
	for _, k := range e.Keys {
		if k.Year == year {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return &MissingTrainingDataError{Keys: keys}
}

// InsufficientDataError means a composite could not be built from the available scenes.
type InsufficientDataError struct {
	Year        AnalysisYear
	Scenes      int
	MinScenes   int
	ValidPixels float64
}

func (e *InsufficientDataError) Error() string {
	if e.Scenes >= e.MinScenes {
		return fmt.Sprintf("composite for %d has no valid pixels inside the region (%d scenes)", e.Year, e.Scenes)
	}
	return fmt.Sprintf("only %d valid scene(s) for %d, need at least %d", e.Scenes, e.Year, e.MinScenes)
}

// TrainingDataInsufficientError lists classes with fewer samples than required.
type TrainingDataInsufficientError struct {
	Year       AnalysisYear
	MinSamples int
	Short      map[LandCoverClass]int
}

func (e *TrainingDataInsufficientError) Error() string {
	var parts []string
	for _, c := range AllClasses {
		if n, ok := e.Short[c]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", c.Key(), n))
		}
	}
	return fmt.Sprintf("training samples for %d below minimum %d: %s", e.Year, e.MinSamples, strings.Join(parts, ", "))
}

// IncompleteClassificationError means a change request touched an unclassified year.
type IncompleteClassificationError struct {
	Years []AnalysisYear
	Cause error
}

func (e *IncompleteClassificationError) Error() string {
	years := make([]string, len(e.Years))
	for i, y := range e.Years {
		years[i] = y.String()
	}
	msg := fmt.Sprintf("classification not available for %s", strings.Join(years, ", "))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *IncompleteClassificationError) Unwrap() error { return e.Cause }

// GridMismatchError means two classified rasters are not co-registered.
type GridMismatchError struct {
	From, To AnalysisYear
}

func (e *GridMismatchError) Error() string {
	return fmt.Sprintf("classification grids of %d and %d differ", e.From, e.To)
}

// RemoteComputeError wraps every failure of the remote backend.
type RemoteComputeError struct {
	Op         string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

func (e *RemoteComputeError) Error() string {
	msg := fmt.Sprintf("remote compute failed for %s: %s", e.Op, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	return msg
}

func (e *RemoteComputeError) Unwrap() error { return e.Cause }

// YearNotReadyError is returned by accessors for a year whose stage did not succeed.
type YearNotReadyError struct {
	Year   AnalysisYear
	Stage  Stage
	Reason string
	Cause  error
}

func (e *YearNotReadyError) Error() string {
	return fmt.Sprintf("year %d is not ready (%s): %s", e.Year, e.Stage, e.Reason)
}

func (e *YearNotReadyError) Unwrap() error { return e.Cause }
