package core

import (
	"context"

	"github.com/geochange/landchange/core/pipeline"
	"github.com/geochange/landchange/schema"
)

func (s *Session) current() (*snapshot, error) {
	snap := s.state.Load()
	if snap == nil {
		return nil, schema.ErrNotInitialized
	}
	return snap, nil
}

// yearState returns the state of year, validating it against the fixed set.
func (snap *snapshot) year(year schema.AnalysisYear) (*yearState, error) {
	if !year.Valid() {
		return nil, &schema.InvalidYearError{Raw: year.String()}
	}
	return snap.years[year], nil
}

// ready fails with a YearNotReadyError unless stage succeeded (or was partial).
func (ys *yearState) ready(stage schema.Stage) error {
	st := ys.status.Stage(stage)
	if st.State == schema.StageSucceeded || st.State == schema.StagePartial {
		return nil
	}
	return &schema.YearNotReadyError{Year: ys.status.Year, Stage: stage, Reason: string(st.State) + ": " + st.Reason, Cause: ys.errs[stage]}
}

// Initialized reports whether a snapshot is published.
func (s *Session) Initialized() bool {
	return s.state.Load() != nil
}

// ID returns the id of the published snapshot.
func (s *Session) ID() (string, error) {
	snap, err := s.current()
	if err != nil {
		return "", err
	}
	return snap.id, nil
}

// Region returns the region of the published snapshot.
func (s *Session) Region() (schema.Region, error) {
	snap, err := s.current()
	if err != nil {
		return schema.Region{}, err
	}
	return snap.region, nil
}

// Summary returns the summary of the initialization that produced the snapshot.
func (s *Session) Summary() (schema.InitSummary, error) {
	snap, err := s.current()
	if err != nil {
		return schema.InitSummary{}, err
	}
	return snap.summary, nil
}

// Status returns the per-stage status of a year.
func (s *Session) Status(year schema.AnalysisYear) (schema.YearStatus, error) {
	snap, err := s.current()
	if err != nil {
		return schema.YearStatus{}, err
	}
	ys, err := snap.year(year)
	if err != nil {
		return schema.YearStatus{}, err
	}
	return ys.status, nil
}

// CacheStats returns the analysis cache counters of the snapshot.
func (s *Session) CacheStats() (CacheStats, error) {
	snap, err := s.current()
	if err != nil {
		return CacheStats{}, err
	}
	return snap.cache.Stats(), nil
}

// Composite returns the composite of a year.
func (s *Session) Composite(year schema.AnalysisYear) (schema.CompositeImage, error) {
	ys, err := s.stage(year, schema.CompositeStage)
	if err != nil {
		return schema.CompositeImage{}, err
	}
	return *ys.composite, nil
}

// Areas returns the per-class areas of a classified year.
func (s *Session) Areas(year schema.AnalysisYear) (schema.AreaSummary, error) {
	ys, err := s.stage(year, schema.ClassificationStage)
	if err != nil {
		return schema.AreaSummary{}, err
	}
	return *ys.areas, nil
}

// Classification returns the classification result of a year.
func (s *Session) Classification(year schema.AnalysisYear) (schema.ClassificationResult, error) {
	ys, err := s.stage(year, schema.ClassificationStage)
	if err != nil {
		return schema.ClassificationResult{}, err
	}
	return *ys.classification, nil
}

// Indices returns the spectral index summaries of a year.
func (s *Session) Indices(year schema.AnalysisYear) (schema.IndexResult, error) {
	ys, err := s.stage(year, schema.IndicesStage)
	if err != nil {
		return schema.IndexResult{}, err
	}
	return *ys.indices, nil
}

// Climate returns the climate summary of a year. Missing fields are nil with a note.
func (s *Session) Climate(year schema.AnalysisYear) (schema.ClimateSummary, error) {
	snap, err := s.current()
	if err != nil {
		return schema.ClimateSummary{}, err
	}
	ys, err := snap.year(year)
	if err != nil {
		return schema.ClimateSummary{}, err
	}
	if ys.climate == nil {
		return schema.ClimateSummary{}, ys.ready(schema.ClimateStage)
	}
	return *ys.climate, nil
}

// Layers returns the display layers of a year. Years without a composite still get the
// region outline and climate layers.
func (s *Session) Layers(year schema.AnalysisYear) ([]schema.MapLayer, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	ys, err := snap.year(year)
	if err != nil {
		return nil, err
	}
	var composite *schema.CompositeImage
	if ys.ready(schema.CompositeStage) == nil {
		composite = ys.composite
	}
	var classification *schema.ClassificationResult
	if ys.ready(schema.ClassificationStage) == nil {
		classification = ys.classification
	}
	return pipeline.Layers(snap.region, year, composite, classification), nil
}

// ChangeMatrix returns the directed transition matrix from -> to, computing it on first use.
func (s *Session) ChangeMatrix(ctx context.Context, from, to schema.AnalysisYear) (schema.ChangeMatrix, error) {
	snap, err := s.current()
	if err != nil {
		return schema.ChangeMatrix{}, err
	}
	fromState, err := snap.year(from)
	if err != nil {
		return schema.ChangeMatrix{}, err
	}
	toState, err := snap.year(to)
	if err != nil {
		return schema.ChangeMatrix{}, err
	}
	if from == to {
		return schema.ChangeMatrix{}, &schema.InvalidYearPairError{From: from, To: to}
	}

	incomplete := &schema.IncompleteClassificationError{}
	for _, ys := range []*yearState{fromState, toState} {
		if err := ys.ready(schema.ClassificationStage); err != nil {
			incomplete.Years = append(incomplete.Years, ys.status.Year)
			if incomplete.Cause == nil {
				incomplete.Cause = err
			}
		}
	}
	if len(incomplete.Years) > 0 {
		return schema.ChangeMatrix{}, incomplete
	}

	key := NewCacheKey(opChange, s.opts.Params.Signature(), from, to)
	return GetOrCompute(ctx, snap.cache, key, func(ctx context.Context) (schema.ChangeMatrix, error) {
		return snap.detector.Compute(ctx, *fromState.classification, *toState.classification)
	})
}

func (s *Session) stage(year schema.AnalysisYear, stage schema.Stage) (*yearState, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	ys, err := snap.year(year)
	if err != nil {
		return nil, err
	}
	if err := ys.ready(stage); err != nil {
		return nil, err
	}
	return ys, nil
}
