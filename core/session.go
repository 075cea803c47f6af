package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/geochange/landchange/core/pipeline"
	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/internal/metrics"
	"github.com/geochange/landchange/schema"
)

// ProgressEvent reports the outcome of one stage of one year.
type ProgressEvent struct {
	SessionID string
	Year      schema.AnalysisYear
	Stage     schema.Stage
	State     schema.StageState
	Reason    string
}

// ProgressFunc receives progress events. It is called from worker goroutines.
type ProgressFunc func(ProgressEvent)

// Deps are the collaborators of a session.
type Deps struct {
	Backend  contract.ComputeBackend
	Catalog  contract.Catalog
	Boundary contract.BoundaryResolver
	Sensors  pipeline.SensorTable   // nil uses the embedded table
	History  contract.AnalysisStore // nil disables run history
	Logger   *slog.Logger
	Progress ProgressFunc
}

// Options are the methodology and limits of a session.
type Options struct {
	Params         pipeline.Params
	Workers        int
	InitTimeout    time.Duration
	Tolerance      float64
	SignificantKm2 float64
	ConfigParams   map[string]any // Recorded with each run
}

// OptionsFromConfig extracts session options from cfg.
func OptionsFromConfig(cfg *contract.Config) Options {
	return Options{
		Params:         pipeline.ParamsFromConfig(cfg),
		Workers:        cfg.Workers,
		InitTimeout:    cfg.InitTimeout,
		Tolerance:      cfg.Tolerance,
		SignificantKm2: cfg.SignificantKm2,
		ConfigParams:   cfg.Params(),
	}
}

// Session owns every result of one initialization. Initialize builds a complete snapshot
// and publishes it with a single pointer swap; accessors only read the published snapshot.
type Session struct {
	deps Deps
	opts Options

	initMu sync.Mutex
	state  atomic.Pointer[snapshot]
}

type snapshot struct {
	id       string
	region   schema.Region
	cache    *AnalysisCache
	years    map[schema.AnalysisYear]*yearState
	summary  schema.InitSummary
	detector *pipeline.ChangeDetector
}

type yearState struct {
	status         schema.YearStatus
	errs           map[schema.Stage]error
	composite      *schema.CompositeImage
	indices        *schema.IndexResult
	classification *schema.ClassificationResult
	areas          *schema.AreaSummary
	climate        *schema.ClimateSummary
}

func newYearState(year schema.AnalysisYear) *yearState {
	ys := &yearState{
		status: schema.YearStatus{Year: year},
		errs:   make(map[schema.Stage]error),
	}
	for _, st := range schema.AllStages {
		ys.status.Stages = append(ys.status.Stages, schema.StageStatus{Stage: st, State: schema.StagePending})
	}
	return ys
}

// NewSession creates an empty session.
func NewSession(deps Deps, opts Options) (*Session, error) {
	if deps.Backend == nil || deps.Catalog == nil || deps.Boundary == nil {
		return nil, errors.New("session needs a backend, a catalog and a boundary resolver")
	}
	if deps.Sensors == nil {
		sensors, err := pipeline.DefaultSensors()
		if err != nil {
			return nil, err
		}
		deps.Sensors = sensors
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = len(schema.AllYears)
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = contract.DefaultTolerance
	}
	return &Session{deps: deps, opts: opts}, nil
}

// Initialize runs every per-year pipeline and replaces the published snapshot. Years fail
// independently; an error is returned only when the context ends or no year succeeded,
// and in both cases the previous snapshot stays published.
func (s *Session) Initialize(ctx context.Context) (schema.InitSummary, error) {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.opts.InitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.InitTimeout)
		defer cancel()
	}

	snap := &snapshot{
		id:    uuid.NewString(),
		cache: NewAnalysisCache(),
		years: make(map[schema.AnalysisYear]*yearState, len(schema.AllYears)),
	}
	summary := schema.InitSummary{SessionID: snap.id, StartTime: time.Now()}
	log := s.deps.Logger.With("session", snap.id)

	// --- 0. Begin run tracking (if configured) ---
	var analysisID int64
	if s.deps.History != nil {
		var err error
		analysisID, err = s.deps.History.BeginAnalysis(snap.id, summary.StartTime, s.opts.ConfigParams)
		if err != nil {
			log.Warn("run tracking initialization failed", "error", err)
		}
	}

	// --- 1. Region and training data ---
	region, err := s.deps.Boundary.Resolve(ctx)
	if err != nil {
		if analysisID > 0 {
			if endErr := s.deps.History.EndAnalysis(analysisID, time.Now(), 0, len(schema.AllYears)); endErr != nil {
				log.Warn("failed to finalize run tracking", "error", endErr)
			}
		}
		return summary, fmt.Errorf("failed to resolve region: %w", err)
	}
	snap.region = region

	training, trainingErr := pipeline.NewTrainingDataStore(s.deps.Catalog).LoadAll(ctx)
	var missing *schema.MissingTrainingDataError
	if errors.As(trainingErr, &missing) {
		log.Warn("training data incomplete", "missing", len(missing.Keys))
	} else if trainingErr != nil {
		log.Error("training data unavailable", "error", trainingErr)
	}

	// --- 2. Per-year pipelines ---
	params := s.opts.Params
	run := &yearRunner{
		session:    s,
		snap:       snap,
		log:        log,
		builder:    pipeline.NewCompositeBuilder(s.deps.Backend, region, s.deps.Sensors, params),
		engine:     pipeline.NewIndexEngine(s.deps.Backend, region, params),
		classifier: pipeline.NewClassifier(s.deps.Backend, region, params),
		climate:    pipeline.NewClimateEngine(s.deps.Backend, region, params),
		training:   training,
		trainErr:   trainingErr,
	}
	snap.detector = pipeline.NewChangeDetector(s.deps.Backend, region, params)

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for _, year := range schema.AllYears {
		ys := newYearState(year)
		snap.years[year] = ys
		g.Go(func() error {
			run.year(ctx, ys)
			return nil
		})
	}
	_ = g.Wait()

	// --- 3. Summarize and publish ---
	summary.Duration = time.Since(summary.StartTime)
	for _, year := range schema.AllYears {
		ys := snap.years[year]
		summary.Years = append(summary.Years, ys.status)
		if ys.status.Succeeded() {
			summary.Succeeded = append(summary.Succeeded, year)
		} else {
			summary.Failed = append(summary.Failed, year)
		}
	}
	snap.summary = summary
	s.recordHistory(analysisID, snap, log)

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("initialization interrupted: %w", err)
	}
	if len(summary.Succeeded) == 0 {
		return summary, schema.ErrNoYearSucceeded
	}
	s.state.Store(snap)
	log.Info("session initialized", "succeeded", len(summary.Succeeded), "failed", len(summary.Failed), "duration", summary.Duration)
	return summary, nil
}

func (s *Session) recordHistory(analysisID int64, snap *snapshot, log *slog.Logger) {
	if s.deps.History == nil || analysisID <= 0 {
		return
	}
	now := time.Now()
	for _, year := range schema.AllYears {
		ys := snap.years[year]
		rec := schema.NewYearResultRecord(ys.status, ys.composite, ys.areas, ys.indices, ys.climate, now)
		if err := s.deps.History.RecordYearResult(analysisID, rec); err != nil {
			log.Warn("failed to record year result", "year", year, "error", err)
		}
	}
	if err := s.deps.History.EndAnalysis(analysisID, now, len(snap.summary.Succeeded), len(snap.summary.Failed)); err != nil {
		log.Warn("failed to finalize run tracking", "error", err)
	}
}

// yearRunner executes the stages of one year against a snapshot under construction.
// Each yearState is only written by its own goroutine before publication.
type yearRunner struct {
	session    *Session
	snap       *snapshot
	log        *slog.Logger
	builder    *pipeline.CompositeBuilder
	engine     *pipeline.IndexEngine
	classifier *pipeline.Classifier
	climate    *pipeline.ClimateEngine
	training   schema.TrainingGeometrySet
	trainErr   error
}

func (r *yearRunner) mark(ys *yearState, stage schema.Stage, state schema.StageState, err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
		ys.errs[stage] = err
	}
	for i := range ys.status.Stages {
		if ys.status.Stages[i].Stage == stage {
			ys.status.Stages[i].State = state
			ys.status.Stages[i].Reason = reason
		}
	}
	metrics.StageOutcomesTotal.WithLabelValues(string(stage), string(state)).Inc()
	if state == schema.StageFailed {
		r.log.Warn("stage failed", "year", ys.status.Year, "stage", stage, "reason", reason)
	} else {
		r.log.Debug("stage finished", "year", ys.status.Year, "stage", stage, "state", state)
	}
	if p := r.session.deps.Progress; p != nil {
		p(ProgressEvent{SessionID: r.snap.id, Year: ys.status.Year, Stage: stage, State: state, Reason: reason})
	}
}

func (r *yearRunner) year(ctx context.Context, ys *yearState) {
	year := ys.status.Year
	sig := r.session.opts.Params.Signature()
	cache := r.snap.cache

	// Climate has no dependency on the composite.
	climate, _ := GetOrCompute(ctx, cache, NewCacheKey(opClimate, sig, year), func(ctx context.Context) (schema.ClimateSummary, error) {
		return r.climate.Climate(ctx, year), nil
	})
	ys.climate = &climate
	if climate.Complete() {
		r.mark(ys, schema.ClimateStage, schema.StageSucceeded, nil)
	} else if climate.TemperatureC != nil || climate.PrecipitationMm != nil {
		r.mark(ys, schema.ClimateStage, schema.StagePartial, errors.New(joinNotes(climate.Notes)))
	} else {
		r.mark(ys, schema.ClimateStage, schema.StageFailed, errors.New(joinNotes(climate.Notes)))
	}

	composite, err := GetOrCompute(ctx, cache, NewCacheKey(opComposite, sig, year), func(ctx context.Context) (schema.CompositeImage, error) {
		return r.builder.Build(ctx, year)
	})
	if err != nil {
		r.mark(ys, schema.CompositeStage, schema.StageFailed, err)
		skip := fmt.Errorf("composite unavailable: %w", err)
		r.mark(ys, schema.IndicesStage, schema.StageSkipped, skip)
		r.mark(ys, schema.ClassificationStage, schema.StageSkipped, skip)
		return
	}
	ys.composite = &composite
	r.mark(ys, schema.CompositeStage, schema.StageSucceeded, nil)

	indices, err := GetOrCompute(ctx, cache, NewCacheKey(opIndices, sig, year), func(ctx context.Context) (schema.IndexResult, error) {
		return r.engine.Compute(ctx, composite)
	})
	if err != nil {
		r.mark(ys, schema.IndicesStage, schema.StageFailed, err)
	} else {
		ys.indices = &indices
		r.mark(ys, schema.IndicesStage, schema.StageSucceeded, nil)
	}

	if err := r.trainingReady(year); err != nil {
		r.mark(ys, schema.ClassificationStage, schema.StageSkipped, err)
		return
	}
	if r.session.opts.Params.IndexFeatures && ys.indices == nil {
		r.mark(ys, schema.ClassificationStage, schema.StageSkipped, errors.New("index features enabled but indices failed"))
		return
	}

	result, err := GetOrCompute(ctx, cache, NewCacheKey(opClassification, sig, year), func(ctx context.Context) (schema.ClassificationResult, error) {
		model, err := r.classifier.Train(ctx, composite, r.training.ForYear(year), ys.indices)
		if err != nil {
			return schema.ClassificationResult{}, err
		}
		return r.classifier.Apply(ctx, model, composite, ys.indices)
	})
	if err != nil {
		r.mark(ys, schema.ClassificationStage, schema.StageFailed, err)
		return
	}
	areas, _ := GetOrCompute(ctx, cache, NewCacheKey(opAreas, sig, year), func(context.Context) (schema.AreaSummary, error) {
		return pipeline.Areas(result), nil
	})
	if err := pipeline.CheckConsistency(areas, r.session.opts.Tolerance); err != nil {
		r.log.Warn("area totals inconsistent", "year", year, "error", err)
	}
	ys.classification = &result
	ys.areas = &areas
	r.mark(ys, schema.ClassificationStage, schema.StageSucceeded, nil)
}

// trainingReady returns why the year cannot be classified, or nil.
func (r *yearRunner) trainingReady(year schema.AnalysisYear) error {
	var missing *schema.MissingTrainingDataError
	if errors.As(r.trainErr, &missing) {
		if forYear := missing.ForYear(year); forYear != nil {
			return forYear
		}
		return nil
	}
	if r.trainErr != nil {
		return fmt.Errorf("training data unavailable: %w", r.trainErr)
	}
	if !r.training.CompleteFor(year) {
		return &schema.MissingTrainingDataError{Keys: r.training.MissingFor(year)}
	}
	return nil
}

func joinNotes(notes []string) string {
	return strings.Join(notes, "; ")
}
