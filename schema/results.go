package schema

import (
	"math"
	"sort"
	"time"
)

// SquareMetersPerKm2 converts m² to km².
const SquareMetersPerKm2 = 1_000_000.0

// CompositeImage is the cloud-filtered median surface of one year.
type CompositeImage struct {
	Year        AnalysisYear `json:"year"`
	Sensor      string       `json:"sensor"`
	Collection  string       `json:"collection"`
	SceneCount  int          `json:"scene_count"`
	ValidPixels float64      `json:"valid_pixels"`
	Bands       []string     `json:"bands"`
	Ref         string       `json:"ref"`
}

// Image describes the materialized composite for further operations.
func (c CompositeImage) Image() *Expr {
	return RasterRef(c.Ref)
}

// IndexSummary is the region-level statistic of one spectral index.
type IndexSummary struct {
	Name        IndexName `json:"name"`
	Mean        *float64  `json:"mean"`
	ValidPixels float64   `json:"valid_pixels"`
}

// IndexResult holds every index summary of one year plus the index image descriptor.
type IndexResult struct {
	Year    AnalysisYear               `json:"year"`
	Indices map[IndexName]IndexSummary `json:"indices"`
	image   *Expr
}

// NewIndexResult binds the summaries to the descriptor of the stacked index image.
func NewIndexResult(year AnalysisYear, indices map[IndexName]IndexSummary, image *Expr) IndexResult {
	return IndexResult{Year: year, Indices: indices, image: image}
}

// Image returns the stacked index image descriptor (one band per index).
func (r IndexResult) Image() *Expr {
	return r.image
}

// Ordered returns the summaries in display order.
func (r IndexResult) Ordered() []IndexSummary {
	out := make([]IndexSummary, 0, len(AllIndices))
	for _, name := range AllIndices {
		if s, ok := r.Indices[name]; ok {
			out = append(out, s)
		}
	}
	return out
}

// MapLayer is a display-ready layer descriptor with visualization parameters.
type MapLayer struct {
	Name    string       `json:"name"`
	Year    AnalysisYear `json:"year"`
	Expr    *Expr        `json:"expr"`
	Bands   []string     `json:"bands,omitempty"`
	Min     float64      `json:"min"`
	Max     float64      `json:"max"`
	Palette []string     `json:"palette,omitempty"`
}

// Model is a trained per-year classifier.
type Model struct {
	Year         AnalysisYear           `json:"year"`
	Ref          string                 `json:"ref"`
	Trees        int                    `json:"trees"`
	Features     []string               `json:"features"`
	SampleCounts map[LandCoverClass]int `json:"sample_counts"`
}

// ClassificationResult is the discrete land-cover raster of one year plus its pixel tally.
type ClassificationResult struct {
	Year        AnalysisYear               `json:"year"`
	Ref         string                     `json:"ref"`
	Grid        Grid                       `json:"grid"`
	PixelCounts map[LandCoverClass]float64 `json:"pixel_counts"`
	// UnknownPixels counts labels outside the class set.
	UnknownPixels float64 `json:"unknown_pixels"`
	ValidPixels   float64 `json:"valid_pixels"`
	PixelAreaM2   float64 `json:"pixel_area_m2"`
}

// Image describes the classified raster for further operations.
func (r ClassificationResult) Image() *Expr {
	return RasterRef(r.Ref)
}

// AreaSummary is the per-class area of one year.
type AreaSummary struct {
	Year            AnalysisYear               `json:"year"`
	Areas           map[LandCoverClass]float64 `json:"areas_km2"`
	TotalValidKm2   float64                    `json:"total_valid_km2"`
	UnclassifiedKm2 float64                    `json:"unclassified_km2"`
}

// ClassTotal sums the class areas.
func (a AreaSummary) ClassTotal() float64 {
	var total float64
	for _, v := range a.Areas {
		total += v
	}
	return total
}

// Discrepancy returns the relative gap between the class total and the valid area.
func (a AreaSummary) Discrepancy() float64 {
	if a.TotalValidKm2 == 0 {
		return 0
	}
	return math.Abs(a.ClassTotal()-a.TotalValidKm2) / a.TotalValidKm2
}

// Transition is one off-diagonal cell of a change matrix.
type Transition struct {
	From LandCoverClass `json:"from"`
	To   LandCoverClass `json:"to"`
	Km2  float64        `json:"km2"`
}

// ChangeMatrix is the directed class-by-class transition area between two years.
type ChangeMatrix struct {
	From  AnalysisYear                                  `json:"year_from"`
	To    AnalysisYear                                  `json:"year_to"`
	Cells map[LandCoverClass]map[LandCoverClass]float64 `json:"cells_km2"`
	// ExcludedPixels counts pixel pairs dropped because a label fell outside the class set.
	ExcludedPixels float64 `json:"excluded_pixels"`
}

// NewChangeMatrix returns a matrix with every cell present and zero.
func NewChangeMatrix(from, to AnalysisYear) ChangeMatrix {
	cells := make(map[LandCoverClass]map[LandCoverClass]float64, len(AllClasses))
	for _, f := range AllClasses {
		row := make(map[LandCoverClass]float64, len(AllClasses))
		for _, t := range AllClasses {
			row[t] = 0
		}
		cells[f] = row
	}
	return ChangeMatrix{From: from, To: to, Cells: cells}
}

// Get returns the area moving from class f to class t.
func (m ChangeMatrix) Get(f, t LandCoverClass) float64 {
	return m.Cells[f][t]
}

// RowSum returns the total area of class f at the from year.
func (m ChangeMatrix) RowSum(f LandCoverClass) float64 {
	var total float64
	for _, v := range m.Cells[f] {
		total += v
	}
	return total
}

// ColumnSum returns the total area of class t at the to year.
func (m ChangeMatrix) ColumnSum(t LandCoverClass) float64 {
	var total float64
	for _, f := range AllClasses {
		total += m.Cells[f][t]
	}
	return total
}

// NetChange returns the area gained minus the area lost by class c.
func (m ChangeMatrix) NetChange(c LandCoverClass) float64 {
	return m.ColumnSum(c) - m.RowSum(c)
}

// Transitions returns off-diagonal cells above minKm2, largest first.
func (m ChangeMatrix) Transitions(minKm2 float64) []Transition {
	var out []Transition
	for _, f := range AllClasses {
		for _, t := range AllClasses {
			if f == t {
				continue
			}
			if v := m.Cells[f][t]; v > minKm2 {
				out = append(out, Transition{From: f, To: t, Km2: v})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Km2 > out[j].Km2 })
	return out
}

// ClimateSummary is the annual climate of one year. Missing fields are nil with a note.
type ClimateSummary struct {
	Year            AnalysisYear `json:"year"`
	TemperatureC    *float64     `json:"temperature_c"`
	PrecipitationMm *float64     `json:"precipitation_mm"`
	Notes           []string     `json:"notes,omitempty"`
}

// Complete reports whether both fields are present.
func (c ClimateSummary) Complete() bool {
	return c.TemperatureC != nil && c.PrecipitationMm != nil
}

// StageStatus is the outcome of one stage of one year.
type StageStatus struct {
	Stage  Stage      `json:"stage"`
	State  StageState `json:"state"`
	Reason string     `json:"reason,omitempty"`
}

// YearStatus tracks every stage of one year.
type YearStatus struct {
	Year   AnalysisYear  `json:"year"`
	Stages []StageStatus `json:"stages"`
}

// Stage returns the status of stage s.
func (ys YearStatus) Stage(s Stage) StageStatus {
	for _, st := range ys.Stages {
		if st.Stage == s {
			return st
		}
	}
	return StageStatus{Stage: s, State: StagePending}
}

// Succeeded reports whether every imagery stage finished. Climate never decides the
// outcome of a year since its fields are optional.
func (ys YearStatus) Succeeded() bool {
	n := 0
	for _, st := range ys.Stages {
		if st.Stage == ClimateStage {
			continue
		}
		if st.State != StageSucceeded && st.State != StagePartial {
			return false
		}
		n++
	}
	return n > 0
}

// FailureReason joins the reasons of failed or skipped stages.
func (ys YearStatus) FailureReason() string {
	var reason string
	for _, st := range ys.Stages {
		if st.State == StageFailed || st.State == StageSkipped {
			if reason != "" {
				reason += "; "
			}
			reason += string(st.Stage) + ": " + st.Reason
		}
	}
	return reason
}

// InitSummary is the aggregate outcome of one initialization.
type InitSummary struct {
	SessionID string         `json:"session_id"`
	StartTime time.Time      `json:"start_time"`
	Duration  time.Duration  `json:"duration"`
	Years     []YearStatus   `json:"years"`
	Succeeded []AnalysisYear `json:"succeeded"`
	Failed    []AnalysisYear `json:"failed"`
}

// YearReport is one row of the comprehensive report.
type YearReport struct {
	Year          AnalysisYear                `json:"year"`
	Status        YearStatus                  `json:"status"`
	Areas         *AreaSummary                `json:"areas,omitempty"`
	PercentChange map[LandCoverClass]*float64 `json:"percent_change,omitempty"`
	Indices       *IndexResult                `json:"indices,omitempty"`
	Climate       *ClimateSummary             `json:"climate,omitempty"`
}

// PeriodReport lists significant transitions between two years.
type PeriodReport struct {
	From        AnalysisYear `json:"year_from"`
	To          AnalysisYear `json:"year_to"`
	Transitions []Transition `json:"transitions"`
	Error       string       `json:"error,omitempty"`
}

// Report is the comprehensive multi-year summary.
type Report struct {
	Region      string         `json:"region"`
	GeneratedAt time.Time      `json:"generated_at"`
	BaseYear    AnalysisYear   `json:"base_year"`
	Years       []YearReport   `json:"years"`
	Periods     []PeriodReport `json:"periods"`
}
