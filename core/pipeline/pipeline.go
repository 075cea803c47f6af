// Package pipeline holds the per-year analysis steps: training data, compositing,
// spectral indices, classification, areas, change detection and climate.
// Every step only describes operation graphs and runs them through a ComputeBackend.
package pipeline

import (
	"fmt"
	"time"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// Params is the methodology shared by every year.
type Params struct {
	Scale             float64
	IndexScale        float64
	ClimateScale      float64
	Trees             int
	MinSamples        int
	MinScenes         int
	WindowPaddingDays int
	IndexFeatures     bool
}

// ParamsFromConfig extracts the methodology from cfg.
func ParamsFromConfig(cfg *contract.Config) Params {
	return Params{
		Scale:             cfg.Scale,
		IndexScale:        cfg.IndexScale,
		ClimateScale:      cfg.ClimateScale,
		Trees:             cfg.Trees,
		MinSamples:        cfg.MinSamples,
		MinScenes:         cfg.MinScenes,
		WindowPaddingDays: cfg.WindowPaddingDays,
		IndexFeatures:     cfg.IndexFeatures,
	}
}

// DefaultParams returns the default methodology.
func DefaultParams() Params {
	return Params{
		Scale:        contract.DefaultScale,
		IndexScale:   contract.DefaultIndexScale,
		ClimateScale: contract.DefaultClimateScale,
		Trees:        contract.DefaultTrees,
		MinSamples:   contract.DefaultMinSamples,
		MinScenes:    contract.DefaultMinScenes,
	}
}

// PixelAreaM2 is the nominal area of one classification pixel.
func (p Params) PixelAreaM2() float64 {
	return p.Scale * p.Scale
}

// Signature is a stable string of every parameter that influences results.
func (p Params) Signature() string {
	return fmt.Sprintf("scale=%g;iscale=%g;cscale=%g;trees=%d;minsamp=%d;minscn=%d;pad=%d;idx=%t",
		p.Scale, p.IndexScale, p.ClimateScale, p.Trees, p.MinSamples, p.MinScenes, p.WindowPaddingDays, p.IndexFeatures)
}

// YearWindow returns [Jan 1 of year, Jan 1 of year+1) widened by padDays on both sides.
func YearWindow(year schema.AnalysisYear, padDays int) (time.Time, time.Time) {
	start := time.Date(int(year), time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	return start.AddDate(0, 0, -padDays), end.AddDate(0, 0, padDays)
}

func number(v schema.Value, op string) (float64, error) {
	if err := v.Expect(schema.NumberValue); err != nil {
		return 0, &schema.RemoteComputeError{Op: op, Message: err.Error()}
	}
	if v.Number == nil {
		return 0, nil
	}
	return *v.Number, nil
}

func raster(v schema.Value, op string) (schema.Value, error) {
	if err := v.Expect(schema.RasterValue); err != nil {
		return v, &schema.RemoteComputeError{Op: op, Message: err.Error()}
	}
	if v.Ref == "" {
		return v, &schema.RemoteComputeError{Op: op, Message: "raster value has no reference"}
	}
	return v, nil
}
