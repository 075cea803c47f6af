package pipeline

import (
	"context"
	"fmt"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// transitionBase separates the from and to labels in a transition code (from*10 + to).
// Both labels must fall in 0..len(schema.AllClasses)-1, which TransitionImage enforces.
const transitionBase = 10

// classLabels returns the raster label of every class.
func classLabels() []int {
	labels := make([]int, len(schema.AllClasses))
	for i, c := range schema.AllClasses {
		labels[i] = int(c)
	}
	return labels
}

// ChangeDetector tallies class transitions between two classified years.
type ChangeDetector struct {
	backend contract.ComputeBackend
	region  schema.Region
	params  Params
}

// NewChangeDetector creates a detector clipped to region.
func NewChangeDetector(backend contract.ComputeBackend, region schema.Region, params Params) *ChangeDetector {
	return &ChangeDetector{backend: backend, region: region, params: params}
}

// TransitionImage encodes every pixel as from*10 + to. Pixels masked in either year stay
// masked, and so do labels outside the class set, since they would alias a valid code.
func TransitionImage(from, to schema.ClassificationResult) *schema.Expr {
	labels := classLabels()
	return from.Image().Remap(labels, labels).Multiply(transitionBase).
		Add(to.Image().Remap(labels, labels))
}

// Compute builds the directed matrix from -> to. The caller decides the direction.
func (d *ChangeDetector) Compute(ctx context.Context, from, to schema.ClassificationResult) (schema.ChangeMatrix, error) {
	if from.Year == to.Year {
		return schema.ChangeMatrix{}, &schema.InvalidYearPairError{From: from.Year, To: to.Year}
	}
	if !from.Grid.Equal(to.Grid) {
		return schema.ChangeMatrix{}, &schema.GridMismatchError{From: from.Year, To: to.Year}
	}

	v, err := d.backend.Execute(ctx, TransitionImage(from, to).FrequencyHistogram(ClassBand, d.region.Expr(), d.params.Scale))
	if err != nil {
		return schema.ChangeMatrix{}, fmt.Errorf("tally transitions %d -> %d: %w", from.Year, to.Year, err)
	}
	if err := v.Expect(schema.HistogramValue); err != nil {
		return schema.ChangeMatrix{}, &schema.RemoteComputeError{Op: schema.OpFrequencyHistogram, Message: err.Error()}
	}
	bins, err := v.IntHistogram()
	if err != nil {
		return schema.ChangeMatrix{}, &schema.RemoteComputeError{Op: schema.OpFrequencyHistogram, Message: err.Error()}
	}

	m := schema.NewChangeMatrix(from.Year, to.Year)
	pixelKm2 := d.params.PixelAreaM2() / schema.SquareMetersPerKm2
	for code, count := range bins {
		f, fok := schema.ClassFromLabel(code / transitionBase)
		t, tok := schema.ClassFromLabel(code % transitionBase)
		if code < 0 || code >= len(schema.AllClasses)*transitionBase || !fok || !tok {
			m.ExcludedPixels += count
			continue
		}
		m.Cells[f][t] += count * pixelKm2
	}
	return m, nil
}
