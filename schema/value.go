package schema

import (
	"fmt"
	"strconv"
)

// ValueKind tags what an executed expression returned.
type ValueKind string

// All value kinds returned by the backend.
const (
	RasterValue    ValueKind = "raster"
	ModelValue     ValueKind = "model"
	NumberValue    ValueKind = "number"
	DictValue      ValueKind = "dict"
	HistogramValue ValueKind = "histogram"
	AssetValue     ValueKind = "asset"
)

// Grid describes the pixel grid of a materialized raster.
type Grid struct {
	CRS       string     `json:"crs"`
	Scale     float64    `json:"scale"`
	Transform [6]float64 `json:"transform"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
}

// Equal reports whether two grids are pixel-for-pixel identical.
func (g Grid) Equal(o Grid) bool {
	return g.CRS == o.CRS && g.Scale == o.Scale && g.Transform == o.Transform &&
		g.Width == o.Width && g.Height == o.Height
}

// Value is the concrete result of executing an Expr. Exactly the fields matching Kind are set.
type Value struct {
	Kind      ValueKind           `json:"kind"`
	Ref       string              `json:"ref,omitempty"`
	Grid      *Grid               `json:"grid,omitempty"`
	Number    *float64            `json:"number,omitempty"`
	Dict      map[string]*float64 `json:"dict,omitempty"`
	Histogram map[string]float64  `json:"histogram,omitempty"`
	Exists    *bool               `json:"exists,omitempty"`
	Count     int                 `json:"count,omitempty"`
}

// Numeric reports whether the value is a plain aggregate (no remote handle).
func (v Value) Numeric() bool {
	switch v.Kind {
	case NumberValue, DictValue, HistogramValue, AssetValue:
		return true
	default:
		return false
	}
}

// Expect checks the value kind.
func (v Value) Expect(kind ValueKind) error {
	if v.Kind != kind {
		return fmt.Errorf("expected %s value, got %q", kind, v.Kind)
	}
	return nil
}

// IntHistogram decodes the string-keyed histogram into integer bins.
func (v Value) IntHistogram() (map[int]float64, error) {
	out := make(map[int]float64, len(v.Histogram))
	for k, count := range v.Histogram {
		f, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return nil, fmt.Errorf("histogram bin %q is not numeric: %w", k, err)
		}
		out[int(f)] += count
	}
	return out, nil
}

// NewNumber builds a number value.
func NewNumber(n float64) Value {
	return Value{Kind: NumberValue, Number: &n}
}

// NewRaster builds a raster reference value.
func NewRaster(ref string, grid *Grid) Value {
	return Value{Kind: RasterValue, Ref: ref, Grid: grid}
}

// NewHistogram builds a histogram value from integer bins.
func NewHistogram(bins map[int]float64) Value {
	h := make(map[string]float64, len(bins))
	for k, count := range bins {
		h[strconv.Itoa(k)] = count
	}
	return Value{Kind: HistogramValue, Histogram: h}
}

// Float returns a pointer to f, for optional numeric fields.
func Float(f float64) *float64 {
	return &f
}
