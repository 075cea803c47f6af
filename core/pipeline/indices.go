package pipeline

import (
	"context"
	"fmt"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// indexFormula is the band arithmetic of one index. Normalized differences use A and B;
// everything else is an expression masked wherever Denominator is zero.
type indexFormula struct {
	A, B        string
	Formula     string
	Denominator string
}

var indexFormulas = map[schema.IndexName]indexFormula{
	schema.NDVI: {A: schema.BandNIR, B: schema.BandRed},
	schema.EVI: {
		Formula:     "2.5 * (nir - red) / (nir + 6 * red - 7.5 * blue + 1)",
		Denominator: "nir + 6 * red - 7.5 * blue + 1",
	},
	schema.NDWI: {A: schema.BandNIR, B: schema.BandSWIR1},
	schema.SAVI: {
		Formula:     "1.5 * (nir - red) / (nir + red + 0.5)",
		Denominator: "nir + red + 0.5",
	},
	schema.NBR: {A: schema.BandNIR, B: schema.BandSWIR2},
	schema.BSI: {
		Formula:     "((swir1 + red) - (nir + blue)) / ((swir1 + red) + (nir + blue))",
		Denominator: "(swir1 + red) + (nir + blue)",
	},
	schema.NDBI:  {A: schema.BandSWIR1, B: schema.BandNIR},
	schema.MNDWI: {A: schema.BandGreen, B: schema.BandSWIR1},
}

// IndexExpr describes one index band computed from image.
func IndexExpr(image *schema.Expr, name schema.IndexName) *schema.Expr {
	f := indexFormulas[name]
	if f.Formula == "" {
		return image.NormalizedDifference(f.A, f.B, string(name))
	}
	return image.Expression(string(name), f.Formula, f.Denominator)
}

// IndexImage stacks every index of the composite into one image, one band per index.
func IndexImage(composite schema.CompositeImage) *schema.Expr {
	image := composite.Image()
	bands := make([]*schema.Expr, 0, len(schema.AllIndices)-1)
	for _, name := range schema.AllIndices[1:] {
		bands = append(bands, IndexExpr(image, name))
	}
	return IndexExpr(image, schema.AllIndices[0]).AddBands(bands...)
}

// IndexEngine summarizes spectral indices over the region.
type IndexEngine struct {
	backend contract.ComputeBackend
	region  schema.Region
	params  Params
}

// NewIndexEngine creates an engine clipped to region.
func NewIndexEngine(backend contract.ComputeBackend, region schema.Region, params Params) *IndexEngine {
	return &IndexEngine{backend: backend, region: region, params: params}
}

// Compute reduces every index to its region mean and valid pixel count in one request.
// A mean over zero valid pixels is reported as nil.
func (e *IndexEngine) Compute(ctx context.Context, composite schema.CompositeImage) (schema.IndexResult, error) {
	image := IndexImage(composite)
	v, err := e.backend.Execute(ctx, image.ReduceRegion(schema.ReducerMeanCnt, e.region.Expr(), e.params.IndexScale))
	if err != nil {
		return schema.IndexResult{}, fmt.Errorf("compute indices for %d: %w", composite.Year, err)
	}
	if err := v.Expect(schema.DictValue); err != nil {
		return schema.IndexResult{}, &schema.RemoteComputeError{Op: schema.OpReduceRegion, Message: err.Error()}
	}

	summaries := make(map[schema.IndexName]schema.IndexSummary, len(schema.AllIndices))
	for _, name := range schema.AllIndices {
		s := schema.IndexSummary{Name: name}
		if n := v.Dict[string(name)+"_count"]; n != nil {
			s.ValidPixels = *n
		}
		if m := v.Dict[string(name)+"_mean"]; m != nil && s.ValidPixels > 0 {
			s.Mean = schema.Float(*m)
		}
		summaries[name] = s
	}
	return schema.NewIndexResult(composite.Year, summaries, image), nil
}
