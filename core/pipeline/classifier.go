package pipeline

import (
	"context"
	"fmt"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// ClassBand is the band holding class labels in classified rasters.
const ClassBand = "classification"

// Classifier trains and applies one random forest per year.
type Classifier struct {
	backend contract.ComputeBackend
	region  schema.Region
	params  Params
}

// NewClassifier creates a classifier clipped to region.
func NewClassifier(backend contract.ComputeBackend, region schema.Region, params Params) *Classifier {
	return &Classifier{backend: backend, region: region, params: params}
}

// featureImage stacks the reflectance bands and, when enabled, the index bands of the year.
func (c *Classifier) featureImage(composite schema.CompositeImage, indices *schema.IndexResult) (*schema.Expr, []string, error) {
	image := composite.Image()
	features := append([]string(nil), schema.CanonicalBands...)
	if !c.params.IndexFeatures {
		return image, features, nil
	}
	if indices == nil || indices.Image() == nil {
		return nil, nil, fmt.Errorf("index features enabled but indices for %d are not available", composite.Year)
	}
	for _, name := range schema.AllIndices {
		features = append(features, string(name))
	}
	return image.AddBands(indices.Image()), features, nil
}

// Train samples the feature image under the training polygons, checks the per-class
// sample counts and trains the model. Geometries must cover every class of the year.
func (c *Classifier) Train(ctx context.Context, composite schema.CompositeImage, geometries []schema.GeometryCollection, indices *schema.IndexResult) (schema.Model, error) {
	year := composite.Year
	image, features, err := c.featureImage(composite, indices)
	if err != nil {
		return schema.Model{}, err
	}

	collections := make([]*schema.Expr, 0, len(geometries))
	for _, gc := range geometries {
		if gc.Key.Year != year {
			return schema.Model{}, fmt.Errorf("training collection %s does not belong to %d", gc.Key, year)
		}
		e, err := gc.Expr()
		if err != nil {
			return schema.Model{}, err
		}
		collections = append(collections, e)
	}
	samples := image.SampleRegions(schema.Merge(collections...), schema.ClassProperty, c.params.Scale)

	v, err := c.backend.Execute(ctx, samples.AggregateHistogram(schema.ClassProperty))
	if err != nil {
		return schema.Model{}, fmt.Errorf("count training samples for %d: %w", year, err)
	}
	if err := v.Expect(schema.HistogramValue); err != nil {
		return schema.Model{}, &schema.RemoteComputeError{Op: schema.OpAggregateHistogram, Message: err.Error()}
	}
	bins, err := v.IntHistogram()
	if err != nil {
		return schema.Model{}, &schema.RemoteComputeError{Op: schema.OpAggregateHistogram, Message: err.Error()}
	}

	counts := make(map[schema.LandCoverClass]int, len(schema.AllClasses))
	short := make(map[schema.LandCoverClass]int)
	for _, class := range schema.AllClasses {
		n := int(bins[int(class)])
		counts[class] = n
		if n < c.params.MinSamples {
			short[class] = n
		}
	}
	if len(short) > 0 {
		return schema.Model{}, &schema.TrainingDataInsufficientError{Year: year, MinSamples: c.params.MinSamples, Short: short}
	}

	v, err = c.backend.Execute(ctx, schema.TrainRandomForest(samples, schema.ClassProperty, features, c.params.Trees))
	if err != nil {
		return schema.Model{}, fmt.Errorf("train classifier for %d: %w", year, err)
	}
	if err := v.Expect(schema.ModelValue); err != nil || v.Ref == "" {
		return schema.Model{}, &schema.RemoteComputeError{Op: schema.OpTrainRandomForest, Message: "training returned no model"}
	}

	return schema.Model{
		Year:         year,
		Ref:          v.Ref,
		Trees:        c.params.Trees,
		Features:     features,
		SampleCounts: counts,
	}, nil
}

// Apply classifies the composite, masks pixels outside the region or without composite
// data and tallies the pixels per label.
func (c *Classifier) Apply(ctx context.Context, model schema.Model, composite schema.CompositeImage, indices *schema.IndexResult) (schema.ClassificationResult, error) {
	year := composite.Year
	if model.Year != year {
		return schema.ClassificationResult{}, fmt.Errorf("model of %d cannot classify %d", model.Year, year)
	}
	image, _, err := c.featureImage(composite, indices)
	if err != nil {
		return schema.ClassificationResult{}, err
	}

	classified := image.Classify(schema.RasterRef(model.Ref)).
		UpdateMask(composite.Image().Select(schema.BandNIR)).
		Clip(c.region.Expr())
	v, err := c.backend.Execute(ctx, classified)
	if err != nil {
		return schema.ClassificationResult{}, fmt.Errorf("classify %d: %w", year, err)
	}
	img, err := raster(v, schema.OpClassify)
	if err != nil {
		return schema.ClassificationResult{}, err
	}
	if img.Grid == nil {
		return schema.ClassificationResult{}, &schema.RemoteComputeError{Op: schema.OpClassify, Message: "classified raster has no grid"}
	}

	v, err = c.backend.Execute(ctx, schema.RasterRef(img.Ref).FrequencyHistogram(ClassBand, c.region.Expr(), c.params.Scale))
	if err != nil {
		return schema.ClassificationResult{}, fmt.Errorf("tally classes for %d: %w", year, err)
	}
	if err := v.Expect(schema.HistogramValue); err != nil {
		return schema.ClassificationResult{}, &schema.RemoteComputeError{Op: schema.OpFrequencyHistogram, Message: err.Error()}
	}
	bins, err := v.IntHistogram()
	if err != nil {
		return schema.ClassificationResult{}, &schema.RemoteComputeError{Op: schema.OpFrequencyHistogram, Message: err.Error()}
	}

	result := schema.ClassificationResult{
		Year:        year,
		Ref:         img.Ref,
		Grid:        *img.Grid,
		PixelCounts: make(map[schema.LandCoverClass]float64, len(schema.AllClasses)),
		PixelAreaM2: c.params.PixelAreaM2(),
	}
	for _, class := range schema.AllClasses {
		result.PixelCounts[class] = 0
	}
	for label, count := range bins {
		result.ValidPixels += count
		if class, ok := schema.ClassFromLabel(label); ok {
			result.PixelCounts[class] += count
		} else {
			result.UnknownPixels += count
		}
	}
	return result, nil
}
