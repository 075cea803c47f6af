package pipeline

import (
	"context"
	"fmt"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// CompositeBuilder produces the cloud-masked median composite of one year.
type CompositeBuilder struct {
	backend contract.ComputeBackend
	region  schema.Region
	sensors SensorTable
	params  Params
}

// NewCompositeBuilder creates a builder clipped to region.
func NewCompositeBuilder(backend contract.ComputeBackend, region schema.Region, sensors SensorTable, params Params) *CompositeBuilder {
	return &CompositeBuilder{backend: backend, region: region, sensors: sensors, params: params}
}

// Scenes describes the masked, band-reconciled and scaled scenes of year that have at
// least one valid pixel inside the region.
func (b *CompositeBuilder) Scenes(year schema.AnalysisYear) (*schema.Expr, Sensor, error) {
	sensor, ok := b.sensors[year]
	if !ok {
		return nil, Sensor{}, &schema.InvalidYearError{Raw: year.String()}
	}
	start, end := YearWindow(year, b.params.WindowPaddingDays)
	region := b.region.Expr()
	scenes := schema.Collection(sensor.Collection).
		FilterBounds(region).
		FilterDate(start, end).
		MaskQA(sensor.QABand, sensor.QAMask, sensor.SaturationBand).
		SelectRename(sensor.NativeBands(), schema.CanonicalBands).
		Scale(sensor.Scale.Multiplier, sensor.Scale.Offset).
		FilterNonEmpty(region, b.params.Scale)
	return scenes, sensor, nil
}

// Build counts the valid scenes, materializes their per-pixel median and checks that the
// composite still covers part of the region. Pixels without any valid observation stay masked.
func (b *CompositeBuilder) Build(ctx context.Context, year schema.AnalysisYear) (schema.CompositeImage, error) {
	scenes, sensor, err := b.Scenes(year)
	if err != nil {
		return schema.CompositeImage{}, err
	}

	v, err := b.backend.Execute(ctx, scenes.Size())
	if err != nil {
		return schema.CompositeImage{}, fmt.Errorf("count scenes for %d: %w", year, err)
	}
	count, err := number(v, schema.OpSize)
	if err != nil {
		return schema.CompositeImage{}, err
	}
	if int(count) < b.params.MinScenes {
		return schema.CompositeImage{}, &schema.InsufficientDataError{Year: year, Scenes: int(count), MinScenes: b.params.MinScenes}
	}

	v, err = b.backend.Execute(ctx, scenes.Median().Clip(b.region.Expr()))
	if err != nil {
		return schema.CompositeImage{}, fmt.Errorf("build composite for %d: %w", year, err)
	}
	img, err := raster(v, schema.OpMedian)
	if err != nil {
		return schema.CompositeImage{}, err
	}

	v, err = b.backend.Execute(ctx, schema.RasterRef(img.Ref).Select(schema.BandNIR).
		ReduceRegion(schema.ReducerCount, b.region.Expr(), b.params.Scale))
	if err != nil {
		return schema.CompositeImage{}, fmt.Errorf("count composite pixels for %d: %w", year, err)
	}
	if err := v.Expect(schema.DictValue); err != nil {
		return schema.CompositeImage{}, &schema.RemoteComputeError{Op: schema.OpReduceRegion, Message: err.Error()}
	}
	var valid float64
	if n := v.Dict[schema.BandNIR]; n != nil {
		valid = *n
	}
	if valid <= 0 {
		return schema.CompositeImage{}, &schema.InsufficientDataError{Year: year, Scenes: int(count), MinScenes: b.params.MinScenes}
	}

	return schema.CompositeImage{
		Year:        year,
		Sensor:      sensor.Name,
		Collection:  sensor.Collection,
		SceneCount:  int(count),
		ValidPixels: valid,
		Bands:       append([]string(nil), schema.CanonicalBands...),
		Ref:         img.Ref,
	}, nil
}
