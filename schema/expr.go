package schema

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// Operation names understood by the remote compute backend.
const (
	OpCollection         = "collection"
	OpAsset              = "asset"
	OpAssetInfo          = "asset_info"
	OpRef                = "ref"
	OpFeatures           = "features"
	OpMerge              = "merge"
	OpFilterEq           = "filter_eq"
	OpFilterDate         = "filter_date"
	OpFilterBounds       = "filter_bounds"
	OpFilterNonEmpty     = "filter_nonempty"
	OpMaskQA             = "mask_qa"
	OpSelect             = "select"
	OpSelectRename       = "select_rename"
	OpScale              = "scale"
	OpSize               = "size"
	OpMedian             = "median"
	OpMean               = "mean"
	OpSum                = "sum"
	OpClip               = "clip"
	OpNormalizedDiff     = "normalized_difference"
	OpExpression         = "expression"
	OpAddBands           = "add_bands"
	OpUpdateMask         = "update_mask"
	OpReduceRegion       = "reduce_region"
	OpSampleRegions      = "sample_regions"
	OpAggregateHistogram = "aggregate_histogram"
	OpTrainRandomForest  = "train_random_forest"
	OpClassify           = "classify"
	OpMultiply           = "multiply"
	OpRemap              = "remap"
	OpAdd                = "add"
	OpFrequencyHistogram = "frequency_histogram"
	OpGeometry           = "geometry"
	OpSetProperty        = "set_property"
)

// Reducers accepted by reduce_region.
const (
	ReducerMean     = "mean"
	ReducerCount    = "count"
	ReducerMeanCnt  = "mean_count"
	ReducerSum      = "sum"
	ReducerFirstVal = "first"
)

const dateLayout = "2006-01-02"

// Expr is a node of a lazily evaluated operation graph. Building an Expr never talks to
// the backend; only ComputeBackend.Execute does. Builders return new nodes and never
// mutate their receiver, so sub-graphs can be shared.
type Expr struct {
	Op     string         `json:"op"`
	Args   map[string]any `json:"args,omitempty"`
	Inputs []*Expr        `json:"inputs,omitempty"`
}

func node(op string, args map[string]any, inputs ...*Expr) *Expr {
	return &Expr{Op: op, Args: args, Inputs: inputs}
}

// Fingerprint returns a deterministic digest of the whole graph.
func (e *Expr) Fingerprint() string {
	data, err := json.Marshal(e)
	if err != nil {
		// Args only ever hold JSON-safe scalars, slices and string maps.
		panic(fmt.Sprintf("expr is not serializable: %v", err))
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// Find returns the first node (depth-first, receiver included) with the given op.
func (e *Expr) Find(op string) *Expr {
	if e == nil {
		return nil
	}
	if e.Op == op {
		return e
	}
	for _, in := range e.Inputs {
		if found := in.Find(op); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every node with the given op in depth-first order.
func (e *Expr) FindAll(op string) []*Expr {
	if e == nil {
		return nil
	}
	var out []*Expr
	if e.Op == op {
		out = append(out, e)
	}
	for _, in := range e.Inputs {
		out = append(out, in.FindAll(op)...)
	}
	return out
}

// StringArg returns a string argument, or "" when absent.
func (e *Expr) StringArg(key string) string {
	if e == nil {
		return ""
	}
	s, _ := e.Args[key].(string)
	return s
}

// Collection references a raw image or feature collection by dataset id.
func Collection(id string) *Expr {
	return node(OpCollection, map[string]any{"id": id})
}

// Asset references a persisted feature collection by path.
func Asset(path string) *Expr {
	return node(OpAsset, map[string]any{"path": path})
}

// AssetInfo asks for the metadata of an asset (feature count, existence).
func AssetInfo(path string) *Expr {
	return node(OpAssetInfo, map[string]any{"path": path})
}

// RasterRef points at a raster materialized by an earlier Execute.
func RasterRef(ref string) *Expr {
	return node(OpRef, map[string]any{"ref": ref})
}

// Features describes an inline feature collection from GeoJSON with constant properties.
func Features(geojson string, props map[string]any) *Expr {
	return node(OpFeatures, map[string]any{"geojson": geojson, "properties": props})
}

// Geometry describes an inline region geometry from GeoJSON.
func Geometry(geojson string) *Expr {
	return node(OpGeometry, map[string]any{"geojson": geojson})
}

// Merge concatenates feature collections.
func Merge(collections ...*Expr) *Expr {
	return node(OpMerge, nil, collections...)
}

// SetProperty sets a constant property on every feature.
func (e *Expr) SetProperty(key string, value any) *Expr {
	return node(OpSetProperty, map[string]any{"key": key, "value": value}, e)
}

// FilterEq keeps features whose property equals value.
func (e *Expr) FilterEq(property, value string) *Expr {
	return node(OpFilterEq, map[string]any{"property": property, "value": value}, e)
}

// FilterDate keeps images acquired in [start, end).
func (e *Expr) FilterDate(start, end time.Time) *Expr {
	return node(OpFilterDate, map[string]any{"start": start.Format(dateLayout), "end": end.Format(dateLayout)}, e)
}

// FilterBounds keeps images intersecting region.
func (e *Expr) FilterBounds(region *Expr) *Expr {
	return node(OpFilterBounds, nil, e, region)
}

// FilterNonEmpty drops images without a single unmasked pixel inside region.
func (e *Expr) FilterNonEmpty(region *Expr, scale float64) *Expr {
	return node(OpFilterNonEmpty, map[string]any{"scale": scale}, e, region)
}

// MaskQA masks every pixel whose QA bits intersect qaMask or whose saturation band is non-zero.
func (e *Expr) MaskQA(qaBand string, qaMask int, saturationBand string) *Expr {
	return node(OpMaskQA, map[string]any{"qa_band": qaBand, "qa_mask": qaMask, "saturation_band": saturationBand}, e)
}

// Select keeps the named bands.
func (e *Expr) Select(bands ...string) *Expr {
	return node(OpSelect, map[string]any{"bands": bands}, e)
}

// SelectRename keeps the from bands and renames them positionally to to.
func (e *Expr) SelectRename(from, to []string) *Expr {
	return node(OpSelectRename, map[string]any{"from": from, "to": to}, e)
}

// Scale applies value*multiplier + offset per pixel.
func (e *Expr) Scale(multiplier, offset float64) *Expr {
	return node(OpScale, map[string]any{"multiplier": multiplier, "offset": offset}, e)
}

// Size counts the elements of a collection.
func (e *Expr) Size() *Expr {
	return node(OpSize, nil, e)
}

// Median reduces an image collection per pixel using unmasked observations only.
func (e *Expr) Median() *Expr {
	return node(OpMedian, nil, e)
}

// Mean reduces an image collection per pixel to its mean.
func (e *Expr) Mean() *Expr {
	return node(OpMean, nil, e)
}

// Sum reduces an image collection per pixel to its sum.
func (e *Expr) Sum() *Expr {
	return node(OpSum, nil, e)
}

// Clip masks everything outside region.
func (e *Expr) Clip(region *Expr) *Expr {
	return node(OpClip, nil, e, region)
}

// NormalizedDifference computes (a-b)/(a+b) into band name, masking a+b == 0.
func (e *Expr) NormalizedDifference(a, b, name string) *Expr {
	return node(OpNormalizedDiff, map[string]any{"a": a, "b": b, "name": name}, e)
}

// Expression evaluates formula per pixel into band name. Pixels where denominator
// evaluates to zero are masked.
func (e *Expr) Expression(name, formula, denominator string) *Expr {
	return node(OpExpression, map[string]any{"name": name, "formula": formula, "denominator": denominator}, e)
}

// AddBands stacks the bands of others onto the receiver.
func (e *Expr) AddBands(others ...*Expr) *Expr {
	return node(OpAddBands, nil, append([]*Expr{e}, others...)...)
}

// UpdateMask masks the receiver wherever mask is masked or zero.
func (e *Expr) UpdateMask(mask *Expr) *Expr {
	return node(OpUpdateMask, nil, e, mask)
}

// ReduceRegion aggregates every band over region at scale (meters).
func (e *Expr) ReduceRegion(reducer string, region *Expr, scale float64) *Expr {
	return node(OpReduceRegion, map[string]any{"reducer": reducer, "scale": scale}, e, region)
}

// SampleRegions samples the receiver under each feature, keeping property.
func (e *Expr) SampleRegions(collection *Expr, property string, scale float64) *Expr {
	return node(OpSampleRegions, map[string]any{"property": property, "scale": scale}, e, collection)
}

// AggregateHistogram counts features per distinct value of property.
func (e *Expr) AggregateHistogram(property string) *Expr {
	return node(OpAggregateHistogram, map[string]any{"property": property}, e)
}

// TrainRandomForest trains a random forest classifier on samples.
func TrainRandomForest(samples *Expr, classProperty string, features []string, trees int) *Expr {
	return node(OpTrainRandomForest, map[string]any{
		"class_property": classProperty,
		"features":       features,
		"trees":          trees,
	}, samples)
}

// Classify applies a trained model to the receiver.
func (e *Expr) Classify(model *Expr) *Expr {
	return node(OpClassify, nil, e, model)
}

// Multiply multiplies every pixel by factor.
func (e *Expr) Multiply(factor float64) *Expr {
	return node(OpMultiply, map[string]any{"factor": factor}, e)
}

// Remap replaces each value in from with the value at the same position in to. Pixels
// holding any other value are masked.
func (e *Expr) Remap(from, to []int) *Expr {
	return node(OpRemap, map[string]any{"from": from, "to": to}, e)
}

// Add sums two rasters pixel-wise; masked in either input means masked in the output.
func (e *Expr) Add(other *Expr) *Expr {
	return node(OpAdd, nil, e, other)
}

// FrequencyHistogram counts unmasked pixels per integer value of band over region.
func (e *Expr) FrequencyHistogram(band string, region *Expr, scale float64) *Expr {
	return node(OpFrequencyHistogram, map[string]any{"band": band, "scale": scale}, e, region)
}
