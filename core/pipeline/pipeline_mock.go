package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// ScriptedYear is the canned remote state of one year.
type ScriptedYear struct {
	Scenes        int
	ValidPixels   float64
	Samples       map[schema.LandCoverClass]int
	Pixels        map[int]float64 // classification label -> pixel count
	IndexMeans    map[schema.IndexName]*float64
	Temperature   *float64
	Precipitation *float64
}

// ScriptedBackend is an in-memory ComputeBackend for tests. It answers by inspecting the
// operation graph: raster references encode "<kind>/<year>".
type ScriptedBackend struct {
	Years         map[schema.AnalysisYear]*ScriptedYear
	Transitions   map[[2]schema.AnalysisYear]map[int]float64 // code -> pixel count
	MissingAssets map[string]bool                            // training keys like "tea_2005"
	Grids         map[schema.AnalysisYear]schema.Grid
	Fail          map[string]error // root op -> error
	RegionSize    float64

	mu    sync.Mutex
	calls map[string]int
}

var _ contract.ComputeBackend = &ScriptedBackend{} // Compile-time check

// DefaultGrid is the grid every scripted classification shares unless overridden.
var DefaultGrid = schema.Grid{CRS: "EPSG:32736", Scale: 30, Transform: [6]float64{30, 0, 700000, 0, -30, 9990000}, Width: 100, Height: 100}

// NewScriptedBackend returns an empty scripted backend.
func NewScriptedBackend() *ScriptedBackend {
	return &ScriptedBackend{
		Years:         make(map[schema.AnalysisYear]*ScriptedYear),
		Transitions:   make(map[[2]schema.AnalysisYear]map[int]float64),
		MissingAssets: make(map[string]bool),
		Grids:         make(map[schema.AnalysisYear]schema.Grid),
		Fail:          make(map[string]error),
		RegionSize:    1,
		calls:         make(map[string]int),
	}
}

// Calls returns how often a root op was executed.
func (b *ScriptedBackend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// TotalCalls returns the number of executed expressions.
func (b *ScriptedBackend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

// Execute answers expr from the script.
func (b *ScriptedBackend) Execute(ctx context.Context, expr *schema.Expr) (schema.Value, error) {
	if err := ctx.Err(); err != nil {
		return schema.Value{}, &schema.RemoteComputeError{Op: expr.Op, Message: err.Error(), Cause: err}
	}
	b.mu.Lock()
	b.calls[expr.Op]++
	failure := b.Fail[expr.Op]
	b.mu.Unlock()
	if failure != nil {
		return schema.Value{}, failure
	}

	switch expr.Op {
	case schema.OpAssetInfo:
		path := expr.StringArg("path")
		name := path[strings.LastIndex(path, "/")+1:]
		ok := !b.MissingAssets[name]
		count := 0
		if ok {
			count = 25
		}
		return schema.Value{Kind: schema.AssetValue, Exists: &ok, Count: count}, nil

	case schema.OpSize:
		if coll := expr.Find(schema.OpCollection); coll != nil {
			y := b.year(sensorYear(coll.StringArg("id")))
			return schema.NewNumber(float64(y.Scenes)), nil
		}
		return schema.NewNumber(b.RegionSize), nil

	case schema.OpClip:
		if expr.Find(schema.OpClassify) != nil {
			year := refYear(expr.Find(schema.OpRef))
			grid, ok := b.Grids[year]
			if !ok {
				grid = DefaultGrid
			}
			return schema.NewRaster(fmt.Sprintf("classified/%d", year), &grid), nil
		}
		year := sensorYear(expr.Find(schema.OpCollection).StringArg("id"))
		return schema.NewRaster(fmt.Sprintf("composite/%d", year), nil), nil

	case schema.OpReduceRegion:
		return b.reduceRegion(expr)

	case schema.OpAggregateHistogram:
		y := b.year(refYear(expr.Find(schema.OpRef)))
		bins := make(map[int]float64, len(y.Samples))
		for c, n := range y.Samples {
			bins[int(c)] = float64(n)
		}
		return schema.NewHistogram(bins), nil

	case schema.OpTrainRandomForest:
		year := refYear(expr.Find(schema.OpRef))
		return schema.Value{Kind: schema.ModelValue, Ref: fmt.Sprintf("model/%d", year)}, nil

	case schema.OpFrequencyHistogram:
		refs := expr.FindAll(schema.OpRef)
		if expr.Find(schema.OpMultiply) != nil && len(refs) == 2 {
			return schema.NewHistogram(b.transitions(refYear(refs[0]), refYear(refs[1]))), nil
		}
		return schema.NewHistogram(b.year(refYear(refs[0])).Pixels), nil
	}
	return schema.Value{}, &schema.RemoteComputeError{Op: expr.Op, Message: "unscripted operation"}
}

func (b *ScriptedBackend) reduceRegion(expr *schema.Expr) (schema.Value, error) {
	switch expr.StringArg("reducer") {
	case schema.ReducerCount:
		y := b.year(refYear(expr.Find(schema.OpRef)))
		return schema.Value{Kind: schema.DictValue, Dict: map[string]*float64{schema.BandNIR: schema.Float(y.ValidPixels)}}, nil
	case schema.ReducerMeanCnt:
		y := b.year(refYear(expr.Find(schema.OpRef)))
		dict := make(map[string]*float64)
		for _, name := range schema.AllIndices {
			mean, ok := y.IndexMeans[name]
			if !ok || mean == nil {
				dict[string(name)+"_mean"] = nil
				dict[string(name)+"_count"] = schema.Float(0)
				continue
			}
			dict[string(name)+"_mean"] = schema.Float(*mean)
			dict[string(name)+"_count"] = schema.Float(y.ValidPixels)
		}
		return schema.Value{Kind: schema.DictValue, Dict: dict}, nil
	case schema.ReducerMean:
		coll := expr.Find(schema.OpCollection).StringArg("id")
		year, _ := strconv.Atoi(expr.Find(schema.OpFilterDate).StringArg("start")[:4])
		y := b.year(schema.AnalysisYear(year))
		switch coll {
		case PrecipitationDataset:
			return schema.Value{Kind: schema.DictValue, Dict: map[string]*float64{PrecipitationBand: y.Precipitation}}, nil
		case TemperatureDataset:
			return schema.Value{Kind: schema.DictValue, Dict: map[string]*float64{TemperatureBand: y.Temperature}}, nil
		}
	}
	return schema.Value{}, &schema.RemoteComputeError{Op: schema.OpReduceRegion, Message: "unscripted reduction"}
}

// transitions returns the scripted codes of a pair, or an unchanged landscape built from
// the pixels of the from year.
func (b *ScriptedBackend) transitions(from, to schema.AnalysisYear) map[int]float64 {
	if t, ok := b.Transitions[[2]schema.AnalysisYear{from, to}]; ok {
		return t
	}
	out := make(map[int]float64)
	for label, n := range b.year(from).Pixels {
		out[label*transitionBase+label] = n
	}
	return out
}

func (b *ScriptedBackend) year(y schema.AnalysisYear) *ScriptedYear {
	if sy, ok := b.Years[y]; ok {
		return sy
	}
	return &ScriptedYear{}
}

func refYear(ref *schema.Expr) schema.AnalysisYear {
	s := ref.StringArg("ref")
	n, _ := strconv.Atoi(s[strings.LastIndex(s, "/")+1:])
	return schema.AnalysisYear(n)
}

func sensorYear(collection string) schema.AnalysisYear {
	sensors, err := DefaultSensors()
	if err != nil {
		return 0
	}
	for y, s := range sensors {
		if s.Collection == collection {
			return y
		}
	}
	return 0
}

// km2Pixels converts an area to the pixel count of a 30 m grid.
func km2Pixels(km2 float64) float64 {
	return km2 * schema.SquareMetersPerKm2 / (contract.DefaultScale * contract.DefaultScale)
}

// NewScenarioBackend scripts a region where 45.3 km² of forest turns into tea between 1995
// and 2024, and 2005 has no usable scenes.
func NewScenarioBackend() *ScriptedBackend {
	b := NewScriptedBackend()
	samples := func() map[schema.LandCoverClass]int {
		return map[schema.LandCoverClass]int{
			schema.Forest: 40, schema.Tea: 35, schema.OtherVegetation: 30, schema.Bare: 12, schema.BuiltUp: 9,
		}
	}
	means := func(ndvi float64) map[schema.IndexName]*float64 {
		return map[schema.IndexName]*float64{
			schema.NDVI: schema.Float(ndvi), schema.EVI: schema.Float(ndvi * 0.8), schema.NDWI: schema.Float(0.21),
			schema.SAVI: schema.Float(ndvi * 0.9), schema.NBR: schema.Float(0.44), schema.BSI: schema.Float(-0.12),
			schema.NDBI: schema.Float(-0.21), schema.MNDWI: schema.Float(-0.35),
		}
	}

	forest1995 := km2Pixels(180)
	pixels1995 := map[int]float64{
		int(schema.Forest):          forest1995,
		int(schema.Tea):             km2Pixels(135),
		int(schema.OtherVegetation): km2Pixels(90),
		int(schema.Bare):            km2Pixels(18),
		int(schema.BuiltUp):         km2Pixels(9),
	}
	code := func(f, t schema.LandCoverClass) int { return int(f)*transitionBase + int(t) }
	transitions := map[int]float64{
		code(schema.Forest, schema.Forest):                   km2Pixels(180 - 45.3 - 4.5),
		code(schema.Forest, schema.Tea):                      km2Pixels(45.3),
		code(schema.Forest, schema.BuiltUp):                  km2Pixels(4.5),
		code(schema.Tea, schema.Tea):                         km2Pixels(135),
		code(schema.OtherVegetation, schema.OtherVegetation): km2Pixels(85.5),
		code(schema.OtherVegetation, schema.BuiltUp):         km2Pixels(4.5),
		code(schema.Bare, schema.Bare):                       km2Pixels(18),
		code(schema.BuiltUp, schema.BuiltUp):                 km2Pixels(9),
	}
	pixels2024 := make(map[int]float64)
	for c, n := range transitions {
		pixels2024[c%transitionBase] += n
	}

	b.Years[schema.Year1995] = &ScriptedYear{
		Scenes: 14, ValidPixels: km2Pixels(432), Samples: samples(), Pixels: pixels1995,
		IndexMeans: means(0.62), Precipitation: schema.Float(1850.4),
	}
	b.Years[schema.Year2005] = &ScriptedYear{Scenes: 0}
	b.Years[schema.Year2015] = &ScriptedYear{
		Scenes: 22, ValidPixels: km2Pixels(432), Samples: samples(), Pixels: pixels1995,
		IndexMeans: means(0.58), Temperature: schema.Float(24.1),
	}
	b.Years[schema.Year2024] = &ScriptedYear{
		Scenes: 31, ValidPixels: km2Pixels(432), Samples: samples(), Pixels: pixels2024,
		IndexMeans: means(0.55), Temperature: schema.Float(25.3), Precipitation: schema.Float(1712.9),
	}
	b.Transitions[[2]schema.AnalysisYear{schema.Year1995, schema.Year2024}] = transitions
	reverse := make(map[int]float64, len(transitions))
	for c, n := range transitions {
		reverse[(c%transitionBase)*transitionBase+c/transitionBase] += n
	}
	b.Transitions[[2]schema.AnalysisYear{schema.Year2024, schema.Year1995}] = reverse
	return b
}
