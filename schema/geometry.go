package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// GeometryCollection is the labeled training data for one (year, class) key. It is
// either a reference to a persisted asset or a set of inline geometries.
type GeometryCollection struct {
	Key          TrainingKey `json:"key"`
	AssetPath    string      `json:"asset_path,omitempty"`
	FeatureCount int         `json:"feature_count"`
	Features     []geom.T    `json:"-"`
}

// Empty reports whether the collection carries no features.
func (gc GeometryCollection) Empty() bool {
	return gc.FeatureCount == 0 && len(gc.Features) == 0
}

// Expr describes the collection with the class label attached as ClassProperty.
func (gc GeometryCollection) Expr() (*Expr, error) {
	label := int(gc.Key.Class)
	if len(gc.Features) == 0 {
		if gc.AssetPath == "" {
			return nil, fmt.Errorf("training collection %s has neither features nor asset path", gc.Key)
		}
		return Asset(gc.AssetPath).SetProperty(ClassProperty, label), nil
	}
	props := map[string]any{ClassProperty: label, "class": gc.Key.Class.Key(), "year": int(gc.Key.Year)}
	data, err := EncodeFeatureCollection(gc.Features, props)
	if err != nil {
		return nil, fmt.Errorf("encode training collection %s: %w", gc.Key, err)
	}
	return Features(data, map[string]any{ClassProperty: label}), nil
}

// EncodeFeatureCollection renders geometries as a GeoJSON FeatureCollection string.
func EncodeFeatureCollection(geoms []geom.T, props map[string]any) (string, error) {
	fc := geojson.FeatureCollection{}
	for _, g := range geoms {
		fc.Features = append(fc.Features, &geojson.Feature{Geometry: g, Properties: props})
	}
	data, err := json.Marshal(&fc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeGeometry parses a GeoJSON geometry object.
func DecodeGeometry(data []byte) (geom.T, error) {
	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("invalid GeoJSON geometry: %w", err)
	}
	return g, nil
}

// TrainingGeometrySet maps every resolved (year, class) key to its collection.
type TrainingGeometrySet map[TrainingKey]GeometryCollection

// MissingFor lists the keys of year with no non-empty collection.
func (s TrainingGeometrySet) MissingFor(year AnalysisYear) []TrainingKey {
	var missing []TrainingKey
	for _, c := range AllClasses {
		key := TrainingKey{Year: year, Class: c}
		if gc, ok := s[key]; !ok || gc.Empty() {
			missing = append(missing, key)
		}
	}
	return missing
}

// CompleteFor reports whether every class of year resolved.
func (s TrainingGeometrySet) CompleteFor(year AnalysisYear) bool {
	return len(s.MissingFor(year)) == 0
}

// ForYear returns the collections of year ordered by class.
func (s TrainingGeometrySet) ForYear(year AnalysisYear) []GeometryCollection {
	var out []GeometryCollection
	for _, c := range AllClasses {
		if gc, ok := s[TrainingKey{Year: year, Class: c}]; ok {
			out = append(out, gc)
		}
	}
	return out
}

// SortKeys orders training keys by year, then class.
func SortKeys(keys []TrainingKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Year != keys[j].Year {
			return keys[i].Year < keys[j].Year
		}
		return keys[i].Class < keys[j].Class
	})
}

// Region is the fixed spatial extent every operation is clipped to.
type Region struct {
	Name   string       `json:"name"`
	Source string       `json:"source"`
	Bounds *geom.Bounds `json:"-"`
	expr   *Expr
}

// NewRegion wraps a region descriptor.
func NewRegion(name, source string, expr *Expr, bounds *geom.Bounds) Region {
	return Region{Name: name, Source: source, Bounds: bounds, expr: expr}
}

// Expr returns the region descriptor.
func (r Region) Expr() *Expr {
	return r.expr
}
