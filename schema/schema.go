// Package schema has the models, enums and errors shared by all parts of landchange.
package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// AnalysisYear is one of the fixed years on the temporal axis.
type AnalysisYear int

// All analysis years supported.
const (
	Year1995 AnalysisYear = 1995
	Year2005 AnalysisYear = 2005
	Year2015 AnalysisYear = 2015
	Year2024 AnalysisYear = 2024
)

// AllYears lists the analysis years in temporal order.
var AllYears = []AnalysisYear{Year1995, Year2005, Year2015, Year2024}

// Valid reports whether y is part of the fixed analysis set.
func (y AnalysisYear) Valid() bool {
	for _, v := range AllYears {
		if v == y {
			return true
		}
	}
	return false
}

// Index returns the position of y in AllYears, or -1.
func (y AnalysisYear) Index() int {
	for i, v := range AllYears {
		if v == y {
			return i
		}
	}
	return -1
}

func (y AnalysisYear) String() string {
	return strconv.Itoa(int(y))
}

// ParseAnalysisYear converts raw input into an AnalysisYear, rejecting years outside the set.
func ParseAnalysisYear(raw string) (AnalysisYear, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &InvalidYearError{Raw: raw}
	}
	return ValidateYear(n)
}

// ValidateYear converts an integer into an AnalysisYear, rejecting years outside the set.
func ValidateYear(n int) (AnalysisYear, error) {
	y := AnalysisYear(n)
	if !y.Valid() {
		return 0, &InvalidYearError{Raw: strconv.Itoa(n)}
	}
	return y, nil
}

// LandCoverClass is one of the fixed land-cover classes. The numeric value is the
// label written into classified rasters.
type LandCoverClass int

// All land-cover classes supported.
const (
	Forest LandCoverClass = iota
	Tea
	OtherVegetation
	Bare
	BuiltUp
)

// AllClasses lists the classes in display order.
var AllClasses = []LandCoverClass{Forest, Tea, OtherVegetation, Bare, BuiltUp}

var classKeys = map[LandCoverClass]string{
	Forest:          "forest",
	Tea:             "tea",
	OtherVegetation: "otherveg",
	Bare:            "bare",
	BuiltUp:         "builtup",
}

var classNames = map[LandCoverClass]string{
	Forest:          "Forest",
	Tea:             "Tea Plantation",
	OtherVegetation: "Other Vegetation",
	Bare:            "Bare Soil",
	BuiltUp:         "Built-up",
}

// classPalette holds the legend colors used for map layers.
var classPalette = map[LandCoverClass]string{
	Forest:          "#006400",
	Tea:             "#90EE90",
	OtherVegetation: "#FFD700",
	Bare:            "#8B4513",
	BuiltUp:         "#FF0000",
}

// Key returns the stable string key used in asset paths and serialized output.
func (c LandCoverClass) Key() string {
	if k, ok := classKeys[c]; ok {
		return k
	}
	return fmt.Sprintf("class_%d", int(c))
}

// DisplayName returns the human-readable class name.
func (c LandCoverClass) DisplayName() string {
	if n, ok := classNames[c]; ok {
		return n
	}
	return c.Key()
}

// Color returns the legend color for the class.
func (c LandCoverClass) Color() string {
	return classPalette[c]
}

// Valid reports whether c is part of the fixed class set.
func (c LandCoverClass) Valid() bool {
	_, ok := classKeys[c]
	return ok
}

func (c LandCoverClass) String() string {
	return c.Key()
}

// MarshalText encodes the class as its stable key.
func (c LandCoverClass) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown land-cover class %d", int(c))
	}
	return []byte(c.Key()), nil
}

// UnmarshalText decodes a class from its stable key.
func (c *LandCoverClass) UnmarshalText(text []byte) error {
	parsed, err := ParseLandCoverClass(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseLandCoverClass resolves a class from its stable key.
func ParseLandCoverClass(raw string) (LandCoverClass, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	for c, k := range classKeys {
		if k == key {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown land-cover class %q. must be one of forest, tea, otherveg, bare, builtup", raw)
}

// ClassFromLabel resolves a raster label into a class.
func ClassFromLabel(label int) (LandCoverClass, bool) {
	c := LandCoverClass(label)
	return c, c.Valid()
}

// TrainingKey identifies one (year, class) training collection.
type TrainingKey struct {
	Year  AnalysisYear   `json:"year"`
	Class LandCoverClass `json:"class"`
}

func (k TrainingKey) String() string {
	return fmt.Sprintf("%s_%d", k.Class.Key(), int(k.Year))
}

// AllTrainingKeys enumerates every (year, class) pair required before classification.
func AllTrainingKeys() []TrainingKey {
	keys := make([]TrainingKey, 0, len(AllYears)*len(AllClasses))
	for _, y := range AllYears {
		for _, c := range AllClasses {
			keys = append(keys, TrainingKey{Year: y, Class: c})
		}
	}
	return keys
}
