package pipeline

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/geochange/landchange/schema"
)

//go:embed sensors.yaml
var sensorsYAML []byte

// Sensor describes how one sensor's scenes are masked, scaled and mapped to canonical bands.
type Sensor struct {
	Name           string            `yaml:"name" json:"name"`
	Year           int               `yaml:"year" json:"year"`
	Collection     string            `yaml:"collection" json:"collection"`
	QABand         string            `yaml:"qa_band" json:"qa_band"`
	QAMask         int               `yaml:"qa_mask" json:"qa_mask"`
	SaturationBand string            `yaml:"saturation_band" json:"saturation_band"`
	Scale          SensorScale       `yaml:"scale" json:"scale"`
	Bands          map[string]string `yaml:"bands" json:"bands"`
}

// SensorScale converts stored digital numbers to reflectance.
type SensorScale struct {
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
	Offset     float64 `yaml:"offset" json:"offset"`
}

// NativeBands returns the sensor band names in canonical order.
func (s Sensor) NativeBands() []string {
	out := make([]string, len(schema.CanonicalBands))
	for i, role := range schema.CanonicalBands {
		out[i] = s.Bands[role]
	}
	return out
}

// SensorTable maps each analysis year to exactly one sensor.
type SensorTable map[schema.AnalysisYear]Sensor

var (
	defaultSensors     SensorTable
	defaultSensorsErr  error
	defaultSensorsOnce sync.Once
)

// DefaultSensors returns the embedded sensor table.
func DefaultSensors() (SensorTable, error) {
	defaultSensorsOnce.Do(func() {
		defaultSensors, defaultSensorsErr = ParseSensors(sensorsYAML)
	})
	return defaultSensors, defaultSensorsErr
}

// ParseSensors decodes and validates a sensor table. Every analysis year must be covered
// once and every sensor must map all canonical bands.
func ParseSensors(data []byte) (SensorTable, error) {
	var doc struct {
		Sensors []Sensor `yaml:"sensors"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse sensor table: %w", err)
	}

	table := make(SensorTable, len(doc.Sensors))
	for _, s := range doc.Sensors {
		year, err := schema.ValidateYear(s.Year)
		if err != nil {
			return nil, fmt.Errorf("sensor %s: %w", s.Name, err)
		}
		if _, dup := table[year]; dup {
			return nil, fmt.Errorf("sensor table assigns year %d twice", year)
		}
		if s.Collection == "" || s.QABand == "" {
			return nil, fmt.Errorf("sensor %s: collection and qa_band are required", s.Name)
		}
		for _, role := range schema.CanonicalBands {
			if s.Bands[role] == "" {
				return nil, fmt.Errorf("sensor %s: missing band for %s", s.Name, role)
			}
		}
		table[year] = s
	}
	for _, y := range schema.AllYears {
		if _, ok := table[y]; !ok {
			return nil, fmt.Errorf("sensor table has no sensor for %d", y)
		}
	}
	return table, nil
}
