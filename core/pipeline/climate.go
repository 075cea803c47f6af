package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// Auxiliary climate datasets.
const (
	PrecipitationDataset = "UCSB-CHG/CHIRPS/DAILY"
	PrecipitationBand    = "precipitation"
	TemperatureDataset   = "MODIS/061/MOD11A2"
	TemperatureBand      = "LST_Day_1km"
)

// First years covered by each dataset.
const (
	precipitationFirstYear = 1981
	temperatureFirstYear   = 2000
)

// MODIS LST is stored in units of 0.02 K.
const (
	lstScale  = 0.02
	kelvinToC = -273.15
)

// ClimateEngine summarizes annual temperature and precipitation over the region.
type ClimateEngine struct {
	backend contract.ComputeBackend
	region  schema.Region
	params  Params
}

// NewClimateEngine creates an engine clipped to region.
func NewClimateEngine(backend contract.ComputeBackend, region schema.Region, params Params) *ClimateEngine {
	return &ClimateEngine{backend: backend, region: region, params: params}
}

// Climate fetches both fields independently. A field that cannot be computed is left nil
// with a note; the call itself never fails.
func (e *ClimateEngine) Climate(ctx context.Context, year schema.AnalysisYear) schema.ClimateSummary {
	summary := schema.ClimateSummary{Year: year}

	if total, ok := PrecipitationImage(year); !ok {
		summary.Notes = append(summary.Notes, fmt.Sprintf("precipitation: %s starts in %d", PrecipitationDataset, precipitationFirstYear))
	} else {
		mm, note := e.regionMean(ctx, total, PrecipitationBand)
		summary.PrecipitationMm = mm
		if note != "" {
			summary.Notes = append(summary.Notes, "precipitation: "+note)
		}
	}

	if lst, ok := TemperatureImage(year); !ok {
		summary.Notes = append(summary.Notes, fmt.Sprintf("temperature: %s starts in %d", TemperatureDataset, temperatureFirstYear))
	} else {
		c, note := e.regionMean(ctx, lst, TemperatureBand)
		summary.TemperatureC = c
		if note != "" {
			summary.Notes = append(summary.Notes, "temperature: "+note)
		}
	}
	return summary
}

func calendarYear(year schema.AnalysisYear) (time.Time, time.Time) {
	start := time.Date(int(year), time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// PrecipitationImage describes the annual CHIRPS precipitation sum in mm. It reports false
// for years before the dataset starts.
func PrecipitationImage(year schema.AnalysisYear) (*schema.Expr, bool) {
	if int(year) < precipitationFirstYear {
		return nil, false
	}
	start, end := calendarYear(year)
	return schema.Collection(PrecipitationDataset).FilterDate(start, end).Select(PrecipitationBand).Sum(), true
}

// TemperatureImage describes the annual mean MODIS day land surface temperature in °C.
// It reports false for years before the dataset starts.
func TemperatureImage(year schema.AnalysisYear) (*schema.Expr, bool) {
	if int(year) < temperatureFirstYear {
		return nil, false
	}
	start, end := calendarYear(year)
	return schema.Collection(TemperatureDataset).FilterDate(start, end).Select(TemperatureBand).Mean().Scale(lstScale, kelvinToC), true
}

func (e *ClimateEngine) regionMean(ctx context.Context, image *schema.Expr, band string) (*float64, string) {
	v, err := e.backend.Execute(ctx, image.ReduceRegion(schema.ReducerMean, e.region.Expr(), e.params.ClimateScale))
	if err != nil {
		return nil, err.Error()
	}
	if err := v.Expect(schema.DictValue); err != nil {
		return nil, err.Error()
	}
	mean := v.Dict[band]
	if mean == nil {
		return nil, "no valid pixels in region"
	}
	return schema.Float(*mean), ""
}
