package schema

import "time"

// AnalysisRunRecord represents a row from the landchange_runs table.
type AnalysisRunRecord struct {
	AnalysisID     int64
	SessionID      string
	StartTime      time.Time
	EndTime        *time.Time
	RunDurationMs  *int32
	YearsSucceeded int32
	YearsFailed    int32
	ConfigParams   *string
}

// YearResultRecord represents a row from the landchange_year_results table.
type YearResultRecord struct {
	AnalysisID      int64
	Year            int32
	Status          string
	FailureReason   *string
	Sensor          *string
	SceneCount      int32
	ForestKm2       *float64
	TeaKm2          *float64
	OtherVegKm2     *float64
	BareKm2         *float64
	BuiltUpKm2      *float64
	TotalValidKm2   *float64
	NDVIMean        *float64
	TemperatureC    *float64
	PrecipitationMm *float64
	RecordedAt      time.Time
}

// NewYearResultRecord flattens the outcome of one year into a history row.
func NewYearResultRecord(status YearStatus, composite *CompositeImage, areas *AreaSummary, indices *IndexResult, climate *ClimateSummary, at time.Time) YearResultRecord {
	rec := YearResultRecord{
		Year:       int32(status.Year),
		Status:     string(StageFailed),
		RecordedAt: at,
	}
	if status.Succeeded() {
		rec.Status = string(StageSucceeded)
	} else if reason := status.FailureReason(); reason != "" {
		rec.FailureReason = &reason
	}
	if composite != nil {
		sensor := composite.Sensor
		rec.Sensor = &sensor
		rec.SceneCount = int32(composite.SceneCount)
	}
	if areas != nil {
		area := func(c LandCoverClass) *float64 { return Float(areas.Areas[c]) }
		rec.ForestKm2 = area(Forest)
		rec.TeaKm2 = area(Tea)
		rec.OtherVegKm2 = area(OtherVegetation)
		rec.BareKm2 = area(Bare)
		rec.BuiltUpKm2 = area(BuiltUp)
		rec.TotalValidKm2 = Float(areas.TotalValidKm2)
	}
	if indices != nil {
		if s, ok := indices.Indices[NDVI]; ok {
			rec.NDVIMean = s.Mean
		}
	}
	if climate != nil {
		rec.TemperatureC = climate.TemperatureC
		rec.PrecipitationMm = climate.PrecipitationMm
	}
	return rec
}
