// Package parquet exports run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/geochange/landchange/schema"
)

// AnalysisRun represents a single initialization run with metadata.
// This struct maps to the landchange_runs database table.
type AnalysisRun struct {
	AnalysisID     int64      `parquet:"analysis_id,snappy"`
	SessionID      string     `parquet:"session_id,snappy"`
	StartTime      time.Time  `parquet:"start_time,snappy"`
	EndTime        *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs  *int32     `parquet:"run_duration_ms,optional,snappy"`
	YearsSucceeded int32      `parquet:"years_succeeded,snappy"`
	YearsFailed    int32      `parquet:"years_failed,snappy"`

	// ConfigParams contains the JSON-encoded methodology parameters
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// YearResult represents the outcome of one analysis year in a run.
// This struct maps to the landchange_year_results database table.
type YearResult struct {
	AnalysisID    int64   `parquet:"analysis_id,snappy"`
	Year          int32   `parquet:"year,snappy"`
	Status        string  `parquet:"status,dict,snappy"`
	FailureReason *string `parquet:"failure_reason,optional,snappy"`
	Sensor        *string `parquet:"sensor,optional,dict,snappy"`
	SceneCount    int32   `parquet:"scene_count,snappy"`

	// Per-class areas in km²; null when classification failed
	ForestKm2     *float64 `parquet:"forest_km2,optional,snappy"`
	TeaKm2        *float64 `parquet:"tea_km2,optional,snappy"`
	OtherVegKm2   *float64 `parquet:"otherveg_km2,optional,snappy"`
	BareKm2       *float64 `parquet:"bare_km2,optional,snappy"`
	BuiltUpKm2    *float64 `parquet:"builtup_km2,optional,snappy"`
	TotalValidKm2 *float64 `parquet:"total_valid_km2,optional,snappy"`

	NDVIMean        *float64  `parquet:"ndvi_mean,optional,snappy"`
	TemperatureC    *float64  `parquet:"temperature_c,optional,snappy"`
	PrecipitationMm *float64  `parquet:"precipitation_mm,optional,snappy"`
	RecordedAt      time.Time `parquet:"recorded_at,snappy"`
}

// WriteAnalysisRunsParquet writes a slice of AnalysisRun structs to a Parquet file.
func WriteAnalysisRunsParquet(data []AnalysisRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteYearResultsParquet writes a slice of YearResult structs to a Parquet file.
func WriteYearResultsParquet(data []YearResult, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet writes rows using the schema inferred from T's struct tags.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}

// ConvertAnalysisRunRecords converts store records to Parquet rows.
func ConvertAnalysisRunRecords(records []schema.AnalysisRunRecord) []AnalysisRun {
	out := make([]AnalysisRun, len(records))
	for i, r := range records {
		out[i] = AnalysisRun{
			AnalysisID:     r.AnalysisID,
			SessionID:      r.SessionID,
			StartTime:      r.StartTime,
			EndTime:        r.EndTime,
			RunDurationMs:  r.RunDurationMs,
			YearsSucceeded: r.YearsSucceeded,
			YearsFailed:    r.YearsFailed,
			ConfigParams:   r.ConfigParams,
		}
	}
	return out
}

// ConvertYearResultRecords converts store records to Parquet rows.
func ConvertYearResultRecords(records []schema.YearResultRecord) []YearResult {
	out := make([]YearResult, len(records))
	for i, r := range records {
		out[i] = YearResult{
			AnalysisID:      r.AnalysisID,
			Year:            r.Year,
			Status:          r.Status,
			FailureReason:   r.FailureReason,
			Sensor:          r.Sensor,
			SceneCount:      r.SceneCount,
			ForestKm2:       r.ForestKm2,
			TeaKm2:          r.TeaKm2,
			OtherVegKm2:     r.OtherVegKm2,
			BareKm2:         r.BareKm2,
			BuiltUpKm2:      r.BuiltUpKm2,
			TotalValidKm2:   r.TotalValidKm2,
			NDVIMean:        r.NDVIMean,
			TemperatureC:    r.TemperatureC,
			PrecipitationMm: r.PrecipitationMm,
			RecordedAt:      r.RecordedAt,
		}
	}
	return out
}
