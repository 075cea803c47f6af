package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geochange/landchange/schema"
)

func TestStructTags(t *testing.T) {
	runSchema := parquet.SchemaOf(new(AnalysisRun))
	for _, col := range []string{"analysis_id", "session_id", "start_time", "end_time", "run_duration_ms", "years_succeeded", "years_failed", "config_params"} {
		_, ok := runSchema.Lookup(col)
		assert.True(t, ok, "Column %s should exist in schema", col)
	}

	yearSchema := parquet.SchemaOf(new(YearResult))
	for _, col := range []string{"analysis_id", "year", "status", "failure_reason", "sensor", "forest_km2", "tea_km2", "builtup_km2", "ndvi_mean", "precipitation_mm", "recorded_at"} {
		_, ok := yearSchema.Lookup(col)
		assert.True(t, ok, "Column %s should exist in schema", col)
	}
}

func sampleRecords() ([]schema.AnalysisRunRecord, []schema.YearResultRecord) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(12 * time.Minute)
	duration := int32(end.Sub(start).Milliseconds())
	params := `{"region":"KERICHO","trees":100}`
	runs := []schema.AnalysisRunRecord{
		{AnalysisID: 1, SessionID: "a", StartTime: start, EndTime: &end, RunDurationMs: &duration, YearsSucceeded: 3, YearsFailed: 1, ConfigParams: &params},
		{AnalysisID: 2, SessionID: "b", StartTime: end},
	}

	reason := "composite: insufficient scenes"
	sensor := "landsat8"
	years := []schema.YearResultRecord{
		{AnalysisID: 1, Year: 2005, Status: "failed", FailureReason: &reason, RecordedAt: end},
		{
			AnalysisID: 1, Year: 2015, Status: "succeeded", Sensor: &sensor, SceneCount: 12,
			ForestKm2: schema.Float(512.4), TeaKm2: schema.Float(301.2), NDVIMean: schema.Float(0.61),
			RecordedAt: end,
		},
	}
	return runs, years
}

func TestWriteAnalysisRunsParquet(t *testing.T) {
	runs, _ := sampleRecords()
	data := ConvertAnalysisRunRecords(runs)
	outputPath := filepath.Join(t.TempDir(), "runs.parquet")

	require.NoError(t, WriteAnalysisRunsParquet(data, outputPath))

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[AnalysisRun](file)
	defer func() { _ = reader.Close() }()

	readData := make([]AnalysisRun, reader.NumRows())
	n, err := reader.Read(readData)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	require.Equal(t, len(data), n)

	assert.Equal(t, "a", readData[0].SessionID)
	assert.Equal(t, int32(3), readData[0].YearsSucceeded)
	require.NotNil(t, readData[0].EndTime)
	assert.WithinDuration(t, *data[0].EndTime, *readData[0].EndTime, time.Nanosecond)
	require.NotNil(t, readData[0].ConfigParams)
	assert.Equal(t, *data[0].ConfigParams, *readData[0].ConfigParams)

	assert.Nil(t, readData[1].EndTime)
	assert.Nil(t, readData[1].RunDurationMs)
	assert.Nil(t, readData[1].ConfigParams)
}

func TestWriteYearResultsParquet(t *testing.T) {
	_, years := sampleRecords()
	data := ConvertYearResultRecords(years)
	outputPath := filepath.Join(t.TempDir(), "years.parquet")

	require.NoError(t, WriteYearResultsParquet(data, outputPath))

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[YearResult](file)
	defer func() { _ = reader.Close() }()

	readData := make([]YearResult, reader.NumRows())
	n, err := reader.Read(readData)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	require.Equal(t, 2, n)

	assert.Equal(t, int32(2005), readData[0].Year)
	require.NotNil(t, readData[0].FailureReason)
	assert.Equal(t, "composite: insufficient scenes", *readData[0].FailureReason)
	assert.Nil(t, readData[0].ForestKm2)

	require.NotNil(t, readData[1].ForestKm2)
	assert.InDelta(t, 512.4, *readData[1].ForestKm2, 1e-9)
	require.NotNil(t, readData[1].Sensor)
	assert.Equal(t, "landsat8", *readData[1].Sensor)
	assert.Nil(t, readData[1].BareKm2)
}

func TestWriteParquet_EmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteYearResultsParquet(nil, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWriteParquet_InvalidPath(t *testing.T) {
	err := WriteAnalysisRunsParquet(nil, filepath.Join(t.TempDir(), "missing", "dir", "runs.parquet"))
	assert.Error(t, err)
}
