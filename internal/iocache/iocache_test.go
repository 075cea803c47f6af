package iocache

import (
	"bytes"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geochange/landchange/schema"
)

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "landchange_results", false},
		{"leading underscore", "_results", false},
		{"digits", "results2", false},
		{"empty", "", true},
		{"leading digit", "1results", true},
		{"injection", "results; DROP TABLE x", true},
		{"dash", "land-change", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTableName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`runs`", quoteTableName("runs", schema.MySQLBackend))
	assert.Equal(t, `"runs"`, quoteTableName("runs", schema.PostgreSQLBackend))
	assert.Equal(t, `"runs"`, quoteTableName("runs", schema.SQLiteBackend))
}

func TestDriverFor(t *testing.T) {
	d, err := driverFor(schema.SQLiteBackend)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d)
	d, err = driverFor(schema.PostgreSQLBackend)
	require.NoError(t, err)
	assert.Equal(t, "pgx", d)
	_, err = driverFor(schema.RedisBackend)
	assert.Error(t, err)
}

func TestCacheStore_SQLite(t *testing.T) {
	store, err := NewCacheStore("test_results", schema.SQLiteBackend, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, _, _, err = store.Get("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	now := time.Now().Unix()
	require.NoError(t, store.Set("k1", []byte(`{"kind":"number"}`), 1, now-100))
	require.NoError(t, store.Set("k2", []byte(`{}`), 1, now))

	value, version, ts, err := store.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"kind":"number"}`), value)
	assert.Equal(t, 1, version)
	assert.Equal(t, now-100, ts)

	// Overwrite replaces the existing row
	require.NoError(t, store.Set("k1", []byte(`{"v":2}`), 2, now))
	value, version, _, err = store.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), value)
	assert.Equal(t, 2, version)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.TotalEntries)
	assert.Equal(t, time.Unix(now, 0), status.LastEntryTime)
}

func TestCacheStore_None(t *testing.T) {
	store, err := NewCacheStore("test_results", schema.NoneBackend, "")
	require.NoError(t, err)

	require.NoError(t, store.Set("k", []byte("v"), 1, 1))
	_, _, _, err = store.Get("k")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestCacheStore_InvalidInputs(t *testing.T) {
	_, err := NewCacheStore("bad name", schema.SQLiteBackend, "")
	assert.Error(t, err)
	_, err = NewCacheStore("results", schema.DatabaseBackend("mongo"), "")
	assert.Error(t, err)
	_, err = NewCacheStore("results", schema.RedisBackend, "not a url")
	assert.Error(t, err)
}

func TestAnalysisStore_SQLite(t *testing.T) {
	store, err := NewAnalysisStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "analysis.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	id, err := store.BeginAnalysis("session-1", start, map[string]any{"region": "KERICHO"})
	require.NoError(t, err)
	assert.Positive(t, id)

	reason := "composite: 0 scenes"
	require.NoError(t, store.RecordYearResult(id, schema.YearResultRecord{
		Year: 2005, Status: "failed", FailureReason: &reason, RecordedAt: start,
	}))
	require.NoError(t, store.RecordYearResult(id, schema.YearResultRecord{
		Year: 2015, Status: "succeeded", SceneCount: 9, ForestKm2: schema.Float(500.25), RecordedAt: start,
	}))
	require.NoError(t, store.EndAnalysis(id, start.Add(90*time.Second), 1, 1))

	runs, err := store.GetAllAnalysisRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "session-1", runs[0].SessionID)
	assert.True(t, start.Equal(runs[0].StartTime))
	require.NotNil(t, runs[0].EndTime)
	require.NotNil(t, runs[0].RunDurationMs)
	assert.Equal(t, int32(90000), *runs[0].RunDurationMs)
	assert.Equal(t, int32(1), runs[0].YearsSucceeded)
	require.NotNil(t, runs[0].ConfigParams)
	assert.JSONEq(t, `{"region":"KERICHO"}`, *runs[0].ConfigParams)

	years, err := store.GetAllYearResults()
	require.NoError(t, err)
	require.Len(t, years, 2)
	assert.Equal(t, int32(2005), years[0].Year)
	require.NotNil(t, years[0].FailureReason)
	assert.Nil(t, years[0].ForestKm2)
	require.NotNil(t, years[1].ForestKm2)
	assert.InDelta(t, 500.25, *years[1].ForestKm2, 1e-9)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, status.TotalRuns)
	assert.Equal(t, id, status.LastRunID)
	assert.Equal(t, 1, status.TotalYearsFound)
	assert.Equal(t, int64(2), status.TableSizes[yearResultsTable])
}

func TestAnalysisStore_None(t *testing.T) {
	store, err := NewAnalysisStore(schema.NoneBackend, "")
	require.NoError(t, err)

	id, err := store.BeginAnalysis("s", time.Now(), nil)
	require.NoError(t, err)
	assert.Zero(t, id)
	assert.NoError(t, store.RecordYearResult(id, schema.YearResultRecord{}))
	assert.NoError(t, store.EndAnalysis(id, time.Now(), 0, 0))

	runs, err := store.GetAllAnalysisRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestMigrateAnalysis(t *testing.T) {
	_, err := MigrateAnalysis(schema.NoneBackend, "", -1)
	assert.Error(t, err)

	dbPath := filepath.Join(t.TempDir(), "migrate.db")
	res, err := MigrateAnalysis(schema.SQLiteBackend, dbPath, -1)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint(LatestMigrationVersion), res.ToVersion)

	res, err = MigrateAnalysis(schema.SQLiteBackend, dbPath, -1)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	res, err = MigrateAnalysis(schema.SQLiteBackend, dbPath, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), res.ToVersion)

	_, err = MigrateAnalysis(schema.SQLiteBackend, dbPath, 0)
	require.NoError(t, err)

	res, err = MigrateAnalysis(schema.SQLiteBackend, dbPath, LatestMigrationVersion)
	require.NoError(t, err)
	assert.Equal(t, uint(LatestMigrationVersion), res.ToVersion)
}

func TestClearAnalysis_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "analysis.db")
	_, err := MigrateAnalysis(schema.SQLiteBackend, dbPath, -1)
	require.NoError(t, err)

	require.NoError(t, ClearAnalysis(schema.SQLiteBackend, dbPath, ""))
	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))

	// Removing a missing file is not an error
	assert.NoError(t, ClearAnalysis(schema.SQLiteBackend, dbPath, ""))
	assert.Error(t, ClearAnalysis(schema.SQLiteBackend, "", ""))
	assert.NoError(t, ClearAnalysis(schema.NoneBackend, "", ""))
}

func TestExecuteAnalysisExport(t *testing.T) {
	t.Run("requires output file", func(t *testing.T) {
		err := ExecuteAnalysisExport(&bytes.Buffer{}, &MockAnalysisStore{}, "")
		assert.Error(t, err)
	})

	t.Run("no runs", func(t *testing.T) {
		store := &MockAnalysisStore{}
		store.On("GetStatus").Return(schema.AnalysisStatus{Backend: "sqlite"}, nil)
		err := ExecuteAnalysisExport(&bytes.Buffer{}, store, filepath.Join(t.TempDir(), "out"))
		assert.EqualError(t, err, "no analysis data found to export")
	})

	t.Run("status failure", func(t *testing.T) {
		store := &MockAnalysisStore{}
		store.On("GetStatus").Return(schema.AnalysisStatus{}, errors.New("boom"))
		err := ExecuteAnalysisExport(&bytes.Buffer{}, store, filepath.Join(t.TempDir(), "out"))
		assert.ErrorContains(t, err, "boom")
	})

	t.Run("writes both files", func(t *testing.T) {
		store := &MockAnalysisStore{}
		store.On("GetStatus").Return(schema.AnalysisStatus{Backend: "sqlite", TotalRuns: 1}, nil)
		store.On("GetAllAnalysisRuns").Return([]schema.AnalysisRunRecord{{AnalysisID: 1, SessionID: "s", StartTime: time.Now()}}, nil)
		store.On("GetAllYearResults").Return([]schema.YearResultRecord{{AnalysisID: 1, Year: 1995, Status: "succeeded", RecordedAt: time.Now()}}, nil)

		prefix := filepath.Join(t.TempDir(), "out")
		var buf bytes.Buffer
		require.NoError(t, ExecuteAnalysisExport(&buf, store, prefix))

		_, err := os.Stat(prefix + ".runs.parquet")
		assert.NoError(t, err)
		_, err = os.Stat(prefix + ".year_results.parquet")
		assert.NoError(t, err)
		assert.Contains(t, buf.String(), "Exported 1 analysis runs")
		store.AssertExpectations(t)
	})
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintCacheStatus(&buf, schema.CacheStatus{Backend: "none"})
	assert.Contains(t, buf.String(), "Connected: false")
	assert.NotContains(t, buf.String(), "Total Entries")

	buf.Reset()
	PrintAnalysisStatus(&buf, schema.AnalysisStatus{
		Backend: "sqlite", Connected: true, TotalRuns: 2, TotalYearsFound: 7,
		TableSizes: map[string]int64{"landchange_year_results": 8, "landchange_runs": 2},
	})
	out := buf.String()
	assert.Contains(t, out, "Total Years Succeeded: 7")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("landchange_runs")), bytes.Index(buf.Bytes(), []byte("landchange_year_results")))
}
