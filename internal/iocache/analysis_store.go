package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// Table names for run history.
const (
	analysisRunsTable = "landchange_runs"
	yearResultsTable  = "landchange_year_results"
)

// yearResultColumns lists the landchange_year_results columns in scan order.
const yearResultColumns = `analysis_id, year, status, failure_reason, sensor, scene_count,
	forest_km2, tea_km2, otherveg_km2, bare_km2, builtup_km2, total_valid_km2,
	ndvi_mean, temperature_c, precipitation_mm, recorded_at`

// AnalysisStoreImpl implements the AnalysisStore interface.
type AnalysisStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.AnalysisStore = &AnalysisStoreImpl{} // Compile-time check

// NewAnalysisStore creates a new AnalysisStore with the specified backend.
// The schema is brought to the latest migration before the store is returned.
func NewAnalysisStore(backend schema.DatabaseBackend, connStr string) (contract.AnalysisStore, error) {
	switch backend {
	case schema.NoneBackend:
		return &AnalysisStoreImpl{backend: backend}, nil
	case schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend:
	default:
		return nil, fmt.Errorf("unsupported analysis backend: %s", backend)
	}

	db, err := openAnalysisDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	if _, err := runMigrations(db, backend, -1); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create analysis tables: %w", err)
	}
	return &AnalysisStoreImpl{db: db, backend: backend}, nil
}

// placeholders returns n comma-separated parameter placeholders for the backend.
func (as *AnalysisStoreImpl) placeholders(n int) string {
	out := make([]byte, 0, n*4)
	for i := 1; i <= n; i++ {
		if i > 1 {
			out = append(out, ", "...)
		}
		if as.backend == schema.PostgreSQLBackend {
			out = fmt.Appendf(out, "$%d", i)
		} else {
			out = append(out, '?')
		}
	}
	return string(out)
}

// BeginAnalysis creates a new run and returns its unique ID.
func (as *AnalysisStoreImpl) BeginAnalysis(sessionID string, startTime time.Time, configParams map[string]any) (int64, error) {
	if as.backend == schema.NoneBackend || as.db == nil {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quotedTableName := quoteTableName(analysisRunsTable, as.backend)
	query := fmt.Sprintf(`INSERT INTO %s (session_id, start_time, config_params) VALUES (%s)`, quotedTableName, as.placeholders(3))
	args := []any{sessionID, formatTime(startTime, as.backend), string(configJSON)}

	var analysisID int64
	switch as.backend {
	case schema.PostgreSQLBackend:
		err = as.db.QueryRow(query+" RETURNING analysis_id", args...).Scan(&analysisID)
	default: // SQLite and MySQL
		var result sql.Result
		result, err = as.db.Exec(query, args...)
		if err == nil {
			analysisID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis run: %w", err)
	}
	return analysisID, nil
}

// EndAnalysis updates the run with completion data.
func (as *AnalysisStoreImpl) EndAnalysis(analysisID int64, endTime time.Time, yearsSucceeded, yearsFailed int) error {
	if as.backend == schema.NoneBackend || as.db == nil {
		return nil
	}

	quotedTableName := quoteTableName(analysisRunsTable, as.backend)
	row := as.db.QueryRow(fmt.Sprintf(`SELECT start_time FROM %s WHERE analysis_id = %s`, quotedTableName, as.placeholders(1)), analysisID)
	startTime, err := as.scanTime(row)
	if err != nil {
		return fmt.Errorf("failed to get start_time for analysis %d: %w", analysisID, err)
	}
	durationMs := endTime.Sub(startTime).Milliseconds()

	var query string
	if as.backend == schema.PostgreSQLBackend {
		query = fmt.Sprintf(`UPDATE %s SET end_time = $1, run_duration_ms = $2, years_succeeded = $3, years_failed = $4 WHERE analysis_id = $5`, quotedTableName)
	} else {
		query = fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, years_succeeded = ?, years_failed = ? WHERE analysis_id = ?`, quotedTableName)
	}
	if _, err := as.db.Exec(query, formatTime(endTime, as.backend), durationMs, yearsSucceeded, yearsFailed, analysisID); err != nil {
		return fmt.Errorf("failed to update analysis run: %w", err)
	}
	return nil
}

// RecordYearResult stores the outcome of one year for the run.
func (as *AnalysisStoreImpl) RecordYearResult(analysisID int64, rec schema.YearResultRecord) error {
	if as.backend == schema.NoneBackend || as.db == nil {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		quoteTableName(yearResultsTable, as.backend), yearResultColumns, as.placeholders(16))
	_, err := as.db.Exec(query,
		analysisID, rec.Year, rec.Status, nullable(rec.FailureReason), nullable(rec.Sensor), rec.SceneCount,
		nullable(rec.ForestKm2), nullable(rec.TeaKm2), nullable(rec.OtherVegKm2), nullable(rec.BareKm2),
		nullable(rec.BuiltUpKm2), nullable(rec.TotalValidKm2), nullable(rec.NDVIMean),
		nullable(rec.TemperatureC), nullable(rec.PrecipitationMm), formatTime(rec.RecordedAt, as.backend))
	if err != nil {
		return fmt.Errorf("failed to insert year result for %d: %w", rec.Year, err)
	}
	return nil
}

// Close closes the underlying connection.
func (as *AnalysisStoreImpl) Close() error {
	if as.db != nil {
		return as.db.Close()
	}
	return nil
}

// GetStatus returns status information about the analysis store.
func (as *AnalysisStoreImpl) GetStatus() (schema.AnalysisStatus, error) {
	status := schema.AnalysisStatus{
		Backend:    string(as.backend),
		Connected:  as.db != nil,
		TableSizes: make(map[string]int64),
	}
	if as.backend == schema.NoneBackend || as.db == nil {
		return status, nil
	}

	runsTable := quoteTableName(analysisRunsTable, as.backend)
	if err := as.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runsTable)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		row := as.db.QueryRow(fmt.Sprintf("SELECT analysis_id FROM %s ORDER BY analysis_id DESC LIMIT 1", runsTable))
		if err := row.Scan(&status.LastRunID); err != nil {
			return status, fmt.Errorf("failed to get last run id: %w", err)
		}

		lastRunTime, err := as.scanTime(as.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY analysis_id DESC LIMIT 1", runsTable)))
		if err != nil {
			return status, fmt.Errorf("failed to get last run time: %w", err)
		}
		status.LastRunTime = lastRunTime

		oldestRunTime, err := as.scanTime(as.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY analysis_id ASC LIMIT 1", runsTable)))
		if err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		status.OldestRunTime = oldestRunTime

		row = as.db.QueryRow(fmt.Sprintf("SELECT COALESCE(SUM(years_succeeded), 0) FROM %s", runsTable))
		if err := row.Scan(&status.TotalYearsFound); err != nil {
			return status, fmt.Errorf("failed to get total years: %w", err)
		}
	}

	for _, table := range []string{analysisRunsTable, yearResultsTable} {
		var count int64
		if err := as.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, as.backend))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// GetAllAnalysisRuns retrieves all runs from the store.
func (as *AnalysisStoreImpl) GetAllAnalysisRuns() ([]schema.AnalysisRunRecord, error) {
	if as.backend == schema.NoneBackend || as.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT analysis_id, session_id, start_time, end_time, run_duration_ms,
		years_succeeded, years_failed, config_params FROM %s ORDER BY analysis_id`, quoteTableName(analysisRunsTable, as.backend))
	rows, err := as.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.AnalysisRunRecord
	for rows.Next() {
		var record schema.AnalysisRunRecord
		var start, end any
		if err := rows.Scan(&record.AnalysisID, &record.SessionID, &start, &end, &record.RunDurationMs,
			&record.YearsSucceeded, &record.YearsFailed, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}
		if record.StartTime, err = parseTime(start); err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		if end != nil {
			endTime, err := parseTime(end)
			if err != nil {
				return nil, fmt.Errorf("failed to parse end_time: %w", err)
			}
			record.EndTime = &endTime
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis runs: %w", err)
	}
	return results, nil
}

// GetAllYearResults retrieves every per-year row from the store.
func (as *AnalysisStoreImpl) GetAllYearResults() ([]schema.YearResultRecord, error) {
	if as.backend == schema.NoneBackend || as.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY analysis_id, year`, yearResultColumns, quoteTableName(yearResultsTable, as.backend))
	rows, err := as.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query year results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.YearResultRecord
	for rows.Next() {
		var r schema.YearResultRecord
		var recordedAt any
		if err := rows.Scan(&r.AnalysisID, &r.Year, &r.Status, &r.FailureReason, &r.Sensor, &r.SceneCount,
			&r.ForestKm2, &r.TeaKm2, &r.OtherVegKm2, &r.BareKm2, &r.BuiltUpKm2, &r.TotalValidKm2,
			&r.NDVIMean, &r.TemperatureC, &r.PrecipitationMm, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan year result: %w", err)
		}
		if r.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating year results: %w", err)
	}
	return results, nil
}

// scanTime reads a single timestamp column regardless of backend storage format.
func (as *AnalysisStoreImpl) scanTime(row *sql.Row) (time.Time, error) {
	var raw any
	if err := row.Scan(&raw); err != nil {
		return time.Time{}, err
	}
	return parseTime(raw)
}

// parseTime converts a scanned timestamp into time.Time.
// SQLite stores RFC3339 text while MySQL and PostgreSQL return native values.
func parseTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		return time.Parse(time.RFC3339Nano, v)
	case []byte:
		s := string(v)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, nil
		}
		return time.Parse("2006-01-02 15:04:05.999999", s)
	default:
		return time.Time{}, fmt.Errorf("unexpected time value %T", raw)
	}
}

// nullable unwraps an optional column value, mapping nil to SQL NULL.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	if backend == schema.SQLiteBackend {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t
}
