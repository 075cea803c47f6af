//go:build basic

// Package integration contains integration tests for landchange.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
// Database-backed tests: go test -tags database ./integration
package integration

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geochange/landchange/schema"
)

func noCache(env map[string]string) map[string]string {
	env["LANDCHANGE_CACHE_BACKEND"] = "none"
	return env
}

// TestAreasVerification runs landchange areas against the scripted service and checks the
// failing year is skipped while the others are reported.
func TestAreasVerification(t *testing.T) {
	ts := startComputeService(t)

	stdout, stderr, err := runLandchange(t, noCache(remoteEnv(ts)), "areas", "--output", "json")
	require.NoError(t, err, stderr)

	var areas []schema.AreaSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &areas))
	require.Len(t, areas, 3)
	assert.Equal(t, schema.Year1995, areas[0].Year)
	assert.InDelta(t, 180, areas[0].Areas[schema.Forest], 0.01)
	assert.Contains(t, stderr, "Skipping 2005")
}

// TestChangeVerification checks the forest to tea conversion in CSV output.
func TestChangeVerification(t *testing.T) {
	ts := startComputeService(t)

	stdout, stderr, err := runLandchange(t, noCache(remoteEnv(ts)), "change", "1995", "2024", "--output", "csv")
	require.NoError(t, err, stderr)

	rows, err := csv.NewReader(strings.NewReader(stdout)).ReadAll()
	require.NoError(t, err)
	assert.Contains(t, rows, []string{"1995", "2024", "forest", "tea", "45.30"})
}

// TestReportVerification checks the report covers every year and period.
func TestReportVerification(t *testing.T) {
	ts := startComputeService(t)

	stdout, stderr, err := runLandchange(t, noCache(remoteEnv(ts)), "report", "--output", "json")
	require.NoError(t, err, stderr)

	var report schema.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Len(t, report.Years, len(schema.AllYears))
	assert.Len(t, report.Periods, 3)
	assert.Equal(t, schema.Year1995, report.BaseYear)
}

// TestSQLiteCacheReuse runs twice against one SQLite cache and expects the second run to
// be served without changing the result.
func TestSQLiteCacheReuse(t *testing.T) {
	ts := startComputeService(t)
	env := remoteEnv(ts)
	env["LANDCHANGE_CACHE_BACKEND"] = "sqlite"
	env["LANDCHANGE_CACHE_DB_CONNECT"] = t.TempDir() + "/cache.db"

	first, stderr, err := runLandchange(t, env, "areas", "1995", "--output", "csv")
	require.NoError(t, err, stderr)
	second, stderr, err := runLandchange(t, env, "areas", "1995", "--output", "csv")
	require.NoError(t, err, stderr)
	assert.Equal(t, first, second)

	status, stderr, err := runLandchange(t, env, "cache", "status")
	require.NoError(t, err, stderr)
	assert.Contains(t, status, "Connected: true")
}

// TestInvalidInputs checks validation errors exit non-zero before any remote work.
func TestInvalidInputs(t *testing.T) {
	ts := startComputeService(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"year outside the set", []string{"areas", "2000"}, "2000"},
		{"same year twice", []string{"change", "2015", "2015"}, "2015"},
		{"bad output format", []string{"areas", "--output", "xml"}, "invalid output format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := runLandchange(t, noCache(remoteEnv(ts)), tt.args...)
			require.Error(t, err)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestVersion(t *testing.T) {
	stdout, _, err := runLandchange(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "landchange CLI")
}
