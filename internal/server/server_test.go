package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geochange/landchange/core"
	"github.com/geochange/landchange/core/pipeline"
	"github.com/geochange/landchange/internal/boundary"
	"github.com/geochange/landchange/internal/catalog"
	"github.com/geochange/landchange/schema"
)

func newTestServer(t *testing.T) (*httptest.Server, *core.Session) {
	t.Helper()
	backend := pipeline.NewScenarioBackend()
	session, err := core.NewSession(core.Deps{
		Backend:  backend,
		Catalog:  catalog.NewAssetCatalog(backend, "users/test", "kericho_training"),
		Boundary: boundary.NewAssetSource(backend, "counties", "COUNTY_NAM", "KERICHO"),
	}, core.Options{Params: pipeline.DefaultParams(), SignificantKm2: 1})
	require.NoError(t, err)

	ts := httptest.NewServer(New(session, nil).Handler())
	t.Cleanup(ts.Close)
	return ts, session
}

func get(t *testing.T, ts *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	assert.Equal(t, http.StatusOK, get(t, ts, "/healthz", nil))
}

func TestRequestsBeforeInitialize(t *testing.T) {
	ts, _ := newTestServer(t)

	var status statusResponse
	assert.Equal(t, http.StatusOK, get(t, ts, "/api/status", &status))
	assert.False(t, status.Initialized)

	var apiErr errorResponse
	assert.Equal(t, http.StatusConflict, get(t, ts, "/api/areas/1995", &apiErr))
	assert.Contains(t, apiErr.Error, "not initialized")
}

func TestInitializeAndQuery(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/initialize", "application/json", nil)
	require.NoError(t, err)
	var summary schema.InitSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []schema.AnalysisYear{schema.Year2005}, summary.Failed)

	var status statusResponse
	require.Equal(t, http.StatusOK, get(t, ts, "/api/status", &status))
	assert.True(t, status.Initialized)
	require.NotNil(t, status.Summary)
	assert.Equal(t, summary.SessionID, status.Summary.SessionID)

	var areas schema.AreaSummary
	require.Equal(t, http.StatusOK, get(t, ts, "/api/areas/1995", &areas))
	assert.InDelta(t, 180, areas.Areas[schema.Forest], 0.01)

	var m schema.ChangeMatrix
	require.Equal(t, http.StatusOK, get(t, ts, "/api/change/1995/2024", &m))
	assert.InDelta(t, 45.3, m.Get(schema.Forest, schema.Tea), 1e-6)

	var report schema.Report
	require.Equal(t, http.StatusOK, get(t, ts, "/api/report", &report))
	assert.Len(t, report.Periods, 3)

	var layers []schema.MapLayer
	require.Equal(t, http.StatusOK, get(t, ts, "/api/layers/2024", &layers))
	assert.NotEmpty(t, layers)
}

func TestErrorStatuses(t *testing.T) {
	ts, session := newTestServer(t)
	_, err := session.Initialize(context.Background())
	require.NoError(t, err)

	tests := []struct {
		path string
		want int
	}{
		{"/api/indices/2030", http.StatusBadRequest},
		{"/api/areas/abc", http.StatusBadRequest},
		{"/api/change/1995/1995", http.StatusBadRequest},
		{"/api/change/1995/2005", http.StatusUnprocessableEntity},
		{"/api/areas/2005", http.StatusUnprocessableEntity},
		{"/api/climate/2005", http.StatusOK},
		{"/api/layers/2005", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, get(t, ts, tt.path, nil))
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&schema.InvalidYearError{Raw: "2030"}, http.StatusBadRequest},
		{schema.ErrNotInitialized, http.StatusConflict},
		{&schema.YearNotReadyError{Year: schema.Year2005, Stage: schema.CompositeStage}, http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", &schema.RemoteComputeError{Op: "median"}), http.StatusBadGateway},
		{schema.ErrNoYearSucceeded, http.StatusBadGateway},
		{fmt.Errorf("initialization interrupted: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}
