package contract

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geochange/landchange/schema"
)

// validInput returns raw input matching the CLI defaults with an HTTP backend.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Backend:           "http",
		BackendURL:        "https://compute.example.org",
		RemoteTimeout:     DefaultRemoteTimeout,
		RemoteRetries:     DefaultRemoteRetries,
		InitTimeout:       DefaultInitTimeout,
		Workers:           4,
		Catalog:           "asset",
		CatalogNamespace:  DefaultCatalogNamespace,
		CatalogCollection: DefaultCatalogCollection,
		BoundarySource:    "asset",
		RegionAsset:       DefaultRegionAsset,
		RegionProperty:    DefaultRegionProperty,
		RegionName:        DefaultRegionName,
		OverpassEndpoint:  DefaultOverpassEndpoint,
		Scale:             DefaultScale,
		IndexScale:        DefaultIndexScale,
		ClimateScale:      DefaultClimateScale,
		Trees:             DefaultTrees,
		MinSamples:        DefaultMinSamples,
		MinScenes:         DefaultMinScenes,
		Tolerance:         DefaultTolerance,
		SignificantKm2:    DefaultSignificantKm2,
		Output:            "text",
		Precision:         DefaultPrecision,
		Emoji:             "no",
		Color:             "yes",
		CacheBackend:      "none",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
	}{
		{name: "valid defaults", mutate: func(*ConfigRawInput) {}},
		{name: "invalid output", mutate: func(in *ConfigRawInput) { in.Output = "xml" }, expectError: true},
		{name: "precision too high", mutate: func(in *ConfigRawInput) { in.Precision = 5 }, expectError: true},
		{name: "invalid emoji flag", mutate: func(in *ConfigRawInput) { in.Emoji = "sometimes" }, expectError: true},
		{name: "unknown backend", mutate: func(in *ConfigRawInput) { in.Backend = "grpc" }, expectError: true},
		{name: "http backend without url", mutate: func(in *ConfigRawInput) { in.BackendURL = "" }, expectError: true},
		{name: "http backend relative url", mutate: func(in *ConfigRawInput) { in.BackendURL = "compute" }, expectError: true},
		{
			name: "replay backend with fixtures",
			mutate: func(in *ConfigRawInput) {
				in.Backend = "replay"
				in.BackendURL = ""
				in.BackendFixtures = "testdata/fixtures.json"
			},
		},
		{name: "replay backend without fixtures", mutate: func(in *ConfigRawInput) { in.Backend = "replay" }, expectError: true},
		{name: "bad timeout", mutate: func(in *ConfigRawInput) { in.RemoteTimeout = "soon" }, expectError: true},
		{name: "negative timeout", mutate: func(in *ConfigRawInput) { in.InitTimeout = "-1m" }, expectError: true},
		{name: "empty timeout uses default", mutate: func(in *ConfigRawInput) { in.RemoteTimeout = "" }},
		{name: "zero retries", mutate: func(in *ConfigRawInput) { in.RemoteRetries = 0 }, expectError: true},
		{name: "zero workers", mutate: func(in *ConfigRawInput) { in.Workers = 0 }, expectError: true},
		{name: "unknown catalog", mutate: func(in *ConfigRawInput) { in.Catalog = "s3" }, expectError: true},
		{name: "postgres catalog without dsn", mutate: func(in *ConfigRawInput) { in.Catalog = "postgres" }, expectError: true},
		{
			name: "postgres catalog with dsn",
			mutate: func(in *ConfigRawInput) {
				in.Catalog = "postgres"
				in.CatalogDBConnect = "host=localhost dbname=training"
			},
		},
		{name: "empty region name", mutate: func(in *ConfigRawInput) { in.RegionName = " " }, expectError: true},
		{name: "unknown boundary", mutate: func(in *ConfigRawInput) { in.BoundarySource = "osm" }, expectError: true},
		{name: "overpass boundary", mutate: func(in *ConfigRawInput) { in.BoundarySource = "overpass" }},
		{
			name: "overpass boundary without endpoint",
			mutate: func(in *ConfigRawInput) {
				in.BoundarySource = "overpass"
				in.OverpassEndpoint = ""
			},
			expectError: true,
		},
		{name: "zero scale", mutate: func(in *ConfigRawInput) { in.Scale = 0 }, expectError: true},
		{name: "zero trees", mutate: func(in *ConfigRawInput) { in.Trees = 0 }, expectError: true},
		{name: "min samples too low", mutate: func(in *ConfigRawInput) { in.MinSamples = 1 }, expectError: true},
		{name: "zero min scenes", mutate: func(in *ConfigRawInput) { in.MinScenes = 0 }, expectError: true},
		{name: "padding too large", mutate: func(in *ConfigRawInput) { in.WindowPaddingDays = 365 }, expectError: true},
		{name: "zero tolerance", mutate: func(in *ConfigRawInput) { in.Tolerance = 0 }, expectError: true},
		{name: "negative significance", mutate: func(in *ConfigRawInput) { in.SignificantKm2 = -1 }, expectError: true},
		{name: "invalid cache backend", mutate: func(in *ConfigRawInput) { in.CacheBackend = "mongo" }, expectError: true},
		{
			name: "redis cache backend",
			mutate: func(in *ConfigRawInput) {
				in.CacheBackend = "redis"
				in.CacheDBConnect = "redis://localhost:6379/0"
			},
		},
		{name: "redis without url", mutate: func(in *ConfigRawInput) { in.CacheBackend = "redis" }, expectError: true},
		{
			name: "redis analysis backend",
			mutate: func(in *ConfigRawInput) {
				in.AnalysisBackend = "redis"
				in.AnalysisDBConnect = "redis://localhost:6379/0"
			},
			expectError: true,
		},
		{
			name: "same sqlite file for cache and analysis",
			mutate: func(in *ConfigRawInput) {
				in.CacheBackend = "sqlite"
				in.AnalysisBackend = "sqlite"
				in.CacheDBConnect = filepath.Join("tmp", "x.db")
				in.AnalysisDBConnect = filepath.Join("tmp", ".", "x.db")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessAndValidateValues(t *testing.T) {
	input := validInput()
	input.Output = "JSON"
	input.CatalogNamespace = "users/landchange/"
	input.RemoteTimeout = "90s"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, schema.JSONOut, cfg.Output)
	assert.Equal(t, schema.HTTPBackend, cfg.Backend)
	assert.Equal(t, "users/landchange", cfg.CatalogNamespace)
	assert.Equal(t, 90*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, 30*time.Minute, cfg.InitTimeout)
	assert.Equal(t, schema.NoneBackend, cfg.CacheBackend)
	assert.True(t, cfg.UseColors)
	assert.False(t, cfg.UseEmojis)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.InDelta(t, 900.0, cfg.PixelAreaM2(), 1e-9)
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{RegionName: "KERICHO", Trees: 100}
	clone := cfg.Clone()
	clone.Trees = 50
	assert.Equal(t, 100, cfg.Trees)
	assert.Equal(t, "KERICHO", clone.RegionName)
}

func TestConfigParams(t *testing.T) {
	cfg := &Config{RegionName: "KERICHO", Scale: 30, Trees: 100, IndexFeatures: true}
	params := cfg.Params()
	assert.Equal(t, "KERICHO", params["region"])
	assert.Equal(t, 30.0, params["scale"])
	assert.Equal(t, 100, params["trees"])
	assert.Equal(t, true, params["index_features"])
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{schema.SQLiteBackend, "", false},
		{schema.NoneBackend, "", false},
		{schema.MySQLBackend, "user:pass@tcp(localhost:3306)/landchange", false},
		{schema.MySQLBackend, "user:pass@localhost/landchange", true},
		{schema.MySQLBackend, "", true},
		{schema.PostgreSQLBackend, "host=localhost port=5432 dbname=landchange", false},
		{schema.PostgreSQLBackend, "postgres://user@localhost/landchange", false},
		{schema.PostgreSQLBackend, "port=5432 dbname=landchange", true},
		{schema.PostgreSQLBackend, "host=localhost", true},
		{schema.RedisBackend, "redis://localhost:6379/0", false},
		{schema.RedisBackend, "localhost:6379", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend)+"/"+tt.conn, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
