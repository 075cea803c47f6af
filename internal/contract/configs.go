package contract

import (
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/geochange/landchange/schema"
)

// Default values for configuration.
const (
	DefaultPrecision         = 2
	DefaultTrees             = 100
	DefaultScale             = 30.0
	DefaultIndexScale        = 500.0
	DefaultClimateScale      = 1000.0
	DefaultMinSamples        = 5
	DefaultMinScenes         = 3
	DefaultTolerance         = 0.005
	DefaultSignificantKm2    = 1.0
	DefaultRemoteRetries     = 4
	DefaultRemoteTimeout     = "5m"
	DefaultInitTimeout       = "30m"
	DefaultCatalogNamespace  = "users/landchange"
	DefaultCatalogCollection = "kericho_training"
	DefaultRegionAsset       = "projects/landchange/assets/counties"
	DefaultRegionProperty    = "COUNTY_NAM"
	DefaultRegionName        = "KERICHO"
	DefaultOverpassEndpoint  = "https://overpass-api.de/api/interpreter"
	DefaultListen            = ":8080"
)

// DefaultWorkers runs every year concurrently.
var DefaultWorkers = len(schema.AllYears)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// Config holds the runtime configuration for the analysis.
// This struct remains the "final, validated" config.
type Config struct {
	Backend         schema.BackendKind
	BackendURL      string
	BackendToken    string // Please use env var as this is plaintext
	BackendFixtures string
	RecordFixtures  string
	RemoteTimeout   time.Duration
	RemoteRetries   int
	InitTimeout     time.Duration
	Workers         int

	Catalog           schema.CatalogKind
	CatalogNamespace  string
	CatalogCollection string
	CatalogDBConnect  string // Please use env var as this is plaintext

	BoundarySource   schema.BoundarySource
	RegionAsset      string
	RegionProperty   string
	RegionName       string
	OverpassEndpoint string

	Scale             float64 // Classification and area grid in meters
	IndexScale        float64
	ClimateScale      float64
	Trees             int
	MinSamples        int
	MinScenes         int
	WindowPaddingDays int
	IndexFeatures     bool
	Tolerance         float64
	SignificantKm2    float64

	Output     schema.OutputMode
	OutputFile string
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)
	Listen     string

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	AnalysisBackend   schema.DatabaseBackend
	AnalysisDBConnect string // Please use env var as this is plaintext

	UseEmojis bool // Enable emojis in output headers
	UseColors bool // Enable colored labels in table output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Remote backend ---
	Backend         string `mapstructure:"backend"`
	BackendURL      string `mapstructure:"backend-url"`
	BackendToken    string `mapstructure:"backend-token"`
	BackendFixtures string `mapstructure:"backend-fixtures"`
	RecordFixtures  string `mapstructure:"record-fixtures"`
	RemoteTimeout   string `mapstructure:"remote-timeout"`
	RemoteRetries   int    `mapstructure:"remote-retries"`
	InitTimeout     string `mapstructure:"init-timeout"`
	Workers         int    `mapstructure:"workers"`

	// --- Training catalog ---
	Catalog           string `mapstructure:"catalog"`
	CatalogNamespace  string `mapstructure:"catalog-namespace"`
	CatalogCollection string `mapstructure:"catalog-collection"`
	CatalogDBConnect  string `mapstructure:"catalog-db-connect"`

	// --- Region boundary ---
	BoundarySource   string `mapstructure:"boundary-source"`
	RegionAsset      string `mapstructure:"region-asset"`
	RegionProperty   string `mapstructure:"region-property"`
	RegionName       string `mapstructure:"region-name"`
	OverpassEndpoint string `mapstructure:"overpass-endpoint"`

	// --- Methodology ---
	Scale             float64 `mapstructure:"scale"`
	IndexScale        float64 `mapstructure:"index-scale"`
	ClimateScale      float64 `mapstructure:"climate-scale"`
	Trees             int     `mapstructure:"trees"`
	MinSamples        int     `mapstructure:"min-samples"`
	MinScenes         int     `mapstructure:"min-scenes"`
	WindowPaddingDays int     `mapstructure:"window-padding-days"`
	IndexFeatures     bool    `mapstructure:"index-features"`
	Tolerance         float64 `mapstructure:"tolerance"`
	SignificantKm2    float64 `mapstructure:"significant-km2"`

	// --- Output ---
	Output     string `mapstructure:"output"`
	OutputFile string `mapstructure:"output-file"`
	Precision  int    `mapstructure:"precision"`
	Width      int    `mapstructure:"width"`
	Emoji      string `mapstructure:"emoji"`
	Color      string `mapstructure:"color"`
	Listen     string `mapstructure:"listen"`

	// --- Stores ---
	CacheBackend      string `mapstructure:"cache-backend"`
	CacheDBConnect    string `mapstructure:"cache-db-connect"`
	AnalysisBackend   string `mapstructure:"analysis-backend"`
	AnalysisDBConnect string `mapstructure:"analysis-db-connect"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// PixelAreaM2 returns the nominal area of one classification pixel.
func (c *Config) PixelAreaM2() float64 {
	return c.Scale * c.Scale
}

// Params returns the methodology parameters recorded with each run and used in cache keys.
func (c *Config) Params() map[string]any {
	params := map[string]any{
		"backend":             string(c.Backend),
		"catalog":             string(c.Catalog),
		"catalog_collection":  c.CatalogCollection,
		"region":              c.RegionName,
		"boundary_source":     string(c.BoundarySource),
		"scale":               c.Scale,
		"index_scale":         c.IndexScale,
		"climate_scale":       c.ClimateScale,
		"trees":               c.Trees,
		"min_samples":         c.MinSamples,
		"min_scenes":          c.MinScenes,
		"window_padding_days": c.WindowPaddingDays,
		"index_features":      c.IndexFeatures,
	}
	return maps.Clone(params)
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateOutputInputs(cfg, input); err != nil {
		return err
	}
	if err := processRemoteBackend(cfg, input); err != nil {
		return err
	}
	if err := processCatalogAndRegion(cfg, input); err != nil {
		return err
	}
	if err := processMethodology(cfg, input); err != nil {
		return err
	}
	return validateBackendConfigs(cfg, input)
}

// validateOutputInputs processes and validates presentation fields.
func validateOutputInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Listen = input.Listen
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}

	emojis, err := ParseBoolString(input.Emoji)
	if err != nil {
		return fmt.Errorf("invalid --emoji value: %w", err)
	}
	cfg.UseEmojis = emojis

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Precision < 0 || input.Precision > 4 {
		return fmt.Errorf("precision must be between 0 and 4 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}
	return nil
}

// processRemoteBackend validates the compute backend settings.
func processRemoteBackend(cfg *Config, input *ConfigRawInput) error {
	cfg.Backend = schema.BackendKind(strings.ToLower(input.Backend))
	if _, ok := schema.ValidBackendKinds[cfg.Backend]; !ok {
		return fmt.Errorf("invalid backend '%s'. must be http or replay", input.Backend)
	}
	cfg.BackendURL = strings.TrimSpace(input.BackendURL)
	cfg.BackendToken = input.BackendToken
	cfg.BackendFixtures = input.BackendFixtures
	cfg.RecordFixtures = input.RecordFixtures

	switch cfg.Backend {
	case schema.HTTPBackend:
		if cfg.BackendURL == "" {
			return fmt.Errorf("backend-url is required when using the %s backend", cfg.Backend)
		}
		u, err := url.Parse(cfg.BackendURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("backend-url %q must be an absolute http(s) URL", cfg.BackendURL)
		}
	case schema.ReplayBackend:
		if cfg.BackendFixtures == "" {
			return fmt.Errorf("backend-fixtures is required when using the %s backend", cfg.Backend)
		}
	}

	var err error
	if cfg.RemoteTimeout, err = parsePositiveDuration("remote-timeout", input.RemoteTimeout, DefaultRemoteTimeout); err != nil {
		return err
	}
	if cfg.InitTimeout, err = parsePositiveDuration("init-timeout", input.InitTimeout, DefaultInitTimeout); err != nil {
		return err
	}

	if input.RemoteRetries < 1 || input.RemoteRetries > 10 {
		return fmt.Errorf("remote-retries must be between 1 and 10 (received %d)", input.RemoteRetries)
	}
	cfg.RemoteRetries = input.RemoteRetries

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers
	return nil
}

// processCatalogAndRegion validates where training data and the region come from.
func processCatalogAndRegion(cfg *Config, input *ConfigRawInput) error {
	cfg.Catalog = schema.CatalogKind(strings.ToLower(input.Catalog))
	if _, ok := schema.ValidCatalogKinds[cfg.Catalog]; !ok {
		return fmt.Errorf("invalid catalog '%s'. must be asset or postgres", input.Catalog)
	}
	cfg.CatalogNamespace = strings.TrimSuffix(strings.TrimSpace(input.CatalogNamespace), "/")
	cfg.CatalogCollection = strings.Trim(strings.TrimSpace(input.CatalogCollection), "/")
	cfg.CatalogDBConnect = input.CatalogDBConnect
	switch cfg.Catalog {
	case schema.AssetCatalog:
		if cfg.CatalogNamespace == "" || cfg.CatalogCollection == "" {
			return fmt.Errorf("catalog-namespace and catalog-collection are required for the asset catalog")
		}
	case schema.PostgresCatalog:
		if err := ValidateDatabaseConnectionString(schema.PostgreSQLBackend, cfg.CatalogDBConnect); err != nil {
			return fmt.Errorf("catalog-db-connect: %w", err)
		}
	}

	cfg.BoundarySource = schema.BoundarySource(strings.ToLower(input.BoundarySource))
	if _, ok := schema.ValidBoundarySources[cfg.BoundarySource]; !ok {
		return fmt.Errorf("invalid boundary source '%s'. must be asset or overpass", input.BoundarySource)
	}
	cfg.RegionAsset = strings.TrimSpace(input.RegionAsset)
	cfg.RegionProperty = strings.TrimSpace(input.RegionProperty)
	cfg.RegionName = strings.TrimSpace(input.RegionName)
	cfg.OverpassEndpoint = strings.TrimSpace(input.OverpassEndpoint)
	if cfg.RegionName == "" {
		return fmt.Errorf("region-name cannot be empty")
	}
	if cfg.BoundarySource == schema.AssetBoundary && (cfg.RegionAsset == "" || cfg.RegionProperty == "") {
		return fmt.Errorf("region-asset and region-property are required for the asset boundary")
	}
	if cfg.BoundarySource == schema.OverpassBoundary && cfg.OverpassEndpoint == "" {
		return fmt.Errorf("overpass-endpoint is required for the overpass boundary")
	}
	return nil
}

// processMethodology validates the numeric analysis parameters.
func processMethodology(cfg *Config, input *ConfigRawInput) error {
	if input.Scale <= 0 || input.IndexScale <= 0 || input.ClimateScale <= 0 {
		return fmt.Errorf("scale, index-scale and climate-scale must be positive")
	}
	cfg.Scale = input.Scale
	cfg.IndexScale = input.IndexScale
	cfg.ClimateScale = input.ClimateScale

	if input.Trees < 1 {
		return fmt.Errorf("trees must be at least 1 (received %d)", input.Trees)
	}
	cfg.Trees = input.Trees

	if input.MinSamples < 2 {
		return fmt.Errorf("min-samples must be at least 2 (received %d)", input.MinSamples)
	}
	cfg.MinSamples = input.MinSamples

	if input.MinScenes < 1 {
		return fmt.Errorf("min-scenes must be at least 1 (received %d)", input.MinScenes)
	}
	cfg.MinScenes = input.MinScenes

	if input.WindowPaddingDays < 0 || input.WindowPaddingDays > 180 {
		return fmt.Errorf("window-padding-days must be between 0 and 180 (received %d)", input.WindowPaddingDays)
	}
	cfg.WindowPaddingDays = input.WindowPaddingDays
	cfg.IndexFeatures = input.IndexFeatures

	if input.Tolerance <= 0 || input.Tolerance >= 1 {
		return fmt.Errorf("tolerance must be in (0, 1) (received %g)", input.Tolerance)
	}
	cfg.Tolerance = input.Tolerance

	if input.SignificantKm2 < 0 {
		return fmt.Errorf("significant-km2 cannot be negative (received %g)", input.SignificantKm2)
	}
	cfg.SignificantKm2 = input.SignificantKm2
	return nil
}

// parsePositiveDuration parses a Go duration string, falling back to def when empty.
func parsePositiveDuration(name, raw, def string) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		raw = def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive (received %s)", name, raw)
	}
	return d, nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL, PostgreSQL and Redis backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
			return nil
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	case schema.RedisBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.HasPrefix(connStr, "redis://") && !strings.HasPrefix(connStr, "rediss://") {
			return fmt.Errorf("Redis connection string must start with redis:// or rediss://")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and analysis backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, redis, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- Analysis Backend Validation ---
	cfg.AnalysisBackend = schema.DatabaseBackend(strings.ToLower(input.AnalysisBackend))
	if cfg.AnalysisBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.AnalysisBackend]; !ok || cfg.AnalysisBackend == schema.RedisBackend {
		return fmt.Errorf("invalid analysis backend '%s'. must be sqlite, mysql, postgresql, none", input.AnalysisBackend)
	}
	cfg.AnalysisDBConnect = input.AnalysisDBConnect
	if err := ValidateDatabaseConnectionString(cfg.AnalysisBackend, cfg.AnalysisDBConnect); err != nil {
		return err
	}

	// Validate that cache and analysis use different SQLite files
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.AnalysisBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		analysisDBPath := cfg.AnalysisDBConnect
		if analysisDBPath == "" {
			analysisDBPath = GetAnalysisDBFilePath()
		}
		if filepath.Clean(cacheDBPath) == filepath.Clean(analysisDBPath) {
			return fmt.Errorf("cache and analysis storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// GetCacheDBFilePath returns the path to the SQLite DB file for result caching.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".landchange_cache.db"
	}
	return filepath.Join(homeDir, ".landchange_cache.db")
}

// GetAnalysisDBFilePath returns the path to the SQLite DB file for run history.
func GetAnalysisDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".landchange_analysis.db"
	}
	return filepath.Join(homeDir, ".landchange_analysis.db")
}
