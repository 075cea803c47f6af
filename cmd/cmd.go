// Package cmd defines the command-line interface for landchange.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(areasCmd)
	rootCmd.AddCommand(changeCmd)
	rootCmd.AddCommand(indicesCmd)
	rootCmd.AddCommand(climateCmd)
	rootCmd.AddCommand(layersCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to config file")

	// Remote compute
	flags.String("backend", string(schema.HTTPBackend), "Compute backend: http or replay")
	flags.String("backend-url", "", "Base URL of the remote compute service")
	flags.String("backend-token", "", "Bearer token for the remote compute service (prefer LANDCHANGE_BACKEND_TOKEN)")
	flags.String("backend-fixtures", "", "Fixture file served by the replay backend")
	flags.String("record-fixtures", "", "Record every remote response to this fixture file")
	flags.String("remote-timeout", contract.DefaultRemoteTimeout, "Timeout of a single remote call")
	flags.Int("remote-retries", contract.DefaultRemoteRetries, "Attempts per remote call for transient failures")
	flags.String("init-timeout", contract.DefaultInitTimeout, "Timeout of a whole initialization")
	flags.Int("workers", contract.DefaultWorkers, "Number of years processed concurrently")

	// Training catalog and region
	flags.String("catalog", string(schema.AssetCatalog), "Training catalog: asset or postgres")
	flags.String("catalog-namespace", contract.DefaultCatalogNamespace, "Asset namespace of the training collections")
	flags.String("catalog-collection", contract.DefaultCatalogCollection, "Training collection name")
	flags.String("catalog-db-connect", "", "PostgreSQL connection string of the training catalog")
	flags.String("boundary-source", string(schema.AssetBoundary), "Region boundary source: asset or overpass")
	flags.String("region-asset", contract.DefaultRegionAsset, "Administrative boundaries asset")
	flags.String("region-property", contract.DefaultRegionProperty, "Property holding the region name")
	flags.String("region-name", contract.DefaultRegionName, "Name of the region to analyze")
	flags.String("overpass-endpoint", contract.DefaultOverpassEndpoint, "Overpass API endpoint")

	// Methodology
	flags.Float64("scale", contract.DefaultScale, "Classification and area grid in meters")
	flags.Float64("index-scale", contract.DefaultIndexScale, "Reduction scale of index statistics in meters")
	flags.Float64("climate-scale", contract.DefaultClimateScale, "Reduction scale of climate statistics in meters")
	flags.Int("trees", contract.DefaultTrees, "Number of random forest trees")
	flags.Int("min-samples", contract.DefaultMinSamples, "Minimum training samples per class")
	flags.Int("min-scenes", contract.DefaultMinScenes, "Minimum valid scenes per composite")
	flags.Int("window-padding-days", 0, "Days added on both sides of each acquisition window")
	flags.Bool("index-features", false, "Add NDVI, NDBI and NDWI to the classifier features")
	flags.Float64("tolerance", contract.DefaultTolerance, "Relative tolerance of the area reconciliation")
	flags.Float64("significant-km2", contract.DefaultSignificantKm2, "Minimum area of a reported transition")

	// Output
	flags.String("output", string(schema.TextOut), "Output format: text or csv or json")
	flags.String("output-file", "", "Optional path to write output to")
	flags.Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	flags.Int("width", 0, "Terminal width override (0 = auto-detect)")
	flags.String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	flags.String("emoji", "no", "Enable emojis in output headers (yes/no/true/false/1/0)")

	// Stores
	flags.String("cache-backend", string(schema.NoneBackend), "Cache backend: sqlite or mysql or postgresql or redis or none")
	flags.String("cache-db-connect", "", "Connection string for mysql/postgresql/redis (e.g., redis://localhost:6379/0)")
	flags.String("analysis-backend", "", "Run history backend: sqlite or mysql or postgresql or none")
	flags.String("analysis-db-connect", "", "Connection string for run history (must differ from cache-db-connect)")
	if err := viper.BindPFlags(flags); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("listen", contract.DefaultListen, "Address the HTTP server listens on")
	serveCmd.Flags().Bool("lazy", false, "Skip the initialization at startup")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
