package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/internal/iocache"
	"github.com/geochange/landchange/schema"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "landchange",
	Short:              "Multi-temporal land-cover change analysis for the Kericho region.",
	Long:               `Landchange classifies satellite composites for 1995, 2005, 2015 and 2024 and reports how forest, tea and settlements changed between them.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setConfigFile()

	// Set environment variable prefix
	viper.SetEnvPrefix("LANDCHANGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Set defaults in Viper
	viper.SetDefault("backend", schema.HTTPBackend)
	viper.SetDefault("remote-timeout", contract.DefaultRemoteTimeout)
	viper.SetDefault("remote-retries", contract.DefaultRemoteRetries)
	viper.SetDefault("init-timeout", contract.DefaultInitTimeout)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("catalog", schema.AssetCatalog)
	viper.SetDefault("catalog-namespace", contract.DefaultCatalogNamespace)
	viper.SetDefault("catalog-collection", contract.DefaultCatalogCollection)
	viper.SetDefault("boundary-source", schema.AssetBoundary)
	viper.SetDefault("region-asset", contract.DefaultRegionAsset)
	viper.SetDefault("region-property", contract.DefaultRegionProperty)
	viper.SetDefault("region-name", contract.DefaultRegionName)
	viper.SetDefault("overpass-endpoint", contract.DefaultOverpassEndpoint)
	viper.SetDefault("scale", contract.DefaultScale)
	viper.SetDefault("index-scale", contract.DefaultIndexScale)
	viper.SetDefault("climate-scale", contract.DefaultClimateScale)
	viper.SetDefault("trees", contract.DefaultTrees)
	viper.SetDefault("min-samples", contract.DefaultMinSamples)
	viper.SetDefault("min-scenes", contract.DefaultMinScenes)
	viper.SetDefault("tolerance", contract.DefaultTolerance)
	viper.SetDefault("significant-km2", contract.DefaultSignificantKm2)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("listen", contract.DefaultListen)
	viper.SetDefault("cache-backend", schema.NoneBackend)
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("analysis-backend", "")
	viper.SetDefault("analysis-db-connect", "")
	viper.SetDefault("color", "yes")
	viper.SetDefault("emoji", "no")
}

// setConfigFile points viper at --config or the default .landchange.yaml locations.
func setConfigFile() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".landchange")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	// 4. Initialize persistence layer with validated config
	if err := iocache.InitStores(cfg.CacheBackend, cfg.CacheDBConnect, cfg.AnalysisBackend, cfg.AnalysisDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// loadConfigFile reads the config file when one exists.
func loadConfigFile() error {
	setConfigFile()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
