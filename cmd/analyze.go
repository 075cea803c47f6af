package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/geochange/landchange/core"
	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/internal/outwriter"
	"github.com/geochange/landchange/schema"
)

// collect reads one result per year. When the caller did not name years explicitly,
// years that are not ready are reported as warnings and skipped.
func collect[T any](years []schema.AnalysisYear, explicit bool, get func(schema.AnalysisYear) (T, error)) ([]T, error) {
	out := make([]T, 0, len(years))
	for _, year := range years {
		v, err := get(year)
		var notReady *schema.YearNotReadyError
		if err != nil && !explicit && errors.As(err, &notReady) {
			contract.LogWarn(fmt.Sprintf("Skipping %d", year), err)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, schema.ErrNoYearSucceeded
	}
	return out, nil
}

// initCmd runs a full initialization and prints the per-year outcome.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Build composites, indices, classifications and climate for every year.",
	Long: `Run the per-year pipelines for 1995, 2005, 2015 and 2024 and print what succeeded.

Each year goes through composite → indices → classification → areas, with climate
computed independently. A failing year never blocks the others.

Examples:
  # Initialize against the configured compute service
  landchange init

  # Initialize offline from recorded fixtures
  landchange init --backend replay --backend-fixtures kericho.json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		session, closer, err := buildSession(cfg, progressPrinter(os.Stderr, cfg))
		if err != nil {
			contract.LogFatal("Cannot build session", err)
		}
		defer closer()
		summary, err := session.Initialize(rootCtx)
		if printErr := outwriter.PrintInitSummary(summary, cfg); printErr != nil {
			contract.LogWarn("Cannot print summary", printErr)
		}
		if err != nil {
			closer()
			contract.LogFatal("Initialization failed", err)
		}
	},
}

// statusCmd prints the per-stage status of each year.
var statusCmd = &cobra.Command{
	Use:     "status [year...]",
	Short:   "Show the stage-by-stage status of each analysis year.",
	Args:    cobra.MaximumNArgs(len(schema.AllYears)),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		years, err := parseYears(args)
		if err != nil {
			contract.LogFatal("Invalid year", err)
		}
		err = runInitialized(rootCtx, func(s *core.Session) error {
			statuses, err := collect(years, true, s.Status)
			if err != nil {
				return err
			}
			return outwriter.PrintStatus(statuses, cfg)
		})
		if err != nil {
			contract.LogFatal("Cannot show status", err)
		}
	},
}

// areasCmd prints per-class areas.
var areasCmd = &cobra.Command{
	Use:   "areas [year...]",
	Short: "Show the area of each land-cover class in km².",
	Long: `Classify each requested year and report the area of forest, tea plantation,
other vegetation, bare soil and built-up land inside the region.

Without arguments every classified year is shown; years that failed are skipped with a warning.

Examples:
  landchange areas
  landchange areas 1995 2024 --output csv --output-file areas.csv`,
	Args:    cobra.MaximumNArgs(len(schema.AllYears)),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		years, err := parseYears(args)
		if err != nil {
			contract.LogFatal("Invalid year", err)
		}
		start := time.Now()
		err = runInitialized(rootCtx, func(s *core.Session) error {
			areas, err := collect(years, len(args) > 0, s.Areas)
			if err != nil {
				return err
			}
			return outwriter.PrintAreas(areas, cfg, time.Since(start))
		})
		if err != nil {
			contract.LogFatal("Cannot compute areas", err)
		}
	},
}

// changeCmd prints the transition matrix between two years.
var changeCmd = &cobra.Command{
	Use:   "change <from-year> <to-year>",
	Short: "Show the from/to land-cover transition matrix between two years.",
	Long: `Compare the classifications of two years pixel by pixel and report, for every pair of
classes, the area in km² that moved from one to the other.

Examples:
  # Forest to tea conversion since 1995
  landchange change 1995 2024

  # Only list transitions above 5 km²
  landchange change 2015 2024 --significant-km2 5`,
	Args:    cobra.ExactArgs(2),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		from, err := schema.ParseAnalysisYear(args[0])
		if err != nil {
			contract.LogFatal("Invalid year", err)
		}
		to, err := schema.ParseAnalysisYear(args[1])
		if err != nil {
			contract.LogFatal("Invalid year", err)
		}
		if from == to {
			contract.LogFatal("Invalid year pair", &schema.InvalidYearPairError{From: from, To: to})
		}
		err = runInitialized(rootCtx, func(s *core.Session) error {
			start := time.Now()
			m, err := s.ChangeMatrix(rootCtx, from, to)
			if err != nil {
				return err
			}
			return outwriter.PrintChangeMatrix(m, cfg, time.Since(start))
		})
		if err != nil {
			contract.LogFatal("Cannot compute change matrix", err)
		}
	},
}

// indicesCmd prints spectral index statistics.
var indicesCmd = &cobra.Command{
	Use:     "indices [year...]",
	Short:   "Show region means of NDVI, EVI, NDWI, SAVI, NBR, BSI, NDBI and MNDWI per year.",
	Args:    cobra.MaximumNArgs(len(schema.AllYears)),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		years, err := parseYears(args)
		if err != nil {
			contract.LogFatal("Invalid year", err)
		}
		err = runInitialized(rootCtx, func(s *core.Session) error {
			results, err := collect(years, len(args) > 0, s.Indices)
			if err != nil {
				return err
			}
			return outwriter.PrintIndices(results, cfg)
		})
		if err != nil {
			contract.LogFatal("Cannot compute indices", err)
		}
	},
}

// climateCmd prints temperature and precipitation per year.
var climateCmd = &cobra.Command{
	Use:     "climate [year...]",
	Short:   "Show mean land surface temperature and annual precipitation per year.",
	Args:    cobra.MaximumNArgs(len(schema.AllYears)),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		years, err := parseYears(args)
		if err != nil {
			contract.LogFatal("Invalid year", err)
		}
		err = runInitialized(rootCtx, func(s *core.Session) error {
			summaries, err := collect(years, len(args) > 0, s.Climate)
			if err != nil {
				return err
			}
			return outwriter.PrintClimate(summaries, cfg)
		})
		if err != nil {
			contract.LogFatal("Cannot compute climate", err)
		}
	},
}

// layersCmd prints the map layer descriptors of one year.
var layersCmd = &cobra.Command{
	Use:     "layers <year>",
	Short:   "Show the map layer descriptors (boundary, true color, classification, indices, climate) of a year.",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		year, err := schema.ParseAnalysisYear(args[0])
		if err != nil {
			contract.LogFatal("Invalid year", err)
		}
		err = runInitialized(rootCtx, func(s *core.Session) error {
			layers, err := s.Layers(year)
			if err != nil {
				return err
			}
			return outwriter.PrintLayers(layers, cfg)
		})
		if err != nil {
			contract.LogFatal("Cannot build layers", err)
		}
	},
}

// reportCmd prints the comprehensive report.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the comprehensive land-cover, vegetation and climate report.",
	Long: `Summarize every year in one document: class areas with percent change since the
first classified year, significant transitions for each consecutive period and for the
whole span, index means, temperature and precipitation.

Examples:
  landchange report
  landchange report --output json --output-file kericho.json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		err := runInitialized(rootCtx, func(s *core.Session) error {
			report, err := s.Report(rootCtx)
			if err != nil {
				return err
			}
			return outwriter.PrintReport(report, cfg)
		})
		if err != nil {
			contract.LogFatal("Cannot build report", err)
		}
	},
}
