package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/internal/parquet"
)

// ExecuteAnalysisExport exports the run history in store to Parquet files prefixed by outputFile.
func ExecuteAnalysisExport(w io.Writer, store contract.AnalysisStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("analysis tracking is not enabled")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get analysis status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no analysis data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total analysis runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total year records: %d\n", status.TableSizes[yearResultsTable])

	runs, err := store.GetAllAnalysisRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve analysis runs: %w", err)
	}
	years, err := store.GetAllYearResults()
	if err != nil {
		return fmt.Errorf("failed to retrieve year results: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteAnalysisRunsParquet(parquet.ConvertAnalysisRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write analysis runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d analysis runs to: %s\n", len(runs), runsFile)

	yearsFile := outputFile + ".year_results.parquet"
	if err := parquet.WriteYearResultsParquet(parquet.ConvertYearResultRecords(years), yearsFile); err != nil {
		return fmt.Errorf("failed to write year results: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d year records to: %s\n", len(years), yearsFile)
	return nil
}
