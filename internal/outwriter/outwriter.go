// Package outwriter has output and writer logic.
package outwriter

import (
	"os"
	"time"

	"golang.org/x/term"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the commands.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteInit prints the outcome of an initialization.
func (ow *OutWriter) WriteInit(summary schema.InitSummary, cfg *contract.Config) error {
	return PrintInitSummary(summary, cfg)
}

// WriteStatus prints the per-stage status of every year.
func (ow *OutWriter) WriteStatus(statuses []schema.YearStatus, cfg *contract.Config) error {
	return PrintStatus(statuses, cfg)
}

// WriteAreas prints per-class areas for one or more years.
func (ow *OutWriter) WriteAreas(areas []schema.AreaSummary, cfg *contract.Config, duration time.Duration) error {
	return PrintAreas(areas, cfg, duration)
}

// WriteChange prints a change matrix with its net changes and significant transitions.
func (ow *OutWriter) WriteChange(m schema.ChangeMatrix, cfg *contract.Config, duration time.Duration) error {
	return PrintChangeMatrix(m, cfg, duration)
}

// WriteIndices prints spectral index means for one or more years.
func (ow *OutWriter) WriteIndices(results []schema.IndexResult, cfg *contract.Config) error {
	return PrintIndices(results, cfg)
}

// WriteClimate prints climate summaries for one or more years.
func (ow *OutWriter) WriteClimate(summaries []schema.ClimateSummary, cfg *contract.Config) error {
	return PrintClimate(summaries, cfg)
}

// WriteReport prints the comprehensive multi-year report.
func (ow *OutWriter) WriteReport(report schema.Report, cfg *contract.Config) error {
	return PrintReport(report, cfg)
}

// WriteLayers prints the display layer descriptors of a year.
func (ow *OutWriter) WriteLayers(layers []schema.MapLayer, cfg *contract.Config) error {
	return PrintLayers(layers, cfg)
}

// getMaxReasonWidth calculates the maximum width for free-text columns (stage reasons,
// climate notes) based on terminal width and the fixed columns around them.
func getMaxReasonWidth(cfg *contract.Config, fixedWidth int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve generous space for table borders, separators, and padding
	available := termWidth - fixedWidth - 20
	if available < 20 {
		return 20
	}
	if available > 90 {
		return 90
	}
	return available
}
