package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// PrintReport outputs the comprehensive report.
func PrintReport(report schema.Report, cfg *contract.Config) error {
	fmtFloat, fmtKm2 := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON report")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportCSV(w, report, fmtFloat)
		}, "Wrote CSV report")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportText(w, report, cfg, fmtKm2)
		}, "Wrote report")
	}
}

func writeReportText(w io.Writer, report schema.Report, cfg *contract.Config, fmtKm2 func(float64) string) error {
	if _, err := fmt.Fprintf(w, "%s\n", header("🌍", fmt.Sprintf("Land-cover report for %s (generated %s)", report.Region, report.GeneratedAt.Format(contract.DateTimeFormat)), cfg)); err != nil {
		return err
	}
	if report.BaseYear == 0 {
		_, err := fmt.Fprintln(w, "No year was classified.")
		return err
	}

	// --- 1. Areas and percent change per classified year ---
	if _, err := fmt.Fprintf(w, "\n%s\n", header("🗺️", fmt.Sprintf("Areas (km²) and change since %d", report.BaseYear), cfg)); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	headers := []string{"Class"}
	var years []schema.YearReport
	for _, yr := range report.Years {
		if yr.Areas != nil {
			years = append(years, yr)
			headers = append(headers, yr.Year.String())
		}
	}
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, c := range schema.AllClasses {
		row := []string{className(c, cfg)}
		for _, yr := range years {
			cell := fmtKm2(yr.Areas.Areas[c])
			if yr.Year != report.BaseYear {
				cell += " (" + fmtPercent(yr.PercentChange[c], 1) + ")"
			}
			row = append(row, cell)
		}
		data = append(data, row)
	}
	total := []string{"Total valid"}
	for _, yr := range years {
		total = append(total, fmtKm2(yr.Areas.TotalValidKm2))
	}
	data = append(data, total)
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	// --- 2. Significant transitions per period ---
	for _, p := range report.Periods {
		if _, err := fmt.Fprintf(w, "\n%d → %d\n", p.From, p.To); err != nil {
			return err
		}
		if p.Error != "" {
			if _, err := fmt.Fprintf(w, "  unavailable: %s\n", p.Error); err != nil {
				return err
			}
			continue
		}
		if err := writeTransitions(w, p.Transitions, cfg, fmtKm2); err != nil {
			return err
		}
	}

	// --- 3. Indices and climate ---
	if _, err := fmt.Fprintf(w, "\n%s\n", header("🌦️", "Vegetation and climate", cfg)); err != nil {
		return err
	}
	env := tablewriter.NewWriter(w)
	env.Header([]string{"Year", "NDVI", "EVI", "NDBI", "Temp (°C)", "Precip (mm)", "Status"})
	env.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var envRows [][]string
	for _, yr := range report.Years {
		row := []string{yr.Year.String()}
		for _, name := range []schema.IndexName{schema.NDVI, schema.EVI, schema.NDBI} {
			var mean *float64
			if yr.Indices != nil {
				mean = yr.Indices.Indices[name].Mean
			}
			row = append(row, contract.FormatOptionalFloat(mean, cfg.Precision+1))
		}
		var temp, precip *float64
		if yr.Climate != nil {
			temp, precip = yr.Climate.TemperatureC, yr.Climate.PrecipitationMm
		}
		status := "ok"
		if !yr.Status.Succeeded() {
			status = "failed"
		}
		row = append(row, contract.FormatOptionalFloat(temp, 1), contract.FormatOptionalFloat(precip, 1), status)
		envRows = append(envRows, row)
	}
	if err := env.Bulk(envRows); err != nil {
		return err
	}
	return env.Render()
}

// writeReportCSV flattens the report into one row per (year, class).
func writeReportCSV(w io.Writer, report schema.Report, fmtFloat func(float64) string) error {
	cols := []string{"year", "class", "area_km2", "percent_change", "ndvi_mean", "temperature_c", "precipitation_mm", "status"}
	return writeCSVWithHeader(w, cols, func(cw *csv.Writer) error {
		for _, yr := range report.Years {
			status := string(schema.StageFailed)
			if yr.Status.Succeeded() {
				status = string(schema.StageSucceeded)
			}
			var ndvi, temp, precip *float64
			if yr.Indices != nil {
				ndvi = yr.Indices.Indices[schema.NDVI].Mean
			}
			if yr.Climate != nil {
				temp, precip = yr.Climate.TemperatureC, yr.Climate.PrecipitationMm
			}
			for _, c := range schema.AllClasses {
				area := ""
				if yr.Areas != nil {
					area = fmtFloat(yr.Areas.Areas[c])
				}
				row := []string{
					yr.Year.String(), c.Key(), area, optionalCSV(yr.PercentChange[c], 2),
					optionalCSV(ndvi, 4), optionalCSV(temp, 2), optionalCSV(precip, 2), status,
				}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
