package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// PrintAreas outputs per-class areas, dispatching based on the output format configured.
func PrintAreas(areas []schema.AreaSummary, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtKm2 := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, areas)
		}, "Wrote JSON areas"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeAreasCSV(w, areas, fmtFloat)
		}, "Wrote CSV areas"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeAreasTable(w, areas, cfg, fmtKm2); err != nil {
				return err
			}
			if duration > 0 {
				_, err := fmt.Fprintf(w, "Areas computed in %v\n", duration.Round(time.Millisecond))
				return err
			}
			return nil
		}, "Wrote areas table"); err != nil {
			return fmt.Errorf("error writing areas table output: %w", err)
		}
	}
	return nil
}

// writeAreasTable prints one row per class and one column per year, followed by the
// totals rows.
func writeAreasTable(w io.Writer, areas []schema.AreaSummary, cfg *contract.Config, fmtKm2 func(float64) string) error {
	table := tablewriter.NewWriter(w)

	headers := []string{"Class (km²)"}
	for _, a := range areas {
		headers = append(headers, a.Year.String())
	}
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, c := range schema.AllClasses {
		row := []string{className(c, cfg)}
		for _, a := range areas {
			row = append(row, fmtKm2(a.Areas[c]))
		}
		data = append(data, row)
	}
	classified := []string{"Classified"}
	unclassified := []string{"Unclassified"}
	total := []string{"Total valid"}
	for _, a := range areas {
		classified = append(classified, fmtKm2(a.ClassTotal()))
		unclassified = append(unclassified, fmtKm2(a.UnclassifiedKm2))
		total = append(total, fmtKm2(a.TotalValidKm2))
	}
	data = append(data, classified, unclassified, total)

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// writeAreasCSV writes one row per (year, class).
func writeAreasCSV(w io.Writer, areas []schema.AreaSummary, fmtFloat func(float64) string) error {
	return writeCSVWithHeader(w, []string{"year", "class", "area_km2", "total_valid_km2"}, func(cw *csv.Writer) error {
		for _, a := range areas {
			for _, c := range schema.AllClasses {
				if err := cw.Write([]string{a.Year.String(), c.Key(), fmtFloat(a.Areas[c]), fmtFloat(a.TotalValidKm2)}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// PrintIndices outputs spectral index means.
func PrintIndices(results []schema.IndexResult, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, results)
		}, "Wrote JSON indices")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"year", "index", "mean", "valid_pixels"}, func(cw *csv.Writer) error {
				for _, r := range results {
					for _, s := range r.Ordered() {
						row := []string{r.Year.String(), string(s.Name), optionalCSV(s.Mean, cfg.Precision+2), fmt.Sprintf("%.0f", s.ValidPixels)}
						if err := cw.Write(row); err != nil {
							return err
						}
					}
				}
				return nil
			})
		}, "Wrote CSV indices")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			table := tablewriter.NewWriter(w)
			headers := []string{"Index"}
			for _, r := range results {
				headers = append(headers, r.Year.String())
			}
			table.Header(headers)
			table.Configure(func(cfg *tablewriter.Config) {
				cfg.Row.Alignment.Global = tw.AlignRight
			})
			var data [][]string
			for _, name := range schema.AllIndices {
				row := []string{string(name)}
				for _, r := range results {
					row = append(row, contract.FormatOptionalFloat(r.Indices[name].Mean, cfg.Precision+2))
				}
				data = append(data, row)
			}
			if err := table.Bulk(data); err != nil {
				return err
			}
			return table.Render()
		}, "Wrote indices table")
	}
}

// PrintClimate outputs annual climate summaries.
func PrintClimate(summaries []schema.ClimateSummary, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, summaries)
		}, "Wrote JSON climate")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"year", "temperature_c", "precipitation_mm", "notes"}, func(cw *csv.Writer) error {
				for _, c := range summaries {
					row := []string{c.Year.String(), optionalCSV(c.TemperatureC, cfg.Precision), optionalCSV(c.PrecipitationMm, cfg.Precision), strings.Join(c.Notes, "|")}
					if err := cw.Write(row); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV climate")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			table := tablewriter.NewWriter(w)
			table.Header([]string{"Year", "Temp (°C)", "Precip (mm)", "Notes"})
			maxWidth := getMaxReasonWidth(cfg, 35)
			var data [][]string
			for _, c := range summaries {
				data = append(data, []string{
					c.Year.String(),
					contract.FormatOptionalFloat(c.TemperatureC, cfg.Precision),
					contract.FormatOptionalFloat(c.PrecipitationMm, cfg.Precision),
					contract.TruncateText(strings.Join(c.Notes, "; "), maxWidth),
				})
			}
			if err := table.Bulk(data); err != nil {
				return err
			}
			return table.Render()
		}, "Wrote climate table")
	}
}

// PrintLayers outputs display layer descriptors. JSON carries the full expression graph.
func PrintLayers(layers []schema.MapLayer, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, layers)
		}, "Wrote JSON layers")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"year", "name", "bands", "min", "max", "palette", "fingerprint"}, func(cw *csv.Writer) error {
				for _, l := range layers {
					row := []string{l.Year.String(), l.Name, strings.Join(l.Bands, "|"), fmtFloat(l.Min), fmtFloat(l.Max), strings.Join(l.Palette, "|"), l.Expr.Fingerprint()}
					if err := cw.Write(row); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV layers")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			table := tablewriter.NewWriter(w)
			table.Header([]string{"Layer", "Bands", "Min", "Max", "Palette"})
			var data [][]string
			for _, l := range layers {
				data = append(data, []string{l.Name, strings.Join(l.Bands, ","), fmtFloat(l.Min), fmtFloat(l.Max), strings.Join(l.Palette, " ")})
			}
			if err := table.Bulk(data); err != nil {
				return err
			}
			return table.Render()
		}, "Wrote layers table")
	}
}

// optionalCSV renders a nullable number as an empty CSV cell when absent.
func optionalCSV(v *float64, precision int) string {
	if v == nil {
		return ""
	}
	return contract.FormatOptionalFloat(v, precision)
}
