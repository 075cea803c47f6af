package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// changeCell is one cell of the flattened JSON matrix.
type changeCell struct {
	From schema.LandCoverClass `json:"from"`
	To   schema.LandCoverClass `json:"to"`
	Km2  float64               `json:"km2"`
}

// classNet is the net change of one class between the two years.
type classNet struct {
	Class  schema.LandCoverClass `json:"class"`
	Before float64               `json:"before_km2"`
	After  float64               `json:"after_km2"`
	Net    float64               `json:"net_km2"`
	Label  string                `json:"label"`
}

// changeJSON is the JSON document of one change matrix.
type changeJSON struct {
	From        schema.AnalysisYear `json:"year_from"`
	To          schema.AnalysisYear `json:"year_to"`
	Cells       []changeCell        `json:"cells"`
	Net         []classNet          `json:"net"`
	Significant []schema.Transition `json:"significant_transitions"`
	Excluded    float64             `json:"excluded_pixels"`
}

// PrintChangeMatrix outputs a change matrix, dispatching based on the output format configured.
func PrintChangeMatrix(m schema.ChangeMatrix, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtKm2 := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, buildChangeJSON(m, cfg.SignificantKm2))
		}, "Wrote JSON change matrix"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeChangeCSV(w, m, fmtFloat)
		}, "Wrote CSV change matrix"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeChangeTable(w, m, cfg, fmtKm2, duration)
		}, "Wrote change table"); err != nil {
			return fmt.Errorf("error writing change table output: %w", err)
		}
	}
	return nil
}

func buildChangeJSON(m schema.ChangeMatrix, significant float64) changeJSON {
	out := changeJSON{From: m.From, To: m.To, Excluded: m.ExcludedPixels, Significant: m.Transitions(significant)}
	for _, f := range schema.AllClasses {
		for _, t := range schema.AllClasses {
			out.Cells = append(out.Cells, changeCell{From: f, To: t, Km2: m.Get(f, t)})
		}
	}
	out.Net = netChanges(m, significant)
	if out.Significant == nil {
		out.Significant = []schema.Transition{}
	}
	return out
}

// netChanges lists the before, after and net area of every class.
func netChanges(m schema.ChangeMatrix, significant float64) []classNet {
	out := make([]classNet, 0, len(schema.AllClasses))
	for _, c := range schema.AllClasses {
		net := m.NetChange(c)
		out = append(out, classNet{
			Class:  c,
			Before: m.RowSum(c),
			After:  m.ColumnSum(c),
			Net:    net,
			Label:  contract.GetChangeLabel(net, significant),
		})
	}
	return out
}

// writeChangeTable prints the from x to matrix, the per-class net change and the
// significant transitions.
func writeChangeTable(w io.Writer, m schema.ChangeMatrix, cfg *contract.Config, fmtKm2 func(float64) string, duration time.Duration) error {
	if _, err := fmt.Fprintf(w, "%s\n", header("🔀", fmt.Sprintf("Land-cover change %d → %d (km², rows: %d, columns: %d)", m.From, m.To, m.From, m.To), cfg)); err != nil {
		return err
	}

	matrix := tablewriter.NewWriter(w)
	headers := []string{"From \\ To"}
	for _, c := range schema.AllClasses {
		headers = append(headers, c.DisplayName())
	}
	headers = append(headers, "Total")
	matrix.Header(headers)
	matrix.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, f := range schema.AllClasses {
		row := []string{className(f, cfg)}
		for _, t := range schema.AllClasses {
			row = append(row, fmtKm2(m.Get(f, t)))
		}
		row = append(row, fmtKm2(m.RowSum(f)))
		data = append(data, row)
	}
	totals := []string{"Total"}
	for _, t := range schema.AllClasses {
		totals = append(totals, fmtKm2(m.ColumnSum(t)))
	}
	data = append(data, totals)
	if err := matrix.Bulk(data); err != nil {
		return err
	}
	if err := matrix.Render(); err != nil {
		return err
	}

	net := tablewriter.NewWriter(w)
	net.Header([]string{"Class", "Before", "After", "Net", "Change"})
	net.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var netRows [][]string
	for _, n := range netChanges(m, cfg.SignificantKm2) {
		label := n.Label
		if cfg.UseColors {
			label = contract.GetColorChangeLabel(n.Net, cfg.SignificantKm2)
		}
		netRows = append(netRows, []string{className(n.Class, cfg), fmtKm2(n.Before), fmtKm2(n.After), fmt.Sprintf("%+.*f", cfg.Precision, n.Net), label})
	}
	if err := net.Bulk(netRows); err != nil {
		return err
	}
	if err := net.Render(); err != nil {
		return err
	}

	if err := writeTransitions(w, m.Transitions(cfg.SignificantKm2), cfg, fmtKm2); err != nil {
		return err
	}
	if m.ExcludedPixels > 0 {
		if _, err := fmt.Fprintf(w, "Excluded %.0f pixel pair(s) with labels outside the class set\n", m.ExcludedPixels); err != nil {
			return err
		}
	}
	if duration > 0 {
		if _, err := fmt.Fprintf(w, "Change detection completed in %v\n", duration.Round(time.Millisecond)); err != nil {
			return err
		}
	}
	return nil
}

// writeTransitions lists significant off-diagonal transitions, largest first.
func writeTransitions(w io.Writer, transitions []schema.Transition, cfg *contract.Config, fmtKm2 func(float64) string) error {
	if len(transitions) == 0 {
		_, err := fmt.Fprintf(w, "No transitions above %s km²\n", fmtKm2(cfg.SignificantKm2))
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\n", header("📈", fmt.Sprintf("Significant transitions (> %s km²)", fmtKm2(cfg.SignificantKm2)), cfg)); err != nil {
		return err
	}
	for _, t := range transitions {
		if _, err := fmt.Fprintf(w, "  %s → %s: %s km²\n", className(t.From, cfg), className(t.To, cfg), fmtKm2(t.Km2)); err != nil {
			return err
		}
	}
	return nil
}

// writeChangeCSV writes every cell of the matrix.
func writeChangeCSV(w io.Writer, m schema.ChangeMatrix, fmtFloat func(float64) string) error {
	return writeCSVWithHeader(w, []string{"year_from", "year_to", "from", "to", "km2"}, func(cw *csv.Writer) error {
		for _, f := range schema.AllClasses {
			for _, t := range schema.AllClasses {
				if err := cw.Write([]string{m.From.String(), m.To.String(), f.Key(), t.Key(), fmtFloat(m.Get(f, t))}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
