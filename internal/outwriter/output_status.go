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

// PrintInitSummary outputs an initialization summary, dispatching based on the output format configured.
func PrintInitSummary(summary schema.InitSummary, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, summary)
		}, "Wrote JSON init summary")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeStatusCSV(w, summary.Years)
		}, "Wrote CSV init summary")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeStatusTable(w, summary.Years, cfg); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "Session %s initialized in %v: %d year(s) succeeded, %d failed. Workers: %d. Cache backend: %s\n",
				summary.SessionID, summary.Duration.Round(time.Millisecond), len(summary.Succeeded), len(summary.Failed), cfg.Workers, cfg.CacheBackend)
			return err
		}, "Wrote init summary")
	}
}

// PrintStatus outputs per-year stage statuses.
func PrintStatus(statuses []schema.YearStatus, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, statuses)
		}, "Wrote JSON status")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeStatusCSV(w, statuses)
		}, "Wrote CSV status")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeStatusTable(w, statuses, cfg)
		}, "Wrote status")
	}
}

// writeStatusTable renders one row per year and one column per stage, followed by the
// failure reason of every year that did not succeed.
func writeStatusTable(w io.Writer, statuses []schema.YearStatus, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)

	headers := []string{"Year"}
	for _, st := range schema.AllStages {
		headers = append(headers, string(st))
	}
	headers = append(headers, "Outcome")
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, ys := range statuses {
		row := []string{ys.Year.String()}
		for _, st := range schema.AllStages {
			row = append(row, stateLabel(ys.Stage(st).State, cfg))
		}
		outcome := "failed"
		if ys.Succeeded() {
			outcome = "ok"
		}
		row = append(row, outcome)
		data = append(data, row)
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	maxWidth := getMaxReasonWidth(cfg, 12)
	for _, ys := range statuses {
		if ys.Succeeded() {
			continue
		}
		if _, err := fmt.Fprintf(w, "  %d: %s\n", ys.Year, contract.TruncateText(ys.FailureReason(), maxWidth)); err != nil {
			return err
		}
	}
	return nil
}

// writeStatusCSV writes one row per (year, stage).
func writeStatusCSV(w io.Writer, statuses []schema.YearStatus) error {
	return writeCSVWithHeader(w, []string{"year", "stage", "state", "reason"}, func(cw *csv.Writer) error {
		for _, ys := range statuses {
			for _, st := range schema.AllStages {
				s := ys.Stage(st)
				if err := cw.Write([]string{ys.Year.String(), string(st), string(s.State), s.Reason}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// stateLabel decorates a stage state for tables.
func stateLabel(state schema.StageState, cfg *contract.Config) string {
	if !cfg.UseEmojis {
		return string(state)
	}
	switch state {
	case schema.StageSucceeded:
		return "✅ " + string(state)
	case schema.StagePartial:
		return "🟡 " + string(state)
	case schema.StageFailed:
		return "❌ " + string(state)
	case schema.StageSkipped:
		return "⏭️ " + string(state)
	default:
		return string(state)
	}
}
