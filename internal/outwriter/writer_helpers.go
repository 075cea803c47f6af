package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if err := writeRows(csvWriter); err != nil {
		return err
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// createFormatters creates the formatter closures shared by every output type. fmtFloat
// is for machine output, fmtKm2 groups thousands for tables.
func createFormatters(precision int) (fmtFloat func(float64) string, fmtKm2 func(float64) string) {
	fmtFloat = func(v float64) string {
		return strconv.FormatFloat(v, 'f', precision, 64)
	}
	fmtKm2 = func(v float64) string {
		return humanize.FormatFloat(groupingFormat(precision), v)
	}
	return fmtFloat, fmtKm2
}

// groupingFormat returns the go-humanize pattern for the given number of decimals.
func groupingFormat(precision int) string {
	switch {
	case precision <= 0:
		return "#,###."
	case precision == 1:
		return "#,###.#"
	case precision == 2:
		return "#,###.##"
	case precision == 3:
		return "#,###.###"
	default:
		return "#,###.####"
	}
}

// fmtPercent renders a nullable percentage with a sign.
func fmtPercent(v *float64, precision int) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.*f%%", precision, *v)
}

// className returns the display name of a class, colored when enabled.
func className(c schema.LandCoverClass, cfg *contract.Config) string {
	if cfg.UseColors {
		return contract.GetColorClassName(c)
	}
	return c.DisplayName()
}

// header prefixes a section title with an emoji when enabled.
func header(emoji, title string, cfg *contract.Config) string {
	if cfg.UseEmojis {
		return emoji + " " + title
	}
	return title
}
