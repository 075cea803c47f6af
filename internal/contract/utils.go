package contract

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/geochange/landchange/schema"
)

// Change label constants.
const (
	GainValue   = "Gain"   // Class area grew beyond the significance threshold
	LossValue   = "Loss"   // Class area shrank beyond the significance threshold
	StableValue = "Stable" // Net change within the significance threshold
)

// Color variables for console output.
var (
	GainColor   = color.New(color.FgGreen, color.Bold)
	LossColor   = color.New(color.FgRed, color.Bold)
	StableColor = color.New(color.FgCyan)
)

// GetChangeLabel returns a plain text label for a net area change in km².
// Changes whose magnitude is below threshold are reported as stable.
func GetChangeLabel(netKm2, threshold float64) string {
	switch {
	case math.Abs(netKm2) < threshold:
		return StableValue
	case netKm2 > 0:
		return GainValue
	default:
		return LossValue
	}
}

// GetColorChangeLabel returns a colored change label for console output (table).
func GetColorChangeLabel(netKm2, threshold float64) string {
	text := GetChangeLabel(netKm2, threshold)
	switch text {
	case GainValue:
		return GainColor.Sprint(text)
	case LossValue:
		return LossColor.Sprint(text)
	default:
		return StableColor.Sprint(text)
	}
}

// ClassColor returns a console color matching the class palette entry.
func ClassColor(class schema.LandCoverClass) *color.Color {
	r, g, b, err := parseHexColor(class.Color())
	if err != nil {
		return color.New(color.Reset)
	}
	return color.RGB(r, g, b)
}

// GetColorClassName returns the class display name painted in its palette color.
func GetColorClassName(class schema.LandCoverClass) string {
	return ClassColor(class).Sprint(class.DisplayName())
}

func parseHexColor(hex string) (int, int, int, error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q", hex)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF), nil
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. Empty paths write to stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// TruncateText truncates text to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so at least one character of content survives.
func TruncateText(text string, maxWidth int) string {
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// FormatOptionalFloat renders a nullable number, using "n/a" when absent.
func FormatOptionalFloat(v *float64, precision int) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', precision, 64)
}
