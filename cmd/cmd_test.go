package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geochange/landchange/core"
	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

func TestParseYears(t *testing.T) {
	years, err := parseYears(nil)
	require.NoError(t, err)
	assert.Equal(t, schema.AllYears, years)

	years, err = parseYears([]string{"2024", "1995"})
	require.NoError(t, err)
	assert.Equal(t, []schema.AnalysisYear{schema.Year2024, schema.Year1995}, years)

	_, err = parseYears([]string{"2000"})
	var invalid *schema.InvalidYearError
	assert.ErrorAs(t, err, &invalid)
}

func TestCollect(t *testing.T) {
	get := func(year schema.AnalysisYear) (int, error) {
		if year == schema.Year2005 {
			return 0, &schema.YearNotReadyError{Year: year, Stage: schema.CompositeStage, Reason: "no scenes"}
		}
		return int(year), nil
	}

	t.Run("skips unready years when defaulted", func(t *testing.T) {
		got, err := collect(schema.AllYears, false, get)
		require.NoError(t, err)
		assert.Equal(t, []int{1995, 2015, 2024}, got)
	})

	t.Run("fails on unready years when explicit", func(t *testing.T) {
		_, err := collect([]schema.AnalysisYear{schema.Year2005}, true, get)
		var notReady *schema.YearNotReadyError
		assert.ErrorAs(t, err, &notReady)
	})

	t.Run("other errors always fail", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := collect(schema.AllYears, false, func(schema.AnalysisYear) (int, error) { return 0, boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("nothing ready", func(t *testing.T) {
		_, err := collect([]schema.AnalysisYear{schema.Year2005}, false, get)
		assert.ErrorIs(t, err, schema.ErrNoYearSucceeded)
	})
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	cfg := &contract.Config{}
	p := progressPrinter(&buf, cfg)
	p(core.ProgressEvent{Year: schema.Year2005, Stage: schema.CompositeStage, State: schema.StageFailed, Reason: "only 0 valid scene(s)"})
	assert.Equal(t, "- 2005 composite: failed (only 0 valid scene(s))\n", buf.String())

	buf.Reset()
	cfg.UseEmojis = true
	p(core.ProgressEvent{Year: schema.Year1995, Stage: schema.ClassificationStage, State: schema.StageSucceeded})
	assert.Equal(t, "✅ 1995 classification: succeeded\n", buf.String())
}
