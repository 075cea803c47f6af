package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysisYear(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    AnalysisYear
		wantErr bool
	}{
		{"first year", "1995", Year1995, false},
		{"last year with spaces", " 2024 ", Year2024, false},
		{"outside set", "2030", 0, true},
		{"between years", "2000", 0, true},
		{"not a number", "twenty", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnalysisYear(tt.raw)
			if tt.wantErr {
				var yearErr *InvalidYearError
				assert.True(t, errors.As(err, &yearErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestYearOrdering(t *testing.T) {
	for i, y := range AllYears {
		assert.Equal(t, i, y.Index())
		if i > 0 {
			assert.Less(t, AllYears[i-1], y)
		}
	}
	assert.Equal(t, -1, AnalysisYear(2030).Index())
}

func TestLandCoverClassKeys(t *testing.T) {
	for _, c := range AllClasses {
		parsed, err := ParseLandCoverClass(c.Key())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
		assert.NotEmpty(t, c.Color())
	}
	_, err := ParseLandCoverClass("water")
	assert.Error(t, err)

	_, ok := ClassFromLabel(7)
	assert.False(t, ok)
}

func TestClassMapKeysSerializeAsNames(t *testing.T) {
	areas := map[LandCoverClass]float64{Forest: 10.5, Tea: 2}
	data, err := json.Marshal(areas)
	require.NoError(t, err)
	assert.JSONEq(t, `{"forest":10.5,"tea":2}`, string(data))

	var decoded map[LandCoverClass]float64
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, areas, decoded)
}

func TestAllTrainingKeys(t *testing.T) {
	keys := AllTrainingKeys()
	assert.Len(t, keys, len(AllYears)*len(AllClasses))
	assert.Equal(t, "forest_1995", keys[0].String())
	assert.Equal(t, "builtup_2024", keys[len(keys)-1].String())
}

func TestTrainingGeometrySetMissing(t *testing.T) {
	set := TrainingGeometrySet{}
	for _, k := range AllTrainingKeys() {
		set[k] = GeometryCollection{Key: k, AssetPath: "ns/col/" + k.String(), FeatureCount: 12}
	}
	missing := TrainingKey{Year: Year2015, Class: Bare}
	delete(set, missing)

	assert.True(t, set.CompleteFor(Year1995))
	assert.False(t, set.CompleteFor(Year2015))
	assert.Equal(t, []TrainingKey{missing}, set.MissingFor(Year2015))
	assert.Len(t, set.ForYear(Year2015), len(AllClasses)-1)

	set[missing] = GeometryCollection{Key: missing}
	assert.Equal(t, []TrainingKey{missing}, set.MissingFor(Year2015), "empty collections count as missing")
}

func TestMissingTrainingDataErrorForYear(t *testing.T) {
	err := &MissingTrainingDataError{Keys: []TrainingKey{
		{Year: Year1995, Class: Tea},
		{Year: Year2024, Class: BuiltUp},
	}}
	assert.Contains(t, err.Error(), "tea_1995")
	assert.Contains(t, err.Error(), "builtup_2024")

	narrowed := err.ForYear(Year2024)
	require.NotNil(t, narrowed)
	assert.Equal(t, []TrainingKey{{Year: Year2024, Class: BuiltUp}}, narrowed.Keys)
	assert.Nil(t, err.ForYear(Year2005))
}

func TestYearStatus(t *testing.T) {
	ok := YearStatus{Year: Year1995, Stages: []StageStatus{
		{Stage: CompositeStage, State: StageSucceeded},
		{Stage: ClimateStage, State: StagePartial, Reason: "temperature unavailable"},
	}}
	assert.True(t, ok.Succeeded())
	assert.Empty(t, ok.FailureReason())

	failed := YearStatus{Year: Year2005, Stages: []StageStatus{
		{Stage: CompositeStage, State: StageFailed, Reason: "no scenes"},
		{Stage: ClassificationStage, State: StageSkipped, Reason: "no composite"},
	}}
	assert.False(t, failed.Succeeded())
	assert.Equal(t, "composite: no scenes; classification: no composite", failed.FailureReason())
	assert.Equal(t, StagePending, failed.Stage(IndicesStage).State)

	noClimate := YearStatus{Year: Year2024, Stages: []StageStatus{
		{Stage: CompositeStage, State: StageSucceeded},
		{Stage: ClimateStage, State: StageFailed, Reason: "quota"},
	}}
	assert.True(t, noClimate.Succeeded())
	assert.False(t, YearStatus{Stages: []StageStatus{{Stage: ClimateStage, State: StageSucceeded}}}.Succeeded())
}

func TestErrorsUnwrap(t *testing.T) {
	cause := &RemoteComputeError{Op: "classify", Message: "boom", Retryable: true}
	err := &YearNotReadyError{Year: Year2015, Stage: ClassificationStage, Reason: cause.Error(), Cause: cause}

	var remote *RemoteComputeError
	assert.True(t, errors.As(err, &remote))
	assert.Equal(t, "classify", remote.Op)

	insufficient := &InsufficientDataError{Year: Year2005, Scenes: 0, MinScenes: 3}
	assert.Contains(t, insufficient.Error(), "only 0 valid scene(s) for 2005")
}
