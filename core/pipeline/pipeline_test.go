package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

func testRegion() schema.Region {
	return schema.NewRegion("KERICHO", "test", schema.Asset("counties").FilterEq("COUNTY_NAM", "KERICHO"), nil)
}

func testSensors(t *testing.T) SensorTable {
	t.Helper()
	sensors, err := DefaultSensors()
	require.NoError(t, err)
	return sensors
}

func TestDefaultSensors(t *testing.T) {
	sensors := testSensors(t)
	require.Len(t, sensors, len(schema.AllYears))

	l5 := sensors[schema.Year1995]
	assert.Equal(t, "landsat5", l5.Name)
	assert.Equal(t, "LANDSAT/LT05/C02/T1_L2", l5.Collection)
	assert.Equal(t, []string{"SR_B1", "SR_B2", "SR_B3", "SR_B4", "SR_B5", "SR_B7"}, l5.NativeBands())
	assert.Equal(t, 31, l5.QAMask)
	assert.InDelta(t, 0.0000275, l5.Scale.Multiplier, 1e-12)
	assert.InDelta(t, -0.2, l5.Scale.Offset, 1e-12)

	assert.Equal(t, "landsat7", sensors[schema.Year2005].Name)
	assert.Equal(t, "landsat8", sensors[schema.Year2015].Name)
	l9 := sensors[schema.Year2024]
	assert.Equal(t, "LANDSAT/LC09/C02/T1_L2", l9.Collection)
	assert.Equal(t, []string{"SR_B2", "SR_B3", "SR_B4", "SR_B5", "SR_B6", "SR_B7"}, l9.NativeBands())
}

func TestParseSensorsErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"invalid yaml", "sensors: [", "parse sensor table"},
		{"unknown year", `
sensors:
  - {name: x, year: 2030, collection: c, qa_band: q, bands: {blue: a, green: b, red: c, nir: d, swir1: e, swir2: f}}`, "invalid analysis year"},
		{"missing band", `
sensors:
  - {name: x, year: 1995, collection: c, qa_band: q, bands: {blue: a, green: b, red: c, nir: d, swir1: e}}`, "missing band for swir2"},
		{"duplicate year", `
sensors:
  - {name: x, year: 1995, collection: c, qa_band: q, bands: {blue: a, green: b, red: c, nir: d, swir1: e, swir2: f}}
  - {name: y, year: 1995, collection: c, qa_band: q, bands: {blue: a, green: b, red: c, nir: d, swir1: e, swir2: f}}`, "twice"},
		{"uncovered year", `
sensors:
  - {name: x, year: 1995, collection: c, qa_band: q, bands: {blue: a, green: b, red: c, nir: d, swir1: e, swir2: f}}`, "no sensor for 2005"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSensors([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestYearWindow(t *testing.T) {
	start, end := YearWindow(schema.Year2015, 0)
	assert.Equal(t, time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC), end)

	start, end = YearWindow(schema.Year2015, 30)
	assert.Equal(t, time.Date(2014, 12, 2, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2016, 1, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestParamsSignature(t *testing.T) {
	p := DefaultParams()
	q := p
	q.Trees = 50
	assert.NotEqual(t, p.Signature(), q.Signature())
	assert.Equal(t, p.Signature(), DefaultParams().Signature())
	assert.InDelta(t, 900.0, p.PixelAreaM2(), 1e-9)
}

func TestTrainingDataStoreLoadAll(t *testing.T) {
	catalog := &contract.MockCatalog{}
	missing := schema.TrainingKey{Year: schema.Year2005, Class: schema.Tea}
	catalog.On("Resolve", mock.Anything, missing).
		Return(schema.GeometryCollection{}, &schema.MissingTrainingDataError{Keys: []schema.TrainingKey{missing}})
	catalog.On("Resolve", mock.Anything, mock.Anything).
		Return(schema.GeometryCollection{AssetPath: "a", FeatureCount: 10}, nil)

	set, err := NewTrainingDataStore(catalog).LoadAll(context.Background())
	var mte *schema.MissingTrainingDataError
	require.ErrorAs(t, err, &mte)
	assert.Equal(t, []schema.TrainingKey{missing}, mte.Keys)
	assert.Len(t, set, len(schema.AllTrainingKeys())-1)
	assert.False(t, set.CompleteFor(schema.Year2005))
	assert.True(t, set.CompleteFor(schema.Year1995))
	assert.Equal(t, []schema.TrainingKey{missing}, set.MissingFor(schema.Year2005))
	assert.Equal(t, schema.TrainingKey{Year: schema.Year2024, Class: schema.BuiltUp}, set[schema.TrainingKey{Year: schema.Year2024, Class: schema.BuiltUp}].Key)
}

func TestTrainingDataStoreEmptyCollectionIsMissing(t *testing.T) {
	catalog := &contract.MockCatalog{}
	catalog.On("Resolve", mock.Anything, mock.Anything).Return(schema.GeometryCollection{}, nil)

	_, err := NewTrainingDataStore(catalog).Load(context.Background(), schema.Year1995, schema.Forest)
	var mte *schema.MissingTrainingDataError
	require.ErrorAs(t, err, &mte)
	assert.Equal(t, []schema.TrainingKey{{Year: schema.Year1995, Class: schema.Forest}}, mte.Keys)
}

func TestTrainingDataStoreRemoteFailureAborts(t *testing.T) {
	catalog := &contract.MockCatalog{}
	catalog.On("Resolve", mock.Anything, mock.Anything).
		Return(schema.GeometryCollection{}, &schema.RemoteComputeError{Op: schema.OpAssetInfo, Message: "down"}).Once()

	_, err := NewTrainingDataStore(catalog).LoadAll(context.Background())
	var rce *schema.RemoteComputeError
	require.ErrorAs(t, err, &rce)
	catalog.AssertNumberOfCalls(t, "Resolve", 1)
}

func TestCompositeBuilder(t *testing.T) {
	backend := NewScenarioBackend()
	b := NewCompositeBuilder(backend, testRegion(), testSensors(t), DefaultParams())

	c, err := b.Build(context.Background(), schema.Year1995)
	require.NoError(t, err)
	assert.Equal(t, schema.Year1995, c.Year)
	assert.Equal(t, "landsat5", c.Sensor)
	assert.Equal(t, 14, c.SceneCount)
	assert.Equal(t, "composite/1995", c.Ref)
	assert.Equal(t, schema.CanonicalBands, c.Bands)
	assert.Greater(t, c.ValidPixels, 0.0)

	_, err = b.Build(context.Background(), schema.Year2005)
	var ide *schema.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, schema.Year2005, ide.Year)
	assert.Equal(t, 0, ide.Scenes)
}

func TestCompositeBuilderZeroValidPixels(t *testing.T) {
	backend := NewScriptedBackend()
	backend.Years[schema.Year2005] = &ScriptedYear{Scenes: 9, ValidPixels: 0}
	b := NewCompositeBuilder(backend, testRegion(), testSensors(t), DefaultParams())

	_, err := b.Build(context.Background(), schema.Year2005)
	var ide *schema.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 9, ide.Scenes)
	assert.Contains(t, ide.Error(), "no valid pixels")
}

func TestCompositeScenesGraph(t *testing.T) {
	b := NewCompositeBuilder(nil, testRegion(), testSensors(t), DefaultParams())
	scenes, sensor, err := b.Scenes(schema.Year2024)
	require.NoError(t, err)
	assert.Equal(t, "landsat9", sensor.Name)

	mask := scenes.Find(schema.OpMaskQA)
	require.NotNil(t, mask)
	assert.Equal(t, "QA_PIXEL", mask.StringArg("qa_band"))
	assert.Equal(t, "QA_RADSAT", mask.StringArg("saturation_band"))
	assert.Equal(t, "2024-01-01", scenes.Find(schema.OpFilterDate).StringArg("start"))
	assert.Equal(t, "2025-01-01", scenes.Find(schema.OpFilterDate).StringArg("end"))
	assert.Equal(t, schema.CanonicalBands, scenes.Find(schema.OpSelectRename).Args["to"])

	_, _, err = b.Scenes(schema.AnalysisYear(2030))
	var iye *schema.InvalidYearError
	assert.ErrorAs(t, err, &iye)
}

func buildComposite(t *testing.T, backend contract.ComputeBackend, year schema.AnalysisYear) schema.CompositeImage {
	t.Helper()
	c, err := NewCompositeBuilder(backend, testRegion(), testSensors(t), DefaultParams()).Build(context.Background(), year)
	require.NoError(t, err)
	return c
}

func TestIndexEngine(t *testing.T) {
	backend := NewScenarioBackend()
	backend.Years[schema.Year2015].IndexMeans[schema.MNDWI] = nil
	engine := NewIndexEngine(backend, testRegion(), DefaultParams())
	c := buildComposite(t, backend, schema.Year2015)

	first, err := engine.Compute(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, first.Indices, len(schema.AllIndices))
	require.NotNil(t, first.Indices[schema.NDVI].Mean)
	assert.InDelta(t, 0.58, *first.Indices[schema.NDVI].Mean, 1e-9)
	assert.Nil(t, first.Indices[schema.MNDWI].Mean)
	assert.Zero(t, first.Indices[schema.MNDWI].ValidPixels)

	second, err := engine.Compute(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, first.Indices, second.Indices)
	assert.Equal(t, first.Image().Fingerprint(), second.Image().Fingerprint())

	ordered := first.Ordered()
	require.Len(t, ordered, len(schema.AllIndices))
	assert.Equal(t, schema.NDVI, ordered[0].Name)
	assert.Equal(t, schema.MNDWI, ordered[7].Name)
}

func TestIndexFormulasMaskZeroDenominator(t *testing.T) {
	image := schema.RasterRef("composite/1995")
	for _, name := range schema.AllIndices {
		e := IndexExpr(image, name)
		switch e.Op {
		case schema.OpNormalizedDiff:
			assert.Equal(t, string(name), e.StringArg("name"))
		case schema.OpExpression:
			assert.NotEmpty(t, e.StringArg("denominator"), name)
		default:
			t.Fatalf("unexpected op %s for %s", e.Op, name)
		}
	}
	ndbi := IndexExpr(image, schema.NDBI)
	assert.Equal(t, schema.BandSWIR1, ndbi.StringArg("a"))
	assert.Equal(t, schema.BandNIR, ndbi.StringArg("b"))
}

func TestClassifierTrainAndApply(t *testing.T) {
	backend := NewScenarioBackend()
	cls := NewClassifier(backend, testRegion(), DefaultParams())
	c := buildComposite(t, backend, schema.Year1995)

	geometries := make([]schema.GeometryCollection, 0, len(schema.AllClasses))
	for _, class := range schema.AllClasses {
		key := schema.TrainingKey{Year: schema.Year1995, Class: class}
		geometries = append(geometries, schema.GeometryCollection{Key: key, AssetPath: "users/x/" + key.String(), FeatureCount: 10})
	}

	model, err := cls.Train(context.Background(), c, geometries, nil)
	require.NoError(t, err)
	assert.Equal(t, "model/1995", model.Ref)
	assert.Equal(t, 100, model.Trees)
	assert.Equal(t, schema.CanonicalBands, model.Features)
	assert.Equal(t, 40, model.SampleCounts[schema.Forest])

	result, err := cls.Apply(context.Background(), model, c, nil)
	require.NoError(t, err)
	assert.Equal(t, "classified/1995", result.Ref)
	assert.True(t, result.Grid.Equal(DefaultGrid))
	assert.InDelta(t, km2Pixels(180), result.PixelCounts[schema.Forest], 1e-6)
	assert.InDelta(t, km2Pixels(432), result.ValidPixels, 1e-6)
	assert.Zero(t, result.UnknownPixels)
}

func TestClassifierShortClasses(t *testing.T) {
	backend := NewScenarioBackend()
	backend.Years[schema.Year1995].Samples[schema.Bare] = 1
	delete(backend.Years[schema.Year1995].Samples, schema.BuiltUp)
	cls := NewClassifier(backend, testRegion(), DefaultParams())
	c := buildComposite(t, backend, schema.Year1995)

	_, err := cls.Train(context.Background(), c, nil, nil)
	var tdi *schema.TrainingDataInsufficientError
	require.ErrorAs(t, err, &tdi)
	assert.Equal(t, map[schema.LandCoverClass]int{schema.Bare: 1, schema.BuiltUp: 0}, tdi.Short)
	assert.Equal(t, 0, backend.Calls(schema.OpTrainRandomForest))
}

func TestClassifierIndexFeatures(t *testing.T) {
	backend := NewScenarioBackend()
	params := DefaultParams()
	params.IndexFeatures = true
	cls := NewClassifier(backend, testRegion(), params)
	c := buildComposite(t, backend, schema.Year2024)

	_, err := cls.Train(context.Background(), c, nil, nil)
	require.ErrorContains(t, err, "index features enabled")

	indices, err := NewIndexEngine(backend, testRegion(), params).Compute(context.Background(), c)
	require.NoError(t, err)
	model, err := cls.Train(context.Background(), c, nil, &indices)
	require.NoError(t, err)
	assert.Len(t, model.Features, len(schema.CanonicalBands)+len(schema.AllIndices))
}

func TestClassifierRejectsForeignYear(t *testing.T) {
	cls := NewClassifier(NewScenarioBackend(), testRegion(), DefaultParams())
	c := schema.CompositeImage{Year: schema.Year1995, Ref: "composite/1995"}
	_, err := cls.Train(context.Background(), c, []schema.GeometryCollection{{Key: schema.TrainingKey{Year: schema.Year2024}, AssetPath: "x", FeatureCount: 1}}, nil)
	assert.ErrorContains(t, err, "does not belong")

	_, err = cls.Apply(context.Background(), schema.Model{Year: schema.Year2024}, c, nil)
	assert.ErrorContains(t, err, "cannot classify")
}

func TestAreas(t *testing.T) {
	result := schema.ClassificationResult{
		Year: schema.Year1995,
		PixelCounts: map[schema.LandCoverClass]float64{
			schema.Forest: 1000, schema.Tea: 500,
		},
		UnknownPixels: 2,
		ValidPixels:   1502,
		PixelAreaM2:   900,
	}
	a := Areas(result)
	assert.InDelta(t, 0.9, a.Areas[schema.Forest], 1e-9)
	assert.InDelta(t, 0.45, a.Areas[schema.Tea], 1e-9)
	for _, c := range []schema.LandCoverClass{schema.OtherVegetation, schema.Bare, schema.BuiltUp} {
		v, ok := a.Areas[c]
		assert.True(t, ok, c)
		assert.Zero(t, v)
	}
	assert.InDelta(t, 1.3518, a.TotalValidKm2, 1e-9)
	assert.InDelta(t, 0.0018, a.UnclassifiedKm2, 1e-9)
	assert.NoError(t, CheckConsistency(a, 0.005))

	result.UnknownPixels = 100
	result.ValidPixels = 1600
	assert.Error(t, CheckConsistency(Areas(result), 0.005))
}

func classify(t *testing.T, backend *ScriptedBackend, year schema.AnalysisYear) schema.ClassificationResult {
	t.Helper()
	c := buildComposite(t, backend, year)
	cls := NewClassifier(backend, testRegion(), DefaultParams())
	model, err := cls.Train(context.Background(), c, nil, nil)
	require.NoError(t, err)
	result, err := cls.Apply(context.Background(), model, c, nil)
	require.NoError(t, err)
	return result
}

func TestChangeDetector(t *testing.T) {
	backend := NewScenarioBackend()
	from := classify(t, backend, schema.Year1995)
	to := classify(t, backend, schema.Year2024)
	d := NewChangeDetector(backend, testRegion(), DefaultParams())

	m, err := d.Compute(context.Background(), from, to)
	require.NoError(t, err)
	assert.InDelta(t, 45.3, m.Get(schema.Forest, schema.Tea), 1e-6)

	areas1995 := Areas(from)
	for _, c := range schema.AllClasses {
		assert.InDelta(t, areas1995.Areas[c], m.RowSum(c), 1e-6, c)
	}
	areas2024 := Areas(to)
	for _, c := range schema.AllClasses {
		assert.InDelta(t, areas2024.Areas[c], m.ColumnSum(c), 1e-6, c)
	}

	transitions := m.Transitions(1)
	require.NotEmpty(t, transitions)
	assert.Equal(t, schema.Transition{From: schema.Forest, To: schema.Tea, Km2: m.Get(schema.Forest, schema.Tea)}, transitions[0])

	reverse, err := d.Compute(context.Background(), to, from)
	require.NoError(t, err)
	assert.InDelta(t, 45.3, reverse.Get(schema.Tea, schema.Forest), 1e-6)
	assert.Zero(t, reverse.Get(schema.Forest, schema.Tea))
}

func TestChangeDetectorErrors(t *testing.T) {
	backend := NewScenarioBackend()
	d := NewChangeDetector(backend, testRegion(), DefaultParams())
	a := schema.ClassificationResult{Year: schema.Year1995, Ref: "classified/1995", Grid: DefaultGrid}

	_, err := d.Compute(context.Background(), a, a)
	var pair *schema.InvalidYearPairError
	assert.ErrorAs(t, err, &pair)

	b := schema.ClassificationResult{Year: schema.Year2024, Ref: "classified/2024", Grid: DefaultGrid}
	b.Grid.Width = 99
	_, err = d.Compute(context.Background(), a, b)
	var grid *schema.GridMismatchError
	assert.ErrorAs(t, err, &grid)
	assert.Equal(t, 0, backend.Calls(schema.OpFrequencyHistogram))
}

func TestChangeDetectorExcludesUnknownCodes(t *testing.T) {
	backend := NewScriptedBackend()
	backend.Transitions[[2]schema.AnalysisYear{schema.Year1995, schema.Year2015}] = map[int]float64{
		0:  1000, // forest -> forest
		1:  500,  // forest -> tea
		7:  3,    // forest -> label 7
		91: 4,    // label 9 -> tea
	}
	d := NewChangeDetector(backend, testRegion(), DefaultParams())
	from := schema.ClassificationResult{Year: schema.Year1995, Ref: "classified/1995", Grid: DefaultGrid}
	to := schema.ClassificationResult{Year: schema.Year2015, Ref: "classified/2015", Grid: DefaultGrid}

	m, err := d.Compute(context.Background(), from, to)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, m.Get(schema.Forest, schema.Forest), 1e-9)
	assert.InDelta(t, 0.45, m.Get(schema.Forest, schema.Tea), 1e-9)
	assert.InDelta(t, 7.0, m.ExcludedPixels, 1e-9)
	assert.InDelta(t, 1.35, m.RowSum(schema.Forest), 1e-9)
}

func TestTransitionImageMasksForeignLabels(t *testing.T) {
	from := schema.ClassificationResult{Year: schema.Year1995, Ref: "classified/1995"}
	to := schema.ClassificationResult{Year: schema.Year2024, Ref: "classified/2024"}

	remaps := TransitionImage(from, to).FindAll(schema.OpRemap)
	require.Len(t, remaps, 2)
	for _, r := range remaps {
		assert.Equal(t, []int{0, 1, 2, 3, 4}, r.Args["from"])
		assert.Equal(t, r.Args["from"], r.Args["to"])
		assert.Equal(t, schema.OpRef, r.Inputs[0].Op)
	}
}

func TestChangeDetectorRejectsOutOfRangeCodes(t *testing.T) {
	backend := NewScriptedBackend()
	backend.Transitions[[2]schema.AnalysisYear{schema.Year1995, schema.Year2015}] = map[int]float64{
		11:  100, // tea -> tea
		-3:  2,
		57:  5, // decodes as (5, 7) but no class has label 5
		104: 6, // from label 10 would alias (0, 4)
	}
	d := NewChangeDetector(backend, testRegion(), DefaultParams())
	from := schema.ClassificationResult{Year: schema.Year1995, Ref: "classified/1995", Grid: DefaultGrid}
	to := schema.ClassificationResult{Year: schema.Year2015, Ref: "classified/2015", Grid: DefaultGrid}

	m, err := d.Compute(context.Background(), from, to)
	require.NoError(t, err)
	assert.InDelta(t, 0.09, m.Get(schema.Tea, schema.Tea), 1e-9)
	assert.Zero(t, m.Get(schema.Forest, schema.BuiltUp))
	assert.InDelta(t, 13.0, m.ExcludedPixels, 1e-9)
}

func TestClimateEngine(t *testing.T) {
	backend := NewScenarioBackend()
	engine := NewClimateEngine(backend, testRegion(), DefaultParams())

	c1995 := engine.Climate(context.Background(), schema.Year1995)
	assert.Nil(t, c1995.TemperatureC)
	require.NotNil(t, c1995.PrecipitationMm)
	assert.InDelta(t, 1850.4, *c1995.PrecipitationMm, 1e-9)
	require.Len(t, c1995.Notes, 1)
	assert.Contains(t, c1995.Notes[0], "temperature")

	c2015 := engine.Climate(context.Background(), schema.Year2015)
	require.NotNil(t, c2015.TemperatureC)
	assert.InDelta(t, 24.1, *c2015.TemperatureC, 1e-9)
	assert.Nil(t, c2015.PrecipitationMm)
	assert.False(t, c2015.Complete())

	c2024 := engine.Climate(context.Background(), schema.Year2024)
	assert.True(t, c2024.Complete())
	assert.Empty(t, c2024.Notes)
}

func TestClimateEngineRemoteFailureIsPartial(t *testing.T) {
	backend := NewScenarioBackend()
	backend.Fail[schema.OpReduceRegion] = &schema.RemoteComputeError{Op: schema.OpReduceRegion, Message: "quota exceeded"}
	c := NewClimateEngine(backend, testRegion(), DefaultParams()).Climate(context.Background(), schema.Year2024)
	assert.Nil(t, c.TemperatureC)
	assert.Nil(t, c.PrecipitationMm)
	require.Len(t, c.Notes, 2)
	assert.Contains(t, c.Notes[0], "quota exceeded")
}

func TestLayers(t *testing.T) {
	region := testRegion()
	c := &schema.CompositeImage{Year: schema.Year2024, Ref: "composite/2024"}
	layers := Layers(region, schema.Year2024, c, nil)
	require.Len(t, layers, 2+len(schema.AllIndices)+2)
	assert.Equal(t, "KERICHO Boundary", layers[0].Name)
	assert.Equal(t, region.Expr(), layers[0].Expr)
	assert.Equal(t, "2024 True Color", layers[1].Name)
	assert.Equal(t, "2024 NDVI", layers[2].Name)

	cls := &schema.ClassificationResult{Year: schema.Year2024, Ref: "classified/2024"}
	layers = Layers(region, schema.Year2024, c, cls)
	require.Len(t, layers, 3+len(schema.AllIndices)+2)
	assert.Equal(t, "2024 Land Cover", layers[2].Name)
	assert.Equal(t, []string{"#006400", "#90EE90", "#FFD700", "#8B4513", "#FF0000"}, layers[2].Palette)
	assert.Equal(t, 4.0, layers[2].Max)

	temperature := layers[len(layers)-2]
	assert.Equal(t, "2024 Temperature (°C)", temperature.Name)
	assert.Equal(t, 15.0, temperature.Min)
	assert.Equal(t, 35.0, temperature.Max)
	assert.Equal(t, []string{"#0000ff", "#ffffff", "#ff0000"}, temperature.Palette)
	assert.Equal(t, TemperatureDataset, temperature.Expr.Find(schema.OpCollection).StringArg("id"))
	assert.Equal(t, schema.OpClip, temperature.Expr.Op)

	precipitation := layers[len(layers)-1]
	assert.Equal(t, "2024 Precipitation (mm)", precipitation.Name)
	assert.Equal(t, 800.0, precipitation.Min)
	assert.Equal(t, 2000.0, precipitation.Max)
	assert.Equal(t, []string{"#ffffff", "#0000ff", "#00008b"}, precipitation.Palette)
	assert.NotNil(t, precipitation.Expr.Find(schema.OpSum))
}

func TestLayersWithoutComposite(t *testing.T) {
	layers := Layers(testRegion(), schema.Year2005, nil, nil)
	require.Len(t, layers, 3)
	assert.Equal(t, "KERICHO Boundary", layers[0].Name)
	assert.Equal(t, "2005 Temperature (°C)", layers[1].Name)
	assert.Equal(t, "2005 Precipitation (mm)", layers[2].Name)

	// MODIS temperature starts in 2000.
	layers = Layers(testRegion(), schema.Year1995, nil, nil)
	require.Len(t, layers, 2)
	assert.Equal(t, "1995 Precipitation (mm)", layers[1].Name)
}

func TestScriptedBackendFailures(t *testing.T) {
	backend := NewScenarioBackend()
	boom := errors.New("boom")
	backend.Fail[schema.OpSize] = boom
	_, err := NewCompositeBuilder(backend, testRegion(), testSensors(t), DefaultParams()).Build(context.Background(), schema.Year1995)
	assert.ErrorIs(t, err, boom)
}
