package pipeline

import (
	"fmt"

	"github.com/geochange/landchange/schema"
)

type visParams struct {
	Min, Max float64
	Palette  []string
}

var indexVis = map[schema.IndexName]visParams{
	schema.NDVI:  {-0.2, 0.8, []string{"#ff0000", "#ffff00", "#00ff00"}},
	schema.EVI:   {-0.2, 0.8, []string{"#8b4513", "#ffff00", "#00ff00"}},
	schema.NDWI:  {-0.5, 0.5, []string{"#8b4513", "#ffffff", "#0000ff"}},
	schema.SAVI:  {-0.2, 0.8, []string{"#ff0000", "#ffff00", "#00ff00"}},
	schema.NBR:   {-0.5, 0.5, []string{"#ff0000", "#ffff00", "#00ff00"}},
	schema.BSI:   {-1, 1, []string{"#00ff00", "#ffffff", "#8b4513"}},
	schema.NDBI:  {-1, 1, []string{"#00ff00", "#ffffff", "#808080"}},
	schema.MNDWI: {-0.5, 0.5, []string{"#8b4513", "#ffffff", "#0000ff"}},
}

var (
	temperatureVis   = visParams{15, 35, []string{"#0000ff", "#ffffff", "#ff0000"}}
	precipitationVis = visParams{800, 2000, []string{"#ffffff", "#0000ff", "#00008b"}}
)

// Layers returns the display layers of one year: the region outline, true color, the
// land-cover classification, every index and the climate surfaces. A nil composite or
// classification drops the layers derived from it; the outline and climate layers only
// need the region.
func Layers(region schema.Region, year schema.AnalysisYear, composite *schema.CompositeImage, classification *schema.ClassificationResult) []schema.MapLayer {
	layers := []schema.MapLayer{{
		Name:    region.Name + " Boundary",
		Year:    year,
		Expr:    region.Expr(),
		Palette: []string{"#000000"},
	}}
	if composite != nil {
		layers = append(layers, schema.MapLayer{
			Name:  fmt.Sprintf("%d True Color", year),
			Year:  year,
			Expr:  composite.Image(),
			Bands: []string{schema.BandRed, schema.BandGreen, schema.BandBlue},
			Min:   0,
			Max:   0.3,
		})
	}
	if classification != nil {
		palette := make([]string, len(schema.AllClasses))
		for i, c := range schema.AllClasses {
			palette[i] = c.Color()
		}
		layers = append(layers, schema.MapLayer{
			Name:    fmt.Sprintf("%d Land Cover", year),
			Year:    year,
			Expr:    classification.Image(),
			Min:     float64(schema.AllClasses[0]),
			Max:     float64(schema.AllClasses[len(schema.AllClasses)-1]),
			Palette: palette,
		})
	}
	if composite != nil {
		image := composite.Image()
		for _, name := range schema.AllIndices {
			vis := indexVis[name]
			layers = append(layers, schema.MapLayer{
				Name:    fmt.Sprintf("%d %s", year, name),
				Year:    year,
				Expr:    IndexExpr(image, name),
				Bands:   []string{string(name)},
				Min:     vis.Min,
				Max:     vis.Max,
				Palette: vis.Palette,
			})
		}
	}
	if img, ok := TemperatureImage(year); ok {
		layers = append(layers, climateLayer(fmt.Sprintf("%d Temperature (°C)", year), year, img.Clip(region.Expr()), TemperatureBand, temperatureVis))
	}
	if img, ok := PrecipitationImage(year); ok {
		layers = append(layers, climateLayer(fmt.Sprintf("%d Precipitation (mm)", year), year, img.Clip(region.Expr()), PrecipitationBand, precipitationVis))
	}
	return layers
}

func climateLayer(name string, year schema.AnalysisYear, image *schema.Expr, band string, vis visParams) schema.MapLayer {
	return schema.MapLayer{
		Name:    name,
		Year:    year,
		Expr:    image,
		Bands:   []string{band},
		Min:     vis.Min,
		Max:     vis.Max,
		Palette: vis.Palette,
	}
}
