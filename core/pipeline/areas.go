package pipeline

import (
	"fmt"

	"github.com/geochange/landchange/schema"
)

// Areas converts the pixel tally of a classification to km². Classes absent from the
// raster report 0; labels outside the class set only count towards UnclassifiedKm2.
func Areas(result schema.ClassificationResult) schema.AreaSummary {
	toKm2 := func(pixels float64) float64 {
		return pixels * result.PixelAreaM2 / schema.SquareMetersPerKm2
	}
	areas := make(map[schema.LandCoverClass]float64, len(schema.AllClasses))
	for _, class := range schema.AllClasses {
		areas[class] = toKm2(result.PixelCounts[class])
	}
	return schema.AreaSummary{
		Year:            result.Year,
		Areas:           areas,
		TotalValidKm2:   toKm2(result.ValidPixels),
		UnclassifiedKm2: toKm2(result.UnknownPixels),
	}
}

// CheckConsistency fails when the class areas drift from the valid area by more than tolerance.
func CheckConsistency(summary schema.AreaSummary, tolerance float64) error {
	if d := summary.Discrepancy(); d > tolerance {
		return fmt.Errorf("class areas of %d differ from valid area by %.2f%% (tolerance %.2f%%)",
			summary.Year, d*100, tolerance*100)
	}
	return nil
}
