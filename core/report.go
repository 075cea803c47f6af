package core

import (
	"context"
	"errors"
	"time"

	"github.com/geochange/landchange/schema"
)

// Report assembles the multi-year summary: areas with percent change since the first
// classified year, index means, climate and the significant transitions of every
// consecutive classified pair plus first to last.
func (s *Session) Report(ctx context.Context) (schema.Report, error) {
	snap, err := s.current()
	if err != nil {
		return schema.Report{}, err
	}
	report := schema.Report{Region: snap.region.Name, GeneratedAt: time.Now()}

	var classified []schema.AnalysisYear
	for _, year := range schema.AllYears {
		if snap.years[year].ready(schema.ClassificationStage) == nil {
			classified = append(classified, year)
		}
	}
	var base *schema.AreaSummary
	if len(classified) > 0 {
		report.BaseYear = classified[0]
		base = snap.years[classified[0]].areas
	}

	for _, year := range schema.AllYears {
		ys := snap.years[year]
		yr := schema.YearReport{Year: year, Status: ys.status, Areas: ys.areas, Indices: ys.indices, Climate: ys.climate}
		if ys.areas != nil && base != nil {
			yr.PercentChange = percentChange(*base, *ys.areas)
		}
		report.Years = append(report.Years, yr)
	}

	for _, pair := range reportPeriods(classified) {
		period := schema.PeriodReport{From: pair[0], To: pair[1]}
		m, err := s.ChangeMatrix(ctx, pair[0], pair[1])
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			period.Error = err.Error()
		} else {
			period.Transitions = m.Transitions(s.opts.SignificantKm2)
		}
		report.Periods = append(report.Periods, period)
	}
	return report, nil
}

// percentChange returns (area - base) / base * 100 per class, nil where base is zero.
func percentChange(base, areas schema.AreaSummary) map[schema.LandCoverClass]*float64 {
	out := make(map[schema.LandCoverClass]*float64, len(schema.AllClasses))
	for _, c := range schema.AllClasses {
		b := base.Areas[c]
		if b == 0 {
			out[c] = nil
			continue
		}
		out[c] = schema.Float((areas.Areas[c] - b) / b * 100)
	}
	return out
}

// reportPeriods lists consecutive pairs and, when more than two years exist, first to last.
func reportPeriods(years []schema.AnalysisYear) [][2]schema.AnalysisYear {
	var out [][2]schema.AnalysisYear
	for i := 1; i < len(years); i++ {
		out = append(out, [2]schema.AnalysisYear{years[i-1], years[i]})
	}
	if len(years) > 2 {
		out = append(out, [2]schema.AnalysisYear{years[0], years[len(years)-1]})
	}
	return out
}
