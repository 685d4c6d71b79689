// Package regroup implements purely arithmetic re-aggregation of a
// ForecastBundle's per-period outputs into a coarser granularity.
package regroup

import (
	"sort"
	"time"

	"github.com/demandforge/invforecast/internal/domain"
)

// Regroup sums point forecasts within each period of g, and separately
// sums the lower/upper bound columns. The error margin for a period is
// (upper_sum - lower_sum) / 2, though that margin is reconstructable from
// the returned bundle rather than stored as a separate field.
func Regroup(bundle domain.ForecastBundle, g domain.Granularity) domain.ForecastBundle {
	out := domain.ForecastBundle{
		SKUs:        append([]string(nil), bundle.SKUs...),
		Point:       make(map[string][]float64, len(bundle.Point)),
		Upper:       make(map[string][]float64, len(bundle.Upper)),
		Lower:       make(map[string][]float64, len(bundle.Lower)),
		Metadata:    bundle.Metadata,
		Skipped:     bundle.Skipped,
		Granularity: g,
		Horizon:     bundle.Horizon,
		RunAt:       bundle.RunAt,
	}

	periods := periodKeys(bundle.Dates, g)
	out.Dates = periods

	for _, sku := range bundle.SKUs {
		out.Point[sku] = sumByPeriod(bundle.Dates, bundle.Point[sku], periods, g)
		out.Upper[sku] = sumByPeriod(bundle.Dates, bundle.Upper[sku], periods, g)
		out.Lower[sku] = sumByPeriod(bundle.Dates, bundle.Lower[sku], periods, g)
	}
	return out
}

// ErrorMargin returns (upper_sum - lower_sum) / 2 for one SKU's regrouped
// series, period by period.
func ErrorMargin(upper, lower []float64) []float64 {
	out := make([]float64, len(upper))
	for i := range upper {
		out[i] = (upper[i] - lower[i]) / 2
	}
	return out
}

func periodKeys(dates []time.Time, g domain.Granularity) []time.Time {
	seen := make(map[time.Time]struct{})
	var out []time.Time
	for _, d := range dates {
		key := bucketStart(d, g)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func bucketStart(d time.Time, g domain.Granularity) time.Time {
	switch g {
	case domain.Weekly:
		return d.AddDate(0, 0, -int(d.Weekday()))
	case domain.Monthly:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	case domain.Quarterly:
		q := ((int(d.Month()) - 1) / 3) * 3
		return time.Date(d.Year(), time.Month(q+1), 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

func sumByPeriod(dates []time.Time, values []float64, periods []time.Time, g domain.Granularity) []float64 {
	if len(values) == 0 {
		return nil
	}
	sums := make(map[time.Time]float64, len(periods))
	for i, d := range dates {
		if i >= len(values) {
			break
		}
		sums[bucketStart(d, g)] += values[i]
	}
	out := make([]float64, len(periods))
	for i, p := range periods {
		out[i] = sums[p]
	}
	return out
}
