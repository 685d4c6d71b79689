package forecast

import (
	"sort"
	"time"

	"github.com/demandforge/invforecast/internal/domain"
	"github.com/demandforge/invforecast/internal/features"
)

// aggregateToGranularity sums quantities within each period of g, the way
// the dispatcher's frequency mapping requires before fitting.
func aggregateToGranularity(dates []time.Time, values []float64, g domain.Granularity) ([]time.Time, []float64) {
	if g == domain.Daily {
		return dates, values
	}
	buckets := make(map[time.Time]float64)
	var order []time.Time
	for i, d := range dates {
		key := periodStart(d, g)
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] += values[i]
	}
	sortTimes(order)
	out := make([]float64, len(order))
	for i, k := range order {
		out[i] = buckets[k]
	}
	return order, out
}

func sortTimes(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}

func periodStart(d time.Time, g domain.Granularity) time.Time {
	switch g {
	case domain.Weekly:
		offset := int(d.Weekday())
		return d.AddDate(0, 0, -offset)
	case domain.Monthly:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	case domain.Quarterly:
		q := ((int(d.Month()) - 1) / 3) * 3
		return time.Date(d.Year(), time.Month(q+1), 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

func futurePeriods(last time.Time, periods int, g domain.Granularity) []time.Time {
	out := make([]time.Time, periods)
	for i := 0; i < periods; i++ {
		switch g {
		case domain.Weekly:
			out[i] = last.AddDate(0, 0, 7*(i+1))
		case domain.Monthly:
			out[i] = last.AddDate(0, i+1, 0)
		case domain.Quarterly:
			out[i] = last.AddDate(0, 3*(i+1), 0)
		default:
			out[i] = last.AddDate(0, 0, i+1)
		}
	}
	return out
}

// BuildPackage assembles a ForecastPackage for one SKU: the endogenous
// series aggregated to the requested granularity, an aligned exogenous
// matrix from the encoder manager (if the SKU has admissible features),
// and the future-exogenous extrapolation.
func BuildPackage(sku string, frame domain.CleanFrame, enc *features.Manager, horizonDays int, g domain.Granularity) domain.ForecastPackage {
	rows := frame.RowsFor(sku)
	dates := make([]time.Time, len(rows))
	qty := make([]float64, len(rows))
	for i, r := range rows {
		dates[i] = r.Date
		qty[i] = r.Quantity
	}
	aggDates, aggQty := aggregateToGranularity(dates, qty, g)

	periods := domain.DaysToPeriods(horizonDays, g)
	pkg := domain.ForecastPackage{
		SKU:            sku,
		Dates:          aggDates,
		Endogenous:     aggQty,
		HorizonPeriods: periods,
		Granularity:    g,
	}

	if enc != nil {
		if exoDates, exoMatrix, ok := enc.TransformForSKU(sku, frame); ok {
			aggExoDates, aggExoMatrix := aggregateExogenous(exoDates, exoMatrix, g)
			pkg.ExogenousDates = aggExoDates
			pkg.Exogenous = aggExoMatrix
			if featEnc, ok := enc.Encoder(sku); ok {
				pkg.FeatureNames = featEnc.FeatureNames()
			}
			if len(aggDates) > 0 {
				last := aggDates[len(aggDates)-1]
				future := futurePeriods(last, periods, g)
				if futureExo, ok := enc.FutureExogenous(sku, frame, future); ok {
					pkg.FutureExogenous = futureExo
				}
			}
		}
	}
	return pkg
}

// BuildPackageFromPivot assembles a ForecastPackage for one SKU from a
// column of a shared date x SKU pivot matrix (see internal/ingest.Pivot)
// rather than re-scanning frame.RowsFor(sku), the way the single-model
// path fits each SKU against one wide matrix built once per run.
func BuildPackageFromPivot(sku string, col int, pivotDates []time.Time, pivotMatrix [][]float64, frame domain.CleanFrame, enc *features.Manager, horizonDays int, g domain.Granularity) domain.ForecastPackage {
	qty := make([]float64, len(pivotDates))
	for i, row := range pivotMatrix {
		qty[i] = row[col]
	}
	aggDates, aggQty := aggregateToGranularity(pivotDates, qty, g)

	periods := domain.DaysToPeriods(horizonDays, g)
	pkg := domain.ForecastPackage{
		SKU:            sku,
		Dates:          aggDates,
		Endogenous:     aggQty,
		HorizonPeriods: periods,
		Granularity:    g,
	}

	if enc != nil {
		if exoDates, exoMatrix, ok := enc.TransformForSKU(sku, frame); ok {
			aggExoDates, aggExoMatrix := aggregateExogenous(exoDates, exoMatrix, g)
			pkg.ExogenousDates = aggExoDates
			pkg.Exogenous = aggExoMatrix
			if featEnc, ok := enc.Encoder(sku); ok {
				pkg.FeatureNames = featEnc.FeatureNames()
			}
			if len(aggDates) > 0 {
				last := aggDates[len(aggDates)-1]
				future := futurePeriods(last, periods, g)
				if futureExo, ok := enc.FutureExogenous(sku, frame, future); ok {
					pkg.FutureExogenous = futureExo
				}
			}
		}
	}
	return pkg
}

func aggregateExogenous(dates []time.Time, matrix [][]float64, g domain.Granularity) ([]time.Time, [][]float64) {
	if len(matrix) == 0 {
		return dates, matrix
	}
	cols := len(matrix[0])
	buckets := make(map[time.Time][]float64)
	counts := make(map[time.Time]int)
	var order []time.Time
	for i, d := range dates {
		key := periodStart(d, g)
		if _, ok := buckets[key]; !ok {
			buckets[key] = make([]float64, cols)
			order = append(order, key)
		}
		for c := 0; c < cols; c++ {
			buckets[key][c] += matrix[i][c]
		}
		counts[key]++
	}
	sortTimes(order)
	out := make([][]float64, len(order))
	for i, k := range order {
		row := buckets[k]
		n := float64(counts[k])
		avg := make([]float64, cols)
		for c, v := range row {
			avg[c] = v / n
		}
		out[i] = avg
	}
	return order, out
}
