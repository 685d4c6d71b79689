package ingest

import (
	"sort"
	"time"

	"github.com/demandforge/invforecast/internal/domain"
)

// Pivot reshapes a CleanFrame into a date x SKU quantity matrix, built
// once per run and shared across SKU columns by the single-model
// forecast path.
func Pivot(frame domain.CleanFrame) (dates []time.Time, skus []string, matrix [][]float64) {
	skus = frame.SKUs()
	skuIdx := make(map[string]int, len(skus))
	for i, s := range skus {
		skuIdx[s] = i
	}

	seen := make(map[time.Time]struct{})
	for _, r := range frame.Records {
		if _, ok := seen[r.Date]; !ok {
			seen[r.Date] = struct{}{}
			dates = append(dates, r.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	dateIdx := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		dateIdx[d] = i
	}

	matrix = make([][]float64, len(dates))
	for i := range matrix {
		matrix[i] = make([]float64, len(skus))
	}
	for _, r := range frame.Records {
		matrix[dateIdx[r.Date]][skuIdx[r.SKU]] += r.Quantity
	}
	return dates, skus, matrix
}
