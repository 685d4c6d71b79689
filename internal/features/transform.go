package features

import (
	"sort"
	"time"

	"github.com/demandforge/invforecast/internal/domain"
)

// TransformForSKU applies a SKU's fitted encoder column-wise to its rows,
// aggregating duplicate dates by mean, and returns a date-indexed matrix
// with columns ordered as in the encoder's FeatureNames. Returns
// ok=false if the SKU has no admissible features.
func (m *Manager) TransformForSKU(sku string, frame domain.CleanFrame) (dates []time.Time, matrix [][]float64, ok bool) {
	enc, has := m.Encoder(sku)
	if !has {
		return nil, nil, false
	}

	rows := frame.RowsFor(sku)
	sums := make(map[time.Time][]float64)
	counts := make(map[time.Time]int)
	for _, r := range rows {
		encoded := encodeRow(enc, r.Auxiliary)
		if cur, seen := sums[r.Date]; seen {
			for i := range cur {
				cur[i] += encoded[i]
			}
			counts[r.Date]++
		} else {
			sums[r.Date] = encoded
			counts[r.Date] = 1
		}
	}

	for d := range sums {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	matrix = make([][]float64, len(dates))
	for i, d := range dates {
		row := sums[d]
		n := float64(counts[d])
		avg := make([]float64, len(row))
		for j, v := range row {
			avg[j] = v / n
		}
		matrix[i] = avg
	}
	return dates, matrix, true
}

// FutureExogenous extrapolates a SKU's last observed encoded row across
// futureDates by holding it constant. This is the single place that
// extrapolation policy would be swapped out for a different
// strategy-supplied knob.
func (m *Manager) FutureExogenous(sku string, frame domain.CleanFrame, futureDates []time.Time) ([][]float64, bool) {
	dates, matrix, ok := m.TransformForSKU(sku, frame)
	if !ok || len(matrix) == 0 {
		return nil, false
	}
	last := matrix[len(dates)-1]
	out := make([][]float64, len(futureDates))
	for i := range futureDates {
		row := make([]float64, len(last))
		copy(row, last)
		out[i] = row
	}
	return out, true
}

func encodeRow(enc domain.FeatureEncoder, aux map[string]domain.AuxValue) []float64 {
	out := make([]float64, len(enc.Columns))
	for i, ce := range enc.Columns {
		v := aux[ce.Column]
		switch ce.Variant.Kind {
		case domain.FeatureCategorical:
			if v.Null || v.IsNum {
				out[i] = float64(ce.Variant.DefaultLabel)
				continue
			}
			if code, ok := ce.Variant.Labels[v.String]; ok {
				out[i] = float64(code)
			} else {
				out[i] = float64(ce.Variant.DefaultLabel)
			}
		case domain.FeatureNumeric:
			if v.Null || !v.IsNum {
				out[i] = 0 // (x - mu) / sigma with x = mu
				continue
			}
			out[i] = (v.Number - ce.Variant.Mean) / ce.Variant.StdDev
		}
	}
	return out
}
