// Package budget implements dataset-size budgeting and sanitization:
// row/SKU downsampling, magnitude scaling before training, and NaN/Inf
// sanitization plus non-negativity clamping after prediction.
package budget

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/demandforge/invforecast/internal/domain"
)

// Limits carries the size-budget configuration.
type Limits struct {
	MaxRows    int
	SampleRows int
	KeepRecent bool
	MaxSKUs    int
	Seed       int64
}

// ApplyRowBudget downsamples the frame to SampleRows if it exceeds
// MaxRows.
func ApplyRowBudget(frame domain.CleanFrame, lim Limits) domain.CleanFrame {
	if lim.MaxRows <= 0 || len(frame.Records) <= lim.MaxRows {
		return frame
	}
	sample := lim.SampleRows
	if sample <= 0 || sample > len(frame.Records) {
		sample = lim.MaxRows
	}

	out := frame.Clone()
	if lim.KeepRecent {
		sort.Slice(out.Records, func(i, j int) bool { return out.Records[i].Date.Before(out.Records[j].Date) })
		out.Records = append([]domain.Record(nil), out.Records[len(out.Records)-sample:]...)
	} else {
		r := rand.New(rand.NewSource(lim.Seed))
		idx := r.Perm(len(out.Records))[:sample]
		sort.Ints(idx)
		sampled := make([]domain.Record, len(idx))
		for i, pos := range idx {
			sampled[i] = out.Records[pos]
		}
		out.Records = sampled
	}
	out.SortByDateSKU()
	return out
}

// ApplySKUBudget retains only the top-K SKUs by total quantity when the
// distinct SKU count exceeds MaxSKUs.
func ApplySKUBudget(frame domain.CleanFrame, lim Limits) domain.CleanFrame {
	skus := frame.SKUs()
	if lim.MaxSKUs <= 0 || len(skus) <= lim.MaxSKUs {
		return frame
	}
	summaries := domain.Summarize(frame)
	sort.Slice(skus, func(i, j int) bool { return summaries[skus[i]].TotalQty > summaries[skus[j]].TotalQty })
	keep := make(map[string]bool, lim.MaxSKUs)
	for _, s := range skus[:lim.MaxSKUs] {
		keep[s] = true
	}

	out := frame.Clone()
	filtered := out.Records[:0:0]
	for _, r := range out.Records {
		if keep[r.SKU] {
			filtered = append(filtered, r)
		}
	}
	out.Records = filtered
	return out
}

// ScaleFactor computes the magnitude-scaling divisor: divide by 1e6 if
// the max absolute quantity exceeds 1e6, by 1e3 if it exceeds 1e4,
// otherwise no scaling (factor 1).
func ScaleFactor(quantities []float64) float64 {
	if len(quantities) == 0 {
		return 1
	}
	abs := make([]float64, len(quantities))
	for i, q := range quantities {
		abs[i] = math.Abs(q)
	}
	max := floats.Max(abs)
	switch {
	case max > 1e6:
		return 1e6
	case max > 1e4:
		return 1e3
	default:
		return 1
	}
}

// ScaleDown divides every value by factor, the pre-training half of the
// scaling round-trip.
func ScaleDown(values []float64, factor float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v / factor
	}
	return out
}

// ScaleUp multiplies every value by factor, inverting ScaleDown after
// prediction.
func ScaleUp(values []float64, factor float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * factor
	}
	return out
}

// Downcast32 round-trips every value through float32, reproducing the
// precision a 32-bit downcast would leave. The forecast path does not call
// it; callers that need float32 tolerance in comparisons route data
// through it themselves.
func Downcast32(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(float32(v))
	}
	return out
}

// Sanitize replaces +/-Inf and NaN with 0, then clamps every value to be
// >= 0, since quantities cannot be negative.
func Sanitize(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out
}
