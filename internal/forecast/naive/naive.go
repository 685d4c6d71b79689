// Package naive implements the in-tree Strategy: a seasonal-naive
// baseline with residual-bootstrap prediction intervals, so the pipeline
// is testable without a licensed forecasting library.
package naive

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/demandforge/invforecast/internal/domain"
	"github.com/demandforge/invforecast/internal/forecast"
)

// Strategy is the in-tree baseline. The zero value is ready to use.
type Strategy struct {
	// Bootstraps controls how many residual-bootstrap draws Predict's
	// interval construction averages over; 0 uses the package default.
	Bootstraps int
}

type fitted struct {
	history   []float64
	period    int // 0 means no seasonal cycle was detected
	residuals []float64
	horizon   int
}

const defaultBootstraps = 2000

// candidatePeriods are tried in order of preference: weekly first, since
// daily inventory data most commonly carries a 7-day cycle.
var candidatePeriods = []int{7, 30}

func (s Strategy) Fit(in forecast.FitInput) (forecast.Fitted, error) {
	period := detectPeriod(in.Endogenous)
	residuals := oneStepResiduals(in.Endogenous, period)
	return &fitted{
		history:   append([]float64(nil), in.Endogenous...),
		period:    period,
		residuals: residuals,
		horizon:   in.Horizon,
	}, nil
}

func (s Strategy) Predict(f forecast.Fitted, futureExogenous [][]float64) (forecast.PredictOutput, error) {
	ft := f.(*fitted)
	n := len(ft.history)
	horizon := ft.horizon

	point := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		if ft.period > 0 {
			idx := n - ft.period + (h % ft.period)
			for idx < 0 {
				idx += ft.period
			}
			if idx >= n {
				idx = n - 1
			}
			point[h] = ft.history[idx]
		} else if n > 0 {
			point[h] = ft.history[n-1]
		}
	}

	lowerQ, upperQ := s.residualQuantiles(ft.residuals)
	upper := make([]float64, horizon)
	lower := make([]float64, horizon)
	for h := range point {
		upper[h] = point[h] + upperQ
		lower[h] = point[h] + lowerQ
	}

	return forecast.PredictOutput{Point: point, Upper: upper, Lower: lower}, nil
}

func (s Strategy) FitSummary(f forecast.Fitted) forecast.FitSummary {
	ft := f.(*fitted)
	return forecast.FitSummary{
		DataPointsUsed: len(ft.history),
		SeasonalityFlags: seasonalityFlags(ft.period),
	}
}

func seasonalityFlags(period int) domain.SeasonalityFlags {
	return domain.SeasonalityFlags{
		Weekly:  period == 7,
		Monthly: period == 30,
	}
}

// detectPeriod tries each candidate period in order and returns the first
// one with at least two full cycles of history; 0 if none fits.
func detectPeriod(history []float64) int {
	for _, p := range candidatePeriods {
		if len(history) >= 2*p {
			return p
		}
	}
	return 0
}

// oneStepResiduals computes actual[t] - actual[t-period] for every t where
// both are observed (or actual[t] - actual[t-1] when no seasonal cycle was
// detected), the residual series the interval is bootstrapped from.
func oneStepResiduals(history []float64, period int) []float64 {
	step := period
	if step == 0 {
		step = 1
	}
	if len(history) <= step {
		return nil
	}
	out := make([]float64, 0, len(history)-step)
	for i := step; i < len(history); i++ {
		out = append(out, history[i]-history[i-step])
	}
	return out
}

// residualQuantiles returns the (lower, upper) residual-bootstrap offsets
// bracketing a 95% interval: s.Bootstraps resamples-with-replacement of
// the residual set, each reduced to its empirical 2.5/97.5 quantile via
// gonum, averaged across draws.
func (s Strategy) residualQuantiles(residuals []float64) (lower, upper float64) {
	if len(residuals) == 0 {
		return 0, 0
	}
	bootstraps := s.Bootstraps
	if bootstraps <= 0 {
		bootstraps = defaultBootstraps
	}

	r := rand.New(rand.NewSource(1))
	draw := make([]float64, len(residuals))
	var lowerSum, upperSum float64
	for b := 0; b < bootstraps; b++ {
		for i := range draw {
			draw[i] = residuals[r.Intn(len(residuals))]
		}
		sort.Float64s(draw)
		lowerSum += stat.Quantile(0.025, stat.Empirical, draw, nil)
		upperSum += stat.Quantile(0.975, stat.Empirical, draw, nil)
	}
	lower = lowerSum / float64(bootstraps)
	upper = upperSum / float64(bootstraps)

	if lower > 0 {
		lower = 0
	}
	if upper < 0 {
		upper = 0
	}
	if math.IsNaN(lower) {
		lower = 0
	}
	if math.IsNaN(upper) {
		upper = 0
	}
	return lower, upper
}
