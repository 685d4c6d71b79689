// Package forecast implements the forecast dispatcher: the Strategy
// abstraction, per-SKU package preparation, and the bounded parallel /
// single-model dispatch paths.
package forecast

import "github.com/demandforge/invforecast/internal/domain"

// Frequency mirrors domain.Granularity as the vocabulary the Strategy
// interface is described in ({day|week|month|quarter}).
type Frequency = domain.Granularity

// FitInput is everything a Strategy.Fit call needs.
type FitInput struct {
	Endogenous []float64
	Exogenous  [][]float64 // may be nil
	Horizon    int
	Frequency  Frequency
	// MinTrainPercent is the max(0.5, 1 - horizon/len) floor on
	// cross-validation training data; strategies with an internal CV loop
	// should honor it, others may ignore it.
	MinTrainPercent float64
}

// Fitted is an opaque handle a Strategy hands back from Fit and consumes
// in Predict/FitSummary. Concrete strategies populate it with whatever
// they need; the dispatcher never inspects its contents.
type Fitted interface{}

// PredictOutput is the three-quantile forecast every strategy produces.
type PredictOutput struct {
	Point []float64
	Upper []float64
	Lower []float64
}

// FitSummary is the fit diagnostic metadata attached to a forecast result.
type FitSummary struct {
	DataPointsUsed   int
	SeasonalityFlags domain.SeasonalityFlags
}

// Strategy is the pluggable estimator abstraction. The dispatcher is
// strategy-agnostic: it only requires the three operations below.
type Strategy interface {
	Fit(in FitInput) (Fitted, error)
	Predict(fitted Fitted, futureExogenous [][]float64) (PredictOutput, error)
	FitSummary(fitted Fitted) FitSummary
}
