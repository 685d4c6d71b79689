package naive

import (
	"testing"

	"github.com/demandforge/invforecast/internal/domain"
	"github.com/demandforge/invforecast/internal/forecast"
)

func TestFitPredictSeasonalRepeat(t *testing.T) {
	var history []float64
	for i := 0; i < 21; i++ {
		history = append(history, float64(10+i%7))
	}

	s := &Strategy{}
	fitted, err := s.Fit(forecast.FitInput{Endogenous: history, Horizon: 7, Frequency: domain.Daily})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	out, err := s.Predict(fitted, nil)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(out.Point) != 7 {
		t.Fatalf("expected 7 points, got %d", len(out.Point))
	}
	for i, p := range out.Point {
		want := history[14+i]
		if p != want {
			t.Fatalf("point[%d] = %v, want repeated seasonal value %v", i, p, want)
		}
		if out.Upper[i] < p || p < out.Lower[i] {
			t.Fatalf("bounds invariant violated at %d: lower=%v point=%v upper=%v", i, out.Lower[i], p, out.Upper[i])
		}
	}

	summary := s.FitSummary(fitted)
	if !summary.SeasonalityFlags.Weekly {
		t.Fatalf("expected weekly seasonality to be detected")
	}
}
