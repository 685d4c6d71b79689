package budget

import (
	"math"
	"testing"
)

func TestScaleFactorThresholds(t *testing.T) {
	cases := []struct {
		max  float64
		want float64
	}{
		{100, 1},
		{9999, 1},
		{20000, 1e3},
		{2_000_000, 1e6},
	}
	for _, c := range cases {
		got := ScaleFactor([]float64{c.max})
		if got != c.want {
			t.Errorf("ScaleFactor(%v) = %v, want %v", c.max, got, c.want)
		}
	}
}

func TestScaleRoundTrip(t *testing.T) {
	values := []float64{1500000, 200000, 3000000}
	factor := ScaleFactor(values)
	down := ScaleDown(values, factor)
	up := ScaleUp(down, factor)
	for i := range values {
		if math.Abs(up[i]-values[i]) > 1e-6 {
			t.Fatalf("round trip mismatch at %d: got %v want %v", i, up[i], values[i])
		}
	}
}

func TestSanitizeReplacesNonFiniteAndClamps(t *testing.T) {
	in := []float64{math.NaN(), math.Inf(1), math.Inf(-1), -5, 3}
	out := Sanitize(in)
	want := []float64{0, 0, 0, 0, 3}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("Sanitize[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}
