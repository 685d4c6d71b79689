package regroup

import (
	"testing"
	"time"

	"github.com/demandforge/invforecast/internal/domain"
)

func sampleBundle() domain.ForecastBundle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // Monday
	var dates []time.Time
	var point, upper, lower []float64
	for i := 0; i < 14; i++ {
		dates = append(dates, base.AddDate(0, 0, i))
		point = append(point, 10)
		upper = append(upper, 12)
		lower = append(lower, 8)
	}
	return domain.ForecastBundle{
		Dates: dates,
		SKUs:  []string{"A"},
		Point: map[string][]float64{"A": point},
		Upper: map[string][]float64{"A": upper},
		Lower: map[string][]float64{"A": lower},
	}
}

func TestRegroupConservesQuantity(t *testing.T) {
	b := sampleBundle()
	weekly := Regroup(b, domain.Weekly)

	var daily, weeklySum float64
	for _, v := range b.Point["A"] {
		daily += v
	}
	for _, v := range weekly.Point["A"] {
		weeklySum += v
	}
	if daily != weeklySum {
		t.Fatalf("conservation violated: daily sum %v, weekly sum %v", daily, weeklySum)
	}
}

func TestRegroupIsIdempotent(t *testing.T) {
	b := sampleBundle()
	once := Regroup(b, domain.Weekly)
	twice := Regroup(once, domain.Weekly)

	if len(once.Dates) != len(twice.Dates) {
		t.Fatalf("idempotence violated: date count %d vs %d", len(once.Dates), len(twice.Dates))
	}
	for i := range once.Point["A"] {
		if once.Point["A"][i] != twice.Point["A"][i] {
			t.Fatalf("idempotence violated at period %d: %v vs %v", i, once.Point["A"][i], twice.Point["A"][i])
		}
	}
}

func TestErrorMargin(t *testing.T) {
	margin := ErrorMargin([]float64{12, 20}, []float64{8, 10})
	want := []float64{2, 5}
	for i := range want {
		if margin[i] != want[i] {
			t.Fatalf("ErrorMargin[%d] = %v, want %v", i, margin[i], want[i])
		}
	}
}
