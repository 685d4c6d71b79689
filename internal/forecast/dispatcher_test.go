package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/demandforge/invforecast/internal/domain"
	"github.com/demandforge/invforecast/internal/forecast/naive"
)

func constantFrame(sku string, days int, qty float64) domain.CleanFrame {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var records []domain.Record
	for i := 0; i < days; i++ {
		records = append(records, domain.Record{Date: base.AddDate(0, 0, i), SKU: sku, Quantity: qty})
	}
	frame := domain.CleanFrame{Records: records}
	frame.SortByDateSKU()
	return frame
}

func TestDispatchSingleSKUInvariants(t *testing.T) {
	frame := constantFrame("A", 30, 100)
	bundle, err := Dispatch(context.Background(), Request{
		Frame:       frame,
		HorizonDays: 7,
		Granularity: domain.Daily,
		Strategy:    &naive.Strategy{},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(bundle.SKUs) != 1 || bundle.SKUs[0] != "A" {
		t.Fatalf("expected bundle to contain SKU A, got %v (skipped=%v)", bundle.SKUs, bundle.Skipped)
	}
	point := bundle.Point["A"]
	upper := bundle.Upper["A"]
	lower := bundle.Lower["A"]
	if len(point) != 7 {
		t.Fatalf("expected 7 forecast points, got %d", len(point))
	}
	for i := range point {
		if point[i] < 0 || upper[i] < point[i] || point[i] < lower[i] {
			t.Fatalf("invariant violated at %d: lower=%v point=%v upper=%v", i, lower[i], point[i], upper[i])
		}
	}
}

func TestDispatchSkipsAllZeroSKU(t *testing.T) {
	frame := constantFrame("A", 90, 50)
	zero := constantFrame("Z", 90, 0)
	frame.Records = append(frame.Records, zero.Records...)
	frame.SortByDateSKU()

	bundle, err := Dispatch(context.Background(), Request{
		Frame:       frame,
		HorizonDays: 14,
		Granularity: domain.Daily,
		Strategy:    &naive.Strategy{},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if reason, ok := bundle.Skipped["Z"]; !ok || reason == "" {
		t.Fatalf("expected a non-empty skip reason for SKU Z, skipped=%v", bundle.Skipped)
	}
}

func TestDispatchParallelPathIsDeterministic(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var records []domain.Record
	for s := 0; s < 20; s++ {
		sku := string(rune('A' + s))
		for d := 0; d < 60; d++ {
			records = append(records, domain.Record{Date: base.AddDate(0, 0, d), SKU: sku, Quantity: float64(10 + d%5)})
		}
	}
	frame := domain.CleanFrame{Records: records}
	frame.SortByDateSKU()

	run := func() domain.ForecastBundle {
		bundle, err := Dispatch(context.Background(), Request{
			Frame:       frame,
			HorizonDays: 10,
			Granularity: domain.Daily,
			Strategy:    &naive.Strategy{},
		})
		if err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
		return bundle
	}

	b1 := run()
	b2 := run()
	if len(b1.SKUs) != len(b2.SKUs) {
		t.Fatalf("non-deterministic SKU count")
	}
	for i := range b1.SKUs {
		if b1.SKUs[i] != b2.SKUs[i] {
			t.Fatalf("non-deterministic SKU order at %d: %s vs %s", i, b1.SKUs[i], b2.SKUs[i])
		}
	}
}
