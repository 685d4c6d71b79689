package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/demandforge/invforecast/internal/domain"
	"github.com/demandforge/invforecast/internal/forecast"
	"github.com/demandforge/invforecast/internal/forecast/naive"
	"github.com/demandforge/invforecast/internal/scenario"
)

func frameFor(sku string, days int, qty float64) domain.CleanFrame {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var records []domain.Record
	for i := 0; i < days; i++ {
		records = append(records, domain.Record{Date: base.AddDate(0, 0, i), SKU: sku, Quantity: qty})
	}
	f := domain.CleanFrame{Records: records}
	f.SortByDateSKU()
	return f
}

func TestResetRestoresOriginalAndClearsHistory(t *testing.T) {
	s := New(frameFor("A", 10, 5))
	rewritten := scenario.DemandSpike(s.Frame, "A", s.Frame.Records[0].Date, s.Frame.Records[len(s.Frame.Records)-1].Date, 2.0)
	s = s.ApplyScenario(rewritten, scenario.HistoryEntry{Kind: scenario.Spike, SKU: "A"})

	if len(s.History) != 1 {
		t.Fatalf("expected one history entry after ApplyScenario, got %d", len(s.History))
	}

	reset := s.Reset()
	if len(reset.History) != 0 {
		t.Fatalf("expected Reset to clear history, got %d entries", len(reset.History))
	}
	for i := range reset.Frame.Records {
		if reset.Frame.Records[i].Quantity != s.Original.Records[i].Quantity {
			t.Fatalf("Reset did not restore original quantities at row %d", i)
		}
	}
}

func TestApplyScenarioDoesNotMutatePriorSession(t *testing.T) {
	s := New(frameFor("A", 10, 5))
	before := append([]domain.Record(nil), s.Frame.Records...)

	rewritten := scenario.DemandSpike(s.Frame, "A", s.Frame.Records[0].Date, s.Frame.Records[len(s.Frame.Records)-1].Date, 3.0)
	_ = s.ApplyScenario(rewritten, scenario.HistoryEntry{Kind: scenario.Spike, SKU: "A"})

	for i := range before {
		if s.Frame.Records[i].Quantity != before[i].Quantity {
			t.Fatalf("ApplyScenario mutated the original session's frame at row %d", i)
		}
	}
}

func TestCoordinatorSerializesForecastAgainstIngest(t *testing.T) {
	c := NewCoordinator(New(frameFor("A", 30, 5)))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = c.RunForecast(context.Background(), forecast.Request{
			Frame:       c.Current().Frame,
			HorizonDays: 7,
			Granularity: domain.Daily,
			Strategy:    naive.Strategy{},
		})
	}()
	go func() {
		defer wg.Done()
		c.Ingest(frameFor("B", 30, 5))
	}()
	wg.Wait()

	if c.Current() == nil {
		t.Fatalf("expected a current session after concurrent ingest/forecast")
	}
}

func TestCancelStopsBeforeCompletion(t *testing.T) {
	s := New(frameFor("A", 30, 5))
	s.Cancel()
	_, err := forecast.Dispatch(context.Background(), forecast.Request{
		Frame:       s.Frame,
		HorizonDays: 7,
		Granularity: domain.Daily,
		Strategy:    naive.Strategy{},
		Cancel:      s.cancel,
	})
	if err == nil {
		t.Fatalf("expected Dispatch to observe the cancellation flag set before it started")
	}
}
