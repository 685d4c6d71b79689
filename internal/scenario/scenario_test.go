package scenario

import (
	"testing"
	"time"

	"github.com/demandforge/invforecast/internal/domain"
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

func TestDemandSpikeIdentityAtMultiplierOne(t *testing.T) {
	f := frameFor("A", 10, 5)
	out := DemandSpike(f, "A", f.Records[0].Date, f.Records[len(f.Records)-1].Date, 1.0)
	for i := range f.Records {
		if f.Records[i].Quantity != out.Records[i].Quantity {
			t.Fatalf("multiplier=1 was not the identity at row %d", i)
		}
	}
}

func TestSupplyDelayZeroIsIdentity(t *testing.T) {
	f := frameFor("A", 10, 5)
	out := SupplyDelay(f, "A", f.Records[0].Date, 0)
	for i := range f.Records {
		if !f.Records[i].Date.Equal(out.Records[i].Date) {
			t.Fatalf("delay=0 was not the identity at row %d", i)
		}
	}
}

func TestSupplyDelayComposesAdditively(t *testing.T) {
	f := frameFor("A", 10, 5)
	start := f.Records[0].Date

	combined := SupplyDelay(f, "A", start, 3)
	combined = SupplyDelay(combined, "A", start, 2)

	single := SupplyDelay(f, "A", start, 5)

	if len(combined.Records) != len(single.Records) {
		t.Fatalf("record count mismatch after composed delays")
	}
	for i := range single.Records {
		if !single.Records[i].Date.Equal(combined.Records[i].Date) {
			t.Fatalf("delay composition mismatch at %d: %v vs %v", i, single.Records[i].Date, combined.Records[i].Date)
		}
	}
}

func TestStockoutRiskFlagsLowCover(t *testing.T) {
	f := frameFor("A", 10, 10) // mean quantity 10/day
	risk := StockoutRisk(f, map[string]float64{"A": 5}, 2.0)
	if len(risk) != 1 {
		t.Fatalf("expected one stockout flag, got %d", len(risk))
	}
	if !risk[0].AtRisk {
		t.Fatalf("expected SKU A to be flagged at risk with 0.5 days of cover")
	}
}
