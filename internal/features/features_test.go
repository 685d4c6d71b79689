package features

import (
	"testing"
	"time"

	"github.com/demandforge/invforecast/internal/domain"
)

func buildFrame() domain.CleanFrame {
	var records []domain.Record
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		records = append(records, domain.Record{
			Date:     base.AddDate(0, 0, i),
			SKU:      "A",
			Quantity: float64(10 + i%3),
			Auxiliary: map[string]domain.AuxValue{
				"region": {String: []string{"north", "south"}[i%2]},
				"price":  {Number: 9.99 + float64(i), IsNum: true},
				"const":  {Number: 1, IsNum: true},
			},
		})
	}
	return domain.CleanFrame{Records: records, AuxColumns: []string{"region", "price", "const"}}
}

func TestFitDropsConstantFeature(t *testing.T) {
	frame := buildFrame()
	m := Fit(frame, frame.AuxColumns, Thresholds{MinCoverage: 0.5, MinVariance: 0.01})
	enc, ok := m.Encoder("A")
	if !ok {
		t.Fatalf("expected an encoder for SKU A")
	}
	for _, c := range enc.Columns {
		if c.Column == "const" {
			t.Fatalf("expected constant feature 'const' to be dropped")
		}
	}
	if len(enc.Columns) != 2 {
		t.Fatalf("expected 2 admissible features, got %d: %+v", len(enc.Columns), enc.Columns)
	}
}

func TestTransformForSKUDeterministic(t *testing.T) {
	frame := buildFrame()
	th := Thresholds{MinCoverage: 0.5, MinVariance: 0.01}
	m1 := Fit(frame, frame.AuxColumns, th)
	m2 := Fit(frame, frame.AuxColumns, th)

	enc1, _ := m1.Encoder("A")
	enc2, _ := m2.Encoder("A")
	if len(enc1.Columns) != len(enc2.Columns) {
		t.Fatalf("encoder determinism violated: different column counts")
	}
	for i := range enc1.Columns {
		if enc1.Columns[i].Column != enc2.Columns[i].Column {
			t.Fatalf("encoder determinism violated: column order differs")
		}
		if enc1.Columns[i].Variant.Mean != enc2.Columns[i].Variant.Mean {
			t.Fatalf("encoder determinism violated: mean differs")
		}
	}

	_, matrix, ok := m1.TransformForSKU("A", frame)
	if !ok {
		t.Fatalf("expected transform to succeed")
	}
	if len(matrix) != 20 {
		t.Fatalf("expected 20 rows, got %d", len(matrix))
	}
}
