package ingest

import (
	"strings"
	"testing"
)

const sampleCSV = `Date,SKU,Quantity,Region
2024-01-01,A,10,north
2024-01-02,A,12,north
2024-01-03,A,11,north
2024-01-04,A,9,north
2024-01-05,A,14,north
2024-01-06,A,13,north
2024-01-07,A,10,north
2024-01-08,A,11,north
2024-01-09,A,12,north
2024-01-10,A,10,north
2024-01-01,B,5,south
2024-01-02,B,6,south
`

func TestLoadDetectValidateClean(t *testing.T) {
	raw, choices, err := Load(strings.NewReader(sampleCSV), "sample.csv")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if choices != nil {
		t.Fatalf("expected no sheet choices for csv, got %v", choices)
	}

	mapping := DetectColumns(raw.Header)
	if mapping.DateCol != 0 || mapping.SKUCol != 1 || mapping.QuantityCol != 2 {
		t.Fatalf("unexpected mapping: %+v", mapping)
	}

	result, err := ValidateOrError(raw, mapping)
	if err != nil {
		t.Fatalf("ValidateOrError: %v", err)
	}
	if result.DateFormat != "2006-01-02" {
		t.Fatalf("expected ISO date format, got %q", result.DateFormat)
	}

	frame, dropped, err := Clean(raw, mapping, CleanOptions{
		DateFormat:    result.DateFormat,
		Duplicates:    DuplicateSum,
		MinDataPoints: 10,
	})
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if _, ok := dropped["B"]; !ok {
		t.Fatalf("expected SKU B to be dropped for insufficient data, dropped=%v", dropped)
	}
	skus := frame.SKUs()
	if len(skus) != 1 || skus[0] != "A" {
		t.Fatalf("expected only SKU A to survive, got %v", skus)
	}
	if len(frame.Records) != 10 {
		t.Fatalf("expected 10 records for SKU A, got %d", len(frame.Records))
	}
}

func TestDetectColumnsExactBeatsSubstring(t *testing.T) {
	header := []string{"product_sku_code", "sku", "qty"}
	mapping := DetectColumns(header)
	if mapping.SKUCol != 1 {
		t.Fatalf("expected exact match 'sku' at index 1, got %d", mapping.SKUCol)
	}
}

func TestPivotConservesQuantity(t *testing.T) {
	raw, _, err := Load(strings.NewReader(sampleCSV), "sample.csv")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	mapping := DetectColumns(raw.Header)
	frame, _, err := Clean(raw, mapping, CleanOptions{DateFormat: "2006-01-02", Duplicates: DuplicateSum, MinDataPoints: 1})
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}

	var want float64
	for _, r := range frame.Records {
		want += r.Quantity
	}

	_, _, matrix := Pivot(frame)
	var got float64
	for _, row := range matrix {
		for _, v := range row {
			got += v
		}
	}
	if got != want {
		t.Fatalf("pivot did not conserve quantity: want %v got %v", want, got)
	}
}
