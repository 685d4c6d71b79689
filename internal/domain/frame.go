// Package domain holds the value types shared across the forecasting
// pipeline: the cleaned tabular data model and its per-SKU summaries.
package domain

import (
	"math"
	"sort"
	"time"
)

// AuxValue is one auxiliary column's value for a single Record. Exactly one
// of the fields is meaningful; Null true means the cell was empty.
type AuxValue struct {
	Null   bool
	String string
	Number float64
	IsNum  bool
}

// Record is one cleaned row: a calendar day, a SKU, a non-negative
// quantity, and whatever auxiliary columns the source table carried.
type Record struct {
	Date      time.Time
	SKU       string
	Quantity  float64
	Auxiliary map[string]AuxValue
}

// CleanFrame is the canonical ingested form: sorted by (Date, SKU),
// de-duplicated, and stamped with the date format it was parsed under
// (kept for round-tripping display).
type CleanFrame struct {
	Records    []Record
	AuxColumns []string
	DateFormat string
}

// Clone returns a deep-enough copy for scenario rewrites: the Records slice
// is copied so callers can mutate the copy's rows without touching the
// original.
func (f CleanFrame) Clone() CleanFrame {
	out := CleanFrame{
		AuxColumns: append([]string(nil), f.AuxColumns...),
		DateFormat: f.DateFormat,
		Records:    make([]Record, len(f.Records)),
	}
	copy(out.Records, f.Records)
	return out
}

// SortByDateSKU sorts Records by (date, sku) in place.
func (f *CleanFrame) SortByDateSKU() {
	sort.Slice(f.Records, func(i, j int) bool {
		if !f.Records[i].Date.Equal(f.Records[j].Date) {
			return f.Records[i].Date.Before(f.Records[j].Date)
		}
		return f.Records[i].SKU < f.Records[j].SKU
	})
}

// SKUs returns the distinct SKU identifiers present, lexicographically
// sorted. The dispatcher's determinism guarantee depends on every caller
// using this rather than map iteration order.
func (f CleanFrame) SKUs() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range f.Records {
		if _, ok := seen[r.SKU]; !ok {
			seen[r.SKU] = struct{}{}
			out = append(out, r.SKU)
		}
	}
	sort.Strings(out)
	return out
}

// RowsFor returns the records belonging to one SKU, in date order (the
// frame is already sorted by (Date, SKU) so a filter preserves order).
func (f CleanFrame) RowsFor(sku string) []Record {
	var out []Record
	for _, r := range f.Records {
		if r.SKU == sku {
			out = append(out, r)
		}
	}
	return out
}

// SKUSummary is the derived per-SKU tiering data: record count, date
// extremes, total and mean/std quantity.
type SKUSummary struct {
	SKU          string
	RecordCount  int
	FirstDate    time.Time
	LastDate     time.Time
	TotalQty     float64
	MeanQty      float64
	StdQty       float64
}

// Summarize computes a SKUSummary for every SKU in the frame.
func Summarize(f CleanFrame) map[string]SKUSummary {
	out := make(map[string]SKUSummary)
	sums := make(map[string]float64)
	sqSums := make(map[string]float64)
	counts := make(map[string]int)
	firsts := make(map[string]time.Time)
	lasts := make(map[string]time.Time)

	for _, r := range f.Records {
		sums[r.SKU] += r.Quantity
		sqSums[r.SKU] += r.Quantity * r.Quantity
		counts[r.SKU]++
		if first, ok := firsts[r.SKU]; !ok || r.Date.Before(first) {
			firsts[r.SKU] = r.Date
		}
		if last, ok := lasts[r.SKU]; !ok || r.Date.After(last) {
			lasts[r.SKU] = r.Date
		}
	}

	for sku, n := range counts {
		mean := sums[sku] / float64(n)
		variance := sqSums[sku]/float64(n) - mean*mean
		if variance < 0 {
			variance = 0
		}
		out[sku] = SKUSummary{
			SKU:         sku,
			RecordCount: n,
			FirstDate:   firsts[sku],
			LastDate:    lasts[sku],
			TotalQty:    sums[sku],
			MeanQty:     mean,
			StdQty:      math.Sqrt(variance),
		}
	}
	return out
}
