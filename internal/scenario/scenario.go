// Package scenario implements destructive rewrites of a CleanFrame
// (demand spike, supply delay) and a supplemental stockout-risk query.
package scenario

import (
	"time"

	"github.com/demandforge/invforecast/internal/domain"
)

// Kind identifies which rewrite a HistoryEntry records.
type Kind int

const (
	Spike Kind = iota
	Delay
)

// HistoryEntry records one applied scenario.
type HistoryEntry struct {
	Kind      Kind
	SKU       string
	Params    map[string]float64
	AppliedAt time.Time
}

// DemandSpike multiplies the quantity of rows matching
// (sku, start <= date <= end) by multiplier. multiplier must already be
// validated against [MIN_SPIKE, MAX_SPIKE] by the caller.
func DemandSpike(frame domain.CleanFrame, sku string, start, end time.Time, multiplier float64) domain.CleanFrame {
	out := frame.Clone()
	for i, r := range out.Records {
		if r.SKU != sku {
			continue
		}
		if r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		out.Records[i].Quantity = r.Quantity * multiplier
	}
	return out
}

// SupplyDelay shifts the date of rows of sku with date >= start forward
// by delayDays. Quantities that would have been observed on day D are
// re-attributed to day D + delay; rows shifting past the last observed
// date are retained, extending the history.
func SupplyDelay(frame domain.CleanFrame, sku string, start time.Time, delayDays int) domain.CleanFrame {
	out := frame.Clone()
	for i, r := range out.Records {
		if r.SKU != sku || r.Date.Before(start) {
			continue
		}
		out.Records[i].Date = r.Date.AddDate(0, 0, delayDays)
	}
	out.SortByDateSKU()
	return out
}

// StockoutFlag is one SKU's read-only stockout-risk verdict, grounded on
// original_source/app.py's analyze_stockout_risk button.
type StockoutFlag struct {
	SKU          string
	DaysOfCover  float64
	AtRisk       bool
}

// StockoutRisk flags SKUs whose current stock divided by mean daily
// quantity falls below thresholdDays. This is a pure query over the
// current CleanFrame and the caller-supplied stock levels; it never
// mutates the frame. SKUs without a stock entry, or with a mean quantity
// of zero, get no flag.
func StockoutRisk(frame domain.CleanFrame, currentStock map[string]float64, thresholdDays float64) []StockoutFlag {
	summaries := domain.Summarize(frame)
	var out []StockoutFlag
	for _, sku := range frame.SKUs() {
		stock, ok := currentStock[sku]
		if !ok {
			continue
		}
		summary := summaries[sku]
		if summary.MeanQty <= 0 {
			continue
		}
		cover := stock / summary.MeanQty
		out = append(out, StockoutFlag{
			SKU:         sku,
			DaysOfCover: cover,
			AtRisk:      cover < thresholdDays,
		})
	}
	return out
}
