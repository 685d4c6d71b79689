package ingest

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/demandforge/invforecast/internal/domain"
	"github.com/demandforge/invforecast/internal/ferr"
)

// DuplicatePolicy controls how colliding (Date, SKU) rows are reduced
// during cleaning.
type DuplicatePolicy int

const (
	DuplicateSum DuplicatePolicy = iota
	DuplicateMean
	DuplicateLast
)

// FillPolicy controls how gaps in a SKU's observed date range are
// handled.
type FillPolicy int

const (
	FillNone FillPolicy = iota
	FillZero
	FillForward
)

// CleanOptions parameterizes Clean.
type CleanOptions struct {
	DateFormat     string
	Duplicates     DuplicatePolicy
	Fill           FillPolicy
	MinDataPoints  int
	NegativePolicy NegativePolicy
}

// NegativePolicy decides what Clean does with a row whose quantity is
// negative: RejectNegative drops the row, AbsoluteValue keeps it with the
// quantity's absolute value. Validate does not check the sign of
// quantities.
type NegativePolicy int

const (
	RejectNegative NegativePolicy = iota
	AbsoluteValue
)

type pendingRow struct {
	date time.Time
	sku  string
	qty  float64
	aux  map[string]domain.AuxValue
}

// Clean renames columns to canonical names, coerces types, deduplicates
// (Date, SKU) pairs, optionally fills gaps, and drops SKUs below
// MinDataPoints.
func Clean(raw *RawFrame, mapping ColumnMapping, opts CleanOptions) (domain.CleanFrame, map[string]int, error) {
	auxCols := auxiliaryColumns(raw.Header, mapping)

	parsed := make(map[string]pendingRow) // key: date|sku, reduced per Duplicates policy
	order := make([]string, 0, len(raw.Rows))
	counts := make(map[string]int) // how many raw rows collapsed into each key, for Mean

	for _, row := range raw.Rows {
		if mapping.DateCol >= len(row) || mapping.SKUCol >= len(row) || mapping.QuantityCol >= len(row) {
			continue
		}
		date, err := time.Parse(opts.DateFormat, strings.TrimSpace(row[mapping.DateCol]))
		if err != nil {
			continue
		}
		date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
		sku := strings.TrimSpace(row[mapping.SKUCol])
		if sku == "" {
			continue
		}
		qty, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(row[mapping.QuantityCol]), ",", ""), 64)
		if err != nil {
			continue
		}
		if qty < 0 {
			if opts.NegativePolicy == AbsoluteValue {
				qty = -qty
			} else {
				continue
			}
		}

		aux := make(map[string]domain.AuxValue, len(auxCols))
		for _, col := range auxCols {
			idx := headerIndex(raw.Header, col)
			aux[col] = cellToAux(row, idx)
		}

		key := date.Format(time.RFC3339) + "|" + sku
		if existing, ok := parsed[key]; ok {
			switch opts.Duplicates {
			case DuplicateMean, DuplicateSum:
				existing.qty += qty
			case DuplicateLast:
				existing.qty = qty
				existing.aux = aux
			}
			parsed[key] = existing
			counts[key]++
		} else {
			parsed[key] = pendingRow{date: date, sku: sku, qty: qty, aux: aux}
			counts[key] = 1
			order = append(order, key)
		}
	}

	if opts.Duplicates == DuplicateMean {
		for key, row := range parsed {
			row.qty /= float64(counts[key])
			parsed[key] = row
		}
	}

	records := make([]domain.Record, 0, len(order))
	for _, key := range order {
		row := parsed[key]
		records = append(records, domain.Record{
			Date:      row.date,
			SKU:       row.sku,
			Quantity:  row.qty,
			Auxiliary: row.aux,
		})
	}

	frame := domain.CleanFrame{Records: records, AuxColumns: auxCols, DateFormat: opts.DateFormat}
	frame.SortByDateSKU()

	if opts.Fill != FillNone {
		frame = fillGaps(frame, opts.Fill)
	}

	dropped := make(map[string]int)
	minPts := opts.MinDataPoints
	if minPts <= 0 {
		minPts = 10
	}
	summaries := domain.Summarize(frame)
	keep := make(map[string]bool, len(summaries))
	for sku, s := range summaries {
		if s.RecordCount < minPts {
			dropped[sku] = s.RecordCount
			continue
		}
		keep[sku] = true
	}
	if len(dropped) > 0 {
		filtered := frame.Records[:0:0]
		for _, r := range frame.Records {
			if keep[r.SKU] {
				filtered = append(filtered, r)
			}
		}
		frame.Records = filtered
	}

	if len(frame.Records) == 0 {
		return frame, dropped, &ferr.ValidationError{Issues: []string{"no records remained after cleaning"}}
	}
	return frame, dropped, nil
}

func auxiliaryColumns(header []string, mapping ColumnMapping) []string {
	var out []string
	for i, h := range header {
		if i == mapping.DateCol || i == mapping.SKUCol || i == mapping.QuantityCol {
			continue
		}
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

func headerIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func cellToAux(row []string, idx int) domain.AuxValue {
	if idx < 0 || idx >= len(row) {
		return domain.AuxValue{Null: true}
	}
	v := strings.TrimSpace(row[idx])
	if v == "" {
		return domain.AuxValue{Null: true}
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64); err == nil {
		return domain.AuxValue{Number: f, IsNum: true}
	}
	return domain.AuxValue{String: v}
}

// fillGaps fills missing days within each SKU's own observed date range.
func fillGaps(frame domain.CleanFrame, policy FillPolicy) domain.CleanFrame {
	summaries := domain.Summarize(frame)
	bySKU := make(map[string][]domain.Record)
	for _, r := range frame.Records {
		bySKU[r.SKU] = append(bySKU[r.SKU], r)
	}

	var out []domain.Record
	for sku, rows := range bySKU {
		byDate := make(map[time.Time]domain.Record, len(rows))
		for _, r := range rows {
			byDate[r.Date] = r
		}
		summary := summaries[sku]
		last := rows[0]
		for d := summary.FirstDate; !d.After(summary.LastDate); d = d.AddDate(0, 0, 1) {
			if r, ok := byDate[d]; ok {
				out = append(out, r)
				last = r
				continue
			}
			filled := domain.Record{Date: d, SKU: sku, Auxiliary: map[string]domain.AuxValue{}}
			if policy == FillForward {
				filled.Quantity = last.Quantity
				filled.Auxiliary = last.Auxiliary
			}
			out = append(out, filled)
		}
	}
	frame.Records = out
	frame.SortByDateSKU()
	return frame
}
