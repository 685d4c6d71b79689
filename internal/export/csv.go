// Package export writes a ForecastBundle out as CSV files and a text
// summary, and persists/reloads a fitted Strategy as a versioned binary
// blob.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/demandforge/invforecast/internal/domain"
)

// WriteSeries writes one of forecast_data.csv / forecast_upper.csv /
// forecast_lower.csv: header "Date" followed by lexicographically
// sorted SKU names, one row per future date.
func WriteSeries(w io.Writer, bundle domain.ForecastBundle, series map[string][]float64) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	skus := append([]string(nil), bundle.SKUs...)
	sort.Strings(skus)

	header := append([]string{"Date"}, skus...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	for i, d := range bundle.Dates {
		row := make([]string, 0, len(skus)+1)
		row = append(row, d.Format("2006-01-02"))
		for _, sku := range skus {
			values := series[sku]
			if i < len(values) {
				row = append(row, strconv.FormatFloat(values[i], 'f', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	return cw.Error()
}

// WriteDataCSV writes forecast_data.csv (point forecasts).
func WriteDataCSV(w io.Writer, bundle domain.ForecastBundle) error {
	return WriteSeries(w, bundle, bundle.Point)
}

// WriteUpperCSV writes forecast_upper.csv.
func WriteUpperCSV(w io.Writer, bundle domain.ForecastBundle) error {
	return WriteSeries(w, bundle, bundle.Upper)
}

// WriteLowerCSV writes forecast_lower.csv.
func WriteLowerCSV(w io.Writer, bundle domain.ForecastBundle) error {
	return WriteSeries(w, bundle, bundle.Lower)
}

// WriteSummary writes summary.txt: per-SKU totals, horizon, granularity,
// run timestamp, and a skipped-SKU table with reasons.
func WriteSummary(w io.Writer, bundle domain.ForecastBundle) error {
	bw := newLineWriter(w)

	bw.printf("Forecast run: %s\n", bundle.RunAt.Format(time.RFC3339))
	bw.printf("Granularity: %s\n", bundle.Granularity)
	bw.printf("Horizon: %d days\n", bundle.Horizon)
	bw.printf("\nSKU totals:\n")

	skus := append([]string(nil), bundle.SKUs...)
	sort.Strings(skus)
	for _, sku := range skus {
		var total float64
		for _, v := range bundle.Point[sku] {
			total += v
		}
		meta := bundle.Metadata[sku]
		bw.printf("  %-20s total=%.2f data_points=%d features=%d\n", sku, total, meta.DataPointsUsed, meta.FeatureCount)
	}

	if len(bundle.Skipped) > 0 {
		bw.printf("\nSkipped SKUs:\n")
		skipped := make([]string, 0, len(bundle.Skipped))
		for sku := range bundle.Skipped {
			skipped = append(skipped, sku)
		}
		sort.Strings(skipped)
		for _, sku := range skipped {
			bw.printf("  %-20s reason=%s\n", sku, bundle.Skipped[sku])
		}
	}
	return bw.err
}

type lineWriter struct {
	w   io.Writer
	err error
}

func newLineWriter(w io.Writer) *lineWriter { return &lineWriter{w: w} }

func (l *lineWriter) printf(format string, args ...interface{}) {
	if l.err != nil {
		return
	}
	_, l.err = fmt.Fprintf(l.w, format, args...)
}
