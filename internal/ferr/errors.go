// Package ferr defines the sentinel error kinds raised across the
// forecasting pipeline. Each is a distinct Go type satisfying error so
// callers can discriminate with errors.As instead of string matching.
package ferr

import "fmt"

// ValidationError is fatal for the current ingest: missing columns,
// unparseable dates, non-numeric quantities. Carries the full issue list
// so the caller can report everything wrong in one pass.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Issues)
}

// InsufficientData marks a per-SKU exclusion (too few rows). Non-fatal:
// the run continues and the SKU is recorded in the skipped map.
type InsufficientData struct {
	SKU    string
	Reason string
}

func (e *InsufficientData) Error() string {
	return fmt.Sprintf("sku %s: insufficient data: %s", e.SKU, e.Reason)
}

// FeatureRejected marks a per-SKU-per-feature exclusion. Always
// non-fatal; surfaced only through diagnostic summaries.
type FeatureRejected struct {
	SKU    string
	Column string
	Reason string
}

func (e *FeatureRejected) Error() string {
	return fmt.Sprintf("sku %s: feature %s rejected: %s", e.SKU, e.Column, e.Reason)
}

// ForecastFailed marks a per-SKU worker failure (panic, or non-finite
// output after sanitization). Recorded in the skipped map; run continues.
type ForecastFailed struct {
	SKU    string
	Reason string
}

func (e *ForecastFailed) Error() string {
	return fmt.Sprintf("sku %s: forecast failed: %s", e.SKU, e.Reason)
}

// Cancelled is a cooperative, non-error outcome — it satisfies error only
// so it composes with Go's error-return idiom; callers should check for
// it explicitly rather than treat it as a failure.
type Cancelled struct{}

func (e *Cancelled) Error() string { return "forecast run cancelled" }

// OutOfMemory is fatal for the current run: the bundle is not published.
type OutOfMemory struct {
	Detail string
}

func (e *OutOfMemory) Error() string {
	return fmt.Sprintf("out of memory: %s", e.Detail)
}
