package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/demandforge/invforecast/internal/ferr"
)

// dateFormats is the ranked list tried in order; the first one reaching
// the 95% success threshold wins and is remembered on the CleanFrame for
// round-tripping display.
var dateFormats = []string{
	"2006-01-02",
	"02 Jan 2006",
	"02 January 2006",
	"Jan 02, 2006",
	"01/02/2006",
	"02/01/2006",
}

const dateFormatThreshold = 0.95

// ValidationResult carries the outcome of Validate: whether the mapping is
// usable, the issues found, and (if ok) the detected date format.
type ValidationResult struct {
	OK         bool
	Issues     []string
	DateFormat string
}

// Validate checks required-column presence, date parseability against the
// ranked format list, quantity coercibility, and null counts.
func Validate(raw *RawFrame, mapping ColumnMapping) ValidationResult {
	var issues []string

	if mapping.DateCol < 0 || mapping.DateCol >= len(raw.Header) {
		issues = append(issues, "missing required column: date")
	}
	if mapping.SKUCol < 0 || mapping.SKUCol >= len(raw.Header) {
		issues = append(issues, "missing required column: sku")
	}
	if mapping.QuantityCol < 0 || mapping.QuantityCol >= len(raw.Header) {
		issues = append(issues, "missing required column: quantity")
	}
	if len(issues) > 0 {
		return ValidationResult{OK: false, Issues: issues}
	}

	format, dateIssues := detectDateFormat(raw, mapping.DateCol)
	issues = append(issues, dateIssues...)

	qtyIssues, nullCount := checkQuantity(raw, mapping.QuantityCol)
	issues = append(issues, qtyIssues...)
	if nullCount > 0 {
		issues = append(issues, quantityNullIssue(nullCount, len(raw.Rows)))
	}

	if format == "" {
		issues = append(issues, "no candidate date format reached the 95% parse threshold")
	}

	return ValidationResult{
		OK:         format != "" && len(issues) == 0,
		Issues:     issues,
		DateFormat: format,
	}
}

// ValidateOrError wraps Validate, returning a *ferr.ValidationError when
// the mapping is unusable.
func ValidateOrError(raw *RawFrame, mapping ColumnMapping) (ValidationResult, error) {
	res := Validate(raw, mapping)
	if !res.OK {
		return res, &ferr.ValidationError{Issues: res.Issues}
	}
	return res, nil
}

func detectDateFormat(raw *RawFrame, col int) (string, []string) {
	total := len(raw.Rows)
	if total == 0 {
		return "", []string{"no data rows to detect a date format from"}
	}
	for _, format := range dateFormats {
		ok := 0
		for _, row := range raw.Rows {
			if col >= len(row) {
				continue
			}
			if _, err := time.Parse(format, strings.TrimSpace(row[col])); err == nil {
				ok++
			}
		}
		if float64(ok)/float64(total) >= dateFormatThreshold {
			return format, nil
		}
	}
	return "", nil
}

func checkQuantity(raw *RawFrame, col int) ([]string, int) {
	var issues []string
	nullCount := 0
	for i, row := range raw.Rows {
		if col >= len(row) {
			nullCount++
			continue
		}
		v := strings.TrimSpace(row[col])
		if v == "" {
			nullCount++
			continue
		}
		if _, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64); err != nil {
			issues = append(issues, "row "+strconv.Itoa(i+1)+": quantity not coercible to a real number: "+v)
		}
	}
	return issues, nullCount
}

func quantityNullIssue(nullCount, total int) string {
	return strconv.Itoa(nullCount) + " of " + strconv.Itoa(total) + " quantity values are null"
}
