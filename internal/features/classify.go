// Package features implements per-SKU detection of usable auxiliary
// columns and the fitted per-SKU encoders used to build exogenous
// matrices.
package features

import (
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/demandforge/invforecast/internal/domain"
)

// ColumnType is the column-type classifier's verdict.
type ColumnType int

const (
	Empty ColumnType = iota
	Categorical
	Numeric
)

// classify applies the column-type rule to one column's non-null values
// for one SKU's subset of rows.
func classify(values []domain.AuxValue) ColumnType {
	nonNull := 0
	allNumeric := true
	uniques := make(map[string]struct{})
	for _, v := range values {
		if v.Null {
			continue
		}
		nonNull++
		if !v.IsNum {
			allNumeric = false
		}
		uniques[auxKey(v)] = struct{}{}
	}
	if nonNull == 0 {
		return Empty
	}
	if !allNumeric {
		return Categorical
	}
	uniqueRatio := float64(len(uniques)) / float64(nonNull)
	if len(uniques) < 20 && uniqueRatio < 0.5 {
		return Categorical
	}
	return Numeric
}

func auxKey(v domain.AuxValue) string {
	if v.IsNum {
		return "n:" + strconv.FormatFloat(v.Number, 'g', -1, 64)
	}
	return "s:" + v.String
}

// coverage is non_null_count / total_count for a column within a SKU's
// subset.
func coverage(values []domain.AuxValue) float64 {
	if len(values) == 0 {
		return 0
	}
	nonNull := 0
	for _, v := range values {
		if !v.Null {
			nonNull++
		}
	}
	return float64(nonNull) / float64(len(values))
}

// coefficientOfVariationSquared computes (sigma/mu)^2 for a numeric
// column's non-null values, using gonum's mean/stddev rather than a
// hand-rolled accumulator.
func coefficientOfVariationSquared(values []domain.AuxValue) float64 {
	var nums []float64
	for _, v := range values {
		if !v.Null && v.IsNum {
			nums = append(nums, v.Number)
		}
	}
	if len(nums) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(nums, nil)
	if mean == 0 {
		return 0
	}
	cv := std / mean
	return cv * cv
}

// categoricalUniqueRatio is the variance-filter proxy for categorical
// columns: callers require unique-ratio >= 0.01.
func categoricalUniqueRatio(values []domain.AuxValue) float64 {
	nonNull := 0
	uniques := make(map[string]struct{})
	for _, v := range values {
		if v.Null {
			continue
		}
		nonNull++
		uniques[auxKey(v)] = struct{}{}
	}
	if nonNull == 0 {
		return 0
	}
	return float64(len(uniques)) / float64(nonNull)
}
