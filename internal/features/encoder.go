package features

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/demandforge/invforecast/internal/domain"
	"github.com/demandforge/invforecast/internal/ferr"
)

// Thresholds carries the configuration keys this package consumes.
type Thresholds struct {
	MinCoverage float64
	MinVariance float64
}

// Manager owns per-SKU encoder state.
type Manager struct {
	encoders map[string]domain.FeatureEncoder
	rejected []ferr.FeatureRejected
}

// Fit determines admissible features per SKU and fits one encoder per
// admissible feature.
func Fit(frame domain.CleanFrame, candidateColumns []string, th Thresholds) *Manager {
	m := &Manager{encoders: make(map[string]domain.FeatureEncoder)}

	bySKU := make(map[string][]domain.Record)
	for _, r := range frame.Records {
		bySKU[r.SKU] = append(bySKU[r.SKU], r)
	}

	for sku, rows := range bySKU {
		enc := domain.FeatureEncoder{SKU: sku}
		for _, col := range candidateColumns {
			values := make([]domain.AuxValue, len(rows))
			for i, r := range rows {
				values[i] = r.Auxiliary[col]
			}

			cov := coverage(values)
			if cov < th.MinCoverage {
				m.rejected = append(m.rejected, ferr.FeatureRejected{SKU: sku, Column: col, Reason: "coverage below threshold"})
				continue
			}

			ct := classify(values)
			switch ct {
			case Empty:
				m.rejected = append(m.rejected, ferr.FeatureRejected{SKU: sku, Column: col, Reason: "empty column"})
				continue
			case Categorical:
				distinct := make(map[string]struct{})
				for _, v := range values {
					if !v.Null {
						distinct[auxKey(v)] = struct{}{}
					}
				}
				if len(distinct) < 2 || categoricalUniqueRatio(values) < th.MinVariance {
					m.rejected = append(m.rejected, ferr.FeatureRejected{SKU: sku, Column: col, Reason: "constant categorical feature"})
					continue
				}
				enc.Columns = append(enc.Columns, domain.ColumnEncoder{Column: col, Variant: fitCategorical(values)})
			case Numeric:
				if coefficientOfVariationSquared(values) < th.MinVariance {
					m.rejected = append(m.rejected, ferr.FeatureRejected{SKU: sku, Column: col, Reason: "constant numeric feature"})
					continue
				}
				variant, ok := fitNumeric(values)
				if !ok {
					m.rejected = append(m.rejected, ferr.FeatureRejected{SKU: sku, Column: col, Reason: "zero standard deviation"})
					continue
				}
				enc.Columns = append(enc.Columns, domain.ColumnEncoder{Column: col, Variant: variant})
			}
		}
		sort.Slice(enc.Columns, func(i, j int) bool { return enc.Columns[i].Column < enc.Columns[j].Column })
		m.encoders[sku] = enc
	}

	return m
}

func fitCategorical(values []domain.AuxValue) domain.FeatureVariant {
	labels := make(map[string]int)
	next := 1 // 0 is reserved as the default/unseen code
	for _, v := range values {
		if v.Null || v.IsNum {
			continue
		}
		if _, ok := labels[v.String]; !ok {
			labels[v.String] = next
			next++
		}
	}
	return domain.FeatureVariant{Kind: domain.FeatureCategorical, Labels: labels, DefaultLabel: 0}
}

func fitNumeric(values []domain.AuxValue) (domain.FeatureVariant, bool) {
	var nums []float64
	for _, v := range values {
		if !v.Null && v.IsNum {
			nums = append(nums, v.Number)
		}
	}
	if len(nums) == 0 {
		return domain.FeatureVariant{}, false
	}
	mean, std := stat.MeanStdDev(nums, nil)
	if std == 0 {
		return domain.FeatureVariant{}, false
	}
	return domain.FeatureVariant{Kind: domain.FeatureNumeric, Mean: mean, StdDev: std}, true
}

// Encoder returns the fitted encoder for sku, or false if none was fit
// (e.g. the SKU had no admissible features).
func (m *Manager) Encoder(sku string) (domain.FeatureEncoder, bool) {
	enc, ok := m.encoders[sku]
	if !ok || len(enc.Columns) == 0 {
		return domain.FeatureEncoder{}, false
	}
	return enc, true
}

// Rejected returns every per-SKU-per-feature rejection recorded during
// Fit, for the post-run diagnostic summary.
func (m *Manager) Rejected() []ferr.FeatureRejected {
	return m.rejected
}
