// Package commission turns raw contract and project rows into commission and
// marketing-funnel metrics: origin normalization, rate resolution, filtering,
// commission calculation, multi-dimensional aggregation and anomaly flags.
package commission

import "github.com/sells-group/commission-cli/internal/model"

// ComputeMetrics classifies the fetched records, applies the filters and
// aggregates every view with the default rules.
func ComputeMetrics(contracts []model.ContractRecord, projects []model.ProjectRecord, f model.Filters) *model.Metrics {
	agg := NewAggregator(NewCalculator(DefaultRules()), model.ViewAll)
	return agg.ComputeMetrics(Classify(contracts, projects), f)
}
