package commission

import (
	"fmt"
	"sort"

	"github.com/sells-group/commission-cli/internal/model"
)

// Anomaly categories.
const (
	AnomalyLowConversion = "conversion_faible"
	AnomalyLowResponse   = "reponse_faible"
)

// Anomaly thresholds. Counts must strictly exceed the minimum and rates must
// be strictly below the ceiling.
const (
	minContactedForConversion = 50
	maxConversionRate         = 5.0
	minLeadsForResponse       = 20
	maxResponseRate           = 30.0
)

var severityOrder = map[model.Severity]int{
	model.SeverityHigh:   0,
	model.SeverityMedium: 1,
	model.SeverityLow:    2,
}

// DetectAnomalies scans a finished origin aggregate for underperformance.
// Each rule emits at most one flag per origin. Flags are ordered by severity,
// then origin name.
func DetectAnomalies(byOrigin map[model.Origin]*model.OriginBucket) []model.AnomalyFlag {
	flags := []model.AnomalyFlag{}
	for origin, b := range byOrigin {
		if b.ProjectsContacted > minContactedForConversion && b.ConversionRate < maxConversionRate {
			flags = append(flags, model.AnomalyFlag{
				Category: AnomalyLowConversion,
				Severity: model.SeverityHigh,
				Origin:   origin,
				Message: fmt.Sprintf(
					"%s : %d projets contactés pour seulement %d contrats (%.1f%% de conversion)",
					origin, b.ProjectsContacted, b.Contracts, b.ConversionRate,
				),
			})
		}
		if b.LeadsGenerated > minLeadsForResponse && b.ResponseRate < maxResponseRate {
			flags = append(flags, model.AnomalyFlag{
				Category: AnomalyLowResponse,
				Severity: model.SeverityMedium,
				Origin:   origin,
				Message: fmt.Sprintf(
					"%s : %d leads générés mais seulement %d contactés (%.1f%% de réponse)",
					origin, b.LeadsGenerated, b.ProjectsContacted, b.ResponseRate,
				),
			})
		}
	}

	sort.Slice(flags, func(i, j int) bool {
		if flags[i].Severity != flags[j].Severity {
			return severityOrder[flags[i].Severity] < severityOrder[flags[j].Severity]
		}
		return flags[i].Origin < flags[j].Origin
	})
	return flags
}
