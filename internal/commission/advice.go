package commission

import "github.com/sells-group/commission-cli/internal/model"

// Conversion-rate thresholds (percent) for origin advice.
const (
	lowConversion      = 10.0
	highConversion     = 25.0
	paidLowConversion  = 15.0
	paidHighConversion = 25.0
)

// advise attaches the recommendation and follow-up priority to an origin
// bucket. Paid social channels get budget advice on their own thresholds.
func advise(b *model.OriginBucket) {
	rate := b.ConversionRate
	switch {
	case rate < lowConversion:
		b.Recommendation = "Taux de conversion faible, optimiser le ciblage"
		b.Priority = model.PriorityHigh
	case rate > highConversion:
		b.Recommendation = "Excellent taux de conversion, passer à l'échelle"
		b.Priority = model.PriorityLow
	default:
		b.Recommendation = "Taux de conversion correct"
		b.Priority = model.PriorityMedium
	}

	if b.Origin != model.OriginFacebook && b.Origin != model.OriginTikTok {
		return
	}
	switch {
	case rate < paidLowConversion:
		b.BudgetAdvice = "Réduire le budget " + string(b.Origin) + " et revoir les créations publicitaires"
		b.Priority = model.PriorityHigh
	case rate > paidHighConversion:
		b.BudgetAdvice = "Augmenter le budget " + string(b.Origin) + ", le canal est rentable"
		b.Priority = model.PriorityLow
	default:
		b.BudgetAdvice = "Maintenir le budget " + string(b.Origin) + " et tester de nouvelles audiences"
		b.Priority = model.PriorityMedium
	}
}
