package commission

import (
	"strings"

	"github.com/sells-group/commission-cli/internal/model"
)

const monthsPerYear = 12

// cancelledStatuses are substrings of contract statuses that exclude a
// contract from every aggregate.
var cancelledStatuses = []string{"annulé", "annule", "perdu", "refusé", "résilié"}

// Commission is the computed commission of a single contract.
type Commission struct {
	Premium          float64
	RateYear1        float64
	RateRecurring    float64
	MonthlyYear1     float64
	MonthlyRecurring float64
	AnnualYear1      float64
	AnnualRecurring  float64
}

// Calculator derives per-contract commissions from premium and rates.
type Calculator struct {
	rules Rules
}

// NewCalculator creates a Calculator with the given rules.
func NewCalculator(rules Rules) *Calculator {
	return &Calculator{rules: rules}
}

// Rules returns the rules the calculator was built with.
func (c *Calculator) Rules() Rules {
	return c.rules
}

// Calculate computes the commission of a contract. The second return value is
// false when the contract is excluded: non-positive premium, unset status, or
// a cancellation status.
func (c *Calculator) Calculate(rec *model.ContractRecord) (Commission, bool) {
	if rec == nil || Excluded(rec) {
		return Commission{}, false
	}

	p := rec.Premium()
	salesperson := rec.Salesperson()
	r1 := c.rules.ResolveRate(rec.RateYear1, salesperson)
	r2 := c.rules.ResolveRate(rec.RateRecurring, salesperson)

	m1 := p * r1 * c.rules.DeductionFactor
	m2 := p * r2 * c.rules.DeductionFactor

	return Commission{
		Premium:          p,
		RateYear1:        r1,
		RateRecurring:    r2,
		MonthlyYear1:     m1,
		MonthlyRecurring: m2,
		AnnualYear1:      m1 * monthsPerYear,
		AnnualRecurring:  m2 * monthsPerYear,
	}, true
}

// Excluded reports whether a contract is left out of all aggregation.
func Excluded(rec *model.ContractRecord) bool {
	if rec.Premium() <= 0 {
		return true
	}
	if strings.TrimSpace(rec.Status) == "" {
		return true
	}
	return IsCancelled(rec.Status)
}

// IsCancelled reports whether a status belongs to the cancellation vocabulary.
func IsCancelled(status string) bool {
	return containsAny(fold(status), cancelledStatuses...)
}
