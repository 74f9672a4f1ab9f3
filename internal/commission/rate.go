package commission

import "math"

// SalespersonRate is a default year-1 rate applied when a contract carries no
// rate of its own. Match is a case-insensitive substring of the salesperson name.
type SalespersonRate struct {
	Match string  `yaml:"match" mapstructure:"match"`
	Rate  float64 `yaml:"rate" mapstructure:"rate"`
}

// Rules holds the business constants of the commission computation.
type Rules struct {
	DeductionFactor float64           `yaml:"deduction_factor" mapstructure:"deduction_factor"`
	DefaultRates    []SalespersonRate `yaml:"default_rates" mapstructure:"default_rates"`
	FallbackRate    float64           `yaml:"fallback_rate" mapstructure:"fallback_rate"`
	UnassignedRate  float64           `yaml:"unassigned_rate" mapstructure:"unassigned_rate"`
}

// DefaultRules returns the rules in force at the brokerage. The values have no
// documented derivation upstream and are kept verbatim.
func DefaultRules() Rules {
	return Rules{
		DeductionFactor: 0.875,
		DefaultRates: []SalespersonRate{
			{Match: "SNOUSSI ZOUH", Rate: 0.306},
		},
		FallbackRate:   0.03,
		UnassignedRate: 0.087,
	}
}

// ResolveRate turns a raw commission rate into a decimal fraction.
//
// Upstream rates are entered either as percentages ("30") or decimals
// ("0.30"); anything above 1 is read as a percentage. A missing, zero,
// negative or non-finite rate falls back to the salesperson table.
func (r Rules) ResolveRate(raw *float64, salesperson string) float64 {
	if raw == nil || !(*raw > 0) || math.IsInf(*raw, 0) {
		return r.defaultRate(salesperson)
	}
	if *raw > 1 {
		return *raw / 100
	}
	return *raw
}

func (r Rules) defaultRate(salesperson string) float64 {
	name := fold(salesperson)
	if name == "" || name == "0" {
		return r.UnassignedRate
	}
	for _, dr := range r.DefaultRates {
		m := fold(dr.Match)
		if m != "" && containsAny(name, m) {
			return dr.Rate
		}
	}
	return r.FallbackRate
}
