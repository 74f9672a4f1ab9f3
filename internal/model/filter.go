package model

import "strings"

// FilterAll disables a facet.
const FilterAll = "all"

// Filters is the facet selection applied before aggregation. It is a value
// type; callers build a new one on every change.
type Filters struct {
	Salesperson string `json:"commercial" yaml:"commercial"`
	Month       string `json:"mois" yaml:"mois"` // YYYY-MM
	Origin      string `json:"origine" yaml:"origine"`
	Department  string `json:"departement" yaml:"departement"`
}

// AllFilters returns a selection with every facet disabled.
func AllFilters() Filters {
	return Filters{
		Salesperson: FilterAll,
		Month:       FilterAll,
		Origin:      FilterAll,
		Department:  FilterAll,
	}
}

// IsAll reports whether a facet value means "no filtering".
func IsAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, FilterAll)
}
