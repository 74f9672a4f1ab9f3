package model

import (
	"math"
	"time"
)

// ProjectLink is the project relation nested under a contract row. It carries
// the lead attribution for the contract.
type ProjectLink struct {
	Salesperson  string     `json:"commercial"`
	Origin       string     `json:"origine"`
	CreatedAt    *time.Time `json:"date_creation,omitempty"`
	SubscribedAt *time.Time `json:"date_souscription,omitempty"`
}

// ContractRecord is one insurance policy as read from the contracts table.
// Numeric fields are nil when the upstream value is missing or unparsable.
type ContractRecord struct {
	ID             string       `json:"id"`
	MonthlyPremium *float64     `json:"prime_brute_mensuelle,omitempty"`
	RateYear1      *float64     `json:"commissionnement_annee1,omitempty"`
	RateRecurring  *float64     `json:"commissionnement_autres_annees,omitempty"`
	Status         string       `json:"statut"`
	ProjectStatus  string       `json:"statut_projet,omitempty"`
	Project        *ProjectLink `json:"projet,omitempty"`
	PostalCode     string       `json:"code_postal,omitempty"`
	City           string       `json:"ville,omitempty"`
	Carrier        string       `json:"compagnie,omitempty"`
}

// Premium returns the monthly gross premium, or 0 when missing or not a
// finite number.
func (c *ContractRecord) Premium() float64 {
	if c.MonthlyPremium == nil || math.IsNaN(*c.MonthlyPremium) || math.IsInf(*c.MonthlyPremium, 0) {
		return 0
	}
	return *c.MonthlyPremium
}

// Salesperson returns the salesperson of the linked project.
func (c *ContractRecord) Salesperson() string {
	if c.Project == nil {
		return ""
	}
	return c.Project.Salesperson
}

// Origin returns the raw lead origin of the linked project.
func (c *ContractRecord) Origin() string {
	if c.Project == nil {
		return ""
	}
	return c.Project.Origin
}

// Date returns the subscription date, falling back to the project creation
// date. Nil when neither is known.
func (c *ContractRecord) Date() *time.Time {
	if c.Project == nil {
		return nil
	}
	if c.Project.SubscribedAt != nil {
		return c.Project.SubscribedAt
	}
	return c.Project.CreatedAt
}

// ProjectRecord is one sales lead as read from the projects table.
type ProjectRecord struct {
	ID          string     `json:"id"`
	Salesperson string     `json:"commercial"`
	Origin      string     `json:"origine"`
	CreatedAt   *time.Time `json:"date_creation,omitempty"`
	Status      string     `json:"statut"`
	PostalCode  string     `json:"code_postal,omitempty"`
}

// RowKind discriminates classified rows.
type RowKind int

const (
	RowProject RowKind = iota
	RowContract
)

func (k RowKind) String() string {
	if k == RowContract {
		return "contract"
	}
	return "project"
}

// Row is a classified input row. Exactly one of Contract or Project is set,
// matching Kind.
type Row struct {
	Kind     RowKind
	Contract *ContractRecord
	Project  *ProjectRecord
}

// Float returns a pointer to v. Handy for building records by hand.
func Float(v float64) *float64 { return &v }

// Time returns a pointer to t.
func Time(t time.Time) *time.Time { return &t }
