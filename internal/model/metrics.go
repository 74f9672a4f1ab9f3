package model

import "time"

// Origin is the normalized lead channel.
type Origin string

const (
	OriginFacebook     Origin = "Facebook"
	OriginTikTok       Origin = "TikTok"
	OriginPrescription Origin = "Prescription"
	OriginBackoffice   Origin = "Backoffice"
)

// Origins lists the closed taxonomy in display order.
var Origins = []Origin{OriginFacebook, OriginTikTok, OriginPrescription, OriginBackoffice}

// View selects which derived-metric set the aggregator emits.
type View string

const (
	ViewMarketing  View = "marketing"
	ViewCommission View = "commission"
	ViewAll        View = "all"
)

// Marketing reports whether funnel metrics (rates, advice, anomalies) are emitted.
func (v View) Marketing() bool { return v == ViewMarketing || v == ViewAll || v == "" }

// Commission reports whether commission shares and averages are emitted.
func (v View) Commission() bool { return v == ViewCommission || v == ViewAll || v == "" }

// Priority is the follow-up priority attached to origin advice.
type Priority string

const (
	PriorityHigh   Priority = "haute"
	PriorityMedium Priority = "moyenne"
	PriorityLow    Priority = "basse"
)

// Severity grades an anomaly flag.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// AnomalyFlag is an advisory emitted from the origin aggregate. Never persisted.
type AnomalyFlag struct {
	Category string   `json:"type" yaml:"type"`
	Message  string   `json:"message" yaml:"message"`
	Severity Severity `json:"severite" yaml:"severite"`
	Origin   Origin   `json:"origine,omitempty" yaml:"origine,omitempty"`
}

// Totals is the set of sums shared by every bucket type.
type Totals struct {
	Contracts            int     `json:"nombre_contrats" yaml:"nombre_contrats"`
	CommissionYear1      float64 `json:"commission_annee1" yaml:"commission_annee1"`
	CommissionRecurring  float64 `json:"commission_recurrente" yaml:"commission_recurrente"`
	MonthlyCommissionY1  float64 `json:"commission_mensuelle_annee1" yaml:"commission_mensuelle_annee1"`
	MonthlyCommissionRec float64 `json:"commission_mensuelle_recurrente" yaml:"commission_mensuelle_recurrente"`
	Premium              float64 `json:"primes_mensuelles" yaml:"primes_mensuelles"`
}

// Funnel holds lead counters and the ratios derived from them.
type Funnel struct {
	LeadsGenerated    int     `json:"leads_generes" yaml:"leads_generes"`
	ProjectsContacted int     `json:"projets_contactes" yaml:"projets_contactes"`
	ConversionRate    float64 `json:"taux_conversion" yaml:"taux_conversion"`
	ResponseRate      float64 `json:"taux_reponse" yaml:"taux_reponse"`
}

// OriginBucket aggregates one normalized origin.
type OriginBucket struct {
	Origin Origin `json:"origine" yaml:"origine"`
	Totals `yaml:",inline"`
	Funnel `yaml:",inline"`

	Percentage     float64  `json:"pourcentage" yaml:"pourcentage"`
	Recommendation string   `json:"recommandation,omitempty" yaml:"recommandation,omitempty"`
	BudgetAdvice   string   `json:"conseil_budget,omitempty" yaml:"conseil_budget,omitempty"`
	Priority       Priority `json:"priorite_relance,omitempty" yaml:"priorite_relance,omitempty"`
}

// DepartmentBucket aggregates one department derived from the postal code.
type DepartmentBucket struct {
	Department string `json:"departement" yaml:"departement"`
	Totals     `yaml:",inline"`
	Funnel     `yaml:",inline"`

	Percentage float64 `json:"pourcentage" yaml:"pourcentage"`
}

// SalespersonBucket aggregates one salesperson.
type SalespersonBucket struct {
	Salesperson string `json:"commercial" yaml:"commercial"`
	Totals      `yaml:",inline"`
	Funnel      `yaml:",inline"`

	AverageCommission float64 `json:"commission_moyenne_contrat" yaml:"commission_moyenne_contrat"`
}

// CarrierBucket aggregates one insurance carrier.
type CarrierBucket struct {
	Carrier string `json:"compagnie" yaml:"compagnie"`
	Totals  `yaml:",inline"`

	AveragePremium float64 `json:"prime_moyenne" yaml:"prime_moyenne"`
}

// Metrics is the single structured value handed to the presentation layer.
type Metrics struct {
	View    View    `json:"vue" yaml:"vue"`
	Filters Filters `json:"filtres" yaml:"filtres"`

	TotalContracts           int     `json:"nombre_total_contrats" yaml:"nombre_total_contrats"`
	TotalProjects            int     `json:"nombre_total_projets" yaml:"nombre_total_projets"`
	TotalContacted           int     `json:"nombre_projets_contactes" yaml:"nombre_projets_contactes"`
	TotalCommissionYear1     float64 `json:"total_commissions_annee1" yaml:"total_commissions_annee1"`
	TotalCommissionRecurring float64 `json:"total_commissions_recurrentes" yaml:"total_commissions_recurrentes"`
	TotalPremium             float64 `json:"total_primes_mensuelles" yaml:"total_primes_mensuelles"`
	AverageMonthlyCommission float64 `json:"commission_moyenne_mensuelle" yaml:"commission_moyenne_mensuelle"`
	ActiveMonths             int     `json:"mois_actifs" yaml:"mois_actifs"`
	GlobalConversionRate     float64 `json:"taux_conversion_global" yaml:"taux_conversion_global"`

	ByOrigin      map[Origin]*OriginBucket      `json:"par_origine" yaml:"par_origine"`
	ByDepartment  map[string]*DepartmentBucket  `json:"par_departement" yaml:"par_departement"`
	BySalesperson map[string]*SalespersonBucket `json:"par_commercial" yaml:"par_commercial"`
	ByCarrier     map[string]*CarrierBucket     `json:"par_compagnie" yaml:"par_compagnie"`

	Anomalies []AnomalyFlag `json:"anomalies" yaml:"anomalies"`

	ComputedAt time.Time `json:"calcule_le" yaml:"calcule_le"`
}

// NewMetrics returns an all-zero metrics value with empty bucket maps.
func NewMetrics(view View, filters Filters) *Metrics {
	return &Metrics{
		View:          view,
		Filters:       filters,
		ByOrigin:      make(map[Origin]*OriginBucket),
		ByDepartment:  make(map[string]*DepartmentBucket),
		BySalesperson: make(map[string]*SalespersonBucket),
		ByCarrier:     make(map[string]*CarrierBucket),
		Anomalies:     []AnomalyFlag{},
	}
}
