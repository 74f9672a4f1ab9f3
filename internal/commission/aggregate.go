package commission

import (
	"strings"

	"github.com/sells-group/commission-cli/internal/model"
)

const (
	unassignedSalesperson = "Non assigné"
	unknownCarrier        = "Non spécifiée"
)

// placeholderSalespeople are assignment values that mean nobody picked the
// lead up.
var placeholderSalespeople = []string{"", "0", "non assigné", "non assigne", "non spécifié", "non specifie", "aucun", "-"}

// Aggregator rolls classified rows up into the four group-by views. The view
// decides which derived-metric set is filled in; sums are always computed.
type Aggregator struct {
	calc *Calculator
	view model.View
}

// NewAggregator creates an Aggregator. An empty view emits every metric.
func NewAggregator(calc *Calculator, view model.View) *Aggregator {
	if view == "" {
		view = model.ViewAll
	}
	return &Aggregator{calc: calc, view: view}
}

// View returns the derived-metric set this aggregator emits.
func (a *Aggregator) View() model.View {
	return a.view
}

// ComputeMetrics filters rows and aggregates what survives. It is a pure
// function of its inputs: the same rows and filters give identical metrics.
func (a *Aggregator) ComputeMetrics(rows []model.Row, f model.Filters) *model.Metrics {
	m := a.Aggregate(Filter(rows, f), f)
	if a.view.Marketing() {
		m.Anomalies = DetectAnomalies(m.ByOrigin)
	}
	return m
}

// Aggregate performs the single forward pass over already-filtered rows and
// then derives the per-bucket ratios.
func (a *Aggregator) Aggregate(rows []model.Row, f model.Filters) *model.Metrics {
	m := model.NewMetrics(a.view, f)
	months := make(map[string]struct{})

	for _, r := range rows {
		switch r.Kind {
		case model.RowContract:
			a.addContract(m, r.Contract, months)
		case model.RowProject:
			addProject(m, r.Project)
		}
	}

	m.ActiveMonths = len(months)
	m.GlobalConversionRate = ratio(m.TotalContracts, m.TotalContacted)

	if a.view.Marketing() {
		deriveMarketing(m)
	}
	if a.view.Commission() {
		deriveCommission(m)
	}
	return m
}

func (a *Aggregator) addContract(m *model.Metrics, rec *model.ContractRecord, months map[string]struct{}) {
	c, ok := a.calc.Calculate(rec)
	if !ok {
		return
	}

	origin := NormalizeOrigin(rec.Origin())
	dept := Department(rec.PostalCode)
	sp := salespersonKey(rec.Salesperson())
	carrier := carrierKey(rec.Carrier)

	addTotals(&originBucket(m, origin).Totals, c)
	addTotals(&departmentBucket(m, dept).Totals, c)
	addTotals(&salespersonBucket(m, sp).Totals, c)
	addTotals(&carrierBucket(m, carrier).Totals, c)

	m.TotalContracts++
	m.TotalCommissionYear1 += c.AnnualYear1
	m.TotalCommissionRecurring += c.AnnualRecurring
	m.TotalPremium += c.Premium

	if d := rec.Date(); d != nil {
		months[d.Format(MonthLayout)] = struct{}{}
	}
}

func addProject(m *model.Metrics, p *model.ProjectRecord) {
	contacted := IsAssigned(p.Salesperson)

	m.TotalProjects++
	if contacted {
		m.TotalContacted++
	}

	for _, fn := range []*model.Funnel{
		&originBucket(m, NormalizeOrigin(p.Origin)).Funnel,
		&departmentBucket(m, Department(p.PostalCode)).Funnel,
		&salespersonBucket(m, salespersonKey(p.Salesperson)).Funnel,
	} {
		fn.LeadsGenerated++
		if contacted {
			fn.ProjectsContacted++
		}
	}
}

func addTotals(t *model.Totals, c Commission) {
	t.Contracts++
	t.CommissionYear1 += c.AnnualYear1
	t.CommissionRecurring += c.AnnualRecurring
	t.MonthlyCommissionY1 += c.MonthlyYear1
	t.MonthlyCommissionRec += c.MonthlyRecurring
	t.Premium += c.Premium
}

func deriveMarketing(m *model.Metrics) {
	for _, b := range m.ByOrigin {
		deriveFunnel(&b.Funnel, b.Contracts)
		advise(b)
	}
	for _, b := range m.ByDepartment {
		deriveFunnel(&b.Funnel, b.Contracts)
	}
	for _, b := range m.BySalesperson {
		deriveFunnel(&b.Funnel, b.Contracts)
	}
}

func deriveCommission(m *model.Metrics) {
	var originSum, deptSum float64
	for _, b := range m.ByOrigin {
		originSum += b.CommissionYear1
	}
	for _, b := range m.ByDepartment {
		deptSum += b.CommissionYear1
	}
	for _, b := range m.ByOrigin {
		b.Percentage = share(b.CommissionYear1, originSum)
	}
	for _, b := range m.ByDepartment {
		b.Percentage = share(b.CommissionYear1, deptSum)
	}
	for _, b := range m.BySalesperson {
		if b.Contracts > 0 {
			b.AverageCommission = b.CommissionYear1 / float64(b.Contracts)
		}
	}
	for _, b := range m.ByCarrier {
		if b.Contracts > 0 {
			b.AveragePremium = b.Premium / float64(b.Contracts)
		}
	}
	if m.ActiveMonths > 0 {
		m.AverageMonthlyCommission = m.TotalCommissionYear1 / float64(m.ActiveMonths)
	}
}

func deriveFunnel(f *model.Funnel, contracts int) {
	f.ConversionRate = ratio(contracts, f.ProjectsContacted)
	f.ResponseRate = ratio(f.ProjectsContacted, f.LeadsGenerated)
}

// ratio returns num/den as a percentage, 0 when den is 0.
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

func share(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

// IsAssigned reports whether a project has a real salesperson, which is what
// makes it count as contacted.
func IsAssigned(salesperson string) bool {
	s := fold(salesperson)
	for _, p := range placeholderSalespeople {
		if s == p {
			return false
		}
	}
	return true
}

func salespersonKey(name string) string {
	if !IsAssigned(name) {
		return unassignedSalesperson
	}
	return strings.TrimSpace(name)
}

func carrierKey(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return unknownCarrier
	}
	return name
}

func originBucket(m *model.Metrics, o model.Origin) *model.OriginBucket {
	b, ok := m.ByOrigin[o]
	if !ok {
		b = &model.OriginBucket{Origin: o}
		m.ByOrigin[o] = b
	}
	return b
}

func departmentBucket(m *model.Metrics, d string) *model.DepartmentBucket {
	b, ok := m.ByDepartment[d]
	if !ok {
		b = &model.DepartmentBucket{Department: d}
		m.ByDepartment[d] = b
	}
	return b
}

func salespersonBucket(m *model.Metrics, s string) *model.SalespersonBucket {
	b, ok := m.BySalesperson[s]
	if !ok {
		b = &model.SalespersonBucket{Salesperson: s}
		m.BySalesperson[s] = b
	}
	return b
}

func carrierBucket(m *model.Metrics, c string) *model.CarrierBucket {
	b, ok := m.ByCarrier[c]
	if !ok {
		b = &model.CarrierBucket{Carrier: c}
		m.ByCarrier[c] = b
	}
	return b
}
