package commission

import (
	"strings"
	"time"

	"github.com/sells-group/commission-cli/internal/model"
)

// MonthLayout is the format of the month facet.
const MonthLayout = "2006-01"

// Classify tags fetched rows once. A contract record is a contract row only
// when it carries a positive monthly premium; contract records without one
// never count toward any bucket and are dropped here.
func Classify(contracts []model.ContractRecord, projects []model.ProjectRecord) []model.Row {
	rows := make([]model.Row, 0, len(contracts)+len(projects))
	for i := range contracts {
		if contracts[i].Premium() <= 0 {
			continue
		}
		rows = append(rows, model.Row{Kind: model.RowContract, Contract: &contracts[i]})
	}
	for i := range projects {
		rows = append(rows, model.Row{Kind: model.RowProject, Project: &projects[i]})
	}
	return rows
}

// Split partitions classified rows by kind.
func Split(rows []model.Row) (contracts, projects []model.Row) {
	for _, r := range rows {
		if r.Kind == model.RowContract {
			contracts = append(contracts, r)
		} else {
			projects = append(projects, r)
		}
	}
	return contracts, projects
}

type predicate func(model.Row) bool

// Filter applies the facet filters in sequence: salesperson, month, origin,
// department. Every stage rescans the surviving rows; a facet set to "all"
// passes everything.
func Filter(rows []model.Row, f model.Filters) []model.Row {
	stages := []predicate{
		salespersonStage(f.Salesperson),
		monthStage(f.Month),
		originStage(f.Origin),
		departmentStage(f.Department),
	}

	out := rows
	for _, keep := range stages {
		if keep == nil {
			continue
		}
		next := make([]model.Row, 0, len(out))
		for _, r := range out {
			if keep(r) {
				next = append(next, r)
			}
		}
		out = next
	}
	return out
}

func salespersonStage(want string) predicate {
	if model.IsAll(want) {
		return nil
	}
	// Placeholder names share the unassigned bucket key, so they match it too.
	want = fold(salespersonKey(want))
	return func(r model.Row) bool {
		return fold(salespersonKey(RowSalesperson(r))) == want
	}
}

func monthStage(want string) predicate {
	if model.IsAll(want) {
		return nil
	}
	want = strings.TrimSpace(want)
	return func(r model.Row) bool {
		d := RowDate(r)
		return d != nil && d.Format(MonthLayout) == want
	}
}

func originStage(want string) predicate {
	if model.IsAll(want) {
		return nil
	}
	return func(r model.Row) bool {
		return strings.EqualFold(string(NormalizeOrigin(RowOrigin(r))), strings.TrimSpace(want))
	}
}

func departmentStage(want string) predicate {
	if model.IsAll(want) {
		return nil
	}
	want = fold(want)
	return func(r model.Row) bool {
		return fold(Department(RowPostalCode(r))) == want
	}
}

// RowSalesperson returns the salesperson attributed to a row.
func RowSalesperson(r model.Row) string {
	switch {
	case r.Contract != nil:
		return r.Contract.Salesperson()
	case r.Project != nil:
		return r.Project.Salesperson
	}
	return ""
}

// RowOrigin returns the raw origin attributed to a row.
func RowOrigin(r model.Row) string {
	switch {
	case r.Contract != nil:
		return r.Contract.Origin()
	case r.Project != nil:
		return r.Project.Origin
	}
	return ""
}

// RowPostalCode returns the contact postal code of a row.
func RowPostalCode(r model.Row) string {
	switch {
	case r.Contract != nil:
		return r.Contract.PostalCode
	case r.Project != nil:
		return r.Project.PostalCode
	}
	return ""
}

// RowDate returns the date used by the month facet.
func RowDate(r model.Row) *time.Time {
	switch {
	case r.Contract != nil:
		return r.Contract.Date()
	case r.Project != nil:
		return r.Project.CreatedAt
	}
	return nil
}
