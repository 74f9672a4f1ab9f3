package commission

import (
	"time"

	"github.com/sells-group/commission-cli/internal/model"
)

func date(y int, m time.Month, d int) *time.Time {
	return model.Time(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func contract(premium, rate float64, status, salesperson, origin, postal, carrier string, subscribed *time.Time) model.ContractRecord {
	return model.ContractRecord{
		MonthlyPremium: model.Float(premium),
		RateYear1:      model.Float(rate),
		RateRecurring:  model.Float(rate / 3),
		Status:         status,
		PostalCode:     postal,
		Carrier:        carrier,
		Project: &model.ProjectLink{
			Salesperson:  salesperson,
			Origin:       origin,
			SubscribedAt: subscribed,
		},
	}
}

func project(salesperson, origin, postal string, created *time.Time) model.ProjectRecord {
	return model.ProjectRecord{
		Salesperson: salesperson,
		Origin:      origin,
		PostalCode:  postal,
		CreatedAt:   created,
		Status:      "Nouveau",
	}
}

// sampleRecords is a small mixed data set spanning several origins,
// departments, salespeople and carriers.
func sampleRecords() ([]model.ContractRecord, []model.ProjectRecord) {
	contracts := []model.ContractRecord{
		contract(100, 30, "En cours", "SNOUSSI ZOUH", "Facebook", "97400", "Alptis", date(2024, time.January, 10)),
		contract(50, 0.2, "Validé", "Alice", "TikTok", "75001", "April", date(2024, time.January, 20)),
		contract(80, 25, "En cours", "Alice", "Docteur", "97200", "Alptis", date(2024, time.February, 3)),
		contract(120, 10, "Annulé", "Bob", "Facebook", "97400", "April", date(2024, time.March, 1)),
		contract(0, 10, "En cours", "Bob", "Backoffice", "69001", "April", date(2024, time.March, 2)),
		contract(60, 20, "Signé", "Bob", "Parrainage", "", "", nil),
	}
	projects := []model.ProjectRecord{
		project("SNOUSSI ZOUH", "Facebook", "97400", date(2024, time.January, 2)),
		project("", "Facebook", "97400", date(2024, time.January, 3)),
		project("Alice", "TikTok", "75001", date(2024, time.January, 5)),
		project("0", "TikTok", "75001", date(2024, time.February, 5)),
		project("Alice", "medecin", "97200", date(2024, time.February, 1)),
		project("Bob", "Backoffice", "69001", date(2024, time.March, 1)),
	}
	return contracts, projects
}
