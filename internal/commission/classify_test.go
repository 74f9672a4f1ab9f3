package commission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/commission-cli/internal/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()
	contracts, projects := sampleRecords()

	rows := Classify(contracts, projects)
	c, p := Split(rows)

	// The zero-premium contract is dropped.
	assert.Len(t, c, 5)
	assert.Len(t, p, 6)
	for _, r := range c {
		assert.Equal(t, model.RowContract, r.Kind)
		require.NotNil(t, r.Contract)
		assert.Nil(t, r.Project)
		assert.Positive(t, r.Contract.Premium())
	}
	for _, r := range p {
		assert.Equal(t, model.RowProject, r.Kind)
		require.NotNil(t, r.Project)
	}
}

func TestClassify_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Classify(nil, nil))
}

func TestFilter_AllPassesEverything(t *testing.T) {
	t.Parallel()
	contracts, projects := sampleRecords()
	rows := Classify(contracts, projects)

	assert.Len(t, Filter(rows, model.AllFilters()), len(rows))
	assert.Len(t, Filter(rows, model.Filters{}), len(rows))
}

func TestFilter_Facets(t *testing.T) {
	t.Parallel()
	contracts, projects := sampleRecords()
	rows := Classify(contracts, projects)

	tests := []struct {
		name    string
		filters model.Filters
		want    int
	}{
		{"salesperson", model.Filters{Salesperson: "alice", Month: "all", Origin: "all", Department: "all"}, 4},
		{"month", model.Filters{Salesperson: "all", Month: "2024-01", Origin: "all", Department: "all"}, 5},
		{"origin", model.Filters{Salesperson: "all", Month: "all", Origin: "Facebook", Department: "all"}, 4},
		{"origin case-insensitive", model.Filters{Origin: "facebook"}, 4},
		{"department", model.Filters{Department: "La Réunion"}, 4},
		{"metropole includes empty postal code", model.Filters{Department: "Métropole"}, 5},
		{"combined", model.Filters{Salesperson: "SNOUSSI ZOUH", Month: "2024-01", Origin: "Facebook", Department: "La Réunion"}, 2},
		{"no match", model.Filters{Salesperson: "Nobody"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Len(t, Filter(rows, tt.filters), tt.want)
		})
	}
}

func TestFilter_MonthFallsBackToCreationDate(t *testing.T) {
	t.Parallel()
	rec := model.ContractRecord{
		MonthlyPremium: model.Float(10),
		Status:         "En cours",
		Project:        &model.ProjectLink{CreatedAt: model.Time(time.Date(2024, time.May, 4, 0, 0, 0, 0, time.UTC))},
	}
	rows := Classify([]model.ContractRecord{rec}, nil)

	assert.Len(t, Filter(rows, model.Filters{Month: "2024-05"}), 1)
	assert.Empty(t, Filter(rows, model.Filters{Month: "2024-06"}))
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	contracts, projects := sampleRecords()
	rows := Classify(contracts, projects)
	before := len(rows)

	_ = Filter(rows, model.Filters{Salesperson: "Bob"})
	assert.Len(t, rows, before)
	assert.Equal(t, model.RowContract, rows[0].Kind)
}

func TestFilter_UnassignedMatchesPlaceholders(t *testing.T) {
	t.Parallel()
	projects := []model.ProjectRecord{
		project("", "fb", "", nil),
		project("0", "fb", "", nil),
		project("aucun", "fb", "", nil),
		project("Non assigné", "fb", "", nil),
		project("Alice", "fb", "", nil),
	}
	rows := Classify(nil, projects)

	assert.Len(t, Filter(rows, model.Filters{Salesperson: "Non assigné"}), 4)
	assert.Len(t, Filter(rows, model.Filters{Salesperson: "non assigne"}), 4)
	assert.Len(t, Filter(rows, model.Filters{Salesperson: "0"}), 4)
	assert.Len(t, Filter(rows, model.Filters{Salesperson: "alice"}), 1)

	m := newTestAggregator(model.ViewAll).ComputeMetrics(rows, model.Filters{Salesperson: "Non assigné"})
	require.NotNil(t, m.BySalesperson["Non assigné"])
	assert.Equal(t, 4, m.BySalesperson["Non assigné"].LeadsGenerated)
}
