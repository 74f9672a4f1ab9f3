package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sells-group/commission-cli/internal/commission"
	"github.com/sells-group/commission-cli/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func activeContract(id, salesperson, origin string) model.ContractRecord {
	return model.ContractRecord{
		ID:             id,
		MonthlyPremium: model.Float(100),
		RateYear1:      model.Float(0.3),
		RateRecurring:  model.Float(0.1),
		Status:         "Actif",
		Project:        &model.ProjectLink{Salesperson: salesperson, Origin: origin},
	}
}

// memStore serves fixed rows and counts fetches.
type memStore struct {
	mu        sync.Mutex
	contracts []model.ContractRecord
	projects  []model.ProjectRecord
	err       error
	fetches   atomic.Int32
}

func (s *memStore) FetchContracts(context.Context) ([]model.ContractRecord, error) {
	s.fetches.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contracts, s.err
}

func (s *memStore) FetchProjects(context.Context) ([]model.ProjectRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects, nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func newAggregator() *commission.Aggregator {
	return commission.NewAggregator(commission.NewCalculator(commission.DefaultRules()), model.ViewAll)
}

func TestNew_EmptyMetricsBeforeFirstLoad(t *testing.T) {
	o := New(&memStore{}, newAggregator())

	m := o.Metrics()
	require.NotNil(t, m)
	assert.Zero(t, m.TotalContracts)
	assert.Empty(t, m.ByOrigin)
	assert.NotNil(t, m.Anomalies)
	assert.False(t, o.Status().Loading)
}

func TestRefresh_LoadsAndComputes(t *testing.T) {
	s := &memStore{
		contracts: []model.ContractRecord{activeContract("c1", "SNOUSSI ZOUH", "fb")},
		projects:  []model.ProjectRecord{{ID: "p1", Salesperson: "SNOUSSI ZOUH", Origin: "fb"}},
	}
	var updates atomic.Int32
	o := New(s, newAggregator(), OnUpdate(func(*model.Metrics) { updates.Add(1) }))

	m, err := o.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalContracts)
	assert.Equal(t, 1, m.TotalProjects)
	assert.False(t, m.ComputedAt.IsZero())
	assert.Same(t, m, o.Metrics())
	assert.Equal(t, int32(1), updates.Load())

	st := o.Status()
	assert.Equal(t, uint64(1), st.Generation)
	assert.NotEmpty(t, st.CycleID)
	assert.Empty(t, st.LastError)
	assert.Equal(t, 1, st.Contracts)
	assert.Equal(t, 1, st.Projects)
}

func TestRefresh_FailureKeepsPriorMetrics(t *testing.T) {
	s := &memStore{contracts: []model.ContractRecord{activeContract("c1", "DUPONT", "site")}}
	o := New(s, newAggregator())

	before, err := o.Refresh(context.Background())
	require.NoError(t, err)

	s.setErr(errors.New("connection refused"))
	after, err := o.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.Contains(t, err.Error(), "connection refused")

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.NotEmpty(t, loadErr.CycleID)

	assert.Same(t, before, after)
	assert.Same(t, before, o.Metrics())
	assert.Equal(t, "data load failed", o.Status().LastError)

	// The next successful cycle clears the error.
	s.setErr(nil)
	_, err = o.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, o.Status().LastError)
}

func TestSetFilters_RecomputesWithoutFetch(t *testing.T) {
	s := &memStore{
		contracts: []model.ContractRecord{
			activeContract("c1", "SNOUSSI ZOUH", "fb"),
			activeContract("c2", "DUPONT", "tiktok"),
		},
	}
	o := New(s, newAggregator())
	_, err := o.Refresh(context.Background())
	require.NoError(t, err)
	fetches := s.fetches.Load()

	f := model.AllFilters()
	f.Salesperson = "DUPONT"
	m := o.SetFilters(f)

	assert.Equal(t, 1, m.TotalContracts)
	assert.Equal(t, "DUPONT", m.Filters.Salesperson)
	assert.Equal(t, fetches, s.fetches.Load())
	assert.Equal(t, f, o.Filters())

	// Filters survive the next fetch.
	m, err = o.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalContracts)
}

func TestCompute_DoesNotChangeState(t *testing.T) {
	s := &memStore{
		contracts: []model.ContractRecord{
			activeContract("c1", "SNOUSSI ZOUH", "fb"),
			activeContract("c2", "DUPONT", "tiktok"),
		},
	}
	o := New(s, newAggregator())
	current, err := o.Refresh(context.Background())
	require.NoError(t, err)

	f := model.AllFilters()
	f.Origin = string(model.OriginTikTok)
	m := o.Compute(f)
	assert.Equal(t, 1, m.TotalContracts)
	assert.Same(t, current, o.Metrics())
	assert.Equal(t, model.AllFilters(), o.Filters())
}

// gatedStore blocks each contracts fetch until its gate is released.
type gatedStore struct {
	calls   atomic.Int32
	started chan int
	gates   []chan []model.ContractRecord
}

func (s *gatedStore) FetchContracts(ctx context.Context) ([]model.ContractRecord, error) {
	n := int(s.calls.Add(1)) - 1
	s.started <- n
	select {
	case rows := <-s.gates[n]:
		return rows, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *gatedStore) FetchProjects(context.Context) ([]model.ProjectRecord, error) {
	return nil, nil
}

func (s *gatedStore) Close() error { return nil }

func TestRefresh_StaleFetchDiscarded(t *testing.T) {
	s := &gatedStore{
		started: make(chan int, 2),
		gates:   []chan []model.ContractRecord{make(chan []model.ContractRecord, 1), make(chan []model.ContractRecord, 1)},
	}
	o := New(s, newAggregator())

	// First fetch starts and stalls.
	older := make(chan *model.Metrics, 1)
	go func() {
		m, _ := o.Refresh(context.Background())
		older <- m
	}()
	require.Equal(t, 0, <-s.started)

	// Second fetch starts later but completes first.
	newer := make(chan *model.Metrics, 1)
	go func() {
		m, _ := o.Refresh(context.Background())
		newer <- m
	}()
	require.Equal(t, 1, <-s.started)
	s.gates[1] <- []model.ContractRecord{
		activeContract("c1", "DUPONT", "fb"),
		activeContract("c2", "DUPONT", "fb"),
	}
	applied := <-newer
	assert.Equal(t, 2, applied.TotalContracts)

	// The older fetch completes afterwards and must not overwrite.
	s.gates[0] <- []model.ContractRecord{activeContract("c3", "MARTIN", "tiktok")}
	assert.Same(t, applied, <-older)
	assert.Equal(t, 2, o.Metrics().TotalContracts)
	assert.Equal(t, uint64(2), o.Status().Generation)
}

func TestStart_InitialFetchAndTicks(t *testing.T) {
	s := &memStore{contracts: []model.ContractRecord{activeContract("c1", "DUPONT", "fb")}}
	updated := make(chan *model.Metrics, 16)
	o := New(s, newAggregator(),
		WithInterval(10*time.Millisecond),
		OnUpdate(func(m *model.Metrics) {
			select {
			case updated <- m:
			default:
			}
		}),
	)

	stop := o.Start(context.Background())
	for i := 0; i < 3; i++ {
		select {
		case m := <-updated:
			assert.Equal(t, 1, m.TotalContracts)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for refresh")
		}
	}
	stop()
	stop()

	assert.GreaterOrEqual(t, s.fetches.Load(), int32(3))
}

func TestStart_ZeroIntervalFetchesOnce(t *testing.T) {
	s := &memStore{}
	done := make(chan struct{}, 1)
	o := New(s, newAggregator(),
		WithInterval(0),
		OnUpdate(func(*model.Metrics) { done <- struct{}{} }),
	)

	stop := o.Start(context.Background())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial fetch")
	}
	stop()
	assert.Equal(t, int32(1), s.fetches.Load())
}

func TestStart_StopCancelsInFlightFetch(t *testing.T) {
	s := &gatedStore{
		started: make(chan int, 1),
		gates:   []chan []model.ContractRecord{make(chan []model.ContractRecord)},
	}
	o := New(s, newAggregator())

	stop := o.Start(context.Background())
	<-s.started
	stop()

	assert.Empty(t, o.Status().LastError)
	assert.Zero(t, o.Metrics().TotalContracts)
}

func TestStart_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	o := New(&memStore{}, newAggregator(), WithInterval(5*time.Millisecond))

	stop := o.Start(ctx)
	cancel()
	stop()
}
