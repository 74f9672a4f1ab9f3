// Package refresh keeps commission metrics current: it fetches the CRM rows on
// a fixed interval, recomputes on filter changes and discards fetches that
// finish after a newer one was applied.
package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/commission-cli/internal/commission"
	"github.com/sells-group/commission-cli/internal/model"
	"github.com/sells-group/commission-cli/internal/store"
)

// DefaultInterval is the periodic re-fetch interval.
const DefaultInterval = 30 * time.Second

// ErrLoadFailed marks a refresh cycle whose fetch failed. Metrics from the
// previous successful cycle stay in place.
var ErrLoadFailed = errors.New("data load failed")

// LoadError reports a failed fetch. errors.Is(err, ErrLoadFailed) holds.
type LoadError struct {
	CycleID string
	Err     error
}

func (e *LoadError) Error() string { return ErrLoadFailed.Error() + ": " + e.Err.Error() }

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoadFailed }

// Status describes the last refresh cycles.
type Status struct {
	Loading     bool          `json:"loading"`
	Generation  uint64        `json:"generation"`
	CycleID     string        `json:"cycle_id,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
	FetchedAt   time.Time     `json:"fetched_at"`
	ComputedAt  time.Time     `json:"computed_at"`
	Contracts   int           `json:"contracts"`
	Projects    int           `json:"projects"`
	Filters     model.Filters `json:"filters"`
	IntervalSec float64       `json:"interval_secs"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithInterval sets the periodic re-fetch interval. Zero disables the timer;
// refreshes then only happen through Refresh.
func WithInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.interval = d
		}
	}
}

// WithFilters sets the initial filters.
func WithFilters(f model.Filters) Option {
	return func(o *Orchestrator) { o.filters = f }
}

// OnUpdate registers a callback invoked after new metrics are applied. It runs
// outside the orchestrator lock and must not block for long.
func OnUpdate(fn func(*model.Metrics)) Option {
	return func(o *Orchestrator) { o.onUpdate = fn }
}

// Orchestrator owns the resident rows and the current metrics.
type Orchestrator struct {
	store    store.Store
	agg      *commission.Aggregator
	interval time.Duration
	onUpdate func(*model.Metrics)
	log      *zap.Logger

	issued   atomic.Uint64
	inFlight atomic.Int32

	mu        sync.RWMutex
	applied   uint64
	rows      []model.Row
	filters   model.Filters
	metrics   *model.Metrics
	cycleID   string
	lastErr   error
	fetchedAt time.Time
	contracts int
	projects  int
}

// New creates an Orchestrator reading from s and aggregating with agg.
func New(s store.Store, agg *commission.Aggregator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    s,
		agg:      agg,
		interval: DefaultInterval,
		filters:  model.AllFilters(),
		log:      zap.L().With(zap.String("component", "refresh.orchestrator")),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.metrics = o.compute(nil, o.filters)
	return o
}

// Start performs the initial fetch, then re-fetches on every tick until the
// returned stop function is called or ctx is cancelled. Stop waits for the
// loop to exit and is safe to call more than once.
func (o *Orchestrator) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		o.run(ctx)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func (o *Orchestrator) run(ctx context.Context) {
	o.log.Info("starting refresh loop", zap.Duration("interval", o.interval))

	o.cycle(ctx)

	if o.interval <= 0 {
		<-ctx.Done()
		o.log.Info("refresh loop stopped")
		return
	}

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.log.Info("refresh loop stopped")
			return
		case <-ticker.C:
			o.cycle(ctx)
		}
	}
}

// cycle runs one timer-driven refresh. Failures are recorded in the status.
func (o *Orchestrator) cycle(ctx context.Context) {
	if _, err := o.Refresh(ctx); err != nil && ctx.Err() == nil {
		o.log.Warn("refresh: cycle failed", zap.Error(err))
	}
}

// Refresh fetches both tables and recomputes the metrics with the current
// filters. It returns the metrics in effect afterwards. A fetch that completes
// after a newer fetch was applied is discarded without touching state.
func (o *Orchestrator) Refresh(ctx context.Context) (*model.Metrics, error) {
	gen := o.issued.Add(1)
	cycleID := uuid.New().String()
	log := o.log.With(zap.Uint64("generation", gen), zap.String("cycle_id", cycleID))

	o.inFlight.Add(1)
	defer o.inFlight.Add(-1)

	start := time.Now()
	snap, err := store.FetchAll(ctx, o.store)

	o.mu.Lock()
	if gen < o.applied {
		current, applied := o.metrics, o.applied
		o.mu.Unlock()
		log.Debug("refresh: discarding stale fetch", zap.Uint64("applied", applied))
		return current, nil
	}
	if err != nil {
		// A cancelled caller is not a load failure worth reporting.
		if ctx.Err() == nil {
			o.lastErr = err
			o.cycleID = cycleID
		}
		current := o.metrics
		o.mu.Unlock()
		return current, &LoadError{CycleID: cycleID, Err: err}
	}

	rows := commission.Classify(snap.Contracts, snap.Projects)
	m := o.compute(rows, o.filters)
	o.applied = gen
	o.rows = rows
	o.metrics = m
	o.cycleID = cycleID
	o.lastErr = nil
	o.fetchedAt = snap.FetchedAt
	o.contracts = len(snap.Contracts)
	o.projects = len(snap.Projects)
	o.mu.Unlock()

	log.Info("refresh: metrics updated",
		zap.Int("contracts", len(snap.Contracts)),
		zap.Int("projects", len(snap.Projects)),
		zap.Int("anomalies", len(m.Anomalies)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if o.onUpdate != nil {
		o.onUpdate(m)
	}
	return m, nil
}

// SetFilters replaces the filters and recomputes synchronously over the rows
// already in memory. No fetch happens.
func (o *Orchestrator) SetFilters(f model.Filters) *model.Metrics {
	o.mu.Lock()
	o.filters = f
	m := o.compute(o.rows, f)
	o.metrics = m
	o.mu.Unlock()

	if o.onUpdate != nil {
		o.onUpdate(m)
	}
	return m
}

// Compute aggregates the resident rows with f without changing the current
// filters or metrics.
func (o *Orchestrator) Compute(f model.Filters) *model.Metrics {
	o.mu.RLock()
	rows := o.rows
	o.mu.RUnlock()
	return o.compute(rows, f)
}

// Metrics returns the current metrics. The value is shared and must be
// treated as read-only.
func (o *Orchestrator) Metrics() *model.Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.metrics
}

// Filters returns the filters in effect.
func (o *Orchestrator) Filters() model.Filters {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.filters
}

// Status reports the state of the last refresh cycles.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()

	st := Status{
		Loading:     o.inFlight.Load() > 0,
		Generation:  o.applied,
		CycleID:     o.cycleID,
		FetchedAt:   o.fetchedAt,
		ComputedAt:  o.metrics.ComputedAt,
		Contracts:   o.contracts,
		Projects:    o.projects,
		Filters:     o.filters,
		IntervalSec: o.interval.Seconds(),
	}
	if o.lastErr != nil {
		st.LastError = ErrLoadFailed.Error()
	}
	return st
}

func (o *Orchestrator) compute(rows []model.Row, f model.Filters) *model.Metrics {
	m := o.agg.ComputeMetrics(rows, f)
	m.ComputedAt = time.Now().UTC()
	return m
}
