package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/commission-cli/internal/commission"
	"github.com/sells-group/commission-cli/internal/model"
	"github.com/sells-group/commission-cli/internal/refresh"
)

// memStore is an in-memory store for the HTTP tests.
type memStore struct {
	mu        sync.Mutex
	contracts []model.ContractRecord
	projects  []model.ProjectRecord
	err       error
}

func (s *memStore) FetchContracts(context.Context) ([]model.ContractRecord, error) {
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

func testContract(id, salesperson, origin, subscribed string) model.ContractRecord {
	c := model.ContractRecord{
		ID:             id,
		MonthlyPremium: model.Float(100),
		Status:         "Actif",
		Project:        &model.ProjectLink{Salesperson: salesperson, Origin: origin},
	}
	if subscribed != "" {
		c.Project.SubscribedAt = model.Time(mustMonth(subscribed))
	}
	return c
}

func newTestServer(t *testing.T, s *memStore) (*httptest.Server, *refresh.Orchestrator) {
	t.Helper()
	agg := commission.NewAggregator(commission.NewCalculator(commission.DefaultRules()), model.ViewAll)
	orch := refresh.New(s, agg, refresh.WithInterval(0))
	_, _ = orch.Refresh(context.Background())

	ts := httptest.NewServer(newRouter(orch, []string{"*"}))
	t.Cleanup(ts.Close)
	return ts, orch
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, &memStore{})

	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := &memStore{
		contracts: []model.ContractRecord{
			testContract("c1", "SNOUSSI ZOUH", "fb", "2024-03"),
			testContract("c2", "DUPONT", "tiktok", "2024-04"),
		},
	}
	ts, orch := newTestServer(t, s)

	t.Run("current metrics", func(t *testing.T) {
		var m model.Metrics
		assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/metrics", &m))
		assert.Equal(t, 2, m.TotalContracts)
	})

	t.Run("ad hoc facets leave shared filters alone", func(t *testing.T) {
		var m model.Metrics
		assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/metrics?commercial=dupont", &m))
		assert.Equal(t, 1, m.TotalContracts)
		assert.Equal(t, "dupont", m.Filters.Salesperson)
		assert.Equal(t, "all", m.Filters.Month)
		assert.Equal(t, model.AllFilters(), orch.Filters())
	})

	t.Run("month facet", func(t *testing.T) {
		var m model.Metrics
		assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/metrics?mois=2024-03", &m))
		assert.Equal(t, 1, m.TotalContracts)
	})

	t.Run("bad month", func(t *testing.T) {
		var body map[string]string
		assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/metrics?mois=mars", &body))
		assert.Contains(t, body["error"], "invalid mois")
	})
}

func TestFiltersEndpoint(t *testing.T) {
	s := &memStore{
		contracts: []model.ContractRecord{
			testContract("c1", "SNOUSSI ZOUH", "fb", ""),
			testContract("c2", "DUPONT", "tiktok", ""),
		},
	}
	ts, orch := newTestServer(t, s)

	put := func(body string) *http.Response {
		req, err := http.NewRequest(http.MethodPut, ts.URL+"/filters", strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := put(`{"origine": "TikTok"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var m model.Metrics
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	assert.Equal(t, 1, m.TotalContracts)
	assert.Equal(t, "TikTok", orch.Filters().Origin)
	assert.Equal(t, "all", orch.Filters().Salesperson)
	assert.Equal(t, 1, orch.Metrics().TotalContracts)

	bad := put(`not json`)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestRefreshEndpoint(t *testing.T) {
	s := &memStore{contracts: []model.ContractRecord{testContract("c1", "DUPONT", "fb", "")}}
	ts, _ := newTestServer(t, s)

	s.mu.Lock()
	s.contracts = append(s.contracts, testContract("c2", "DUPONT", "fb", ""))
	s.mu.Unlock()

	resp, err := http.Post(ts.URL+"/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var m model.Metrics
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	assert.Equal(t, 2, m.TotalContracts)
}

func TestRefreshEndpoint_LoadFailure(t *testing.T) {
	s := &memStore{contracts: []model.ContractRecord{testContract("c1", "DUPONT", "fb", "")}}
	ts, orch := newTestServer(t, s)

	s.mu.Lock()
	s.err = errors.New("connection refused")
	s.mu.Unlock()

	resp, err := http.Post(ts.URL+"/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "data load failed", body["error"])

	// Prior metrics stay in place.
	assert.Equal(t, 1, orch.Metrics().TotalContracts)

	var st refresh.Status
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/status", &st))
	assert.Equal(t, "data load failed", st.LastError)
	assert.Equal(t, uint64(1), st.Generation)
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t, &memStore{})

	tests := []struct {
		name   string
		path   string
		method string
	}{
		{"metrics get", "/metrics", http.MethodGet},
		{"refresh post", "/refresh", http.MethodPost},
		{"filters put", "/filters", http.MethodPut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodOptions, ts.URL+tt.path, nil)
			require.NoError(t, err)
			req.Header.Set("Origin", "https://crm.example.com")
			req.Header.Set("Access-Control-Request-Method", tt.method)
			req.Header.Set("Access-Control-Request-Headers", "Content-Type")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
			assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), tt.method)
		})
	}
}
