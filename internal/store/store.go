// Package store reads contract and project rows from the CRM data sources.
// Every reader performs full-table reads; filtering happens in memory.
package store

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/commission-cli/internal/model"
)

// Store is a read-only tabular source of contracts and projects.
type Store interface {
	FetchContracts(ctx context.Context) ([]model.ContractRecord, error)
	FetchProjects(ctx context.Context) ([]model.ProjectRecord, error)
	Close() error
}

// Snapshot is the full resident dataset of one fetch.
type Snapshot struct {
	Contracts []model.ContractRecord
	Projects  []model.ProjectRecord
	FetchedAt time.Time
}

// FetchAll reads both tables concurrently. Either failure fails the whole
// fetch; no partial snapshot is returned.
func FetchAll(ctx context.Context, s Store) (*Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		contracts, err := s.FetchContracts(gctx)
		if err != nil {
			return eris.Wrap(err, "store: fetch contracts")
		}
		snap.Contracts = contracts
		return nil
	})
	g.Go(func() error {
		projects, err := s.FetchProjects(gctx)
		if err != nil {
			return eris.Wrap(err, "store: fetch projects")
		}
		snap.Projects = projects
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	snap.FetchedAt = time.Now().UTC()
	return &snap, nil
}

// parseNumber reads a loosely formatted number: French decimal commas,
// thousands spaces, and trailing % or € are accepted. Anything else, NaN and
// infinities included, yields nil.
func parseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "%", "", "€", "").Replace(s)
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && comma > dot:
		// 1.234,56 or 12,5
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0:
		// 1,234.56
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"02/01/2006 15:04",
}

// parseDate reads the date formats found in CRM exports. Unparsable values
// yield nil.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
