package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/commission-cli/internal/model"
)

// SQLiteStore keeps a local snapshot of the CRM tables for offline analysis.
// It is read like any other store and written by the snapshot command.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Dates are stored as RFC 3339 text so they round-trip independently of the
// driver's column affinity handling.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contrats (
	id                             TEXT PRIMARY KEY,
	prime_brute_mensuelle          REAL,
	commissionnement_annee1        REAL,
	commissionnement_autres_annees REAL,
	statut                         TEXT NOT NULL DEFAULT '',
	compagnie                      TEXT NOT NULL DEFAULT '',
	has_projet                     INTEGER NOT NULL DEFAULT 0,
	statut_projet                  TEXT NOT NULL DEFAULT '',
	commercial                     TEXT NOT NULL DEFAULT '',
	origine                        TEXT NOT NULL DEFAULT '',
	date_creation                  TEXT,
	date_souscription              TEXT,
	code_postal                    TEXT NOT NULL DEFAULT '',
	ville                          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS projets (
	id            TEXT PRIMARY KEY,
	commercial    TEXT NOT NULL DEFAULT '',
	origine       TEXT NOT NULL DEFAULT '',
	date_creation TEXT,
	statut        TEXT NOT NULL DEFAULT '',
	code_postal   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS snapshot_meta (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	source     TEXT NOT NULL,
	taken_at   TEXT NOT NULL
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Replace swaps the stored snapshot for the given rows in one transaction.
// Records without an ID get a generated one.
func (s *SQLiteStore) Replace(ctx context.Context, source string, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range []string{"DELETE FROM contrats", "DELETE FROM projets"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "sqlite: %s", stmt)
		}
	}

	insContract, err := tx.PrepareContext(ctx, `INSERT INTO contrats (
		id, prime_brute_mensuelle, commissionnement_annee1, commissionnement_autres_annees,
		statut, compagnie, has_projet, statut_projet, commercial, origine,
		date_creation, date_souscription, code_postal, ville
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare contract insert")
	}
	defer insContract.Close()

	for _, c := range snap.Contracts {
		var link model.ProjectLink
		if c.Project != nil {
			link = *c.Project
		}
		if _, err := insContract.ExecContext(ctx,
			idOrNew(c.ID), nullFloat(c.MonthlyPremium), nullFloat(c.RateYear1), nullFloat(c.RateRecurring),
			c.Status, c.Carrier, c.Project != nil, c.ProjectStatus, link.Salesperson, link.Origin,
			nullTime(link.CreatedAt), nullTime(link.SubscribedAt), c.PostalCode, c.City,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert contract %s", c.ID)
		}
	}

	insProject, err := tx.PrepareContext(ctx,
		`INSERT INTO projets (id, commercial, origine, date_creation, statut, code_postal) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare project insert")
	}
	defer insProject.Close()

	for _, p := range snap.Projects {
		if _, err := insProject.ExecContext(ctx,
			idOrNew(p.ID), p.Salesperson, p.Origin, nullTime(p.CreatedAt), p.Status, p.PostalCode,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert project %s", p.ID)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshot_meta (id, source, taken_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET source = excluded.source, taken_at = excluded.taken_at`,
		source, snap.FetchedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return eris.Wrap(err, "sqlite: write snapshot meta")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit snapshot")
}

func (s *SQLiteStore) FetchContracts(ctx context.Context) ([]model.ContractRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, prime_brute_mensuelle, commissionnement_annee1, commissionnement_autres_annees,
		statut, compagnie, has_projet, statut_projet, commercial, origine,
		date_creation, date_souscription, code_postal, ville
	FROM contrats`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query contracts")
	}
	defer rows.Close()

	var out []model.ContractRecord
	for rows.Next() {
		var (
			c                     model.ContractRecord
			premium, r1, r2       sql.NullFloat64
			hasProject            bool
			link                  model.ProjectLink
			createdAt, subscribed sql.NullString
		)
		if err := rows.Scan(
			&c.ID, &premium, &r1, &r2,
			&c.Status, &c.Carrier, &hasProject, &c.ProjectStatus, &link.Salesperson, &link.Origin,
			&createdAt, &subscribed, &c.PostalCode, &c.City,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contract")
		}
		c.MonthlyPremium = floatPtr(premium)
		c.RateYear1 = floatPtr(r1)
		c.RateRecurring = floatPtr(r2)
		if hasProject {
			link.CreatedAt = timePtr(createdAt)
			link.SubscribedAt = timePtr(subscribed)
			c.Project = &link
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate contracts")
}

func (s *SQLiteStore) FetchProjects(ctx context.Context) ([]model.ProjectRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, commercial, origine, date_creation, statut, code_postal FROM projets`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query projects")
	}
	defer rows.Close()

	var out []model.ProjectRecord
	for rows.Next() {
		var (
			p         model.ProjectRecord
			createdAt sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Salesperson, &p.Origin, &createdAt, &p.Status, &p.PostalCode); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan project")
		}
		p.CreatedAt = timePtr(createdAt)
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate projects")
}

// SnapshotInfo returns the source name and time of the stored snapshot.
// Returns an empty source when nothing was snapshotted yet.
func (s *SQLiteStore) SnapshotInfo(ctx context.Context) (string, time.Time, error) {
	var source, takenAt string
	err := s.db.QueryRowContext(ctx, `SELECT source, taken_at FROM snapshot_meta WHERE id = 1`).Scan(&source, &takenAt)
	if eris.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, eris.Wrap(err, "sqlite: read snapshot meta")
	}
	t, err := time.Parse(time.RFC3339, takenAt)
	if err != nil {
		return "", time.Time{}, eris.Wrap(err, "sqlite: parse snapshot time")
	}
	return source, t, nil
}

func idOrNew(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func timePtr(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	return parseDate(v.String)
}
