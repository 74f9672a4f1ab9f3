package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/commission-cli/internal/db"
	"github.com/sells-group/commission-cli/internal/model"
)

// PostgresStore reads the CRM tables of the hosted Postgres database.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// The reader issues two queries per refresh; a small pool is plenty.
	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const contractsQuery = `
SELECT c.id::text,
       c.prime_brute_mensuelle::float8,
       c.commissionnement_annee1::float8,
       c.commissionnement_autres_annees::float8,
       COALESCE(c.statut, ''),
       COALESCE(c.compagnie, ''),
       p.projet_id IS NOT NULL,
       COALESCE(p.statut, ''),
       COALESCE(p.commercial, ''),
       COALESCE(p.origine, ''),
       p.date_creation,
       p.date_souscription,
       COALESCE(ct.code_postal, ''),
       COALESCE(ct.ville, '')
FROM contrats c
LEFT JOIN projets p ON p.projet_id = c.projet_id
LEFT JOIN contacts ct ON ct.identifiant = p.contact_id`

const projectsQuery = `
SELECT p.projet_id::text,
       COALESCE(p.commercial, ''),
       COALESCE(p.origine, ''),
       p.date_creation,
       COALESCE(p.statut, ''),
       COALESCE(ct.code_postal, '')
FROM projets p
LEFT JOIN contacts ct ON ct.identifiant = p.contact_id`

func (s *PostgresStore) FetchContracts(ctx context.Context) ([]model.ContractRecord, error) {
	rows, err := s.pool.Query(ctx, contractsQuery)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query contracts")
	}
	defer rows.Close()

	var out []model.ContractRecord
	for rows.Next() {
		var (
			c          model.ContractRecord
			hasProject bool
			link       model.ProjectLink
		)
		if err := rows.Scan(
			&c.ID, &c.MonthlyPremium, &c.RateYear1, &c.RateRecurring,
			&c.Status, &c.Carrier,
			&hasProject, &c.ProjectStatus, &link.Salesperson, &link.Origin,
			&link.CreatedAt, &link.SubscribedAt,
			&c.PostalCode, &c.City,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contract")
		}
		if hasProject {
			c.Project = &link
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate contracts")
	}
	return out, nil
}

func (s *PostgresStore) FetchProjects(ctx context.Context) ([]model.ProjectRecord, error) {
	rows, err := s.pool.Query(ctx, projectsQuery)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query projects")
	}
	defer rows.Close()

	var out []model.ProjectRecord
	for rows.Next() {
		var p model.ProjectRecord
		if err := rows.Scan(&p.ID, &p.Salesperson, &p.Origin, &p.CreatedAt, &p.Status, &p.PostalCode); err != nil {
			return nil, eris.Wrap(err, "postgres: scan project")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate projects")
	}
	return out, nil
}
