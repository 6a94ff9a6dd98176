package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/hazard-cli/internal/db"
	"github.com/sells-group/hazard-cli/internal/model"
)

// PostgresStore implements Store using pgxpool. Besides the run row it
// copies every per-zone impact into run_zone_impacts for SQL-side reporting.
type PostgresStore struct {
	pool db.Pool
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

	maxConns := int32(10)
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
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS hazard_runs (
	id            TEXT PRIMARY KEY,
	scenario_name TEXT NOT NULL,
	seed          BIGINT NOT NULL,
	status        TEXT NOT NULL,
	version       INTEGER NOT NULL DEFAULT 0,
	result        JSONB,
	footprint     BYTEA,
	error         TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_zone_impacts (
	run_id          TEXT NOT NULL REFERENCES hazard_runs(id) ON DELETE CASCADE,
	zone_id         TEXT NOT NULL,
	population      INTEGER NOT NULL,
	affected_est    INTEGER NOT NULL,
	impact_fraction DOUBLE PRECISION NOT NULL,
	generated       BOOLEAN NOT NULL DEFAULT false,
	PRIMARY KEY (run_id, zone_id)
);

CREATE INDEX IF NOT EXISTS idx_hazard_runs_scenario ON hazard_runs(scenario_name, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_hazard_runs_status ON hazard_runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var zoneImpactColumns = []string{"run_id", "zone_id", "population", "affected_est", "impact_fraction", "generated"}

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run) error {
	prepare(run)
	result, footprint, version, err := encodeResult(run)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save run")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO hazard_runs (id, scenario_name, seed, status, version, result, footprint, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.ScenarioName, int64(run.Seed), string(run.Status), version, result, footprint, nullable(run.Error), run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	if _, err := db.CopyFrom(ctx, tx, "run_zone_impacts", zoneImpactColumns, zoneImpactRows(run)); err != nil {
		return eris.Wrapf(err, "postgres: copy zone impacts for run %s", run.ID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save run")
}

// zoneImpactRows flattens the per-zone impacts of run in zone id order.
func zoneImpactRows(run *model.Run) [][]any {
	if run.Result == nil || len(run.Result.ImpactByZone) == 0 {
		return nil
	}
	generated := make(map[string]bool, len(run.Result.GeneratedZones))
	for _, z := range run.Result.GeneratedZones {
		generated[z.ID] = true
	}
	ids := make([]string, 0, len(run.Result.ImpactByZone))
	for id := range run.Result.ImpactByZone {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]any, 0, len(ids))
	for _, id := range ids {
		zi := run.Result.ImpactByZone[id]
		rows = append(rows, []any{run.ID, id, zi.Population, zi.AffectedEst, zi.ImpactFraction, generated[id]})
	}
	return rows
}

const postgresRunColumns = `id, scenario_name, seed, status, result, footprint, COALESCE(error, ''), created_at`

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+postgresRunColumns+` FROM hazard_runs WHERE id = $1`, id)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}
	if filter.ScenarioName != "" {
		where = append(where, "scenario_name = "+arg(filter.ScenarioName))
	}
	if !filter.CreatedAfter.IsZero() {
		where = append(where, "created_at > "+arg(filter.CreatedAfter))
	}

	query := `SELECT ` + postgresRunColumns + ` FROM hazard_runs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, version DESC LIMIT ` + arg(listLimit(filter))
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) LatestRun(ctx context.Context, scenarioName string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresRunColumns+` FROM hazard_runs
		 WHERE scenario_name = $1 AND status <> $2
		 ORDER BY created_at DESC, version DESC LIMIT 1`,
		scenarioName, string(model.RunStatusFailed),
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest run %s", scenarioName)
	}
	return r, nil
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var (
		r         model.Run
		seed      int64
		status    string
		result    []byte
		footprint []byte
		errText   string
	)
	if err := row.Scan(&r.ID, &r.ScenarioName, &seed, &status, &result, &footprint, &errText, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Seed = uint64(seed)
	r.Status = model.RunStatus(status)
	r.Error = errText

	res, err := decodeResult(result, footprint)
	if err != nil {
		return nil, err
	}
	r.Result = res
	return &r, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
