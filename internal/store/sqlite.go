package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/hazard-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
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
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS hazard_runs (
	id            TEXT PRIMARY KEY,
	scenario_name TEXT NOT NULL,
	seed          INTEGER NOT NULL,
	status        TEXT NOT NULL,
	version       INTEGER NOT NULL DEFAULT 0,
	result        TEXT,
	footprint     BLOB,
	error         TEXT,
	created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_hazard_runs_scenario ON hazard_runs(scenario_name, created_at);
CREATE INDEX IF NOT EXISTS idx_hazard_runs_status ON hazard_runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	prepare(run)
	result, footprint, version, err := encodeResult(run)
	if err != nil {
		return err
	}

	var resultText sql.NullString
	if result != nil {
		resultText = sql.NullString{String: string(result), Valid: true}
	}
	var errText sql.NullString
	if run.Error != "" {
		errText = sql.NullString{String: run.Error, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO hazard_runs (id, scenario_name, seed, status, version, result, footprint, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ScenarioName, int64(run.Seed), string(run.Status), version, resultText, footprint, errText, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}
	return nil
}

const sqliteRunColumns = `id, scenario_name, seed, status, result, footprint, error, created_at`

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM hazard_runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", id)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM hazard_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.ScenarioName != "" {
		query += ` AND scenario_name = ?`
		args = append(args, filter.ScenarioName)
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC, version DESC LIMIT ?`
	args = append(args, listLimit(filter))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) LatestRun(ctx context.Context, scenarioName string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM hazard_runs
		 WHERE scenario_name = ? AND status != ?
		 ORDER BY created_at DESC, version DESC LIMIT 1`,
		scenarioName, string(model.RunStatusFailed),
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest run %s", scenarioName)
	}
	return r, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var (
		r         model.Run
		seed      int64
		status    string
		result    sql.NullString
		footprint []byte
		errText   sql.NullString
	)
	if err := row.Scan(&r.ID, &r.ScenarioName, &seed, &status, &result, &footprint, &errText, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Seed = uint64(seed)
	r.Status = model.RunStatus(status)
	r.Error = errText.String

	res, err := decodeResult([]byte(result.String), footprint)
	if err != nil {
		return nil, err
	}
	r.Result = res
	return &r, nil
}
