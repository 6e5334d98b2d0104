// Package sqlstore keeps toy fit results in PostgreSQL or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/names"
	"github.com/sawpanic/prewutils/internal/persistence"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	chain       TEXT NOT NULL,
	seed        BIGINT NOT NULL,
	n_toys      INTEGER NOT NULL,
	energies    TEXT NOT NULL,
	created_at  BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS toys (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	energy      INTEGER NOT NULL,
	toy         INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	chi2        DOUBLE PRECISION NOT NULL,
	n_bins      INTEGER NOT NULL,
	evaluations INTEGER NOT NULL,
	iterations  INTEGER NOT NULL,
	converged   BOOLEAN NOT NULL,
	seed        BIGINT NOT NULL,
	elapsed_ns  BIGINT NOT NULL,
	pars        TEXT NOT NULL,
	PRIMARY KEY (run_id, energy, toy)
);`

type runRow struct {
	ID        string `db:"id"`
	Chain     string `db:"chain"`
	Seed      int64  `db:"seed"`
	NToys     int    `db:"n_toys"`
	Energies  string `db:"energies"`
	CreatedAt int64  `db:"created_at"`
}

type toyRow struct {
	RunID       string  `db:"run_id"`
	Energy      int     `db:"energy"`
	Toy         int     `db:"toy"`
	Kind        string  `db:"kind"`
	Chi2        float64 `db:"chi2"`
	NBins       int     `db:"n_bins"`
	Evaluations int     `db:"evaluations"`
	Iterations  int     `db:"iterations"`
	Converged   bool    `db:"converged"`
	Seed        int64   `db:"seed"`
	ElapsedNS   int64   `db:"elapsed_ns"`
	Pars        string  `db:"pars"`
}

// Store implements persistence.ResultStore on a SQL database.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open connects to the database and creates missing tables.
func Open(ctx context.Context, driver, dsn string, timeout time.Duration) (*Store, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// in-memory databases exist per connection
		db.SetMaxOpenConns(1)
	}
	s := New(db, timeout)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func New(db *sqlx.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	log.Debug().Str("driver", s.db.DriverName()).Msg("Result tables ready")
	return nil
}

func (s *Store) SaveRun(ctx context.Context, run persistence.Run) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	energies, err := json.Marshal(run.Energies)
	if err != nil {
		return fmt.Errorf("failed to marshal energies: %w", err)
	}
	row := runRow{
		ID:        run.ID,
		Chain:     run.Chain,
		Seed:      int64(run.Seed),
		NToys:     run.NToys,
		Energies:  string(energies),
		CreatedAt: run.CreatedAt.UnixNano(),
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO runs (id, chain, seed, n_toys, energies, created_at)
		VALUES (:id, :chain, :seed, :n_toys, :energies, :created_at)`, row)
	if err != nil {
		return wrapInsert("run", err)
	}
	return nil
}

func (s *Store) LoadRun(ctx context.Context, id string) (persistence.Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row runRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT id, chain, seed, n_toys, energies, created_at
		FROM runs WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Run{}, fmt.Errorf("run %s: %w", id, persistence.ErrNotFound)
	}
	if err != nil {
		return persistence.Run{}, fmt.Errorf("failed to query run: %w", err)
	}

	run := persistence.Run{
		ID:        row.ID,
		Chain:     row.Chain,
		Seed:      uint64(row.Seed),
		NToys:     row.NToys,
		CreatedAt: time.Unix(0, row.CreatedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(row.Energies), &run.Energies); err != nil {
		return persistence.Run{}, fmt.Errorf("failed to unmarshal energies: %w", err)
	}
	return run, nil
}

// SaveToys inserts all results in one transaction.
func (s *Store) SaveToys(ctx context.Context, runID string, energy int, results []fit.Result) error {
	if len(results) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout*time.Duration(len(results)/100+1))
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO toys (run_id, energy, toy, kind, chi2, n_bins, evaluations, iterations, converged, seed, elapsed_ns, pars)
		VALUES (:run_id, :energy, :toy, :kind, :chi2, :n_bins, :evaluations, :iterations, :converged, :seed, :elapsed_ns, :pars)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		pars, err := json.Marshal(res.Pars)
		if err != nil {
			return fmt.Errorf("failed to marshal pars of toy %d: %w", res.Toy, err)
		}
		row := toyRow{
			RunID:       runID,
			Energy:      energy,
			Toy:         res.Toy,
			Kind:        res.Kind.String(),
			Chi2:        res.Chi2,
			NBins:       res.NBins,
			Evaluations: res.Evaluations,
			Iterations:  res.Iterations,
			Converged:   res.Converged,
			Seed:        int64(res.Seed),
			ElapsedNS:   res.Elapsed.Nanoseconds(),
			Pars:        string(pars),
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return wrapInsert(fmt.Sprintf("toy %d", res.Toy), err)
		}
	}
	return tx.Commit()
}

func (s *Store) LoadToys(ctx context.Context, runID string, energy int) ([]fit.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []toyRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT run_id, energy, toy, kind, chi2, n_bins, evaluations, iterations, converged, seed, elapsed_ns, pars
		FROM toys WHERE run_id = ? AND energy = ?
		ORDER BY toy`), runID, energy)
	if err != nil {
		return nil, fmt.Errorf("failed to query toys: %w", err)
	}

	out := make([]fit.Result, 0, len(rows))
	for _, row := range rows {
		kind, err := names.ParseMinimizerKind(row.Kind)
		if err != nil {
			return nil, fmt.Errorf("toy %d: %w", row.Toy, err)
		}
		res := fit.Result{
			Kind:        kind,
			Chi2:        row.Chi2,
			NBins:       row.NBins,
			Evaluations: row.Evaluations,
			Iterations:  row.Iterations,
			Converged:   row.Converged,
			Toy:         row.Toy,
			Seed:        uint64(row.Seed),
			Elapsed:     time.Duration(row.ElapsedNS),
		}
		if err := json.Unmarshal([]byte(row.Pars), &res.Pars); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pars of toy %d: %w", row.Toy, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func wrapInsert(what string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", what, persistence.ErrDuplicate)
	}
	return fmt.Errorf("failed to insert %s: %w", what, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
