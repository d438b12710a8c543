// Package store persists scoring runs to SQLite so successive pipeline
// executions can be compared. Schema changes go through migrations embedded
// in the binary.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/airside-data/difficulty.report/internal/flightops"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the run database.
type Store struct {
	*sql.DB
}

// Run is one scoring run's summary row.
type Run struct {
	ID                string
	StartedAt         time.Time
	FinishedAt        time.Time
	FlightCount       int
	DifficultCount    int
	ModelKind         string
	ConstantProb      sql.NullFloat64
	DelayThresholdMin int
}

// Model kinds recorded on a run.
const (
	ModelKindFitted   = "fitted"
	ModelKindConstant = "constant"
)

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// Open opens (creating if needed) the run database at path and applies any
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run database: %w", err)
	}
	s := &Store{db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// Don't close m: it would close the underlying DB connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// SaveRun records one run summary and its per-flight scores in a single
// transaction.
func (s *Store) SaveRun(run Run, flights []flightops.Flight) error {
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (run_id, started_at, finished_at, flight_count,
			difficult_count, model_kind, constant_prob, delay_threshold_min)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.FinishedAt, run.FlightCount,
		run.DifficultCount, run.ModelKind, run.ConstantProb, run.DelayThresholdMin,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO flight_scores (run_id, company_id, flight_number,
			scheduled_departure_airport_code, scheduled_arrival_airport_code,
			scheduled_departure_datetime, fds, fds_bucket, difficult)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare score insert: %w", err)
	}
	defer stmt.Close()

	for i := range flights {
		fl := &flights[i]
		difficult := 0
		if fl.Difficult {
			difficult = 1
		}
		_, err = stmt.Exec(
			run.ID, fl.Key.CompanyID, fl.Key.FlightNumber,
			fl.Key.DepAirport, fl.Key.ArrAirport,
			fl.SchedDep, fl.FDS, fl.FDSBucket, difficult,
		)
		if err != nil {
			return fmt.Errorf("insert score for %s %s: %w", fl.Key.CompanyID, fl.Key.FlightNumber, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save run: %w", err)
	}
	return nil
}

// ListRuns returns all recorded runs, most recent first.
func (s *Store) ListRuns() ([]Run, error) {
	rows, err := s.Query(`
		SELECT run_id, started_at, finished_at, flight_count, difficult_count,
			model_kind, constant_prob, delay_threshold_min
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.FlightCount,
			&r.DifficultCount, &r.ModelKind, &r.ConstantProb, &r.DelayThresholdMin)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// BucketCounts returns the severity bucket histogram for one run.
func (s *Store) BucketCounts(runID string) (map[string]int, error) {
	rows, err := s.Query(`
		SELECT fds_bucket, COUNT(*) FROM flight_scores
		WHERE run_id = ? GROUP BY fds_bucket`, runID)
	if err != nil {
		return nil, fmt.Errorf("bucket counts for %s: %w", runID, err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var bucket string
		var n int
		if err := rows.Scan(&bucket, &n); err != nil {
			return nil, fmt.Errorf("scan bucket row: %w", err)
		}
		out[bucket] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bucket counts: %w", err)
	}
	return out, nil
}
