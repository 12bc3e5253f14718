// Package store persists run summaries and per-entity launch statistics in a
// SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/emission-sim/emission-sim/sim/trace"
)

// RunRecord summarizes one launch run.
type RunRecord struct {
	ID               string
	Name             string
	CreatedAt        time.Time
	Family           string
	Seed             int64
	Entities         int
	Packets          int
	Segments         int
	Bias             float64
	Luminosity       float64 // W, source luminosity
	Emitted          float64 // W, sum of packet weights
	MaxRelativeError float64
	Elapsed          time.Duration
}

// SQLiteStore persists run summaries in a SQLite database file. Init must be
// called before any other method.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore returns a store for the database at path. Nothing is opened
// until Init.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Init opens the database and creates the runs table if needed. Calling it on
// an open store is a no-op.
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// SaveRun inserts or replaces a run and returns its ID. A record without ID
// gets a fresh random one; a zero CreatedAt is set to the current time.
func (s *SQLiteStore) SaveRun(ctx context.Context, run RunRecord) (string, error) {
	db, err := s.getDB()
	if err != nil {
		return "", err
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, name, created_at, family, seed, entities, packets, segments,
			bias, luminosity, emitted, max_relative_error, elapsed_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			created_at = excluded.created_at,
			family = excluded.family,
			seed = excluded.seed,
			entities = excluded.entities,
			packets = excluded.packets,
			segments = excluded.segments,
			bias = excluded.bias,
			luminosity = excluded.luminosity,
			emitted = excluded.emitted,
			max_relative_error = excluded.max_relative_error,
			elapsed_ns = excluded.elapsed_ns
	`, run.ID, run.Name, run.CreatedAt.UTC().Format(time.RFC3339Nano), run.Family, run.Seed, run.Entities,
		run.Packets, run.Segments, run.Bias, run.Luminosity, run.Emitted, run.MaxRelativeError, int64(run.Elapsed))
	if err != nil {
		return "", fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

// SaveEntityStats replaces the per-entity statistics of a run.
func (s *SQLiteStore) SaveEntityStats(ctx context.Context, runID string, stats []trace.EntityStat) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entity_stats WHERE run_id = ?`, runID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entity_stats (run_id, entity, packets, emitted, expected, relative_error)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, st := range stats {
		if _, err := stmt.ExecContext(ctx, runID, st.Entity, st.Packets, st.Emitted, st.Expected, st.RelativeError); err != nil {
			return fmt.Errorf("save entity %d of run %s: %w", st.Entity, runID, err)
		}
	}
	return tx.Commit()
}

const runColumns = `id, name, created_at, family, seed, entities, packets, segments,
	bias, luminosity, emitted, max_relative_error, elapsed_ns`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		run       RunRecord
		createdAt string
		elapsed   int64
	)
	err := row.Scan(&run.ID, &run.Name, &createdAt, &run.Family, &run.Seed, &run.Entities, &run.Packets,
		&run.Segments, &run.Bias, &run.Luminosity, &run.Emitted, &run.MaxRelativeError, &elapsed)
	if err != nil {
		return RunRecord{}, err
	}
	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return RunRecord{}, fmt.Errorf("decode run %s created_at: %w", run.ID, err)
	}
	run.Elapsed = time.Duration(elapsed)
	return run, nil
}

// GetRun returns the run with the given ID; the bool is false when there is none.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (RunRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return RunRecord{}, false, err
	}

	run, err := scanRun(db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, false, nil
		}
		return RunRecord{}, false, err
	}
	return run, true, nil
}

// ListRuns returns all runs, most recent first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetEntityStats returns the per-entity statistics of a run ordered by entity.
func (s *SQLiteStore) GetEntityStats(ctx context.Context, runID string) ([]trace.EntityStat, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT entity, packets, emitted, expected, relative_error
		FROM entity_stats WHERE run_id = ? ORDER BY entity
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var stats []trace.EntityStat
	for rows.Next() {
		var st trace.EntityStat
		if err := rows.Scan(&st.Entity, &st.Packets, &st.Emitted, &st.Expected, &st.RelativeError); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// Close closes the database. The store can be reopened with Init.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			family TEXT NOT NULL,
			seed INTEGER NOT NULL,
			entities INTEGER NOT NULL,
			packets INTEGER NOT NULL,
			segments INTEGER NOT NULL,
			bias REAL NOT NULL,
			luminosity REAL NOT NULL,
			emitted REAL NOT NULL,
			max_relative_error REAL NOT NULL,
			elapsed_ns INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS entity_stats (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			entity INTEGER NOT NULL,
			packets INTEGER NOT NULL,
			emitted REAL NOT NULL,
			expected REAL NOT NULL,
			relative_error REAL NOT NULL,
			PRIMARY KEY (run_id, entity)
		);
	`)
	return err
}
