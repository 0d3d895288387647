// Package archive persists pipeline reports to a local SQLite database, so
// consecutive reporting cycles can be compared and replayed.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/skewt/ceilo/internal/chunk"
	"github.com/skewt/ceilo/internal/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	metar      TEXT NOT NULL,
	msa_ft     REAL,
	n_hits     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS layers (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	idx         INTEGER NOT NULL,
	base_ft     REAL NOT NULL,
	okta        INTEGER NOT NULL,
	code        TEXT NOT NULL,
	n_hits      INTEGER NOT NULL,
	fluffiness  REAL NOT NULL,
	significant INTEGER NOT NULL,
	instruments TEXT NOT NULL,
	PRIMARY KEY (run_id, idx)
);
`

// Run is one archived report.
type Run struct {
	ID        string
	CreatedAt time.Time
	Report    chunk.Report
}

// Store wraps the SQLite archive.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the archive database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// SaveReport stores one report and returns the run id.
func (s *Store) SaveReport(ctx context.Context, rep chunk.Report) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("starting archive transaction: %w", err)
	}
	defer tx.Rollback()

	msa := sql.NullFloat64{Float64: rep.MSA, Valid: !math.IsInf(rep.MSA, 0) && !math.IsNaN(rep.MSA)}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, metar, msa_ft, n_hits) VALUES (?, ?, ?, ?, ?)`,
		id, now.UnixNano(), rep.Metar, msa, rep.NHits); err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	for i, l := range rep.Layers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO layers (run_id, idx, base_ft, okta, code, n_hits, fluffiness, significant, instruments)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, l.Base, l.Okta, l.Code, l.NHits, l.Fluffiness,
			boolToInt(l.Significant), strings.Join(l.Instruments, ",")); err != nil {
			return "", fmt.Errorf("inserting layer %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}

	log.Debugf("archived run %s (%d layers)", id, len(rep.Layers))
	return id, nil
}

// LoadRun fetches one archived run by id.
func (s *Store) LoadRun(ctx context.Context, id string) (Run, error) {
	var run Run
	var created int64
	var msa sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, metar, msa_ft, n_hits FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &created, &run.Report.Metar, &msa, &run.Report.NHits)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("no run with id %s", id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("loading run %s: %w", id, err)
	}
	run.CreatedAt = time.Unix(0, created).UTC()
	if msa.Valid {
		run.Report.MSA = msa.Float64
	} else {
		run.Report.MSA = math.Inf(1)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT base_ft, okta, code, n_hits, fluffiness, significant, instruments
		 FROM layers WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return Run{}, fmt.Errorf("loading layers for run %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var l chunk.LayerRecord
		var sig int
		var instruments string
		if err := rows.Scan(&l.Base, &l.Okta, &l.Code, &l.NHits, &l.Fluffiness, &sig, &instruments); err != nil {
			return Run{}, fmt.Errorf("scanning layer: %w", err)
		}
		l.Significant = sig != 0
		if instruments != "" {
			l.Instruments = strings.Split(instruments, ",")
		}
		run.Report.Layers = append(run.Report.Layers, l)
	}
	return run, rows.Err()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	runs := make([]Run, 0, len(ids))
	for _, id := range ids {
		run, err := s.LoadRun(ctx, id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
