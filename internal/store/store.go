// Package store archives pipeline runs and their particles in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ironsheep/afm-tools-mcp/internal/measure"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	scale_nm_per_px DOUBLE NOT NULL,
	rows INTEGER NOT NULL,
	cols INTEGER NOT NULL,
	particle_count INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS particles (
	run_id TEXT NOT NULL,
	label INTEGER NOT NULL,
	center_row INTEGER NOT NULL,
	center_col INTEGER NOT NULL,
	area_px INTEGER NOT NULL,
	diameter_nm DOUBLE NOT NULL,
	depth DOUBLE NOT NULL,
	PRIMARY KEY (run_id, label),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
}

// Run is the archived metadata of one pipeline run.
type Run struct {
	ID            string    `json:"run_id"`
	Name          string    `json:"name"`
	Scale         float64   `json:"scale_nm_per_px"`
	Rows          int       `json:"rows"`
	Cols          int       `json:"cols"`
	ParticleCount int       `json:"particle_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store is a SQLite-backed run archive. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the archive at path and ensures the schema exists.
// ":memory:" gives a private in-memory archive.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun records a run and its particles in one transaction. ParticleCount
// is taken from particles.
func (s *Store) SaveRun(ctx context.Context, run Run, particles []measure.Particle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, name, scale_nm_per_px, rows, cols, particle_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Scale, run.Rows, run.Cols, len(particles), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO particles (run_id, label, center_row, center_col, area_px, diameter_nm, depth)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range particles {
		if _, err := stmt.ExecContext(ctx, run.ID, p.Label, p.CenterRow, p.CenterCol, p.AreaPixels, p.Diameter, p.Depth); err != nil {
			return fmt.Errorf("insert particle %d of run %s: %w", p.Label, run.ID, err)
		}
	}
	return tx.Commit()
}

// Particles returns the particles of a run in label order.
func (s *Store) Particles(ctx context.Context, runID string) ([]measure.Particle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, center_row, center_col, area_px, diameter_nm, depth
		 FROM particles WHERE run_id = ? ORDER BY label`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []measure.Particle
	for rows.Next() {
		var p measure.Particle
		if err := rows.Scan(&p.Label, &p.CenterRow, &p.CenterCol, &p.AreaPixels, &p.Diameter, &p.Depth); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Runs returns all archived runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, name, scale_nm_per_px, rows, cols, particle_count, created_at
		 FROM runs ORDER BY created_at, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Name, &r.Scale, &r.Rows, &r.Cols, &r.ParticleCount, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
