// Package store persists scored alpha expressions in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one scored expression. NaN correlations are stored as NULL.
type Record struct {
	ID          int64
	EpisodeID   string
	Expr        string
	Fingerprint string
	IC          float64
	RankIC      float64
	Outcome     string
	CreatedAt   time.Time
}

// Store is an append-mostly table of expressions keyed by fingerprint.
// It is safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS alphas (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	episode_id  TEXT NOT NULL DEFAULT '',
	expr        TEXT NOT NULL,
	fingerprint TEXT NOT NULL UNIQUE,
	ic          REAL,
	rank_ic     REAL,
	outcome     TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alphas_ic ON alphas(ic);
`

// Open opens or creates the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil && path != ":memory:" {
		db.Close()
		return nil, fmt.Errorf("store: set journal mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Save inserts rec. A fingerprint that is already stored is left untouched.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO alphas (episode_id, expr, fingerprint, ic, rank_ic, outcome, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.EpisodeID, rec.Expr, rec.Fingerprint,
		nullFloat(rec.IC), nullFloat(rec.RankIC),
		rec.Outcome, rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("store: save %s: %w", rec.Fingerprint, err)
	}
	return nil
}

// Top returns up to k records ordered by IC, best first. Records without
// an IC sort last.
func (s *Store) Top(ctx context.Context, k int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, episode_id, expr, fingerprint, ic, rank_ic, outcome, created_at
		FROM alphas
		ORDER BY ic IS NULL, ic DESC, id ASC
		LIMIT ?`, k)
	if err != nil {
		return nil, fmt.Errorf("store: query top: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec        Record
			ic, rankIC sql.NullFloat64
			created    int64
		)
		if err := rows.Scan(&rec.ID, &rec.EpisodeID, &rec.Expr, &rec.Fingerprint,
			&ic, &rankIC, &rec.Outcome, &created); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		rec.IC = fromNull(ic)
		rec.RankIC = fromNull(rankIC)
		rec.CreatedAt = time.Unix(0, created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of stored expressions.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alphas`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
