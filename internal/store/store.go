// Package store handles SQLite persistence of tracked players and refresh history.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/leetboard/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for tracking data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tracked_players (
			identity INTEGER PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			added_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS refresh_attempts (
			id INTEGER PRIMARY KEY,
			identity INTEGER NOT NULL,
			display_name TEXT NOT NULL,
			attempted_at TEXT NOT NULL,
			ok INTEGER NOT NULL,
			error TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_attempts_identity ON refresh_attempts(identity, id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// TrackPlayer registers an identity. Tracking an identity again updates its label.
func (s *Store) TrackPlayer(ctx context.Context, p model.TrackedPlayer) error {
	if p.AddedAt.IsZero() {
		p.AddedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tracked_players (identity, label, added_at) VALUES (?, ?, ?)
		 ON CONFLICT(identity) DO UPDATE SET label = excluded.label`,
		p.Identity, p.Label, p.AddedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// UntrackPlayer removes an identity and reports whether it was tracked.
func (s *Store) UntrackPlayer(ctx context.Context, identity int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tracked_players WHERE identity = ?`, identity)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListTracked returns tracked players ordered by identity.
func (s *Store) ListTracked(ctx context.Context) ([]model.TrackedPlayer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identity, label, added_at FROM tracked_players ORDER BY identity ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var players []model.TrackedPlayer
	for rows.Next() {
		var p model.TrackedPlayer
		var addedAt string
		if err := rows.Scan(&p.Identity, &p.Label, &addedAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, addedAt)
		if err != nil {
			return nil, err
		}
		p.AddedAt = parsed
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

// RecordAttempt appends one refresh attempt to the history.
func (s *Store) RecordAttempt(ctx context.Context, a model.RefreshAttempt) error {
	ok := 0
	if a.OK {
		ok = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_attempts (identity, display_name, attempted_at, ok, error)
		 VALUES (?, ?, ?, ?, ?)`,
		a.Identity, a.DisplayName, a.AttemptedAt.UTC().Format(time.RFC3339Nano), ok, a.Error)
	return err
}

// ListAttempts returns the most recent attempts, newest first. A limit of
// zero or less returns the whole history.
func (s *Store) ListAttempts(ctx context.Context, limit int) ([]model.RefreshAttempt, error) {
	query := `SELECT identity, display_name, attempted_at, ok, error
		FROM refresh_attempts
		ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryAttempts(ctx, query, args...)
}

// LatestAttempts returns the newest attempt per identity, ordered by identity.
func (s *Store) LatestAttempts(ctx context.Context) ([]model.RefreshAttempt, error) {
	query := `SELECT a.identity, a.display_name, a.attempted_at, a.ok, a.error
		FROM refresh_attempts a
		JOIN (SELECT identity, MAX(id) AS id FROM refresh_attempts GROUP BY identity) latest
			ON latest.id = a.id
		ORDER BY a.identity ASC`
	return s.queryAttempts(ctx, query)
}

func (s *Store) queryAttempts(ctx context.Context, query string, args ...any) ([]model.RefreshAttempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var attempts []model.RefreshAttempt
	for rows.Next() {
		var a model.RefreshAttempt
		var attemptedAt string
		var ok int
		if err := rows.Scan(&a.Identity, &a.DisplayName, &attemptedAt, &ok, &a.Error); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, attemptedAt)
		if err != nil {
			return nil, err
		}
		a.AttemptedAt = parsed
		a.OK = ok != 0
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attempts, nil
}
