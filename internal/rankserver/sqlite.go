package rankserver

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// SQLite is a Repository backed by a local SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	repo := &SQLite{db: db}
	if err := repo.migrate(ctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return repo, nil
}

func (r *SQLite) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scores (
			id TEXT PRIMARY KEY,
			program_key TEXT NOT NULL,
			username TEXT NOT NULL,
			score INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_rank ON scores(program_key, score DESC, created_at ASC);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate sqlite: %w", err)
		}
	}
	return nil
}

// Insert implements Repository.
func (r *SQLite) Insert(ctx context.Context, s Score) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scores (id, program_key, username, score, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.ProgramKey, s.Username, s.Score, s.CreatedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert score: %w", err)
	}
	return nil
}

// Top implements Repository.
func (r *SQLite) Top(ctx context.Context, programKey string, limit int) ([]Score, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, program_key, username, score, created_at FROM scores
		WHERE program_key = ?
		ORDER BY score DESC, created_at ASC
		LIMIT ?`,
		programKey, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []Score
	for rows.Next() {
		var s Score
		var created int64
		if err := rows.Scan(&s.ID, &s.ProgramKey, &s.Username, &s.Score, &created); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		s.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scores: %w", err)
	}
	return out, nil
}

// Close implements Repository.
func (r *SQLite) Close() error {
	return r.db.Close()
}
