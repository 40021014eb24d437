package rankserver

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a Repository backed by a pgx connection pool.
type Postgres struct {
	db *pgxpool.Pool
}

// OpenPostgres connects to dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	repo := &Postgres{db: pool}
	if err := repo.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Postgres) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scores (
			id UUID PRIMARY KEY,
			program_key TEXT NOT NULL,
			username TEXT NOT NULL,
			score INTEGER NOT NULL CHECK (score >= 0),
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_rank ON scores (program_key, score DESC, created_at ASC)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate postgres: %w", err)
		}
	}
	return nil
}

// Insert implements Repository.
func (r *Postgres) Insert(ctx context.Context, s Score) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO scores (id, program_key, username, score, created_at) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.ProgramKey, s.Username, s.Score, s.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert score: %w", err)
	}
	return nil
}

// Top implements Repository.
func (r *Postgres) Top(ctx context.Context, programKey string, limit int) ([]Score, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id::text, program_key, username, score, created_at FROM scores
		WHERE program_key = $1
		ORDER BY score DESC, created_at ASC
		LIMIT $2`,
		programKey, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Score, error) {
		var s Score
		err := row.Scan(&s.ID, &s.ProgramKey, &s.Username, &s.Score, &s.CreatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read scores: %w", err)
	}
	return out, nil
}

// Close implements Repository.
func (r *Postgres) Close() error {
	r.db.Close()
	return nil
}
