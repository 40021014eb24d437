// Package rankserver serves the online ranking over HTTP.
package rankserver

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Score is a stored submission.
type Score struct {
	ID         string
	ProgramKey string
	Username   string
	Score      int
	CreatedAt  time.Time
}

// Repository persists scores.
type Repository interface {
	Insert(ctx context.Context, s Score) error
	// Top returns up to limit scores for programKey, highest first and
	// earliest first among equal scores.
	Top(ctx context.Context, programKey string, limit int) ([]Score, error)
	Close() error
}

// OpenRepository picks the backend by DSN scheme: postgres:// and
// postgresql:// use Postgres, sqlite:// or a bare path use SQLite.
func OpenRepository(ctx context.Context, dsn string) (Repository, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, fmt.Errorf("server dsn is empty")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	case strings.Contains(dsn, "://"):
		return nil, fmt.Errorf("unsupported dsn scheme: %s", dsn[:strings.Index(dsn, "://")])
	default:
		return OpenSQLite(ctx, dsn)
	}
}
