package memory

import (
	"context"
	"fmt"
	"strings"
)

// NewStore picks a backend from the database URL: empty for in-memory,
// postgres:// or postgresql:// for Postgres, sqlite: or file: for SQLite.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	url := strings.TrimSpace(databaseURL)
	switch {
	case url == "":
		return NewInMemoryStore(), nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPostgresStore(ctx, url)
	case strings.HasPrefix(url, "sqlite:"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(strings.TrimPrefix(url, "sqlite:"), "//"))
	case strings.HasPrefix(url, "file:"):
		return NewSQLiteStore(ctx, url)
	default:
		return nil, fmt.Errorf("unsupported database url scheme: %q", url)
	}
}
