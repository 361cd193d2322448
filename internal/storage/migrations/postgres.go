package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"feedo/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded SQL files in lexical
// order. Every statement uses IF NOT EXISTS, so reruns at startup are
// harmless.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := fs.Glob(PostgresFS, "postgres/*.sql")
	if err != nil {
		return fmt.Errorf("read embedded postgres migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := fs.ReadFile(PostgresFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		sql := strings.TrimSpace(string(data))
		if sql == "" {
			continue
		}
		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}

	return nil
}
