package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"todo_app/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one embedded SQL file.
type Migration struct {
	Name string
	SQL  string
}

// Migrations returns the embedded Postgres migrations in apply order.
func Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	res := make([]Migration, 0, len(names))
	for _, name := range names {
		b, err := fs.ReadFile(migrationFiles, "migrations/"+name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		res = append(res, Migration{Name: name, SQL: string(b)})
	}
	return res, nil
}

// Migrate applies every embedded migration. The files are written to be
// re-runnable, so there is no version table.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	migrations, err := Migrations()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("failed to apply %s: %w", m.Name, err)
		}
		logger.Info("migration applied", "name", m.Name)
	}
	return nil
}
