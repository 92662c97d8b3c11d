package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-pool-sniper/internal/storage/postgres"
)

const createJournalMigrations = `
CREATE TABLE IF NOT EXISTS journal_migrations (
    name       TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`

// RunPostgresMigrations applies the embedded journal schema files in lexical
// order. Each file runs once, in its own transaction, and is recorded in
// journal_migrations. Returns the names applied by this call.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) ([]string, error) {
	files, err := postgresFiles()
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, createJournalMigrations); err != nil {
		return nil, fmt.Errorf("create journal_migrations: %w", err)
	}

	var applied []string
	for _, file := range files {
		ok, err := applyOnce(ctx, pool, file)
		if err != nil {
			return applied, err
		}
		if ok {
			applied = append(applied, file)
		}
	}
	return applied, nil
}

func postgresFiles() ([]string, error) {
	entries, err := fs.ReadDir(PostgresFS, "postgres")
	if err != nil {
		return nil, fmt.Errorf("read embedded journal schema: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// applyOnce runs file unless journal_migrations already lists it.
func applyOnce(ctx context.Context, pool *postgres.Pool, file string) (bool, error) {
	data, err := fs.ReadFile(PostgresFS, "postgres/"+file)
	if err != nil {
		return false, fmt.Errorf("read migration %s: %w", file, err)
	}

	applied := false
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM journal_migrations WHERE name = $1)`, file,
		).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return nil
		}

		if sql := strings.TrimSpace(string(data)); sql != "" {
			if _, err := tx.Exec(ctx, sql); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO journal_migrations (name, applied_at) VALUES ($1, $2)`,
			file, time.Now().UnixMilli(),
		); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("apply migration %s: %w", file, err)
	}
	return applied, nil
}
