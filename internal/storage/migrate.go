package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (name TEXT PRIMARY KEY)`

// MigrateUp applies every .up.sql file not yet recorded, in name order.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(migrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	names, err := migrationNames(".up.sql")
	if err != nil {
		return err
	}
	applied, err := appliedMigrations(db)
	if err != nil {
		return err
	}
	for _, name := range names {
		id := migrationID(name, ".up.sql")
		if applied[id] {
			continue
		}
		if err := execMigration(db, name); err != nil {
			return err
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations (name) VALUES (?)`, id); err != nil {
			return fmt.Errorf("record migration %s: %w", id, err)
		}
	}
	return nil
}

// MigrateDown reverts every recorded migration, newest first.
func MigrateDown(db *sql.DB) error {
	if _, err := db.Exec(migrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	names, err := migrationNames(".down.sql")
	if err != nil {
		return err
	}
	applied, err := appliedMigrations(db)
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, name := range names {
		id := migrationID(name, ".down.sql")
		if !applied[id] {
			continue
		}
		if err := execMigration(db, name); err != nil {
			return err
		}
		if _, err := db.Exec(`DELETE FROM schema_migrations WHERE name = ?`, id); err != nil {
			return fmt.Errorf("unrecord migration %s: %w", id, err)
		}
	}
	return nil
}

func migrationNames(suffix string) ([]string, error) {
	entries, err := fs.Glob(migrationFiles, "migrations/*"+suffix)
	if err != nil {
		return nil, fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(entries)
	return entries, nil
}

func migrationID(name, suffix string) string {
	return strings.TrimSuffix(path.Base(name), suffix)
}

func appliedMigrations(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

func execMigration(db *sql.DB, name string) error {
	sqlBytes, err := migrationFiles.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}
	if _, err := db.Exec(string(sqlBytes)); err != nil {
		return fmt.Errorf("apply migration %s: %w", name, err)
	}
	return nil
}
