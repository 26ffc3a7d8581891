// Package migrations embeds the SQL schema for each supported database and applies it.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// FS contains the embedded SQL migration files, one directory per dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// Supported dialects
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Setup points goose at the embedded files for dialect and returns the directory to migrate.
func Setup(dialect string) (string, error) {
	goose.SetBaseFS(FS)

	switch dialect {
	case DialectSQLite:
		if err := goose.SetDialect("sqlite3"); err != nil {
			return "", fmt.Errorf("set dialect: %w", err)
		}
	case DialectPostgres:
		if err := goose.SetDialect("postgres"); err != nil {
			return "", fmt.Errorf("set dialect: %w", err)
		}
	default:
		return "", fmt.Errorf("unsupported dialect %q", dialect)
	}
	return dialect, nil
}

// Run applies all pending migrations to the given database.
func Run(db *sql.DB, dialect string) error {
	dir, err := Setup(dialect)
	if err != nil {
		return err
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
