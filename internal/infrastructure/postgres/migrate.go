package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// Schemas owned by each service.
const (
	SchemaTransaction = "transaction"
	SchemaInventory   = "inventory"
)

// Migrate applies the embedded migrations of schema. An up-to-date database is not an error.
func Migrate(db *sql.DB, schema string) error {
	src, err := iofs.New(migrations, "migrations/"+schema)
	if err != nil {
		return fmt.Errorf("postgres: migrations for %q: %w", schema, err)
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{MigrationsTable: "schema_migrations_" + schema})
	if err != nil {
		return fmt.Errorf("postgres: migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: migrate up %s: %w", schema, err)
	}
	return nil
}
