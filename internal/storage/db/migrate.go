package db

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Migrate applies all pending migrations to the database behind pool.
func Migrate(pool *pgxpool.Pool) error {
	return withGoose(pool, func(sqlDB *sql.DB) error {
		if err := goose.Up(sqlDB, migrationsDir); err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
		return nil
	})
}

// MigrateDown rolls back the most recently applied migration.
func MigrateDown(pool *pgxpool.Pool) error {
	return withGoose(pool, func(sqlDB *sql.DB) error {
		if err := goose.Down(sqlDB, migrationsDir); err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
		return nil
	})
}

// MigrationStatus logs the applied state of every migration.
func MigrationStatus(pool *pgxpool.Pool) error {
	return withGoose(pool, func(sqlDB *sql.DB) error {
		if err := goose.Status(sqlDB, migrationsDir); err != nil {
			return fmt.Errorf("goose status: %w", err)
		}
		return nil
	})
}

// MigrationVersion returns the latest migration version applied to the database.
func MigrationVersion(pool *pgxpool.Pool) (int64, error) {
	var version int64
	err := withGoose(pool, func(sqlDB *sql.DB) error {
		v, err := goose.GetDBVersion(sqlDB)
		if err != nil {
			return fmt.Errorf("goose get db version: %w", err)
		}
		version = v
		return nil
	})

	return version, err
}

func withGoose(pool *pgxpool.Pool, fn func(*sql.DB) error) error {
	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	return fn(sqlDB)
}
