package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/MatheusCampagnolo/kargo/internal/config"
	"github.com/MatheusCampagnolo/kargo/internal/log"
	"github.com/MatheusCampagnolo/kargo/internal/storage/db"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("error running migrate application: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "kargo-migrate",
	Short:         "Manage the kargo database schema",
	SilenceUsage:  true,
	SilenceErrors: true,
	// running without a subcommand applies every pending migration
	RunE: func(cmd *cobra.Command, _ []string) error {
		return upCmd.RunE(cmd, nil)
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPool(cmd.Context(), func(ctx context.Context, logger *slog.Logger, pool *pgxpool.Pool) error {
			logger.InfoContext(ctx, "starting database migration")

			if err := db.Migrate(pool); err != nil {
				return fmt.Errorf("error migrating database: %w", err)
			}

			return logVersion(ctx, logger, pool, "database migration completed successfully")
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPool(cmd.Context(), func(ctx context.Context, logger *slog.Logger, pool *pgxpool.Pool) error {
			if err := db.MigrateDown(pool); err != nil {
				return fmt.Errorf("error rolling back migration: %w", err)
			}

			return logVersion(ctx, logger, pool, "database migration rolled back")
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPool(cmd.Context(), func(_ context.Context, _ *slog.Logger, pool *pgxpool.Pool) error {
			return db.MigrationStatus(pool)
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPool(cmd.Context(), func(ctx context.Context, logger *slog.Logger, pool *pgxpool.Pool) error {
			return logVersion(ctx, logger, pool, "database schema version")
		})
	},
}

func init() {
	rootCmd.AddCommand(upCmd, downCmd, statusCmd, versionCmd)
}

func withPool(ctx context.Context, fn func(context.Context, *slog.Logger, *pgxpool.Pool) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log      config.Log
		Postgres config.Postgres
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	pgxPool, err := db.NewPgxPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("error creating pgx pool: %w", err)
	}
	defer pgxPool.Close()

	return fn(ctx, logger.With(slog.String("database", cfg.Postgres.DB)), pgxPool)
}

func logVersion(ctx context.Context, logger *slog.Logger, pool *pgxpool.Pool, msg string) error {
	version, err := db.MigrationVersion(pool)
	if err != nil {
		return fmt.Errorf("error reading migration version: %w", err)
	}

	logger.InfoContext(ctx, msg, slog.Int64("version", version))
	return nil
}
