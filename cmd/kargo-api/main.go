package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/MatheusCampagnolo/kargo/internal/config"
	"github.com/MatheusCampagnolo/kargo/internal/http"
	"github.com/MatheusCampagnolo/kargo/internal/log"
	"github.com/MatheusCampagnolo/kargo/internal/repository"
	"github.com/MatheusCampagnolo/kargo/internal/service"
	"github.com/MatheusCampagnolo/kargo/internal/storage/db"
	"github.com/MatheusCampagnolo/kargo/internal/telemetry"
	"github.com/MatheusCampagnolo/kargo/pkg/cmdutil"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running api application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log      config.Log
		Postgres config.Postgres
		HTTP     config.HTTP
		Otel     config.Otel
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	cleanupTracer, err := telemetry.InitTracer(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		if err := cleanupTracer(ctx); err != nil {
			logger.ErrorContext(ctx, "error cleaning up tracer", slog.Any("error", err))
		}
	}()

	pgxPool, err := db.NewPgxPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("error creating pgx pool: %w", err)
	}
	defer pgxPool.Close()

	if cfg.Postgres.AutoMigrate {
		if err := db.Migrate(pgxPool); err != nil {
			return fmt.Errorf("error migrating database: %w", err)
		}
		logger.InfoContext(ctx, "database migrated")
	}

	dbClient := db.NewClient(pgxPool)

	productRepository := repository.NewProductRepository(dbClient)
	productService := service.NewProductService(dbClient, productRepository)

	svc, err := http.New(cfg.HTTP, logger, dbClient, productService)
	if err != nil {
		return fmt.Errorf("error creating http service: %w", err)
	}

	cleanup, err := svc.Run(ctx)
	if err != nil {
		return fmt.Errorf("error running http service: %w", err)
	}

	logger.InfoContext(ctx, "http service started", slog.String("address", fmt.Sprintf(":%d", cfg.HTTP.Port)))

	<-cmdutil.InterruptChan()

	logger.InfoContext(ctx, "http service is shutting down")
	if err := cleanup(ctx); err != nil {
		logger.ErrorContext(ctx, "error shutting down http service", slog.Any("error", err))
	}

	logger.InfoContext(ctx, "http service is stopped")

	return nil
}
