package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/finleaf/cashflow-forecast/internal/archetype"
	"github.com/finleaf/cashflow-forecast/internal/config"
	"github.com/finleaf/cashflow-forecast/internal/forecast"
	httpadapter "github.com/finleaf/cashflow-forecast/internal/interfaces/http"
	"github.com/finleaf/cashflow-forecast/internal/ledger"
	"github.com/finleaf/cashflow-forecast/internal/learning"
	"github.com/finleaf/cashflow-forecast/internal/pipeline"
	"github.com/finleaf/cashflow-forecast/internal/worker"
	"github.com/finleaf/cashflow-forecast/pkg/database"
	"github.com/finleaf/cashflow-forecast/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// Local .env overrides are optional.
	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting cash flow forecast service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := database.NewMigrator(db, logger).RunMigrations(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	catalog, err := archetype.LoadCatalog(cfg.Forecast.ArchetypeDir, logger)
	if err != nil {
		logger.Fatal("Failed to load archetype catalog", zap.Error(err))
	}
	if _, err := catalog.Get(cfg.Forecast.DefaultArchetype); err != nil {
		logger.Fatal("Default archetype missing from catalog", zap.Error(err))
	}

	store := learning.NewStore(db, logger)
	source := ledger.NewFileSource(cfg.Forecast.TransactionDir, logger)
	forecaster := pipeline.New(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := worker.NewPool(cfg.Worker.PoolSize, cfg.Worker.QueueSize, forecaster.Render, logger)
	if err := pool.Start(ctx); err != nil {
		logger.Fatal("Failed to start render pool", zap.Error(err))
	}
	defer pool.Stop()

	service := forecast.NewService(catalog, source, store, pool, forecast.Options{
		DefaultArchetype:    cfg.Forecast.DefaultArchetype,
		DetectionWindowDays: cfg.Forecast.DetectionWindowDays,
		PayPolicyOffsetDays: cfg.Forecast.PayPolicyOffsetDays,
		OutputDir:           cfg.Forecast.OutputDir,
	}, logger)

	handlers := httpadapter.NewHandlers(service, store, logger)
	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down server...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
