package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/compiledigital/compile-server-go/internal/catalog"
	"github.com/compiledigital/compile-server-go/internal/config"
	"github.com/compiledigital/compile-server-go/internal/repository"
	"github.com/compiledigital/compile-server-go/internal/server"
)

var (
	configPath = flag.String("config", "", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting compile server",
		zap.String("version", version),
		zap.String("address", cfg.Server.Address),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	cat, err := buildCatalog(cfg.Game, logger)
	if err != nil {
		logger.Fatal("failed to load card catalog", zap.Error(err))
	}

	sink, cleanup, err := buildSink(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize statistics store", zap.Error(err))
	}
	defer cleanup()

	srv := server.New(cfg.Game, cat, sink, logger)
	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("listening", zap.String("address", cfg.Server.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(serveErr))
		}
	}()

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	logger.Info("compile server stopped")
}

// buildCatalog loads the built-in protocol set, extended by the configured
// custom-protocol file when one is given.
func buildCatalog(cfg config.GameConfig, logger *zap.Logger) (catalog.Provider, error) {
	if cfg.ProtocolFile == "" {
		return catalog.NewDefault(), nil
	}
	custom, err := catalog.LoadProtocolPath(cfg.ProtocolFile)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.NewWithCustom(custom)
	if err != nil {
		return nil, err
	}
	logger.Info("custom protocols loaded",
		zap.String("file", cfg.ProtocolFile),
		zap.Int("cards", len(custom)),
	)
	return cat, nil
}

// buildSink connects the Postgres statistics sink, or falls back to the
// no-op sink when the database is disabled.
func buildSink(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (repository.StatisticsSink, func(), error) {
	if !cfg.Enabled {
		logger.Info("statistics database disabled; results will not be recorded")
		return repository.NoopSink{}, func() {}, nil
	}

	db, err := repository.NewDB(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	stats := db.Stats()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()),
	)
	return repository.NewStatsRepository(db), db.Close, nil
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
