package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-tracker/internal/app"
	"github.com/rovshanmuradov/lp-tracker/internal/config"
	"github.com/rovshanmuradov/lp-tracker/internal/export"
	"github.com/rovshanmuradov/lp-tracker/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.CreatePrettyLogger(cfg.DebugLogging)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := app.NewRunner(cfg, appLogger)
	if err := runner.Initialize(ctx); err != nil {
		appLogger.Fatal("Failed to initialize tracker", zap.Error(err))
	}
	if err := runner.Run(ctx); err != nil {
		appLogger.Fatal("Failed to start tracker", zap.Error(err))
	}

	// SIGUSR1 writes a snapshot without stopping
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	for sig := range signals {
		if sig == syscall.SIGUSR1 {
			exportSnapshot(runner, appLogger)
			continue
		}

		appLogger.Info("Signal received", zap.String("signal", sig.String()))
		break
	}
	signal.Stop(signals)
	cancel()

	exportSnapshot(runner, appLogger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := runner.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Shutdown completed with errors", zap.Error(err))
	}
}

func exportSnapshot(runner *app.Runner, zapLogger *zap.Logger) {
	if _, err := runner.ExportSnapshot(export.FormatCSV); err != nil {
		zapLogger.Warn("Snapshot export skipped", zap.Error(err))
	}
}
