package main

import (
	"context"
	"flag"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-tracker/internal/app"
	"github.com/rovshanmuradov/lp-tracker/internal/config"
	"github.com/rovshanmuradov/lp-tracker/internal/export"
	"github.com/rovshanmuradov/lp-tracker/internal/logger"
	"github.com/rovshanmuradov/lp-tracker/internal/ui"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Logs go to the in-memory buffer; stdout belongs to the dashboard
	logBuffer := logger.NewLogBuffer(500)
	appLogger, err := logger.CreateTUILogger(cfg.DebugLogging, logBuffer)
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
		log.Fatalf("Failed to initialize tracker: %v", err)
	}

	updates := ui.NewUpdateSender(0, appLogger)
	updates.Subscribe(runner.Bus())
	defer updates.Close()

	if err := runner.Run(ctx); err != nil {
		log.Fatalf("Failed to start tracker: %v", err)
	}

	createUI := func() (tea.Model, []tea.ProgramOption) {
		dashboard := ui.NewDashboard(ui.DashboardConfig{
			Controller: runner.Engine(),
			Updates:    updates,
			Export: func() (string, error) {
				return runner.ExportSnapshot(export.FormatCSV)
			},
			Logs: logBuffer,
		})
		return dashboard, []tea.ProgramOption{tea.WithAltScreen()}
	}

	recovery := ui.NewRecoveryHandler(appLogger, createUI)
	if err := recovery.RunWithRecovery(); err != nil {
		appLogger.Error("TUI application failed", zap.Error(err))
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := runner.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Shutdown completed with errors", zap.Error(err))
	}
}
