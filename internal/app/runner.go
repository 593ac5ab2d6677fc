// Package app wires the ledger gateway, price oracle, event bus and valuation
// engine from a config and owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-tracker/internal/blockchain/solbc"
	"github.com/rovshanmuradov/lp-tracker/internal/config"
	"github.com/rovshanmuradov/lp-tracker/internal/events"
	"github.com/rovshanmuradov/lp-tracker/internal/export"
	"github.com/rovshanmuradov/lp-tracker/internal/ledger"
	"github.com/rovshanmuradov/lp-tracker/internal/pnl"
	"github.com/rovshanmuradov/lp-tracker/internal/price"
)

// ErrNotInitialized is returned when the runner is used before Initialize.
var ErrNotInitialized = errors.New("runner is not initialized")

// Runner owns every long-lived service of the tracker.
type Runner struct {
	logger *zap.Logger
	config *config.Config

	bus      *events.Bus
	engine   *pnl.Engine
	oracle   *price.Oracle
	exporter *export.SnapshotExporter
	history  *export.History
	shutdown *ShutdownHandler
}

// NewRunner creates a runner for cfg. Nothing is connected until Initialize.
func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{
		logger:   logger,
		config:   cfg,
		exporter: export.NewSnapshotExporter(logger),
		shutdown: NewShutdownHandler(logger, 0),
	}
}

// Initialize selects a healthy RPC endpoint and builds the services on top of it.
func (r *Runner) Initialize(ctx context.Context) error {
	client, err := solbc.SelectEndpoint(ctx, r.config.RPCList, r.logger, solbc.DefaultEndpointOptions())
	if err != nil {
		return fmt.Errorf("failed to select RPC endpoint: %w", err)
	}

	tokens := ledger.NewTokenInfoCache(ledger.TokenInfoCacheConfig{
		RPC:         client,
		Logger:      r.logger,
		TokenAPIURL: r.config.JupiterTokenURL,
	})
	gateway := ledger.NewGateway(ledger.GatewayConfig{
		RPC:               client,
		Tokens:            tokens,
		Logger:            r.logger,
		CallTimeout:       r.config.RPCTimeoutDuration(),
		MaxSignaturePages: r.config.SignaturePages,
	})
	r.oracle = price.NewOracle(price.Config{
		Logger:        r.logger,
		HTTPTimeout:   r.config.HTTPTimeoutDuration(),
		JupiterURL:    r.config.JupiterPriceURL,
		BirdeyeURL:    r.config.BirdeyeURL,
		BirdeyeAPIKey: r.config.BirdeyeAPIKey,
		CacheTTL:      r.config.PriceCacheTTLDuration(),
	})

	return r.wire(gateway, r.oracle)
}

// wire builds the bus, engine and history on top of the given data sources.
func (r *Runner) wire(source pnl.Ledger, oracle pnl.PriceOracle) error {
	tracked, err := trackedPools(r.config.Positions)
	if err != nil {
		return err
	}

	// History is closed after the bus has stopped
	r.history, err = export.NewHistory(r.config.ExportDir, r.logger)
	if err != nil {
		return err
	}
	r.shutdown.Add("portfolio_history", r.history)

	r.bus = events.NewBus(r.logger, events.DefaultBufferSize)
	r.shutdown.AddFunc("event_bus", func() error {
		return r.bus.Shutdown(context.Background())
	})

	r.engine = pnl.NewEngine(pnl.EngineConfig{
		Ledger:    source,
		Oracle:    oracle,
		Publisher: r.bus,
		Logger:    r.logger,
		Workers:   r.config.Workers,
	})
	for _, tp := range tracked {
		r.engine.Track(tp)
	}

	r.bus.SubscribeFunc(events.PortfolioUpdated, r.onPortfolioUpdated)

	r.logger.Info("Tracker initialized",
		zap.Int("positions", len(tracked)),
		zap.Int("workers", r.config.Workers),
		zap.String("export_dir", r.config.ExportDir))
	return nil
}

// Run performs the first refresh and starts the periodic scheduler.
func (r *Runner) Run(ctx context.Context) error {
	if r.engine == nil {
		return ErrNotInitialized
	}

	r.engine.RefreshAll(ctx)
	r.engine.Start(r.config.RefreshIntervalDuration())
	r.shutdown.AddFunc("scheduler", func() error {
		r.engine.Stop()
		return nil
	})

	r.logger.Info("Scheduler started",
		zap.Duration("interval", r.config.RefreshIntervalDuration()))
	return nil
}

// Engine returns the valuation engine.
func (r *Runner) Engine() *pnl.Engine {
	return r.engine
}

// Bus returns the event bus.
func (r *Runner) Bus() *events.Bus {
	return r.bus
}

// ExportSnapshot writes the current portfolio summary into the export directory.
func (r *Runner) ExportSnapshot(format export.ExportFormat) (string, error) {
	if r.engine == nil {
		return "", ErrNotInitialized
	}
	return r.exporter.Export(r.engine.PortfolioSummary(), export.ExportOptions{
		Format:    format,
		OutputDir: filepath.Clean(r.config.ExportDir),
	})
}

// Shutdown stops the scheduler and closes every service, newest first.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.logger.Info("Tracker shutting down")
	return r.shutdown.Shutdown(ctx)
}

func (r *Runner) onPortfolioUpdated(_ context.Context, event events.Event) error {
	update, ok := event.(pnl.PortfolioUpdatedEvent)
	if !ok || update.Summary == nil {
		return nil
	}

	s := update.Summary
	r.logger.Info("Portfolio updated",
		zap.Int("positions", update.PositionCount),
		zap.Float64("value_usd", s.TotalCurrentValueUSD),
		zap.Float64("pnl_usd", s.TotalPnLUSD),
		zap.Float64("pnl_pct", s.TotalPnLPercentage),
		zap.Float64("fees_usd", s.TotalFeesEarnedUSD),
		zap.Time("updated", s.LastUpdated.Truncate(time.Second)))

	if err := r.history.Record(s); err != nil {
		return fmt.Errorf("record portfolio history: %w", err)
	}
	return nil
}

func trackedPools(positions []config.Position) ([]pnl.TrackedPool, error) {
	out := make([]pnl.TrackedPool, 0, len(positions))
	for _, p := range positions {
		pool, err := solana.PublicKeyFromBase58(p.Pool)
		if err != nil {
			return nil, fmt.Errorf("invalid pool address %q: %w", p.Pool, err)
		}
		position, err := solana.PublicKeyFromBase58(p.Position)
		if err != nil {
			return nil, fmt.Errorf("invalid position address %q: %w", p.Position, err)
		}
		out = append(out, pnl.TrackedPool{PoolAddress: pool, PositionAddress: position})
	}
	return out, nil
}
