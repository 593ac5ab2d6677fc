// internal/pnl/scheduler.go
package pnl

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/lp-tracker/internal/events"
)

// RefreshAll valuates every tracked pool and recomputes the summary. It returns
// false without doing anything if another cycle is in flight.
func (e *Engine) RefreshAll(ctx context.Context) bool {
	return e.refreshAll(ctx, false)
}

// ForceRefresh is RefreshAll that also re-verifies cost basis entries older than StaleThreshold.
func (e *Engine) ForceRefresh(ctx context.Context) bool {
	return e.refreshAll(ctx, true)
}

func (e *Engine) refreshAll(ctx context.Context, force bool) bool {
	if !e.busy.CompareAndSwap(false, true) {
		e.logger.Debug("Refresh already in flight, skipping")
		return false
	}
	defer e.busy.Store(false)

	cycleID := uuid.New().String()
	pools := e.Tracked()
	start := time.Now()

	e.publish(RefreshStartedEvent{
		BaseEvent: events.NewBaseEvent(events.RefreshStarted),
		CycleID:   cycleID,
		Positions: len(pools),
	})

	var succeeded, failed atomic.Int32

	// All-settled: workers never return an error, so one failure cannot cancel the rest
	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, tp := range pools {
		tp := tp
		g.Go(func() error {
			if _, err := e.valuate(ctx, tp.PoolAddress, force); err != nil {
				failed.Add(1)
				e.reportFailure(tp.PoolAddress, err)
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	e.Recompute()

	duration := time.Since(start)
	e.logger.Info("Refresh cycle completed",
		zap.String("cycle_id", cycleID),
		zap.Int32("succeeded", succeeded.Load()),
		zap.Int32("failed", failed.Load()),
		zap.Duration("duration", duration))

	e.publish(RefreshCompletedEvent{
		BaseEvent: events.NewBaseEvent(events.RefreshCompleted),
		CycleID:   cycleID,
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Duration:  duration,
	})
	return true
}

// RefreshOne valuates a single pool, re-verifying a stale cost basis, and recomputes
// the summary. Only ErrNotTracked is returned; other failures are logged and published.
func (e *Engine) RefreshOne(ctx context.Context, pool solana.PublicKey) error {
	if _, err := e.valuate(ctx, pool, true); err != nil {
		if errors.Is(err, ErrNotTracked) {
			return err
		}
		e.reportFailure(pool, err)
	}
	e.Recompute()
	return nil
}

// Start arms the periodic refresh. Calling Start again replaces the previous timer.
func (e *Engine) Start(interval time.Duration) {
	e.schedMu.Lock()
	defer e.schedMu.Unlock()

	if e.stopCh != nil {
		close(e.stopCh)
	}
	stop := make(chan struct{})
	e.stopCh = stop

	e.logger.Info("Refresh scheduler started", zap.Duration("interval", interval))

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// A tick during an in-flight cycle is dropped by the busy flag
				go e.RefreshAll(context.Background())
			}
		}
	}()
}

// Stop disarms the periodic refresh. An in-flight cycle is not cancelled.
func (e *Engine) Stop() {
	e.schedMu.Lock()
	defer e.schedMu.Unlock()

	if e.stopCh == nil {
		return
	}
	close(e.stopCh)
	e.stopCh = nil
	e.logger.Info("Refresh scheduler stopped")
}

// Refreshing reports whether a refresh cycle is in flight.
func (e *Engine) Refreshing() bool {
	return e.busy.Load()
}

func (e *Engine) reportFailure(pool solana.PublicKey, err error) {
	level := e.logger.Warn
	if errors.Is(err, ErrNotFound) {
		level = e.logger.Error
	}
	level("Position valuation failed, keeping previous data",
		zap.String("pool", pool.String()),
		zap.Error(err))

	e.publish(PositionFailedEvent{
		BaseEvent:   events.NewBaseEvent(events.PositionFailed),
		PoolAddress: pool.String(),
		Error:       err.Error(),
	})
}
