// internal/pnl/engine.go
package pnl

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-tracker/internal/events"
)

const defaultWorkers = 5

// EngineConfig configures an Engine.
type EngineConfig struct {
	Ledger    Ledger
	Oracle    PriceOracle
	Publisher Publisher
	Logger    *zap.Logger
	// Workers bounds concurrent valuations inside one refresh cycle.
	Workers int
}

// Engine values tracked LP positions and owns the cost-basis and valuation caches.
// Only the engine writes the caches; every accessor returns a copy.
type Engine struct {
	ledger    Ledger
	oracle    PriceOracle
	publisher Publisher
	logger    *zap.Logger
	workers   int

	mu         sync.RWMutex
	tracked    map[string]TrackedPool
	costBasis  map[string]*CostBasis
	valuations map[string]PositionValuation
	summary    *PortfolioSummary

	// busy is the only cross-cycle exclusion: a refresh never overlaps another.
	busy atomic.Bool

	schedMu sync.Mutex
	stopCh  chan struct{}

	now func() time.Time
}

// NewEngine creates a valuation engine.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = nopPublisher{}
	}

	return &Engine{
		ledger:     cfg.Ledger,
		oracle:     cfg.Oracle,
		publisher:  publisher,
		logger:     logger.Named("pnl_engine"),
		workers:    workers,
		tracked:    make(map[string]TrackedPool),
		costBasis:  make(map[string]*CostBasis),
		valuations: make(map[string]PositionValuation),
		now:        time.Now,
	}
}

// Track registers a position for valuation. Re-tracking a pool with a different
// position drops the caches of the old one.
func (e *Engine) Track(tp TrackedPool) {
	key := tp.PoolAddress.String()

	e.mu.Lock()
	if prev, ok := e.tracked[key]; ok && !prev.PositionAddress.Equals(tp.PositionAddress) {
		delete(e.costBasis, key)
		delete(e.valuations, key)
	}
	e.tracked[key] = tp
	e.mu.Unlock()

	e.logger.Info("Tracking position",
		zap.String("pool", key),
		zap.String("position", tp.PositionAddress.String()))
}

// Untrack stops tracking a pool and drops its cached data.
func (e *Engine) Untrack(pool solana.PublicKey) {
	key := pool.String()

	e.mu.Lock()
	_, ok := e.tracked[key]
	delete(e.tracked, key)
	delete(e.costBasis, key)
	delete(e.valuations, key)
	e.mu.Unlock()

	if ok {
		e.logger.Info("Position untracked", zap.String("pool", key))
		e.Recompute()
	}
}

// Tracked returns the tracking set sorted by pool address.
func (e *Engine) Tracked() []TrackedPool {
	e.mu.RLock()
	out := make([]TrackedPool, 0, len(e.tracked))
	for _, tp := range e.tracked {
		out = append(out, tp)
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].PoolAddress.String() < out[j].PoolAddress.String()
	})
	return out
}

// PositionValuation returns the cached valuation of a pool.
func (e *Engine) PositionValuation(pool solana.PublicKey) (PositionValuation, bool) {
	e.mu.RLock()
	v, ok := e.valuations[pool.String()]
	e.mu.RUnlock()
	if !ok {
		return PositionValuation{}, false
	}
	return e.withStaleness(v.clone()), true
}

// AllValuations returns a copy of the valuation cache keyed by pool address.
func (e *Engine) AllValuations() map[string]PositionValuation {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]PositionValuation, len(e.valuations))
	for k, v := range e.valuations {
		out[k] = e.withStaleness(v.clone())
	}
	return out
}

// CostBasis returns the cached cost basis of a pool.
func (e *Engine) CostBasis(pool solana.PublicKey) (CostBasis, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cb, ok := e.costBasis[pool.String()]
	if !ok {
		return CostBasis{}, false
	}
	return *cb, true
}

// PortfolioSummary returns the last recomputed summary, or nil if there is none yet.
func (e *Engine) PortfolioSummary() *PortfolioSummary {
	e.mu.RLock()
	s := e.summary.clone()
	e.mu.RUnlock()

	if s != nil {
		for i := range s.Positions {
			s.Positions[i] = e.withStaleness(s.Positions[i])
		}
	}
	return s
}

// ClearCaches drops cost basis, valuations and the summary. The tracking set is kept.
func (e *Engine) ClearCaches() {
	e.mu.Lock()
	e.costBasis = make(map[string]*CostBasis)
	e.valuations = make(map[string]PositionValuation)
	e.summary = nil
	e.mu.Unlock()

	if c, ok := e.oracle.(interface{ ClearCache() }); ok {
		c.ClearCache()
	}

	e.logger.Info("Caches cleared")
}

// withStaleness sets IsStale relative to now.
func (e *Engine) withStaleness(v PositionValuation) PositionValuation {
	v.IsStale = e.now().Sub(v.LastUpdated) > StaleThreshold
	return v
}

func (e *Engine) trackedPool(pool solana.PublicKey) (TrackedPool, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tp, ok := e.tracked[pool.String()]
	return tp, ok
}

func (e *Engine) publish(event events.Event) {
	if err := e.publisher.Publish(event); err != nil {
		e.logger.Debug("Event not published",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) error { return nil }
