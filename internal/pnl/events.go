// internal/pnl/events.go
package pnl

import (
	"time"

	"github.com/rovshanmuradov/lp-tracker/internal/events"
)

// PortfolioUpdatedEvent is emitted after every recompute. Summary is nil when
// no position has been valued yet.
type PortfolioUpdatedEvent struct {
	events.BaseEvent
	Summary       *PortfolioSummary `json:"summary"`
	PositionCount int               `json:"position_count"`
}

// PositionValuatedEvent is emitted when a position valuation is written to the cache.
type PositionValuatedEvent struct {
	events.BaseEvent
	Valuation PositionValuation `json:"valuation"`
}

// PositionFailedEvent is emitted when a position could not be valued in a refresh.
type PositionFailedEvent struct {
	events.BaseEvent
	PoolAddress string `json:"pool"`
	Error       string `json:"error"`
}

// PositionClosedEvent is emitted when a position holds no liquidity and no fees.
type PositionClosedEvent struct {
	events.BaseEvent
	PoolAddress     string `json:"pool"`
	PositionAddress string `json:"position"`
}

// RefreshStartedEvent is emitted when a refresh cycle begins.
type RefreshStartedEvent struct {
	events.BaseEvent
	CycleID   string `json:"cycle_id"`
	Positions int    `json:"positions"`
}

// RefreshCompletedEvent is emitted when a refresh cycle has settled.
type RefreshCompletedEvent struct {
	events.BaseEvent
	CycleID   string        `json:"cycle_id"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}
