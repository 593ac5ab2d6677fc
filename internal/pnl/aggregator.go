// internal/pnl/aggregator.go
package pnl

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-tracker/internal/events"
)

// Recompute folds the valuation cache into a new PortfolioSummary, stores it and
// publishes PortfolioUpdated. It returns nil when no position has been valued.
func (e *Engine) Recompute() *PortfolioSummary {
	now := e.now()

	e.mu.Lock()
	vals := make([]PositionValuation, 0, len(e.valuations))
	for _, v := range e.valuations {
		vals = append(vals, v.clone())
	}
	summary := summarize(vals, now)
	e.summary = summary
	e.mu.Unlock()

	count := 0
	if summary != nil {
		count = len(summary.Positions)
		e.logger.Debug("Portfolio recomputed",
			zap.Int("positions", count),
			zap.Float64("total_value_usd", summary.TotalCurrentValueUSD),
			zap.Float64("total_pnl_usd", summary.TotalPnLUSD))
	}

	out := summary.clone()
	e.publish(PortfolioUpdatedEvent{
		BaseEvent:     events.NewBaseEvent(events.PortfolioUpdated),
		Summary:       out.clone(),
		PositionCount: count,
	})
	return out
}

// summarize is a pure fold over valuations. Positions are ordered by pool address.
func summarize(vals []PositionValuation, now time.Time) *PortfolioSummary {
	if len(vals) == 0 {
		return nil
	}

	sort.Slice(vals, func(i, j int) bool {
		return vals[i].PoolAddress.String() < vals[j].PoolAddress.String()
	})

	s := &PortfolioSummary{
		LastUpdated: now,
		Positions:   vals,
	}
	for i := range vals {
		v := &vals[i]
		v.IsStale = now.Sub(v.LastUpdated) > StaleThreshold

		s.TotalCurrentValueUSD += v.CurrentTotalValueUSD
		s.TotalFeesEarnedUSD += v.FeesEarnedUSD
		s.TotalPnLUSD += v.PnLUSD
		if v.CostBasis != nil {
			s.TotalInitialValueUSD += v.CostBasis.InitialTotalValueUSD
		}
	}
	s.TotalPnLPercentage = pnlPercentage(s.TotalPnLUSD, s.TotalInitialValueUSD)
	return s
}
