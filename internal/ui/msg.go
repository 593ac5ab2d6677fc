package ui

import (
	"time"

	"github.com/rovshanmuradov/lp-tracker/internal/pnl"
)

// Tea message types for UI communication

// PortfolioMsg carries a new portfolio summary. Summary is nil when nothing is valued.
type PortfolioMsg struct {
	Summary *pnl.PortfolioSummary
}

// RefreshStartedMsg is sent when a refresh cycle begins
type RefreshStartedMsg struct {
	CycleID   string
	Positions int
}

// RefreshCompletedMsg is sent when a refresh cycle has settled
type RefreshCompletedMsg struct {
	CycleID   string
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// PositionValuatedMsg is sent when a position was valued successfully
type PositionValuatedMsg struct {
	Pool string
}

// PositionFailedMsg is sent when a position could not be valued
type PositionFailedMsg struct {
	Pool  string
	Error string
}

// PositionClosedMsg is sent when a position holds no liquidity and no fees
type PositionClosedMsg struct {
	Pool string
}

// ExportDoneMsg reports the result of a snapshot export
type ExportDoneMsg struct {
	Path string
	Err  error
}

// StatusMsg replaces the status line
type StatusMsg struct {
	Text    string
	IsError bool
}

// tickMsg re-reads the summary so staleness is recomputed
type tickMsg time.Time
