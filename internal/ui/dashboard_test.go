package ui

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/lp-tracker/internal/ledger"
	"github.com/rovshanmuradov/lp-tracker/internal/logger"
	"github.com/rovshanmuradov/lp-tracker/internal/pnl"
)

type fakeController struct {
	summary   *pnl.PortfolioSummary
	refreshes atomic.Int32
	busy      bool
	cleared   int
}

func (f *fakeController) PortfolioSummary() *pnl.PortfolioSummary { return f.summary }

func (f *fakeController) ForceRefresh(context.Context) bool {
	f.refreshes.Add(1)
	return !f.busy
}

func (f *fakeController) ClearCaches() {
	f.cleared++
	f.summary = nil
}

func testSummary() *pnl.PortfolioSummary {
	return &pnl.PortfolioSummary{
		TotalCurrentValueUSD: 203.5,
		TotalInitialValueUSD: 200,
		TotalPnLUSD:          7.6,
		TotalPnLPercentage:   3.8,
		TotalFeesEarnedUSD:   4.1,
		LastUpdated:          time.Now(),
		Positions: []pnl.PositionValuation{{
			PoolAddress:          solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112"),
			PositionAddress:      solana.NewWallet().PublicKey(),
			TokenA:               ledger.TokenInfo{Symbol: "SOL"},
			TokenB:               ledger.TokenInfo{Symbol: "USDC"},
			CurrentTotalValueUSD: 203.5,
			FeesEarnedUSD:        4.1,
			PnLUSD:               7.6,
			PnLPercentage:        3.8,
			IsStale:              true,
		}},
	}
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestDashboard(ctrl *fakeController) *Dashboard {
	d := NewDashboard(DashboardConfig{Controller: ctrl, Logs: logger.NewLogBuffer(10)})
	d.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return d
}

func TestDashboard_InitLoadsSummary(t *testing.T) {
	ctrl := &fakeController{summary: testSummary()}
	d := newTestDashboard(ctrl)

	msg := d.reload()
	require.IsType(t, PortfolioMsg{}, msg)
	d.Update(msg)

	view := d.View()
	assert.Contains(t, view, "$203.50")
	assert.Contains(t, view, "+$7.60")
	assert.Contains(t, view, "+3.80%")
	assert.Contains(t, view, "SOL/USDC")
	assert.Contains(t, view, "So11…1112")
	assert.Contains(t, view, "STALE")
	assert.Contains(t, view, "(1 stale)")
}

func TestDashboard_EmptySummary(t *testing.T) {
	d := newTestDashboard(&fakeController{})
	d.Update(PortfolioMsg{})

	view := d.View()
	assert.Contains(t, view, "No positions valued yet")
	assert.Contains(t, view, "waiting for first refresh")
}

func TestDashboard_RefreshKey(t *testing.T) {
	ctrl := &fakeController{}
	d := newTestDashboard(ctrl)

	_, cmd := d.Update(keyPress('r'))
	require.NotNil(t, cmd)
	assert.Contains(t, d.View(), "Refreshing all positions")

	assert.Equal(t, StatusMsg{Text: "Refresh completed"}, cmd())
	assert.Equal(t, int32(1), ctrl.refreshes.Load())

	ctrl.busy = true
	_, cmd = d.Update(keyPress('r'))
	assert.Equal(t, StatusMsg{Text: "A refresh is already running"}, cmd())
}

func TestDashboard_ClearCachesKey(t *testing.T) {
	ctrl := &fakeController{summary: testSummary()}
	d := newTestDashboard(ctrl)
	d.Update(PortfolioMsg{Summary: ctrl.summary})

	_, cmd := d.Update(keyPress('c'))
	assert.Nil(t, cmd)
	assert.Equal(t, 1, ctrl.cleared)

	view := d.View()
	assert.Contains(t, view, "Caches cleared")
	assert.Contains(t, view, "No positions valued yet")
}

func TestDashboard_ExportKey(t *testing.T) {
	ctrl := &fakeController{summary: testSummary()}

	t.Run("success", func(t *testing.T) {
		d := NewDashboard(DashboardConfig{
			Controller: ctrl,
			Export:     func() (string, error) { return "exports/portfolio.csv", nil },
		})
		_, cmd := d.Update(keyPress('e'))
		require.NotNil(t, cmd)

		d.Update(cmd())
		assert.Contains(t, d.View(), "Snapshot exported to exports/portfolio.csv")
	})

	t.Run("failure", func(t *testing.T) {
		d := NewDashboard(DashboardConfig{
			Controller: ctrl,
			Export:     func() (string, error) { return "", errors.New("disk full") },
		})
		_, cmd := d.Update(keyPress('e'))
		d.Update(cmd())
		assert.Contains(t, d.View(), "Export failed: disk full")
	})

	t.Run("disabled", func(t *testing.T) {
		d := NewDashboard(DashboardConfig{Controller: ctrl})
		_, cmd := d.Update(keyPress('e'))
		assert.Nil(t, cmd)
	})
}

func TestDashboard_RefreshLifecycle(t *testing.T) {
	d := newTestDashboard(&fakeController{})

	_, cmd := d.Update(RefreshStartedMsg{CycleID: "c1", Positions: 2})
	assert.NotNil(t, cmd)
	assert.Contains(t, d.View(), "refreshing")

	d.Update(RefreshCompletedMsg{CycleID: "c1", Succeeded: 1, Failed: 1, Duration: 1500 * time.Millisecond})
	assert.Contains(t, d.View(), "last cycle: 1 ok, 1 failed in 1.5s")
}

func TestDashboard_FailedPositions(t *testing.T) {
	ctrl := &fakeController{summary: testSummary()}
	d := newTestDashboard(ctrl)
	d.Update(PortfolioMsg{Summary: ctrl.summary})

	pool := ctrl.summary.Positions[0].PoolAddress.String()
	d.Update(PositionFailedMsg{Pool: pool, Error: "rpc timeout"})
	d.Update(PositionFailedMsg{Pool: "7YttLkHDoNj9wyDur5pM1ejNaAvT9X4eqaYcHQqtj2G5", Error: "not found"})

	view := d.View()
	assert.Contains(t, view, "FAILED")
	assert.Contains(t, view, "7Ytt…j2G5")
	assert.Contains(t, view, "Last error: rpc timeout")

	d.Update(PositionValuatedMsg{Pool: pool})
	d.Update(PortfolioMsg{Summary: ctrl.summary})
	assert.NotContains(t, d.View(), "rpc timeout")
}

func TestDashboard_QuitAndToggles(t *testing.T) {
	d := newTestDashboard(&fakeController{})

	assert.Contains(t, d.View(), "Recent Logs")
	d.Update(keyPress('l'))
	assert.NotContains(t, d.View(), "Recent Logs")

	_, cmd := d.Update(keyPress('q'))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())

	_, cmd = d.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestShortAddr(t *testing.T) {
	assert.Equal(t, "abc", shortAddr("abc"))
	assert.Equal(t, "So11…1112", shortAddr("So11111111111111111111111111111111111111112"))
}
