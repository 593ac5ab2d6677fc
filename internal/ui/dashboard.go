// Package ui is the terminal dashboard of the tracker.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/lp-tracker/internal/logger"
	"github.com/rovshanmuradov/lp-tracker/internal/pnl"
	"github.com/rovshanmuradov/lp-tracker/internal/ui/component"
	"github.com/rovshanmuradov/lp-tracker/internal/ui/style"
)

const (
	stalenessTick = 5 * time.Second
	logPanelRows  = 8
	gaugeWidth    = 20
)

// Controller is the part of the engine the dashboard drives.
type Controller interface {
	PortfolioSummary() *pnl.PortfolioSummary
	ForceRefresh(ctx context.Context) bool
	ClearCaches()
}

// DashboardConfig configures a Dashboard.
type DashboardConfig struct {
	Controller Controller
	Updates    *UpdateSender
	// Export writes a snapshot and returns its path. Nil hides the action.
	Export func() (string, error)
	Logs   *logger.LogBuffer
}

// Dashboard is the main screen: portfolio totals, one row per position and recent logs.
type Dashboard struct {
	ctrl    Controller
	updates *UpdateSender
	export  func() (string, error)

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	table   *component.Table
	gauge   *component.PnLGauge
	spark   *component.Sparkline
	logs    *component.CompactLogViewer

	summary    *pnl.PortfolioSummary
	failures   map[string]string
	refreshing bool
	lastCycle  *RefreshCompletedMsg
	status     string
	statusErr  bool

	width  int
	height int
}

// NewDashboard creates the dashboard model
func NewDashboard(cfg DashboardConfig) *Dashboard {
	return &Dashboard{
		ctrl:    cfg.Controller,
		updates: cfg.Updates,
		export:  cfg.Export,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		table: component.NewTable([]component.TableColumn{
			{Header: "Pool", Width: 11, Align: lipgloss.Left},
			{Header: "Pair", Width: 13, Align: lipgloss.Left},
			{Header: "Value", Width: 12, Align: lipgloss.Right},
			{Header: "Fees", Width: 10, Align: lipgloss.Right},
			{Header: "PnL", Width: 12, Align: lipgloss.Right},
			{Header: "PnL %", Width: 9, Align: lipgloss.Right},
			{Header: "Status", Width: 8, Align: lipgloss.Left},
		}),
		gauge:    component.NewPnLGauge(gaugeWidth),
		spark:    component.NewSparkline(40),
		logs:     component.NewCompactLogViewer(cfg.Logs),
		failures: make(map[string]string),
	}
}

// Init loads the current summary. Listening for engine updates starts once it arrives.
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.reload, d.tick())
}

// Update handles keys, engine messages and timers
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
		d.help.Width = msg.Width
		d.logs.SetSize(msg.Width-4, logPanelRows)
		return d, nil

	case tea.KeyMsg:
		return d, d.handleKey(msg)

	case PortfolioMsg:
		d.setSummary(msg.Summary)
		return d, d.listen()

	case RefreshStartedMsg:
		d.refreshing = true
		return d, tea.Batch(d.listen(), d.spinner.Tick)

	case RefreshCompletedMsg:
		d.refreshing = false
		d.lastCycle = &msg
		return d, d.listen()

	case PositionValuatedMsg:
		delete(d.failures, msg.Pool)
		return d, d.listen()

	case PositionFailedMsg:
		d.failures[msg.Pool] = msg.Error
		d.rebuildRows()
		return d, d.listen()

	case PositionClosedMsg:
		d.setStatus(fmt.Sprintf("Position in pool %s is closed", shortAddr(msg.Pool)), false)
		return d, d.listen()

	case ExportDoneMsg:
		if msg.Err != nil {
			d.setStatus("Export failed: "+msg.Err.Error(), true)
		} else {
			d.setStatus("Snapshot exported to "+msg.Path, false)
		}
		return d, nil

	case StatusMsg:
		d.setStatus(msg.Text, msg.IsError)
		return d, nil

	case tickMsg:
		// Summary staleness is computed on read
		d.setSummary(d.ctrl.PortfolioSummary())
		return d, d.tick()

	case spinner.TickMsg:
		if !d.refreshing {
			return d, nil
		}
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	}

	return d, nil
}

func (d *Dashboard) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, d.keys.Quit):
		return tea.Quit

	case key.Matches(msg, d.keys.Refresh):
		d.setStatus("Refreshing all positions...", false)
		ctrl := d.ctrl
		return func() tea.Msg {
			if !ctrl.ForceRefresh(context.Background()) {
				return StatusMsg{Text: "A refresh is already running"}
			}
			return StatusMsg{Text: "Refresh completed"}
		}

	case key.Matches(msg, d.keys.ClearCaches):
		d.ctrl.ClearCaches()
		d.failures = make(map[string]string)
		d.setSummary(d.ctrl.PortfolioSummary())
		d.spark.Reset()
		d.setStatus("Caches cleared", false)
		return nil

	case key.Matches(msg, d.keys.Export):
		if d.export == nil {
			return nil
		}
		export := d.export
		return func() tea.Msg {
			path, err := export()
			return ExportDoneMsg{Path: path, Err: err}
		}

	case key.Matches(msg, d.keys.ToggleLogs):
		d.logs.Toggle()

	case key.Matches(msg, d.keys.Help):
		d.help.ShowAll = !d.help.ShowAll

	case key.Matches(msg, d.keys.Up):
		d.table.MoveUp()

	case key.Matches(msg, d.keys.Down):
		d.table.MoveDown()
	}
	return nil
}

// reload reads the summary straight from the engine
func (d *Dashboard) reload() tea.Msg {
	return PortfolioMsg{Summary: d.ctrl.PortfolioSummary()}
}

func (d *Dashboard) listen() tea.Cmd {
	if d.updates == nil {
		return nil
	}
	return d.updates.Listen()
}

func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(stalenessTick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (d *Dashboard) setStatus(text string, isErr bool) {
	d.status = text
	d.statusErr = isErr
}

func (d *Dashboard) setSummary(s *pnl.PortfolioSummary) {
	if s == nil {
		d.summary = nil
		d.rebuildRows()
		return
	}

	// Each summary update adds one point to the value trend
	if d.summary == nil || !s.LastUpdated.Equal(d.summary.LastUpdated) {
		d.spark.AddDataPoint(s.TotalCurrentValueUSD)
	}
	d.summary = s
	d.gauge.SetValue(s.TotalPnLPercentage)
	d.rebuildRows()
}

func (d *Dashboard) rebuildRows() {
	palette := style.DefaultPalette()
	var rows []component.TableRow

	seen := make(map[string]bool)
	if d.summary != nil {
		for _, p := range d.summary.Positions {
			pool := p.PoolAddress.String()
			seen[pool] = true

			status, statusColor := "OK", palette.Profit
			switch {
			case d.failures[pool] != "":
				status, statusColor = "FAILED", palette.Loss
			case p.Closed:
				status, statusColor = "CLOSED", palette.TextMuted
			case p.IsStale:
				status, statusColor = "STALE", palette.Warning
			}

			pnlColor := palette.PnLColor(p.PnLUSD)
			rows = append(rows, component.TableRow{
				Data: []string{
					shortAddr(pool),
					p.TokenA.Symbol + "/" + p.TokenB.Symbol,
					fmt.Sprintf("$%.2f", p.CurrentTotalValueUSD),
					fmt.Sprintf("$%.2f", p.FeesEarnedUSD),
					component.FormatSignedUSD(p.PnLUSD),
					component.FormatSignedPercent(p.PnLPercentage),
					status,
				},
				Colors: []lipgloss.Color{"", "", "", "", pnlColor, pnlColor, statusColor},
			})
		}
	}

	// Pools that never valued successfully still get a row
	for pool := range d.failures {
		if seen[pool] {
			continue
		}
		rows = append(rows, component.TableRow{
			Data:   []string{shortAddr(pool), "?", "-", "-", "-", "-", "FAILED"},
			Colors: []lipgloss.Color{"", "", "", "", "", "", palette.Loss},
		})
	}

	d.table.SetRows(rows)
}

// View renders the dashboard
func (d *Dashboard) View() string {
	sections := []string{
		d.headerView(),
		style.PanelStyle.Render(d.summaryView()),
		style.PanelStyle.Render(d.positionsView()),
	}
	if detail := d.detailView(); detail != "" {
		sections = append(sections, detail)
	}
	if d.status != "" {
		st := style.MutedStyle
		if d.statusErr {
			st = style.ErrorStyle
		}
		sections = append(sections, st.Render(d.status))
	}
	if d.logs.IsVisible() {
		sections = append(sections, style.PanelStyle.Render(d.logs.View()))
	}
	sections = append(sections, d.help.View(d.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (d *Dashboard) headerView() string {
	title := style.HeaderStyle.Render("DAMM v2 LP Tracker")

	var state string
	switch {
	case d.refreshing:
		state = d.spinner.View() + " refreshing"
	case d.lastCycle != nil:
		state = fmt.Sprintf("last cycle: %d ok, %d failed in %s",
			d.lastCycle.Succeeded, d.lastCycle.Failed, d.lastCycle.Duration.Round(time.Millisecond))
	default:
		state = "waiting for first refresh"
	}
	return title + " " + style.MutedStyle.Render(state)
}

func (d *Dashboard) summaryView() string {
	if d.summary == nil {
		return style.MutedStyle.Render("No positions valued yet")
	}
	s := d.summary
	palette := style.DefaultPalette()
	pnlStyle := lipgloss.NewStyle().Foreground(palette.PnLColor(s.TotalPnLUSD)).Bold(true)

	line := func(label, value string) string {
		return style.LabelStyle.Render(fmt.Sprintf("%-10s", label)) + value
	}

	updated := s.LastUpdated.Local().Format("15:04:05")
	if stale := d.staleCount(); stale > 0 {
		updated += " " + style.WarningStyle.Render(fmt.Sprintf("(%d stale)", stale))
	}

	return strings.Join([]string{
		line("Value", style.ValueStyle.Render(fmt.Sprintf("$%.2f", s.TotalCurrentValueUSD))),
		line("Invested", style.ValueStyle.Render(fmt.Sprintf("$%.2f", s.TotalInitialValueUSD))),
		line("PnL", pnlStyle.Render(component.FormatSignedUSD(s.TotalPnLUSD))+" "+d.gauge.View()),
		line("Fees", style.ValueStyle.Render(fmt.Sprintf("$%.2f", s.TotalFeesEarnedUSD))),
		line("Trend", d.spark.View()),
		line("Updated", updated),
	}, "\n")
}

func (d *Dashboard) positionsView() string {
	if d.table.RowCount() == 0 {
		return style.MutedStyle.Render("No positions")
	}
	return d.table.View()
}

// detailView shows the cost basis or failure of the selected position
func (d *Dashboard) detailView() string {
	if d.summary == nil || d.table.RowCount() == 0 {
		return ""
	}
	idx := d.table.SelectedRow()
	if idx >= len(d.summary.Positions) {
		return ""
	}
	p := d.summary.Positions[idx]
	if reason := d.failures[p.PoolAddress.String()]; reason != "" {
		return style.ErrorStyle.Render("Last error: " + reason)
	}

	details := fmt.Sprintf("%s  %.6f %s + %.6f %s  fees %.6f / %.6f",
		shortAddr(p.PositionAddress.String()),
		p.CurrentTokenAAmount, p.TokenA.Symbol,
		p.CurrentTokenBAmount, p.TokenB.Symbol,
		p.CurrentFeeAAmount, p.CurrentFeeBAmount)
	if cb := p.CostBasis; cb != nil {
		details += fmt.Sprintf("  deposited $%.2f on %s", cb.InitialTotalValueUSD, cb.CreatedAt.Local().Format("2006-01-02"))
	}
	return style.MutedStyle.Render(details)
}

func (d *Dashboard) staleCount() int {
	n := 0
	for _, p := range d.summary.Positions {
		if p.IsStale {
			n++
		}
	}
	return n
}

// shortAddr abbreviates a base58 address to "abcd…wxyz"
func shortAddr(addr string) string {
	if len(addr) <= 9 {
		return addr
	}
	return addr[:4] + "…" + addr[len(addr)-4:]
}
