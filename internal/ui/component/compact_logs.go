package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/lp-tracker/internal/logger"
	"github.com/rovshanmuradov/lp-tracker/internal/ui/style"
)

const logPanelEntries = 50

// CompactLogViewer shows the tail of a LogBuffer in a small viewport
type CompactLogViewer struct {
	buffer    *logger.LogBuffer
	viewport  viewport.Model
	visible   bool
	showDebug bool

	title     lipgloss.Style
	timestamp lipgloss.Style
	error     lipgloss.Style
	warning   lipgloss.Style
	info      lipgloss.Style
	debug     lipgloss.Style
}

// NewCompactLogViewer creates a new compact log viewer
func NewCompactLogViewer(logBuffer *logger.LogBuffer) *CompactLogViewer {
	palette := style.DefaultPalette()

	return &CompactLogViewer{
		buffer:   logBuffer,
		visible:  true,
		viewport: viewport.New(50, 4),

		title:     lipgloss.NewStyle().Foreground(palette.Info).Bold(true),
		timestamp: lipgloss.NewStyle().Foreground(palette.TextMuted),
		error:     lipgloss.NewStyle().Foreground(palette.Loss).Bold(true),
		warning:   lipgloss.NewStyle().Foreground(palette.Warning).Bold(true),
		info:      lipgloss.NewStyle().Foreground(palette.Info),
		debug:     lipgloss.NewStyle().Foreground(palette.TextMuted),
	}
}

// SetSize sets the viewport dimensions; one line is reserved for the title
func (clv *CompactLogViewer) SetSize(width, height int) {
	if height < 3 {
		height = 3
	}
	clv.viewport.Width = width
	clv.viewport.Height = height - 1
}

// Toggle flips the visibility of the log viewer
func (clv *CompactLogViewer) Toggle() {
	clv.visible = !clv.visible
}

// IsVisible returns whether the log viewer is visible
func (clv *CompactLogViewer) IsVisible() bool {
	return clv.visible
}

// SetShowDebug includes or hides debug entries
func (clv *CompactLogViewer) SetShowDebug(show bool) {
	clv.showDebug = show
}

// View renders the title and the most recent entries
func (clv *CompactLogViewer) View() string {
	if !clv.visible {
		return ""
	}
	clv.refresh()

	return lipgloss.JoinVertical(lipgloss.Left,
		clv.title.Render("Recent Logs [l]"),
		clv.viewport.View(),
	)
}

// refresh reloads the viewport from the buffer and scrolls to the newest entry
func (clv *CompactLogViewer) refresh() {
	if clv.buffer == nil {
		clv.viewport.SetContent("No log buffer available")
		return
	}

	var lines []string
	for _, entry := range clv.buffer.GetRecentLogs(logPanelEntries) {
		if strings.EqualFold(entry.Level, "debug") && !clv.showDebug {
			continue
		}
		lines = append(lines, clv.format(entry))
	}

	if len(lines) == 0 {
		clv.viewport.SetContent("No logs yet")
		return
	}
	clv.viewport.SetContent(strings.Join(lines, "\n"))
	clv.viewport.GotoBottom()
}

func (clv *CompactLogViewer) format(entry logger.LogEntry) string {
	ts := clv.timestamp.Render(entry.Timestamp.Format("15:04:05"))

	var msg string
	switch strings.ToLower(entry.Level) {
	case "error":
		msg = clv.error.Render(entry.Message)
	case "warning", "warn":
		msg = clv.warning.Render(entry.Message)
	case "debug":
		msg = clv.debug.Render(entry.Message)
	default:
		msg = clv.info.Render(entry.Message)
	}

	return fmt.Sprintf("%s %s", ts, msg)
}
