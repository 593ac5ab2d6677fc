package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/lp-tracker/internal/ui/style"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline is a mini graph of the most recent width data points
type Sparkline struct {
	data  []float64
	width int
}

// NewSparkline creates a new sparkline component
func NewSparkline(width int) *Sparkline {
	return &Sparkline{width: width}
}

// AddDataPoint appends a value, keeping only the last width points
func (s *Sparkline) AddDataPoint(value float64) *Sparkline {
	s.data = append(s.data, value)
	if len(s.data) > s.width {
		s.data = s.data[len(s.data)-s.width:]
	}
	return s
}

// Reset drops all data points
func (s *Sparkline) Reset() {
	s.data = s.data[:0]
}

// Len returns the number of data points
func (s *Sparkline) Len() int {
	return len(s.data)
}

// View renders the sparkline colored by the trend of the last two points
func (s *Sparkline) View() string {
	palette := style.DefaultPalette()
	if len(s.data) == 0 {
		return lipgloss.NewStyle().Foreground(palette.TextMuted).Render(strings.Repeat("▁", s.width))
	}

	color := palette.Primary
	if n := len(s.data); n >= 2 {
		color = palette.PnLColor(s.data[n-1] - s.data[n-2])
	}
	return lipgloss.NewStyle().Foreground(color).Render(s.blocks())
}

func (s *Sparkline) blocks() string {
	lo, hi := s.data[0], s.data[0]
	for _, v := range s.data {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	// Flat series
	if lo == hi {
		return strings.Repeat(string(sparkChars[3]), len(s.data))
	}

	var b strings.Builder
	for _, v := range s.data {
		idx := int((v - lo) / (hi - lo) * float64(len(sparkChars)-1))
		b.WriteRune(sparkChars[idx])
	}
	return b.String()
}
