package component

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/lp-tracker/internal/ui/style"
)

// PnLGauge renders a profit/loss percentage as a bar with a signed value
type PnLGauge struct {
	value    float64 // PnL percentage
	width    int
	maxScale float64 // Percentage that fills the whole bar

	// Thresholds for strong arrows
	profitThreshold float64
	lossThreshold   float64
}

// NewPnLGauge creates a new PnL gauge component
func NewPnLGauge(width int) *PnLGauge {
	return &PnLGauge{
		width:           width,
		maxScale:        20.0,
		profitThreshold: 5.0,
		lossThreshold:   -5.0,
	}
}

// SetValue sets the PnL percentage value
func (p *PnLGauge) SetValue(value float64) *PnLGauge {
	p.value = value
	return p
}

// SetWidth sets the gauge width
func (p *PnLGauge) SetWidth(width int) *PnLGauge {
	p.width = width
	return p
}

// View renders the bar followed by the signed percentage
func (p *PnLGauge) View() string {
	color := style.DefaultPalette().PnLColor(p.value)

	bar := lipgloss.NewStyle().Foreground(color).Render(p.bar())
	text := lipgloss.NewStyle().Foreground(color).Bold(true).Render(p.Label())

	return bar + " " + text
}

// Label returns the signed percentage with a trend arrow, e.g. "+3.80% ↑"
func (p *PnLGauge) Label() string {
	return FormatSignedPercent(p.value) + " " + p.Arrow()
}

// Arrow returns the trend arrow for the current value
func (p *PnLGauge) Arrow() string {
	switch {
	case p.value >= p.profitThreshold:
		return "↗"
	case p.value <= p.lossThreshold:
		return "↘"
	case p.value > 0:
		return "↑"
	case p.value < 0:
		return "↓"
	default:
		return "→"
	}
}

// bar fills proportionally to |value| / maxScale, at least one cell for non-zero values
func (p *PnLGauge) bar() string {
	if p.width <= 0 {
		return ""
	}

	chars := []string{"▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

	absValue := math.Abs(p.value)
	intensity := math.Min(absValue/p.maxScale, 1.0)
	charIndex := int(intensity * float64(len(chars)-1))

	filled := int(intensity * float64(p.width))
	if filled < 1 && absValue > 0 {
		filled = 1
	}

	var b strings.Builder
	for i := 0; i < p.width; i++ {
		if i < filled {
			b.WriteString(chars[charIndex])
		} else {
			b.WriteString(chars[0])
		}
	}
	return b.String()
}

// FormatSignedPercent formats v as "+1.23%", "-1.23%" or "0.00%"
func FormatSignedPercent(v float64) string {
	switch {
	case v > 0:
		return fmt.Sprintf("+%.2f%%", v)
	case v < 0:
		return fmt.Sprintf("-%.2f%%", math.Abs(v))
	default:
		return "0.00%"
	}
}

// FormatSignedUSD formats v as "+$1.23", "-$1.23" or "$0.00"
func FormatSignedUSD(v float64) string {
	switch {
	case v > 0:
		return fmt.Sprintf("+$%.2f", v)
	case v < 0:
		return fmt.Sprintf("-$%.2f", math.Abs(v))
	default:
		return "$0.00"
	}
}
