package component

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rovshanmuradov/lp-tracker/internal/logger"
)

func TestFormatSigned(t *testing.T) {
	assert.Equal(t, "+3.80%", FormatSignedPercent(3.8))
	assert.Equal(t, "-10.00%", FormatSignedPercent(-10))
	assert.Equal(t, "0.00%", FormatSignedPercent(0))

	assert.Equal(t, "+$7.60", FormatSignedUSD(7.6))
	assert.Equal(t, "-$0.50", FormatSignedUSD(-0.5))
	assert.Equal(t, "$0.00", FormatSignedUSD(0))
}

func TestPnLGauge(t *testing.T) {
	gauge := NewPnLGauge(10)

	assert.Equal(t, "0.00% →", gauge.Label())
	assert.Equal(t, strings.Repeat("▁", 10), gauge.bar())

	gauge.SetValue(3.8)
	assert.Equal(t, "↑", gauge.Arrow())
	assert.Equal(t, 10, len([]rune(gauge.bar())))

	gauge.SetValue(-25)
	assert.Equal(t, "↘", gauge.Arrow())
	assert.Equal(t, strings.Repeat("█", 10), gauge.bar())
	assert.Contains(t, gauge.View(), "-25.00% ↘")
}

func TestSparkline(t *testing.T) {
	spark := NewSparkline(4)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		spark.AddDataPoint(v)
	}
	assert.Equal(t, 4, spark.Len())
	assert.Equal(t, "▁▃▅█", spark.blocks())

	spark.Reset()
	spark.AddDataPoint(7).AddDataPoint(7)
	assert.Equal(t, "▄▄", spark.blocks())
}

func TestTableSelection(t *testing.T) {
	table := NewTable([]TableColumn{{Header: "Pool", Width: 6}, {Header: "PnL", Width: 6}})
	table.SetRows([]TableRow{{Data: []string{"a", "1"}}, {Data: []string{"b", "2"}}, {Data: []string{"c", "3"}}})

	table.MoveUp()
	assert.Equal(t, 0, table.SelectedRow())
	table.MoveDown().MoveDown().MoveDown()
	assert.Equal(t, 2, table.SelectedRow())

	table.SetRows([]TableRow{{Data: []string{"a", "1"}}})
	assert.Equal(t, 0, table.SelectedRow())

	view := table.View()
	assert.Contains(t, view, "Pool")
	assert.Equal(t, 3, strings.Count(view, "\n")+1, "header, separator and one row")
}

func TestRenderCellTruncates(t *testing.T) {
	assert.Contains(t, renderCell("abcdefgh", 5, 0, NewTable(nil).rowStyle), "abcd…")
}

func TestCompactLogViewer(t *testing.T) {
	buf := logger.NewLogBuffer(10)
	buf.Add("info", "Refresh cycle completed", nil)
	buf.Add("debug", "hidden detail", nil)
	buf.Add("error", "Position valuation failed", nil)

	viewer := NewCompactLogViewer(buf)
	viewer.SetSize(80, 6)

	view := viewer.View()
	assert.Contains(t, view, "Refresh cycle completed")
	assert.Contains(t, view, "Position valuation failed")
	assert.NotContains(t, view, "hidden detail")

	viewer.SetShowDebug(true)
	assert.Contains(t, viewer.View(), "hidden detail")

	viewer.Toggle()
	assert.Empty(t, viewer.View())
}
