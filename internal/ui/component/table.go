package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/lp-tracker/internal/ui/style"
)

// TableColumn represents a column configuration
type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

// TableRow represents a row of data. Colors, when set, overrides the row
// foreground per cell.
type TableRow struct {
	Data   []string
	Colors []lipgloss.Color
}

// Table represents a data table component with a single selected row
type Table struct {
	columns     []TableColumn
	rows        []TableRow
	selectedRow int

	headerStyle      lipgloss.Style
	rowStyle         lipgloss.Style
	selectedRowStyle lipgloss.Style
}

// NewTable creates a new table component
func NewTable(columns []TableColumn) *Table {
	palette := style.DefaultPalette()

	return &Table{
		columns: columns,

		headerStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true).
			Padding(0, 1),

		rowStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 1),

		selectedRowStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Background(palette.BackgroundAlt).
			Bold(true).
			Padding(0, 1),
	}
}

// SetRows replaces all rows, keeping the selection in range
func (t *Table) SetRows(rows []TableRow) *Table {
	t.rows = rows
	if t.selectedRow >= len(rows) {
		t.selectedRow = len(rows) - 1
	}
	if t.selectedRow < 0 {
		t.selectedRow = 0
	}
	return t
}

// SelectedRow returns the currently selected row index
func (t *Table) SelectedRow() int {
	return t.selectedRow
}

// MoveUp moves selection up
func (t *Table) MoveUp() *Table {
	if t.selectedRow > 0 {
		t.selectedRow--
	}
	return t
}

// MoveDown moves selection down
func (t *Table) MoveDown() *Table {
	if t.selectedRow < len(t.rows)-1 {
		t.selectedRow++
	}
	return t
}

// RowCount returns the number of rows
func (t *Table) RowCount() int {
	return len(t.rows)
}

// View renders the table
func (t *Table) View() string {
	var content strings.Builder

	cells := make([]string, len(t.columns))
	for i, col := range t.columns {
		cells[i] = renderCell(col.Header, col.Width, col.Align, t.headerStyle)
	}
	content.WriteString(strings.Join(cells, "│"))
	content.WriteString("\n")

	for i, col := range t.columns {
		cells[i] = strings.Repeat("─", col.Width+2)
	}
	content.WriteString(strings.Join(cells, "┼"))

	for rowIndex, row := range t.rows {
		rowStyle := t.rowStyle
		if rowIndex == t.selectedRow {
			rowStyle = t.selectedRowStyle
		}

		for i, col := range t.columns {
			data := ""
			if i < len(row.Data) {
				data = row.Data[i]
			}
			cellStyle := rowStyle
			if i < len(row.Colors) && row.Colors[i] != "" {
				cellStyle = cellStyle.Foreground(row.Colors[i])
			}
			cells[i] = renderCell(data, col.Width, col.Align, cellStyle)
		}
		content.WriteString("\n")
		content.WriteString(strings.Join(cells, "│"))
	}

	return content.String()
}

// renderCell truncates content to width and applies alignment
func renderCell(content string, width int, align lipgloss.Position, cellStyle lipgloss.Style) string {
	if runes := []rune(content); len(runes) > width {
		if width > 1 {
			content = string(runes[:width-1]) + "…"
		} else {
			content = string(runes[:width])
		}
	}
	return cellStyle.Width(width + 2).Align(align).Render(content)
}
