package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-tracker/internal/pnl"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ErrNoData is returned when there is no summary to export.
var ErrNoData = errors.New("no portfolio data to export")

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format     ExportFormat
	OutputDir  string
	SkipClosed bool   // Leave out positions flagged as closed
	PoolFilter string // Export a single pool
}

// SnapshotExporter writes portfolio snapshots to disk
type SnapshotExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSnapshotExporter creates a new snapshot exporter
func NewSnapshotExporter(logger *zap.Logger) *SnapshotExporter {
	return &SnapshotExporter{
		logger: logger.Named("exporter"),
		now:    time.Now,
	}
}

// CSVHeaders returns the column names of a CSV snapshot.
func CSVHeaders() []string {
	return []string{
		"pool", "position", "token_a", "token_b",
		"amount_a", "amount_b", "fee_a", "fee_b", "price_a", "price_b",
		"initial_value_usd", "current_value_usd", "fees_usd", "pnl_usd", "pnl_pct",
		"closed", "stale", "last_updated",
	}
}

// Export writes summary in the requested format and returns the file path.
func (se *SnapshotExporter) Export(summary *pnl.PortfolioSummary, options ExportOptions) (string, error) {
	if summary == nil {
		return "", ErrNoData
	}
	filtered := se.filterPositions(summary, options)

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := fmt.Sprintf("portfolio_%s.%s", se.now().Format("20060102_150405"), options.Format)
	outputPath := filepath.Join(options.OutputDir, filename)

	var err error
	switch options.Format {
	case FormatCSV:
		err = se.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = se.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	se.logger.Info("Snapshot exported",
		zap.String("file", outputPath),
		zap.Int("positions", len(filtered.Positions)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

// filterPositions returns a copy of summary restricted by options. Totals are
// recomputed so they stay consistent with the exported rows.
func (se *SnapshotExporter) filterPositions(summary *pnl.PortfolioSummary, options ExportOptions) pnl.PortfolioSummary {
	if !options.SkipClosed && options.PoolFilter == "" {
		return *summary
	}

	out := pnl.PortfolioSummary{LastUpdated: summary.LastUpdated}
	for _, p := range summary.Positions {
		if options.SkipClosed && p.Closed {
			continue
		}
		if options.PoolFilter != "" && p.PoolAddress.String() != options.PoolFilter {
			continue
		}
		out.Positions = append(out.Positions, p)
		out.TotalCurrentValueUSD += p.CurrentTotalValueUSD
		out.TotalFeesEarnedUSD += p.FeesEarnedUSD
		out.TotalPnLUSD += p.PnLUSD
		if p.CostBasis != nil {
			out.TotalInitialValueUSD += p.CostBasis.InitialTotalValueUSD
		}
	}
	if out.TotalInitialValueUSD > 0 {
		out.TotalPnLPercentage = out.TotalPnLUSD / out.TotalInitialValueUSD * 100
	}
	return out
}

// PositionRecord converts a valuation into a CSV row.
func PositionRecord(p pnl.PositionValuation) []string {
	initial := 0.0
	if p.CostBasis != nil {
		initial = p.CostBasis.InitialTotalValueUSD
	}
	return []string{
		p.PoolAddress.String(),
		p.PositionAddress.String(),
		p.TokenA.Symbol,
		p.TokenB.Symbol,
		formatFloat(p.CurrentTokenAAmount),
		formatFloat(p.CurrentTokenBAmount),
		formatFloat(p.CurrentFeeAAmount),
		formatFloat(p.CurrentFeeBAmount),
		formatFloat(p.CurrentTokenAPrice),
		formatFloat(p.CurrentTokenBPrice),
		formatUSD(initial),
		formatUSD(p.CurrentTotalValueUSD),
		formatUSD(p.FeesEarnedUSD),
		formatUSD(p.PnLUSD),
		formatUSD(p.PnLPercentage),
		strconv.FormatBool(p.Closed),
		strconv.FormatBool(p.IsStale),
		p.LastUpdated.UTC().Format(time.RFC3339),
	}
}

// exportToCSV writes one row per position followed by a TOTAL row
func (se *SnapshotExporter) exportToCSV(summary pnl.PortfolioSummary, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, p := range summary.Positions {
		if err := writer.Write(PositionRecord(p)); err != nil {
			return fmt.Errorf("failed to write position: %w", err)
		}
	}

	total := make([]string, len(CSVHeaders()))
	total[0] = "TOTAL"
	total[10] = formatUSD(summary.TotalInitialValueUSD)
	total[11] = formatUSD(summary.TotalCurrentValueUSD)
	total[12] = formatUSD(summary.TotalFeesEarnedUSD)
	total[13] = formatUSD(summary.TotalPnLUSD)
	total[14] = formatUSD(summary.TotalPnLPercentage)
	total[17] = summary.LastUpdated.UTC().Format(time.RFC3339)
	if err := writer.Write(total); err != nil {
		return fmt.Errorf("failed to write totals: %w", err)
	}

	writer.Flush()
	return writer.Error()
}

// exportToJSON writes the summary with export metadata
func (se *SnapshotExporter) exportToJSON(summary pnl.PortfolioSummary, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime    time.Time            `json:"export_time"`
		PositionCount int                  `json:"position_count"`
		Summary       pnl.PortfolioSummary `json:"summary"`
	}{
		ExportTime:    se.now(),
		PositionCount: len(summary.Positions),
		Summary:       summary,
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatUSD(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
