package export

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-tracker/internal/logger"
	"github.com/rovshanmuradov/lp-tracker/internal/pnl"
)

const historyFlushInterval = 30 * time.Second

// HistoryHeaders returns the column names of the portfolio history file.
func HistoryHeaders() []string {
	return []string{"timestamp", "positions", "initial_value_usd", "current_value_usd", "fees_usd", "pnl_usd", "pnl_pct"}
}

// History appends one totals row per portfolio update to portfolio_history.csv.
type History struct {
	rows   *logger.CSVAppender
	logger *zap.Logger
}

// NewHistory opens (or continues) the history file in dir.
func NewHistory(dir string, zapLogger *zap.Logger) (*History, error) {
	path := filepath.Join(dir, "portfolio_history.csv")

	rows, err := logger.OpenCSVAppender(path, HistoryHeaders(), historyFlushInterval, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create history writer: %w", err)
	}

	zapLogger.Info("Portfolio history initialized", zap.String("file", path))

	return &History{rows: rows, logger: zapLogger}, nil
}

// Record appends the totals of summary. A nil summary is skipped.
func (h *History) Record(summary *pnl.PortfolioSummary) error {
	if summary == nil {
		return nil
	}
	return h.rows.Append([]string{
		summary.LastUpdated.UTC().Format(time.RFC3339),
		fmt.Sprintf("%d", len(summary.Positions)),
		formatUSD(summary.TotalInitialValueUSD),
		formatUSD(summary.TotalCurrentValueUSD),
		formatUSD(summary.TotalFeesEarnedUSD),
		formatUSD(summary.TotalPnLUSD),
		formatUSD(summary.TotalPnLPercentage),
	})
}

// Close flushes and closes the history file.
func (h *History) Close() error {
	err := h.rows.Close()
	stats := h.rows.Stats()
	h.logger.Info("Portfolio history closed",
		zap.String("file", h.rows.Path()),
		zap.Uint64("rows", stats.Rows),
		zap.Uint64("flushes", stats.Flushes))
	return err
}
