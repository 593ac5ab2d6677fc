// internal/logger/pretty.go
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

// keptFields are printed by the pretty console logger; everything else is dropped
// to keep lines short. Debug mode prints all fields.
var keptFields = map[string]struct{}{
	"pool":       {},
	"position":   {},
	"error":      {},
	"url":        {},
	"succeeded":  {},
	"failed":     {},
	"duration":   {},
	"interval":   {},
	"file":       {},
	"positions":  {},
	"total_pnl":  {},
	"signature":  {},
	"event_type": {},
}

func prettyEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "",
		CallerKey:      "",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// customLevelEncoder formats log levels with colors
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(fmt.Sprintf("%s[DEBUG]%s", ColorCyan, ColorReset))
	case zapcore.InfoLevel:
		enc.AppendString(fmt.Sprintf("%s[INFO]%s", ColorGreen, ColorReset))
	case zapcore.WarnLevel:
		enc.AppendString(fmt.Sprintf("%s[WARN]%s", ColorYellow, ColorReset))
	case zapcore.ErrorLevel:
		enc.AppendString(fmt.Sprintf("%s[ERROR]%s", ColorRed, ColorReset))
	case zapcore.FatalLevel:
		enc.AppendString(fmt.Sprintf("%s[FATAL]%s", ColorRed+ColorBold, ColorReset))
	default:
		enc.AppendString(fmt.Sprintf("[%s]", level.CapitalString()))
	}
}

// customTimeEncoder formats time in a readable way
func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// CreatePrettyLogger creates a colored console logger for the daemon.
func CreatePrettyLogger(debug bool) (*zap.Logger, error) {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(prettyEncoderConfig()),
		zapcore.AddSync(zapcore.Lock(os.Stdout)),
		level,
	)

	return zap.New(&FieldFilterCore{core: core, keepAll: debug}), nil
}

// CreateTUILogger creates a logger that only writes JSON lines to buffer, so the
// terminal stays free for the dashboard.
func CreateTUILogger(debug bool, buffer *LogBuffer) (*zap.Logger, error) {
	if buffer == nil {
		return nil, fmt.Errorf("buffer is required for TUI logger")
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(buffer), level)
	return zap.New(core), nil
}

// FormatMessage turns well-known engine messages into short decorated lines.
func FormatMessage(msg string, fields []zapcore.Field) string {
	switch {
	case strings.HasPrefix(msg, "Refresh cycle completed"):
		return fmt.Sprintf("%s🔄 Refresh completed: %s ok, %s failed%s",
			ColorBlue, extractField(fields, "succeeded"), extractField(fields, "failed"), ColorReset)

	case strings.HasPrefix(msg, "Position valuation failed"):
		return fmt.Sprintf("%s⚠ Valuation failed for %s%s",
			ColorYellow, shortenAddress(extractField(fields, "pool")), ColorReset)

	case strings.HasPrefix(msg, "Position holds no liquidity"):
		return fmt.Sprintf("%s📭 Position closed in pool %s%s",
			ColorPurple, shortenAddress(extractField(fields, "pool")), ColorReset)

	case strings.HasPrefix(msg, "RPC endpoint selected"):
		return fmt.Sprintf("%s✓ RPC endpoint: %s%s", ColorGreen, extractField(fields, "url"), ColorReset)

	case strings.HasPrefix(msg, "Snapshot exported"):
		return fmt.Sprintf("%s💾 Snapshot saved: %s%s", ColorGreen, extractField(fields, "file"), ColorReset)

	default:
		return msg
	}
}

func extractField(fields []zapcore.Field, key string) string {
	for _, field := range fields {
		if field.Key != key {
			continue
		}
		switch field.Type {
		case zapcore.StringType:
			return field.String
		case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
			zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
			return fmt.Sprintf("%d", field.Integer)
		default:
			return fmt.Sprintf("%v", field.Interface)
		}
	}
	return ""
}

func shortenAddress(addr string) string {
	if len(addr) > 8 {
		return addr[:4] + "..." + addr[len(addr)-4:]
	}
	return addr
}

// FieldFilterCore wraps a zapcore.Core, rewrites known messages and drops noisy fields.
type FieldFilterCore struct {
	core    zapcore.Core
	keepAll bool
}

func (c *FieldFilterCore) Enabled(level zapcore.Level) bool {
	return c.core.Enabled(level)
}

func (c *FieldFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &FieldFilterCore{core: c.core.With(c.filter(fields)), keepAll: c.keepAll}
}

func (c *FieldFilterCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *FieldFilterCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	entry.Message = FormatMessage(entry.Message, fields)
	return c.core.Write(entry, c.filter(fields))
}

func (c *FieldFilterCore) Sync() error {
	return c.core.Sync()
}

func (c *FieldFilterCore) filter(fields []zapcore.Field) []zapcore.Field {
	if c.keepAll {
		return fields
	}
	out := fields[:0:0]
	for _, f := range fields {
		if _, ok := keptFields[f.Key]; ok {
			out = append(out, f)
		}
	}
	return out
}
