package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFieldFilterCore(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(&FieldFilterCore{core: obs})

	log.Info("Position valuation failed, keeping previous data",
		zap.String("pool", "So11111111111111111111111111111111111111112"),
		zap.Int("attempt", 3))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if !strings.Contains(entries[0].Message, "So11...1112") {
		t.Errorf("message not rewritten: %q", entries[0].Message)
	}
	ctx := entries[0].ContextMap()
	if _, ok := ctx["attempt"]; ok {
		t.Error("unlisted field was not dropped")
	}
	if _, ok := ctx["pool"]; !ok {
		t.Error("pool field was dropped")
	}
}

func TestFieldFilterCoreKeepAll(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(&FieldFilterCore{core: obs, keepAll: true})

	log.With(zap.String("cycle_id", "abc")).Debug("anything", zap.Int("attempt", 1))

	ctx := logs.All()[0].ContextMap()
	if ctx["cycle_id"] != "abc" || ctx["attempt"] != int64(1) {
		t.Errorf("fields not kept: %+v", ctx)
	}
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage("Refresh cycle completed", []zapcore.Field{
		zap.Int32("succeeded", 2),
		zap.Int32("failed", 1),
	})
	if !strings.Contains(msg, "2 ok, 1 failed") {
		t.Errorf("unexpected message: %q", msg)
	}
	if FormatMessage("plain", nil) != "plain" {
		t.Error("unknown message should pass through")
	}
}
