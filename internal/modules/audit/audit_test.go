package audit

import (
	"context"
	"testing"
	"time"

	"guild-greeter/internal/storage"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogPersistsAndWrites(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	core, logs := observer.New(zapcore.InfoLevel)
	logger := NewLogger(store, zap.New(core))

	ctx := context.Background()
	logger.Log(ctx, LevelInfo, "g1", "u1", EventGreetingSent, "kind=welcome card=animated")
	logger.Log(ctx, LevelWarn, "g1", "u2", EventGreetingFailed, "kind=leave")

	entries, err := store.ListAuditLogs(ctx, "g1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if logs.FilterMessage("audit").Len() != 2 {
		t.Fatalf("expected 2 audit log lines, got %d", logs.Len())
	}
	if logs.FilterField(zap.String("event", EventGreetingFailed)).All()[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected failure logged at warn")
	}
}

func TestLogWithoutStore(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	NewLogger(nil, zap.New(core)).Log(context.Background(), LevelInfo, "g1", "u1", EventLinkFixed, "")
	if logs.Len() != 1 {
		t.Fatalf("expected one log line, got %d", logs.Len())
	}
	var nilLogger *Logger
	nilLogger.Log(context.Background(), LevelInfo, "g1", "u1", EventLinkFixed, "")
}
