package logger

import (
	"context"
	"regexp"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewContext(t *testing.T) {
	ctx := NewContext()

	if ctx.Value(KeyLogger) == nil {
		t.Errorf("Want not nil, got nil")
	}

	if ctx.Value(KeyRequestID) == "" {
		t.Errorf("Expected request ID value to be non-empty")
	}

	requestID := ctx.Value(KeyRequestID).(string)

	if len(requestID) != 36 {
		t.Errorf("Got %v, want %v", len(requestID), 36)
	}
}

func TestContextWithRequestID(t *testing.T) {
	ctx := context.Background()

	gotNotSet := RequestIDFromContext(ctx)

	pattern := "unknown/[[:ascii:]]{36}"
	match, _ := regexp.MatchString(pattern, gotNotSet)

	if !match {
		t.Errorf("%v did not match %v", gotNotSet, pattern)
	}

	want := "foo"
	ctx = ContextWithRequestID(ctx, want)

	if ctx.Value(KeyLogger) == nil {
		t.Errorf("Want not nil, got nil")
	}

	got := ctx.Value(KeyRequestID)
	if got != want {
		t.Errorf("Got %v, want %v", got, want)
	}

	got = RequestIDFromContext(ctx)
	if got != want {
		t.Errorf("Got %v, want %v", got, want)
	}
}

func TestContextWithLogger(t *testing.T) {
	ctx := context.Background()

	logger, _ := zap.NewProduction()
	ctx = ContextWithLogger(ctx, logger)

	if ctx.Value(KeyLogger) != logger {
		t.Errorf("Want %v, got %v", logger, ctx.Value(KeyLogger))
	}
}

func TestNewLoggerFromContext(t *testing.T) {
	ctx := NewContext()

	logger := NewLoggerFromContext(ctx)

	if logger == nil {
		t.Errorf("Want non-nil Logger")
	}
}

func TestNewLoggerFromContext_nilLogger(t *testing.T) {
	ctx := context.Background()

	logger := NewLoggerFromContext(ctx)

	if logger == nil {
		t.Errorf("Want non-nil Logger")
	}
}

func TestContextWithLogSubSystem(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := NewContextWithLogger(zap.New(core))

	ctx = ContextWithLogSubSystem(ctx, "miner")
	ctx = ContextWithLogSubSystem(ctx, "miner")

	if got := SubSystemFromContext(ctx); got != "miner" {
		t.Errorf("Got %v, want %v", got, "miner")
	}

	Info(ctx, "Mined %d blocks", 3)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Got %v entries, want %v", len(entries), 1)
	}

	if entries[0].LoggerName != "miner" {
		t.Errorf("Got logger name %v, want %v", entries[0].LoggerName, "miner")
	}

	if entries[0].Message != "Mined 3 blocks" {
		t.Errorf("Got message %v, want %v", entries[0].Message, "Mined 3 blocks")
	}

	if entries[0].ContextMap()[fieldRequestID] != RequestIDFromContext(ctx) {
		t.Errorf("Missing request id field : %v", entries[0].ContextMap())
	}
}

func TestContextWithTXHash(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := NewContextWithLogger(zap.New(core))

	ctx = ContextWithTXHash(ctx, "0x1234")
	if got := TXHashFromContext(ctx); got != "0x1234" {
		t.Errorf("Got %v, want %v", got, "0x1234")
	}

	Debug(ctx, "Sealed")
	Elapsed(ctx, time.Now(), "Send")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("Got %v entries, want %v", len(entries), 2)
	}

	for _, entry := range entries {
		if entry.ContextMap()[fieldTXHash] != "0x1234" {
			t.Errorf("Missing tx hash field : %v", entry.ContextMap())
		}
	}

	if _, ok := entries[1].ContextMap()[fieldElapsed]; !ok {
		t.Errorf("Missing elapsed field : %v", entries[1].ContextMap())
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Config{Format: FormatText, Development: true}); err != nil {
		t.Errorf("Failed to create text logger : %s", err)
	}

	if _, err := New(Config{}); err != nil {
		t.Errorf("Failed to create default logger : %s", err)
	}

	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Errorf("Failed to reject unknown format")
	}
}
