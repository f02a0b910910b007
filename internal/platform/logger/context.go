package logger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type key int

const (
	// KeyRequestID is the Request ID in the Context.
	KeyRequestID key = 0

	// KeyLogger is the Logger in the Context.
	KeyLogger key = 1

	// KeyTXHash is the key for the TXHash in the Context.
	KeyTXHash key = 2

	// KeySubSystem is the name of the component logging through the Context.
	KeySubSystem key = 3
)

// NewContext returns a fully configured Context with from a background
// Context, with a new RequestID set, and a Logger.
//
// The Logger will include the RequestID field.
func NewContext() context.Context {
	return ContextWithRequestID(context.Background(), "")
}

// NewContextWithLogger returns a new Context with a RequestID and the given base Logger.
func NewContextWithLogger(base *zap.Logger) context.Context {
	ctx := ContextWithLogger(context.Background(), base)
	return ContextWithRequestID(ctx, "")
}

// ContextWithRequestID returns a fully configured Context from the given
// Context and RequestID.
//
// If the RequestID is an empty string, a RequestID will be generated.
//
// The Context will have a Logger, which will have the RequestID field set.
// An existing Logger in the Context is kept as the base.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if len(id) == 0 {
		uid, _ := uuid.NewRandom()
		id = uid.String()
	}

	var logger *zap.Logger
	if existing, ok := ctx.Value(KeyLogger).(*zap.Logger); ok {
		logger = existing.With(zap.String(fieldRequestID, id))
	}

	ctx = context.WithValue(ctx, KeyRequestID, id)

	if logger == nil {
		logger = newLogger(ctx)
	}

	return ContextWithLogger(ctx, logger)
}

// ContextWithTXHash returns a Context with the TXHash set.
//
// A Logger with the TXHash field set is associated with the Context.
func ContextWithTXHash(ctx context.Context, txHash string) context.Context {
	ctx = context.WithValue(ctx, KeyTXHash, txHash)

	logger := NewLoggerFromContext(ctx)
	logger = logger.With(zap.String(fieldTXHash, txHash))

	return ContextWithLogger(ctx, logger)
}

// ContextWithLogger adds the Logger to the Context.
func ContextWithLogger(ctx context.Context,
	logger *zap.Logger) context.Context {

	return context.WithValue(ctx, KeyLogger, logger)
}

// ContextWithLogSubSystem returns a Context whose Logger is named after the subsystem.
// Calling it again with the same subsystem is a no-op.
func ContextWithLogSubSystem(ctx context.Context, subsystem string) context.Context {
	if current, ok := ctx.Value(KeySubSystem).(string); ok && current == subsystem {
		return ctx
	}

	ctx = context.WithValue(ctx, KeySubSystem, subsystem)

	logger := NewLoggerFromContext(ctx)
	logger = logger.Named(subsystem)

	return ContextWithLogger(ctx, logger)
}

// RequestIDFromContext returns the request ID from the Context.
//
// If the value was not set in the Context, "unknown" is returned. This can
// help find callers that are not adding the RequestID.
func RequestIDFromContext(ctx context.Context) string {
	v := ctx.Value(KeyRequestID)

	if v == nil {
		id, _ := uuid.NewRandom()
		return fmt.Sprintf("unknown/%s", id.String())
	}

	return v.(string)
}

// TXHashFromContext returns the Hash of the TX being processed if set,
// otherwise an empty string.
func TXHashFromContext(ctx context.Context) string {
	v := ctx.Value(KeyTXHash)

	if v == nil {
		return ""
	}

	return v.(string)
}

// SubSystemFromContext returns the subsystem name, or an empty string.
func SubSystemFromContext(ctx context.Context) string {
	v, _ := ctx.Value(KeySubSystem).(string)
	return v
}
