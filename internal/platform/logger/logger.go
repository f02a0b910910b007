package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	fieldRequestID = "request_id"
	fieldTXHash    = "tx_hash"
	fieldElapsed   = "elapsed"

	// FormatJSON and FormatText select the encoder of a logger built by New.
	FormatJSON = "json"
	FormatText = "text"
)

// Config selects the base logger of a process.
type Config struct {
	Format      string
	Development bool
}

// New returns a base Logger for the config. Development loggers log debug and above, others
// log info and above.
func New(config Config) (*zap.Logger, error) {
	var zc zap.Config
	if config.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	switch config.Format {
	case "", FormatJSON:
		if config.Development {
			zc.Encoding = "console"
		}
	case FormatText:
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("Unknown log format : %s", config.Format)
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger, nil
}

// NewLoggerFromContext returns the Logger from the Context. If a Logger doesn't
// exist one is added.
func NewLoggerFromContext(ctx context.Context) *zap.Logger {
	logger := ctx.Value(KeyLogger)

	if logger == nil {
		logger = newLogger(ctx)
	}

	return logger.(*zap.Logger)
}

// newLogger returns a Logger with the RequestID from the Context as a
// field.
func newLogger(ctx context.Context) *zap.Logger {
	logger, _ := zap.NewProduction()

	requestID := RequestIDFromContext(ctx)
	logger = logger.With(zap.String(fieldRequestID, requestID))

	txHash := TXHashFromContext(ctx)
	if len(txHash) > 0 {
		logger = logger.With(zap.String(fieldTXHash, txHash))
	}

	return logger
}

// Debug logs a formatted message at debug level through the Context's Logger.
func Debug(ctx context.Context, format string, values ...interface{}) {
	NewLoggerFromContext(ctx).WithOptions(zap.AddCallerSkip(1)).Debug(fmt.Sprintf(format,
		values...))
}

// Info logs a formatted message at info level through the Context's Logger.
func Info(ctx context.Context, format string, values ...interface{}) {
	NewLoggerFromContext(ctx).WithOptions(zap.AddCallerSkip(1)).Info(fmt.Sprintf(format,
		values...))
}

// Warn logs a formatted message at warn level through the Context's Logger.
func Warn(ctx context.Context, format string, values ...interface{}) {
	NewLoggerFromContext(ctx).WithOptions(zap.AddCallerSkip(1)).Warn(fmt.Sprintf(format,
		values...))
}

// Error logs a formatted message at error level through the Context's Logger.
func Error(ctx context.Context, format string, values ...interface{}) {
	NewLoggerFromContext(ctx).WithOptions(zap.AddCallerSkip(1)).Error(fmt.Sprintf(format,
		values...))
}

// Elapsed write elapsed time in milliseconds to the Logger.
func Elapsed(ctx context.Context, t time.Time, message string) {
	logger := NewLoggerFromContext(ctx)

	ms := float64(time.Since(t).Nanoseconds()) / float64(time.Millisecond)

	logger.Debug(message, zap.Float64(fieldElapsed, ms))
}
