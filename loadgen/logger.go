package loadgen

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is used by runner and scenarios, it is silent until SetLogLevel is called.
var Logger = zap.NewNop().Sugar()

// NewLogger creates a JSON logger that writes to stderr.
func NewLogger(logLevel zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()

	cfg.Sampling = nil

	cfg.Level = zap.NewAtomicLevelAt(logLevel)

	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		zapcore.RFC3339NanoTimeEncoder(t.UTC(), enc)
	}

	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	cfg.DisableStacktrace = true

	return cfg.Build()
}

// SetLogLevel replaces Logger.
func SetLogLevel(logLevel zapcore.Level) error {
	logger, err := NewLogger(logLevel)
	if err != nil {
		return err
	}

	zap.ReplaceGlobals(logger)

	Logger = logger.Sugar()

	return nil
}

// SetLogLevelFromEnv replaces Logger using level from LOG_LEVEL environment variable, info by default.
func SetLogLevelFromEnv() error {
	logLevel := zapcore.InfoLevel

	if levelStr, ok := os.LookupEnv("LOG_LEVEL"); ok && levelStr != "" {
		level, err := zapcore.ParseLevel(levelStr)
		if err != nil {
			return fmt.Errorf("invalid LOG_LEVEL environment variable value: %w", err)
		}

		logLevel = level
	}

	return SetLogLevel(logLevel)
}

// RootContext returns a context that is canceled when the
// process receives an interrupt, sigint, or sigterm.
//
// Also returns a function that can be used to cancel the context.
func RootContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	procDone := make(chan os.Signal, 1)

	signal.Notify(procDone, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer cancel()
		defer signal.Stop(procDone)

		requester := "unknown"
		select {
		case <-procDone:
			requester = "user"
		case <-ctx.Done():
			requester = "process"
		}

		Logger.Warnw(
			"shutdown requested",
			"requester", requester,
		)
	}()

	return ctx, cancel
}
