// Package telemetry holds the module's package-level logger behind a
// sync.Once: a single accessor plus level control. The logger is
// structured (go.uber.org/zap) rather than stdlib log, since the
// request-id/handle/rule-name fields threaded through the Director and
// Executor are naturally key-value pairs.
package telemetry

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.Mutex
	logger  *zap.Logger
	level   = zap.NewAtomicLevelAt(zap.InfoLevel)
	once    sync.Once
)

func initLogger() {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	built, err := cfg.Build()
	if err != nil {
		built = zap.NewNop()
	}
	logger = built
}

// L returns the package-level logger, building it on first use.
func L() *zap.Logger {
	once.Do(initLogger)
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// SetLevelFromOrdinal maps the configuration's LogLevel ordinal onto a
// zap level: 0 disables everything below error, increasing values
// progressively enable warn, info, and debug. Any value above the most
// verbose level clamps to debug rather than erroring; the configured
// scale has no upper bound.
func SetLevelFromOrdinal(ordinal int) {
	once.Do(initLogger)

	var lvl zapcore.Level
	switch {
	case ordinal <= 0:
		lvl = zap.ErrorLevel
	case ordinal == 1:
		lvl = zap.WarnLevel
	case ordinal == 2:
		lvl = zap.InfoLevel
	default:
		lvl = zap.DebugLevel
	}

	mu.Lock()
	defer mu.Unlock()
	level.SetLevel(lvl)
}

// RequestFields builds the logging name + request-id pair the Executor
// threads through every entry point, as structured zap fields rather
// than a formatted string prefix.
func RequestFields(opName string, requestID string) []zap.Field {
	return []zap.Field{
		zap.String("op", opName),
		zap.String("request_id", requestID),
	}
}
