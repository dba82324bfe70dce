// Package logging sets up the structured logger the service entrypoint
// and internal/runner log through: go.uber.org/zap's sugared logger,
// following the field-based logging pattern observed in the evdnx-gots
// example pack repo (strategy/base_strategy.go logs with
// zap.String/zap.Float64 fields) rather than the teacher's bare
// log.Printf. The ledger, wsapi and amqp packages log with the standard
// library log package instead.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a sugared zap logger at the given level ("debug", "info",
// "warn", "error"); unrecognized levels fall back to "info".
func New(level string) *zap.SugaredLogger {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger.Sugar()
}
