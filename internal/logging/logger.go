// Package logging builds the process logger.
//
// Output always goes to stderr: in stdio mode stdout carries the MCP
// protocol stream and must not receive log lines.
package logging

import (
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a logr.Logger backed by Zap. "debug" or "trace" selects a
// development config at debug level, "warn" and "error" raise the production
// threshold, anything else is production at info level.
// Returns the logger and a sync function the caller should defer.
func NewLogger(level string) (logr.Logger, func(), error) {
	zapLog, err := newZapLogger(level)
	if err != nil {
		return logr.Logger{}, nil, err
	}
	sync := func() { _ = zapLog.Sync() }
	return zapr.NewLogger(zapLog), sync, nil
}

func newZapLogger(level string) (*zap.Logger, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.OutputPaths = []string{"stderr"}
		return cfg.Build()
	case "warn":
		return productionConfig(zapcore.WarnLevel).Build()
	case "error":
		return productionConfig(zapcore.ErrorLevel).Build()
	default:
		return productionConfig(zapcore.InfoLevel).Build()
	}
}

func productionConfig(lvl zapcore.Level) zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg
}
