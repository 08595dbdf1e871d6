// Package logging builds the process logger.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFileEnv overrides the log destination when no path is configured.
const LogFileEnv = "MCP_LOG_FILE"

// New builds a production JSON logger at level writing to path. An empty
// path falls back to $MCP_LOG_FILE and then stderr. stdout is refused since
// the stdio transport owns it. If path cannot be opened the logger writes
// to stderr instead and says so.
func New(level, path string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = os.Getenv(LogFileEnv)
	}
	if path == "" {
		path = "stderr"
	}
	if path == "stdout" {
		return nil, fmt.Errorf("log output cannot be stdout")
	}

	logger, err := build(lvl, path)
	if err == nil {
		return logger, nil
	}
	if path == "stderr" {
		return nil, err
	}

	logger, fallbackErr := build(lvl, "stderr")
	if fallbackErr != nil {
		return nil, fallbackErr
	}
	logger.Warn("log file unavailable, logging to stderr", zap.String("path", path), zap.Error(err))
	return logger, nil
}

// ParseLevel accepts zap level names; empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

func build(level zapcore.Level, path string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
