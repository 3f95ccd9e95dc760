// Package logging builds the zap logger shared by the server, the workers
// and the CLI.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level       string
	Development bool
}

// New returns a JSON zap logger at the configured level.
func New(cfg Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	zapCfg.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))

	if cfg.Development {
		zapCfg.Development = true
		zapCfg.Sampling = nil
	}

	logger, err := zapCfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return logger, nil
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Backlite adapts a zap logger to the printf-style logger the task queue
// expects.
type Backlite struct {
	logger *zap.SugaredLogger
}

func NewBacklite(logger *zap.Logger) *Backlite {
	return &Backlite{logger: logger.Named("tasks").Sugar()}
}

func (l *Backlite) Info(message string, params ...any) {
	l.logger.Infow(message, params...)
}

func (l *Backlite) Error(message string, params ...any) {
	l.logger.Errorw(message, params...)
}
