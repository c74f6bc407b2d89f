// Package logger builds the service's zap logger.
//
// JSON format for production, console for development. The level is an
// AtomicLevel so it can be changed while running.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger bundles a zap logger with the level controlling it.
type Logger struct {
	*zap.Logger
	Level zap.AtomicLevel
}

// New builds a logger.
// level: debug, info, warn, error
// format: json or console
func New(level, format string) (*Logger, error) {
	atomicLevel := zap.NewAtomicLevel()
	if err := atomicLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "json", "":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unsupported log format %q (use json or console)", format)
	}
	cfg.Level = atomicLevel

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &Logger{Logger: l, Level: atomicLevel}, nil
}

// SetLevel changes the log level at runtime.
func (l *Logger) SetLevel(level string) error {
	return l.Level.UnmarshalText([]byte(level))
}
