// Package logging builds the zap logger from configuration.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/reabridge/internal/config"
)

// Profile selects logger defaults.
type Profile int

const (
	// ProfileRuntime logs with timestamps and caller information.
	ProfileRuntime Profile = iota
	// ProfileTest logs everything without timestamps.
	ProfileTest
)

// New builds a logger for cfg.
func New(cfg config.Logging, profile Profile) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return nil, fmt.Errorf("logging level: %w", err)
	}

	var zc zap.Config
	switch cfg.Format {
	case "json":
		zc = zap.NewProductionConfig()
	case "console", "":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("logging format %q: want console or json", cfg.Format)
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Sampling = nil
	if profile == ProfileTest {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		zc.EncoderConfig.TimeKey = ""
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
