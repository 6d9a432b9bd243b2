// Package logging builds the shop's zap logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a JSON logger for format "production" and a console logger
// for "development". level is any zap level name.
func New(level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	switch format {
	case "", "production":
		cfg = zap.NewProductionConfig()
	case "development":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		cfg.Level = lvl
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
