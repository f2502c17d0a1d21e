package logger

import (
	"go.uber.org/zap"
)

// New builds a development logger writing to stderr at the given level
// ("debug", "info", "warn", "error", ...).
func New(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl

	return cfg.Build()
}
