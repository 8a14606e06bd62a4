package session

import (
	"log/slog"

	"github.com/1broseidon/xlconductor/internal/config"
	"github.com/1broseidon/xlconductor/internal/platform"
)

// OptionsFromConfig maps the effective configuration onto session options.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		Executable: cfg.Executable,
		ProgID:     cfg.ProgID,
		MaxSteps:   cfg.ZOrder.MaxSteps,
		Logger:     logger,
	}
}

// Open returns the session pinned by cfg.SessionID, or the current one.
func Open(backend platform.Backend, cfg *config.Config, logger *slog.Logger) (*Session, error) {
	opts := OptionsFromConfig(cfg, logger)
	if cfg.SessionID != nil {
		return New(platform.SessionID(*cfg.SessionID), backend, opts), nil
	}
	return Current(backend, opts)
}
