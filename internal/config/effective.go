package config

import (
	"fmt"
	"time"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig applies raw on top of DefaultConfig. It does not
// validate ranges; call Validate on the result.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Executable != nil {
		cfg.Executable = *raw.Executable
	}
	if raw.ProgID != nil {
		cfg.ProgID = *raw.ProgID
	}
	if raw.SessionID != nil {
		id := *raw.SessionID
		cfg.SessionID = &id
	}
	if raw.ZOrder != nil && raw.ZOrder.MaxSteps != nil {
		cfg.ZOrder.MaxSteps = *raw.ZOrder.MaxSteps
	}
	if raw.Log != nil {
		if raw.Log.Level != nil {
			cfg.Log.Level = *raw.Log.Level
		}
		if raw.Log.Format != nil {
			cfg.Log.Format = *raw.Log.Format
		}
	}
	if raw.Watch != nil && raw.Watch.Interval != nil {
		d, err := time.ParseDuration(*raw.Watch.Interval)
		if err != nil {
			return nil, &ValidationError{Path: "watch.interval", Err: fmt.Errorf("invalid duration %q: %w", *raw.Watch.Interval, err)}
		}
		cfg.Watch.Interval = d
	}
	if raw.Output != nil {
		if raw.Output.Format != nil {
			cfg.Output.Format = *raw.Output.Format
		}
		if raw.Output.Color != nil {
			cfg.Output.Color = *raw.Output.Color
		}
	}
	if raw.X11 != nil && raw.X11.Display != nil {
		cfg.X11.Display = *raw.X11.Display
	}
	if raw.Procfs != nil && raw.Procfs.Mount != nil {
		cfg.Procfs.Mount = *raw.Procfs.Mount
	}
	return cfg, nil
}
