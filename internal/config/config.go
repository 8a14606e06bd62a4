package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultExecutable    = "EXCEL"
	DefaultProgID        = "Excel.Application"
	DefaultMaxSteps      = 4096
	DefaultWatchInterval = 2 * time.Second
	MinWatchInterval     = 100 * time.Millisecond
)

// ZOrderConfig bounds Z-order walks.
type ZOrderConfig struct {
	// MaxSteps is the number of hops after which a walk is declared inconsistent.
	MaxSteps int `yaml:"max_steps"`
}

// LogConfig configures the process-wide slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// WatchConfig configures the polling watch loop and TUI refresh.
type WatchConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// MarshalYAML writes the interval in time.ParseDuration syntax.
func (w WatchConfig) MarshalYAML() (any, error) {
	return struct {
		Interval string `yaml:"interval"`
	}{w.Interval.String()}, nil
}

// OutputConfig configures CLI rendering.
type OutputConfig struct {
	Format string `yaml:"format"` // text, yaml, json
	Color  string `yaml:"color"`  // auto, always, never
}

// X11Config selects the display on Linux.
type X11Config struct {
	Display string `yaml:"display,omitempty"` // empty = $DISPLAY
}

// ProcfsConfig locates procfs on Linux.
type ProcfsConfig struct {
	Mount string `yaml:"mount"`
}

// Config is the effective configuration after defaults, includes and
// overrides have been applied.
type Config struct {
	Executable string `yaml:"executable"`
	ProgID     string `yaml:"prog_id"`
	// SessionID pins queries to one logon session. Nil means the session of
	// the calling process.
	SessionID *uint32      `yaml:"session_id,omitempty"`
	ZOrder    ZOrderConfig `yaml:"zorder"`
	Log       LogConfig    `yaml:"log"`
	Watch     WatchConfig  `yaml:"watch"`
	Output    OutputConfig `yaml:"output"`
	X11       X11Config    `yaml:"x11"`
	Procfs    ProcfsConfig `yaml:"procfs"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Executable: DefaultExecutable,
		ProgID:     DefaultProgID,
		ZOrder:     ZOrderConfig{MaxSteps: DefaultMaxSteps},
		Log:        LogConfig{Level: "info", Format: "text"},
		Watch:      WatchConfig{Interval: DefaultWatchInterval},
		Output:     OutputConfig{Format: "text", Color: "auto"},
		Procfs:     ProcfsConfig{Mount: "/proc"},
	}
}

// DefaultConfigPath returns $XLCONDUCTOR_CONFIG or ~/.config/xlconductor/config.yaml.
func DefaultConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv("XLCONDUCTOR_CONFIG")); p != "" {
		return p, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "xlconductor", "config.yaml"), nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Executable) == "" {
		return &ValidationError{Path: "executable", Err: fmt.Errorf("executable is required")}
	}
	if strings.TrimSpace(c.ProgID) == "" {
		return &ValidationError{Path: "prog_id", Err: fmt.Errorf("prog_id is required")}
	}
	if c.ZOrder.MaxSteps < 1 {
		return &ValidationError{Path: "zorder.max_steps", Err: fmt.Errorf("max_steps must be >= 1")}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log.level", Err: fmt.Errorf("level must be one of: debug, info, warn, error")}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return &ValidationError{Path: "log.format", Err: fmt.Errorf("format must be one of: text, json")}
	}
	if c.Watch.Interval < MinWatchInterval {
		return &ValidationError{Path: "watch.interval", Err: fmt.Errorf("interval must be >= %s", MinWatchInterval)}
	}
	switch c.Output.Format {
	case "text", "yaml", "json":
	default:
		return &ValidationError{Path: "output.format", Err: fmt.Errorf("format must be one of: text, yaml, json")}
	}
	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return &ValidationError{Path: "output.color", Err: fmt.Errorf("color must be one of: auto, always, never")}
	}
	if strings.TrimSpace(c.Procfs.Mount) == "" {
		return &ValidationError{Path: "procfs.mount", Err: fmt.Errorf("mount is required")}
	}
	return nil
}

// LogLevel maps Log.Level to a slog level.
func (c *Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Marshal renders the effective configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
