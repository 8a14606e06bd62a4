package config

import (
	"fmt"
	"strings"
)

// Paths lists every key Explain accepts.
var Paths = []string{
	"executable",
	"prog_id",
	"session_id",
	"zorder.max_steps",
	"log.level",
	"log.format",
	"watch.interval",
	"output.format",
	"output.color",
	"x11.display",
	"procfs.mount",
}

// Explain returns the effective value at a dotted path and where it came from.
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	switch path {
	case "executable":
		return cfg.Executable, nil
	case "prog_id":
		return cfg.ProgID, nil
	case "session_id":
		if cfg.SessionID == nil {
			return "current", nil
		}
		return *cfg.SessionID, nil
	case "zorder.max_steps":
		return cfg.ZOrder.MaxSteps, nil
	case "log.level":
		return cfg.Log.Level, nil
	case "log.format":
		return cfg.Log.Format, nil
	case "watch.interval":
		return cfg.Watch.Interval.String(), nil
	case "output.format":
		return cfg.Output.Format, nil
	case "output.color":
		return cfg.Output.Color, nil
	case "x11.display":
		return cfg.X11.Display, nil
	case "procfs.mount":
		return cfg.Procfs.Mount, nil
	}
	return nil, fmt.Errorf("unknown path: %s", path)
}
