package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = IncludeList{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make(IncludeList, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	}
	return fmt.Errorf("include must be a string or list of strings")
}

// Raw* types mirror the file layout. A nil pointer means "not set here", so
// later files only override what they mention.

type RawZOrder struct {
	MaxSteps *int `yaml:"max_steps"`
}

type RawLog struct {
	Level  *string `yaml:"level"`
	Format *string `yaml:"format"`
}

type RawWatch struct {
	Interval *string `yaml:"interval"`
}

type RawOutput struct {
	Format *string `yaml:"format"`
	Color  *string `yaml:"color"`
}

type RawX11 struct {
	Display *string `yaml:"display"`
}

type RawProcfs struct {
	Mount *string `yaml:"mount"`
}

type RawConfig struct {
	Include    IncludeList `yaml:"include"`
	Executable *string     `yaml:"executable"`
	ProgID     *string     `yaml:"prog_id"`
	SessionID  *uint32     `yaml:"session_id"`
	ZOrder     *RawZOrder  `yaml:"zorder"`
	Log        *RawLog     `yaml:"log"`
	Watch      *RawWatch   `yaml:"watch"`
	Output     *RawOutput  `yaml:"output"`
	X11        *RawX11     `yaml:"x11"`
	Procfs     *RawProcfs  `yaml:"procfs"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c
	out.Include = nil
	setIf(&out.Executable, overlay.Executable)
	setIf(&out.ProgID, overlay.ProgID)
	setIf(&out.SessionID, overlay.SessionID)

	if overlay.ZOrder != nil {
		z := derefOr(out.ZOrder)
		setIf(&z.MaxSteps, overlay.ZOrder.MaxSteps)
		out.ZOrder = &z
	}
	if overlay.Log != nil {
		l := derefOr(out.Log)
		setIf(&l.Level, overlay.Log.Level)
		setIf(&l.Format, overlay.Log.Format)
		out.Log = &l
	}
	if overlay.Watch != nil {
		w := derefOr(out.Watch)
		setIf(&w.Interval, overlay.Watch.Interval)
		out.Watch = &w
	}
	if overlay.Output != nil {
		o := derefOr(out.Output)
		setIf(&o.Format, overlay.Output.Format)
		setIf(&o.Color, overlay.Output.Color)
		out.Output = &o
	}
	if overlay.X11 != nil {
		x := derefOr(out.X11)
		setIf(&x.Display, overlay.X11.Display)
		out.X11 = &x
	}
	if overlay.Procfs != nil {
		p := derefOr(out.Procfs)
		setIf(&p.Mount, overlay.Procfs.Mount)
		out.Procfs = &p
	}
	return out
}

func setIf[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}

func derefOr[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
