package main

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/xlconductor/internal/config"
)

func printConfigUsage() {
	fmt.Fprintln(stderr, "Usage:")
	fmt.Fprintln(stderr, "  xlconductor config validate [--config PATH]")
	fmt.Fprintln(stderr, "  xlconductor config print [--config PATH] [--defaults]")
	fmt.Fprintln(stderr, "  xlconductor config explain [--config PATH] <yaml.path>")
}

func loadConfigSources(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printConfigUsage()
		return 2
	}

	switch args[0] {
	case "validate":
		fs, path := newFlagSet("config validate", "config validate [--config PATH]")
		if code := parseFlags(fs, args[1:]); code >= 0 {
			return code
		}
		res, err := loadConfigSources(*path)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		if len(res.Files) == 0 {
			fmt.Fprintln(stdout, "config: ok (defaults, no file)")
			return 0
		}
		fmt.Fprintln(stdout, "config: ok")
		return 0

	case "print":
		fs, path := newFlagSet("config print", "config print [--config PATH] [--defaults]")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if code := parseFlags(fs, args[1:]); code >= 0 {
			return code
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfigSources(*path)
			if err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
			for _, f := range res.Files {
				fmt.Fprintf(stdout, "# loaded: %s\n", f)
			}
			cfg = res.Config
		}
		data, err := cfg.Marshal()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprint(stdout, string(data))
		return 0

	case "explain":
		fs, path := newFlagSet("config explain", "config explain [--config PATH] <yaml.path>")
		if code := parseFlags(fs, args[1:]); code >= 0 {
			return code
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := loadConfigSources(*path)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}

		fmt.Fprintf(stdout, "path: %s\n", queryPath)
		fmt.Fprintf(stdout, "source: %s\n", formatSource(src))
		fmt.Fprintf(stdout, "value:\n%s", string(out))
		return 0

	default:
		fmt.Fprintf(stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func formatSource(src config.Source) string {
	if src.Kind == config.SourceFile {
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	}
	return string(src.Kind)
}
