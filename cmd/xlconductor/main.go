package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/1broseidon/xlconductor/internal/config"
	"github.com/1broseidon/xlconductor/internal/platform"
	"github.com/1broseidon/xlconductor/internal/session"
)

// Swapped out by tests.
var (
	stdout     io.Writer = os.Stdout
	stderr     io.Writer = os.Stderr
	newBackend           = platform.NewBackend
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printMainUsage(stdout)
		return 0
	}

	switch args[0] {
	case "list":
		return runList(args[1:])
	case "topmost":
		return runTopmost(args[1:])
	case "primary":
		return runPrimary(args[1:])
	case "activate":
		return runActivate(args[1:])
	case "status":
		return runStatus(args[1:])
	case "zorder":
		return runZOrder(args[1:])
	case "watch":
		return runWatch(args[1:])
	case "tui":
		return runTUI(args[1:])
	case "config":
		return runConfig(args[1:])
	case "mcp":
		return runMCP(args[1:])
	case "help", "-h", "--help":
		printMainUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printMainUsage(stderr)
		return 2
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: xlconductor <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  list                List reachable instances in this session")
	fmt.Fprintln(w, "  topmost             Show the instance nearest the front")
	fmt.Fprintln(w, "  primary             Show the instance registered as default")
	fmt.Fprintln(w, "  activate <pid>      Bring an instance to the front")
	fmt.Fprintln(w, "  status              Print a full session snapshot")
	fmt.Fprintln(w, "  zorder              Dump the desktop stacking order")
	fmt.Fprintln(w, "  watch               Log instance and focus changes until interrupted")
	fmt.Fprintln(w, "  tui                 Open interactive instance browser")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Every command accepts --config PATH.")
	fmt.Fprintln(w, "Run 'xlconductor <command> --help' for command-specific options.")
}

// newFlagSet returns a flag set with the shared --config flag.
func newFlagSet(name, usage string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("config", "", "Config file path (default: ~/.config/xlconductor/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: xlconductor "+usage)
		fmt.Fprintln(stderr, "")
		fs.PrintDefaults()
	}
	return fs, path
}

// parseFlags returns -1 when parsing succeeded, otherwise the exit code.
func parseFlags(fs *flag.FlagSet, args []string) int {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	return -1
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func useColor(cfg *config.Config, w io.Writer) bool {
	switch cfg.Output.Color {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// env is everything a query command needs. Close releases the backend.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	backend platform.Backend
	sess    *session.Session
}

func (e *env) Close() {
	if err := e.backend.Close(); err != nil {
		e.logger.Debug("backend close failed", "error", err)
	}
}

func openEnv(path string) (*env, error) {
	return openEnvLogging(path, stderr)
}

// openEnvLogging is openEnv with log output sent to logw.
func openEnvLogging(path string, logw io.Writer) (*env, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg, logw)
	slog.SetDefault(logger)

	backend, err := newBackend(platform.Options{Display: cfg.X11.Display, ProcRoot: cfg.Procfs.Mount})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to desktop: %w", err)
	}
	sess, err := session.Open(backend, cfg, logger)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	return &env{cfg: cfg, logger: logger, backend: backend, sess: sess}, nil
}
