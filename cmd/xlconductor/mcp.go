package main

import (
	"fmt"
	"io"
	"log"

	"github.com/1broseidon/xlconductor/internal/mcp"
	"github.com/1broseidon/xlconductor/internal/platform"
)

func printMCPUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: xlconductor mcp <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve    Start the MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'xlconductor mcp <command> --help' for command-specific options.")
}

func runMCP(args []string) int {
	if len(args) == 0 {
		printMCPUsage(stderr)
		return 2
	}

	switch args[0] {
	case "serve":
		return runMCPServe(args[1:])
	case "help", "-h", "--help":
		printMCPUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown mcp command: %s\n\n", args[0])
		printMCPUsage(stderr)
		return 2
	}
}

func runMCPServe(args []string) int {
	fs, path := newFlagSet("mcp serve", "mcp serve [--config PATH]")
	fs.Usage = func() {
		fmt.Fprintln(stdout, "Usage: xlconductor mcp serve [--config PATH]")
		fmt.Fprintln(stdout, "")
		fmt.Fprintln(stdout, "Start the MCP server on stdio. Designed to be invoked by MCP clients.")
		fmt.Fprintln(stdout, "Logs go to stderr; stdout carries the protocol.")
	}
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}

	cfg, err := loadConfig(*path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := newLogger(cfg, stderr)

	backend, err := newBackend(platform.Options{Display: cfg.X11.Display, ProcRoot: cfg.Procfs.Mount})
	if err != nil {
		log.Fatalf("Failed to connect to desktop: %v", err)
	}
	defer backend.Close()

	ctx, cancel := signalContext()
	defer cancel()

	server := mcp.NewServer(cfg, backend, logger)
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("MCP server error", "error", err)
		return 1
	}
	return 0
}
