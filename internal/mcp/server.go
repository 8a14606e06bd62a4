package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/xlconductor/internal/config"
	"github.com/1broseidon/xlconductor/internal/platform"
	"github.com/1broseidon/xlconductor/internal/session"
)

const (
	ServerName    = "xlconductor"
	ServerVersion = "0.1.0"
)

// Server exposes session queries as MCP tools.
type Server struct {
	mcpServer *mcpsdk.Server
	backend   platform.Backend
	config    *config.Config
	logger    *slog.Logger

	// mu serializes queries against the backend.
	mu sync.Mutex

	// Polling hooks for wait_for_topmost, overridden in tests.
	pollInterval time.Duration
	openSession  func() (*session.Session, error)
}

// NewServer creates an MCP server answering from backend.
func NewServer(cfg *config.Config, backend platform.Backend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		backend:      backend,
		config:       cfg,
		logger:       logger,
		pollInterval: 500 * time.Millisecond,
	}
	s.openSession = func() (*session.Session, error) {
		return session.Open(s.backend, s.config, s.logger)
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_instances",
		Description: "List the spreadsheet application instances running in the current desktop session, ordered front to back, with their Z rank, version and topmost/primary markers.",
	}, s.handleListInstances)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_topmost",
		Description: "Return the instance whose main window is closest to the front of the desktop. found is false when no instance is reachable.",
	}, s.handleGetTopmost)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_primary",
		Description: "Return the primary instance: the one registered with the OS automation registry, which double-clicked files open in. found is false when none is registered or the platform has no registry.",
	}, s.handleGetPrimary)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "activate_instance",
		Description: "Bring the main window of the instance with the given PID to the front.",
	}, s.handleActivateInstance)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "wait_for_topmost",
		Description: "Wait until the instance with the given PID is the topmost instance (polling). Returns topmost=false and the current topmost PID on timeout.",
	}, s.handleWaitForTopmost)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "session_snapshot",
		Description: "Dump the whole session: every reachable instance with rank and version, unreachable PIDs, and the primary and topmost PIDs.",
	}, s.handleSessionSnapshot)
}

// snapshot takes one serialized snapshot of the configured session.
func (s *Server) snapshot() (*session.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.openSession()
	if err != nil {
		return nil, err
	}
	snap, err := sess.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("session %d: %w", sess.ID(), err)
	}
	return snap, nil
}
