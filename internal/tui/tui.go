// Package tui is an interactive instance browser built on bubbletea.
package tui

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/xlconductor/internal/platform"
	"github.com/1broseidon/xlconductor/internal/session"
)

// Options wires the TUI to a session.
type Options struct {
	// Query takes a fresh snapshot; it runs on every refresh.
	Query func() (*session.Snapshot, error)
	// Activate brings the instance with pid to the front.
	Activate func(pid platform.ProcessID) error
	// Interval between automatic refreshes.
	Interval time.Duration
}

// Run starts the TUI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	p := tea.NewProgram(newModel(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
