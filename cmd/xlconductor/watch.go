package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/1broseidon/xlconductor/internal/config"
	"github.com/1broseidon/xlconductor/internal/platform"
	"github.com/1broseidon/xlconductor/internal/tui"
	"github.com/1broseidon/xlconductor/internal/watch"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runWatch(args []string) int {
	fs, path := newFlagSet("watch", "watch [--config PATH] [--interval DURATION]")
	interval := fs.Duration("interval", 0, "Polling interval (default: watch.interval from config)")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if *interval != 0 && *interval < config.MinWatchInterval {
		fmt.Fprintf(stderr, "interval must be at least %s\n", config.MinWatchInterval)
		return 2
	}

	e, err := openEnv(*path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer e.Close()

	every := e.cfg.Watch.Interval
	if *interval != 0 {
		every = *interval
	}

	ctx, cancel := signalContext()
	defer cancel()

	w := watch.NewWatcher(watch.Config{
		Interval: every,
		Logger:   e.logger,
		OnEvent: func(ev watch.Event) {
			fmt.Fprintf(stdout, "%s %s\n", time.Now().Format(time.TimeOnly), ev)
		},
	}, e.sess.Snapshot)
	w.Run(ctx)
	return 0
}

func runTUI(args []string) int {
	fs, path := newFlagSet("tui", "tui [--config PATH]")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: xlconductor tui [--config PATH]")
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, "Interactive browser for the instances in this session.")
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, "Keybindings:")
		fmt.Fprintln(stderr, "  j/k, ↑/↓  Navigate instances")
		fmt.Fprintln(stderr, "  Enter, a  Bring selected instance to the front (asks first)")
		fmt.Fprintln(stderr, "  r         Refresh now")
		fmt.Fprintln(stderr, "  Esc       Cancel the confirmation")
		fmt.Fprintln(stderr, "  q, Ctrl+C Quit")
	}
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}

	// The alternate screen owns the terminal; logging would tear it.
	e, err := openEnvLogging(*path, io.Discard)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer e.Close()

	ctx, cancel := signalContext()
	defer cancel()

	err = tui.Run(ctx, tui.Options{
		Query: e.sess.Snapshot,
		Activate: func(pid platform.ProcessID) error {
			app, err := e.sess.Find(pid)
			if err != nil {
				return err
			}
			return e.sess.Activate(app)
		},
		Interval: e.cfg.Watch.Interval,
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
