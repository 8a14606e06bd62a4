// Package session lists the instances of one spreadsheet application running
// in a single interactive logon session and answers which of them is topmost
// and which is primary.
//
// Every query reads the desktop afresh through a platform.Backend. A Session
// holds no instance state between calls.
package session

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/1broseidon/xlconductor/internal/platform"
	"github.com/1broseidon/xlconductor/internal/zorder"
)

const (
	// DefaultExecutable is the image name instances are looked up by.
	DefaultExecutable = "EXCEL"
	// DefaultProgID is the automation class registered by the primary instance.
	DefaultProgID = "Excel.Application"
)

// Options tunes a Session. Zero values select the defaults.
type Options struct {
	Executable string
	ProgID     string
	MaxSteps   int
	Logger     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Executable == "" {
		o.Executable = DefaultExecutable
	}
	if o.ProgID == "" {
		o.ProgID = DefaultProgID
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = zorder.DefaultMaxSteps
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Session is the set of application instances in one logon session.
type Session struct {
	id       platform.SessionID
	backend  platform.Backend
	opts     Options
	resolver *zorder.Resolver
	logger   *slog.Logger
}

// New returns the session with the given id.
func New(id platform.SessionID, backend platform.Backend, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		id:       id,
		backend:  backend,
		opts:     opts,
		resolver: zorder.NewResolver(backend, opts.MaxSteps, opts.Logger),
		logger:   opts.Logger.With("session", uint32(id)),
	}
}

// Current returns the session of the calling process.
func Current(backend platform.Backend, opts Options) (*Session, error) {
	id, err := backend.CurrentSession()
	if err != nil {
		return nil, fmt.Errorf("failed to get current session: %w", err)
	}
	return New(id, backend, opts), nil
}

// Of returns the session app runs in.
func Of(backend platform.Backend, app platform.App, opts Options) (*Session, error) {
	id, err := backend.SessionOf(app.PID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session of pid %d: %w", app.PID, err)
	}
	return New(id, backend, opts), nil
}

// ID returns the session identifier.
func (s *Session) ID() platform.SessionID { return s.id }

// Executable returns the image name instances are matched by.
func (s *Session) Executable() string { return s.opts.Executable }

// ProcessIDs lists every process named after the executable in this session,
// whether or not it can be reached through automation.
func (s *Session) ProcessIDs() ([]platform.ProcessID, error) {
	procs, err := s.backend.Processes(s.opts.Executable, s.id)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s processes: %w", s.opts.Executable, err)
	}
	pids := make([]platform.ProcessID, 0, len(procs))
	for _, p := range procs {
		pids = append(pids, p.PID)
	}
	return pids, nil
}

// Applications returns the instances that resolve through automation and are
// visible. An instance busy with a modal dialog counts as not visible.
func (s *Session) Applications() ([]platform.App, error) {
	pids, err := s.ProcessIDs()
	if err != nil {
		return nil, err
	}
	return s.applications(pids), nil
}

func (s *Session) applications(pids []platform.ProcessID) []platform.App {
	var apps []platform.App
	for _, pid := range pids {
		app, err := s.backend.AppFromProcess(pid)
		if err != nil {
			s.logger.Debug("instance unreachable", "pid", uint32(pid), "error", err)
			continue
		}
		if !s.visible(app) {
			s.logger.Debug("instance not visible", "pid", uint32(pid))
			continue
		}
		apps = append(apps, app)
	}
	return apps
}

// ReachableProcessIDs lists the processes behind Applications.
func (s *Session) ReachableProcessIDs() ([]platform.ProcessID, error) {
	r, err := s.Reachability()
	if err != nil {
		return nil, err
	}
	return r.Reachable, nil
}

// UnreachableProcessIDs lists the processes that exist but cannot currently
// be reached through automation.
func (s *Session) UnreachableProcessIDs() ([]platform.ProcessID, error) {
	r, err := s.Reachability()
	if err != nil {
		return nil, err
	}
	return r.Unreachable, nil
}

// Reachability partitions ProcessIDs by whether each resolves to a visible
// instance.
func (s *Session) Reachability() (Reachability, error) {
	pids, err := s.ProcessIDs()
	if err != nil {
		return Reachability{}, err
	}
	return Partition(pids, appPIDs(s.applications(pids))), nil
}

// TopMost returns the instance whose main window is closest to the front.
// ok is false when no instance is reachable.
func (s *Session) TopMost() (platform.App, bool, error) {
	apps, err := s.Applications()
	if err != nil {
		return platform.App{}, false, err
	}
	return s.topMost(apps)
}

func (s *Session) topMost(apps []platform.App) (platform.App, bool, error) {
	candidates := make([]zorder.Candidate[platform.App], len(apps))
	for i, app := range apps {
		candidates[i] = zorder.Candidate[platform.App]{Key: app, Window: app.Window}
	}
	c, ok, err := zorder.Select(s.resolver, candidates)
	if err != nil {
		return platform.App{}, false, fmt.Errorf("failed to select topmost instance: %w", err)
	}
	return c.Key, ok, nil
}

// PrimaryInstance returns the instance registered as the active object for
// the configured ProgID: the one a double-clicked file opens in. ok is false
// when no instance is registered, the registered one is busy, or the
// platform has no such registry.
func (s *Session) PrimaryInstance() (platform.App, bool, error) {
	app, err := s.backend.ActiveObject(s.opts.ProgID)
	if err != nil {
		if errors.Is(err, platform.ErrUnavailable) || errors.Is(err, platform.ErrBusy) || errors.Is(err, platform.ErrUnsupported) {
			s.logger.Debug("primary instance unavailable", "prog_id", s.opts.ProgID, "error", err)
			return platform.App{}, false, nil
		}
		return platform.App{}, false, fmt.Errorf("failed to resolve %s: %w", s.opts.ProgID, err)
	}
	return app, true, nil
}

// Find returns the reachable instance running as pid.
func (s *Session) Find(pid platform.ProcessID) (platform.App, error) {
	pids, err := s.ProcessIDs()
	if err != nil {
		return platform.App{}, err
	}
	for _, p := range pids {
		if p == pid {
			app, err := s.backend.AppFromProcess(pid)
			if err != nil {
				return platform.App{}, fmt.Errorf("pid %d is unreachable: %w", pid, err)
			}
			return app, nil
		}
	}
	return platform.App{}, fmt.Errorf("no %s process %d in session %d: %w", s.opts.Executable, pid, s.id, ErrNotFound)
}

func appPIDs(apps []platform.App) []platform.ProcessID {
	pids := make([]platform.ProcessID, len(apps))
	for i, app := range apps {
		pids[i] = app.PID
	}
	return pids
}
