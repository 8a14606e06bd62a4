//go:build linux

package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/prometheus/procfs"

	"github.com/1broseidon/xlconductor/internal/x11"
)

// LinuxBackend answers window queries from EWMH properties on an X11
// connection and process queries from procfs.
//
// There is no automation registry on X11: AppFromProcess reports a process
// with a managed main window as reachable, and ActiveObject is unsupported.
type LinuxBackend struct {
	conn     *x11.Connection
	procs    procfs.FS
	procRoot string
}

var _ Backend = (*LinuxBackend)(nil)

// NewBackend opens the X11 display and procfs named in opts.
func NewBackend(opts Options) (Backend, error) {
	return NewLinuxBackend(opts)
}

// NewLinuxBackend creates a Linux platform backend with a fresh X11 connection.
func NewLinuxBackend(opts Options) (*LinuxBackend, error) {
	root := opts.ProcRoot
	if root == "" {
		root = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs at %s: %w", root, err)
	}

	conn, err := x11.NewConnection(opts.Display)
	if err != nil {
		return nil, err
	}
	return &LinuxBackend{conn: conn, procs: fs, procRoot: root}, nil
}

// Close disconnects from X11.
func (b *LinuxBackend) Close() error {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
	return nil
}

// Processes lists processes whose comm matches name in the given audit session.
func (b *LinuxBackend) Processes(name string, session SessionID) ([]Process, error) {
	all, err := b.procs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var out []Process
	for _, p := range all {
		comm, err := p.Comm()
		if err != nil || !MatchesImageName(comm, name) {
			continue
		}
		sid, err := b.SessionOf(ProcessID(p.PID))
		if err != nil || sid != session {
			continue
		}
		out = append(out, Process{PID: ProcessID(p.PID), Name: comm, Session: sid})
	}
	return out, nil
}

// CurrentSession returns the audit session of this process.
func (b *LinuxBackend) CurrentSession() (SessionID, error) {
	return b.SessionOf(ProcessID(os.Getpid()))
}

// SessionOf reads /proc/<pid>/sessionid.
func (b *LinuxBackend) SessionOf(pid ProcessID) (SessionID, error) {
	path := filepath.Join(b.procRoot, strconv.FormatUint(uint64(pid), 10), "sessionid")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("pid %d: %w", pid, ErrInvalidHandle)
		}
		return 0, fmt.Errorf("failed to read session of pid %d: %w", pid, err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad sessionid for pid %d: %w", pid, err)
	}
	return SessionID(v), nil
}

// MainWindow returns the first normal visible client owned by pid.
func (b *LinuxBackend) MainWindow(pid ProcessID) (WindowHandle, bool, error) {
	w, ok, err := b.conn.MainWindowOf(uint32(pid))
	if err != nil || !ok {
		return NoWindow, false, err
	}
	return WindowHandle(w), true, nil
}

// ProcessOf returns the _NET_WM_PID of h.
func (b *LinuxBackend) ProcessOf(h WindowHandle) (ProcessID, error) {
	if !b.conn.Exists(xproto.Window(h)) {
		return 0, fmt.Errorf("window 0x%x: %w", uint32(h), ErrInvalidHandle)
	}
	pid, err := b.conn.WindowPID(xproto.Window(h))
	if err != nil {
		return 0, err
	}
	return ProcessID(pid), nil
}

// IsVisible reports whether h exists and is not hidden (minimized).
func (b *LinuxBackend) IsVisible(h WindowHandle) bool {
	w := xproto.Window(h)
	return b.conn.Exists(w) && !b.conn.IsHidden(w)
}

// PreviousInZOrder returns the managed window directly in front of h.
func (b *LinuxBackend) PreviousInZOrder(h WindowHandle) (WindowHandle, bool, error) {
	w, ok, err := b.conn.Above(xproto.Window(h))
	return stackResult(h, w, ok, err)
}

// NextInZOrder returns the managed window directly behind h.
func (b *LinuxBackend) NextInZOrder(h WindowHandle) (WindowHandle, bool, error) {
	w, ok, err := b.conn.Below(xproto.Window(h))
	return stackResult(h, w, ok, err)
}

// Frontmost returns the top of the stacking list.
func (b *LinuxBackend) Frontmost() (WindowHandle, bool, error) {
	w, ok, err := b.conn.Top()
	if err != nil || !ok {
		return NoWindow, false, err
	}
	return WindowHandle(w), true, nil
}

func stackResult(from WindowHandle, w xproto.Window, ok bool, err error) (WindowHandle, bool, error) {
	if errors.Is(err, x11.ErrNotStacked) {
		return NoWindow, false, fmt.Errorf("window 0x%x: %w", uint32(from), ErrInvalidHandle)
	}
	if err != nil || !ok {
		return NoWindow, false, err
	}
	return WindowHandle(w), true, nil
}

// BringToFront activates h through the window manager.
func (b *LinuxBackend) BringToFront(h WindowHandle) bool {
	if h == NoWindow {
		return false
	}
	return b.conn.FocusWindow(uint32(h)) == nil
}

// AppFromProcess reports pid as an instance when it owns a managed window.
func (b *LinuxBackend) AppFromProcess(pid ProcessID) (App, error) {
	w, ok, err := b.MainWindow(pid)
	if err != nil {
		return App{}, err
	}
	if !ok {
		return App{}, fmt.Errorf("pid %d has no main window: %w", pid, ErrInvalidHandle)
	}
	return App{PID: pid, Window: w, Visible: true}, nil
}

// ActiveObject is unsupported: X11 has no running object table.
func (b *LinuxBackend) ActiveObject(progID string) (App, error) {
	return App{}, fmt.Errorf("active object %q: %w", progID, ErrUnsupported)
}
