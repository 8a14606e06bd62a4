//go:build windows

package platform

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/1broseidon/xlconductor/internal/win32"
)

// WindowsBackend implements Backend over user32/kernel32 and COM automation.
type WindowsBackend struct{}

var _ Backend = (*WindowsBackend)(nil)

// NewBackend returns the Win32 backend. Options are X11/procfs only.
func NewBackend(Options) (Backend, error) {
	return NewWindowsBackend(), nil
}

// NewWindowsBackend creates a new Windows API instance
func NewWindowsBackend() *WindowsBackend {
	return &WindowsBackend{}
}

// Close is a no-op; every COM apartment is torn down per call.
func (b *WindowsBackend) Close() error { return nil }

// Processes lists processes named name in the given Terminal Services session.
func (b *WindowsBackend) Processes(name string, session SessionID) ([]Process, error) {
	entries, err := win32.Processes()
	if err != nil {
		return nil, err
	}
	var out []Process
	for _, e := range entries {
		if !MatchesImageName(e.ExeFile, name) {
			continue
		}
		sid, err := win32.SessionOf(e.PID)
		if err != nil || SessionID(sid) != session {
			// Exited between the snapshot and the session lookup.
			continue
		}
		out = append(out, Process{PID: ProcessID(e.PID), Name: e.ExeFile, Session: SessionID(sid)})
	}
	return out, nil
}

// CurrentSession returns the session of the calling process.
func (b *WindowsBackend) CurrentSession() (SessionID, error) {
	return b.SessionOf(ProcessID(win32.CurrentProcessID()))
}

// SessionOf returns the session pid runs in.
func (b *WindowsBackend) SessionOf(pid ProcessID) (SessionID, error) {
	sid, err := win32.SessionOf(uint32(pid))
	if err != nil {
		if win32.IsNoProcess(err) {
			return 0, fmt.Errorf("pid %d: %w", pid, ErrInvalidHandle)
		}
		return 0, fmt.Errorf("ProcessIdToSessionId(%d): %w", pid, err)
	}
	return SessionID(sid), nil
}

// MainWindow returns the first visible unowned top-level window of pid.
func (b *WindowsBackend) MainWindow(pid ProcessID) (WindowHandle, bool, error) {
	h := win32.MainWindow(uint32(pid))
	if h == 0 {
		return NoWindow, false, nil
	}
	return WindowHandle(h), true, nil
}

// ProcessOf returns the process that created h.
func (b *WindowsBackend) ProcessOf(h WindowHandle) (ProcessID, error) {
	hwnd := windows.HWND(h)
	if !win32.IsWindow(hwnd) {
		return 0, fmt.Errorf("window 0x%x: %w", uintptr(h), ErrInvalidHandle)
	}
	pid, err := win32.ProcessOf(hwnd)
	if err != nil {
		return 0, fmt.Errorf("GetWindowThreadProcessId(0x%x): %w", uintptr(h), err)
	}
	return ProcessID(pid), nil
}

// IsVisible reports the WS_VISIBLE state of h.
func (b *WindowsBackend) IsVisible(h WindowHandle) bool {
	return win32.IsVisible(windows.HWND(h))
}

// PreviousInZOrder wraps GetWindow(GW_HWNDPREV).
func (b *WindowsBackend) PreviousInZOrder(h WindowHandle) (WindowHandle, bool, error) {
	return step(h, win32.PrevWindow)
}

// NextInZOrder wraps GetWindow(GW_HWNDNEXT).
func (b *WindowsBackend) NextInZOrder(h WindowHandle) (WindowHandle, bool, error) {
	return step(h, win32.NextWindow)
}

func step(h WindowHandle, next func(windows.HWND) windows.HWND) (WindowHandle, bool, error) {
	hwnd := windows.HWND(h)
	// GetWindow returns NULL both at the end of the chain and for a dead
	// handle, so liveness is checked first.
	if !win32.IsWindow(hwnd) {
		return NoWindow, false, fmt.Errorf("window 0x%x: %w", uintptr(h), ErrInvalidHandle)
	}
	n := next(hwnd)
	if n == 0 {
		return NoWindow, false, nil
	}
	return WindowHandle(n), true, nil
}

// Frontmost wraps GetTopWindow(NULL).
func (b *WindowsBackend) Frontmost() (WindowHandle, bool, error) {
	h := win32.TopWindow()
	if h == 0 {
		return NoWindow, false, nil
	}
	return WindowHandle(h), true, nil
}

// BringToFront wraps SetForegroundWindow.
func (b *WindowsBackend) BringToFront(h WindowHandle) bool {
	if h == NoWindow {
		return false
	}
	return win32.SetForeground(windows.HWND(h))
}

// AppFromProcess resolves the automation Application behind pid's main window.
func (b *WindowsBackend) AppFromProcess(pid ProcessID) (App, error) {
	h := win32.MainWindow(uint32(pid))
	if h == 0 {
		return App{}, fmt.Errorf("pid %d has no main window: %w", pid, ErrInvalidHandle)
	}

	var info win32.AppInfo
	err := win32.WithApartment(func() error {
		var err error
		info, err = win32.ApplicationFromWindow(h)
		return err
	})
	if err != nil {
		return App{}, classifyCOM(fmt.Errorf("pid %d: %w", pid, err))
	}
	return b.appFromInfo(info)
}

// ActiveObject resolves the instance registered for progID.
func (b *WindowsBackend) ActiveObject(progID string) (App, error) {
	var info win32.AppInfo
	err := win32.WithApartment(func() error {
		var err error
		info, err = win32.ActiveApplication(progID)
		return err
	})
	if err != nil {
		return App{}, classifyCOM(err)
	}
	return b.appFromInfo(info)
}

func (b *WindowsBackend) appFromInfo(info win32.AppInfo) (App, error) {
	w := WindowHandle(info.Hwnd)
	pid, err := b.ProcessOf(w)
	if err != nil {
		return App{}, err
	}
	return App{
		PID:     pid,
		Window:  w,
		Visible: info.Visible,
		Version: info.Version,
	}, nil
}

func classifyCOM(err error) error {
	switch {
	case win32.IsBusy(err):
		return fmt.Errorf("%w: %w", ErrBusy, err)
	case win32.IsUnavailable(err):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
