package platform

import "errors"

// WindowHandle is an opaque identifier for a top-level window.
// It is never dereferenced, only passed back to OS queries.
type WindowHandle uintptr

// NoWindow is the zero handle. As an enumeration start it means
// "the frontmost window of the whole desktop".
const NoWindow WindowHandle = 0

// ProcessID identifies an OS process.
type ProcessID uint32

// SessionID identifies an interactive logon session.
type SessionID uint32

var (
	// ErrInvalidHandle reports a window or process that no longer exists.
	ErrInvalidHandle = errors.New("invalid or closed handle")
	// ErrBusy reports an automation target that refuses calls right now,
	// typically because a modal dialog or context menu is open.
	ErrBusy = errors.New("application is busy")
	// ErrUnavailable reports that the automation registry has no usable object.
	ErrUnavailable = errors.New("operation unavailable")
	// ErrUnsupported reports a capability this backend does not offer.
	ErrUnsupported = errors.New("not supported on this platform")
)

// Process is one entry of a process listing.
type Process struct {
	PID     ProcessID
	Name    string
	Session SessionID
}

// App is a point-in-time view of one application instance obtained through
// the automation layer.
type App struct {
	PID     ProcessID
	Window  WindowHandle
	Visible bool
	Version string
}

// ProcessLister enumerates processes.
type ProcessLister interface {
	// Processes returns processes whose image name matches name
	// (case-insensitive, extension optional) in the given session.
	Processes(name string, session SessionID) ([]Process, error)
	CurrentSession() (SessionID, error)
	SessionOf(pid ProcessID) (SessionID, error)
}

// WindowResolver maps between processes and their windows.
type WindowResolver interface {
	// MainWindow returns false when the process has no visible top-level window yet.
	MainWindow(pid ProcessID) (WindowHandle, bool, error)
	ProcessOf(h WindowHandle) (ProcessID, error)
	IsVisible(h WindowHandle) bool
}

// ZOrder walks the desktop stacking order. A false ok means the chain ended.
type ZOrder interface {
	// PreviousInZOrder returns the window immediately in front of h.
	PreviousInZOrder(h WindowHandle) (WindowHandle, bool, error)
	// NextInZOrder returns the window immediately behind h.
	NextInZOrder(h WindowHandle) (WindowHandle, bool, error)
	Frontmost() (WindowHandle, bool, error)
}

// Foreground activates windows.
type Foreground interface {
	BringToFront(h WindowHandle) bool
}

// Automation resolves application instances through the OS automation layer.
type Automation interface {
	AppFromProcess(pid ProcessID) (App, error)
	// ActiveObject returns the instance registered as default for progID.
	ActiveObject(progID string) (App, error)
}

// Backend bundles every capability a session query needs.
type Backend interface {
	ProcessLister
	WindowResolver
	ZOrder
	Foreground
	Automation
	Close() error
}

// Options configures backend construction.
type Options struct {
	// Display is the X11 display name; empty uses $DISPLAY.
	Display string
	// ProcRoot is the procfs mount point on Linux.
	ProcRoot string
}
