//go:build windows

// Package win32 wraps the handful of user32, kernel32 and oleacc calls needed
// to inspect top-level windows, processes and Office automation objects.
package win32

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// GetWindow relationships.
const (
	gwHwndNext = 2
	gwHwndPrev = 3
	gwOwner    = 4
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procGetWindow           = user32.NewProc("GetWindow")
	procGetTopWindow        = user32.NewProc("GetTopWindow")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")

	enumTopLevelCallback = windows.NewCallback(enumTopLevel)
	enumChildCallback    = windows.NewCallback(enumChild)
)

// IsWindow reports whether h identifies an existing window.
func IsWindow(h windows.HWND) bool {
	return h != 0 && windows.IsWindow(h)
}

// IsVisible reports the WS_VISIBLE state of h.
func IsVisible(h windows.HWND) bool {
	return h != 0 && windows.IsWindowVisible(h)
}

// PrevWindow returns the window above h in the Z order, or 0 at the top.
func PrevWindow(h windows.HWND) windows.HWND {
	r, _, _ := procGetWindow.Call(uintptr(h), gwHwndPrev)
	return windows.HWND(r)
}

// NextWindow returns the window below h in the Z order, or 0 at the bottom.
func NextWindow(h windows.HWND) windows.HWND {
	r, _, _ := procGetWindow.Call(uintptr(h), gwHwndNext)
	return windows.HWND(r)
}

// TopWindow returns the top-level window at the head of the desktop Z order.
func TopWindow() windows.HWND {
	r, _, _ := procGetTopWindow.Call(0)
	return windows.HWND(r)
}

func owner(h windows.HWND) windows.HWND {
	r, _, _ := procGetWindow.Call(uintptr(h), gwOwner)
	return windows.HWND(r)
}

// SetForeground asks the system to activate h.
func SetForeground(h windows.HWND) bool {
	r, _, _ := procSetForegroundWindow.Call(uintptr(h))
	return r != 0
}

// ProcessOf returns the id of the process that created h.
func ProcessOf(h windows.HWND) (uint32, error) {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(h, &pid); err != nil {
		return 0, err
	}
	return pid, nil
}

// ClassName returns the window class name of h.
func ClassName(h windows.HWND) string {
	buf := make([]uint16, 256)
	n, err := windows.GetClassName(h, &buf[0], int32(len(buf)))
	if err != nil || n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

type mainWindowSearch struct {
	pid   uint32
	found windows.HWND
}

func enumTopLevel(h windows.HWND, lparam uintptr) uintptr {
	s := (*mainWindowSearch)(unsafe.Pointer(lparam))
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(h, &pid); err != nil || pid != s.pid {
		return 1
	}
	// Same rule the .NET Process.MainWindowHandle uses: visible and unowned.
	if !windows.IsWindowVisible(h) || owner(h) != 0 {
		return 1
	}
	s.found = h
	return 0
}

// MainWindow returns the first visible, unowned top-level window of pid.
func MainWindow(pid uint32) windows.HWND {
	s := &mainWindowSearch{pid: pid}
	// EnumWindows reports an error when the callback stops early; the result
	// is in s either way.
	_ = windows.EnumWindows(enumTopLevelCallback, unsafe.Pointer(s))
	return s.found
}

type childSearch struct {
	class string
	found windows.HWND
}

func enumChild(h windows.HWND, lparam uintptr) uintptr {
	s := (*childSearch)(unsafe.Pointer(lparam))
	if ClassName(h) == s.class {
		s.found = h
		return 0
	}
	return 1
}

// ChildByClass returns the first descendant of parent with the given class.
func ChildByClass(parent windows.HWND, class string) windows.HWND {
	s := &childSearch{class: class}
	windows.EnumChildWindows(parent, enumChildCallback, unsafe.Pointer(s))
	return s.found
}
