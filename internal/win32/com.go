//go:build windows

package win32

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"golang.org/x/sys/windows"
)

// OBJID_NATIVEOM asks AccessibleObjectFromWindow for the Office object model.
const objidNativeOM = 0xFFFFFFF0

// Office main documents live in a child window of this class.
const excelDocumentClass = "EXCEL7"

// HRESULTs the automation layer surfaces for an instance that cannot take calls.
const (
	hrSFalse           = 0x00000001
	hrCallRejected     = 0x80010001 // RPC_E_CALL_REJECTED
	hrServerCallRetry  = 0x8001010A // RPC_E_SERVERCALL_RETRYLATER
	hrOperationUnavail = 0x800401E3 // MK_E_UNAVAILABLE
)

var (
	oleacc                         = windows.NewLazySystemDLL("oleacc.dll")
	procAccessibleObjectFromWindow = oleacc.NewProc("AccessibleObjectFromWindow")
)

// AppInfo holds the automation properties read from an Application object.
type AppInfo struct {
	Hwnd    windows.HWND
	Visible bool
	Version string
}

// WithApartment runs fn on a locked OS thread inside a single-threaded COM
// apartment. Interface pointers must not escape fn.
func WithApartment(fn func() error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		if hresult(err) != hrSFalse {
			return fmt.Errorf("CoInitializeEx: %w", err)
		}
	}
	defer ole.CoUninitialize()
	return fn()
}

// ActiveApplication reads the Application registered in the running object
// table under progID. Must be called inside WithApartment.
func ActiveApplication(progID string) (AppInfo, error) {
	clsid, err := ole.ClassIDFrom(progID)
	if err != nil {
		return AppInfo{}, fmt.Errorf("resolve %s: %w", progID, err)
	}
	unknown, err := ole.GetActiveObject(clsid, ole.IID_IUnknown)
	if err != nil {
		return AppInfo{}, fmt.Errorf("GetActiveObject(%s): %w", progID, err)
	}
	defer unknown.Release()

	app, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return AppInfo{}, fmt.Errorf("QueryInterface(IDispatch): %w", err)
	}
	defer app.Release()
	return readAppInfo(app)
}

// ApplicationFromWindow reads the Application that owns the main window h by
// way of its document child window. Must be called inside WithApartment.
func ApplicationFromWindow(h windows.HWND) (AppInfo, error) {
	child := ChildByClass(h, excelDocumentClass)
	if child == 0 {
		return AppInfo{}, fmt.Errorf("window 0x%x has no %s child", uintptr(h), excelDocumentClass)
	}

	var win *ole.IDispatch
	hr, _, _ := procAccessibleObjectFromWindow.Call(
		uintptr(child),
		uintptr(objidNativeOM),
		uintptr(unsafe.Pointer(ole.IID_IDispatch)),
		uintptr(unsafe.Pointer(&win)),
	)
	if hr != 0 {
		return AppInfo{}, fmt.Errorf("AccessibleObjectFromWindow: %w", ole.NewError(hr))
	}
	if win == nil {
		return AppInfo{}, fmt.Errorf("AccessibleObjectFromWindow returned no object")
	}
	defer win.Release()

	v, err := oleutil.GetProperty(win, "Application")
	if err != nil {
		return AppInfo{}, fmt.Errorf("Window.Application: %w", err)
	}
	defer v.Clear()

	app := v.ToIDispatch()
	if app == nil {
		return AppInfo{}, fmt.Errorf("Window.Application is not an object")
	}
	return readAppInfo(app)
}

func readAppInfo(app *ole.IDispatch) (AppInfo, error) {
	var info AppInfo

	hwnd, err := oleutil.GetProperty(app, "Hwnd")
	if err != nil {
		return info, fmt.Errorf("Application.Hwnd: %w", err)
	}
	info.Hwnd = windows.HWND(variantInt(hwnd))
	hwnd.Clear()

	visible, err := oleutil.GetProperty(app, "Visible")
	if err != nil {
		return info, fmt.Errorf("Application.Visible: %w", err)
	}
	if b, ok := visible.Value().(bool); ok {
		info.Visible = b
	}
	visible.Clear()

	// Version is informational; a failure here does not make the instance unreachable.
	if version, err := oleutil.GetProperty(app, "Version"); err == nil {
		info.Version = version.ToString()
		version.Clear()
	}
	return info, nil
}

func variantInt(v *ole.VARIANT) int64 {
	switch n := v.Value().(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case int:
		return int64(n)
	case uint:
		return int64(n)
	}
	return v.Val
}

func hresult(err error) uintptr {
	var oleErr *ole.OleError
	if errors.As(err, &oleErr) {
		return oleErr.Code()
	}
	return 0
}

// IsBusy reports COM errors raised by an instance blocked in a modal state.
func IsBusy(err error) bool {
	switch hresult(err) {
	case hrCallRejected, hrServerCallRetry:
		return true
	}
	return false
}

// IsUnavailable reports MK_E_UNAVAILABLE, returned when no instance is registered.
func IsUnavailable(err error) bool {
	return hresult(err) == hrOperationUnavail
}
