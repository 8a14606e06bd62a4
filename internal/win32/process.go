//go:build windows

package win32

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ProcessEntry is one row of a toolhelp process snapshot.
type ProcessEntry struct {
	PID     uint32
	ExeFile string
}

// Processes takes a toolhelp snapshot of every running process.
func Processes() ([]ProcessEntry, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var out []ProcessEntry
	err = windows.Process32First(snap, &entry)
	for err == nil {
		out = append(out, ProcessEntry{
			PID:     entry.ProcessID,
			ExeFile: windows.UTF16ToString(entry.ExeFile[:]),
		})
		err = windows.Process32Next(snap, &entry)
	}
	if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		return nil, fmt.Errorf("Process32Next: %w", err)
	}
	return out, nil
}

// SessionOf returns the Terminal Services session of pid.
func SessionOf(pid uint32) (uint32, error) {
	var sid uint32
	if err := windows.ProcessIdToSessionId(pid, &sid); err != nil {
		return 0, err
	}
	return sid, nil
}

// IsNoProcess reports errors that mean the process is gone.
func IsNoProcess(err error) bool {
	return errors.Is(err, windows.ERROR_INVALID_PARAMETER)
}

// CurrentProcessID returns the id of the calling process.
func CurrentProcessID() uint32 {
	return windows.GetCurrentProcessId()
}
