package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/1broseidon/xlconductor/internal/platform"
)

var (
	// ErrNotFound reports a pid that is not an instance in this session.
	ErrNotFound = errors.New("instance not found")
	// ErrNotActivated reports that the window manager refused to raise a window.
	ErrNotActivated = errors.New("window could not be brought to front")
)

// UnknownVersion is the name of any version VersionName does not recognise.
const UnknownVersion = "Excel (Unknown version)"

var versionNames = map[int]string{
	5:  "Excel 5",
	6:  "Excel 6",
	7:  "Excel 95",
	8:  "Excel 97",
	9:  "Excel 2000",
	10: "Excel 2002",
	11: "Excel 2003",
	12: "Excel 2007",
	14: "Excel 2010",
	15: "Excel 2013",
	16: "Excel 2016",
}

// VersionName maps an automation version string such as "16.0" to a
// product name.
func VersionName(version string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(version), 64)
	if err != nil {
		return UnknownVersion
	}
	if name, ok := versionNames[int(f)]; ok {
		return name
	}
	return UnknownVersion
}

// Activate brings the main window of app to the front.
func (s *Session) Activate(app platform.App) error {
	h := app.Window
	if w, ok, err := s.backend.MainWindow(app.PID); err == nil && ok {
		h = w
	}
	if h == platform.NoWindow {
		return fmt.Errorf("pid %d has no main window: %w", app.PID, platform.ErrInvalidHandle)
	}
	if !s.backend.BringToFront(h) {
		return fmt.Errorf("pid %d window 0x%x: %w", app.PID, uintptr(h), ErrNotActivated)
	}
	s.logger.Info("instance activated", "pid", uint32(app.PID), "window", uintptr(h))
	return nil
}

// IsActive reports whether app is the topmost instance of the session.
func (s *Session) IsActive(app platform.App) (bool, error) {
	top, ok, err := s.TopMost()
	if err != nil || !ok {
		return false, err
	}
	return top.PID == app.PID, nil
}

// IsVisible re-reads app through automation and reports whether both the
// application and its main window are visible. A busy or vanished instance
// is not visible.
func (s *Session) IsVisible(app platform.App) bool {
	fresh, err := s.backend.AppFromProcess(app.PID)
	if err != nil {
		if errors.Is(err, platform.ErrBusy) {
			s.logger.Debug("instance busy", "pid", uint32(app.PID))
		}
		return false
	}
	return s.visible(fresh)
}

func (s *Session) visible(app platform.App) bool {
	return app.Visible && app.Window != platform.NoWindow && s.backend.IsVisible(app.Window)
}
