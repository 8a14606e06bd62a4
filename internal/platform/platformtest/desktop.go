// Package platformtest provides an in-memory desktop implementing
// platform.Backend for tests.
package platformtest

import (
	"fmt"
	"sync"

	"github.com/1broseidon/xlconductor/internal/platform"
)

type appEntry struct {
	app platform.App
	err error
}

// Desktop is a deterministic window stack with processes and automation
// objects. The zero value is not usable; call NewDesktop.
type Desktop struct {
	mu sync.Mutex

	session  platform.SessionID
	stack    []platform.WindowHandle // front to back
	owners   map[platform.WindowHandle]platform.ProcessID
	hidden   map[platform.WindowHandle]bool
	procs    []platform.Process
	apps     map[platform.ProcessID]appEntry
	prevLink map[platform.WindowHandle]platform.WindowHandle

	activePID platform.ProcessID
	activeErr error

	focused []platform.WindowHandle
	steps   int

	// BeforeStep runs before every Z-order query with the handle being
	// queried. Tests use it to mutate the desktop mid-walk.
	BeforeStep func(d *Desktop, h platform.WindowHandle)
}

var _ platform.Backend = (*Desktop)(nil)

// NewDesktop creates an empty desktop whose current session is session.
func NewDesktop(session platform.SessionID) *Desktop {
	return &Desktop{
		session:  session,
		owners:   make(map[platform.WindowHandle]platform.ProcessID),
		hidden:   make(map[platform.WindowHandle]bool),
		apps:     make(map[platform.ProcessID]appEntry),
		prevLink: make(map[platform.WindowHandle]platform.WindowHandle),
	}
}

// Stack builds a desktop whose windows are handles, front to back, each
// owned by a process with the same numeric id.
func Stack(handles ...platform.WindowHandle) *Desktop {
	d := NewDesktop(1)
	for _, h := range handles {
		d.AddWindow(platform.ProcessID(h), h)
	}
	return d
}

// AddWindow places h at the back of the stack, owned by pid.
func (d *Desktop) AddWindow(pid platform.ProcessID, h platform.WindowHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stack = append(d.stack, h)
	d.owners[h] = pid
}

// AddProcess registers a process in the given session.
func (d *Desktop) AddProcess(pid platform.ProcessID, name string, session platform.SessionID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.procs = append(d.procs, platform.Process{PID: pid, Name: name, Session: session})
}

// AddApp registers a process in the current session with a visible window at
// the back of the stack and a reachable automation object.
func (d *Desktop) AddApp(pid platform.ProcessID, name string, h platform.WindowHandle, version string) {
	d.AddProcess(pid, name, d.session)
	d.AddWindow(pid, h)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.apps[pid] = appEntry{app: platform.App{PID: pid, Window: h, Visible: true, Version: version}}
}

// SetAppError makes AppFromProcess(pid) fail with err.
func (d *Desktop) SetAppError(pid platform.ProcessID, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.apps[pid]
	e.err = err
	d.apps[pid] = e
}

// SetAppVisible sets the automation Visible flag of pid.
func (d *Desktop) SetAppVisible(pid platform.ProcessID, visible bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.apps[pid]
	e.app.Visible = visible
	d.apps[pid] = e
}

// Hide marks h as minimized.
func (d *Desktop) Hide(h platform.WindowHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hidden[h] = true
}

// SetActive registers pid as the active object.
func (d *Desktop) SetActive(pid platform.ProcessID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.activePID = pid
	d.activeErr = nil
}

// SetActiveError makes ActiveObject fail with err.
func (d *Desktop) SetActiveError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.activeErr = err
}

// LinkPrevious overrides the answer of PreviousInZOrder(h), for corrupt chains.
func (d *Desktop) LinkPrevious(h, prev platform.WindowHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prevLink[h] = prev
}

// CloseWindow destroys h.
func (d *Desktop) CloseWindow(h platform.WindowHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i := d.indexLocked(h); i >= 0 {
		d.stack = append(d.stack[:i], d.stack[i+1:]...)
	}
	delete(d.owners, h)
}

// Exit terminates pid together with its windows and automation object.
func (d *Desktop) Exit(pid platform.ProcessID) {
	d.mu.Lock()
	var windows []platform.WindowHandle
	for h, owner := range d.owners {
		if owner == pid {
			windows = append(windows, h)
		}
	}
	for i, p := range d.procs {
		if p.PID == pid {
			d.procs = append(d.procs[:i], d.procs[i+1:]...)
			break
		}
	}
	delete(d.apps, pid)
	d.mu.Unlock()

	for _, h := range windows {
		d.CloseWindow(h)
	}
}

// Raise moves h to the front.
func (d *Desktop) Raise(h platform.WindowHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexLocked(h)
	if i < 0 {
		return
	}
	d.stack = append(d.stack[:i], d.stack[i+1:]...)
	d.stack = append([]platform.WindowHandle{h}, d.stack...)
}

// Order returns the stack front to back.
func (d *Desktop) Order() []platform.WindowHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]platform.WindowHandle(nil), d.stack...)
}

// Focused returns every handle passed to a successful BringToFront.
func (d *Desktop) Focused() []platform.WindowHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]platform.WindowHandle(nil), d.focused...)
}

// Steps counts Z-order queries served.
func (d *Desktop) Steps() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.steps
}

func (d *Desktop) indexLocked(h platform.WindowHandle) int {
	for i, cur := range d.stack {
		if cur == h {
			return i
		}
	}
	return -1
}

func (d *Desktop) Close() error { return nil }

func (d *Desktop) Processes(name string, session platform.SessionID) ([]platform.Process, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []platform.Process
	for _, p := range d.procs {
		if p.Session == session && platform.MatchesImageName(p.Name, name) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (d *Desktop) CurrentSession() (platform.SessionID, error) {
	return d.session, nil
}

func (d *Desktop) SessionOf(pid platform.ProcessID) (platform.SessionID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.procs {
		if p.PID == pid {
			return p.Session, nil
		}
	}
	return 0, fmt.Errorf("pid %d: %w", pid, platform.ErrInvalidHandle)
}

func (d *Desktop) MainWindow(pid platform.ProcessID) (platform.WindowHandle, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// Mapping order stands in for creation order.
	for _, h := range d.stack {
		if d.owners[h] == pid && !d.hidden[h] {
			return h, true, nil
		}
	}
	return platform.NoWindow, false, nil
}

func (d *Desktop) ProcessOf(h platform.WindowHandle) (platform.ProcessID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pid, ok := d.owners[h]
	if !ok {
		return 0, fmt.Errorf("window %d: %w", h, platform.ErrInvalidHandle)
	}
	return pid, nil
}

func (d *Desktop) IsVisible(h platform.WindowHandle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.owners[h]
	return ok && !d.hidden[h]
}

func (d *Desktop) PreviousInZOrder(h platform.WindowHandle) (platform.WindowHandle, bool, error) {
	return d.step(h, -1)
}

func (d *Desktop) NextInZOrder(h platform.WindowHandle) (platform.WindowHandle, bool, error) {
	return d.step(h, 1)
}

func (d *Desktop) step(h platform.WindowHandle, offset int) (platform.WindowHandle, bool, error) {
	if d.BeforeStep != nil {
		d.BeforeStep(d, h)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.steps++

	if prev, ok := d.prevLink[h]; ok && offset < 0 {
		return prev, true, nil
	}
	i := d.indexLocked(h)
	if i < 0 {
		return platform.NoWindow, false, fmt.Errorf("window %d: %w", h, platform.ErrInvalidHandle)
	}
	j := i + offset
	if j < 0 || j >= len(d.stack) {
		return platform.NoWindow, false, nil
	}
	return d.stack[j], true, nil
}

func (d *Desktop) Frontmost() (platform.WindowHandle, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.stack) == 0 {
		return platform.NoWindow, false, nil
	}
	return d.stack[0], true, nil
}

func (d *Desktop) BringToFront(h platform.WindowHandle) bool {
	d.mu.Lock()
	_, ok := d.owners[h]
	if ok {
		d.focused = append(d.focused, h)
	}
	d.mu.Unlock()
	if ok {
		d.Raise(h)
	}
	return ok
}

func (d *Desktop) AppFromProcess(pid platform.ProcessID) (platform.App, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.apps[pid]
	if !ok {
		return platform.App{}, fmt.Errorf("pid %d has no automation object: %w", pid, platform.ErrInvalidHandle)
	}
	if e.err != nil {
		return platform.App{}, e.err
	}
	return e.app, nil
}

func (d *Desktop) ActiveObject(progID string) (platform.App, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.activeErr != nil {
		return platform.App{}, d.activeErr
	}
	e, ok := d.apps[d.activePID]
	if d.activePID == 0 || !ok {
		return platform.App{}, fmt.Errorf("active object %q: %w", progID, platform.ErrUnavailable)
	}
	return e.app, nil
}
