package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// sourcePager marks a request as coming from a pager or taskbar, which
// window managers honour without focus-stealing prevention.
const sourcePager = 2

// ActiveWindow returns the window named by _NET_ACTIVE_WINDOW, or false when
// the window manager reports none.
func (c *Connection) ActiveWindow() (xproto.Window, bool) {
	w, err := ewmh.ActiveWindowGet(c.XUtil)
	if err != nil || w == 0 {
		return 0, false
	}
	return w, true
}

// FocusWindow asks the window manager to activate and raise windowID.
func (c *Connection) FocusWindow(windowID uint32) error {
	current, _ := c.ActiveWindow()
	return c.rootMessage(xproto.Window(windowID), "_NET_ACTIVE_WINDOW",
		sourcePager, uint32(xproto.TimeCurrentTime), uint32(current))
}

// rootMessage sends an EWMH client message about w to the root window.
// ewmh's *Req helpers are not used: they type-assert data and panic on this
// xgbutil version.
func (c *Connection) rootMessage(w xproto.Window, atom string, data ...uint32) error {
	reply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len(atom)), atom).Reply()
	if err != nil {
		return fmt.Errorf("failed to intern %s: %w", atom, err)
	}

	payload := make([]uint32, 5)
	copy(payload, data)
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: w,
		Type:   reply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New(payload),
	}

	mask := xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify
	if err := xproto.SendEventChecked(c.XUtil.Conn(), false, c.Root, uint32(mask), string(ev.Bytes())).Check(); err != nil {
		return fmt.Errorf("%s for window 0x%x: %w", atom, uint32(w), err)
	}
	return nil
}
