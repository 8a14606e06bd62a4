package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// ErrNotStacked is returned when a window is absent from _NET_CLIENT_LIST_STACKING.
var ErrNotStacked = errors.New("window not in stacking list")

// StackingOrder returns managed windows front to back.
// _NET_CLIENT_LIST_STACKING is published bottom to top, so it is reversed here.
func (c *Connection) StackingOrder() ([]xproto.Window, error) {
	stack, err := ewmh.ClientListStackingGet(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to get stacking list: %w", err)
	}
	out := make([]xproto.Window, len(stack))
	for i, w := range stack {
		out[len(stack)-1-i] = w
	}
	return out, nil
}

// Neighbor returns the window offset positions away from w in a front-to-back
// stack. A negative offset moves toward the front. ok is false at either end.
func Neighbor(stack []xproto.Window, w xproto.Window, offset int) (xproto.Window, bool, error) {
	for i, cur := range stack {
		if cur != w {
			continue
		}
		j := i + offset
		if j < 0 || j >= len(stack) {
			return 0, false, nil
		}
		return stack[j], true, nil
	}
	return 0, false, fmt.Errorf("window 0x%x: %w", uint32(w), ErrNotStacked)
}

// Above returns the window directly in front of w.
func (c *Connection) Above(w xproto.Window) (xproto.Window, bool, error) {
	stack, err := c.StackingOrder()
	if err != nil {
		return 0, false, err
	}
	return Neighbor(stack, w, -1)
}

// Below returns the window directly behind w.
func (c *Connection) Below(w xproto.Window) (xproto.Window, bool, error) {
	stack, err := c.StackingOrder()
	if err != nil {
		return 0, false, err
	}
	return Neighbor(stack, w, 1)
}

// Top returns the frontmost managed window.
func (c *Connection) Top() (xproto.Window, bool, error) {
	stack, err := c.StackingOrder()
	if err != nil {
		return 0, false, err
	}
	if len(stack) == 0 {
		return 0, false, nil
	}
	return stack[0], true, nil
}
