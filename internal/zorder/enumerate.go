// Package zorder walks the desktop stacking order and ranks windows by
// their distance from the front.
//
// Nothing here is cached. The window manager can restack at any moment, so
// every call reads the chain fresh from the platform.
package zorder

import (
	"errors"
	"fmt"

	"github.com/1broseidon/xlconductor/internal/platform"
)

// DefaultMaxSteps bounds a single walk. Real desktops hold a few hundred
// top-level windows; a walk longer than this means the chain is broken.
const DefaultMaxSteps = 4096

// Direction selects which neighbour each step moves to.
type Direction int

const (
	// Behind walks from front to back.
	Behind Direction = iota
	// InFront walks from back to front.
	InFront
)

func (d Direction) String() string {
	if d == InFront {
		return "in-front"
	}
	return "behind"
}

// ErrInconsistent is matched by every InconsistencyError.
var ErrInconsistent = errors.New("z-order chain is inconsistent")

// InconsistencyError reports a walk that revisited a window or exceeded the
// step bound.
type InconsistencyError struct {
	Start    platform.WindowHandle
	Steps    int
	Repeated platform.WindowHandle // zero when the bound was hit
}

func (e *InconsistencyError) Error() string {
	if e.Repeated != platform.NoWindow {
		return fmt.Sprintf("z-order walk from 0x%x revisited 0x%x after %d steps", uintptr(e.Start), uintptr(e.Repeated), e.Steps)
	}
	return fmt.Sprintf("z-order walk from 0x%x did not end within %d steps", uintptr(e.Start), e.Steps)
}

func (e *InconsistencyError) Is(target error) bool {
	return target == ErrInconsistent
}

// EnumerateBackward lists every window behind start, nearest first.
// With platform.NoWindow as start it lists the whole desktop front to back.
func EnumerateBackward(z platform.ZOrder, start platform.WindowHandle) ([]platform.WindowHandle, error) {
	return Enumerate(z, start, Behind, DefaultMaxSteps)
}

// Enumerate walks from start in dir until the platform reports no further
// window. start itself is not part of the result unless it is
// platform.NoWindow, in which case the walk begins at the frontmost window
// (or, walking InFront, is empty).
func Enumerate(z platform.ZOrder, start platform.WindowHandle, dir Direction, maxSteps int) ([]platform.WindowHandle, error) {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	var out []platform.WindowHandle
	cur := start
	if start == platform.NoWindow {
		if dir == InFront {
			return nil, nil
		}
		top, ok, err := z.Frontmost()
		if err != nil {
			return nil, fmt.Errorf("failed to get frontmost window: %w", err)
		}
		if !ok {
			return nil, nil
		}
		out = append(out, top)
		cur = top
	}

	seen := map[platform.WindowHandle]struct{}{cur: {}}
	err := walk(z, cur, dir, maxSteps, func(h platform.WindowHandle, steps int) error {
		if _, dup := seen[h]; dup {
			return &InconsistencyError{Start: start, Steps: steps, Repeated: h}
		}
		seen[h] = struct{}{}
		out = append(out, h)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// stepError is a failed hop. from is the window the hop started at and step
// the number of hops completed before it.
type stepError struct {
	from platform.WindowHandle
	step int
	err  error
}

func (e *stepError) Error() string {
	return fmt.Sprintf("z-order step %d from 0x%x: %v", e.step, uintptr(e.from), e.err)
}

func (e *stepError) Unwrap() error { return e.err }

// walk calls visit for every neighbour of from in dir. It stops at the end of
// the chain, on the first error, or with an InconsistencyError after maxSteps.
func walk(z platform.ZOrder, from platform.WindowHandle, dir Direction, maxSteps int, visit func(platform.WindowHandle, int) error) error {
	next := z.NextInZOrder
	if dir == InFront {
		next = z.PreviousInZOrder
	}

	cur := from
	for steps := 0; ; steps++ {
		h, ok, err := next(cur)
		if err != nil {
			return &stepError{from: cur, step: steps, err: err}
		}
		if !ok {
			return nil
		}
		if steps >= maxSteps {
			return &InconsistencyError{Start: from, Steps: steps}
		}
		if err := visit(h, steps+1); err != nil {
			return err
		}
		cur = h
	}
}
