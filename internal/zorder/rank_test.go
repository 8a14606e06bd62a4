package zorder

import (
	"errors"
	"testing"

	"github.com/1broseidon/xlconductor/internal/platform"
	"github.com/1broseidon/xlconductor/internal/platform/platformtest"
)

func TestRank(t *testing.T) {
	d := platformtest.Stack(winA, winB, winC)
	r := NewResolver(d, 0, nil)

	for want, h := range []platform.WindowHandle{winA, winB, winC} {
		got, err := r.Rank(h)
		if err != nil {
			t.Fatalf("Rank(0x%x): %v", h, err)
		}
		if got != want {
			t.Errorf("Rank(0x%x) = %d, want %d", h, got, want)
		}
	}

	if _, err := r.Rank(winD); !errors.Is(err, platform.ErrInvalidHandle) {
		t.Errorf("Rank(unknown) err = %v, want ErrInvalidHandle", err)
	}
	if _, err := r.Rank(platform.NoWindow); !errors.Is(err, platform.ErrInvalidHandle) {
		t.Errorf("Rank(NoWindow) err = %v, want ErrInvalidHandle", err)
	}
}

func TestSelectTopmost_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		stack      []platform.WindowHandle
		candidates []platform.WindowHandle
		mutate     func(d *platformtest.Desktop)
		want       platform.WindowHandle
		wantOK     bool
	}{
		{
			name:       "behind the front window",
			stack:      []platform.WindowHandle{winA, winB, winC},
			candidates: []platform.WindowHandle{winB, winC},
			want:       winB,
			wantOK:     true,
		},
		{
			name:       "reverse input order",
			stack:      []platform.WindowHandle{winA, winB, winC},
			candidates: []platform.WindowHandle{winC, winB},
			want:       winB,
			wantOK:     true,
		},
		{
			name:       "front window closes before ranking",
			stack:      []platform.WindowHandle{winA, winB},
			candidates: []platform.WindowHandle{winA, winB},
			mutate:     func(d *platformtest.Desktop) { d.CloseWindow(winA) },
			want:       winB,
			wantOK:     true,
		},
		{
			name:       "empty set",
			stack:      []platform.WindowHandle{winA},
			candidates: nil,
			wantOK:     false,
		},
		{
			name:       "every candidate closed",
			stack:      []platform.WindowHandle{winA, winB},
			candidates: []platform.WindowHandle{winC, winD},
			wantOK:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := platformtest.Stack(tt.stack...)
			if tt.mutate != nil {
				tt.mutate(d)
			}
			got, ok, err := NewResolver(d, 0, nil).SelectTopmost(tt.candidates)
			if err != nil {
				t.Fatalf("SelectTopmost: %v", err)
			}
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("SelectTopmost = 0x%x,%v want 0x%x,%v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSelectTopmost_OrderIndependent(t *testing.T) {
	d := platformtest.Stack(winA, winB, winC, winD)
	r := NewResolver(d, 0, nil)

	orders := [][]platform.WindowHandle{
		{winA, winB, winC, winD},
		{winD, winC, winB, winA},
		{winC, winA, winD, winB},
		{winB, winD, winA, winC},
	}
	for _, order := range orders {
		got, ok, err := r.SelectTopmost(order)
		if err != nil || !ok || got != winA {
			t.Fatalf("SelectTopmost(%v) = 0x%x,%v,%v want 0x%x", order, got, ok, err, winA)
		}
	}
}

func TestSelectTopmost_ResultIsMember(t *testing.T) {
	d := platformtest.Stack(winA, winB, winC, winD)
	r := NewResolver(d, 0, nil)

	sets := [][]platform.WindowHandle{{winD}, {winC, winD}, {winB, winD}, {winD, winB, winC}}
	for _, set := range sets {
		got, ok, err := r.SelectTopmost(set)
		if err != nil || !ok {
			t.Fatalf("SelectTopmost(%v): ok=%v err=%v", set, ok, err)
		}
		member := false
		for _, h := range set {
			member = member || h == got
		}
		if !member {
			t.Fatalf("SelectTopmost(%v) = 0x%x, not a member", set, got)
		}
	}
}

func TestSelectTopmost_CandidateClosesMidQuery(t *testing.T) {
	d := platformtest.Stack(winA, winB, winC)
	closed := false
	d.BeforeStep = func(d *platformtest.Desktop, h platform.WindowHandle) {
		// B disappears the moment ranking starts on it.
		if h == winB && !closed {
			closed = true
			d.CloseWindow(winB)
		}
	}

	got, ok, err := NewResolver(d, 0, nil).SelectTopmost([]platform.WindowHandle{winB, winC})
	if err != nil {
		t.Fatalf("SelectTopmost: %v", err)
	}
	if !ok || got != winC {
		t.Fatalf("SelectTopmost = 0x%x,%v want 0x%x", got, ok, winC)
	}
}

func TestSelectTopmost_WindowInFrontClosesMidQuery(t *testing.T) {
	d := platformtest.Stack(winA, winB, winC)
	closed := false
	d.BeforeStep = func(d *platformtest.Desktop, h platform.WindowHandle) {
		// A is not a candidate; it vanishes while B's walk passes through it.
		if h == winA && !closed {
			closed = true
			d.CloseWindow(winA)
		}
	}

	got, ok, err := NewResolver(d, 0, nil).SelectTopmost([]platform.WindowHandle{winB, winC})
	if err != nil {
		t.Fatalf("SelectTopmost: %v", err)
	}
	if !ok || got != winB {
		t.Fatalf("SelectTopmost = 0x%x,%v want 0x%x", got, ok, winB)
	}
	if !closed {
		t.Fatal("A was never closed")
	}
}

// vanishing reports a window in front of start that is always gone by the
// time it is queried.
type vanishing struct{ start platform.WindowHandle }

func (v vanishing) PreviousInZOrder(h platform.WindowHandle) (platform.WindowHandle, bool, error) {
	if h == v.start {
		return h + 1, true, nil
	}
	return 0, false, platform.ErrInvalidHandle
}
func (v vanishing) NextInZOrder(platform.WindowHandle) (platform.WindowHandle, bool, error) {
	return 0, false, nil
}
func (v vanishing) Frontmost() (platform.WindowHandle, bool, error) { return v.start, true, nil }

func TestRank_RestartsShareStepBound(t *testing.T) {
	_, err := NewResolver(vanishing{start: winA}, 10, nil).Rank(winA)
	if !errors.Is(err, ErrInconsistent) {
		t.Fatalf("Rank err = %v, want ErrInconsistent", err)
	}
}

func TestRank_ClosedStartIsInvalid(t *testing.T) {
	d := platformtest.Stack(winA, winB)
	d.CloseWindow(winB)
	if _, err := NewResolver(d, 0, nil).Rank(winB); !errors.Is(err, platform.ErrInvalidHandle) {
		t.Fatalf("Rank err = %v, want ErrInvalidHandle", err)
	}
}

func TestSelectTopmost_NoCaching(t *testing.T) {
	d := platformtest.Stack(winA, winB, winC)
	r := NewResolver(d, 0, nil)
	candidates := []platform.WindowHandle{winB, winC}

	first, _, _ := r.SelectTopmost(candidates)
	if first != winB {
		t.Fatalf("first = 0x%x, want 0x%x", first, winB)
	}

	d.Raise(winC)
	second, _, _ := r.SelectTopmost(candidates)
	if second != winC {
		t.Fatalf("after restack = 0x%x, want 0x%x", second, winC)
	}
}

func TestSelectTopmost_InconsistentChainIsAnError(t *testing.T) {
	d := platformtest.Stack(winA, winB, winC)
	d.LinkPrevious(winA, winC) // A claims C is in front of it: C -> B -> A -> C

	_, ok, err := NewResolver(d, 0, nil).SelectTopmost([]platform.WindowHandle{winC})
	if ok {
		t.Fatalf("expected no winner")
	}
	if !errors.Is(err, ErrInconsistent) {
		t.Fatalf("expected ErrInconsistent, got %v", err)
	}
}

// failing answers every query with a non-handle error.
type failing struct{}

var errBroken = errors.New("window station unavailable")

func (failing) PreviousInZOrder(platform.WindowHandle) (platform.WindowHandle, bool, error) {
	return 0, false, errBroken
}
func (failing) NextInZOrder(platform.WindowHandle) (platform.WindowHandle, bool, error) {
	return 0, false, errBroken
}
func (failing) Frontmost() (platform.WindowHandle, bool, error) { return 0, false, errBroken }

func TestSelectTopmost_TotalFailureIsReported(t *testing.T) {
	_, ok, err := NewResolver(failing{}, 0, nil).SelectTopmost([]platform.WindowHandle{winA, winB})
	if ok {
		t.Fatalf("expected no winner")
	}
	if !errors.Is(err, errBroken) {
		t.Fatalf("expected wrapped errBroken, got %v", err)
	}
}

func TestSelect_KeysTravelWithWindows(t *testing.T) {
	d := platformtest.Stack(winA, winB, winC)
	r := NewResolver(d, 0, nil)

	got, ok, err := Select(r, []Candidate[string]{
		{Key: "third", Window: winC},
		{Key: "second", Window: winB},
	})
	if err != nil || !ok {
		t.Fatalf("Select: ok=%v err=%v", ok, err)
	}
	if got.Key != "second" {
		t.Fatalf("Select key = %q, want %q", got.Key, "second")
	}
}

func TestRankAll(t *testing.T) {
	d := platformtest.Stack(winA, winB, winC)
	r := NewResolver(d, 0, nil)

	ranked := RankAll(r, []Candidate[int]{
		{Key: 1, Window: winC},
		{Key: 2, Window: winD},
		{Key: 3, Window: winA},
	})
	if len(ranked) != 3 {
		t.Fatalf("len = %d, want 3", len(ranked))
	}
	if ranked[0].Err != nil || ranked[0].Rank != 2 {
		t.Errorf("ranked[0] = %+v, want rank 2", ranked[0])
	}
	if !errors.Is(ranked[1].Err, platform.ErrInvalidHandle) {
		t.Errorf("ranked[1].Err = %v, want ErrInvalidHandle", ranked[1].Err)
	}
	if ranked[2].Err != nil || ranked[2].Rank != 0 {
		t.Errorf("ranked[2] = %+v, want rank 0", ranked[2])
	}
}
