package zorder

import (
	"errors"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/1broseidon/xlconductor/internal/platform"
)

// Candidate pairs a caller key with the window that represents it.
type Candidate[K any] struct {
	Key    K
	Window platform.WindowHandle
}

// Ranked is one candidate with its computed rank, or the error that
// excluded it.
type Ranked[K any] struct {
	Candidate[K]
	Rank int
	Err  error
}

// Resolver ranks windows against the live Z order.
type Resolver struct {
	z        platform.ZOrder
	maxSteps int
	logger   *slog.Logger
}

// NewResolver creates a resolver. maxSteps <= 0 selects DefaultMaxSteps and a
// nil logger uses slog.Default().
func NewResolver(z platform.ZOrder, maxSteps int, logger *slog.Logger) *Resolver {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{z: z, maxSteps: maxSteps, logger: logger}
}

// Rank counts the windows in front of h. The frontmost window has rank 0.
//
// A window in front of h that closes mid-walk restarts the walk from h; the
// restarts share one step budget. ErrInvalidHandle is returned only when h
// itself is gone.
func (r *Resolver) Rank(h platform.WindowHandle) (int, error) {
	if h == platform.NoWindow {
		return 0, platform.ErrInvalidHandle
	}
	budget := r.maxSteps
	for {
		rank, err := r.rankWithin(h, budget)
		var se *stepError
		if err == nil || !errors.As(err, &se) || se.from == h || !errors.Is(err, platform.ErrInvalidHandle) {
			return rank, err
		}
		budget -= se.step + 1
		if budget <= 0 {
			return 0, &InconsistencyError{Start: h, Steps: r.maxSteps}
		}
		r.logger.Debug("z-order changed during walk, restarting",
			"window", uintptr(h), "closed", uintptr(se.from))
	}
}

func (r *Resolver) rankWithin(h platform.WindowHandle, maxSteps int) (int, error) {
	seen := map[platform.WindowHandle]struct{}{h: {}}
	rank := 0
	err := walk(r.z, h, InFront, maxSteps, func(next platform.WindowHandle, steps int) error {
		if _, dup := seen[next]; dup {
			return &InconsistencyError{Start: h, Steps: steps, Repeated: next}
		}
		seen[next] = struct{}{}
		rank = steps
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rank, nil
}

// RankAll ranks every candidate independently, in input order.
func RankAll[K any](r *Resolver, candidates []Candidate[K]) []Ranked[K] {
	out := make([]Ranked[K], 0, len(candidates))
	for _, c := range candidates {
		rank, err := r.Rank(c.Window)
		out = append(out, Ranked[K]{Candidate: c, Rank: rank, Err: err})
	}
	return out
}

// Select returns the candidate closest to the front.
//
// A candidate whose rank cannot be computed is dropped. An inconsistent chain
// aborts the query with an error wrapping ErrInconsistent. When every
// candidate failed and at least one failure was something other than a closed
// handle, the combined failures are returned. Otherwise an empty or fully
// closed set yields ok == false with a nil error.
func Select[K any](r *Resolver, candidates []Candidate[K]) (Candidate[K], bool, error) {
	var (
		best     Candidate[K]
		bestRank = -1
		failures *multierror.Error
		hardFail bool
	)
	for _, c := range candidates {
		rank, err := r.Rank(c.Window)
		if err != nil {
			if errors.Is(err, ErrInconsistent) {
				return Candidate[K]{}, false, err
			}
			if !errors.Is(err, platform.ErrInvalidHandle) {
				hardFail = true
			}
			r.logger.Debug("z-order candidate dropped", "window", uintptr(c.Window), "error", err)
			failures = multierror.Append(failures, err)
			continue
		}
		if bestRank < 0 || rank < bestRank {
			best, bestRank = c, rank
		}
	}

	if bestRank >= 0 {
		return best, true, nil
	}
	if hardFail {
		return Candidate[K]{}, false, failures.ErrorOrNil()
	}
	return Candidate[K]{}, false, nil
}

// SelectTopmost returns the frontmost of handles.
func (r *Resolver) SelectTopmost(handles []platform.WindowHandle) (platform.WindowHandle, bool, error) {
	candidates := make([]Candidate[platform.WindowHandle], len(handles))
	for i, h := range handles {
		candidates[i] = Candidate[platform.WindowHandle]{Key: h, Window: h}
	}
	c, ok, err := Select(r, candidates)
	return c.Window, ok, err
}
