package session

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/1broseidon/xlconductor/internal/platform"
	"github.com/1broseidon/xlconductor/internal/zorder"
)

// Instance is one reachable application in a Snapshot.
type Instance struct {
	PID         platform.ProcessID    `json:"pid" yaml:"pid"`
	Window      platform.WindowHandle `json:"window" yaml:"window"`
	Rank        *int                  `json:"rank,omitempty" yaml:"rank,omitempty"`
	Version     string                `json:"version,omitempty" yaml:"version,omitempty"`
	VersionName string                `json:"version_name" yaml:"version_name"`
	TopMost     bool                  `json:"topmost" yaml:"topmost"`
	Primary     bool                  `json:"primary" yaml:"primary"`
}

// Snapshot is a point-in-time dump of a session.
type Snapshot struct {
	SessionID   platform.SessionID   `json:"session_id" yaml:"session_id"`
	Executable  string               `json:"executable" yaml:"executable"`
	TakenAt     time.Time            `json:"taken_at" yaml:"taken_at"`
	Instances   []Instance           `json:"instances" yaml:"instances"`
	Unreachable []platform.ProcessID `json:"unreachable,omitempty" yaml:"unreachable,omitempty"`
	PrimaryPID  platform.ProcessID   `json:"primary_pid,omitempty" yaml:"primary_pid,omitempty"`
	TopMostPID  platform.ProcessID   `json:"topmost_pid,omitempty" yaml:"topmost_pid,omitempty"`
}

// Instance returns the entry for pid.
func (s *Snapshot) Instance(pid platform.ProcessID) (Instance, bool) {
	for _, in := range s.Instances {
		if in.PID == pid {
			return in, true
		}
	}
	return Instance{}, false
}

// Snapshot captures every instance with its rank, the unreachable processes,
// and the primary and topmost instances. Instances are ordered front to back;
// those whose rank could not be computed come last.
//
// A primary lookup failure is logged and leaves PrimaryPID unset. An
// inconsistent Z order fails the snapshot, as does a ranking pass in which no
// instance ranked and some failure was not a closed window.
func (s *Session) Snapshot() (*Snapshot, error) {
	pids, err := s.ProcessIDs()
	if err != nil {
		return nil, err
	}
	apps := s.applications(pids)
	reach := Partition(pids, appPIDs(apps))

	snap := &Snapshot{
		SessionID:   s.id,
		Executable:  s.opts.Executable,
		TakenAt:     time.Now(),
		Unreachable: reach.Unreachable,
	}

	candidates := make([]zorder.Candidate[platform.App], len(apps))
	for i, app := range apps {
		candidates[i] = zorder.Candidate[platform.App]{Key: app, Window: app.Window}
	}
	var (
		bestRank = -1
		failures *multierror.Error
		hardFail bool
	)
	for _, r := range zorder.RankAll(s.resolver, candidates) {
		in := Instance{
			PID:         r.Key.PID,
			Window:      r.Key.Window,
			Version:     r.Key.Version,
			VersionName: VersionName(r.Key.Version),
		}
		switch {
		case r.Err == nil:
			rank := r.Rank
			in.Rank = &rank
			if bestRank < 0 || rank < bestRank {
				bestRank = rank
				snap.TopMostPID = in.PID
			}
		case errors.Is(r.Err, zorder.ErrInconsistent):
			return nil, fmt.Errorf("failed to rank pid %d: %w", in.PID, r.Err)
		default:
			if !errors.Is(r.Err, platform.ErrInvalidHandle) {
				hardFail = true
			}
			failures = multierror.Append(failures, fmt.Errorf("pid %d: %w", in.PID, r.Err))
			s.logger.Debug("instance not ranked", "pid", uint32(in.PID), "error", r.Err)
		}
		snap.Instances = append(snap.Instances, in)
	}

	if bestRank < 0 && hardFail {
		return nil, fmt.Errorf("failed to rank instances: %w", failures.ErrorOrNil())
	}

	if primary, ok, err := s.PrimaryInstance(); err != nil {
		s.logger.Warn("primary instance lookup failed", "error", err)
	} else if ok {
		snap.PrimaryPID = primary.PID
	}

	for i := range snap.Instances {
		in := &snap.Instances[i]
		in.TopMost = in.PID == snap.TopMostPID
		in.Primary = in.PID == snap.PrimaryPID
	}
	sort.SliceStable(snap.Instances, func(i, j int) bool {
		a, b := snap.Instances[i].Rank, snap.Instances[j].Rank
		if a == nil || b == nil {
			return a != nil
		}
		return *a < *b
	})
	return snap, nil
}
