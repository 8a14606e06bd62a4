// Package watch polls a session and reports instances arriving and leaving
// and changes of the topmost and primary instance.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/1broseidon/xlconductor/internal/platform"
	"github.com/1broseidon/xlconductor/internal/session"
)

// SnapshotFunc takes a fresh snapshot of the watched session.
type SnapshotFunc func() (*session.Snapshot, error)

// EventKind classifies a change between two snapshots.
type EventKind string

const (
	Arrived        EventKind = "arrived"
	Departed       EventKind = "departed"
	TopMostChanged EventKind = "topmost_changed"
	PrimaryChanged EventKind = "primary_changed"
)

// Event is one change. For Arrived and Departed, PID is the instance; for the
// *Changed kinds, PID is the new holder (0 for none) and Previous the old one.
type Event struct {
	Kind     EventKind          `json:"kind"`
	PID      platform.ProcessID `json:"pid"`
	Previous platform.ProcessID `json:"previous,omitempty"`
}

func (e Event) String() string {
	switch e.Kind {
	case Arrived, Departed:
		return fmt.Sprintf("%s pid=%d", e.Kind, e.PID)
	}
	return fmt.Sprintf("%s %d -> %d", e.Kind, e.Previous, e.PID)
}

// Config holds configuration for the watcher.
type Config struct {
	Interval time.Duration
	Logger   *slog.Logger
	// OnEvent, when set, receives every event after it is logged.
	OnEvent func(Event)
}

// Watcher periodically snapshots a session and diffs consecutive snapshots.
// Every tick is a fresh query; nothing is carried over except the previous
// snapshot used for the diff.
type Watcher struct {
	interval time.Duration
	snapshot SnapshotFunc
	logger   *slog.Logger
	onEvent  func(Event)

	last *session.Snapshot
}

// NewWatcher creates a watcher. Interval defaults to two seconds.
func NewWatcher(cfg Config, snapshot SnapshotFunc) *Watcher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		interval: interval,
		snapshot: snapshot,
		logger:   logger,
		onEvent:  cfg.OnEvent,
	}
}

// Run polls immediately and then on every tick. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("watcher started", "interval", w.interval)
	w.PollNow()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return
		case <-ticker.C:
			w.PollNow()
		}
	}
}

// PollNow takes one snapshot and returns the events since the previous one.
// A failed snapshot is logged and keeps the previous baseline.
func (w *Watcher) PollNow() (events []Event) {
	// A panicking backend must not take the loop down.
	defer func() {
		if err := recover(); err != nil {
			w.logger.Error("watcher panic recovered", "error", err)
			events = nil
		}
	}()

	snap, err := w.snapshot()
	if err != nil {
		w.logger.Error("watcher: failed to take snapshot", "error", err)
		return nil
	}

	events = Diff(w.last, snap)
	w.last = snap
	for _, ev := range events {
		w.logger.Info("session changed",
			"event", string(ev.Kind),
			"pid", uint32(ev.PID),
			"previous", uint32(ev.Previous))
		if w.onEvent != nil {
			w.onEvent(ev)
		}
	}
	return events
}

// Last returns the most recent successful snapshot, or nil.
func (w *Watcher) Last() *session.Snapshot {
	return w.last
}

// Diff lists the changes from prev to next. A nil prev is an empty session.
// Departures come first, then arrivals in next's order, then topmost and
// primary changes.
func Diff(prev, next *session.Snapshot) []Event {
	if prev == nil {
		prev = &session.Snapshot{}
	}

	before := make(map[platform.ProcessID]bool, len(prev.Instances))
	for _, in := range prev.Instances {
		before[in.PID] = true
	}
	after := make(map[platform.ProcessID]bool, len(next.Instances))
	for _, in := range next.Instances {
		after[in.PID] = true
	}

	var events []Event
	for _, in := range prev.Instances {
		if !after[in.PID] {
			events = append(events, Event{Kind: Departed, PID: in.PID})
		}
	}
	for _, in := range next.Instances {
		if !before[in.PID] {
			events = append(events, Event{Kind: Arrived, PID: in.PID})
		}
	}
	if prev.TopMostPID != next.TopMostPID {
		events = append(events, Event{Kind: TopMostChanged, PID: next.TopMostPID, Previous: prev.TopMostPID})
	}
	if prev.PrimaryPID != next.PrimaryPID {
		events = append(events, Event{Kind: PrimaryChanged, PID: next.PrimaryPID, Previous: prev.PrimaryPID})
	}
	return events
}
