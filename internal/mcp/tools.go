package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/xlconductor/internal/platform"
	"github.com/1broseidon/xlconductor/internal/report"
	"github.com/1broseidon/xlconductor/internal/session"
)

func instanceInfo(in session.Instance) InstanceInfo {
	return InstanceInfo{
		PID:         uint32(in.PID),
		Window:      report.HandleString(in.Window),
		Rank:        in.Rank,
		Version:     in.Version,
		VersionName: in.VersionName,
		TopMost:     in.TopMost,
		Primary:     in.Primary,
	}
}

func instanceInfos(snap *session.Snapshot) []InstanceInfo {
	out := make([]InstanceInfo, 0, len(snap.Instances))
	for _, in := range snap.Instances {
		out = append(out, instanceInfo(in))
	}
	return out
}

func pidList(pids []platform.ProcessID) []uint32 {
	if len(pids) == 0 {
		return nil
	}
	out := make([]uint32, len(pids))
	for i, pid := range pids {
		out[i] = uint32(pid)
	}
	return out
}

func lookupInstance(snap *session.Snapshot, pid platform.ProcessID) InstanceOutput {
	if pid == 0 {
		return InstanceOutput{}
	}
	in, ok := snap.Instance(pid)
	if !ok {
		// Registered but not visible: report what is known.
		return InstanceOutput{Found: true, Instance: &InstanceInfo{PID: uint32(pid), Primary: pid == snap.PrimaryPID}}
	}
	info := instanceInfo(in)
	return InstanceOutput{Found: true, Instance: &info}
}

func (s *Server) handleListInstances(_ context.Context, _ *mcpsdk.CallToolRequest, args ListInstancesInput) (*mcpsdk.CallToolResult, ListInstancesOutput, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, ListInstancesOutput{}, err
	}
	out := ListInstancesOutput{
		SessionID:  uint32(snap.SessionID),
		Executable: snap.Executable,
		Instances:  instanceInfos(snap),
	}
	if args.IncludeUnreachable {
		out.Unreachable = pidList(snap.Unreachable)
	}
	s.logger.Debug("list_instances", "count", len(out.Instances))
	return nil, out, nil
}

func (s *Server) handleGetTopmost(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, InstanceOutput, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, InstanceOutput{}, err
	}
	return nil, lookupInstance(snap, snap.TopMostPID), nil
}

func (s *Server) handleGetPrimary(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, InstanceOutput, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, InstanceOutput{}, err
	}
	return nil, lookupInstance(snap, snap.PrimaryPID), nil
}

func (s *Server) handleActivateInstance(_ context.Context, _ *mcpsdk.CallToolRequest, args ActivateInstanceInput) (*mcpsdk.CallToolResult, ActivateInstanceOutput, error) {
	if args.PID == 0 {
		return nil, ActivateInstanceOutput{}, fmt.Errorf("pid is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.openSession()
	if err != nil {
		return nil, ActivateInstanceOutput{}, err
	}
	app, err := sess.Find(platform.ProcessID(args.PID))
	if err != nil {
		return nil, ActivateInstanceOutput{}, err
	}
	if err := sess.Activate(app); err != nil {
		return nil, ActivateInstanceOutput{}, err
	}
	return nil, ActivateInstanceOutput{
		PID:       args.PID,
		Window:    report.HandleString(app.Window),
		Activated: true,
	}, nil
}

func (s *Server) handleWaitForTopmost(ctx context.Context, _ *mcpsdk.CallToolRequest, args WaitForTopmostInput) (*mcpsdk.CallToolResult, WaitForTopmostOutput, error) {
	if args.PID == 0 {
		return nil, WaitForTopmostOutput{}, fmt.Errorf("pid is required")
	}
	timeout := time.Duration(args.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	poll := s.pollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}

	want := platform.ProcessID(args.PID)
	check := func() (platform.ProcessID, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		sess, err := s.openSession()
		if err != nil {
			return 0, err
		}
		top, ok, err := sess.TopMost()
		if err != nil || !ok {
			return 0, err
		}
		return top.PID, nil
	}

	// Fast path: already in front.
	current, err := check()
	if err != nil {
		return nil, WaitForTopmostOutput{}, err
	}
	if current == want {
		return nil, WaitForTopmostOutput{TopMost: true, CurrentPID: uint32(current)}, nil
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, WaitForTopmostOutput{}, ctx.Err()
		case <-ticker.C:
			current, err = check()
			if err != nil {
				return nil, WaitForTopmostOutput{}, err
			}
			if current == want {
				return nil, WaitForTopmostOutput{TopMost: true, CurrentPID: uint32(current)}, nil
			}
		case <-timer.C:
			return nil, WaitForTopmostOutput{CurrentPID: uint32(current)}, nil
		}
	}
}

func (s *Server) handleSessionSnapshot(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, SnapshotOutput, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, SnapshotOutput{}, err
	}
	return nil, SnapshotOutput{
		SessionID:   uint32(snap.SessionID),
		Executable:  snap.Executable,
		TakenAt:     snap.TakenAt.UTC().Format(time.RFC3339),
		Instances:   instanceInfos(snap),
		Unreachable: pidList(snap.Unreachable),
		PrimaryPID:  uint32(snap.PrimaryPID),
		TopMostPID:  uint32(snap.TopMostPID),
	}, nil
}
