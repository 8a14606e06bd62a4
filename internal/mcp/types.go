package mcp

// EmptyInput is the input of tools that take no arguments.
type EmptyInput struct{}

// InstanceInfo describes one reachable application instance.
type InstanceInfo struct {
	PID         uint32 `json:"pid"`
	Window      string `json:"window"`
	Rank        *int   `json:"rank,omitempty"`
	Version     string `json:"version,omitempty"`
	VersionName string `json:"version_name"`
	TopMost     bool   `json:"topmost"`
	Primary     bool   `json:"primary"`
}

// ListInstancesInput is the input for the list_instances tool.
type ListInstancesInput struct {
	IncludeUnreachable bool `json:"include_unreachable,omitempty" jsonschema:"Also return the PIDs of processes that exist but cannot be reached through automation"`
}

// ListInstancesOutput is the output for the list_instances tool.
type ListInstancesOutput struct {
	SessionID   uint32         `json:"session_id"`
	Executable  string         `json:"executable"`
	Instances   []InstanceInfo `json:"instances"`
	Unreachable []uint32       `json:"unreachable,omitempty"`
}

// InstanceOutput is the output for get_topmost and get_primary.
type InstanceOutput struct {
	Found    bool          `json:"found"`
	Instance *InstanceInfo `json:"instance,omitempty"`
}

// ActivateInstanceInput is the input for the activate_instance tool.
type ActivateInstanceInput struct {
	PID uint32 `json:"pid" jsonschema:"required,Process ID of the instance to bring to the front"`
}

// ActivateInstanceOutput is the output for the activate_instance tool.
type ActivateInstanceOutput struct {
	PID       uint32 `json:"pid"`
	Window    string `json:"window"`
	Activated bool   `json:"activated"`
}

// WaitForTopmostInput is the input for the wait_for_topmost tool.
type WaitForTopmostInput struct {
	PID     uint32 `json:"pid" jsonschema:"required,Process ID that should become the topmost instance"`
	Timeout int    `json:"timeout,omitempty" jsonschema:"Timeout in seconds (default: 30)"`
}

// WaitForTopmostOutput is the output for the wait_for_topmost tool.
type WaitForTopmostOutput struct {
	TopMost    bool   `json:"topmost"`
	CurrentPID uint32 `json:"current_pid,omitempty"`
}

// SnapshotOutput is the output for the session_snapshot tool.
type SnapshotOutput struct {
	SessionID   uint32         `json:"session_id"`
	Executable  string         `json:"executable"`
	TakenAt     string         `json:"taken_at"`
	Instances   []InstanceInfo `json:"instances"`
	Unreachable []uint32       `json:"unreachable,omitempty"`
	PrimaryPID  uint32         `json:"primary_pid,omitempty"`
	TopMostPID  uint32         `json:"topmost_pid,omitempty"`
}
