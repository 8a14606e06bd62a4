package session

import "github.com/1broseidon/xlconductor/internal/platform"

// Reachability splits a process list by automation reachability.
type Reachability struct {
	Reachable   []platform.ProcessID `json:"reachable" yaml:"reachable"`
	Unreachable []platform.ProcessID `json:"unreachable" yaml:"unreachable"`
}

// Partition splits all into the ids also present in reachable and the rest.
// Both halves keep the order of all; duplicates in all are collapsed. IDs in
// reachable that are not in all are ignored.
func Partition(all, reachable []platform.ProcessID) Reachability {
	ok := make(map[platform.ProcessID]bool, len(reachable))
	for _, pid := range reachable {
		ok[pid] = true
	}

	var r Reachability
	seen := make(map[platform.ProcessID]bool, len(all))
	for _, pid := range all {
		if seen[pid] {
			continue
		}
		seen[pid] = true
		if ok[pid] {
			r.Reachable = append(r.Reachable, pid)
		} else {
			r.Unreachable = append(r.Unreachable, pid)
		}
	}
	return r
}
