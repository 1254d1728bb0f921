// Package clock implements the version-vector concurrency scheme used
// by the metadata protocol: a VectorClock maps node id to a monotonic
// counter plus a wall-clock timestamp, and a Versioned[V] pairs a value
// with the clock of the write that produced it.
package clock

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// VectorClock is immutable: every mutating-looking method returns a new
// value, never touching the receiver.
type VectorClock struct {
	versions  map[int]int64
	timestamp time.Time
}

// New returns an empty clock stamped with now.
func New() *VectorClock {
	return &VectorClock{versions: map[int]int64{}, timestamp: time.Now()}
}

// NewFrom builds a clock from an explicit counter map and timestamp,
// for example when decoding one off the wire.
func NewFrom(versions map[int]int64, timestamp time.Time) *VectorClock {
	cp := make(map[int]int64, len(versions))
	for k, v := range versions {
		cp[k] = v
	}
	return &VectorClock{versions: cp, timestamp: timestamp}
}

// Get returns the counter for nodeID, or 0 if the clock has never seen
// a write from that node.
func (vc *VectorClock) Get(nodeID int) int64 {
	if vc == nil {
		return 0
	}
	return vc.versions[nodeID]
}

func (vc *VectorClock) Timestamp() time.Time {
	if vc == nil {
		return time.Time{}
	}
	return vc.timestamp
}

// Increment produces a new clock with nodeID's slot advanced by `by`
// and the timestamp refreshed to now. The receiver is left untouched —
// this is the sole building block of the read-modify-write metadata
// protocol's "produce a new clock" step.
func (vc *VectorClock) Increment(nodeID int, by int64) *VectorClock {
	next := &VectorClock{versions: make(map[int]int64, len(vc.versions)+1), timestamp: time.Now()}
	for k, v := range vc.versions {
		next.versions[k] = v
	}
	next.versions[nodeID] += by
	return next
}

// Dominates reports whether vc is greater than or equal to other on
// every node slot and strictly greater on at least one — the standard
// vector-clock dominance relation used to decide causal ordering.
func (vc *VectorClock) Dominates(other *VectorClock) bool {
	strictlyGreater := false
	seen := map[int]bool{}
	for node, v := range vc.versions {
		seen[node] = true
		ov := other.Get(node)
		if v < ov {
			return false
		}
		if v > ov {
			strictlyGreater = true
		}
	}
	for node := range other.versions {
		if seen[node] {
			continue
		}
		if other.Get(node) > 0 {
			return false
		}
	}
	return strictlyGreater
}

// StrictlyGreaterThan reports whether every slot in vc is >= the
// corresponding slot in other, and at least one is strictly greater —
// a version vector strictly greater than the one most recently
// observed.
func (vc *VectorClock) StrictlyGreaterThan(other *VectorClock) bool {
	return vc.Dominates(other)
}

func (vc *VectorClock) String() string {
	nodes := make([]int, 0, len(vc.versions))
	for n := range vc.versions {
		nodes = append(nodes, n)
	}
	sort.Ints(nodes)
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, fmt.Sprintf("%d:%d", n, vc.versions[n]))
	}
	return "{" + strings.Join(parts, ",") + "}@" + vc.timestamp.Format(time.RFC3339Nano)
}

// Snapshot returns a copy of the underlying counters, safe for a
// caller to range over without racing future Increment calls (which
// never mutate vc anyway, but this keeps the map itself from escaping).
func (vc *VectorClock) Snapshot() map[int]int64 {
	cp := make(map[int]int64, len(vc.versions))
	for k, v := range vc.versions {
		cp[k] = v
	}
	return cp
}

// Versioned pairs a value with the vector clock of the write that
// produced it.
type Versioned[V any] struct {
	Value   V
	Version *VectorClock
}

func NewVersioned[V any](value V, version *VectorClock) Versioned[V] {
	return Versioned[V]{Value: value, Version: version}
}
