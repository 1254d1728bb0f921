// Package cmn provides common low-level types and utilities shared by every
// admin-client package: the node/cluster data model, configuration,
// verbosity-gated logging, assertions, and the protocol error table.
package cmn

import (
	"github.com/golang/glog"
)

// Rom ("runtime options, mutable") gates verbose logging: call sites ask
// "would this log line even be emitted" before paying for formatting.
var Rom = &runtimeOpts{level: 0}

type runtimeOpts struct {
	level int
}

func (r *runtimeOpts) SetVerbosity(level int) { r.level = level }

// V reports whether logging at the given level is enabled. Modules are
// accepted but currently unused beyond documentation value; a future
// per-module verbosity table would key off them.
func (r *runtimeOpts) V(level int, _ string) bool {
	return bool(glog.V(glog.Level(level))) || level <= r.level
}

const (
	ModPool     = "pool"
	ModRPC      = "rpc"
	ModXaction  = "xaction"
	ModMetadata = "metadata"
)

// FastV is shorthand for the common case of an unnamed module check.
func FastV(level int) bool { return Rom.V(level, "") }
