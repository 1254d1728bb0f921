// Package filter turns a caller-supplied predicate into the
// (className, payload) pair the wire FilterSpecMsg carries. The client
// never executes or validates a filter — it only ships it.
package filter

import (
	"fmt"

	"github.com/MacFlecknoe/voldemort/cmn"
	"github.com/MacFlecknoe/voldemort/wireproto"
)

// Filter is implemented by anything a caller wants to transport to the
// server as a predicate over PartitionEntry. Payload construction is
// left as an extension point: callers implement Encode to produce
// whatever bytes their registered server-side predicate expects.
type Filter interface {
	// Name identifies the predicate class/registry entry the server
	// should instantiate.
	Name() string
	// Encode produces the exact byte sequence the server needs to
	// reconstruct an equivalent predicate.
	Encode() ([]byte, error)
}

// Registered is the common case: a named server-side predicate plus a
// small parameter blob, rather than shipping executable code. The
// server maintains a registry of known predicate names; the client
// only ever supplies the name and its parameters.
type Registered struct {
	PredicateName string
	Params        []byte
}

func (r Registered) Name() string { return r.PredicateName }

func (r Registered) Encode() ([]byte, error) { return r.Params, nil }

// EncodeFilter serializes f into the wire FilterSpecMsg. A nil f is valid — callers with no filter simply omit it from the
// request, handled at the call sites in package rpc.
func EncodeFilter(f Filter) (*wireproto.FilterSpecMsg, error) {
	if f == nil {
		return nil, nil
	}
	payload, err := f.Encode()
	if err != nil {
		return nil, &cmn.EncodingError{What: fmt.Sprintf("filter %q", f.Name()), Err: err}
	}
	return &wireproto.FilterSpecMsg{ClassName: f.Name(), Payload: payload}, nil
}
