// Package rpc implements the request/response engine that every
// higher-level admin operation is built on: resolve a node id to a
// destination, borrow a pooled connection, ship one framed request,
// read one framed response, and hand the connection back — closing it
// first if anything went wrong.
package rpc

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/MacFlecknoe/voldemort/cmn"
	"github.com/MacFlecknoe/voldemort/pool"
	"github.com/MacFlecknoe/voldemort/wireproto"
)

// NodeResolver looks up a node's admin address by id. *cmn.ClusterDescriptor
// satisfies this directly.
type NodeResolver interface {
	Node(id int) (cmn.Node, error)
}

// Engine wires the pool, the node resolver, and the wire configuration
// together for every RPC component to share.
type Engine struct {
	Pool     pool.Pool
	Resolver NodeResolver
	Config   *cmn.AdminClientConfig
}

func NewEngine(p pool.Pool, resolver NodeResolver, cfg *cmn.AdminClientConfig) *Engine {
	return &Engine{Pool: p, Resolver: resolver, Config: cfg}
}

func (e *Engine) destination(nodeID int) (pool.Destination, error) {
	node, err := e.Resolver.Node(nodeID)
	if err != nil {
		return pool.Destination{}, err
	}
	return pool.Destination{Host: node.Host, Port: node.AdminPort, ProtocolTag: pool.AdminProtocolBuffers}, nil
}

// Checkout resolves nodeID and borrows a connection to it, applying the
// configured socket timeout as a read/write deadline. Callers are
// responsible for calling Checkin exactly once, discarding first on
// failure — see SendAndReceive for the common case.
func (e *Engine) Checkout(ctx context.Context, nodeID int) (*pool.Conn, pool.Destination, error) {
	dest, err := e.destination(nodeID)
	if err != nil {
		return nil, pool.Destination{}, err
	}
	conn, err := e.Pool.Checkout(ctx, dest)
	if err != nil {
		if cmn.FastV(4) {
			glog.Infof("rpc: checkout %s failed: %v", dest, err)
		}
		return nil, dest, cmn.WrapTransportError(dest.String(), "checkout", err)
	}
	if cmn.Rom.V(5, cmn.ModRPC) {
		glog.Infof("rpc: checkout %s ok", dest)
	}
	if e.Config.SocketTimeout > 0 {
		if err := conn.Socket.SetDeadline(time.Now().Add(e.Config.SocketTimeout)); err != nil {
			conn.Discard()
			e.Pool.Checkin(dest, conn)
			return nil, dest, cmn.WrapTransportError(dest.String(), "set deadline", err)
		}
	}
	return conn, dest, nil
}

// Checkin returns conn to the pool, discarding it first unless ok is
// true — the close-on-error discipline every caller of Checkout relies
// on.
func (e *Engine) Checkin(dest pool.Destination, conn *pool.Conn, ok bool) {
	if !ok {
		conn.Discard()
		if cmn.Rom.V(5, cmn.ModRPC) {
			glog.Infof("rpc: checkin %s discarding connection", dest)
		}
	}
	e.Pool.Checkin(dest, conn)
}

// SendAndReceive ships one framed request and reads one framed
// response over a single pooled connection.
func (e *Engine) SendAndReceive(ctx context.Context, nodeID int, req *wireproto.VoldemortAdminRequest, resp wireproto.Unmarshaler) error {
	conn, dest, err := e.Checkout(ctx, nodeID)
	if err != nil {
		return err
	}
	ok := false
	defer func() { e.Checkin(dest, conn, ok) }()

	if err := wireproto.WriteMessage(conn.Out, req); err != nil {
		return cmn.WrapTransportError(dest.String(), "write request", err)
	}
	if err := conn.Out.Flush(); err != nil {
		return cmn.WrapTransportError(dest.String(), "flush request", err)
	}
	if err := wireproto.ReadToBuilder(conn.In, resp); err != nil {
		return cmn.WrapTransportError(dest.String(), "read response", err)
	}
	ok = true
	return nil
}

// MapError turns a response's optional error field into a
// *cmn.ProtocolError, or nil if the field was unset.
func MapError(e *wireproto.ErrorMsg) error {
	if e == nil {
		return nil
	}
	return cmn.NewProtocolError(e.Code, e.Message)
}
