// Package metadata implements the metadata RPCs — plain get/put of a
// versioned byte blob under a well-known key — and the typed
// read-modify-write wrappers built on top of them.
package metadata

import (
	"context"

	"github.com/golang/glog"

	"github.com/MacFlecknoe/voldemort/clock"
	"github.com/MacFlecknoe/voldemort/cmn"
	"github.com/MacFlecknoe/voldemort/rpc"
	"github.com/MacFlecknoe/voldemort/wireproto"
)

// Key names a metadata entry. The core three are enumerated below, but
// the wire only ever carries the string, so a server free to define
// more is not a protocol violation.
type Key string

const (
	ClusterKey     Key = "cluster.xml"
	StoresKey      Key = "stores.xml"
	ServerStateKey Key = "server.state"
)

// VersionedValue is the payload of the metadata primitives: a UTF-8
// byte sequence plus the vector clock attached to it.
type VersionedValue struct {
	Value   []byte
	Version *clock.VectorClock
}

// Client is the thin wrapper the metadata primitives are methods on. It
// shares the *rpc.Engine every other RPC component uses.
type Client struct {
	Engine *rpc.Engine
}

func New(engine *rpc.Engine) *Client {
	return &Client{Engine: engine}
}

// GetRemoteMetadata fetches a metadata entry: one RPC.
func (c *Client) GetRemoteMetadata(ctx context.Context, nodeID int, key Key) (VersionedValue, error) {
	req := &wireproto.VoldemortAdminRequest{
		Type:    wireproto.RequestTypeGetMetadata,
		GetMeta: &wireproto.GetMetadataRequest{Key: string(key)},
	}
	resp := &wireproto.GetMetadataResponse{}
	if err := c.Engine.SendAndReceive(ctx, nodeID, req, resp); err != nil {
		return VersionedValue{}, err
	}
	if protoErr := rpc.MapError(resp.Error); protoErr != nil {
		return VersionedValue{}, protoErr
	}
	return VersionedValue{Value: resp.Value, Version: rpc.ClockFromWire(resp.Clock)}, nil
}

// UpdateRemoteMetadata overwrites a metadata entry: one RPC.
func (c *Client) UpdateRemoteMetadata(ctx context.Context, nodeID int, key Key, value VersionedValue) error {
	req := &wireproto.VoldemortAdminRequest{
		Type: wireproto.RequestTypeUpdateMetadata,
		UpdateMeta: &wireproto.UpdateMetadataRequest{
			Key:   string(key),
			Value: value.Value,
			Clock: rpc.ClockToWire(value.Version),
		},
	}
	resp := &wireproto.UpdateMetadataResponse{}
	if err := c.Engine.SendAndReceive(ctx, nodeID, req, resp); err != nil {
		return err
	}
	if protoErr := rpc.MapError(resp.Error); protoErr != nil {
		return protoErr
	}
	return nil
}

// readModifyWrite is the protocol every typed wrapper follows: GET,
// extract the clock, increment the target node's own slot by 1,
// serialize the new payload, PUT it with the new clock. The client
// never reads a quorum and never mutates any node but nodeID.
func (c *Client) readModifyWrite(ctx context.Context, nodeID int, key Key, payload []byte) error {
	current, err := c.GetRemoteMetadata(ctx, nodeID, key)
	if err != nil {
		return err
	}
	next := current.Version.Increment(nodeID, 1)
	if cmn.Rom.V(5, cmn.ModMetadata) {
		glog.Infof("metadata: read-modify-write node=%d key=%s clock=%v", nodeID, key, next.Snapshot())
	}
	return c.UpdateRemoteMetadata(ctx, nodeID, key, VersionedValue{Value: payload, Version: next})
}

// UpdateRemoteCluster PUTs a new cluster.xml payload to nodeID,
// following the read-modify-write protocol.
func (c *Client) UpdateRemoteCluster(ctx context.Context, nodeID int, clusterXML string) error {
	return c.readModifyWrite(ctx, nodeID, ClusterKey, []byte(clusterXML))
}

// GetRemoteCluster is getRemoteCluster: a plain GET, decoded as XML
// text (the client does not parse it — that is the caller's concern).
func (c *Client) GetRemoteCluster(ctx context.Context, nodeID int) (string, *clock.VectorClock, error) {
	v, err := c.GetRemoteMetadata(ctx, nodeID, ClusterKey)
	if err != nil {
		return "", nil, err
	}
	return string(v.Value), v.Version, nil
}

// UpdateRemoteStoreDefList PUTs a new stores.xml payload to nodeID.
func (c *Client) UpdateRemoteStoreDefList(ctx context.Context, nodeID int, storesXML string) error {
	return c.readModifyWrite(ctx, nodeID, StoresKey, []byte(storesXML))
}

func (c *Client) GetRemoteStoreDefList(ctx context.Context, nodeID int) (string, *clock.VectorClock, error) {
	v, err := c.GetRemoteMetadata(ctx, nodeID, StoresKey)
	if err != nil {
		return "", nil, err
	}
	return string(v.Value), v.Version, nil
}

// ServerState is the plain-string enum a node's operational state is
// expressed as.
type ServerState string

const (
	ServerStateNormal         ServerState = "NORMAL"
	ServerStateRebalancing    ServerState = "REBALANCING"
	ServerStateGrandfathering ServerState = "GRANDFATHERING"
)

// UpdateRemoteServerState PUTs a new server-state value to nodeID.
func (c *Client) UpdateRemoteServerState(ctx context.Context, nodeID int, state ServerState) error {
	return c.readModifyWrite(ctx, nodeID, ServerStateKey, []byte(state))
}

func (c *Client) GetRemoteServerState(ctx context.Context, nodeID int) (ServerState, *clock.VectorClock, error) {
	v, err := c.GetRemoteMetadata(ctx, nodeID, ServerStateKey)
	if err != nil {
		return "", nil, err
	}
	return ServerState(v.Value), v.Version, nil
}
