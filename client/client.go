// Package client implements the client lifecycle: construct an
// AdminClient either from a bootstrap URL or from a caller-supplied
// cluster descriptor, and wire together every other component (pool,
// rpc, xaction, metadata) it is built on.
package client

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/MacFlecknoe/voldemort/cmn"
	"github.com/MacFlecknoe/voldemort/filter"
	"github.com/MacFlecknoe/voldemort/metadata"
	"github.com/MacFlecknoe/voldemort/pool"
	"github.com/MacFlecknoe/voldemort/rpc"
	"github.com/MacFlecknoe/voldemort/xaction"
)

// BootstrapResolver is a transient store-client factory: given a
// bootstrap URL, it speaks the data-plane protocol just long enough to
// fetch the initial cluster descriptor. Cluster bootstrap discovery
// itself is an external collaborator — this interface is the seam a
// caller plugs a real implementation into.
type BootstrapResolver interface {
	ResolveCluster(ctx context.Context, bootstrapURLs []string) (*cmn.ClusterDescriptor, error)
}

// AdminClient is the facade every higher-level operation hangs off of.
// Its cluster field is swapped whole, never mutated in place.
type AdminClient struct {
	cluster *cmn.ClusterHolder
	pool    *pool.SocketPool
	cfg     *cmn.AdminClientConfig

	Engine   *rpc.Engine
	Driver   *xaction.Driver
	Metadata *metadata.Client
}

// clusterResolver adapts *cmn.ClusterHolder to rpc.NodeResolver so the
// engine always resolves against whatever snapshot is currently live,
// even across a SetCluster swap.
type clusterResolver struct{ h *cmn.ClusterHolder }

func (r clusterResolver) Node(id int) (cmn.Node, error) { return r.h.Load().Node(id) }

func newFromDescriptor(desc *cmn.ClusterDescriptor, cfg *cmn.AdminClientConfig) *AdminClient {
	holder := cmn.NewClusterHolder(desc)
	socketPool := pool.NewSocketPool(cfg)
	engine := rpc.NewEngine(socketPool, clusterResolver{h: holder}, cfg)
	return &AdminClient{
		cluster:  holder,
		pool:     socketPool,
		cfg:      cfg,
		Engine:   engine,
		Driver:   xaction.NewDriver(engine),
		Metadata: metadata.New(engine),
	}
}

// NewFromCluster builds an AdminClient directly from a caller-supplied
// cluster descriptor.
func NewFromCluster(desc *cmn.ClusterDescriptor, cfg *cmn.AdminClientConfig) *AdminClient {
	if cfg == nil {
		cfg = cmn.DefaultConfig()
	}
	return newFromDescriptor(desc, cfg)
}

// NewFromBootstrapURLs resolves the initial cluster descriptor through
// a transient store-client factory, then proceeds exactly as
// NewFromCluster does. The resolver is not retained past this call.
func NewFromBootstrapURLs(ctx context.Context, bootstrapURLs []string, resolver BootstrapResolver, cfg *cmn.AdminClientConfig) (*AdminClient, error) {
	if cfg == nil {
		cfg = cmn.DefaultConfig()
	}
	cfg.BootstrapURLs = bootstrapURLs
	desc, err := resolver.ResolveCluster(ctx, bootstrapURLs)
	if err != nil {
		return nil, err
	}
	return newFromDescriptor(desc, cfg), nil
}

// Cluster returns the current cluster descriptor snapshot.
func (c *AdminClient) Cluster() *cmn.ClusterDescriptor { return c.cluster.Load() }

// SetCluster replaces the cluster descriptor atomically, as a whole
// snapshot, never an in-place mutation.
func (c *AdminClient) SetCluster(desc *cmn.ClusterDescriptor) {
	c.cluster.Store(desc)
	if cmn.Rom.V(5, cmn.ModRPC) {
		glog.Infof("client: cluster updated %s", desc.DebugJSON())
	}
}

// UpdateEntries streams entries to nodeID.
func (c *AdminClient) UpdateEntries(ctx context.Context, nodeID int, storeName string, entries rpc.EntrySource, f filter.Filter) (rpc.StreamStats, error) {
	return c.Engine.UpdateEntries(ctx, nodeID, storeName, entries, f)
}

// FetchEntries opens a download cursor.
func (c *AdminClient) FetchEntries(ctx context.Context, nodeID int, storeName string, partitions []int32, f filter.Filter) (*rpc.Cursor, error) {
	return c.Engine.FetchEntries(ctx, nodeID, storeName, partitions, f, true)
}

// FetchKeys is FetchEntries with FetchValues=false.
func (c *AdminClient) FetchKeys(ctx context.Context, nodeID int, storeName string, partitions []int32, f filter.Filter) (*rpc.Cursor, error) {
	return c.Engine.FetchKeys(ctx, nodeID, storeName, partitions, f)
}

// MigratePartitions kicks off a background partition migration.
func (c *AdminClient) MigratePartitions(ctx context.Context, donorID, stealerID int, store string, partitions []int32, f filter.Filter) (int64, error) {
	return c.Driver.MigratePartitions(ctx, donorID, stealerID, store, partitions, f)
}

// WaitForCompletion polls an async operation to completion or timeout.
func (c *AdminClient) WaitForCompletion(ctx context.Context, nodeID int, requestID int64, maxWait time.Duration) (xaction.AsyncOperationHandle, error) {
	return c.Driver.WaitForCompletion(ctx, nodeID, requestID, maxWait)
}

// Pool exposes the underlying socket pool, mainly so callers and tests
// can inspect Stats/Outstanding.
func (c *AdminClient) Pool() *pool.SocketPool { return c.pool }

// Shutdown closes the socket pool. In-flight streams backed by pooled
// connections must already have been completed or abandoned by the
// caller — Shutdown does not wait for them.
func (c *AdminClient) Shutdown() error {
	return c.pool.Close()
}
