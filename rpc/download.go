package rpc

import (
	"context"

	"github.com/golang/glog"

	"github.com/MacFlecknoe/voldemort/clock"
	"github.com/MacFlecknoe/voldemort/cmn"
	"github.com/MacFlecknoe/voldemort/filter"
	"github.com/MacFlecknoe/voldemort/pool"
	"github.com/MacFlecknoe/voldemort/wireproto"
)

// Cursor is the lazy sequence returned from FetchEntries / FetchKeys:
// single-shot, backed by one pooled connection, not restartable.
// Callers must drain it to the sentinel or call Close to avoid leaking
// the connection.
type Cursor struct {
	engine     *Engine
	conn       *pool.Conn
	dest       pool.Destination
	wantValues bool
	closed     bool

	// Stats accumulates record/byte counts as Next is called.
	Stats StreamStats
}

// FetchEntries opens a download cursor. wantValues selects between
// fetching values (true) and keys only (false) without duplicating the
// wire handshake.
func (e *Engine) FetchEntries(ctx context.Context, nodeID int, storeName string, partitions []int32, f filter.Filter, wantValues bool) (*Cursor, error) {
	filterSpec, err := filter.EncodeFilter(f)
	if err != nil {
		return nil, err
	}

	conn, dest, err := e.Checkout(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	req := &wireproto.VoldemortAdminRequest{
		Type: wireproto.RequestTypeFetchPartitionEntries,
		Fetch: &wireproto.FetchPartitionEntriesRequest{
			StoreName:   storeName,
			Partitions:  partitions,
			Filter:      filterSpec,
			FetchValues: wantValues,
		},
	}
	if err := wireproto.WriteMessage(conn.Out, req); err != nil {
		e.Checkin(dest, conn, false)
		return nil, cmn.WrapTransportError(dest.String(), "write request", err)
	}
	if err := conn.Out.Flush(); err != nil {
		e.Checkin(dest, conn, false)
		return nil, cmn.WrapTransportError(dest.String(), "flush request", err)
	}

	return &Cursor{engine: e, conn: conn, dest: dest, wantValues: wantValues}, nil
}

// FetchKeys is a FetchEntries call with wantValues=false.
func (e *Engine) FetchKeys(ctx context.Context, nodeID int, storeName string, partitions []int32, f filter.Filter) (*Cursor, error) {
	return e.FetchEntries(ctx, nodeID, storeName, partitions, f, false)
}

// FetchedEntry is one element of a Cursor. Value and Version are the
// zero value when the cursor was opened with wantValues=false.
type FetchedEntry struct {
	Key     cmn.ByteKey
	Value   []byte
	Version *clock.VectorClock
}

// Next reads one record. ok==false with err==nil means the stream ended
// normally (the sentinel was read and the connection returned to the
// pool). ok==false with err!=nil means either a transport failure
// (socket discarded) or a mapped protocol error reported by the server
// mid-stream (socket still healthy — returned to the pool, not
// discarded).
func (c *Cursor) Next() (FetchedEntry, bool, error) {
	if c.closed {
		return FetchedEntry{}, false, nil
	}

	rec := &wireproto.FetchPartitionEntriesResponse{}
	var done bool
	var err error
	if c.engine.Config.Compression == cmn.CompressionLZ4 {
		done, err = wireproto.ReadCompressedFramedRecord(c.conn.In, rec)
	} else {
		done, err = wireproto.ReadFramedRecord(c.conn.In, rec)
	}
	if err != nil {
		c.finish(false)
		return FetchedEntry{}, false, cmn.WrapTransportError(c.dest.String(), "read record", err)
	}
	if done {
		if cmn.FastV(4) {
			glog.Infof("rpc: fetchEntries %s done records=%d bytes=%d", c.dest, c.Stats.Records.Load(), c.Stats.Bytes.Load())
		}
		c.finish(true)
		return FetchedEntry{}, false, nil
	}
	if protoErr := MapError(rec.Error); protoErr != nil {
		c.finish(true)
		return FetchedEntry{}, false, protoErr
	}

	c.Stats.record(len(rec.Value))
	out := FetchedEntry{Key: cmn.ByteKey(rec.Key)}
	if c.wantValues {
		out.Value = rec.Value
		out.Version = ClockFromWire(rec.Clock)
	}
	return out, true, nil
}

// Close abandons the cursor before exhaustion. The connection's stream
// position is unknown past this point, so it is discarded rather than
// reused.
func (c *Cursor) Close() {
	c.finish(false)
}

func (c *Cursor) finish(ok bool) {
	if c.closed {
		return
	}
	c.closed = true
	c.engine.Checkin(c.dest, c.conn, ok)
}
