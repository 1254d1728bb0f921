package rpc

import (
	"context"

	"github.com/golang/glog"

	"github.com/MacFlecknoe/voldemort/cmn"
	"github.com/MacFlecknoe/voldemort/filter"
	"github.com/MacFlecknoe/voldemort/wireproto"
)

// EntrySource is a lazy finite sequence of PartitionEntry. Each call
// returns (entry, true, nil) for the next element, (_, false, nil) at exhaustion, or
// a non-nil err to abort the upload before any further I/O.
type EntrySource func() (entry PartitionEntry, ok bool, err error)

// SliceSource adapts a plain slice to an EntrySource.
func SliceSource(entries []PartitionEntry) EntrySource {
	i := 0
	return func() (PartitionEntry, bool, error) {
		if i >= len(entries) {
			return PartitionEntry{}, false, nil
		}
		e := entries[i]
		i++
		return e, true, nil
	}
}

// UpdateEntries streams entries to nodeID as a handshake record
// carrying storeName and the filter (if any), followed by bare records,
// terminated by the end-of-stream sentinel, followed by exactly one
// response. Bare records are lz4-compressed when the engine's config
// asks for it; the handshake envelope itself stays uncompressed since
// the server must be able to read StoreName/Filter immediately.
func (e *Engine) UpdateEntries(ctx context.Context, nodeID int, storeName string, entries EntrySource, f filter.Filter) (StreamStats, error) {
	var stats StreamStats
	compressed := e.Config.Compression == cmn.CompressionLZ4

	filterSpec, err := filter.EncodeFilter(f)
	if err != nil {
		return stats, err
	}

	conn, dest, err := e.Checkout(ctx, nodeID)
	if err != nil {
		return stats, err
	}
	ok := false
	defer func() { e.Checkin(dest, conn, ok) }()

	first, hasFirst, err := entries()
	if err != nil {
		return stats, err
	}

	envelope := &wireproto.UpdatePartitionEntriesRequest{StoreName: storeName, Filter: filterSpec}
	if hasFirst {
		envelope.Entry = entryToWire(first)
		stats.record(len(envelope.Entry.Value))
	}
	req := &wireproto.VoldemortAdminRequest{Type: wireproto.RequestTypeUpdatePartitionEntries, Update: envelope}
	if err := wireproto.WriteMessage(conn.Out, req); err != nil {
		return stats, cmn.WrapTransportError(dest.String(), "write envelope", err)
	}
	if err := conn.Out.Flush(); err != nil {
		return stats, cmn.WrapTransportError(dest.String(), "flush envelope", err)
	}
	if cmn.FastV(4) {
		glog.Infof("rpc: updateEntries handshake store=%q node=%d compressed=%v", storeName, nodeID, compressed)
	}

	if hasFirst {
		for {
			next, has, err := entries()
			if err != nil {
				return stats, err
			}
			if !has {
				break
			}
			rec := &wireproto.UpdatePartitionEntriesRequest{Entry: entryToWire(next)}
			stats.record(len(rec.Entry.Value))
			if compressed {
				err = wireproto.WriteCompressedMessage(conn.Out, rec)
			} else {
				err = wireproto.WriteMessage(conn.Out, rec)
			}
			if err != nil {
				return stats, cmn.WrapTransportError(dest.String(), "write record", err)
			}
		}
	}

	if err := wireproto.WriteEndOfStream(conn.Out); err != nil {
		return stats, cmn.WrapTransportError(dest.String(), "write end-of-stream", err)
	}
	if err := conn.Out.Flush(); err != nil {
		return stats, cmn.WrapTransportError(dest.String(), "flush end-of-stream", err)
	}

	resp := &wireproto.UpdatePartitionEntriesResponse{}
	if err := wireproto.ReadToBuilder(conn.In, resp); err != nil {
		return stats, cmn.WrapTransportError(dest.String(), "read response", err)
	}
	if protoErr := MapError(resp.Error); protoErr != nil {
		ok = true // the socket itself is fine; only the operation failed
		return stats, protoErr
	}
	ok = true
	if cmn.FastV(4) {
		glog.Infof("rpc: updateEntries done store=%q node=%d records=%d bytes=%d", storeName, nodeID, stats.Records.Load(), stats.Bytes.Load())
	}
	return stats, nil
}
