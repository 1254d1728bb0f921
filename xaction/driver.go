// Package xaction implements the async operation driver: kick off a
// partition migration, poll its status, and wait for completion with a
// capped exponential backoff. The "transaction" being driven lives on
// the server, not in this process.
package xaction

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/atomic"

	"github.com/MacFlecknoe/voldemort/cmn"
	"github.com/MacFlecknoe/voldemort/filter"
	"github.com/MacFlecknoe/voldemort/rpc"
	"github.com/MacFlecknoe/voldemort/wireproto"
)

// AsyncOperationHandle is the status object returned by polling an
// async operation. The wire protocol does not disambiguate "never
// existed" from "already reaped" once a completed operation is queried
// again — this type preserves that ambiguity rather than inventing a
// distinction the wire protocol doesn't carry.
type AsyncOperationHandle struct {
	NodeID      int
	RequestID   int64
	Description string
	Status      string
	Complete    bool
}

// DebugJSON renders the handle as JSON for logging, the one place this
// package touches JSON (the wire protocol itself is fixed-frame binary).
func (h AsyncOperationHandle) DebugJSON() string {
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(h)
	if err != nil {
		return fmt.Sprintf("<async handle: %v>", err)
	}
	return string(b)
}

// Driver drives the three async-operation primitives against an
// *rpc.Engine. sleep and now are overridable for tests that need to
// exercise the backoff schedule without waiting on the wall clock.
type Driver struct {
	Engine *rpc.Engine

	// Polls counts every poll WaitForCompletion has issued across its
	// lifetime.
	Polls atomic.Int64

	sleep func(time.Duration)
	now   func() time.Time
	// poll defaults to GetAsyncRequestStatus; WaitForCompletion calls
	// through this indirection so tests can exercise the backoff
	// schedule against a stub status source instead of a real engine.
	poll func(context.Context, int, int64) (AsyncOperationHandle, error)
}

func NewDriver(engine *rpc.Engine) *Driver {
	d := &Driver{Engine: engine, sleep: time.Sleep, now: time.Now}
	d.poll = d.GetAsyncRequestStatus
	return d
}

// MigratePartitions kicks off a partition migration: the client
// contacts only the stealer, naming the donor; the donor is never
// dialed directly.
func (d *Driver) MigratePartitions(ctx context.Context, donorID, stealerID int, store string, partitions []int32, f filter.Filter) (int64, error) {
	filterSpec, err := filter.EncodeFilter(f)
	if err != nil {
		return 0, err
	}
	req := &wireproto.VoldemortAdminRequest{
		Type: wireproto.RequestTypeInitiateFetchAndUpdate,
		Initiate: &wireproto.InitiateFetchAndUpdateRequest{
			DonorNodeID: int32(donorID),
			Partitions:  partitions,
			StoreName:   store,
			Filter:      filterSpec,
		},
	}
	resp := &wireproto.InitiateFetchAndUpdateResponse{}
	if err := d.Engine.SendAndReceive(ctx, stealerID, req, resp); err != nil {
		return 0, err
	}
	if protoErr := rpc.MapError(resp.Error); protoErr != nil {
		return 0, protoErr
	}
	return resp.RequestID, nil
}

// GetAsyncRequestStatus issues one status-poll RPC. The server may
// remove completed operations from its in-progress table as a side
// effect of this call.
func (d *Driver) GetAsyncRequestStatus(ctx context.Context, nodeID int, requestID int64) (AsyncOperationHandle, error) {
	req := &wireproto.VoldemortAdminRequest{
		Type:        wireproto.RequestTypeAsyncOperationStatus,
		AsyncStatus: &wireproto.AsyncOperationStatusRequest{RequestID: requestID},
	}
	resp := &wireproto.AsyncOperationStatusResponse{}
	if err := d.Engine.SendAndReceive(ctx, nodeID, req, resp); err != nil {
		return AsyncOperationHandle{}, err
	}
	if protoErr := rpc.MapError(resp.Error); protoErr != nil {
		return AsyncOperationHandle{}, protoErr
	}
	return AsyncOperationHandle{
		NodeID:      nodeID,
		RequestID:   resp.RequestID,
		Description: resp.Description,
		Status:      resp.Status,
		Complete:    resp.Complete,
	}, nil
}

// WaitForCompletion polls GetAsyncRequestStatus until it reports
// complete or maxWait elapses. The backoff factor is 4, not 2 — this is
// intentional and must not be "fixed" to a doubling schedule.
func (d *Driver) WaitForCompletion(ctx context.Context, nodeID int, requestID int64, maxWait time.Duration) (AsyncOperationHandle, error) {
	cfg := d.Engine.Config
	delay := cfg.AsyncPollInitialDelay
	deadline := d.now().Add(maxWait)

	for {
		d.Polls.Inc()
		handle, err := d.poll(ctx, nodeID, requestID)
		if err != nil {
			return AsyncOperationHandle{}, err
		}
		if cmn.FastV(3) {
			glog.Infof("xaction: poll %d node=%d request=%d complete=%v", d.Polls.Load(), nodeID, requestID, handle.Complete)
		}
		if cmn.Rom.V(5, cmn.ModXaction) {
			glog.Infof("xaction: handle %s", handle.DebugJSON())
		}
		if handle.Complete {
			return handle, nil
		}
		if !d.now().Before(deadline) {
			return AsyncOperationHandle{}, &cmn.AsyncTimeoutError{RequestID: requestID, MaxWait: maxWait}
		}

		select {
		case <-ctx.Done():
			return AsyncOperationHandle{}, ctx.Err()
		default:
		}
		d.sleep(delay)

		if delay < cfg.AsyncPollMaxDelay {
			delay *= time.Duration(cfg.AsyncPollFactor)
			if delay > cfg.AsyncPollMaxDelay {
				delay = cfg.AsyncPollMaxDelay
			}
		}
	}
}
