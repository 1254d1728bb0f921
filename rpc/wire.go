package rpc

import (
	"sort"
	"time"

	"github.com/MacFlecknoe/voldemort/clock"
	"github.com/MacFlecknoe/voldemort/cmn"
	"github.com/MacFlecknoe/voldemort/wireproto"
)

// PartitionEntry is the unit transferred by the bulk streams.
type PartitionEntry struct {
	Key   cmn.ByteKey
	Value clock.Versioned[[]byte]
}

func entryToWire(e PartitionEntry) wireproto.PartitionEntryMsg {
	return wireproto.PartitionEntryMsg{
		Key:   []byte(e.Key),
		Value: e.Value.Value,
		Clock: ClockToWire(e.Value.Version),
	}
}

// ClockToWire flattens a VectorClock into its wire form, sorting by node
// id so the encoding is deterministic (useful for tests and for
// comparing clocks byte-for-byte). Exported so the metadata package's
// read-modify-write protocol can reuse it instead of duplicating the
// conversion.
func ClockToWire(vc *clock.VectorClock) *wireproto.VectorClockMsg {
	if vc == nil {
		return nil
	}
	snap := vc.Snapshot()
	ids := make([]int, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	entries := make([]wireproto.ClockEntryMsg, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, wireproto.ClockEntryMsg{NodeID: int32(id), Counter: snap[id]})
	}
	return &wireproto.VectorClockMsg{Entries: entries, TimestampMs: vc.Timestamp().UnixMilli()}
}

// ClockFromWire is the inverse of ClockToWire.
func ClockFromWire(m *wireproto.VectorClockMsg) *clock.VectorClock {
	if m == nil {
		return clock.New()
	}
	versions := make(map[int]int64, len(m.Entries))
	for _, e := range m.Entries {
		versions[int(e.NodeID)] = e.Counter
	}
	return clock.NewFrom(versions, time.UnixMilli(m.TimestampMs))
}
