package rpc

import "go.uber.org/atomic"

// StreamStats accumulates record and byte counts for one streaming
// call using lock-free counters so concurrent readers never observe a
// torn value mid-update.
type StreamStats struct {
	Records atomic.Int64
	Bytes   atomic.Int64
}

func (s *StreamStats) record(n int) {
	s.Records.Inc()
	s.Bytes.Add(int64(n))
}
