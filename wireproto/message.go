// Package wireproto implements the admin wire schema: a
// VoldemortAdminRequest discriminator carrying one of seven request
// kinds, message-specific responses that all share an optional error
// field, and the length-prefixed framing used to ship them.
//
// There is no .proto source behind these types — so each type
// hand-encodes itself against
// google.golang.org/protobuf/encoding/protowire's low-level
// varint/length-delimited primitives, the same wire format a real
// protoc-gen-go output would produce.
package wireproto

import "google.golang.org/protobuf/encoding/protowire"

// RequestType is the VoldemortAdminRequest discriminator.
type RequestType int32

const (
	RequestTypeUnspecified RequestType = iota
	RequestTypeUpdatePartitionEntries
	RequestTypeFetchPartitionEntries
	RequestTypeDeletePartitionEntries
	RequestTypeInitiateFetchAndUpdate
	RequestTypeAsyncOperationStatus
	RequestTypeUpdateMetadata
	RequestTypeGetMetadata
)

// ErrorMsg is the optional error sub-field every response may carry.
type ErrorMsg struct {
	Code    uint16
	Message string
}

func (e *ErrorMsg) Marshal() []byte {
	w := newFieldWriter()
	w.Varint(1, uint64(e.Code))
	w.String(2, e.Message)
	return w.Bytes()
}

func (e *ErrorMsg) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(raw)
			if err != nil {
				return err
			}
			e.Code = uint16(v)
		case 2:
			s, err := consumeString(raw)
			if err != nil {
				return err
			}
			e.Message = s
		}
		return nil
	})
}

// ClockEntryMsg is one (nodeId, counter) pair of a VectorClockMsg.
type ClockEntryMsg struct {
	NodeID  int32
	Counter int64
}

func (c *ClockEntryMsg) Marshal() []byte {
	w := newFieldWriter()
	w.Int32(1, c.NodeID)
	w.Int64(2, c.Counter)
	return w.Bytes()
}

func (c *ClockEntryMsg) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		v, err := consumeVarint(raw)
		if err != nil {
			return err
		}
		switch num {
		case 1:
			c.NodeID = int32(uint32(v))
		case 2:
			c.Counter = int64(v)
		}
		return nil
	})
}

// VectorClockMsg is the wire form of clock.VectorClock.
type VectorClockMsg struct {
	Entries     []ClockEntryMsg
	TimestampMs int64
}

func (c *VectorClockMsg) Marshal() []byte {
	w := newFieldWriter()
	for i := range c.Entries {
		w.Blob(1, c.Entries[i].Marshal())
	}
	w.Int64(2, c.TimestampMs)
	return w.Bytes()
}

func (c *VectorClockMsg) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		switch num {
		case 1:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			var entry ClockEntryMsg
			if err := entry.Unmarshal(body); err != nil {
				return err
			}
			c.Entries = append(c.Entries, entry)
		case 2:
			v, err := consumeVarint(raw)
			if err != nil {
				return err
			}
			c.TimestampMs = int64(v)
		}
		return nil
	})
}

// FilterSpecMsg is the wire form of a FilterSpec: a class/registry
// name plus an opaque payload the server materializes into a predicate.
type FilterSpecMsg struct {
	ClassName string
	Payload   []byte
}

func (f *FilterSpecMsg) Marshal() []byte {
	w := newFieldWriter()
	w.String(1, f.ClassName)
	w.Blob(2, f.Payload)
	return w.Bytes()
}

func (f *FilterSpecMsg) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		switch num {
		case 1:
			s, err := consumeString(raw)
			if err != nil {
				return err
			}
			f.ClassName = s
		case 2:
			bs, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			f.Payload = bs
		}
		return nil
	})
}

// PartitionEntryMsg is the unit transferred by the bulk streams.
type PartitionEntryMsg struct {
	Key   []byte
	Value []byte
	Clock *VectorClockMsg
}

func (p *PartitionEntryMsg) Marshal() []byte {
	w := newFieldWriter()
	w.Blob(1, p.Key)
	w.Blob(2, p.Value)
	if p.Clock != nil {
		w.Blob(3, p.Clock.Marshal())
	}
	return w.Bytes()
}

func (p *PartitionEntryMsg) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		switch num {
		case 1:
			bs, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			p.Key = bs
		case 2:
			bs, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			p.Value = bs
		case 3:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			p.Clock = &VectorClockMsg{}
			if err := p.Clock.Unmarshal(body); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdatePartitionEntriesRequest is both the inner record of every
// update-stream message and, wrapped in the first VoldemortAdminRequest
// envelope, the handshake that declares the stream's store and filter.
// StoreName and Filter are only ever populated on the first record of a
// stream.
type UpdatePartitionEntriesRequest struct {
	StoreName string
	Entry     PartitionEntryMsg
	Filter    *FilterSpecMsg
}

func (u *UpdatePartitionEntriesRequest) Marshal() []byte {
	w := newFieldWriter()
	w.String(1, u.StoreName)
	w.Blob(2, u.Entry.Marshal())
	if u.Filter != nil {
		w.Blob(3, u.Filter.Marshal())
	}
	return w.Bytes()
}

func (u *UpdatePartitionEntriesRequest) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		switch num {
		case 1:
			s, err := consumeString(raw)
			if err != nil {
				return err
			}
			u.StoreName = s
		case 2:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			return u.Entry.Unmarshal(body)
		case 3:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			u.Filter = &FilterSpecMsg{}
			return u.Filter.Unmarshal(body)
		}
		return nil
	})
}

type UpdatePartitionEntriesResponse struct {
	Error *ErrorMsg
}

func (u *UpdatePartitionEntriesResponse) Marshal() []byte {
	w := newFieldWriter()
	if u.Error != nil {
		w.Blob(1, u.Error.Marshal())
	}
	return w.Bytes()
}

func (u *UpdatePartitionEntriesResponse) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		if num == 1 {
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			u.Error = &ErrorMsg{}
			return u.Error.Unmarshal(body)
		}
		return nil
	})
}

// FetchPartitionEntriesRequest is the single request that kicks off a
// download stream.
type FetchPartitionEntriesRequest struct {
	StoreName   string
	Partitions  []int32
	Filter      *FilterSpecMsg
	FetchValues bool
}

func (f *FetchPartitionEntriesRequest) Marshal() []byte {
	w := newFieldWriter()
	w.String(1, f.StoreName)
	w.RepeatedInt32(2, f.Partitions)
	if f.Filter != nil {
		w.Blob(3, f.Filter.Marshal())
	}
	w.Bool(4, f.FetchValues)
	return w.Bytes()
}

func (f *FetchPartitionEntriesRequest) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		switch num {
		case 1:
			s, err := consumeString(raw)
			if err != nil {
				return err
			}
			f.StoreName = s
		case 2:
			ps, err := consumePackedInt32(raw)
			if err != nil {
				return err
			}
			f.Partitions = ps
		case 3:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			f.Filter = &FilterSpecMsg{}
			if err := f.Filter.Unmarshal(body); err != nil {
				return err
			}
		case 4:
			v, err := consumeVarint(raw)
			if err != nil {
				return err
			}
			f.FetchValues = v != 0
		}
		return nil
	})
}

// FetchPartitionEntriesResponse is one streamed download record. Key is
// always present; Value is present only when the request's FetchValues
// was true.
type FetchPartitionEntriesResponse struct {
	Key   []byte
	Value []byte
	Clock *VectorClockMsg
	Error *ErrorMsg
}

func (f *FetchPartitionEntriesResponse) Marshal() []byte {
	w := newFieldWriter()
	w.Blob(1, f.Key)
	w.Blob(2, f.Value)
	if f.Clock != nil {
		w.Blob(3, f.Clock.Marshal())
	}
	if f.Error != nil {
		w.Blob(4, f.Error.Marshal())
	}
	return w.Bytes()
}

func (f *FetchPartitionEntriesResponse) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		switch num {
		case 1:
			bs, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			f.Key = bs
		case 2:
			bs, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			f.Value = bs
		case 3:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			f.Clock = &VectorClockMsg{}
			if err := f.Clock.Unmarshal(body); err != nil {
				return err
			}
		case 4:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			f.Error = &ErrorMsg{}
			if err := f.Error.Unmarshal(body); err != nil {
				return err
			}
		}
		return nil
	})
}

// InitiateFetchAndUpdateRequest kicks off a partition migration on the
// stealer node, naming the donor.
type InitiateFetchAndUpdateRequest struct {
	DonorNodeID int32
	Partitions  []int32
	StoreName   string
	Filter      *FilterSpecMsg
}

func (r *InitiateFetchAndUpdateRequest) Marshal() []byte {
	w := newFieldWriter()
	w.Int32(1, r.DonorNodeID)
	w.RepeatedInt32(2, r.Partitions)
	w.String(3, r.StoreName)
	if r.Filter != nil {
		w.Blob(4, r.Filter.Marshal())
	}
	return w.Bytes()
}

func (r *InitiateFetchAndUpdateRequest) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(raw)
			if err != nil {
				return err
			}
			r.DonorNodeID = int32(uint32(v))
		case 2:
			ps, err := consumePackedInt32(raw)
			if err != nil {
				return err
			}
			r.Partitions = ps
		case 3:
			s, err := consumeString(raw)
			if err != nil {
				return err
			}
			r.StoreName = s
		case 4:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			r.Filter = &FilterSpecMsg{}
			if err := r.Filter.Unmarshal(body); err != nil {
				return err
			}
		}
		return nil
	})
}

type InitiateFetchAndUpdateResponse struct {
	RequestID int64
	Error     *ErrorMsg
}

func (r *InitiateFetchAndUpdateResponse) Marshal() []byte {
	w := newFieldWriter()
	w.Int64(1, r.RequestID)
	if r.Error != nil {
		w.Blob(2, r.Error.Marshal())
	}
	return w.Bytes()
}

func (r *InitiateFetchAndUpdateResponse) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(raw)
			if err != nil {
				return err
			}
			r.RequestID = int64(v)
		case 2:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			r.Error = &ErrorMsg{}
			if err := r.Error.Unmarshal(body); err != nil {
				return err
			}
		}
		return nil
	})
}

type AsyncOperationStatusRequest struct {
	RequestID int64
}

func (r *AsyncOperationStatusRequest) Marshal() []byte {
	w := newFieldWriter()
	w.Int64(1, r.RequestID)
	return w.Bytes()
}

func (r *AsyncOperationStatusRequest) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		if num == 1 {
			v, err := consumeVarint(raw)
			if err != nil {
				return err
			}
			r.RequestID = int64(v)
		}
		return nil
	})
}

// AsyncOperationStatusResponse is the status object returned by polling
// an in-progress async operation.
type AsyncOperationStatusResponse struct {
	RequestID   int64
	Description string
	Status      string
	Complete    bool
	Error       *ErrorMsg
}

func (r *AsyncOperationStatusResponse) Marshal() []byte {
	w := newFieldWriter()
	w.Int64(1, r.RequestID)
	w.String(2, r.Description)
	w.String(3, r.Status)
	w.Bool(4, r.Complete)
	if r.Error != nil {
		w.Blob(5, r.Error.Marshal())
	}
	return w.Bytes()
}

func (r *AsyncOperationStatusResponse) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(raw)
			if err != nil {
				return err
			}
			r.RequestID = int64(v)
		case 2:
			s, err := consumeString(raw)
			if err != nil {
				return err
			}
			r.Description = s
		case 3:
			s, err := consumeString(raw)
			if err != nil {
				return err
			}
			r.Status = s
		case 4:
			v, err := consumeVarint(raw)
			if err != nil {
				return err
			}
			r.Complete = v != 0
		case 5:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			r.Error = &ErrorMsg{}
			if err := r.Error.Unmarshal(body); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateMetadataRequest/Response and GetMetadataRequest/Response
// implement the read-modify-write metadata protocol's wire primitives.
type UpdateMetadataRequest struct {
	Key   string
	Value []byte
	Clock *VectorClockMsg
}

func (r *UpdateMetadataRequest) Marshal() []byte {
	w := newFieldWriter()
	w.String(1, r.Key)
	w.Blob(2, r.Value)
	if r.Clock != nil {
		w.Blob(3, r.Clock.Marshal())
	}
	return w.Bytes()
}

func (r *UpdateMetadataRequest) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		switch num {
		case 1:
			s, err := consumeString(raw)
			if err != nil {
				return err
			}
			r.Key = s
		case 2:
			bs, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			r.Value = bs
		case 3:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			r.Clock = &VectorClockMsg{}
			if err := r.Clock.Unmarshal(body); err != nil {
				return err
			}
		}
		return nil
	})
}

type UpdateMetadataResponse struct {
	Error *ErrorMsg
}

func (r *UpdateMetadataResponse) Marshal() []byte {
	w := newFieldWriter()
	if r.Error != nil {
		w.Blob(1, r.Error.Marshal())
	}
	return w.Bytes()
}

func (r *UpdateMetadataResponse) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		if num == 1 {
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			r.Error = &ErrorMsg{}
			return r.Error.Unmarshal(body)
		}
		return nil
	})
}

type GetMetadataRequest struct {
	Key string
}

func (r *GetMetadataRequest) Marshal() []byte {
	w := newFieldWriter()
	w.String(1, r.Key)
	return w.Bytes()
}

func (r *GetMetadataRequest) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		if num == 1 {
			s, err := consumeString(raw)
			if err != nil {
				return err
			}
			r.Key = s
		}
		return nil
	})
}

type GetMetadataResponse struct {
	Value []byte
	Clock *VectorClockMsg
	Error *ErrorMsg
}

func (r *GetMetadataResponse) Marshal() []byte {
	w := newFieldWriter()
	w.Blob(1, r.Value)
	if r.Clock != nil {
		w.Blob(2, r.Clock.Marshal())
	}
	if r.Error != nil {
		w.Blob(3, r.Error.Marshal())
	}
	return w.Bytes()
}

func (r *GetMetadataResponse) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		switch num {
		case 1:
			bs, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			r.Value = bs
		case 2:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			r.Clock = &VectorClockMsg{}
			if err := r.Clock.Unmarshal(body); err != nil {
				return err
			}
		case 3:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			r.Error = &ErrorMsg{}
			if err := r.Error.Unmarshal(body); err != nil {
				return err
			}
		}
		return nil
	})
}

// VoldemortAdminRequest is the top-level discriminated envelope. Only
// one of the typed fields is populated, matching Type.
type VoldemortAdminRequest struct {
	Type         RequestType
	Update       *UpdatePartitionEntriesRequest
	Fetch        *FetchPartitionEntriesRequest
	Initiate     *InitiateFetchAndUpdateRequest
	AsyncStatus  *AsyncOperationStatusRequest
	UpdateMeta   *UpdateMetadataRequest
	GetMeta      *GetMetadataRequest
}

func (r *VoldemortAdminRequest) Marshal() []byte {
	w := newFieldWriter()
	w.Varint(1, uint64(r.Type))
	if r.Update != nil {
		w.Blob(2, r.Update.Marshal())
	}
	if r.Fetch != nil {
		w.Blob(3, r.Fetch.Marshal())
	}
	if r.Initiate != nil {
		w.Blob(4, r.Initiate.Marshal())
	}
	if r.AsyncStatus != nil {
		w.Blob(5, r.AsyncStatus.Marshal())
	}
	if r.UpdateMeta != nil {
		w.Blob(6, r.UpdateMeta.Marshal())
	}
	if r.GetMeta != nil {
		w.Blob(7, r.GetMeta.Marshal())
	}
	return w.Bytes()
}

func (r *VoldemortAdminRequest) Unmarshal(b []byte) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(raw)
			if err != nil {
				return err
			}
			r.Type = RequestType(v)
		case 2:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			r.Update = &UpdatePartitionEntriesRequest{}
			return r.Update.Unmarshal(body)
		case 3:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			r.Fetch = &FetchPartitionEntriesRequest{}
			return r.Fetch.Unmarshal(body)
		case 4:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			r.Initiate = &InitiateFetchAndUpdateRequest{}
			return r.Initiate.Unmarshal(body)
		case 5:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			r.AsyncStatus = &AsyncOperationStatusRequest{}
			return r.AsyncStatus.Unmarshal(body)
		case 6:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			r.UpdateMeta = &UpdateMetadataRequest{}
			return r.UpdateMeta.Unmarshal(body)
		case 7:
			body, err := consumeBytes(raw)
			if err != nil {
				return err
			}
			r.GetMeta = &GetMetadataRequest{}
			return r.GetMeta.Unmarshal(body)
		}
		return nil
	})
}
