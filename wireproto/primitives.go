package wireproto

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// fieldWriter accumulates a protobuf-wire-format encoded message one
// field at a time. It is the hand-rolled analogue of what protoc-gen-go
// would emit for a generated type's Marshal method — there is no .proto
// source behind these messages, so the encoding is written directly
// against google.golang.org/protobuf/encoding/protowire's low-level
// primitives.
type fieldWriter struct {
	buf []byte
}

func newFieldWriter() *fieldWriter { return &fieldWriter{} }

func (w *fieldWriter) Bytes() []byte { return w.buf }

func (w *fieldWriter) Varint(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, v)
}

func (w *fieldWriter) Int32(num protowire.Number, v int32) {
	if v == 0 {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, uint64(uint32(v)))
}

func (w *fieldWriter) Int64(num protowire.Number, v int64) {
	if v == 0 {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, uint64(v))
}

func (w *fieldWriter) Bool(num protowire.Number, v bool) {
	if !v {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, 1)
}

func (w *fieldWriter) String(num protowire.Number, v string) {
	if v == "" {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.BytesType)
	w.buf = protowire.AppendString(w.buf, v)
}

func (w *fieldWriter) Blob(num protowire.Number, v []byte) {
	if len(v) == 0 {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.BytesType)
	w.buf = protowire.AppendBytes(w.buf, v)
}

// RepeatedInt32 packs a repeated int32 field using the standard
// protobuf "packed" varint encoding (all values concatenated inside a
// single length-delimited run).
func (w *fieldWriter) RepeatedInt32(num protowire.Number, vs []int32) {
	if len(vs) == 0 {
		return
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(uint32(v)))
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.BytesType)
	w.buf = protowire.AppendBytes(w.buf, packed)
}

// forEachField walks every (number, type, value) triple in an encoded
// message, handing raw field bytes to fn. Unknown field numbers are the
// caller's responsibility to ignore — this mirrors how real protobuf
// decoders silently skip fields they don't recognize, which keeps the
// wire format forward-compatible.
func forEachField(b []byte, fn func(num protowire.Number, typ protowire.Type, raw []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("wireproto: malformed tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return fmt.Errorf("wireproto: malformed field %d: %w", num, protowire.ParseError(m))
		}
		raw := b[:m]
		b = b[m:]

		if err := fn(num, typ, raw); err != nil {
			return err
		}
	}
	return nil
}

func consumeVarint(raw []byte) (uint64, error) {
	v, n := protowire.ConsumeVarint(raw)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return v, nil
}

func consumeString(raw []byte) (string, error) {
	v, n := protowire.ConsumeString(raw)
	if n < 0 {
		return "", protowire.ParseError(n)
	}
	return v, nil
}

func consumeBytes(raw []byte) ([]byte, error) {
	v, n := protowire.ConsumeBytes(raw)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func consumePackedInt32(raw []byte) ([]int32, error) {
	body, n := protowire.ConsumeBytes(raw)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	var out []int32
	for len(body) > 0 {
		v, m := protowire.ConsumeVarint(body)
		if m < 0 {
			return nil, protowire.ParseError(m)
		}
		out = append(out, int32(uint32(v)))
		body = body[m:]
	}
	return out, nil
}
