package cmn

import "bytes"

// ByteKey is an opaque byte sequence. Equality is byte-wise; no
// ordering is assumed.
type ByteKey []byte

func (k ByteKey) Equal(other ByteKey) bool { return bytes.Equal(k, other) }

func (k ByteKey) String() string { return string(k) }

// Clone returns an independent copy so callers can hold onto a key past
// the lifetime of whatever buffer it was decoded into.
func (k ByteKey) Clone() ByteKey {
	if k == nil {
		return nil
	}
	out := make(ByteKey, len(k))
	copy(out, k)
	return out
}
