package wireproto

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// EndOfStream is the download-stream sentinel: a fixed four-byte
// big-endian int32 value of -1.
const EndOfStream int32 = -1

// Marshaler is satisfied by every request/response type in this
// package.
type Marshaler interface {
	Marshal() []byte
}

// Unmarshaler is satisfied by every request/response type in this
// package.
type Unmarshaler interface {
	Unmarshal([]byte) error
}

// WriteMessage serializes msg, prefixes it with its varint length, and
// writes both to out. It does not flush — the caller controls batching.
func WriteMessage(out io.Writer, msg Marshaler) error {
	body := msg.Marshal()
	lenBuf := protowire.AppendVarint(nil, uint64(len(body)))
	if _, err := out.Write(lenBuf); err != nil {
		return errors.Wrap(err, "wireproto: write length prefix")
	}
	if _, err := out.Write(body); err != nil {
		return errors.Wrap(err, "wireproto: write message body")
	}
	return nil
}

// ReadToBuilder reads a varint length n, reads exactly n bytes, and
// parses them into msg. in must support ReadByte since varints are not
// fixed-width.
func ReadToBuilder(in *bufio.Reader, msg Unmarshaler) error {
	n, err := binary.ReadUvarint(in)
	if err != nil {
		return errors.Wrap(err, "wireproto: read length prefix")
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(in, body); err != nil {
		return errors.Wrap(err, "wireproto: read message body")
	}
	if err := msg.Unmarshal(body); err != nil {
		return errors.Wrap(err, "wireproto: parse message")
	}
	return nil
}

// WriteEndOfStream writes the four-byte big-endian sentinel that
// terminates a download stream.
func WriteEndOfStream(out io.Writer) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(EndOfStream))
	_, err := out.Write(buf[:])
	return errors.Wrap(err, "wireproto: write end-of-stream sentinel")
}

// ReadInt32 reads a four-byte big-endian signed int. In a download
// stream, -1 is the end-of-stream sentinel.
func ReadInt32(in io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(in, buf[:]); err != nil {
		return 0, errors.Wrap(err, "wireproto: read int32 length prefix")
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

// WriteFramedRecord prefixes msg's encoding with a fixed big-endian
// int32 length, the download-stream record framing: each record is
// preceded by a big-endian int32 length.
func WriteFramedRecord(out io.Writer, msg Marshaler) error {
	body := msg.Marshal()
	if len(body) > int(^uint32(0)>>1) {
		return fmt.Errorf("wireproto: record too large to frame: %d bytes", len(body))
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := out.Write(lenBuf[:]); err != nil {
		return errors.Wrap(err, "wireproto: write record length")
	}
	if _, err := out.Write(body); err != nil {
		return errors.Wrap(err, "wireproto: write record body")
	}
	return nil
}

// ReadUpdateRecord reads one record of an upload stream: records are
// varint-length-prefixed like any other message, but the stream
// terminator is the fixed 4-byte big-endian sentinel -1, not a varint.
// The reader disambiguates by peeking 4 bytes ahead: a real
// varint length prefix for a record under ~256MB never begins with four
// consecutive continuation bytes equal to 0xFF, so an exact match is
// unambiguously the terminator. done==true means the sentinel was read
// and msg was not touched.
func ReadUpdateRecord(in *bufio.Reader, msg Unmarshaler) (done bool, err error) {
	peek, err := in.Peek(4)
	if err == nil && int32(binary.BigEndian.Uint32(peek)) == EndOfStream {
		if _, err := in.Discard(4); err != nil {
			return false, errors.Wrap(err, "wireproto: discard end-of-stream sentinel")
		}
		return true, nil
	}
	if err := ReadToBuilder(in, msg); err != nil {
		return false, err
	}
	return false, nil
}

// ReadFramedRecord reads one int32-length-prefixed record. done==true
// means the sentinel was read and msg was not touched.
func ReadFramedRecord(in io.Reader, msg Unmarshaler) (done bool, err error) {
	length, err := ReadInt32(in)
	if err != nil {
		return false, err
	}
	if length == EndOfStream {
		return true, nil
	}
	if length < 0 {
		return false, fmt.Errorf("wireproto: invalid record length %d", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(in, body); err != nil {
		return false, errors.Wrap(err, "wireproto: read record body")
	}
	if err := msg.Unmarshal(body); err != nil {
		return false, errors.Wrap(err, "wireproto: parse record")
	}
	return false, nil
}
