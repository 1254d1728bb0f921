package wireproto

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pierrec/lz4/v3"
	"github.com/pkg/errors"
)

// rawBytes lets already-encoded bytes (here, an lz4-compressed record
// body) satisfy Marshaler/Unmarshaler without a second copy.
type rawBytes []byte

func (r rawBytes) Marshal() []byte { return r }

type rawCapture []byte

func (r *rawCapture) Unmarshal(b []byte) error { *r = b; return nil }

func lz4Compress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(body); err != nil {
		return nil, errors.Wrap(err, "wireproto: lz4 compress")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "wireproto: lz4 flush")
	}
	return buf.Bytes(), nil
}

func lz4Decompress(body []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(body)))
	if err != nil {
		return nil, errors.Wrap(err, "wireproto: lz4 decompress")
	}
	return out, nil
}

// WriteCompressedMessage lz4-frames msg's marshaled body before
// varint-length-prefixing it the same way WriteMessage does. The
// length prefix itself is computed over the compressed bytes, so
// nothing downstream of framing ever has to know the record was
// compressed.
func WriteCompressedMessage(out io.Writer, msg Marshaler) error {
	compressed, err := lz4Compress(msg.Marshal())
	if err != nil {
		return err
	}
	return WriteMessage(out, rawBytes(compressed))
}

// ReadCompressedToBuilder is the inverse of WriteCompressedMessage.
func ReadCompressedToBuilder(in *bufio.Reader, msg Unmarshaler) error {
	var captured rawCapture
	if err := ReadToBuilder(in, &captured); err != nil {
		return err
	}
	body, err := lz4Decompress(captured)
	if err != nil {
		return err
	}
	return errors.Wrap(msg.Unmarshal(body), "wireproto: parse decompressed message")
}

// WriteCompressedFramedRecord is WriteFramedRecord with the record body
// lz4-compressed first; used for download-stream records.
func WriteCompressedFramedRecord(out io.Writer, msg Marshaler) error {
	compressed, err := lz4Compress(msg.Marshal())
	if err != nil {
		return err
	}
	return WriteFramedRecord(out, rawBytes(compressed))
}

// ReadCompressedFramedRecord is the inverse of
// WriteCompressedFramedRecord. done==true means the sentinel was read;
// the sentinel itself is never compressed.
func ReadCompressedFramedRecord(in io.Reader, msg Unmarshaler) (done bool, err error) {
	var captured rawCapture
	done, err = ReadFramedRecord(in, &captured)
	if err != nil || done {
		return done, err
	}
	body, err := lz4Decompress(captured)
	if err != nil {
		return false, err
	}
	return false, errors.Wrap(msg.Unmarshal(body), "wireproto: parse decompressed record")
}

// ReadCompressedUpdateRecord is the inverse of WriteCompressedMessage
// used in upload-stream position, where the terminator is the fixed
// EndOfStream sentinel rather than a varint (see ReadUpdateRecord).
func ReadCompressedUpdateRecord(in *bufio.Reader, msg Unmarshaler) (done bool, err error) {
	var captured rawCapture
	done, err = ReadUpdateRecord(in, &captured)
	if err != nil || done {
		return done, err
	}
	body, err := lz4Decompress(captured)
	if err != nil {
		return false, err
	}
	return false, errors.Wrap(msg.Unmarshal(body), "wireproto: parse decompressed record")
}
