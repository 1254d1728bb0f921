package cmn

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// ErrorCode is the wire-level error code carried in a response's
// optional error{errorCode,errorMessage} field.
type ErrorCode uint16

// Known server-side error codes. This is necessarily incomplete — the
// server is free to introduce new codes — so unknown codes map to a
// generic protocol failure that preserves the message rather than
// failing to parse.
const (
	ErrCodeNone ErrorCode = iota
	ErrCodeWrongNode
	ErrCodeInvalidMetadata
	ErrCodeStoreNotFound
	ErrCodePersistenceFailure
	ErrCodeUnknownRequest
	ErrCodeVoldemortException
)

var errorCodeNames = map[ErrorCode]string{
	ErrCodeWrongNode:          "wrong node",
	ErrCodeInvalidMetadata:    "invalid metadata",
	ErrCodeStoreNotFound:      "store not found",
	ErrCodePersistenceFailure: "persistence failure",
	ErrCodeUnknownRequest:     "unknown request",
	ErrCodeVoldemortException: "voldemort exception",
}

// ProtocolError is the mapped, typed form of a response's error field.
// It is never constructed for transport-level failures — see
// TransportError for those.
type ProtocolError struct {
	Code    ErrorCode
	Message string
}

func (e *ProtocolError) Error() string {
	if name, ok := errorCodeNames[e.Code]; ok {
		return fmt.Sprintf("admin rpc: %s (code %d): %s", name, e.Code, e.Message)
	}
	return fmt.Sprintf("admin rpc: unknown error code %d: %s", e.Code, e.Message)
}

// NewProtocolError maps a raw (code, message) pair off the wire into a
// typed failure. The mapping is total: there is no code for which this
// returns nil.
func NewProtocolError(code uint16, message string) *ProtocolError {
	return &ProtocolError{Code: ErrorCode(code), Message: message}
}

// TransportError wraps an I/O failure (connect, read, write, timeout).
// By the time a TransportError surfaces to a caller, the offending
// socket has already been closed and discarded from the pool.
type TransportError struct {
	Dest string
	Op   string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("admin rpc: transport error talking to %s during %s: %v", e.Dest, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func WrapTransportError(dest, op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Dest: dest, Op: op, Err: errors.Wrapf(err, "%s: %s", dest, op)}
}

// EncodingError surfaces a failure to serialize a filter or a metadata
// payload before any network I/O was attempted.
type EncodingError struct {
	What string
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("admin rpc: failed to encode %s: %v", e.What, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// AsyncTimeoutError is raised by WaitForCompletion when maxWait elapses
// before the operation reports complete==true.
type AsyncTimeoutError struct {
	RequestID int64
	MaxWait   time.Duration
}

func (e *AsyncTimeoutError) Error() string {
	return fmt.Sprintf("admin rpc: async request %d did not complete within %s", e.RequestID, e.MaxWait)
}
