package go_seos

import (
	"errors"
	"fmt"
)

// Error codes shared by every operation of the security stack.
//
// The numeric values are part of the RPC wire contract: an RPC server encodes
// the ErrorCode of an operation into the response frame and the client decodes
// it back into the identical value. They must never be renumbered.
//
// Design rationale:
//   - ErrorCode is a closed enumeration, Success == 0 is load-bearing (the
//     RPC layer checks it, it is not just convention) and all error values
//     are negative.
//   - ErrorCode implements the error interface, so the codes double as
//     sentinel errors usable with errors.Is().
//   - Errors that need additional context are wrapped with fmt.Errorf("%w")
//     or the typed wrappers below, so the underlying code survives for both
//     errors.Is() and the RPC layer.
type ErrorCode int32

const (
	// Success is the zero value; operations return a nil error instead, but
	// the constant is needed for wire encoding.
	Success ErrorCode = 0

	// ErrGeneric is a catch-all; the chain verifier uses it specifically to
	// signal "verification failed, see the flags output" as opposed to an
	// engine-internal fault.
	ErrGeneric ErrorCode = -1

	// ErrNotImplemented indicates a declared but unimplemented operation,
	// e.g. importing a wrapped key.
	ErrNotImplemented ErrorCode = -2

	// ErrNotSupported indicates a structurally valid but out-of-policy-range
	// request, e.g. a 48-bit DH key.
	ErrNotSupported ErrorCode = -3

	// ErrInvalidState indicates an operation that is not legal in the current
	// state of an object.
	ErrInvalidState ErrorCode = -4

	// ErrInvalidParameter indicates malformed, missing or out-of-range input;
	// a caller bug.
	ErrInvalidParameter ErrorCode = -5

	// ErrInvalidName indicates a malformed name, e.g. an empty or over-long
	// keystore entry name.
	ErrInvalidName ErrorCode = -6

	// ErrInvalidHandle indicates a stale or foreign object handle. Using a
	// freed handle reports this deterministically, it never crashes.
	ErrInvalidHandle ErrorCode = -7

	// ErrNotFound indicates an index or name lookup miss.
	ErrNotFound ErrorCode = -8

	// ErrAccessDenied indicates missing access rights to a resource.
	ErrAccessDenied ErrorCode = -9

	// ErrOperationDenied indicates a policy refusal, e.g. exporting a key
	// whose attributes forbid export.
	ErrOperationDenied ErrorCode = -10

	// ErrAborted indicates an internal cryptographic or protocol-engine
	// failure. Verification failures (signature mismatch, GCM tag mismatch)
	// surface as ErrAborted as well; callers cannot distinguish forgery from
	// internal error, which is intentional (avoids oracle leakage).
	ErrAborted ErrorCode = -11

	// ErrBufferTooSmall indicates an undersized output buffer. This is the
	// only recoverable error: the operation reports the minimum required size
	// and can be retried with a buffer of at least that size.
	ErrBufferTooSmall ErrorCode = -12

	// ErrInsufficientSpace indicates allocation failure or input exceeding
	// the fixed transport buffer (DataportSize).
	ErrInsufficientSpace ErrorCode = -13

	// ErrOverflowDetected indicates an arithmetic or counter overflow.
	ErrOverflowDetected ErrorCode = -14

	// ErrConnectionClosed indicates that the peer closed the underlying
	// transport during an operation.
	ErrConnectionClosed ErrorCode = -15

	// ErrOutOfBounds indicates an operation that violated boundaries.
	ErrOutOfBounds ErrorCode = -16
)

var errorCodeNames = map[ErrorCode]string{
	Success:              "success",
	ErrGeneric:           "generic error",
	ErrNotImplemented:    "not implemented",
	ErrNotSupported:      "not supported",
	ErrInvalidState:      "invalid state",
	ErrInvalidParameter:  "invalid parameter",
	ErrInvalidName:       "invalid name",
	ErrInvalidHandle:     "invalid handle",
	ErrNotFound:          "not found",
	ErrAccessDenied:      "access denied",
	ErrOperationDenied:   "operation denied",
	ErrAborted:           "aborted",
	ErrBufferTooSmall:    "buffer too small",
	ErrInsufficientSpace: "insufficient space",
	ErrOverflowDetected:  "overflow detected",
	ErrConnectionClosed:  "connection closed",
	ErrOutOfBounds:       "out of bounds",
}

func (e ErrorCode) Error() string {
	if name, ok := errorCodeNames[e]; ok {
		return "seos: " + name
	}
	return fmt.Sprintf("seos: unknown error code %d", int32(e))
}

// Code returns the wire value of the error code.
func (e ErrorCode) Code() int32 {
	return int32(e)
}

// errorCode extracts the wire-stable ErrorCode from any error returned by
// this package. Wrapped errors are unwrapped; errors from outside the closed
// enumeration map to ErrGeneric.
func errorCode(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var code ErrorCode
	if errors.As(err, &code) {
		return code
	}
	return ErrGeneric
}

// decodeErrorCode is the inverse of errorCode for the RPC response path:
// Success becomes a nil error, everything else the corresponding sentinel.
func decodeErrorCode(code int32) error {
	if code == 0 {
		return nil
	}
	ec := ErrorCode(code)
	if _, ok := errorCodeNames[ec]; !ok {
		return ErrGeneric
	}
	return ec
}

// IsRecoverable returns true if the operation that produced err may be
// retried on the same object. Only buffer sizing errors are recoverable; all
// other error kinds are terminal for that call and the object should be freed
// and recreated.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrBufferTooSmall)
}

// HandleError represents an error related to an object handle, carrying the
// kind of object for debugging and tracing.
type HandleError struct {
	Kind      string // Object kind (e.g. "key", "digest", "cipher")
	Operation string // What operation failed
	Err       error  // Underlying error
}

func (e *HandleError) Error() string {
	return fmt.Sprintf("seos: %s %s failed: %v", e.Kind, e.Operation, e.Err)
}

func (e *HandleError) Unwrap() error {
	return e.Err
}

// newHandleError wraps an underlying error with object kind and operation
// context. The wire-stable code of err remains visible to errors.Is().
func newHandleError(kind, operation string, err error) error {
	return &HandleError{
		Kind:      kind,
		Operation: operation,
		Err:       err,
	}
}

// TransportError represents an error of the RPC transport below the Crypto
// or TLS API, e.g. a truncated response frame.
type TransportError struct {
	Op  string // Transport operation (e.g. "call", "decode")
	Err error  // Underlying error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("seos: rpc transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
