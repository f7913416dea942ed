package go_seos

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestErrorCodeValues pins the wire values of the error enumeration. These
// cross the RPC boundary and must never be renumbered.
func TestErrorCodeValues(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int32
	}{
		{Success, 0},
		{ErrGeneric, -1},
		{ErrNotImplemented, -2},
		{ErrNotSupported, -3},
		{ErrInvalidState, -4},
		{ErrInvalidParameter, -5},
		{ErrInvalidName, -6},
		{ErrInvalidHandle, -7},
		{ErrNotFound, -8},
		{ErrAccessDenied, -9},
		{ErrOperationDenied, -10},
		{ErrAborted, -11},
		{ErrBufferTooSmall, -12},
		{ErrInsufficientSpace, -13},
		{ErrOverflowDetected, -14},
		{ErrConnectionClosed, -15},
		{ErrOutOfBounds, -16},
	}
	for _, tt := range tests {
		if tt.code.Code() != tt.want {
			t.Errorf("%v: Code() = %d, want %d", tt.code, tt.code.Code(), tt.want)
		}
		if tt.code.Error() == "" || strings.Contains(tt.code.Error(), "unknown") {
			t.Errorf("code %d has no name", tt.want)
		}
	}
}

// TestErrorCodeRoundTrip verifies the encode/decode pair used by the RPC
// layer.
func TestErrorCodeRoundTrip(t *testing.T) {
	if err := decodeErrorCode(0); err != nil {
		t.Errorf("decode 0: got %v, want nil", err)
	}
	if err := decodeErrorCode(ErrAborted.Code()); !errors.Is(err, ErrAborted) {
		t.Errorf("decode aborted: got %v", err)
	}
	if err := decodeErrorCode(-9999); !errors.Is(err, ErrGeneric) {
		t.Errorf("decode unknown: got %v, want ErrGeneric", err)
	}

	if errorCode(nil) != Success {
		t.Error("errorCode(nil) != Success")
	}
	if errorCode(ErrNotFound) != ErrNotFound {
		t.Error("errorCode does not pass a bare code through")
	}
	if errorCode(errors.New("other")) != ErrGeneric {
		t.Error("foreign error must map to ErrGeneric")
	}
}

// TestErrorWrapping verifies that the typed wrappers keep the wire code
// reachable for errors.Is and errorCode.
func TestErrorWrapping(t *testing.T) {
	he := newHandleError("key", "lookup", ErrInvalidHandle)
	if !errors.Is(he, ErrInvalidHandle) {
		t.Error("HandleError does not unwrap to its code")
	}
	if errorCode(he) != ErrInvalidHandle {
		t.Errorf("errorCode(HandleError) = %v", errorCode(he))
	}
	if !strings.Contains(he.Error(), "key") || !strings.Contains(he.Error(), "lookup") {
		t.Errorf("HandleError message lacks context: %q", he.Error())
	}

	te := &TransportError{Op: "call", Err: ErrConnectionClosed}
	if !errors.Is(te, ErrConnectionClosed) {
		t.Error("TransportError does not unwrap to its code")
	}

	wrapped := fmt.Errorf("while exporting: %w", ErrOperationDenied)
	if errorCode(wrapped) != ErrOperationDenied {
		t.Error("fmt wrapping hides the code")
	}
}

// TestIsRecoverable verifies that only buffer sizing errors are retryable.
func TestIsRecoverable(t *testing.T) {
	if !IsRecoverable(ErrBufferTooSmall) {
		t.Error("ErrBufferTooSmall must be recoverable")
	}
	if !IsRecoverable(newHandleError("digest", "finalize", ErrBufferTooSmall)) {
		t.Error("wrapped ErrBufferTooSmall must be recoverable")
	}
	for _, err := range []error{ErrGeneric, ErrAborted, ErrInvalidHandle, ErrInsufficientSpace, nil} {
		if IsRecoverable(err) {
			t.Errorf("%v must not be recoverable", err)
		}
	}
}
