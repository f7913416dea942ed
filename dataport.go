package go_seos

import (
	"sync"
)

// dataportFrameMax is the size of the shared marshalling region: one payload
// page plus headroom for the call header (opcode, handles, lengths).
const dataportFrameMax = DataportSize + 128

// Dataport models the fixed-size shared region and signalling between an RPC
// client and server pair. One side issues calls, the other serves them; a
// single request is in flight at a time, matching the rendezvous semantics
// of the underlying platform.
//
// Both ends may run in the same process (tests, co-located components) or
// the channels can be bridged over any reliable transport.
type Dataport struct {
	req  chan []byte
	resp chan []byte
	done chan struct{}
	once sync.Once
}

// NewDataport creates a connected dataport. Hand the same value to the
// client and server side.
func NewDataport() *Dataport {
	return &Dataport{
		req:  make(chan []byte),
		resp: make(chan []byte),
		done: make(chan struct{}),
	}
}

// Call sends a request frame and blocks for the response. Client side only.
func (d *Dataport) Call(frame []byte) ([]byte, error) {
	if len(frame) > dataportFrameMax {
		return nil, &TransportError{Op: "call", Err: ErrInsufficientSpace}
	}
	select {
	case d.req <- frame:
	case <-d.done:
		return nil, &TransportError{Op: "call", Err: ErrConnectionClosed}
	}
	select {
	case resp := <-d.resp:
		return resp, nil
	case <-d.done:
		return nil, &TransportError{Op: "call", Err: ErrConnectionClosed}
	}
}

// Next blocks for the next request frame. Server side only.
func (d *Dataport) Next() ([]byte, error) {
	select {
	case frame := <-d.req:
		return frame, nil
	case <-d.done:
		return nil, &TransportError{Op: "recv", Err: ErrConnectionClosed}
	}
}

// Reply delivers the response to the pending Call. Server side only.
func (d *Dataport) Reply(frame []byte) error {
	if len(frame) > dataportFrameMax {
		return &TransportError{Op: "reply", Err: ErrInsufficientSpace}
	}
	select {
	case d.resp <- frame:
		return nil
	case <-d.done:
		return &TransportError{Op: "reply", Err: ErrConnectionClosed}
	}
}

// Close tears the pair down; blocked and future calls on either side fail
// with ErrConnectionClosed.
func (d *Dataport) Close() {
	d.once.Do(func() {
		close(d.done)
	})
}
