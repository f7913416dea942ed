package go_seos

import (
	"errors"
	"sync"
)

// tlsRPCClient forwards TLS session operations over a dataport to a session
// running inside another component.
type tlsRPCClient struct {
	mu sync.Mutex
	dp *Dataport
}

// NewTLSRPCClient creates a session proxy whose handshake, read, write and
// reset run in the remote component behind dp. The remote side runs a
// TLSRPCServer around a library-mode session.
func NewTLSRPCClient(dp *Dataport) (*TLSSession, error) {
	if dp == nil {
		return nil, ErrInvalidParameter
	}
	return &TLSSession{
		mode: tlsModeRPCClient,
		rpc:  &tlsRPCClient{dp: dp},
	}, nil
}

func (c *tlsRPCClient) roundTrip(op rpcOp, build func(*Stream) error) (int32, *Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := newStreamPooled(512)
	defer releaseStream(req)
	if err := req.WriteUint32(uint32(op)); err != nil {
		return 0, nil, &TransportError{Op: "encode", Err: err}
	}
	if build != nil {
		if err := build(req); err != nil {
			return 0, nil, err
		}
	}
	respBytes, err := c.dp.Call(req.Bytes())
	if err != nil {
		return 0, nil, err
	}
	resp := NewStream(respBytes)
	code, err := resp.ReadInt32()
	if err != nil {
		return 0, nil, &TransportError{Op: "decode", Err: err}
	}
	return code, resp, nil
}

func (c *tlsRPCClient) handshake() error {
	code, _, err := c.roundTrip(opTLSHandshake, nil)
	if err != nil {
		return err
	}
	return decodeErrorCode(code)
}

func (c *tlsRPCClient) write(data []byte) (int, error) {
	code, resp, err := c.roundTrip(opTLSWrite, func(s *Stream) error {
		return s.WriteLenPrefixedBytes(data)
	})
	if err != nil {
		return 0, err
	}
	if code != 0 {
		return 0, decodeErrorCode(code)
	}
	n, err := resp.ReadUint32()
	if err != nil {
		return 0, &TransportError{Op: "decode", Err: err}
	}
	return int(n), nil
}

func (c *tlsRPCClient) read(buf []byte) (int, error) {
	code, resp, err := c.roundTrip(opTLSRead, func(s *Stream) error {
		return s.WriteUint32(uint32(len(buf)))
	})
	if err != nil {
		return 0, err
	}
	if code != 0 {
		return 0, decodeErrorCode(code)
	}
	payload, err := resp.ReadLenPrefixedBytes()
	if err != nil {
		return 0, &TransportError{Op: "decode", Err: err}
	}
	return copy(buf, payload), nil
}

func (c *tlsRPCClient) reset() error {
	code, _, err := c.roundTrip(opTLSReset, nil)
	if err != nil {
		return err
	}
	return decodeErrorCode(code)
}

// TLSRPCServer exposes a library-mode session to a remote tlsRPCClient.
type TLSRPCServer struct {
	dp      *Dataport
	session *TLSSession
}

// NewTLSRPCServer wraps an existing library-mode session. Run Serve on its
// own goroutine.
func NewTLSRPCServer(dp *Dataport, session *TLSSession) (*TLSRPCServer, error) {
	if dp == nil || session == nil || session.mode != tlsModeLibrary {
		return nil, ErrInvalidParameter
	}
	return &TLSRPCServer{dp: dp, session: session}, nil
}

// Serve processes session calls until the dataport closes.
func (srv *TLSRPCServer) Serve() error {
	for {
		frame, err := srv.dp.Next()
		if err != nil {
			if errors.Is(err, ErrConnectionClosed) {
				return nil
			}
			return err
		}
		resp := srv.dispatch(NewStream(frame))
		if err := srv.dp.Reply(resp); err != nil {
			if errors.Is(err, ErrConnectionClosed) {
				return nil
			}
			return err
		}
	}
}

func (srv *TLSRPCServer) dispatch(req *Stream) []byte {
	op, err := req.ReadUint32()
	if err != nil {
		return respond(ErrInvalidParameter, nil)
	}
	switch rpcOp(op) {
	case opTLSHandshake:
		return respond(srv.session.Handshake(), nil)

	case opTLSWrite:
		data, err := req.ReadLenPrefixedBytes()
		if err != nil {
			return respond(ErrInvalidParameter, nil)
		}
		n, err := srv.session.Write(data)
		return respond(err, func(s *Stream) error {
			return s.WriteUint32(uint32(n))
		})

	case opTLSRead:
		bufLen, err := req.ReadUint32()
		if err != nil || bufLen > DataportSize {
			return respond(ErrInvalidParameter, nil)
		}
		buf := make([]byte, bufLen)
		n, err := srv.session.Read(buf)
		return respond(err, func(s *Stream) error {
			return s.WriteLenPrefixedBytes(buf[:n])
		})

	case opTLSReset:
		return respond(srv.session.Reset(), nil)
	}
	return respond(ErrNotImplemented, nil)
}
