package go_seos

import (
	"errors"
)

// RPCServer dispatches dataport call frames to a local library instance. It
// is the trust boundary of the stack: policy that depends on "does the data
// leave this component" (key export) is enforced here, not in the library.
type RPCServer struct {
	dp      *Dataport
	lib     *libImpl
	metrics MetricsCollector
}

func newRPCServer(dp *Dataport, lib *libImpl, metrics MetricsCollector) (*RPCServer, error) {
	if dp == nil || lib == nil {
		return nil, ErrInvalidParameter
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &RPCServer{dp: dp, lib: lib, metrics: metrics}, nil
}

// Serve processes requests until the dataport closes. Run it on its own
// goroutine (or a dedicated component thread).
func (srv *RPCServer) Serve() error {
	for {
		frame, err := srv.dp.Next()
		if err != nil {
			if errors.Is(err, ErrConnectionClosed) {
				return nil
			}
			return err
		}
		srv.metrics.AddRPCBytes(0, uint64(len(frame)))
		resp := srv.dispatch(NewStream(frame))
		srv.metrics.AddRPCBytes(uint64(len(resp)), 0)
		if code, err := NewStream(resp).ReadInt32(); err == nil && ErrorCode(code) != Success {
			srv.metrics.IncrementError(ErrorCode(code))
		}
		if err := srv.dp.Reply(resp); err != nil {
			if errors.Is(err, ErrConnectionClosed) {
				return nil
			}
			return err
		}
	}
}

// respond builds a response frame. On success, payload (optional) appends
// the operation output after the code.
func respond(err error, payload func(*Stream) error) []byte {
	s := NewStream(nil)
	_ = s.WriteInt32(errorCode(err).Code())
	if err == nil && payload != nil {
		if perr := payload(s); perr != nil {
			// encoding the output failed; report a fresh aborted frame
			s = NewStream(nil)
			_ = s.WriteInt32(ErrAborted.Code())
		}
	}
	return s.Bytes()
}

// respondBuffered builds a response under the buffer negotiation protocol:
// the count is always present, the bytes only on success.
func respondBuffered(n int, err error, out []byte) []byte {
	s := NewStream(nil)
	_ = s.WriteInt32(errorCode(err).Code())
	_ = s.WriteUint32(uint32(n))
	if err == nil {
		if werr := s.WriteLenPrefixedBytes(out[:n]); werr != nil {
			s = NewStream(nil)
			_ = s.WriteInt32(ErrAborted.Code())
			_ = s.WriteUint32(0)
		}
	}
	return s.Bytes()
}

func respondHandle(h Handle, err error) []byte {
	return respond(err, func(s *Stream) error {
		return s.WriteUint64(uint64(h))
	})
}

func (srv *RPCServer) dispatch(req *Stream) []byte {
	op, err := req.ReadUint32()
	if err != nil {
		return respond(&TransportError{Op: "decode", Err: ErrInvalidParameter}, nil)
	}

	switch rpcOp(op) {
	case opRngGetBytes:
		return srv.handleRngGetBytes(req)
	case opRngReseed:
		return srv.handleRngReseed(req)
	case opKeyGenerate:
		return srv.handleKeyGenerate(req)
	case opKeyImport:
		return srv.handleKeyImport(req)
	case opKeyMakePublic:
		return srv.handleKeyMakePublic(req)
	case opKeyExport:
		return srv.handleKeyExport(req)
	case opKeyGetParams:
		return srv.handleKeyGetParams(req)
	case opKeyLoadParams:
		return srv.handleKeyLoadParams(req)
	case opKeyGetAttribs:
		return srv.handleKeyGetAttribs(req)
	case opKeyFree:
		return srv.handleFree(req, srv.lib.KeyFree)
	case opDigestCreate:
		return srv.handleDigestCreate(req)
	case opDigestClone:
		return srv.handleDigestClone(req)
	case opDigestProcess:
		return srv.handleProcess(req, srv.lib.DigestProcess)
	case opDigestFinalize:
		return srv.handleFinalize(req, srv.lib.DigestFinalize)
	case opDigestFree:
		return srv.handleFree(req, srv.lib.DigestFree)
	case opMacCreate:
		return srv.handleMacCreate(req)
	case opMacProcess:
		return srv.handleProcess(req, srv.lib.MacProcess)
	case opMacFinalize:
		return srv.handleFinalize(req, srv.lib.MacFinalize)
	case opMacFree:
		return srv.handleFree(req, srv.lib.MacFree)
	case opCipherCreate:
		return srv.handleCipherCreate(req)
	case opCipherStart:
		return srv.handleProcess(req, srv.lib.CipherStart)
	case opCipherProcess:
		return srv.handleCipherProcess(req)
	case opCipherFinalize:
		return srv.handleCipherFinalize(req)
	case opCipherFree:
		return srv.handleFree(req, srv.lib.CipherFree)
	case opSignatureCreate:
		return srv.handleSignatureCreate(req)
	case opSignatureSign:
		return srv.handleSignatureSign(req)
	case opSignatureVerify:
		return srv.handleSignatureVerify(req)
	case opSignatureFree:
		return srv.handleFree(req, srv.lib.SignatureFree)
	case opAgreementCreate:
		return srv.handleAgreementCreate(req)
	case opAgreementAgree:
		return srv.handleAgreementAgree(req)
	case opAgreementFree:
		return srv.handleFree(req, srv.lib.AgreementFree)
	}
	return respond(ErrNotImplemented, nil)
}

func (srv *RPCServer) handleRngGetBytes(req *Stream) []byte {
	flags, err1 := req.ReadUint32()
	dstLen, err2 := req.ReadUint32()
	if err1 != nil || err2 != nil {
		return respondBuffered(0, ErrInvalidParameter, nil)
	}
	if dstLen > DataportSize {
		return respondBuffered(0, ErrInsufficientSpace, nil)
	}
	dst := make([]byte, dstLen)
	n, err := srv.lib.RngGetBytes(RngFlags(flags), dst)
	return respondBuffered(n, err, dst)
}

func (srv *RPCServer) handleRngReseed(req *Stream) []byte {
	seed, err := req.ReadLenPrefixedBytes()
	if err != nil {
		return respond(ErrInvalidParameter, nil)
	}
	return respond(srv.lib.RngReseed(seed), nil)
}

func (srv *RPCServer) handleKeyGenerate(req *Stream) []byte {
	spec, err := readKeySpec(req)
	if err != nil {
		return respond(ErrInvalidParameter, nil)
	}
	h, err := srv.lib.KeyGenerate(spec)
	return respondHandle(h, err)
}

func (srv *RPCServer) handleKeyImport(req *Stream) []byte {
	data, err := readKeyData(req)
	if err != nil || data == nil {
		return respond(ErrInvalidParameter, nil)
	}
	h, err := srv.lib.KeyImport(data)
	return respondHandle(h, err)
}

func (srv *RPCServer) handleKeyMakePublic(req *Stream) []byte {
	raw, err1 := req.ReadUint64()
	attribs, err2 := readKeyAttribs(req)
	if err1 != nil || err2 != nil {
		return respond(ErrInvalidParameter, nil)
	}
	h, err := srv.lib.KeyMakePublic(Handle(raw), attribs)
	return respondHandle(h, err)
}

// handleKeyExport refuses to ship material of non-exportable keys across
// the dataport.
func (srv *RPCServer) handleKeyExport(req *Stream) []byte {
	raw, err := req.ReadUint64()
	if err != nil {
		return respond(ErrInvalidParameter, nil)
	}
	attribs, err := srv.lib.KeyGetAttribs(Handle(raw))
	if err != nil {
		return respond(err, nil)
	}
	if !attribs.Exportable {
		return respond(ErrOperationDenied, nil)
	}
	data, err := srv.lib.KeyExport(Handle(raw))
	return respond(err, func(s *Stream) error {
		return writeKeyData(s, data)
	})
}

func (srv *RPCServer) handleKeyGetParams(req *Stream) []byte {
	raw, err1 := req.ReadUint64()
	dstLen, err2 := req.ReadUint32()
	if err1 != nil || err2 != nil {
		return respondBuffered(0, ErrInvalidParameter, nil)
	}
	if dstLen > DataportSize {
		return respondBuffered(0, ErrInsufficientSpace, nil)
	}
	dst := make([]byte, dstLen)
	n, err := srv.lib.KeyGetParams(Handle(raw), dst)
	return respondBuffered(n, err, dst)
}

func (srv *RPCServer) handleKeyLoadParams(req *Stream) []byte {
	name, err1 := req.ReadInt32()
	dstLen, err2 := req.ReadUint32()
	if err1 != nil || err2 != nil {
		return respondBuffered(0, ErrInvalidParameter, nil)
	}
	if dstLen > DataportSize {
		return respondBuffered(0, ErrInsufficientSpace, nil)
	}
	dst := make([]byte, dstLen)
	n, err := srv.lib.KeyLoadParams(KeyParamName(name), dst)
	return respondBuffered(n, err, dst)
}

func (srv *RPCServer) handleKeyGetAttribs(req *Stream) []byte {
	raw, err := req.ReadUint64()
	if err != nil {
		return respond(ErrInvalidParameter, nil)
	}
	attribs, err := srv.lib.KeyGetAttribs(Handle(raw))
	return respond(err, func(s *Stream) error {
		return writeKeyAttribs(s, attribs)
	})
}

func (srv *RPCServer) handleFree(req *Stream, free func(Handle) error) []byte {
	raw, err := req.ReadUint64()
	if err != nil {
		return respond(ErrInvalidParameter, nil)
	}
	return respond(free(Handle(raw)), nil)
}

func (srv *RPCServer) handleDigestCreate(req *Stream) []byte {
	alg, err := req.ReadInt32()
	if err != nil {
		return respond(ErrInvalidParameter, nil)
	}
	h, err := srv.lib.DigestCreate(DigestAlgorithm(alg))
	return respondHandle(h, err)
}

func (srv *RPCServer) handleDigestClone(req *Stream) []byte {
	raw, err := req.ReadUint64()
	if err != nil {
		return respond(ErrInvalidParameter, nil)
	}
	h, err := srv.lib.DigestClone(Handle(raw))
	return respondHandle(h, err)
}

// handleProcess covers all handle-plus-data operations with no output.
func (srv *RPCServer) handleProcess(req *Stream, process func(Handle, []byte) error) []byte {
	raw, err1 := req.ReadUint64()
	data, err2 := req.ReadLenPrefixedBytes()
	if err1 != nil || err2 != nil {
		return respond(ErrInvalidParameter, nil)
	}
	return respond(process(Handle(raw), data), nil)
}

// handleFinalize covers all handle-to-buffer operations.
func (srv *RPCServer) handleFinalize(req *Stream, finalize func(Handle, []byte) (int, error)) []byte {
	raw, err1 := req.ReadUint64()
	dstLen, err2 := req.ReadUint32()
	if err1 != nil || err2 != nil {
		return respondBuffered(0, ErrInvalidParameter, nil)
	}
	if dstLen > DataportSize {
		return respondBuffered(0, ErrInsufficientSpace, nil)
	}
	dst := make([]byte, dstLen)
	n, err := finalize(Handle(raw), dst)
	return respondBuffered(n, err, dst)
}

func (srv *RPCServer) handleMacCreate(req *Stream) []byte {
	alg, err1 := req.ReadInt32()
	key, err2 := req.ReadUint64()
	if err1 != nil || err2 != nil {
		return respond(ErrInvalidParameter, nil)
	}
	h, err := srv.lib.MacCreate(MacAlgorithm(alg), Handle(key))
	return respondHandle(h, err)
}

func (srv *RPCServer) handleCipherCreate(req *Stream) []byte {
	alg, err1 := req.ReadInt32()
	key, err2 := req.ReadUint64()
	iv, err3 := req.ReadLenPrefixedBytes()
	if err1 != nil || err2 != nil || err3 != nil {
		return respond(ErrInvalidParameter, nil)
	}
	h, err := srv.lib.CipherCreate(CipherAlgorithm(alg), Handle(key), iv)
	return respondHandle(h, err)
}

func (srv *RPCServer) handleCipherProcess(req *Stream) []byte {
	raw, err1 := req.ReadUint64()
	input, err2 := req.ReadLenPrefixedBytes()
	dstLen, err3 := req.ReadUint32()
	if err1 != nil || err2 != nil || err3 != nil {
		return respondBuffered(0, ErrInvalidParameter, nil)
	}
	if dstLen > DataportSize {
		return respondBuffered(0, ErrInsufficientSpace, nil)
	}
	dst := make([]byte, dstLen)
	n, err := srv.lib.CipherProcess(Handle(raw), input, dst)
	return respondBuffered(n, err, dst)
}

func (srv *RPCServer) handleCipherFinalize(req *Stream) []byte {
	raw, err1 := req.ReadUint64()
	buf, err2 := req.ReadLenPrefixedBytes()
	if err1 != nil || err2 != nil {
		return respondBuffered(0, ErrInvalidParameter, nil)
	}
	n, err := srv.lib.CipherFinalize(Handle(raw), buf)
	return respondBuffered(n, err, buf)
}

func (srv *RPCServer) handleSignatureCreate(req *Stream) []byte {
	alg, err1 := req.ReadInt32()
	digest, err2 := req.ReadInt32()
	prv, err3 := req.ReadUint64()
	pub, err4 := req.ReadUint64()
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return respond(ErrInvalidParameter, nil)
	}
	h, err := srv.lib.SignatureCreate(SignatureAlgorithm(alg), DigestAlgorithm(digest), Handle(prv), Handle(pub))
	return respondHandle(h, err)
}

func (srv *RPCServer) handleSignatureSign(req *Stream) []byte {
	raw, err1 := req.ReadUint64()
	hash, err2 := req.ReadLenPrefixedBytes()
	dstLen, err3 := req.ReadUint32()
	if err1 != nil || err2 != nil || err3 != nil {
		return respondBuffered(0, ErrInvalidParameter, nil)
	}
	if dstLen > DataportSize {
		return respondBuffered(0, ErrInsufficientSpace, nil)
	}
	dst := make([]byte, dstLen)
	n, err := srv.lib.SignatureSign(Handle(raw), hash, dst)
	return respondBuffered(n, err, dst)
}

func (srv *RPCServer) handleSignatureVerify(req *Stream) []byte {
	raw, err1 := req.ReadUint64()
	hash, err2 := req.ReadLenPrefixedBytes()
	sig, err3 := req.ReadLenPrefixedBytes()
	if err1 != nil || err2 != nil || err3 != nil {
		return respond(ErrInvalidParameter, nil)
	}
	return respond(srv.lib.SignatureVerify(Handle(raw), hash, sig), nil)
}

func (srv *RPCServer) handleAgreementCreate(req *Stream) []byte {
	alg, err1 := req.ReadInt32()
	prv, err2 := req.ReadUint64()
	if err1 != nil || err2 != nil {
		return respond(ErrInvalidParameter, nil)
	}
	h, err := srv.lib.AgreementCreate(AgreementAlgorithm(alg), Handle(prv))
	return respondHandle(h, err)
}

func (srv *RPCServer) handleAgreementAgree(req *Stream) []byte {
	raw, err1 := req.ReadUint64()
	pub, err2 := req.ReadUint64()
	dstLen, err3 := req.ReadUint32()
	if err1 != nil || err2 != nil || err3 != nil {
		return respondBuffered(0, ErrInvalidParameter, nil)
	}
	if dstLen > DataportSize {
		return respondBuffered(0, ErrInsufficientSpace, nil)
	}
	dst := make([]byte, dstLen)
	n, err := srv.lib.AgreementAgree(Handle(raw), Handle(pub), dst)
	return respondBuffered(n, err, dst)
}
