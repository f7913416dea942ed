package go_seos

import (
	"sync"
)

// rpcClient is the remote execution backend: every impl method marshals its
// arguments into a dataport frame and decodes the server's response. Handles
// returned by the server identify objects in the server's store and pass
// through unchanged.
//
// The call mutex keeps a single request in flight per dataport, which the
// transport requires.
type rpcClient struct {
	mu      sync.Mutex
	dp      *Dataport
	metrics MetricsCollector
}

func newRPCClient(dp *Dataport, metrics MetricsCollector) (*rpcClient, error) {
	if dp == nil {
		return nil, ErrInvalidParameter
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &rpcClient{dp: dp, metrics: metrics}, nil
}

// roundTrip performs one dataport exchange and returns the response code and
// the stream positioned after it.
func (c *rpcClient) roundTrip(op rpcOp, build func(*Stream) error) (int32, *Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// request frames can carry raw key material (key import/export),
	// so every frame is wiped before going back to the pool
	req := newStreamPooled(512)
	defer releaseStreamWiped(req)
	if err := req.WriteUint32(uint32(op)); err != nil {
		return 0, nil, &TransportError{Op: "encode", Err: err}
	}
	if build != nil {
		if err := build(req); err != nil {
			return 0, nil, err
		}
	}

	c.metrics.AddRPCBytes(uint64(req.Len()), 0)
	respBytes, err := c.dp.Call(req.Bytes())
	if err != nil {
		return 0, nil, err
	}
	c.metrics.AddRPCBytes(0, uint64(len(respBytes)))

	resp := NewStream(respBytes)
	code, err := resp.ReadInt32()
	if err != nil {
		return 0, nil, &TransportError{Op: "decode", Err: err}
	}
	return code, resp, nil
}

// call performs one round trip. build writes the arguments after the opcode;
// parse (optional) consumes the response payload and only runs on success.
func (c *rpcClient) call(op rpcOp, build func(*Stream) error, parse func(*Stream) error) error {
	code, resp, err := c.roundTrip(op, build)
	if err != nil {
		return err
	}
	if code == 0 && parse != nil {
		if err := parse(resp); err != nil {
			return err
		}
	}
	return decodeErrorCode(code)
}

// callBuffered handles operations under the buffer negotiation protocol: the
// client ships the destination capacity, the server ships back the count and
// (on success) the bytes. The count is valid on ErrBufferTooSmall too, where
// it carries the required size.
func (c *rpcClient) callBuffered(op rpcOp, dst []byte, build func(*Stream) error) (int, error) {
	code, resp, err := c.roundTrip(op, func(s *Stream) error {
		if build != nil {
			if err := build(s); err != nil {
				return err
			}
		}
		return s.WriteUint32(uint32(len(dst)))
	})
	if err != nil {
		return 0, err
	}
	count, err := resp.ReadUint32()
	if err != nil {
		return 0, &TransportError{Op: "decode", Err: err}
	}
	if code == 0 {
		payload, err := resp.ReadLenPrefixedBytes()
		if err != nil {
			return 0, &TransportError{Op: "decode", Err: err}
		}
		copy(dst, payload)
	}
	return int(count), decodeErrorCode(code)
}

// callHandle handles operations that mint a new object handle.
func (c *rpcClient) callHandle(op rpcOp, build func(*Stream) error) (Handle, error) {
	var h Handle
	err := c.call(op, build, func(s *Stream) error {
		raw, err := s.ReadUint64()
		if err != nil {
			return &TransportError{Op: "decode", Err: err}
		}
		h = Handle(raw)
		return nil
	})
	if err != nil {
		return nilHandle, err
	}
	return h, nil
}

// RNG

func (c *rpcClient) RngGetBytes(flags RngFlags, dst []byte) (int, error) {
	return c.callBuffered(opRngGetBytes, dst, func(s *Stream) error {
		return s.WriteUint32(uint32(flags))
	})
}

func (c *rpcClient) RngReseed(seed []byte) error {
	return c.call(opRngReseed, func(s *Stream) error {
		return s.WriteLenPrefixedBytes(seed)
	}, nil)
}

// Keys

func (c *rpcClient) KeyGenerate(spec *KeySpec) (Handle, error) {
	if spec == nil {
		return nilHandle, ErrInvalidParameter
	}
	return c.callHandle(opKeyGenerate, func(s *Stream) error {
		return writeKeySpec(s, spec)
	})
}

func (c *rpcClient) KeyImport(data KeyData) (Handle, error) {
	if data == nil {
		return nilHandle, ErrInvalidParameter
	}
	return c.callHandle(opKeyImport, func(s *Stream) error {
		return writeKeyData(s, data)
	})
}

func (c *rpcClient) KeyMakePublic(prv Handle, attribs KeyAttribs) (Handle, error) {
	return c.callHandle(opKeyMakePublic, func(s *Stream) error {
		if err := s.WriteUint64(uint64(prv)); err != nil {
			return err
		}
		return writeKeyAttribs(s, attribs)
	})
}

func (c *rpcClient) KeyExport(h Handle) (KeyData, error) {
	var data KeyData
	err := c.call(opKeyExport,
		func(s *Stream) error {
			return s.WriteUint64(uint64(h))
		},
		func(s *Stream) error {
			if s.Len() == 0 {
				return nil
			}
			kd, err := readKeyData(s)
			if err != nil {
				return &TransportError{Op: "decode", Err: err}
			}
			data = kd
			return nil
		})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *rpcClient) KeyGetParams(h Handle, dst []byte) (int, error) {
	return c.callBuffered(opKeyGetParams, dst, func(s *Stream) error {
		return s.WriteUint64(uint64(h))
	})
}

func (c *rpcClient) KeyLoadParams(name KeyParamName, dst []byte) (int, error) {
	return c.callBuffered(opKeyLoadParams, dst, func(s *Stream) error {
		return s.WriteInt32(int32(name))
	})
}

func (c *rpcClient) KeyGetAttribs(h Handle) (KeyAttribs, error) {
	var attribs KeyAttribs
	err := c.call(opKeyGetAttribs,
		func(s *Stream) error {
			return s.WriteUint64(uint64(h))
		},
		func(s *Stream) error {
			if s.Len() == 0 {
				return nil
			}
			a, err := readKeyAttribs(s)
			if err != nil {
				return &TransportError{Op: "decode", Err: err}
			}
			attribs = a
			return nil
		})
	return attribs, err
}

func (c *rpcClient) KeyFree(h Handle) error {
	return c.callFree(opKeyFree, h)
}

func (c *rpcClient) callFree(op rpcOp, h Handle) error {
	return c.call(op, func(s *Stream) error {
		return s.WriteUint64(uint64(h))
	}, nil)
}

// Digests

func (c *rpcClient) DigestCreate(alg DigestAlgorithm) (Handle, error) {
	return c.callHandle(opDigestCreate, func(s *Stream) error {
		return s.WriteInt32(int32(alg))
	})
}

func (c *rpcClient) DigestClone(src Handle) (Handle, error) {
	return c.callHandle(opDigestClone, func(s *Stream) error {
		return s.WriteUint64(uint64(src))
	})
}

func (c *rpcClient) DigestProcess(h Handle, data []byte) error {
	return c.call(opDigestProcess, func(s *Stream) error {
		if err := s.WriteUint64(uint64(h)); err != nil {
			return err
		}
		return s.WriteLenPrefixedBytes(data)
	}, nil)
}

func (c *rpcClient) DigestFinalize(h Handle, dst []byte) (int, error) {
	return c.callBuffered(opDigestFinalize, dst, func(s *Stream) error {
		return s.WriteUint64(uint64(h))
	})
}

func (c *rpcClient) DigestFree(h Handle) error {
	return c.callFree(opDigestFree, h)
}

// MACs

func (c *rpcClient) MacCreate(alg MacAlgorithm, key Handle) (Handle, error) {
	return c.callHandle(opMacCreate, func(s *Stream) error {
		if err := s.WriteInt32(int32(alg)); err != nil {
			return err
		}
		return s.WriteUint64(uint64(key))
	})
}

func (c *rpcClient) MacProcess(h Handle, data []byte) error {
	return c.call(opMacProcess, func(s *Stream) error {
		if err := s.WriteUint64(uint64(h)); err != nil {
			return err
		}
		return s.WriteLenPrefixedBytes(data)
	}, nil)
}

func (c *rpcClient) MacFinalize(h Handle, dst []byte) (int, error) {
	return c.callBuffered(opMacFinalize, dst, func(s *Stream) error {
		return s.WriteUint64(uint64(h))
	})
}

func (c *rpcClient) MacFree(h Handle) error {
	return c.callFree(opMacFree, h)
}

// Ciphers

func (c *rpcClient) CipherCreate(alg CipherAlgorithm, key Handle, iv []byte) (Handle, error) {
	return c.callHandle(opCipherCreate, func(s *Stream) error {
		if err := s.WriteInt32(int32(alg)); err != nil {
			return err
		}
		if err := s.WriteUint64(uint64(key)); err != nil {
			return err
		}
		return s.WriteLenPrefixedBytes(iv)
	})
}

func (c *rpcClient) CipherStart(h Handle, ad []byte) error {
	return c.call(opCipherStart, func(s *Stream) error {
		if err := s.WriteUint64(uint64(h)); err != nil {
			return err
		}
		return s.WriteLenPrefixedBytes(ad)
	}, nil)
}

func (c *rpcClient) CipherProcess(h Handle, input, dst []byte) (int, error) {
	return c.callBuffered(opCipherProcess, dst, func(s *Stream) error {
		if err := s.WriteUint64(uint64(h)); err != nil {
			return err
		}
		return s.WriteLenPrefixedBytes(input)
	})
}

func (c *rpcClient) CipherFinalize(h Handle, buf []byte) (int, error) {
	// finalize is in/out: the tag buffer content matters for decryption, so
	// the full buffer crosses the wire in both directions
	code, resp, err := c.roundTrip(opCipherFinalize, func(s *Stream) error {
		if err := s.WriteUint64(uint64(h)); err != nil {
			return err
		}
		return s.WriteLenPrefixedBytes(buf)
	})
	if err != nil {
		return 0, err
	}
	count, err := resp.ReadUint32()
	if err != nil {
		return 0, &TransportError{Op: "decode", Err: err}
	}
	if code == 0 {
		payload, err := resp.ReadLenPrefixedBytes()
		if err != nil {
			return 0, &TransportError{Op: "decode", Err: err}
		}
		copy(buf, payload)
	}
	return int(count), decodeErrorCode(code)
}

func (c *rpcClient) CipherFree(h Handle) error {
	return c.callFree(opCipherFree, h)
}

// Signatures

func (c *rpcClient) SignatureCreate(alg SignatureAlgorithm, digest DigestAlgorithm, prv, pub Handle) (Handle, error) {
	return c.callHandle(opSignatureCreate, func(s *Stream) error {
		if err := s.WriteInt32(int32(alg)); err != nil {
			return err
		}
		if err := s.WriteInt32(int32(digest)); err != nil {
			return err
		}
		if err := s.WriteUint64(uint64(prv)); err != nil {
			return err
		}
		return s.WriteUint64(uint64(pub))
	})
}

func (c *rpcClient) SignatureSign(h Handle, hash, dst []byte) (int, error) {
	return c.callBuffered(opSignatureSign, dst, func(s *Stream) error {
		if err := s.WriteUint64(uint64(h)); err != nil {
			return err
		}
		return s.WriteLenPrefixedBytes(hash)
	})
}

func (c *rpcClient) SignatureVerify(h Handle, hash, signature []byte) error {
	return c.call(opSignatureVerify, func(s *Stream) error {
		if err := s.WriteUint64(uint64(h)); err != nil {
			return err
		}
		if err := s.WriteLenPrefixedBytes(hash); err != nil {
			return err
		}
		return s.WriteLenPrefixedBytes(signature)
	}, nil)
}

func (c *rpcClient) SignatureFree(h Handle) error {
	return c.callFree(opSignatureFree, h)
}

// Agreements

func (c *rpcClient) AgreementCreate(alg AgreementAlgorithm, prv Handle) (Handle, error) {
	return c.callHandle(opAgreementCreate, func(s *Stream) error {
		if err := s.WriteInt32(int32(alg)); err != nil {
			return err
		}
		return s.WriteUint64(uint64(prv))
	})
}

func (c *rpcClient) AgreementAgree(h Handle, pub Handle, dst []byte) (int, error) {
	return c.callBuffered(opAgreementAgree, dst, func(s *Stream) error {
		if err := s.WriteUint64(uint64(h)); err != nil {
			return err
		}
		return s.WriteUint64(uint64(pub))
	})
}

func (c *rpcClient) AgreementFree(h Handle) error {
	return c.callFree(opAgreementFree, h)
}
