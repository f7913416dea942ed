package go_seos

import (
	"bytes"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"time"
)

// libImpl is the in-process execution backend. It owns the object store, the
// DRBG and all key material of one instance.
type libImpl struct {
	store   *objectStore
	rng     *ctrDRBG
	metrics MetricsCollector
}

func newLibImpl(entropy EntropyFunc, metrics MetricsCollector) (*libImpl, error) {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	rng, err := newCTRDRBG(entropy)
	if err != nil {
		return nil, err
	}
	return &libImpl{
		store:   newObjectStore(),
		rng:     rng,
		metrics: metrics,
	}, nil
}

// teardown zeroizes every live object and invalidates all handles.
func (l *libImpl) teardown() {
	l.store.teardown(func(kind objectKind, obj interface{}) {
		switch o := obj.(type) {
		case *keyObject:
			o.zeroize()
		case *cipherObject:
			o.zeroize()
		}
	})
	l.rng.zeroize()
}

func (l *libImpl) track(kind objectKind) {
	l.metrics.SetLiveObjects(kind.String(), l.store.count(kind))
}

// observe records the latency of a compute-heavy operation, deferred at the
// top of the operation with its start time.
func (l *libImpl) observe(kind, op string, start time.Time) {
	l.metrics.RecordOperationLatency(kind, op, time.Since(start))
}

// RNG

func (l *libImpl) RngGetBytes(flags RngFlags, dst []byte) (int, error) {
	l.metrics.IncrementOperation("rng", "get-bytes")
	return l.rng.getBytes(flags, dst)
}

func (l *libImpl) RngReseed(seed []byte) error {
	l.metrics.IncrementOperation("rng", "reseed")
	return l.rng.reseed(seed)
}

// Keys

func (l *libImpl) KeyGenerate(spec *KeySpec) (Handle, error) {
	l.metrics.IncrementOperation("key", "generate")
	defer l.observe("key", "generate", time.Now())
	if spec == nil {
		return nilHandle, ErrInvalidParameter
	}
	data, err := l.generateKeyData(spec)
	if err != nil {
		return nilHandle, err
	}
	h := l.store.put(kindKey, &keyObject{data: data})
	l.track(kindKey)
	return h, nil
}

func (l *libImpl) generateKeyData(spec *KeySpec) (KeyData, error) {
	switch spec.Type {
	case KeyTypeAES:
		n, err := aesKeyBytes(spec.Bits)
		if err != nil {
			return nil, err
		}
		key := make([]byte, n)
		if err := l.rng.generate(key); err != nil {
			return nil, err
		}
		return &AESKeyData{Attribs: spec.Attribs, Key: key}, nil

	case KeyTypeMAC:
		if spec.Bits <= 0 || spec.Bits%8 != 0 {
			return nil, ErrInvalidParameter
		}
		n := spec.Bits / 8
		if n > MaxMACKeySize {
			return nil, ErrNotSupported
		}
		key := make([]byte, n)
		if err := l.rng.generate(key); err != nil {
			return nil, err
		}
		return &MACKeyData{Attribs: spec.Attribs, Key: key}, nil

	case KeyTypeRSAPrv:
		if spec.Bits%8 != 0 {
			return nil, ErrInvalidParameter
		}
		if spec.Bits < MinRSAKeySize*8 || spec.Bits > MaxRSAKeySize*8 {
			return nil, ErrNotSupported
		}
		prv, err := rsa.GenerateKey(l.rng, spec.Bits)
		if err != nil {
			return nil, ErrAborted
		}
		return &RSAPrvKeyData{
			Attribs: spec.Attribs,
			N:       prv.N.Bytes(),
			E:       big.NewInt(int64(prv.E)).Bytes(),
			D:       prv.D.Bytes(),
			P:       prv.Primes[0].Bytes(),
			Q:       prv.Primes[1].Bytes(),
		}, nil

	case KeyTypeDHPrv:
		return l.generateDHKey(spec)

	case KeyTypeSECP256R1Prv:
		prv, err := ecdh.P256().GenerateKey(l.rng)
		if err != nil {
			return nil, ErrAborted
		}
		return &SECP256R1PrvKeyData{Attribs: spec.Attribs, D: prv.Bytes()}, nil

	case KeyTypeECCPrv:
		if spec.ECCParams == nil {
			return nil, ErrInvalidParameter
		}
		curve, err := matchNamedCurve(spec.ECCParams)
		if err != nil {
			return nil, err
		}
		prv, err := ecdsa.GenerateKey(curve, l.rng)
		if err != nil {
			return nil, ErrAborted
		}
		return &ECCPrvKeyData{
			Attribs: spec.Attribs,
			Params:  spec.ECCParams.clone(),
			D:       prv.D.Bytes(),
		}, nil
	}
	return nil, ErrInvalidParameter
}

// aesKeyBytes maps a requested AES key length to bytes. Oversized requests
// are out of the supported range; everything else off the three valid
// lengths is a malformed request.
func aesKeyBytes(bits int) (int, error) {
	switch bits {
	case 128, 192, 256:
		return bits / 8, nil
	}
	if bits > MaxAESKeySize*8 {
		return 0, ErrNotSupported
	}
	return 0, ErrInvalidParameter
}

func (l *libImpl) generateDHKey(spec *KeySpec) (KeyData, error) {
	var params DHParams
	if spec.DHParams != nil {
		if err := spec.DHParams.validate(); err != nil {
			return nil, err
		}
		params = spec.DHParams.clone()
	} else {
		if spec.Bits%8 != 0 {
			return nil, ErrInvalidParameter
		}
		if spec.Bits < MinDHKeySize*8 || spec.Bits > MaxDHKeySize*8 {
			return nil, ErrNotSupported
		}
		p, err := rand.Prime(l.rng, spec.Bits)
		if err != nil {
			return nil, ErrAborted
		}
		params = DHParams{P: p.Bytes(), G: []byte{2}}
	}

	p := new(big.Int).SetBytes(params.P)
	// x in [2, p-2]
	limit := new(big.Int).Sub(p, big.NewInt(3))
	if limit.Sign() <= 0 {
		return nil, ErrInvalidParameter
	}
	x, err := rand.Int(l.rng, limit)
	if err != nil {
		return nil, ErrAborted
	}
	x.Add(x, big.NewInt(2))
	return &DHPrvKeyData{
		Attribs: spec.Attribs,
		Params:  params,
		Private: leftPad(x.Bytes(), len(params.P)),
	}, nil
}

// matchNamedCurve maps explicit curve parameters back to a stdlib curve by
// comparing the prime modulus. Curves the stdlib cannot operate on are
// rejected even when their parameters can be loaded.
func matchNamedCurve(params *ECCParams) (elliptic.Curve, error) {
	for _, curve := range []elliptic.Curve{elliptic.P224(), elliptic.P256()} {
		if bytes.Equal(params.P, curve.Params().P.Bytes()) {
			return curve, nil
		}
	}
	return nil, ErrNotSupported
}

func (l *libImpl) KeyImport(data KeyData) (Handle, error) {
	l.metrics.IncrementOperation("key", "import")
	if data == nil {
		return nilHandle, ErrInvalidParameter
	}
	if err := data.validate(); err != nil {
		return nilHandle, err
	}
	h := l.store.put(kindKey, &keyObject{data: data.clone()})
	l.track(kindKey)
	return h, nil
}

func (l *libImpl) KeyMakePublic(prv Handle, attribs KeyAttribs) (Handle, error) {
	l.metrics.IncrementOperation("key", "make-public")
	obj, err := l.store.get(prv, kindKey)
	if err != nil {
		return nilHandle, err
	}
	pub, err := derivePublicKeyData(obj.(*keyObject).data, attribs)
	if err != nil {
		return nilHandle, err
	}
	h := l.store.put(kindKey, &keyObject{data: pub})
	l.track(kindKey)
	return h, nil
}

func derivePublicKeyData(data KeyData, attribs KeyAttribs) (KeyData, error) {
	switch d := data.(type) {
	case *RSAPrvKeyData:
		return &RSAPubKeyData{Attribs: attribs, N: cloneBytes(d.N), E: cloneBytes(d.E)}, nil

	case *DHPrvKeyData:
		p := new(big.Int).SetBytes(d.Params.P)
		g := new(big.Int).SetBytes(d.Params.G)
		x := new(big.Int).SetBytes(d.Private)
		gx := new(big.Int).Exp(g, x, p)
		return &DHPubKeyData{
			Attribs: attribs,
			Params:  d.Params.clone(),
			Public:  leftPad(gx.Bytes(), len(d.Params.P)),
		}, nil

	case *SECP256R1PrvKeyData:
		prv, err := ecdh.P256().NewPrivateKey(d.D)
		if err != nil {
			return nil, ErrInvalidParameter
		}
		raw := prv.PublicKey().Bytes() // 0x04 || X || Y
		return &SECP256R1PubKeyData{
			Attribs: attribs,
			X:       cloneBytes(raw[1 : 1+ECCKeySize]),
			Y:       cloneBytes(raw[1+ECCKeySize:]),
		}, nil

	case *ECCPrvKeyData:
		curve, err := matchNamedCurve(&d.Params)
		if err != nil {
			return nil, err
		}
		x, y := curve.ScalarBaseMult(d.D)
		return &ECCPubKeyData{
			Attribs: attribs,
			Params:  d.Params.clone(),
			X:       x.Bytes(),
			Y:       y.Bytes(),
		}, nil

	case *AESKeyData, *MACKeyData:
		return nil, ErrNotSupported
	}
	return nil, ErrInvalidParameter
}

// KeyExport hands out a copy of the material. Policy checks against the
// Exportable attribute happen at the trust boundary (RPC server); inside one
// address space the caller could read the memory anyway.
func (l *libImpl) KeyExport(h Handle) (KeyData, error) {
	l.metrics.IncrementOperation("key", "export")
	obj, err := l.store.get(h, kindKey)
	if err != nil {
		return nil, err
	}
	return obj.(*keyObject).data.clone(), nil
}

func (l *libImpl) KeyGetParams(h Handle, dst []byte) (int, error) {
	l.metrics.IncrementOperation("key", "get-params")
	obj, err := l.store.get(h, kindKey)
	if err != nil {
		return 0, err
	}
	var blob []byte
	switch d := obj.(*keyObject).data.(type) {
	case *DHPrvKeyData:
		blob, err = encodeDHParams(&d.Params)
	case *DHPubKeyData:
		blob, err = encodeDHParams(&d.Params)
	case *ECCPrvKeyData:
		blob, err = encodeECCParams(&d.Params)
	case *ECCPubKeyData:
		blob, err = encodeECCParams(&d.Params)
	case *SECP256R1PrvKeyData, *SECP256R1PubKeyData:
		params, _ := namedCurveParams(KeyParamSECP256R1)
		blob, err = encodeECCParams(params)
	default:
		return 0, ErrNotSupported
	}
	if err != nil {
		return 0, err
	}
	return copyOut(dst, blob)
}

func (l *libImpl) KeyLoadParams(name KeyParamName, dst []byte) (int, error) {
	l.metrics.IncrementOperation("key", "load-params")
	params, err := namedCurveParams(name)
	if err != nil {
		return 0, err
	}
	blob, err := encodeECCParams(params)
	if err != nil {
		return 0, err
	}
	return copyOut(dst, blob)
}

func (l *libImpl) KeyGetAttribs(h Handle) (KeyAttribs, error) {
	obj, err := l.store.get(h, kindKey)
	if err != nil {
		return KeyAttribs{}, err
	}
	return obj.(*keyObject).data.KeyAttribs(), nil
}

func (l *libImpl) KeyFree(h Handle) error {
	l.metrics.IncrementOperation("key", "free")
	obj, err := l.store.remove(h, kindKey)
	if err != nil {
		return err
	}
	obj.(*keyObject).zeroize()
	l.track(kindKey)
	return nil
}

// Digests

func (l *libImpl) DigestCreate(alg DigestAlgorithm) (Handle, error) {
	l.metrics.IncrementOperation("digest", "create")
	obj, err := newDigestObject(alg)
	if err != nil {
		return nilHandle, err
	}
	h := l.store.put(kindDigest, obj)
	l.track(kindDigest)
	return h, nil
}

func (l *libImpl) DigestClone(src Handle) (Handle, error) {
	l.metrics.IncrementOperation("digest", "clone")
	obj, err := l.store.get(src, kindDigest)
	if err != nil {
		return nilHandle, err
	}
	dup, err := cloneDigestObject(obj.(*digestObject))
	if err != nil {
		return nilHandle, err
	}
	h := l.store.put(kindDigest, dup)
	l.track(kindDigest)
	return h, nil
}

func (l *libImpl) DigestProcess(h Handle, data []byte) error {
	obj, err := l.store.get(h, kindDigest)
	if err != nil {
		return err
	}
	l.metrics.AddBytesProcessed(uint64(len(data)))
	return obj.(*digestObject).process(data)
}

func (l *libImpl) DigestFinalize(h Handle, dst []byte) (int, error) {
	defer l.observe("digest", "finalize", time.Now())
	obj, err := l.store.get(h, kindDigest)
	if err != nil {
		return 0, err
	}
	return obj.(*digestObject).finalize(dst)
}

func (l *libImpl) DigestFree(h Handle) error {
	_, err := l.store.remove(h, kindDigest)
	if err != nil {
		return err
	}
	l.track(kindDigest)
	return nil
}

// MACs

func (l *libImpl) MacCreate(alg MacAlgorithm, key Handle) (Handle, error) {
	l.metrics.IncrementOperation("mac", "create")
	keyObj, err := l.store.get(key, kindKey)
	if err != nil {
		return nilHandle, err
	}
	obj, err := newMacObject(alg, keyObj.(*keyObject))
	if err != nil {
		return nilHandle, err
	}
	h := l.store.put(kindMac, obj)
	l.track(kindMac)
	return h, nil
}

func (l *libImpl) MacProcess(h Handle, data []byte) error {
	obj, err := l.store.get(h, kindMac)
	if err != nil {
		return err
	}
	l.metrics.AddBytesProcessed(uint64(len(data)))
	return obj.(*macObject).process(data)
}

func (l *libImpl) MacFinalize(h Handle, dst []byte) (int, error) {
	defer l.observe("mac", "finalize", time.Now())
	obj, err := l.store.get(h, kindMac)
	if err != nil {
		return 0, err
	}
	return obj.(*macObject).finalize(dst)
}

func (l *libImpl) MacFree(h Handle) error {
	_, err := l.store.remove(h, kindMac)
	if err != nil {
		return err
	}
	l.track(kindMac)
	return nil
}

// Ciphers

func (l *libImpl) CipherCreate(alg CipherAlgorithm, key Handle, iv []byte) (Handle, error) {
	l.metrics.IncrementOperation("cipher", "create")
	keyObj, err := l.store.get(key, kindKey)
	if err != nil {
		return nilHandle, err
	}
	obj, err := newCipherObject(alg, keyObj.(*keyObject), iv, l.rng)
	if err != nil {
		return nilHandle, err
	}
	h := l.store.put(kindCipher, obj)
	l.track(kindCipher)
	return h, nil
}

func (l *libImpl) CipherStart(h Handle, ad []byte) error {
	obj, err := l.store.get(h, kindCipher)
	if err != nil {
		return err
	}
	return obj.(*cipherObject).start(ad)
}

func (l *libImpl) CipherProcess(h Handle, input, dst []byte) (int, error) {
	defer l.observe("cipher", "process", time.Now())
	obj, err := l.store.get(h, kindCipher)
	if err != nil {
		return 0, err
	}
	l.metrics.AddBytesProcessed(uint64(len(input)))
	return obj.(*cipherObject).process(input, dst)
}

func (l *libImpl) CipherFinalize(h Handle, buf []byte) (int, error) {
	obj, err := l.store.get(h, kindCipher)
	if err != nil {
		return 0, err
	}
	return obj.(*cipherObject).finalize(buf)
}

func (l *libImpl) CipherFree(h Handle) error {
	obj, err := l.store.remove(h, kindCipher)
	if err != nil {
		return err
	}
	obj.(*cipherObject).zeroize()
	l.track(kindCipher)
	return nil
}

// Signatures

func (l *libImpl) SignatureCreate(alg SignatureAlgorithm, digest DigestAlgorithm, prv, pub Handle) (Handle, error) {
	l.metrics.IncrementOperation("signature", "create")
	var prvKey, pubKey *keyObject
	if prv != nilHandle {
		obj, err := l.store.get(prv, kindKey)
		if err != nil {
			return nilHandle, err
		}
		prvKey = obj.(*keyObject)
	}
	if pub != nilHandle {
		obj, err := l.store.get(pub, kindKey)
		if err != nil {
			return nilHandle, err
		}
		pubKey = obj.(*keyObject)
	}
	obj, err := newSignatureObject(alg, digest, prvKey, pubKey, l.rng)
	if err != nil {
		return nilHandle, err
	}
	h := l.store.put(kindSignature, obj)
	l.track(kindSignature)
	return h, nil
}

func (l *libImpl) SignatureSign(h Handle, hash, dst []byte) (int, error) {
	defer l.observe("signature", "sign", time.Now())
	obj, err := l.store.get(h, kindSignature)
	if err != nil {
		return 0, err
	}
	return obj.(*signatureObject).sign(hash, dst)
}

func (l *libImpl) SignatureVerify(h Handle, hash, signature []byte) error {
	defer l.observe("signature", "verify", time.Now())
	obj, err := l.store.get(h, kindSignature)
	if err != nil {
		return err
	}
	return obj.(*signatureObject).verify(hash, signature)
}

func (l *libImpl) SignatureFree(h Handle) error {
	_, err := l.store.remove(h, kindSignature)
	if err != nil {
		return err
	}
	l.track(kindSignature)
	return nil
}

// Agreements

func (l *libImpl) AgreementCreate(alg AgreementAlgorithm, prv Handle) (Handle, error) {
	l.metrics.IncrementOperation("agreement", "create")
	keyObj, err := l.store.get(prv, kindKey)
	if err != nil {
		return nilHandle, err
	}
	obj, err := newAgreementObject(alg, keyObj.(*keyObject))
	if err != nil {
		return nilHandle, err
	}
	h := l.store.put(kindAgreement, obj)
	l.track(kindAgreement)
	return h, nil
}

func (l *libImpl) AgreementAgree(h Handle, pub Handle, dst []byte) (int, error) {
	defer l.observe("agreement", "agree", time.Now())
	obj, err := l.store.get(h, kindAgreement)
	if err != nil {
		return 0, err
	}
	pubObj, err := l.store.get(pub, kindKey)
	if err != nil {
		return 0, err
	}
	return obj.(*agreementObject).agree(pubObj.(*keyObject), dst)
}

func (l *libImpl) AgreementFree(h Handle) error {
	_, err := l.store.remove(h, kindAgreement)
	if err != nil {
		return err
	}
	l.track(kindAgreement)
	return nil
}

// copyOut applies the buffer negotiation protocol: when dst is too small the
// required size is reported and nothing is written.
func copyOut(dst, src []byte) (int, error) {
	if len(src) > DataportSize {
		return 0, ErrInsufficientSpace
	}
	if len(dst) < len(src) {
		return len(src), ErrBufferTooSmall
	}
	return copy(dst, src), nil
}
