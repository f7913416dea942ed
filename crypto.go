package go_seos

// Crypto is an instance of the Crypto API. Depending on the mode it executes
// operations locally, relays them to a remote server, or routes each key
// (and the objects derived from it) to one of the two.
//
// Instances and the objects created from them are not safe for concurrent
// use; callers serialize access. The RPC client backend additionally
// serializes its dataport internally.
type Crypto struct {
	mode   Mode
	lib    *libImpl
	client *rpcClient
	server *RPCServer
	freed  bool
}

// LibraryConfig configures the in-process library backend. The entropy
// callback is mandatory; it feeds the instance's DRBG on every RNG request.
type LibraryConfig struct {
	Entropy EntropyFunc
	Metrics MetricsCollector
}

// RouterConfig configures a Router-mode instance: a full local library plus
// a dataport to a remote RPC server.
type RouterConfig struct {
	Library  LibraryConfig
	Dataport *Dataport
}

// NewLibrary creates a Library-mode instance: all operations run locally.
func NewLibrary(cfg LibraryConfig) (*Crypto, error) {
	lib, err := newLibImpl(cfg.Entropy, cfg.Metrics)
	if err != nil {
		return nil, err
	}
	Debug("crypto instance created, mode=%s", ModeLibrary)
	return &Crypto{mode: ModeLibrary, lib: lib}, nil
}

// NewRPCClient creates an RPC-client instance: every operation crosses the
// dataport to a remote instance created with NewRPCServer.
func NewRPCClient(dp *Dataport, metrics MetricsCollector) (*Crypto, error) {
	client, err := newRPCClient(dp, metrics)
	if err != nil {
		return nil, err
	}
	Debug("crypto instance created, mode=%s", ModeRPCClient)
	return &Crypto{mode: ModeRPCClient, client: client}, nil
}

// NewRPCServer creates an instance that is usable locally like a library and
// additionally serves remote calls. Run Server().Serve() on its own
// goroutine to start serving.
func NewRPCServer(cfg LibraryConfig, dp *Dataport) (*Crypto, error) {
	lib, err := newLibImpl(cfg.Entropy, cfg.Metrics)
	if err != nil {
		return nil, err
	}
	srv, err := newRPCServer(dp, lib, cfg.Metrics)
	if err != nil {
		return nil, err
	}
	Debug("crypto instance created, mode=%s", ModeRPCServerWithLibrary)
	return &Crypto{mode: ModeRPCServerWithLibrary, lib: lib, server: srv}, nil
}

// NewRouter creates a Router-mode instance. Keys with the KeepLocal
// attribute live in the local library, all others in the remote server;
// derived objects follow their key.
func NewRouter(cfg RouterConfig) (*Crypto, error) {
	lib, err := newLibImpl(cfg.Library.Entropy, cfg.Library.Metrics)
	if err != nil {
		return nil, err
	}
	client, err := newRPCClient(cfg.Dataport, cfg.Library.Metrics)
	if err != nil {
		return nil, err
	}
	Debug("crypto instance created, mode=%s", ModeRouter)
	return &Crypto{mode: ModeRouter, lib: lib, client: client}, nil
}

// Mode reports the mode the instance was created in.
func (c *Crypto) Mode() Mode {
	if c == nil || c.freed {
		return ModeNone
	}
	return c.mode
}

// Server returns the RPC dispatcher of an RPC-server instance, nil for
// other modes.
func (c *Crypto) Server() *RPCServer {
	return c.server
}

// Free releases the instance. All key material held locally is zeroized and
// every outstanding handle of this instance becomes invalid.
func (c *Crypto) Free() error {
	if c == nil || c.freed {
		return ErrInvalidParameter
	}
	if c.lib != nil {
		c.lib.teardown()
	}
	c.freed = true
	Debug("crypto instance freed, mode=%s", c.mode)
	return nil
}

func (c *Crypto) alive() error {
	if c == nil || c.freed {
		return ErrInvalidState
	}
	return nil
}

// defaultBackend is where keyless objects (digests) and instance-level
// operations run.
func (c *Crypto) defaultBackend() impl {
	if c.lib != nil {
		return c.lib
	}
	return c.client
}

// backendForKey picks where a new key lives.
func (c *Crypto) backendForKey(attribs KeyAttribs) impl {
	if c.mode == ModeRouter && !attribs.KeepLocal {
		return c.client
	}
	return c.defaultBackend()
}

// RNG

// GetRandomBytes fills dst with DRBG output, at most DataportSize bytes per
// call. In Router mode the local DRBG serves the request.
func (c *Crypto) GetRandomBytes(flags RngFlags, dst []byte) (int, error) {
	if err := c.alive(); err != nil {
		return 0, err
	}
	return c.defaultBackend().RngGetBytes(flags, dst)
}

// ReseedRandom mixes caller-provided bytes into the DRBG state.
func (c *Crypto) ReseedRandom(seed []byte) error {
	if err := c.alive(); err != nil {
		return err
	}
	return c.defaultBackend().RngReseed(seed)
}

// Key is the proxy for a key object. It remembers the backend its material
// lives on; objects created from the key are placed there too.
type Key struct {
	api   *Crypto
	im    impl
	h     Handle
	freed bool
}

func (k *Key) alive() error {
	if k == nil || k.freed {
		return ErrInvalidHandle
	}
	return k.api.alive()
}

// GenerateKey creates a fresh key from spec using the instance DRBG.
func (c *Crypto) GenerateKey(spec *KeySpec) (*Key, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if spec == nil {
		return nil, ErrInvalidParameter
	}
	im := c.backendForKey(spec.Attribs)
	h, err := im.KeyGenerate(spec)
	if err != nil {
		return nil, err
	}
	return &Key{api: c, im: im, h: h}, nil
}

// ImportKey copies caller-provided key material into the instance. Only
// byte-length bounds are validated; consistency of multi-part material is
// the caller's problem.
func (c *Crypto) ImportKey(data KeyData) (*Key, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrInvalidParameter
	}
	im := c.backendForKey(data.KeyAttribs())
	h, err := im.KeyImport(data)
	if err != nil {
		return nil, err
	}
	return &Key{api: c, im: im, h: h}, nil
}

// MakePublic derives the public half of a private key. The derived key stays
// on the backend of its private key.
func (k *Key) MakePublic(attribs KeyAttribs) (*Key, error) {
	if err := k.alive(); err != nil {
		return nil, err
	}
	h, err := k.im.KeyMakePublic(k.h, attribs)
	if err != nil {
		return nil, err
	}
	return &Key{api: k.api, im: k.im, h: h}, nil
}

// Export returns a copy of the key material. Keys living behind a dataport
// must carry the Exportable attribute or the server refuses.
func (k *Key) Export() (KeyData, error) {
	if err := k.alive(); err != nil {
		return nil, err
	}
	return k.im.KeyExport(k.h)
}

// Params writes the key's shared domain parameters (DH group, ECC curve)
// into dst under the buffer negotiation protocol. Unlike Export this works
// regardless of exportability, parameters are public.
func (k *Key) Params(dst []byte) (int, error) {
	if err := k.alive(); err != nil {
		return 0, err
	}
	return k.im.KeyGetParams(k.h, dst)
}

// Attribs returns the policy attributes the key was created with.
func (k *Key) Attribs() (KeyAttribs, error) {
	if err := k.alive(); err != nil {
		return KeyAttribs{}, err
	}
	return k.im.KeyGetAttribs(k.h)
}

// Free destroys the key and zeroizes its material. The handle is dead
// afterwards; so are objects still referring to the key only if they copied
// nothing (objects hold their own derived state and keep working).
func (k *Key) Free() error {
	if err := k.alive(); err != nil {
		return err
	}
	k.freed = true
	return k.im.KeyFree(k.h)
}

// LoadKeyParams writes the domain parameters of a well-known named curve
// into dst under the buffer negotiation protocol.
func (c *Crypto) LoadKeyParams(name KeyParamName, dst []byte) (int, error) {
	if err := c.alive(); err != nil {
		return 0, err
	}
	return c.defaultBackend().KeyLoadParams(name, dst)
}

// Digest is the proxy for a hash computation.
type Digest struct {
	api   *Crypto
	im    impl
	h     Handle
	freed bool
}

func (d *Digest) alive() error {
	if d == nil || d.freed {
		return ErrInvalidHandle
	}
	return d.api.alive()
}

// NewDigest creates a hash object. Keyless objects run on the local backend
// when one exists.
func (c *Crypto) NewDigest(alg DigestAlgorithm) (*Digest, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	im := c.defaultBackend()
	h, err := im.DigestCreate(alg)
	if err != nil {
		return nil, err
	}
	return &Digest{api: c, im: im, h: h}, nil
}

// Clone duplicates the digest including all input processed so far; both
// objects continue independently.
func (d *Digest) Clone() (*Digest, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	h, err := d.im.DigestClone(d.h)
	if err != nil {
		return nil, err
	}
	return &Digest{api: d.api, im: d.im, h: h}, nil
}

// Process feeds input into the hash, at most DataportSize bytes per call.
func (d *Digest) Process(data []byte) error {
	if err := d.alive(); err != nil {
		return err
	}
	return d.im.DigestProcess(d.h, data)
}

// Finalize writes the digest into dst and rearms the object for the next
// message. Finalizing with no processed input fails.
func (d *Digest) Finalize(dst []byte) (int, error) {
	if err := d.alive(); err != nil {
		return 0, err
	}
	return d.im.DigestFinalize(d.h, dst)
}

// Free destroys the digest object.
func (d *Digest) Free() error {
	if err := d.alive(); err != nil {
		return err
	}
	d.freed = true
	return d.im.DigestFree(d.h)
}

// Mac is the proxy for a keyed MAC computation.
type Mac struct {
	api   *Crypto
	im    impl
	h     Handle
	freed bool
}

func (m *Mac) alive() error {
	if m == nil || m.freed {
		return ErrInvalidHandle
	}
	return m.api.alive()
}

// NewMac creates a MAC object bound to key. The object is placed on the
// key's backend.
func (c *Crypto) NewMac(alg MacAlgorithm, key *Key) (*Mac, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if err := c.checkKey(key); err != nil {
		return nil, err
	}
	h, err := key.im.MacCreate(alg, key.h)
	if err != nil {
		return nil, err
	}
	return &Mac{api: c, im: key.im, h: h}, nil
}

// Process feeds input into the MAC, at most DataportSize bytes per call.
func (m *Mac) Process(data []byte) error {
	if err := m.alive(); err != nil {
		return err
	}
	return m.im.MacProcess(m.h, data)
}

// Finalize writes the MAC into dst and rearms the object under the same key.
func (m *Mac) Finalize(dst []byte) (int, error) {
	if err := m.alive(); err != nil {
		return 0, err
	}
	return m.im.MacFinalize(m.h, dst)
}

// Free destroys the MAC object.
func (m *Mac) Free() error {
	if err := m.alive(); err != nil {
		return err
	}
	m.freed = true
	return m.im.MacFree(m.h)
}

// Cipher is the proxy for a cipher transformation.
type Cipher struct {
	api   *Crypto
	im    impl
	h     Handle
	freed bool
}

func (ci *Cipher) alive() error {
	if ci == nil || ci.freed {
		return ErrInvalidHandle
	}
	return ci.api.alive()
}

// NewCipher creates a cipher object bound to key. IV requirements depend on
// the algorithm: CBC needs exactly 16 bytes, GCM exactly 12, the others
// none. The object is placed on the key's backend.
func (c *Crypto) NewCipher(alg CipherAlgorithm, key *Key, iv []byte) (*Cipher, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if err := c.checkKey(key); err != nil {
		return nil, err
	}
	h, err := key.im.CipherCreate(alg, key.h, iv)
	if err != nil {
		return nil, err
	}
	return &Cipher{api: c, im: key.im, h: h}, nil
}

// Start begins a GCM computation and binds the associated data. Calling it
// on a non-AEAD cipher is a sequencing error.
func (ci *Cipher) Start(ad []byte) error {
	if err := ci.alive(); err != nil {
		return err
	}
	return ci.im.CipherStart(ci.h, ad)
}

// Process transforms input into dst under the buffer negotiation protocol.
// ECB and CBC need 16-byte aligned input; GCM tolerates one trailing
// unaligned chunk.
func (ci *Cipher) Process(input, dst []byte) (int, error) {
	if err := ci.alive(); err != nil {
		return 0, err
	}
	return ci.im.CipherProcess(ci.h, input, dst)
}

// Finalize completes a GCM computation. Encrypting, the tag is written into
// buf (truncated to len(buf), 4 to 16 bytes). Decrypting, buf supplies the
// expected tag and a mismatch fails like an engine fault.
func (ci *Cipher) Finalize(buf []byte) (int, error) {
	if err := ci.alive(); err != nil {
		return 0, err
	}
	return ci.im.CipherFinalize(ci.h, buf)
}

// Free destroys the cipher object.
func (ci *Cipher) Free() error {
	if err := ci.alive(); err != nil {
		return err
	}
	ci.freed = true
	return ci.im.CipherFree(ci.h)
}

// Signature is the proxy for an RSA signature scheme.
type Signature struct {
	api   *Crypto
	im    impl
	h     Handle
	freed bool
}

func (sg *Signature) alive() error {
	if sg == nil || sg.freed {
		return ErrInvalidHandle
	}
	return sg.api.alive()
}

// NewSignature creates a signature object. The digest algorithm is fixed for
// the object's lifetime. Either key may be nil; signing without a private
// key or verifying without a public one fails at use. When both keys are
// given they must live on the same backend.
func (c *Crypto) NewSignature(alg SignatureAlgorithm, digest DigestAlgorithm, prv, pub *Key) (*Signature, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	var im impl
	prvH, pubH := nilHandle, nilHandle
	if prv != nil {
		if err := c.checkKey(prv); err != nil {
			return nil, err
		}
		im, prvH = prv.im, prv.h
	}
	if pub != nil {
		if err := c.checkKey(pub); err != nil {
			return nil, err
		}
		if im != nil && im != pub.im {
			return nil, ErrInvalidParameter
		}
		im, pubH = pub.im, pub.h
	}
	if im == nil {
		return nil, ErrInvalidParameter
	}
	h, err := im.SignatureCreate(alg, digest, prvH, pubH)
	if err != nil {
		return nil, err
	}
	return &Signature{api: c, im: im, h: h}, nil
}

// Sign signs a precomputed digest of the configured algorithm into dst.
func (sg *Signature) Sign(hash, dst []byte) (int, error) {
	if err := sg.alive(); err != nil {
		return 0, err
	}
	return sg.im.SignatureSign(sg.h, hash, dst)
}

// Verify checks a signature over a precomputed digest. A forged signature
// is indistinguishable from an internal failure.
func (sg *Signature) Verify(hash, signature []byte) error {
	if err := sg.alive(); err != nil {
		return err
	}
	return sg.im.SignatureVerify(sg.h, hash, signature)
}

// Free destroys the signature object.
func (sg *Signature) Free() error {
	if err := sg.alive(); err != nil {
		return err
	}
	sg.freed = true
	return sg.im.SignatureFree(sg.h)
}

// Agreement is the proxy for a key agreement.
type Agreement struct {
	api   *Crypto
	im    impl
	h     Handle
	freed bool
}

func (a *Agreement) alive() error {
	if a == nil || a.freed {
		return ErrInvalidHandle
	}
	return a.api.alive()
}

// NewAgreement creates an agreement object holding the private half.
func (c *Crypto) NewAgreement(alg AgreementAlgorithm, prv *Key) (*Agreement, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if err := c.checkKey(prv); err != nil {
		return nil, err
	}
	h, err := prv.im.AgreementCreate(alg, prv.h)
	if err != nil {
		return nil, err
	}
	return &Agreement{api: c, im: prv.im, h: h}, nil
}

// Agree computes the raw shared secret with the peer's public key into dst.
// No key derivation is applied; run the output through a KDF before using it
// as key material.
func (a *Agreement) Agree(pub *Key, dst []byte) (int, error) {
	if err := a.alive(); err != nil {
		return 0, err
	}
	if err := a.api.checkKey(pub); err != nil {
		return 0, err
	}
	if pub.im != a.im {
		return 0, ErrInvalidParameter
	}
	return a.im.AgreementAgree(a.h, pub.h, dst)
}

// Free destroys the agreement object.
func (a *Agreement) Free() error {
	if err := a.alive(); err != nil {
		return err
	}
	a.freed = true
	return a.im.AgreementFree(a.h)
}

// checkKey validates that key is a live key of this instance.
func (c *Crypto) checkKey(key *Key) error {
	if key == nil {
		return ErrInvalidParameter
	}
	if key.api != c {
		return ErrInvalidHandle
	}
	return key.alive()
}

// LibObject is the raw reference to a library-side object, used to migrate
// an object between API instances that share the same underlying library
// (e.g. an RPC server and its clients). Expert use only: holding both the
// LibObject and proxies on it invites double-free trouble.
type LibObject struct {
	kind objectKind
	h    Handle
}

// Object exposes the raw library reference behind a key proxy.
func (k *Key) Object() LibObject {
	return LibObject{kind: kindKey, h: k.h}
}

// MigrateKey binds a raw library key reference to this instance, minting a
// new proxy. The instance must reach the library that owns the reference
// (the same local library, or the same server over RPC). The new proxy must
// be freed like any other; freeing both it and the original releases the
// object twice.
func (c *Crypto) MigrateKey(lo LibObject) (*Key, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if lo.kind != kindKey || lo.h == nilHandle {
		return nil, ErrInvalidParameter
	}
	im := c.defaultBackend()
	// probe so a bogus reference fails here, not at first use
	if _, err := im.KeyGetAttribs(lo.h); err != nil {
		return nil, err
	}
	return &Key{api: c, im: im, h: lo.h}, nil
}
