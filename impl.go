package go_seos

// impl is the execution backend behind the public API. The library backend
// runs operations in-process; the RPC client backend marshals them over a
// dataport to a remote server. Router-mode instances pick a backend per key
// and keep each object on the backend of its key.
//
// Handles are backend-scoped: a handle minted by one backend is meaningless
// to another. The proxy objects of the public API carry their backend along
// with the handle, which keeps the pairing intact.
type impl interface {
	// RNG

	RngGetBytes(flags RngFlags, dst []byte) (int, error)
	RngReseed(seed []byte) error

	// Keys

	KeyGenerate(spec *KeySpec) (Handle, error)
	KeyImport(data KeyData) (Handle, error)
	KeyMakePublic(prv Handle, attribs KeyAttribs) (Handle, error)
	KeyExport(h Handle) (KeyData, error)
	KeyGetParams(h Handle, dst []byte) (int, error)
	KeyLoadParams(name KeyParamName, dst []byte) (int, error)
	KeyGetAttribs(h Handle) (KeyAttribs, error)
	KeyFree(h Handle) error

	// Digests

	DigestCreate(alg DigestAlgorithm) (Handle, error)
	DigestClone(src Handle) (Handle, error)
	DigestProcess(h Handle, data []byte) error
	DigestFinalize(h Handle, dst []byte) (int, error)
	DigestFree(h Handle) error

	// MACs

	MacCreate(alg MacAlgorithm, key Handle) (Handle, error)
	MacProcess(h Handle, data []byte) error
	MacFinalize(h Handle, dst []byte) (int, error)
	MacFree(h Handle) error

	// Ciphers

	CipherCreate(alg CipherAlgorithm, key Handle, iv []byte) (Handle, error)
	CipherStart(h Handle, ad []byte) error
	CipherProcess(h Handle, input, dst []byte) (int, error)
	CipherFinalize(h Handle, buf []byte) (int, error)
	CipherFree(h Handle) error

	// Signatures

	SignatureCreate(alg SignatureAlgorithm, digest DigestAlgorithm, prv, pub Handle) (Handle, error)
	SignatureSign(h Handle, hash, dst []byte) (int, error)
	SignatureVerify(h Handle, hash, signature []byte) error
	SignatureFree(h Handle) error

	// Agreements

	AgreementCreate(alg AgreementAlgorithm, prv Handle) (Handle, error)
	AgreementAgree(h Handle, pub Handle, dst []byte) (int, error)
	AgreementFree(h Handle) error
}
