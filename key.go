package go_seos

import (
	"crypto/elliptic"
	"math/big"
)

// KeyAttribs carries the policy attributes of a key.
type KeyAttribs struct {
	// Exportable allows the raw key material to leave the component holding
	// it (e.g. crossing a dataport to an RPC client).
	Exportable bool
	// KeepLocal makes a Router-mode instance place the key in its local
	// library rather than the remote server. Objects created from the key
	// follow it.
	KeepLocal bool
}

// KeySpec describes a key to generate. Exactly one parameter source applies:
// Bits for AES/MAC/RSA/DH (fresh DH group), DHParams for DH keys in an
// existing group, ECCParams for generic ECC keys on an explicit curve.
// SECP256R1 keys need neither (the curve is fixed).
type KeySpec struct {
	Type    KeyType
	Attribs KeyAttribs

	Bits      int
	DHParams  *DHParams
	ECCParams *ECCParams
}

// KeyData is the exportable representation of key material. It is a closed
// set of tagged variants, one per key type, so reading DH parameters out of
// an AES key is not representable.
type KeyData interface {
	// Type reports which variant this is.
	Type() KeyType
	// KeyAttribs returns the policy attributes stored with the material.
	KeyAttribs() KeyAttribs

	validate() error
	clone() KeyData
	zeroize()
}

// DHParams are the shared domain parameters of a DH group: prime modulus P
// and generator G, big-endian.
type DHParams struct {
	P []byte
	G []byte
}

func (p *DHParams) clone() DHParams {
	return DHParams{P: cloneBytes(p.P), G: cloneBytes(p.G)}
}

func (p *DHParams) zeroize() {
	// public values, wiped anyway so a freed key leaves nothing behind
	wipeBytes(p.P)
	wipeBytes(p.G)
}

func (p *DHParams) validate() error {
	if len(p.P) < MinDHKeySize || len(p.P) > MaxDHKeySize || len(p.G) == 0 {
		return ErrInvalidParameter
	}
	return nil
}

// ECCParams are explicit Weierstrass curve parameters: y^2 = x^3 + Ax + B
// over GF(P), base point (Gx, Gy) of order N. All values big-endian.
type ECCParams struct {
	P  []byte
	A  []byte
	B  []byte
	Gx []byte
	Gy []byte
	N  []byte
}

func (p *ECCParams) clone() ECCParams {
	return ECCParams{
		P:  cloneBytes(p.P),
		A:  cloneBytes(p.A),
		B:  cloneBytes(p.B),
		Gx: cloneBytes(p.Gx),
		Gy: cloneBytes(p.Gy),
		N:  cloneBytes(p.N),
	}
}

func (p *ECCParams) zeroize() {
	wipeBytes(p.P)
	wipeBytes(p.A)
	wipeBytes(p.B)
	wipeBytes(p.Gx)
	wipeBytes(p.Gy)
	wipeBytes(p.N)
}

func (p *ECCParams) validate() error {
	if len(p.P) == 0 || len(p.P) > ECCKeySize ||
		len(p.Gx) == 0 || len(p.Gy) == 0 || len(p.N) == 0 {
		return ErrInvalidParameter
	}
	return nil
}

// AESKeyData holds a raw AES key of 16, 24 or 32 bytes.
type AESKeyData struct {
	Attribs KeyAttribs
	Key     []byte
}

func (d *AESKeyData) Type() KeyType          { return KeyTypeAES }
func (d *AESKeyData) KeyAttribs() KeyAttribs { return d.Attribs }

func (d *AESKeyData) validate() error {
	switch len(d.Key) {
	case 16, 24, 32:
		return nil
	}
	if len(d.Key) < MinAESKeySize || len(d.Key) > MaxAESKeySize {
		return ErrNotSupported
	}
	return ErrInvalidParameter
}

func (d *AESKeyData) clone() KeyData {
	return &AESKeyData{Attribs: d.Attribs, Key: cloneBytes(d.Key)}
}

func (d *AESKeyData) zeroize() { wipeBytes(d.Key) }

// MACKeyData holds a raw MAC key of arbitrary length.
type MACKeyData struct {
	Attribs KeyAttribs
	Key     []byte
}

func (d *MACKeyData) Type() KeyType          { return KeyTypeMAC }
func (d *MACKeyData) KeyAttribs() KeyAttribs { return d.Attribs }

func (d *MACKeyData) validate() error {
	if len(d.Key) < MinMACKeySize || len(d.Key) > MaxMACKeySize {
		return ErrNotSupported
	}
	return nil
}

func (d *MACKeyData) clone() KeyData {
	return &MACKeyData{Attribs: d.Attribs, Key: cloneBytes(d.Key)}
}

func (d *MACKeyData) zeroize() { wipeBytes(d.Key) }

/// RSAPubKeyData holds an RSA public key: modulus N and exponent E,
// big-endian.
type RSAPubKeyData struct {
	Attribs KeyAttribs
	N       []byte
	E       []byte
}

func (d *RSAPubKeyData) Type() KeyType          { return KeyTypeRSAPub }
func (d *RSAPubKeyData) KeyAttribs() KeyAttribs { return d.Attribs }

func (d *RSAPubKeyData) validate() error {
	if len(d.N) < MinRSAKeySize || len(d.N) > MaxRSAKeySize {
		return ErrNotSupported
	}
	if len(d.E) == 0 || len(d.E) > MaxRSAKeySize {
		return ErrInvalidParameter
	}
	return nil
}

func (d *RSAPubKeyData) clone() KeyData {
	return &RSAPubKeyData{Attribs: d.Attribs, N: cloneBytes(d.N), E: cloneBytes(d.E)}
}

func (d *RSAPubKeyData) zeroize() {
	wipeBytes(d.N)
	wipeBytes(d.E)
}

// RSAPrvKeyData holds an RSA private key: modulus N, public exponent E,
// private exponent D and prime factors P, Q, big-endian.
type RSAPrvKeyData struct {
	Attribs KeyAttribs
	N       []byte
	E       []byte
	D       []byte
	P       []byte
	Q       []byte
}

func (d *RSAPrvKeyData) Type() KeyType          { return KeyTypeRSAPrv }
func (d *RSAPrvKeyData) KeyAttribs() KeyAttribs { return d.Attribs }

func (d *RSAPrvKeyData) validate() error {
	if len(d.N) < MinRSAKeySize || len(d.N) > MaxRSAKeySize {
		return ErrNotSupported
	}
	// Byte-length plausibility only; factor consistency (P*Q == N) is not
	// checked, matching the cost model of import.
	if len(d.E) == 0 || len(d.D) == 0 || len(d.P) == 0 || len(d.Q) == 0 ||
		len(d.D) > MaxRSAKeySize || len(d.P) > MaxRSAKeySize || len(d.Q) > MaxRSAKeySize {
		return ErrInvalidParameter
	}
	return nil
}

func (d *RSAPrvKeyData) clone() KeyData {
	return &RSAPrvKeyData{
		Attribs: d.Attribs,
		N:       cloneBytes(d.N),
		E:       cloneBytes(d.E),
		D:       cloneBytes(d.D),
		P:       cloneBytes(d.P),
		Q:       cloneBytes(d.Q),
	}
}

func (d *RSAPrvKeyData) zeroize() {
	wipeBytes(d.N)
	wipeBytes(d.E)
	wipeBytes(d.D)
	wipeBytes(d.P)
	wipeBytes(d.Q)
}

// DHPubKeyData holds a DH public value g^x mod p with its group parameters.
type DHPubKeyData struct {
	Attribs KeyAttribs
	Params  DHParams
	Public  []byte
}

func (d *DHPubKeyData) Type() KeyType          { return KeyTypeDHPub }
func (d *DHPubKeyData) KeyAttribs() KeyAttribs { return d.Attribs }

func (d *DHPubKeyData) validate() error {
	if err := d.Params.validate(); err != nil {
		return err
	}
	if len(d.Public) == 0 || len(d.Public) > MaxDHKeySize {
		return ErrInvalidParameter
	}
	return nil
}

func (d *DHPubKeyData) clone() KeyData {
	return &DHPubKeyData{Attribs: d.Attribs, Params: d.Params.clone(), Public: cloneBytes(d.Public)}
}

func (d *DHPubKeyData) zeroize() {
	d.Params.zeroize()
	wipeBytes(d.Public)
}

// DHPrvKeyData holds a DH private exponent x with its group parameters.
type DHPrvKeyData struct {
	Attribs KeyAttribs
	Params  DHParams
	Private []byte
}

func (d *DHPrvKeyData) Type() KeyType          { return KeyTypeDHPrv }
func (d *DHPrvKeyData) KeyAttribs() KeyAttribs { return d.Attribs }

func (d *DHPrvKeyData) validate() error {
	if err := d.Params.validate(); err != nil {
		return err
	}
	if len(d.Private) == 0 || len(d.Private) > MaxDHKeySize {
		return ErrInvalidParameter
	}
	return nil
}

func (d *DHPrvKeyData) clone() KeyData {
	return &DHPrvKeyData{Attribs: d.Attribs, Params: d.Params.clone(), Private: cloneBytes(d.Private)}
}

func (d *DHPrvKeyData) zeroize() {
	d.Params.zeroize()
	wipeBytes(d.Private)
}

// SECP256R1PubKeyData holds a NIST P-256 public point (X, Y), 32 bytes each.
type SECP256R1PubKeyData struct {
	Attribs KeyAttribs
	X       []byte
	Y       []byte
}

func (d *SECP256R1PubKeyData) Type() KeyType          { return KeyTypeSECP256R1Pub }
func (d *SECP256R1PubKeyData) KeyAttribs() KeyAttribs { return d.Attribs }

func (d *SECP256R1PubKeyData) validate() error {
	if len(d.X) != ECCKeySize || len(d.Y) != ECCKeySize {
		return ErrInvalidParameter
	}
	return nil
}

func (d *SECP256R1PubKeyData) clone() KeyData {
	return &SECP256R1PubKeyData{Attribs: d.Attribs, X: cloneBytes(d.X), Y: cloneBytes(d.Y)}
}

func (d *SECP256R1PubKeyData) zeroize() {
	wipeBytes(d.X)
	wipeBytes(d.Y)
}

// SECP256R1PrvKeyData holds a NIST P-256 private scalar, 32 bytes.
type SECP256R1PrvKeyData struct {
	Attribs KeyAttribs
	D       []byte
}

func (d *SECP256R1PrvKeyData) Type() KeyType          { return KeyTypeSECP256R1Prv }
func (d *SECP256R1PrvKeyData) KeyAttribs() KeyAttribs { return d.Attribs }

func (d *SECP256R1PrvKeyData) validate() error {
	if len(d.D) != ECCKeySize {
		return ErrInvalidParameter
	}
	return nil
}

func (d *SECP256R1PrvKeyData) clone() KeyData {
	return &SECP256R1PrvKeyData{Attribs: d.Attribs, D: cloneBytes(d.D)}
}

func (d *SECP256R1PrvKeyData) zeroize() { wipeBytes(d.D) }

// ECCPubKeyData holds a public point on an explicitly parameterized curve.
type ECCPubKeyData struct {
	Attribs KeyAttribs
	Params  ECCParams
	X       []byte
	Y       []byte
}

func (d *ECCPubKeyData) Type() KeyType          { return KeyTypeECCPub }
func (d *ECCPubKeyData) KeyAttribs() KeyAttribs { return d.Attribs }

func (d *ECCPubKeyData) validate() error {
	if err := d.Params.validate(); err != nil {
		return err
	}
	if len(d.X) == 0 || len(d.X) > ECCKeySize || len(d.Y) == 0 || len(d.Y) > ECCKeySize {
		return ErrInvalidParameter
	}
	return nil
}

func (d *ECCPubKeyData) clone() KeyData {
	return &ECCPubKeyData{Attribs: d.Attribs, Params: d.Params.clone(), X: cloneBytes(d.X), Y: cloneBytes(d.Y)}
}

func (d *ECCPubKeyData) zeroize() {
	d.Params.zeroize()
	wipeBytes(d.X)
	wipeBytes(d.Y)
}

// ECCPrvKeyData holds a private scalar on an explicitly parameterized curve.
type ECCPrvKeyData struct {
	Attribs KeyAttribs
	Params  ECCParams
	D       []byte
}

func (d *ECCPrvKeyData) Type() KeyType          { return KeyTypeECCPrv }
func (d *ECCPrvKeyData) KeyAttribs() KeyAttribs { return d.Attribs }

func (d *ECCPrvKeyData) validate() error {
	if err := d.Params.validate(); err != nil {
		return err
	}
	if len(d.D) == 0 || len(d.D) > ECCKeySize {
		return ErrInvalidParameter
	}
	return nil
}

func (d *ECCPrvKeyData) clone() KeyData {
	return &ECCPrvKeyData{Attribs: d.Attribs, Params: d.Params.clone(), D: cloneBytes(d.D)}
}

func (d *ECCPrvKeyData) zeroize() {
	d.Params.zeroize()
	wipeBytes(d.D)
}

// keyObject is the library-side representation of a key. It owns the
// authoritative material; freeing the object zeroizes it.
type keyObject struct {
	data KeyData
}

func (k *keyObject) zeroize() {
	if k.data != nil {
		k.data.zeroize()
	}
}

// namedCurveParams returns the explicit parameters of a well-known curve.
func namedCurveParams(name KeyParamName) (*ECCParams, error) {
	switch name {
	case KeyParamSECP192R1:
		return secp192r1Params(), nil
	case KeyParamSECP224R1:
		return ellipticCurveParams(elliptic.P224()), nil
	case KeyParamSECP256R1:
		return ellipticCurveParams(elliptic.P256()), nil
	}
	return nil, ErrNotFound
}

// ellipticCurveParams converts stdlib curve parameters to explicit form.
// The stdlib curves all use A = P - 3.
func ellipticCurveParams(curve elliptic.Curve) *ECCParams {
	cp := curve.Params()
	a := new(big.Int).Sub(cp.P, big.NewInt(3))
	return &ECCParams{
		P:  cp.P.Bytes(),
		A:  a.Bytes(),
		B:  cp.B.Bytes(),
		Gx: cp.Gx.Bytes(),
		Gy: cp.Gy.Bytes(),
		N:  cp.N.Bytes(),
	}
}

// secp192r1Params returns the SEC 2 secp192r1 domain parameters; the stdlib
// does not carry this curve.
func secp192r1Params() *ECCParams {
	return &ECCParams{
		P:  mustHexBytes("fffffffffffffffffffffffffffffffeffffffffffffffff"),
		A:  mustHexBytes("fffffffffffffffffffffffffffffffefffffffffffffffc"),
		B:  mustHexBytes("64210519e59c80e70fa7e9ab72243049feb8deecc146b9b1"),
		Gx: mustHexBytes("188da80eb03090f67cbf20eb43a18800f4ff0afd82ff1012"),
		Gy: mustHexBytes("07192b95ffc8da78631011ed6b24cdd573f977a11e794811"),
		N:  mustHexBytes("ffffffffffffffffffffffff99def836146bc9b1b4d22831"),
	}
}
