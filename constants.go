package go_seos

// DataportSize is the fixed size in bytes of the shared marshalling region
// between an RPC client and server. Every single transfer through the API
// (plaintext block, key export, RNG request) is capped at this size.
const DataportSize = 4096

// Mode selects how a Crypto instance executes its operations.
type Mode int

const (
	// ModeNone is the zero value of an uninitialized instance.
	ModeNone Mode = iota
	// ModeLibrary executes all operations locally.
	ModeLibrary
	// ModeRPCClient relays all operations to a remote RPC server instance.
	ModeRPCClient
	// ModeRPCServerWithLibrary serves remote calls from a local library
	// instance; the instance is also usable locally like a library.
	ModeRPCServerWithLibrary
	// ModeRouter places keys locally or remotely based on their KeepLocal
	// attribute and routes each object to where its key lives.
	ModeRouter
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeLibrary:
		return "library"
	case ModeRPCClient:
		return "rpc-client"
	case ModeRPCServerWithLibrary:
		return "rpc-server"
	case ModeRouter:
		return "router"
	}
	return "unknown"
}

// DigestAlgorithm identifies a hash algorithm. The values are wire-stable.
type DigestAlgorithm int

const (
	DigestMD5    DigestAlgorithm = 3
	DigestSHA256 DigestAlgorithm = 6
)

// Digest output sizes in bytes.
const (
	DigestMD5Size    = 16
	DigestSHA256Size = 32
)

// MacAlgorithm identifies a MAC algorithm. The values are wire-stable.
type MacAlgorithm int

const (
	MacHMACMD5    MacAlgorithm = 1
	MacHMACSHA256 MacAlgorithm = 2
)

// MAC output sizes in bytes.
const (
	MacHMACMD5Size    = 16
	MacHMACSHA256Size = 32
)

// CipherAlgorithm identifies a cipher transformation including its direction.
// The values are wire-stable.
type CipherAlgorithm int

const (
	CipherAESECBEnc CipherAlgorithm = iota + 1
	CipherAESECBDec
	CipherAESCBCEnc
	CipherAESCBCDec
	CipherAESGCMEnc
	CipherAESGCMDec
	CipherRSAPKCS1Enc
	CipherRSAPKCS1Dec
)

// Cipher geometry in bytes.
const (
	AESBlockSize = 16
	CBCIVSize    = 16
	GCMIVSize    = 12
	GCMMinTagLen = 4
	GCMMaxTagLen = 16
)

// SignatureAlgorithm identifies an RSA signature scheme. The values are
// wire-stable.
type SignatureAlgorithm int

const (
	// SignatureRSAPKCS1V15 is RSASSA-PKCS#1 v1.5.
	SignatureRSAPKCS1V15 SignatureAlgorithm = 1
	// SignatureRSAPKCS1V21 is RSASSA-PSS (PKCS#1 v2.1).
	SignatureRSAPKCS1V21 SignatureAlgorithm = 2
)

// AgreementAlgorithm identifies a key agreement scheme. The values are
// wire-stable.
type AgreementAlgorithm int

const (
	AgreementDH   AgreementAlgorithm = 1
	AgreementECDH AgreementAlgorithm = 2
)

// KeyType identifies the concrete type of key material. The values are
// wire-stable.
type KeyType int

const (
	KeyTypeNone KeyType = iota
	KeyTypeAES
	KeyTypeRSAPrv
	KeyTypeRSAPub
	KeyTypeDHPrv
	KeyTypeDHPub
	KeyTypeSECP256R1Prv
	KeyTypeSECP256R1Pub
	KeyTypeECCPrv
	KeyTypeECCPub
	KeyTypeMAC
)

func (t KeyType) String() string {
	switch t {
	case KeyTypeNone:
		return "none"
	case KeyTypeAES:
		return "aes"
	case KeyTypeRSAPrv:
		return "rsa-prv"
	case KeyTypeRSAPub:
		return "rsa-pub"
	case KeyTypeDHPrv:
		return "dh-prv"
	case KeyTypeDHPub:
		return "dh-pub"
	case KeyTypeSECP256R1Prv:
		return "secp256r1-prv"
	case KeyTypeSECP256R1Pub:
		return "secp256r1-pub"
	case KeyTypeECCPrv:
		return "ecc-prv"
	case KeyTypeECCPub:
		return "ecc-pub"
	case KeyTypeMAC:
		return "mac"
	}
	return "unknown"
}

// KeyParamName identifies a set of loadable domain parameters. The values are
// wire-stable.
type KeyParamName int

const (
	KeyParamSECP192R1 KeyParamName = 1
	KeyParamSECP224R1 KeyParamName = 2
	KeyParamSECP256R1 KeyParamName = 3
)

// Key size bounds in bytes.
const (
	MinAESKeySize = 16
	MaxAESKeySize = 32
	MinRSAKeySize = 16  // 128 bits
	MaxRSAKeySize = 512 // 4096 bits
	MinDHKeySize  = 8   // 64 bits
	MaxDHKeySize  = 512 // 4096 bits
	ECCKeySize    = 32  // P-256 scalar / coordinate
	MinMACKeySize = 1
	MaxMACKeySize = DataportSize
)

// TLS ciphersuite identifiers (IANA registry values, wire-stable).
const (
	TLSDHERSAWithAES128GCMSHA256   uint16 = 0x009e
	TLSECDHERSAWithAES128GCMSHA256 uint16 = 0xc02f
)

// TLS configuration limits.
const (
	// MaxCACertPEMSize bounds the PEM-encoded trusted CA certificate.
	MaxCACertPEMSize = 3072
	// MaxTLSCipherSuites bounds the number of suites in a TLS policy.
	MaxTLSCipherSuites = 8
	// DefaultRSAMinBits is the minimum RSA modulus size accepted during
	// certificate verification.
	DefaultRSAMinBits = 2048
	// DefaultDHMinBits is the minimum DH group size accepted during a TLS
	// handshake.
	DefaultDHMinBits = 2048
)

// CertEncoding identifies the encoding of certificate input data.
type CertEncoding int

const (
	CertEncodingDER CertEncoding = iota + 1
	CertEncodingPEM
)

// CertAttribType selects which attribute to extract from a certificate.
type CertAttribType int

const (
	CertAttribSubject CertAttribType = iota + 1
	CertAttribIssuer
	CertAttribPublicKey
)

// MaxCertAttribStringSize bounds extracted subject/issuer strings.
const MaxCertAttribStringSize = 1024

// VerifyFlags is a bit set describing why chain verification failed. Flags
// are independent; several may be set at once.
type VerifyFlags uint32

const (
	VerifyFlagNone VerifyFlags = 0
	// VerifyInvalidKey marks a key out of policy (e.g. RSA modulus too small).
	VerifyInvalidKey VerifyFlags = 1 << (iota - 1)
	// VerifyInvalidSig marks a signature that did not verify.
	VerifyInvalidSig
	// VerifyCNMismatch marks an issuer/subject common name mismatch.
	VerifyCNMismatch
	// VerifyExtMismatch marks certificate extension usage violations.
	VerifyExtMismatch
	// VerifyOtherError marks any other verification failure.
	VerifyOtherError
)
