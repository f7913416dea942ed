package go_seos

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"math/big"

	"go.step.sm/crypto/pemutil"
)

// Cert is one parsed X.509 certificate. Unsupported hash or public key
// algorithms are rejected at parse time, so everything held in a Cert is
// usable by the verifier.
type Cert struct {
	raw  []byte // DER
	cert *x509.Certificate
}

// NewCert parses certificate data in the given encoding.
func NewCert(encoding CertEncoding, data []byte) (*Cert, error) {
	if len(data) == 0 {
		return nil, ErrInvalidParameter
	}
	var cert *x509.Certificate
	var err error
	switch encoding {
	case CertEncodingDER:
		cert, err = x509.ParseCertificate(data)
	case CertEncodingPEM:
		cert, err = pemutil.ParseCertificate(data)
	default:
		return nil, ErrInvalidParameter
	}
	if err != nil {
		return nil, ErrInvalidParameter
	}
	if err := checkCertAlgorithms(cert); err != nil {
		return nil, err
	}
	return &Cert{raw: cloneBytes(cert.Raw), cert: cert}, nil
}

// checkCertAlgorithms enforces the supported algorithm set: RSA with MD5 or
// SHA-256 signatures, RSA or P-256 subject keys.
func checkCertAlgorithms(cert *x509.Certificate) error {
	switch cert.SignatureAlgorithm {
	case x509.MD5WithRSA, x509.SHA256WithRSA, x509.SHA256WithRSAPSS:
	default:
		return ErrNotSupported
	}
	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
	case *ecdsa.PublicKey:
		if pub.Curve != elliptic.P256() {
			return ErrNotSupported
		}
	default:
		return ErrNotSupported
	}
	return nil
}

// DER returns the raw DER encoding of the certificate.
func (c *Cert) DER() []byte {
	return cloneBytes(c.raw)
}

// Subject returns the subject distinguished name as a string.
func (c *Cert) Subject() (string, error) {
	return certName(c.cert.Subject.String())
}

// Issuer returns the issuer distinguished name as a string.
func (c *Cert) Issuer() (string, error) {
	return certName(c.cert.Issuer.String())
}

func certName(name string) (string, error) {
	if len(name) > MaxCertAttribStringSize {
		return "", ErrInsufficientSpace
	}
	return name, nil
}

// PublicKey extracts the subject public key as key material usable with a
// Crypto instance.
func (c *Cert) PublicKey() (KeyData, error) {
	switch pub := c.cert.PublicKey.(type) {
	case *rsa.PublicKey:
		return &RSAPubKeyData{
			Attribs: KeyAttribs{Exportable: true},
			N:       pub.N.Bytes(),
			E:       big.NewInt(int64(pub.E)).Bytes(),
		}, nil
	case *ecdsa.PublicKey:
		return &SECP256R1PubKeyData{
			Attribs: KeyAttribs{Exportable: true},
			X:       leftPad(pub.X.Bytes(), ECCKeySize),
			Y:       leftPad(pub.Y.Bytes(), ECCKeySize),
		}, nil
	}
	return nil, ErrNotSupported
}

// CertChain is an ordered certificate chain, first element closest to the
// trust anchor. Every added certificate must be issued by the chain's
// current tail.
type CertChain struct {
	certs []*Cert
}

// NewCertChain creates an empty chain.
func NewCertChain() *CertChain {
	return &CertChain{}
}

// AddCert appends cert to the chain. The issuer of cert must equal the
// subject of the current last element; on mismatch the chain is unchanged.
func (ch *CertChain) AddCert(cert *Cert) error {
	if cert == nil {
		return ErrInvalidParameter
	}
	if n := len(ch.certs); n > 0 {
		last := ch.certs[n-1]
		if !bytes.Equal(cert.cert.RawIssuer, last.cert.RawSubject) {
			return ErrAborted
		}
	}
	ch.certs = append(ch.certs, cert)
	return nil
}

// Len returns the number of certificates in the chain.
func (ch *CertChain) Len() int {
	return len(ch.certs)
}

// Cert returns the certificate at index.
func (ch *CertChain) Cert(index int) (*Cert, error) {
	if index < 0 || index >= len(ch.certs) {
		return nil, ErrNotFound
	}
	return ch.certs[index], nil
}

// CertParser verifies certificate chains against a set of trusted chains.
// Trusted chains are held by reference; freeing the parser optionally
// cascades to them.
type CertParser struct {
	trusted []*CertChain
	freed   bool
}

// NewCertParser creates a parser with no trusted chains.
func NewCertParser() *CertParser {
	return &CertParser{}
}

func (p *CertParser) alive() error {
	if p == nil || p.freed {
		return ErrInvalidState
	}
	return nil
}

// AddTrustedChain registers a trusted chain. The chain must be non-empty
// and internally verifiable.
func (p *CertParser) AddTrustedChain(chain *CertChain) error {
	if err := p.alive(); err != nil {
		return err
	}
	if chain == nil || chain.Len() == 0 {
		return ErrInvalidParameter
	}
	p.trusted = append(p.trusted, chain)
	return nil
}

// TrustedChainCount returns the number of registered trusted chains.
func (p *CertParser) TrustedChainCount() int {
	return len(p.trusted)
}

// TrustedChain returns the trusted chain at index.
func (p *CertParser) TrustedChain(index int) (*CertChain, error) {
	if err := p.alive(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(p.trusted) {
		return nil, ErrNotFound
	}
	return p.trusted[index], nil
}

// Free releases the parser; with freeChains set the registered trusted
// chains (and their certificates) are dropped as well.
func (p *CertParser) Free(freeChains bool) error {
	if err := p.alive(); err != nil {
		return err
	}
	if freeChains {
		for _, ch := range p.trusted {
			ch.certs = nil
		}
	}
	p.trusted = nil
	p.freed = true
	return nil
}

// VerifyChain verifies chain against the trusted chain at index. The first
// element of chain must be issued by the tail of the trusted chain.
//
// On verification failure the flags describe every detected problem
// independently and the error is ErrGeneric; other error codes indicate the
// verification could not be carried out at all.
func (p *CertParser) VerifyChain(index int, chain *CertChain) (VerifyFlags, error) {
	if err := p.alive(); err != nil {
		return VerifyFlagNone, err
	}
	if index < 0 || index >= len(p.trusted) {
		return VerifyFlagNone, ErrNotFound
	}
	if chain == nil || chain.Len() == 0 {
		return VerifyFlagNone, ErrInvalidParameter
	}

	anchor := p.trusted[index]
	issuer := anchor.certs[len(anchor.certs)-1]

	flags := VerifyFlagNone
	for _, cert := range chain.certs {
		flags |= verifyLink(issuer, cert)
		issuer = cert
	}
	if flags != VerifyFlagNone {
		Debug("chain verification failed, flags=%#x", uint32(flags))
		return flags, ErrGeneric
	}
	return VerifyFlagNone, nil
}

// verifyLink checks one issuer->subject step of a chain.
func verifyLink(issuer, cert *Cert) VerifyFlags {
	flags := VerifyFlagNone

	// key policy of the subject key
	if pub, ok := cert.cert.PublicKey.(*rsa.PublicKey); ok {
		if pub.N.BitLen() < DefaultRSAMinBits {
			flags |= VerifyInvalidKey
		}
	}

	// the issuer must be marked as a CA allowed to sign certificates
	if !issuer.cert.BasicConstraintsValid || !issuer.cert.IsCA {
		flags |= VerifyExtMismatch
	} else if issuer.cert.KeyUsage != 0 && issuer.cert.KeyUsage&x509.KeyUsageCertSign == 0 {
		flags |= VerifyExtMismatch
	}

	// name linkage
	if cert.cert.Issuer.CommonName != issuer.cert.Subject.CommonName {
		flags |= VerifyCNMismatch
	}

	if err := cert.cert.CheckSignatureFrom(issuer.cert); err != nil {
		flags |= VerifyInvalidSig
	}
	return flags
}
