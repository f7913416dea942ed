package go_seos

import (
	"crypto"
	"crypto/rsa"
)

// signatureObject is the library-side state of an RSA signature scheme. It
// operates on externally computed digests; the digest algorithm is fixed at
// creation. The private key enables signing, the public key verification;
// either may be absent.
type signatureObject struct {
	alg    SignatureAlgorithm
	digest DigestAlgorithm
	prv    *rsa.PrivateKey
	pub    *rsa.PublicKey
	rng    *ctrDRBG
}

func signatureHash(alg DigestAlgorithm) (crypto.Hash, error) {
	switch alg {
	case DigestMD5:
		return crypto.MD5, nil
	case DigestSHA256:
		return crypto.SHA256, nil
	}
	return 0, ErrNotSupported
}

func newSignatureObject(alg SignatureAlgorithm, digest DigestAlgorithm, prv, pub *keyObject, rng *ctrDRBG) (*signatureObject, error) {
	if alg != SignatureRSAPKCS1V15 && alg != SignatureRSAPKCS1V21 {
		return nil, ErrNotSupported
	}
	if _, err := signatureHash(digest); err != nil {
		return nil, err
	}
	if prv == nil && pub == nil {
		return nil, ErrInvalidParameter
	}
	s := &signatureObject{alg: alg, digest: digest, rng: rng}
	if prv != nil {
		k, err := prv.rsaPrivate()
		if err != nil {
			return nil, err
		}
		s.prv = k
	}
	if pub != nil {
		k, err := pub.rsaPublic()
		if err != nil {
			return nil, err
		}
		s.pub = k
	}
	return s, nil
}

// sign signs a precomputed digest. The digest must have the exact size of
// the configured hash algorithm.
func (s *signatureObject) sign(hash, dst []byte) (int, error) {
	if s.prv == nil {
		return 0, ErrAborted
	}
	ch, err := signatureHash(s.digest)
	if err != nil {
		return 0, err
	}
	size, _ := digestSize(s.digest)
	if len(hash) != size {
		return 0, ErrInvalidParameter
	}
	outLen := s.prv.Size()
	if len(dst) < outLen {
		return outLen, ErrBufferTooSmall
	}

	var sig []byte
	if s.alg == SignatureRSAPKCS1V15 {
		sig, err = rsa.SignPKCS1v15(s.rng, s.prv, ch, hash)
	} else {
		sig, err = rsa.SignPSS(s.rng, s.prv, ch, hash, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
		})
	}
	if err != nil {
		return 0, ErrAborted
	}
	return copy(dst, sig), nil
}

// verify checks a signature over a precomputed digest. A bad signature is
// indistinguishable from an engine fault.
func (s *signatureObject) verify(hash, signature []byte) error {
	if s.pub == nil {
		return ErrAborted
	}
	ch, err := signatureHash(s.digest)
	if err != nil {
		return err
	}
	size, _ := digestSize(s.digest)
	if len(hash) != size || len(signature) == 0 {
		return ErrInvalidParameter
	}
	if len(signature) > DataportSize {
		return ErrInsufficientSpace
	}

	if s.alg == SignatureRSAPKCS1V15 {
		err = rsa.VerifyPKCS1v15(s.pub, ch, hash, signature)
	} else {
		err = rsa.VerifyPSS(s.pub, ch, hash, signature, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
		})
	}
	if err != nil {
		return ErrAborted
	}
	return nil
}
