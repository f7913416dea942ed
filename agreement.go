package go_seos

import (
	"bytes"
	"crypto/ecdh"
	"math/big"
)

// agreementObject is the library-side state of a key agreement. It holds the
// private half; the peer's public key is supplied per agree call. The output
// is the raw shared secret without any key derivation.
type agreementObject struct {
	alg AgreementAlgorithm
	dh  *DHPrvKeyData
	ec  *ecdh.PrivateKey
}

func newAgreementObject(alg AgreementAlgorithm, prv *keyObject) (*agreementObject, error) {
	a := &agreementObject{alg: alg}
	switch alg {
	case AgreementDH:
		kd, err := prv.dhPrivate()
		if err != nil {
			return nil, err
		}
		a.dh = kd
	case AgreementECDH:
		k, err := prv.ecdhPrivate()
		if err != nil {
			return nil, err
		}
		a.ec = k
	default:
		return nil, ErrNotSupported
	}
	return a, nil
}

// agree computes the shared secret with the peer's public key. The public
// key type must match the scheme, and for DH both sides must use the same
// group.
func (a *agreementObject) agree(pub *keyObject, dst []byte) (int, error) {
	switch a.alg {
	case AgreementDH:
		kd, ok := pub.data.(*DHPubKeyData)
		if !ok {
			return 0, ErrInvalidParameter
		}
		if !bytes.Equal(kd.Params.P, a.dh.Params.P) || !bytes.Equal(kd.Params.G, a.dh.Params.G) {
			return 0, ErrInvalidParameter
		}
		size := len(a.dh.Params.P)
		if len(dst) < size {
			return size, ErrBufferTooSmall
		}
		p := new(big.Int).SetBytes(a.dh.Params.P)
		gy := new(big.Int).SetBytes(kd.Public)
		x := new(big.Int).SetBytes(a.dh.Private)
		if gy.Sign() <= 0 || gy.Cmp(p) >= 0 {
			return 0, ErrInvalidParameter
		}
		shared := new(big.Int).Exp(gy, x, p)
		return copy(dst, leftPad(shared.Bytes(), size)), nil

	case AgreementECDH:
		kd, ok := pub.data.(*SECP256R1PubKeyData)
		if !ok {
			return 0, ErrInvalidParameter
		}
		if len(dst) < ECCKeySize {
			return ECCKeySize, ErrBufferTooSmall
		}
		peer, err := ecdhPublicFromData(kd)
		if err != nil {
			return 0, err
		}
		shared, err := a.ec.ECDH(peer)
		if err != nil {
			return 0, ErrAborted
		}
		n := copy(dst, shared)
		wipeBytes(shared)
		return n, nil
	}
	return 0, ErrNotSupported
}
