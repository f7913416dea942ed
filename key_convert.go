package go_seos

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rsa"
	"math/big"
)

// Conversions from stored key material to the stdlib engine types used by
// the primitive objects. Each conversion validates that the stored variant
// matches what the caller needs; a mismatch is a caller error.

func (k *keyObject) aesBlock() (cipher.Block, error) {
	kd, ok := k.data.(*AESKeyData)
	if !ok {
		return nil, ErrInvalidParameter
	}
	block, err := aes.NewCipher(kd.Key)
	if err != nil {
		return nil, ErrInvalidParameter
	}
	return block, nil
}

func (k *keyObject) rsaPublic() (*rsa.PublicKey, error) {
	kd, ok := k.data.(*RSAPubKeyData)
	if !ok {
		return nil, ErrInvalidParameter
	}
	e := new(big.Int).SetBytes(kd.E)
	if !e.IsInt64() || e.Int64() <= 1 {
		return nil, ErrInvalidParameter
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(kd.N),
		E: int(e.Int64()),
	}, nil
}

func (k *keyObject) rsaPrivate() (*rsa.PrivateKey, error) {
	kd, ok := k.data.(*RSAPrvKeyData)
	if !ok {
		return nil, ErrInvalidParameter
	}
	e := new(big.Int).SetBytes(kd.E)
	if !e.IsInt64() || e.Int64() <= 1 {
		return nil, ErrInvalidParameter
	}
	prv := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{
			N: new(big.Int).SetBytes(kd.N),
			E: int(e.Int64()),
		},
		D: new(big.Int).SetBytes(kd.D),
		Primes: []*big.Int{
			new(big.Int).SetBytes(kd.P),
			new(big.Int).SetBytes(kd.Q),
		},
	}
	if err := prv.Validate(); err != nil {
		return nil, ErrInvalidParameter
	}
	prv.Precompute()
	return prv, nil
}

func (k *keyObject) dhPrivate() (*DHPrvKeyData, error) {
	kd, ok := k.data.(*DHPrvKeyData)
	if !ok {
		return nil, ErrInvalidParameter
	}
	return kd, nil
}

func (k *keyObject) ecdhPrivate() (*ecdh.PrivateKey, error) {
	kd, ok := k.data.(*SECP256R1PrvKeyData)
	if !ok {
		return nil, ErrInvalidParameter
	}
	prv, err := ecdh.P256().NewPrivateKey(kd.D)
	if err != nil {
		return nil, ErrInvalidParameter
	}
	return prv, nil
}

// ecdhPublicFromData builds an ecdh peer key from a stored P-256 public
// point (uncompressed encoding 0x04 || X || Y).
func ecdhPublicFromData(kd *SECP256R1PubKeyData) (*ecdh.PublicKey, error) {
	raw := make([]byte, 1+2*ECCKeySize)
	raw[0] = 4
	copy(raw[1:1+ECCKeySize], leftPad(kd.X, ECCKeySize))
	copy(raw[1+ECCKeySize:], leftPad(kd.Y, ECCKeySize))
	pub, err := ecdh.P256().NewPublicKey(raw)
	if err != nil {
		return nil, ErrInvalidParameter
	}
	return pub, nil
}
