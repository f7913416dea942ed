package go_seos

import (
	"crypto/aes"
	"crypto/cipher"
)

// EntropyFunc supplies platform entropy to the DRBG. It must fill buf
// completely. The callback is invoked on every request to the RNG, external
// and internal, to provide prediction resistance.
type EntropyFunc func(buf []byte)

// RngFlags reserve room for per-request RNG options; none are defined.
type RngFlags uint32

const RngFlagNone RngFlags = 0

const (
	drbgKeyLen  = 32 // AES-256
	drbgSeedLen = drbgKeyLen + aes.BlockSize
)

// ctrDRBG is a CTR-DRBG with an AES-256 core (SP 800-90A). Every generate
// and reseed pulls fresh entropy through the callback before touching the
// state, so compromise of the state does not predict future output.
type ctrDRBG struct {
	key     []byte
	v       []byte
	block   cipher.Block
	entropy EntropyFunc
}

func newCTRDRBG(entropy EntropyFunc) (*ctrDRBG, error) {
	if entropy == nil {
		return nil, ErrInvalidParameter
	}
	d := &ctrDRBG{
		key:     make([]byte, drbgKeyLen),
		v:       make([]byte, aes.BlockSize),
		entropy: entropy,
	}
	block, err := aes.NewCipher(d.key)
	if err != nil {
		return nil, ErrAborted
	}
	d.block = block

	seed := make([]byte, drbgSeedLen)
	d.entropy(seed)
	if err := d.update(seed); err != nil {
		return nil, err
	}
	wipeBytes(seed)
	return d, nil
}

// update is the CTR_DRBG_Update function: it runs the cipher in counter mode
// over one seedlen of output, XORs in the provided data and installs the
// result as the new key and V.
func (d *ctrDRBG) update(provided []byte) error {
	temp := make([]byte, 0, drbgSeedLen)
	out := make([]byte, aes.BlockSize)
	for len(temp) < drbgSeedLen {
		d.incrementV()
		d.block.Encrypt(out, d.v)
		temp = append(temp, out...)
	}
	temp = temp[:drbgSeedLen]
	for i := range provided {
		if i >= drbgSeedLen {
			break
		}
		temp[i] ^= provided[i]
	}
	copy(d.key, temp[:drbgKeyLen])
	copy(d.v, temp[drbgKeyLen:])
	wipeBytes(temp)

	block, err := aes.NewCipher(d.key)
	if err != nil {
		return ErrAborted
	}
	d.block = block
	return nil
}

func (d *ctrDRBG) incrementV() {
	for i := len(d.v) - 1; i >= 0; i-- {
		d.v[i]++
		if d.v[i] != 0 {
			break
		}
	}
}

// reseedWith mixes fresh entropy, and optionally caller-provided seed bytes,
// into the state. Longer inputs are folded down to one seedlen by XOR so no
// byte of the input is ignored.
func (d *ctrDRBG) reseedWith(extra []byte) error {
	seed := make([]byte, drbgSeedLen)
	d.entropy(seed)
	for i, b := range extra {
		seed[i%drbgSeedLen] ^= b
	}
	err := d.update(seed)
	wipeBytes(seed)
	return err
}

// generate fills dst with DRBG output after a prediction-resistance reseed.
func (d *ctrDRBG) generate(dst []byte) error {
	if err := d.reseedWith(nil); err != nil {
		return err
	}
	out := make([]byte, aes.BlockSize)
	n := 0
	for n < len(dst) {
		d.incrementV()
		d.block.Encrypt(out, d.v)
		n += copy(dst[n:], out)
	}
	// backtracking resistance: renew the state after output leaves
	return d.update(make([]byte, drbgSeedLen))
}

// Read implements io.Reader so the DRBG can drive stdlib key generation.
func (d *ctrDRBG) Read(p []byte) (int, error) {
	if err := d.generate(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// getBytes is the external RNG entry point, capped at one dataport per call.
func (d *ctrDRBG) getBytes(flags RngFlags, dst []byte) (int, error) {
	if flags != RngFlagNone {
		return 0, ErrNotSupported
	}
	if len(dst) == 0 {
		return 0, ErrInvalidParameter
	}
	if len(dst) > DataportSize {
		return 0, ErrInsufficientSpace
	}
	if err := d.generate(dst); err != nil {
		return 0, err
	}
	return len(dst), nil
}

// reseed mixes caller-provided seed bytes into the state, capped at one
// dataport per call.
func (d *ctrDRBG) reseed(seed []byte) error {
	if len(seed) == 0 {
		return ErrInvalidParameter
	}
	if len(seed) > DataportSize {
		return ErrInsufficientSpace
	}
	return d.reseedWith(seed)
}

func (d *ctrDRBG) zeroize() {
	wipeBytes(d.key)
	wipeBytes(d.v)
}
