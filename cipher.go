package go_seos

import (
	"crypto/cipher"
	"crypto/rsa"
	"crypto/subtle"
)

type cipherState int

const (
	cipherStateReady cipherState = iota
	cipherStateStarted
	cipherStateFinalized
	cipherStateError
)

func cipherIsGCM(alg CipherAlgorithm) bool {
	return alg == CipherAESGCMEnc || alg == CipherAESGCMDec
}

func cipherIsRSA(alg CipherAlgorithm) bool {
	return alg == CipherRSAPKCS1Enc || alg == CipherRSAPKCS1Dec
}

func cipherIsEnc(alg CipherAlgorithm) bool {
	switch alg {
	case CipherAESECBEnc, CipherAESCBCEnc, CipherAESGCMEnc, CipherRSAPKCS1Enc:
		return true
	}
	return false
}

// cipherObject is the library-side state of a cipher transformation. The
// lifecycle depends on the algorithm family:
//
//	ECB/CBC:  process repeatedly (16-byte aligned input); no start/finalize
//	GCM:      start (sets associated data), process, finalize (tag)
//	RSA:      one single process call
//
// GCM allows at most one trailing unaligned input block. A verification
// failure or sequencing error is terminal: the object enters an error state
// and every further operation fails the same way, so callers free and
// recreate.
type cipherObject struct {
	alg   CipherAlgorithm
	state cipherState
	iv    []byte

	block cipher.Block
	cbc   cipher.BlockMode
	gcm   cipher.AEAD

	ad          []byte
	plainAccum  []byte // GCM plaintext seen (enc) or recovered (dec)
	ctLen       int    // GCM ciphertext bytes consumed (dec)
	partialTail bool

	rsaPub  *rsa.PublicKey
	rsaPrv  *rsa.PrivateKey
	rsaDone bool
	rng     *ctrDRBG
}

func newCipherObject(alg CipherAlgorithm, key *keyObject, iv []byte, rng *ctrDRBG) (*cipherObject, error) {
	c := &cipherObject{alg: alg, rng: rng}

	switch alg {
	case CipherAESECBEnc, CipherAESECBDec:
		if len(iv) != 0 {
			return nil, ErrInvalidParameter
		}
		block, err := key.aesBlock()
		if err != nil {
			return nil, err
		}
		c.block = block
	case CipherAESCBCEnc, CipherAESCBCDec:
		if len(iv) != CBCIVSize {
			return nil, ErrInvalidParameter
		}
		block, err := key.aesBlock()
		if err != nil {
			return nil, err
		}
		c.block = block
		c.iv = cloneBytes(iv)
		if alg == CipherAESCBCEnc {
			c.cbc = cipher.NewCBCEncrypter(block, c.iv)
		} else {
			c.cbc = cipher.NewCBCDecrypter(block, c.iv)
		}
	case CipherAESGCMEnc, CipherAESGCMDec:
		if len(iv) != GCMIVSize {
			return nil, ErrInvalidParameter
		}
		block, err := key.aesBlock()
		if err != nil {
			return nil, err
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, ErrAborted
		}
		c.block = block
		c.gcm = gcm
		c.iv = cloneBytes(iv)
	case CipherRSAPKCS1Enc:
		if len(iv) != 0 {
			return nil, ErrInvalidParameter
		}
		pub, err := key.rsaPublic()
		if err != nil {
			return nil, err
		}
		c.rsaPub = pub
	case CipherRSAPKCS1Dec:
		if len(iv) != 0 {
			return nil, ErrInvalidParameter
		}
		prv, err := key.rsaPrivate()
		if err != nil {
			return nil, err
		}
		c.rsaPrv = prv
	default:
		return nil, ErrNotSupported
	}
	return c, nil
}

// start binds the associated data for a GCM computation. Mandatory for GCM,
// a sequencing error for everything else.
func (c *cipherObject) start(ad []byte) error {
	if c.state == cipherStateError {
		return ErrAborted
	}
	if !cipherIsGCM(c.alg) || c.state != cipherStateReady {
		return ErrAborted
	}
	if len(ad) > DataportSize {
		return ErrInsufficientSpace
	}
	c.ad = cloneBytes(ad)
	c.state = cipherStateStarted
	return nil
}

func (c *cipherObject) process(input, dst []byte) (int, error) {
	if c.state == cipherStateError {
		return 0, ErrAborted
	}
	if len(input) == 0 {
		return 0, ErrInvalidParameter
	}
	if len(input) > DataportSize {
		return 0, ErrInsufficientSpace
	}

	switch {
	case cipherIsGCM(c.alg):
		return c.processGCM(input, dst)
	case cipherIsRSA(c.alg):
		return c.processRSA(input, dst)
	default:
		return c.processBlock(input, dst)
	}
}

func (c *cipherObject) processBlock(input, dst []byte) (int, error) {
	if c.state != cipherStateReady {
		return 0, ErrAborted
	}
	if len(input)%AESBlockSize != 0 {
		return 0, ErrInvalidParameter
	}
	if len(dst) < len(input) {
		return len(input), ErrBufferTooSmall
	}
	out := dst[:len(input)]
	switch c.alg {
	case CipherAESECBEnc:
		for i := 0; i < len(input); i += AESBlockSize {
			c.block.Encrypt(out[i:i+AESBlockSize], input[i:i+AESBlockSize])
		}
	case CipherAESECBDec:
		for i := 0; i < len(input); i += AESBlockSize {
			c.block.Decrypt(out[i:i+AESBlockSize], input[i:i+AESBlockSize])
		}
	default:
		// CBC chaining state carries across calls
		c.cbc.CryptBlocks(out, input)
	}
	return len(input), nil
}

func (c *cipherObject) processGCM(input, dst []byte) (int, error) {
	if c.state != cipherStateStarted {
		return 0, ErrAborted
	}
	if c.partialTail {
		// only the final block may be unaligned
		c.state = cipherStateError
		return 0, ErrAborted
	}
	if len(dst) < len(input) {
		return len(input), ErrBufferTooSmall
	}
	if len(input)%AESBlockSize != 0 {
		c.partialTail = true
	}

	prev := len(c.plainAccum)
	if c.alg == CipherAESGCMEnc {
		c.plainAccum = append(c.plainAccum, input...)
		sealed := c.gcm.Seal(nil, c.iv, c.plainAccum, nil)
		copy(dst, sealed[prev:prev+len(input)])
	} else {
		// sealing zeros yields the raw keystream for this nonce
		c.ctLen += len(input)
		stream := c.gcm.Seal(nil, c.iv, make([]byte, c.ctLen), nil)
		for i := range input {
			dst[i] = input[i] ^ stream[prev+i]
		}
		c.plainAccum = append(c.plainAccum, dst[:len(input)]...)
	}
	return len(input), nil
}

func (c *cipherObject) processRSA(input, dst []byte) (int, error) {
	if c.state != cipherStateReady || c.rsaDone {
		return 0, ErrAborted
	}
	if c.alg == CipherRSAPKCS1Enc {
		outLen := c.rsaPub.Size()
		if len(dst) < outLen {
			return outLen, ErrBufferTooSmall
		}
		ct, err := rsa.EncryptPKCS1v15(c.rng, c.rsaPub, input)
		if err != nil {
			return 0, ErrInvalidParameter
		}
		c.rsaDone = true
		return copy(dst, ct), nil
	}
	pt, err := rsa.DecryptPKCS1v15(nil, c.rsaPrv, input)
	if err != nil {
		c.state = cipherStateError
		return 0, ErrAborted
	}
	if len(dst) < len(pt) {
		return len(pt), ErrBufferTooSmall
	}
	c.rsaDone = true
	return copy(dst, pt), nil
}

// finalize completes a GCM computation. Encrypting, it writes the
// authentication tag into buf, truncated to len(buf) within [4, 16].
// Decrypting, buf holds the expected tag; a mismatch is reported exactly
// like an engine fault.
func (c *cipherObject) finalize(buf []byte) (int, error) {
	if c.state == cipherStateError {
		return 0, ErrAborted
	}
	if !cipherIsGCM(c.alg) || c.state != cipherStateStarted {
		return 0, ErrAborted
	}

	sealed := c.gcm.Seal(nil, c.iv, c.plainAccum, c.ad)
	tag := sealed[len(c.plainAccum):]

	if c.alg == CipherAESGCMEnc {
		if len(buf) < GCMMinTagLen {
			return GCMMinTagLen, ErrBufferTooSmall
		}
		tagLen := len(buf)
		if tagLen > GCMMaxTagLen {
			tagLen = GCMMaxTagLen
		}
		copy(buf, tag[:tagLen])
		c.state = cipherStateFinalized
		return tagLen, nil
	}

	tagLen := len(buf)
	if tagLen < GCMMinTagLen || tagLen > GCMMaxTagLen {
		return 0, ErrInvalidParameter
	}
	if subtle.ConstantTimeCompare(tag[:tagLen], buf) != 1 {
		c.state = cipherStateError
		return 0, ErrAborted
	}
	c.state = cipherStateFinalized
	return tagLen, nil
}

func (c *cipherObject) zeroize() {
	wipeBytes(c.plainAccum)
	wipeBytes(c.ad)
	wipeBytes(c.iv)
}
