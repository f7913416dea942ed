package go_seos

import (
	"crypto/sha256"
	"errors"
	"testing"
)

func generateRSAPair(t *testing.T, c *Crypto) (prv, pub *Key) {
	t.Helper()
	prv, err := c.GenerateKey(&KeySpec{Type: KeyTypeRSAPrv, Bits: 2048})
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pub, err = prv.MakePublic(KeyAttribs{})
	if err != nil {
		t.Fatalf("MakePublic: %v", err)
	}
	return prv, pub
}

// TestSignatureSignVerify verifies both RSA schemes end to end over a
// precomputed SHA-256 digest.
func TestSignatureSignVerify(t *testing.T) {
	c := newTestCrypto(t)
	prv, pub := generateRSAPair(t, c)
	digest := sha256.Sum256([]byte("measured boot report"))

	for _, alg := range []SignatureAlgorithm{SignatureRSAPKCS1V15, SignatureRSAPKCS1V21} {
		sig, err := c.NewSignature(alg, DigestSHA256, prv, pub)
		if err != nil {
			t.Fatalf("NewSignature(%d): %v", alg, err)
		}
		out := make([]byte, 256)
		n, err := sig.Sign(digest[:], out)
		if err != nil || n != 256 {
			t.Fatalf("Sign = %d, %v", n, err)
		}
		if err := sig.Verify(digest[:], out[:n]); err != nil {
			t.Errorf("alg %d: Verify: %v", alg, err)
		}

		// a flipped bit is indistinguishable from an engine fault
		out[10] ^= 0x40
		if err := sig.Verify(digest[:], out[:n]); !errors.Is(err, ErrAborted) {
			t.Errorf("alg %d: tampered signature: got %v, want ErrAborted", alg, err)
		}
		out[10] ^= 0x40

		// a different digest must not verify either
		other := sha256.Sum256([]byte("different report"))
		if err := sig.Verify(other[:], out[:n]); !errors.Is(err, ErrAborted) {
			t.Errorf("alg %d: wrong digest: got %v, want ErrAborted", alg, err)
		}
		if err := sig.Free(); err != nil {
			t.Fatalf("Free: %v", err)
		}
	}
}

// TestSignatureHalfKeyed verifies objects created with only one key half.
func TestSignatureHalfKeyed(t *testing.T) {
	c := newTestCrypto(t)
	prv, pub := generateRSAPair(t, c)
	digest := sha256.Sum256([]byte("msg"))
	out := make([]byte, 256)

	signer, err := c.NewSignature(SignatureRSAPKCS1V15, DigestSHA256, prv, nil)
	if err != nil {
		t.Fatalf("NewSignature signer: %v", err)
	}
	n, err := signer.Sign(digest[:], out)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := signer.Verify(digest[:], out[:n]); !errors.Is(err, ErrAborted) {
		t.Errorf("verify without public key: got %v, want ErrAborted", err)
	}

	verifier, err := c.NewSignature(SignatureRSAPKCS1V15, DigestSHA256, nil, pub)
	if err != nil {
		t.Fatalf("NewSignature verifier: %v", err)
	}
	if err := verifier.Verify(digest[:], out[:n]); err != nil {
		t.Errorf("Verify: %v", err)
	}
	if _, err := verifier.Sign(digest[:], out); !errors.Is(err, ErrAborted) {
		t.Errorf("sign without private key: got %v, want ErrAborted", err)
	}

	if _, err := c.NewSignature(SignatureRSAPKCS1V15, DigestSHA256, nil, nil); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("no keys at all: got %v, want ErrInvalidParameter", err)
	}
}

// TestSignatureInputValidation verifies digest length and buffer protocol
// checks.
func TestSignatureInputValidation(t *testing.T) {
	c := newTestCrypto(t)
	prv, pub := generateRSAPair(t, c)
	digest := sha256.Sum256([]byte("msg"))

	sig, err := c.NewSignature(SignatureRSAPKCS1V15, DigestSHA256, prv, pub)
	if err != nil {
		t.Fatalf("NewSignature: %v", err)
	}

	// the hash must be exactly the configured digest size
	if _, err := sig.Sign(digest[:16], make([]byte, 256)); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("short hash: got %v, want ErrInvalidParameter", err)
	}
	if err := sig.Verify(digest[:16], make([]byte, 256)); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("short hash on verify: got %v, want ErrInvalidParameter", err)
	}
	if err := sig.Verify(digest[:], nil); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("empty signature: got %v, want ErrInvalidParameter", err)
	}

	// buffer negotiation reports the modulus size
	n, err := sig.Sign(digest[:], make([]byte, 10))
	if !errors.Is(err, ErrBufferTooSmall) || n != 256 {
		t.Errorf("small buffer = %d, %v, want (256, ErrBufferTooSmall)", n, err)
	}

	// unknown digest algorithms are rejected at creation
	if _, err := c.NewSignature(SignatureRSAPKCS1V15, DigestAlgorithm(9), prv, pub); !errors.Is(err, ErrNotSupported) {
		t.Errorf("unknown digest: got %v, want ErrNotSupported", err)
	}
	if _, err := c.NewSignature(SignatureAlgorithm(9), DigestSHA256, prv, pub); !errors.Is(err, ErrNotSupported) {
		t.Errorf("unknown scheme: got %v, want ErrNotSupported", err)
	}
}

// TestSignatureRequiresRSAKeys verifies key type enforcement at creation.
func TestSignatureRequiresRSAKeys(t *testing.T) {
	c := newTestCrypto(t)

	aes, err := c.GenerateKey(&KeySpec{Type: KeyTypeAES, Bits: 128})
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if _, err := c.NewSignature(SignatureRSAPKCS1V15, DigestSHA256, aes, nil); err == nil {
		t.Error("signature object accepted an AES key")
	}
}
