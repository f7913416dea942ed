package go_seos

import (
	"bytes"
	"errors"
	"testing"
)

// TestGetRandomBytes verifies basic DRBG output through the public API.
func TestGetRandomBytes(t *testing.T) {
	c := newTestCrypto(t)

	a := make([]byte, 64)
	b := make([]byte, 64)
	if n, err := c.GetRandomBytes(RngFlagNone, a); err != nil || n != len(a) {
		t.Fatalf("GetRandomBytes = %d, %v", n, err)
	}
	if n, err := c.GetRandomBytes(RngFlagNone, b); err != nil || n != len(b) {
		t.Fatalf("GetRandomBytes = %d, %v", n, err)
	}
	if bytes.Equal(a, b) {
		t.Error("consecutive requests produced identical output")
	}
	if bytes.Equal(a, make([]byte, 64)) {
		t.Error("output is all zero")
	}
}

// TestGetRandomBytesBounds verifies the request limits of the RNG entry
// point.
func TestGetRandomBytesBounds(t *testing.T) {
	c := newTestCrypto(t)

	if _, err := c.GetRandomBytes(RngFlags(1), make([]byte, 16)); !errors.Is(err, ErrNotSupported) {
		t.Errorf("unknown flags: got %v, want ErrNotSupported", err)
	}
	if _, err := c.GetRandomBytes(RngFlagNone, nil); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("empty buffer: got %v, want ErrInvalidParameter", err)
	}
	if _, err := c.GetRandomBytes(RngFlagNone, make([]byte, DataportSize+1)); !errors.Is(err, ErrInsufficientSpace) {
		t.Errorf("oversized buffer: got %v, want ErrInsufficientSpace", err)
	}
	if n, err := c.GetRandomBytes(RngFlagNone, make([]byte, DataportSize)); err != nil || n != DataportSize {
		t.Errorf("full dataport request = %d, %v", n, err)
	}
}

// TestReseedRandom verifies reseed input validation and that reseeding does
// not disturb subsequent generation.
func TestReseedRandom(t *testing.T) {
	c := newTestCrypto(t)

	if err := c.ReseedRandom([]byte("component boot nonce")); err != nil {
		t.Fatalf("ReseedRandom: %v", err)
	}
	if err := c.ReseedRandom(nil); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("empty seed: got %v, want ErrInvalidParameter", err)
	}
	if err := c.ReseedRandom(make([]byte, DataportSize+1)); !errors.Is(err, ErrInsufficientSpace) {
		t.Errorf("oversized seed: got %v, want ErrInsufficientSpace", err)
	}
	if _, err := c.GetRandomBytes(RngFlagNone, make([]byte, 32)); err != nil {
		t.Errorf("GetRandomBytes after reseed: %v", err)
	}
}

// TestDRBGDeterministic verifies that identical entropy sequences yield
// identical DRBG output, which is what makes the construction auditable.
func TestDRBGDeterministic(t *testing.T) {
	fixed := func(buf []byte) {
		for i := range buf {
			buf[i] = byte(i * 7)
		}
	}
	d1, err := newCTRDRBG(fixed)
	if err != nil {
		t.Fatalf("newCTRDRBG: %v", err)
	}
	d2, err := newCTRDRBG(fixed)
	if err != nil {
		t.Fatalf("newCTRDRBG: %v", err)
	}

	a := make([]byte, 48)
	b := make([]byte, 48)
	if _, err := d1.getBytes(RngFlagNone, a); err != nil {
		t.Fatalf("getBytes: %v", err)
	}
	if _, err := d2.getBytes(RngFlagNone, b); err != nil {
		t.Fatalf("getBytes: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("same entropy sequence produced different output")
	}

	// diverge one instance via additional seed material
	if err := d1.reseed([]byte("extra")); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if _, err := d1.getBytes(RngFlagNone, a); err != nil {
		t.Fatalf("getBytes: %v", err)
	}
	if _, err := d2.getBytes(RngFlagNone, b); err != nil {
		t.Fatalf("getBytes: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("reseeded instance still tracks its twin")
	}
}
