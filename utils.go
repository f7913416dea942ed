package go_seos

import (
	"encoding/hex"
)

// wipeBytes overwrites b with zeros. Used to scrub key material and sealing
// buffers before they are released.
func wipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// cloneBytes returns an independent copy of b. A nil input stays nil.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// mustHexBytes decodes a hex constant; panics on malformed input since it is
// only used for compiled-in curve parameters.
func mustHexBytes(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("bad hex constant: " + s)
	}
	return b
}

// leftPad returns b left-padded with zeros to size bytes. Big-endian integer
// outputs from math/big drop leading zeros; fixed-width wire fields need them
// back.
func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
