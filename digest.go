package go_seos

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding"
	"hash"
)

// digestObject is the library-side state of a hash computation. The object
// cycles through process calls until a finalize emits the digest and rearms
// it for the next message.
type digestObject struct {
	alg       DigestAlgorithm
	hash      hash.Hash
	processed bool
}

func digestSize(alg DigestAlgorithm) (int, error) {
	switch alg {
	case DigestMD5:
		return DigestMD5Size, nil
	case DigestSHA256:
		return DigestSHA256Size, nil
	}
	return 0, ErrNotSupported
}

func newDigestObject(alg DigestAlgorithm) (*digestObject, error) {
	var h hash.Hash
	switch alg {
	case DigestMD5:
		h = md5.New()
	case DigestSHA256:
		h = sha256.New()
	default:
		return nil, ErrNotSupported
	}
	return &digestObject{alg: alg, hash: h}, nil
}

// cloneDigestObject duplicates src including its accumulated hash state, so
// both objects can continue and finalize independently.
func cloneDigestObject(src *digestObject) (*digestObject, error) {
	dup, err := newDigestObject(src.alg)
	if err != nil {
		return nil, err
	}
	state, err := src.hash.(encoding.BinaryMarshaler).MarshalBinary()
	if err != nil {
		return nil, ErrAborted
	}
	if err := dup.hash.(encoding.BinaryUnmarshaler).UnmarshalBinary(state); err != nil {
		return nil, ErrAborted
	}
	dup.processed = src.processed
	return dup, nil
}

// process feeds input into the hash. A zero-length call is legal and arms the
// object for the empty-message digest.
func (d *digestObject) process(data []byte) error {
	if len(data) > DataportSize {
		return ErrInsufficientSpace
	}
	d.hash.Write(data)
	d.processed = true
	return nil
}

// finalize writes the digest into dst and rearms the object. Finalizing
// before any process call fails.
func (d *digestObject) finalize(dst []byte) (int, error) {
	if !d.processed {
		return 0, ErrAborted
	}
	size, err := digestSize(d.alg)
	if err != nil {
		return 0, err
	}
	if len(dst) < size {
		return size, ErrBufferTooSmall
	}
	sum := d.hash.Sum(nil)
	copy(dst, sum)
	d.hash.Reset()
	d.processed = false
	return size, nil
}
