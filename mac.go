package go_seos

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"hash"
)

// macObject is the library-side state of an HMAC computation. Same lifecycle
// as digestObject: process until finalize, which rearms the object under the
// same key.
type macObject struct {
	alg       MacAlgorithm
	mac       hash.Hash
	processed bool
}

func macSize(alg MacAlgorithm) (int, error) {
	switch alg {
	case MacHMACMD5:
		return MacHMACMD5Size, nil
	case MacHMACSHA256:
		return MacHMACSHA256Size, nil
	}
	return 0, ErrNotSupported
}

func newMacObject(alg MacAlgorithm, key *keyObject) (*macObject, error) {
	kd, ok := key.data.(*MACKeyData)
	if !ok {
		return nil, ErrInvalidParameter
	}
	var m hash.Hash
	switch alg {
	case MacHMACMD5:
		m = hmac.New(md5.New, kd.Key)
	case MacHMACSHA256:
		m = hmac.New(sha256.New, kd.Key)
	default:
		return nil, ErrNotSupported
	}
	return &macObject{alg: alg, mac: m}, nil
}

// process feeds input into the MAC. A zero-length call is legal and arms the
// object for the empty-message tag.
func (m *macObject) process(data []byte) error {
	if len(data) > DataportSize {
		return ErrInsufficientSpace
	}
	m.mac.Write(data)
	m.processed = true
	return nil
}

// finalize writes the MAC into dst and rearms the object. Finalizing before
// any process call fails.
func (m *macObject) finalize(dst []byte) (int, error) {
	if !m.processed {
		return 0, ErrAborted
	}
	size, err := macSize(m.alg)
	if err != nil {
		return 0, err
	}
	if len(dst) < size {
		return size, ErrBufferTooSmall
	}
	sum := m.mac.Sum(nil)
	copy(dst, sum)
	m.mac.Reset()
	m.processed = false
	return size, nil
}
