package go_seos

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Stream provides the binary serialization operations used by the RPC layer
// and the key/certificate codecs. It wraps bytes.Buffer and adds methods for
// the wire formats used across the dataport:
//
//   - Binary integer encoding (big-endian uint16/32/64)
//   - Length-prefixed byte blocks (uint32 length)
//   - Length-prefixed strings (single-byte length)
//
// For general binary operations outside this package, use encoding/binary
// directly.
type Stream struct {
	*bytes.Buffer
}

// NewStream creates a new Stream from a byte slice.
// The Stream wraps a bytes.Buffer initialized with the provided data.
func NewStream(buf []byte) *Stream {
	return &Stream{bytes.NewBuffer(buf)}
}

// ReadUint16 reads a big-endian uint16 from the stream.
func (s *Stream) ReadUint16() (uint16, error) {
	bts := make([]byte, 2)
	if _, err := s.Read(bts); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(bts), nil
}

// ReadUint32 reads a big-endian uint32 from the stream.
func (s *Stream) ReadUint32() (uint32, error) {
	bts := make([]byte, 4)
	if _, err := s.Read(bts); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(bts), nil
}

// ReadUint64 reads a big-endian uint64 from the stream.
// This is commonly used for object handles.
func (s *Stream) ReadUint64() (uint64, error) {
	bts := make([]byte, 8)
	if _, err := s.Read(bts); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(bts), nil
}

// ReadInt32 reads a big-endian int32 from the stream.
// This is commonly used for error codes and enum values.
func (s *Stream) ReadInt32() (int32, error) {
	u, err := s.ReadUint32()
	return int32(u), err
}

// WriteUint16 writes a big-endian uint16 to the stream.
func (s *Stream) WriteUint16(i uint16) error {
	bts := make([]byte, 2)
	binary.BigEndian.PutUint16(bts, i)
	_, err := s.Write(bts)
	return err
}

// WriteUint32 writes a big-endian uint32 to the stream.
func (s *Stream) WriteUint32(i uint32) error {
	bts := make([]byte, 4)
	binary.BigEndian.PutUint32(bts, i)
	_, err := s.Write(bts)
	return err
}

// WriteUint64 writes a big-endian uint64 to the stream.
// This is commonly used for object handles.
func (s *Stream) WriteUint64(i uint64) error {
	bts := make([]byte, 8)
	binary.BigEndian.PutUint64(bts, i)
	_, err := s.Write(bts)
	return err
}

// WriteInt32 writes a big-endian int32 to the stream.
// This is commonly used for error codes and enum values.
func (s *Stream) WriteInt32(i int32) error {
	return s.WriteUint32(uint32(i))
}

// WriteLenPrefixedBytes writes a byte block prefixed by its length as a
// big-endian uint32. Blocks are capped at DataportSize since every block
// must fit a single dataport frame together with its header.
func (s *Stream) WriteLenPrefixedBytes(b []byte) error {
	if len(b) > DataportSize {
		return fmt.Errorf("block too long: %d bytes (max %d): %w", len(b), DataportSize, ErrInsufficientSpace)
	}
	if err := s.WriteUint32(uint32(len(b))); err != nil {
		return err
	}
	_, err := s.Write(b)
	return err
}

// ReadLenPrefixedBytes reads a byte block written by WriteLenPrefixedBytes.
func (s *Stream) ReadLenPrefixedBytes() ([]byte, error) {
	length, err := s.ReadUint32()
	if err != nil {
		return nil, err
	}
	if length > DataportSize {
		return nil, fmt.Errorf("block too long: %d bytes (max %d): %w", length, DataportSize, ErrInsufficientSpace)
	}
	if length == 0 {
		return []byte{}, nil
	}
	b := make([]byte, length)
	n, err := s.Read(b)
	if err != nil {
		return nil, err
	}
	if n != int(length) {
		return nil, fmt.Errorf("incomplete block: expected %d bytes, got %d", length, n)
	}
	return b, nil
}

// WriteLenPrefixedString writes a string prefixed by its length as a single
// byte. This limits strings to 255 bytes, which is sufficient for keystore
// entry names and parameter names.
func (stream *Stream) WriteLenPrefixedString(s string) error {
	if len(s) > 255 {
		return fmt.Errorf("string too long: %d bytes (max 255)", len(s))
	}
	if err := stream.WriteByte(uint8(len(s))); err != nil {
		return err
	}
	_, err := stream.WriteString(s)
	return err
}

// ReadLenPrefixedString reads a string written by WriteLenPrefixedString.
func (s *Stream) ReadLenPrefixedString() (string, error) {
	length, err := s.ReadByte()
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	b := make([]byte, length)
	n, err := s.Read(b)
	if err != nil || n != int(length) {
		return "", fmt.Errorf("incomplete string: expected %d bytes, got %d", length, n)
	}
	return string(b), nil
}
