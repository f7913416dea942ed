package go_seos

import (
	"sync"
)

// bufferPool manages reusable scratch byte slices to reduce GC pressure on
// the hot RPC and TLS record paths.
//
// Size classes:
//   - 512 bytes:   small RPC frames (handle ops, enum arguments)
//   - 4096 bytes:  dataport frames (DataportSize)
//   - 16384 bytes: TLS records
type bufferPool struct {
	pool512 sync.Pool
	pool4K  sync.Pool
	pool16K sync.Pool
}

var globalBufferPool = &bufferPool{
	pool512: sync.Pool{
		New: func() interface{} {
			buf := make([]byte, 0, 512)
			return &buf
		},
	},
	pool4K: sync.Pool{
		New: func() interface{} {
			buf := make([]byte, 0, DataportSize)
			return &buf
		},
	},
	pool16K: sync.Pool{
		New: func() interface{} {
			buf := make([]byte, 0, 16384)
			return &buf
		},
	},
}

// getBuffer retrieves a zero-length buffer with capacity >= size from the
// smallest bucket that fits. Oversized requests allocate directly.
func (bp *bufferPool) getBuffer(size int) []byte {
	var bufPtr *[]byte
	switch {
	case size <= 512:
		bufPtr = bp.pool512.Get().(*[]byte)
	case size <= DataportSize:
		bufPtr = bp.pool4K.Get().(*[]byte)
	case size <= 16384:
		bufPtr = bp.pool16K.Get().(*[]byte)
	default:
		return make([]byte, 0, size)
	}
	return (*bufPtr)[:0]
}

// putBuffer returns a buffer to its bucket. Buffers that grew to a
// non-standard capacity are left to the GC. Buffers that held secrets must be
// zeroized by the caller before release.
func (bp *bufferPool) putBuffer(buf []byte) {
	if buf == nil {
		return
	}
	buf = buf[:0]
	switch cap(buf) {
	case 512:
		bp.pool512.Put(&buf)
	case DataportSize:
		bp.pool4K.Put(&buf)
	case 16384:
		bp.pool16K.Put(&buf)
	}
}

// newStreamPooled creates a Stream backed by a pooled buffer. Call
// releaseStream when done with it.
func newStreamPooled(size int) *Stream {
	return NewStream(globalBufferPool.getBuffer(size))
}

// releaseStream returns a Stream's buffer to the pool. The Stream must not be
// used afterwards.
func releaseStream(s *Stream) {
	if s == nil || s.Buffer == nil {
		return
	}
	globalBufferPool.putBuffer(s.Bytes())
}

// releaseStreamWiped zeroizes the Stream's buffer before returning it to the
// pool. Required for frames that carried key material.
func releaseStreamWiped(s *Stream) {
	if s == nil || s.Buffer == nil {
		return
	}
	wipeBytes(s.Bytes())
	releaseStream(s)
}
