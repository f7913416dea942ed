package go_seos

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector defines the interface for collecting crypto stack metrics.
// This interface allows applications to plug in custom metrics implementations
// (e.g., Prometheus, StatsD, custom logging) for production monitoring.
//
// All methods are safe for concurrent use and should be non-blocking.
type MetricsCollector interface {
	// IncrementOperation increments the operation counter for an object kind
	// and operation name (e.g. kind "cipher", op "process").
	IncrementOperation(kind, op string)

	// IncrementError increments the error counter for the given code.
	IncrementError(code ErrorCode)

	// SetLiveObjects updates the gauge of live objects of a kind.
	SetLiveObjects(kind string, count int)

	// RecordOperationLatency records how long an operation took.
	RecordOperationLatency(kind, op string, duration time.Duration)

	// AddBytesProcessed adds to the total bytes pushed through primitive
	// operations (cipher/digest/mac input).
	AddBytesProcessed(n uint64)

	// AddRPCBytes adds to the dataport traffic counters.
	AddRPCBytes(sent, received uint64)
}

// nopMetrics is the default collector; it discards everything.
type nopMetrics struct{}

func (nopMetrics) IncrementOperation(string, string)                       {}
func (nopMetrics) IncrementError(ErrorCode)                                {}
func (nopMetrics) SetLiveObjects(string, int)                              {}
func (nopMetrics) RecordOperationLatency(string, string, time.Duration)    {}
func (nopMetrics) AddBytesProcessed(uint64)                                {}
func (nopMetrics) AddRPCBytes(uint64, uint64)                              {}

// InMemoryMetrics provides a simple in-memory implementation of
// MetricsCollector. Suitable for development, testing, and applications that
// want basic metrics without external dependencies.
//
// All operations are thread-safe using atomic operations and minimal locking.
type InMemoryMetrics struct {
	mu          sync.RWMutex
	operations  map[string]uint64 // key: kind + "/" + op
	errors      map[ErrorCode]uint64
	liveObjects map[string]int
	latency     map[string]*latencyStats

	bytesProcessed uint64
	rpcSent        uint64
	rpcReceived    uint64
}

// latencyStats tracks latency statistics for one kind/op pair.
type latencyStats struct {
	count      uint64
	totalNanos uint64
	minNanos   uint64
	maxNanos   uint64
}

// NewInMemoryMetrics creates a new in-memory metrics collector.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		operations:  make(map[string]uint64),
		errors:      make(map[ErrorCode]uint64),
		liveObjects: make(map[string]int),
		latency:     make(map[string]*latencyStats),
	}
}

// IncrementOperation increments the operation counter for kind/op.
func (m *InMemoryMetrics) IncrementOperation(kind, op string) {
	m.mu.Lock()
	m.operations[kind+"/"+op]++
	m.mu.Unlock()
}

// IncrementError increments the error counter for the given code.
func (m *InMemoryMetrics) IncrementError(code ErrorCode) {
	m.mu.Lock()
	m.errors[code]++
	m.mu.Unlock()
}

// SetLiveObjects updates the live object gauge for a kind.
func (m *InMemoryMetrics) SetLiveObjects(kind string, count int) {
	m.mu.Lock()
	m.liveObjects[kind] = count
	m.mu.Unlock()
}

// RecordOperationLatency records the latency for a kind/op pair.
func (m *InMemoryMetrics) RecordOperationLatency(kind, op string, duration time.Duration) {
	nanos := uint64(duration.Nanoseconds())

	m.mu.Lock()
	defer m.mu.Unlock()

	key := kind + "/" + op
	stats := m.latency[key]
	if stats == nil {
		stats = &latencyStats{
			minNanos: nanos,
			maxNanos: nanos,
		}
		m.latency[key] = stats
	}

	stats.count++
	stats.totalNanos += nanos
	if nanos < stats.minNanos {
		stats.minNanos = nanos
	}
	if nanos > stats.maxNanos {
		stats.maxNanos = nanos
	}
}

// AddBytesProcessed adds to the total processed byte counter.
func (m *InMemoryMetrics) AddBytesProcessed(n uint64) {
	atomic.AddUint64(&m.bytesProcessed, n)
}

// AddRPCBytes adds to the dataport traffic counters.
func (m *InMemoryMetrics) AddRPCBytes(sent, received uint64) {
	atomic.AddUint64(&m.rpcSent, sent)
	atomic.AddUint64(&m.rpcReceived, received)
}

// Getter methods for programmatic access to metrics

// Operations returns the counter for a kind/op pair.
func (m *InMemoryMetrics) Operations(kind, op string) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.operations[kind+"/"+op]
}

// Errors returns the counter for an error code.
func (m *InMemoryMetrics) Errors(code ErrorCode) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errors[code]
}

// LiveObjects returns the live object gauge for a kind.
func (m *InMemoryMetrics) LiveObjects(kind string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.liveObjects[kind]
}

// AvgLatency returns the average latency for a kind/op pair.
// Returns 0 if no measurements have been recorded.
func (m *InMemoryMetrics) AvgLatency(kind, op string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := m.latency[kind+"/"+op]
	if stats == nil || stats.count == 0 {
		return 0
	}
	return time.Duration(stats.totalNanos / stats.count)
}

// BytesProcessed returns the total processed byte counter.
func (m *InMemoryMetrics) BytesProcessed() uint64 {
	return atomic.LoadUint64(&m.bytesProcessed)
}

// RPCBytes returns the dataport traffic counters.
func (m *InMemoryMetrics) RPCBytes() (sent, received uint64) {
	return atomic.LoadUint64(&m.rpcSent), atomic.LoadUint64(&m.rpcReceived)
}

// Reset clears all metrics. Useful for testing.
func (m *InMemoryMetrics) Reset() {
	m.mu.Lock()
	m.operations = make(map[string]uint64)
	m.errors = make(map[ErrorCode]uint64)
	m.liveObjects = make(map[string]int)
	m.latency = make(map[string]*latencyStats)
	m.mu.Unlock()

	atomic.StoreUint64(&m.bytesProcessed, 0)
	atomic.StoreUint64(&m.rpcSent, 0)
	atomic.StoreUint64(&m.rpcReceived, 0)
}
