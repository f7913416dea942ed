package go_seos

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestInMemoryMetricsCounters verifies counters, gauges and latency stats.
func TestInMemoryMetricsCounters(t *testing.T) {
	m := NewInMemoryMetrics()

	m.IncrementOperation("cipher", "process")
	m.IncrementOperation("cipher", "process")
	m.IncrementOperation("digest", "finalize")
	if got := m.Operations("cipher", "process"); got != 2 {
		t.Errorf("Operations(cipher/process) = %d, want 2", got)
	}
	if got := m.Operations("digest", "finalize"); got != 1 {
		t.Errorf("Operations(digest/finalize) = %d, want 1", got)
	}
	if got := m.Operations("mac", "process"); got != 0 {
		t.Errorf("Operations(mac/process) = %d, want 0", got)
	}

	m.IncrementError(ErrBufferTooSmall)
	m.IncrementError(ErrBufferTooSmall)
	if got := m.Errors(ErrBufferTooSmall); got != 2 {
		t.Errorf("Errors = %d, want 2", got)
	}

	m.SetLiveObjects("key", 5)
	m.SetLiveObjects("key", 3)
	if got := m.LiveObjects("key"); got != 3 {
		t.Errorf("LiveObjects = %d, want 3", got)
	}

	m.RecordOperationLatency("cipher", "process", 10*time.Millisecond)
	m.RecordOperationLatency("cipher", "process", 30*time.Millisecond)
	if got := m.AvgLatency("cipher", "process"); got != 20*time.Millisecond {
		t.Errorf("AvgLatency = %v, want 20ms", got)
	}
	if got := m.AvgLatency("cipher", "start"); got != 0 {
		t.Errorf("AvgLatency of unmeasured op = %v, want 0", got)
	}

	m.AddBytesProcessed(100)
	m.AddBytesProcessed(28)
	if got := m.BytesProcessed(); got != 128 {
		t.Errorf("BytesProcessed = %d, want 128", got)
	}
	m.AddRPCBytes(40, 60)
	if sent, received := m.RPCBytes(); sent != 40 || received != 60 {
		t.Errorf("RPCBytes = %d, %d", sent, received)
	}
}

// TestInMemoryMetricsReset verifies that Reset clears every series.
func TestInMemoryMetricsReset(t *testing.T) {
	m := NewInMemoryMetrics()
	m.IncrementOperation("key", "generate")
	m.IncrementError(ErrAborted)
	m.SetLiveObjects("key", 1)
	m.RecordOperationLatency("key", "generate", time.Millisecond)
	m.AddBytesProcessed(10)
	m.AddRPCBytes(1, 2)

	m.Reset()

	if m.Operations("key", "generate") != 0 || m.Errors(ErrAborted) != 0 ||
		m.LiveObjects("key") != 0 || m.AvgLatency("key", "generate") != 0 ||
		m.BytesProcessed() != 0 {
		t.Error("Reset left metrics behind")
	}
	if sent, received := m.RPCBytes(); sent != 0 || received != 0 {
		t.Errorf("RPCBytes after reset = %d, %d", sent, received)
	}
}

// TestCryptoPublishesMetrics verifies that a library instance feeds its
// collector.
func TestCryptoPublishesMetrics(t *testing.T) {
	m := NewInMemoryMetrics()
	c, err := NewLibrary(LibraryConfig{Entropy: testEntropy, Metrics: m})
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	defer c.Free()

	key, err := c.GenerateKey(&KeySpec{Type: KeyTypeAES, Bits: 128})
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if m.Operations("key", "generate") == 0 {
		t.Error("key generation not counted")
	}
	if m.AvgLatency("key", "generate") <= 0 {
		t.Error("key generation latency not recorded")
	}
	if m.LiveObjects("key") != 1 {
		t.Errorf("LiveObjects(key) = %d, want 1", m.LiveObjects("key"))
	}

	d, err := c.NewDigest(DigestSHA256)
	if err != nil {
		t.Fatalf("NewDigest: %v", err)
	}
	if err := d.Process([]byte("abc")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if m.BytesProcessed() == 0 {
		t.Error("processed bytes not counted")
	}

	if err := key.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if m.LiveObjects("key") != 0 {
		t.Errorf("LiveObjects(key) after free = %d, want 0", m.LiveObjects("key"))
	}
}

// TestRPCServerCountsErrors verifies that failed calls land in the error
// series of the serving side.
func TestRPCServerCountsErrors(t *testing.T) {
	m := NewInMemoryMetrics()
	dp := NewDataport()
	defer dp.Close()
	server, err := NewRPCServer(LibraryConfig{Entropy: testEntropy, Metrics: m}, dp)
	if err != nil {
		t.Fatalf("NewRPCServer: %v", err)
	}
	defer server.Free()
	go server.Server().Serve()
	client, err := NewRPCClient(dp, nil)
	if err != nil {
		t.Fatalf("NewRPCClient: %v", err)
	}
	defer client.Free()

	if _, err := client.GetRandomBytes(RngFlags(1), make([]byte, 8)); err == nil {
		t.Fatal("unknown flag accepted")
	}
	if m.Errors(ErrNotSupported) == 0 {
		t.Error("error not counted")
	}
	if sent, received := m.RPCBytes(); sent == 0 || received == 0 {
		t.Errorf("RPCBytes = %d, %d, traffic not counted", sent, received)
	}
}

// TestPrometheusMetrics verifies registration and the collector interface of
// the Prometheus adapter.
func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMetrics(reg)
	if err != nil {
		t.Fatalf("NewPrometheusMetrics: %v", err)
	}

	var _ MetricsCollector = m

	m.IncrementOperation("cipher", "process")
	m.IncrementError(ErrAborted)
	m.IncrementError(ErrorCode(-9999)) // unmapped codes fall back to "unknown"
	m.SetLiveObjects("key", 2)
	m.RecordOperationLatency("cipher", "process", time.Millisecond)
	m.AddBytesProcessed(64)
	m.AddRPCBytes(10, 20)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("no metric families registered")
	}

	// duplicate registration on the same registry must fail
	if _, err := NewPrometheusMetrics(reg); err == nil {
		t.Error("duplicate registration succeeded")
	}
}
