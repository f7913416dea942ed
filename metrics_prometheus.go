package go_seos

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements MetricsCollector on top of a Prometheus
// registry. All collectors are registered on construction; pass
// prometheus.DefaultRegisterer to expose them via the default handler.
type PrometheusMetrics struct {
	operations     *prometheus.CounterVec
	errors         *prometheus.CounterVec
	liveObjects    *prometheus.GaugeVec
	opLatency      *prometheus.HistogramVec
	bytesProcessed prometheus.Counter
	rpcSent        prometheus.Counter
	rpcReceived    prometheus.Counter
}

// NewPrometheusMetrics creates and registers the collectors. It returns an
// error if registration fails (e.g. duplicate registration on the same
// registry).
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seos_crypto_operations_total",
			Help: "Crypto API operations by object kind and operation.",
		}, []string{"kind", "op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seos_crypto_errors_total",
			Help: "Crypto API errors by error code name.",
		}, []string{"code"}),
		liveObjects: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "seos_crypto_live_objects",
			Help: "Live crypto objects by kind.",
		}, []string{"kind"}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seos_crypto_operation_seconds",
			Help:    "Crypto API operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "op"}),
		bytesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seos_crypto_bytes_processed_total",
			Help: "Bytes pushed through primitive operations.",
		}),
		rpcSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seos_rpc_bytes_sent_total",
			Help: "Bytes written to the dataport.",
		}),
		rpcReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seos_rpc_bytes_received_total",
			Help: "Bytes read from the dataport.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.operations, m.errors, m.liveObjects, m.opLatency,
		m.bytesProcessed, m.rpcSent, m.rpcReceived,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// IncrementOperation increments the operation counter for kind/op.
func (m *PrometheusMetrics) IncrementOperation(kind, op string) {
	m.operations.WithLabelValues(kind, op).Inc()
}

// IncrementError increments the error counter for the given code.
func (m *PrometheusMetrics) IncrementError(code ErrorCode) {
	name, ok := errorCodeNames[code]
	if !ok {
		name = "unknown"
	}
	m.errors.WithLabelValues(name).Inc()
}

// SetLiveObjects updates the live object gauge for a kind.
func (m *PrometheusMetrics) SetLiveObjects(kind string, count int) {
	m.liveObjects.WithLabelValues(kind).Set(float64(count))
}

// RecordOperationLatency records the latency for a kind/op pair.
func (m *PrometheusMetrics) RecordOperationLatency(kind, op string, duration time.Duration) {
	m.opLatency.WithLabelValues(kind, op).Observe(duration.Seconds())
}

// AddBytesProcessed adds to the total processed byte counter.
func (m *PrometheusMetrics) AddBytesProcessed(n uint64) {
	m.bytesProcessed.Add(float64(n))
}

// AddRPCBytes adds to the dataport traffic counters.
func (m *PrometheusMetrics) AddRPCBytes(sent, received uint64) {
	m.rpcSent.Add(float64(sent))
	m.rpcReceived.Add(float64(received))
}
