// Package metrics exposes a ReliableEndpoint's StatsEstimator snapshot as
// Prometheus gauges, labeled by endpoint instance ID.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RTTSeconds reports the current smoothed round-trip time.
	//
	// Provides metric:
	//   reliable_endpoint_rtt_seconds{endpoint="<id>"}
	RTTSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reliable_endpoint_rtt_seconds",
		Help: "Smoothed round-trip time in seconds.",
	}, []string{"endpoint"})

	// LossRatio reports the current smoothed loss ratio in [0, 1].
	LossRatio = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reliable_endpoint_loss_ratio",
		Help: "Smoothed fraction of sent packets believed lost.",
	}, []string{"endpoint"})

	// SentBandwidthBytesPerSecond reports smoothed outbound bandwidth.
	SentBandwidthBytesPerSecond = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reliable_endpoint_sent_bandwidth_bytes_per_second",
		Help: "Smoothed outbound bandwidth in bytes per second.",
	}, []string{"endpoint"})

	// RecvBandwidthBytesPerSecond reports smoothed inbound bandwidth.
	RecvBandwidthBytesPerSecond = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reliable_endpoint_recv_bandwidth_bytes_per_second",
		Help: "Smoothed inbound bandwidth in bytes per second.",
	}, []string{"endpoint"})

	// AckedBandwidthBytesPerSecond reports smoothed acked bandwidth.
	AckedBandwidthBytesPerSecond = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reliable_endpoint_acked_bandwidth_bytes_per_second",
		Help: "Smoothed acked bandwidth in bytes per second.",
	}, []string{"endpoint"})

	// MalformedDatagrams counts datagrams dropped for a short or invalid
	// header.
	MalformedDatagrams = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reliable_endpoint_malformed_datagrams_total",
		Help: "Datagrams dropped for failing header decode.",
	}, []string{"endpoint"})

	// FragmentErrors counts fragment reassembly failures.
	FragmentErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reliable_endpoint_fragment_errors_total",
		Help: "Fragment reassembly mismatches and conflicts.",
	}, []string{"endpoint"})
)

// Snapshot is the subset of an endpoint's stats this package publishes.
// RTT is carried as float64 seconds rather than a time.Duration, so callers
// build one field by field from their stats snapshot.
type Snapshot struct {
	RTTSeconds float64
	Loss       float64
	SentBW     float64
	RecvBW     float64
	AckedBW    float64
}

// Report publishes one snapshot under the given endpoint instance ID.
func Report(endpointID string, snap Snapshot) {
	RTTSeconds.WithLabelValues(endpointID).Set(snap.RTTSeconds)
	LossRatio.WithLabelValues(endpointID).Set(snap.Loss)
	SentBandwidthBytesPerSecond.WithLabelValues(endpointID).Set(snap.SentBW)
	RecvBandwidthBytesPerSecond.WithLabelValues(endpointID).Set(snap.RecvBW)
	AckedBandwidthBytesPerSecond.WithLabelValues(endpointID).Set(snap.AckedBW)
}
