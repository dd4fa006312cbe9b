// Package metrics declares the prometheus counters, gauges, and
// histograms this engine exposes, grounded on the teacher's own
// package-level metric declarations (pkg/capture/metrics.go,
// pkg/goprobe/writeout/metrics.go): a const subsystem name, package-level
// prometheus.New*/NewHistogram vars, and a single init() MustRegister
// call.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServiceName is the metrics namespace, mirroring config.ServiceName in
// the teacher.
const ServiceName = "flowmeter"

const (
	captureSubsystem = "capture"
	engineSubsystem  = "engine"
	sinkSubsystem    = "sink"
)

var (
	// PacketsProcessed counts packets handed off by the capture source,
	// aggregated across the whole process (single-interface runs have no
	// per-interface label, unlike the teacher's capture manager).
	PacketsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ServiceName,
		Subsystem: captureSubsystem,
		Name:      "packets_processed_total",
		Help:      "Number of packets handed off by the capture source.",
	})
	PacketsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ServiceName,
		Subsystem: captureSubsystem,
		Name:      "packets_dropped_total",
		Help:      "Number of packets dropped by the capture source (kernel ring buffer overrun).",
	})
	CaptureErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ServiceName,
		Subsystem: captureSubsystem,
		Name:      "errors_total",
		Help:      "Number of recoverable capture errors encountered (§4.5 Recoverable I/O).",
	})

	// FlowsActive tracks the live flow table occupancy so operators can
	// see how close a run is to triggering autopilot eviction (§4.6).
	FlowsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ServiceName,
		Subsystem: engineSubsystem,
		Name:      "flows_active",
		Help:      "Number of live entries in the flow table.",
	})
	FlowsEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ServiceName,
		Subsystem: engineSubsystem,
		Name:      "flows_evicted_total",
		Help:      "Number of flows evicted by autopilot eviction (§4.6).",
	})
	FragmentsPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ServiceName,
		Subsystem: engineSubsystem,
		Name:      "fragments_pending",
		Help:      "Number of fragment-index entries awaiting their last fragment.",
	})

	// DispatchDuration times the per-packet 9-step pipeline (§4.7),
	// bucketed the way the teacher buckets its own sub-millisecond
	// rotation timings.
	DispatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ServiceName,
		Subsystem: engineSubsystem,
		Name:      "dispatch_duration_seconds",
		Help:      "Per-packet dispatch time.",
		Buckets:   []float64{0.0000001, 0.0000005, 0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
	})

	// WriteoutDuration times a sink's flush of one terminated flow batch,
	// bucketed the way writeout.go buckets its DB writeout pass.
	WriteoutDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ServiceName,
		Subsystem: sinkSubsystem,
		Name:      "writeout_duration_seconds",
		Help:      "Total time spent flushing terminated flows to the sink.",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
)

func init() {
	prometheus.MustRegister(
		PacketsProcessed,
		PacketsDropped,
		CaptureErrors,
		FlowsActive,
		FlowsEvicted,
		FragmentsPending,
		DispatchDuration,
		WriteoutDuration,
	)
}

// Handler returns the HTTP handler serving the registered metrics in the
// Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
