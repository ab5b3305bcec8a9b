// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scanmatch"

// Registry holds every collector exported by the station.
var Registry = prometheus.NewRegistry()

var (
	scansReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_received_total",
			Help:      "Count of parsed scan messages by symbology.",
		},
		[]string{"symbology"},
	)
	outcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Count of correlation outcomes by kind.",
		},
		[]string{"kind"},
	)
	malformedMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_messages_total",
			Help:      "Count of scan messages dropped at the parse boundary.",
		},
	)
	sinkFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_failures_total",
			Help:      "Count of failed side effects after a decision, by sink.",
		},
		[]string{"sink"},
	)
	inFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scan_connections_in_flight",
			Help:      "Scanner connections currently being handled.",
		},
	)
	running = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "intake_running",
			Help:      "1 while the scan intake listener is accepting connections.",
		},
	)
)

var registerMetrics sync.Once

// Register all metrics.
func Register() {
	registerMetrics.Do(func() {
		Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			scansReceived,
			outcomes,
			malformedMessages,
			sinkFailures,
			inFlight,
			running,
		)
	})
}

// Handler serves the station registry in the Prometheus exposition format.
func Handler() http.Handler {
	Register()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordScan(symbology string) { scansReceived.WithLabelValues(symbology).Inc() }

func RecordOutcome(kind string) { outcomes.WithLabelValues(kind).Inc() }

func RecordMalformed() { malformedMessages.Inc() }

func RecordSinkFailure(sink string) { sinkFailures.WithLabelValues(sink).Inc() }

func ConnectionStarted() { inFlight.Inc() }

func ConnectionDone() { inFlight.Dec() }

// SetRunning mirrors the station run state.
func SetRunning(on bool) {
	if on {
		running.Set(1)
		return
	}
	running.Set(0)
}
