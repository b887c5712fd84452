// package metrics exposes Prometheus instrumentation for queues, ingestion, streaming and persistence.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueMutations counts structural queue changes by operation and outcome.
	QueueMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytq_queue_mutations_total",
		Help: "Structural queue mutations by operation and result",
	}, []string{"op", "result"})

	// QueueLength tracks the number of entries per session.
	QueueLength = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ytq_queue_length",
		Help: "Number of queued entries per session",
	}, []string{"session"})

	// Sessions tracks the number of live sessions in the registry.
	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ytq_sessions",
		Help: "Number of live sessions",
	})

	// IngestedItems counts playlist items by outcome.
	IngestedItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytq_ingest_items_total",
		Help: "Playlist items processed by result",
	}, []string{"result"})

	// StreamFetches counts range fetches by outcome.
	StreamFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytq_stream_fetches_total",
		Help: "Range fetches issued by the chunked assembler by result",
	}, []string{"result"})

	// StreamBytes counts bytes delivered to stream consumers.
	StreamBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytq_stream_bytes_total",
		Help: "Bytes delivered by the chunked assembler",
	})

	// SnapshotSaves counts persistence attempts by outcome.
	SnapshotSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytq_snapshot_saves_total",
		Help: "Queue snapshot saves by result",
	}, []string{"result"})

	// FlushDuration tracks how long one persistence pass takes.
	FlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ytq_flush_duration_seconds",
		Help:    "Duration of one dirty-session persistence pass",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// HTTPRequests counts API requests by route pattern and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytq_http_requests_total",
		Help: "HTTP API requests by route and status code",
	}, []string{"route", "code"})

	// HTTPDuration tracks API request latency by route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ytq_http_request_duration_seconds",
		Help:    "HTTP API request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// IncQueueMutation records a structural mutation outcome.
func IncQueueMutation(op string, ok bool) {
	QueueMutations.WithLabelValues(op, result(ok)).Inc()
}

// SetQueueLength records the current length of a session's queue.
func SetQueueLength(session string, n int) {
	QueueLength.WithLabelValues(session).Set(float64(n))
}

// DeleteQueueLength removes the gauge for a closed session.
func DeleteQueueLength(session string) {
	QueueLength.DeleteLabelValues(session)
}

// IncIngestedItem records one processed playlist item. result is one of added, failed or skipped.
func IncIngestedItem(result string) {
	IngestedItems.WithLabelValues(result).Inc()
}

// IncStreamFetch records one range fetch outcome.
func IncStreamFetch(ok bool) {
	StreamFetches.WithLabelValues(result(ok)).Inc()
}

// AddStreamBytes records bytes delivered downstream.
func AddStreamBytes(n int64) {
	StreamBytes.Add(float64(n))
}

// IncSnapshotSave records one persistence attempt outcome.
func IncSnapshotSave(ok bool) {
	SnapshotSaves.WithLabelValues(result(ok)).Inc()
}

// ObserveFlush records the duration of a persistence pass.
func ObserveFlush(d time.Duration) {
	FlushDuration.Observe(d.Seconds())
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(route string, code int, d time.Duration) {
	HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
