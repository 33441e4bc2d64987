package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "northstar_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "northstar_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	positionsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "northstar_positions_resolved_total",
			Help: "Total target position resolutions, by resolver policy.",
		},
		[]string{"policy"},
	)

	sequencerPlaysTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "northstar_sequencer_plays_total",
			Help: "Total Morse timeline plays started.",
		},
	)

	sequencerActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "northstar_sequencer_active",
			Help: "1 while a Morse timeline is playing, 0 otherwise.",
		},
	)

	observerDefaulted = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "northstar_observer_defaulted",
			Help: "1 while the session is running on the fallback observer location.",
		},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "northstar_stream_connections_total",
			Help: "Total SSE stream connection events.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "northstar_streams_active",
			Help: "Currently connected SSE streams.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "northstar_stream_messages_total",
			Help: "Total SSE data messages sent.",
		},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "northstar_stream_bytes_total",
			Help: "Total bytes written to SSE streams.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "northstar_stream_errors_total",
			Help: "Total SSE stream errors, by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		positionsResolvedTotal,
		sequencerPlaysTotal,
		sequencerActive,
		observerDefaulted,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncPositionsResolved records one resolution under the given policy label.
func IncPositionsResolved(policy string) {
	positionsResolvedTotal.WithLabelValues(policy).Inc()
}

// IncSequencerPlays records one play start.
func IncSequencerPlays() {
	sequencerPlaysTotal.Inc()
}

// SetSequencerActive updates the playing gauge.
func SetSequencerActive(active bool) {
	if active {
		sequencerActive.Set(1)
	} else {
		sequencerActive.Set(0)
	}
}

// SetObserverDefaulted updates the fallback-observer gauge.
func SetObserverDefaulted(defaulted bool) {
	if defaulted {
		observerDefaulted.Set(1)
	} else {
		observerDefaulted.Set(0)
	}
}

// IncStreamConnections records a connect/disconnect event.
func IncStreamConnections(event string) {
	streamConnectionsTotal.WithLabelValues(event).Inc()
}

// IncStreamsActive increments the active stream gauge.
func IncStreamsActive() {
	streamsActive.Inc()
}

// DecStreamsActive decrements the active stream gauge.
func DecStreamsActive() {
	streamsActive.Dec()
}

// IncStreamMessages records one SSE data message.
func IncStreamMessages() {
	streamMessagesTotal.Inc()
}

// AddStreamBytes records bytes written to a stream.
func AddStreamBytes(n int64) {
	streamBytesTotal.Add(float64(n))
}

// IncStreamErrors records a stream error by kind.
func IncStreamErrors(kind string) {
	streamErrorsTotal.WithLabelValues(kind).Inc()
}

// knownRoutes are the exact paths the server registers. Anything else
// (bot probes, typos) collapses to "other" to cap label cardinality.
var knownRoutes = map[string]bool{
	"/":                     true,
	"/healthz":              true,
	"/readyz":               true,
	"/metrics":              true,
	"/api/v1/position":      true,
	"/api/v1/observer":      true,
	"/api/v1/orientation":   true,
	"/api/v1/signal/play":   true,
	"/api/v1/signal/stop":   true,
	"/api/v1/signal/status": true,
	"/api/v1/recalibrate":   true,
	"/api/v1/stream/frames": true,
}

// normalizeRoute maps a request path to a bounded metric label.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the wrapped writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
