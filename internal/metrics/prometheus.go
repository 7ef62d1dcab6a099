package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the dictation service
type Metrics struct {
	// Session metrics
	SessionActive   prometheus.Gauge
	SessionsStarted prometheus.Counter
	SessionsStopped prometheus.Counter
	SessionCleanups prometheus.Counter
	SessionDuration prometheus.Histogram

	// Chunk capture metrics
	ChunksRecorded       prometheus.Counter
	CaptureFailures      prometheus.Counter
	ChunkCaptureDuration prometheus.Histogram

	// Transcription metrics
	TranscriptionsCompleted prometheus.Counter
	TranscriptionFailures   prometheus.Counter
	TranscriptParseMisses   prometheus.Counter
	TranscriptionDuration   prometheus.Histogram

	// Insertion metrics
	FragmentsAppended prometheus.Counter
	FragmentsDropped  prometheus.Counter

	// Remote cleanup metrics
	CleanupRequests  prometheus.Counter
	CleanupFallbacks prometheus.Counter
	CleanupRetries   prometheus.Counter
	CleanupDuration  prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		SessionActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dictation_session_active",
			Help: "Whether a dictation session is currently recording (0 or 1)",
		}),
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_sessions_started_total",
			Help: "Total number of dictation sessions started",
		}),
		SessionsStopped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_sessions_stopped_total",
			Help: "Total number of dictation sessions stopped normally",
		}),
		SessionCleanups: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_session_cleanups_total",
			Help: "Total number of emergency session cleanups",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dictation_session_duration_seconds",
			Help:    "Duration of dictation sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68 minutes
		}),

		// Chunk capture metrics
		ChunksRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_chunks_recorded_total",
			Help: "Total number of audio chunks captured",
		}),
		CaptureFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_capture_failures_total",
			Help: "Total number of capture subprocess failures",
		}),
		ChunkCaptureDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dictation_chunk_capture_duration_seconds",
			Help:    "Wall-clock duration of capture subprocess runs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~1 minute
		}),

		// Transcription metrics
		TranscriptionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_transcriptions_completed_total",
			Help: "Total number of chunks transcribed with a usable payload",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_transcription_failures_total",
			Help: "Total number of recognition subprocess failures",
		}),
		TranscriptParseMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_transcript_parse_misses_total",
			Help: "Total number of recognizer outputs without a transcript payload",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dictation_transcription_duration_seconds",
			Help:    "Duration of recognition subprocess runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// Insertion metrics
		FragmentsAppended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_fragments_appended_total",
			Help: "Total number of transcript fragments inserted into the document",
		}),
		FragmentsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_fragments_dropped_total",
			Help: "Total number of fragments dropped because the marker was invalidated",
		}),

		// Remote cleanup metrics
		CleanupRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_cleanup_requests_total",
			Help: "Total number of remote cleanup requests issued",
		}),
		CleanupFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_cleanup_fallbacks_total",
			Help: "Total number of cleanup calls that fell back to the original text",
		}),
		CleanupRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_cleanup_retries_total",
			Help: "Total number of cleanup request retries",
		}),
		CleanupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dictation_cleanup_duration_seconds",
			Help:    "Duration of remote cleanup calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dictation_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dictation_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dictation_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// Record helpers are nil-receiver safe so components can be constructed
// without a registry in unit tests.

// RecordSessionStarted marks the session gauge active and counts the start
func (m *Metrics) RecordSessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.SessionActive.Set(1)
}

// RecordSessionStopped clears the session gauge and records the duration
func (m *Metrics) RecordSessionStopped(durationSeconds float64) {
	if m == nil {
		return
	}
	m.SessionsStopped.Inc()
	m.SessionActive.Set(0)
	m.SessionDuration.Observe(durationSeconds)
}

// RecordSessionCleanup counts an emergency cleanup and clears the gauge
func (m *Metrics) RecordSessionCleanup() {
	if m == nil {
		return
	}
	m.SessionCleanups.Inc()
	m.SessionActive.Set(0)
}

// RecordChunkRecorded records a successfully captured chunk
func (m *Metrics) RecordChunkRecorded(captureSeconds float64) {
	if m == nil {
		return
	}
	m.ChunksRecorded.Inc()
	m.ChunkCaptureDuration.Observe(captureSeconds)
}

// RecordCaptureFailure increments the capture failure counter
func (m *Metrics) RecordCaptureFailure() {
	if m == nil {
		return
	}
	m.CaptureFailures.Inc()
}

// RecordTranscriptionCompleted records a chunk that yielded a transcript
func (m *Metrics) RecordTranscriptionCompleted(durationSeconds float64) {
	if m == nil {
		return
	}
	m.TranscriptionsCompleted.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a recognition subprocess failure
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	if m == nil {
		return
	}
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptParseMiss counts recognizer output without a payload
func (m *Metrics) RecordTranscriptParseMiss() {
	if m == nil {
		return
	}
	m.TranscriptParseMisses.Inc()
}

// RecordFragmentAppended counts a fragment inserted at the marker
func (m *Metrics) RecordFragmentAppended() {
	if m == nil {
		return
	}
	m.FragmentsAppended.Inc()
}

// RecordFragmentDropped counts a fragment dropped on an invalid marker
func (m *Metrics) RecordFragmentDropped() {
	if m == nil {
		return
	}
	m.FragmentsDropped.Inc()
}

// RecordCleanupRequest counts a remote cleanup call and its outcome
func (m *Metrics) RecordCleanupRequest(fallback bool, durationSeconds float64) {
	if m == nil {
		return
	}
	m.CleanupRequests.Inc()
	if fallback {
		m.CleanupFallbacks.Inc()
	}
	m.CleanupDuration.Observe(durationSeconds)
}

// RecordCleanupRetry increments the cleanup retry counter
func (m *Metrics) RecordCleanupRetry() {
	if m == nil {
		return
	}
	m.CleanupRetries.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
