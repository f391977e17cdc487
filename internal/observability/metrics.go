package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	connectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transcriber_connection_state",
		Help: "Connection state (0=connecting, 1=open, 2=closed, 3=errored)",
	})

	inboundMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcriber_inbound_messages_total",
		Help: "Total number of transcript messages received",
	})

	// Capture metrics
	captureActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transcriber_capture_active",
		Help: "1 while the microphone is recording",
	})

	recordingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transcriber_recording_duration_seconds",
		Help:    "Duration of recordings in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	chunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_chunks_total",
		Help: "Audio chunks produced, by result",
	}, []string{"result"}) // result: "sent" or "dropped"

	audioBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_audio_bytes_total",
		Help: "Total audio bytes transmitted",
	}, []string{"encoding"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})
)

// Metrics tracks metrics for a single session
type Metrics struct {
	recordingStart time.Time
	mu             sync.Mutex
}

// NewSessionMetrics creates a new metrics tracker for a session
func NewSessionMetrics() *Metrics {
	return &Metrics{}
}

// SetConnectionState records the numeric connection state
func (m *Metrics) SetConnectionState(state int) {
	connectionState.Set(float64(state))
}

// RecordMessage records one inbound transcript message
func (m *Metrics) RecordMessage() {
	inboundMessages.Inc()
}

// RecordRecordingStart records the start of a recording
func (m *Metrics) RecordRecordingStart() {
	m.mu.Lock()
	m.recordingStart = time.Now()
	m.mu.Unlock()
	captureActive.Set(1)
}

// RecordRecordingEnd records the end of a recording
func (m *Metrics) RecordRecordingEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()

	captureActive.Set(0)
	if !m.recordingStart.IsZero() {
		recordingDuration.Observe(time.Since(m.recordingStart).Seconds())
		m.recordingStart = time.Time{}
	}
}

// RecordChunk records a produced chunk and whether it reached the socket
func (m *Metrics) RecordChunk(encoding string, bytes int, sent bool) {
	if !sent {
		chunksTotal.WithLabelValues("dropped").Inc()
		return
	}
	chunksTotal.WithLabelValues("sent").Inc()
	audioBytes.WithLabelValues(encoding).Add(float64(bytes))
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}
