package sink

import (
	"log/slog"
	"sync"

	"github.com/antonkf/dictation-service/internal/document"
	"github.com/antonkf/dictation-service/internal/metrics"
)

// Sink owns a session's insertion marker and appends transcript fragments
// at it. Appends after the marker's document is gone are silent no-ops;
// they are counted rather than surfaced so the chunk loop never stalls on
// a vanished target.
type Sink struct {
	marker     *document.Marker
	maxHistory int
	logger     *slog.Logger
	metrics    *metrics.Metrics

	// Statistics and recent-fragment history
	history  []string
	appended uint64
	dropped  uint64

	mu sync.RWMutex
}

// Stats represents insertion sink statistics
type Stats struct {
	FragmentsAppended uint64 `json:"fragments_appended"`
	FragmentsDropped  uint64 `json:"fragments_dropped"`
}

// New creates a sink writing at the given marker. maxHistory bounds the
// retained fragment history; values below 1 disable retention.
func New(marker *document.Marker, maxHistory int, logger *slog.Logger, m *metrics.Metrics) *Sink {
	return &Sink{
		marker:     marker,
		maxHistory: maxHistory,
		logger:     logger,
		metrics:    m,
	}
}

// Append inserts text immediately before the marker and advances it, so
// fragments accumulate in call order at the original marker location.
// Returns false when the marker has been invalidated.
func (s *Sink) Append(text string) bool {
	if !s.marker.Insert(text) {
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()

		s.metrics.RecordFragmentDropped()
		s.logger.Warn("Dropped transcript fragment, insertion marker is gone",
			slog.Int("length", len(text)),
		)
		return false
	}

	s.mu.Lock()
	s.appended++
	if s.maxHistory > 0 {
		s.history = append(s.history, text)
		if len(s.history) > s.maxHistory {
			s.history = s.history[len(s.history)-s.maxHistory:]
		}
	}
	s.mu.Unlock()

	s.metrics.RecordFragmentAppended()
	return true
}

// History returns a snapshot of the most recent appended fragments
func (s *Sink) History() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// GetStats returns current sink statistics
func (s *Sink) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		FragmentsAppended: s.appended,
		FragmentsDropped:  s.dropped,
	}
}
