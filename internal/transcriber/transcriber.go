package transcriber

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/antonkf/dictation-service/internal/cleaner"
	"github.com/antonkf/dictation-service/internal/metrics"
)

// Sink receives cleaned transcript fragments in chunk order
type Sink interface {
	Append(text string) bool
}

// Config contains recognition subprocess configuration
type Config struct {
	Executable string
	ExtraArgs  []string
}

// Transcriber consumes completed chunk files, runs the recognition
// subprocess on each, and appends the cleaned payload to the sink. It is
// the single consumer of the recorder's channel, so fragments are
// inserted strictly in chunk-creation order while chunk N's recognition
// overlaps chunk N+1's recording. Every per-chunk failure is absorbed:
// a broken recognizer degrades to logged, counted data loss, never a
// stopped session.
type Transcriber struct {
	config  Config
	parser  OutputParser
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Statistics
	completed   uint64
	failures    uint64
	parseMisses uint64

	mu sync.RWMutex
}

// Stats represents transcriber statistics
type Stats struct {
	Completed   uint64 `json:"completed"`
	Failures    uint64 `json:"failures"`
	ParseMisses uint64 `json:"parse_misses"`
}

// New creates a transcriber. A nil parser selects the default
// blank-line-isolated payload convention.
func New(config Config, parser OutputParser, sink Sink, logger *slog.Logger, m *metrics.Metrics) *Transcriber {
	if parser == nil {
		parser = BlankLineParser{}
	}

	return &Transcriber{
		config:  config,
		parser:  parser,
		sink:    sink,
		logger:  logger,
		metrics: m,
	}
}

// Drain processes chunk paths until the channel is closed. It runs each
// chunk to completion, including the insert, before taking the next, so
// insertion order matches chunk-creation order.
func (t *Transcriber) Drain(chunks <-chan string) {
	for path := range chunks {
		t.processChunk(path)
	}
}

// processChunk transcribes one chunk file and appends the cleaned
// fragment. The chunk file is always deleted afterward, regardless of
// outcome, to bound disk usage.
func (t *Transcriber) processChunk(path string) {
	defer os.Remove(path)

	startTime := time.Now()

	args := append(append([]string{}, t.config.ExtraArgs...), path)
	cmd := exec.Command(t.config.Executable, args...)

	// The recognizer's transcript convention covers its combined output,
	// not just stdout.
	output, err := cmd.CombinedOutput()
	elapsed := time.Since(startTime)

	if err != nil {
		t.incrementFailures()
		t.metrics.RecordTranscriptionFailure(elapsed.Seconds())

		t.logger.Warn("Recognition subprocess failed, chunk skipped",
			slog.String("chunk", filepath.Base(path)),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", elapsed),
		)
		return
	}

	payload, err := t.parser.Parse(string(output))
	if err != nil {
		t.incrementParseMisses()
		t.metrics.RecordTranscriptParseMiss()

		t.logger.Warn("Recognizer output carried no transcript payload, chunk skipped",
			slog.String("chunk", filepath.Base(path)),
			slog.Int("output_length", len(output)),
		)
		return
	}

	fragment := cleaner.StripAnnotations(payload)
	if fragment == "" {
		// Annotation-only chunks ("[BLANK_AUDIO]" etc) produce no text
		t.logger.Debug("Fragment empty after annotation stripping, chunk skipped",
			slog.String("chunk", filepath.Base(path)),
		)
		return
	}

	t.sink.Append(fragment + " ")

	t.incrementCompleted()
	t.metrics.RecordTranscriptionCompleted(elapsed.Seconds())

	t.logger.Info("Chunk transcribed",
		slog.String("chunk", filepath.Base(path)),
		slog.Int("fragment_length", len(fragment)),
		slog.Duration("elapsed", elapsed),
	)
}

func (t *Transcriber) incrementCompleted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed++
}

func (t *Transcriber) incrementFailures() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures++
}

func (t *Transcriber) incrementParseMisses() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.parseMisses++
}

// GetStats returns current transcriber statistics
func (t *Transcriber) GetStats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return Stats{
		Completed:   t.completed,
		Failures:    t.failures,
		ParseMisses: t.parseMisses,
	}
}
