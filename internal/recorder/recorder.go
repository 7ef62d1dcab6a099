package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antonkf/dictation-service/internal/metrics"
)

// chunkQueueSize bounds the number of completed chunks waiting for
// transcription. Capture of chunk N+1 starts as soon as chunk N is
// emitted, so the queue absorbs a slow recognizer without blocking the
// recording loop.
const chunkQueueSize = 16

// Config contains chunk recording configuration
type Config struct {
	Executable    string
	InputFormat   string
	Device        string
	SampleRate    int
	ChunkDuration time.Duration
	WorkDir       string
	RetryBackoff  time.Duration
}

// Recorder runs the chunk capture loop: one capture subprocess per
// fixed-duration chunk, strictly sequential, each completed chunk emitted
// on the Chunks channel. Recording of the next chunk begins immediately
// after the previous capture completes, so recording never waits for
// transcription.
type Recorder struct {
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	chunks  chan string

	// Statistics
	chunksRecorded  uint64
	captureFailures uint64

	mu sync.RWMutex
}

// Stats represents recorder statistics
type Stats struct {
	ChunksRecorded  uint64 `json:"chunks_recorded"`
	CaptureFailures uint64 `json:"capture_failures"`
}

// New creates a recorder for one session
func New(config Config, logger *slog.Logger, m *metrics.Metrics) *Recorder {
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = time.Second
	}

	return &Recorder{
		config:  config,
		logger:  logger,
		metrics: m,
		chunks:  make(chan string, chunkQueueSize),
	}
}

// Chunks returns the channel of completed chunk file paths. The channel
// is closed when the capture loop exits.
func (r *Recorder) Chunks() <-chan string {
	return r.chunks
}

// Run executes the capture loop until ctx is cancelled. A cancelled
// capture kills the subprocess, removes the partial chunk file, and does
// not emit. Run closes the Chunks channel before returning.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.chunks)

	r.logger.Info("Chunk capture loop started",
		slog.String("work_dir", r.config.WorkDir),
		slog.Duration("chunk_duration", r.config.ChunkDuration),
	)

	for {
		if ctx.Err() != nil {
			r.logger.Info("Chunk capture loop stopping")
			return
		}

		path := r.nextChunkPath()
		startTime := time.Now()

		err := r.captureChunk(ctx, path)
		elapsed := time.Since(startTime)

		if ctx.Err() != nil {
			// Killed by stop/cleanup: discard the partial file, do not
			// emit, do not chain to the next chunk.
			os.Remove(path)
			r.logger.Info("Chunk capture cancelled",
				slog.String("chunk", filepath.Base(path)),
			)
			return
		}

		if err != nil {
			r.incrementCaptureFailures()
			r.metrics.RecordCaptureFailure()
			os.Remove(path)

			r.logger.Warn("Chunk capture failed, continuing after backoff",
				slog.String("chunk", filepath.Base(path)),
				slog.String("error", err.Error()),
				slog.Duration("backoff", r.config.RetryBackoff),
			)

			select {
			case <-time.After(r.config.RetryBackoff):
			case <-ctx.Done():
				return
			}
			continue
		}

		r.incrementChunksRecorded()
		r.metrics.RecordChunkRecorded(elapsed.Seconds())

		r.logger.Debug("Chunk captured",
			slog.String("chunk", filepath.Base(path)),
			slog.Duration("elapsed", elapsed),
		)

		select {
		case r.chunks <- path:
		case <-ctx.Done():
			os.Remove(path)
			return
		}
	}
}

// captureChunk spawns one capture subprocess and waits for it to finish
func (r *Recorder) captureChunk(ctx context.Context, path string) error {
	seconds := strconv.FormatFloat(r.config.ChunkDuration.Seconds(), 'f', -1, 64)

	cmd := exec.CommandContext(ctx, r.config.Executable,
		"-f", r.config.InputFormat,
		"-i", r.config.Device,
		"-t", seconds,
		"-ar", strconv.Itoa(r.config.SampleRate),
		"-ac", "1",
		"-y",
		path,
	)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("capture subprocess: %w", err)
	}
	return nil
}

// nextChunkPath generates a unique timestamped chunk file path
func (r *Recorder) nextChunkPath() string {
	name := fmt.Sprintf("chunk_%d_%s.wav", time.Now().UnixNano(), uuid.NewString()[:8])
	return filepath.Join(r.config.WorkDir, name)
}

func (r *Recorder) incrementChunksRecorded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunksRecorded++
}

func (r *Recorder) incrementCaptureFailures() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captureFailures++
}

// GetStats returns current recorder statistics
func (r *Recorder) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		ChunksRecorded:  r.chunksRecorded,
		CaptureFailures: r.captureFailures,
	}
}
