package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antonkf/dictation-service/internal/cleaner"
	"github.com/antonkf/dictation-service/internal/document"
	"github.com/antonkf/dictation-service/internal/metrics"
	"github.com/antonkf/dictation-service/internal/recorder"
	"github.com/antonkf/dictation-service/internal/sink"
	"github.com/antonkf/dictation-service/internal/tag"
	"github.com/antonkf/dictation-service/internal/transcriber"
)

// State represents the controller state
type State int

const (
	StateIdle State = iota
	StateRecording
)

// String returns the human-readable state name
func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	default:
		return "idle"
	}
}

var (
	// ErrAlreadyRecording is returned by Start while a session is active
	ErrAlreadyRecording = errors.New("session already recording")

	// ErrMissingExecutable is returned by Start when a required
	// subprocess executable cannot be resolved. It is surfaced before
	// any mutation, so a failed Start leaves no partial state behind.
	ErrMissingExecutable = errors.New("required executable not found")
)

// Config contains controller configuration
type Config struct {
	Capture       recorder.Config
	Recognition   transcriber.Config
	TagLabel      string
	WorkDir       string
	OutputPath    string
	MaxHistory    int
	DrainTimeout  time.Duration
	CleanupFlag   bool
	CleanupExpiry time.Duration
}

// Session holds everything one recording session owns: the frozen tag
// pair, the insertion marker, the working directory, and the pipeline
// handles. All of it lives here rather than in package-level state so
// stop and cleanup can reason about exactly one value.
type Session struct {
	ID        string
	Pair      tag.Pair
	StartTime time.Time

	// cleaned is the cleanup flag frozen at Start. The pair used to
	// close the session must match the pair that opened it, so flag
	// changes mid-session only take effect on the next Start.
	cleaned bool

	marker *document.Marker
	sink   *sink.Sink
	rec    *recorder.Recorder
	trans  *transcriber.Transcriber
	cancel context.CancelFunc
	done   chan struct{}
}

// Controller is the top-level state machine coordinating start, stop,
// toggle, and emergency cleanup of the single dictation session.
type Controller struct {
	config  Config
	parser  transcriber.OutputParser
	cleanup *cleaner.Client
	doc     *document.Document
	logger  *slog.Logger
	metrics *metrics.Metrics

	state       State
	sess        *Session
	cleanupFlag bool

	mu sync.Mutex
}

// Info represents controller state for monitoring
type Info struct {
	State          string            `json:"state"`
	CleanupEnabled bool              `json:"cleanup_enabled"`
	SessionID      string            `json:"session_id,omitempty"`
	StartTime      time.Time         `json:"start_time,omitempty"`
	Duration       time.Duration     `json:"duration,omitempty"`
	Recorder       recorder.Stats    `json:"recorder"`
	Transcriber    transcriber.Stats `json:"transcriber"`
	Sink           sink.Stats        `json:"sink"`
	HistoryTail    []string          `json:"history_tail,omitempty"`
}

// NewController creates the session controller. cleanupClient may be nil
// when remote cleanup is disabled; parser nil selects the default
// recognizer output convention.
func NewController(config Config, parser transcriber.OutputParser, cleanupClient *cleaner.Client,
	doc *document.Document, logger *slog.Logger, m *metrics.Metrics) *Controller {

	if config.DrainTimeout <= 0 {
		config.DrainTimeout = 60 * time.Second
	}
	if config.CleanupExpiry <= 0 {
		config.CleanupExpiry = 30 * time.Second
	}

	return &Controller{
		config:      config,
		parser:      parser,
		cleanup:     cleanupClient,
		doc:         doc,
		logger:      logger,
		metrics:     m,
		state:       StateIdle,
		cleanupFlag: config.CleanupFlag,
	}
}

// SetCleanupEnabled changes the cleanup flag. The flag is frozen into the
// tag pair at Start, so a change during an active session takes effect on
// the next Start only.
func (c *Controller) SetCleanupEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFlag = enabled
}

// State returns the current controller state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins a new recording session. It fails with
// ErrAlreadyRecording while a session is active and with
// ErrMissingExecutable when a subprocess cannot be resolved.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRecording {
		return ErrAlreadyRecording
	}

	// Resolve both executables before touching the document, so a
	// misconfigured session never gets a dangling start tag.
	if _, err := exec.LookPath(c.config.Capture.Executable); err != nil {
		return fmt.Errorf("%w: capture %q: %v", ErrMissingExecutable, c.config.Capture.Executable, err)
	}
	if _, err := exec.LookPath(c.config.Recognition.Executable); err != nil {
		return fmt.Errorf("%w: recognition %q: %v", ErrMissingExecutable, c.config.Recognition.Executable, err)
	}

	if err := os.MkdirAll(c.config.WorkDir, 0o755); err != nil {
		return fmt.Errorf("failed to create work dir %s: %w", c.config.WorkDir, err)
	}
	c.sweepStaleChunks()

	cleaned := c.cleanupFlag && c.cleanup != nil
	pair := tag.NewPair(c.config.TagLabel, cleaned)

	if err := c.doc.Insert(c.doc.Len(), pair.Start); err != nil {
		return fmt.Errorf("failed to write start tag: %w", err)
	}
	marker := c.doc.CreateMarker(c.doc.Len())

	s := sink.New(marker, c.config.MaxHistory, c.logger, c.metrics)

	recConfig := c.config.Capture
	recConfig.WorkDir = c.config.WorkDir
	rec := recorder.New(recConfig, c.logger, c.metrics)
	trans := transcriber.New(c.config.Recognition, c.parser, s, c.logger, c.metrics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	sess := &Session{
		ID:        uuid.NewString(),
		Pair:      pair,
		StartTime: time.Now(),
		cleaned:   cleaned,
		marker:    marker,
		sink:      s,
		rec:       rec,
		trans:     trans,
		cancel:    cancel,
		done:      done,
	}

	go rec.Run(ctx)
	go func() {
		trans.Drain(rec.Chunks())
		close(done)
	}()

	c.sess = sess
	c.state = StateRecording
	c.metrics.RecordSessionStarted()

	c.logger.Info("Dictation session started",
		slog.String("session_id", sess.ID),
		slog.String("start_tag", pair.Start),
		slog.Bool("cleanup_enabled", cleaned),
		slog.String("work_dir", c.config.WorkDir),
	)

	return nil
}

// Stop finalizes the active session: it kills the capture loop, drains
// in-flight transcriptions, closes the tag region, optionally runs the
// remote cleanup, and replaces the tagged span with the final tag-free
// text. Stop while idle is a no-op and returns nil.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return nil
	}
	sess := c.sess

	sess.cancel()

	// Drain: the recorder closes its channel on cancellation and the
	// transcriber finishes the chunks already queued, so every fragment
	// from a completed capture lands before the end tag is written.
	select {
	case <-sess.done:
	case <-time.After(c.config.DrainTimeout):
		c.logger.Warn("Drain timeout reached, finalizing with inserted fragments",
			slog.String("session_id", sess.ID),
			slog.Duration("timeout", c.config.DrainTimeout),
		)
	}

	if !sess.marker.Insert(sess.Pair.End) {
		c.logger.Warn("Could not write end tag, insertion marker is gone",
			slog.String("session_id", sess.ID),
		)
	}

	c.finalizeRegion(sess)

	sess.marker.Invalidate()
	c.purgeWorkDir()

	duration := time.Since(sess.StartTime)
	c.sess = nil
	c.state = StateIdle
	c.metrics.RecordSessionStopped(duration.Seconds())

	c.logger.Info("Dictation session stopped",
		slog.String("session_id", sess.ID),
		slog.Duration("duration", duration),
		slog.Uint64("chunks_recorded", sess.rec.GetStats().ChunksRecorded),
		slog.Uint64("fragments_appended", sess.sink.GetStats().FragmentsAppended),
	)

	return nil
}

// Toggle starts a session when idle and stops it when recording
func (c *Controller) Toggle() error {
	if c.State() == StateRecording {
		return c.Stop()
	}
	return c.Start()
}

// Cleanup is the emergency reset: it kills any active subprocess,
// invalidates the marker, clears the session, and purges the working
// directory. Every step tolerates faults so Cleanup succeeds from any
// state, including a corrupted one.
func (c *Controller) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != nil {
		c.sess.cancel()

		select {
		case <-c.sess.done:
		case <-time.After(2 * time.Second):
		}

		c.sess.marker.Invalidate()

		c.logger.Info("Session cleared by emergency cleanup",
			slog.String("session_id", c.sess.ID),
		)
	}

	c.purgeWorkDir()

	c.sess = nil
	c.state = StateIdle
	c.metrics.RecordSessionCleanup()
}

// finalizeRegion extracts the tagged span, optionally cleans it, and
// overwrites the span with the final text. Failures leave the raw tagged
// text in place rather than losing it.
func (c *Controller) finalizeRegion(sess *Session) {
	region := tag.NewRegion(c.doc, sess.Pair)

	raw, err := region.Extract()
	if err != nil {
		c.logger.Warn("Tag region not found, leaving document unchanged",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	final := strings.TrimSpace(sess.Pair.Strip(raw))

	if sess.cleaned && c.cleanup != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.config.CleanupExpiry)
		result := c.cleanup.Clean(ctx, final)
		cancel()

		if result.Fallback {
			c.logger.Warn("Remote cleanup fell back to raw transcript",
				slog.String("session_id", sess.ID),
				slog.Int("attempts", result.Attempts),
				slog.String("error", result.Err.Error()),
			)
		}
		final = strings.TrimSpace(result.Text)
	}

	if err := region.Overwrite(final); err != nil {
		c.logger.Warn("Failed to overwrite tag region",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if c.config.OutputPath != "" {
		if err := os.WriteFile(c.config.OutputPath, []byte(final+"\n"), 0o644); err != nil {
			c.logger.Warn("Failed to write transcript output file",
				slog.String("path", c.config.OutputPath),
				slog.String("error", err.Error()),
			)
		}
	}
}

// sweepStaleChunks removes chunk files orphaned by a previous run
func (c *Controller) sweepStaleChunks() {
	stale, err := filepath.Glob(filepath.Join(c.config.WorkDir, "chunk_*.wav"))
	if err != nil || len(stale) == 0 {
		return
	}

	for _, path := range stale {
		os.Remove(path)
	}

	c.logger.Info("Swept stale chunk files from previous run",
		slog.Int("count", len(stale)),
		slog.String("work_dir", c.config.WorkDir),
	)
}

// purgeWorkDir removes the chunk working directory, errors swallowed
func (c *Controller) purgeWorkDir() {
	if err := os.RemoveAll(c.config.WorkDir); err != nil {
		c.logger.Warn("Failed to purge work dir",
			slog.String("work_dir", c.config.WorkDir),
			slog.String("error", err.Error()),
		)
	}
}

// GetInfo returns a snapshot of the controller for monitoring
func (c *Controller) GetInfo() Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := Info{
		State:          c.state.String(),
		CleanupEnabled: c.cleanupFlag && c.cleanup != nil,
	}

	if c.sess != nil {
		info.SessionID = c.sess.ID
		info.StartTime = c.sess.StartTime
		info.Duration = time.Since(c.sess.StartTime)
		info.Recorder = c.sess.rec.GetStats()
		info.Transcriber = c.sess.trans.GetStats()
		info.Sink = c.sess.sink.GetStats()
		info.HistoryTail = c.sess.sink.History()
	}

	return info
}
