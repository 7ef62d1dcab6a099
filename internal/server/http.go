package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/antonkf/dictation-service/internal/config"
	"github.com/antonkf/dictation-service/internal/metrics"
	"github.com/antonkf/dictation-service/internal/session"
)

// HTTPServer provides HTTP API endpoints for monitoring the dictation
// service. It is observability only; the session is driven by signals.
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	controller *session.Controller
	metrics    *metrics.Metrics

	// Server state
	startTime time.Time
	mu        sync.RWMutex
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, controller *session.Controller, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:     logger,
		config:     appConfig,
		controller: controller,
		metrics:    m,
		startTime:  time.Now(),
	}

	// Create HTTP server with routes
	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Session status endpoint
	mux.HandleFunc("/status", h.withMetrics("/status", h.handleStatus))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call the original handler
		handler(ww, r)

		// Record metrics
		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		// Record error if status code indicates an error
		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	info := h.controller.GetInfo()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "dictation-service",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"session": map[string]interface{}{
				"state":           info.State,
				"cleanup_enabled": info.CleanupEnabled,
			},
			"pipeline": map[string]interface{}{
				"chunks_recorded":    info.Recorder.ChunksRecorded,
				"capture_failures":   info.Recorder.CaptureFailures,
				"transcriptions":     info.Transcriber.Completed,
				"fragments_appended": info.Sink.FragmentsAppended,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStatus implements the /status endpoint
func (h *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	info := h.controller.GetInfo()

	response := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"session":   info,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"session": map[string]interface{}{
			"buffer_name":    h.config.Session.BufferName,
			"output_path":    h.config.Session.OutputPath,
			"work_dir":       h.config.Session.WorkDir,
			"chunk_duration": h.config.Session.ChunkDuration,
			"max_history":    h.config.Session.MaxHistory,
			"drain_timeout":  h.config.Session.DrainTimeout,
			"tag_label":      h.config.Session.TagLabel,
		},
		"capture": map[string]interface{}{
			"executable":    h.config.Capture.Executable,
			"input_format":  h.config.Capture.InputFormat,
			"device":        h.config.Capture.Device,
			"sample_rate":   h.config.Capture.SampleRate,
			"retry_backoff": h.config.Capture.RetryBackoff,
		},
		"recognition": map[string]interface{}{
			"executable": h.config.Recognition.Executable,
			"extra_args": h.config.Recognition.ExtraArgs,
		},
		"cleanup": map[string]interface{}{
			"enabled":     h.config.Cleanup.Enabled,
			"endpoint":    h.config.Cleanup.Endpoint,
			"model":       h.config.Cleanup.Model,
			"max_tokens":  h.config.Cleanup.MaxTokens,
			"timeout":     h.config.Cleanup.Timeout,
			"max_retries": h.config.Cleanup.MaxRetries,
			// Note: API key is intentionally omitted for security
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Dictation Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":        "API documentation",
			"GET /health":  "Service health check",
			"GET /status":  "Current session status and fragment history",
			"GET /config":  "Get service configuration",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
