package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/antonkf/dictation-service/internal/cleaner"
	"github.com/antonkf/dictation-service/internal/config"
	"github.com/antonkf/dictation-service/internal/document"
	"github.com/antonkf/dictation-service/internal/metrics"
	"github.com/antonkf/dictation-service/internal/recorder"
	"github.com/antonkf/dictation-service/internal/server"
	"github.com/antonkf/dictation-service/internal/session"
	"github.com/antonkf/dictation-service/internal/transcriber"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "dictation-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	autoStart := flag.Bool("start", true, "Start a dictation session on launch")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.String("buffer_name", cfg.Session.BufferName),
		slog.String("work_dir", cfg.Session.WorkDir),
		slog.Int("chunk_duration", cfg.Session.ChunkDuration),
		slog.String("capture_executable", cfg.Capture.Executable),
		slog.String("recognition_executable", cfg.Recognition.Executable),
		slog.Bool("cleanup_enabled", cfg.Cleanup.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Target document the session streams into
	doc := document.New(cfg.Session.BufferName)

	// Remote cleanup client (only when enabled)
	var cleanupClient *cleaner.Client
	if cfg.Cleanup.Enabled {
		cleanupClient, err = cleaner.NewClient(cleaner.Config{
			Endpoint:   cfg.Cleanup.Endpoint,
			APIKey:     cfg.Cleanup.APIKey,
			Model:      cfg.Cleanup.Model,
			MaxTokens:  cfg.Cleanup.MaxTokens,
			Prompt:     cfg.Cleanup.Prompt,
			Timeout:    cfg.Cleanup.GetTimeoutDuration(),
			MaxRetries: cfg.Cleanup.MaxRetries,
		}, logger, appMetrics)
		if err != nil {
			logger.Error("Failed to create cleanup client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Remote cleanup client initialized",
			slog.String("endpoint", cfg.Cleanup.Endpoint),
			slog.String("model", cfg.Cleanup.Model),
		)
	}

	// Session controller
	controller := session.NewController(session.Config{
		Capture: recorder.Config{
			Executable:    cfg.Capture.Executable,
			InputFormat:   cfg.Capture.InputFormat,
			Device:        cfg.Capture.Device,
			SampleRate:    cfg.Capture.SampleRate,
			ChunkDuration: cfg.Session.GetChunkDuration(),
			RetryBackoff:  cfg.Capture.GetRetryBackoff(),
		},
		Recognition: transcriber.Config{
			Executable: cfg.Recognition.Executable,
			ExtraArgs:  cfg.Recognition.ExtraArgs,
		},
		TagLabel:      cfg.Session.TagLabel,
		WorkDir:       cfg.Session.WorkDir,
		OutputPath:    cfg.Session.OutputPath,
		MaxHistory:    cfg.Session.MaxHistory,
		DrainTimeout:  cfg.Session.GetDrainTimeout(),
		CleanupFlag:   cfg.Cleanup.Enabled,
		CleanupExpiry: cfg.Cleanup.GetTimeoutDuration(),
	}, nil, cleanupClient, doc, logger, appMetrics)
	logger.Info("Session controller initialized")

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, controller, appMetrics)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("HTTP API server started",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	if *autoStart {
		if err := controller.Start(); err != nil {
			logger.Error("Failed to start dictation session", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Signal surface: SIGUSR1 toggles recording, SIGINT stops the active
	// session and exits, SIGTERM runs the emergency cleanup and exits.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGUSR1, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started, waiting for signals",
		slog.String("toggle", "SIGUSR1"),
		slog.String("stop", "SIGINT"),
		slog.String("cleanup", "SIGTERM"),
	)

	for {
		sig := <-sigChan
		logger.Info("Received signal", slog.String("signal", sig.String()))

		switch sig {
		case syscall.SIGUSR1:
			if err := controller.Toggle(); err != nil {
				logger.Error("Toggle failed", slog.String("error", err.Error()))
			}
			continue

		case os.Interrupt:
			if err := controller.Stop(); err != nil {
				logger.Error("Stop failed", slog.String("error", err.Error()))
			}

		case syscall.SIGTERM:
			controller.Cleanup()
		}

		break
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Log final statistics
	info := controller.GetInfo()
	logger.Info("Final session statistics",
		slog.String("state", info.State),
		slog.Uint64("chunks_recorded", info.Recorder.ChunksRecorded),
		slog.Uint64("capture_failures", info.Recorder.CaptureFailures),
		slog.Uint64("transcriptions", info.Transcriber.Completed),
		slog.Uint64("fragments_appended", info.Sink.FragmentsAppended),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
