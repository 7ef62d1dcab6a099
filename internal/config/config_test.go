package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Session: SessionConfig{
			BufferName:    "dictation",
			WorkDir:       "/tmp/dictation-chunks",
			ChunkDuration: 5,
			MaxHistory:    32,
			DrainTimeout:  60,
			TagLabel:      "dictation",
		},
		Capture: CaptureConfig{
			Executable:   "ffmpeg",
			InputFormat:  "alsa",
			Device:       "default",
			SampleRate:   16000,
			RetryBackoff: 1,
		},
		Recognition: RecognitionConfig{
			Executable: "whisper-cli",
		},
		Cleanup: CleanupConfig{
			Enabled:    true,
			Endpoint:   "https://api.example.com/v1/messages",
			APIKey:     "test-key",
			Model:      "test-model",
			MaxTokens:  2048,
			Timeout:    30,
			MaxRetries: 2,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Address: "127.0.0.1",
			Port:    8090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid configuration",
			mutate: func(c *Config) {},
		},
		{
			name:        "empty buffer name",
			mutate:      func(c *Config) { c.Session.BufferName = "" },
			expectError: true,
			errorMsg:    "buffer_name cannot be empty",
		},
		{
			name:        "zero chunk duration",
			mutate:      func(c *Config) { c.Session.ChunkDuration = 0 },
			expectError: true,
			errorMsg:    "chunk_duration must be at least 1 second",
		},
		{
			name:        "negative max history",
			mutate:      func(c *Config) { c.Session.MaxHistory = -1 },
			expectError: true,
			errorMsg:    "max_history cannot be negative",
		},
		{
			name:        "empty capture executable",
			mutate:      func(c *Config) { c.Capture.Executable = "" },
			expectError: true,
			errorMsg:    "executable cannot be empty",
		},
		{
			name:        "wrong sample rate",
			mutate:      func(c *Config) { c.Capture.SampleRate = 8000 },
			expectError: true,
			errorMsg:    "sample_rate must be 16000 Hz",
		},
		{
			name:        "empty recognition executable",
			mutate:      func(c *Config) { c.Recognition.Executable = "" },
			expectError: true,
			errorMsg:    "executable cannot be empty",
		},
		{
			name:        "cleanup enabled without API key",
			mutate:      func(c *Config) { c.Cleanup.APIKey = "" },
			expectError: true,
			errorMsg:    "api_key cannot be empty when cleanup is enabled",
		},
		{
			name: "cleanup disabled skips cleanup validation",
			mutate: func(c *Config) {
				c.Cleanup = CleanupConfig{Enabled: false}
			},
		},
		{
			name:        "invalid http port",
			mutate:      func(c *Config) { c.HTTP.Port = 70000 },
			expectError: true,
			errorMsg:    "http port must be between 1 and 65535",
		},
		{
			name: "http disabled skips http validation",
			mutate: func(c *Config) {
				c.HTTP = HTTPConfig{Enabled: false}
			},
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "verbose" },
			expectError: true,
			errorMsg:    "level must be one of",
		},
		{
			name:        "invalid log format",
			mutate:      func(c *Config) { c.Logging.Format = "xml" },
			expectError: true,
			errorMsg:    "format must be 'json' or 'text'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Fatal("expected validation error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("error = %q, want substring %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	content := `
session:
  buffer_name: "notes"
  chunk_duration: 3
  max_history: 16
  tag_label: "notes"

capture:
  executable: "ffmpeg"
  input_format: "pulse"
  device: "default"

recognition:
  executable: "whisper-cli"
  extra_args: ["-m", "models/base.bin"]

cleanup:
  enabled: false

http:
  enabled: false

logging:
  level: "debug"
  format: "json"
  output: "stderr"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Session.BufferName != "notes" {
		t.Errorf("BufferName = %q, want %q", cfg.Session.BufferName, "notes")
	}
	if cfg.Session.GetChunkDuration() != 3*time.Second {
		t.Errorf("chunk duration = %v, want 3s", cfg.Session.GetChunkDuration())
	}
	if len(cfg.Recognition.ExtraArgs) != 2 {
		t.Errorf("ExtraArgs = %v, want 2 entries", cfg.Recognition.ExtraArgs)
	}

	// Defaults applied for omitted values
	if cfg.Session.WorkDir == "" {
		t.Error("WorkDir default not applied")
	}
	if cfg.Session.DrainTimeout != 60 {
		t.Errorf("DrainTimeout = %d, want default 60", cfg.Session.DrainTimeout)
	}
	if cfg.Capture.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want default 16000", cfg.Capture.SampleRate)
	}
}

func TestLoadAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	content := `
session:
  buffer_name: "notes"

capture:
  executable: "ffmpeg"
  input_format: "alsa"
  device: "default"

recognition:
  executable: "whisper-cli"

cleanup:
  enabled: true
  endpoint: "https://api.example.com/v1/messages"
  model: "test-model"
  timeout: 30

logging:
  level: "info"
  format: "text"
  output: "stdout"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Cleanup.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-sourced %q", cfg.Cleanup.APIKey, "env-key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("session: [not a mapping"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}
