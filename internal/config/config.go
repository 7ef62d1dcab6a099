package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// apiKeyEnv is consulted when cleanup.api_key is not set in the file
const apiKeyEnv = "ANTHROPIC_API_KEY"

// Config represents the complete service configuration
type Config struct {
	Session     SessionConfig     `yaml:"session"`
	Capture     CaptureConfig     `yaml:"capture"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Cleanup     CleanupConfig     `yaml:"cleanup"`
	HTTP        HTTPConfig        `yaml:"http"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SessionConfig contains dictation session parameters
type SessionConfig struct {
	BufferName    string `yaml:"buffer_name"`
	OutputPath    string `yaml:"output_path"`
	WorkDir       string `yaml:"work_dir"`
	ChunkDuration int    `yaml:"chunk_duration"` // seconds
	MaxHistory    int    `yaml:"max_history"`
	DrainTimeout  int    `yaml:"drain_timeout"` // seconds
	TagLabel      string `yaml:"tag_label"`
}

// CaptureConfig contains audio capture subprocess configuration
type CaptureConfig struct {
	Executable   string `yaml:"executable"`
	InputFormat  string `yaml:"input_format"`
	Device       string `yaml:"device"`
	SampleRate   int    `yaml:"sample_rate"`
	RetryBackoff int    `yaml:"retry_backoff"` // seconds
}

// RecognitionConfig contains speech recognition subprocess configuration
type RecognitionConfig struct {
	Executable string   `yaml:"executable"`
	ExtraArgs  []string `yaml:"extra_args"`
}

// CleanupConfig contains remote transcript cleanup configuration
type CleanupConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	MaxTokens  int    `yaml:"max_tokens"`
	Prompt     string `yaml:"prompt"`
	Timeout    int    `yaml:"timeout"` // seconds
	MaxRetries int    `yaml:"max_retries"`
}

// HTTPConfig contains monitoring HTTP server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyDefaults fills in values the file may omit
func (c *Config) applyDefaults() {
	if c.Session.WorkDir == "" {
		c.Session.WorkDir = filepath.Join(os.TempDir(), "dictation-chunks")
	}
	if c.Session.ChunkDuration == 0 {
		c.Session.ChunkDuration = 5
	}
	if c.Session.DrainTimeout == 0 {
		c.Session.DrainTimeout = 60
	}
	if c.Session.TagLabel == "" {
		c.Session.TagLabel = "dictation"
	}
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = 16000
	}
	if c.Cleanup.APIKey == "" {
		c.Cleanup.APIKey = os.Getenv(apiKeyEnv)
	}
	if c.Cleanup.MaxTokens == 0 {
		c.Cleanup.MaxTokens = 2048
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Recognition.Validate(); err != nil {
		return fmt.Errorf("recognition config: %w", err)
	}

	if err := c.Cleanup.Validate(); err != nil {
		return fmt.Errorf("cleanup config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates session configuration
func (s *SessionConfig) Validate() error {
	if s.BufferName == "" {
		return fmt.Errorf("buffer_name cannot be empty")
	}

	if s.WorkDir == "" {
		return fmt.Errorf("work_dir cannot be empty")
	}

	if s.ChunkDuration < 1 {
		return fmt.Errorf("chunk_duration must be at least 1 second, got %d", s.ChunkDuration)
	}

	if s.MaxHistory < 0 {
		return fmt.Errorf("max_history cannot be negative, got %d", s.MaxHistory)
	}

	if s.DrainTimeout < 1 {
		return fmt.Errorf("drain_timeout must be at least 1 second, got %d", s.DrainTimeout)
	}

	if s.TagLabel == "" {
		return fmt.Errorf("tag_label cannot be empty")
	}

	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	if c.Executable == "" {
		return fmt.Errorf("executable cannot be empty")
	}

	if c.InputFormat == "" {
		return fmt.Errorf("input_format cannot be empty")
	}

	if c.Device == "" {
		return fmt.Errorf("device cannot be empty")
	}

	if c.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz for the recognizer, got %d", c.SampleRate)
	}

	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry_backoff cannot be negative, got %d", c.RetryBackoff)
	}

	return nil
}

// Validate validates recognition configuration
func (r *RecognitionConfig) Validate() error {
	if r.Executable == "" {
		return fmt.Errorf("executable cannot be empty")
	}

	return nil
}

// Validate validates cleanup configuration
func (c *CleanupConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty when cleanup is enabled")
	}

	if c.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty when cleanup is enabled (set %s)", apiKeyEnv)
	}

	if c.Model == "" {
		return fmt.Errorf("model cannot be empty when cleanup is enabled")
	}

	if c.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be at least 1, got %d", c.MaxTokens)
	}

	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", c.Timeout)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", c.MaxRetries)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetChunkDuration returns the chunk duration as a time.Duration
func (s *SessionConfig) GetChunkDuration() time.Duration {
	return time.Duration(s.ChunkDuration) * time.Second
}

// GetDrainTimeout returns the stop drain timeout as a time.Duration
func (s *SessionConfig) GetDrainTimeout() time.Duration {
	return time.Duration(s.DrainTimeout) * time.Second
}

// GetRetryBackoff returns the capture retry backoff as a time.Duration
func (c *CaptureConfig) GetRetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoff) * time.Second
}

// GetTimeoutDuration returns the cleanup timeout as a time.Duration
func (c *CleanupConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
