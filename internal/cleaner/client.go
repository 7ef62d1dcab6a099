package cleaner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antonkf/dictation-service/internal/metrics"
)

// protocolVersion is the versioned protocol tag the endpoint requires
const protocolVersion = "2023-06-01"

// Client issues transcript cleanup requests against the remote messages
// endpoint. Cleanup is best-effort by contract: Clean never returns an
// error, it falls back to the input text and reports the fallback in the
// Result.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics

	// Statistics
	totalRequests   uint64
	fallbacks       uint64
	totalRetries    uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// Config contains remote cleanup client configuration
type Config struct {
	Endpoint   string
	APIKey     string
	Model      string
	MaxTokens  int
	Prompt     string
	Timeout    time.Duration
	MaxRetries int
}

// Result reports the outcome of one cleanup call. When Fallback is true,
// Text is the unmodified input and Err holds the last failure.
type Result struct {
	Text     string
	Fallback bool
	Err      error
	Attempts int
	Elapsed  time.Duration
}

// ClientStats represents cleanup client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	Fallbacks       uint64        `json:"fallbacks"`
	TotalRetries    uint64        `json:"total_retries"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// messagesRequest is the request body of the messages endpoint
type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the subset of the response body the client reads
type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewClient creates a new remote cleanup client
func NewClient(config Config, logger *slog.Logger, m *metrics.Metrics) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.MaxRetries < 0 {
		config.MaxRetries = 2
	}

	if config.MaxTokens <= 0 {
		config.MaxTokens = 2048
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		metrics:    m,
	}, nil
}

// Clean sends the raw transcript for cleanup and returns the cleaned text.
// An empty input short-circuits without a network round trip. On any
// failure the Result carries the original text with Fallback set; the
// error never propagates.
func (c *Client) Clean(ctx context.Context, rawText string) Result {
	if rawText == "" {
		return Result{Text: rawText}
	}

	requestID := uuid.NewString()
	startTime := time.Now()
	c.incrementTotalRequests()

	var lastErr error
	attempts := 0

	// Retry loop with exponential backoff, mirroring the transcription
	// path's discipline before giving up and falling back
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		attempts++

		if attempt > 0 {
			c.incrementTotalRetries()
			c.metrics.RecordCleanupRetry()

			backoffTime := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			if backoffTime > 10*time.Second {
				backoffTime = 10 * time.Second
			}

			select {
			case <-time.After(backoffTime):
			case <-ctx.Done():
				lastErr = ctx.Err()
				return c.fallback(rawText, lastErr, attempts, time.Since(startTime))
			}
		}

		cleaned, err := c.doRequest(ctx, rawText)
		if err == nil {
			elapsed := time.Since(startTime)
			c.updateAvgResponseTime(elapsed)
			c.metrics.RecordCleanupRequest(false, elapsed.Seconds())

			c.logger.Info("Remote cleanup completed",
				slog.String("request_id", requestID),
				slog.Int("attempts", attempts),
				slog.Int("raw_length", len(rawText)),
				slog.Int("cleaned_length", len(cleaned)),
				slog.Duration("elapsed", elapsed),
			)

			return Result{Text: cleaned, Attempts: attempts, Elapsed: elapsed}
		}

		lastErr = err

		if !c.isRetryableError(err) {
			break
		}
	}

	c.logger.Warn("Remote cleanup failed, falling back to original text",
		slog.String("request_id", requestID),
		slog.Int("attempts", attempts),
		slog.String("error", lastErr.Error()),
	)

	return c.fallback(rawText, lastErr, attempts, time.Since(startTime))
}

// fallback builds the failure Result and records the outcome
func (c *Client) fallback(rawText string, err error, attempts int, elapsed time.Duration) Result {
	c.incrementFallbacks()
	c.metrics.RecordCleanupRequest(true, elapsed.Seconds())
	return Result{Text: rawText, Fallback: true, Err: err, Attempts: attempts, Elapsed: elapsed}
}

// doRequest performs a single HTTP request against the messages endpoint
func (c *Client) doRequest(ctx context.Context, rawText string) (string, error) {
	prompt := c.config.Prompt + "\n\n" + rawText

	reqBody := messagesRequest{
		Model:     c.config.Model,
		MaxTokens: c.config.MaxTokens,
		Messages: []message{
			{Role: "user", Content: prompt},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.config.APIKey)
	httpReq.Header.Set("Anthropic-Version", protocolVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(respBody, &msgResp); err != nil {
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}

	if len(msgResp.Content) == 0 {
		return "", fmt.Errorf("response contains no content blocks")
	}

	return msgResp.Content[0].Text, nil
}

// isRetryableError determines if an error is worth another attempt
func (c *Client) isRetryableError(err error) bool {
	if err == context.DeadlineExceeded {
		return true
	}

	errStr := err.Error()

	// 5xx server errors and rate limiting are retryable
	if strings.Contains(errStr, "HTTP error 5") || strings.Contains(errStr, "HTTP error 429") {
		return true
	}

	// Network/connection errors are typically retryable
	if strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "refused") {
		return true
	}

	return false
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementFallbacks() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallbacks++
}

func (c *Client) incrementTotalRetries() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRetries++
}

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return ClientStats{
		TotalRequests:   c.totalRequests,
		Fallbacks:       c.fallbacks,
		TotalRetries:    c.totalRetries,
		AvgResponseTime: c.avgResponseTime,
	}
}
