package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	llmAPIVersion     = "2023-06-01"
	llmDefaultRetries = 2
	llmBaseBackoff    = 500 * time.Millisecond
	llmRateLimit      = 2 // requests per second
	llmRateBurst      = 4
)

// LLMMessage is one conversation turn sent to the gateway.
type LLMMessage struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

// LLMClient talks to an Anthropic-style messages API over plain HTTP.
// Complete blocks for the full reply; Stream delivers text deltas as the
// gateway produces them. Both respect ctx cancellation, rate-limit
// locally, and retry transient failures with exponential backoff.
type LLMClient struct {
	model      string
	apiKey     string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

// NewLLMClient builds a client. apiKey must be non-empty.
func NewLLMClient(baseURL, apiKey, model string, maxTokens int, timeout time.Duration) (*LLMClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("LLM API key required")
	}
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &LLMClient{
		model:      model,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(llmRateLimit), llmRateBurst),
		maxRetries: llmDefaultRetries,
	}, nil
}

type llmRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []LLMMessage `json:"messages"`
	Stream    bool         `json:"stream,omitempty"`
}

type llmResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type llmErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// streamEvent is one SSE data payload from the gateway's streamed reply.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// Complete sends the conversation and blocks for the full reply text.
func (c *LLMClient) Complete(ctx context.Context, system string, messages []LLMMessage) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	req := llmRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  messages,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := llmBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := c.doComplete(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *LLMClient) doComplete(ctx context.Context, req llmRequest) (string, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if err := checkStatus(resp.StatusCode, body); err != nil {
		return "", err
	}

	var parsed llmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("empty response from gateway")
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// Stream sends the conversation and calls onDelta for each text delta as
// it arrives. Connection-level failures retry until the first delta has
// been delivered; after that the stream is the caller's to consume once.
func (c *LLMClient) Stream(ctx context.Context, system string, messages []LLMMessage, onDelta func(text string) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req := llmRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  messages,
		Stream:    true,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := llmBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		delivered, err := c.doStream(ctx, req, onDelta)
		if err == nil {
			return nil
		}
		if delivered || !isRetryableError(err) {
			// Never retry mid-stream: the caller already saw output.
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doStream reports whether any delta reached the caller along with the error.
func (c *LLMClient) doStream(ctx context.Context, req llmRequest, onDelta func(text string) error) (bool, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return false, checkStatus(resp.StatusCode, body)
	}

	delivered := false
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var evt streamEvent
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			continue
		}

		switch evt.Type {
		case "content_block_delta":
			if evt.Delta.Type == "text_delta" && evt.Delta.Text != "" {
				if err := onDelta(evt.Delta.Text); err != nil {
					return delivered, err
				}
				delivered = true
			}
		case "message_stop":
			return delivered, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return delivered, &retryableError{err: fmt.Errorf("stream read: %w", err)}
	}
	return delivered, nil
}

func (c *LLMClient) send(ctx context.Context, req llmRequest) (*http.Response, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", llmAPIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("gateway request failed: %w", err)}
	}
	return resp, nil
}

func checkStatus(status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return &retryableError{err: fmt.Errorf("rate limited (429)")}
	case status >= 500:
		return &retryableError{err: fmt.Errorf("gateway error (%d): %s", status, string(body))}
	}

	var errResp llmErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("gateway error (%d): %s", status, errResp.Error.Message)
	}
	return fmt.Errorf("gateway error (%d): %s", status, string(body))
}
