// Package assistant proxies the career assistant's calls to the Anthropic
// Messages API: chat, job posting extraction and profile extraction.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// ErrEmptyResponse is returned when the API answers with no text content.
var ErrEmptyResponse = errors.New("empty response from claude")

// Options configures a Client.
type Options struct {
	APIKey           string
	Model            string
	BaseURL          string        // defaults to the public API
	MaxContextTokens int           // chat history budget
	StatsWindow      time.Duration // latency window for Stats
	Timeout          time.Duration
}

// Client calls the Anthropic Messages API.
type Client struct {
	apiKey           string
	model            string
	baseURL          string
	maxContextTokens int
	httpClient       *http.Client

	Stats *LLMStats
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	maxCtx := opts.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = 6000
	}
	return &Client{
		apiKey:           opts.APIKey,
		model:            opts.Model,
		baseURL:          baseURL,
		maxContextTokens: maxCtx,
		httpClient:       &http.Client{Timeout: timeout},
		Stats:            NewLLMStats(opts.StatsWindow),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// StatsSnapshot returns the current latency aggregate.
func (c *Client) StatsSnapshot() StatsSnapshot { return c.Stats.Snapshot() }

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// complete sends one Messages request and returns the concatenated text
// blocks of the reply.
func (c *Client) complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.Stats.RecordError()
		return "", fmt.Errorf("claude api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.Stats.RecordError()
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		c.Stats.RecordError()
		return "", &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		c.Stats.RecordError()
		return "", fmt.Errorf("claude api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
	c.Stats.Record(time.Since(start).Milliseconds())

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("claude error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	var sb strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// completeJSON runs a single-turn prompt, checks the JSON object in the
// reply against schema and decodes it into out.
func (c *Client) completeJSON(ctx context.Context, prompt string, schema func() (*jsonschema.Schema, error), out any) error {
	text, err := c.complete(ctx, "", []Message{{Role: "user", Content: prompt}}, 2048)
	if err != nil {
		return err
	}
	raw := []byte(stripCodeBlock(text))
	if err := checkShape(schema, raw); err != nil {
		return fmt.Errorf("%w (raw: %s)", err, truncate(string(raw), 200))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse json reply: %w", err)
	}
	return nil
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
