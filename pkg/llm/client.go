// Package llm implements the OpenAI-compatible chat completion client
// used to answer questions, pointed at the DeepSeek API by default.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmarinova/cvgate/pkg/config"
	"github.com/dmarinova/cvgate/pkg/models"
)

const completionsPath = "/v1/chat/completions"

// Client calls a chat-completions endpoint with fixed generation
// parameters (low temperature, bounded output length).
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpc       *http.Client
}

// New creates a Client from config. An empty API key is allowed; the
// client then reports itself unconfigured and Complete fails.
func New(cfg config.LLMConfig) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpc:       &http.Client{Timeout: cfg.Timeout.Std()},
	}
}

// Configured reports whether a usable credential is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Complete sends a system instruction and user message and returns the
// generated text with surrounding whitespace trimmed.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	target, err := url.Parse(c.baseURL + completionsPath)
	if err != nil {
		return "", fmt.Errorf("invalid provider URL: %w", err)
	}

	temp := c.temperature
	maxTokens := c.maxTokens
	payload := models.ChatCompletionRequest{
		Model: c.model,
		Messages: []models.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion endpoint returned %d: %s", resp.StatusCode, snippet(respBody))
	}

	var completion models.ChatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

func snippet(b []byte) string {
	const max = 256
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
