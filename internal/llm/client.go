// Package llm talks to an Anthropic-compatible messages API and digs the
// structured JSON the pipeline needs out of free-text completions.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	minimaxBaseURL   = "https://api.minimax.io/anthropic"
	apiVersion       = "2023-06-01"
	defaultTimeout   = 60 * time.Second
	maxTokens        = 1024
)

// Client communicates with an Anthropic-compatible messages endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client for the given base URL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// NewFromEnv builds a Client for the named provider, reading the API key from
// the environment. "minimax" uses the MiniMax Anthropic-compatible endpoint
// with MINIMAX_API_KEY; anything else defaults to Anthropic with
// ANTHROPIC_API_KEY. A missing key is an error so a run never starts in a
// silently degraded mode.
func NewFromEnv(provider string) (*Client, error) {
	switch strings.ToLower(provider) {
	case "minimax":
		key := os.Getenv("MINIMAX_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("MINIMAX_API_KEY is not set (use --dry-run to skip the classification service)")
		}
		return NewClient(minimaxBaseURL, key), nil
	default:
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set (use --dry-run to skip the classification service)")
		}
		return NewClient(anthropicBaseURL, key), nil
	}
}

// messageRequest is the JSON body for POST /v1/messages.
type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messageResponse is the JSON returned by POST /v1/messages.
type messageResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends prompt as a single user message and returns the text of the
// first content block in the response.
func (c *Client) Complete(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(messageRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completion: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding completion response: %w", err)
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("completion response has no content blocks")
	}
	return result.Content[0].Text, nil
}
