// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm calls OpenAI-compatible chat completion endpoints. The fast,
// capable, and summary inference tiers share one Client implementation;
// they differ only in endpoint, model, rate limit, and retry economics.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// Chatter is the structured inference call the pipeline stages depend on.
// Tests supply a mock; production uses *Client.
type Chatter interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	ChatWithPDF(ctx context.Context, prompt string, pdfBase64 string) (string, error)
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client calls one OpenAI-compatible chat completions endpoint with a
// token-bucket rate limit and bounded retry. Safe for concurrent use.
type Client struct {
	cfg     types.TierConfig
	client  *http.Client
	limiter *rate.Limiter
}

// backoffBase controls the base duration for retry backoff. Tests override
// this to avoid real sleeps.
var backoffBase = time.Second

// New builds a Client for one tier.
func New(cfg types.TierConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Minute
	}
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// chatRequest is the chat completions request body.
type chatRequest struct {
	Model       string            `json:"model"`
	Messages    []json.RawMessage `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
}

// chatResponse is the chat completions response body.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Chat sends a text-only completion request and returns the assistant's
// reply. Transient failures (transport errors, 429, 5xx, empty replies)
// are retried with exponential backoff up to the tier's MaxRetries.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	raw := make([]json.RawMessage, len(messages))
	for i, m := range messages {
		b, err := json.Marshal(m)
		if err != nil {
			return "", fmt.Errorf("marshaling message: %w", err)
		}
		raw[i] = b
	}
	return c.complete(ctx, raw)
}

// pdfPart mirrors the vision-API content layout used for document input:
// a text part followed by the PDF as a base64 data URL.
type pdfPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

// ChatWithPDF sends a completion request carrying the full document as a
// base64 PDF attachment alongside the prompt.
func (c *Client) ChatWithPDF(ctx context.Context, prompt, pdfBase64 string) (string, error) {
	parts := []pdfPart{
		{Type: "text", Text: prompt},
		{Type: "image_url", ImageURL: &struct {
			URL string `json:"url"`
		}{URL: "data:application/pdf;base64," + pdfBase64}},
	}
	msg := struct {
		Role    string    `json:"role"`
		Content []pdfPart `json:"content"`
	}{Role: "user", Content: parts}

	b, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshaling message: %w", err)
	}
	return c.complete(ctx, []json.RawMessage{b})
}

func (c *Client) complete(ctx context.Context, messages []json.RawMessage) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.RetryBackoff
			if backoff <= 0 {
				backoff = backoffBase
			}
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * backoff
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		reply, err := c.completeOnce(ctx, messages)
		if err == nil {
			return reply, nil
		}
		if ctx.Err() != nil {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", c.cfg.MaxRetries, lastErr)
}

func (c *Client) completeOnce(ctx context.Context, messages []json.RawMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.APIBase, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", c.cfg.Model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%s returned HTTP %d: %s", c.cfg.Model, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("%s error: %s", c.cfg.Model, cr.Error.Message)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%s returned empty completion", c.cfg.Model)
	}
	return cr.Choices[0].Message.Content, nil
}
