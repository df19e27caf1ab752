// Package gateway is the outbound boundary to the OpenRouter LLM service.
// One bounded attempt per call: no retries, no fallback chains.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storybook/internal/domain"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"

	// Caption calls are short; story calls stay deliberately under the
	// caller's own 60s end-to-end deadline to leave margin for marshalling.
	DefaultCaptionTimeout = 10 * time.Second
	DefaultStoryTimeout   = 45 * time.Second
)

// ModelConfig carries everything one call needs beyond the prompt itself.
type ModelConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Options configures a Client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Client issues single chat-completion calls against an OpenRouter-style
// endpoint.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient builds a gateway client. The API key is required.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openrouter api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		apiKey:  strings.TrimSpace(opts.APIKey),
		baseURL: baseURL,
		client:  client,
	}, nil
}

// Send issues exactly one chat-completion call and returns the model's raw
// text output unparsed. Network failures, timeouts, non-2xx statuses and
// empty replies all surface as *domain.GatewayError.
func (c *Client) Send(ctx context.Context, prompt string, cfg ModelConfig) (string, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	payload := chatRequest{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", &domain.GatewayError{Message: "encode request: " + err.Error()}
	}
	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", &domain.GatewayError{Message: "build request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &domain.GatewayError{Message: fmt.Sprintf("request timed out after %s", cfg.Timeout)}
		}
		return "", &domain.GatewayError{Message: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &domain.GatewayError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("openrouter status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &domain.GatewayError{Message: "decode response: " + err.Error()}
	}
	if len(out.Choices) == 0 {
		return "", &domain.GatewayError{Message: "no choices in response"}
	}
	return out.Choices[0].Message.Content, nil
}
