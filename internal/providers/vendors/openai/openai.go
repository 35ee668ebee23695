// Package openai is a minimal chat-completions client that calls the vendor
// with the caller's own API key.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/GriffinCanCode/formfill/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/formfill/internal/providers/http/client"
)

// Defaults for a field completion.
const (
	DefaultURL         = "https://api.openai.com/v1/chat/completions"
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 150
	DefaultTemperature = 0.7
)

// APIError is a non-2xx answer from the vendor.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client calls one chat-completions endpoint.
type Client struct {
	http        *client.Client
	url         string
	model       string
	maxTokens   int
	temperature float64
}

// NewClient creates a client for url using model. Empty values fall back to
// the defaults.
func NewClient(url, model string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		http: client.New(client.Options{
			Name:    "openai",
			Timeout: timeout,
			Breaker: resilience.Settings{
				// Vendor 5xx answers are relayed to the caller as 502; only
				// transport failures count toward opening the breaker.
				IsFailure: func(err error) bool {
					var statusErr *client.StatusError
					return err != nil && !errors.As(err, &statusErr)
				},
			},
		}),
		url:         url,
		model:       model,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
}

// Complete sends prompt as a single user message and returns the first
// choice's content, trimmed. An empty string means the vendor answered 2xx
// without usable text.
func (c *Client) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	var parsed chatResponse
	resp, err := c.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetAuthToken(apiKey).
			SetBody(chatRequest{
				Model:       c.model,
				Messages:    []Message{{Role: "user", Content: prompt}},
				MaxTokens:   c.maxTokens,
				Temperature: c.temperature,
			}).
			SetResult(&parsed).
			Post(c.url)
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if !resp.IsSuccess() {
		return "", &APIError{Status: resp.StatusCode(), Message: vendorMessage(resp)}
	}

	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// vendorMessage returns the vendor's error.message, or a status fallback
// when the body carries none.
func vendorMessage(resp *resty.Response) string {
	var body errorResponse
	if err := sonic.Unmarshal(resp.Body(), &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return fmt.Sprintf("OpenAI API request failed with status %d", resp.StatusCode())
}
