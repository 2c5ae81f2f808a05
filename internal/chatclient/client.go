package chatclient

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

	"bnbbrain-backend/internal/models"
	"bnbbrain-backend/pkg/logger"
)

// DefaultInstruction is sent with every prompt.
const DefaultInstruction = "Analyze the given cryptocurrency pair. Provide a prediction if it will go up or down, and explain why. Use markdown-like syntax for formatting: **bold** for important points and *italic* for emphasis."

// Fallback replies returned by Submit.
const (
	FallbackNoContent = "Sorry, I couldn't process your request."
	FallbackError     = "Sorry, I encountered an error processing your request."
)

// ErrNoContent means the relay answered but candidates[0].content.parts[0].text
// was missing or empty.
var ErrNoContent = errors.New("chatclient: response has no text")

// RelayError is a non-2xx answer from the relay endpoint.
type RelayError struct {
	StatusCode int
	Message    string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("chatclient: relay returned %d: %s", e.StatusCode, e.Message)
}

// Client packages user input for the chat relay.
type Client struct {
	endpoint    string
	instruction string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithInstruction(instruction string) Option {
	return func(cl *Client) {
		cl.instruction = instruction
	}
}

// New returns a client for the relay at endpoint, e.g.
// http://localhost:8080/api/chat.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:    strings.TrimSpace(endpoint),
		instruction: DefaultInstruction,
		httpClient:  &http.Client{Timeout: 90 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit always returns a display string. Failures become one of the two
// fallback replies, so callers cannot tell a model answer from a failed call.
func (c *Client) Submit(ctx context.Context, prompt string) string {
	text, err := c.Ask(ctx, prompt)
	switch {
	case err == nil:
		return text
	case errors.Is(err, ErrNoContent):
		return FallbackNoContent
	default:
		logger.Errorf("Error in submitChat: %v", err)
		return FallbackError
	}
}

// Ask is Submit with the failure kept: ErrNoContent, *RelayError, or a
// transport/decode error.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	p := prompt
	body, err := json.Marshal(models.ChatRequest{Prompt: &p, Instruction: c.instruction})
	if err != nil {
		return "", fmt.Errorf("chatclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chatclient: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chatclient: request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("chatclient: read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", &RelayError{StatusCode: res.StatusCode, Message: relayMessage(raw)}
	}

	var payload models.GenerateContentResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("chatclient: decode response: %w", err)
	}

	text, ok := payload.FirstText()
	if !ok || text == "" {
		return "", ErrNoContent
	}
	return text, nil
}

func relayMessage(raw []byte) string {
	var resp models.ErrorResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Error == "" {
		return strings.TrimSpace(string(raw))
	}
	return resp.Error
}
