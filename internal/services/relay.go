package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bnbbrain-backend/internal/models"
	"bnbbrain-backend/pkg/logger"
)

const maxUpstreamBody = 10 << 20

// RelayService forwards chat prompts to the Gemini generateContent endpoint
// and hands back the upstream body untouched. It keeps no state between
// calls: no cache, no retry, no conversation.
type RelayService struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

type RelayOption func(*RelayService)

func WithRelayHTTPClient(c *http.Client) RelayOption {
	return func(s *RelayService) {
		s.httpClient = c
	}
}

func NewRelayService(apiKey, baseURL, model string, timeout time.Duration, opts ...RelayOption) *RelayService {
	s := &RelayService{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether a credential is present.
func (s *RelayService) Configured() bool {
	return s.apiKey != ""
}

func (s *RelayService) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", s.baseURL, s.model)
}

// buildRelayBody puts the instruction and the prompt into one content block
// as two text parts, instruction first. An empty instruction is left out.
func buildRelayBody(prompt, instruction string) models.GenerateContentRequest {
	parts := make([]models.Part, 0, 2)
	if instruction != "" {
		parts = append(parts, models.Part{Text: instruction})
	}
	parts = append(parts, models.Part{Text: prompt})
	return models.GenerateContentRequest{
		Contents: []models.Content{{Parts: parts}},
	}
}

// Forward validates req, performs exactly one upstream call and returns the
// raw 2xx body. Errors are *ConfigurationError, *ValidationError,
// *UpstreamError or *TransportError; anything else is unexpected.
func (s *RelayService) Forward(ctx context.Context, req models.ChatRequest) ([]byte, error) {
	if !s.Configured() {
		return nil, &ConfigurationError{Message: msgKeyNotConfigured}
	}

	prompt := req.PromptText()
	if prompt == "" {
		return nil, &ValidationError{Message: msgPromptRequired}
	}

	body, err := json.Marshal(buildRelayBody(prompt, req.Instruction))
	if err != nil {
		return nil, fmt.Errorf("marshal upstream request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", s.apiKey)

	res, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxUpstreamBody))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read upstream body: %w", err)}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := upstreamMessage(raw)
		logger.WithFields(map[string]interface{}{
			"status":  res.StatusCode,
			"message": msg,
		}).Warn("gemini relay: upstream error")
		return nil, &UpstreamError{StatusCode: res.StatusCode, Message: msg}
	}

	return raw, nil
}

// upstreamMessage pulls error.message out of an upstream error body.
func upstreamMessage(raw []byte) string {
	var payload struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == nil || payload.Error.Message == "" {
		return msgUpstreamFallback
	}
	return payload.Error.Message
}
