package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"bnbbrain-backend/internal/models"
	"bnbbrain-backend/pkg/logger"
)

const msgEmptyAnalysis = "Gemini returned no content"

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// AnalystService writes short market briefs through the Gemini SDK.
type AnalystService struct {
	client   *genai.Client
	model    generator
	rateChan chan struct{} // Token bucket
}

// NewAnalystService returns an unconfigured service when apiKey is empty so
// that the server still starts without a credential.
func NewAnalystService(ctx context.Context, apiKey, modelName string, concurrentReqs int) (*AnalystService, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return &AnalystService{}, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	s := newAnalyst(model, concurrentReqs)
	s.client = client
	return s, nil
}

func newAnalyst(model generator, concurrentReqs int) *AnalystService {
	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}
	return &AnalystService{model: model, rateChan: rateChan}
}

func (s *AnalystService) Configured() bool {
	return s.model != nil
}

func (s *AnalystService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// acquireRate blocks until a rate slot is available
func (s *AnalystService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *AnalystService) releaseRate() {
	s.rateChan <- struct{}{}
}

// Analyze asks the model for a brief on snap. pred may be nil when no
// price history exists yet.
func (s *AnalystService) Analyze(ctx context.Context, snap models.MarketSnapshot, pred *models.Prediction) (string, error) {
	if !s.Configured() {
		return "", &ConfigurationError{Message: msgKeyNotConfigured}
	}

	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	resp, err := s.model.GenerateContent(ctx, genai.Text(buildAnalysisPrompt(snap, pred)))
	if err != nil {
		return "", mapGeminiError(err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop && cand.FinishReason != genai.FinishReasonUnspecified {
			logger.Warnf("Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", &UpstreamError{StatusCode: http.StatusBadGateway, Message: msgEmptyAnalysis}
	}
	return text, nil
}

// mapGeminiError keeps the status and message of API errors.
func mapGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = msgUpstreamFallback
		}
		return &UpstreamError{StatusCode: apiErr.Code, Message: msg}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &TransportError{Err: err}
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func buildAnalysisPrompt(snap models.MarketSnapshot, pred *models.Prediction) string {
	var b strings.Builder

	b.WriteString("You are a cryptocurrency market analyst. Write a short brief (at most 120 words) for the pair below. ")
	b.WriteString("Use **bold** for the key call and *italics* for caveats. Do not give financial advice.\n\n")

	fmt.Fprintf(&b, "Pair: %s\n", snap.Symbol)
	fmt.Fprintf(&b, "Price: %s\n", snap.Price)
	fmt.Fprintf(&b, "24h change: %s%%\n", snap.Change24h)
	fmt.Fprintf(&b, "24h volume: %s\n", snap.Volume24h)
	fmt.Fprintf(&b, "24h high / low: %s / %s\n", snap.High24h, snap.Low24h)
	fmt.Fprintf(&b, "Volatility: %s\n", snap.Volatility)

	if pred != nil {
		fmt.Fprintf(&b, "Short-term direction (last vs mean of recent ticks): %s over %d samples\n", pred.Direction, pred.Samples)
		if pred.SMA != nil {
			fmt.Fprintf(&b, "SMA-20: %.4f, price is %s of it\n", *pred.SMA, aboveBelow(pred.SMADirection))
		}
	}
	return b.String()
}

func aboveBelow(direction string) string {
	if direction == models.DirectionUp {
		return "above"
	}
	return "below"
}
