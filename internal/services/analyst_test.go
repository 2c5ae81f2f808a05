package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"bnbbrain-backend/internal/models"
)

type stubGenerator struct {
	mu       sync.Mutex
	prompts  []string
	resp     *genai.GenerateContentResponse
	err      error
	delay    time.Duration
	inFlight int32
	peak     int32
}

func (g *stubGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	n := atomic.AddInt32(&g.inFlight, 1)
	defer atomic.AddInt32(&g.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&g.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&g.peak, peak, n) {
			break
		}
	}

	g.mu.Lock()
	for _, p := range parts {
		if t, ok := p.(genai.Text); ok {
			g.prompts = append(g.prompts, string(t))
		}
	}
	g.mu.Unlock()

	time.Sleep(g.delay)
	return g.resp, g.err
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []genai.Part{genai.Text(s)}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

var testSnapshot = models.MarketSnapshot{
	Symbol: "BNBUSDT", Price: "$600.00", Change24h: "1.20", Volume24h: "$12.00M",
	High24h: "$610.00", Low24h: "$590.00", Volatility: "Medium",
}

func TestAnalyze_UnconfiguredReturnsConfigurationError(t *testing.T) {
	s, err := NewAnalystService(context.Background(), "  ", "gemini-1.5-flash", 2)
	require.NoError(t, err)
	require.False(t, s.Configured())

	_, err = s.Analyze(context.Background(), testSnapshot, nil)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "API key not configured", cfgErr.Message)
	s.Close()
}

func TestAnalyze_PromptCarriesSnapshotAndPrediction(t *testing.T) {
	gen := &stubGenerator{resp: textResponse("  **Bullish** bias.  ")}
	s := newAnalyst(gen, 1)

	sma := 598.5
	reply, err := s.Analyze(context.Background(), testSnapshot, &models.Prediction{
		Symbol: "BNBUSDT", Direction: "up", Samples: 25, SMA: &sma, SMADirection: "up",
	})
	require.NoError(t, err)
	require.Equal(t, "**Bullish** bias.", reply)

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	require.Contains(t, prompt, "Pair: BNBUSDT")
	require.Contains(t, prompt, "Price: $600.00")
	require.Contains(t, prompt, "up over 25 samples")
	require.Contains(t, prompt, "SMA-20: 598.5000, price is above")
}

func TestAnalyze_WithoutPrediction(t *testing.T) {
	prompt := buildAnalysisPrompt(testSnapshot, nil)
	require.NotContains(t, prompt, "direction")
	require.True(t, strings.HasPrefix(prompt, "You are a cryptocurrency market analyst"))
}

func TestAnalyze_EmptyReplyIsUpstreamError(t *testing.T) {
	s := newAnalyst(&stubGenerator{resp: &genai.GenerateContentResponse{}}, 1)

	_, err := s.Analyze(context.Background(), testSnapshot, nil)
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	require.Equal(t, http.StatusBadGateway, upErr.StatusCode)
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	s := newAnalyst(&stubGenerator{err: &googleapi.Error{Code: 429, Message: "quota exceeded"}}, 1)
	_, err := s.Analyze(context.Background(), testSnapshot, nil)
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	require.Equal(t, 429, upErr.StatusCode)
	require.Equal(t, "quota exceeded", upErr.Message)

	s = newAnalyst(&stubGenerator{err: errors.New("dial tcp: refused")}, 1)
	_, err = s.Analyze(context.Background(), testSnapshot, nil)
	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
}

func TestAnalyze_RateSlotsBoundConcurrency(t *testing.T) {
	gen := &stubGenerator{resp: textResponse("ok"), delay: 20 * time.Millisecond}
	s := newAnalyst(gen, 2)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Analyze(context.Background(), testSnapshot, nil)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, atomic.LoadInt32(&gen.peak), int32(2))
}

func TestExtractText_ConcatenatesTextParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("a"), genai.Blob{MIMEType: "image/png"}, genai.Text("b")}}},
			{Content: nil},
		},
	}
	require.Equal(t, "ab", extractText(resp))
	require.Equal(t, "", extractText(nil))
}
