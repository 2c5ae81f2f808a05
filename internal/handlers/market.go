package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"bnbbrain-backend/internal/market"
	"bnbbrain-backend/internal/models"
	"bnbbrain-backend/internal/repository"
	"bnbbrain-backend/internal/services"
	"bnbbrain-backend/pkg/logger"
)

// predictionWindow bounds how many archived prices a prediction reads.
const predictionWindow = 200

type snapshotSource interface {
	Latest(symbol string) (models.MarketSnapshot, bool)
}

type tickerFetcher interface {
	Ticker24h(ctx context.Context, symbol string) (market.Ticker, error)
}

type marketAnalyst interface {
	Configured() bool
	Analyze(ctx context.Context, snap models.MarketSnapshot, pred *models.Prediction) (string, error)
}

type MarketHandler struct {
	feed    snapshotSource
	rest    tickerFetcher
	ticks   repository.TickStore
	analyst marketAnalyst
}

func NewMarketHandler(feed snapshotSource, rest tickerFetcher, ticks repository.TickStore, analyst marketAnalyst) *MarketHandler {
	return &MarketHandler{feed: feed, rest: rest, ticks: ticks, analyst: analyst}
}

func symbolParam(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
}

// snapshot prefers the streamed value and fetches from REST otherwise.
func (h *MarketHandler) snapshot(ctx context.Context, symbol string) (models.MarketSnapshot, error) {
	if snap, ok := h.feed.Latest(symbol); ok {
		return snap, nil
	}

	t, err := h.rest.Ticker24h(ctx, symbol)
	if err != nil {
		logger.Warnf("market %s: REST ticker failed: %v", symbol, err)
		msg := "Market data unavailable"
		var se *market.StatusError
		if errors.As(err, &se) && se.Message != "" {
			msg = se.Message
		}
		return models.MarketSnapshot{}, &services.UpstreamError{StatusCode: http.StatusBadGateway, Message: msg}
	}
	return market.NewSnapshot(t), nil
}

func (h *MarketHandler) prediction(ctx context.Context, symbol string) (models.Prediction, error) {
	prices, err := h.ticks.RecentCloses(ctx, symbol, predictionWindow)
	if err != nil {
		return models.Prediction{}, err
	}

	p, err := market.Predict(symbol, prices)
	if errors.Is(err, market.ErrNotEnoughData) {
		return models.Prediction{}, &services.NotFoundError{Message: "No price history for " + symbol}
	}
	return p, err
}

// Snapshot is GET /api/market/{symbol}.
func (h *MarketHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(r.Context(), symbolParam(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Prediction is GET /api/market/{symbol}/prediction.
func (h *MarketHandler) Prediction(w http.ResponseWriter, r *http.Request) {
	p, err := h.prediction(r.Context(), symbolParam(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Analysis is GET /api/market/{symbol}/analysis.
func (h *MarketHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	if !h.analyst.Configured() {
		handleServiceError(w, r, &services.ConfigurationError{Message: "API key not configured"})
		return
	}

	symbol := symbolParam(r)
	snap, err := h.snapshot(r.Context(), symbol)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	var pred *models.Prediction
	if p, err := h.prediction(r.Context(), symbol); err == nil {
		pred = &p
	}

	reply, err := h.analyst.Analyze(r.Context(), snap, pred)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ChatResponse{Reply: reply})
}
