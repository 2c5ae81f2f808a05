package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"bnbbrain-backend/internal/models"
	"bnbbrain-backend/internal/services"
	"bnbbrain-backend/pkg/logger"
)

type chatRelay interface {
	Configured() bool
	Forward(ctx context.Context, req models.ChatRequest) ([]byte, error)
}

type ChatHandler struct {
	relay chatRelay
}

func NewChatHandler(relay chatRelay) *ChatHandler {
	return &ChatHandler{relay: relay}
}

// Relay is POST /api/chat. A successful upstream body is written back
// byte-for-byte.
func (h *ChatHandler) Relay(w http.ResponseWriter, r *http.Request) {
	if !h.relay.Configured() {
		handleServiceError(w, r, &services.ConfigurationError{Message: "API key not configured"})
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warnf("chat relay: unreadable body: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", msgInternal, r))
		return
	}

	raw, err := h.relay.Forward(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}
