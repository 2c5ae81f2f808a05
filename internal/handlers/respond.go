package handlers

import (
	"encoding/json"
	"net/http"

	"bnbbrain-backend/internal/models"
	"bnbbrain-backend/internal/services"
	"bnbbrain-backend/pkg/logger"
)

const msgInternal = "Internal Server Error"

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: r.Header.Get("X-Request-ID"),
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *services.ValidationError:
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", e.Message, r))
	case *services.ConfigurationError:
		logger.Errorf("configuration error: %s", e.Message)
		writeJSON(w, http.StatusInternalServerError, errorResp("CONFIGURATION_ERROR", e.Message, r))
	case *services.UpstreamError:
		writeJSON(w, e.StatusCode, errorResp("UPSTREAM_ERROR", e.Message, r))
	case *services.TransportError:
		logger.Errorf("upstream transport error: %v", e.Err)
		writeJSON(w, http.StatusInternalServerError, errorResp("UPSTREAM_ERROR", "Error calling Gemini API", r))
	case *services.NotFoundError:
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", e.Message, r))
	default:
		logger.Errorf("unexpected error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", msgInternal, r))
	}
}
