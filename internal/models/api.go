package models

// WebSocket message types
const (
	WSTypeMarketSnapshot = "market_snapshot"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ErrorResponse is the error body for every endpoint. Error carries the
// human readable message; the other fields are additive.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
