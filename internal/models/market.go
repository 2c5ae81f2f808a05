package models

import "time"

// Directions produced by the prediction helpers.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Volatility buckets derived from the absolute 24h change.
const (
	VolatilityLow     = "Low"
	VolatilityMedium  = "Medium"
	VolatilityHigh    = "High"
	VolatilityUnknown = "N/A"
)

// MarketSnapshot is the single display shape for every dashboard. All
// values are preformatted strings.
type MarketSnapshot struct {
	Symbol     string    `json:"symbol"`
	Price      string    `json:"price"`
	Change24h  string    `json:"change24h"`
	Volume24h  string    `json:"volume24h"`
	MarketCap  string    `json:"marketCap"`
	High24h    string    `json:"high24h"`
	Low24h     string    `json:"low24h"`
	Volatility string    `json:"volatility"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PriceTick is one observed last price, archived for predictions.
type PriceTick struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	ChangePercent float64   `json:"change_percent"`
	Volume        float64   `json:"volume"`
	ObservedAt    time.Time `json:"observed_at"`
}

type Prediction struct {
	Symbol       string   `json:"symbol"`
	Direction    string   `json:"direction"`
	Samples      int      `json:"samples"`
	SMA          *float64 `json:"sma,omitempty"`
	SMADirection string   `json:"sma_direction,omitempty"`
}
