package market

import (
	"time"

	"github.com/shopspring/decimal"

	"bnbbrain-backend/internal/models"
)

// Ticker is a 24h rolling ticker normalised from either the REST or the
// stream payload.
type Ticker struct {
	Symbol        string
	LastPrice     decimal.Decimal
	ChangePercent decimal.Decimal
	Volume        decimal.Decimal
	High          decimal.Decimal
	Low           decimal.Decimal
	EventTime     time.Time
}

// Tick reduces the ticker to the values archived for predictions.
func (t Ticker) Tick() models.PriceTick {
	return models.PriceTick{
		Symbol:        t.Symbol,
		Price:         t.LastPrice.InexactFloat64(),
		ChangePercent: t.ChangePercent.InexactFloat64(),
		Volume:        t.Volume.InexactFloat64(),
		ObservedAt:    t.EventTime,
	}
}

// restTicker is GET /api/v3/ticker/24hr.
type restTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	CloseTime          int64  `json:"closeTime"`
}

func (r restTicker) ticker() Ticker {
	return Ticker{
		Symbol:        r.Symbol,
		LastPrice:     parseDecimal(r.LastPrice),
		ChangePercent: parseDecimal(r.PriceChangePercent),
		Volume:        parseDecimal(r.Volume),
		High:          parseDecimal(r.HighPrice),
		Low:           parseDecimal(r.LowPrice),
		EventTime:     msTime(r.CloseTime),
	}
}

// streamTicker is the <symbol>@ticker stream event. Keys differ only by
// case ("c"/"C", "l"/"L", "p"/"P"), so each one gets its own field to keep
// encoding/json from matching the wrong one.
type streamTicker struct {
	EventType     string `json:"e"`
	EventTime     int64  `json:"E"`
	Symbol        string `json:"s"`
	PriceChange   string `json:"p"`
	ChangePercent string `json:"P"`
	LastPrice     string `json:"c"`
	CloseTime     int64  `json:"C"`
	High          string `json:"h"`
	Low           string `json:"l"`
	LastTradeID   int64  `json:"L"`
	Volume        string `json:"v"`
	OpenPrice     string `json:"o"`
	OpenTime      int64  `json:"O"`
}

func (s streamTicker) ticker() Ticker {
	return Ticker{
		Symbol:        s.Symbol,
		LastPrice:     parseDecimal(s.LastPrice),
		ChangePercent: parseDecimal(s.ChangePercent),
		Volume:        parseDecimal(s.Volume),
		High:          parseDecimal(s.High),
		Low:           parseDecimal(s.Low),
		EventTime:     msTime(s.EventTime),
	}
}

// parseDecimal treats empty or malformed numbers as zero.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func msTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Now().UTC()
	}
	return time.UnixMilli(ms).UTC()
}
