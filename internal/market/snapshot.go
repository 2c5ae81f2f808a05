package market

import (
	"time"

	"github.com/shopspring/decimal"

	"bnbbrain-backend/internal/models"
)

const (
	valueError = "Error"
	valueNA    = "N/A"
)

var million = decimal.NewFromInt(1_000_000)

// Volatility buckets the absolute 24h change percentage.
func Volatility(changePercent decimal.Decimal) string {
	abs := changePercent.Abs()
	switch {
	case abs.LessThan(decimal.NewFromInt(1)):
		return models.VolatilityLow
	case abs.LessThan(decimal.NewFromInt(5)):
		return models.VolatilityMedium
	default:
		return models.VolatilityHigh
	}
}

func usd(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// NewSnapshot formats a ticker for display. Volume is quoted in millions of
// the quote currency. The exchange does not report market cap.
func NewSnapshot(t Ticker) models.MarketSnapshot {
	return models.MarketSnapshot{
		Symbol:     t.Symbol,
		Price:      usd(t.LastPrice),
		Change24h:  t.ChangePercent.StringFixed(2),
		Volume24h:  "$" + t.Volume.Mul(t.LastPrice).Div(million).StringFixed(2) + "M",
		MarketCap:  valueNA,
		High24h:    usd(t.High),
		Low24h:     usd(t.Low),
		Volatility: Volatility(t.ChangePercent),
		UpdatedAt:  t.EventTime,
	}
}

// InitialSnapshot is shown before the first ticker arrives.
func InitialSnapshot(symbol string) models.MarketSnapshot {
	return models.MarketSnapshot{
		Symbol:     symbol,
		Price:      "$0.00",
		Change24h:  "0.00",
		Volume24h:  "$0.00M",
		MarketCap:  valueNA,
		High24h:    "$0.00",
		Low24h:     "$0.00",
		Volatility: models.VolatilityLow,
	}
}

// ErrorSnapshot marks prev as failed while keeping its identity fields.
func ErrorSnapshot(prev models.MarketSnapshot) models.MarketSnapshot {
	prev.Price = valueError
	prev.Change24h = "0.00"
	prev.Volume24h = valueError
	prev.High24h = valueError
	prev.Low24h = valueError
	prev.Volatility = models.VolatilityUnknown
	prev.UpdatedAt = time.Now().UTC()
	return prev
}
