package market

import (
	"errors"

	"bnbbrain-backend/internal/models"
)

// DirectionWindow is how many trailing prices PredictDirection averages.
const DirectionWindow = 5

// SMALength is the moving-average length used by the SMA strategy.
const SMALength = 20

var ErrNotEnoughData = errors.New("market: not enough data")

// PredictDirection compares the last price with the mean of the trailing
// window (or of all prices when fewer are available).
func PredictDirection(prices []float64) (string, error) {
	if len(prices) == 0 {
		return "", ErrNotEnoughData
	}
	recent := prices
	if len(recent) > DirectionWindow {
		recent = recent[len(recent)-DirectionWindow:]
	}

	var sum float64
	for _, p := range recent {
		sum += p
	}
	average := sum / float64(len(recent))

	if recent[len(recent)-1] > average {
		return models.DirectionUp, nil
	}
	return models.DirectionDown, nil
}

// SMA is the simple moving average of the last n values.
func SMA(values []float64, n int) (float64, error) {
	if n <= 0 || len(values) < n {
		return 0, ErrNotEnoughData
	}
	var sum float64
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n), nil
}

// SMASignal says up when the last close is above its n-period SMA.
func SMASignal(closes []float64, n int) (float64, string, error) {
	sma, err := SMA(closes, n)
	if err != nil {
		return 0, "", err
	}
	if closes[len(closes)-1] > sma {
		return sma, models.DirectionUp, nil
	}
	return sma, models.DirectionDown, nil
}

// NextCandle guesses the next candle from the last two closes.
func NextCandle(prevClose, lastClose float64) string {
	if lastClose > prevClose {
		return models.DirectionUp
	}
	return models.DirectionDown
}

// Predict bundles the trailing-mean and SMA signals for a price series.
// The SMA fields are only set when enough samples exist.
func Predict(symbol string, prices []float64) (models.Prediction, error) {
	direction, err := PredictDirection(prices)
	if err != nil {
		return models.Prediction{}, err
	}

	p := models.Prediction{
		Symbol:    symbol,
		Direction: direction,
		Samples:   len(prices),
	}
	if sma, smaDir, err := SMASignal(prices, SMALength); err == nil {
		p.SMA = &sma
		p.SMADirection = smaDir
	}
	return p, nil
}
