package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const maxResponseBody = 4 << 20

// StatusError is a non-2xx reply from the exchange REST API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("market: exchange returned %d: %s", e.StatusCode, e.Message)
}

// Kline is one OHLC candle.
type Kline struct {
	OpenTime  time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	CloseTime time.Time
}

// Client reads public market data from the exchange REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ticker24h fetches the rolling 24h ticker for symbol.
func (c *Client) Ticker24h(ctx context.Context, symbol string) (Ticker, error) {
	q := url.Values{"symbol": {strings.ToUpper(symbol)}}

	var rt restTicker
	if err := c.get(ctx, "/api/v3/ticker/24hr", q, &rt); err != nil {
		return Ticker{}, err
	}
	return rt.ticker(), nil
}

// Klines fetches up to limit candles of the given interval, oldest first.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	q := url.Values{
		"symbol":   {strings.ToUpper(symbol)},
		"interval": {interval},
		"limit":    {strconv.Itoa(limit)},
	}

	var rows [][]json.RawMessage
	if err := c.get(ctx, "/api/v3/klines", q, &rows); err != nil {
		return nil, err
	}

	klines := make([]Kline, 0, len(rows))
	for i, row := range rows {
		k, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("market: kline %d: %w", i, err)
		}
		klines = append(klines, k)
	}
	return klines, nil
}

// Closes returns the close prices of klines as floats.
func Closes(klines []Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Close.InexactFloat64()
	}
	return out
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("market: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("market: %s: %w", path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("market: read body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &StatusError{StatusCode: res.StatusCode, Message: exchangeMessage(raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("market: decode %s: %w", path, err)
	}
	return nil
}

// exchangeMessage reads {"code":-1121,"msg":"Invalid symbol."}.
func exchangeMessage(raw []byte) string {
	var payload struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Msg == "" {
		return strings.TrimSpace(string(raw))
	}
	return payload.Msg
}

// parseKline reads [openTime, open, high, low, close, volume, closeTime, ...].
func parseKline(row []json.RawMessage) (Kline, error) {
	if len(row) < 7 {
		return Kline{}, fmt.Errorf("expected at least 7 fields, got %d", len(row))
	}

	var openMs, closeMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return Kline{}, fmt.Errorf("open time: %w", err)
	}
	if err := json.Unmarshal(row[6], &closeMs); err != nil {
		return Kline{}, fmt.Errorf("close time: %w", err)
	}

	var nums [5]decimal.Decimal
	for i := range nums {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return Kline{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Kline{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		nums[i] = d
	}

	return Kline{
		OpenTime:  time.UnixMilli(openMs).UTC(),
		Open:      nums[0],
		High:      nums[1],
		Low:       nums[2],
		Close:     nums[3],
		Volume:    nums[4],
		CloseTime: time.UnixMilli(closeMs).UTC(),
	}, nil
}
