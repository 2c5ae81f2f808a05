package market

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"bnbbrain-backend/pkg/logger"
)

// TickerFetcher is the REST call the stream falls back to.
type TickerFetcher interface {
	Ticker24h(ctx context.Context, symbol string) (Ticker, error)
}

// Stream follows the live ticker stream of one symbol at a time.
type Stream struct {
	baseURL        string
	dialer         *websocket.Dialer
	rest           TickerFetcher
	reconnectDelay time.Duration
}

func NewStream(baseURL string, rest TickerFetcher, reconnectDelay time.Duration) *Stream {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &Stream{
		baseURL: strings.TrimRight(baseURL, "/"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		rest:           rest,
		reconnectDelay: reconnectDelay,
	}
}

// URL is the ticker stream address for symbol.
func (s *Stream) URL(symbol string) string {
	return fmt.Sprintf("%s/%s@ticker", s.baseURL, strings.ToLower(symbol))
}

// Run delivers tickers to onTick until ctx is done. Each time the stream
// fails or closes it fetches one REST ticker, then reconnects after the
// configured delay. onError receives failures of that fallback fetch.
func (s *Stream) Run(ctx context.Context, symbol string, onTick func(Ticker), onError func(error)) {
	for {
		err := s.consume(ctx, symbol, onTick)
		if ctx.Err() != nil {
			return
		}
		logger.Warnf("market stream %s closed: %v", symbol, err)

		t, ferr := s.rest.Ticker24h(ctx, symbol)
		switch {
		case ctx.Err() != nil:
			return
		case ferr != nil:
			logger.Errorf("market fallback %s failed: %v", symbol, ferr)
			if onError != nil {
				onError(ferr)
			}
		default:
			onTick(t)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *Stream) consume(ctx context.Context, symbol string, onTick func(Ticker)) error {
	conn, _, err := s.dialer.DialContext(ctx, s.URL(symbol), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// ReadMessage only returns on error, so closing the conn is what
	// unblocks it on shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	logger.Infof("market stream connected: %s", symbol)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var st streamTicker
		if err := json.Unmarshal(data, &st); err != nil {
			logger.Warnf("market stream %s: bad payload: %v", symbol, err)
			continue
		}
		if st.Symbol == "" {
			st.Symbol = strings.ToUpper(symbol)
		}
		onTick(st.ticker())
	}
}
