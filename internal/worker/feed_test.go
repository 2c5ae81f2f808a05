package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bnbbrain-backend/internal/market"
	"bnbbrain-backend/internal/models"
	"bnbbrain-backend/internal/pubsub"
	"bnbbrain-backend/internal/repository"
)

// scriptedStream emits the given tickers, then an optional error, then
// blocks until ctx is done.
type scriptedStream struct {
	ticks []market.Ticker
	err   error
}

func (s *scriptedStream) Run(ctx context.Context, symbol string, onTick func(market.Ticker), onError func(error)) {
	for _, t := range s.ticks {
		onTick(t)
	}
	if s.err != nil {
		onError(s.err)
	}
	<-ctx.Done()
}

func ticker(price string) market.Ticker {
	return market.Ticker{
		LastPrice:     decimal.RequireFromString(price),
		ChangePercent: decimal.RequireFromString("0.5"),
		Volume:        decimal.RequireFromString("1000"),
		EventTime:     time.Now().UTC(),
	}
}

func receive(t *testing.T, ch <-chan []byte) models.WSMessage {
	t.Helper()
	select {
	case raw := <-ch:
		var msg models.WSMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
		return models.WSMessage{}
	}
}

func TestFeed_TickUpdatesLatestStoreAndBroker(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := pubsub.NewMemoryBroker()
	sub, err := broker.Subscribe(ctx, pubsub.MarketChannel("BNBUSDT"))
	require.NoError(t, err)

	store := repository.NewMemoryTickStore(10)
	feed := NewFeed(&scriptedStream{ticks: []market.Ticker{ticker("600"), ticker("601.5")}}, store, broker, []string{"BNBUSDT"})

	snap, ok := feed.Latest("bnbusdt")
	require.True(t, ok)
	require.Equal(t, "$0.00", snap.Price)

	feed.Start(ctx)

	first := receive(t, sub)
	require.Equal(t, models.WSTypeMarketSnapshot, first.Type)
	receive(t, sub)

	snap, _ = feed.Latest("BNBUSDT")
	require.Equal(t, "$601.50", snap.Price)
	require.Equal(t, "BNBUSDT", snap.Symbol)

	closes, err := store.RecentCloses(ctx, "BNBUSDT", 10)
	require.NoError(t, err)
	require.Equal(t, []float64{600, 601.5}, closes)

	feed.Stop()
	cancel()
}

func TestFeed_ErrorReplacesSnapshot(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := pubsub.NewMemoryBroker()
	sub, err := broker.Subscribe(ctx, pubsub.MarketChannel("ETHUSDT"))
	require.NoError(t, err)

	stream := &scriptedStream{ticks: []market.Ticker{ticker("3000")}, err: errors.New("exchange down")}
	feed := NewFeed(stream, repository.NewMemoryTickStore(10), broker, []string{"ETHUSDT"})

	done := make(chan error)
	go func() { done <- feed.Run(ctx) }()

	receive(t, sub)
	msg := receive(t, sub)
	payload := msg.Payload.(map[string]interface{})
	require.Equal(t, "Error", payload["price"])

	snap, _ := feed.Latest("ETHUSDT")
	require.Equal(t, "Error", snap.Price)
	require.Equal(t, "0.00", snap.Change24h)
	require.Equal(t, "N/A", snap.Volatility)

	cancel()
	require.NoError(t, <-done)
}

func TestFeed_UnknownSymbol(t *testing.T) {
	feed := NewFeed(&scriptedStream{}, repository.NewMemoryTickStore(1), pubsub.NewMemoryBroker(), []string{"BNBUSDT"})
	_, ok := feed.Latest("DOGEUSDT")
	require.False(t, ok)
}
