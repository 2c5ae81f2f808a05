package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var _ Broker = (*MemoryBroker)(nil)
var _ Broker = (*RedisBroker)(nil)

func TestMarketChannel(t *testing.T) {
	require.Equal(t, "market_updates:BNBUSDT", MarketChannel("BNBUSDT"))
}

func TestMemoryBroker_DeliversToChannelSubscribersOnly(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	b := NewMemoryBroker()

	bnb, err := b.Subscribe(ctx, MarketChannel("BNBUSDT"))
	require.NoError(t, err)
	eth, err := b.Subscribe(ctx, MarketChannel("ETHUSDT"))
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, MarketChannel("BNBUSDT"), []byte("hello")))

	select {
	case msg := <-bnb:
		require.Equal(t, "hello", string(msg))
	case <-time.After(time.Second):
		t.Fatal("expected message")
	}
	select {
	case msg := <-eth:
		t.Fatalf("unexpected message %q", msg)
	default:
	}

	cancel()
	_, open := <-bnb
	require.False(t, open)
	require.Eventually(t, func() bool {
		return b.Subscribers(MarketChannel("BNBUSDT")) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewMemoryBroker()

	_, err := b.Subscribe(ctx, "c")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(ctx, "c", []byte("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}
