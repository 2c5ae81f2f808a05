package worker

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"bnbbrain-backend/internal/market"
	"bnbbrain-backend/internal/models"
	"bnbbrain-backend/internal/pubsub"
	"bnbbrain-backend/internal/repository"
	"bnbbrain-backend/pkg/logger"
)

// TickerStream is satisfied by *market.Stream.
type TickerStream interface {
	Run(ctx context.Context, symbol string, onTick func(market.Ticker), onError func(error))
}

// Feed keeps one live ticker stream per symbol, the latest snapshot of
// each, and republishes every update through the broker.
type Feed struct {
	stream  TickerStream
	store   repository.TickStore
	broker  pubsub.Broker
	symbols []string

	mu     sync.RWMutex
	latest map[string]models.MarketSnapshot

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewFeed(stream TickerStream, store repository.TickStore, broker pubsub.Broker, symbols []string) *Feed {
	f := &Feed{
		stream:  stream,
		store:   store,
		broker:  broker,
		symbols: symbols,
		latest:  make(map[string]models.MarketSnapshot, len(symbols)),
	}
	for _, s := range symbols {
		f.latest[s] = market.InitialSnapshot(s)
	}
	return f
}

// Start launches the streams. They stop when ctx is done or Stop is called.
func (f *Feed) Start(ctx context.Context) {
	ctx, f.cancel = context.WithCancel(ctx)

	for _, symbol := range f.symbols {
		f.wg.Add(1)
		go func(symbol string) {
			defer f.wg.Done()
			f.stream.Run(ctx, symbol,
				func(t market.Ticker) { f.handleTick(ctx, symbol, t) },
				func(err error) { f.handleError(ctx, symbol, err) },
			)
		}(symbol)
	}

	logger.Infof("Started market feed for %s", strings.Join(f.symbols, ", "))
}

// Stop cancels the streams and waits for them to return.
func (f *Feed) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
}

// Run is Start followed by Stop once ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	f.Start(ctx)
	<-ctx.Done()
	f.Stop()
	logger.Info("Market feed stopped")
	return nil
}

// Latest returns the current snapshot for a streamed symbol.
func (f *Feed) Latest(symbol string) (models.MarketSnapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	snap, ok := f.latest[strings.ToUpper(symbol)]
	return snap, ok
}

func (f *Feed) handleTick(ctx context.Context, symbol string, t market.Ticker) {
	t.Symbol = symbol
	if t.EventTime.IsZero() {
		t.EventTime = time.Now().UTC()
	}
	snap := market.NewSnapshot(t)

	f.mu.Lock()
	f.latest[symbol] = snap
	f.mu.Unlock()

	if err := f.store.Append(ctx, t.Tick()); err != nil && ctx.Err() == nil {
		logger.Warnf("feed %s: failed to store tick: %v", symbol, err)
	}
	f.publish(ctx, snap)
}

func (f *Feed) handleError(ctx context.Context, symbol string, err error) {
	f.mu.Lock()
	snap := market.ErrorSnapshot(f.latest[symbol])
	f.latest[symbol] = snap
	f.mu.Unlock()

	logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"error":  err.Error(),
	}).Warn("feed: market data unavailable")
	f.publish(ctx, snap)
}

func (f *Feed) publish(ctx context.Context, snap models.MarketSnapshot) {
	data, err := json.Marshal(models.WSMessage{
		Type:    models.WSTypeMarketSnapshot,
		Payload: snap,
	})
	if err != nil {
		logger.Errorf("feed %s: failed to encode snapshot: %v", snap.Symbol, err)
		return
	}
	if err := f.broker.Publish(ctx, pubsub.MarketChannel(snap.Symbol), data); err != nil && ctx.Err() == nil {
		logger.Warnf("feed %s: failed to publish snapshot: %v", snap.Symbol, err)
	}
}
