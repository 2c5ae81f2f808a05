package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"bnbbrain-backend/internal/models"
	"bnbbrain-backend/internal/pubsub"
	"bnbbrain-backend/pkg/logger"
)

const writeWait = 10 * time.Second

// SnapshotSource is satisfied by *worker.Feed.
type SnapshotSource interface {
	Latest(symbol string) (models.MarketSnapshot, bool)
}

// Hub pushes market snapshots to browser websockets. Connections are grouped
// by symbol and each group shares one broker subscription.
type Hub struct {
	mu            sync.RWMutex
	connections   map[string][]*websocket.Conn
	cancelFuncs   map[string]context.CancelFunc
	broker        pubsub.Broker
	source        SnapshotSource
	defaultSymbol string
	upgrader      websocket.Upgrader
}

func NewHub(broker pubsub.Broker, source SnapshotSource, defaultSymbol string, allowedOrigin string) *Hub {
	return &Hub{
		connections:   make(map[string][]*websocket.Conn),
		cancelFuncs:   make(map[string]context.CancelFunc),
		broker:        broker,
		source:        source,
		defaultSymbol: defaultSymbol,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigin),
		},
	}
}

// originChecker allows everything for "*" or an empty setting.
func originChecker(allowed string) func(r *http.Request) bool {
	if allowed == "" || allowed == "*" {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || strings.EqualFold(origin, allowed)
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
	if symbol == "" {
		symbol = h.defaultSymbol
	}

	if _, ok := h.source.Latest(symbol); !ok {
		http.Error(w, "Symbol not streamed", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	if err := h.registerConnection(symbol, conn); err != nil {
		logger.Warnf("WebSocket register failed for %s: %v", symbol, err)
		conn.Close()
		return
	}

	// Reads only detect the disconnect; clients send nothing we use.
	go func() {
		defer h.unregisterConnection(symbol, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// registerConnection subscribes before it reads the snapshot, and does both
// under the lock. Any update newer than the snapshot is then queued on the
// subscription and reaches the connection after it, never before and never
// lost.
func (h *Hub) registerConnection(symbol string, conn *websocket.Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.connections[symbol]) == 0 {
		ctx, cancel := context.WithCancel(context.Background())
		ch, err := h.broker.Subscribe(ctx, pubsub.MarketChannel(symbol))
		if err != nil {
			cancel()
			return err
		}
		h.cancelFuncs[symbol] = cancel
		go h.forward(ctx, symbol, ch)
	}

	if err := h.writeSnapshot(symbol, conn); err != nil {
		h.releaseLocked(symbol)
		return err
	}

	h.connections[symbol] = append(h.connections[symbol], conn)

	logger.Infof("WebSocket connected: %s (total: %d)", symbol, len(h.connections[symbol]))
	return nil
}

func (h *Hub) writeSnapshot(symbol string, conn *websocket.Conn) error {
	snap, ok := h.source.Latest(symbol)
	if !ok {
		return fmt.Errorf("no snapshot for %s", symbol)
	}
	data, err := json.Marshal(models.WSMessage{Type: models.WSTypeMarketSnapshot, Payload: snap})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// releaseLocked drops the subscription for symbol once nobody follows it.
// Callers hold h.mu.
func (h *Hub) releaseLocked(symbol string) {
	if len(h.connections[symbol]) > 0 {
		return
	}
	delete(h.connections, symbol)
	if cancel, ok := h.cancelFuncs[symbol]; ok {
		cancel()
		delete(h.cancelFuncs, symbol)
	}
}

func (h *Hub) unregisterConnection(symbol string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[symbol]
	for i, c := range conns {
		if c == conn {
			h.connections[symbol] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	h.releaseLocked(symbol)

	logger.Infof("WebSocket disconnected: %s", symbol)
}

func (h *Hub) forward(ctx context.Context, symbol string, ch <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(ctx, symbol, msg)
		}
	}
}

// broadcast drops data when ctx is already cancelled. The subscription is
// cancelled under the write lock, so a message still held by a retired
// forwarder cannot reach connections of a newer subscription.
func (h *Hub) broadcast(ctx context.Context, symbol string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if ctx.Err() != nil {
		return
	}

	for _, conn := range h.connections[symbol] {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debugf("WebSocket write to %s failed: %v", symbol, err)
		}
	}
}

// Connections reports how many sockets follow symbol.
func (h *Hub) Connections(symbol string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[symbol])
}

// Close drops every connection and subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for symbol, conns := range h.connections {
		for _, c := range conns {
			c.Close()
		}
		delete(h.connections, symbol)
	}
	for symbol, cancel := range h.cancelFuncs {
		cancel()
		delete(h.cancelFuncs, symbol)
	}
}
