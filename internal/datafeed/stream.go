package datafeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"equity-backtest-lab/internal/domain"
)

// StreamConfig configures StreamClient behavior.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// StreamClient receives live quote updates over WebSocket. Subscriptions
// are keyed by symbol and survive reconnects.
type StreamClient struct {
	endpoint string
	config   StreamConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// subs maps symbol to quote channel
	subs   map[string]chan domain.Quote
	subsMu sync.RWMutex

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewStreamClient creates a new quote stream client and connects to the endpoint.
func NewStreamClient(ctx context.Context, endpoint string, config *StreamConfig) (*StreamClient, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}

	c := &StreamClient{
		endpoint: endpoint,
		config:   cfg,
		subs:     make(map[string]chan domain.Quote),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes WebSocket connection.
func (c *StreamClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// Subscribe subscribes to live quotes for a symbol. The returned channel is
// closed when the client is closed.
func (c *StreamClient) Subscribe(ctx context.Context, symbol string) (<-chan domain.Quote, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	c.subsMu.Lock()
	if _, exists := c.subs[symbol]; exists {
		c.subsMu.Unlock()
		return nil, fmt.Errorf("already subscribed to %s", symbol)
	}
	// Buffer absorbs bursts; sends block rather than drop.
	ch := make(chan domain.Quote, 1024)
	c.subs[symbol] = ch
	c.subsMu.Unlock()

	if err := c.writeSubscribe(ctx, symbol); err != nil {
		c.subsMu.Lock()
		delete(c.subs, symbol)
		c.subsMu.Unlock()
		return nil, err
	}

	return ch, nil
}

// writeSubscribe sends a subscribe message for a symbol.
func (c *StreamClient) writeSubscribe(ctx context.Context, symbol string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := streamRequest{
		Action: "subscribe",
		Symbol: symbol,
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Close closes the WebSocket connection and all subscription channels.
func (c *StreamClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.subsMu.Lock()
	for symbol, ch := range c.subs {
		close(ch)
		delete(c.subs, symbol)
	}
	c.subsMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages from WebSocket and dispatches to subscribers.
func (c *StreamClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection error, reconnect with exponential backoff
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (c *StreamClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	c.resubscribeAll()
}

// resubscribeAll resends subscribe messages for all active symbols.
func (c *StreamClient) resubscribeAll() {
	c.subsMu.RLock()
	symbols := make([]string, 0, len(c.subs))
	for symbol := range c.subs {
		symbols = append(symbols, symbol)
	}
	c.subsMu.RUnlock()

	for _, symbol := range symbols {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.writeSubscribe(ctx, symbol)
		cancel()
		if err != nil {
			// Failed to resubscribe, quotes resume on next reconnect
			continue
		}
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *StreamClient) handleMessage(message []byte) {
	var notif streamNotification
	if err := json.Unmarshal(message, &notif); err != nil || notif.Type != "quote" {
		return
	}

	quote := domain.Quote{
		Symbol: notif.Symbol,
		Time:   time.UnixMilli(notif.Timestamp).UTC(),
		Price:  notif.Price,
	}

	c.subsMu.RLock()
	ch, ok := c.subs[notif.Symbol]
	c.subsMu.RUnlock()

	if ok {
		// Block until we can send - never drop quotes
		select {
		case ch <- quote:
		case <-c.done:
			return
		}
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *StreamClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type streamRequest struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
}

type streamNotification struct {
	Type      string  `json:"type"`
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"t"` // unix milliseconds
	Price     float64 `json:"p"`
}
