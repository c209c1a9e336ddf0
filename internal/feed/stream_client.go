package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"token-replay-lab/internal/domain"
)

// StreamConfig configures stream client behavior.
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

// StreamClient consumes a token quote stream over WebSocket.
// Subscriptions are keyed by token address. The client reconnects with
// exponential backoff and resubscribes to all active tokens.
type StreamClient struct {
	endpoint string
	config   StreamConfig
	log      zerolog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// subs maps token address to delivery channel
	subs   map[string]chan Quote
	subsMu sync.RWMutex

	// pending maps token address to channel waiting for confirmation
	pending   map[string]chan struct{}
	pendingMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewStreamClient creates a stream client and connects to the endpoint.
func NewStreamClient(ctx context.Context, endpoint string, config *StreamConfig, log zerolog.Logger) (*StreamClient, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}

	c := &StreamClient{
		endpoint: endpoint,
		config:   cfg,
		log:      log.With().Str("component", "feed.stream").Logger(),
		subs:     make(map[string]chan Quote),
		pending:  make(map[string]chan struct{}),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// connect establishes the WebSocket connection.
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

// Subscribe subscribes to the quote stream for a token. The returned
// channel is closed when the client closes.
func (c *StreamClient) Subscribe(ctx context.Context, tokenAddress string) (<-chan Quote, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	c.subsMu.RLock()
	_, exists := c.subs[tokenAddress]
	c.subsMu.RUnlock()
	if exists {
		return nil, fmt.Errorf("already subscribed to %s", tokenAddress)
	}

	if err := c.sendSubscribe(ctx, tokenAddress); err != nil {
		return nil, err
	}

	// Buffer absorbs bursts; delivery blocks rather than dropping quotes.
	ch := make(chan Quote, 1024)
	c.subsMu.Lock()
	c.subs[tokenAddress] = ch
	c.subsMu.Unlock()

	return ch, nil
}

// sendSubscribe writes a subscribe request and waits for confirmation.
func (c *StreamClient) sendSubscribe(ctx context.Context, tokenAddress string) error {
	confirmCh := make(chan struct{}, 1)
	c.pendingMu.Lock()
	c.pending[tokenAddress] = confirmCh
	c.pendingMu.Unlock()

	cancelPending := func() {
		c.pendingMu.Lock()
		delete(c.pending, tokenAddress)
		c.pendingMu.Unlock()
	}

	req := streamMessage{Op: "subscribe", Token: tokenAddress}

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		cancelPending()
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		cancelPending()
		return fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case <-confirmCh:
		return nil
	case <-time.After(30 * time.Second):
		cancelPending()
		return fmt.Errorf("subscription timeout for %s", tokenAddress)
	case <-c.done:
		return fmt.Errorf("client closed")
	case <-ctx.Done():
		cancelPending()
		return ctx.Err()
	}
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
	for token, ch := range c.subs {
		close(ch)
		delete(c.subs, token)
	}
	c.subsMu.Unlock()

	c.pendingMu.Lock()
	for token, ch := range c.pending {
		close(ch)
		delete(c.pending, token)
	}
	c.pendingMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages and dispatches quotes to subscribers.
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

		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe to all tokens.
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
		c.log.Warn().Err(err).Msg("reconnect failed, will retry on next read error")
		return
	}

	c.resubscribeAll()
}

// resubscribeAll re-sends subscribe requests for all active tokens.
func (c *StreamClient) resubscribeAll() {
	c.subsMu.RLock()
	tokens := make([]string, 0, len(c.subs))
	for token := range c.subs {
		tokens = append(tokens, token)
	}
	c.subsMu.RUnlock()

	for _, token := range tokens {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.sendSubscribe(ctx, token)
		cancel()
		if err != nil {
			c.log.Warn().Err(err).Str("token", token).Msg("resubscribe failed")
		}
	}
}

// handleMessage processes an incoming message.
func (c *StreamClient) handleMessage(message []byte) {
	var msg streamMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.log.Debug().Err(err).Msg("unparseable stream message")
		return
	}

	switch msg.Op {
	case "subscribed":
		c.handleSubscribed(msg.Token)
	case "tick":
		c.handleTick(&msg)
	case "error":
		c.log.Warn().Str("token", msg.Token).Str("detail", msg.Error).Msg("stream error message")
	}
}

// handleSubscribed confirms a pending subscription.
func (c *StreamClient) handleSubscribed(token string) {
	c.pendingMu.Lock()
	ch, ok := c.pending[token]
	if ok {
		delete(c.pending, token)
	}
	c.pendingMu.Unlock()

	if ok {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// handleTick dispatches a quote to its subscriber.
func (c *StreamClient) handleTick(msg *streamMessage) {
	quote := Quote{
		TokenAddress: msg.Token,
		TimestampMs:  msg.TimestampMs,
		Price:        msg.Price,
		Measurement: domain.Measurement{
			Volume:      msg.Volume,
			HolderCount: msg.HolderCount,
			TVL:         msg.TVL,
			MarketCap:   msg.MarketCap,
		},
	}

	c.subsMu.RLock()
	ch, ok := c.subs[msg.Token]
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

// pingLoop sends periodic ping frames to keep the connection alive.
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
					c.log.Debug().Err(err).Msg("ping write failed")
				}
			}
			c.connMu.Unlock()
		}
	}
}

// streamMessage is the wire format for both directions of the quote stream.
type streamMessage struct {
	Op          string  `json:"op"`
	Token       string  `json:"token,omitempty"`
	TimestampMs int64   `json:"timestampMs,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Volume      float64 `json:"volume,omitempty"`
	HolderCount float64 `json:"holderCount,omitempty"`
	TVL         float64 `json:"tvl,omitempty"`
	MarketCap   float64 `json:"marketCap,omitempty"`
	Error       string  `json:"error,omitempty"`
}
