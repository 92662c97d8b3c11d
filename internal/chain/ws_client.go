package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned for requests on a closed or lost connection.
var ErrConnectionClosed = errors.New("websocket connection closed")

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long the connection may stay silent, pongs included.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// RequestTimeout bounds the wait for a subscribe/unsubscribe response.
	RequestTimeout time.Duration
	// Commitment is the commitment level for program subscriptions.
	Commitment string
	// OnDisconnect is called once, on its own goroutine, when the connection is lost.
	// It is not called after Close.
	OnDisconnect func(err error)
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		PingInterval:   30 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		RequestTimeout: 30 * time.Second,
		Commitment:     CommitmentConfirmed,
	}
}

// WSClientImpl implements AccountSubscriber using gorilla/websocket.
// A client serves exactly one connection: after a read failure it shuts down and
// reports through OnDisconnect, and the owner dials a new client.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	connMu    sync.Mutex // serializes writes
	closed    atomic.Bool
	requestID atomic.Uint64

	// subscriptions maps subscription ID to channel
	subs   map[int64]chan AccountNotification
	subsMu sync.RWMutex

	// pending maps request ID to channel waiting for the response
	pending   map[uint64]chan wsMessage
	pendingMu sync.Mutex

	// done is closed on Close or connection loss
	done         chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// Compile-time interface check.
var _ AccountSubscriber = (*WSClientImpl)(nil)

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClientImpl{
		endpoint: endpoint,
		config:   cfg,
		subs:     make(map[int64]chan AccountNotification),
		pending:  make(map[uint64]chan wsMessage),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	// Start reader goroutine
	c.wg.Add(1)
	go c.readLoop()

	// Start ping goroutine
	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes WebSocket connection.
func (c *WSClientImpl) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	})

	c.conn = conn
	return nil
}

// SubscribeProgram subscribes to account changes owned by program.
func (c *WSClientImpl) SubscribeProgram(ctx context.Context, program string, filter ProgramFilter) (int64, <-chan AccountNotification, error) {
	config := map[string]interface{}{
		"encoding":   "base64",
		"commitment": c.config.Commitment,
	}
	if filters := filter.params(); len(filters) > 0 {
		config["filters"] = filters
	}

	result, err := c.request(ctx, "programSubscribe", []interface{}{program, config})
	if err != nil {
		return 0, nil, fmt.Errorf("programSubscribe %s: %w", program, err)
	}

	var subID int64
	if err := json.Unmarshal(result, &subID); err != nil {
		return 0, nil, fmt.Errorf("programSubscribe %s: decode subscription id: %w", program, err)
	}

	// Large buffer absorbs bursts; sends block rather than drop.
	ch := make(chan AccountNotification, 10000)

	c.subsMu.Lock()
	select {
	case <-c.done:
		c.subsMu.Unlock()
		return 0, nil, ErrConnectionClosed
	default:
	}
	c.subs[subID] = ch
	c.subsMu.Unlock()

	return subID, ch, nil
}

// Unsubscribe cancels a program subscription and closes its channel.
func (c *WSClientImpl) Unsubscribe(ctx context.Context, subID int64) error {
	c.subsMu.Lock()
	ch, ok := c.subs[subID]
	if ok {
		delete(c.subs, subID)
		close(ch)
	}
	c.subsMu.Unlock()

	if !ok {
		return fmt.Errorf("unknown subscription %d", subID)
	}

	if _, err := c.request(ctx, "programUnsubscribe", []interface{}{subID}); err != nil {
		return fmt.Errorf("programUnsubscribe %d: %w", subID, err)
	}
	return nil
}

// Close closes the WebSocket connection.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	c.shutdown(nil)
	c.wg.Wait()
	return nil
}

// Done is closed once the connection is closed or lost.
func (c *WSClientImpl) Done() <-chan struct{} {
	return c.done
}

// shutdown tears the connection down once. A non-nil cause marks a lost
// connection and is reported through OnDisconnect.
func (c *WSClientImpl) shutdown(cause error) {
	c.shutdownOnce.Do(func() {
		close(c.done)

		c.connMu.Lock()
		if cause == nil {
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		}
		c.conn.Close()
		c.connMu.Unlock()

		// Close all subscription channels
		c.subsMu.Lock()
		for id, ch := range c.subs {
			close(ch)
			delete(c.subs, id)
		}
		c.subsMu.Unlock()

		// Waiters observe done; drop their entries
		c.pendingMu.Lock()
		for id := range c.pending {
			delete(c.pending, id)
		}
		c.pendingMu.Unlock()

		if cause != nil && c.config.OnDisconnect != nil {
			go c.config.OnDisconnect(cause)
		}
	})
}

// request sends a JSON-RPC request and waits for its response.
func (c *WSClientImpl) request(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}
	select {
	case <-c.done:
		return nil, ErrConnectionClosed
	default:
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	respCh := make(chan wsMessage, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = respCh
	c.pendingMu.Unlock()

	forget := func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}

	c.connMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		forget()
		return nil, fmt.Errorf("write %s: %w", method, err)
	}

	timer := time.NewTimer(c.config.RequestTimeout)
	defer timer.Stop()

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-timer.C:
		forget()
		return nil, fmt.Errorf("%s timeout after %v", method, c.config.RequestTimeout)
	case <-c.done:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	}
}

// readLoop reads messages from WebSocket and dispatches to subscribers.
func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.shutdown(fmt.Errorf("websocket read: %w", err))
			return
		}

		c.handleMessage(message)
	}
}

// handleMessage processes incoming WebSocket message.
func (c *WSClientImpl) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	if msg.ID != nil {
		c.handleResponse(*msg.ID, msg)
		return
	}

	if msg.Method == "programNotification" {
		c.handleProgramNotification(msg.Params)
	}
}

// handleResponse routes a response to the waiting request.
func (c *WSClientImpl) handleResponse(id uint64, msg wsMessage) {
	c.pendingMu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	if ok {
		select {
		case ch <- msg:
		default:
		}
	}
}

// handleProgramNotification dispatches an account change to its subscriber.
func (c *WSClientImpl) handleProgramNotification(raw json.RawMessage) {
	var params wsProgramParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return
	}

	value := params.Result.Value
	notif := AccountNotification{
		Pubkey:   value.Pubkey,
		Owner:    value.Account.Owner,
		Lamports: value.Account.Lamports,
	}
	if params.Result.Context != nil {
		notif.Slot = params.Result.Context.Slot
	}
	if len(value.Account.Data) > 0 {
		data, err := base64.StdEncoding.DecodeString(value.Account.Data[0])
		if err != nil {
			return
		}
		notif.Data = data
	}

	// Hold the read lock while sending so the channel cannot be closed underneath.
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()

	ch, ok := c.subs[params.Subscription]
	if !ok {
		return
	}

	// Block until we can send - never drop events
	select {
	case ch <- notif:
	case <-c.done:
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			// A dead connection surfaces as a read error
			_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// wsMessage is the union of responses and notifications.
type wsMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type wsProgramParams struct {
	Subscription int64           `json:"subscription"`
	Result       wsProgramResult `json:"result"`
}

type wsProgramResult struct {
	Context *wsContext     `json:"context"`
	Value   wsProgramValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsProgramValue struct {
	Pubkey  string    `json:"pubkey"`
	Account wsAccount `json:"account"`
}

type wsAccount struct {
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	RentEpoch  uint64   `json:"rentEpoch"`
}
