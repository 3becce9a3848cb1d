package longchat

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/Thanh-ngan915/longchat-go/longchat/internal"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Client owns the persistent connection to the chat server: the
// connect/reconnect state machine, the send path, and per-frame decode and
// dispatch. One Client serves one logical session; handlers observe events
// in arrival order.
type Client struct {
	cfg        Config
	logger     Logger
	dispatcher *Dispatcher

	mu                sync.Mutex
	state             ConnectionState
	conn              *internal.Conn
	cancel            context.CancelFunc
	writeCh           chan []byte
	connID            string
	reconnectAttempts int
	reconnectTimer    *time.Timer
	suppressReconnect bool
	onStateChanged    func(StateEvent)
}

// NewClient constructs a client with the provided config.
// Use DefaultConfig() as a starting point and modify as needed.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		logger:     noopLogger{},
		dispatcher: NewDispatcher(),
	}
}

// SetLogger overrides the logger (optional).
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
	c.dispatcher.SetLogger(l)
}

// Dispatcher returns the registry consumers attach handlers to.
func (c *Client) Dispatcher() *Dispatcher { return c.dispatcher }

// On registers fn for key on the client's dispatcher.
func (c *Client) On(key string, fn HandlerFunc) { c.dispatcher.On(key, fn) }

// Off removes the handler for key.
func (c *Client) Off(key string) { c.dispatcher.Off(key) }

// OnStateChanged registers a callback fired on every state transition.
// Notifications are delivered asynchronously.
func (c *Client) OnStateChanged(fn func(StateEvent)) {
	c.mu.Lock()
	c.onStateChanged = fn
	c.mu.Unlock()
}

// Connect dials the server and starts the read and write loops. Calling
// Connect while already open is a no-op that returns nil. Only one attempt
// is ever outstanding; a Connect while another dial is in flight fails. A
// successful open resets the reconnect counter to zero.
//
// A failed dial returns the error to the caller and still schedules a
// bounded auto-reconnect; later transport faults are never surfaced here.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateOpen:
		c.mu.Unlock()
		c.logger.Debug("connect: already open", nil)
		return nil
	case StateConnecting:
		c.mu.Unlock()
		return NewError(ErrorConnection, "connect already in progress")
	}
	c.stopReconnectTimerLocked()
	c.suppressReconnect = false
	c.setStateLocked(StateConnecting, nil)
	c.mu.Unlock()

	if err := c.dial(ctx); err != nil {
		c.mu.Lock()
		c.setStateLocked(StateDisconnected, err)
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		return err
	}
	return nil
}

// Disconnect closes the connection, cancels any pending reconnect and
// suppresses further auto-reconnects until the next Connect.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.suppressReconnect = true
	c.stopReconnectTimerLocked()
	if c.state != StateOpen {
		c.setStateLocked(StateDisconnected, nil)
		c.mu.Unlock()
		return nil
	}
	c.setStateLocked(StateClosing, nil)
	conn := c.conn
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	return nil
}

// IsOpen reports whether the connection is open.
func (c *Client) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateOpen
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send encodes payload for key and queues the frame. Sends are
// fire-and-forget: on a connection that is not open the payload is logged
// and dropped, never queued for later, and callers must not assume delivery.
func (c *Client) Send(key string, payload any) error {
	frame, err := EncodeRequest(key, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	open := c.state == StateOpen
	writeCh := c.writeCh
	c.mu.Unlock()
	if !open || writeCh == nil {
		c.logger.Warn("send on closed connection, payload dropped", map[string]any{"key": key})
		return nil
	}

	select {
	case writeCh <- frame:
		return nil
	default:
		c.logger.Warn("write queue full, payload dropped", map[string]any{"key": key})
		return nil
	}
}

// dial performs one connection attempt and, on success, installs the
// transport and starts the loops.
func (c *Client) dial(ctx context.Context) error {
	if c.cfg.URL == "" {
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return WrapError(ErrorInvalidConfig, "parse URL", err)
	}

	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	ws, _, err := websocket.Dial(dialCtx, u.String(), nil)
	if err != nil {
		return WrapError(ErrorConnection, "dial", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	// A Disconnect issued while the handshake was in flight must win: the
	// fresh socket is discarded instead of installed.
	if c.state != StateConnecting || c.suppressReconnect {
		c.mu.Unlock()
		cancel()
		_ = ws.Close(websocket.StatusNormalClosure, "aborted")
		return NewError(ErrorConnection, "dial aborted by disconnect")
	}
	c.conn = internal.NewConn(ws, c.cfg.ReadTimeout, c.cfg.WriteTimeout)
	c.cancel = cancel
	c.writeCh = make(chan []byte, 16)
	c.connID = uuid.NewString()
	c.reconnectAttempts = 0
	c.setStateLocked(StateOpen, nil)
	conn := c.conn
	writeCh := c.writeCh
	connID := c.connID
	c.mu.Unlock()

	c.logger.Info("connected", map[string]any{"url": u.String(), "conn_id": connID})

	go c.readLoop(runCtx, conn, connID)
	go c.writeLoop(runCtx, conn, writeCh, connID)
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *internal.Conn, connID string) {
	for {
		frame, err := conn.Read(ctx)
		if err != nil {
			c.handleClose(err, connID)
			return
		}
		// One frame is fully dispatched before the next read.
		c.handleFrame(frame)
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *internal.Conn, ch chan []byte, connID string) {
	for {
		select {
		case frame := <-ch:
			if err := conn.Write(ctx, frame); err != nil {
				if ctx.Err() == nil && !isExpectedDisconnect(err) {
					c.logger.Warn("write failed", map[string]any{"conn_id": connID, "error": err.Error()})
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// handleFrame decodes one inbound frame and fans it out. A malformed frame
// is logged and dropped with no dispatch at all, wildcard included.
func (c *Client) handleFrame(frame []byte) {
	ev, shape, err := DecodeFrame(frame)
	if err != nil {
		c.logger.Warn("dropping malformed frame", map[string]any{"error": err.Error()})
		return
	}
	if shape == ShapeUnrecognized {
		c.logger.Debug("unrecognized frame shape", nil)
	}
	c.dispatcher.Dispatch(ev, shape)
}

// handleClose tears down after the read loop exits and decides on reconnect.
func (c *Client) handleClose(err error, connID string) {
	c.mu.Lock()
	// A loop left over from a previous connection must not drive the state
	// machine of the current one.
	if c.connID != connID {
		c.mu.Unlock()
		return
	}
	expected := c.state == StateClosing || c.suppressReconnect
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.conn = nil
	c.writeCh = nil

	var cause error
	if !expected && !isExpectedDisconnect(err) {
		cause = WrapError(ErrorConnection, "connection lost", err)
	}
	c.setStateLocked(StateDisconnected, cause)
	if !expected {
		c.scheduleReconnectLocked()
	}
	c.mu.Unlock()

	if cause == nil {
		c.logger.Debug("connection closed", map[string]any{"conn_id": connID})
		return
	}
	c.logger.Warn("connection lost", map[string]any{"conn_id": connID, "error": err.Error()})
}

// scheduleReconnectLocked arms the single reconnect timer: fixed delay,
// attempts capped by config. Exhaustion is silent beyond a log line; callers
// detect permanent disconnection through IsOpen or missing events.
func (c *Client) scheduleReconnectLocked() {
	if c.suppressReconnect || c.reconnectTimer != nil {
		return
	}
	if c.reconnectAttempts >= c.cfg.MaxReconnectAttempts {
		c.logger.Warn("reconnect attempts exhausted", map[string]any{"attempts": c.reconnectAttempts})
		return
	}
	c.reconnectAttempts++
	attempt := c.reconnectAttempts
	c.logger.Info("scheduling reconnect", map[string]any{
		"attempt": attempt,
		"max":     c.cfg.MaxReconnectAttempts,
		"delay":   c.cfg.ReconnectDelay.String(),
	})
	c.reconnectTimer = time.AfterFunc(c.cfg.ReconnectDelay, func() { c.reconnect(attempt) })
}

// reconnect runs when the timer fires. Unlike Connect it does not clear the
// suppress flag, so a Disconnect issued while the timer was pending wins.
func (c *Client) reconnect(attempt int) {
	c.mu.Lock()
	c.reconnectTimer = nil
	if c.suppressReconnect || c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(StateConnecting, nil)
	c.mu.Unlock()

	if err := c.dial(context.Background()); err != nil {
		c.logger.Warn("reconnect failed", map[string]any{"attempt": attempt, "error": err.Error()})
		c.mu.Lock()
		c.setStateLocked(StateDisconnected, err)
		c.scheduleReconnectLocked()
		c.mu.Unlock()
	}
}

func (c *Client) stopReconnectTimerLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

func (c *Client) setStateLocked(next ConnectionState, cause error) {
	if c.state == next {
		return
	}
	ev := StateEvent{Old: c.state, New: next, Err: cause}
	c.state = next
	if fn := c.onStateChanged; fn != nil {
		go fn(ev)
	}
}

func isExpectedDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
