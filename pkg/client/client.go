// Package client implements a resilient client for a persistent,
// message-oriented websocket connection. The client keeps a logical session
// alive across transient disconnects via a periodic reconnect timer, can
// buffer outbound traffic while disconnected (with time-based eviction on
// flush), and correlates outbound requests with asynchronous responses via
// caller-chosen ids.
//
// Delivery is at-most-once by design: messages sent while disconnected with
// queueing off are dropped, and the backlog flush after a reconnect makes a
// single attempt per message.
package client

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/lightforgemedia/go-sockline/pkg/wire"
)

const (
	defaultReconnectInterval = 30 * time.Second
	defaultReplyTimeout      = 1 * time.Second
	defaultWriteTimeout      = 5 * time.Second
	dialTimeout              = 10 * time.Second
)

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

type config struct {
	name              string
	logger            *slog.Logger
	reconnectInterval time.Duration
	queueing          bool
	maxQueueAge       time.Duration
	subprotocols      []string
	dialOptions       *websocket.DialOptions
	replyTimeout      time.Duration
	writeTimeout      time.Duration

	onOpen    func()
	onClose   func()
	onMessage func(payload []byte)
	onError   func(info wire.ErrorInfo)
}

// Client owns one socket handle, one reconnect timer, the outbound backlog
// and the pending-reply registry. Instances are independent; no coordination
// exists between them.
type Client struct {
	cfg  config
	addr string
	log  *slog.Logger
	ids  *wire.IDGenerator

	mu              sync.Mutex
	state           State
	conn            *websocket.Conn
	shouldReconnect bool
	timerCancel     context.CancelFunc
	pumpCancel      context.CancelFunc

	// attemptMu serializes connection attempts so that at most one dial is
	// in flight and at most one socket handle exists at any time.
	attemptMu sync.Mutex

	queue   *outboundQueue
	replies *resolverRegistry

	liveTimers atomic.Int32
}

// New creates a client for the given ws:// or wss:// address. The client is
// idle until Start is called.
func New(addr string, opts ...Option) *Client {
	c := &Client{
		addr: addr,
		cfg: config{
			logger:            slog.Default(),
			reconnectInterval: defaultReconnectInterval,
			replyTimeout:      defaultReplyTimeout,
			writeTimeout:      defaultWriteTimeout,
		},
		queue: &outboundQueue{},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.log = c.cfg.logger
	if c.cfg.name != "" {
		c.log = c.cfg.logger.With("client", c.cfg.name)
	}
	c.ids = wire.NewIDGenerator(c.cfg.name)
	c.replies = newResolverRegistry(c.log)

	if c.cfg.onOpen == nil {
		c.cfg.onOpen = func() { c.log.Debug("open hook (unset)") }
	}
	if c.cfg.onClose == nil {
		c.cfg.onClose = func() { c.log.Debug("close hook (unset)") }
	}
	if c.cfg.onMessage == nil {
		c.cfg.onMessage = func(payload []byte) {
			c.log.Debug("message hook (unset)", "bytes", len(payload))
		}
	}
	if c.cfg.onError == nil {
		c.cfg.onError = func(info wire.ErrorInfo) {
			c.log.Debug("error hook (unset)", "code", info.Code, "message", info.Message)
		}
	}
	return c
}

// Start enables reconnection, starts the reconnect timer and makes an
// immediate connection attempt. Idempotent: calling it again restarts the
// timer.
func (c *Client) Start() {
	c.mu.Lock()
	c.shouldReconnect = true
	c.startTimerLocked(true)
	c.mu.Unlock()
}

// Reconnect force-closes any existing connection and restarts the reconnect
// timer with an immediate attempt.
func (c *Client) Reconnect() {
	c.mu.Lock()
	c.shouldReconnect = true
	c.dropConnLocked(websocket.StatusAbnormalClosure, "reconnect requested")
	c.state = StateDisconnected
	c.startTimerLocked(true)
	c.mu.Unlock()
}

// Close disables reconnection, cancels the reconnect timer and closes the
// connection. The client stays down until Start or Reconnect is called.
// Pending reply timeouts are deliberately left running; they settle with the
// unanswered sentinel.
func (c *Client) Close() {
	c.mu.Lock()
	c.shouldReconnect = false
	c.stopTimerLocked()
	c.dropConnLocked(websocket.StatusNormalClosure, "client closed")
	c.state = StateDisconnected
	c.mu.Unlock()
	c.log.Info("client closed")
}

// IsConnected reports whether a connection is currently established.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// State returns a snapshot of the lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// NextID returns a fresh correlation id from the client's generator.
func (c *Client) NextID() string {
	return c.ids.Next()
}

// QueuedMessages returns the number of bodies currently buffered.
func (c *Client) QueuedMessages() int {
	return c.queue.len()
}

// PendingReplies returns the number of unsettled correlated requests.
func (c *Client) PendingReplies() int {
	return c.replies.pendingCount()
}

// Send transmits body over the connection. Non-string bodies are JSON
// serialized first. While disconnected the body is queued if queueing is
// enabled, otherwise dropped; both are best-effort by design and return nil.
func (c *Client) Send(body any) error {
	text, err := wire.Stringify(body)
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected && conn != nil
	c.mu.Unlock()

	if connected {
		return c.write(conn, text)
	}
	if c.cfg.queueing {
		c.queue.enqueue(text)
		c.log.Debug("disconnected, message queued", "backlog", c.queue.len())
		return nil
	}
	c.log.Debug("disconnected and queueing disabled, message dropped")
	return nil
}

// SendWithReply registers a settlement slot for id, sends body, and returns
// a channel that receives exactly one Reply: the result passed to Resolve,
// or the unanswered sentinel once timeout elapses. A zero timeout uses the
// configured default. Correlation is purely client-side; this layer does not
// place the id inside the payload.
func (c *Client) SendWithReply(body any, id string, timeout time.Duration) <-chan Reply {
	if timeout <= 0 {
		timeout = c.cfg.replyTimeout
	}
	if id == "" {
		c.log.Warn("empty correlation id passed to SendWithReply")
	}
	ch := c.replies.register(id, timeout)
	if err := c.Send(body); err != nil {
		c.log.Warn("send failed for correlated message", "id", id, "error", err)
	}
	return ch
}

// Resolve settles the pending request registered under id. Unknown ids are
// a logged no-op.
func (c *Client) Resolve(id string, result []byte) {
	c.replies.resolve(id, result)
}

// startTimerLocked starts the reconnect timer, cancelling any previous one
// first. Caller holds c.mu.
func (c *Client) startTimerLocked(immediate bool) {
	c.stopTimerLocked()
	ctx, cancel := context.WithCancel(context.Background())
	c.timerCancel = cancel
	c.liveTimers.Add(1)
	go c.reconnectLoop(ctx, immediate)
}

func (c *Client) stopTimerLocked() {
	if c.timerCancel != nil {
		c.timerCancel()
		c.timerCancel = nil
	}
}

// dropConnLocked cancels the pump and closes the current socket handle, if
// any. Caller holds c.mu.
func (c *Client) dropConnLocked(status websocket.StatusCode, reason string) {
	if c.pumpCancel != nil {
		c.pumpCancel()
		c.pumpCancel = nil
	}
	if c.conn != nil {
		c.conn.Close(status, reason)
		c.conn = nil
	}
}

// reconnectLoop attempts a connection on every tick while not connected.
// It exits when its context is cancelled, which happens the instant a
// connection succeeds or when the timer is stopped or replaced.
func (c *Client) reconnectLoop(ctx context.Context, immediate bool) {
	defer c.liveTimers.Add(-1)

	if immediate {
		c.attempt(ctx)
	}
	ticker := time.NewTicker(c.cfg.reconnectInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.attempt(ctx)
		}
	}
}

// attempt makes one connection attempt. Any existing handle is closed and
// discarded before dialing.
func (c *Client) attempt(ctx context.Context) {
	c.attemptMu.Lock()
	defer c.attemptMu.Unlock()

	c.mu.Lock()
	if !c.shouldReconnect || c.state == StateConnected {
		c.mu.Unlock()
		return
	}
	c.dropConnLocked(websocket.StatusAbnormalClosure, "stale connection being replaced")
	c.state = StateConnecting
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, _, err := websocket.Dial(dialCtx, c.addr, c.dialOptions())
	cancel()
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		c.log.Debug("connection attempt failed", "addr", c.addr, "error", err)
		c.cfg.onError(wire.NormalizeError(err))
		return
	}

	c.mu.Lock()
	if !c.shouldReconnect {
		// Close raced the dial; discard the fresh handle.
		c.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "client closed during dial")
		return
	}
	c.conn = conn
	c.state = StateConnected
	c.stopTimerLocked()
	pumpCtx, pumpCancel := context.WithCancel(context.Background())
	c.pumpCancel = pumpCancel
	c.mu.Unlock()

	go c.readPump(pumpCtx, conn)

	c.log.Info("connected", "addr", c.addr)
	c.cfg.onOpen()
	c.flushBacklog(conn)
}

func (c *Client) dialOptions() *websocket.DialOptions {
	opts := c.cfg.dialOptions
	if opts == nil {
		opts = &websocket.DialOptions{}
	}
	if len(c.cfg.subprotocols) > 0 && len(opts.Subprotocols) == 0 {
		opts.Subprotocols = c.cfg.subprotocols
	}
	return opts
}

// flushBacklog drains the queue over the freshly opened connection.
func (c *Client) flushBacklog(conn *websocket.Conn) {
	if !c.cfg.queueing {
		return
	}
	if n := c.queue.len(); n > 0 {
		c.log.Info("flushing queued messages", "backlog", n, "maxAge", c.cfg.maxQueueAge)
	}
	c.queue.flush(func(body string) error {
		if err := c.write(conn, body); err != nil {
			c.log.Warn("flush send failed, message dropped", "error", err)
			return err
		}
		return nil
	}, c.cfg.maxQueueAge)
}

func (c *Client) write(conn *websocket.Conn, text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, []byte(text))
}

// readPump delivers inbound payloads to the message hook until the
// connection fails or is replaced.
func (c *Client) readPump(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.handleReadError(ctx, conn, err)
			return
		}
		c.cfg.onMessage(data)
	}
}

// handleReadError runs the close/error dispatch for a connection that
// stopped reading. Deliberate local closes (Close, Reconnect, replacement)
// were already handled by whoever cancelled the pump context.
func (c *Client) handleReadError(ctx context.Context, conn *websocket.Conn, err error) {
	if ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	if c.conn != conn {
		// A newer connection already replaced this one.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.pumpCancel = nil
	c.state = StateDisconnected
	reconnect := c.shouldReconnect
	c.mu.Unlock()

	conn.Close(websocket.StatusAbnormalClosure, "read failed")

	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
		c.log.Info("connection closed by peer", "status", int(status))
		c.cfg.onClose()
		if reconnect {
			c.restartTimer(false)
		}
		return
	}

	info := wire.NormalizeError(err)
	c.log.Warn("connection error", "code", info.Code, "message", info.Message)
	c.cfg.onError(info)
	c.cfg.onClose()
	if reconnect {
		// Immediate attempt so a failure does not cost a full interval.
		c.restartTimer(true)
	}
}

func (c *Client) restartTimer(immediate bool) {
	c.mu.Lock()
	if c.shouldReconnect {
		c.startTimerLocked(immediate)
	}
	c.mu.Unlock()
}

// activeReconnectTimers is test instrumentation for the single-timer
// invariant.
func (c *Client) activeReconnectTimers() int32 {
	return c.liveTimers.Load()
}
