package client

import (
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/lightforgemedia/go-sockline/pkg/wire"
)

// Option configures the Client.
type Option func(*Client)

// WithName sets the client's scope name, used as the logging label and as
// the prefix for generated correlation ids.
func WithName(name string) Option {
	return func(c *Client) {
		c.cfg.name = name
	}
}

// WithLogger sets a custom logging implementation.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.cfg.logger = logger
		}
	}
}

// WithReconnectInterval sets the period of the reconnect timer. Default 30s.
func WithReconnectInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.cfg.reconnectInterval = interval
		}
	}
}

// WithQueueing enables buffering of outbound messages while disconnected.
// Disabled by default; without it, messages sent while disconnected are
// dropped.
func WithQueueing() Option {
	return func(c *Client) {
		c.cfg.queueing = true
	}
}

// WithMaxQueueAge sets the maximum age a queued message may reach before it
// is discarded unsent during the post-reconnect flush. 0 means unlimited.
func WithMaxQueueAge(maxAge time.Duration) Option {
	return func(c *Client) {
		if maxAge > 0 {
			c.cfg.maxQueueAge = maxAge
		}
	}
}

// WithSubprotocols sets the subprotocol identifiers negotiated at connect
// time.
func WithSubprotocols(subprotocols ...string) Option {
	return func(c *Client) {
		c.cfg.subprotocols = subprotocols
	}
}

// WithDialOptions sets custom websocket.DialOptions. Subprotocols given via
// WithSubprotocols still apply on top.
func WithDialOptions(opts *websocket.DialOptions) Option {
	return func(c *Client) {
		c.cfg.dialOptions = opts
	}
}

// WithDefaultReplyTimeout sets the timeout used by SendWithReply when the
// caller passes zero. Default 1s.
func WithDefaultReplyTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.cfg.replyTimeout = timeout
		}
	}
}

// WithWriteTimeout sets the per-frame write timeout. Default 5s.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.cfg.writeTimeout = timeout
		}
	}
}

// OnOpen sets the hook invoked after every successful (re)connection,
// before the queued backlog is flushed.
func OnOpen(fn func()) Option {
	return func(c *Client) {
		if fn != nil {
			c.cfg.onOpen = fn
		}
	}
}

// OnClose sets the hook invoked when an established connection is lost.
func OnClose(fn func()) Option {
	return func(c *Client) {
		if fn != nil {
			c.cfg.onClose = fn
		}
	}
}

// OnMessage sets the hook invoked with the raw payload of every inbound
// frame. The client does not parse or interpret payloads.
func OnMessage(fn func(payload []byte)) Option {
	return func(c *Client) {
		if fn != nil {
			c.cfg.onMessage = fn
		}
	}
}

// OnError sets the hook invoked with normalized info for every transport
// failure.
func OnError(fn func(info wire.ErrorInfo)) Option {
	return func(c *Client) {
		if fn != nil {
			c.cfg.onError = fn
		}
	}
}
