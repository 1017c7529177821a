// Package relay provides a minimal broadcast endpoint for sockline clients:
// every text frame received from any connected peer is fanned out to all
// connected peers. It backs the dev server and the integration tests; it is
// not a delivery-guaranteed broker.
package relay

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/cskr/pubsub"
)

const (
	topicFrames        = "relay.frames"
	defaultQueueLength = 64
	defaultWriteWait   = 5 * time.Second
)

// Relay is an http.Handler that upgrades requests to websocket connections
// joined to one shared broadcast bus.
type Relay struct {
	bus    *pubsub.PubSub
	log    *slog.Logger
	accept *websocket.AcceptOptions
	queue  int
}

// Option configures the Relay.
type Option func(*Relay)

// WithLogger sets a custom logging implementation.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.log = logger
		}
	}
}

// WithAcceptOptions provides custom websocket.AcceptOptions, e.g. to accept
// specific subprotocols.
func WithAcceptOptions(opts *websocket.AcceptOptions) Option {
	return func(r *Relay) {
		r.accept = opts
	}
}

// WithQueueLength sets the per-subscriber buffer on the broadcast bus.
// Frames for a subscriber whose buffer is full are dropped.
func WithQueueLength(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.queue = n
		}
	}
}

// New creates a Relay.
func New(opts ...Option) *Relay {
	r := &Relay{
		log:   slog.Default(),
		queue: defaultQueueLength,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.bus = pubsub.New(r.queue)
	return r
}

// Broadcast publishes a frame to every connected peer, as if a peer had
// sent it.
func (r *Relay) Broadcast(data []byte) {
	r.bus.TryPub(append([]byte(nil), data...), topicFrames)
}

// Shutdown closes the broadcast bus. Connected peers are dropped.
func (r *Relay) Shutdown() {
	r.bus.Shutdown()
}

func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := websocket.Accept(w, req, r.accept)
	if err != nil {
		r.log.Warn("relay: accept failed", "remote", req.RemoteAddr, "error", err)
		return
	}
	r.log.Info("relay: peer connected", "remote", req.RemoteAddr)
	defer r.log.Info("relay: peer gone", "remote", req.RemoteAddr)
	r.serve(req.Context(), conn)
}

func (r *Relay) serve(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close(websocket.StatusNormalClosure, "relay finished")

	frames := r.bus.Sub(topicFrames)
	defer r.bus.Unsub(frames, topicFrames)

	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				readErr <- err
				return
			}
			r.bus.TryPub(append([]byte(nil), data...), topicFrames)
		}
	}()

	for {
		select {
		case raw, ok := <-frames:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, defaultWriteWait)
			err := conn.Write(wctx, websocket.MessageText, raw.([]byte))
			cancel()
			if err != nil {
				r.log.Debug("relay: write failed, dropping peer", "error", err)
				return
			}
		case err := <-readErr:
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				r.log.Debug("relay: read ended", "error", err)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}
