// Package sockline re-exports the resilient websocket client and its
// collaborators for callers who prefer a single import.
//
// The interesting pieces live in the subpackages:
//
//   - pkg/client: the connection lifecycle manager with reconnect timer,
//     disconnected-send queueing, and correlated request/reply settlement
//   - pkg/wire: correlation id generation, body coercion, error normalizing
//   - pkg/relay: a broadcast relay endpoint for development and tests
//   - pkg/watch: debounced directory watching for the dev server
package sockline

import (
	"github.com/lightforgemedia/go-sockline/pkg/client"
	"github.com/lightforgemedia/go-sockline/pkg/wire"
)

// Re-export core types.
type (
	Client      = client.Client
	Option      = client.Option
	Reply       = client.Reply
	State       = client.State
	ErrorInfo   = wire.ErrorInfo
	IDGenerator = wire.IDGenerator
)

// Connection states.
const (
	StateDisconnected = client.StateDisconnected
	StateConnecting   = client.StateConnecting
	StateConnected    = client.StateConnected
)

// New creates a client for the given ws:// or wss:// address. See
// client.New.
func New(addr string, opts ...Option) *Client {
	return client.New(addr, opts...)
}

// NewIDGenerator returns a correlation id generator for the given scope.
func NewIDGenerator(scope string) *IDGenerator {
	return wire.NewIDGenerator(scope)
}
