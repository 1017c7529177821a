package client

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Reply is the settlement of one correlated request. Answered reports
// whether an actual result arrived before the timeout; a Reply with
// Answered == false is the unanswered sentinel, distinct from any
// legitimate result value (including JSON null).
type Reply struct {
	Value    json.RawMessage
	Answered bool
}

type pendingReply struct {
	ch    chan Reply
	timer *time.Timer
}

// resolverRegistry maps correlation ids to pending settlements and enforces
// exactly-once settlement with a timeout fallback.
type resolverRegistry struct {
	log *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingReply
}

func newResolverRegistry(log *slog.Logger) *resolverRegistry {
	return &resolverRegistry{log: log, pending: make(map[string]*pendingReply)}
}

// register stores a settlement slot for id and arms its timeout. If id is
// already registered the previous entry is overwritten and orphaned; it
// never settles. Callers own id uniqueness.
func (r *resolverRegistry) register(id string, timeout time.Duration) <-chan Reply {
	p := &pendingReply{ch: make(chan Reply, 1)}

	r.mu.Lock()
	if old, ok := r.pending[id]; ok {
		old.timer.Stop()
		r.log.Warn("correlation id re-registered, previous entry orphaned", "id", id)
	}
	p.timer = time.AfterFunc(timeout, func() { r.expire(id, p) })
	r.pending[id] = p
	r.mu.Unlock()

	return p.ch
}

// expire settles p with the unanswered sentinel, unless id was resolved (or
// overwritten) in the meantime.
func (r *resolverRegistry) expire(id string, p *pendingReply) {
	r.mu.Lock()
	cur, ok := r.pending[id]
	if !ok || cur != p {
		r.mu.Unlock()
		return
	}
	delete(r.pending, id)
	r.mu.Unlock()

	r.log.Debug("correlated request unanswered", "id", id)
	p.ch <- Reply{}
}

// resolve settles the pending entry for id with result. Unknown ids (already
// settled, timed out, or never registered) are a logged no-op.
func (r *resolverRegistry) resolve(id string, result json.RawMessage) bool {
	r.mu.Lock()
	p, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if !ok {
		r.log.Debug("resolve for unknown correlation id", "id", id)
		return false
	}
	p.timer.Stop()
	p.ch <- Reply{Value: result, Answered: true}
	return true
}

func (r *resolverRegistry) pendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
