package client

import (
	"sync"
	"time"
)

// queuedMessage is one body buffered while the connection was down.
type queuedMessage struct {
	enqueuedAt time.Time
	body       string
}

// outboundQueue buffers serialized bodies during disconnection. It is
// bounded by age only, never by count: a client that stays disconnected
// with queueing enabled and no max age grows without limit.
type outboundQueue struct {
	mu    sync.Mutex
	items []queuedMessage
}

func (q *outboundQueue) enqueue(body string) {
	q.mu.Lock()
	q.items = append(q.items, queuedMessage{enqueuedAt: time.Now(), body: body})
	q.mu.Unlock()
}

func (q *outboundQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// flush drains the queue in insertion order, handing each item younger than
// maxAge (0 = unlimited) to send. The queue is cleared unconditionally after
// the single pass: stale items are dropped unsent, and items whose send
// failed mid-flush are not retried. At-most-once, one attempt.
func (q *outboundQueue) flush(send func(body string) error, maxAge time.Duration) {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	now := time.Now()
	for _, item := range items {
		if maxAge > 0 && now.Sub(item.enqueuedAt) > maxAge {
			continue
		}
		_ = send(item.body)
	}
}
