package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFlushInsertionOrder(t *testing.T) {
	q := &outboundQueue{}
	q.enqueue("a")
	q.enqueue("b")
	q.enqueue("c")

	var sent []string
	q.flush(func(body string) error {
		sent = append(sent, body)
		return nil
	}, 0)

	assert.Equal(t, []string{"a", "b", "c"}, sent)
	assert.Equal(t, 0, q.len())
}

func TestQueueFlushDropsExpired(t *testing.T) {
	q := &outboundQueue{}
	q.enqueue("old")
	// Age the first item past the max.
	q.mu.Lock()
	q.items[0].enqueuedAt = time.Now().Add(-12 * time.Second)
	q.mu.Unlock()
	q.enqueue("fresh")

	var sent []string
	q.flush(func(body string) error {
		sent = append(sent, body)
		return nil
	}, 5*time.Second)

	assert.Equal(t, []string{"fresh"}, sent)
	assert.Equal(t, 0, q.len())
}

func TestQueueFlushZeroMaxAgeKeepsEverything(t *testing.T) {
	q := &outboundQueue{}
	q.enqueue("ancient")
	q.mu.Lock()
	q.items[0].enqueuedAt = time.Now().Add(-24 * time.Hour)
	q.mu.Unlock()

	var sent []string
	q.flush(func(body string) error {
		sent = append(sent, body)
		return nil
	}, 0)

	assert.Equal(t, []string{"ancient"}, sent)
}

func TestQueueFlushClearsEvenWhenSendFails(t *testing.T) {
	q := &outboundQueue{}
	q.enqueue("a")
	q.enqueue("b")

	calls := 0
	q.flush(func(string) error {
		calls++
		return assert.AnError
	}, 0)

	// Single attempt per item, no retry on the next flush.
	require.Equal(t, 2, calls)
	assert.Equal(t, 0, q.len())

	q.flush(func(string) error {
		t.Fatal("queue should be empty after a flush")
		return nil
	}, 0)
}
