package client

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *resolverRegistry {
	return newResolverRegistry(slog.Default())
}

func TestRegistryResolveBeforeTimeout(t *testing.T) {
	r := testRegistry()
	ch := r.register("id-1", 100*time.Millisecond)

	ok := r.resolve("id-1", json.RawMessage(`{"pong":true}`))
	require.True(t, ok)

	reply := <-ch
	assert.True(t, reply.Answered)
	assert.JSONEq(t, `{"pong":true}`, string(reply.Value))
	assert.Equal(t, 0, r.pendingCount())

	// The timer firing later must be a no-op: no second settlement.
	select {
	case extra := <-ch:
		t.Fatalf("unexpected second settlement: %+v", extra)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRegistryTimeoutSentinel(t *testing.T) {
	r := testRegistry()
	ch := r.register("id-1", 50*time.Millisecond)

	select {
	case reply := <-ch:
		assert.False(t, reply.Answered)
		assert.Nil(t, reply.Value)
	case <-time.After(time.Second):
		t.Fatal("timeout sentinel never delivered")
	}
	assert.Equal(t, 0, r.pendingCount())

	// Resolving after the timeout is a no-op.
	assert.False(t, r.resolve("id-1", json.RawMessage(`1`)))
}

func TestRegistryResolveUnknownIsNoop(t *testing.T) {
	r := testRegistry()
	assert.NotPanics(t, func() {
		assert.False(t, r.resolve("never-registered", json.RawMessage(`{}`)))
	})
}

func TestRegistryDuplicateRegistrationOrphansPrevious(t *testing.T) {
	r := testRegistry()
	first := r.register("dup", 50*time.Millisecond)
	second := r.register("dup", time.Second)
	assert.Equal(t, 1, r.pendingCount())

	require.True(t, r.resolve("dup", json.RawMessage(`"v"`)))
	reply := <-second
	assert.True(t, reply.Answered)

	// The orphaned entry never settles, not even via its timer.
	select {
	case extra := <-first:
		t.Fatalf("orphaned registration settled: %+v", extra)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestRegistrySettlesExactlyOnce(t *testing.T) {
	r := testRegistry()
	ch := r.register("once", 30*time.Millisecond)
	r.resolve("once", json.RawMessage(`1`))
	r.resolve("once", json.RawMessage(`2`))

	reply := <-ch
	assert.True(t, reply.Answered)
	assert.Equal(t, `1`, string(reply.Value))

	select {
	case extra := <-ch:
		t.Fatalf("settled more than once: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}
