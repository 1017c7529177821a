package relay_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightforgemedia/go-sockline/pkg/client"
	"github.com/lightforgemedia/go-sockline/pkg/relay"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

func startRelay(t *testing.T) (*relay.Relay, string) {
	t.Helper()
	r := relay.New(relay.WithLogger(testLogger))
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		r.Shutdown()
	})
	return r, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	return string(data)
}

func TestRelayBroadcastsToAllPeers(t *testing.T) {
	_, url := startRelay(t)

	a := dial(t, url)
	b := dial(t, url)
	time.Sleep(50 * time.Millisecond) // let both subscriptions register

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Write(ctx, websocket.MessageText, []byte("fan-out")))

	// Every peer receives the frame, sender included.
	assert.Equal(t, "fan-out", readFrame(t, a))
	assert.Equal(t, "fan-out", readFrame(t, b))
}

func TestRelayServerSideBroadcast(t *testing.T) {
	r, url := startRelay(t)

	peer := dial(t, url)
	time.Sleep(50 * time.Millisecond)

	r.Broadcast([]byte("from-the-server"))
	assert.Equal(t, "from-the-server", readFrame(t, peer))
}

func TestRelayWithSocklineClient(t *testing.T) {
	_, url := startRelay(t)

	received := make(chan string, 4)
	c := client.New(url,
		client.WithName("relay test"),
		client.WithLogger(testLogger),
		client.WithReconnectInterval(50*time.Millisecond),
		client.OnMessage(func(payload []byte) { received <- string(payload) }),
	)
	c.Start()
	defer c.Close()
	require.Eventually(t, c.IsConnected, 2*time.Second, 10*time.Millisecond)

	peer := dial(t, url)
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, peer.Write(ctx, websocket.MessageText, []byte("hi client")))

	select {
	case got := <-received:
		assert.Equal(t, "hi client", got)
	case <-time.After(2 * time.Second):
		t.Fatal("client never received the relayed frame")
	}

	// And the reverse direction: the client publishes, the raw peer hears
	// it. The peer may first see the echo of its own frame.
	require.NoError(t, c.Send("hi peer"))
	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	for {
		_, data, err := peer.Read(ctx2)
		require.NoError(t, err, "peer never received the client frame")
		if string(data) == "hi peer" {
			return
		}
	}
}
