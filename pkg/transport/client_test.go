package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/enhance/pkg/loop"
	"github.com/vango-dev/enhance/pkg/state"
)

// echoServer accepts one socket, sends greeting frames and forwards what it
// reads to received.
func echoServer(t *testing.T, greeting []string, received chan<- Message) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, frame := range greeting {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msg, err := Decode(frame); err == nil {
				received <- msg
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientRoundTrip(t *testing.T) {
	received := make(chan Message, 4)
	srv := echoServer(t, []string{
		`{"type":"state:update","data":{"key":"count","value":7}}`,
		`garbage`,
		`{"type":"hmr:update","data":{"path":"index.html","timestamp":1}}`,
	}, received)
	defer srv.Close()

	l := loop.New(loop.Config{})
	store := state.New(state.Config{})
	notified := make(chan string, 1)
	client := NewClient(ClientConfig{
		URL:  wsURL(srv),
		Loop: l,
		Router: NewRouter(RouterConfig{
			Store: store,
			HMR:   notifierFunc(func(p string) { notified <- p }),
		}),
		MinBackoff: 10 * time.Millisecond,
	})
	store.SetSyncer(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	select {
	case path := <-notified:
		assert.Equal(t, "index.html", path)
	case <-time.After(2 * time.Second):
		t.Fatal("hmr:update never routed")
	}

	got := make(chan any, 1)
	require.True(t, l.Post(func() {
		got <- store.Get("count")
		store.Set("name", "ada")
	}))
	assert.Equal(t, 7.0, <-got)

	select {
	case msg := <-received:
		assert.Equal(t, TypeStateUpdate, msg.Type)
		var u StateUpdate
		require.NoError(t, msg.Payload(&u))
		assert.Equal(t, StateUpdate{Key: "name", Value: "ada"}, u)
	case <-time.After(2 * time.Second):
		t.Fatal("published update never arrived")
	}
	// The inbound update was not echoed.
	assert.Empty(t, received)
	assert.True(t, client.Connected())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestClientReconnects(t *testing.T) {
	received := make(chan Message, 1)
	var attempts atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msg, err := Decode(frame); err == nil {
			received <- msg
		}
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		URL:        wsURL(srv),
		Loop:       loop.New(loop.Config{}),
		Router:     NewRouter(RouterConfig{}),
		MinBackoff: 5 * time.Millisecond,
		MaxBackoff: 20 * time.Millisecond,
	})
	// Queued while disconnected, delivered once connected.
	client.Publish("draft", "hello")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go client.Run(ctx)

	select {
	case msg := <-received:
		assert.Equal(t, TypeStateUpdate, msg.Type)
		assert.GreaterOrEqual(t, attempts.Load(), int32(3))
	case <-ctx.Done():
		t.Fatal("client never delivered queued frame")
	}
}

func TestSendQueueFull(t *testing.T) {
	client := NewClient(ClientConfig{SendQueue: 1})
	require.NoError(t, client.Send(TypeStateUpdate, StateUpdate{Key: "a"}))
	assert.Error(t, client.Send(TypeStateUpdate, StateUpdate{Key: "b"}))
}

type notifierFunc func(string)

func (f notifierFunc) Notify(path string) { f(path) }

func TestInboundFramesWaitForLoop(t *testing.T) {
	greeting := make([]string, 0, 5)
	want := make([]string, 0, 5)
	for _, p := range []string{"a.html", "b.html", "c.html", "d.html", "e.html"} {
		greeting = append(greeting, `{"type":"hmr:update","data":{"path":"`+p+`","timestamp":1}}`)
		want = append(want, p)
	}
	srv := echoServer(t, greeting, make(chan Message, 1))
	defer srv.Close()

	l := loop.New(loop.Config{QueueSize: 1})
	notified := make(chan string, len(want))
	client := NewClient(ClientConfig{
		URL:        wsURL(srv),
		Loop:       l,
		Router:     NewRouter(RouterConfig{HMR: notifierFunc(func(p string) { notified <- p })}),
		MinBackoff: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	// Let the frames pile up against the one-slot queue before the loop runs.
	time.Sleep(50 * time.Millisecond)
	go l.Run(ctx)

	var got []string
	for len(got) < len(want) {
		select {
		case p := <-notified:
			got = append(got, p)
		case <-time.After(2 * time.Second):
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	assert.Equal(t, want, got)
}
