package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/glance/internal/app"
)

var _ app.EventSink = (*EventsHandler)(nil)

func dialEvents(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestEventsHandler_Broadcast(t *testing.T) {
	hub := NewEventsHandler(nil)
	ts := httptest.NewServer(New(Config{Events: hub}))
	defer ts.Close()

	c1 := dialEvents(t, ts)
	c2 := dialEvents(t, ts)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 2*time.Second, 5*time.Millisecond)

	hub.Publish(app.Event{Type: app.EventRunStarted, RunID: "run-1", Time: time.Now(), Data: map[string]string{"question": "hi"}})

	for _, conn := range []*websocket.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var got app.Event
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, app.EventRunStarted, got.Type)
		assert.Equal(t, "run-1", got.RunID)
	}
}

func TestEventsHandler_Disconnect(t *testing.T) {
	hub := NewEventsHandler(nil)
	ts := httptest.NewServer(hub)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)

	// Publishing without clients is a no-op.
	assert.NotPanics(t, func() { hub.Publish(app.Event{Type: app.EventRunFinished}) })
}

func TestEventsHandler_SlowClientDropsEvents(t *testing.T) {
	hub := NewEventsHandler(nil)
	ts := httptest.NewServer(hub)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < sendBuffer*4; i++ {
			hub.Publish(app.Event{Type: app.EventVideoDone})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a client that does not read")
	}
}
