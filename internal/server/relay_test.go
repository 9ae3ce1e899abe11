package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:8080"

// startRelay serves a fresh hub over httptest and returns its ws:// URL.
func startRelay(t *testing.T, configure func(*Config)) (string, *Hub) {
	t.Helper()

	cfg := NewConfig()
	cfg.AllowedOrigins = []string{testOrigin}
	cfg.RateLimit = RateLimitConfig{Burst: 100, RefillInterval: time.Second}
	if configure != nil {
		configure(cfg)
	}
	SetConfig(cfg)

	hub := NewHub(NewRegistry())
	go hub.Run()
	ts := httptest.NewServer(SetupRoutes(hub))

	t.Cleanup(func() {
		ts.Close()
		_ = hub.Shutdown(2 * time.Second)
		SetConfig(nil)
	})

	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws", hub
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	headers.Set("Origin", testOrigin)

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func expectEvent(t *testing.T, conn *websocket.Conn, want Event) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var got Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, want, got)
}

// expectSilence must be the last read on conn: a timed-out read poisons it.
func expectSilence(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))

	_, data, err := conn.ReadMessage()
	assert.Error(t, err, "unexpected frame: %s", data)
}

func TestRelayCreateJoinChat(t *testing.T) {
	url, _ := startRelay(t, nil)
	owner := dial(t, url)
	member1 := dial(t, url)
	member2 := dial(t, url)
	outsider := dial(t, url)

	sendFrame(t, owner, `{"type":"create","payload":{"roomId":"R"}}`)
	expectEvent(t, owner, Event{Type: EventSuccess, Message: "Room created"})

	sendFrame(t, member1, `{"type":"join","payload":{"roomId":"R"}}`)
	expectEvent(t, member1, Event{Type: EventInfo, Message: "Joined room R"})
	sendFrame(t, member2, `{"type":"join","payload":{"roomId":"R"}}`)
	expectEvent(t, member2, Event{Type: EventInfo, Message: "Joined room R"})

	sendFrame(t, outsider, `{"type":"create","payload":{"roomId":"R3"}}`)
	expectEvent(t, outsider, Event{Type: EventSuccess, Message: "Room created"})

	sendFrame(t, owner, `{"type":"chat","payload":{"message":"hello room"}}`)
	expectEvent(t, member1, Event{Type: EventChat, Message: "hello room"})
	expectEvent(t, member2, Event{Type: EventChat, Message: "hello room"})

	expectSilence(t, owner, 200*time.Millisecond)
	expectSilence(t, outsider, 200*time.Millisecond)
}

func TestRelayErrorsReachOnlyTheCaller(t *testing.T) {
	url, hub := startRelay(t, nil)
	a := dial(t, url)
	b := dial(t, url)

	sendFrame(t, a, `{"type":"join","payload":{"roomId":"R2"}}`)
	expectEvent(t, a, Event{Type: EventError, Message: "Room does not exist"})

	sendFrame(t, a, `{"type":"chat","payload":{"message":"hello?"}}`)
	expectEvent(t, a, Event{Type: EventError, Message: "You are not in a room"})

	sendFrame(t, b, `{"type":"create","payload":{"roomId":"R"}}`)
	expectEvent(t, b, Event{Type: EventSuccess, Message: "Room created"})
	sendFrame(t, a, `{"type":"create","payload":{"roomId":"R"}}`)
	expectEvent(t, a, Event{Type: EventError, Message: "Room already exists"})

	rooms, members := hub.Registry().Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, members)
	expectSilence(t, b, 200*time.Millisecond)
}

func TestRelayMalformedFrameKeepsConnection(t *testing.T) {
	url, _ := startRelay(t, nil)
	conn := dial(t, url)

	sendFrame(t, conn, `this is not json`)
	sendFrame(t, conn, `{"type":"join","payload":{}}`)
	sendFrame(t, conn, `{"type":"create","payload":{"roomId":"still-alive"}}`)

	expectEvent(t, conn, Event{Type: EventSuccess, Message: "Room created"})
}

func TestRelayDisconnectDeletesEmptyRoom(t *testing.T) {
	url, hub := startRelay(t, nil)
	owner := dial(t, url)
	guest := dial(t, url)

	sendFrame(t, owner, `{"type":"create","payload":{"roomId":"R"}}`)
	expectEvent(t, owner, Event{Type: EventSuccess, Message: "Room created"})
	sendFrame(t, guest, `{"type":"join","payload":{"roomId":"R"}}`)
	expectEvent(t, guest, Event{Type: EventInfo, Message: "Joined room R"})

	require.NoError(t, owner.Close())
	assert.Eventually(t, func() bool {
		_, members := hub.Registry().Stats()
		return members == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, guest.Close())
	assert.Eventually(t, func() bool {
		rooms, _ := hub.Registry().Stats()
		return rooms == 0 && hub.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	late := dial(t, url)
	sendFrame(t, late, `{"type":"join","payload":{"roomId":"R"}}`)
	expectEvent(t, late, Event{Type: EventError, Message: "Room does not exist"})
}

func TestRelayRateLimitDropsFrames(t *testing.T) {
	url, _ := startRelay(t, func(cfg *Config) {
		cfg.RateLimit = RateLimitConfig{Burst: 1, RefillInterval: time.Hour}
	})
	conn := dial(t, url)

	sendFrame(t, conn, `{"type":"chat","payload":{"message":"first"}}`)
	sendFrame(t, conn, `{"type":"chat","payload":{"message":"second"}}`)

	expectEvent(t, conn, Event{Type: EventError, Message: "You are not in a room"})
	expectSilence(t, conn, 200*time.Millisecond)
}

func TestRelayOversizedFrameClosesConnection(t *testing.T) {
	url, hub := startRelay(t, func(cfg *Config) {
		cfg.MaxMessageSize = 128
	})
	conn := dial(t, url)

	sendFrame(t, conn, `{"type":"create","payload":{"roomId":"R"}}`)
	expectEvent(t, conn, Event{Type: EventSuccess, Message: "Room created"})

	sendFrame(t, conn, `{"type":"chat","payload":{"message":"`+strings.Repeat("x", 512)+`"}}`)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool {
		rooms, _ := hub.Registry().Stats()
		return rooms == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRelayRejectsDisallowedOrigin(t *testing.T) {
	url, _ := startRelay(t, nil)

	headers := http.Header{}
	headers.Set("Origin", "http://evil.example")
	conn, resp, err := websocket.DefaultDialer.Dial(url, headers)
	if conn != nil {
		_ = conn.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRelayShutdownClosesClients(t *testing.T) {
	url, hub := startRelay(t, nil)
	conn := dial(t, url)

	sendFrame(t, conn, `{"type":"create","payload":{"roomId":"R"}}`)
	expectEvent(t, conn, Event{Type: EventSuccess, Message: "Room created"})

	require.NoError(t, hub.Shutdown(2*time.Second))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	rooms, members := hub.Registry().Stats()
	assert.Zero(t, rooms)
	assert.Zero(t, members)
}
