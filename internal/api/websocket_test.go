package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"blade-arena/internal/api"
	"blade-arena/internal/config"
	"blade-arena/internal/game"
	"blade-arena/internal/presence"

	"github.com/gorilla/websocket"
)

func newHubServer(t *testing.T, rooms *mockRooms, mutate func(*api.HubConfig)) (*api.RoomHub, *presence.Registry, *httptest.Server) {
	t.Helper()

	registry := presence.NewRegistry()
	cfg := api.DefaultHubConfig()
	cfg.Rooms = rooms
	cfg.Presence = registry
	if mutate != nil {
		mutate(&cfg)
	}
	hub := api.NewRoomHub(cfg)
	go hub.Run()

	srv := api.NewServer(config.DefaultServer(), 2000, rooms, hub, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		hub.Stop()
	})
	return hub, registry, ts
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestWebSocketLateJoinAndPush tests the join snapshot, tick pushes and
// destination commands over one connection.
func TestWebSocketLateJoinAndPush(t *testing.T) {
	rooms := newMockRooms()
	rooms.setState("r1", sampleState())
	hub, registry, ts := newHubServer(t, rooms, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/rooms/r1?userId=1&name=alice"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Reading snapshot: %v", err)
	}
	if msgType != websocket.TextMessage {
		t.Errorf("JSON clients should get text frames, got %d", msgType)
	}
	snapshot, err := api.DecodeState(api.FormatJSON, data)
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if snapshot.Frame != 7 {
		t.Errorf("Snapshot frame = %d, want 7", snapshot.Frame)
	}
	if joins := rooms.joinCalls(); len(joins) != 1 || joins[0] != "r1/1/alice" {
		t.Errorf("joins = %v", joins)
	}

	waitFor(t, "registration", func() bool { return hub.RoomClientCount("r1") == 1 })
	if !registry.IsUserOnline(1) {
		t.Error("User should be online while connected")
	}

	next := game.EmptyState()
	next.Frame = 8
	hub.PushToRoom("r1", next)
	hub.PushToRoom("other", next)

	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("Reading push: %v", err)
	}
	pushed, err := api.DecodeState(api.FormatJSON, data)
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if pushed.Frame != 8 {
		t.Errorf("Pushed frame = %d, want 8", pushed.Frame)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"x": 12.5, "y": -40}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	conn.WriteMessage(websocket.TextMessage, []byte(`{"x": 1}`))
	conn.WriteMessage(websocket.TextMessage, []byte(`not json`))

	waitFor(t, "destination", func() bool { return len(rooms.destinationCalls()) >= 1 })
	calls := rooms.destinationCalls()
	if calls[0] != (destinationCall{"r1", 1, 12.5, -40}) {
		t.Errorf("destination = %+v", calls[0])
	}

	conn.Close()
	waitFor(t, "disconnect", func() bool { return hub.ClientCount() == 0 })
	waitFor(t, "offline", func() bool { return !registry.IsUserOnline(1) })
}

// TestWebSocketMsgpack tests binary frames for msgpack subscribers
func TestWebSocketMsgpack(t *testing.T) {
	rooms := newMockRooms()
	rooms.setState("r1", sampleState())
	_, _, ts := newHubServer(t, rooms, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/rooms/r1?userId=2&format=msgpack"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Reading snapshot: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Errorf("msgpack clients should get binary frames, got %d", msgType)
	}
	state, err := api.DecodeState(api.FormatMsgpack, data)
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if len(state.Players) != 2 {
		t.Errorf("Expected 2 players, got %d", len(state.Players))
	}
}

// TestWebSocketRejections tests handshake failures
func TestWebSocketRejections(t *testing.T) {
	rooms := newMockRooms()
	rooms.setState("r1", game.EmptyState())
	_, _, ts := newHubServer(t, rooms, func(cfg *api.HubConfig) {
		cfg.MaxPerIP = 1
	})

	first, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/rooms/r1?userId=1"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer first.Close()

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"ip limit", "/ws/rooms/r1?userId=2", http.StatusTooManyRequests},
		{"bad user", "/ws/rooms/r1?userId=abc", http.StatusBadRequest},
		{"robot id", "/ws/rooms/r1?userId=-1", http.StatusBadRequest},
		{"bad format", "/ws/rooms/r1?userId=3&format=xml", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, tt.path), nil)
			if err == nil {
				t.Fatal("Dial should fail")
			}
			if resp == nil {
				t.Fatalf("Expected an HTTP response, got %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

// TestWebSocketOriginCheck tests unknown rooms and foreign browser origins
func TestWebSocketOriginCheck(t *testing.T) {
	rooms := newMockRooms()
	rooms.setState("r1", game.EmptyState())
	_, _, ts := newHubServer(t, rooms, nil)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/rooms/nope?userId=1"), nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("Unknown room: expected 404, got %v", resp)
	}

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err = websocket.DefaultDialer.Dial(wsURL(ts, "/ws/rooms/r1?userId=1"), header)
	if err == nil {
		t.Fatal("Dial from a foreign origin should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}

	header = http.Header{"Origin": []string{"http://localhost:5173"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/rooms/r1?userId=1"), header)
	if err != nil {
		t.Fatalf("Dial from localhost should succeed: %v", err)
	}
	conn.Close()
}
