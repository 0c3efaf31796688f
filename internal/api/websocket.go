package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"blade-arena/internal/game"
	"blade-arena/internal/observability"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Websocket timing and sizing
const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// PresenceTracker records user connections.
type PresenceTracker interface {
	Connect(userID int)
	Disconnect(userID int)
}

// HubConfig configures a RoomHub.
type HubConfig struct {
	Rooms    RoomManager
	Presence PresenceTracker
	Logger   *zap.Logger

	Origins           []string
	MaxConnections    int
	MaxPerIP          int
	CommandsPerSecond float64 // destination updates per connection
}

// DefaultHubConfig returns production defaults without collaborators.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		Origins:           []string{"http://localhost:*", "http://127.0.0.1:*"},
		MaxConnections:    1000,
		MaxPerIP:          10,
		CommandsPerSecond: 30,
	}
}

// hubClient is one websocket subscribed to one room.
type hubClient struct {
	roomID string
	userID int
	ip     string
	format Format
	conn   *websocket.Conn
	send   chan []byte
}

// RoomHub fans room states out to websocket subscribers and feeds their
// destination commands back into the rooms. It implements lobby.Broadcaster.
type RoomHub struct {
	cfg      HubConfig
	logger   *zap.Logger
	upgrader websocket.Upgrader
	conns    *ConnLimiter

	mu      sync.RWMutex
	rooms   map[string]map[*hubClient]struct{}
	clients int

	register   chan *hubClient
	unregister chan *hubClient
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewRoomHub creates a hub. Nothing runs until Run is called.
func NewRoomHub(cfg HubConfig) *RoomHub {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	h := &RoomHub{
		cfg:        cfg,
		logger:     cfg.Logger,
		conns:      NewConnLimiter(cfg.MaxPerIP),
		rooms:      make(map[string]map[*hubClient]struct{}),
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
		stop:       make(chan struct{}),
	}

	origins := NewOriginChecker(cfg.Origins)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origins.Allowed(origin) {
				return true
			}
			h.logger.Warn("⚠️ WebSocket connection rejected", zap.String("origin", origin))
			observability.RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// SetRooms attaches the room registry when it is built after the hub. It
// must be called before the hub serves connections.
func (h *RoomHub) SetRooms(rooms RoomManager) {
	h.cfg.Rooms = rooms
}

// Run owns subscription changes until Stop is called.
func (h *RoomHub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			subs, ok := h.rooms[c.roomID]
			if !ok {
				subs = make(map[*hubClient]struct{})
				h.rooms[c.roomID] = subs
			}
			subs[c] = struct{}{}
			h.clients++
			count := h.clients
			h.mu.Unlock()

			if h.cfg.Presence != nil {
				h.cfg.Presence.Connect(c.userID)
			}
			observability.UpdateWSConnections(count)
			h.logger.Info("📱 Client connected",
				zap.String("room", c.roomID),
				zap.Int("user", c.userID),
				zap.String("ip", c.ip),
				zap.Int("total", count))

		case c := <-h.unregister:
			h.mu.Lock()
			removed := h.removeLocked(c)
			count := h.clients
			h.mu.Unlock()

			if removed {
				h.release(c)
				observability.UpdateWSConnections(count)
				h.logger.Info("📱 Client disconnected",
					zap.String("room", c.roomID),
					zap.Int("user", c.userID),
					zap.Int("remaining", count))
			}

		case <-h.stop:
			h.mu.Lock()
			var all []*hubClient
			for _, subs := range h.rooms {
				for c := range subs {
					all = append(all, c)
				}
			}
			for _, c := range all {
				h.removeLocked(c)
			}
			h.mu.Unlock()

			for _, c := range all {
				h.release(c)
			}
			observability.UpdateWSConnections(0)
			return
		}
	}
}

// removeLocked drops c and closes its send channel. The caller holds mu.
func (h *RoomHub) removeLocked(c *hubClient) bool {
	subs, ok := h.rooms[c.roomID]
	if !ok {
		return false
	}
	if _, ok := subs[c]; !ok {
		return false
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.rooms, c.roomID)
	}
	h.clients--
	close(c.send)
	return true
}

func (h *RoomHub) release(c *hubClient) {
	h.conns.Release(c.ip)
	if h.cfg.Presence != nil {
		h.cfg.Presence.Disconnect(c.userID)
	}
}

// Stop disconnects every client and ends Run.
func (h *RoomHub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// ClientCount returns the number of connected clients.
func (h *RoomHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients
}

// RoomClientCount returns the number of clients subscribed to a room.
func (h *RoomHub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// PushToRoom encodes state once per format and queues it for every
// subscriber of the room. Full queues drop the frame for that subscriber.
func (h *RoomHub) PushToRoom(roomID string, state game.BroadcastState) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := h.rooms[roomID]
	if len(subs) == 0 {
		return
	}

	encoded := make(map[Format][]byte, 2)
	for c := range subs {
		msg, ok := encoded[c.format]
		if !ok {
			var err error
			msg, err = EncodeState(c.format, state)
			if err != nil {
				h.logger.Error("❌ State encoding failed", zap.String("room", roomID), zap.Error(err))
				return
			}
			encoded[c.format] = msg
		}

		select {
		case c.send <- msg:
			observability.IncrementWSMessages()
		default:
			observability.IncrementWSDropped()
		}
	}
}

// HandleWebSocket serves /ws/rooms/{roomID}?userId=&name=&format=. The user
// joins the room, receives the latest state at once and then every tick.
func (h *RoomHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	q := r.URL.Query()

	userID, err := strconv.Atoi(q.Get("userId"))
	if err != nil {
		writeError(w, "invalid userId", http.StatusBadRequest)
		return
	}
	name, err := validateJoin(userID, q.Get("name"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	format, err := ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.cfg.MaxConnections > 0 && h.ClientCount() >= h.cfg.MaxConnections {
		observability.RecordConnectionRejected("ws_total_limit")
		writeError(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	ip := GetClientIP(r)
	if !h.conns.Acquire(ip) {
		observability.RecordConnectionRejected("ws_ip_limit")
		writeError(w, "too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	if err := h.cfg.Rooms.JoinRoom(roomID, userID, name); err != nil {
		h.conns.Release(ip)
		writeLobbyError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.conns.Release(ip)
		h.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &hubClient{
		roomID: roomID,
		userID: userID,
		ip:     ip,
		format: format,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}

	// late-join snapshot before the first tick push
	if state, err := h.cfg.Rooms.GetLatestState(roomID); err == nil {
		if msg, err := EncodeState(format, state); err == nil {
			c.send <- msg
		}
	}

	select {
	case h.register <- c:
	case <-h.stop:
		h.conns.Release(ip)
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

func (h *RoomHub) writePump(c *hubClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	msgType := websocket.TextMessage
	if c.format == FormatMsgpack {
		msgType = websocket.BinaryMessage
	}

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(msgType, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// destinationMessage is the only client command.
type destinationMessage struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (h *RoomHub) readPump(c *hubClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.stop:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	cps := h.cfg.CommandsPerSecond
	if cps <= 0 {
		cps = DefaultHubConfig().CommandsPerSecond
	}
	limiter := rate.NewLimiter(rate.Limit(cps), max(1, int(cps)))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if !limiter.Allow() {
			observability.RecordConnectionRejected("ws_command_rate")
			continue
		}

		var msg destinationMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.X == nil || msg.Y == nil {
			continue
		}
		if err := h.cfg.Rooms.SetDestination(c.roomID, c.userID, *msg.X, *msg.Y); err != nil {
			h.logger.Debug("Destination rejected",
				zap.String("room", c.roomID),
				zap.Int("user", c.userID),
				zap.Error(err))
		}
	}
}
