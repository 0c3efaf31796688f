package lobby

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"blade-arena/internal/config"
	"blade-arena/internal/game"
	"blade-arena/internal/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ManagerConfig configures the room registry.
type ManagerConfig struct {
	Arena    config.ArenaConfig
	Sink     Broadcaster
	Presence Presence
	Logger   *zap.Logger

	// Seed feeds the per-room seed generator. Zero uses the clock.
	Seed int64
}

// RoomInfo summarizes a registered room.
type RoomInfo struct {
	ID          string    `json:"id"`
	CreatorID   int       `json:"creatorId"`
	CreatedAt   time.Time `json:"createdAt"`
	State       string    `json:"state"`
	Players     int       `json:"players"`
	Dead        int       `json:"dead"`
	RobotCount  int       `json:"robotCount"`
	RewardCount int       `json:"rewardCount"`
}

// Manager is the registry of live rooms. It is the only structure shared
// across rooms.
type Manager struct {
	cfg    ManagerConfig
	logger *zap.Logger

	mu    sync.RWMutex
	rooms map[string]*Lobby
	seeds *rand.Rand
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Manager{
		cfg:    cfg,
		logger: cfg.Logger,
		rooms:  make(map[string]*Lobby),
		seeds:  rand.New(rand.NewSource(cfg.Seed)),
	}
}

// CreateRoom registers an idle room and returns its id. The room starts
// ticking on the first join.
func (m *Manager) CreateRoom(opts CreateOptions) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	m.sweepIdle(time.Now())

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.Arena.MaxRooms > 0 && len(m.rooms) >= m.cfg.Arena.MaxRooms {
		return "", fmt.Errorf("%d rooms registered: %w", len(m.rooms), ErrRoomLimit)
	}

	id := uuid.NewString()
	l, err := New(id, opts, Config{
		Arena:        m.cfg.Arena,
		Sink:         m.cfg.Sink,
		Presence:     m.cfg.Presence,
		Logger:       m.logger,
		Seed:         m.seeds.Int63(),
		OnTerminated: m.remove,
	})
	if err != nil {
		return "", err
	}

	m.rooms[id] = l
	observability.SetRooms(len(m.rooms))

	m.logger.Info("🏟️ Room created",
		zap.String("room", id),
		zap.Int("creator", opts.CreatorID),
		zap.Int("robots", opts.RobotCount),
		zap.Int("rewards", opts.RewardCount))
	return id, nil
}

// Room returns a registered room.
func (m *Manager) Room(id string) (*Lobby, error) {
	m.mu.RLock()
	l, ok := m.rooms[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("room %q: %w", id, ErrRoomNotFound)
	}
	return l, nil
}

// JoinRoom stages the user and starts the room if needed. Joining a room
// the user is already in is a no-op.
func (m *Manager) JoinRoom(roomID string, userID int, name string) error {
	l, err := m.Room(roomID)
	if err != nil {
		return err
	}
	if err := l.Join(userID, name); err != nil {
		return err
	}
	return l.EnsureStart()
}

// SetDestination forwards a movement target; it is clamped to the arena on
// the room goroutine.
func (m *Manager) SetDestination(roomID string, userID int, x, y float64) error {
	l, err := m.Room(roomID)
	if err != nil {
		return err
	}
	return l.SetDestination(userID, x, y)
}

// GetLatestState returns the newest broadcast state of a room.
func (m *Manager) GetLatestState(roomID string) (game.BroadcastState, error) {
	l, err := m.Room(roomID)
	if err != nil {
		return game.BroadcastState{}, err
	}
	return l.LatestState(), nil
}

// Rooms lists registered rooms, oldest first.
func (m *Manager) Rooms() []RoomInfo {
	m.sweepIdle(time.Now())

	m.mu.RLock()
	rooms := make([]*Lobby, 0, len(m.rooms))
	for _, l := range m.rooms {
		rooms = append(rooms, l)
	}
	m.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, l := range rooms {
		state := l.LatestState()
		infos = append(infos, RoomInfo{
			ID:          l.ID,
			CreatorID:   l.Options.CreatorID,
			CreatedAt:   l.Options.CreatedAt,
			State:       l.State().String(),
			Players:     len(state.Players),
			Dead:        len(state.Dead),
			RobotCount:  l.Options.RobotCount,
			RewardCount: l.Options.RewardCount,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// TerminateRoom stops a room; it leaves the registry once stopped.
func (m *Manager) TerminateRoom(id string) error {
	l, err := m.Room(id)
	if err != nil {
		return err
	}
	l.Terminate()
	return nil
}

// Shutdown terminates every room and waits for all of them to stop.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	rooms := make([]*Lobby, 0, len(m.rooms))
	for _, l := range m.rooms {
		rooms = append(rooms, l)
	}
	m.mu.RUnlock()

	for _, l := range rooms {
		l.Terminate()
	}
	for _, l := range rooms {
		<-l.Done()
	}
	m.logger.Info("🛑 All rooms stopped", zap.Int("rooms", len(rooms)))
}

// sweepIdle terminates rooms that were created but never joined once they
// outlive the idle timeout. Started rooms time out on their own loop.
func (m *Manager) sweepIdle(now time.Time) {
	timeout := m.cfg.Arena.IdleTimeout
	if timeout <= 0 {
		return
	}

	m.mu.RLock()
	rooms := make([]*Lobby, 0, len(m.rooms))
	for _, l := range m.rooms {
		rooms = append(rooms, l)
	}
	m.mu.RUnlock()

	for _, l := range rooms {
		if l.terminateIfIdle(now, timeout) {
			m.logger.Info("💤 Unstarted room idle, terminating",
				zap.String("room", l.ID),
				zap.Duration("idle", l.idleFor(now)))
		}
	}
}

func (m *Manager) remove(l *Lobby) {
	m.mu.Lock()
	if cur, ok := m.rooms[l.ID]; ok && cur == l {
		delete(m.rooms, l.ID)
	}
	n := len(m.rooms)
	m.mu.Unlock()

	observability.SetRooms(n)
	m.logger.Info("🗑️ Room removed", zap.String("room", l.ID))
}
