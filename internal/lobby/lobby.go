// Package lobby runs the per-room simulation. Every room owns one goroutine
// that is the sole writer of the room's players and bonuses; handlers talk
// to it through a bounded command inbox.
package lobby

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"blade-arena/internal/config"
	"blade-arena/internal/game"
	"blade-arena/internal/geom"
	"blade-arena/internal/observability"
	"blade-arena/internal/spatial"

	"go.uber.org/zap"
)

// State is the lifecycle stage of a room.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Broadcaster delivers a room's state to its subscribers. PushToRoom must
// not block on slow subscribers.
type Broadcaster interface {
	PushToRoom(roomID string, state game.BroadcastState)
}

// Presence answers whether a human user currently has a live connection.
type Presence interface {
	IsUserOnline(userID int) bool
}

// Room creation limits
const (
	MaxRobotCount  = 12
	MaxRewardCount = 20
)

// CreateOptions are the inputs of a room-creation request.
type CreateOptions struct {
	RobotCount  int
	RewardCount int // 0 derives the bonus cap from population
	CreatorID   int
	CreatedAt   time.Time
}

// Validate rejects out-of-range options.
func (o CreateOptions) Validate() error {
	if o.RobotCount < 0 || o.RobotCount > MaxRobotCount {
		return fmt.Errorf("robot count %d outside [0,%d]: %w", o.RobotCount, MaxRobotCount, ErrInvalidOptions)
	}
	if o.RewardCount < 0 || o.RewardCount > MaxRewardCount {
		return fmt.Errorf("reward count %d outside [0,%d]: %w", o.RewardCount, MaxRewardCount, ErrInvalidOptions)
	}
	return nil
}

// joinRequest is a staged spawn. AI requests carry their archetype and keep
// their name across respawns.
type joinRequest struct {
	UserID    int
	Name      string
	Stats     game.Stats
	IsAI      bool
	Archetype game.Archetype
}

// command is a message handled on the room goroutine.
type command interface {
	apply(l *Lobby)
}

type joinCmd struct {
	userID int
	name   string
}

func (c joinCmd) apply(l *Lobby) {
	if l.hasPlayer(c.userID) {
		return
	}
	l.enqueue(joinRequest{UserID: c.userID, Name: c.name, Stats: game.NewStats()})
}

type destinationCmd struct {
	userID int
	dest   geom.Vec2
}

func (c destinationCmd) apply(l *Lobby) {
	for _, p := range l.players {
		if p.UserID == c.userID {
			p.Destination = l.bounds.Clamp(c.dest)
			return
		}
	}
}

// Config wires a lobby to its collaborators.
type Config struct {
	Arena    config.ArenaConfig
	Sink     Broadcaster
	Presence Presence
	Logger   *zap.Logger
	Seed     int64

	// OnTerminated runs once, after the room stopped for any reason.
	OnTerminated func(*Lobby)
}

// Lobby is one independent game instance.
type Lobby struct {
	ID      string
	Options CreateOptions

	cfg          config.ArenaConfig
	bounds       geom.Bounds
	logger       *zap.Logger
	sink         Broadcaster
	presence     Presence
	onTerminated func(*Lobby)

	inbox        chan command
	push         *PushBuffer
	lastActivity atomic.Int64
	loops        atomic.Int32 // tick loops ever launched

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the room goroutine once started.
	rng          *rand.Rand
	bonusTable   *game.BonusTable
	players      []*game.Player
	dead         []*game.Player
	bonuses      []game.Bonus
	grid         *spatial.Grid
	pending      map[int]joinRequest
	pendingOrder []int
	frame        int64
	elapsed      float64
	bonusTimer   float64
	nextAIID     int
	usedNames    map[string]bool
	reportedLive int
}

// New creates an idle room and stages its robots.
func New(id string, opts CreateOptions, cfg Config) (*Lobby, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.CreatedAt.IsZero() {
		opts.CreatedAt = time.Now()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	inboxSize := cfg.Arena.InboxSize
	if inboxSize <= 0 {
		inboxSize = config.DefaultArena().InboxSize
	}

	bounds := geom.CenteredBounds(cfg.Arena.ArenaSize)

	l := &Lobby{
		ID:           id,
		Options:      opts,
		cfg:          cfg.Arena,
		bounds:       bounds,
		logger:       logger.With(zap.String("room", id)),
		sink:         cfg.Sink,
		presence:     cfg.Presence,
		onTerminated: cfg.OnTerminated,
		inbox:        make(chan command, inboxSize),
		push:         NewPushBuffer(cfg.Arena.TickRate, cfg.Arena.LagBufferSeconds),
		done:         make(chan struct{}),
		rng:          rand.New(rand.NewSource(cfg.Seed)),
		bonusTable:   game.NewBonusTable(game.DefaultBonusWeights),
		grid:         spatial.NewGrid(bounds, gridCellSize),
		pending:      make(map[int]joinRequest),
		nextAIID:     -1,
		usedNames:    make(map[string]bool),
	}
	l.touch()

	for i := 0; i < opts.RobotCount; i++ {
		l.addRobot()
	}
	return l, nil
}

// EnsureStart launches the room goroutine on first call. Later calls are
// no-ops; a terminated room returns ErrRoomTerminated.
func (l *Lobby) EnsureStart() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateRunning:
		return nil
	case StateTerminated:
		return ErrRoomTerminated
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.state = StateRunning
	l.touch()

	go l.run(ctx)

	l.logger.Info("🎮 Room started", zap.Int("tickRate", l.cfg.TickRate))
	return nil
}

// Terminate stops the room. It returns immediately; wait on Done for the
// goroutine to exit.
func (l *Lobby) Terminate() {
	l.mu.Lock()
	switch l.state {
	case StateRunning:
		l.cancel()
		l.mu.Unlock()
	case StateIdle:
		l.state = StateTerminated
		l.mu.Unlock()
		l.finish()
	default:
		l.mu.Unlock()
	}
}

// terminateIfIdle terminates a room that never started and has seen no
// activity for timeout. It reports whether the room was terminated.
func (l *Lobby) terminateIfIdle(now time.Time, timeout time.Duration) bool {
	l.mu.Lock()
	if l.state != StateIdle || l.idleFor(now) < timeout {
		l.mu.Unlock()
		return false
	}
	l.state = StateTerminated
	l.mu.Unlock()

	l.finish()
	return true
}

// Done is closed once the room has terminated and OnTerminated returned.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Join stages a player. Joining twice is a no-op.
func (l *Lobby) Join(userID int, name string) error {
	return l.submit(joinCmd{userID: userID, name: name})
}

// SetDestination moves a live player's target, clamped to the arena.
func (l *Lobby) SetDestination(userID int, x, y float64) error {
	dest := geom.Vec2{X: x, Y: y}
	if !dest.IsFinite() {
		return ErrInvalidDestination
	}
	return l.submit(destinationCmd{userID: userID, dest: dest})
}

// LatestState returns the newest broadcast state.
func (l *Lobby) LatestState() game.BroadcastState { return l.push.Latest() }

// History returns the lag buffer, oldest first.
func (l *Lobby) History() []game.BroadcastState { return l.push.History() }

// LastActivity is the time of the last join or command.
func (l *Lobby) LastActivity() time.Time {
	return time.Unix(0, l.lastActivity.Load())
}

func (l *Lobby) submit(c command) error {
	if l.State() == StateTerminated {
		return ErrRoomTerminated
	}
	l.touch()
	select {
	case l.inbox <- c:
		return nil
	default:
		return ErrInboxFull
	}
}

func (l *Lobby) touch() {
	l.lastActivity.Store(time.Now().UnixNano())
}

func (l *Lobby) idleFor(now time.Time) time.Duration {
	return now.Sub(l.LastActivity())
}

func (l *Lobby) run(ctx context.Context) {
	l.loops.Add(1)
	defer l.finish()
	defer func() {
		if r := recover(); r != nil {
			observability.RecordRoomCrash()
			l.logger.Error("⚠️ Room tick panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	budget := l.cfg.TickInterval()
	timer := time.NewTimer(budget)
	defer timer.Stop()

	last := time.Now()
	var work time.Duration
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("🛑 Room terminated")
			return
		case <-timer.C:
		}

		start := time.Now()
		if l.cfg.IdleTimeout > 0 && l.idleFor(start) >= l.cfg.IdleTimeout {
			l.logger.Info("💤 Room idle, terminating", zap.Duration("idle", l.idleFor(start)))
			return
		}

		dt := math.Min(start.Sub(last).Seconds(), l.maxDelta())
		last = start
		l.tick(dt)

		work = time.Since(start)
		observability.RecordTick(work, budget)

		wait := budget - work
		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		timer.Reset(wait)
	}
}

func (l *Lobby) maxDelta() float64 {
	if l.cfg.MaxDeltaTime > 0 {
		return l.cfg.MaxDeltaTime
	}
	return config.DefaultArena().MaxDeltaTime
}

func (l *Lobby) finish() {
	l.mu.Lock()
	l.state = StateTerminated
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Unlock()

	l.closeOnce.Do(func() {
		observability.AddLivePlayers(-l.reportedLive)
		if l.onTerminated != nil {
			l.onTerminated(l)
		}
		close(l.done)
	})
}

func (l *Lobby) addRobot() {
	arch := game.RandomArchetype(l.rng)
	name := game.PickAIName(arch, l.usedNames, l.rng)
	l.usedNames[name] = true

	id := l.nextAIID
	l.nextAIID--

	l.enqueue(joinRequest{
		UserID:    id,
		Name:      name,
		Stats:     game.NewStats(),
		IsAI:      true,
		Archetype: arch,
	})
}

func (l *Lobby) enqueue(req joinRequest) {
	if _, ok := l.pending[req.UserID]; ok {
		return
	}
	l.pending[req.UserID] = req
	l.pendingOrder = append(l.pendingOrder, req.UserID)
}

func (l *Lobby) hasPlayer(userID int) bool {
	if _, ok := l.pending[userID]; ok {
		return true
	}
	for _, p := range l.players {
		if p.UserID == userID {
			return true
		}
	}
	for _, p := range l.dead {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
