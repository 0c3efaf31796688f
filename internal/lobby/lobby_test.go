package lobby

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"blade-arena/internal/config"
	"blade-arena/internal/game"
	"blade-arena/internal/geom"
)

type fakePresence struct {
	online map[int]bool
}

func (f fakePresence) IsUserOnline(userID int) bool { return f.online[userID] }

type recordingSink struct {
	mu     sync.Mutex
	frames []int64
}

func (s *recordingSink) PushToRoom(roomID string, state game.BroadcastState) {
	s.mu.Lock()
	s.frames = append(s.frames, state.Frame)
	s.mu.Unlock()
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

type panickingSink struct{}

func (panickingSink) PushToRoom(string, game.BroadcastState) { panic("sink exploded") }

// quietArena disables random bonus spawns so tests control the arena.
func quietArena() config.ArenaConfig {
	cfg := config.DefaultArena()
	cfg.BonusSpawnInterval = 0
	return cfg
}

func newTestLobby(t *testing.T, opts CreateOptions, cfg Config) *Lobby {
	t.Helper()
	if cfg.Arena.TickRate == 0 {
		cfg.Arena = quietArena()
	}
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	l, err := New("room-test", opts, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func step(t *testing.T, l *Lobby, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := l.Step(0.25); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
}

func findPlayer(ps []*game.Player, userID int) *game.Player {
	for _, p := range ps {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func waitDone(t *testing.T, l *Lobby) {
	t.Helper()
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("room did not terminate")
	}
}

// TestCreateOptionsValidate tests the accepted option ranges
func TestCreateOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    CreateOptions
		wantErr bool
	}{
		{"zero", CreateOptions{}, false},
		{"max", CreateOptions{RobotCount: 12, RewardCount: 20}, false},
		{"too many robots", CreateOptions{RobotCount: 13}, true},
		{"negative robots", CreateOptions{RobotCount: -1}, true},
		{"too many rewards", CreateOptions{RewardCount: 21}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("error %v is not ErrInvalidOptions", err)
			}
		})
	}
}

// TestJoinIsIdempotent verifies a second join does not duplicate the player
func TestJoinIsIdempotent(t *testing.T) {
	l := newTestLobby(t, CreateOptions{}, Config{})

	if err := l.Join(1, "alice"); err != nil {
		t.Fatal(err)
	}
	if err := l.Join(1, "alice"); err != nil {
		t.Fatal(err)
	}
	step(t, l, 1)

	if len(l.players) != 1 {
		t.Fatalf("players = %d, want 1", len(l.players))
	}

	l.Join(1, "alice")
	step(t, l, 1)
	if len(l.players) != 1 {
		t.Errorf("players after rejoin = %d, want 1", len(l.players))
	}

	state := l.LatestState()
	if len(state.Players) != 1 || state.Players[0].Name != "alice" {
		t.Errorf("latest state players = %+v", state.Players)
	}
}

// TestRobotsSpawnWithUniqueIdentity verifies staged robots
func TestRobotsSpawnWithUniqueIdentity(t *testing.T) {
	l := newTestLobby(t, CreateOptions{RobotCount: 12}, Config{})
	step(t, l, 1)

	if len(l.players) != 12 {
		t.Fatalf("players = %d, want 12", len(l.players))
	}

	ids := map[int]bool{}
	names := map[string]bool{}
	for _, p := range l.players {
		if !p.IsAI() {
			t.Errorf("player %d is not AI", p.UserID)
		}
		if p.UserID >= 0 {
			t.Errorf("robot id %d should be negative", p.UserID)
		}
		if ids[p.UserID] || names[p.Name] {
			t.Errorf("duplicate robot %d %q", p.UserID, p.Name)
		}
		ids[p.UserID] = true
		names[p.Name] = true
	}
}

// TestSetDestination verifies clamping and rejection of non-finite targets
func TestSetDestination(t *testing.T) {
	l := newTestLobby(t, CreateOptions{}, Config{})
	l.Join(1, "alice")
	step(t, l, 1)

	if err := l.SetDestination(1, 5000, -5000); err != nil {
		t.Fatal(err)
	}
	step(t, l, 1)

	want := geom.Vec2{X: 1000, Y: -1000}
	if got := l.players[0].Destination; got != want {
		t.Errorf("Destination = %v, want %v", got, want)
	}

	if err := l.SetDestination(1, math.NaN(), 0); !errors.Is(err, ErrInvalidDestination) {
		t.Errorf("NaN destination error = %v", err)
	}
	if err := l.SetDestination(1, math.Inf(1), 0); !errors.Is(err, ErrInvalidDestination) {
		t.Errorf("Inf destination error = %v", err)
	}
}

// TestInboxFull verifies commands are rejected instead of blocking
func TestInboxFull(t *testing.T) {
	cfg := quietArena()
	cfg.InboxSize = 2
	l := newTestLobby(t, CreateOptions{}, Config{Arena: cfg})

	l.Join(1, "a")
	l.Join(2, "b")
	if err := l.Join(3, "c"); !errors.Is(err, ErrInboxFull) {
		t.Errorf("third join error = %v, want ErrInboxFull", err)
	}
}

// TestDeathAndRespawn walks a human through death, delay and respawn
func TestDeathAndRespawn(t *testing.T) {
	tests := []struct {
		name        string
		online      bool
		wantRespawn bool
	}{
		{"online human respawns", true, true},
		{"offline human is dropped", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			presence := fakePresence{online: map[int]bool{1: tt.online}}
			l := newTestLobby(t, CreateOptions{}, Config{Presence: presence})
			l.Join(1, "victim")
			step(t, l, 1)

			p := l.players[0]
			p.Stats.Kills = 4
			p.Stats.Score = 9
			p.Health = 0
			step(t, l, 1)

			if len(l.players) != 0 || len(l.dead) != 1 {
				t.Fatalf("live=%d dead=%d after death", len(l.players), len(l.dead))
			}
			if p.Stats.Deaths != 1 {
				t.Errorf("Deaths = %d, want 1", p.Stats.Deaths)
			}
			if p.DeadTime != l.elapsed {
				t.Errorf("DeadTime = %v, want %v", p.DeadTime, l.elapsed)
			}
			if got := len(l.LatestState().Dead); got != 1 {
				t.Errorf("broadcast dead = %d, want 1", got)
			}

			// 2.75s after death: still waiting
			step(t, l, 11)
			if len(l.dead) != 1 {
				t.Fatalf("player left dead set before the respawn delay")
			}

			// 3s: re-queued, spawned on the following tick
			step(t, l, 1)
			if len(l.dead) != 0 {
				t.Fatalf("dead set = %d, want 0", len(l.dead))
			}
			step(t, l, 1)

			back := findPlayer(l.players, 1)
			if !tt.wantRespawn {
				if back != nil {
					t.Error("offline player should not respawn")
				}
				return
			}
			if back == nil {
				t.Fatal("player did not respawn")
			}
			if back.Stats.Score != 1 || back.Stats.Kills != 4 || back.Stats.Deaths != 1 {
				t.Errorf("respawned stats = %+v", back.Stats)
			}
			if back.Health != game.DefaultHealth {
				t.Errorf("respawned health = %v", back.Health)
			}
		})
	}
}

// TestAIAlwaysRespawns verifies robots ignore presence
func TestAIAlwaysRespawns(t *testing.T) {
	l := newTestLobby(t, CreateOptions{RobotCount: 1}, Config{Presence: fakePresence{}})
	step(t, l, 1)

	bot := l.players[0]
	arch := bot.AI.Archetype
	bot.Health = -3
	step(t, l, 14)

	back := findPlayer(l.players, bot.UserID)
	if back == nil {
		t.Fatal("robot did not respawn")
	}
	if back.Name != bot.Name || back.AI == nil || back.AI.Archetype != arch {
		t.Errorf("robot identity changed: %q %v", back.Name, back.AI)
	}
}

// TestSeparateBodies tests the size-weighted overlap push
func TestSeparateBodies(t *testing.T) {
	tests := []struct {
		name    string
		healthA float64
		wantA   geom.Vec2
		wantB   geom.Vec2
	}{
		{"equal sizes", 10, geom.Vec2{X: -25}, geom.Vec2{X: 35}},
		{"heavier moves less", 30, geom.Vec2{X: -26.25}, geom.Vec2{X: 53.75}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLobby(t, CreateOptions{}, Config{})
			a := game.NewPlayer(1, "a", geom.Vec2{}, l.rng)
			a.Health = tt.healthA
			b := game.NewPlayer(2, "b", geom.Vec2{X: 10}, l.rng)
			l.players = []*game.Player{a, b}

			l.separateBodies()

			if math.Abs(a.Position.X-tt.wantA.X) > 1e-9 || a.Position.Y != 0 {
				t.Errorf("a = %v, want %v", a.Position, tt.wantA)
			}
			if math.Abs(b.Position.X-tt.wantB.X) > 1e-9 || b.Position.Y != 0 {
				t.Errorf("b = %v, want %v", b.Position, tt.wantB)
			}
		})
	}
}

// TestPickupBonuses verifies only bonuses inside a body are consumed
func TestPickupBonuses(t *testing.T) {
	l := newTestLobby(t, CreateOptions{}, Config{})
	p := game.NewPlayer(1, "a", geom.Vec2{}, l.rng)
	l.players = []*game.Player{p}
	l.bonuses = []game.Bonus{
		{Type: game.BonusHealth, Position: geom.Vec2{X: 5}},
		{Type: game.BonusHealth, Position: geom.Vec2{X: 100}},
	}

	l.pickupBonuses()

	if p.Health != game.DefaultHealth+8 {
		t.Errorf("Health = %v, want %v", p.Health, game.DefaultHealth+8)
	}
	if p.Stats.Score != 2 {
		t.Errorf("Score = %d, want 2", p.Stats.Score)
	}
	if len(l.bonuses) != 1 || l.bonuses[0].Position.X != 100 {
		t.Errorf("remaining bonuses = %+v", l.bonuses)
	}
}

// TestPickupBonusSharedByOverlappingBodies verifies every player in reach of
// a bonus receives it before it is removed
func TestPickupBonusSharedByOverlappingBodies(t *testing.T) {
	l := newTestLobby(t, CreateOptions{}, Config{})
	a := game.NewPlayer(1, "a", geom.Vec2{}, l.rng)
	b := game.NewPlayer(2, "b", geom.Vec2{X: 35}, l.rng)
	far := game.NewPlayer(3, "far", geom.Vec2{X: 400}, l.rng)
	l.players = []*game.Player{a, b, far}
	l.bonuses = []game.Bonus{{Type: game.BonusHealth, Position: geom.Vec2{X: 15}}}

	l.pickupBonuses()

	for _, p := range []*game.Player{a, b} {
		if p.Health != game.DefaultHealth+8 {
			t.Errorf("%s: Health = %v, want %v", p.Name, p.Health, game.DefaultHealth+8)
		}
		if p.Stats.Score != 2 {
			t.Errorf("%s: Score = %d, want 2", p.Name, p.Stats.Score)
		}
	}
	if far.Health != game.DefaultHealth || far.Stats.Score != 1 {
		t.Errorf("far player changed: health=%v score=%d", far.Health, far.Stats.Score)
	}
	if len(l.bonuses) != 0 {
		t.Errorf("remaining bonuses = %+v", l.bonuses)
	}
}

// TestBonusCap tests the population-derived and explicit caps
func TestBonusCap(t *testing.T) {
	tests := []struct {
		name    string
		rewards int
		want    int
	}{
		{"derived from population", 0, 2},
		{"explicit reward count", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := quietArena()
			cfg.BonusSpawnInterval = 600 * time.Millisecond
			l := newTestLobby(t, CreateOptions{RewardCount: tt.rewards}, Config{Arena: cfg})
			l.players = []*game.Player{game.NewPlayer(1, "a", geom.Vec2{}, l.rng)}

			l.spawnBonuses(60)

			if len(l.bonuses) != tt.want {
				t.Errorf("bonuses = %d, want %d", len(l.bonuses), tt.want)
			}
		})
	}
}

// TestKillCreditAndDrop verifies the attacker is credited and value drops
func TestKillCreditAndDrop(t *testing.T) {
	l := newTestLobby(t, CreateOptions{}, Config{})

	attacker := game.NewPlayer(1, "attacker", geom.Vec2{}, l.rng)
	attacker.Weapon.Blades = []game.Blade{game.NewBlade(90)}

	defender := game.NewPlayer(2, "defender", geom.Vec2{X: 55}, l.rng)
	defender.Health = 1
	defender.Weapon.Blades = nil

	l.players = []*game.Player{attacker, defender}

	killed := l.resolveAttacks()
	if len(killed) != 1 || killed[0] != defender {
		t.Fatalf("killed = %v", killed)
	}
	if attacker.Stats.Kills != 1 {
		t.Errorf("attacker kills = %d, want 1", attacker.Stats.Kills)
	}

	l.sweepDead()
	if len(l.dead) != 1 || len(l.players) != 1 {
		t.Fatalf("live=%d dead=%d", len(l.players), len(l.dead))
	}

	// score 1 drops with probability 1, scattered around the body
	l.dropKillRewards(killed)
	if len(l.bonuses) != 1 {
		t.Fatalf("bonuses after kill = %d, want 1", len(l.bonuses))
	}
	drop := l.bonuses[0].Position
	if drop == defender.Position || drop.Dist(defender.Position) > defender.Size()*2 {
		t.Errorf("drop at %v, want within %v of %v", drop, defender.Size()*2, defender.Position)
	}
}

// TestScoreScaledDrops verifies every 3 points of score drop one bonus
func TestScoreScaledDrops(t *testing.T) {
	l := newTestLobby(t, CreateOptions{}, Config{})
	d := game.NewPlayer(2, "rich", geom.Vec2{X: 300, Y: 300}, l.rng)
	d.Stats.Score = 10

	l.dropKillRewards([]*game.Player{d})

	if len(l.bonuses) != 3 {
		t.Fatalf("bonuses = %d, want 3", len(l.bonuses))
	}
	for _, b := range l.bonuses {
		if b.Position.Dist(d.Position) > d.Size()*2 {
			t.Errorf("drop at %v too far from %v", b.Position, d.Position)
		}
	}
}

// TestEnsureStartIdempotent verifies concurrent starts launch one loop
func TestEnsureStartIdempotent(t *testing.T) {
	sink := &recordingSink{}
	l := newTestLobby(t, CreateOptions{}, Config{Sink: sink})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.EnsureStart(); err != nil {
				t.Errorf("EnsureStart: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := l.loops.Load(); got != 1 {
		t.Errorf("loops = %d, want 1", got)
	}
	if l.State() != StateRunning {
		t.Errorf("State = %v, want running", l.State())
	}
	if err := l.Step(0.1); err == nil {
		t.Error("Step on a running room should fail")
	}

	l.Terminate()
	waitDone(t, l)

	if err := l.EnsureStart(); !errors.Is(err, ErrRoomTerminated) {
		t.Errorf("EnsureStart after terminate = %v", err)
	}
	if err := l.Join(1, "late"); !errors.Is(err, ErrRoomTerminated) {
		t.Errorf("Join after terminate = %v", err)
	}
}

// TestRunningRoomBroadcasts verifies the loop pushes frames to the sink
func TestRunningRoomBroadcasts(t *testing.T) {
	sink := &recordingSink{}
	cfg := quietArena()
	cfg.TickRate = 100
	l := newTestLobby(t, CreateOptions{}, Config{Arena: cfg, Sink: sink})
	l.Join(1, "alice")
	l.EnsureStart()
	defer func() {
		l.Terminate()
		waitDone(t, l)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() < 5 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sink.count() < 5 {
		t.Fatalf("pushed %d frames, want at least 5", sink.count())
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for i := 1; i < len(sink.frames); i++ {
		if sink.frames[i] != sink.frames[i-1]+1 {
			t.Fatalf("frames not consecutive: %v", sink.frames)
		}
	}
}

// TestIdleTimeout verifies a quiet room stops by itself
func TestIdleTimeout(t *testing.T) {
	cfg := quietArena()
	cfg.TickRate = 100
	cfg.IdleTimeout = 50 * time.Millisecond

	terminated := make(chan string, 1)
	l := newTestLobby(t, CreateOptions{}, Config{
		Arena:        cfg,
		OnTerminated: func(l *Lobby) { terminated <- l.ID },
	})
	l.EnsureStart()

	waitDone(t, l)
	if got := <-terminated; got != l.ID {
		t.Errorf("OnTerminated id = %q", got)
	}
	if l.State() != StateTerminated {
		t.Errorf("State = %v", l.State())
	}
}

// TestPanicTerminatesOnlyThatRoom verifies per-room fault isolation
func TestPanicTerminatesOnlyThatRoom(t *testing.T) {
	cfg := quietArena()
	cfg.TickRate = 100

	bad := newTestLobby(t, CreateOptions{}, Config{Arena: cfg, Sink: panickingSink{}})
	sink := &recordingSink{}
	good := newTestLobby(t, CreateOptions{}, Config{Arena: cfg, Sink: sink})

	bad.EnsureStart()
	good.EnsureStart()
	waitDone(t, bad)

	before := sink.count()
	time.Sleep(50 * time.Millisecond)
	if good.State() != StateRunning || sink.count() <= before {
		t.Error("sibling room stopped ticking")
	}

	good.Terminate()
	waitDone(t, good)
}

// TestTerminateIdleRoom verifies an unstarted room terminates synchronously
func TestTerminateIdleRoom(t *testing.T) {
	calls := 0
	l := newTestLobby(t, CreateOptions{}, Config{OnTerminated: func(*Lobby) { calls++ }})

	l.Terminate()
	l.Terminate()

	select {
	case <-l.Done():
	default:
		t.Fatal("Done not closed")
	}
	if calls != 1 {
		t.Errorf("OnTerminated calls = %d, want 1", calls)
	}
	if err := l.Step(0.1); !errors.Is(err, ErrRoomTerminated) {
		t.Errorf("Step after terminate = %v", err)
	}
}
