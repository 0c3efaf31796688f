package lobby

import (
	"errors"
	"math"
	"time"

	"blade-arena/internal/game"
	"blade-arena/internal/geom"
	"blade-arena/internal/observability"

	"go.uber.org/zap"
)

const (
	// placementAttempts bounds the random search for a free spawn point.
	placementAttempts = 32

	// gridCellSize is the broad-phase cell side, a few fresh safe distances.
	gridCellSize = 250.0
)

var errStepRunning = errors.New("cannot step a running room")

// Step advances an idle room by one tick of dt seconds on the caller's
// goroutine, with the same delta clamp as the tick loop. It is meant for
// headless runs and must not race EnsureStart.
func (l *Lobby) Step(dt float64) error {
	if s := l.State(); s != StateIdle {
		if s == StateTerminated {
			return ErrRoomTerminated
		}
		return errStepRunning
	}
	l.tick(math.Min(dt, l.maxDelta()))
	return nil
}

// tick runs the ordered phases of one simulation step.
func (l *Lobby) tick(dt float64) {
	l.frame++
	l.elapsed += dt

	var killed []*game.Player

	l.phase(observability.PhaseSpawn, func() {
		l.drainInbox()
		l.spawnPending()
	})
	l.phase(observability.PhaseAI, func() { l.thinkAI(dt) })
	l.phase(observability.PhaseMove, func() { l.movePlayers(dt) })
	l.phase(observability.PhasePickup, l.pickupBonuses)
	l.phase(observability.PhaseAttack, func() { killed = l.resolveAttacks() })
	l.phase(observability.PhaseDeath, l.sweepDead)
	l.phase(observability.PhaseBonus, func() {
		l.dropKillRewards(killed)
		l.spawnBonuses(dt)
	})
	l.phase(observability.PhaseRespawn, l.respawnDead)
	l.phase(observability.PhasePush, l.publish)
}

func (l *Lobby) phase(name string, fn func()) {
	start := time.Now()
	fn()
	observability.RecordPhase(name, time.Since(start))
}

func (l *Lobby) drainInbox() {
	for {
		select {
		case c := <-l.inbox:
			c.apply(l)
		default:
			return
		}
	}
}

func (l *Lobby) spawnPending() {
	for _, id := range l.pendingOrder {
		req := l.pending[id]

		p := game.NewPlayer(req.UserID, req.Name, l.spawnPosition(), l.rng)
		p.Stats = req.Stats
		if req.IsAI {
			p.AI = game.NewAIState(req.Archetype)
		}
		l.players = append(l.players, p)

		l.logger.Debug("👤 Player spawned",
			zap.Int("user", p.UserID),
			zap.String("name", p.Name),
			zap.Bool("ai", req.IsAI))
	}
	clear(l.pending)
	l.pendingOrder = l.pendingOrder[:0]
}

// spawnPosition picks a uniform point outside every live player's safe
// distance. After placementAttempts misses the last candidate is used.
func (l *Lobby) spawnPosition() geom.Vec2 {
	var pos geom.Vec2
	for i := 0; i < placementAttempts; i++ {
		pos = l.randomPoint()
		if l.clearOfBlades(pos) {
			return pos
		}
	}
	return pos
}

func (l *Lobby) randomPoint() geom.Vec2 {
	return geom.Vec2{
		X: l.bounds.Min.X + l.rng.Float64()*l.bounds.Width(),
		Y: l.bounds.Min.Y + l.rng.Float64()*l.bounds.Height(),
	}
}

func (l *Lobby) clearOfBlades(pos geom.Vec2) bool {
	for _, p := range l.players {
		if pos.Dist(p.Position) < p.SafeDistance() {
			return false
		}
	}
	return true
}

func (l *Lobby) insideAnyBody(pos geom.Vec2) bool {
	for _, p := range l.players {
		if p.Body().Contains(pos) {
			return true
		}
	}
	return false
}

func (l *Lobby) thinkAI(dt float64) {
	for _, p := range l.players {
		if p.AI == nil {
			continue
		}
		if p.AI.Update(p, dt, l.players, l.bonuses) {
			p.Destination = l.bounds.Clamp(p.Destination)
		}
	}
}

func (l *Lobby) movePlayers(dt float64) {
	for _, p := range l.players {
		p.Move(dt, l.bounds)
		p.BalanceCheck()
	}
	l.separateBodies()
}

// separateBodies pushes overlapping pairs apart along their center axis.
// Each side moves by the overlap share of the other's size.
func (l *Lobby) separateBodies() {
	for i := 0; i < len(l.players); i++ {
		a := l.players[i]
		for j := i + 1; j < len(l.players); j++ {
			b := l.players[j]

			delta := b.Position.Sub(a.Position)
			dist := delta.Len()
			sa, sb := a.Size(), b.Size()
			overlap := sa + sb - dist
			if overlap <= 0 {
				continue
			}

			axis := delta.Normalize()
			if dist == 0 {
				axis = geom.Direction(l.rng.Float64() * 360)
			}
			total := sa + sb
			a.Position = l.bounds.Clamp(a.Position.Sub(axis.Scale(overlap * sb / total)))
			b.Position = l.bounds.Clamp(b.Position.Add(axis.Scale(overlap * sa / total)))
		}
	}
}

// pickupBonuses applies every bonus to every live player whose body reaches
// its center, in player order. Consumed bonuses are removed afterwards, so
// overlapping bodies share a pickup.
func (l *Lobby) pickupBonuses() {
	if len(l.bonuses) == 0 {
		return
	}

	consumed := make([]bool, len(l.bonuses))
	for _, p := range l.players {
		if p.IsDead() {
			continue
		}
		for i, b := range l.bonuses {
			if p.Position.Dist(b.Position) < p.Size() {
				b.Apply(p, l.rng)
				p.Stats.Score++
				consumed[i] = true
			}
		}
	}

	kept := l.bonuses[:0]
	for i, b := range l.bonuses {
		if !consumed[i] {
			kept = append(kept, b)
		}
	}
	l.bonuses = kept
}

// resolveAttacks runs combat for every live pair in index order and returns
// the players killed this tick, each credited to exactly one attacker. Reach
// only shrinks during the phase, so pairs out of reach at its start are
// skipped through the grid.
func (l *Lobby) resolveAttacks() []*game.Player {
	l.grid.Clear()
	reach := make([]float64, len(l.players))
	maxReach := 0.0
	for i, p := range l.players {
		reach[i] = p.SafeDistance()
		maxReach = math.Max(maxReach, reach[i])
		l.grid.Insert(i, p.Position)
	}

	var killed []*game.Player
	var candidates []int
	for i := 0; i < len(l.players); i++ {
		candidates = append(candidates[:0], l.grid.QueryRadius(l.players[i].Position, reach[i]+maxReach)...)
		for _, j := range candidates {
			if j <= i {
				continue
			}
			a, b := l.players[i], l.players[j]

			for _, h := range game.AttackEachOther(a, b) {
				if h.Damage > 0 {
					h.Defender.AddMovementSpeed(h.Damage)
				}
				if h.DefenderDead && !containsPlayer(killed, h.Defender) {
					h.Attacker.Stats.Kills++
					killed = append(killed, h.Defender)
					observability.RecordKill()
					l.logger.Debug("⚔️ Kill",
						zap.String("attacker", h.Attacker.Name),
						zap.String("defender", h.Defender.Name))
				}
			}
			a.BalanceCheck()
			b.BalanceCheck()
		}
	}
	return killed
}

func containsPlayer(ps []*game.Player, p *game.Player) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}

func (l *Lobby) sweepDead() {
	alive := l.players[:0]
	for _, p := range l.players {
		if !p.IsDead() {
			alive = append(alive, p)
			continue
		}
		p.DeadTime = l.elapsed
		p.Stats.Deaths++
		l.dead = append(l.dead, p)
		l.logger.Debug("💀 Player died", zap.Int("user", p.UserID), zap.String("name", p.Name))
	}
	clear(l.players[len(alive):])
	l.players = alive
}

// dropKillRewards returns value to the arena around each killed player:
// low scores drop one bonus with probability 1/score, and every 3 points of
// score drop one more.
func (l *Lobby) dropKillRewards(killed []*game.Player) {
	for _, d := range killed {
		score := d.Stats.Score
		if score < 3 && (score <= 0 || l.rng.Float64() < 1/float64(score)) {
			l.bonuses = append(l.bonuses, l.bonusTable.CreateRandom(l.dropPosition(d), l.rng))
		}
		for i := 0; i < score/3; i++ {
			l.bonuses = append(l.bonuses, l.bonusTable.CreateRandom(l.dropPosition(d), l.rng))
		}
	}
}

func (l *Lobby) dropPosition(d *game.Player) geom.Vec2 {
	radius := d.Size() * 2
	for i := 0; i < placementAttempts; i++ {
		pos := d.Position.Add(geom.Direction(l.rng.Float64() * 360).Scale(l.rng.Float64() * radius))
		if l.bounds.Contains(pos) && !l.insideAnyBody(pos) {
			return pos
		}
	}
	return l.bounds.Clamp(d.Position)
}

func (l *Lobby) spawnBonuses(dt float64) {
	interval := l.cfg.BonusSpawnInterval.Seconds()
	if interval <= 0 {
		return
	}

	l.bonusTimer += dt
	for l.bonusTimer >= interval {
		l.bonusTimer -= interval
		if len(l.bonuses) < l.bonusCap() {
			l.bonuses = append(l.bonuses, l.bonusTable.CreateRandom(l.bonusPosition(), l.rng))
		}
	}
}

// bonusCap is the explicit reward count, or twice the room population.
func (l *Lobby) bonusCap() int {
	if l.Options.RewardCount > 0 {
		return l.Options.RewardCount
	}
	return (len(l.players) + len(l.dead)) * 2
}

func (l *Lobby) bonusPosition() geom.Vec2 {
	var pos geom.Vec2
	for i := 0; i < placementAttempts; i++ {
		pos = l.randomPoint()
		if !l.insideAnyBody(pos) {
			return pos
		}
	}
	return pos
}

// respawnDead re-queues players whose respawn delay elapsed. Humans only
// come back while online; without a presence source everyone is online.
func (l *Lobby) respawnDead() {
	delay := l.cfg.RespawnDelay.Seconds()

	remaining := l.dead[:0]
	for _, p := range l.dead {
		if l.elapsed-p.DeadTime < delay {
			remaining = append(remaining, p)
			continue
		}

		req := joinRequest{UserID: p.UserID, Name: p.Name, Stats: p.Stats.ForRespawn()}
		switch {
		case p.IsAI():
			req.IsAI = true
			req.Archetype = p.AI.Archetype
			l.enqueue(req)
		case l.presence == nil || l.presence.IsUserOnline(p.UserID):
			l.enqueue(req)
		default:
			l.logger.Debug("👋 Offline player not respawned", zap.Int("user", p.UserID))
		}
	}
	clear(l.dead[len(remaining):])
	l.dead = remaining
}

func (l *Lobby) publish() {
	state := l.snapshot()
	l.push.Record(state)
	if l.sink != nil {
		l.sink.PushToRoom(l.ID, state)
	}

	observability.AddLivePlayers(len(l.players) - l.reportedLive)
	l.reportedLive = len(l.players)
}

func (l *Lobby) snapshot() game.BroadcastState {
	state := game.BroadcastState{
		Frame:   l.frame,
		Players: make([]game.PlayerDTO, 0, len(l.players)),
		Bonuses: make([]game.BonusDTO, 0, len(l.bonuses)),
		Dead:    make([]game.PlayerDTO, 0, len(l.dead)),
	}
	for _, p := range l.players {
		state.Players = append(state.Players, p.ToDTO())
	}
	for _, b := range l.bonuses {
		state.Bonuses = append(state.Bonuses, b.ToDTO())
	}
	for _, p := range l.dead {
		state.Dead = append(state.Dead, p.ToDTO())
	}
	return state
}
