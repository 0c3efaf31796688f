package game

import (
	"math"
	"math/rand"

	"blade-arena/internal/geom"
)

// Player body and movement constants
const (
	MinSize              = 20
	DefaultHealth        = 10
	MaxHealthAfterThin   = 200
	DefaultMovementSpeed = 60
	MaxMovementSpeed     = 150

	// noBladeSpeedMultiplier offsets the combat weakness of a bladeless player.
	noBladeSpeedMultiplier = 2
)

// Stats accumulates per-player results. Score starts at 1 and resets on
// respawn; the other counters survive respawns.
type Stats struct {
	Score           int
	Kills           int
	Deaths          int
	DestroyedBlades int
}

// NewStats returns the stats of a fresh player.
func NewStats() Stats {
	return Stats{Score: 1}
}

// ForRespawn keeps the lifetime counters and resets the score.
func (s Stats) ForRespawn() Stats {
	s.Score = 1
	return s
}

// Player is a circular body wielding a rotating weapon. Size is derived from
// health, and the player is dead iff health <= 0.
type Player struct {
	UserID      int
	Name        string
	Position    geom.Vec2
	Destination geom.Vec2
	Health      float64
	Weapon      Weapon
	Stats       Stats

	// DeadTime is the room clock (seconds) at which the player died.
	DeadTime float64

	// AI is nil for human players.
	AI *AIState

	movementSpeed float64
}

// NewPlayer creates a live player at pos with the default body and weapon.
func NewPlayer(userID int, name string, pos geom.Vec2, rng *rand.Rand) *Player {
	return &Player{
		UserID:        userID,
		Name:          name,
		Position:      pos,
		Destination:   pos,
		Health:        DefaultHealth,
		Weapon:        NewDefaultWeapon(rng),
		Stats:         NewStats(),
		movementSpeed: DefaultMovementSpeed,
	}
}

func (p *Player) IsDead() bool { return p.Health <= 0 }
func (p *Player) IsAI() bool   { return p.AI != nil }

// Size is the body radius. It never drops below MinSize.
func (p *Player) Size() float64 {
	return MinSize + math.Max(p.Health, 0)
}

// SafeDistance is the body radius plus the reach of the longest blade.
func (p *Player) SafeDistance() float64 {
	return p.Size() + p.Weapon.LongestBladeLength()
}

func (p *Player) Body() geom.Circle {
	return geom.Circle{Center: p.Position, Radius: p.Size()}
}

// MovementSpeed is the effective speed in units per second.
func (p *Player) MovementSpeed() float64 {
	if p.Weapon.Count() == 0 {
		return p.movementSpeed * noBladeSpeedMultiplier
	}
	return p.movementSpeed
}

// AddMovementSpeed grows the base speed magnitude, keeping its sign.
func (p *Player) AddMovementSpeed(amount float64) {
	p.movementSpeed = absAdd(p.movementSpeed, amount)
}

// BladeSegment returns the segment of blade b, starting on the body edge
// and pointing along the blade's angle.
func (p *Player) BladeSegment(b Blade) geom.Segment {
	dir := geom.Direction(b.RotationDegree)
	size := p.Size()
	return geom.Segment{
		A: p.Position.Add(dir.Scale(size)),
		B: p.Position.Add(dir.Scale(size + b.Length)),
	}
}

// Move steps toward the destination, clamps into bounds and rotates the
// weapon. Dead players do not move.
func (p *Player) Move(dt float64, bounds geom.Bounds) {
	if p.IsDead() {
		return
	}

	step := p.MovementSpeed() * dt
	delta := p.Destination.Sub(p.Position)
	if dist := delta.Len(); dist <= step {
		p.Position = p.Destination
	} else {
		p.Position = p.Position.Add(delta.Scale(step / dist))
	}
	p.Position = bounds.Clamp(p.Position)

	p.Weapon.RotateBlades(dt)
}

// BalanceCheck re-applies every cap that depends on the current size and
// speed. It runs after any mutation of health, speed or blades.
func (p *Player) BalanceCheck() {
	if p.movementSpeed > MaxMovementSpeed {
		p.movementSpeed = MaxMovementSpeed
	}
	if p.movementSpeed < 0 {
		p.movementSpeed = 0
	}
	p.Weapon.Balance(p.Size())
}

// ToDTO projects the player onto the broadcast wire shape.
func (p *Player) ToDTO() PlayerDTO {
	return PlayerDTO{
		UserID:      p.UserID,
		Name:        p.Name,
		Score:       p.Stats.Score,
		Kills:       p.Stats.Kills,
		Deaths:      p.Stats.Deaths,
		Position:    vecDTO(p.Position),
		Destination: vecDTO(p.Destination),
		Health:      p.Health,
		Size:        p.Size(),
		Blades:      p.Weapon.ToDTO(),
	}
}
