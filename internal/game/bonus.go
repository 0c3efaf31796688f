package game

import (
	"math"
	"math/rand"

	"blade-arena/internal/geom"
)

// BonusRadius is the pickup circle radius clients draw and AI avoids.
const BonusRadius = 20

// BonusType enumerates pickups. The ordinal is the wire value.
type BonusType int

const (
	BonusHealth BonusType = iota
	BonusThin
	BonusSpeed
	BonusSpeed20
	BonusBladeCount
	BonusBladeCount3
	BonusBladeLength
	BonusBladeLength20
	BonusBladeDamage
	BonusBladeSpeed
	BonusBladeSpeed20
	BonusRandom

	bonusTypeCount
)

var bonusNames = [...]string{
	BonusHealth:        "health",
	BonusThin:          "thin",
	BonusSpeed:         "speed",
	BonusSpeed20:       "speed20",
	BonusBladeCount:    "blade_count",
	BonusBladeCount3:   "blade_count3",
	BonusBladeLength:   "blade_length",
	BonusBladeLength20: "blade_length20",
	BonusBladeDamage:   "blade_damage",
	BonusBladeSpeed:    "blade_speed",
	BonusBladeSpeed20:  "blade_speed20",
	BonusRandom:        "random",
}

func (t BonusType) String() string {
	if t < 0 || t >= bonusTypeCount {
		return "unknown"
	}
	return bonusNames[t]
}

// AllBonusTypes returns every type in ordinal order.
func AllBonusTypes() []BonusType {
	out := make([]BonusType, 0, bonusTypeCount)
	for t := BonusType(0); t < bonusTypeCount; t++ {
		out = append(out, t)
	}
	return out
}

// SpawnableBonusTypes are the types the arena places. Speed, Speed20 and
// Random are only reached through BonusRandom or direct application.
func SpawnableBonusTypes() []BonusType {
	return []BonusType{
		BonusHealth,
		BonusThin,
		BonusBladeCount,
		BonusBladeCount3,
		BonusBladeLength,
		BonusBladeLength20,
		BonusBladeDamage,
		BonusBladeSpeed,
		BonusBladeSpeed20,
	}
}

// Bonus is a pickup lying in the arena. It is a value and never changes
// after spawning.
type Bonus struct {
	Type     BonusType
	Position geom.Vec2
}

func (b Bonus) Circle() geom.Circle {
	return geom.Circle{Center: b.Position, Radius: BonusRadius}
}

func (b Bonus) ToDTO() BonusDTO {
	return BonusDTO{Type: b.Type, Position: vecDTO(b.Position)}
}

// Apply mutates p with the bonus effect and re-balances it. rng is only
// consulted by BonusRandom.
func (b Bonus) Apply(p *Player, rng *rand.Rand) {
	applyBonus(b.Type, p, rng)
	p.BalanceCheck()
}

func applyBonus(t BonusType, p *Player, rng *rand.Rand) {
	switch t {
	case BonusHealth:
		p.Health += 8
	case BonusThin:
		p.Health = math.Max(1, math.Min(MaxHealthAfterThin, math.RoundToEven(p.Health/2)))
	case BonusSpeed:
		p.AddMovementSpeed(5)
	case BonusSpeed20:
		p.AddMovementSpeed(20)
	case BonusBladeCount:
		if p.Weapon.AddBlade(1, p.Size()) {
			p.Health += 1
			p.Weapon.AddRotationSpeed(-1)
		}
	case BonusBladeCount3:
		if p.Weapon.AddBlade(3, p.Size()) {
			p.Health += 3
			p.Weapon.AddRotationSpeed(-4)
		}
	case BonusBladeLength:
		if p.Weapon.AddLength(5, p.Size()) {
			p.Health += 1
			p.Weapon.AddRotationSpeed(-1)
		}
	case BonusBladeLength20:
		if p.Weapon.AddLength(20, p.Size()) {
			p.Health += 3
			p.Weapon.AddRotationSpeed(-4)
		}
	case BonusBladeDamage:
		if p.Weapon.AddDamage(1, p.Size()) {
			p.Health += 1
			p.Weapon.AddRotationSpeed(-1)
		}
	case BonusBladeSpeed:
		p.Weapon.AddRotationSpeed(5)
		p.Health += 1
	case BonusBladeSpeed20:
		p.Weapon.AddRotationSpeed(20)
		p.Health += 3
	case BonusRandom:
		// any type except Random itself
		applyBonus(BonusType(rng.Intn(int(BonusRandom))), p, rng)
	}
}

// DefaultBonusWeights are the explicitly weighted types. The other
// spawnable types share the residual probability evenly.
var DefaultBonusWeights = map[BonusType]float64{
	BonusBladeLength: 0.15,
	BonusBladeDamage: 0.1,
	BonusBladeCount:  0.225,
}

// BonusTable is a cumulative distribution over bonus types, built once and
// sampled with a single uniform draw.
type BonusTable struct {
	types      []BonusType
	cumulative []float64
}

// NewBonusTable builds the table over SpawnableBonusTypes from explicit
// weights. Spawnable types without an explicit weight split
// 1 - sum(explicit) evenly.
func NewBonusTable(explicit map[BonusType]float64) *BonusTable {
	all := SpawnableBonusTypes()

	sum := 0.0
	residualTypes := 0
	for _, t := range all {
		if w, ok := explicit[t]; ok {
			sum += w
		} else {
			residualTypes++
		}
	}
	residual := 0.0
	if residualTypes > 0 {
		residual = math.Max(0, 1-sum) / float64(residualTypes)
	}

	table := &BonusTable{
		types:      all,
		cumulative: make([]float64, len(all)),
	}
	acc := 0.0
	for i, t := range all {
		w, ok := explicit[t]
		if !ok {
			w = residual
		}
		acc += w
		table.cumulative[i] = acc
	}
	return table
}

// Probability returns the configured probability of t.
func (bt *BonusTable) Probability(t BonusType) float64 {
	prev := 0.0
	for i, typ := range bt.types {
		if typ == t {
			return bt.cumulative[i] - prev
		}
		prev = bt.cumulative[i]
	}
	return 0
}

// Draw samples one type.
func (bt *BonusTable) Draw(rng *rand.Rand) BonusType {
	r := rng.Float64() * bt.cumulative[len(bt.cumulative)-1]
	for i, upper := range bt.cumulative {
		if r < upper {
			return bt.types[i]
		}
	}
	return bt.types[len(bt.types)-1]
}

// CreateRandom spawns a bonus of a sampled type at pos.
func (bt *BonusTable) CreateRandom(pos geom.Vec2, rng *rand.Rand) Bonus {
	return Bonus{Type: bt.Draw(rng), Position: pos}
}
