package game

import (
	"fmt"
	"math/rand"
	"sort"

	"blade-arena/internal/geom"
)

// Perception limits
const (
	perceivedPlayers = 4
	perceivedBonuses = 8

	// chaseSeconds is how far ahead (in travel time) a target counts as reachable.
	chaseSeconds = 2
)

// Archetype selects an AI behavior policy.
type Archetype int

const (
	ArchetypePeaceful Archetype = iota
	ArchetypeAggressive
	ArchetypeDefensive

	archetypeCount
)

func (a Archetype) String() string {
	switch a {
	case ArchetypePeaceful:
		return "peaceful"
	case ArchetypeAggressive:
		return "aggressive"
	case ArchetypeDefensive:
		return "defensive"
	default:
		return "unknown"
	}
}

// ReactionTime is the interval in seconds between two decisions.
func (a Archetype) ReactionTime() float64 {
	switch a {
	case ArchetypeAggressive:
		return 0.1
	case ArchetypeDefensive:
		return 0.12
	default:
		return 0.2
	}
}

// RandomArchetype picks one archetype uniformly.
func RandomArchetype(rng *rand.Rand) Archetype {
	return Archetype(rng.Intn(int(archetypeCount)))
}

var namePools = map[Archetype][]string{
	ArchetypePeaceful: {
		"Xiao Qiao", "Liu Shan", "Yuan Shao", "Liu Biao", "Diao Chan",
		"Liu Bei", "Mi Zhu", "Lu Su", "Tao Qian", "Sun Shangxiang",
	},
	ArchetypeAggressive: {
		"Lu Bu", "Cao Cao", "Zhang Fei", "Ma Chao", "Meng Huo",
		"Xing Daorong", "Xu Chu", "Zhang He", "Wei Yan", "Guan Yu",
	},
	ArchetypeDefensive: {
		"Sun Quan", "Zhao Yun", "Zhuge Liang", "Cao Ren", "Sima Yi",
		"Zhou Yu", "Lu Xun", "Jiang Wei", "Deng Ai", "Zhong Hui",
	},
}

// PickAIName returns a name from the archetype's pool that is not in used.
// When the pool is exhausted a numbered variant is returned.
func PickAIName(a Archetype, used map[string]bool, rng *rand.Rand) string {
	pool := namePools[a]
	free := make([]string, 0, len(pool))
	for _, n := range pool {
		if !used[n] {
			free = append(free, n)
		}
	}
	if len(free) > 0 {
		return free[rng.Intn(len(free))]
	}
	for i := 2; ; i++ {
		n := fmt.Sprintf("%s %d", pool[rng.Intn(len(pool))], i)
		if !used[n] {
			return n
		}
	}
}

// AIState is the per-player controller memory.
type AIState struct {
	Archetype Archetype
	elapsed   float64
}

func NewAIState(a Archetype) *AIState {
	return &AIState{Archetype: a}
}

// Update accumulates dt and, once per reaction interval, perceives the
// room and updates self's destination. It reports whether a decision ran.
func (s *AIState) Update(self *Player, dt float64, players []*Player, bonuses []Bonus) bool {
	s.elapsed += dt
	if s.elapsed < s.Archetype.ReactionTime() {
		return false
	}
	s.elapsed = 0

	if dest, ok := Think(s.Archetype, Perceive(self, players, bonuses)); ok {
		self.Destination = dest
	}
	return true
}

// PlayerDistance is a perceived opponent with its gap to the perceiver:
// center distance minus own size minus the opponent's safe distance.
type PlayerDistance struct {
	Player   *Player
	Distance float64
}

// BonusDistance is a perceived bonus with center distance minus own size.
type BonusDistance struct {
	Bonus    Bonus
	Distance float64
}

// Perception is what one AI sees on a decision step. Both lists are sorted
// nearest first; Bonuses only holds bonuses no nearby blade is sweeping.
type Perception struct {
	Self    *Player
	Players []PlayerDistance
	Bonuses []BonusDistance
}

// Perceive gathers the nearest opponents and safe bonuses. It reads but
// never mutates its inputs.
func Perceive(self *Player, players []*Player, bonuses []Bonus) Perception {
	size := self.Size()

	near := make([]PlayerDistance, 0, len(players))
	for _, p := range players {
		if p == self || p.IsDead() {
			continue
		}
		near = append(near, PlayerDistance{
			Player:   p,
			Distance: self.Position.Dist(p.Position) - size - p.SafeDistance(),
		})
	}
	sort.SliceStable(near, func(i, j int) bool { return near[i].Distance < near[j].Distance })
	if len(near) > perceivedPlayers {
		near = near[:perceivedPlayers]
	}

	candidates := make([]BonusDistance, 0, len(bonuses))
	for _, b := range bonuses {
		candidates = append(candidates, BonusDistance{Bonus: b, Distance: self.Position.Dist(b.Position) - size})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Distance < candidates[j].Distance })
	if len(candidates) > perceivedBonuses {
		candidates = candidates[:perceivedBonuses]
	}

	var blades []geom.Segment
	for _, pd := range near {
		for _, b := range pd.Player.Weapon.Blades {
			blades = append(blades, pd.Player.BladeSegment(b))
		}
	}
	safe := candidates[:0]
	for _, c := range candidates {
		if isBonusSafe(c.Bonus, blades) {
			safe = append(safe, c)
		}
	}

	return Perception{Self: self, Players: near, Bonuses: safe}
}

func isBonusSafe(b Bonus, blades []geom.Segment) bool {
	circle := b.Circle()
	for _, s := range blades {
		if geom.SegmentDistanceToCircle(s, circle) == 0 {
			return false
		}
	}
	return true
}

// preferredBonus returns the nearest bonus of the first listed type present.
func (per Perception) preferredBonus(types ...BonusType) (Bonus, bool) {
	for _, t := range types {
		for _, b := range per.Bonuses {
			if b.Bonus.Type == t {
				return b.Bonus, true
			}
		}
	}
	return Bonus{}, false
}

func (per Perception) nearestBonus() (Bonus, bool) {
	if len(per.Bonuses) == 0 {
		return Bonus{}, false
	}
	return per.Bonuses[0].Bonus, true
}

// Think picks a new destination for the perceiver. ok is false when the
// archetype has nothing to do and the current destination should stay.
func Think(a Archetype, per Perception) (dest geom.Vec2, ok bool) {
	// a bladeless AI always goes for the nearest reachable bonus
	if per.Self.Weapon.Count() == 0 {
		if b, found := per.nearestBonus(); found {
			return b.Position, true
		}
	}

	switch a {
	case ArchetypeAggressive:
		return thinkAggressive(per)
	case ArchetypeDefensive:
		return thinkDefensive(per)
	default:
		return thinkPeaceful(per)
	}
}

func thinkPeaceful(per Perception) (geom.Vec2, bool) {
	self := per.Self
	reach := self.MovementSpeed() * ArchetypePeaceful.ReactionTime()

	var approaching []*Player
	for _, pd := range per.Players {
		if pd.Distance < reach {
			approaching = append(approaching, pd.Player)
		}
	}
	if len(approaching) > 0 {
		return runAway(self, approaching, ArchetypePeaceful.ReactionTime()), true
	}

	for _, b := range per.Bonuses {
		if !insideDangerZone(b.Bonus, per.Players) {
			return b.Bonus.Position, true
		}
	}
	return geom.Vec2{}, false
}

func insideDangerZone(b Bonus, players []PlayerDistance) bool {
	for _, pd := range players {
		if pd.Player.Position.Dist(b.Position) < pd.Player.SafeDistance()+BonusRadius {
			return true
		}
	}
	return false
}

func thinkAggressive(per Perception) (geom.Vec2, bool) {
	self := per.Self
	reaction := ArchetypeAggressive.ReactionTime()

	if dangers := findDangers(per, reaction); len(dangers) > 0 {
		return runAway(self, dangers, reaction), true
	}

	for _, pd := range per.Players {
		if pd.Distance < self.MovementSpeed()*chaseSeconds {
			return pd.Player.Position, true
		}
	}

	for _, b := range per.Bonuses {
		if b.Bonus.Type == BonusBladeCount3 || b.Bonus.Type == BonusBladeCount {
			return b.Bonus.Position, true
		}
	}
	if b, ok := per.nearestBonus(); ok {
		return b.Position, true
	}
	return geom.Vec2{}, false
}

func thinkDefensive(per Perception) (geom.Vec2, bool) {
	self := per.Self
	reaction := ArchetypeDefensive.ReactionTime()
	speed := self.MovementSpeed()

	if dangers := findDangers(per, reaction); len(dangers) > 0 {
		return runAway(self, dangers, reaction), true
	}

	if self.Weapon.Count() < 2 {
		if b, ok := per.preferredBonus(BonusBladeCount3, BonusBladeCount); ok {
			return b.Position, true
		}
	}

	for _, pd := range per.Players {
		if pd.Distance >= speed*chaseSeconds {
			continue
		}
		if self.Weapon.Score() > pd.Player.Weapon.Score() {
			return pd.Player.Position, true
		}
		if pd.Distance < speed {
			return runAway(self, []*Player{pd.Player}, reaction), true
		}
		break
	}

	if self.Weapon.HasGoldBlade() {
		if b, ok := per.preferredBonus(BonusSpeed20, BonusSpeed, BonusBladeLength20, BonusBladeLength, BonusHealth); ok {
			return b.Position, true
		}
	}

	if b, ok := per.nearestBonus(); ok {
		return b.Position, true
	}
	return geom.Vec2{}, false
}

// findDangers returns perceived players whose blades would reach the
// perceiver within the reaction time.
func findDangers(per Perception, reaction float64) []*Player {
	var out []*Player
	for _, pd := range per.Players {
		if pd.Player.IsDangerousToPlayer(per.Self, reaction) {
			out = append(out, pd.Player)
		}
	}
	return out
}

// runAway heads along the average direction away from the threats, twice
// as far as the perceiver travels in one reaction interval.
func runAway(self *Player, threats []*Player, reaction float64) geom.Vec2 {
	var sum geom.Vec2
	for _, t := range threats {
		sum = sum.Add(self.Position.Sub(t.Position).Normalize())
	}
	avg := sum.Scale(1 / float64(len(threats)))
	if avg.Len() == 0 {
		avg = geom.Direction(0)
	}
	return self.Position.Add(avg.Scale(self.MovementSpeed() * reaction * 2))
}
