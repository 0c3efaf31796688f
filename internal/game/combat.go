package game

import "blade-arena/internal/geom"

// HitRecord describes one body hit produced by AttackEachOther.
type HitRecord struct {
	Attacker     *Player
	Defender     *Player
	Damage       float64
	DefenderDead bool
}

// AttackEachOther resolves one tick of combat between two players.
//
// Body hits are evaluated in both directions: the first blade (by index)
// whose segment crosses the opponent's body deals its damage. Then the first
// crossing blade pair is resolved and both weapons reverse direction. Players
// farther apart than their combined safe distances are skipped.
func AttackEachOther(p1, p2 *Player) []HitRecord {
	if p1.IsDead() || p2.IsDead() {
		return nil
	}
	if p1.Position.Dist(p2.Position) > p1.SafeDistance()+p2.SafeDistance() {
		return nil
	}

	var hits []HitRecord
	if dmg, ok := bodyHit(p1, p2); ok {
		hits = append(hits, HitRecord{Attacker: p1, Defender: p2, Damage: dmg})
	}
	if dmg, ok := bodyHit(p2, p1); ok {
		hits = append(hits, HitRecord{Attacker: p2, Defender: p1, Damage: dmg})
	}
	for i := range hits {
		hits[i].DefenderDead = hits[i].Defender.IsDead()
	}

	bladeClash(p1, p2)
	return hits
}

// bodyHit applies the first of attacker's blades that crosses defender's body.
func bodyHit(attacker, defender *Player) (float64, bool) {
	body := defender.Body()
	for _, b := range attacker.Weapon.Blades {
		if geom.SegmentIntersectsCircle(attacker.BladeSegment(b), body) {
			defender.Health -= b.Damage
			return b.Damage, true
		}
	}
	return 0, false
}

// bladeClash resolves the first crossing pair of blades, if any. Indices to
// destroy are decided against the unmodified weapons and removed afterwards.
func bladeClash(p1, p2 *Player) bool {
	i, j, ok := firstCrossing(p1, p2)
	if !ok {
		return false
	}

	w1, w2 := &p1.Weapon, &p2.Weapon
	gold1, gold2 := w1.IsGoldBlade(i), w2.IsGoldBlade(j)
	d1, d2 := w1.Blades[i].Damage, w2.Blades[j].Damage

	destroy1, destroy2 := false, false
	switch {
	case gold1 && !gold2:
		destroy2 = true
	case gold2 && !gold1:
		destroy1 = true
	case d1 > d2:
		destroy2 = true
		w1.Blades[i].Damage--
		destroy1 = w1.Blades[i].Damage <= 0
	case d2 > d1:
		destroy1 = true
		w2.Blades[j].Damage--
		destroy2 = w2.Blades[j].Damage <= 0
	default:
		destroy1, destroy2 = true, true
	}

	if destroy2 {
		w2.DestroyBladeAt(j)
		p1.Stats.DestroyedBlades++
	}
	if destroy1 {
		w1.DestroyBladeAt(i)
		p2.Stats.DestroyedBlades++
	}

	w1.ReverseRotationDirection()
	w2.ReverseRotationDirection()
	return true
}

func firstCrossing(p1, p2 *Player) (int, int, bool) {
	segs2 := make([]geom.Segment, len(p2.Weapon.Blades))
	for j, b := range p2.Weapon.Blades {
		segs2[j] = p2.BladeSegment(b)
	}
	for i, b1 := range p1.Weapon.Blades {
		s1 := p1.BladeSegment(b1)
		for j, s2 := range segs2 {
			if geom.SegmentsIntersect(s1, s2) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// IsDangerousToPlayer reports whether any of p's blades, rotated reactionTime
// seconds ahead, would cross other's current body. p is not mutated.
func (p *Player) IsDangerousToPlayer(other *Player, reactionTime float64) bool {
	body := other.Body()
	for _, b := range p.Weapon.EstimateRotated(reactionTime) {
		if geom.SegmentIntersectsCircle(p.BladeSegment(b), body) {
			return true
		}
	}
	return false
}
