package game

import "math"

// Blade defaults for a freshly spawned weapon.
const (
	DefaultBladeDamage = 1
	DefaultBladeLength = 30
)

// Blade is one rotating segment of a weapon. RotationDegree is kept in [0,360).
type Blade struct {
	RotationDegree float64
	Damage         float64
	Length         float64
}

// NewBlade returns a default blade at the given angle.
func NewBlade(angle float64) Blade {
	return Blade{
		RotationDegree: wrapDegrees(angle),
		Damage:         DefaultBladeDamage,
		Length:         DefaultBladeLength,
	}
}

// Score weighs a blade for AI and weapon comparisons.
func (b Blade) Score() float64 {
	return b.Damage/2 + b.Length/80
}

// ToDTO projects the blade onto its wire shape.
func (b Blade) ToDTO() BladeDTO {
	return BladeDTO{Angle: b.RotationDegree, Length: b.Length, Damage: b.Damage}
}

// wrapDegrees maps any angle into [0,360).
func wrapDegrees(deg float64) float64 {
	r := math.Remainder(deg, 360)
	if r < 0 {
		r += 360
	}
	if r >= 360 {
		r = 0
	}
	return r
}
