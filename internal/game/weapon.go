package game

import (
	"math"
	"math/rand"
)

// Weapon balancing limits
const (
	DefaultRotationDegreePerSecond = 10
	MaxRotationDegreePerSecond     = 60

	lengthCapPerSize = 3  // blade length <= size * 3
	damageCapDivisor = 15 // blade damage <= size / 15
	countCapDivisor  = 8  // blade count <= ceil(size / 8)
)

// Weapon is a player's ordered set of blades sharing one signed rotation
// speed. The sign of RotationDegreePerSecond is the direction.
type Weapon struct {
	Blades                  []Blade
	RotationDegreePerSecond float64
}

// NewDefaultWeapon returns a single default blade at a random angle.
func NewDefaultWeapon(rng *rand.Rand) Weapon {
	return Weapon{
		Blades:                  []Blade{NewBlade(rng.Float64() * 360)},
		RotationDegreePerSecond: DefaultRotationDegreePerSecond,
	}
}

// MaxBladeCount is the blade count cap for a body of the given size.
func MaxBladeCount(size float64) int {
	return int(math.Ceil(size / countCapDivisor))
}

// MaxBladeDamage is the per-blade damage cap for a body of the given size.
func MaxBladeDamage(size float64) float64 {
	return size / damageCapDivisor
}

// MaxBladeLength is the per-blade length cap for a body of the given size.
func MaxBladeLength(size float64) float64 {
	return size * lengthCapPerSize
}

func (w *Weapon) Count() int { return len(w.Blades) }

// Clone returns a deep copy that shares no blade storage with w.
func (w *Weapon) Clone() Weapon {
	blades := make([]Blade, len(w.Blades))
	copy(blades, w.Blades)
	return Weapon{Blades: blades, RotationDegreePerSecond: w.RotationDegreePerSecond}
}

// IsGoldBlade reports whether blade i confers one-sided destruction immunity.
func (w *Weapon) IsGoldBlade(i int) bool {
	return w.Blades[i].Damage >= 2 && len(w.Blades) <= 2
}

// HasGoldBlade reports whether any blade is gold.
func (w *Weapon) HasGoldBlade() bool {
	for i := range w.Blades {
		if w.IsGoldBlade(i) {
			return true
		}
	}
	return false
}

func (w *Weapon) LongestBladeLength() float64 {
	longest := 0.0
	for _, b := range w.Blades {
		if b.Length > longest {
			longest = b.Length
		}
	}
	return longest
}

// Score is the summed blade score scaled by rotation speed relative to the
// default speed.
func (w *Weapon) Score() float64 {
	sum := 0.0
	for _, b := range w.Blades {
		sum += b.Score()
	}
	return sum * math.Abs(w.RotationDegreePerSecond) / DefaultRotationDegreePerSecond
}

// RotateBlades advances every blade by the rotation speed over dt seconds.
func (w *Weapon) RotateBlades(dt float64) {
	for i := range w.Blades {
		w.Blades[i].RotationDegree = wrapDegrees(w.Blades[i].RotationDegree + w.RotationDegreePerSecond*dt)
	}
}

// EstimateRotated returns the blades as they will be after dt seconds
// without mutating the weapon.
func (w *Weapon) EstimateRotated(dt float64) []Blade {
	out := make([]Blade, len(w.Blades))
	for i, b := range w.Blades {
		b.RotationDegree = wrapDegrees(b.RotationDegree + w.RotationDegreePerSecond*dt)
		out[i] = b
	}
	return out
}

// RearrangeBlades spaces blades evenly starting from the first blade's angle.
func (w *Weapon) RearrangeBlades() {
	n := len(w.Blades)
	if n == 0 {
		return
	}
	start := w.Blades[0].RotationDegree
	for i := range w.Blades {
		w.Blades[i].RotationDegree = wrapDegrees(start + 360/float64(n)*float64(i))
	}
}

// AddBlade appends up to n default blades without exceeding the count cap
// for size, then re-spaces. It reports whether any blade was added.
func (w *Weapon) AddBlade(n int, size float64) bool {
	capacity := MaxBladeCount(size)
	added := false
	for i := 0; i < n && len(w.Blades) < capacity; i++ {
		w.Blades = append(w.Blades, NewBlade(0))
		added = true
	}
	if added {
		w.RearrangeBlades()
	}
	return added
}

// AddLength lengthens every blade toward the size-dependent cap. Blades
// already past the cap keep their length.
func (w *Weapon) AddLength(amount, size float64) bool {
	limit := MaxBladeLength(size)
	changed := false
	for i := range w.Blades {
		b := &w.Blades[i]
		switch target := b.Length + amount; {
		case target < limit:
			b.Length = target
			changed = true
		case b.Length < limit:
			b.Length = limit
			changed = true
		}
	}
	return changed
}

// AddDamage raises every blade's damage toward the size-dependent cap.
func (w *Weapon) AddDamage(amount, size float64) bool {
	limit := MaxBladeDamage(size)
	changed := false
	for i := range w.Blades {
		b := &w.Blades[i]
		switch target := b.Damage + amount; {
		case target < limit:
			b.Damage = target
			changed = true
		case b.Damage < limit:
			b.Damage = limit
			changed = true
		}
	}
	return changed
}

// AddRotationSpeed adds to the speed's magnitude keeping its direction, then
// caps the magnitude. Negative amounts slow the weapon down.
func (w *Weapon) AddRotationSpeed(amount float64) bool {
	before := w.RotationDegreePerSecond
	w.RotationDegreePerSecond = absAdd(w.RotationDegreePerSecond, amount)
	w.limitRotationSpeed()
	return w.RotationDegreePerSecond != before
}

func (w *Weapon) limitRotationSpeed() {
	if math.Abs(w.RotationDegreePerSecond) > MaxRotationDegreePerSecond {
		w.RotationDegreePerSecond = math.Copysign(MaxRotationDegreePerSecond, w.RotationDegreePerSecond)
	}
}

func (w *Weapon) ReverseRotationDirection() {
	w.RotationDegreePerSecond = -w.RotationDegreePerSecond
}

// DestroyBladeAt removes blade i and re-spaces the rest. No-op on an empty
// weapon or an out-of-range index.
func (w *Weapon) DestroyBladeAt(i int) {
	if i < 0 || i >= len(w.Blades) {
		return
	}
	w.Blades = append(w.Blades[:i], w.Blades[i+1:]...)
	w.RearrangeBlades()
}

// Balance enforces the size-dependent caps after size has changed: damage is
// lowered to the cap and surplus trailing blades are dropped. Length is never
// reduced.
func (w *Weapon) Balance(size float64) {
	maxDamage := MaxBladeDamage(size)
	for i := range w.Blades {
		if w.Blades[i].Damage > maxDamage {
			w.Blades[i].Damage = maxDamage
		}
	}
	if maxCount := MaxBladeCount(size); len(w.Blades) > maxCount {
		w.Blades = w.Blades[:maxCount]
		w.RearrangeBlades()
	}
	w.limitRotationSpeed()
}

// ToDTO projects the blades onto the wire shape.
func (w *Weapon) ToDTO() []BladeDTO {
	out := make([]BladeDTO, len(w.Blades))
	for i, b := range w.Blades {
		out[i] = b.ToDTO()
	}
	return out
}

// absAdd grows |v| by amount and keeps the sign of v. Zero counts as positive.
func absAdd(v, amount float64) float64 {
	if v < 0 {
		return v - amount
	}
	return v + amount
}
