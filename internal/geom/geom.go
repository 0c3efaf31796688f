// Package geom provides the 2D primitives used by collision and AI:
// vectors, axis-aligned arena bounds, segments and circles.
package geom

import "math"

// parallelEpsilon guards SegmentsIntersect against near-zero denominators.
const parallelEpsilon = 1e-10

// Vec2 is a 2D point or direction.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2             { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2             { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(f float64) Vec2        { return Vec2{v.X * f, v.Y * f} }
func (v Vec2) Dot(o Vec2) float64          { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Len() float64                { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(o Vec2) float64         { return v.Sub(o).Len() }
func (v Vec2) IsFinite() bool              { return isFinite(v.X) && isFinite(v.Y) }
func (v Vec2) Equal(o Vec2) bool           { return v.X == o.X && v.Y == o.Y }
func (v Vec2) Lerp(o Vec2, t float64) Vec2 { return v.Add(o.Sub(v).Scale(t)) }

// Normalize returns the unit vector in v's direction, or the zero vector
// when v has no length.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Direction returns the unit vector for an angle in degrees where 0° points
// up (negative Y) and angles grow clockwise.
func Direction(degrees float64) Vec2 {
	rad := degrees * math.Pi / 180
	return Vec2{math.Sin(rad), -math.Cos(rad)}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Bounds is an axis-aligned rectangle, inclusive on all edges.
type Bounds struct {
	Min, Max Vec2
}

// CenteredBounds returns a square of the given side length centered on the origin.
func CenteredBounds(size float64) Bounds {
	h := size / 2
	return Bounds{Min: Vec2{-h, -h}, Max: Vec2{h, h}}
}

func (b Bounds) Width() float64  { return b.Max.X - b.Min.X }
func (b Bounds) Height() float64 { return b.Max.Y - b.Min.Y }

func (b Bounds) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

func (b Bounds) Clamp(p Vec2) Vec2 {
	return Vec2{
		X: math.Max(b.Min.X, math.Min(b.Max.X, p.X)),
		Y: math.Max(b.Min.Y, math.Min(b.Max.Y, p.Y)),
	}
}

// Circle is a disc used for player bodies and bonus pickup areas.
type Circle struct {
	Center Vec2
	Radius float64
}

func (c Circle) Contains(p Vec2) bool {
	return c.Center.Dist(p) < c.Radius
}

// Segment is a line segment from A to B.
type Segment struct {
	A, B Vec2
}

// SegmentIntersectsCircle reports whether the circle's boundary crosses the
// segment, solving |A + t(B-A) - C|² = r² and accepting a root in [0,1].
// A segment lying entirely inside the circle has no root in range and is
// not considered intersecting.
func SegmentIntersectsCircle(s Segment, c Circle) bool {
	d := s.B.Sub(s.A)
	f := s.A.Sub(c.Center)

	a := d.Dot(d)
	b := 2 * f.Dot(d)
	cc := f.Dot(f) - c.Radius*c.Radius

	if a == 0 {
		// degenerate segment: a point on the boundary
		return cc == 0
	}

	disc := b*b - 4*a*cc
	if disc < 0 {
		return false
	}

	disc = math.Sqrt(disc)
	t1 := (-b - disc) / (2 * a)
	t2 := (-b + disc) / (2 * a)

	return (t1 >= 0 && t1 <= 1) || (t2 >= 0 && t2 <= 1)
}

// SegmentDistanceToCircle returns the gap between the segment's closest point
// and the circle's edge, floored at zero.
func SegmentDistanceToCircle(s Segment, c Circle) float64 {
	d := s.B.Sub(s.A)
	f := s.A.Sub(c.Center)

	t := 0.0
	if a := d.Dot(d); a > 0 {
		t = math.Max(0, math.Min(1, -f.Dot(d)/a))
	}

	nearest := s.A.Add(d.Scale(t))
	return math.Max(0, c.Center.Dist(nearest)-c.Radius)
}

// SegmentsIntersect is the parametric 2D segment test. Parallel and collinear
// segments always report false, even when they overlap.
func SegmentsIntersect(s1, s2 Segment) bool {
	a := s1.B.Sub(s1.A)
	b := s2.A.Sub(s2.B)
	c := s1.A.Sub(s2.A)

	alphaNum := b.Y*c.X - b.X*c.Y
	betaNum := a.X*c.Y - a.Y*c.X
	denom := a.Y*b.X - a.X*b.Y

	if math.Abs(denom) < parallelEpsilon {
		return false
	}

	alpha := alphaNum / denom
	beta := betaNum / denom
	return alpha >= 0 && alpha <= 1 && beta >= 0 && beta <= 1
}
