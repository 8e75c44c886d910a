package core

import "math"

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Clamp keeps b inside the arena.
func (a Arena) Clamp(b *Body) {
	b.X = clamp(b.X, 0, a.W)
	b.Y = clamp(b.Y, 0, a.H)
}

// Outside reports whether (x,y) lies beyond the arena grown by margin on every side.
func (a Arena) Outside(x, y, margin float64) bool {
	return x < -margin || y < -margin || x > a.W+margin || y > a.H+margin
}

// Integrate moves b along (dx,dy) normalized, by speed*dt, then clamps it to the
// arena. It returns false when the direction is zero and nothing moved.
func (a Arena) Integrate(b *Body, dx, dy, speed, dt float64) bool {
	n := math.Hypot(dx, dy)
	if n == 0 {
		return false
	}
	b.X += dx / n * speed * dt
	b.Y += dy / n * speed * dt
	a.Clamp(b)
	return true
}

// Hit is the projectile-vs-combatant test.
func Hit(px, py, cx, cy float64) bool {
	return math.Hypot(px-cx, py-cy) < ProjectileHitRadius
}

func angleTo(fromX, fromY, toX, toY float64) float64 {
	return math.Atan2(toY-fromY, toX-fromX)
}

// handAnchor is where a throw leaves the body, given arm progress p in [0,1].
func handAnchor(b Body, p float64) (float64, float64) {
	ext := 0.0
	if p > 0 {
		ext = (1 - math.Pow(1-p, 2)) * HandExtension
	}
	reach := HandReach + ext
	return b.X + math.Cos(b.Angle)*reach + HandOffsetX,
		b.Y + math.Sin(b.Angle)*reach + HandOffsetY
}
