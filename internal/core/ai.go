package core

import (
	"math"
	"math/rand"
)

// moveOpponent faces the target and approaches, retreats or holds depending on
// distance. The bands are recomputed every tick.
func moveOpponent(a Arena, ai *Opponent, target Body, dt float64) {
	ai.Angle = angleTo(ai.X, ai.Y, target.X, target.Y)
	d := math.Hypot(target.X-ai.X, target.Y-ai.Y)

	dx, dy := math.Cos(ai.Angle), math.Sin(ai.Angle)
	switch {
	case d > AIApproachDist:
		a.Integrate(&ai.Body, dx, dy, AISpeed, dt)
	case d < AIRetreatDist:
		a.Integrate(&ai.Body, -dx, -dy, AISpeed, dt)
	}
}

// tickCooldown runs the fire timer and reports whether the AI throws now.
// The caller spawns the projectile before calling rearm, so the throw still
// sees the fully wound-up arm.
func tickCooldown(ai *Opponent, dt float64) bool {
	ai.Cooldown -= dt
	return ai.Cooldown <= 0
}

// rearm draws the next cooldown from [0.8, 1.8).
func rearm(ai *Opponent, rng *rand.Rand) {
	ai.Cooldown = AICooldownMin + rng.Float64()*AICooldownSpread
}
