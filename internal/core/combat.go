package core

import (
	"math"
	"math/rand"
)

// ScoreFunc receives +1 when the AI dies and -1 when the player dies.
type ScoreFunc func(delta int)

// throwFrom launches a projectile from the hand anchor of b toward (tx,ty).
func throwFrom(b Body, progress, tx, ty float64, owner Owner, fromHand bool) Projectile {
	ax, ay := handAnchor(b, progress)
	ang := angleTo(ax, ay, tx, ty)
	cos, sin := math.Cos(ang), math.Sin(ang)
	return Projectile{
		X:        ax + cos*ProjectileLaunch,
		Y:        ay + sin*ProjectileLaunch,
		VX:       cos * ProjectileSpeed,
		VY:       sin * ProjectileSpeed,
		Owner:    owner,
		TTL:      ProjectileTTL,
		FromHand: fromHand,
	}
}

// combatant is the part of a player or AI a projectile can damage.
type combatant struct {
	body   *Body
	health *int
}

// opponentOf returns the only combatant a projectile of owner may hit.
func opponentOf(owner Owner, player *Player, ai *Opponent) combatant {
	if owner == OwnerAI {
		return combatant{body: &player.Body, health: &player.Health}
	}
	return combatant{body: &ai.Body, health: &ai.Health}
}

// resolveProjectiles advances every projectile and settles at most one outcome
// for each: expiry or leaving the arena first, then a hit on the opposing
// combatant. Survivors are compacted in place and returned. Deaths are not
// handled here.
func resolveProjectiles(a Arena, ps []Projectile, player *Player, ai *Opponent, dt float64) (kept []Projectile, hits int) {
	kept = ps[:0]
	for _, p := range ps {
		p.X += p.VX * dt
		p.Y += p.VY * dt
		p.TTL -= dt
		if p.TTL <= 0 || a.Outside(p.X, p.Y, ProjectileMargin) {
			continue
		}
		target := opponentOf(p.Owner, player, ai)
		if Hit(p.X, p.Y, target.body.X, target.body.Y) {
			*target.health--
			hits++
			continue
		}
		kept = append(kept, p)
	}
	return kept, hits
}

// Deaths reports who died in one death pass.
type Deaths struct {
	Player bool
	AI     bool
}

// resolveDeaths respawns any combatant at or below zero health and reports the
// score change exactly once per death.
func resolveDeaths(a Arena, player *Player, ai *Opponent, rng *rand.Rand, score ScoreFunc) Deaths {
	var d Deaths
	if player.Health <= 0 {
		d.Player = true
		if score != nil {
			score(-1)
		}
		player.Health = MaxHealth
		player.X, player.Y = a.Center()
	}
	if ai.Health <= 0 {
		d.AI = true
		if score != nil {
			score(1)
		}
		ai.Health = MaxHealth
		ai.X = rng.Float64()*(a.W-2*AIRespawnInset) + AIRespawnInset
		ai.Y = rng.Float64()*(a.H-2*AIRespawnInset) + AIRespawnInset
	}
	return d
}
