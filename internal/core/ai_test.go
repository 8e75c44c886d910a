package core

import (
	"math"
	"math/rand"
	"testing"
)

func TestOpponentBands(t *testing.T) {
	target := Body{X: 400, Y: 300}
	dist := func(o *Opponent) float64 { return math.Hypot(target.X-o.X, target.Y-o.Y) }

	far := &Opponent{Body: Body{X: 100, Y: 300}}
	before := dist(far)
	moveOpponent(DefaultArena, far, target, 0.5)
	if d := dist(far); !approx(before-d, AISpeed*0.5) {
		t.Fatalf("far opponent closed %f, want %f", before-d, AISpeed*0.5)
	}

	near := &Opponent{Body: Body{X: 350, Y: 300}}
	before = dist(near)
	moveOpponent(DefaultArena, near, target, 0.5)
	if d := dist(near); d <= before {
		t.Fatalf("near opponent should retreat: %f -> %f", before, d)
	}

	mid := &Opponent{Body: Body{X: 220, Y: 300}}
	moveOpponent(DefaultArena, mid, target, 0.5)
	if mid.X != 220 || mid.Y != 300 {
		t.Fatalf("opponent in the hold band moved to (%f,%f)", mid.X, mid.Y)
	}
	if !approx(mid.Angle, 0) {
		t.Fatalf("opponent should face the target, angle=%f", mid.Angle)
	}
}

func TestOpponentRetreatStaysInArena(t *testing.T) {
	o := &Opponent{Body: Body{X: 1, Y: 1}}
	for i := 0; i < 120; i++ {
		moveOpponent(DefaultArena, o, Body{X: 20, Y: 20}, 1.0/60)
	}
	if o.X < 0 || o.Y < 0 {
		t.Fatalf("opponent left the arena: (%f,%f)", o.X, o.Y)
	}
}

func TestCooldownFiresAndRearms(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	o := NewOpponent()
	if !tickCooldown(o, 1.0/60) {
		t.Fatal("fresh opponent starts with cooldown 0 and fires at once")
	}
	for i := 0; i < 1000; i++ {
		rearm(o, rng)
		if o.Cooldown < AICooldownMin || o.Cooldown >= AICooldownMin+AICooldownSpread {
			t.Fatalf("cooldown %f outside [0.8,1.8)", o.Cooldown)
		}
	}
	o.Cooldown = 0.5
	if tickCooldown(o, 0.4) {
		t.Fatal("fired before cooldown ran out")
	}
	if !tickCooldown(o, 0.1) {
		t.Fatal("should fire once cooldown reaches zero")
	}
}

func TestArmProgress(t *testing.T) {
	o := &Opponent{Cooldown: 1.5}
	if o.armProgress() != 0 {
		t.Fatalf("long cooldown should leave the arm idle, got %f", o.armProgress())
	}
	o.Cooldown = 0.25
	if !approx(o.armProgress(), 0.75) {
		t.Fatalf("got %f", o.armProgress())
	}
	o.Cooldown = -0.1
	if o.armProgress() != 1 {
		t.Fatalf("expired cooldown is fully wound, got %f", o.armProgress())
	}
}
