package core

import "duelarena/internal/netsync"

// Frame is the per-tick output handed to the presentation layer.
type Frame struct {
	Tick        uint64
	Player      PlayerView
	AI          AIView
	Projectiles []ProjectileView
	Peers       map[string]netsync.Peer
}

type PlayerView struct {
	ID        string
	Character Character
	X, Y      float64
	Angle     float64
	Health    int
}

type AIView struct {
	X, Y     float64
	Angle    float64
	Health   int
	Cooldown float64
}

type ProjectileView struct {
	X, Y     float64
	Owner    Owner
	FromHand bool
}

// Presenter consumes frames. Present is called from the loop goroutine and
// must not block for long.
type Presenter interface {
	Present(Frame)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(Frame)

func (f PresenterFunc) Present(fr Frame) { f(fr) }

func (s *Sim) frame() Frame {
	fr := Frame{
		Tick: s.tick,
		Player: PlayerView{
			ID:        s.Player.ID,
			Character: s.Player.Character,
			X:         s.Player.X,
			Y:         s.Player.Y,
			Angle:     s.Player.Angle,
			Health:    s.Player.Health,
		},
		AI: AIView{
			X:        s.AI.X,
			Y:        s.AI.Y,
			Angle:    s.AI.Angle,
			Health:   s.AI.Health,
			Cooldown: s.AI.Cooldown,
		},
		Projectiles: make([]ProjectileView, 0, len(s.Projectiles)),
		Peers:       s.Peers.Snapshot(),
	}
	for _, p := range s.Projectiles {
		fr.Projectiles = append(fr.Projectiles, ProjectileView{X: p.X, Y: p.Y, Owner: p.Owner, FromHand: p.FromHand})
	}
	return fr
}
