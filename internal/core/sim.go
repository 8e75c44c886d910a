package core

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"duelarena/internal/netsync"
	"duelarena/internal/protocol"
)

// Link is the simulation's side of the network sync client.
type Link interface {
	// Inbound is the single-consumer queue of connection events and peer messages.
	Inbound() <-chan netsync.Event
	// Send queues a message without waiting; it may be dropped.
	Send(protocol.Message)
	Close() error
}

// Sim owns every piece of mutable game state for one run of the loop. It is
// built when the loop starts and dropped on teardown; only the loop goroutine
// touches it.
type Sim struct {
	Arena       Arena
	Player      *Player
	AI          *Opponent
	Projectiles []Projectile
	Peers       *netsync.PeerTable
	Controls    *Controls
	Running     bool

	link   Link
	online bool
	rng    *rand.Rand
	score  ScoreFunc
	tick   uint64
	log    *logrus.Entry
}

type SimOptions struct {
	Arena     Arena
	Character Character
	Running   bool
	Link      Link // nil runs local-only
	Rand      *rand.Rand
	Score     ScoreFunc
}

func NewSim(o SimOptions) *Sim {
	if o.Arena.W <= 0 || o.Arena.H <= 0 {
		o.Arena = DefaultArena
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(rand.Int63()))
	}
	player := NewPlayer(o.Arena, o.Character)
	return &Sim{
		Arena:    o.Arena,
		Player:   player,
		AI:       NewOpponent(),
		Peers:    netsync.NewPeerTable(),
		Controls: NewControls(player.X, player.Y),
		Running:  o.Running,
		link:     o.Link,
		rng:      o.Rand,
		score:    o.Score,
		log:      logrus.WithField("component", "sim"),
	}
}

// Online reports whether the connection has opened and not dropped.
func (s *Sim) Online() bool { return s.online }

// Step advances the game by dt seconds. While paused only movement and network
// intake run, and no frame is produced.
func (s *Sim) Step(dt float64) (Frame, bool) {
	s.tick++
	s.drainLink()
	s.movePlayer(dt)

	if !s.Running {
		return Frame{}, false
	}

	p := s.Player
	p.Angle = angleTo(p.X, p.Y, s.Controls.PointerX, s.Controls.PointerY)
	if p.throwTimer > 0 {
		p.throwTimer = math.Max(0, p.throwTimer-dt)
	}

	moveOpponent(s.Arena, s.AI, p.Body, dt)
	if tickCooldown(s.AI, dt) {
		s.Projectiles = append(s.Projectiles,
			throwFrom(s.AI.Body, s.AI.armProgress(), p.X, p.Y, OwnerAI, false))
		rearm(s.AI, s.rng)
	}

	for n := s.Controls.takeThrows(); n > 0; n-- {
		s.Projectiles = append(s.Projectiles,
			throwFrom(p.Body, p.throwProgress(), s.Controls.PointerX, s.Controls.PointerY, OwnerPlayer, true))
		p.throwTimer = ThrowAnimDuration
	}

	var hits int
	s.Projectiles, hits = resolveProjectiles(s.Arena, s.Projectiles, p, s.AI, dt)
	d := resolveDeaths(s.Arena, p, s.AI, s.rng, s.score)
	if hits > 0 || d.Player || d.AI {
		s.log.WithFields(logrus.Fields{
			"tick":        s.tick,
			"hits":        hits,
			"player_died": d.Player,
			"ai_died":     d.AI,
		}).Debug("combat resolved")
	}

	return s.frame(), true
}

func (s *Sim) movePlayer(dt float64) {
	p := s.Player
	dx, dy := s.Controls.Direction()
	if !s.Arena.Integrate(&p.Body, dx, dy, PlayerSpeed, dt) {
		return
	}
	p.Angle = math.Atan2(dy, dx)
	if s.online && p.ID != "" {
		s.link.Send(protocol.Update{PeerRecord: protocol.PeerRecord{ID: p.ID, X: p.X, Y: p.Y, Angle: p.Angle}})
	}
}

// drainLink applies every queued inbound event without blocking.
func (s *Sim) drainLink() {
	if s.link == nil {
		return
	}
	in := s.link.Inbound()
	for {
		select {
		case ev, ok := <-in:
			if !ok {
				s.dropLink()
				return
			}
			s.applyEvent(ev)
		default:
			return
		}
	}
}

func (s *Sim) applyEvent(ev netsync.Event) {
	switch {
	case ev.Opened:
		s.online = true
		s.Player.ID = ev.ID
		s.log.WithField("id", ev.ID).Info("connection open")
	case ev.Closed:
		s.dropLink()
	case ev.Msg != nil:
		if j, ok := ev.Msg.(protocol.Join); ok && j.ID != s.Player.ID {
			if _, known := s.Peers.Get(j.ID); !known {
				s.log.WithField("peer", j.ID).Info("peer joined")
			}
		}
		s.Peers.Apply(ev.Msg, s.Player.ID)
	}
}

// dropLink forgets remote peers once the connection is gone. There is no
// reconnect; the match continues locally.
func (s *Sim) dropLink() {
	if s.online {
		s.log.WithField("peers", s.Peers.Len()).Warn("connection lost, continuing offline")
	}
	s.online = false
	s.Peers.Clear()
	if s.link != nil {
		_ = s.link.Close()
		s.link = nil
	}
}
