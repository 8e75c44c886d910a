package main

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"duelarena/internal/core"
)

type inputLog struct {
	mu      sync.Mutex
	held    map[string]bool
	downs   int
	presses int
	moves   [][2]float64
}

func newInputLog() *inputLog { return &inputLog{held: make(map[string]bool)} }

func (l *inputLog) KeyDown(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = true
	l.downs++
}

func (l *inputLog) KeyUp(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}

func (l *inputLog) PointerMove(x, y float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.moves = append(l.moves, [2]float64{x, y})
}

func (l *inputLog) PointerDown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.presses++
}

func TestWanderStepDrivesInput(t *testing.T) {
	in := newInputLog()
	arena := core.Arena{W: 800, H: 600}
	rng := rand.New(rand.NewSource(7))

	var held []string
	for i := 0; i < 50; i++ {
		held = wanderStep(in, arena, rng, held)
		if len(in.held) != len(held) || len(held) > 2 {
			t.Fatalf("step %d: engine holds %v, driver tracks %v", i, in.held, held)
		}
		for k := range in.held {
			if k != "w" && k != "a" && k != "s" && k != "d" {
				t.Fatalf("unexpected key %q", k)
			}
		}
	}
	if in.downs == 0 || in.presses == 0 {
		t.Fatalf("50 steps should move and throw: downs=%d presses=%d", in.downs, in.presses)
	}
	for _, m := range in.moves {
		if m[0] < 0 || m[0] > arena.W || m[1] < 0 || m[1] > arena.H {
			t.Fatalf("pointer outside the arena: %v", m)
		}
	}
}

func TestWanderReleasesKeysOnCancel(t *testing.T) {
	in := newInputLog()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		wander(ctx, in, core.Arena{W: 800, H: 600}, rand.New(rand.NewSource(1)), time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("wander did not stop")
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.held) != 0 {
		t.Fatalf("keys left held: %v", in.held)
	}
}

func TestWanderMovesEngine(t *testing.T) {
	frames := make(chan core.Frame, 1024)
	e := core.NewEngine(core.EngineOptions{
		TickRate:  200,
		Character: core.Sasuke,
		Running:   true,
		Presenter: core.PresenterFunc(func(fr core.Frame) {
			select {
			case frames <- fr:
			default:
			}
		}),
		Seed: 5,
	})
	ctx, cancel := context.WithCancel(context.Background())
	e.Activate(ctx)
	defer e.Deactivate()
	defer cancel()

	go wander(ctx, e, core.DefaultArena, rand.New(rand.NewSource(2)), 20*time.Millisecond)

	deadline := time.After(3 * time.Second)
	for {
		select {
		case fr := <-frames:
			if fr.Player.X != core.PlayerSpawnX || fr.Player.Y != core.PlayerSpawnY {
				return
			}
		case <-deadline:
			t.Fatal("wandering player never moved")
		}
	}
}

func TestPickCharacter(t *testing.T) {
	cases := []struct {
		flag, configured string
		want             core.Character
		ok               bool
	}{
		{"", "", core.Naruto, true},
		{"", "Kakashi", core.Kakashi, true},
		{"obito", "kakashi", core.Obito, true},
		{" SASUKE ", "", core.Sasuke, true},
		{"goku", "", "", false},
	}
	for _, c := range cases {
		got, err := pickCharacter(c.flag, c.configured)
		if (err == nil) != c.ok || got != c.want {
			t.Fatalf("pickCharacter(%q, %q) = %q, %v", c.flag, c.configured, got, err)
		}
	}
}
