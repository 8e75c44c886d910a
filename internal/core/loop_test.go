package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

type frameSink struct {
	ch chan Frame
}

func newFrameSink() *frameSink { return &frameSink{ch: make(chan Frame, 1024)} }

func (f *frameSink) Present(fr Frame) {
	select {
	case f.ch <- fr:
	default:
	}
}

// waitFrame returns the first frame matching ok, or fails after a timeout.
func (f *frameSink) waitFrame(t *testing.T, ok func(Frame) bool) Frame {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case fr := <-f.ch:
			if ok(fr) {
				return fr
			}
		case <-deadline:
			t.Fatal("timed out waiting for frame")
			return Frame{}
		}
	}
}

func (f *frameSink) drain() {
	for {
		select {
		case <-f.ch:
		default:
			return
		}
	}
}

type linkRecorder struct {
	mu    sync.Mutex
	links []*fakeLink
}

func (r *linkRecorder) connect(ctx context.Context) Link {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := newFakeLink()
	r.links = append(r.links, l)
	return l
}

func (r *linkRecorder) all() []*fakeLink {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fakeLink(nil), r.links...)
}

func newTestEngine(sink *frameSink, rec *linkRecorder) *Engine {
	return NewEngine(EngineOptions{
		TickRate:  200,
		Character: Naruto,
		Running:   true,
		Connect:   rec.connect,
		Presenter: sink,
		Seed:      3,
	})
}

func TestLoopStepsWithWallClock(t *testing.T) {
	sim := newTestSim(nil, nil)
	sink := newFrameSink()
	l := NewLoop(sim, sink, 100)

	base := time.Unix(0, 0)
	var mu sync.Mutex
	calls := 0
	l.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return base.Add(time.Duration(calls) * 100 * time.Millisecond)
	}
	go l.Run()
	defer l.Stop()

	l.Post(KeyEvent{Key: "d", Down: true})
	fr := sink.waitFrame(t, func(fr Frame) bool { return fr.Player.X > PlayerSpawnX })
	// every tick sees exactly 100ms of clock
	if moved := fr.Player.X - PlayerSpawnX; !approx(moved, PlayerSpeed*0.1) {
		t.Fatalf("first step moved %f, want %f", moved, PlayerSpeed*0.1)
	}
}

func TestLoopStopClosesLink(t *testing.T) {
	link := newFakeLink()
	l := NewLoop(newTestSim(link, nil), nil, 100)
	go l.Run()
	l.Stop()
	l.Stop()
	if !link.Closed() {
		t.Fatal("stop should close the link")
	}
	if l.Post(PointerDown{}) {
		t.Fatal("post after stop should report false")
	}
}

func TestEngineLifecycle(t *testing.T) {
	sink := newFrameSink()
	rec := &linkRecorder{}
	e := newTestEngine(sink, rec)

	e.Activate(context.Background())
	defer e.Deactivate()
	if !e.Active() {
		t.Fatal("engine should be active")
	}
	e.Activate(context.Background())
	sink.waitFrame(t, func(Frame) bool { return true })
	if n := len(rec.all()); n != 1 {
		t.Fatalf("second activate should be a no-op, got %d connects", n)
	}

	e.KeyDown("s")
	sink.waitFrame(t, func(fr Frame) bool { return fr.Player.Y > PlayerSpawnY })
	e.KeyUp("s")

	e.Deactivate()
	if e.Active() {
		t.Fatal("engine should be inactive")
	}
	if !rec.all()[0].Closed() {
		t.Fatal("deactivate should close the connection")
	}
	e.PointerDown()
}

func TestEngineRestartsOnCharacterChange(t *testing.T) {
	sink := newFrameSink()
	rec := &linkRecorder{}
	e := newTestEngine(sink, rec)
	e.Activate(context.Background())
	defer e.Deactivate()

	e.KeyDown("d")
	sink.waitFrame(t, func(fr Frame) bool { return fr.Player.X > PlayerSpawnX+20 })

	e.SetCharacter(Naruto)
	if n := len(rec.all()); n != 1 {
		t.Fatalf("same character should not restart, got %d connects", n)
	}

	e.SetCharacter(Sasuke)
	sink.drain()
	fr := sink.waitFrame(t, func(fr Frame) bool { return fr.Player.Character == Sasuke })
	if fr.Player.X != PlayerSpawnX {
		t.Fatalf("restart should reinitialize the player, x=%f", fr.Player.X)
	}
	links := rec.all()
	if len(links) != 2 || !links[0].Closed() || links[1].Closed() {
		t.Fatalf("restart should swap connections, got %d", len(links))
	}
}

func TestEngineResetCounter(t *testing.T) {
	sink := newFrameSink()
	rec := &linkRecorder{}
	e := newTestEngine(sink, rec)
	e.Activate(context.Background())
	defer e.Deactivate()

	e.SetReset(0)
	if n := len(rec.all()); n != 1 {
		t.Fatalf("unchanged counter restarted the loop: %d connects", n)
	}
	e.SetReset(1)
	e.SetReset(1)
	if n := len(rec.all()); n != 2 {
		t.Fatalf("expected exactly one restart, got %d connects", n)
	}
}

func TestEnginePauseKeepsLoop(t *testing.T) {
	sink := newFrameSink()
	rec := &linkRecorder{}
	e := newTestEngine(sink, rec)
	e.Activate(context.Background())
	defer e.Deactivate()

	sink.waitFrame(t, func(Frame) bool { return true })
	e.SetRunning(false)
	time.Sleep(50 * time.Millisecond)
	sink.drain()
	time.Sleep(50 * time.Millisecond)
	select {
	case <-sink.ch:
		t.Fatal("paused loop should not present frames")
	default:
	}
	if !e.Active() || len(rec.all()) != 1 {
		t.Fatal("pausing must not tear the loop down")
	}

	e.SetRunning(true)
	sink.waitFrame(t, func(Frame) bool { return true })
}

func TestPostAfterStopNeverAccepted(t *testing.T) {
	l := NewLoop(newTestSim(nil, nil), nil, 100)
	go l.Run()
	l.Stop()
	// the inbox still has room, so a racing send would win half the time
	for i := 0; i < 200; i++ {
		if l.Post(KeyEvent{Key: "w", Down: true}) {
			t.Fatalf("post %d accepted after stop", i)
		}
	}
	if n := len(l.Inbox); n != 0 {
		t.Fatalf("%d events queued after stop", n)
	}
}

func TestPauseDiscardsQueuedPress(t *testing.T) {
	s := newTestSim(nil, nil)
	s.AI.Cooldown = 10
	l := NewLoop(s, nil, 100)

	l.handle(PointerMove{X: 700, Y: 300})
	l.handle(PointerDown{})
	l.handle(runState{running: false})
	l.handle(runState{running: true})

	s.Step(frameDT)
	if len(s.Projectiles) != 0 {
		t.Fatalf("press queued before the pause fired on resume: %+v", s.Projectiles)
	}

	l.handle(PointerDown{})
	s.Step(frameDT)
	if len(s.Projectiles) != 1 {
		t.Fatalf("expected a throw after resume, got %d", len(s.Projectiles))
	}
}
