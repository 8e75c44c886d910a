package core

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// runState toggles the running flag from outside the loop goroutine.
type runState struct{ running bool }

// Loop drives one Sim on a ticker. Everything that mutates the Sim arrives
// through Inbox and is applied between ticks.
type Loop struct {
	Inbox chan any

	sim       *Sim
	presenter Presenter
	interval  time.Duration
	now       func() time.Time

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewLoop(sim *Sim, presenter Presenter, tickRate int) *Loop {
	if tickRate <= 0 {
		tickRate = 60
	}
	return &Loop{
		Inbox:     make(chan any, 128),
		sim:       sim,
		presenter: presenter,
		interval:  time.Second / time.Duration(tickRate),
		now:       time.Now,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run blocks until Stop is called.
func (l *Loop) Run() {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	last := l.now()
	for {
		select {
		case <-l.quit:
			return

		case ev := <-l.Inbox:
			l.handle(ev)

		case <-ticker.C:
			now := l.now()
			dt := now.Sub(last).Seconds()
			last = now
			if fr, ok := l.sim.Step(dt); ok && l.presenter != nil {
				l.presenter.Present(fr)
			}
		}
	}
}

func (l *Loop) handle(ev any) {
	if rs, ok := ev.(runState); ok {
		l.sim.Running = rs.running
		if !rs.running {
			l.sim.Controls.dropThrows()
		}
		return
	}
	l.sim.Controls.Apply(ev, l.sim.Running)
}

// Post hands ev to the loop. It returns false once the loop has stopped.
func (l *Loop) Post(ev any) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.Inbox <- ev:
		return true
	case <-l.quit:
		return false
	}
}

// Stop ends Run, waits for it and closes the network link. Close errors are
// ignored.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.quit)
		<-l.done
		if l.sim.link != nil {
			_ = l.sim.link.Close()
		}
	})
}

// Connector opens the network link for a fresh loop. Returning nil runs the
// loop local-only.
type Connector func(ctx context.Context) Link

type EngineOptions struct {
	Arena     Arena
	TickRate  int
	Character Character
	Running   bool
	Connect   Connector
	Presenter Presenter
	Score     ScoreFunc
	// Seed, when non-zero, makes every fresh Sim draw from the same sequence.
	Seed int64
}

// Engine owns the loop lifecycle: activation, teardown and restarts when the
// character or reset counter changes.
type Engine struct {
	mu sync.Mutex

	opts      EngineOptions
	character Character
	running   bool
	reset     uint64

	ctx    context.Context
	cancel context.CancelFunc
	loop   *Loop
	wg     sync.WaitGroup

	log *logrus.Entry
}

func NewEngine(opts EngineOptions) *Engine {
	return &Engine{
		opts:      opts,
		character: opts.Character,
		running:   opts.Running,
		log:       logrus.WithField("component", "engine"),
	}
}

// Activate starts a fresh loop. Calling it while active is a no-op.
func (e *Engine) Activate(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loop != nil {
		return
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.start()
}

// Deactivate stops scheduling, detaches input and closes the connection.
func (e *Engine) Deactivate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stop()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loop != nil
}

// SetCharacter restarts the loop when c differs from the current character.
func (e *Engine) SetCharacter(c Character) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c == e.character {
		return
	}
	e.character = c
	e.restart("character changed")
}

// SetReset restarts the loop when counter differs from the last value seen.
func (e *Engine) SetReset(counter uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if counter == e.reset {
		return
	}
	e.reset = counter
	e.restart("reset requested")
}

// SetRunning pauses or resumes the active loop without tearing it down.
func (e *Engine) SetRunning(running bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = running
	if e.loop != nil {
		e.loop.Post(runState{running: running})
	}
}

func (e *Engine) KeyDown(key string) { e.post(KeyEvent{Key: key, Down: true}) }

func (e *Engine) KeyUp(key string) { e.post(KeyEvent{Key: key, Down: false}) }

func (e *Engine) PointerMove(x, y float64) { e.post(PointerMove{X: x, Y: y}) }

func (e *Engine) PointerDown() { e.post(PointerDown{}) }

// post drops input while no loop is attached.
func (e *Engine) post(ev any) {
	e.mu.Lock()
	l := e.loop
	e.mu.Unlock()
	if l != nil {
		l.Post(ev)
	}
}

func (e *Engine) restart(reason string) {
	if e.loop == nil {
		return
	}
	e.log.WithField("reason", reason).Info("restarting loop")
	e.stop()
	e.start()
}

func (e *Engine) start() {
	var link Link
	if e.opts.Connect != nil {
		link = e.opts.Connect(e.ctx)
	}
	var rng *rand.Rand
	if e.opts.Seed != 0 {
		rng = rand.New(rand.NewSource(e.opts.Seed))
	}
	sim := NewSim(SimOptions{
		Arena:     e.opts.Arena,
		Character: e.character,
		Running:   e.running,
		Link:      link,
		Rand:      rng,
		Score:     e.opts.Score,
	})
	l := NewLoop(sim, e.opts.Presenter, e.opts.TickRate)
	e.loop = l
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		l.Run()
	}()
	e.log.WithFields(logrus.Fields{
		"character": e.character,
		"running":   e.running,
		"online":    link != nil,
	}).Info("loop started")
}

func (e *Engine) stop() {
	if e.loop == nil {
		return
	}
	e.loop.Stop()
	e.wg.Wait()
	e.loop = nil
}
