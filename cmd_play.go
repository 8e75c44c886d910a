package main

import (
	"context"
	"fmt"
	"math/rand"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"duelarena/internal/core"
	"duelarena/internal/mq"
	"duelarena/internal/netsync"
	"duelarena/pkg/config"
)

var (
	playOffline   bool
	playDuration  time.Duration
	playLogEvery  uint64
	playCharacter string
	playWander    time.Duration
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Run a headless match against the AI, synced through the relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if playDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, playDuration)
			defer cancel()
		}
		return runPlay(ctx, config.AppConfig)
	},
}

func init() {
	playCmd.Flags().BoolVar(&playOffline, "offline", false, "do not connect to the relay")
	playCmd.Flags().DurationVar(&playDuration, "duration", 0, "stop after this long (0 runs until interrupted)")
	playCmd.Flags().Uint64Var(&playLogEvery, "log-every", 60, "log one frame out of every N ticks")
	playCmd.Flags().StringVar(&playCharacter, "character", "", "character to play: "+characterNames()+" (default game.character)")
	playCmd.Flags().DurationVar(&playWander, "wander", 0, "drive random movement and throws at this interval (0 stays idle)")
}

// scoreboard keeps the running total and forwards each change to the feed.
type scoreboard struct {
	mu       sync.Mutex
	total    int
	clientID string
	feed     *mq.Producer
}

func (s *scoreboard) setClient(id string) {
	s.mu.Lock()
	s.clientID = id
	s.mu.Unlock()
}

func (s *scoreboard) add(delta int) {
	s.mu.Lock()
	s.total += delta
	ev := mq.ScoreEvent{ClientID: s.clientID, Delta: delta, Total: s.total}
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{"delta": delta, "total": ev.Total}).Info("score")
	if s.feed != nil {
		_ = s.feed.PublishScore(ev)
	}
}

func (s *scoreboard) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func characterNames() string {
	names := make([]string, 0, len(core.Characters))
	for _, c := range core.Characters {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// pickCharacter resolves the flag, then the config value. Unknown names are
// an error rather than a silent fallback.
func pickCharacter(flag, configured string) (core.Character, error) {
	name := flag
	if name == "" {
		name = configured
	}
	if name == "" {
		return core.Naruto, nil
	}
	c := core.ParseCharacter(name)
	for _, known := range core.Characters {
		if c == known && strings.EqualFold(strings.TrimSpace(name), string(known)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown character %q (want one of %s)", name, characterNames())
}

func runPlay(ctx context.Context, cfg *config.Config) error {
	log := logrus.WithField("component", "main")
	board := &scoreboard{}

	character, err := pickCharacter(playCharacter, cfg.Game.Character)
	if err != nil {
		return err
	}
	costume := character.Costume()
	log.WithFields(logrus.Fields{
		"character": character,
		"body":      costume.Body,
		"trim":      costume.Trim,
	}).Info("character selected")

	if cfg.MQ.Url != "" {
		feed, err := mq.Dial(cfg.MQ)
		if err != nil {
			return err
		}
		defer feed.Close()
		board.feed = feed
		log.WithField("queue", cfg.MQ.QueueName).Info("score feed enabled")
	}

	var connect core.Connector
	if !playOffline {
		connect = func(ctx context.Context) core.Link {
			c := netsync.Dial(ctx, netsync.Options{
				Endpoint:   cfg.Sync.Endpoint,
				SendBuffer: cfg.Sync.SendBuffer,
				RecvBuffer: cfg.Sync.RecvBuffer,
			})
			board.setClient(c.ID())
			return c
		}
	}

	presenter := core.PresenterFunc(func(fr core.Frame) {
		if playLogEvery == 0 || fr.Tick%playLogEvery != 0 {
			return
		}
		logrus.WithFields(logrus.Fields{
			"tick":        fr.Tick,
			"player":      fr.Player.Health,
			"ai":          fr.AI.Health,
			"projectiles": len(fr.Projectiles),
			"peers":       len(fr.Peers),
		}).Debug("frame")
	})

	arena := core.Arena{W: cfg.Game.ArenaWidth, H: cfg.Game.ArenaHeight}
	engine := core.NewEngine(core.EngineOptions{
		Arena:     arena,
		TickRate:  cfg.Game.TickRate,
		Character: character,
		Running:   true,
		Connect:   connect,
		Presenter: presenter,
		Score:     board.add,
	})
	engine.Activate(ctx)

	var driver sync.WaitGroup
	if playWander > 0 {
		driver.Add(1)
		go func() {
			defer driver.Done()
			wander(ctx, engine, arena, rand.New(rand.NewSource(time.Now().UnixNano())), playWander)
		}()
	}

	<-ctx.Done()
	driver.Wait()
	engine.Deactivate()
	log.WithField("score", board.Total()).Info("match over")
	return nil
}

// inputDriver is the slice of the engine's input surface wander uses.
type inputDriver interface {
	KeyDown(key string)
	KeyUp(key string)
	PointerMove(x, y float64)
	PointerDown()
}

var wanderKeys = []string{"w", "a", "s", "d"}

// wander drives random input: every interval it swaps the held
// direction keys, moves the pointer somewhere in the arena and sometimes
// throws. Held keys are released when ctx ends.
func wander(ctx context.Context, in inputDriver, arena core.Arena, rng *rand.Rand, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var held []string
	for {
		select {
		case <-ctx.Done():
			for _, k := range held {
				in.KeyUp(k)
			}
			return
		case <-ticker.C:
			held = wanderStep(in, arena, rng, held)
		}
	}
}

func wanderStep(in inputDriver, arena core.Arena, rng *rand.Rand, held []string) []string {
	for _, k := range held {
		in.KeyUp(k)
	}
	held = held[:0]
	for _, i := range rng.Perm(len(wanderKeys))[:rng.Intn(3)] {
		in.KeyDown(wanderKeys[i])
		held = append(held, wanderKeys[i])
	}
	in.PointerMove(rng.Float64()*arena.W, rng.Float64()*arena.H)
	if rng.Intn(2) == 0 {
		in.PointerDown()
	}
	return held
}
