// Package game wires the limb registry, the input sampler, the phase
// engines and their collaborators into one tick loop.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"

	"limbrun/internal/audio"
	"limbrun/internal/config"
	"limbrun/internal/device"
	"limbrun/internal/event"
	"limbrun/internal/hiding"
	"limbrun/internal/input"
	"limbrun/internal/inspect"
	"limbrun/internal/limb"
	"limbrun/internal/phase"
	"limbrun/internal/qte"
	"limbrun/internal/render"
	"limbrun/internal/rhythm"
	"limbrun/internal/sched"
	"limbrun/internal/skin"
	"limbrun/internal/stats"
)

const maxMessages = 50

// Options are the collaborators of a Game. Only Config is required.
type Options struct {
	Config config.Config
	Logger *slog.Logger
	// Screen enables the HUD and the debug keyboard. A nil screen runs
	// headless.
	Screen tcell.Screen
	// Hub receives devices from pad servers and joystick watchers. A new
	// one is created when nil.
	Hub       *device.Hub
	Player    audio.Player
	Inspector *inspect.Server
	Matcher   hiding.Matcher
	// Observers receive every bus event, each result before the phase
	// change it triggers.
	Observers []event.Handler
}

// Game is the top-level orchestrator. Every method runs on the tick
// goroutine.
type Game struct {
	cfg    config.Config
	logger *slog.Logger

	clock    *sched.Scheduler
	bus      *event.Bus
	hub      *device.Hub
	registry *device.Registry
	keyboard *input.Keyboard
	sampler  *input.Sampler

	rhythm *rhythm.Engine
	hiding *hiding.Engine
	qte    *qte.Engine
	sync   *phase.Synchronizer
	stats  *stats.Tracker
	skins  *skin.Store

	screen    tcell.Screen
	renderer  *render.Renderer
	inspector *inspect.Server

	messages  []string
	paused    bool
	quit      bool
	startedAt time.Duration
}

// New builds a game. The phase stays Idle until Start.
func New(opts Options) (*Game, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g := &Game{
		cfg:       cfg,
		logger:    logger,
		clock:     sched.New(),
		hub:       opts.Hub,
		screen:    opts.Screen,
		inspector: opts.Inspector,
	}
	if g.hub == nil {
		g.hub = device.NewHub()
	}
	g.bus = event.NewBus(g.clock.Now)

	// Stats and the message log see results before the synchronizer acts
	// on them.
	g.stats = stats.NewTracker(cfg.QTE.SyncWindow)
	g.bus.Subscribe(g.stats, g.stats.EventTypes()...)
	g.bus.Subscribe(event.HandlerFunc(g.handleEvent))

	bindings, err := input.Bindings(cfg.LockKeys)
	if err != nil {
		return nil, err
	}
	g.keyboard = input.NewKeyboard(bindings, cfg.KeyHold, g.clock.Now)
	g.registry = device.NewRegistry(g.hub, g.bus, logger)
	g.sampler = input.NewSampler(g.registry, g.keyboard, cfg.ParsedMode(), logger)

	matcher := opts.Matcher
	if matcher == nil {
		matcher = hiding.DefaultMatcher()
	}
	// The Head cursor must only reach targets the matcher can judge.
	if n := matcher.Targets(); cfg.Rhythm.Targets != n {
		return nil, fmt.Errorf("game: %d selectable targets but the matcher has %d", cfg.Rhythm.Targets, n)
	}
	if g.rhythm, err = rhythm.New(cfg.Rhythm, g.clock, g.sampler, g.bus, logger); err != nil {
		return nil, err
	}
	if g.hiding, err = hiding.New(cfg.Hiding, g.clock, g.sampler, matcher, g.bus, logger); err != nil {
		return nil, err
	}
	if g.qte, err = qte.New(cfg.QTE, g.clock, g.sampler, g.bus, logger); err != nil {
		return nil, err
	}
	g.sync, err = phase.New(cfg.Phase, g.clock, phase.Engines{
		Running: g.rhythm,
		Hiding:  g.hiding,
		QTE:     g.qte,
	}, g.bus, logger)
	if err != nil {
		return nil, err
	}

	cues := audio.NewCues(opts.Player, logger)
	g.bus.Subscribe(cues, cues.EventTypes()...)
	if g.inspector != nil {
		g.bus.Subscribe(g.inspector)
	}
	for _, h := range opts.Observers {
		g.bus.Subscribe(h)
	}
	// Last, so every other subscriber sees a result before the phase
	// change it causes.
	g.bus.Subscribe(g.sync, g.sync.EventTypes()...)

	if cfg.SkinsFile != "" {
		if g.skins, err = skin.Open(cfg.SkinsFile); err != nil {
			logger.Warn("skins disabled", "error", err)
			g.skins = nil
		}
	}
	if g.screen != nil {
		g.renderer = render.NewRenderer(g.screen)
	}

	if err := g.registry.RebuildMapping(); err != nil {
		logger.Warn("initial device mapping", "error", err)
	}
	return g, nil
}

// Hub returns the device hub device sources connect to.
func (g *Game) Hub() *device.Hub { return g.hub }

// Phase returns the current phase.
func (g *Game) Phase() phase.State { return g.sync.State() }

// Now returns the simulation time.
func (g *Game) Now() time.Duration { return g.clock.Now() }

// Start begins a new game.
func (g *Game) Start() { g.sync.StartGame() }

// Paused reports whether simulation time is frozen.
func (g *Game) Paused() bool { return g.paused }

// SetPaused freezes or resumes simulation time. Device changes and
// commands are still applied while paused.
func (g *Game) SetPaused(p bool) {
	if p == g.paused {
		return
	}
	g.paused = p
	if p {
		g.addMessage("Paused")
	} else {
		g.addMessage("Resumed")
	}
}

// Step runs one tick: device changes, timers, input, then the active phase.
func (g *Game) Step(dt time.Duration) {
	g.hub.Apply(g.registry)
	g.drainCommands()
	if !g.paused {
		g.clock.Advance(dt)
		g.sampler.Sample()
		g.sync.Tick(dt)
	}
	g.present()
}

// Run starts a game and ticks it every cfg.Tick until ctx is done or the
// player quits.
func (g *Game) Run(ctx context.Context) error {
	var events chan tcell.Event
	done := make(chan struct{})
	defer close(done)
	if g.screen != nil {
		events = make(chan tcell.Event)
		go pollEvents(g.screen, events, done)
	}

	ticker := time.NewTicker(g.cfg.Tick)
	defer ticker.Stop()

	g.Start()
	g.present()
	for !g.quit {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case ev := <-events:
			g.handleTerminal(ev)
		case <-ticker.C:
			g.Step(g.cfg.Tick)
		}
	}
	return nil
}

func pollEvents(screen tcell.Screen, out chan<- tcell.Event, done <-chan struct{}) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case out <- ev:
		case <-done:
			return
		}
	}
}

// handleTerminal applies one terminal event.
func (g *Game) handleTerminal(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		g.screen.Sync()
	case *tcell.EventKey:
		switch keyToAction(ev) {
		case ActionQuit:
			g.quit = true
		case ActionToggleMode:
			if g.sampler.Mode() == input.ModeDebug {
				g.setMode(input.ModeGame)
			} else {
				g.setMode(input.ModeDebug)
			}
		case ActionRestart:
			g.sync.RestartGame()
		case ActionTogglePause:
			g.SetPaused(!g.paused)
		case ActionNextSkin:
			g.nextSkin()
		default:
			if g.sampler.Mode() == input.ModeDebug {
				g.keyboard.HandleKey(ev)
			}
		}
	}
}

func (g *Game) setMode(m input.Mode) {
	g.sampler.SetMode(m)
	g.keyboard.Reset()
	g.addMessage("Input mode: " + m.String())
}

func (g *Game) nextSkin() {
	if g.skins == nil {
		return
	}
	for _, s := range limb.All {
		next := (g.skins.LoadSkin(s) + 1) % len(render.Skins)
		if err := g.skins.SaveSkin(s, next); err != nil {
			g.logger.Warn("save skin", "slot", s.String(), "error", err)
			g.addMessage("Could not save skins")
			return
		}
	}
}

// ─── Inspector commands ──────────────────────────────────────────────────────

func (g *Game) drainCommands() {
	if g.inspector == nil {
		return
	}
	for {
		select {
		case cmd := <-g.inspector.Commands():
			g.apply(cmd)
		default:
			return
		}
	}
}

func (g *Game) apply(cmd inspect.Command) {
	switch cmd.Kind {
	case inspect.CmdRestart:
		g.sync.RestartGame()
	case inspect.CmdMode:
		g.setMode(cmd.Mode)
	case inspect.CmdAssign:
		h, ok := g.registry.Lookup(cmd.DeviceID)
		if !ok {
			g.addMessage(fmt.Sprintf("No device %q to assign", cmd.DeviceID))
			return
		}
		if err := g.registry.ManuallyAssign(cmd.Slot, h); err != nil {
			g.logger.Warn("manual assign", "slot", cmd.Slot.String(), "id", cmd.DeviceID, "error", err)
			g.addMessage("Assign failed: " + err.Error())
		}
	case inspect.CmdUnpin:
		if err := g.registry.Unpin(cmd.Slot); err != nil {
			g.addMessage("Unpin failed: " + err.Error())
		}
	case inspect.CmdSkin:
		if g.skins == nil {
			return
		}
		if err := g.skins.SaveSkin(cmd.Slot, cmd.Skin); err != nil {
			g.logger.Warn("save skin", "slot", cmd.Slot.String(), "error", err)
		}
	}
}

func (g *Game) addMessage(msg string) {
	g.messages = append(g.messages, msg)
	if len(g.messages) > maxMessages {
		g.messages = g.messages[len(g.messages)-maxMessages:]
	}
}

// present publishes the snapshot and redraws the HUD.
func (g *Game) present() {
	if g.inspector == nil && g.renderer == nil {
		return
	}
	snap := g.Snapshot()
	if g.inspector != nil {
		g.inspector.Publish(snap)
	}
	if g.renderer != nil {
		g.renderer.Draw(snap)
	}
}
