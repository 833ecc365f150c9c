// Package rhythm runs the running phase: a fixed rotation of limb prompts,
// each open for a short window, with a speed that rewards accurate hits and
// a Head-driven cursor that picks the hiding target.
package rhythm

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"limbrun/internal/event"
	"limbrun/internal/input"
	"limbrun/internal/limb"
)

// ErrBadPattern reports an empty pattern or one that names Head or an
// invalid slot.
var ErrBadPattern = errors.New("rhythm: bad pattern")

// Config holds the tunables of the running phase.
type Config struct {
	Pattern          []limb.Slot
	BaseInterval     time.Duration
	MinInterval      time.Duration
	IntervalDecay    float64 // interval shrink per second of running
	Window           time.Duration
	MinWindow        time.Duration
	FirstPromptDelay time.Duration

	BaseSpeed         float64
	BonusThreshold    float64
	BonusMultiplier   float64
	PenaltyMultiplier float64
	MaxSpeedFactor    float64

	Targets         int
	SelectThreshold float64
	SelectCooldown  time.Duration
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Pattern:           []limb.Slot{limb.LeftLeg, limb.RightLeg, limb.LeftArm, limb.RightArm},
		BaseInterval:      1500 * time.Millisecond,
		MinInterval:       500 * time.Millisecond,
		IntervalDecay:     0.05,
		Window:            500 * time.Millisecond,
		MinWindow:         250 * time.Millisecond,
		FirstPromptDelay:  time.Second,
		BaseSpeed:         5,
		BonusThreshold:    0.7,
		BonusMultiplier:   1.2,
		PenaltyMultiplier: 0.8,
		MaxSpeedFactor:    2,
		Targets:           3,
		SelectThreshold:   0.5,
		SelectCooldown:    200 * time.Millisecond,
	}
}

// Validate checks the pattern and the timing bounds.
func (c Config) Validate() error {
	if len(c.Pattern) == 0 {
		return fmt.Errorf("empty: %w", ErrBadPattern)
	}
	for _, s := range c.Pattern {
		if !s.Valid() || s == limb.Head {
			return fmt.Errorf("slot %v: %w", s, ErrBadPattern)
		}
	}
	if c.MinInterval <= 0 || c.BaseInterval < c.MinInterval {
		return fmt.Errorf("rhythm: interval %v must be >= min interval %v > 0", c.BaseInterval, c.MinInterval)
	}
	if c.MinWindow <= 0 || c.Window < c.MinWindow {
		return fmt.Errorf("rhythm: window %v must be >= min window %v > 0", c.Window, c.MinWindow)
	}
	if c.Targets < 1 {
		return fmt.Errorf("rhythm: need at least one target, got %d", c.Targets)
	}
	return nil
}

// Clock is the simulation time source.
type Clock interface {
	Now() time.Duration
}

// Input is the sampler view the engine reads.
type Input interface {
	HorizontalAxis(s limb.Slot) float64
	ConfirmPressed(s limb.Slot) bool
}

// ─── Payloads ────────────────────────────────────────────────────────────────

// Prompt is a live prompt. It is also the PromptShown payload.
type Prompt struct {
	Slot     limb.Slot     `json:"slot"`
	OpenedAt time.Duration `json:"opened_at"`
	Window   time.Duration `json:"window"`
}

// Deadline is the last instant a press still counts.
func (p Prompt) Deadline() time.Duration { return p.OpenedAt + p.Window }

// Hit is the PromptHit payload.
type Hit struct {
	Slot     limb.Slot     `json:"slot"`
	Accuracy float64       `json:"accuracy"`
	Elapsed  time.Duration `json:"elapsed"`
	Bonus    bool          `json:"bonus"`
}

// Miss is the PromptExpired payload.
type Miss struct {
	Slot limb.Slot `json:"slot"`
}

// WrongLimb is the PromptWrongLimb payload.
type WrongLimb struct {
	Pressed  limb.Slot `json:"pressed"`
	Expected limb.Slot `json:"expected"`
}

// Speed is the SpeedChanged payload.
type Speed struct {
	Speed float64 `json:"speed"`
}

// Selection is the SelectionChanged payload.
type Selection struct {
	Index int `json:"index"`
}

// ─── Engine ──────────────────────────────────────────────────────────────────

// Engine is the rhythm prompt state machine. Tick runs on the tick
// goroutine after the sampler.
type Engine struct {
	cfg    Config
	clock  Clock
	in     Input
	pub    event.Publisher
	logger *slog.Logger

	running    bool
	interval   time.Duration
	window     time.Duration
	nextAt     time.Duration
	prompt     Prompt
	live       bool
	patternIdx int
	speed      float64

	selected   int
	lastSelect time.Duration
}

// New validates cfg and returns a stopped engine.
func New(cfg Config, clock Clock, in Input, pub event.Publisher, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:      cfg,
		clock:    clock,
		in:       in,
		pub:      pub,
		logger:   logger,
		interval: cfg.BaseInterval,
		window:   cfg.Window,
		speed:    cfg.BaseSpeed,
	}, nil
}

// WindowFor returns the prompt window at a difficulty multiplier. It is
// non-increasing in difficulty and never below MinWindow.
func (c Config) WindowFor(difficulty float64) time.Duration {
	if difficulty < 1 || math.IsNaN(difficulty) {
		difficulty = 1
	}
	w := time.Duration(float64(c.Window) / difficulty)
	if w < c.MinWindow {
		w = c.MinWindow
	}
	return w
}

// Start resets the rotation and schedules the first prompt.
func (e *Engine) Start(difficulty float64) {
	now := e.clock.Now()
	e.running = true
	e.interval = e.cfg.BaseInterval
	e.window = e.cfg.WindowFor(difficulty)
	e.nextAt = now + e.cfg.FirstPromptDelay
	e.live = false
	e.patternIdx = 0
	e.speed = e.cfg.BaseSpeed
	e.selected = 0
	e.lastSelect = now - e.cfg.SelectCooldown
	e.logger.Debug("running phase started", "difficulty", difficulty, "window", e.window)
}

// Stop ends the phase. The selected index is kept for the hiding phase.
func (e *Engine) Stop() {
	e.running = false
	e.live = false
}

// Tick advances the engine by one tick of length dt.
func (e *Engine) Tick(dt time.Duration) {
	if !e.running {
		return
	}
	now := e.clock.Now()

	e.interval -= time.Duration(e.cfg.IntervalDecay * float64(dt))
	if e.interval < e.cfg.MinInterval {
		e.interval = e.cfg.MinInterval
	}

	e.updateSelection(now)

	if e.live {
		e.checkPresses(now)
	}
	if e.live && now >= e.prompt.Deadline() {
		e.expire(now)
	}
	if !e.live && now >= e.nextAt {
		e.show(now)
	}
}

func (e *Engine) updateSelection(now time.Duration) {
	h := input.DeadZone(e.in.HorizontalAxis(limb.Head))
	if math.Abs(h) <= e.cfg.SelectThreshold || now-e.lastSelect < e.cfg.SelectCooldown {
		return
	}
	step := 1
	if h < 0 {
		step = -1
	}
	n := e.cfg.Targets
	e.selected = ((e.selected+step)%n + n) % n
	e.lastSelect = now
	e.publish(event.SelectionChanged, Selection{Index: e.selected})
}

// checkPresses polls the four limbs in index order. The first press from
// the prompted slot closes the prompt; presses from other limbs are
// reported and otherwise ignored.
func (e *Engine) checkPresses(now time.Duration) {
	hit := false
	for _, s := range limb.Limbs {
		if !e.in.ConfirmPressed(s) {
			continue
		}
		if s != e.prompt.Slot {
			e.publish(event.PromptWrongLimb, WrongLimb{Pressed: s, Expected: e.prompt.Slot})
			continue
		}
		if !hit {
			hit = true
			e.resolveHit(now)
		}
	}
}

func (e *Engine) resolveHit(now time.Duration) {
	elapsed := now - e.prompt.OpenedAt
	acc := 1 - float64(elapsed)/float64(e.prompt.Window)
	acc = math.Max(0, math.Min(1, acc))
	bonus := acc > e.cfg.BonusThreshold
	slot := e.prompt.Slot

	e.close(now)
	e.publish(event.PromptHit, Hit{Slot: slot, Accuracy: acc, Elapsed: elapsed, Bonus: bonus})
	if bonus {
		e.setSpeed(math.Min(e.speed*e.cfg.BonusMultiplier, e.cfg.BaseSpeed*e.cfg.MaxSpeedFactor))
	}
}

func (e *Engine) expire(now time.Duration) {
	slot := e.prompt.Slot
	e.close(now)
	e.publish(event.PromptExpired, Miss{Slot: slot})
	e.setSpeed(e.speed * e.cfg.PenaltyMultiplier)
}

// close ends the live prompt. The next one opens a full interval later.
func (e *Engine) close(now time.Duration) {
	e.live = false
	e.patternIdx = (e.patternIdx + 1) % len(e.cfg.Pattern)
	e.nextAt = now + e.interval
}

func (e *Engine) show(now time.Duration) {
	e.prompt = Prompt{Slot: e.cfg.Pattern[e.patternIdx], OpenedAt: now, Window: e.window}
	e.live = true
	e.publish(event.PromptShown, e.prompt)
}

func (e *Engine) setSpeed(v float64) {
	if v == e.speed {
		return
	}
	e.speed = v
	e.publish(event.SpeedChanged, Speed{Speed: v})
}

func (e *Engine) publish(t event.Type, payload any) {
	if e.pub != nil {
		e.pub.Publish(t, payload)
	}
}

// ─── Queries ─────────────────────────────────────────────────────────────────

// Running reports whether the phase is active.
func (e *Engine) Running() bool { return e.running }

// Speed returns the current movement speed.
func (e *Engine) Speed() float64 { return e.speed }

// Interval returns the current time between prompts.
func (e *Engine) Interval() time.Duration { return e.interval }

// Window returns the prompt window for the current run.
func (e *Engine) Window() time.Duration { return e.window }

// Prompt returns the live prompt, if any.
func (e *Engine) Prompt() (Prompt, bool) { return e.prompt, e.live }

// NextSlot returns the slot the next prompt will target.
func (e *Engine) NextSlot() limb.Slot { return e.cfg.Pattern[e.patternIdx] }

// SelectedIndex returns the hiding target picked with the Head axis.
func (e *Engine) SelectedIndex() int { return e.selected }

// Targets returns the number of selectable hiding targets.
func (e *Engine) Targets() int { return e.cfg.Targets }
