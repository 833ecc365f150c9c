// Package qte runs the simultaneous-press challenge: a countdown, then a
// window in which every connected limb must press once, judged by the
// spread between the earliest and latest press.
package qte

import (
	"fmt"
	"log/slog"
	"time"

	"limbrun/internal/event"
	"limbrun/internal/limb"
	"limbrun/internal/sched"
)

// Config holds the challenge timings.
type Config struct {
	Countdown    time.Duration
	Window       time.Duration
	SyncWindow   time.Duration
	ResolveDelay time.Duration
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{
		Countdown:    3 * time.Second,
		Window:       2 * time.Second,
		SyncWindow:   300 * time.Millisecond,
		ResolveDelay: time.Second,
	}
}

// Validate rejects non-positive windows.
func (c Config) Validate() error {
	if c.Window <= 0 || c.SyncWindow <= 0 {
		return fmt.Errorf("qte: window %v and sync window %v must be positive", c.Window, c.SyncWindow)
	}
	if c.Countdown < 0 || c.ResolveDelay < 0 {
		return fmt.Errorf("qte: countdown %v and resolve delay %v must not be negative", c.Countdown, c.ResolveDelay)
	}
	return nil
}

// Stage is the challenge lifecycle.
type Stage uint8

const (
	NotStarted Stage = iota
	Countdown
	Open
	Resolved
)

func (s Stage) String() string {
	switch s {
	case Countdown:
		return "countdown"
	case Open:
		return "open"
	case Resolved:
		return "resolved"
	}
	return "not_started"
}

// Reason explains a result.
type Reason uint8

const (
	ReasonSynced Reason = iota
	ReasonOutOfSync
	ReasonTimeout
	ReasonNoPlayers
)

func (r Reason) String() string {
	switch r {
	case ReasonOutOfSync:
		return "out_of_sync"
	case ReasonTimeout:
		return "timeout"
	case ReasonNoPlayers:
		return "no_players"
	}
	return "synced"
}

// MarshalText encodes the reason by name.
func (r Reason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Press is one slot's press record for the current challenge.
type Press struct {
	Pressed bool          `json:"pressed"`
	At      time.Duration `json:"at"`
}

// Result is the SyncJudged and SyncResolved payload.
type Result struct {
	Success bool        `json:"success"`
	Reason  Reason      `json:"reason"`
	Missed  []limb.Slot `json:"missed"`
	// Spread is latest minus earliest press over the judged slots.
	Spread     time.Duration             `json:"spread"`
	Earliest   time.Duration             `json:"earliest"`
	Judged     [limb.Count]bool          `json:"judged"`
	Pressed    [limb.Count]bool          `json:"pressed"`
	Deviations [limb.Count]time.Duration `json:"deviations"`
	SyncWindow time.Duration             `json:"sync_window"`
}

// CountdownTick is the CountdownTick payload.
type CountdownTick struct {
	Remaining int `json:"remaining"`
}

// PlayerPress is the PlayerPress payload. Offset is measured from the
// window opening.
type PlayerPress struct {
	Slot   limb.Slot     `json:"slot"`
	Offset time.Duration `json:"offset"`
}

// PlayerMiss is the PlayerMiss payload.
type PlayerMiss struct {
	Slot limb.Slot `json:"slot"`
}

// Evaluate judges presses over the slots in include. With no included
// slots the result is a failure with nothing missed. If an included slot
// has not pressed the result is a timeout listing every such slot.
// Otherwise it succeeds when the spread is within syncWindow, and a failure
// lists the slots that pressed more than syncWindow after the earliest.
func Evaluate(presses [limb.Count]Press, include [limb.Count]bool, syncWindow time.Duration) Result {
	res := Result{Judged: include, SyncWindow: syncWindow, Missed: []limb.Slot{}}
	var first, last time.Duration
	pressed, judged := 0, 0
	for _, s := range limb.All {
		if !include[s] {
			continue
		}
		judged++
		p := presses[s]
		if !p.Pressed {
			continue
		}
		res.Pressed[s] = true
		if pressed == 0 || p.At < first {
			first = p.At
		}
		if pressed == 0 || p.At > last {
			last = p.At
		}
		pressed++
	}
	if judged == 0 {
		res.Reason = ReasonNoPlayers
		return res
	}
	res.Earliest = first
	if pressed > 0 {
		res.Spread = last - first
	}
	for _, s := range limb.All {
		if res.Pressed[s] {
			res.Deviations[s] = presses[s].At - first
		}
	}

	if pressed < judged {
		res.Reason = ReasonTimeout
		for _, s := range limb.All {
			if include[s] && !res.Pressed[s] {
				res.Missed = append(res.Missed, s)
			}
		}
		return res
	}
	if res.Spread <= syncWindow {
		res.Success = true
		res.Reason = ReasonSynced
		return res
	}
	res.Reason = ReasonOutOfSync
	for _, s := range limb.All {
		if res.Pressed[s] && res.Deviations[s] > syncWindow {
			res.Missed = append(res.Missed, s)
		}
	}
	return res
}

// Clock is the scheduler view the engine needs.
type Clock interface {
	Now() time.Duration
	NewTimer() *sched.Timer
}

// Input is the sampler view the engine reads.
type Input interface {
	ConfirmPressed(s limb.Slot) bool
	IsConnected(s limb.Slot) bool
}

// Engine runs one challenge at a time. Tick runs on the tick goroutine.
type Engine struct {
	cfg    Config
	clock  Clock
	in     Input
	pub    event.Publisher
	logger *slog.Logger

	stage     Stage
	gen       uint64
	presses   [limb.Count]Press
	included  [limb.Count]bool
	countEnd  time.Duration
	shown     int
	openedAt  time.Duration
	result    Result
	hasResult bool
	resolve   *sched.Timer
}

// New validates cfg and returns an idle engine.
func New(cfg Config, clock Clock, in Input, pub event.Publisher, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:     cfg,
		clock:   clock,
		in:      in,
		pub:     pub,
		logger:  logger,
		resolve: clock.NewTimer(),
	}, nil
}

// Begin starts a fresh challenge. Any pending resolution from an earlier
// challenge is cancelled and will never fire.
func (e *Engine) Begin() {
	e.resolve.Stop()
	e.gen++
	e.presses = [limb.Count]Press{}
	e.included = [limb.Count]bool{}
	e.hasResult = false
	e.result = Result{}
	e.stage = Countdown
	e.countEnd = e.clock.Now() + e.cfg.Countdown
	e.shown = ceilSeconds(e.cfg.Countdown)
	if e.shown > 0 {
		e.publish(event.CountdownTick, CountdownTick{Remaining: e.shown})
	}
}

// Stop abandons the challenge and cancels a pending resolution.
func (e *Engine) Stop() {
	e.resolve.Stop()
	e.gen++
	e.stage = NotStarted
}

// Tick advances the challenge.
func (e *Engine) Tick(time.Duration) {
	now := e.clock.Now()
	switch e.stage {
	case Countdown:
		rem := e.countEnd - now
		if rem > 0 {
			if secs := ceilSeconds(rem); secs < e.shown {
				e.shown = secs
				e.publish(event.CountdownTick, CountdownTick{Remaining: secs})
			}
			return
		}
		e.stage = Open
		e.openedAt = now
		e.publish(event.SyncOpen, nil)
		e.tickOpen(now)
	case Open:
		e.tickOpen(now)
	}
}

func (e *Engine) tickOpen(now time.Duration) {
	judged, pressed := 0, 0
	for _, s := range limb.All {
		e.included[s] = e.in.IsConnected(s)
		if !e.included[s] {
			continue
		}
		judged++
		if !e.presses[s].Pressed && e.in.ConfirmPressed(s) {
			e.presses[s] = Press{Pressed: true, At: now}
			e.publish(event.PlayerPress, PlayerPress{Slot: s, Offset: now - e.openedAt})
		}
		if e.presses[s].Pressed {
			pressed++
		}
	}
	switch {
	case judged == 0:
		e.judge()
	case pressed == judged:
		e.judge()
	case now >= e.openedAt+e.cfg.Window:
		e.judge()
	}
}

// judge fixes the result, announces it at once for audio and animation,
// and schedules the resolution that drives the phase change.
func (e *Engine) judge() {
	res := Evaluate(e.presses, e.included, e.cfg.SyncWindow)
	e.stage = Resolved
	e.result = res
	e.hasResult = true
	e.logger.Debug("sync challenge judged", "success", res.Success, "reason", res.Reason.String(), "spread", res.Spread)

	e.publish(event.SyncJudged, res)
	for _, s := range res.Missed {
		e.publish(event.PlayerMiss, PlayerMiss{Slot: s})
	}

	gen := e.gen
	e.resolve.Reset(e.cfg.ResolveDelay, func() {
		if e.gen != gen || e.stage != Resolved {
			return
		}
		e.publish(event.SyncResolved, res)
	})
}

func (e *Engine) publish(t event.Type, payload any) {
	if e.pub != nil {
		e.pub.Publish(t, payload)
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// ─── Queries ─────────────────────────────────────────────────────────────────

// Stage returns the current stage.
func (e *Engine) Stage() Stage { return e.stage }

// Presses returns the press records of the current challenge.
func (e *Engine) Presses() [limb.Count]Press { return e.presses }

// Result returns the judged result once the challenge is resolved.
func (e *Engine) Result() (Result, bool) { return e.result, e.hasResult }

// CountdownRemaining returns the whole seconds left before the window opens.
func (e *Engine) CountdownRemaining() int {
	if e.stage != Countdown {
		return 0
	}
	return e.shown
}

// WindowRemaining returns the time left in the open window.
func (e *Engine) WindowRemaining() time.Duration {
	if e.stage != Open {
		return 0
	}
	rem := e.openedAt + e.cfg.Window - e.clock.Now()
	if rem < 0 {
		return 0
	}
	return rem
}

// SyncWindow returns the configured sync tolerance.
func (e *Engine) SyncWindow() time.Duration { return e.cfg.SyncWindow }

// Succeeded reports whether the challenge was passed.
func (r Result) Succeeded() bool { return r.Success }
