// Package hiding runs the pose phase: each limb swings its segment with the
// horizontal axis and locks it with confirm, and when time runs out the pose
// is judged against the target picked during the running phase.
package hiding

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"limbrun/internal/event"
	"limbrun/internal/input"
	"limbrun/internal/limb"
	"limbrun/internal/sched"
)

// ErrNoTarget reports a target index the matcher does not know.
var ErrNoTarget = errors.New("hiding: no such target")

// Config holds the pose tunables. Angles are in degrees.
type Config struct {
	Duration      time.Duration
	RotationSpeed float64 // degrees per second at full deflection
	MinAngle      float64
	MaxAngle      float64
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Duration:      10 * time.Second,
		RotationSpeed: 50,
		MinAngle:      -45,
		MaxAngle:      45,
	}
}

// Validate rejects an empty duration or an inverted angle range.
func (c Config) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("hiding: duration must be positive, got %v", c.Duration)
	}
	if c.MinAngle > c.MaxAngle {
		return fmt.Errorf("hiding: angle range [%v, %v] is inverted", c.MinAngle, c.MaxAngle)
	}
	return nil
}

// LimbPose is one segment's state.
type LimbPose struct {
	Angle  float64 `json:"angle"`
	Locked bool    `json:"locked"`
}

// Pose is the whole body, indexed by slot.
type Pose [limb.Count]LimbPose

// Matcher judges a final pose against a hiding target.
type Matcher interface {
	Targets() int
	Match(target int, pose Pose) bool
}

// Started is the HidingStarted payload.
type Started struct {
	Target   int           `json:"target"`
	Duration time.Duration `json:"duration"`
}

// Locked is the LimbLocked payload.
type Locked struct {
	Slot  limb.Slot `json:"slot"`
	Angle float64   `json:"angle"`
}

// Outcome is the HidingResolved payload.
type Outcome struct {
	Success bool `json:"success"`
	Target  int  `json:"target"`
	Pose    Pose `json:"pose"`
}

// Clock is the scheduler view the engine needs.
type Clock interface {
	Now() time.Duration
	NewTimer() *sched.Timer
}

// Input is the sampler view the engine reads.
type Input interface {
	HorizontalAxis(s limb.Slot) float64
	ConfirmPressed(s limb.Slot) bool
}

// Engine runs one hiding attempt at a time.
type Engine struct {
	cfg    Config
	clock  Clock
	in     Input
	match  Matcher
	pub    event.Publisher
	logger *slog.Logger

	active bool
	target int
	pose   Pose
	endsAt time.Duration
	timer  *sched.Timer
}

// New validates cfg and returns an idle engine.
func New(cfg Config, clock Clock, in Input, match Matcher, pub event.Publisher, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if match == nil {
		return nil, errors.New("hiding: nil matcher")
	}
	return &Engine{
		cfg:    cfg,
		clock:  clock,
		in:     in,
		match:  match,
		pub:    pub,
		logger: logger,
		timer:  clock.NewTimer(),
	}, nil
}

// Start begins an attempt at target with every limb centred and unlocked.
func (e *Engine) Start(target int) error {
	if target < 0 || target >= e.match.Targets() {
		return fmt.Errorf("target %d of %d: %w", target, e.match.Targets(), ErrNoTarget)
	}
	e.active = true
	e.target = target
	e.pose = Pose{}
	e.endsAt = e.clock.Now() + e.cfg.Duration
	e.timer.Reset(e.cfg.Duration, e.resolve)
	e.publish(event.HidingStarted, Started{Target: target, Duration: e.cfg.Duration})
	return nil
}

// Stop abandons the attempt without a result.
func (e *Engine) Stop() {
	e.active = false
	e.timer.Stop()
}

// Tick moves unlocked limbs and applies locks.
func (e *Engine) Tick(dt time.Duration) {
	if !e.active {
		return
	}
	for _, s := range limb.All {
		p := &e.pose[s]
		if p.Locked {
			continue
		}
		if e.in.ConfirmPressed(s) {
			p.Locked = true
			e.publish(event.LimbLocked, Locked{Slot: s, Angle: p.Angle})
			continue
		}
		a := p.Angle + input.DeadZone(e.in.HorizontalAxis(s))*e.cfg.RotationSpeed*dt.Seconds()
		p.Angle = math.Max(e.cfg.MinAngle, math.Min(e.cfg.MaxAngle, a))
	}
}

func (e *Engine) resolve() {
	if !e.active {
		return
	}
	e.active = false
	ok := e.match.Match(e.target, e.pose)
	e.logger.Debug("hiding judged", "target", e.target, "success", ok)
	e.publish(event.HidingResolved, Outcome{Success: ok, Target: e.target, Pose: e.pose})
}

func (e *Engine) publish(t event.Type, payload any) {
	if e.pub != nil {
		e.pub.Publish(t, payload)
	}
}

// Active reports whether an attempt is running.
func (e *Engine) Active() bool { return e.active }

// Target returns the target of the current or last attempt.
func (e *Engine) Target() int { return e.target }

// Pose returns the current pose.
func (e *Engine) Pose() Pose { return e.pose }

// Remaining returns the time left in the attempt.
func (e *Engine) Remaining() time.Duration {
	if !e.active {
		return 0
	}
	return max(e.endsAt-e.clock.Now(), 0)
}

// Succeeded reports whether the pose matched.
func (o Outcome) Succeeded() bool { return o.Success }
