package phase

import (
	"fmt"
	"log/slog"
	"time"

	"limbrun/internal/event"
	"limbrun/internal/sched"
)

// Config holds the phase timings and progression rules.
type Config struct {
	RunningDuration    time.Duration
	TransitionDelay    time.Duration
	TargetRounds       int
	Lives              int // 0 means unlimited
	IncreaseDifficulty bool
	DifficultyStep     float64
}

// DefaultConfig returns the stock rules.
func DefaultConfig() Config {
	return Config{
		RunningDuration:    15 * time.Second,
		TransitionDelay:    3 * time.Second,
		TargetRounds:       10,
		Lives:              3,
		IncreaseDifficulty: true,
		DifficultyStep:     1.1,
	}
}

// Validate rejects settings that would stall or shrink difficulty.
func (c Config) Validate() error {
	if c.RunningDuration <= 0 || c.TransitionDelay <= 0 {
		return fmt.Errorf("phase: running duration %v and transition delay %v must be positive", c.RunningDuration, c.TransitionDelay)
	}
	if c.TargetRounds < 1 {
		return fmt.Errorf("phase: target rounds must be at least 1, got %d", c.TargetRounds)
	}
	if c.Lives < 0 {
		return fmt.Errorf("phase: lives must not be negative, got %d", c.Lives)
	}
	if c.DifficultyStep < 1 {
		return fmt.Errorf("phase: difficulty step must be >= 1, got %v", c.DifficultyStep)
	}
	return nil
}

// Runner is the running-phase engine.
type Runner interface {
	Start(difficulty float64)
	Stop()
	Tick(dt time.Duration)
	SelectedIndex() int
}

// Hider is the hiding-phase engine.
type Hider interface {
	Start(target int) error
	Stop()
	Tick(dt time.Duration)
}

// Challenger is the sync-challenge engine.
type Challenger interface {
	Begin()
	Stop()
	Tick(dt time.Duration)
}

// Engines groups the phase collaborators. A nil engine is a configuration
// error reported when its phase is entered.
type Engines struct {
	Running Runner
	Hiding  Hider
	QTE     Challenger
}

// Clock is the scheduler view the synchronizer needs.
type Clock interface {
	Now() time.Duration
	NewTimer() *sched.Timer
}

type succeeder interface {
	Succeeded() bool
}

// Synchronizer is the phase state machine. Every method runs on the tick
// goroutine, including scheduled continuations and bus handlers.
type Synchronizer struct {
	cfg     Config
	clock   Clock
	engines Engines
	pub     event.Publisher
	logger  *slog.Logger

	current    State
	previous   State
	rounds     int
	lives      int
	difficulty float64

	transition *sched.Timer
	runTimer   *sched.Timer
	reported   map[State]bool
}

// New validates cfg and returns a synchronizer in Idle.
func New(cfg Config, clock Clock, engines Engines, pub event.Publisher, logger *slog.Logger) (*Synchronizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Synchronizer{
		cfg:        cfg,
		clock:      clock,
		engines:    engines,
		pub:        pub,
		logger:     logger,
		lives:      cfg.Lives,
		difficulty: 1,
		transition: clock.NewTimer(),
		runTimer:   clock.NewTimer(),
		reported:   make(map[State]bool),
	}, nil
}

// EventTypes lists the results the synchronizer consumes.
func (s *Synchronizer) EventTypes() []event.Type {
	return []event.Type{event.HidingResolved, event.SyncResolved}
}

// ChangeState exits the current phase, records it as previous, publishes
// the change, then enters the new phase. Observers therefore see the new
// state before any engine of that phase has started.
func (s *Synchronizer) ChangeState(next State) {
	s.exit(s.current)
	s.previous = s.current
	s.current = next
	s.logger.Info("phase changed", "from", s.previous.String(), "to", next.String())
	s.publish(event.PhaseChanged, Change{From: s.previous, To: next})
	s.enter(next)
}

// StartGame resets progress and enters the opening transition.
func (s *Synchronizer) StartGame() {
	s.rounds = 0
	s.lives = s.cfg.Lives
	s.difficulty = 1
	if s.current != Idle {
		s.ChangeState(Idle)
	}
	s.ChangeState(Transition)
}

// RestartGame abandons the current game and starts a new one.
func (s *Synchronizer) RestartGame() { s.StartGame() }

// Tick advances the engine of the active phase only.
func (s *Synchronizer) Tick(dt time.Duration) {
	switch s.current {
	case Running:
		if s.engines.Running != nil {
			s.engines.Running.Tick(dt)
		}
	case Hiding:
		if s.engines.Hiding != nil {
			s.engines.Hiding.Tick(dt)
		}
	case QTE:
		if s.engines.QTE != nil {
			s.engines.QTE.Tick(dt)
		}
	}
}

// HandleEvent applies phase results. Results that arrive outside their
// phase are stale and ignored.
func (s *Synchronizer) HandleEvent(ev event.Event) {
	r, ok := ev.Payload.(succeeder)
	if !ok {
		return
	}
	switch {
	case ev.Type == event.HidingResolved && s.current == Hiding:
		s.onHiding(r.Succeeded())
	case ev.Type == event.SyncResolved && s.current == QTE:
		s.onSync(r.Succeeded())
	}
}

// ─── Phase entry and exit ────────────────────────────────────────────────────

func (s *Synchronizer) enter(st State) {
	switch st {
	case Running:
		if s.engines.Running == nil {
			s.misconfigured(st, "no running engine")
			return
		}
		s.engines.Running.Start(s.difficulty)
		s.runTimer.Reset(s.cfg.RunningDuration, func() {
			if s.current == Running {
				s.ChangeState(Transition)
			}
		})
	case Hiding:
		if s.engines.Hiding == nil || s.engines.Running == nil {
			s.misconfigured(st, "no hiding engine or target selector")
			return
		}
		if err := s.engines.Hiding.Start(s.engines.Running.SelectedIndex()); err != nil {
			s.misconfigured(st, err.Error())
			return
		}
	case QTE:
		if s.engines.QTE == nil {
			s.misconfigured(st, "no sync challenge engine")
			return
		}
		s.engines.QTE.Begin()
	case Transition:
		s.transition.Reset(s.cfg.TransitionDelay, func() {
			if s.current != Transition {
				return
			}
			s.ChangeState(Next(s.previous))
		})
	case GameOver, Victory:
		s.publish(event.GameOver, Over{Won: st == Victory, Rounds: s.rounds})
	}
}

func (s *Synchronizer) exit(st State) {
	switch st {
	case Running:
		s.runTimer.Stop()
		if s.engines.Running != nil {
			s.engines.Running.Stop()
		}
	case Hiding:
		if s.engines.Hiding != nil {
			s.engines.Hiding.Stop()
		}
	case QTE:
		if s.engines.QTE != nil {
			s.engines.QTE.Stop()
		}
	case Transition:
		s.transition.Stop()
	}
}

// misconfigured reports a broken phase once and skips ahead.
func (s *Synchronizer) misconfigured(st State, msg string) {
	if !s.reported[st] {
		s.reported[st] = true
		s.logger.Error("phase skipped", "phase", st.String(), "reason", msg)
		s.publish(event.ConfigError, Problem{Phase: st, Message: msg})
	}
	s.ChangeState(Transition)
}

// ─── Results ─────────────────────────────────────────────────────────────────

func (s *Synchronizer) onHiding(success bool) {
	if !success {
		s.fail()
		return
	}
	s.rounds++
	s.publish(event.RoundCompleted, Round{Completed: s.rounds, Target: s.cfg.TargetRounds})
	if s.rounds >= s.cfg.TargetRounds {
		s.ChangeState(Victory)
		return
	}
	if s.cfg.IncreaseDifficulty {
		s.difficulty *= s.cfg.DifficultyStep
	}
	s.ChangeState(Transition)
}

func (s *Synchronizer) onSync(success bool) {
	if !success {
		s.fail()
		return
	}
	s.ChangeState(Transition)
}

func (s *Synchronizer) fail() {
	if s.cfg.Lives > 0 {
		s.lives--
		s.publish(event.LivesChanged, Lives{Lives: s.lives})
		if s.lives <= 0 {
			s.ChangeState(GameOver)
			return
		}
	}
	s.ChangeState(Transition)
}

func (s *Synchronizer) publish(t event.Type, payload any) {
	if s.pub != nil {
		s.pub.Publish(t, payload)
	}
}

// ─── Queries ─────────────────────────────────────────────────────────────────

// State returns the current phase.
func (s *Synchronizer) State() State { return s.current }

// Previous returns the phase before the current one.
func (s *Synchronizer) Previous() State { return s.previous }

// RoundsCompleted returns the successful hiding attempts this game.
func (s *Synchronizer) RoundsCompleted() int { return s.rounds }

// TargetRounds returns the rounds needed for victory.
func (s *Synchronizer) TargetRounds() int { return s.cfg.TargetRounds }

// Difficulty returns the current difficulty multiplier. It never decreases
// until the game is restarted.
func (s *Synchronizer) Difficulty() float64 { return s.difficulty }

// Lives returns the remaining lives, or 0 when lives are unlimited.
func (s *Synchronizer) Lives() int { return s.lives }

// TransitionPending reports whether a transition continuation is scheduled.
func (s *Synchronizer) TransitionPending() bool { return s.transition.Active() }
