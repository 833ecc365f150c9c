// Package audio turns bus events into short synthesized cues.
package audio

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"limbrun/internal/event"
	"limbrun/internal/hiding"
	"limbrun/internal/phase"
	"limbrun/internal/qte"
	"limbrun/internal/rhythm"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// SampleRate is the output rate of every cue.
const SampleRate = beep.SampleRate(44100)

// Player plays a finite streamer.
type Player interface {
	Play(s beep.Streamer)
}

// Speaker mixes cues into the system audio device.
type Speaker struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
}

// NewSpeaker returns an uninitialized speaker.
func NewSpeaker() *Speaker {
	return &Speaker{mixer: &beep.Mixer{}}
}

// Init opens the audio device.
func (s *Speaker) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	if err := speaker.Init(SampleRate, SampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(s.mixer)
	s.initialized = true
	return nil
}

// Play adds st to the mix. It does nothing before Init.
func (s *Speaker) Play(st beep.Streamer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	speaker.Lock()
	s.mixer.Add(st)
	speaker.Unlock()
}

// Close stops playback.
func (s *Speaker) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	speaker.Clear()
	speaker.Close()
	s.initialized = false
}

// Silent discards every cue.
type Silent struct{}

// Play does nothing.
func (Silent) Play(beep.Streamer) {}

// ─── Cues ────────────────────────────────────────────────────────────────────

// Cues is a bus handler that plays a cue per game event.
type Cues struct {
	player Player
	logger *slog.Logger
}

// NewCues returns a handler playing through p.
func NewCues(p Player, logger *slog.Logger) *Cues {
	if p == nil {
		p = Silent{}
	}
	return &Cues{player: p, logger: logger}
}

// EventTypes lists the events that have a cue.
func (c *Cues) EventTypes() []event.Type {
	return []event.Type{
		event.PromptShown, event.PromptHit, event.PromptExpired, event.PromptWrongLimb,
		event.CountdownTick, event.SyncOpen, event.SyncJudged,
		event.LimbLocked, event.HidingResolved, event.GameOver,
	}
}

// HandleEvent plays the cue for ev, if any.
func (c *Cues) HandleEvent(ev event.Event) {
	st, ok := Cue(ev)
	if !ok {
		return
	}
	c.player.Play(st)
}

// Cue builds the streamer for ev.
func Cue(ev event.Event) (beep.Streamer, bool) {
	switch ev.Type {
	case event.PromptShown:
		return Tone(660, 80*time.Millisecond), true
	case event.PromptHit:
		if h, ok := ev.Payload.(rhythm.Hit); ok && h.Bonus {
			return Tone(990, 120*time.Millisecond), true
		}
		return Tone(880, 100*time.Millisecond), true
	case event.PromptExpired:
		return Buzz(160, 180*time.Millisecond), true
	case event.PromptWrongLimb:
		return Buzz(220, 60*time.Millisecond), true
	case event.CountdownTick:
		return Tone(440, 120*time.Millisecond), true
	case event.SyncOpen:
		return Tone(1320, 200*time.Millisecond), true
	case event.LimbLocked:
		return Tone(550, 50*time.Millisecond), true
	case event.SyncJudged:
		r, _ := ev.Payload.(qte.Result)
		return outcome(r.Success), true
	case event.HidingResolved:
		o, _ := ev.Payload.(hiding.Outcome)
		return outcome(o.Success), true
	case event.GameOver:
		o, _ := ev.Payload.(phase.Over)
		if o.Won {
			return beep.Seq(Tone(523, 150*time.Millisecond), Tone(659, 150*time.Millisecond), Tone(784, 150*time.Millisecond), Tone(1047, 300*time.Millisecond)), true
		}
		return Buzz(90, 600*time.Millisecond), true
	}
	return nil, false
}

func outcome(success bool) beep.Streamer {
	if success {
		return beep.Seq(Tone(660, 90*time.Millisecond), Tone(880, 90*time.Millisecond), Tone(1320, 160*time.Millisecond))
	}
	return Buzz(110, 400*time.Millisecond)
}

// ─── Generators ──────────────────────────────────────────────────────────────

// Tone returns a sine blip of duration d with a short attack and release.
func Tone(freq float64, d time.Duration) beep.Streamer {
	return beep.Take(SampleRate.N(d), &generator{freq: freq, total: SampleRate.N(d), harmonics: false})
}

// Buzz returns a harsher tone built from the first three harmonics.
func Buzz(freq float64, d time.Duration) beep.Streamer {
	return beep.Take(SampleRate.N(d), &generator{freq: freq, total: SampleRate.N(d), harmonics: true})
}

type generator struct {
	freq      float64
	pos       int
	total     int
	harmonics bool
}

func (g *generator) Stream(samples [][2]float64) (n int, ok bool) {
	fade := float64(SampleRate.N(5 * time.Millisecond))
	for i := range samples {
		t := float64(g.pos) / float64(SampleRate)
		v := math.Sin(2 * math.Pi * g.freq * t)
		if g.harmonics {
			v = 0.6*v + 0.3*math.Sin(4*math.Pi*g.freq*t) + 0.1*math.Sin(6*math.Pi*g.freq*t)
		}
		env := math.Min(1, math.Min(float64(g.pos)/fade, float64(g.total-g.pos)/fade))
		v *= 0.25 * math.Max(0, env)
		samples[i][0] = v
		samples[i][1] = v
		g.pos++
	}
	return len(samples), true
}

func (g *generator) Err() error { return nil }
