package device

import (
	"math"
	"sync"
	"time"
)

// VirtualPad is an in-memory device driven by another goroutine: an SSH
// terminal, a joystick reader, or a test.
type VirtualPad struct {
	id   string
	name string
	now  func() time.Time

	mu        sync.Mutex
	axis      float64
	holdUntil time.Time
	held      float64
	down      bool
	presses   int
	gone      bool
	tag       string
}

// NewVirtualPad returns a connected pad with a neutral axis.
func NewVirtualPad(id, name string) *VirtualPad {
	return &VirtualPad{id: id, name: name, now: time.Now}
}

func (p *VirtualPad) ID() string   { return p.id }
func (p *VirtualPad) Name() string { return p.name }

// Read returns the current state and clears the press latch.
func (p *VirtualPad) Read() (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gone {
		return State{}, ErrDisconnected
	}
	st := p.stateLocked()
	p.presses = 0
	return st, nil
}

func (p *VirtualPad) stateLocked() State {
	axis := p.axis
	if !p.holdUntil.IsZero() && p.now().Before(p.holdUntil) {
		axis = p.held
	}
	return State{Axis: axis, Down: p.down, Presses: p.presses}
}

// Peek returns the current state without clearing the press latch.
func (p *VirtualPad) Peek() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

// SetAxis sets a persistent axis value, clamped to [-1, 1].
func (p *VirtualPad) SetAxis(v float64) {
	p.mu.Lock()
	p.axis = clampAxis(v)
	p.holdUntil = time.Time{}
	p.mu.Unlock()
}

// HoldAxis reports v until d from now, then falls back to the persistent
// axis. Key-repeat driven sources call it on every repeat.
func (p *VirtualPad) HoldAxis(v float64, d time.Duration) {
	p.mu.Lock()
	p.held = clampAxis(v)
	p.holdUntil = p.now().Add(d)
	p.mu.Unlock()
}

// Press sets the button down, counting a transition if it was up.
func (p *VirtualPad) Press() {
	p.mu.Lock()
	if !p.down {
		p.presses++
	}
	p.down = true
	p.mu.Unlock()
}

// Release sets the button up.
func (p *VirtualPad) Release() {
	p.mu.Lock()
	p.down = false
	p.mu.Unlock()
}

// Tap records a full press and release between two reads.
func (p *VirtualPad) Tap() {
	p.mu.Lock()
	p.presses++
	p.down = false
	p.mu.Unlock()
}

// Disconnect makes every later Read fail.
func (p *VirtualPad) Disconnect() {
	p.mu.Lock()
	p.gone = true
	p.mu.Unlock()
}

// SetTag records the slot label shown to whoever holds the pad.
func (p *VirtualPad) SetTag(tag string) {
	p.mu.Lock()
	p.tag = tag
	p.mu.Unlock()
}

// Tag returns the last slot label.
func (p *VirtualPad) Tag() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tag
}

func clampAxis(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
