package input

import (
	"fmt"
	"time"

	"limbrun/internal/device"
	"limbrun/internal/limb"

	"github.com/gdamore/tcell/v2"
)

// DefaultHold is how long an axis key keeps its direction after the last
// key event. Terminals send repeats while a key is held but never a release.
const DefaultHold = 150 * time.Millisecond

// DefaultLockKeys are the confirm keys per slot in index order.
const DefaultLockKeys = "skx,p"

// Binding is the debug keyboard layout for one slot.
type Binding struct {
	Left, Right rune
	Lock        rune
}

var axisKeys = [limb.Count][2]rune{
	limb.LeftArm:  {'a', 'd'},
	limb.RightArm: {'j', 'l'},
	limb.LeftLeg:  {'z', 'c'},
	limb.RightLeg: {'n', 'm'},
	limb.Head:     {'[', ']'},
}

// Bindings returns the debug layout for the given lock keys, one rune per
// slot in index order.
func Bindings(lockKeys string) ([limb.Count]Binding, error) {
	var out [limb.Count]Binding
	locks := []rune(lockKeys)
	if len(locks) != limb.Count {
		return out, fmt.Errorf("lock keys %q: need exactly %d keys", lockKeys, limb.Count)
	}
	used := make(map[rune]limb.Slot)
	for _, s := range limb.All {
		used[axisKeys[s][0]] = s
		used[axisKeys[s][1]] = s
	}
	for _, s := range limb.All {
		r := locks[s]
		if other, ok := used[r]; ok {
			return out, fmt.Errorf("lock key %q for %v already bound to %v", r, s, other)
		}
		used[r] = s
		out[s] = Binding{Left: axisKeys[s][0], Right: axisKeys[s][1], Lock: r}
	}
	return out, nil
}

// Keyboard turns tcell key events into per-slot device state for debug
// mode. It is fed and read on the tick goroutine.
type Keyboard struct {
	bindings [limb.Count]Binding
	hold     time.Duration
	now      func() time.Duration

	dir     [limb.Count]float64
	until   [limb.Count]time.Duration
	presses [limb.Count]int
}

// NewKeyboard returns a keyboard source. now is the simulation clock.
func NewKeyboard(bindings [limb.Count]Binding, hold time.Duration, now func() time.Duration) *Keyboard {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Keyboard{bindings: bindings, hold: hold, now: now}
}

// HandleKey applies a key event and reports whether it was bound.
func (k *Keyboard) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyLeft:
		k.push(limb.LeftArm, -1)
		return true
	case tcell.KeyRight:
		k.push(limb.LeftArm, 1)
		return true
	case tcell.KeyRune:
	default:
		return false
	}
	r := ev.Rune()
	if r >= 'A' && r <= 'Z' {
		r += 'a' - 'A'
	}
	for _, s := range limb.All {
		b := k.bindings[s]
		switch r {
		case b.Left:
			k.push(s, -1)
			return true
		case b.Right:
			k.push(s, 1)
			return true
		case b.Lock:
			k.presses[s]++
			return true
		}
	}
	return false
}

func (k *Keyboard) push(s limb.Slot, dir float64) {
	k.dir[s] = dir
	k.until[s] = k.now() + k.hold
}

// Read returns the state for slot and clears its press latch.
func (k *Keyboard) Read(s limb.Slot) device.State {
	if !s.Valid() {
		return device.State{}
	}
	st := device.State{Presses: k.presses[s]}
	k.presses[s] = 0
	if k.now() < k.until[s] {
		st.Axis = k.dir[s]
	}
	return st
}

// Reset drops held directions and latched presses.
func (k *Keyboard) Reset() {
	k.dir = [limb.Count]float64{}
	k.until = [limb.Count]time.Duration{}
	k.presses = [limb.Count]int{}
}
