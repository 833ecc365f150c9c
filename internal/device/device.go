// Package device maps physical controllers onto the five logical limb
// slots. Device sources run on their own goroutines and report through a
// Hub; the Registry itself is only touched from the tick goroutine.
package device

import "errors"

var (
	// ErrDisconnected is returned by Read on a handle whose device is gone.
	ErrDisconnected = errors.New("device: disconnected")
	// ErrDuplicateAssignment reports a device mapped to more than one slot.
	ErrDuplicateAssignment = errors.New("device: device assigned to more than one slot")
	// ErrSlotOutOfRange reports a slot index outside the five logical slots.
	ErrSlotOutOfRange = errors.New("device: slot out of range")
	// ErrUnknownDevice reports a device that is not currently enumerated.
	ErrUnknownDevice = errors.New("device: unknown device")
)

// Category is the enumeration list a device shows up in. One physical
// device may appear in both.
type Category uint8

const (
	Gamepad Category = iota
	Joystick
)

func (c Category) String() string {
	if c == Joystick {
		return "joystick"
	}
	return "gamepad"
}

// State is one read of a device.
type State struct {
	// Axis is the horizontal axis in [-1, 1].
	Axis float64
	// Down is the current level of the confirm button.
	Down bool
	// Presses counts up-to-down transitions since the previous Read, so a
	// tap shorter than one tick is not lost.
	Presses int
}

// Handle is an opaque reference to a connected device.
type Handle interface {
	ID() string
	Name() string
	Read() (State, error)
}

// Enumerator lists the currently connected devices per category in a
// stable order.
type Enumerator interface {
	Gamepads() []Handle
	Joysticks() []Handle
}

// Tagger is implemented by devices that can show their assigned slot to
// the person holding them.
type Tagger interface {
	SetTag(tag string)
}
