package device

import "sync"

// ChangeKind distinguishes queued hub changes.
type ChangeKind uint8

const (
	Connected ChangeKind = iota
	Disconnected
)

// HubChange is one queued connect or disconnect.
type HubChange struct {
	Kind   ChangeKind
	Device Handle
}

type hubEntry struct {
	h    Handle
	cats [2]bool
}

// Hub is the goroutine-safe set of connected devices. Sources call Connect
// and Disconnect from any goroutine; the tick loop drains the queued
// changes with TakeChanges and forwards them to the Registry.
type Hub struct {
	mu      sync.Mutex
	entries []hubEntry
	changes []HubChange
}

// NewHub returns an empty hub.
func NewHub() *Hub { return &Hub{} }

// Connect adds h under the given categories (gamepad when none are given).
// Connecting an id that is already present only adds categories.
func (hb *Hub) Connect(h Handle, cats ...Category) {
	if len(cats) == 0 {
		cats = []Category{Gamepad}
	}
	hb.mu.Lock()
	defer hb.mu.Unlock()
	for i := range hb.entries {
		if hb.entries[i].h.ID() == h.ID() {
			for _, c := range cats {
				hb.entries[i].cats[c] = true
			}
			return
		}
	}
	e := hubEntry{h: h}
	for _, c := range cats {
		e.cats[c] = true
	}
	hb.entries = append(hb.entries, e)
	hb.changes = append(hb.changes, HubChange{Kind: Connected, Device: h})
}

// Disconnect removes the device with the given id. Unknown ids are ignored.
func (hb *Hub) Disconnect(id string) {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	for i, e := range hb.entries {
		if e.h.ID() != id {
			continue
		}
		hb.entries = append(hb.entries[:i], hb.entries[i+1:]...)
		hb.changes = append(hb.changes, HubChange{Kind: Disconnected, Device: e.h})
		return
	}
}

// TakeChanges returns and clears the queued changes.
func (hb *Hub) TakeChanges() []HubChange {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	out := hb.changes
	hb.changes = nil
	return out
}

// Len returns the number of connected devices.
func (hb *Hub) Len() int {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	return len(hb.entries)
}

// Gamepads lists devices in the gamepad category in connect order.
func (hb *Hub) Gamepads() []Handle { return hb.list(Gamepad) }

// Joysticks lists devices in the joystick category in connect order.
func (hb *Hub) Joysticks() []Handle { return hb.list(Joystick) }

func (hb *Hub) list(c Category) []Handle {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	var out []Handle
	for _, e := range hb.entries {
		if e.cats[c] {
			out = append(out, e.h)
		}
	}
	return out
}

// Apply forwards queued changes to r. It must run on the tick goroutine.
func (hb *Hub) Apply(r *Registry) int {
	changes := hb.TakeChanges()
	for _, c := range changes {
		switch c.Kind {
		case Connected:
			r.OnDeviceConnected(c.Device)
		case Disconnected:
			r.OnDeviceDisconnected(c.Device)
		}
	}
	return len(changes)
}
