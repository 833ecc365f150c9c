package device

import (
	"fmt"
	"log/slog"

	"limbrun/internal/event"
	"limbrun/internal/limb"
)

// Change is the payload of DeviceConnected and DeviceDisconnected.
type Change struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Mapping is the payload of MappingRebuilt: the device id per slot, empty
// when unassigned.
type Mapping struct {
	Devices [limb.Count]string `json:"devices"`
	Pinned  [limb.Count]bool   `json:"pinned"`
}

// Registry owns the slot-to-device map. It is rebuilt wholesale on every
// connect or disconnect.
type Registry struct {
	enum   Enumerator
	pub    event.Publisher
	logger *slog.Logger

	slots  [limb.Count]Handle
	pinned [limb.Count]bool
}

// NewRegistry returns an empty registry. pub may be nil.
func NewRegistry(enum Enumerator, pub event.Publisher, logger *slog.Logger) *Registry {
	return &Registry{enum: enum, pub: pub, logger: logger}
}

// RebuildMapping recomputes the slot map from the enumerator.
func (r *Registry) RebuildMapping() error {
	return r.rebuild("")
}

// OnDeviceConnected rebuilds the map so the new device can take a free slot.
func (r *Registry) OnDeviceConnected(h Handle) {
	r.logger.Info("device connected", "id", h.ID(), "name", h.Name())
	r.publish(event.DeviceConnected, Change{ID: h.ID(), Name: h.Name()})
	if err := r.rebuild(""); err != nil {
		r.logger.Error("rebuild after connect", "error", err)
	}
}

// OnDeviceDisconnected clears every slot holding h, drops any manual pin on
// it, and rebuilds without it even if the enumerator still lists it.
func (r *Registry) OnDeviceDisconnected(h Handle) {
	id := h.ID()
	for i, d := range r.slots {
		if d != nil && d.ID() == id {
			r.slots[i] = nil
			r.pinned[i] = false
		}
	}
	r.logger.Info("device disconnected", "id", id, "name", h.Name())
	r.publish(event.DeviceDisconnected, Change{ID: id, Name: h.Name()})
	if err := r.rebuild(id); err != nil {
		r.logger.Error("rebuild after disconnect", "error", err)
	}
}

// ManuallyAssign pins h to slot. The pin survives automatic rebuilds until
// the device disconnects. If h held another slot it moves.
func (r *Registry) ManuallyAssign(slot limb.Slot, h Handle) error {
	if !slot.Valid() {
		return fmt.Errorf("assign %d: %w", slot, ErrSlotOutOfRange)
	}
	if h == nil || !r.enumerated(h.ID()) {
		id := "<nil>"
		if h != nil {
			id = h.ID()
		}
		return fmt.Errorf("assign %s to %v: %w", id, slot, ErrUnknownDevice)
	}
	for i, d := range r.slots {
		if d != nil && d.ID() == h.ID() {
			r.slots[i] = nil
			r.pinned[i] = false
		}
	}
	r.slots[slot] = h
	r.pinned[slot] = true
	r.logger.Info("device pinned", "slot", slot.String(), "id", h.ID())
	return r.rebuild("")
}

// Unpin releases a manual assignment so the slot is filled automatically
// again.
func (r *Registry) Unpin(slot limb.Slot) error {
	if !slot.Valid() {
		return fmt.Errorf("unpin %d: %w", slot, ErrSlotOutOfRange)
	}
	r.pinned[slot] = false
	return r.rebuild("")
}

// IsSlotConnected reports whether slot has a device.
func (r *Registry) IsSlotConnected(slot limb.Slot) bool {
	return slot.Valid() && r.slots[slot] != nil
}

// Device returns the device mapped to slot, or nil.
func (r *Registry) Device(slot limb.Slot) Handle {
	if !slot.Valid() {
		return nil
	}
	return r.slots[slot]
}

// Lookup finds a currently enumerated device by id.
func (r *Registry) Lookup(id string) (Handle, bool) {
	for _, h := range r.available("") {
		if h.ID() == id {
			return h, true
		}
	}
	return nil, false
}

// Mapping returns the current device ids per slot and the pin mask.
func (r *Registry) Mapping() Mapping {
	var m Mapping
	for i, d := range r.slots {
		if d != nil {
			m.Devices[i] = d.ID()
		}
	}
	m.Pinned = r.pinned
	return m
}

// Verify checks that no device id appears in two slots.
func (r *Registry) Verify() error {
	seen := make(map[string]limb.Slot, limb.Count)
	for i, d := range r.slots {
		if d == nil {
			continue
		}
		if first, dup := seen[d.ID()]; dup {
			return fmt.Errorf("%s in %v and %v: %w", d.ID(), first, limb.Slot(i), ErrDuplicateAssignment)
		}
		seen[d.ID()] = limb.Slot(i)
	}
	return nil
}

// ─── rebuild ─────────────────────────────────────────────────────────────────

// available returns gamepads then joysticks, deduplicated by id in first
// occurrence order, skipping exclude.
func (r *Registry) available(exclude string) []Handle {
	if r.enum == nil {
		return nil
	}
	var out []Handle
	seen := make(map[string]bool)
	for _, list := range [][]Handle{r.enum.Gamepads(), r.enum.Joysticks()} {
		for _, h := range list {
			if h == nil {
				continue
			}
			id := h.ID()
			if id == exclude || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, h)
		}
	}
	return out
}

func (r *Registry) enumerated(id string) bool {
	_, ok := r.Lookup(id)
	return ok
}

func (r *Registry) rebuild(exclude string) error {
	pool := r.available(exclude)
	present := make(map[string]Handle, len(pool))
	for _, h := range pool {
		present[h.ID()] = h
	}

	var next [limb.Count]Handle
	var pins [limb.Count]bool
	taken := make(map[string]bool)
	for i := range r.slots {
		if !r.pinned[i] || r.slots[i] == nil {
			continue
		}
		h, ok := present[r.slots[i].ID()]
		if !ok {
			continue
		}
		next[i] = h
		pins[i] = true
		taken[h.ID()] = true
	}

	slot := 0
	for _, h := range pool {
		if taken[h.ID()] {
			continue
		}
		for slot < limb.Count && next[slot] != nil {
			slot++
		}
		if slot >= limb.Count {
			r.logger.Debug("device left unassigned", "id", h.ID())
			continue
		}
		next[slot] = h
		taken[h.ID()] = true
	}

	r.drainNew(next)
	r.slots = next
	r.pinned = pins
	err := r.Verify()
	if err != nil {
		r.logger.Error("slot map rejected", "error", err)
		r.dropDuplicates()
	}
	r.tag()
	r.publish(event.MappingRebuilt, r.Mapping())
	return err
}

// drainNew reads every device that next maps but the current map does not,
// discarding presses latched while no slot was listening.
func (r *Registry) drainNew(next [limb.Count]Handle) {
	mapped := make(map[string]bool, limb.Count)
	for _, d := range r.slots {
		if d != nil {
			mapped[d.ID()] = true
		}
	}
	for _, h := range next {
		if h == nil || mapped[h.ID()] {
			continue
		}
		mapped[h.ID()] = true
		if _, err := h.Read(); err != nil {
			r.logger.Debug("drain new device", "id", h.ID(), "error", err)
		}
	}
}

// dropDuplicates clears every later slot that repeats an earlier device.
func (r *Registry) dropDuplicates() {
	seen := make(map[string]bool)
	for i, d := range r.slots {
		if d == nil {
			continue
		}
		if seen[d.ID()] {
			r.slots[i] = nil
			r.pinned[i] = false
			continue
		}
		seen[d.ID()] = true
	}
}

// tag tells every enumerated device which slot it holds.
func (r *Registry) tag() {
	for _, h := range r.available("") {
		t, ok := h.(Tagger)
		if !ok {
			continue
		}
		label := ""
		for i, d := range r.slots {
			if d != nil && d.ID() == h.ID() {
				label = limb.Slot(i).String()
				break
			}
		}
		t.SetTag(label)
	}
}

func (r *Registry) publish(t event.Type, payload any) {
	if r.pub != nil {
		r.pub.Publish(t, payload)
	}
}
