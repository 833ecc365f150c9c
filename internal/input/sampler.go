// Package input turns device state into per-tick logical input: one
// horizontal axis and an edge-triggered confirm per limb slot.
package input

import (
	"log/slog"
	"math"

	"limbrun/internal/device"
	"limbrun/internal/limb"
)

// Mode selects where input comes from.
type Mode uint8

const (
	// ModeDebug reads the keyboard and reports every slot as connected.
	ModeDebug Mode = iota
	// ModeGame reads the devices mapped by the registry.
	ModeGame
)

func (m Mode) String() string {
	if m == ModeGame {
		return "game"
	}
	return "debug"
}

// ParseMode accepts "debug" or "game".
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "debug":
		return ModeDebug, true
	case "game":
		return ModeGame, true
	}
	return ModeDebug, false
}

// Devices is the registry view the sampler reads through.
type Devices interface {
	Device(s limb.Slot) device.Handle
	IsSlotConnected(s limb.Slot) bool
}

// Keys is the debug keyboard view.
type Keys interface {
	Read(s limb.Slot) device.State
}

// Sampler snapshots every slot once per tick. Queries between samples
// return the snapshot, so every engine in a tick sees the same input.
type Sampler struct {
	devices Devices
	keys    Keys
	mode    Mode
	logger  *slog.Logger

	axis     [limb.Count]float64
	pressed  [limb.Count]bool
	prevDown [limb.Count]bool
	failing  map[string]bool
}

// NewSampler returns a sampler in the given mode. keys may be nil when
// debug mode is never used.
func NewSampler(devices Devices, keys Keys, mode Mode, logger *slog.Logger) *Sampler {
	return &Sampler{
		devices: devices,
		keys:    keys,
		mode:    mode,
		logger:  logger,
		failing: make(map[string]bool),
	}
}

// Mode returns the active input mode.
func (s *Sampler) Mode() Mode { return s.mode }

// SetMode switches input source immediately. Device mappings are untouched.
// The snapshot is cleared and the new source is read once, dropping presses
// it latched while unused and taking a held button as the current level, so
// the switch never reads as a press.
func (s *Sampler) SetMode(m Mode) {
	if m == s.mode {
		return
	}
	s.mode = m
	s.axis = [limb.Count]float64{}
	s.pressed = [limb.Count]bool{}
	for _, slot := range limb.All {
		s.prevDown[slot] = s.read(slot).Down
	}
	s.logger.Info("input mode changed", "mode", m.String())
}

// Sample reads every slot. Call it exactly once per tick.
func (s *Sampler) Sample() {
	for _, slot := range limb.All {
		st := s.read(slot)
		axis := st.Axis
		if math.IsNaN(axis) {
			axis = 0
		}
		s.axis[slot] = math.Max(-1, math.Min(1, axis))
		s.pressed[slot] = st.Presses > 0 || (st.Down && !s.prevDown[slot])
		s.prevDown[slot] = st.Down
	}
}

func (s *Sampler) read(slot limb.Slot) device.State {
	if s.mode == ModeDebug {
		if s.keys == nil {
			return device.State{}
		}
		return s.keys.Read(slot)
	}
	if s.devices == nil {
		return device.State{}
	}
	h := s.devices.Device(slot)
	if h == nil {
		return device.State{}
	}
	st, err := h.Read()
	if err != nil {
		if !s.failing[h.ID()] {
			s.failing[h.ID()] = true
			s.logger.Debug("device read failed", "slot", slot.String(), "id", h.ID(), "error", err)
		}
		return device.State{}
	}
	delete(s.failing, h.ID())
	return st
}

// HorizontalAxis returns the sampled axis for slot in [-1, 1], or 0 for an
// unassigned or invalid slot. No dead zone is applied.
func (s *Sampler) HorizontalAxis(slot limb.Slot) float64 {
	if !slot.Valid() {
		return 0
	}
	return s.axis[slot]
}

// ConfirmPressed reports whether slot's confirm went from up to down since
// the previous sample.
func (s *Sampler) ConfirmPressed(slot limb.Slot) bool {
	return slot.Valid() && s.pressed[slot]
}

// IsConnected reports whether slot has an input source. Debug mode reports
// every slot connected.
func (s *Sampler) IsConnected(slot limb.Slot) bool {
	if !slot.Valid() {
		return false
	}
	if s.mode == ModeDebug {
		return true
	}
	return s.devices != nil && s.devices.IsSlotConnected(slot)
}
