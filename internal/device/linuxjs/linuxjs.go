// Package linuxjs reads controllers through the Linux joystick API
// (/dev/input/js*) and keeps a device.Hub in sync with hot-plug events.
// Sticks listed under /dev/input/by-id are reported as gamepads as well, so
// the same physical device shows up in both categories and relies on the
// registry's id dedup.
package linuxjs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"limbrun/internal/device"
)

const eventSize = 8

const (
	typeButton = 0x01
	typeAxis   = 0x02
	typeInit   = 0x80
)

// Event mirrors struct js_event.
type Event struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

// ErrShortEvent is returned for a buffer smaller than one js_event.
var ErrShortEvent = errors.New("linuxjs: short event")

// ParseEvent decodes one js_event.
func ParseEvent(b []byte) (Event, error) {
	if len(b) < eventSize {
		return Event{}, fmt.Errorf("%d bytes: %w", len(b), ErrShortEvent)
	}
	return Event{
		Time:   binary.NativeEndian.Uint32(b[0:4]),
		Value:  int16(binary.NativeEndian.Uint16(b[4:6])),
		Type:   b[6],
		Number: b[7],
	}, nil
}

// Encode writes ev in js_event layout.
func (ev Event) Encode() []byte {
	b := make([]byte, eventSize)
	binary.NativeEndian.PutUint32(b[0:4], ev.Time)
	binary.NativeEndian.PutUint16(b[4:6], uint16(ev.Value))
	b[6] = ev.Type
	b[7] = ev.Number
	return b
}

// Device is one opened joystick node. Axis 0 drives the horizontal axis and
// button 0 is confirm.
type Device struct {
	*device.VirtualPad
	path string
	src  io.ReadCloser
}

func newDevice(id, name, path string, src io.ReadCloser) *Device {
	return &Device{VirtualPad: device.NewVirtualPad(id, name), path: path, src: src}
}

// Apply folds one event into the device state.
func (d *Device) Apply(ev Event) {
	kind := ev.Type &^ typeInit
	switch {
	case kind == typeAxis && ev.Number == 0:
		d.SetAxis(float64(ev.Value) / 32767)
	case kind == typeButton && ev.Number == 0 && ev.Type&typeInit == 0:
		if ev.Value != 0 {
			d.Press()
		} else {
			d.Release()
		}
	}
}

// readLoop blocks until the node stops delivering events.
func (d *Device) readLoop(logger *slog.Logger) error {
	buf := make([]byte, eventSize)
	for {
		if _, err := io.ReadFull(d.src, buf); err != nil {
			logger.Debug("joystick read stopped", "path", d.path, "error", err)
			return err
		}
		ev, err := ParseEvent(buf)
		if err != nil {
			return err
		}
		d.Apply(ev)
	}
}

func (d *Device) close() {
	d.Disconnect()
	_ = d.src.Close()
}
