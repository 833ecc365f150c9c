package device

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"limbrun/internal/event"
	"limbrun/internal/limb"
)

func TestRebuildDedupOverlappingCategories(t *testing.T) {
	// A, B, C appear as gamepads; B, C, D, E as joysticks.
	pads := newPads("A", "B", "C", "D", "E")
	enum := &fakeEnum{
		gamepads:  []Handle{pads["A"], pads["B"], pads["C"]},
		joysticks: []Handle{pads["B"], pads["C"], pads["D"], pads["E"]},
	}
	r := newTestRegistry(enum)
	if err := r.RebuildMapping(); err != nil {
		t.Fatalf("RebuildMapping: %v", err)
	}
	want := [limb.Count]string{"A", "B", "C", "D", "E"}
	if got := r.Mapping().Devices; got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
	if err := r.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestRebuildDeviceCounts(t *testing.T) {
	cases := []struct {
		name string
		n    int
	}{
		{"zero devices", 0},
		{"three devices", 3},
		{"five devices", 5},
		{"seven devices", 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			enum := &fakeEnum{}
			for i := 0; i < tc.n; i++ {
				enum.gamepads = append(enum.gamepads, NewVirtualPad(fmt.Sprintf("d%d", i), ""))
			}
			r := newTestRegistry(enum)
			if err := r.RebuildMapping(); err != nil {
				t.Fatalf("RebuildMapping: %v", err)
			}
			for i, s := range limb.All {
				want := i < tc.n
				if got := r.IsSlotConnected(s); got != want {
					t.Errorf("slot %v connected=%v, want %v", s, got, want)
				}
				if want && r.Device(s).ID() != fmt.Sprintf("d%d", i) {
					t.Errorf("slot %v holds %s, expected enumeration order", s, r.Device(s).ID())
				}
			}
		})
	}
}

func TestDisconnectUnassignsAndRefills(t *testing.T) {
	hub := NewHub()
	rec := &event.Recorder{}
	bus := event.NewBus(nil)
	bus.Subscribe(rec)
	r := NewRegistry(hub, bus, discard())

	pads := newPads("A", "B", "C")
	for _, id := range []string{"A", "B", "C"} {
		hub.Connect(pads[id])
	}
	hub.Apply(r)
	if got := r.Mapping().Devices; got != [limb.Count]string{"A", "B", "C", "", ""} {
		t.Fatalf("unexpected initial mapping %v", got)
	}

	pads["B"].Disconnect()
	hub.Disconnect("B")
	if n := hub.Apply(r); n != 1 {
		t.Fatalf("expected one queued change, got %d", n)
	}
	if got := r.Mapping().Devices; got != [limb.Count]string{"A", "C", "", "", ""} {
		t.Errorf("expected C to move up after B left, got %v", got)
	}
	if len(rec.OfType(event.DeviceDisconnected)) != 1 {
		t.Error("expected a DeviceDisconnected event")
	}
	if len(rec.OfType(event.MappingRebuilt)) == 0 {
		t.Error("expected MappingRebuilt events")
	}
}

func TestDisconnectExcludesStaleEnumeration(t *testing.T) {
	pads := newPads("A", "B")
	enum := &fakeEnum{gamepads: []Handle{pads["A"], pads["B"]}}
	r := newTestRegistry(enum)
	_ = r.RebuildMapping()

	// The platform still lists A for one more frame.
	r.OnDeviceDisconnected(pads["A"])
	for _, s := range limb.All {
		if d := r.Device(s); d != nil && d.ID() == "A" {
			t.Fatalf("disconnected device still mapped to %v", s)
		}
	}
}

func TestManualAssignSurvivesRebuild(t *testing.T) {
	pads := newPads("A", "B", "C")
	enum := &fakeEnum{gamepads: []Handle{pads["A"], pads["B"], pads["C"]}}
	r := newTestRegistry(enum)
	_ = r.RebuildMapping()

	if err := r.ManuallyAssign(limb.Head, pads["A"]); err != nil {
		t.Fatalf("ManuallyAssign: %v", err)
	}
	want := [limb.Count]string{"B", "C", "", "", "A"}
	if got := r.Mapping().Devices; got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}

	enum.gamepads = append(enum.gamepads, NewVirtualPad("D", ""))
	r.OnDeviceConnected(enum.gamepads[3])
	want = [limb.Count]string{"B", "C", "D", "", "A"}
	if got := r.Mapping().Devices; got != want {
		t.Errorf("pin lost on rebuild: expected %v, got %v", want, got)
	}
	if !r.Mapping().Pinned[limb.Head] {
		t.Error("Head should still be pinned")
	}

	enum.gamepads = []Handle{pads["B"], pads["C"], enum.gamepads[3]}
	r.OnDeviceDisconnected(pads["A"])
	if r.Mapping().Pinned[limb.Head] || r.IsSlotConnected(limb.Head) {
		t.Error("pin should be released when its device disconnects")
	}
}

func TestManualAssignErrors(t *testing.T) {
	pads := newPads("A")
	r := newTestRegistry(&fakeEnum{gamepads: []Handle{pads["A"]}})
	_ = r.RebuildMapping()

	if err := r.ManuallyAssign(limb.Slot(7), pads["A"]); !errors.Is(err, ErrSlotOutOfRange) {
		t.Errorf("expected ErrSlotOutOfRange, got %v", err)
	}
	if err := r.ManuallyAssign(limb.LeftArm, NewVirtualPad("ghost", "")); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("expected ErrUnknownDevice, got %v", err)
	}
	if err := r.ManuallyAssign(limb.LeftArm, nil); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("expected ErrUnknownDevice for nil, got %v", err)
	}
}

func TestVerifyDetectsDuplicates(t *testing.T) {
	r := newTestRegistry(&fakeEnum{})
	p := NewVirtualPad("A", "")
	r.slots[limb.LeftArm] = p
	r.slots[limb.RightLeg] = p
	if err := r.Verify(); !errors.Is(err, ErrDuplicateAssignment) {
		t.Fatalf("expected ErrDuplicateAssignment, got %v", err)
	}
	r.dropDuplicates()
	if r.IsSlotConnected(limb.RightLeg) || !r.IsSlotConnected(limb.LeftArm) {
		t.Error("expected the later duplicate to be cleared")
	}
}

func TestInvalidSlotQueries(t *testing.T) {
	r := newTestRegistry(&fakeEnum{})
	if r.IsSlotConnected(limb.Slot(5)) {
		t.Error("out-of-range slot reported connected")
	}
	if r.Device(limb.Slot(200)) != nil {
		t.Error("out-of-range slot returned a device")
	}
}

func TestRebuildTagsDevices(t *testing.T) {
	pads := newPads("A", "B")
	r := newTestRegistry(&fakeEnum{gamepads: []Handle{pads["A"], pads["B"]}})
	_ = r.RebuildMapping()
	if pads["B"].Tag() != "RightArm" {
		t.Errorf("expected B tagged RightArm, got %q", pads["B"].Tag())
	}
}

func TestHubConnectMergesCategories(t *testing.T) {
	hub := NewHub()
	p := NewVirtualPad("js0", "stick")
	hub.Connect(p, Gamepad)
	hub.Connect(p, Joystick)
	if len(hub.Gamepads()) != 1 || len(hub.Joysticks()) != 1 {
		t.Fatalf("expected device in both lists, got %d/%d", len(hub.Gamepads()), len(hub.Joysticks()))
	}
	if n := len(hub.TakeChanges()); n != 1 {
		t.Errorf("expected one connect change, got %d", n)
	}
	hub.Disconnect("nope")
	if n := len(hub.TakeChanges()); n != 0 {
		t.Errorf("unknown disconnect should be ignored, got %d changes", n)
	}
}

func TestNewlyMappedDeviceDropsStalePresses(t *testing.T) {
	pads := newPads("A", "B")
	enum := &fakeEnum{gamepads: []Handle{pads["A"]}}
	r := newTestRegistry(enum)
	if err := r.RebuildMapping(); err != nil {
		t.Fatalf("RebuildMapping: %v", err)
	}

	pads["A"].Tap()
	pads["B"].Tap()
	pads["B"].Press()
	enum.gamepads = append(enum.gamepads, pads["B"])
	r.OnDeviceConnected(pads["B"])

	if got := r.Device(limb.RightArm); got == nil || got.ID() != "B" {
		t.Fatalf("expected B on RightArm, got %v", got)
	}
	st, _ := pads["B"].Read()
	if st.Presses != 0 || !st.Down {
		t.Errorf("new device should keep its level but drop old presses, got %+v", st)
	}
	st, _ = pads["A"].Read()
	if st.Presses != 1 {
		t.Errorf("already mapped device lost its press on rebuild, got %+v", st)
	}
}

func TestVirtualPadLatchesTaps(t *testing.T) {
	p := NewVirtualPad("p", "")
	p.Tap()
	p.Tap()
	st, err := p.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if st.Presses != 2 || st.Down {
		t.Errorf("expected 2 latched presses and button up, got %+v", st)
	}
	st, _ = p.Read()
	if st.Presses != 0 {
		t.Errorf("latch should clear after read, got %d", st.Presses)
	}
	p.Press()
	p.Press()
	st, _ = p.Read()
	if st.Presses != 1 || !st.Down {
		t.Errorf("holding the button counts once, got %+v", st)
	}
	p.Disconnect()
	if _, err := p.Read(); !errors.Is(err, ErrDisconnected) {
		t.Errorf("expected ErrDisconnected, got %v", err)
	}
}

// ─── helpers ─────────────────────────────────────────────────────────────────

type fakeEnum struct {
	gamepads  []Handle
	joysticks []Handle
}

func (f *fakeEnum) Gamepads() []Handle  { return f.gamepads }
func (f *fakeEnum) Joysticks() []Handle { return f.joysticks }

func newPads(ids ...string) map[string]*VirtualPad {
	out := make(map[string]*VirtualPad, len(ids))
	for _, id := range ids {
		out[id] = NewVirtualPad(id, "pad "+id)
	}
	return out
}

func newTestRegistry(enum Enumerator) *Registry {
	return NewRegistry(enum, nil, discard())
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
