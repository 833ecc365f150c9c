package game

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"limbrun/internal/config"
	"limbrun/internal/device"
	"limbrun/internal/event"
	"limbrun/internal/hiding"
	"limbrun/internal/input"
	"limbrun/internal/inspect"
	"limbrun/internal/limb"
	"limbrun/internal/phase"
)

const step = 10 * time.Millisecond

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Mode = "game"
	cfg.Tick = step
	cfg.Phase.TransitionDelay = 100 * time.Millisecond
	cfg.Phase.RunningDuration = time.Second
	cfg.Hiding.Duration = 500 * time.Millisecond
	cfg.SkinsFile = filepath.Join(dir, "skins.toml")
	cfg.RunLogDir = filepath.Join(dir, "runs")
	return cfg
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestGame(t *testing.T, cfg config.Config, opts Options) *Game {
	t.Helper()
	opts.Config = cfg
	opts.Logger = discard()
	g, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

// runUntil steps g until cond holds or limit of simulation time passes.
func runUntil(t *testing.T, g *Game, limit time.Duration, cond func() bool) {
	t.Helper()
	for end := g.Now() + limit; g.Now() < end; {
		if cond() {
			return
		}
		g.Step(step)
	}
	if !cond() {
		t.Fatalf("condition not met by %v (phase %s)", g.Now(), g.Phase())
	}
}

type alwaysMatch struct{}

func (alwaysMatch) Targets() int                { return 3 }
func (alwaysMatch) Match(int, hiding.Pose) bool { return true }

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Phase.TargetRounds = 0
	if _, err := New(Options{Config: cfg, Logger: discard()}); err == nil {
		t.Error("expected a config error")
	}
}

func TestNewRejectsTargetMismatch(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rhythm.Targets = 5
	_, err := New(Options{Config: cfg, Logger: discard()})
	if err == nil || !strings.Contains(err.Error(), "matcher has 3") {
		t.Errorf("expected a target mismatch error, got %v", err)
	}

	cfg.Rhythm.Targets = 3
	if _, err := New(Options{Config: cfg, Logger: discard()}); err != nil {
		t.Errorf("matching target count rejected: %v", err)
	}
}

func TestPhaseCycle(t *testing.T) {
	g := newTestGame(t, testConfig(t), Options{})
	if g.Phase() != phase.Idle {
		t.Fatalf("phase = %s before Start", g.Phase())
	}
	g.Start()
	if g.Phase() != phase.Transition {
		t.Fatalf("phase = %s after Start, want transition", g.Phase())
	}
	runUntil(t, g, time.Second, func() bool { return g.Phase() == phase.Running })
	runUntil(t, g, 2*time.Second, func() bool { return g.Phase() == phase.Hiding })
}

func TestVictoryWritesRunLog(t *testing.T) {
	cfg := testConfig(t)
	cfg.Phase.TargetRounds = 1
	g := newTestGame(t, cfg, Options{Matcher: alwaysMatch{}})
	g.Start()
	runUntil(t, g, 5*time.Second, func() bool { return g.Phase() == phase.Victory })

	f, err := os.Open(filepath.Join(cfg.RunLogDir, "runs.jsonl"))
	if err != nil {
		t.Fatalf("run log missing: %v", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		t.Fatal("run log is empty")
	}
	var log RunLog
	if err := json.Unmarshal(sc.Bytes(), &log); err != nil {
		t.Fatal(err)
	}
	if !log.Victory || log.Rounds != 1 || log.Mode != "game" {
		t.Errorf("run log = %+v", log)
	}
	if len(log.Accuracy) != limb.Count {
		t.Errorf("accuracy has %d entries, want %d", len(log.Accuracy), limb.Count)
	}
}

func TestObserversSeeResultBeforePhaseChange(t *testing.T) {
	cfg := testConfig(t)
	cfg.Phase.TargetRounds = 2
	rec := &event.Recorder{}
	g := newTestGame(t, cfg, Options{Matcher: alwaysMatch{}, Observers: []event.Handler{rec}})
	g.Start()
	runUntil(t, g, 15*time.Second, func() bool { return g.Phase() == phase.Victory })

	resolved := false
	left := map[phase.State]int{}
	for _, ev := range rec.Events {
		switch ev.Type {
		case event.HidingResolved, event.SyncResolved:
			resolved = true
		case event.PhaseChanged:
			from := ev.Payload.(phase.Change).From
			if from != phase.Hiding && from != phase.QTE {
				continue
			}
			if !resolved {
				t.Errorf("phase change %+v seen before its result", ev.Payload)
			}
			resolved = false
			left[from]++
		}
	}
	if left[phase.Hiding] == 0 || left[phase.QTE] == 0 {
		t.Errorf("expected to leave hiding and qte at least once, got %v", left)
	}
}

func TestFailedHidingEndsGame(t *testing.T) {
	cfg := testConfig(t)
	cfg.Phase.Lives = 1
	g := newTestGame(t, cfg, Options{})
	g.Start()
	runUntil(t, g, 5*time.Second, func() bool { return g.Phase() == phase.GameOver })

	snap := g.Snapshot()
	if snap.Lives != 0 {
		t.Errorf("lives = %d, want 0", snap.Lives)
	}
	if _, err := os.Stat(filepath.Join(cfg.RunLogDir, "runs.jsonl")); err != nil {
		t.Errorf("run log not written: %v", err)
	}
}

func TestUnlimitedLivesShownAsNegative(t *testing.T) {
	cfg := testConfig(t)
	cfg.Phase.Lives = 0
	g := newTestGame(t, cfg, Options{})
	if got := g.Snapshot().Lives; got != -1 {
		t.Errorf("snapshot lives = %d, want -1", got)
	}
}

func TestPauseFreezesSimulation(t *testing.T) {
	g := newTestGame(t, testConfig(t), Options{})
	g.Start()
	g.Step(step)
	before := g.Now()

	g.SetPaused(true)
	for i := 0; i < 50; i++ {
		g.Step(step)
	}
	if g.Now() != before {
		t.Errorf("clock moved while paused: %v -> %v", before, g.Now())
	}
	if !g.Snapshot().Paused {
		t.Error("snapshot should report pause")
	}

	g.SetPaused(false)
	g.Step(step)
	if g.Now() != before+step {
		t.Errorf("clock = %v after resume, want %v", g.Now(), before+step)
	}
}

func TestHubDevicesReachSlots(t *testing.T) {
	g := newTestGame(t, testConfig(t), Options{})
	a := device.NewVirtualPad("pad-a", "Alice")
	b := device.NewVirtualPad("pad-b", "Bob")
	g.Hub().Connect(a, device.Gamepad, device.Joystick)
	g.Hub().Connect(b, device.Joystick)
	g.Step(step)

	snap := g.Snapshot()
	if snap.Slots[limb.LeftArm].Device != "pad-a" || snap.Slots[limb.RightArm].Device != "pad-b" {
		t.Errorf("slots = %+v", snap.Slots)
	}
	if !snap.Slots[limb.LeftArm].Connected || snap.Slots[limb.Head].Connected {
		t.Error("connection flags wrong")
	}
	if a.Tag() != limb.LeftArm.String() {
		t.Errorf("pad tag = %q", a.Tag())
	}

	a.SetAxis(0.5)
	g.Step(step)
	if got := g.Snapshot().Slots[limb.LeftArm].Axis; got != 0.5 {
		t.Errorf("axis = %v, want 0.5", got)
	}

	g.Hub().Disconnect("pad-a")
	g.Step(step)
	if got := g.Snapshot().Slots[limb.LeftArm].Device; got != "pad-b" {
		t.Errorf("LeftArm after disconnect = %q, want pad-b", got)
	}
}

func TestDebugKeyboardDrivesSlots(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = "debug"
	g := newTestGame(t, cfg, Options{})

	g.handleTerminal(tcell.NewEventKey(tcell.KeyRune, 'd', tcell.ModNone))
	g.Step(step)
	if got := g.sampler.HorizontalAxis(limb.LeftArm); got != 1 {
		t.Errorf("LeftArm axis = %v, want 1", got)
	}

	g.handleTerminal(tcell.NewEventKey(tcell.KeyF2, 0, tcell.ModNone))
	if g.sampler.Mode() != input.ModeGame {
		t.Fatal("F2 should switch to game mode")
	}
	g.Step(step)
	if got := g.sampler.HorizontalAxis(limb.LeftArm); got != 0 {
		t.Errorf("axis = %v after switching to game mode with no devices", got)
	}
}

func TestTerminalActions(t *testing.T) {
	g := newTestGame(t, testConfig(t), Options{})
	g.Start()

	g.handleTerminal(tcell.NewEventKey(tcell.KeyF9, 0, tcell.ModNone))
	if !g.Paused() {
		t.Error("F9 should pause")
	}
	g.handleTerminal(tcell.NewEventKey(tcell.KeyF6, 0, tcell.ModNone))
	if got := g.skins.LoadSkin(limb.Head); got != 1 {
		t.Errorf("skin = %d after F6, want 1", got)
	}
	g.handleTerminal(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone))
	if !g.quit {
		t.Error("Esc should quit")
	}
}

func TestInspectorCommands(t *testing.T) {
	ins := inspect.New("test", discard())
	g := newTestGame(t, testConfig(t), Options{Inspector: ins})
	g.Hub().Connect(device.NewVirtualPad("pad-a", "Alice"), device.Gamepad)
	g.Hub().Connect(device.NewVirtualPad("pad-b", "Bob"), device.Gamepad)
	g.Step(step)

	ts := httptest.NewServer(ins.Handler())
	defer ts.Close()
	put := func(path string) {
		t.Helper()
		req, _ := http.NewRequest(http.MethodPut, ts.URL+path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("PUT %s = %d", path, resp.StatusCode)
		}
	}

	put("/slots/head/device/pad-b")
	put("/skins/head/2")
	put("/mode/debug")
	g.Step(step)

	snap, ok := ins.Snapshot()
	if !ok {
		t.Fatal("no snapshot published")
	}
	if snap.Session != ins.Session() {
		t.Errorf("session = %q", snap.Session)
	}
	if !snap.Slots[limb.Head].Pinned {
		t.Error("head should be pinned")
	}
	if got := g.registry.Device(limb.Head); got == nil || got.ID() != "pad-b" {
		t.Errorf("head device = %v, want pad-b", got)
	}
	if snap.Slots[limb.Head].Skin != 2 {
		t.Errorf("head skin = %d, want 2", snap.Slots[limb.Head].Skin)
	}
	if snap.Mode != "debug" {
		t.Errorf("mode = %q, want debug", snap.Mode)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	g := newTestGame(t, testConfig(t), Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := g.Run(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("Run() = %v, want deadline exceeded", err)
	}
	if g.Phase() == phase.Idle {
		t.Error("Run should start a game")
	}
}

func TestRunQuitsOnEscape(t *testing.T) {
	ss := tcell.NewSimulationScreen("UTF-8")
	if err := ss.Init(); err != nil {
		t.Fatalf("SimulationScreen.Init: %v", err)
	}
	t.Cleanup(ss.Fini)
	ss.SetSize(80, 24)

	g := newTestGame(t, testConfig(t), Options{Screen: ss})
	if err := ss.PostEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.Run(ctx); err != nil {
		t.Fatalf("Run() = %v", err)
	}
}
