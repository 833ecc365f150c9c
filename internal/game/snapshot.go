package game

import (
	"limbrun/internal/input"
	"limbrun/internal/limb"
	"limbrun/internal/qte"
	"limbrun/internal/status"
)

// Snapshot captures the current state for the HUD and the inspector.
func (g *Game) Snapshot() status.Snapshot {
	s := status.Snapshot{
		At:         g.clock.Now(),
		Paused:     g.paused,
		Mode:       g.sampler.Mode().String(),
		Phase:      g.sync.State(),
		Previous:   g.sync.Previous(),
		Rounds:     g.sync.RoundsCompleted(),
		Target:     g.sync.TargetRounds(),
		Lives:      g.sync.Lives(),
		Difficulty: g.sync.Difficulty(),
		Speed:      g.rhythm.Speed(),
		Selected:   g.rhythm.SelectedIndex(),
		Choices:    g.rhythm.Targets(),
		Summary:    g.stats.Summaries(),
	}
	if g.cfg.Phase.Lives == 0 {
		s.Lives = -1
	}
	if g.inspector != nil {
		s.Session = g.inspector.Session()
	}
	if n := len(g.messages); n > 0 {
		s.Messages = append([]string(nil), g.messages[max(0, n-3):]...)
	}

	if p, live := g.rhythm.Prompt(); live {
		s.Prompt = status.Prompt{Live: true, Slot: p.Slot, Remaining: max(0, p.Deadline()-g.clock.Now())}
	}

	presses := g.qte.Presses()
	s.Sync = status.Sync{
		Stage:     g.qte.Stage().String(),
		Countdown: g.qte.CountdownRemaining(),
		Remaining: g.qte.WindowRemaining(),
	}
	for _, sl := range limb.All {
		s.Sync.Pressed[sl] = presses[sl].Pressed
	}
	if g.qte.Stage() == qte.Resolved {
		if res, ok := g.qte.Result(); ok {
			s.Sync.Result = &res
		}
	}

	s.Hiding = status.Hiding{
		Active:    g.hiding.Active(),
		Target:    g.hiding.Target(),
		Remaining: g.hiding.Remaining(),
		Pose:      g.hiding.Pose(),
	}

	mapping := g.registry.Mapping()
	var skins [limb.Count]int
	if g.skins != nil {
		skins = g.skins.All()
	}
	debug := g.sampler.Mode() == input.ModeDebug
	for _, sl := range limb.All {
		dev := mapping.Devices[sl]
		if debug {
			dev = "keyboard"
		}
		s.Slots[sl] = status.Slot{
			Slot:      sl,
			Device:    dev,
			Pinned:    mapping.Pinned[sl],
			Connected: g.sampler.IsConnected(sl),
			Axis:      g.sampler.HorizontalAxis(sl),
			Skin:      skins[sl],
			Accuracy:  g.stats.FinalAccuracy(sl),
		}
	}
	return s
}
