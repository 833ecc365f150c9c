package game

import (
	"fmt"
	"time"

	"limbrun/internal/device"
	"limbrun/internal/event"
	"limbrun/internal/hiding"
	"limbrun/internal/limb"
	"limbrun/internal/phase"
	"limbrun/internal/qte"
	"limbrun/internal/rhythm"
)

// handleEvent keeps the message log, resets stats for a new game and
// writes the run log when a game ends.
func (g *Game) handleEvent(ev event.Event) {
	switch p := ev.Payload.(type) {
	case phase.Change:
		if p.From == phase.Idle && p.To == phase.Transition {
			g.stats.Reset()
			g.startedAt = ev.At
			g.addMessage("New game! Keep your limbs in time.")
		}
	case phase.Round:
		g.addMessage(fmt.Sprintf("Wall cleared (%d/%d)", p.Completed, p.Target))
	case phase.Lives:
		g.addMessage(fmt.Sprintf("Ouch! %d lives left", p.Lives))
	case phase.Problem:
		g.addMessage(fmt.Sprintf("Skipped %s: %s", p.Phase, p.Message))
	case phase.Over:
		if p.Won {
			g.addMessage(fmt.Sprintf("Victory after %d rounds!", p.Rounds))
		} else {
			g.addMessage(fmt.Sprintf("Game over after %d rounds", p.Rounds))
		}
		g.writeRunLog(p, ev.At)
	case rhythm.Hit:
		msg := fmt.Sprintf("%s hit %.0f%%", p.Slot, p.Accuracy*100)
		if p.Bonus {
			msg += " bonus!"
		}
		g.addMessage(msg)
	case rhythm.Miss:
		g.addMessage(p.Slot.String() + " missed")
	case rhythm.WrongLimb:
		g.addMessage(fmt.Sprintf("Wrong limb: %s, wanted %s", p.Pressed, p.Expected))
	case hiding.Outcome:
		if p.Success {
			g.addMessage("Hidden!")
		} else {
			g.addMessage("Spotted!")
		}
	case qte.Result:
		if ev.Type != event.SyncJudged {
			return
		}
		if p.Success {
			g.addMessage(fmt.Sprintf("In sync (spread %v)", p.Spread.Round(time.Millisecond)))
		} else {
			g.addMessage("Out of sync: " + p.Reason.String())
		}
	case device.Change:
		switch ev.Type {
		case event.DeviceConnected:
			g.addMessage(fmt.Sprintf("%s connected", p.Name))
		case event.DeviceDisconnected:
			g.addMessage(fmt.Sprintf("%s disconnected", p.Name))
		}
	}
}

func (g *Game) writeRunLog(over phase.Over, at time.Duration) {
	if g.cfg.RunLogDir == "" {
		return
	}
	log := RunLog{
		Timestamp:  time.Now(),
		Mode:       g.sampler.Mode().String(),
		Victory:    over.Won,
		Rounds:     over.Rounds,
		Target:     g.sync.TargetRounds(),
		Difficulty: g.sync.Difficulty(),
		Played:     at - g.startedAt,
		Accuracy:   make(map[string]int, limb.Count),
	}
	if g.inspector != nil {
		log.Session = g.inspector.Session()
	}
	for _, s := range limb.All {
		log.Accuracy[s.String()] = g.stats.FinalAccuracy(s)
	}
	for _, s := range limb.Limbs {
		l := g.stats.Limb(s)
		log.Hits += l.Hits
		log.Misses += l.Misses
	}
	if err := saveRunLog(g.cfg.RunLogDir, log); err != nil {
		g.logger.Warn("run log: write failed", "dir", g.cfg.RunLogDir, "error", err)
	}
}
