package render

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"limbrun/internal/limb"
	"limbrun/internal/phase"
	"limbrun/internal/status"
)

// axisHalf is the number of cells on each side of the axis gauge center.
const axisHalf = 5

// Renderer draws snapshots onto a tcell screen.
type Renderer struct {
	screen tcell.Screen
}

// NewRenderer creates a Renderer for the given screen.
func NewRenderer(screen tcell.Screen) *Renderer {
	return &Renderer{screen: screen}
}

// Draw renders a full frame: header, limb rows, the phase panel and the
// message log.
func (r *Renderer) Draw(s status.Snapshot) {
	r.screen.Clear()
	r.drawHeader(s)
	r.drawHLine(1, tcell.ColorGray)
	r.drawSlots(s, 2)
	r.drawHLine(2+limb.Count, tcell.ColorGray)
	r.drawPanel(s, 3+limb.Count)
	r.DrawHUD(s.Messages)
	r.screen.Show()
}

func (r *Renderer) drawHeader(s status.Snapshot) {
	style := tcell.StyleDefault.Foreground(PhaseColor(s.Phase)).Bold(true)
	x := r.drawText(0, 0, strings.ToUpper(s.Phase.String()), style)

	text := fmt.Sprintf("  Round %d/%d  %s  Speed %.2fx  Diff %.2f",
		s.Rounds, s.Target, livesText(s.Lives), s.Speed, s.Difficulty)
	x = r.drawText(x, 0, text, tcell.StyleDefault.Foreground(tcell.ColorWhite))
	x = r.drawText(x, 0, "  ["+strings.ToUpper(s.Mode)+"]", tcell.StyleDefault.Foreground(tcell.ColorGray))
	if s.Paused {
		r.drawText(x, 0, "  PAUSED", tcell.StyleDefault.Foreground(tcell.ColorYellow).Blink(true))
	}
}

func livesText(n int) string {
	if n < 0 {
		return "Lives ∞"
	}
	return "Lives " + strings.Repeat("♥", n)
}

func (r *Renderer) drawSlots(s status.Snapshot, y int) {
	for i, sl := range s.Slots {
		row := y + i
		style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
		if !sl.Connected {
			style = style.Foreground(tcell.ColorDarkGray)
		}
		if s.Prompt.Live && s.Prompt.Slot == sl.Slot {
			style = style.Reverse(true)
		}

		x := r.drawText(0, row, fmt.Sprintf("%-2s ", sl.Slot.Short()), style)
		x = r.putGlyph(x, row, SkinGlyph(sl.Slot, sl.Skin), style)

		dev := sl.Device
		if dev == "" {
			dev = "-"
		}
		if sl.Pinned {
			dev += "*"
		}
		x = r.drawText(x, row, " "+runewidth.FillRight(runewidth.Truncate(dev, 14, "…"), 15), style)
		x = r.drawText(x, row, axisGauge(sl.Axis)+" ", style)
		r.drawText(x, row, fmt.Sprintf("acc %3d%%", sl.Accuracy), style)
	}
}

// axisGauge renders v in [-1, 1] as a bar with a marker.
func axisGauge(v float64) string {
	pos := int(math.Round(v*axisHalf)) + axisHalf
	pos = max(0, min(2*axisHalf, pos))
	b := []rune(strings.Repeat("─", 2*axisHalf+1))
	b[axisHalf] = '┼'
	b[pos] = '●'
	return "[" + string(b) + "]"
}

func (r *Renderer) drawPanel(s status.Snapshot, y int) {
	white := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	switch s.Phase {
	case phase.Idle:
		r.drawText(0, y, "Press F5 to start", white)
	case phase.Running:
		r.drawTargets(s, y)
		if s.Prompt.Live {
			r.drawText(0, y+1, fmt.Sprintf("Hit %s!  %s", s.Prompt.Slot, secs(s.Prompt.Remaining)),
				tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true))
		}
	case phase.Hiding:
		r.drawText(0, y, fmt.Sprintf("Match pose %d  %s", s.Hiding.Target+1, secs(s.Hiding.Remaining)), white)
		x := 0
		for _, sl := range limb.All {
			p := s.Hiding.Pose[sl]
			mark := " "
			if p.Locked {
				mark = "🔒"
			}
			x = r.drawText(x, y+1, fmt.Sprintf("%s %+4.0f°", sl.Short(), p.Angle), white)
			x = r.putGlyph(x, y+1, mark, white)
			x = r.drawText(x, y+1, "  ", white)
		}
	case phase.QTE:
		r.drawSync(s, y)
	case phase.Transition:
		r.drawText(0, y, "Get ready…", tcell.StyleDefault.Foreground(tcell.ColorLightBlue))
	case phase.GameOver, phase.Victory:
		title := "GAME OVER"
		if s.Phase == phase.Victory {
			title = "VICTORY"
		}
		r.drawText(0, y, fmt.Sprintf("%s after %d rounds  (F5 to restart)", title, s.Rounds),
			tcell.StyleDefault.Foreground(PhaseColor(s.Phase)).Bold(true))
		for i, sum := range s.Summary {
			r.drawText(2, y+1+i, fmt.Sprintf("%-9s %3d%%  hits %-3d misses %-3d sync misses %d",
				sum.Slot, sum.FinalAccuracy, sum.Hits, sum.Misses, sum.SyncMisses), white)
		}
	}
}

func (r *Renderer) drawTargets(s status.Snapshot, y int) {
	x := r.drawText(0, y, "Targets ", tcell.StyleDefault.Foreground(tcell.ColorGray))
	for i := 0; i < s.Choices; i++ {
		style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
		if i == s.Selected {
			style = style.Reverse(true)
		}
		x = r.drawText(x, y, fmt.Sprintf(" %d ", i+1), style)
	}
}

func (r *Renderer) drawSync(s status.Snapshot, y int) {
	sync := s.Sync
	bold := tcell.StyleDefault.Foreground(tcell.ColorOrange).Bold(true)
	switch sync.Stage {
	case "countdown":
		r.drawText(0, y, fmt.Sprintf("Sync in %d…", sync.Countdown), bold)
	case "open":
		r.drawText(0, y, "SYNC! Press together  "+secs(sync.Remaining), bold)
	default:
		if sync.Result != nil {
			msg, style := "IN SYNC", tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
			if !sync.Result.Success {
				msg, style = "MISSED: "+sync.Result.Reason.String(), tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
			}
			r.drawText(0, y, msg, style)
		}
	}
	x := 0
	for _, sl := range limb.All {
		mark := "·"
		if sync.Pressed[sl] {
			mark = "✔"
		}
		x = r.drawText(x, y+1, sl.Short()+mark+" ", tcell.StyleDefault.Foreground(tcell.ColorWhite))
	}
}

func secs(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
