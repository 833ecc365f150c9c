package render

import (
	"github.com/gdamore/tcell/v2"

	"limbrun/internal/limb"
	"limbrun/internal/phase"
)

// Skins maps a skin index to the glyph drawn for each limb. Indexes past
// the end wrap around.
var Skins = [][limb.Count]string{
	{"💪", "💪", "🦵", "🦵", "🙂"},
	{"🦾", "🦾", "🦿", "🦿", "🤖"},
	{"🌿", "🌿", "🌱", "🌱", "🌻"},
	{"🔥", "🔥", "🌋", "🌋", "😈"},
}

// SkinGlyph returns the glyph for slot under skin idx.
func SkinGlyph(slot limb.Slot, idx int) string {
	if !slot.Valid() {
		return "?"
	}
	if idx < 0 {
		idx = -idx
	}
	return Skins[idx%len(Skins)][slot]
}

// PhaseColor is the header color for each phase.
func PhaseColor(s phase.State) tcell.Color {
	switch s {
	case phase.Running:
		return tcell.ColorGreen
	case phase.Hiding:
		return tcell.ColorMediumPurple
	case phase.QTE:
		return tcell.ColorOrange
	case phase.Transition:
		return tcell.ColorLightBlue
	case phase.GameOver:
		return tcell.ColorRed
	case phase.Victory:
		return tcell.ColorGold
	}
	return tcell.ColorGray
}
