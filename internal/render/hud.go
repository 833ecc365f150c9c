package render

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// hudRows is the height of the message log including its separator.
const hudRows = 4

// DrawHUD renders the last three messages at the bottom of the screen.
func (r *Renderer) DrawHUD(messages []string) {
	_, screenH := r.screen.Size()
	hudY := screenH - hudRows
	r.drawHLine(hudY, tcell.ColorGray)

	start := max(0, len(messages)-(hudRows-1))
	for i, msg := range messages[start:] {
		r.drawText(0, hudY+1+i, msg, tcell.StyleDefault.Foreground(tcell.ColorLightYellow))
	}
}

func (r *Renderer) drawHLine(y int, color tcell.Color) {
	w, _ := r.screen.Size()
	style := tcell.StyleDefault.Foreground(color)
	for x := 0; x < w; x++ {
		r.screen.SetContent(x, y, '─', nil, style)
	}
}

// drawText writes text at (x, y) and returns the column after it. Wide
// runes take two columns.
func (r *Renderer) drawText(x, y int, text string, style tcell.Style) int {
	col := x
	for _, ch := range text {
		r.screen.SetContent(col, y, ch, nil, style)
		col += max(1, runewidth.RuneWidth(ch))
	}
	return col
}

// putGlyph draws a possibly multi-rune emoji and returns the next column.
func (r *Renderer) putGlyph(x, y int, glyph string, style tcell.Style) int {
	runes := []rune(glyph)
	if len(runes) == 0 {
		return x
	}
	r.screen.SetContent(x, y, runes[0], runes[1:], style)
	w := runewidth.StringWidth(glyph)
	if w == 2 {
		r.screen.SetContent(x+1, y, ' ', nil, style)
	}
	return x + max(1, w)
}
