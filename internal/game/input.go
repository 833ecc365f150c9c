package game

import "github.com/gdamore/tcell/v2"

// Action is a game-level command read from the terminal. Limb keys are not
// actions; they go to the debug keyboard.
type Action uint8

const (
	ActionNone Action = iota
	ActionQuit
	ActionToggleMode
	ActionRestart
	ActionTogglePause
	ActionNextSkin
)

// keyToAction maps a tcell key event to a game action.
func keyToAction(ev *tcell.EventKey) Action {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionQuit
	case tcell.KeyF2:
		return ActionToggleMode
	case tcell.KeyF5:
		return ActionRestart
	case tcell.KeyF9:
		return ActionTogglePause
	case tcell.KeyF6:
		return ActionNextSkin
	}
	return ActionNone
}
