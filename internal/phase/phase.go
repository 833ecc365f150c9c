// Package phase owns the top-level game state machine. It decides which
// engine is active, moves between phases on timers and results, and keeps
// rounds, lives and difficulty.
package phase

import "fmt"

// State is a top-level phase.
type State uint8

const (
	Idle State = iota
	Running
	Hiding
	QTE
	Transition
	GameOver
	Victory
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Hiding:
		return "hiding"
	case QTE:
		return "qte"
	case Transition:
		return "transition"
	case GameOver:
		return "game_over"
	case Victory:
		return "victory"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Next is the rotation table: the phase that follows a transition out of
// previous. Every state has an entry.
func Next(previous State) State {
	switch previous {
	case Running:
		return Hiding
	case Hiding:
		return QTE
	}
	return Running
}

// Change is the PhaseChanged payload.
type Change struct {
	From State `json:"from"`
	To   State `json:"to"`
}

// Lives is the LivesChanged payload.
type Lives struct {
	Lives int `json:"lives"`
}

// Round is the RoundCompleted payload.
type Round struct {
	Completed int `json:"completed"`
	Target    int `json:"target"`
}

// Over is the GameOver payload.
type Over struct {
	Won    bool `json:"won"`
	Rounds int  `json:"rounds"`
}

// Problem is the ConfigError payload.
type Problem struct {
	Phase   State  `json:"phase"`
	Message string `json:"message"`
}
