// Package status defines the read-only view of a running game that the HUD
// and the inspector render. The tick loop builds one per frame.
package status

import (
	"time"

	"limbrun/internal/hiding"
	"limbrun/internal/limb"
	"limbrun/internal/phase"
	"limbrun/internal/qte"
	"limbrun/internal/stats"
)

// Slot is the per-limb part of a snapshot.
type Slot struct {
	Slot      limb.Slot `json:"slot"`
	Device    string    `json:"device,omitempty"`
	Pinned    bool      `json:"pinned,omitempty"`
	Connected bool      `json:"connected"`
	Axis      float64   `json:"axis"`
	Skin      int       `json:"skin"`
	Accuracy  int       `json:"accuracy"`
}

// Prompt describes the live rhythm prompt.
type Prompt struct {
	Live      bool          `json:"live"`
	Slot      limb.Slot     `json:"slot"`
	Remaining time.Duration `json:"remaining"`
}

// Sync describes the sync challenge.
type Sync struct {
	Stage     string           `json:"stage"`
	Countdown int              `json:"countdown"`
	Remaining time.Duration    `json:"remaining"`
	Pressed   [limb.Count]bool `json:"pressed"`
	Result    *qte.Result      `json:"result,omitempty"`
}

// Hiding describes the pose phase.
type Hiding struct {
	Active    bool          `json:"active"`
	Target    int           `json:"target"`
	Remaining time.Duration `json:"remaining"`
	Pose      hiding.Pose   `json:"pose"`
}

// Snapshot is one frame of game state.
type Snapshot struct {
	Session    string                    `json:"session"`
	At         time.Duration             `json:"at"`
	Paused     bool                      `json:"paused"`
	Mode       string                    `json:"mode"`
	Phase      phase.State               `json:"phase"`
	Previous   phase.State               `json:"previous"`
	Rounds     int                       `json:"rounds"`
	Target     int                       `json:"target_rounds"`
	Lives      int                       `json:"lives"`
	Difficulty float64                   `json:"difficulty"`
	Speed      float64                   `json:"speed"`
	Selected   int                       `json:"selected"`
	Choices    int                       `json:"choices"`
	Prompt     Prompt                    `json:"prompt"`
	Sync       Sync                      `json:"sync"`
	Hiding     Hiding                    `json:"hiding"`
	Slots      [limb.Count]Slot          `json:"slots"`
	Summary    [limb.Count]stats.Summary `json:"summary"`
	Messages   []string                  `json:"messages,omitempty"`
}
