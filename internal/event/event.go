// Package event is the synchronous observer bus that connects the engines
// to the phase state machine and to the audio, HUD and inspector
// collaborators. Publishers own their payload types; handlers type-assert
// the payload of the event types they subscribe to.
package event

import (
	"fmt"
	"time"
)

// Type identifies an event kind.
type Type uint8

const (
	// Phase flow.
	PhaseChanged Type = iota + 1
	GameOver
	RoundCompleted
	LivesChanged
	ConfigError

	// Rhythm prompts.
	PromptShown
	PromptHit
	PromptWrongLimb
	PromptExpired
	SpeedChanged
	SelectionChanged

	// Sync challenge.
	CountdownTick
	SyncOpen
	PlayerPress
	PlayerMiss
	SyncJudged
	SyncResolved

	// Hiding.
	HidingStarted
	LimbLocked
	HidingResolved

	// Devices.
	DeviceConnected
	DeviceDisconnected
	MappingRebuilt

	typeCount
)

var typeNames = [typeCount]string{
	PhaseChanged:       "phase_changed",
	GameOver:           "game_over",
	RoundCompleted:     "round_completed",
	LivesChanged:       "lives_changed",
	ConfigError:        "config_error",
	PromptShown:        "prompt_shown",
	PromptHit:          "prompt_hit",
	PromptWrongLimb:    "prompt_wrong_limb",
	PromptExpired:      "prompt_expired",
	SpeedChanged:       "speed_changed",
	SelectionChanged:   "selection_changed",
	CountdownTick:      "countdown_tick",
	SyncOpen:           "sync_open",
	PlayerPress:        "player_press",
	PlayerMiss:         "player_miss",
	SyncJudged:         "sync_judged",
	SyncResolved:       "sync_resolved",
	HidingStarted:      "hiding_started",
	LimbLocked:         "limb_locked",
	HidingResolved:     "hiding_resolved",
	DeviceConnected:    "device_connected",
	DeviceDisconnected: "device_disconnected",
	MappingRebuilt:     "mapping_rebuilt",
}

func (t Type) String() string {
	if t == 0 || t >= typeCount {
		return fmt.Sprintf("event(%d)", uint8(t))
	}
	return typeNames[t]
}

// MarshalText encodes the type by name.
func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Event is one published notification. At is the simulation time of
// publication.
type Event struct {
	Type    Type          `json:"type"`
	At      time.Duration `json:"at"`
	Payload any           `json:"payload,omitempty"`
}

// Publisher is the narrow interface engines publish through.
type Publisher interface {
	Publish(t Type, payload any)
}

// Handler receives events synchronously on the publishing goroutine.
type Handler interface {
	HandleEvent(ev Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ev Event)

// HandleEvent calls f(ev).
func (f HandlerFunc) HandleEvent(ev Event) { f(ev) }
