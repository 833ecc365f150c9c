// Package limb defines the five fixed logical roles shared by every
// subsystem. A slot is positional: devices are assigned to slots, never
// the other way round.
package limb

import (
	"fmt"
	"strings"
)

// Slot is a logical limb role.
type Slot uint8

const (
	LeftArm Slot = iota
	RightArm
	LeftLeg
	RightLeg
	Head
)

// Count is the number of logical slots.
const Count = 5

// Limbs are the four rhythm-capable slots in index order. Head never
// receives rhythm prompts.
var Limbs = [4]Slot{LeftArm, RightArm, LeftLeg, RightLeg}

// All lists every slot in index order.
var All = [Count]Slot{LeftArm, RightArm, LeftLeg, RightLeg, Head}

var names = [Count]string{"LeftArm", "RightArm", "LeftLeg", "RightLeg", "Head"}

// Valid reports whether s is one of the five defined slots.
func (s Slot) Valid() bool { return s < Count }

func (s Slot) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Slot(%d)", uint8(s))
	}
	return names[s]
}

// Short is a two-letter label for narrow displays.
func (s Slot) Short() string {
	switch s {
	case LeftArm:
		return "LA"
	case RightArm:
		return "RA"
	case LeftLeg:
		return "LL"
	case RightLeg:
		return "RL"
	case Head:
		return "HD"
	}
	return "??"
}

// MarshalText encodes the slot by name so JSON payloads stay readable.
func (s Slot) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("limb: invalid slot %d", uint8(s))
	}
	return []byte(names[s]), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *Slot) UnmarshalText(b []byte) error {
	v, err := ParseSlot(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSlot resolves a slot from its name (case-insensitive, dashes and
// underscores ignored) or its index.
func ParseSlot(name string) (Slot, error) {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(name))
	for i, n := range names {
		if strings.ToLower(n) == key {
			return Slot(i), nil
		}
	}
	if len(key) == 1 && key[0] >= '0' && key[0] < '0'+Count {
		return Slot(key[0] - '0'), nil
	}
	return 0, fmt.Errorf("limb: unknown slot %q", name)
}
