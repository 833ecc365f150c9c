// Package stats keeps per-limb performance counters from bus events and
// derives a final accuracy per player.
package stats

import (
	"math"
	"time"

	"limbrun/internal/event"
	"limbrun/internal/hiding"
	"limbrun/internal/limb"
	"limbrun/internal/qte"
	"limbrun/internal/rhythm"
)

// Limb holds the counters of one slot.
type Limb struct {
	Prompts     int     `json:"prompts"`
	Hits        int     `json:"hits"`
	Misses      int     `json:"misses"`
	AccuracySum float64 `json:"accuracy_sum"`

	SyncPresses  int           `json:"sync_presses"`
	SyncMisses   int           `json:"sync_misses"`
	DeviationSum time.Duration `json:"deviation_sum"`

	HidingAttempts  int `json:"hiding_attempts"`
	HidingSuccesses int `json:"hiding_successes"`
}

// Summary is the end-of-game line for one slot.
type Summary struct {
	Slot          limb.Slot `json:"slot"`
	FinalAccuracy int       `json:"final_accuracy"`
	Hits          int       `json:"hits"`
	Misses        int       `json:"misses"`
	SyncMisses    int       `json:"sync_misses"`
}

// Tracker is a bus handler. Head has no rhythm prompts of its own, so it
// accumulates every limb's rhythm results and ends up with their average.
type Tracker struct {
	syncWindow time.Duration
	limbs      [limb.Count]Limb
}

// NewTracker returns an empty tracker. syncWindow scales the sync score.
func NewTracker(syncWindow time.Duration) *Tracker {
	return &Tracker{syncWindow: syncWindow}
}

// EventTypes lists the events the tracker consumes.
func (t *Tracker) EventTypes() []event.Type {
	return []event.Type{event.PromptHit, event.PromptExpired, event.SyncJudged, event.HidingResolved}
}

// HandleEvent folds one event into the counters.
func (t *Tracker) HandleEvent(ev event.Event) {
	switch p := ev.Payload.(type) {
	case rhythm.Hit:
		for _, s := range []limb.Slot{p.Slot, limb.Head} {
			t.limbs[s].Prompts++
			t.limbs[s].Hits++
			t.limbs[s].AccuracySum += p.Accuracy
		}
	case rhythm.Miss:
		for _, s := range []limb.Slot{p.Slot, limb.Head} {
			t.limbs[s].Prompts++
			t.limbs[s].Misses++
		}
	case qte.Result:
		for _, s := range limb.All {
			if p.Pressed[s] {
				t.limbs[s].SyncPresses++
				t.limbs[s].DeviationSum += p.Deviations[s]
			}
		}
		for _, s := range p.Missed {
			t.limbs[s].SyncMisses++
		}
	case hiding.Outcome:
		for _, s := range limb.All {
			t.limbs[s].HidingAttempts++
			if p.Success {
				t.limbs[s].HidingSuccesses++
			}
		}
	}
}

// Limb returns the counters of slot.
func (t *Tracker) Limb(s limb.Slot) Limb {
	if !s.Valid() {
		return Limb{}
	}
	return t.limbs[s]
}

// FinalAccuracy returns a 0-100 score: the mean of rhythm accuracy, sync
// score and hiding success rate over the categories the slot took part in.
func (t *Tracker) FinalAccuracy(s limb.Slot) int {
	if !s.Valid() {
		return 0
	}
	l := t.limbs[s]
	var sum float64
	n := 0
	if l.Prompts > 0 {
		sum += l.AccuracySum / float64(l.Prompts)
		n++
	}
	if l.SyncPresses > 0 {
		avg := float64(l.DeviationSum) / float64(l.SyncPresses)
		score := 1 - avg/float64(t.syncWindow)
		if l.SyncMisses > 0 {
			score *= float64(l.SyncPresses) / float64(l.SyncPresses+l.SyncMisses)
		}
		sum += math.Max(0, math.Min(1, score))
		n++
	} else if l.SyncMisses > 0 {
		n++
	}
	if l.HidingAttempts > 0 {
		sum += float64(l.HidingSuccesses) / float64(l.HidingAttempts)
		n++
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(100 * sum / float64(n)))
}

// Summaries returns one summary per slot in index order.
func (t *Tracker) Summaries() [limb.Count]Summary {
	var out [limb.Count]Summary
	for _, s := range limb.All {
		l := t.limbs[s]
		out[s] = Summary{
			Slot:          s,
			FinalAccuracy: t.FinalAccuracy(s),
			Hits:          l.Hits,
			Misses:        l.Misses,
			SyncMisses:    l.SyncMisses,
		}
	}
	return out
}

// Reset clears every counter.
func (t *Tracker) Reset() { t.limbs = [limb.Count]Limb{} }
