package event

import "time"

// Bus dispatches events to subscribers in registration order. It is not
// safe for concurrent use; every Publish happens on the tick goroutine.
type Bus struct {
	now  func() time.Duration
	subs []subscription
}

type subscription struct {
	h     Handler
	types map[Type]bool // nil means every type
}

// NewBus returns a bus that stamps events with now(). A nil clock stamps
// zero.
func NewBus(now func() time.Duration) *Bus {
	if now == nil {
		now = func() time.Duration { return 0 }
	}
	return &Bus{now: now}
}

// Subscribe registers h for the given types, or for every type when none
// are given.
func (b *Bus) Subscribe(h Handler, types ...Type) {
	sub := subscription{h: h}
	if len(types) > 0 {
		sub.types = make(map[Type]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}
	b.subs = append(b.subs, sub)
}

// Publish stamps and delivers an event. Handlers subscribed while an event
// is being delivered start receiving from the next Publish.
func (b *Bus) Publish(t Type, payload any) {
	ev := Event{Type: t, At: b.now(), Payload: payload}
	subs := b.subs
	for _, s := range subs {
		if s.types != nil && !s.types[t] {
			continue
		}
		s.h.HandleEvent(ev)
	}
}

// Recorder is a Handler that keeps every event it receives. Tests and the
// HUD message log use it.
type Recorder struct {
	Events []Event
	Limit  int
}

// HandleEvent appends ev, dropping the oldest entries past Limit.
func (r *Recorder) HandleEvent(ev Event) {
	r.Events = append(r.Events, ev)
	if r.Limit > 0 && len(r.Events) > r.Limit {
		r.Events = r.Events[len(r.Events)-r.Limit:]
	}
}

// OfType returns the recorded events of type t in order.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, ev := range r.Events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []Type {
	out := make([]Type, len(r.Events))
	for i, ev := range r.Events {
		out[i] = ev.Type
	}
	return out
}

// Reset drops every recorded event.
func (r *Recorder) Reset() { r.Events = r.Events[:0] }
