// Package sched is the single-threaded simulation clock. Scheduled
// callbacks are keyed by simulation time and fire only from Advance, on the
// goroutine that owns the tick loop.
package sched

import (
	"container/heap"
	"time"
)

// Scheduler holds the simulation time and the pending callbacks.
type Scheduler struct {
	now   time.Duration
	seq   uint64
	queue taskQueue
	live  map[uint64]*task
}

type task struct {
	id    uint64
	at    time.Duration
	fn    func()
	index int
}

// New returns a scheduler at simulation time zero.
func New() *Scheduler {
	return &Scheduler{live: make(map[uint64]*task)}
}

// Now returns the current simulation time.
func (s *Scheduler) Now() time.Duration { return s.now }

// Pending returns the number of callbacks waiting to fire.
func (s *Scheduler) Pending() int { return len(s.live) }

// After schedules fn to run d after the current simulation time. Negative
// delays are treated as zero. Callbacks with equal deadlines fire in the
// order they were scheduled.
func (s *Scheduler) After(d time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}
	s.seq++
	t := &task{id: s.seq, at: s.now + d, fn: fn}
	heap.Push(&s.queue, t)
	s.live[t.id] = t
	return Handle{s: s, id: t.id}
}

// Advance moves simulation time forward by dt and fires every callback whose
// deadline falls inside the step, in deadline order. While a callback runs,
// Now reports its deadline. Callbacks scheduled from inside a callback fire
// in the same call if they are due. It returns the number fired.
func (s *Scheduler) Advance(dt time.Duration) int {
	if dt < 0 {
		dt = 0
	}
	target := s.now + dt
	fired := 0
	for s.queue.Len() > 0 {
		next := s.queue[0]
		if next.at > target {
			break
		}
		heap.Pop(&s.queue)
		delete(s.live, next.id)
		if next.at > s.now {
			s.now = next.at
		}
		next.fn()
		fired++
	}
	s.now = target
	return fired
}

// Reset drops every pending callback and rewinds the clock to zero.
func (s *Scheduler) Reset() {
	s.now = 0
	s.queue = nil
	s.live = make(map[uint64]*task)
}

func (s *Scheduler) cancel(id uint64) bool {
	t, ok := s.live[id]
	if !ok {
		return false
	}
	heap.Remove(&s.queue, t.index)
	delete(s.live, id)
	return true
}

// ─── Handle ──────────────────────────────────────────────────────────────────

// Handle identifies one scheduled callback. The zero Handle is inert.
type Handle struct {
	s  *Scheduler
	id uint64
}

// Cancel removes the callback if it has not fired yet. It reports whether a
// pending callback was removed.
func (h Handle) Cancel() bool {
	if h.s == nil {
		return false
	}
	return h.s.cancel(h.id)
}

// Active reports whether the callback is still waiting to fire.
func (h Handle) Active() bool {
	if h.s == nil {
		return false
	}
	_, ok := h.s.live[h.id]
	return ok
}

// ─── Timer ───────────────────────────────────────────────────────────────────

// Timer owns at most one pending callback. Reset always cancels the previous
// callback before scheduling the new one.
type Timer struct {
	s *Scheduler
	h Handle
}

// NewTimer returns a stopped timer bound to s.
func (s *Scheduler) NewTimer() *Timer { return &Timer{s: s} }

// Reset cancels any pending callback and schedules fn after d.
func (t *Timer) Reset(d time.Duration, fn func()) {
	t.h.Cancel()
	t.h = t.s.After(d, fn)
}

// Stop cancels the pending callback. It reports whether one was pending.
func (t *Timer) Stop() bool {
	stopped := t.h.Cancel()
	t.h = Handle{}
	return stopped
}

// Active reports whether a callback is pending.
func (t *Timer) Active() bool { return t.h.Active() }

// ─── queue ───────────────────────────────────────────────────────────────────

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].id < q[j].id
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
