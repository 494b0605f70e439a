// Package timer provides the delayed-callback scheduler the item manager runs
// on. Time only moves when the owner calls Advance, which makes the queue
// usable both from a fixed-rate game loop and as a fake clock in tests.
package timer

import (
	"container/heap"
	"time"
)

// Handle identifies a scheduled callback. The zero Handle is never issued.
type Handle uint64

// Scheduler is what the item manager needs from a timer service.
type Scheduler interface {
	// Schedule runs fn once after delay has elapsed. A delay <= 0 fires on
	// the next Advance.
	Schedule(delay time.Duration, fn func()) Handle
	// Cancel removes a pending callback. It reports false when the handle
	// already fired, was cancelled or is unknown.
	Cancel(h Handle) bool
}

// Queue is a single-threaded Scheduler driven by Advance. It must only be
// used from the goroutine that owns the game loop.
type Queue struct {
	now     time.Duration
	entries entryHeap
	pending map[Handle]*entry
	nextID  Handle
	seq     uint64
}

var _ Scheduler = (*Queue)(nil)

// NewQueue creates an empty queue at time zero.
func NewQueue() *Queue {
	q := &Queue{pending: make(map[Handle]*entry)}
	heap.Init(&q.entries)
	return q
}

// Schedule implements Scheduler.
func (q *Queue) Schedule(delay time.Duration, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	q.nextID++
	q.seq++
	e := &entry{
		handle: q.nextID,
		due:    q.now + delay,
		seq:    q.seq,
		fn:     fn,
	}
	heap.Push(&q.entries, e)
	q.pending[e.handle] = e
	return e.handle
}

// Cancel implements Scheduler.
func (q *Queue) Cancel(h Handle) bool {
	e, ok := q.pending[h]
	if !ok {
		return false
	}
	delete(q.pending, h)
	if e.index >= 0 {
		heap.Remove(&q.entries, e.index)
	}
	return true
}

// Advance moves the clock forward by dt and runs every callback that became
// due, earliest first. Callbacks scheduled while advancing run in the same
// call when their deadline is not after the new time. It returns the number
// of callbacks that ran.
func (q *Queue) Advance(dt time.Duration) int {
	if dt > 0 {
		q.now += dt
	}
	fired := 0
	for {
		e := q.entries.popDue(q.now)
		if e == nil {
			return fired
		}
		delete(q.pending, e.handle)
		fired++
		if e.fn != nil {
			e.fn()
		}
	}
}

// AdvanceTo moves the clock to t, which must not be in the past.
func (q *Queue) AdvanceTo(t time.Duration) int {
	if t < q.now {
		t = q.now
	}
	return q.Advance(t - q.now)
}

// Now returns the elapsed queue time.
func (q *Queue) Now() time.Duration {
	return q.now
}

// Pending returns the number of callbacks waiting to fire.
func (q *Queue) Pending() int {
	return len(q.pending)
}

// NextDue returns the deadline of the earliest pending callback.
func (q *Queue) NextDue() (time.Duration, bool) {
	e := q.entries.Peek()
	if e == nil {
		return 0, false
	}
	return e.due, true
}

// Clear drops every pending callback without running it.
func (q *Queue) Clear() {
	for h := range q.pending {
		delete(q.pending, h)
	}
	q.entries = q.entries[:0]
}
