// Package schedule replaces suspended coroutines with explicit "resume at"
// entries that a tick driver polls.
package schedule

import (
	"sort"
	"sync"
	"time"
)

// Handle identifies one scheduled entry.
type Handle uint64

type entry struct {
	handle  Handle
	group   string
	readyAt time.Time
	fn      func(now time.Time)
}

// Queue holds deferred closures keyed by the simulation time they become due.
//
// Invariant: an entry runs at most once, and never after it was cancelled.
//
// Concurrency: Tick must not be called concurrently with itself. After, Cancel
// and CancelGroup may be called from any goroutine, including from inside a
// running entry.
type Queue struct {
	mu      sync.Mutex
	next    Handle
	pending map[Handle]*entry
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{pending: make(map[Handle]*entry)}
}

// After schedules fn to run on the first Tick at or after now+delay. group
// tags the entry for bulk cancellation; it may be empty.
//
// Precondition: fn must be non-nil.
// Postcondition: returns a Handle unique within this Queue.
func (q *Queue) After(now time.Time, delay time.Duration, group string, fn func(now time.Time)) Handle {
	if fn == nil {
		panic("schedule: After called with nil fn")
	}
	if delay < 0 {
		delay = 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next++
	h := q.next
	q.pending[h] = &entry{handle: h, group: group, readyAt: now.Add(delay), fn: fn}
	return h
}

// Cancel removes h. Returns false if h already ran or was cancelled.
func (q *Queue) Cancel(h Handle) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[h]; !ok {
		return false
	}
	delete(q.pending, h)
	return true
}

// CancelGroup removes every pending entry tagged group and returns how many
// were removed.
func (q *Queue) CancelGroup(group string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for h, e := range q.pending {
		if e.group == group {
			delete(q.pending, h)
			n++
		}
	}
	return n
}

// Clear drops every pending entry.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.pending)
}

// Pending reports whether h is still waiting to run.
func (q *Queue) Pending(h Handle) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.pending[h]
	return ok
}

// Len reports the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Tick runs every entry with readyAt <= now, earliest first and in scheduling
// order for ties. Entries scheduled by a running entry wait for the next Tick.
//
// Postcondition: entries with readyAt <= now at call time have run or were
// cancelled before their turn.
func (q *Queue) Tick(now time.Time) int {
	q.mu.Lock()
	var ready []*entry
	for _, e := range q.pending {
		if !e.readyAt.After(now) {
			ready = append(ready, e)
		}
	}
	q.mu.Unlock()

	sort.Slice(ready, func(i, j int) bool {
		if ready[i].readyAt.Equal(ready[j].readyAt) {
			return ready[i].handle < ready[j].handle
		}
		return ready[i].readyAt.Before(ready[j].readyAt)
	})

	ran := 0
	for _, e := range ready {
		q.mu.Lock()
		_, live := q.pending[e.handle]
		delete(q.pending, e.handle)
		q.mu.Unlock()
		if !live {
			continue
		}
		e.fn(now)
		ran++
	}
	return ran
}
