package world

import (
	"sort"
	"time"
)

// respawnEntry is one pending respawn of an arena spawn point.
type respawnEntry struct {
	spawnIdx int
	readyAt  time.Time
}

// Respawner schedules enemies to return to their spawn point after their
// corpse is removed.
//
// Invariant: entries with zero delay are never queued; at most one entry per
// spawn point is pending.
//
// Not safe for concurrent use; the world's tick drives it.
type Respawner struct {
	pending []respawnEntry
}

// Schedule queues spawn point idx to respawn at now+delay. No-op when
// delay <= 0 or idx is already pending.
//
// Postcondition: an entry with readyAt = now+delay exists iff delay > 0.
func (r *Respawner) Schedule(idx int, now time.Time, delay time.Duration) {
	if delay <= 0 {
		return
	}
	for _, e := range r.pending {
		if e.spawnIdx == idx {
			return
		}
	}
	r.pending = append(r.pending, respawnEntry{spawnIdx: idx, readyAt: now.Add(delay)})
}

// Pending returns the number of queued respawns.
func (r *Respawner) Pending() int { return len(r.pending) }

// Tick consumes every entry whose readyAt <= now and calls spawn for each,
// in spawn point order.
func (r *Respawner) Tick(now time.Time, spawn func(idx int)) {
	var ready []int
	future := r.pending[:0]
	for _, e := range r.pending {
		if !e.readyAt.After(now) {
			ready = append(ready, e.spawnIdx)
		} else {
			future = append(future, e)
		}
	}
	r.pending = future
	sort.Ints(ready)
	for _, idx := range ready {
		spawn(idx)
	}
}
