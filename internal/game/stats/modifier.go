package stats

import "time"

// Modifier is a temporary buff or debuff on one stat.
//
// Invariant: a Modifier contributes nothing once now >= Start + Duration.
type Modifier struct {
	Stat       Stat
	Value      float64
	Duration   time.Duration
	Start      time.Time
	Source     string
	Percentage bool
}

// Expired reports whether m has run its course at now.
func (m Modifier) Expired(now time.Time) bool {
	return !now.Before(m.Start.Add(m.Duration))
}

// Remaining returns the time left before expiry, never negative.
func (m Modifier) Remaining(now time.Time) time.Duration {
	return max(0, m.Start.Add(m.Duration).Sub(now))
}

// ModifierSet holds active modifiers. Expired entries are purged lazily the
// next time the set is read.
//
// Not safe for concurrent use; the owning component serialises access.
type ModifierSet struct {
	mods []Modifier
}

// Add appends m.
func (s *ModifierSet) Add(m Modifier) {
	s.mods = append(s.mods, m)
}

// RemoveBySource drops every modifier tagged source and returns the count.
func (s *ModifierSet) RemoveBySource(source string) int {
	kept := s.mods[:0]
	removed := 0
	for _, m := range s.mods {
		if m.Source == source {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	s.mods = kept
	return removed
}

// Purge drops modifiers expired at now and returns how many were dropped.
func (s *ModifierSet) Purge(now time.Time) int {
	kept := s.mods[:0]
	for _, m := range s.mods {
		if !m.Expired(now) {
			kept = append(kept, m)
		}
	}
	n := len(s.mods) - len(kept)
	s.mods = kept
	return n
}

// Sum returns the flat and percentage totals for stat at now.
//
// Postcondition: no expired modifier is left in the set.
func (s *ModifierSet) Sum(stat Stat, now time.Time) (flat, percent float64) {
	s.Purge(now)
	for _, m := range s.mods {
		if m.Stat != stat {
			continue
		}
		if m.Percentage {
			percent += m.Value
		} else {
			flat += m.Value
		}
	}
	return flat, percent
}

// Active returns a copy of the live modifiers at now.
func (s *ModifierSet) Active(now time.Time) []Modifier {
	s.Purge(now)
	return append([]Modifier(nil), s.mods...)
}

// Clear drops every modifier.
func (s *ModifierSet) Clear() {
	s.mods = nil
}
