// Package dice provides the randomness abstraction shared by loot rolls,
// critical hits, ragdoll impulses, and randomized patrol routes.
package dice

import "fmt"

// Source is the randomness provider for every roll in the simulation.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// RollResult holds the audit trail for a single quantity expression roll.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string
	Dice       []int
	Modifier   int
}

// Total returns the sum of all die results plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String renders the roll as "1d3+1 -> [2] +1 = 3".
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	return fmt.Sprintf("%s -> %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}
