// Package ai drives enemy behaviour with a finite-state controller built on
// looplab/fsm. One Controller owns one enemy; it reads perception every tick,
// picks a state, and issues movement and attack intents.
package ai

import (
	"errors"

	"github.com/looplab/fsm"
)

// State is one node of the enemy behaviour machine.
type State string

const (
	Idle    State = "idle"
	Patrol  State = "patrol"
	Alert   State = "alert"
	Chase   State = "chase"
	Combat  State = "combat"
	Search  State = "search"
	Return  State = "return"
	Stunned State = "stunned"
	Dead    State = "dead"
)

// liveStates are every state except the terminal one.
var liveStates = []State{Idle, Patrol, Alert, Chase, Combat, Search, Return, Stunned}

const eventDie = "die"

// eventFor names the fsm event that enters s.
func eventFor(s State) string {
	if s == Dead {
		return eventDie
	}
	return "to_" + string(s)
}

// machineEvents allows every live state to reach every other live state and
// Dead. Dead is not a source of any event, so the machine cannot leave it.
func machineEvents() fsm.Events {
	src := make([]string, len(liveStates))
	for i, s := range liveStates {
		src[i] = string(s)
	}
	events := make(fsm.Events, 0, len(liveStates)+1)
	for _, s := range liveStates {
		events = append(events, fsm.EventDesc{Name: eventFor(s), Src: src, Dst: string(s)})
	}
	return append(events, fsm.EventDesc{Name: eventDie, Src: src, Dst: string(Dead)})
}

// transitionOpts travels through fsm event args.
type transitionOpts struct {
	forced bool
}

func optsFrom(args []interface{}) transitionOpts {
	for _, a := range args {
		if o, ok := a.(transitionOpts); ok {
			return o
		}
	}
	return transitionOpts{}
}

// ErrDwell rejects a transition requested before the dwell time elapsed.
var ErrDwell = errors.New("ai: state dwell time not elapsed")
