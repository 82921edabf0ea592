// Package scripting runs designer Lua hooks for the arena in a sandboxed
// GopherLua VM: loot chance adjustment and enemy death callbacks.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one script load or one hook
// call when no override is configured.
const DefaultInstructionLimit = 100_000

// countingContext cancels itself after Done() has been called limit times.
// GopherLua's context-aware main loop calls Done() once per opcode.
type countingContext struct {
	context.Context
	cancel    context.CancelFunc
	remaining *atomic.Int64
}

func (c *countingContext) Done() <-chan struct{} {
	if c.remaining.Add(-1) <= 0 {
		c.cancel()
	}
	return c.Context.Done()
}

// newCountingContext returns a context that cancels after limit calls to Done().
//
// Precondition: limit > 0.
func newCountingContext(limit int) (context.Context, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	rem := &atomic.Int64{}
	rem.Store(int64(limit))
	return &countingContext{Context: base, cancel: cancel, remaining: rem}, cancel
}

func effectiveLimit(instLimit int) int {
	if instLimit <= 0 {
		return DefaultInstructionLimit
	}
	return instLimit
}

// budget installs a fresh instruction budget on L and returns the function
// that releases it.
func budget(L *lua.LState, instLimit int) func() {
	ctx, cancel := newCountingContext(effectiveLimit(instLimit))
	L.SetContext(ctx)
	return func() {
		L.RemoveContext()
		cancel()
	}
}

// NewSandboxedState creates a GopherLua state with:
//   - only the base, table, string and math libraries
//   - dofile, loadfile, load, collectgarbage and require removed
//   - an instruction budget of instLimit opcodes for the scripts loaded next
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: the caller owns L and must call the returned release function
// once loading is finished, then L.Close() when done with the state.
func NewSandboxedState(instLimit int) (*lua.LState, func()) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	return L, budget(L, instLimit)
}
