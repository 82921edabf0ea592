package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/marcaocj/R1/internal/game/dice"
)

// GlobalScope is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when a scope has no VM of its own.
const GlobalScope = "__global__"

type vm struct {
	L     *lua.LState
	limit int
	// mu serialises calls; an LState is single-threaded.
	mu sync.Mutex
}

// Manager owns one sandboxed VM per arena scope and dispatches hooks to it.
//
// Safe for concurrent CallHook once loading has finished.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no scopes loaded.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting: NewManager requires a non-nil roller")
	}
	if logger == nil {
		panic("scripting: NewManager requires a non-nil logger")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		logger: logger,
	}
}

// LoadScope creates a VM for scope, registers the engine module, then runs
// every *.lua file in scriptDir in lexicographic order. A scope that is
// already loaded is replaced.
//
// Precondition: scope must be non-empty; scriptDir must be a readable directory.
// Postcondition: on error the previous VM for scope, if any, is kept.
func (m *Manager) LoadScope(scope, scriptDir string, instLimit int) error {
	L, release := NewSandboxedState(instLimit)
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		release()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, scope, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, path := range files {
		if err := L.DoFile(path); err != nil {
			release()
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, scope, err)
		}
	}
	release()

	m.mu.Lock()
	if old, ok := m.vms[scope]; ok {
		old.L.Close()
	}
	m.vms[scope] = &vm{L: L, limit: instLimit}
	m.mu.Unlock()

	m.logger.Info("scripts loaded", zap.String("scope", scope), zap.Int("files", len(files)))
	return nil
}

// LoadGlobal loads the shared fallback scope.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.LoadScope(GlobalScope, scriptDir, instLimit)
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for scope, v := range m.vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
		delete(m.vms, scope)
	}
}

func (m *Manager) lookup(scope string) *vm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.vms[scope]; ok {
		return v
	}
	return m.vms[GlobalScope]
}

// HasHook reports whether hook is a function in scope's VM or the global VM.
func (m *Manager) HasHook(scope, hook string) bool {
	v := m.lookup(scope)
	if v == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.L.GetGlobal(hook).(*lua.LFunction)
	return ok
}

// CallHook calls the Lua global function hook in scope's VM, falling back to
// the global VM. Returns (LNil, nil) when the hook is not defined or no VM
// exists. Lua runtime errors and exhausted instruction budgets are logged at
// Warn and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error) {
	return m.CallHookWith(scope, hook, func(*lua.LState) []lua.LValue { return args })
}

// CallHookWith is CallHook for arguments that must be built inside the VM,
// such as tables. build runs only when the hook exists.
func (m *Manager) CallHookWith(scope, hook string, build func(L *lua.LState) []lua.LValue) (lua.LValue, error) {
	v := m.lookup(scope)
	if v == nil {
		m.logger.Info("scripting: no VM for scope",
			zap.String("scope", scope),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	release := budget(v.L, v.limit)
	defer release()
	if err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, build(v.L)...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("scope", scope),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}
