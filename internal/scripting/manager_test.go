package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/marcaocj/R1/internal/game/dice"
	"github.com/marcaocj/R1/internal/scripting"
)

func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	roller := dice.NewLoggedRoller(dice.NewSeededSource(7), logger)
	mgr := scripting.NewManager(roller, logger)
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0o644))
	return dir
}

func hasLevel(logs *observer.ObservedLogs, level zapcore.Level) bool {
	for _, e := range logs.All() {
		if e.Level == level {
			return true
		}
	}
	return false
}

func TestManager_LoadScope_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function add(a, b)
			return a + b
		end
	`)
	require.NoError(t, mgr.LoadScope("arena", dir, 0))
	ret, err := mgr.CallHook("arena", "add", lua.LNumber(3), lua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
	assert.True(t, mgr.HasHook("arena", "add"))
	assert.False(t, mgr.HasHook("arena", "sub"))
}

func TestManager_CallHook_MissingHook_NoOp(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadScope("arena", writeTempLua(t, "empty.lua", `-- nothing`), 0))
	ret, err := mgr.CallHook("arena", "nonexistent_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_UnknownScope_LogsInfoReturnsNil(t *testing.T) {
	mgr, logs := newTestManager(t)
	ret, err := mgr.CallHook("no_such_arena", "some_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.True(t, hasLevel(logs, zap.InfoLevel), "expected Info log for missing scope")
}

func TestManager_CallHook_RuntimeError_WarnLogNoPanic(t *testing.T) {
	mgr, logs := newTestManager(t)
	dir := writeTempLua(t, "bad.lua", `
		function bad_hook()
			error("intentional error")
		end
	`)
	require.NoError(t, mgr.LoadScope("arena", dir, 0))
	ret, err := mgr.CallHook("arena", "bad_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.True(t, hasLevel(logs, zap.WarnLevel), "expected Warn log for Lua runtime error")
}

func TestManager_RunawayHookDoesNotPoisonLaterCalls(t *testing.T) {
	mgr, logs := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function spin()
			while true do end
		end
		function answer()
			return 42
		end
	`)
	require.NoError(t, mgr.LoadScope("arena", dir, 500))

	ret, err := mgr.CallHook("arena", "spin")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.True(t, hasLevel(logs, zap.WarnLevel))

	for i := 0; i < 3; i++ {
		ret, err = mgr.CallHook("arena", "answer")
		require.NoError(t, err)
		assert.Equal(t, lua.LNumber(42), ret)
	}
}

func TestManager_LoadGlobal_CallHookFallback(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadGlobal(writeTempLua(t, "global.lua", `
		function global_hook()
			return 42
		end
	`), 0))
	ret, err := mgr.CallHook("unknown_arena", "global_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(42), ret)
}

func TestManager_LoadScope_EmptyDir_NoError(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadScope("empty", t.TempDir(), 0))
	ret, err := mgr.CallHook("empty", "anything")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_LoadScope_InvalidLua_KeepsPreviousVM(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadScope("arena", writeTempLua(t, "ok.lua", `function v() return 1 end`), 0))
	assert.Error(t, mgr.LoadScope("arena", writeTempLua(t, "bad.lua", `this is not valid lua @@@@`), 0))
	ret, err := mgr.CallHook("arena", "v")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(1), ret)
}

func TestManager_LoadScope_MissingDir(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.Error(t, mgr.LoadScope("arena", filepath.Join(t.TempDir(), "absent"), 0))
}

func TestManager_LoadScope_MultipleFiles_OrderedByName(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`base_val = 10`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`
		function get_val() return base_val end
	`), 0o644))
	require.NoError(t, mgr.LoadScope("ordered", dir, 0))
	ret, err := mgr.CallHook("ordered", "get_val")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(10), ret)
}

func TestManager_Close_ReleasesScopes(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadScope("arena", writeTempLua(t, "init.lua", `function get_x() return 1 end`), 0))
	mgr.Close()
	ret, err := mgr.CallHook("arena", "get_x")
	assert.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestNewManager_PanicsOnNilRoller(t *testing.T) {
	assert.Panics(t, func() { scripting.NewManager(nil, zap.NewNop()) })
}

func TestNewManager_PanicsOnNilLogger(t *testing.T) {
	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), zap.NewNop())
	assert.Panics(t, func() { scripting.NewManager(roller, nil) })
}

func TestManager_ConcurrentCallsSameScope(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadScope("arena", writeTempLua(t, "hooks.lua", `
		function add(a, b) return a + b end
	`), 0))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				ret, err := mgr.CallHook("arena", "add", lua.LNumber(1), lua.LNumber(2))
				assert.NoError(t, err)
				assert.Equal(t, lua.LNumber(3), ret)
			}
		}()
	}
	wg.Wait()
}

func TestProperty_CallHookMissingScopeNeverPanics(t *testing.T) {
	mgr, _ := newTestManager(t)
	rapid.Check(t, func(rt *rapid.T) {
		scope := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "scope")
		hook := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "hook")
		ret, err := mgr.CallHook(scope, hook)
		if err != nil || ret != lua.LNil {
			rt.Fatalf("expected (nil, nil), got (%v, %v)", ret, err)
		}
	})
}
