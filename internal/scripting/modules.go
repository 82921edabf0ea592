package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/marcaocj/R1/internal/game/dice"
)

// RegisterModules installs the engine table into L:
//
//	engine.log.debug/info/warn/error(msg)
//	engine.dice.roll(expr) -> {total, dice, modifier}
//	engine.dice.chance() -> number in [0, 1)
//
// Precondition: L must be from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L))
	L.SetField(engine, "dice", m.diceModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	scriptLog := m.logger.Named("lua")
	levels := map[string]func(string, ...zap.Field){
		"debug": scriptLog.Debug,
		"info":  scriptLog.Info,
		"warn":  scriptLog.Warn,
		"error": scriptLog.Error,
	}
	mod := L.NewTable()
	for name, fn := range levels {
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1))
			return 0
		}))
	}
	return mod
}

func (m *Manager) diceModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "roll", L.NewFunction(func(L *lua.LState) int {
		raw := L.CheckString(1)
		expr, err := dice.Parse(raw)
		if err != nil {
			L.RaiseError("engine.dice.roll: %s", err.Error())
			return 0
		}
		res := m.roller.Quantity("lua:"+raw, expr)
		sum := 0
		for _, d := range res.Dice {
			sum += d
		}
		out := L.NewTable()
		L.SetField(out, "total", lua.LNumber(res.Total()))
		L.SetField(out, "dice", lua.LNumber(sum))
		L.SetField(out, "modifier", lua.LNumber(res.Modifier))
		L.Push(out)
		return 1
	}))
	L.SetField(mod, "chance", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(m.roller.Chance("lua:chance")))
		return 1
	}))
	return mod
}
