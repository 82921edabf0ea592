package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/marcaocj/R1/internal/game/enemy"
	"github.com/marcaocj/R1/internal/game/loot"
)

// Hook names looked up in the arena scripts.
const (
	// loot_chance(item, chance, killer_level, by_player) -> number|nil
	HookLootChance = "loot_chance"
	// on_enemy_death(report)
	HookEnemyDeath = "on_enemy_death"
)

// LootChanceHook adapts the loot_chance Lua function to a loot.ChanceHook.
// A missing hook, an error or a non-number result keeps the incoming chance.
func (m *Manager) LootChanceHook(scope string) loot.ChanceHook {
	return func(item string, chance float64, killerLevel int, byPlayer bool) float64 {
		ret, _ := m.CallHook(scope, HookLootChance,
			lua.LString(item), lua.LNumber(chance), lua.LNumber(killerLevel), lua.LBool(byPlayer))
		if n, ok := ret.(lua.LNumber); ok {
			return float64(n)
		}
		return chance
	}
}

// DeathHook adapts the on_enemy_death Lua function to an enemy.DeathHook. The
// report is passed as a table:
//
//	{enemy_id, template_id, name, level, x, y, z, killer_id, by_player,
//	 drops = {{item, quantity}, ...}}
func (m *Manager) DeathHook(scope string) enemy.DeathHook {
	return func(r enemy.DeathReport) {
		m.CallHookWith(scope, HookEnemyDeath, func(L *lua.LState) []lua.LValue { //nolint:errcheck
			return []lua.LValue{reportTable(L, r)}
		})
	}
}

func reportTable(L *lua.LState, r enemy.DeathReport) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "enemy_id", lua.LString(r.EnemyID))
	L.SetField(t, "template_id", lua.LString(r.TemplateID))
	L.SetField(t, "name", lua.LString(r.Name))
	L.SetField(t, "level", lua.LNumber(r.Level))
	L.SetField(t, "x", lua.LNumber(r.Position.X))
	L.SetField(t, "y", lua.LNumber(r.Position.Y))
	L.SetField(t, "z", lua.LNumber(r.Position.Z))
	L.SetField(t, "killer_id", lua.LString(r.KillerID))
	L.SetField(t, "by_player", lua.LBool(r.ByPlayer))
	drops := L.NewTable()
	for _, d := range r.Drops {
		dt := L.NewTable()
		L.SetField(dt, "item", lua.LString(d.Item))
		L.SetField(dt, "quantity", lua.LNumber(d.Quantity))
		drops.Append(dt)
	}
	L.SetField(t, "drops", drops)
	return t
}
