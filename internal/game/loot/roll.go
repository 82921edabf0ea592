package loot

import (
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marcaocj/R1/internal/game/actor"
	"github.com/marcaocj/R1/internal/game/dice"
	"github.com/marcaocj/R1/internal/game/geom"
)

// Killer describes who landed the killing blow, as far as loot cares.
type Killer struct {
	Present  bool
	ByPlayer bool
	Level    int
}

// KillerOf builds a Killer from the recorded last attacker, which may be nil.
func KillerOf(a actor.Actor) Killer {
	if a == nil {
		return Killer{Level: 1}
	}
	return Killer{Present: true, ByPlayer: actor.IsPlayer(a), Level: actor.LevelOf(a)}
}

// ChanceHook may adjust an entry's chance after gating and before clamping.
type ChanceHook func(item string, chance float64, killerLevel int, byPlayer bool) float64

// Drop is one rolled item instance.
type Drop struct {
	InstanceID string
	Item       string
	Quantity   int
}

// Handle identifies a spawned world item.
type Handle string

// Spawner places dropped items into the world.
type Spawner interface {
	SpawnWorldItem(item string, quantity int, pos geom.Vec3) Handle
}

// Roller evaluates tables against a dice source.
type Roller struct {
	dice   *dice.Roller
	hook   ChanceHook
	logger *zap.Logger
}

// NewRoller creates a Roller. hook may be nil.
//
// Precondition: d must be non-nil.
func NewRoller(d *dice.Roller, hook ChanceHook, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{dice: d, hook: hook, logger: logger}
}

// Chance returns the final drop chance of e for k, and false when a gate
// (player-kill requirement or level window) excludes the entry outright.
//
// Postcondition: when the second result is true the chance is in [0, 1].
func (r *Roller) Chance(e Entry, k Killer) (float64, bool) {
	if e.Item == "" {
		return 0, false
	}
	if e.RequiresPlayerKill() && k.Present && !k.ByPlayer {
		return 0, false
	}
	if k.ByPlayer {
		lo, hi := e.LevelBounds()
		if k.Level < lo || k.Level > hi {
			return 0, false
		}
	}
	chance := e.DropChance
	if e.Rare {
		chance += e.RareBonusChance
	}
	if r.hook != nil {
		chance = r.hook(e.Item, chance, k.Level, k.ByPlayer)
	}
	return math.Min(1, math.Max(0, chance)), true
}

// ShouldDrop rolls e once for k. A roll is uniform in [0, 1) and drops when it
// is strictly below the chance, so 1.0 always drops and 0.0 never does.
func (r *Roller) ShouldDrop(e Entry, k Killer) bool {
	chance, ok := r.Chance(e, k)
	if !ok || chance <= 0 {
		return false
	}
	return r.dice.Chance("loot:"+e.Item) < chance
}

// Roll evaluates every entry of t independently.
func (r *Roller) Roll(t Table, k Killer) []Drop {
	var drops []Drop
	for _, e := range t {
		if !r.ShouldDrop(e, k) {
			continue
		}
		expr, err := e.quantityExpr()
		if err != nil {
			r.logger.Warn("loot entry has invalid quantity", zap.String("item", e.Item), zap.Error(err))
			continue
		}
		qty := max(1, r.dice.Quantity("loot_qty:"+e.Item, expr).Total())
		drops = append(drops, Drop{InstanceID: uuid.New().String(), Item: e.Item, Quantity: qty})
	}
	return drops
}

// Spawn places each drop at pos through s and returns the handles.
func Spawn(s Spawner, drops []Drop, pos geom.Vec3) []Handle {
	if s == nil {
		return nil
	}
	handles := make([]Handle, 0, len(drops))
	for _, d := range drops {
		handles = append(handles, s.SpawnWorldItem(d.Item, d.Quantity, pos))
	}
	return handles
}
