// Package loot defines enemy loot tables and the per-entry drop roll made at
// death time.
package loot

import (
	"fmt"

	"github.com/marcaocj/R1/internal/game/dice"
)

const (
	defaultMinPlayerLevel = 1
	defaultMaxPlayerLevel = 999
)

// Entry is one independently rolled line of a loot table.
type Entry struct {
	Item string `yaml:"item"`
	// Quantity is a constant ("2") or dice expression ("1d3+1"). Empty means 1.
	Quantity             string  `yaml:"quantity"`
	DropChance           float64 `yaml:"drop_chance"`
	MinPlayerLevel       int     `yaml:"min_player_level"`
	MaxPlayerLevel       int     `yaml:"max_player_level"`
	OnlyIfKilledByPlayer *bool   `yaml:"only_if_killed_by_player"`
	Rare                 bool    `yaml:"rare"`
	RareBonusChance      float64 `yaml:"rare_bonus_chance"`
}

// RequiresPlayerKill reports the effective only_if_killed_by_player flag,
// which defaults to true.
func (e Entry) RequiresPlayerKill() bool {
	return e.OnlyIfKilledByPlayer == nil || *e.OnlyIfKilledByPlayer
}

// LevelBounds returns the effective inclusive player level window.
func (e Entry) LevelBounds() (lo, hi int) {
	lo, hi = e.MinPlayerLevel, e.MaxPlayerLevel
	if lo == 0 {
		lo = defaultMinPlayerLevel
	}
	if hi == 0 {
		hi = defaultMaxPlayerLevel
	}
	return lo, hi
}

func (e Entry) quantityExpr() (dice.Expression, error) {
	if e.Quantity == "" {
		return dice.Expression{Raw: "1", Modifier: 1}, nil
	}
	return dice.Parse(e.Quantity)
}

// Table is an ordered list of entries owned by an enemy template.
type Table []Entry

// Validate checks every entry and returns the first violation.
//
// Postcondition: Returns nil iff every entry has an item, a chance in [0, 1],
// a parseable quantity and a non-inverted level window. An empty table is valid.
func (t Table) Validate() error {
	for i, e := range t {
		if e.Item == "" {
			return fmt.Errorf("loot table: entry[%d] must have a non-empty item", i)
		}
		if e.DropChance < 0 || e.DropChance > 1 {
			return fmt.Errorf("loot table: entry[%d] drop_chance must be in [0, 1], got %f", i, e.DropChance)
		}
		if e.RareBonusChance < 0 {
			return fmt.Errorf("loot table: entry[%d] rare_bonus_chance must be >= 0, got %f", i, e.RareBonusChance)
		}
		lo, hi := e.LevelBounds()
		if lo > hi {
			return fmt.Errorf("loot table: entry[%d] min_player_level (%d) must be <= max_player_level (%d)", i, lo, hi)
		}
		if _, err := e.quantityExpr(); err != nil {
			return fmt.Errorf("loot table: entry[%d] quantity: %w", i, err)
		}
	}
	return nil
}
