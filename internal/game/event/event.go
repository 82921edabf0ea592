// Package event is the process-wide publish/subscribe bus carrying gameplay
// events between combat, AI, player and presentation code.
package event

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/marcaocj/R1/internal/game/damage"
	"github.com/marcaocj/R1/internal/game/geom"
)

// Channel identifies a stream of events on the bus.
type Channel string

const (
	DamageDealt            Channel = "damage_dealt"
	EnemyDeath             Channel = "enemy_death"
	EnemyKilled            Channel = "enemy_killed"
	PlayerExperienceGained Channel = "player_experience_gained"
	GoldChanged            Channel = "gold_changed"
	PlayerDeath            Channel = "player_death"
	PlayerHealthChanged    Channel = "player_health_changed"
	PlayerManaChanged      Channel = "player_mana_changed"
	PlayerLevelUp          Channel = "player_level_up"
	GamePaused             Channel = "game_paused"
	GameResumed            Channel = "game_resumed"
)

// Event is the envelope delivered to handlers.
type Event struct {
	ID        ulid.ULID
	Channel   Channel
	Timestamp time.Time
	Payload   any
}

// DamageDealtPayload is published once per landed hit by the damaged party.
type DamageDealtPayload struct {
	Amount     float64
	Position   geom.Vec3
	Type       damage.Type
	TargetID   string
	AttackerID string
	Critical   bool
}

// EnemyDeathPayload is published exactly once per enemy death.
type EnemyDeathPayload struct {
	EnemyID  string
	Name     string
	Position geom.Vec3
	KillerID string
	ByPlayer bool
}

// AmountPayload carries experience or gold deltas.
type AmountPayload struct {
	Amount int
}

// ResourcePayload carries a current/max pair for health or mana.
type ResourcePayload struct {
	Current float64
	Max     float64
}

// LevelPayload carries the new level after a level-up.
type LevelPayload struct {
	Level int
}

// NamePayload carries a display name, e.g. for enemy_killed.
type NamePayload struct {
	Name string
}
