package world

import (
	"time"

	"github.com/marcaocj/R1/internal/game/actor"
	"github.com/marcaocj/R1/internal/game/ai"
	"github.com/marcaocj/R1/internal/game/enemy"
	"github.com/marcaocj/R1/internal/game/geom"
)

// Enemy is one spawned enemy: its stats, behaviour controller and body. It
// implements actor.Damageable, actor.Stunnable, actor.Knockbackable and
// ai.Ally.
type Enemy struct {
	id        string
	spawnIdx  int
	tmpl      *enemy.Template
	stats     *enemy.Stats
	brain     *ai.Controller
	body      *Body
	presenter *logPresenter
	eye       float64
}

func (e *Enemy) ID() string          { return e.id }
func (e *Enemy) Tag() actor.Tag      { return actor.TagEnemy }
func (e *Enemy) Name() string        { return e.tmpl.Name }
func (e *Enemy) Level() int          { return e.stats.Level() }
func (e *Enemy) Faction() string     { return e.tmpl.Faction }
func (e *Enemy) EyeHeight() float64  { return e.eye }
func (e *Enemy) Position() geom.Vec3 { return e.body.Position() }
func (e *Enemy) Facing() float64     { return e.body.Yaw() }

// TakeDamage routes hit through the enemy's stats.
func (e *Enemy) TakeDamage(hit actor.Hit) bool { return e.stats.TakeDamage(hit) }

// IsAlive reports whether the enemy can still be hurt.
func (e *Enemy) IsAlive() bool { return e.stats.IsAlive() }

// Stun stuns the enemy's controller for d.
func (e *Enemy) Stun(d time.Duration) { e.stats.Stun(d) }

// ApplyKnockback pushes the enemy's body.
func (e *Enemy) ApplyKnockback(impulse geom.Vec3) { e.stats.ApplyKnockback(impulse) }

// AlertTo forwards a call for help to the controller.
func (e *Enemy) AlertTo(pos geom.Vec3) bool {
	if !e.stats.IsAlive() {
		return false
	}
	return e.brain.AlertTo(pos)
}

// Stats returns the enemy's health and death authority.
func (e *Enemy) Stats() *enemy.Stats { return e.stats }

// Brain returns the enemy's behaviour controller.
func (e *Enemy) Brain() *ai.Controller { return e.brain }

// Body returns the enemy's physics body.
func (e *Enemy) Body() *Body { return e.body }

// SpawnIndex is the arena spawn point the enemy came from.
func (e *Enemy) SpawnIndex() int { return e.spawnIdx }

func (e *Enemy) tick(dt time.Duration) {
	e.stats.Tick(dt)
	e.brain.Tick(dt)
}
