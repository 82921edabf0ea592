package player

import (
	"time"

	"go.uber.org/zap"

	"github.com/marcaocj/R1/internal/game/actor"
	"github.com/marcaocj/R1/internal/game/event"
	"github.com/marcaocj/R1/internal/game/geom"
	"github.com/marcaocj/R1/internal/game/schedule"
	"github.com/marcaocj/R1/internal/game/stats"
)

// Player is the player-controlled actor. It embeds its Stats, so it is an
// actor.Damageable and a combat.Attacker.
type Player struct {
	*Stats

	id    string
	name  string
	clock schedule.Clock
	move  actor.MovementController

	pos          geom.Vec3
	yaw          float64
	stunnedUntil time.Time
}

// New creates the player with fresh stats and subscribes them to the bus.
func New(id, name string, base stats.Base, bus *event.Bus, clock schedule.Clock, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Player{
		Stats: NewStats(base, bus, clock, logger.With(zap.String("player", id))),
		id:    id,
		name:  name,
		clock: clock,
	}
	p.Stats.Subscribe()
	return p
}

func (p *Player) ID() string          { return p.id }
func (p *Player) Name() string        { return p.name }
func (p *Player) Tag() actor.Tag      { return actor.TagPlayer }
func (p *Player) Position() geom.Vec3 { return p.pos }
func (p *Player) Facing() float64     { return p.yaw }

// SetPose is called by the world after every physics step.
func (p *Player) SetPose(pos geom.Vec3, yaw float64) {
	p.pos = pos
	p.yaw = geom.NormalizeYaw(yaw)
}

// SetMovement attaches the body that receives knockback.
func (p *Player) SetMovement(m actor.MovementController) { p.move = m }

// Movement returns the attached movement controller, possibly nil.
func (p *Player) Movement() actor.MovementController { return p.move }

// IsStunned reports whether a stun is running.
func (p *Player) IsStunned() bool {
	return p.clock.Now().Before(p.stunnedUntil)
}

// Stun extends the stun to at least d from now.
func (p *Player) Stun(d time.Duration) {
	if !p.IsAlive() || d <= 0 {
		return
	}
	if until := p.clock.Now().Add(d); until.After(p.stunnedUntil) {
		p.stunnedUntil = until
	}
}

// ApplyKnockback pushes the player's body while alive.
func (p *Player) ApplyKnockback(impulse geom.Vec3) {
	if !p.IsAlive() || p.move == nil {
		return
	}
	p.move.ApplyKnockback(impulse)
}
