package ai

import (
	"math"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/marcaocj/R1/internal/game/actor"
	"github.com/marcaocj/R1/internal/game/geom"
)

// enter sets up the behaviour of a freshly entered state.
func (c *Controller) enter(s State) {
	now := c.clock.Now()
	switch s {
	case Idle, Stunned:
		c.stop()
	case Patrol:
		c.patrolWaiting = false
		c.headToWaypoint()
	case Alert:
		c.queue.After(now, c.tuning.AlertReaction, c.group(Alert), func(time.Time) {
			if !c.dead && c.State() == Alert {
				c.alertElapsed = true
			}
		})
	case Combat:
		c.stop()
	case Search:
		c.search = searchProgress{phase: searchMoving}
		c.moveTo(c.lastKnown, false)
	case Return:
		c.moveTo(c.cfg.Spawn, false)
	case Dead:
		c.cancelAll()
	}
}

// behave runs one tick of the current state.
func (c *Controller) behave(dt time.Duration) {
	switch c.State() {
	case Patrol:
		c.tickPatrol()
	case Alert:
		c.turnToward(c.lastKnown, dt)
		if c.alertElapsed {
			c.transition(Chase, false)
		}
	case Chase:
		if c.target != nil {
			p := c.target.Position()
			c.lastKnown = p
			c.moveTo(p, true)
		}
	case Combat:
		c.tickCombat(dt)
	case Search:
		c.tickSearch(dt)
	case Return:
		if c.self.Position().FlatDist(c.cfg.Spawn) < c.tuning.ReturnArrival {
			if len(c.cfg.Waypoints) > 0 {
				c.transition(Patrol, false)
			} else {
				c.transition(Idle, false)
			}
		}
	}
}

func (c *Controller) headToWaypoint() {
	if len(c.cfg.Waypoints) == 0 {
		return
	}
	c.moveTo(c.cfg.Waypoints[c.patrolIdx], false)
}

func (c *Controller) tickPatrol() {
	if len(c.cfg.Waypoints) == 0 || c.patrolWaiting {
		return
	}
	wp := c.cfg.Waypoints[c.patrolIdx]
	if c.self.Position().FlatDist(wp) > c.tuning.StoppingDistance {
		return
	}
	c.patrolWaiting = true
	c.stop()
	c.queue.After(c.clock.Now(), c.tuning.PatrolWait, c.group(Patrol), func(time.Time) {
		if c.dead || c.State() != Patrol {
			return
		}
		if c.tuning.RandomPatrol {
			c.patrolIdx = c.dice.Intn("patrol:"+c.self.ID(), len(c.cfg.Waypoints))
		} else {
			c.patrolIdx = (c.patrolIdx + 1) % len(c.cfg.Waypoints)
		}
		c.patrolWaiting = false
		c.headToWaypoint()
	})
}

func (c *Controller) tickCombat(dt time.Duration) {
	now := c.clock.Now()
	if c.target != nil {
		c.stop()
		c.lookAt(c.target.Position())
		if now.Sub(c.lastAttack) >= c.tuning.AttackCooldown {
			c.beginAttack(now, c.target)
		}
	}
	c.combatTimer += dt
	if c.combatTimer >= c.tuning.CombatTimeout {
		c.transition(Search, false)
	}
}

// beginAttack starts the windup; damage lands when it elapses, provided both
// actors are still alive and the target is still in reach.
func (c *Controller) beginAttack(now time.Time, target actor.Damageable) {
	c.lastAttack = now
	c.queue.After(now, c.tuning.AttackWindup, c.group(Combat), func(time.Time) {
		if c.dead || !c.health.IsAlive() || !target.IsAlive() {
			return
		}
		if c.self.Position().FlatDist(target.Position()) > c.tuning.AttackRange {
			return
		}
		target.TakeDamage(actor.Hit{
			Amount:   c.tuning.AttackDamage,
			Type:     c.tuning.AttackDamageType,
			Attacker: c.self,
		})
	})
}

func (c *Controller) tickSearch(dt time.Duration) {
	switch c.search.phase {
	case searchMoving:
		if c.self.Position().FlatDist(c.lastKnown) > c.tuning.StoppingDistance {
			return
		}
		c.stop()
		c.startSearchTurn()
	case searchTurning:
		yaw, done := c.search.tween.Update(float32(dt.Seconds()))
		c.lookYaw(float64(yaw))
		if !done {
			return
		}
		c.search.phase = searchPausing
		c.queue.After(c.clock.Now(), c.tuning.SearchPause, c.group(Search), func(time.Time) {
			if c.dead || c.State() != Search {
				return
			}
			c.search.turns++
			c.startSearchTurn()
		})
	case searchDone:
		c.transition(Return, false)
	}
}

func (c *Controller) startSearchTurn() {
	if c.search.turns >= c.tuning.SearchRotations {
		c.search.phase = searchDone
		return
	}
	from := float32(c.self.Facing())
	c.search.tween = gween.New(from, from+float32(c.tuning.SearchTurnDegrees), float32(c.tuning.SearchTurnTime.Seconds()), ease.Linear)
	c.search.phase = searchTurning
}

// turnToward eases the facing towards pos at the configured rotation speed.
func (c *Controller) turnToward(pos geom.Vec3, dt time.Duration) {
	dir := pos.Sub(c.self.Position()).Flat()
	if dir == geom.Zero {
		return
	}
	desired := geom.YawOf(dir)
	if c.turn == nil || math.Abs(geom.ShortestTurn(c.turnGoal, desired)) > 1 {
		from := c.self.Facing()
		delta := geom.ShortestTurn(from, desired)
		secs := math.Abs(delta) / c.tuning.RotationSpeed
		if secs <= 0 {
			c.lookYaw(desired)
			return
		}
		c.turn = gween.New(float32(from), float32(from+delta), float32(secs), ease.InOutQuad)
		c.turnGoal = desired
	}
	yaw, done := c.turn.Update(float32(dt.Seconds()))
	c.lookYaw(float64(yaw))
	if done {
		c.turn = nil
	}
}

func (c *Controller) lookYaw(yaw float64) {
	c.lookAt(c.self.Position().Add(geom.Forward(yaw)))
}

func (c *Controller) moveTo(pos geom.Vec3, running bool) {
	if c.move == nil || c.dead {
		return
	}
	c.move.SetRunning(running)
	c.move.MoveTo(pos)
}

func (c *Controller) stop() {
	if c.move == nil || c.dead {
		return
	}
	c.move.StopMovement()
}

func (c *Controller) lookAt(pos geom.Vec3) {
	if c.move == nil || c.dead {
		return
	}
	c.move.LookAt(pos)
}
