package ai

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/looplab/fsm"
	"github.com/tanema/gween"
	"go.uber.org/zap"

	"github.com/marcaocj/R1/internal/game/actor"
	"github.com/marcaocj/R1/internal/game/dice"
	"github.com/marcaocj/R1/internal/game/geom"
	"github.com/marcaocj/R1/internal/game/schedule"
)

// HealthSource is the controller's read-only view of its own stats.
type HealthSource interface {
	IsAlive() bool
	HealthFraction() float64
}

// Ally is a nearby actor that can be alerted by a call for help.
type Ally interface {
	actor.Actor
	Faction() string
	AlertTo(pos geom.Vec3) bool
}

// Config is the static setup of one controller.
type Config struct {
	Tuning    Tuning
	Faction   string
	Spawn     geom.Vec3
	Waypoints []geom.Vec3
}

// Deps are the collaborators a controller drives. Movement and Perception may
// be nil; the controller then degrades to standing still and seeing nothing.
type Deps struct {
	Movement   actor.MovementController
	Perception actor.PerceptionQuery
	Queue      *schedule.Queue
	Clock      schedule.Clock
	Dice       *dice.Roller
	// Animator receives the presentation snapshot at the end of every tick.
	Animator Animator
	Logger   *zap.Logger
}

// Animator is the visual sync stage of a tick.
type Animator interface {
	Animate(Animation)
}

// Animation is the per-tick presentation snapshot of a controller.
type Animation struct {
	State    State
	Speed    float64
	InCombat bool
	Alert    bool
}

type searchPhase int

const (
	searchMoving searchPhase = iota
	searchTurning
	searchPausing
	searchDone
)

type searchProgress struct {
	phase searchPhase
	turns int
	tween *gween.Tween
}

// Controller is the behaviour state machine of one enemy.
//
// Invariant: once dead is set no transition other than into Dead is accepted
// and no movement or attack intent is issued.
//
// Not safe for concurrent use; the tick driver serialises every call.
type Controller struct {
	self    actor.Actor
	health  HealthSource
	cfg     Config
	tuning  Tuning
	move    actor.MovementController
	percept actor.PerceptionQuery
	queue   *schedule.Queue
	clock   schedule.Clock
	dice    *dice.Roller
	anim    Animator
	logger  *zap.Logger
	machine *fsm.FSM

	target actor.Damageable

	lastKnown   geom.Vec3
	lastChange  time.Time
	lastAttack  time.Time
	combatTimer time.Duration

	patrolIdx     int
	patrolWaiting bool
	alertElapsed  bool
	search        searchProgress
	turn          *gween.Tween
	turnGoal      float64

	stunRestore State
	stunHandle  schedule.Handle

	dead    bool
	enabled bool
}

// New builds a controller in Idle. Call Start once the actor is placed.
//
// Precondition: self, health, deps.Queue, deps.Clock and deps.Dice are non-nil.
func New(self actor.Actor, health HealthSource, cfg Config, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		self:    self,
		health:  health,
		cfg:     cfg,
		tuning:  cfg.Tuning.WithDefaults(),
		move:    deps.Movement,
		percept: deps.Perception,
		queue:   deps.Queue,
		clock:   deps.Clock,
		dice:    deps.Dice,
		anim:    deps.Animator,
		logger:  logger.With(zap.String("enemy", self.ID())),
		enabled: true,
	}
	c.machine = fsm.NewFSM(string(Idle), machineEvents(), fsm.Callbacks{
		"before_event": c.beforeEvent,
		"leave_state":  c.leaveState,
		"enter_state":  c.enterState,
	})
	return c
}

// Start enters Patrol when waypoints exist, otherwise settles in Idle. The
// initial Idle is not dwell-gated.
func (c *Controller) Start() {
	if len(c.cfg.Waypoints) > 0 {
		c.transition(Patrol, true)
		return
	}
	c.stop()
}

// SetTarget sets the actor this enemy hunts. nil clears it.
func (c *Controller) SetTarget(t actor.Damageable) { c.target = t }

// State returns the current behaviour state.
func (c *Controller) State() State { return State(c.machine.Current()) }

// IsDead reports whether the controller has entered its terminal state.
func (c *Controller) IsDead() bool { return c.dead }

// Enabled reports whether Tick does anything.
func (c *Controller) Enabled() bool { return c.enabled }

// Faction returns the ally group used by calls for help.
func (c *Controller) Faction() string { return c.cfg.Faction }

// LastKnownPosition returns where the target was last observed.
func (c *Controller) LastKnownPosition() geom.Vec3 { return c.lastKnown }

// Disable stops ticking and cancels every pending behaviour.
func (c *Controller) Disable() {
	c.enabled = false
	c.cancelAll()
}

// Tick runs perception, then the current state's behaviour, then hands the
// animation snapshot to the animator. A dead or disabled controller does
// none of them.
func (c *Controller) Tick(dt time.Duration) {
	if c.dead || !c.enabled || !c.health.IsAlive() {
		return
	}
	c.perceive()
	if c.dead {
		return
	}
	c.behave(dt)
	if c.dead || c.anim == nil {
		return
	}
	c.anim.Animate(c.Animation())
}

// Animation reports what the presentation layer should show this tick.
func (c *Controller) Animation() Animation {
	st := c.State()
	a := Animation{State: st, InCombat: st == Combat, Alert: st == Alert || st == Search}
	if c.move != nil && !c.dead && c.tuning.MoveSpeed > 0 {
		a.Speed = c.move.CurrentSpeed() / c.tuning.MoveSpeed
	}
	return a
}

// Stun suspends movement and attacks for d, then restores the prior state.
// A second stun while stunned restarts the timer and keeps the restore target.
func (c *Controller) Stun(d time.Duration) {
	if c.dead || d <= 0 {
		return
	}
	now := c.clock.Now()
	if c.State() == Stunned {
		c.queue.Cancel(c.stunHandle)
	} else {
		prev := c.State()
		if !c.transition(Stunned, true) {
			return
		}
		c.stunRestore = prev
	}
	c.stunHandle = c.queue.After(now, d, c.group(Stunned), func(time.Time) {
		if c.dead {
			return
		}
		c.transition(c.stunRestore, true)
	})
}

// OnDamageTaken reacts to a landed hit: the enemy engages in Combat, or
// queues Combat as the post-stun state when stunned.
func (c *Controller) OnDamageTaken(amount float64, source geom.Vec3, attacker actor.Actor) {
	if c.dead {
		return
	}
	if attacker != nil {
		c.lastKnown = attacker.Position()
	} else {
		c.lastKnown = source
	}
	switch c.State() {
	case Stunned:
		c.stunRestore = Combat
	case Combat:
	default:
		c.transition(Combat, false)
	}
	c.logger.Debug("enemy took damage", zap.Float64("amount", amount), zap.String("state", string(c.State())))
	if c.tuning.CanCallForHelp {
		c.callForHelp()
	}
}

// OnDeath moves the machine into Dead and cancels every pending behaviour.
// Later calls are no-ops.
func (c *Controller) OnDeath() {
	if c.dead {
		return
	}
	c.dead = true
	c.transition(Dead, true)
	c.cancelAll()
	c.enabled = false
}

// AlertTo promotes an idle or patrolling enemy to Alert facing pos.
func (c *Controller) AlertTo(pos geom.Vec3) bool {
	if c.dead {
		return false
	}
	if st := c.State(); st != Idle && st != Patrol {
		return false
	}
	c.lastKnown = pos
	return c.transition(Alert, false)
}

func (c *Controller) callForHelp() {
	if c.percept == nil {
		return
	}
	nearby := c.percept.FindNearbyActors(c.self.Position(), c.tuning.HelpRadius, actor.Except(c.self.ID()))
	for _, a := range nearby {
		ally, ok := a.(Ally)
		if !ok || ally.Faction() != c.cfg.Faction {
			continue
		}
		if ally.AlertTo(c.lastKnown) {
			c.logger.Debug("ally alerted", zap.String("ally", ally.ID()))
		}
	}
}

// transition requests a move into to. Unforced requests are subject to the
// dwell gate; Dead is always forced.
func (c *Controller) transition(to State, forced bool) bool {
	if c.dead && to != Dead {
		return false
	}
	if to == Dead {
		forced = true
	}
	err := c.machine.Event(context.Background(), eventFor(to), transitionOpts{forced: forced})
	if err == nil {
		return true
	}
	var same fsm.NoTransitionError
	if !errors.As(err, &same) {
		c.logger.Debug("ai transition rejected",
			zap.String("from", c.machine.Current()),
			zap.String("to", string(to)),
			zap.Error(err),
		)
	}
	return false
}

func (c *Controller) beforeEvent(_ context.Context, e *fsm.Event) {
	if optsFrom(e.Args).forced || c.lastChange.IsZero() {
		return
	}
	if c.clock.Now().Sub(c.lastChange) < c.tuning.StateChangeDelay {
		e.Cancel(ErrDwell)
	}
}

func (c *Controller) leaveState(_ context.Context, e *fsm.Event) {
	c.queue.CancelGroup(c.group(State(e.Src)))
	c.turn = nil
	c.patrolWaiting = false
	c.alertElapsed = false
	c.search = searchProgress{}
}

func (c *Controller) enterState(_ context.Context, e *fsm.Event) {
	c.lastChange = c.clock.Now()
	c.combatTimer = 0
	c.logger.Debug("ai state change", zap.String("from", e.Src), zap.String("to", e.Dst))
	c.enter(State(e.Dst))
}

func (c *Controller) group(s State) string {
	return "ai:" + c.self.ID() + ":" + string(s)
}

func (c *Controller) cancelAll() {
	for _, s := range liveStates {
		c.queue.CancelGroup(c.group(s))
	}
}

// sense returns whether the target is visible and its planar distance.
func (c *Controller) sense() (visible bool, dist float64) {
	if c.target == nil || !c.target.IsAlive() {
		return false, math.Inf(1)
	}
	dist = c.self.Position().FlatDist(c.target.Position())
	if c.percept != nil {
		visible = c.percept.CanSeeTarget(c.self, c.target)
	}
	return visible, dist
}

// perceive applies the perception-driven transition table.
func (c *Controller) perceive() {
	visible, dist := c.sense()
	t := c.tuning
	switch c.State() {
	case Idle, Patrol:
		if visible && dist <= t.DetectionRange {
			c.lastKnown = c.target.Position()
			c.transition(Alert, false)
		}
	case Alert:
		switch {
		case !visible || dist > t.DetectionRange:
			c.transition(Search, false)
		case dist <= t.AttackRange:
			c.transition(Combat, false)
		case dist <= t.FollowRange:
			c.transition(Chase, false)
		}
	case Chase:
		switch {
		case !visible && dist > t.FollowRange:
			c.transition(Search, false)
		case dist <= t.AttackRange:
			c.transition(Combat, false)
		case dist > t.FollowRange:
			c.transition(Return, false)
		}
	case Combat:
		if dist > t.AttackRange*1.5 {
			if visible && dist <= t.FollowRange {
				c.transition(Chase, false)
			} else {
				c.transition(Search, false)
			}
			return
		}
		if t.ShouldFlee && c.health.HealthFraction() <= t.FleeHealthThreshold {
			c.transition(Return, false)
		}
	case Search:
		if visible && dist <= t.DetectionRange {
			c.lastKnown = c.target.Position()
			c.transition(Alert, false)
		}
	}
}
