package world

import (
	"time"

	"go.uber.org/zap"

	"github.com/marcaocj/R1/internal/game/actor"
	"github.com/marcaocj/R1/internal/game/combat"
	"github.com/marcaocj/R1/internal/game/damage"
	"github.com/marcaocj/R1/internal/game/projectile"
	"github.com/marcaocj/R1/internal/game/stats"
)

// AutopilotConfig tunes the scripted player used by headless runs.
type AutopilotConfig struct {
	SightRange   float64
	PickupRadius float64
	// RunDistance is the distance above which the player runs to its target.
	RunDistance float64

	Bolt         projectile.Config
	BoltManaCost float64
	BoltCooldown time.Duration
	// BoltMinRange keeps the player from casting at point-blank targets.
	BoltMinRange float64

	// Consumables maps picked-up item ids to the buff applied on pickup.
	Consumables map[string]stats.Modifier
}

// DefaultAutopilot returns the stock autopilot: melee with a heavy finisher
// on the third combo hit and a magic bolt at range.
func DefaultAutopilot() AutopilotConfig {
	return AutopilotConfig{
		SightRange:   15,
		PickupRadius: 1,
		RunDistance:  6,
		Bolt: projectile.Config{
			Speed:      12,
			Lifetime:   2 * time.Second,
			Damage:     20,
			DamageType: damage.Magic,
		},
		BoltManaCost: 15,
		BoltCooldown: 3 * time.Second,
		BoltMinRange: 5,
		Consumables: map[string]stats.Modifier{
			"minor_health_potion": {Stat: stats.MaxHealth, Value: 20, Duration: 30 * time.Second, Source: "potion"},
			"wolf_fang":           {Stat: stats.Damage, Value: 10, Duration: 20 * time.Second, Source: "trophy", Percentage: true},
		},
	}
}

// Autopilot chases the nearest visible enemy, fights it and collects loot.
// It implements Pilot.
type Autopilot struct {
	w      *World
	combat *combat.Combat
	cfg    AutopilotConfig
	logger *zap.Logger

	lastBolt time.Time
	pickups  int
}

// NewAutopilot drives w's player with cmb.
//
// Precondition: w.SpawnPlayer has been called; cmb was built for that player.
func NewAutopilot(w *World, cmb *combat.Combat, cfg AutopilotConfig, logger *zap.Logger) *Autopilot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Autopilot{w: w, combat: cmb, cfg: cfg, logger: logger}
}

// Pickups returns the number of items collected.
func (a *Autopilot) Pickups() int { return a.pickups }

// Tick picks a target and issues one movement or attack intent.
func (a *Autopilot) Tick(time.Duration) {
	p, body := a.w.player, a.w.playerBody
	if p == nil || !p.IsAlive() || p.IsStunned() {
		return
	}
	for _, it := range a.w.items.PickupNear(p.Position(), a.cfg.PickupRadius) {
		a.pickups++
		a.logger.Info("item picked up", zap.String("item", it.Item), zap.Int("quantity", it.Quantity))
		if buff, ok := a.cfg.Consumables[it.Item]; ok {
			p.AddModifier(buff)
		}
	}

	target := a.nearestEnemy()
	if target == nil {
		body.StopMovement()
		return
	}
	pos := target.Position()
	dist := p.Position().FlatDist(pos)
	profile := a.chooseProfile()

	if dist > profile.Range*0.8 {
		if dist >= a.cfg.BoltMinRange {
			a.tryBolt(target)
		}
		body.SetRunning(dist > a.cfg.RunDistance)
		body.MoveTo(pos)
		return
	}

	body.StopMovement()
	body.LookAt(pos)
	a.w.syncPlayer()
	if !a.combat.Ready() {
		return
	}
	a.combat.PerformAttack(profile)
}

func (a *Autopilot) chooseProfile() combat.Profile {
	if a.combat.Combo() == 2 && a.w.player.Mana() >= combat.Heavy.ManaCost {
		return combat.Heavy
	}
	return combat.Basic
}

func (a *Autopilot) tryBolt(target actor.Actor) {
	now := a.w.opts.Clock.Now()
	if !a.lastBolt.IsZero() && now.Sub(a.lastBolt) < a.cfg.BoltCooldown {
		return
	}
	p := a.w.player
	if !p.SpendMana(a.cfg.BoltManaCost) {
		return
	}
	a.lastBolt = now
	a.w.Launch(a.cfg.Bolt, p, target.Position().Sub(p.Position()))
	a.logger.Debug("bolt cast", zap.String("target", target.ID()))
}

// nearestEnemy returns the closest living enemy the player can see.
func (a *Autopilot) nearestEnemy() actor.Damageable {
	p := a.w.player
	alive := func(x actor.Actor) bool {
		d, ok := x.(actor.Damageable)
		return ok && d.IsAlive()
	}
	for _, x := range a.w.FindNearbyActors(p.Position(), a.cfg.SightRange, actor.All(actor.ByTag(actor.TagEnemy), alive)) {
		if a.w.CanSeeTarget(p, x) {
			return x.(actor.Damageable)
		}
	}
	return nil
}
