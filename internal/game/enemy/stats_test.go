package enemy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/marcaocj/R1/internal/game/actor"
	"github.com/marcaocj/R1/internal/game/damage"
	"github.com/marcaocj/R1/internal/game/dice"
	"github.com/marcaocj/R1/internal/game/enemy"
	"github.com/marcaocj/R1/internal/game/event"
	"github.com/marcaocj/R1/internal/game/geom"
	"github.com/marcaocj/R1/internal/game/loot"
	"github.com/marcaocj/R1/internal/game/schedule"
	"github.com/marcaocj/R1/internal/game/stats"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type body struct {
	id    string
	tag   actor.Tag
	pos   geom.Vec3
	level int
}

func (b *body) ID() string          { return b.id }
func (b *body) Tag() actor.Tag      { return b.tag }
func (b *body) Position() geom.Vec3 { return b.pos }
func (b *body) Facing() float64     { return 0 }
func (b *body) Level() int          { return b.level }

var (
	hero = &body{id: "hero", tag: actor.TagPlayer, level: 3}
	wolf = &body{id: "wolf", tag: actor.TagEnemy, level: 1}
)

type listener struct {
	damaged []float64
	deaths  int
	stuns   []time.Duration
}

func (l *listener) OnDamageTaken(amount float64, _ geom.Vec3, _ actor.Actor) {
	l.damaged = append(l.damaged, amount)
}
func (l *listener) OnDeath()             { l.deaths++ }
func (l *listener) Stun(d time.Duration) { l.stuns = append(l.stuns, d) }

type presenter struct {
	health   []float64
	cues     int
	overlays int
}

func (p *presenter) HealthChanged(current, _ float64) { p.health = append(p.health, current) }
func (p *presenter) PlayDeath()                       { p.cues++ }
func (p *presenter) RemoveOverlay()                   { p.overlays++ }

type corpse struct {
	frozen   int
	impulses []geom.Vec3
}

func (c *corpse) Freeze()                   { c.frozen++ }
func (c *corpse) Ragdoll(impulse geom.Vec3) { c.impulses = append(c.impulses, impulse) }

type despawner struct{ ids []string }

func (d *despawner) Despawn(id string) { d.ids = append(d.ids, id) }

type spawner struct{ at []geom.Vec3 }

func (s *spawner) SpawnWorldItem(item string, _ int, pos geom.Vec3) loot.Handle {
	s.at = append(s.at, pos)
	return loot.Handle(item)
}

// brokenMover panics on every teardown call.
type brokenMover struct{}

func (brokenMover) MoveTo(geom.Vec3)         {}
func (brokenMover) StopMovement()            { panic("agent not on navmesh") }
func (brokenMover) SetRunning(bool)          {}
func (brokenMover) LookAt(geom.Vec3)         {}
func (brokenMover) SetMovementEnabled(bool)  {}
func (brokenMover) ApplyKnockback(geom.Vec3) {}
func (brokenMover) CurrentSpeed() float64    { return 0 }

type fixture struct {
	self      *body
	bus       *event.Bus
	queue     *schedule.Queue
	clock     *schedule.SimClock
	listener  *listener
	presenter *presenter
	corpse    *corpse
	despawner *despawner
	spawner   *spawner
	logs      *observer.ObservedLogs
	stats     *enemy.Stats
}

func grunt() *enemy.Template {
	return &enemy.Template{
		ID:               "grunt",
		Name:             "Grunt",
		Stats:            stats.Base{Level: 1, MaxHealth: 10},
		ExperienceReward: 25,
		GoldReward:       10,
		Corpse:           enemy.Corpse{Lifetime: 5 * time.Second},
	}
}

func newFixture(t *testing.T, tmpl *enemy.Template) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	roller := dice.NewLoggedRoller(dice.NewSeededSource(7), nil)
	f := &fixture{
		self:      &body{id: "grunt-1", tag: actor.TagEnemy, pos: geom.V(4, 0, 4), level: 1},
		bus:       event.NewBus(logger),
		queue:     schedule.NewQueue(),
		clock:     schedule.NewSimClock(t0),
		listener:  &listener{},
		presenter: &presenter{},
		corpse:    &corpse{},
		despawner: &despawner{},
		spawner:   &spawner{},
		logs:      logs,
	}
	f.stats = enemy.NewStats(f.self, tmpl, enemy.Deps{
		Bus:     f.bus,
		Queue:   f.queue,
		Clock:   f.clock,
		Dice:    roller,
		Loot:    loot.NewRoller(roller, nil, nil),
		Spawner: f.spawner,
		Logger:  logger,
	})
	f.stats.SetListener(f.listener)
	f.stats.SetPresenter(f.presenter)
	f.stats.SetCorpse(f.corpse)
	f.stats.SetDespawner(f.despawner)
	return f
}

func (f *fixture) record(ch event.Channel) *[]event.Event {
	var got []event.Event
	f.bus.Subscribe(ch, func(e event.Event) { got = append(got, e) })
	return &got
}

func hit(amount float64, attacker actor.Actor) actor.Hit {
	return actor.Hit{Amount: amount, Type: damage.Physical, Attacker: attacker}
}

func TestStats_OverkillScenario(t *testing.T) {
	f := newFixture(t, grunt())
	deaths := f.record(event.EnemyDeath)
	dealt := f.record(event.DamageDealt)

	require.True(t, f.stats.TakeDamage(hit(15, hero)))

	assert.Zero(t, f.stats.Health())
	assert.False(t, f.stats.IsAlive())
	assert.Equal(t, enemy.Dead, f.stats.Lifecycle())
	require.Len(t, *deaths, 1)
	payload := (*deaths)[0].Payload.(event.EnemyDeathPayload)
	assert.Equal(t, "grunt-1", payload.EnemyID)
	assert.Equal(t, "hero", payload.KillerID)
	assert.True(t, payload.ByPlayer)
	require.Len(t, *dealt, 1)
	assert.Equal(t, 15.0, (*dealt)[0].Payload.(event.DamageDealtPayload).Amount)
}

func TestStats_DamageIsMitigated(t *testing.T) {
	tmpl := grunt()
	tmpl.Stats.MaxHealth = 200
	tmpl.Stats.Armor = 100
	tmpl.Stats.Resistances = damage.Resistances{Fire: 50}
	f := newFixture(t, tmpl)

	f.stats.TakeDamage(hit(100, hero))
	assert.Equal(t, 150.0, f.stats.Health())

	f.stats.TakeDamage(actor.Hit{Amount: 100, Type: damage.Fire, Attacker: hero})
	assert.Equal(t, 100.0, f.stats.Health())

	f.stats.TakeDamage(actor.Hit{Amount: 30, Type: damage.True})
	assert.Equal(t, 70.0, f.stats.Health())
	assert.Same(t, hero, f.stats.LastAttacker(), "a hit without attacker keeps the previous credit")
}

func TestStats_NotifiesListenerAndPresenter(t *testing.T) {
	f := newFixture(t, grunt())

	f.stats.TakeDamage(hit(4, wolf))

	assert.Equal(t, []float64{4}, f.listener.damaged)
	assert.Equal(t, []float64{6}, f.presenter.health)
	assert.Zero(t, f.listener.deaths)
}

func TestStats_RejectsNonPositiveAndInvulnerable(t *testing.T) {
	f := newFixture(t, grunt())
	dealt := f.record(event.DamageDealt)

	assert.False(t, f.stats.TakeDamage(hit(0, hero)))
	assert.False(t, f.stats.TakeDamage(hit(-3, hero)))

	f.stats.SetInvulnerable(time.Second)
	assert.False(t, f.stats.TakeDamage(hit(5, hero)))
	f.stats.Tick(600 * time.Millisecond)
	assert.True(t, f.stats.Invulnerable())
	f.stats.Tick(400 * time.Millisecond)
	assert.False(t, f.stats.Invulnerable())
	assert.True(t, f.stats.TakeDamage(hit(5, hero)))

	assert.Len(t, *dealt, 1)
	assert.Equal(t, 5.0, f.stats.Health())
}

func TestStats_Heal(t *testing.T) {
	f := newFixture(t, grunt())
	f.stats.TakeDamage(hit(6, hero))

	assert.Equal(t, 6.0, f.stats.Heal(100))
	assert.Equal(t, 10.0, f.stats.Health())
	assert.Zero(t, f.stats.Heal(-1))

	f.stats.ForceKill()
	assert.Zero(t, f.stats.Heal(5))
	assert.Zero(t, f.stats.Health())
}

func TestStats_PostDeathIdempotence(t *testing.T) {
	f := newFixture(t, grunt())
	f.stats.TakeDamage(hit(15, hero))
	dealt := f.record(event.DamageDealt)
	deaths := f.record(event.EnemyDeath)

	for range 5 {
		assert.False(t, f.stats.TakeDamage(hit(50, wolf)))
	}
	assert.False(t, f.stats.ForceKill())
	f.stats.SetInvulnerable(time.Second)

	assert.Zero(t, f.stats.Health())
	assert.Same(t, hero, f.stats.LastAttacker())
	assert.Empty(t, *dealt)
	assert.Empty(t, *deaths)
	assert.False(t, f.stats.Invulnerable())
	assert.Equal(t, 1, f.listener.deaths)
}

func TestStats_LethalHitSkipsListener(t *testing.T) {
	f := newFixture(t, grunt())

	f.stats.TakeDamage(hit(15, hero))

	assert.Empty(t, f.listener.damaged)
	assert.Equal(t, 1, f.listener.deaths)
}

func TestStats_ReentrantDamageDiesOnce(t *testing.T) {
	f := newFixture(t, grunt())
	deaths := f.record(event.EnemyDeath)
	f.bus.Subscribe(event.DamageDealt, func(event.Event) {
		f.stats.TakeDamage(hit(8, hero))
		f.stats.ForceKill()
	})
	f.bus.Subscribe(event.EnemyDeath, func(event.Event) {
		f.stats.TakeDamage(hit(8, hero))
		f.stats.ForceKill()
	})

	f.stats.TakeDamage(hit(8, hero))

	assert.Len(t, *deaths, 1)
	assert.Equal(t, 1, f.listener.deaths)
	assert.Equal(t, 1, f.presenter.cues)
	assert.Equal(t, 1, f.queue.Len(), "one despawn scheduled")
}

func TestStats_RewardsForPlayerKill(t *testing.T) {
	f := newFixture(t, grunt())
	xp := f.record(event.PlayerExperienceGained)
	gold := f.record(event.GoldChanged)

	f.stats.TakeDamage(hit(15, hero))

	require.Len(t, *xp, 1)
	require.Len(t, *gold, 1)
	assert.Equal(t, 25, (*xp)[0].Payload.(event.AmountPayload).Amount)
	assert.Equal(t, 10, (*gold)[0].Payload.(event.AmountPayload).Amount)
}

func TestStats_NoRewardsForOtherKillers(t *testing.T) {
	for name, killer := range map[string]actor.Actor{"enemy": wolf, "nobody": nil} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, grunt())
			xp := f.record(event.PlayerExperienceGained)
			gold := f.record(event.GoldChanged)
			killed := f.record(event.EnemyKilled)

			f.stats.TakeDamage(hit(15, killer))

			assert.Empty(t, *xp)
			assert.Empty(t, *gold)
			assert.Len(t, *killed, 1)
		})
	}
}

func TestStats_TeardownOrderAndDespawn(t *testing.T) {
	f := newFixture(t, grunt())

	f.stats.ForceKill()

	assert.Equal(t, 1, f.listener.deaths)
	assert.Equal(t, 1, f.presenter.cues)
	assert.Equal(t, 1, f.presenter.overlays)
	assert.Equal(t, 1, f.corpse.frozen)
	assert.Empty(t, f.corpse.impulses)

	f.queue.Tick(f.clock.Advance(4 * time.Second))
	assert.Empty(t, f.despawner.ids)
	f.queue.Tick(f.clock.Advance(time.Second))
	assert.Equal(t, []string{"grunt-1"}, f.despawner.ids)
}

func TestStats_PanickingTeardownStillCompletes(t *testing.T) {
	f := newFixture(t, grunt())
	f.stats.SetMovement(brokenMover{})

	f.stats.TakeDamage(hit(15, hero))

	assert.Equal(t, enemy.Dead, f.stats.Lifecycle())
	assert.Equal(t, 1, f.listener.deaths)
	assert.Equal(t, 1, f.corpse.frozen)
	warnings := f.logs.FilterMessage("death teardown step failed").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "movement", warnings[0].ContextMap()["step"])
}

func TestStats_RagdollImpulse(t *testing.T) {
	tmpl := grunt()
	tmpl.Corpse.Mode = enemy.CorpseRagdoll
	tmpl.Corpse.RagdollForce = 6
	f := newFixture(t, tmpl)

	f.stats.ForceKill()

	assert.Zero(t, f.corpse.frozen)
	require.Len(t, f.corpse.impulses, 1)
	assert.GreaterOrEqual(t, f.corpse.impulses[0].Y, 0.0)
	assert.LessOrEqual(t, f.corpse.impulses[0].Len(), 6.0+1e-9)
}

func TestStats_LootScatteredAroundCorpse(t *testing.T) {
	tmpl := grunt()
	tmpl.Loot = loot.Table{{Item: "bone", DropChance: 1}, {Item: "tooth", DropChance: 1, Quantity: "2"}}
	f := newFixture(t, tmpl)

	f.stats.TakeDamage(hit(15, hero))

	require.Len(t, f.spawner.at, 2)
	for _, at := range f.spawner.at {
		assert.LessOrEqual(t, at.FlatDist(f.self.pos), 2.0)
	}
}

func TestStats_LootNeedsPlayerKill(t *testing.T) {
	tmpl := grunt()
	tmpl.Loot = loot.Table{{Item: "bone", DropChance: 1}}
	f := newFixture(t, tmpl)

	f.stats.TakeDamage(hit(15, wolf))

	assert.Empty(t, f.spawner.at)
}

func TestStats_StunAndKnockbackOnlyWhileAlive(t *testing.T) {
	f := newFixture(t, grunt())
	f.stats.Stun(time.Second)
	f.stats.ForceKill()
	f.stats.Stun(time.Second)

	assert.Equal(t, []time.Duration{time.Second}, f.listener.stuns)
}

func TestStats_ResetStats(t *testing.T) {
	f := newFixture(t, grunt())
	f.stats.TakeDamage(hit(15, hero))

	require.True(t, f.stats.ResetStats())

	assert.True(t, f.stats.IsAlive())
	assert.Equal(t, 10.0, f.stats.Health())
	assert.Nil(t, f.stats.LastAttacker())
	assert.True(t, f.stats.TakeDamage(hit(3, wolf)))
}

func TestProperty_DeathExactlyOnce(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t, grunt())
		deaths := f.record(event.EnemyDeath)
		xp := f.record(event.PlayerExperienceGained)

		ops := rapid.SliceOfN(rapid.IntRange(0, 2), 1, 30).Draw(rt, "ops")
		for _, op := range ops {
			switch op {
			case 0:
				f.stats.TakeDamage(hit(rapid.Float64Range(0.5, 20).Draw(rt, "amount"), hero))
			case 1:
				f.stats.ForceKill()
			case 2:
				f.stats.Heal(rapid.Float64Range(0, 5).Draw(rt, "heal"))
			}
			assert.GreaterOrEqual(rt, f.stats.Health(), 0.0)
			assert.LessOrEqual(rt, f.stats.Health(), 10.0)
		}

		if f.stats.IsAlive() {
			assert.Empty(rt, *deaths)
			return
		}
		assert.Len(rt, *deaths, 1)
		wantXP := 0
		if f.stats.LastAttacker() != nil {
			wantXP = 1
		}
		assert.Len(rt, *xp, wantXP)
		assert.Equal(rt, 1, f.listener.deaths)
	})
}

func TestStats_TemporaryMaxHealthModifier(t *testing.T) {
	f := newFixture(t, grunt())
	require.True(t, f.stats.TakeDamage(hit(5, hero)))

	f.stats.AddModifier(stats.Modifier{Stat: stats.MaxHealth, Value: 50, Duration: 5 * time.Second, Source: "rally"})
	assert.Equal(t, 60.0, f.stats.MaxHealth())
	assert.Equal(t, 30.0, f.stats.Health())
	assert.Equal(t, 0.5, f.stats.HealthFraction())
	assert.Equal(t, 30.0, f.presenter.health[len(f.presenter.health)-1])

	f.clock.Advance(5 * time.Second)
	f.stats.Tick(100 * time.Millisecond)
	assert.Equal(t, 10.0, f.stats.MaxHealth())
	assert.Equal(t, 5.0, f.stats.Health())

	f.stats.AddModifier(stats.Modifier{Stat: stats.MaxHealth, Value: 100, Percentage: true, Duration: time.Minute, Source: "rally"})
	assert.Equal(t, 20.0, f.stats.MaxHealth())
	assert.Equal(t, 1, f.stats.RemoveModifiersBySource("rally"))
	assert.Equal(t, 10.0, f.stats.MaxHealth())
}

func TestStats_MaxHealthNeverBelowBase(t *testing.T) {
	f := newFixture(t, grunt())
	f.stats.AddModifier(stats.Modifier{Stat: stats.MaxHealth, Value: -40, Duration: time.Minute, Source: "hex"})
	assert.Equal(t, 10.0, f.stats.MaxHealth())
	assert.Equal(t, 10.0, f.stats.Health())
}

func TestStats_ModifiersIgnoredOnceDead(t *testing.T) {
	f := newFixture(t, grunt())
	require.True(t, f.stats.ForceKill())
	f.stats.AddModifier(stats.Modifier{Stat: stats.MaxHealth, Value: 50, Duration: time.Minute, Source: "rally"})
	assert.Equal(t, 10.0, f.stats.MaxHealth())
	assert.Zero(t, f.stats.Health())
}
