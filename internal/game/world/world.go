package world

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/marcaocj/R1/internal/game/actor"
	"github.com/marcaocj/R1/internal/game/ai"
	"github.com/marcaocj/R1/internal/game/dice"
	"github.com/marcaocj/R1/internal/game/enemy"
	"github.com/marcaocj/R1/internal/game/event"
	"github.com/marcaocj/R1/internal/game/geom"
	"github.com/marcaocj/R1/internal/game/loot"
	"github.com/marcaocj/R1/internal/game/player"
	"github.com/marcaocj/R1/internal/game/projectile"
	"github.com/marcaocj/R1/internal/game/schedule"
	"github.com/marcaocj/R1/internal/game/stats"
)

const (
	defaultPlayerSpeed = 5.0
	playerRunFactor    = 1.5
)

// Options are the shared services a World runs on.
type Options struct {
	Bus   *event.Bus
	Clock *schedule.SimClock
	Queue *schedule.Queue
	Dice  *dice.Roller
	Loot  *loot.Roller
	// CorpseLifetime applies to templates without their own corpse lifetime.
	CorpseLifetime time.Duration
	DeathHook      enemy.DeathHook
	Logger         *zap.Logger
}

// Pilot drives the player each tick.
type Pilot interface {
	Tick(dt time.Duration)
}

// World owns every live actor of one arena and advances them in a fixed
// order. It implements actor.PerceptionQuery, loot.Spawner (through its item
// store) and enemy.Despawner.
//
// Not safe for concurrent use; a single Driver goroutine calls Tick.
type World struct {
	arena     *Arena
	templates map[string]*enemy.Template
	opts      Options
	logger    *zap.Logger

	spatial     *Spatial
	nav         *NavGrid
	phys        *Physics
	items       *Items
	projectiles projectile.Set
	respawn     Respawner
	subs        *event.Subscriptions

	player     *player.Player
	playerBody *Body
	pilot      Pilot

	enemies map[string]*Enemy
	// pool keeps despawned enemies by spawn index until they respawn.
	pool map[int]*Enemy

	paused bool
	ticks  uint64
}

// New builds the world for arena. Enemies are not spawned until Populate.
//
// Precondition: every enemy spawn names a template in templates.
// Postcondition: Returns a ready *World, or an error naming the first missing
// dependency or template.
func New(arena *Arena, templates map[string]*enemy.Template, opts Options) (*World, error) {
	if arena == nil {
		return nil, errors.New("world: arena is required")
	}
	if opts.Bus == nil || opts.Clock == nil || opts.Queue == nil || opts.Dice == nil || opts.Loot == nil {
		return nil, errors.New("world: bus, clock, queue, dice and loot roller are required")
	}
	for i, s := range arena.EnemySpawns {
		if _, ok := templates[s.TemplateID]; !ok {
			return nil, fmt.Errorf("world: enemy spawn %d references unknown template %q", i, s.TemplateID)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Logger = logger

	w := &World{
		arena:     arena,
		templates: templates,
		opts:      opts,
		logger:    logger.With(zap.String("arena", arena.Name)),
		enemies:   make(map[string]*Enemy),
		pool:      make(map[int]*Enemy),
		subs:      event.NewSubscriptions(opts.Bus),
	}
	w.spatial = NewSpatial(arena)
	w.nav = NewNavGrid(arena, w.spatial)
	w.phys = NewPhysics(arena, w.nav, logger.Named("physics"))
	w.items = NewItems(opts.Clock, logger.Named("items"))

	w.subs.Add(opts.Bus.Subscribe(event.GamePaused, func(event.Event) { w.setPaused(true) }))
	w.subs.Add(opts.Bus.Subscribe(event.GameResumed, func(event.Event) { w.setPaused(false) }))
	w.subs.Add(opts.Bus.Subscribe(event.PlayerDeath, func(event.Event) { w.onPlayerDeath() }))
	return w, nil
}

// Arena returns the static layout.
func (w *World) Arena() *Arena { return w.arena }

// Items returns the dropped item store.
func (w *World) Items() *Items { return w.items }

// Nav returns the navigation grid.
func (w *World) Nav() *NavGrid { return w.nav }

// Player returns the player, or nil before SpawnPlayer.
func (w *World) Player() *player.Player { return w.player }

// PlayerBody returns the player's physics body, or nil before SpawnPlayer.
func (w *World) PlayerBody() *Body { return w.playerBody }

// SetPilot installs the player driver.
func (w *World) SetPilot(p Pilot) { w.pilot = p }

// Paused reports whether ticks are currently skipped.
func (w *World) Paused() bool { return w.paused }

// Ticks returns the number of simulated ticks.
func (w *World) Ticks() uint64 { return w.ticks }

// Projectiles returns the number of live projectiles.
func (w *World) Projectiles() int { return w.projectiles.Len() }

// PendingRespawns returns the number of spawn points waiting to respawn.
func (w *World) PendingRespawns() int { return w.respawn.Pending() }

// Enemy returns the live or dying enemy with id.
func (w *World) Enemy(id string) (*Enemy, bool) {
	e, ok := w.enemies[id]
	return e, ok
}

// Enemies returns every enemy in the world, including corpses, ordered by id.
func (w *World) Enemies() []*Enemy {
	out := make([]*Enemy, 0, len(w.enemies))
	for _, e := range w.enemies {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// AliveEnemies returns the number of enemies that can still be hurt.
func (w *World) AliveEnemies() int {
	n := 0
	for _, e := range w.enemies {
		if e.IsAlive() {
			n++
		}
	}
	return n
}

// CanSeeTarget implements actor.PerceptionQuery.
func (w *World) CanSeeTarget(observer, target actor.Actor) bool {
	return w.spatial.CanSeeTarget(observer, target)
}

// FindNearbyActors implements actor.PerceptionQuery.
func (w *World) FindNearbyActors(center geom.Vec3, radius float64, filter actor.Filter) []actor.Actor {
	return w.spatial.FindNearbyActors(center, radius, filter)
}

// SpawnPlayer creates the player at the arena's player spawn. Every enemy
// targets the player from then on.
//
// Precondition: called at most once.
func (w *World) SpawnPlayer(id, name string, base stats.Base) *player.Player {
	p := player.New(id, name, base, w.opts.Bus, w.opts.Clock, w.opts.Logger)
	speed := p.Block().MovementSpeed(w.opts.Clock.Now())
	if speed <= 0 {
		speed = defaultPlayerSpeed
	}
	body := w.phys.Spawn(id, w.arena.PlayerSpawn, speed, speed*playerRunFactor)
	p.SetMovement(body)
	p.SetPose(body.Position(), body.Yaw())

	w.player, w.playerBody = p, body
	w.spatial.Track(p)
	for _, e := range w.enemies {
		e.brain.SetTarget(p)
	}
	w.logger.Info("player spawned", zap.String("player", id), zap.Int("level", p.Level()))
	return p
}

// Populate spawns an enemy at every arena spawn point.
func (w *World) Populate() {
	for i := range w.arena.EnemySpawns {
		w.spawnEnemy(i)
	}
	w.logger.Info("arena populated", zap.Int("enemies", len(w.enemies)))
}

// spawnEnemy places the enemy of spawn point idx, reusing its pooled
// instance after a death.
func (w *World) spawnEnemy(idx int) *Enemy {
	s := w.arena.EnemySpawns[idx]
	e, pooled := w.pool[idx]
	if pooled {
		delete(w.pool, idx)
		e.stats.ResetStats()
		e.presenter.reset()
	} else {
		tmpl := w.templates[s.TemplateID]
		if s.Level > 0 {
			tmpl = tmpl.Scaled(s.Level)
		}
		id := fmt.Sprintf("%s-%d", s.TemplateID, idx+1)
		e = &Enemy{
			id:        id,
			spawnIdx:  idx,
			tmpl:      tmpl,
			eye:       tmpl.AI.WithDefaults().EyeHeight,
			presenter: newLogPresenter(w.logger.With(zap.String("enemy", id)), tmpl.ShowHealthBar),
		}
		e.stats = enemy.NewStats(e, tmpl, enemy.Deps{
			Bus:            w.opts.Bus,
			Queue:          w.opts.Queue,
			Clock:          w.opts.Clock,
			Dice:           w.opts.Dice,
			Loot:           w.opts.Loot,
			Spawner:        w.items,
			CorpseLifetime: w.opts.CorpseLifetime,
			DeathHook:      w.opts.DeathHook,
			Logger:         w.opts.Logger,
		})
	}

	tuning := e.tmpl.AI.WithDefaults()
	e.body = w.phys.Spawn(e.id, s.Position, tuning.MoveSpeed, tuning.RunSpeed)
	e.brain = ai.New(e, e.stats, ai.Config{
		Tuning:    e.tmpl.AI,
		Faction:   e.tmpl.Faction,
		Spawn:     s.Position,
		Waypoints: w.arena.Waypoints(s),
	}, ai.Deps{
		Movement:   e.body,
		Perception: w,
		Queue:      w.opts.Queue,
		Clock:      w.opts.Clock,
		Dice:       w.opts.Dice,
		Animator:   e.presenter,
		Logger:     w.opts.Logger,
	})
	e.stats.SetMovement(e.body)
	e.stats.SetListener(e.brain)
	e.stats.SetPresenter(e.presenter)
	e.stats.SetCorpse(e.body)
	e.stats.SetDespawner(w)
	if w.player != nil {
		e.brain.SetTarget(w.player)
	}

	w.enemies[e.id] = e
	w.spatial.Track(e)
	e.brain.Start()
	w.logger.Debug("enemy spawned",
		zap.String("enemy", e.id),
		zap.Int("level", e.Level()),
		zap.Bool("respawn", pooled),
	)
	return e
}

// Despawn removes the enemy with id from the world once its corpse expires
// and queues its respawn when the template asks for one.
func (w *World) Despawn(id string) {
	e, ok := w.enemies[id]
	if !ok {
		return
	}
	w.spatial.Untrack(id)
	w.phys.Remove(id)
	delete(w.enemies, id)
	w.logger.Debug("enemy despawned", zap.String("enemy", id))

	if delay := e.tmpl.RespawnDelay; delay > 0 {
		w.pool[e.spawnIdx] = e
		w.respawn.Schedule(e.spawnIdx, w.opts.Clock.Now(), delay)
	}
}

// Launch fires a projectile from caster's position along dir.
func (w *World) Launch(cfg projectile.Config, caster actor.Actor, dir geom.Vec3) *projectile.Projectile {
	p := projectile.Launch(cfg, caster, caster.Position(), dir, w, w.spatial, w.logger.Named("projectile"))
	w.projectiles.Add(p)
	return p
}

// Tick advances the simulation by dt and reports whether it ran. Paused
// worlds skip the tick entirely, clock included.
//
// Order: clock, deferred callbacks, respawns, player, enemies (stats then
// behaviour), projectiles, physics, pose sync.
func (w *World) Tick(dt time.Duration) bool {
	if w.paused || dt <= 0 {
		return false
	}
	now := w.opts.Clock.Advance(dt)
	w.opts.Queue.Tick(now)
	w.respawn.Tick(now, func(idx int) { w.spawnEnemy(idx) })

	if w.player != nil {
		if w.pilot != nil && w.player.IsAlive() {
			w.pilot.Tick(dt)
		}
		w.player.Tick(dt)
	}
	for _, e := range w.Enemies() {
		e.tick(dt)
	}
	if impacts := w.projectiles.Tick(dt); len(impacts) > 0 {
		w.logger.Debug("projectile impacts", zap.Int("count", len(impacts)))
	}

	w.phys.Step(dt)
	w.syncPlayer()
	w.spatial.Sync()
	w.ticks++
	return true
}

func (w *World) syncPlayer() {
	if w.player == nil {
		return
	}
	w.player.SetPose(w.playerBody.Position(), w.playerBody.Yaw())
}

func (w *World) setPaused(paused bool) {
	if w.paused == paused {
		return
	}
	w.paused = paused
	w.logger.Info("simulation pause changed", zap.Bool("paused", paused))
}

func (w *World) onPlayerDeath() {
	if w.playerBody != nil {
		w.playerBody.SetMovementEnabled(false)
	}
}

// Close releases the world's and the player's bus subscriptions.
func (w *World) Close() {
	w.subs.Close()
	if w.player != nil {
		w.player.Close()
	}
}
