// Package main provides the headless arena simulator: it loads an arena map,
// enemy templates and Lua hooks, then runs the player against the arena on a
// fixed-step tick loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marcaocj/R1/internal/config"
	"github.com/marcaocj/R1/internal/game/combat"
	"github.com/marcaocj/R1/internal/game/dice"
	"github.com/marcaocj/R1/internal/game/enemy"
	"github.com/marcaocj/R1/internal/game/event"
	"github.com/marcaocj/R1/internal/game/loot"
	"github.com/marcaocj/R1/internal/game/schedule"
	"github.com/marcaocj/R1/internal/game/world"
	"github.com/marcaocj/R1/internal/observability"
	"github.com/marcaocj/R1/internal/scripting"
	"github.com/marcaocj/R1/internal/server"
)

func main() {
	configPath := flag.String("config", "configs/arena.yaml", "path to configuration file")
	seed := flag.Uint64("seed", 0, "override simulation.seed; 0 keeps the configured value")
	duration := flag.Duration("duration", 0, "override simulation.duration; 0 keeps the configured value")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}
	if *duration > 0 {
		cfg.Simulation.Duration = *duration
	}

	logger, err := observability.NewLogger("arenasim", cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = observability.Sync(logger) }()

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("arena run failed", zap.Error(err))
		_ = observability.Sync(logger)
		os.Exit(1)
	}
}

// statusEvery is the simulated interval between progress log lines.
const statusEvery = 10 * time.Second

// tally accumulates the run summary from bus events.
type tally struct {
	kills      int
	levelUps   int
	playerDead bool
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	start := time.Now()

	var src dice.Source
	if cfg.Simulation.Seed != 0 {
		src = dice.NewSeededSource(cfg.Simulation.Seed)
	} else {
		src = dice.NewCryptoSource()
	}
	roller := dice.NewLoggedRoller(src, logger.Named("dice"))

	templates, err := enemy.LoadTemplates(cfg.Content.EnemiesDir)
	if err != nil {
		return fmt.Errorf("loading enemy templates: %w", err)
	}
	logger.Info("loaded enemy templates", zap.Int("count", len(templates)))

	arena, err := world.LoadArena(os.DirFS(filepath.Dir(cfg.Content.ArenaFile)), filepath.Base(cfg.Content.ArenaFile))
	if err != nil {
		return err
	}
	logger.Info("arena loaded",
		zap.String("arena", arena.Name),
		zap.Float64("width", arena.Width),
		zap.Float64("depth", arena.Depth),
		zap.Int("obstacles", len(arena.Obstacles)),
		zap.Int("spawns", len(arena.EnemySpawns)),
	)

	var (
		lootHook  loot.ChanceHook
		deathHook enemy.DeathHook
	)
	if dir := cfg.Content.ScriptsDir; dir != "" {
		scripts := scripting.NewManager(roller, logger.Named("scripting"))
		defer scripts.Close()
		if err := scripts.LoadGlobal(dir, cfg.Content.ScriptInstructionLimit); err != nil {
			return fmt.Errorf("loading scripts: %w", err)
		}
		lootHook = scripts.LootChanceHook(scripting.GlobalScope)
		deathHook = scripts.DeathHook(scripting.GlobalScope)
	}

	bus := event.NewBus(logger.Named("events"))
	clock := schedule.NewSimClock(time.Now().UTC())
	w, err := world.New(arena, templates, world.Options{
		Bus:            bus,
		Clock:          clock,
		Queue:          schedule.NewQueue(),
		Dice:           roller,
		Loot:           loot.NewRoller(roller, lootHook, logger.Named("loot")),
		CorpseLifetime: cfg.Combat.CorpseLifetime,
		DeathHook:      deathHook,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	player := w.SpawnPlayer(uuid.NewString(), cfg.Player.Name, cfg.Player.Base())
	w.Populate()

	var pilot *world.Autopilot
	if cfg.Simulation.Autopilot {
		cmb := combat.New(player, w, clock, roller, combat.Config{
			ComboWindow: cfg.Combat.ComboWindow,
			ComboReset:  cfg.Combat.ComboReset,
			MaxCombo:    cfg.Combat.MaxCombo,
		}, logger.Named("combat"))
		pilot = world.NewAutopilot(w, cmb, world.DefaultAutopilot(), logger.Named("autopilot"))
		w.SetPilot(pilot)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var t tally
	subs := event.NewSubscriptions(bus)
	defer subs.Close()
	subs.Add(event.On(bus, event.EnemyDeath, func(event.EnemyDeathPayload) { t.kills++ }))
	subs.Add(event.On(bus, event.PlayerLevelUp, func(p event.LevelPayload) {
		t.levelUps++
		logger.Info("player levelled up", zap.Int("level", p.Level))
	}))
	subs.Add(bus.Subscribe(event.PlayerDeath, func(event.Event) {
		t.playerDead = true
		cancel()
	}))

	driver := world.NewDriver(cfg.Simulation.TickInterval, cfg.Simulation.Realtime, logger.Named("driver"))
	driver.RegisterClock("arena", w.Tick)
	var sinceStatus time.Duration
	driver.RegisterTick("status", func(dt time.Duration) {
		if sinceStatus += dt; sinceStatus < statusEvery {
			return
		}
		sinceStatus = 0
		logger.Info("arena status",
			zap.Uint64("ticks", w.Ticks()),
			zap.Int("kills", t.kills),
			zap.Int("enemies_alive", w.AliveEnemies()),
			zap.Int("pending_respawns", w.PendingRespawns()),
			zap.Float64("player_health", player.Health()),
		)
	})

	logger.Info("starting arena",
		zap.Duration("tick_interval", cfg.Simulation.TickInterval),
		zap.Duration("duration", cfg.Simulation.Duration),
		zap.Bool("realtime", cfg.Simulation.Realtime),
		zap.Uint64("seed", cfg.Simulation.Seed),
		zap.Duration("startup", time.Since(start)),
	)

	lc := server.NewLifecycle(logger)
	lc.Add("simulation", server.ServiceFunc(func(ctx context.Context) error {
		return driver.Run(ctx, cfg.Simulation.Duration)
	}))
	if err := lc.Run(runCtx); err != nil {
		return err
	}

	fields := []zap.Field{
		zap.Uint64("ticks", w.Ticks()),
		zap.Int("kills", t.kills),
		zap.Int("enemies_alive", w.AliveEnemies()),
		zap.Bool("player_alive", !t.playerDead),
		zap.Int("player_level", player.Level()),
		zap.Int("level_ups", t.levelUps),
		zap.Int("experience", player.Experience()),
		zap.Int("gold", player.Gold()),
		zap.Int("items_on_floor", w.Items().Len()),
		zap.Duration("wall_time", time.Since(start)),
	}
	if pilot != nil {
		fields = append(fields, zap.Int("items_picked_up", pilot.Pickups()))
	}
	logger.Info("arena finished", fields...)
	return nil
}
