// Package config provides Viper-based configuration loading for the arena
// simulator.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/marcaocj/R1/internal/game/stats"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// Output is "stdout", "stderr" or a file path.
	Output string `mapstructure:"output"`
}

// SimulationConfig controls the tick driver.
type SimulationConfig struct {
	// TickInterval is the simulated time advanced per tick.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// Duration is the simulated time to run; 0 runs until interrupted.
	Duration time.Duration `mapstructure:"duration"`
	// Realtime paces ticks with the wall clock instead of running flat out.
	Realtime bool `mapstructure:"realtime"`
	// Seed makes every roll reproducible; 0 uses crypto randomness.
	Seed uint64 `mapstructure:"seed"`
	// Autopilot lets a scripted player fight the arena.
	Autopilot bool `mapstructure:"autopilot"`
}

// ContentConfig locates the data files loaded at startup.
type ContentConfig struct {
	EnemiesDir string `mapstructure:"enemies_dir"`
	ArenaFile  string `mapstructure:"arena_file"`
	// ScriptsDir holds global Lua hooks; empty disables scripting.
	ScriptsDir             string `mapstructure:"scripts_dir"`
	ScriptInstructionLimit int    `mapstructure:"script_instruction_limit"`
}

// CombatConfig holds combo and corpse defaults.
type CombatConfig struct {
	ComboWindow time.Duration `mapstructure:"combo_window"`
	ComboReset  time.Duration `mapstructure:"combo_reset"`
	MaxCombo    int           `mapstructure:"max_combo"`
	// CorpseLifetime applies to templates that leave corpse.lifetime unset.
	CorpseLifetime time.Duration `mapstructure:"corpse_lifetime"`
}

// PlayerConfig describes the player character's starting stats.
type PlayerConfig struct {
	Name           string  `mapstructure:"name"`
	Level          int     `mapstructure:"level"`
	MaxHealth      float64 `mapstructure:"max_health"`
	MaxMana        float64 `mapstructure:"max_mana"`
	HealthRegen    float64 `mapstructure:"health_regen"`
	ManaRegen      float64 `mapstructure:"mana_regen"`
	Damage         float64 `mapstructure:"damage"`
	Armor          float64 `mapstructure:"armor"`
	CriticalChance float64 `mapstructure:"critical_chance"`
	CriticalDamage float64 `mapstructure:"critical_damage"`
	AttackSpeed    float64 `mapstructure:"attack_speed"`
	MovementSpeed  float64 `mapstructure:"movement_speed"`
	Strength       int     `mapstructure:"strength"`
	Dexterity      int     `mapstructure:"dexterity"`
	Intelligence   int     `mapstructure:"intelligence"`
	Vitality       int     `mapstructure:"vitality"`
}

// Base converts the player settings into a stat block base.
func (p PlayerConfig) Base() stats.Base {
	return stats.Base{
		Level: p.Level,
		Attributes: stats.Attributes{
			Strength:     p.Strength,
			Dexterity:    p.Dexterity,
			Intelligence: p.Intelligence,
			Vitality:     p.Vitality,
		},
		MaxHealth:      p.MaxHealth,
		MaxMana:        p.MaxMana,
		HealthRegen:    p.HealthRegen,
		ManaRegen:      p.ManaRegen,
		Damage:         p.Damage,
		Armor:          p.Armor,
		CriticalChance: p.CriticalChance,
		CriticalDamage: p.CriticalDamage,
		AttackSpeed:    p.AttackSpeed,
		MovementSpeed:  p.MovementSpeed,
	}
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Content    ContentConfig    `mapstructure:"content"`
	Combat     CombatConfig     `mapstructure:"combat"`
	Player     PlayerConfig     `mapstructure:"player"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateLogging(c.Logging),
		validateSimulation(c.Simulation),
		validateContent(c.Content),
		validateCombat(c.Combat),
		validatePlayer(c.Player),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func joined(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	if l.Output == "" {
		return fmt.Errorf("logging.output must not be empty")
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.tick_interval must be > 0, got %s", s.TickInterval))
	}
	if s.Duration < 0 {
		errs = append(errs, "simulation.duration must not be negative")
	}
	return joined(errs)
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.EnemiesDir == "" {
		errs = append(errs, "content.enemies_dir must not be empty")
	}
	if c.ArenaFile == "" {
		errs = append(errs, "content.arena_file must not be empty")
	}
	if c.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("content.script_instruction_limit must be >= 0, got %d", c.ScriptInstructionLimit))
	}
	return joined(errs)
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.ComboWindow <= 0 {
		errs = append(errs, "combat.combo_window must be > 0")
	}
	if c.ComboReset < c.ComboWindow {
		errs = append(errs, "combat.combo_reset must not be shorter than combat.combo_window")
	}
	if c.MaxCombo < 1 {
		errs = append(errs, fmt.Sprintf("combat.max_combo must be >= 1, got %d", c.MaxCombo))
	}
	if c.CorpseLifetime < 0 {
		errs = append(errs, "combat.corpse_lifetime must not be negative")
	}
	return joined(errs)
}

func validatePlayer(p PlayerConfig) error {
	var errs []string
	if p.Name == "" {
		errs = append(errs, "player.name must not be empty")
	}
	if p.Level < 1 {
		errs = append(errs, fmt.Sprintf("player.level must be >= 1, got %d", p.Level))
	}
	if p.MaxHealth < 1 {
		errs = append(errs, "player.max_health must be >= 1")
	}
	if p.MaxMana < 0 || p.Damage < 0 || p.Armor < 0 {
		errs = append(errs, "player.max_mana, player.damage and player.armor must not be negative")
	}
	if p.CriticalChance < 0 || p.CriticalChance > 100 {
		errs = append(errs, fmt.Sprintf("player.critical_chance must be in [0, 100], got %g", p.CriticalChance))
	}
	return joined(errs)
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with ARENA_ prefix
	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
// Unset keys fall back to the defaults.
//
// Precondition: v must be non-nil.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("simulation.tick_interval", "50ms")
	v.SetDefault("simulation.duration", "60s")
	v.SetDefault("simulation.realtime", false)
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.autopilot", true)

	v.SetDefault("content.enemies_dir", "content/enemies")
	v.SetDefault("content.arena_file", "content/arenas/pit.tmx")
	v.SetDefault("content.scripts_dir", "content/scripts")
	v.SetDefault("content.script_instruction_limit", 100000)

	v.SetDefault("combat.combo_window", "2s")
	v.SetDefault("combat.combo_reset", "3s")
	v.SetDefault("combat.max_combo", 3)
	v.SetDefault("combat.corpse_lifetime", "10s")

	v.SetDefault("player.name", "Hero")
	v.SetDefault("player.level", 1)
	v.SetDefault("player.max_health", 100)
	v.SetDefault("player.max_mana", 50)
	v.SetDefault("player.health_regen", 1)
	v.SetDefault("player.mana_regen", 2)
	v.SetDefault("player.damage", 10)
	v.SetDefault("player.critical_chance", 5)
	v.SetDefault("player.critical_damage", 150)
	v.SetDefault("player.attack_speed", 1)
	v.SetDefault("player.movement_speed", 5)
	v.SetDefault("player.strength", 10)
	v.SetDefault("player.dexterity", 10)
	v.SetDefault("player.intelligence", 10)
	v.SetDefault("player.vitality", 10)
}
