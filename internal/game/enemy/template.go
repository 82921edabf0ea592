// Package enemy provides enemy templates and the per-enemy health and death
// authority.
package enemy

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marcaocj/R1/internal/game/ai"
	"github.com/marcaocj/R1/internal/game/loot"
	"github.com/marcaocj/R1/internal/game/stats"
)

// levelScaling is the per-level growth applied by Template.Scaled.
const levelScaling = 0.2

// CorpseMode selects how a dead body is handed to physics.
type CorpseMode string

const (
	CorpseFreeze  CorpseMode = "freeze"
	CorpseRagdoll CorpseMode = "ragdoll"
)

// Corpse configures what happens to the body after death.
type Corpse struct {
	Mode CorpseMode `yaml:"mode"`
	// Lifetime is how long the corpse stays before despawning. Zero falls back
	// to the simulation default.
	Lifetime     time.Duration `yaml:"lifetime"`
	RagdollForce float64       `yaml:"ragdoll_force"`
}

// Template defines a reusable enemy archetype loaded from YAML.
type Template struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Faction     string     `yaml:"faction"`
	Stats       stats.Base `yaml:"stats"`

	ExperienceReward int        `yaml:"experience_reward"`
	GoldReward       int        `yaml:"gold_reward"`
	Loot             loot.Table `yaml:"loot"`

	Corpse        Corpse `yaml:"corpse"`
	ShowHealthBar bool   `yaml:"show_health_bar"`
	// RespawnDelay is how long after despawn a new instance is placed at the
	// same spawn point. Zero means the enemy does not respawn.
	RespawnDelay time.Duration `yaml:"respawn_delay"`

	AI ai.Tuning `yaml:"ai"`
}

// Level returns the template's level, at least 1.
func (t *Template) Level() int {
	return max(1, t.Stats.Level)
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, max_health >= 1,
// rewards are non-negative, the corpse mode is known and the loot table and
// AI tuning are valid; returns an error on the first violation otherwise.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("enemy template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("enemy template %q: name must not be empty", t.ID)
	}
	if t.Stats.Level < 0 {
		return fmt.Errorf("enemy template %q: level must be >= 1", t.ID)
	}
	if t.Stats.MaxHealth < 1 {
		return fmt.Errorf("enemy template %q: stats.max_health must be >= 1", t.ID)
	}
	if t.Stats.Armor < 0 {
		return fmt.Errorf("enemy template %q: stats.armor must be >= 0", t.ID)
	}
	if t.ExperienceReward < 0 || t.GoldReward < 0 {
		return fmt.Errorf("enemy template %q: rewards must be >= 0", t.ID)
	}
	switch t.Corpse.Mode {
	case "", CorpseFreeze, CorpseRagdoll:
	default:
		return fmt.Errorf("enemy template %q: corpse.mode %q must be freeze or ragdoll", t.ID, t.Corpse.Mode)
	}
	if t.Corpse.Lifetime < 0 || t.Corpse.RagdollForce < 0 {
		return fmt.Errorf("enemy template %q: corpse lifetime and ragdoll_force must be >= 0", t.ID)
	}
	if t.RespawnDelay < 0 {
		return fmt.Errorf("enemy template %q: respawn_delay must be >= 0", t.ID)
	}
	if err := t.Loot.Validate(); err != nil {
		return fmt.Errorf("enemy template %q: %w", t.ID, err)
	}
	if err := t.AI.WithDefaults().Validate(); err != nil {
		return fmt.Errorf("enemy template %q: %w", t.ID, err)
	}
	return nil
}

// CorpseMode returns the configured mode, freeze when unset.
func (t *Template) CorpseMode() CorpseMode {
	if t.Corpse.Mode == "" {
		return CorpseFreeze
	}
	return t.Corpse.Mode
}

// Scaled returns a copy of t adjusted to level. Max health, damage, armor,
// AI attack damage and both rewards grow by 20% per level above 1.
//
// Postcondition: the receiver is not modified; level < 1 is treated as 1.
func (t *Template) Scaled(level int) *Template {
	level = max(1, level)
	m := 1 + float64(level-1)*levelScaling
	out := *t
	out.Loot = append(loot.Table(nil), t.Loot...)
	out.Stats.Level = level
	out.Stats.MaxHealth = math.Round(t.Stats.MaxHealth * m)
	out.Stats.Damage = math.Round(t.Stats.Damage * m)
	out.Stats.Armor = math.Round(t.Stats.Armor * m)
	out.AI.AttackDamage = math.Round(t.AI.WithDefaults().AttackDamage * m)
	out.ExperienceReward = int(math.Round(float64(t.ExperienceReward) * m))
	out.GoldReward = int(math.Round(float64(t.GoldReward) * m))
	return &out
}

// LoadTemplateFromBytes parses a single enemy template from raw YAML bytes.
// Unknown keys are rejected.
//
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tmpl); err != nil {
		return nil, fmt.Errorf("parsing enemy template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates
// keyed by ID.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse, validate
// or duplicate-ID failure; on error, the partial result is discarded.
func LoadTemplates(dir string) (map[string]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading enemy dir %q: %w", dir, err)
	}

	templates := make(map[string]*Template)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if _, dup := templates[tmpl.ID]; dup {
			return nil, fmt.Errorf("loading %q: duplicate enemy id %q", path, tmpl.ID)
		}
		templates[tmpl.ID] = tmpl
	}
	return templates, nil
}
