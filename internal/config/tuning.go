package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/levelkit/textquest/pkg/state"
)

// XPCurve defines how much XP each level-up requires. Requirements lists
// the XP needed to go from level N to N+1 for the first levels; beyond the
// list, the last requirement scales by GrowthFactor per level. Requirements
// are strictly increasing, so cumulative thresholds are strictly monotone.
type XPCurve struct {
	Requirements []int   `yaml:"requirements"`
	GrowthFactor float64 `yaml:"growth_factor"`
}

// RequirementFor returns the XP needed to advance from the given level to
// the next. Levels are 1-based.
func (c XPCurve) RequirementFor(level int) int {
	index := level - 1
	if index < 0 {
		index = 0
	}
	if index < len(c.Requirements) {
		return max(1, c.Requirements[index])
	}
	if len(c.Requirements) == 0 {
		return 100
	}
	steps := index - len(c.Requirements) + 1
	base := float64(c.Requirements[len(c.Requirements)-1])
	return max(1, int(math.Ceil(base*math.Pow(c.GrowthFactor, float64(steps)))))
}

// ThresholdFor returns the total XP needed to reach the given level from
// level 1. ThresholdFor(1) is 0.
func (c XPCurve) ThresholdFor(level int) int {
	total := 0
	for l := 1; l < level; l++ {
		total += c.RequirementFor(l)
	}
	return total
}

// LevelUp holds the stat increments applied on each level gained.
type LevelUp struct {
	HealthBonus    int  `yaml:"health_bonus"`
	AttackBonus    int  `yaml:"attack_bonus"`
	DefenseBonus   int  `yaml:"defense_bonus"`
	RestoreOnLevel bool `yaml:"restore_on_level"` // refill health and mana on level-up
}

// Tuning is the global tuning surface: a single record read once at startup
// and treated as immutable by the engine.
type Tuning struct {
	StartRoomID    string            `yaml:"start_room_id"`
	DefeatRoomID   string            `yaml:"defeat_room_id"` // fallback for battles without one
	DamageVariance float64           `yaml:"damage_variance"`
	CritChance     float64           `yaml:"crit_chance"`
	CritMultiplier float64           `yaml:"crit_multiplier"`
	FleeChance     float64           `yaml:"flee_chance"`
	XPPerVictory   int               `yaml:"xp_per_victory"` // default when a battle has no xp_reward
	ManaPerRoom    float64           `yaml:"mana_per_room"`  // fractional rates accumulate across rooms
	StartingStats  state.PlayerStats `yaml:"starting_stats"`
	LevelUp        LevelUp           `yaml:"level_up"`
	XPCurve        XPCurve           `yaml:"xp_curve"`
}

// LoadTuning reads and validates the tuning file.
func LoadTuning(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}
	var t Tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tuning file: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}
	return &t, nil
}

// Validate checks the tuning record for values the engine cannot work with.
func (t *Tuning) Validate() error {
	if t.StartRoomID == "" {
		return fmt.Errorf("start_room_id is required")
	}
	if t.DamageVariance < 0 || t.DamageVariance >= 1 {
		return fmt.Errorf("damage_variance must be in [0, 1), got %v", t.DamageVariance)
	}
	if t.CritChance < 0 || t.CritChance > 1 {
		return fmt.Errorf("crit_chance must be in [0, 1], got %v", t.CritChance)
	}
	if t.CritChance > 0 && t.CritMultiplier < 1 {
		return fmt.Errorf("crit_multiplier must be >= 1, got %v", t.CritMultiplier)
	}
	if t.FleeChance < 0 || t.FleeChance > 1 {
		return fmt.Errorf("flee_chance must be in [0, 1], got %v", t.FleeChance)
	}
	if t.ManaPerRoom < 0 {
		return fmt.Errorf("mana_per_room must not be negative, got %v", t.ManaPerRoom)
	}
	if t.StartingStats.MaxHealth <= 0 {
		return fmt.Errorf("starting_stats.max_health must be positive")
	}
	if t.StartingStats.Health <= 0 || t.StartingStats.Health > t.StartingStats.MaxHealth {
		return fmt.Errorf("starting_stats.health must be in (0, max_health]")
	}
	for i := 1; i < len(t.XPCurve.Requirements); i++ {
		if t.XPCurve.Requirements[i] <= t.XPCurve.Requirements[i-1] {
			return fmt.Errorf("xp_curve.requirements must be strictly increasing at index %d", i)
		}
	}
	if len(t.XPCurve.Requirements) > 0 && t.XPCurve.Requirements[0] <= 0 {
		return fmt.Errorf("xp_curve.requirements must be positive")
	}
	if t.XPCurve.GrowthFactor <= 1 {
		return fmt.Errorf("xp_curve.growth_factor must be > 1, got %v", t.XPCurve.GrowthFactor)
	}
	return nil
}
