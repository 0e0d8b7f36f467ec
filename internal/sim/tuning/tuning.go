package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ashvale.world/internal/sim/dice"
	"ashvale.world/internal/sim/world"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	StrategyEveryTicks int `yaml:"strategy_every_ticks"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
	DecayEveryTicks    int `yaml:"decay_every_ticks"`
	DecayStep          int `yaml:"decay_step"`
	DiplomacyStep      int `yaml:"diplomacy_step"`
	TravelTicks        int `yaml:"travel_ticks"`

	Power    Power    `yaml:"power"`
	Conflict Conflict `yaml:"conflict"`
	Recruit  Recruit  `yaml:"recruit"`
	Combat   Combat   `yaml:"combat"`
}

type Power struct {
	MemberWeight    float64 `yaml:"member_weight"`
	StrengthWeight  float64 `yaml:"strength_weight"`
	TerritoryWeight float64 `yaml:"territory_weight"`
	Cap             float64 `yaml:"cap"`
}

type Conflict struct {
	Dice             string `yaml:"dice"`
	LatencyTicks     int    `yaml:"latency_ticks"`
	CasualtyPermille int    `yaml:"casualty_permille"`
	RelationshipHit  int    `yaml:"relationship_hit"`
}

type Recruit struct {
	PowerFloor   float64 `yaml:"power_floor"`
	LatencyTicks int     `yaml:"latency_ticks"`
	Slots        int     `yaml:"slots"`
	CostResource string  `yaml:"cost_resource"`
	Cost         int     `yaml:"cost"`
}

type Combat struct {
	AttackDice string `yaml:"attack_dice"`
	DamageDice string `yaml:"damage_dice"`
	HitTarget  int    `yaml:"hit_target"`
}

// Defaults are the values a missing tuning file would load.
func Defaults() Tuning {
	return Tuning{
		TickRateHz:         20,
		StrategyEveryTicks: 100,
		SnapshotEveryTicks: 1000,
		DecayEveryTicks:    600,
		DecayStep:          1,
		DiplomacyStep:      2,
		TravelTicks:        12,
		Power: Power{
			MemberWeight:    2,
			StrengthWeight:  1,
			TerritoryWeight: 5,
			Cap:             1000,
		},
		Conflict: Conflict{
			Dice:             "2d20",
			LatencyTicks:     50,
			CasualtyPermille: 250,
			RelationshipHit:  20,
		},
		Recruit: Recruit{
			PowerFloor:   20,
			LatencyTicks: 50,
			Slots:        2,
			CostResource: "gold",
			Cost:         5,
		},
		Combat: Combat{
			AttackDice: "1d20",
			DamageDice: "1d6",
			HitTarget:  10,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// Validate rejects configurations the simulation cannot run sanely with.
// The strategy cadence must stay at least an order of magnitude coarser than
// the base tick.
func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be positive, got %d", t.TickRateHz)
	}
	if t.StrategyEveryTicks < 10 {
		return fmt.Errorf("strategy_every_ticks must be >= 10, got %d", t.StrategyEveryTicks)
	}
	if t.DecayEveryTicks < 0 || t.SnapshotEveryTicks < 0 {
		return fmt.Errorf("cadences must be non-negative")
	}
	if t.Conflict.CasualtyPermille < 0 || t.Conflict.CasualtyPermille > 1000 {
		return fmt.Errorf("conflict.casualty_permille must be in [0,1000], got %d", t.Conflict.CasualtyPermille)
	}
	for _, spec := range []string{t.Conflict.Dice, t.Combat.AttackDice, t.Combat.DamageDice} {
		if spec == "" {
			continue
		}
		if _, err := dice.Parse(spec); err != nil {
			return err
		}
	}
	return nil
}

// WorldConfig converts tuning into the world's config block. Identity fields
// (ID, Seed) are the caller's to fill in.
func (t Tuning) WorldConfig() (world.WorldConfig, error) {
	if err := t.Validate(); err != nil {
		return world.WorldConfig{}, err
	}
	cfg := world.WorldConfig{
		TickRateHz:         t.TickRateHz,
		StrategyEveryTicks: t.StrategyEveryTicks,
		SnapshotEveryTicks: t.SnapshotEveryTicks,
		DecayEveryTicks:    t.DecayEveryTicks,
		DecayStep:          t.DecayStep,
		DiplomacyStep:      t.DiplomacyStep,
		TravelTicks:        t.TravelTicks,
		Power: world.PowerWeights{
			Member:    t.Power.MemberWeight,
			Strength:  t.Power.StrengthWeight,
			Territory: t.Power.TerritoryWeight,
			Cap:       t.Power.Cap,
		},
		Conflict: world.ConflictConfig{
			LatencyTicks:     t.Conflict.LatencyTicks,
			CasualtyPermille: t.Conflict.CasualtyPermille,
			RelationshipHit:  t.Conflict.RelationshipHit,
		},
		Recruit: world.RecruitConfig{
			PowerFloor:   t.Recruit.PowerFloor,
			LatencyTicks: t.Recruit.LatencyTicks,
			Slots:        t.Recruit.Slots,
			CostResource: t.Recruit.CostResource,
			Cost:         t.Recruit.Cost,
		},
		Combat: world.CombatConfig{
			HitTarget: t.Combat.HitTarget,
		},
	}
	var err error
	if t.Conflict.Dice != "" {
		if cfg.Conflict.Dice, err = dice.Parse(t.Conflict.Dice); err != nil {
			return cfg, err
		}
	}
	if t.Combat.AttackDice != "" {
		if cfg.Combat.AttackDice, err = dice.Parse(t.Combat.AttackDice); err != nil {
			return cfg, err
		}
	}
	if t.Combat.DamageDice != "" {
		if cfg.Combat.DamageDice, err = dice.Parse(t.Combat.DamageDice); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}
