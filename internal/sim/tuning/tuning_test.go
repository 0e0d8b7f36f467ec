package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatal(err)
	}
	cfg, err := Defaults().WorldConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Conflict.Dice.Sides != 20 || cfg.Conflict.Dice.Count != 2 {
		t.Fatalf("conflict dice: %+v", cfg.Conflict.Dice)
	}
	if cfg.Power.Territory != 5 {
		t.Fatalf("territory weight: %v", cfg.Power.Territory)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Tuning)
	}{
		{"zero tick rate", func(c *Tuning) { c.TickRateHz = 0 }},
		{"strategy cadence too fine", func(c *Tuning) { c.StrategyEveryTicks = 9 }},
		{"negative snapshot cadence", func(c *Tuning) { c.SnapshotEveryTicks = -1 }},
		{"permille over 1000", func(c *Tuning) { c.Conflict.CasualtyPermille = 1001 }},
		{"bad conflict dice", func(c *Tuning) { c.Conflict.Dice = "two d twenty" }},
		{"bad damage dice", func(c *Tuning) { c.Combat.DamageDice = "1d0" }},
	}
	for _, c := range cases {
		cfg := Defaults()
		c.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: accepted", c.name)
		}
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := "tick_rate_hz: 5\nconflict:\n  dice: 3d6\n  casualty_permille: 100\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TickRateHz != 5 {
		t.Fatalf("tick_rate_hz = %d", cfg.TickRateHz)
	}
	if cfg.Conflict.Dice != "3d6" || cfg.Conflict.CasualtyPermille != 100 {
		t.Fatalf("conflict overlay: %+v", cfg.Conflict)
	}
	// Untouched sections keep their defaults.
	if cfg.StrategyEveryTicks != 100 || cfg.Recruit.Cost != 5 {
		t.Fatalf("defaults lost: strategy=%d recruit_cost=%d", cfg.StrategyEveryTicks, cfg.Recruit.Cost)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("strategy_every_ticks: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("invalid cadence accepted")
	}
}
