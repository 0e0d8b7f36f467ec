package worldtest

import (
	"context"
	"testing"

	"ashvale.world/internal/sim/scenario"
	"ashvale.world/internal/sim/tuning"
	world "ashvale.world/internal/sim/world"
)

func buildWorld(t *testing.T, sc *scenario.Scenario) *world.World {
	t.Helper()
	cfg, err := tuning.Defaults().WorldConfig()
	if err != nil {
		t.Fatalf("tuning: %v", err)
	}
	cfg.ID = "test"
	cfg.Seed = 42
	cfg.StrategyEveryTicks = 10
	cfg.DecayEveryTicks = 5
	cfg.TravelTicks = 4

	w, err := world.New(cfg)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	if err := sc.Populate(w); err != nil {
		t.Fatalf("populate: %v", err)
	}
	return w
}

func TestDeterminism_FixedActionsSameDigest(t *testing.T) {
	sc, err := scenario.Load("../../../configs/scenario", "../../../schemas")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}

	w1 := buildWorld(t, sc)
	w2 := buildWorld(t, sc)

	ctx := context.Background()
	for i := uint64(0); i < 50; i++ {
		if i == 0 {
			// Same player action stream into both worlds.
			act := world.Action{Kind: world.ActionMove, ActorID: "player", TargetPos: world.Vec2i{X: 4, Y: 2}}
			w1.Inbox() <- act
			w2.Inbox() <- act
		}
		t1, err := w1.RunTicks(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		t2, err := w2.RunTicks(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if t1 != t2 || t1 != i+1 {
			t.Fatalf("tick mismatch: w1=%d w2=%d want %d", t1, t2, i+1)
		}
		d1 := w1.StateDigest(t1)
		d2 := w2.StateDigest(t2)
		if d1 != d2 {
			t.Fatalf("digest mismatch at tick %d: %s vs %s", t1, d1, d2)
		}
	}
}

func TestDeterminism_ResumeFromSnapshotMatchesContinuousRun(t *testing.T) {
	sc, err := scenario.Load("../../../configs/scenario", "../../../schemas")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}

	w1 := buildWorld(t, sc)
	ctx := context.Background()
	if _, err := w1.RunTicks(ctx, 25); err != nil {
		t.Fatal(err)
	}

	cfg, err := tuning.Defaults().WorldConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.TravelTicks = 4
	w2, err := world.FromSnapshot(cfg, w1.ExportSnapshot())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	for i := 0; i < 25; i++ {
		t1, err := w1.RunTicks(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		t2, err := w2.RunTicks(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if d1, d2 := w1.StateDigest(t1), w2.StateDigest(t2); d1 != d2 {
			t.Fatalf("resumed run diverged at tick %d", t1)
		}
	}
}
