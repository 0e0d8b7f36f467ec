package world

import (
	"errors"
	"testing"
)

func testLedger(t *testing.T) (*Registry, *Ledger) {
	t.Helper()
	reg := NewRegistry()
	l := NewLedger(reg, PowerWeights{Member: 2, Strength: 1, Territory: 5, Cap: 1000})
	return reg, l
}

func addLive(t *testing.T, reg *Registry, id string, strength int) {
	t.Helper()
	err := reg.Add(&Entity{ID: id, Name: id, Kind: KindAutonomous, Location: "loc", HP: 10, MaxHP: 10, Strength: strength, Alive: true})
	if err != nil {
		t.Fatal(err)
	}
}

func TestBandFor(t *testing.T) {
	cases := []struct {
		score int
		band  RelationBand
	}{
		{100, BandAllied},
		{99, BandFriendly},
		{50, BandFriendly},
		{49, BandNeutral},
		{0, BandNeutral},
		{-1, BandUnfriendly},
		{-49, BandUnfriendly},
		{-50, BandHostile},
		{-99, BandHostile},
		{-100, BandOpenConflict},
	}
	for _, tc := range cases {
		if got := BandFor(tc.score); got != tc.band {
			t.Errorf("BandFor(%d) = %s, want %s", tc.score, got, tc.band)
		}
	}
}

func TestLedger_RelationshipClamped(t *testing.T) {
	_, l := testLedger(t)
	_, _ = l.AddGroup("a", "A", 0)
	_, _ = l.AddGroup("b", "B", 0)

	score, err := l.UpdateRelationship("a", "b", 150)
	if err != nil || score != RelationMax {
		t.Fatalf("got %d, %v", score, err)
	}
	score, _ = l.UpdateRelationship("a", "b", -500)
	if score != RelationMin {
		t.Fatalf("got %d", score)
	}
	// Per-direction: b's stance is untouched.
	if got := l.Relationship("b", "a"); got != 0 {
		t.Fatalf("b->a = %d", got)
	}
	if _, err := l.UpdateRelationship("a", "ghost", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown target: %v", err)
	}
}

func TestLedger_OneGroupPerEntity(t *testing.T) {
	reg, l := testLedger(t)
	addLive(t, reg, "npc", 3)
	_, _ = l.AddGroup("a", "A", 0)
	_, _ = l.AddGroup("b", "B", 0)

	if err := l.AddMember("a", "npc"); err != nil {
		t.Fatal(err)
	}
	if err := l.AddMember("b", "npc"); !errors.Is(err, ErrInvalidMembership) {
		t.Fatalf("second group accepted: %v", err)
	}
	if err := l.AddMember("a", "npc"); !errors.Is(err, ErrInvalidMembership) {
		t.Fatalf("double join accepted: %v", err)
	}
	if err := l.RemoveMember("a", "npc"); err != nil {
		t.Fatal(err)
	}
	if err := l.AddMember("b", "npc"); err != nil {
		t.Fatalf("rejoin after leave: %v", err)
	}
}

func TestLedger_DeadEntityCannotJoin(t *testing.T) {
	reg, l := testLedger(t)
	_ = reg.Add(&Entity{ID: "corpse", Kind: KindAutonomous, Alive: false})
	_, _ = l.AddGroup("a", "A", 0)
	if err := l.AddMember("a", "corpse"); !errors.Is(err, ErrInvalidMembership) {
		t.Fatalf("got %v", err)
	}
}

func TestLedger_ClaimLastWriterWins(t *testing.T) {
	_, l := testLedger(t)
	_, _ = l.AddGroup("a", "A", 0)
	_, _ = l.AddGroup("b", "B", 0)

	prev, err := l.ClaimTerritory("a", "keep")
	if err != nil || prev != "" {
		t.Fatalf("first claim: %q, %v", prev, err)
	}
	// Re-claim by the holder is a no-op, not a handover.
	prev, _ = l.ClaimTerritory("a", "keep")
	if prev != "" {
		t.Fatalf("self re-claim reported handover from %q", prev)
	}
	prev, _ = l.ClaimTerritory("b", "keep")
	if prev != "a" {
		t.Fatalf("handover: got %q", prev)
	}
	if l.Holder("keep") != "b" {
		t.Fatalf("holder = %q", l.Holder("keep"))
	}
}

func TestLedger_PowerDerivedOnRead(t *testing.T) {
	reg, l := testLedger(t)
	_, _ = l.AddGroup("a", "A", 0)
	addLive(t, reg, "m1", 4)
	addLive(t, reg, "m2", 6)
	_ = l.AddMember("a", "m1")
	_ = l.AddMember("a", "m2")
	_, _ = l.ClaimTerritory("a", "keep")

	// 2 members*2 + strength 10*1 + 1 territory*5.
	p, err := l.PowerLevel("a")
	if err != nil || p != 19 {
		t.Fatalf("power = %v, %v", p, err)
	}

	// Death changes the next read with no recompute call.
	e, _ := reg.Get("m2")
	e.Alive = false
	p, _ = l.PowerLevel("a")
	if p != 2+4+5 {
		t.Fatalf("power after death = %v", p)
	}
}

func TestLedger_DormantAndResources(t *testing.T) {
	reg, l := testLedger(t)
	_, _ = l.AddGroup("a", "A", 0)
	if !l.Dormant("a") {
		t.Fatal("empty group should be dormant")
	}
	addLive(t, reg, "m1", 1)
	_ = l.AddMember("a", "m1")
	if l.Dormant("a") {
		t.Fatal("group with members is not dormant")
	}

	if err := l.Deposit("a", "gold", 10); err != nil {
		t.Fatal(err)
	}
	if err := l.Spend("a", "gold", 20); !errors.Is(err, ErrNoResource) {
		t.Fatalf("overspend: %v", err)
	}
	if err := l.Spend("a", "gold", 10); err != nil {
		t.Fatal(err)
	}
	if err := l.Spend("a", "gold", 1); !errors.Is(err, ErrNoResource) {
		t.Fatalf("spend from empty: %v", err)
	}
}

func TestRegistry_DuplicateAndRemove(t *testing.T) {
	reg := NewRegistry()
	addLive(t, reg, "x", 1)
	if err := reg.Add(&Entity{ID: "x", Alive: true}); !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("duplicate add: %v", err)
	}
	if _, err := reg.Remove("x"); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Remove("x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double remove: %v", err)
	}
	if _, err := reg.Get("x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after remove: %v", err)
	}
}
