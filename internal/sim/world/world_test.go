package world

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"ashvale.world/internal/sim/dice"
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := New(WorldConfig{
		ID:                 "test",
		Seed:               42,
		TickRateHz:         20,
		StrategyEveryTicks: 100,
		DecayEveryTicks:    0,
		DecayStep:          1,
		TravelTicks:        3,
		Power:              PowerWeights{Member: 2, Strength: 1, Territory: 5, Cap: 1000},
		Conflict:           ConflictConfig{Dice: dice.MustParse("2d20"), CasualtyPermille: 250, RelationshipHit: 20},
		Combat:             CombatConfig{AttackDice: dice.MustParse("1d20"), DamageDice: dice.MustParse("1d6"), HitTarget: 10},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, loc := range []string{"hommlet", "darkwood"} {
		if err := w.AddLocation(&Location{ID: loc, Name: loc, Neighbors: []string{otherLoc(loc)}}); err != nil {
			t.Fatal(err)
		}
	}
	return w
}

func otherLoc(id string) string {
	if id == "hommlet" {
		return "darkwood"
	}
	return "hommlet"
}

func addNPC(t *testing.T, w *World, id, loc string, pos Vec2i, strength int) *Entity {
	t.Helper()
	e := &Entity{
		ID: id, Name: id, Kind: KindAutonomous, Location: loc, Pos: pos,
		HP: 10, MaxHP: 10, Strength: strength, Alive: true,
	}
	if err := w.AddEntity(e); err != nil {
		t.Fatal(err)
	}
	return e
}

// recorder captures emitted transitions for assertions.
type recorder struct{ entries []SimEventEntry }

func (r *recorder) WriteSimEvent(e SimEventEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *recorder) kinds() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Kind)
	}
	return out
}

func TestWorld_SinglePlayer(t *testing.T) {
	w := newTestWorld(t)
	if err := w.AddEntity(&Entity{ID: "p1", Kind: KindPlayer, Location: "hommlet", HP: 20, Alive: true}); err != nil {
		t.Fatal(err)
	}
	err := w.AddEntity(&Entity{ID: "p2", Kind: KindPlayer, Location: "hommlet", HP: 20, Alive: true})
	if !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("second player accepted: %v", err)
	}
}

func TestWorld_RemovalCascade(t *testing.T) {
	w := newTestWorld(t)
	rec := &recorder{}
	w.SetEventLogger(rec)

	addNPC(t, w, "npc", "hommlet", Vec2i{}, 3)
	if _, err := w.AddGroup("g", "G"); err != nil {
		t.Fatal(err)
	}
	if err := w.AddMember("g", "npc"); err != nil {
		t.Fatal(err)
	}
	evID, err := w.ScheduleEvent(10, EventPayload{Kind: EventTravelArrive, EntityID: "npc", Location: "darkwood"})
	if err != nil {
		t.Fatal(err)
	}

	if err := w.RemoveEntity("npc", "test"); err != nil {
		t.Fatal(err)
	}

	if w.Registry().Has("npc") {
		t.Fatal("registry still holds the entity")
	}
	g, _ := w.Ledger().Group("g")
	if g.Members["npc"] {
		t.Fatal("ledger still holds the membership")
	}
	if err := w.CancelEvent(evID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("referencing event survived: %v", err)
	}

	want := map[string]bool{"MEMBER_LOST": false, "EVENT_CANCELLED": false, "ENTITY_REMOVED": false}
	for _, k := range rec.kinds() {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("missing %s transition", k)
		}
	}
}

func TestWorld_TravelIsScheduledLatency(t *testing.T) {
	w := newTestWorld(t)
	e := addNPC(t, w, "npc", "hommlet", Vec2i{}, 3)

	w.applyAction(Action{Kind: ActionMove, ActorID: "npc", TargetLocation: "darkwood"}, w.Now())
	if e.TravelEventID == "" {
		t.Fatal("no travel event scheduled")
	}
	if e.Location != "hommlet" {
		t.Fatal("moved instantly")
	}
	// A second cross-location move must not stack another event.
	pendingBefore := w.Scheduler().Len()
	w.applyAction(Action{Kind: ActionMove, ActorID: "npc", TargetLocation: "darkwood"}, w.Now())
	if w.Scheduler().Len() != pendingBefore {
		t.Fatal("duplicate travel event")
	}

	// TravelTicks=3: arrival on the third tick.
	for i := 0; i < 3; i++ {
		w.StepOnce()
	}
	if e.Location != "darkwood" || e.TravelEventID != "" {
		t.Fatalf("after travel: loc=%s pending=%q", e.Location, e.TravelEventID)
	}
}

func TestWorld_StaleEventIsLoggedNoop(t *testing.T) {
	w := newTestWorld(t)
	addNPC(t, w, "npc", "hommlet", Vec2i{}, 3)
	if _, err := w.ScheduleEvent(1, EventPayload{Kind: EventTravelArrive, EntityID: "ghost", Location: "darkwood"}); err != nil {
		t.Fatal(err)
	}
	w.StepOnce()
	errs := w.ErrorLog()
	if len(errs) != 1 {
		t.Fatalf("error log: %d entries", len(errs))
	}
	if errs[0].Source != "dispatch" {
		t.Fatalf("source = %s", errs[0].Source)
	}
	// The world is still running.
	if _, digest := w.StepOnce(); digest == "" {
		t.Fatal("no digest after recovery")
	}
}

func TestWorld_RelationshipDecayDriftsTowardZero(t *testing.T) {
	w := newTestWorld(t)
	_, _ = w.AddGroup("a", "A")
	_, _ = w.AddGroup("b", "B")
	ga, _ := w.Ledger().Group("a")
	ga.Relations["b"] = 3
	gb, _ := w.Ledger().Group("b")
	gb.Relations["a"] = -2

	for i := 0; i < 5; i++ {
		w.decayRelationships(uint64(i))
	}
	if ga.Relations["b"] != 0 || gb.Relations["a"] != 0 {
		t.Fatalf("after decay: a->b=%d b->a=%d", ga.Relations["b"], gb.Relations["a"])
	}
}

func TestWorld_ClaimRequiresKnownLocation(t *testing.T) {
	w := newTestWorld(t)
	_, _ = w.AddGroup("a", "A")
	if err := w.ClaimTerritory("a", "atlantis"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestWorld_ClaimHandoverIsObservable(t *testing.T) {
	w := newTestWorld(t)
	rec := &recorder{}
	w.SetEventLogger(rec)
	_, _ = w.AddGroup("red", "Red")
	_, _ = w.AddGroup("blue", "Blue")

	if err := w.ClaimTerritory("red", "hommlet"); err != nil {
		t.Fatal(err)
	}
	if err := w.ClaimTerritory("blue", "hommlet"); err != nil {
		t.Fatal(err)
	}
	if got := w.Ledger().Holder("hommlet"); got != "blue" {
		t.Fatalf("holder = %s", got)
	}
	lost := false
	for _, e := range rec.entries {
		if e.Kind == "CLAIM_LOST" && strings.Contains(e.Detail, "red") {
			lost = true
		}
	}
	if !lost {
		t.Fatal("displaced holder not reported")
	}
}

func TestWorld_SpawnWaveAllOrNothing(t *testing.T) {
	w := newTestWorld(t)
	addNPC(t, w, "dup", "hommlet", Vec2i{}, 1)

	ev := ScheduledEvent{ID: "EVT_TEST", Payload: EventPayload{
		Kind:     EventSpawnWave,
		Location: "hommlet",
		Spawns: []SpawnDef{
			{ID: "fresh", Name: "Fresh", Kind: KindAutonomous, HP: 5},
			{ID: "dup", Name: "Dup", Kind: KindAutonomous, HP: 5},
		},
	}}
	err := w.executePayload(ev, 1)
	if !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("got %v", err)
	}
	if w.Registry().Has("fresh") {
		t.Fatal("partial wave applied")
	}
}

func TestWorld_DigestStableAndSensitive(t *testing.T) {
	build := func() *World {
		w := newTestWorld(t)
		addNPC(t, w, "npc", "hommlet", Vec2i{X: 1}, 3)
		_, _ = w.AddGroup("g", "G")
		_ = w.AddMember("g", "npc")
		return w
	}
	w1, w2 := build(), build()
	if d1, d2 := w1.StateDigest(0), w2.StateDigest(0); d1 != d2 {
		t.Fatalf("equal states, digests differ:\n%s\n%s", d1, d2)
	}
	e, _ := w2.Registry().Get("npc")
	e.HP--
	if w1.StateDigest(0) == w2.StateDigest(0) {
		t.Fatal("digest missed an HP change")
	}
}

func TestWorld_DigestSeesSpawnWaveContents(t *testing.T) {
	build := func(name string) *World {
		w := newTestWorld(t)
		_, err := w.ScheduleEvent(10, EventPayload{
			Kind:     EventSpawnWave,
			Location: "hommlet",
			Spawns:   []SpawnDef{{ID: "s1", Name: name, Kind: KindAutonomous, HP: 5}},
		})
		if err != nil {
			t.Fatal(err)
		}
		return w
	}
	// Same location, same count: only the nested spawn list differs.
	w1, w2 := build("Rat"), build("Bat")
	if w1.StateDigest(0) == w2.StateDigest(0) {
		t.Fatal("digest missed a pending payload difference")
	}
}

func TestWorld_ZeroConfigGetsDefaults(t *testing.T) {
	w, err := New(WorldConfig{ID: "bare"})
	if err != nil {
		t.Fatal(err)
	}
	if w.cfg.TickRateHz <= 0 {
		t.Fatalf("tick rate not defaulted: %d", w.cfg.TickRateHz)
	}
	if w.cfg.TravelTicks <= 0 || w.cfg.Combat.HitTarget == 0 {
		t.Fatalf("config defaults missing: %+v", w.cfg)
	}
}

func TestWorld_ErrorLogSurvivesInQueries(t *testing.T) {
	w := newTestWorld(t)
	for i := 0; i < 3; i++ {
		w.recordError(fmt.Sprintf("EVT_%06d", i), "test", "boom")
	}
	if got := len(w.ErrorLog()); got != 3 {
		t.Fatalf("error log: %d", got)
	}
}
