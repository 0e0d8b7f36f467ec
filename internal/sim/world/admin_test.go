package world

import (
	"path/filepath"
	"strings"
	"testing"

	"ashvale.world/internal/persistence/snapshot"
)

// runAdmin exercises handleAdmin directly, the way the loop does between
// ticks.
func runAdmin(t *testing.T, w *World, line string) (string, error) {
	t.Helper()
	req := AdminRequest{Line: line, Reply: make(chan AdminReply, 1)}
	w.handleAdmin(req)
	rep := <-req.Reply
	return rep.Output, rep.Err
}

func TestAdmin_HelpListsEveryCommand(t *testing.T) {
	w := newTestWorld(t)
	out, err := runAdmin(t, w, "help")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"status", "advance", "save", "help"} {
		if !strings.Contains(out, name) {
			t.Errorf("help output missing %q: %s", name, out)
		}
	}
}

func TestAdmin_UnknownCommand(t *testing.T) {
	w := newTestWorld(t)
	if _, err := runAdmin(t, w, "frobnicate"); err == nil {
		t.Fatal("unknown command accepted")
	}
	if _, err := runAdmin(t, w, "   "); err == nil {
		t.Fatal("empty command accepted")
	}
}

func TestAdmin_StatusAndEntity(t *testing.T) {
	w := newTestWorld(t)
	addNPC(t, w, "npc", "hommlet", Vec2i{X: 1, Y: 2}, 3)

	out, err := runAdmin(t, w, "status")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "entities=1") {
		t.Fatalf("status: %s", out)
	}

	out, err = runAdmin(t, w, "entity npc")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "pos=(1,2)") || !strings.Contains(out, "loc=hommlet") {
		t.Fatalf("entity: %s", out)
	}
	if _, err := runAdmin(t, w, "entity ghost"); err == nil {
		t.Fatal("missing entity reported")
	}
}

func TestAdmin_AdvanceRunsFullTicks(t *testing.T) {
	w := newTestWorld(t)
	if _, err := w.ScheduleEvent(3, EventPayload{Kind: EventRelationshipDecay}); err != nil {
		t.Fatal(err)
	}

	if _, err := runAdmin(t, w, "advance 5"); err != nil {
		t.Fatal(err)
	}
	if w.Now() != 5 {
		t.Fatalf("clock at %d", w.Now())
	}
	// The skipped-through event fired rather than being jumped over.
	if w.Scheduler().Len() != 0 {
		t.Fatalf("pending after advance: %d", w.Scheduler().Len())
	}

	if _, err := runAdmin(t, w, "advance -1"); err == nil {
		t.Fatal("negative advance accepted")
	}
}

func TestAdmin_TeleportCancelsTravel(t *testing.T) {
	w := newTestWorld(t)
	e := addNPC(t, w, "npc", "hommlet", Vec2i{}, 3)
	w.applyAction(Action{Kind: ActionMove, ActorID: "npc", TargetLocation: "darkwood"}, w.Now())
	if e.TravelEventID == "" {
		t.Fatal("no travel in flight")
	}

	if _, err := runAdmin(t, w, "teleport npc darkwood 4 4"); err != nil {
		t.Fatal(err)
	}
	if e.Location != "darkwood" || e.Pos != (Vec2i{X: 4, Y: 4}) {
		t.Fatalf("after teleport: loc=%s pos=%+v", e.Location, e.Pos)
	}
	if e.TravelEventID != "" || w.Scheduler().Len() != 0 {
		t.Fatal("stale travel event survived teleport")
	}
}

func TestAdmin_ScheduleAndCancel(t *testing.T) {
	w := newTestWorld(t)
	_, _ = w.AddGroup("red", "Red")
	_, _ = w.AddGroup("blue", "Blue")

	out, err := runAdmin(t, w, "schedule +10 conflict red blue")
	if err != nil {
		t.Fatal(err)
	}
	pending := w.Scheduler().Pending()
	if len(pending) != 1 || pending[0].Payload.Kind != EventConflictResolution {
		t.Fatalf("pending: %+v", pending)
	}
	if !strings.Contains(out, pending[0].ID) {
		t.Fatalf("output %q does not name the event", out)
	}

	if _, err := runAdmin(t, w, "cancel "+pending[0].ID); err != nil {
		t.Fatal(err)
	}
	if w.Scheduler().Len() != 0 {
		t.Fatal("cancel left the event pending")
	}

	if _, err := runAdmin(t, w, "schedule +1 conflict"); err == nil {
		t.Fatal("short conflict form accepted")
	}
}

func TestAdmin_SaveWritesSnapshot(t *testing.T) {
	w := newTestWorld(t)
	addNPC(t, w, "npc", "hommlet", Vec2i{}, 3)
	path := filepath.Join(t.TempDir(), "world.snap.zst")

	if _, err := runAdmin(t, w, "save "+path); err != nil {
		t.Fatal(err)
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Header.WorldID != "test" || len(snap.Entities) != 1 {
		t.Fatalf("snapshot: %+v", snap.Header)
	}
}

func TestAdmin_SpawnValidatesBehavior(t *testing.T) {
	w := newTestWorld(t)
	if _, err := runAdmin(t, w, "spawn wolf darkwood BERSERK"); err == nil {
		t.Fatal("unknown behavior accepted")
	}
	if _, err := runAdmin(t, w, "spawn wolf darkwood ATTACK_ON_SIGHT 8 2"); err != nil {
		t.Fatal(err)
	}
	e, err := w.Registry().Get("wolf")
	if err != nil {
		t.Fatal(err)
	}
	if e.HP != 8 || e.Strength != 2 || e.Behavior.Kind != BehaviorAttackOnSight {
		t.Fatalf("spawned: %+v", e)
	}
}
