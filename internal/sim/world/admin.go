package world

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ashvale.world/internal/persistence/snapshot"
)

// AdminRequest is one console command, answered on Reply. Requests are
// drained between ticks so handlers see a quiescent world.
type AdminRequest struct {
	Line  string
	Reply chan AdminReply
}

type AdminReply struct {
	Output string
	Err    error
}

// Admin submits a command line and blocks for the reply.
func (w *World) Admin(line string) (string, error) {
	req := AdminRequest{Line: line, Reply: make(chan AdminReply, 1)}
	select {
	case w.admin <- req:
	case <-w.stop:
		return "", fmt.Errorf("world stopped")
	}
	select {
	case rep := <-req.Reply:
		return rep.Output, rep.Err
	case <-w.stop:
		return "", fmt.Errorf("world stopped")
	}
}

type adminHandler func(w *World, args []string) (string, error)

var adminCommands = map[string]adminHandler{
	"status":   adminStatus,
	"entity":   adminEntity,
	"group":    adminGroup,
	"events":   adminEvents,
	"errors":   adminErrors,
	"advance":  adminAdvance,
	"teleport": adminTeleport,
	"spawn":    adminSpawn,
	"relate":   adminRelate,
	"claim":    adminClaim,
	"schedule": adminSchedule,
	"cancel":   adminCancel,
	"save":     adminSave,
}

// help ranges over adminCommands, so it registers after initialization.
func init() { adminCommands["help"] = adminHelp }

// handleAdmin executes one queued request. Loop-goroutine only.
func (w *World) handleAdmin(req AdminRequest) {
	fields := strings.Fields(req.Line)
	if len(fields) == 0 {
		req.Reply <- AdminReply{Err: fmt.Errorf("empty command")}
		return
	}
	h, ok := adminCommands[fields[0]]
	if !ok {
		req.Reply <- AdminReply{Err: fmt.Errorf("unknown command %q (try help)", fields[0])}
		return
	}
	out, err := h(w, fields[1:])
	if err == nil {
		w.emit("ADMIN", "", req.Line)
	}
	req.Reply <- AdminReply{Output: out, Err: err}
}

func adminHelp(w *World, args []string) (string, error) {
	names := make([]string, 0, len(adminCommands))
	for name := range adminCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, " "), nil
}

func adminStatus(w *World, args []string) (string, error) {
	tod := BreakdownTick(w.clock.Now())
	return fmt.Sprintf("tick %d (day %d %02d:%02d:%02d) entities=%d groups=%d pending=%d errors=%d",
		w.clock.Now(), tod.Day, tod.Hour, tod.Minute, tod.Second,
		w.registry.Len(), len(w.ledger.GroupIDs()), w.scheduler.Len(), len(w.errors)), nil
}

func adminEntity(w *World, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: entity <id>")
	}
	snap, err := w.EntitySnapshot(args[0])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %q kind=%s loc=%s pos=(%d,%d) hp=%d/%d str=%d armor=%d alive=%t group=%s behavior=%s",
		snap.ID, snap.Name, snap.Kind, snap.Location, snap.Pos.X, snap.Pos.Y,
		snap.HP, snap.MaxHP, snap.Strength, snap.Armor, snap.Alive, snap.GroupID, snap.Behavior), nil
}

func adminGroup(w *World, args []string) (string, error) {
	if len(args) == 0 {
		return strings.Join(w.ledger.GroupIDs(), " "), nil
	}
	snap, err := w.GroupSnapshot(args[0])
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %q power=%.1f members=%d territory=%v", snap.ID, snap.Name, snap.Power, len(snap.Members), snap.Territory)
	for _, rel := range snap.Relations {
		fmt.Fprintf(&b, "\n  -> %s %d (%s)", rel.GroupID, rel.Score, rel.Band)
	}
	return b.String(), nil
}

func adminEvents(w *World, args []string) (string, error) {
	pending := w.scheduler.Pending()
	if len(pending) == 0 {
		return "no pending events", nil
	}
	var b strings.Builder
	for _, ev := range pending {
		fmt.Fprintf(&b, "%s due=%d %s\n", ev.ID, ev.Due, ev.Payload.Describe())
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func adminErrors(w *World, args []string) (string, error) {
	n := 10
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return "", fmt.Errorf("usage: errors [n]")
		}
		n = v
	}
	recs := w.ErrorLog()
	if len(recs) == 0 {
		return "no errors", nil
	}
	if len(recs) > n {
		recs = recs[len(recs)-n:]
	}
	var b strings.Builder
	for _, r := range recs {
		fmt.Fprintf(&b, "tick=%d src=%s event=%s %s\n", r.Tick, r.Source, r.EventID, r.Message)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// adminAdvance runs n full ticks inline, so scheduled events and behaviors
// fire on the skipped-through ticks instead of being jumped over.
func adminAdvance(w *World, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: advance <ticks>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return "", fmt.Errorf("advance: %w", ErrInvalidDuration)
	}
	var last uint64
	for i := 0; i < n; i++ {
		last, _ = w.StepOnce()
	}
	return fmt.Sprintf("advanced %d ticks, now %d", n, last), nil
}

func adminTeleport(w *World, args []string) (string, error) {
	if len(args) != 4 {
		return "", fmt.Errorf("usage: teleport <entity> <location> <x> <y>")
	}
	e, err := w.registry.Get(args[0])
	if err != nil {
		return "", err
	}
	if _, ok := w.locations[args[1]]; !ok {
		return "", fmt.Errorf("location %s: %w", args[1], ErrNotFound)
	}
	x, err1 := strconv.Atoi(args[2])
	y, err2 := strconv.Atoi(args[3])
	if err1 != nil || err2 != nil {
		return "", fmt.Errorf("teleport: bad coordinates")
	}
	if e.TravelEventID != "" {
		_ = w.scheduler.Cancel(e.TravelEventID)
		e.TravelEventID = ""
	}
	e.Location = args[1]
	e.Pos = Vec2i{X: x, Y: y}
	return fmt.Sprintf("%s now at %s (%d,%d)", e.ID, e.Location, x, y), nil
}

func adminSpawn(w *World, args []string) (string, error) {
	if len(args) < 3 {
		return "", fmt.Errorf("usage: spawn <id> <location> <behavior> [hp] [strength]")
	}
	if err := ValidateBehaviorKind(args[2]); err != nil {
		return "", err
	}
	hp, strength := 10, 3
	if len(args) > 3 {
		if v, err := strconv.Atoi(args[3]); err == nil {
			hp = v
		}
	}
	if len(args) > 4 {
		if v, err := strconv.Atoi(args[4]); err == nil {
			strength = v
		}
	}
	if _, ok := w.locations[args[1]]; !ok {
		return "", fmt.Errorf("location %s: %w", args[1], ErrNotFound)
	}
	e := &Entity{
		ID:       args[0],
		Name:     args[0],
		Kind:     KindAutonomous,
		Location: args[1],
		HP:       hp,
		MaxHP:    hp,
		Strength: strength,
		Alive:    true,
		Behavior: BehaviorSpec{Kind: BehaviorKind(args[2])},
	}
	if err := w.AddEntity(e); err != nil {
		return "", err
	}
	return fmt.Sprintf("spawned %s at %s", e.ID, e.Location), nil
}

func adminRelate(w *World, args []string) (string, error) {
	if len(args) != 3 {
		return "", fmt.Errorf("usage: relate <group> <group> <delta>")
	}
	delta, err := strconv.Atoi(args[2])
	if err != nil {
		return "", fmt.Errorf("relate: bad delta %q", args[2])
	}
	score, err := w.UpdateRelationship(args[0], args[1], delta)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s->%s now %d (%s)", args[0], args[1], score, BandFor(score)), nil
}

func adminClaim(w *World, args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("usage: claim <group> <location>")
	}
	if err := w.ClaimTerritory(args[0], args[1]); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s holds %s", args[0], args[1]), nil
}

// adminSchedule covers the payload kinds expressible on a command line.
func adminSchedule(w *World, args []string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("usage: schedule <+ticks> conflict <att> <def> | diplomacy <from> <to> <delta> | recruit <group> <slots>")
	}
	offset, err := strconv.ParseUint(strings.TrimPrefix(args[0], "+"), 10, 64)
	if err != nil {
		return "", fmt.Errorf("schedule: bad offset %q", args[0])
	}
	var p EventPayload
	switch args[1] {
	case "conflict":
		if len(args) != 4 {
			return "", fmt.Errorf("usage: schedule <+ticks> conflict <att> <def>")
		}
		p = EventPayload{Kind: EventConflictResolution, AttackerID: args[2], DefenderID: args[3]}
	case "diplomacy":
		if len(args) != 5 {
			return "", fmt.Errorf("usage: schedule <+ticks> diplomacy <from> <to> <delta>")
		}
		delta, err := strconv.Atoi(args[4])
		if err != nil {
			return "", fmt.Errorf("schedule: bad delta %q", args[4])
		}
		p = EventPayload{Kind: EventDiplomaticShift, FromID: args[2], ToID: args[3], Delta: delta}
	case "recruit":
		if len(args) != 4 {
			return "", fmt.Errorf("usage: schedule <+ticks> recruit <group> <slots>")
		}
		slots, err := strconv.Atoi(args[3])
		if err != nil {
			return "", fmt.Errorf("schedule: bad slots %q", args[3])
		}
		p = EventPayload{Kind: EventRecruitmentDrive, GroupID: args[2], Slots: slots}
	default:
		return "", fmt.Errorf("schedule: unknown payload kind %q", args[1])
	}
	id, err := w.ScheduleEvent(w.clock.Now()+offset, p)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("scheduled %s due=%d", id, w.clock.Now()+offset), nil
}

func adminSave(w *World, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: save <path>")
	}
	snap := w.ExportSnapshot()
	if err := snapshot.WriteSnapshot(args[0], snap); err != nil {
		return "", err
	}
	return fmt.Sprintf("saved tick %d to %s", snap.Header.Tick, args[0]), nil
}

func adminCancel(w *World, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: cancel <event>")
	}
	if err := w.CancelEvent(args[0]); err != nil {
		return "", err
	}
	return fmt.Sprintf("cancelled %s", args[0]), nil
}
