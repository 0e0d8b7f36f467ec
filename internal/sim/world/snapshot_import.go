package world

import (
	"encoding/json"
	"fmt"

	"ashvale.world/internal/persistence/snapshot"
)

// FromSnapshot rebuilds a world from a V1 snapshot. The snapshot is
// authoritative for seed, clock, and cadences; cfg supplies only the knobs a
// snapshot does not carry (dice, weights, latencies). The random stream is
// derived from seed and tick, so a restored world replays the exact stream
// the exporting world would have drawn.
func FromSnapshot(cfg WorldConfig, snap snapshot.SnapshotV1) (*World, error) {
	if snap.Header.Version != 1 {
		return nil, fmt.Errorf("snapshot version %d: %w", snap.Header.Version, ErrNotFound)
	}
	cfg.ID = snap.Header.WorldID
	cfg.Seed = snap.Seed
	if snap.TickRateHz > 0 {
		cfg.TickRateHz = snap.TickRateHz
	}
	cfg.StrategyEveryTicks = snap.StrategyEveryTicks
	cfg.SnapshotEveryTicks = snap.SnapshotEveryTicks
	cfg.DecayEveryTicks = snap.DecayEveryTicks

	// New schedules the initial decay event; scheduler.restore below
	// replaces the queue wholesale, so nothing double-fires.
	w, err := New(cfg)
	if err != nil {
		return nil, err
	}
	w.clock = NewClock(snap.Header.Tick)
	w.tick.Store(snap.Header.Tick)

	for _, lv := range snap.Locations {
		if err := w.AddLocation(&Location{
			ID:        lv.ID,
			Name:      lv.Name,
			Neighbors: append([]string(nil), lv.Neighbors...),
			Resources: copyIntMap(lv.Resources),
		}); err != nil {
			return nil, fmt.Errorf("location %s: %w", lv.ID, err)
		}
	}

	for _, ev := range snap.Entities {
		e, err := importEntity(ev)
		if err != nil {
			return nil, err
		}
		if err := w.AddEntity(e); err != nil {
			return nil, fmt.Errorf("entity %s: %w", ev.ID, err)
		}
	}

	for _, gv := range snap.Groups {
		g, err := w.ledger.AddGroup(gv.ID, gv.Name, gv.CreatedTick)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", gv.ID, err)
		}
		for _, m := range gv.Members {
			if err := w.ledger.AddMember(gv.ID, m); err != nil {
				return nil, fmt.Errorf("group %s member %s: %w", gv.ID, m, err)
			}
		}
		for k, v := range gv.Relations {
			g.Relations[k] = v
		}
		for k, v := range gv.Resources {
			g.Resources[k] = v
		}
		for _, goal := range gv.Goals {
			g.Goals = append(g.Goals, Goal{Kind: goal.Kind, Target: goal.Target, Priority: goal.Priority})
		}
	}

	for _, claim := range snap.Territory {
		if _, err := w.ledger.ClaimTerritory(claim.GroupID, claim.Location); err != nil {
			return nil, fmt.Errorf("claim %s by %s: %w", claim.Location, claim.GroupID, err)
		}
	}

	events := make([]ScheduledEvent, 0, len(snap.Events))
	for _, ev := range snap.Events {
		var p EventPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return nil, fmt.Errorf("event %s payload: %w", ev.ID, err)
		}
		events = append(events, ScheduledEvent{ID: ev.ID, Due: ev.Due, Seq: ev.Seq, Payload: p})
	}
	w.scheduler.restore(events, snap.Counters.NextEvent, snap.Counters.NextSeq)

	for _, rec := range snap.Errors {
		w.errors = append(w.errors, ErrorRecord{
			Tick:    rec.Tick,
			EventID: rec.EventID,
			Source:  rec.Source,
			Message: rec.Message,
		})
	}
	return w, nil
}

func importEntity(ev snapshot.EntityV1) (*Entity, error) {
	kind := EntityKind(ev.Kind)
	switch kind {
	case KindPlayer, KindAutonomous, KindInert:
	default:
		return nil, fmt.Errorf("entity %s kind %q: %w", ev.ID, ev.Kind, ErrNotFound)
	}
	if err := ValidateBehaviorKind(ev.Behavior.Kind); ev.Behavior.Kind != "" && err != nil {
		return nil, fmt.Errorf("entity %s: %w", ev.ID, err)
	}
	e := &Entity{
		ID:            ev.ID,
		Name:          ev.Name,
		Kind:          kind,
		Location:      ev.Location,
		Pos:           Vec2i{X: ev.Pos[0], Y: ev.Pos[1]},
		HP:            ev.HP,
		MaxHP:         ev.MaxHP,
		Strength:      ev.Strength,
		Armor:         ev.Armor,
		Alive:         ev.Alive,
		TravelEventID: ev.TravelEventID,
		Behavior: BehaviorSpec{
			Kind:           BehaviorKind(ev.Behavior.Kind),
			WaypointIndex:  ev.Behavior.WaypointIndex,
			DetectionRange: ev.Behavior.DetectionRange,
			Home:           Vec2i{X: ev.Behavior.Home[0], Y: ev.Behavior.Home[1]},
			HostileTo:      append([]string(nil), ev.Behavior.HostileTo...),
		},
	}
	for _, wp := range ev.Behavior.Waypoints {
		e.Behavior.Waypoints = append(e.Behavior.Waypoints, Waypoint{
			Location: wp.Location,
			Pos:      Vec2i{X: wp.Pos[0], Y: wp.Pos[1]},
		})
	}
	return e, nil
}
