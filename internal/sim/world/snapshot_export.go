package world

import (
	"encoding/json"

	"ashvale.world/internal/persistence/snapshot"
)

// ExportSnapshot copies the full world state into the V1 DTOs. Everything is
// emitted in sorted order so two equal-digest worlds export byte-identical
// snapshots.
func (w *World) ExportSnapshot() snapshot.SnapshotV1 {
	nowTick := w.clock.Now()
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: 1,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		Seed:               w.cfg.Seed,
		TickRateHz:         w.cfg.TickRateHz,
		StrategyEveryTicks: w.cfg.StrategyEveryTicks,
		SnapshotEveryTicks: w.cfg.SnapshotEveryTicks,
		DecayEveryTicks:    w.cfg.DecayEveryTicks,
	}

	for _, id := range sortedKeys(w.locations) {
		loc := w.locations[id]
		snap.Locations = append(snap.Locations, snapshot.LocationV1{
			ID:        loc.ID,
			Name:      loc.Name,
			Neighbors: append([]string(nil), loc.Neighbors...),
			Resources: copyIntMap(loc.Resources),
		})
	}

	for _, id := range w.registry.ListIDs() {
		e, err := w.registry.Get(id)
		if err != nil {
			continue
		}
		snap.Entities = append(snap.Entities, exportEntity(e))
	}

	for _, gid := range w.ledger.GroupIDs() {
		g, err := w.ledger.Group(gid)
		if err != nil {
			continue
		}
		gv := snapshot.GroupV1{
			ID:          g.ID,
			Name:        g.Name,
			CreatedTick: g.CreatedTick,
			Members:     sortedKeys(g.Members),
			Relations:   copyIntMap(g.Relations),
			Resources:   copyIntMap(g.Resources),
		}
		for _, goal := range g.Goals {
			gv.Goals = append(gv.Goals, snapshot.GoalV1{Kind: goal.Kind, Target: goal.Target, Priority: goal.Priority})
		}
		snap.Groups = append(snap.Groups, gv)
	}

	for _, loc := range w.ledger.TerritoryLocations() {
		snap.Territory = append(snap.Territory, snapshot.ClaimV1{
			Location: loc,
			GroupID:  w.ledger.Holder(loc),
		})
	}

	for _, ev := range w.scheduler.Pending() {
		pb, _ := json.Marshal(ev.Payload)
		snap.Events = append(snap.Events, snapshot.EventV1{
			ID:      ev.ID,
			Due:     ev.Due,
			Seq:     ev.Seq,
			Payload: pb,
		})
	}

	for _, rec := range w.errors {
		snap.Errors = append(snap.Errors, snapshot.ErrorV1{
			Tick:    rec.Tick,
			EventID: rec.EventID,
			Source:  rec.Source,
			Message: rec.Message,
		})
	}

	snap.Counters.NextEvent, snap.Counters.NextSeq = w.scheduler.counters()
	return snap
}

func exportEntity(e *Entity) snapshot.EntityV1 {
	ev := snapshot.EntityV1{
		ID:            e.ID,
		Name:          e.Name,
		Kind:          string(e.Kind),
		Location:      e.Location,
		Pos:           [2]int{e.Pos.X, e.Pos.Y},
		HP:            e.HP,
		MaxHP:         e.MaxHP,
		Strength:      e.Strength,
		Armor:         e.Armor,
		Alive:         e.Alive,
		GroupID:       e.GroupID,
		TravelEventID: e.TravelEventID,
		Behavior: snapshot.BehaviorV1{
			Kind:           string(e.Behavior.Kind),
			WaypointIndex:  e.Behavior.WaypointIndex,
			DetectionRange: e.Behavior.DetectionRange,
			Home:           [2]int{e.Behavior.Home.X, e.Behavior.Home.Y},
			HostileTo:      append([]string(nil), e.Behavior.HostileTo...),
		},
	}
	for _, wp := range e.Behavior.Waypoints {
		ev.Behavior.Waypoints = append(ev.Behavior.Waypoints, snapshot.WaypointV1{
			Location: wp.Location,
			Pos:      [2]int{wp.Pos.X, wp.Pos.Y},
		})
	}
	return ev
}

func copyIntMap(m map[string]int) map[string]int {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
