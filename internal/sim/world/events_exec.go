package world

import "fmt"

// consistencyError marks a payload whose referents vanished between
// scheduling and dispatch. Treated as a logged no-op, never a crash.
type consistencyError struct{ msg string }

func (e consistencyError) Error() string { return e.msg }

// dispatchDue pops and executes every due event. Each payload's failure is
// caught and recorded without aborting the remaining batch.
func (w *World) dispatchDue(nowTick uint64) int {
	batch := w.scheduler.DispatchDue(nowTick)
	for _, ev := range batch {
		w.emit("DISPATCH", ev.ID, ev.Payload.Describe())
		if err := w.executePayload(ev, nowTick); err != nil {
			if _, ok := err.(consistencyError); ok {
				w.recordError(ev.ID, "dispatch", fmt.Sprintf("stale payload %s: %v", ev.Payload.Describe(), err))
			} else {
				w.recordError(ev.ID, "dispatch", fmt.Sprintf("payload %s failed: %v", ev.Payload.Describe(), err))
			}
		}
	}
	return len(batch)
}

// executePayload is the exhaustive dispatch over the closed event kinds.
func (w *World) executePayload(ev ScheduledEvent, nowTick uint64) error {
	p := ev.Payload
	switch p.Kind {
	case EventConflictResolution:
		return w.resolveConflict(ev, nowTick)
	case EventRecruitmentDrive:
		return w.runRecruitmentDrive(ev, nowTick)
	case EventDiplomaticShift:
		if !w.ledger.Has(p.FromID) || !w.ledger.Has(p.ToID) {
			return consistencyError{fmt.Sprintf("group %s or %s gone", p.FromID, p.ToID)}
		}
		score, err := w.ledger.UpdateRelationship(p.FromID, p.ToID, p.Delta)
		if err != nil {
			return err
		}
		w.emit("DIPLOMACY", ev.ID, fmt.Sprintf("%s->%s now %d (%s)", p.FromID, p.ToID, score, BandFor(score)))
		return nil
	case EventRelationshipDecay:
		w.decayRelationships(nowTick)
		// Self-rescheduling: the next decay lands one period out.
		if w.cfg.DecayEveryTicks > 0 {
			if _, err := w.scheduler.Schedule(nowTick, nowTick+uint64(w.cfg.DecayEveryTicks), EventPayload{Kind: EventRelationshipDecay}); err != nil {
				return err
			}
		}
		return nil
	case EventSpawnWave:
		return w.runSpawnWave(ev, nowTick)
	case EventTravelArrive:
		e, err := w.registry.Get(p.EntityID)
		if err != nil || !e.Alive {
			return consistencyError{fmt.Sprintf("traveler %s gone", p.EntityID)}
		}
		if _, ok := w.locations[p.Location]; !ok {
			e.TravelEventID = ""
			return consistencyError{fmt.Sprintf("destination %s gone", p.Location)}
		}
		e.Location = p.Location
		e.TravelEventID = ""
		w.emit("TRAVEL", ev.ID, fmt.Sprintf("%s arrived at %s", e.ID, p.Location))
		return nil
	default:
		return fmt.Errorf("event kind %q: %w", p.Kind, ErrNotFound)
	}
}

// decayRelationships drifts every per-direction score toward zero by the
// configured step.
func (w *World) decayRelationships(nowTick uint64) {
	step := w.cfg.DecayStep
	if step <= 0 {
		step = 1
	}
	for _, gid := range w.ledger.GroupIDs() {
		g, _ := w.ledger.Group(gid)
		for _, other := range sortedKeys(g.Relations) {
			score := g.Relations[other]
			switch {
			case score > 0:
				g.Relations[other] = score - minInt(step, score)
			case score < 0:
				g.Relations[other] = score + minInt(step, -score)
			}
		}
	}
}

// runRecruitmentDrive converts groupless autonomous entities inside the
// group's territory into members, up to the drive's slot count.
func (w *World) runRecruitmentDrive(ev ScheduledEvent, nowTick uint64) error {
	p := ev.Payload
	if !w.ledger.Has(p.GroupID) {
		return consistencyError{fmt.Sprintf("group %s gone", p.GroupID)}
	}
	territory := map[string]bool{}
	for _, loc := range w.ledger.TerritoryOf(p.GroupID) {
		territory[loc] = true
	}
	recruited := 0
	for _, id := range w.registry.ListIDs() {
		if recruited >= p.Slots {
			break
		}
		e, err := w.registry.Get(id)
		if err != nil || !e.Alive || e.Kind != KindAutonomous || e.GroupID != "" {
			continue
		}
		if len(territory) > 0 && !territory[e.Location] {
			continue
		}
		if err := w.ledger.AddMember(p.GroupID, id); err == nil {
			recruited++
		}
	}
	w.emit("RECRUIT_DRIVE", ev.ID, fmt.Sprintf("group %s recruited %d/%d", p.GroupID, recruited, p.Slots))
	return nil
}

// runSpawnWave adds the wave's entities. Staged first so a duplicate id
// fails the whole wave instead of leaving half of it behind.
func (w *World) runSpawnWave(ev ScheduledEvent, nowTick uint64) error {
	p := ev.Payload
	if _, ok := w.locations[p.Location]; !ok {
		return consistencyError{fmt.Sprintf("location %s gone", p.Location)}
	}
	for _, def := range p.Spawns {
		if w.registry.Has(def.ID) {
			return fmt.Errorf("spawn %s: %w", def.ID, ErrDuplicateIdentifier)
		}
		if def.GroupID != "" && !w.ledger.Has(def.GroupID) {
			return consistencyError{fmt.Sprintf("spawn group %s gone", def.GroupID)}
		}
	}
	for _, def := range p.Spawns {
		e := &Entity{
			ID:       def.ID,
			Name:     def.Name,
			Kind:     def.Kind,
			Location: p.Location,
			HP:       def.HP,
			MaxHP:    def.HP,
			Strength: def.Strength,
			Armor:    def.Armor,
			Alive:    true,
			Behavior: def.Behavior,
		}
		if err := w.registry.Add(e); err != nil {
			return err
		}
		if def.GroupID != "" {
			if err := w.ledger.AddMember(def.GroupID, def.ID); err != nil {
				return err
			}
		}
	}
	w.emit("SPAWN", ev.ID, fmt.Sprintf("spawned %d at %s", len(p.Spawns), p.Location))
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
