package world

import "fmt"

// evaluateStrategies runs the per-group decision pass at its own cadence, an
// order of magnitude coarser than the base tick (enforced at tuning load).
// Cheap certain effects mutate the ledger directly; effects with in-world
// latency become scheduled events.
func (w *World) evaluateStrategies(nowTick uint64) {
	every := uint64(w.cfg.StrategyEveryTicks)
	if every == 0 || nowTick%every != 0 {
		return
	}
	pendingConflicts := w.pendingConflictPairs()
	for _, gid := range w.ledger.GroupIDs() {
		if w.ledger.Dormant(gid) {
			continue
		}
		w.evaluateRecruitment(gid, nowTick)
		w.evaluateConflicts(gid, nowTick, pendingConflicts)
		w.evaluateDiplomacy(gid)
	}
}

// evaluateRecruitment schedules a drive when power is under the floor or the
// goal backlog is non-empty, funded from the group's resource pool.
func (w *World) evaluateRecruitment(gid string, nowTick uint64) {
	g, err := w.ledger.Group(gid)
	if err != nil {
		return
	}
	power, err := w.ledger.PowerLevel(gid)
	if err != nil {
		return
	}
	if power >= w.cfg.Recruit.PowerFloor && len(g.Goals) == 0 {
		return
	}
	if w.cfg.Recruit.Cost > 0 {
		if err := w.ledger.Spend(gid, w.cfg.Recruit.CostResource, w.cfg.Recruit.Cost); err != nil {
			return // can't fund a drive this cycle
		}
	}
	slots := w.cfg.Recruit.Slots
	if slots <= 0 {
		slots = 2
	}
	latency := uint64(w.cfg.Recruit.LatencyTicks)
	if latency == 0 {
		latency = uint64(w.cfg.StrategyEveryTicks) / 2
	}
	if _, err := w.scheduler.Schedule(nowTick, nowTick+latency, EventPayload{
		Kind:    EventRecruitmentDrive,
		GroupID: gid,
		Slots:   slots,
	}); err != nil {
		w.recordError("", "strategy", fmt.Sprintf("recruitment for %s: %v", gid, err))
	}
}

// evaluateConflicts schedules a resolution against each bordering group the
// relationship band marks hostile or worse, unless one is already pending.
func (w *World) evaluateConflicts(gid string, nowTick uint64, pending map[string]bool) {
	for _, other := range w.ledger.GroupIDs() {
		if other == gid || w.ledger.Dormant(other) {
			continue
		}
		band := BandFor(w.ledger.Relationship(gid, other))
		if band != BandHostile && band != BandOpenConflict {
			continue
		}
		if !w.groupsBorder(gid, other) {
			continue
		}
		if pending[gid+"/"+other] || pending[other+"/"+gid] {
			continue
		}
		latency := uint64(w.cfg.Conflict.LatencyTicks)
		if latency == 0 {
			latency = uint64(w.cfg.StrategyEveryTicks)
		}
		battlefield := w.sharedBorderLocation(gid, other)
		if _, err := w.scheduler.Schedule(nowTick, nowTick+latency, EventPayload{
			Kind:       EventConflictResolution,
			AttackerID: gid,
			DefenderID: other,
			Location:   battlefield,
		}); err != nil {
			w.recordError("", "strategy", fmt.Sprintf("conflict %s vs %s: %v", gid, other, err))
			continue
		}
		pending[gid+"/"+other] = true
	}
}

// evaluateDiplomacy nudges scores toward or away from the alliance
// threshold: friendly pairs drift up, unfriendly pairs drift down.
func (w *World) evaluateDiplomacy(gid string) {
	step := w.cfg.DiplomacyStep
	if step <= 0 {
		step = 2
	}
	g, err := w.ledger.Group(gid)
	if err != nil {
		return
	}
	for _, other := range sortedKeys(g.Relations) {
		if !w.ledger.Has(other) {
			continue
		}
		switch BandFor(g.Relations[other]) {
		case BandFriendly:
			_, _ = w.ledger.UpdateRelationship(gid, other, step)
		case BandUnfriendly:
			_, _ = w.ledger.UpdateRelationship(gid, other, -step)
		}
	}
}

func (w *World) pendingConflictPairs() map[string]bool {
	pending := map[string]bool{}
	for _, ev := range w.scheduler.Pending() {
		if ev.Payload.Kind == EventConflictResolution {
			pending[ev.Payload.AttackerID+"/"+ev.Payload.DefenderID] = true
		}
	}
	return pending
}

// groupsBorder reports whether the two groups share or border territory on
// the location graph.
func (w *World) groupsBorder(a, b string) bool {
	return w.sharedBorderLocation(a, b) != ""
}

// sharedBorderLocation picks the deterministic battlefield: the lowest
// location of b's territory that equals or neighbors a's territory.
func (w *World) sharedBorderLocation(a, b string) string {
	mine := map[string]bool{}
	for _, loc := range w.ledger.TerritoryOf(a) {
		mine[loc] = true
	}
	for _, loc := range w.ledger.TerritoryOf(b) {
		if mine[loc] {
			return loc
		}
		if l := w.locations[loc]; l != nil {
			for _, n := range l.Neighbors {
				if mine[n] {
					return loc
				}
			}
		}
	}
	return ""
}
