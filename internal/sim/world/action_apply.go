package world

import "fmt"

// applyAction runs in the sequential apply phase. Validation failures here
// are recoverable: they degrade the single action and never halt the tick.
func (w *World) applyAction(act Action, nowTick uint64) {
	e, err := w.registry.Get(act.ActorID)
	if err != nil || !e.Alive {
		return
	}
	switch act.Kind {
	case ActionIdle:
	case ActionMove:
		w.applyMove(e, act, nowTick)
	case ActionFlee:
		threat := Vec2i{}
		if t, err := w.registry.Get(act.TargetID); err == nil {
			threat = t.Pos
		} else {
			threat = act.TargetPos
		}
		e.Pos = stepAway(e.Pos, threat)
	case ActionAttack:
		w.applyAttack(e, act, nowTick)
	case ActionRecruit:
		if e.GroupID == "" {
			return
		}
		if err := w.ledger.AddMember(e.GroupID, act.TargetID); err == nil {
			w.emit("RECRUIT", "", fmt.Sprintf("%s recruited %s into %s", e.ID, act.TargetID, e.GroupID))
		}
	case ActionGather:
		w.applyGather(e)
	}
}

// applyMove steps one grid cell per tick. A leg into another location is
// in-world latency: it becomes a scheduled travel-arrive event instead of a
// blocking wait.
func (w *World) applyMove(e *Entity, act Action, nowTick uint64) {
	if act.TargetLocation != "" && act.TargetLocation != e.Location {
		if e.TravelEventID != "" {
			return // already underway
		}
		if _, ok := w.locations[act.TargetLocation]; !ok {
			return
		}
		id, err := w.scheduler.Schedule(nowTick, nowTick+uint64(w.cfg.TravelTicks), EventPayload{
			Kind:     EventTravelArrive,
			EntityID: e.ID,
			Location: act.TargetLocation,
		})
		if err != nil {
			w.recordError("", "move", err.Error())
			return
		}
		e.TravelEventID = id
		return
	}
	e.Pos = stepToward(e.Pos, act.TargetPos)
	if act.AdvanceWaypoint && len(e.Behavior.Waypoints) > 0 {
		e.Behavior.WaypointIndex = (e.Behavior.WaypointIndex + 1) % len(e.Behavior.Waypoints)
	}
}

// applyAttack rolls to hit against armor; damage scales with strength. A
// kill triggers the full removal cascade within the same apply phase.
func (w *World) applyAttack(e *Entity, act Action, nowTick uint64) {
	target, err := w.registry.Get(act.TargetID)
	if err != nil || !target.Alive || target.Location != e.Location {
		return
	}
	if Manhattan(e.Pos, target.Pos) > 1 {
		return
	}
	rnd := tickRand(w.cfg.Seed, nowTick, saltCombat^entitySalt(e.ID))
	roll := w.cfg.Combat.AttackDice.Roll(rnd)
	if roll+e.Strength < w.cfg.Combat.HitTarget+target.Armor {
		return
	}
	dmg := w.cfg.Combat.DamageDice.Roll(rnd) + e.Strength/2
	if dmg < 1 {
		dmg = 1
	}
	target.HP -= dmg
	w.emit("ATTACK", "", fmt.Sprintf("%s hit %s for %d (hp %d)", e.ID, target.ID, dmg, target.HP))
	if target.HP <= 0 {
		if err := w.RemoveEntity(target.ID, fmt.Sprintf("slain by %s", e.ID)); err != nil {
			w.recordError("", "attack", err.Error())
		}
	}
}

// applyGather moves one resource unit from the entity's location into its
// group pool (or discards it for groupless foragers).
func (w *World) applyGather(e *Entity) {
	loc := w.locations[e.Location]
	if loc == nil {
		return
	}
	for _, res := range sortedKeys(loc.Resources) {
		if loc.Resources[res] <= 0 {
			continue
		}
		loc.Resources[res]--
		if loc.Resources[res] == 0 {
			delete(loc.Resources, res)
		}
		if e.GroupID != "" {
			_ = w.ledger.Deposit(e.GroupID, res, 1)
		}
		return
	}
}
