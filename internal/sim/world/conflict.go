package world

import (
	"fmt"
	"sort"
)

// conflictOutcome is the fully staged result of a resolution: computed in
// one pass, applied in one pass, so a mid-resolution failure can never leave
// the two groups half-updated.
type conflictOutcome struct {
	winner, loser string
	margin        float64
	factor        int
	casualties    []string
}

// resolveConflict computes an outcome from both groups' power metrics plus a
// bounded centered dice factor, applies member losses through the registry
// removal cascade, and hits both sides' relationship scores — all inside one
// dispatch execution.
func (w *World) resolveConflict(ev ScheduledEvent, nowTick uint64) error {
	p := ev.Payload
	if !w.ledger.Has(p.AttackerID) || !w.ledger.Has(p.DefenderID) {
		return consistencyError{fmt.Sprintf("group %s or %s gone", p.AttackerID, p.DefenderID)}
	}

	out, err := w.stageConflict(p, nowTick)
	if err != nil {
		return err
	}

	// Apply phase: every operation below acts on referents validated during
	// staging and cannot fail halfway.
	for _, id := range out.casualties {
		if err := w.RemoveEntity(id, fmt.Sprintf("fell in conflict %s vs %s", p.AttackerID, p.DefenderID)); err != nil {
			return fmt.Errorf("casualty %s: %w", id, err)
		}
	}
	hit := -w.cfg.Conflict.RelationshipHit
	if hit == 0 {
		hit = -20
	}
	_, _ = w.ledger.UpdateRelationship(p.AttackerID, p.DefenderID, hit)
	_, _ = w.ledger.UpdateRelationship(p.DefenderID, p.AttackerID, hit)

	w.emit("CONFLICT", ev.ID, fmt.Sprintf("%s defeated %s (margin %.1f, factor %+d, casualties %d)",
		out.winner, out.loser, out.margin, out.factor, len(out.casualties)))
	return nil
}

// stageConflict is the pure computation half: no mutations.
func (w *World) stageConflict(p EventPayload, nowTick uint64) (conflictOutcome, error) {
	pa, err := w.ledger.PowerLevel(p.AttackerID)
	if err != nil {
		return conflictOutcome{}, err
	}
	pd, err := w.ledger.PowerLevel(p.DefenderID)
	if err != nil {
		return conflictOutcome{}, err
	}

	// Centered roll: factor ranges over [Min-Mid, Max-Mid] of the tuned dice.
	spec := w.cfg.Conflict.Dice
	rnd := tickRand(w.cfg.Seed, nowTick, saltConflict^entitySalt(p.AttackerID+"/"+p.DefenderID))
	factor := spec.Roll(rnd) - spec.Mid()

	out := conflictOutcome{factor: factor}
	margin := pa - pd + float64(factor)
	if margin >= 0 {
		out.winner, out.loser = p.AttackerID, p.DefenderID
		out.margin = margin
	} else {
		out.winner, out.loser = p.DefenderID, p.AttackerID
		out.margin = -margin
	}

	out.casualties = w.stageCasualties(out.loser)
	return out, nil
}

// stageCasualties picks the loser's losses: the configured permille of live
// members, weakest first, at least one when any member is live.
func (w *World) stageCasualties(loserID string) []string {
	g, err := w.ledger.Group(loserID)
	if err != nil {
		return nil
	}
	type member struct {
		id       string
		strength int
	}
	var live []member
	for id := range g.Members {
		if e, err := w.registry.Get(id); err == nil && e.Alive {
			live = append(live, member{id: id, strength: e.Strength})
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].strength != live[j].strength {
			return live[i].strength < live[j].strength
		}
		return live[i].id < live[j].id
	})
	permille := w.cfg.Conflict.CasualtyPermille
	if permille <= 0 {
		permille = 250
	}
	n := (len(live)*permille + 999) / 1000
	if n < 1 {
		n = 1
	}
	if n > len(live) {
		n = len(live)
	}
	ids := make([]string, 0, n)
	for _, m := range live[:n] {
		ids = append(ids, m.id)
	}
	return ids
}
