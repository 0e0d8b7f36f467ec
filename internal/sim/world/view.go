package world

import "sort"

// View is the read-only world slice handed to behavior functions. Behaviors
// must not mutate anything through it; all writes happen in the apply phase.
type View struct {
	Now uint64

	reg       *Registry
	ledger    *Ledger
	locations map[string]*Location
	seed      int64
}

func (v *View) Entity(id string) *Entity {
	e, err := v.reg.Get(id)
	if err != nil {
		return nil
	}
	return e
}

// LiveIDs returns sorted ids of live entities, the iteration order for every
// behavior scan.
func (v *View) LiveIDs() []string {
	var ids []string
	for _, id := range v.reg.ListIDs() {
		if e, err := v.reg.Get(id); err == nil && e.Alive {
			ids = append(ids, id)
		}
	}
	return ids
}

func (v *View) Location(id string) *Location { return v.locations[id] }

// Hostile reports whether e regards other as hostile: an explicit HostileTo
// kind match, or a group relationship banded hostile or worse.
func (v *View) Hostile(e, other *Entity) bool {
	if other == nil || !other.Alive || other.ID == e.ID {
		return false
	}
	for _, kind := range e.Behavior.HostileTo {
		if string(other.Kind) == kind {
			return true
		}
	}
	if e.GroupID == "" || other.GroupID == "" || e.GroupID == other.GroupID {
		return false
	}
	band := BandFor(v.ledger.Relationship(e.GroupID, other.GroupID))
	return band == BandHostile || band == BandOpenConflict
}

// NearestHostile scans the entity's location for the closest hostile within
// range, breaking distance ties by lowest entity id.
func (v *View) NearestHostile(e *Entity, detectionRange int) *Entity {
	var best *Entity
	bestDist := detectionRange + 1
	for _, id := range v.LiveIDs() {
		other := v.Entity(id)
		if other == nil || other.Location != e.Location || !v.Hostile(e, other) {
			continue
		}
		d := Manhattan(e.Pos, other.Pos)
		if d > detectionRange {
			continue
		}
		if best == nil || d < bestDist || (d == bestDist && other.ID < best.ID) {
			bestDist = d
			best = other
		}
	}
	return best
}

// NearestGroupless finds the closest live groupless autonomous entity in the
// same location, for leader recruitment.
func (v *View) NearestGroupless(e *Entity, detectionRange int) *Entity {
	var best *Entity
	bestDist := detectionRange + 1
	for _, id := range v.LiveIDs() {
		other := v.Entity(id)
		if other == nil || other.ID == e.ID || other.Location != e.Location {
			continue
		}
		if other.Kind != KindAutonomous || other.GroupID != "" {
			continue
		}
		d := Manhattan(e.Pos, other.Pos)
		if d <= detectionRange && d < bestDist {
			bestDist = d
			best = other
		}
	}
	return best
}

// NearestResourceLocation walks the location graph breadth-first from the
// entity's location and returns the nearest location with resources left,
// or "" if none is reachable.
func (v *View) NearestResourceLocation(from string) string {
	start := v.locations[from]
	if start == nil {
		return ""
	}
	seen := map[string]bool{from: true}
	frontier := []string{from}
	for len(frontier) > 0 {
		var next []string
		for _, id := range frontier {
			loc := v.locations[id]
			if loc == nil {
				continue
			}
			if totalResources(loc) > 0 {
				return id
			}
			neighbors := append([]string(nil), loc.Neighbors...)
			sort.Strings(neighbors)
			for _, n := range neighbors {
				if !seen[n] {
					seen[n] = true
					next = append(next, n)
				}
			}
		}
		frontier = next
	}
	return ""
}

func totalResources(loc *Location) int {
	total := 0
	for _, n := range loc.Resources {
		total += n
	}
	return total
}

// Draw returns a deterministic value in [0, n) for this entity and tick.
func (v *View) Draw(entityID string, n int) int {
	if n <= 0 {
		return 0
	}
	return int(hashTick(v.seed, v.Now, saltBehavior^entitySalt(entityID)) % uint64(n))
}
