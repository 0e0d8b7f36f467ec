package world

import "fmt"

// EventKind enumerates the closed set of deferred-work payloads. Dispatch is
// an exhaustive switch in the orchestrator; new kinds are a compile-time
// addition, never string-keyed callbacks.
type EventKind string

const (
	EventConflictResolution EventKind = "CONFLICT_RESOLUTION"
	EventRecruitmentDrive   EventKind = "RECRUITMENT_DRIVE"
	EventDiplomaticShift    EventKind = "DIPLOMATIC_SHIFT"
	EventRelationshipDecay  EventKind = "RELATIONSHIP_DECAY"
	EventSpawnWave          EventKind = "SPAWN_WAVE"
	EventTravelArrive       EventKind = "TRAVEL_ARRIVE"
)

// EventPayload is one tagged variant: Kind selects which fields are live.
// Kept flat and serializable so pending events survive snapshot round-trips.
type EventPayload struct {
	Kind EventKind `json:"kind"`

	// CONFLICT_RESOLUTION
	AttackerID string `json:"attacker_id,omitempty"`
	DefenderID string `json:"defender_id,omitempty"`

	// RECRUITMENT_DRIVE
	GroupID string `json:"group_id,omitempty"`
	Slots   int    `json:"slots,omitempty"`

	// DIPLOMATIC_SHIFT
	FromID string `json:"from_id,omitempty"`
	ToID   string `json:"to_id,omitempty"`
	Delta  int    `json:"delta,omitempty"`

	// TRAVEL_ARRIVE and location-scoped kinds
	EntityID string `json:"entity_id,omitempty"`
	Location string `json:"location,omitempty"`

	// SPAWN_WAVE
	Spawns []SpawnDef `json:"spawns,omitempty"`
}

// SpawnDef describes one entity a SPAWN_WAVE event adds to the registry.
type SpawnDef struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Kind     EntityKind `json:"kind"`
	HP       int        `json:"hp"`
	Strength int        `json:"strength"`
	Armor    int        `json:"armor"`
	Behavior BehaviorSpec
	GroupID  string `json:"group_id,omitempty"`
}

// references reports whether the payload names the given entity. Events that
// reference a removed entity are cancelled in the same apply phase.
func (p EventPayload) references(entityID string) bool {
	return p.EntityID != "" && p.EntityID == entityID
}

// Describe is a short human-readable form for logs and error records.
func (p EventPayload) Describe() string {
	switch p.Kind {
	case EventConflictResolution:
		return fmt.Sprintf("%s %s vs %s at %s", p.Kind, p.AttackerID, p.DefenderID, p.Location)
	case EventRecruitmentDrive:
		return fmt.Sprintf("%s group=%s slots=%d", p.Kind, p.GroupID, p.Slots)
	case EventDiplomaticShift:
		return fmt.Sprintf("%s %s->%s delta=%d", p.Kind, p.FromID, p.ToID, p.Delta)
	case EventRelationshipDecay:
		return string(p.Kind)
	case EventSpawnWave:
		return fmt.Sprintf("%s at %s count=%d", p.Kind, p.Location, len(p.Spawns))
	case EventTravelArrive:
		return fmt.Sprintf("%s entity=%s to %s", p.Kind, p.EntityID, p.Location)
	default:
		return string(p.Kind)
	}
}
