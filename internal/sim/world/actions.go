package world

// ActionKind enumerates what an entity can do in one tick.
type ActionKind string

const (
	ActionIdle    ActionKind = "IDLE"
	ActionMove    ActionKind = "MOVE"
	ActionAttack  ActionKind = "ATTACK"
	ActionFlee    ActionKind = "FLEE"
	ActionRecruit ActionKind = "RECRUIT"
	ActionGather  ActionKind = "GATHER"
)

// Action is the transient result of one behavior evaluation (or a player
// submission). Produced, applied in the same tick, discarded.
type Action struct {
	Kind    ActionKind
	ActorID string

	TargetID       string
	TargetPos      Vec2i
	TargetLocation string

	// AdvanceWaypoint marks a patrol leg completed; the apply phase bumps
	// the waypoint index.
	AdvanceWaypoint bool

	Params map[string]string
}
