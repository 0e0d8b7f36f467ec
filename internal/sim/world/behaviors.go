package world

import "fmt"

// BehaviorKind is the closed variant set of per-entity decision functions.
// Unknown kinds are a configuration error surfaced at scenario load, never
// during a tick.
type BehaviorKind string

const (
	BehaviorIdle          BehaviorKind = "IDLE"
	BehaviorPatrol        BehaviorKind = "PATROL"
	BehaviorGuard         BehaviorKind = "GUARD"
	BehaviorFlee          BehaviorKind = "FLEE"
	BehaviorAttackOnSight BehaviorKind = "ATTACK_ON_SIGHT"
	BehaviorLeader        BehaviorKind = "LEADER"
	BehaviorForager       BehaviorKind = "FORAGER"
)

// ValidateBehaviorKind gates scenario loading.
func ValidateBehaviorKind(kind string) error {
	switch BehaviorKind(kind) {
	case BehaviorIdle, BehaviorPatrol, BehaviorGuard, BehaviorFlee,
		BehaviorAttackOnSight, BehaviorLeader, BehaviorForager:
		return nil
	default:
		return fmt.Errorf("unknown behavior kind %q", kind)
	}
}

// Waypoint is one patrol stop. A waypoint in another location makes the
// patrol leg a cross-location travel.
type Waypoint struct {
	Location string `json:"location"`
	Pos      Vec2i  `json:"pos"`
}

type BehaviorSpec struct {
	Kind           BehaviorKind
	Waypoints      []Waypoint
	WaypointIndex  int
	DetectionRange int
	Home           Vec2i
	HostileTo      []string
}

// evalBehavior is the pure decision function: identical view and identical
// draws produce the identical action. The default arm is unreachable for
// loaded content; it falls back to idle rather than crash a tick.
func evalBehavior(e *Entity, v *View) Action {
	switch e.Behavior.Kind {
	case BehaviorIdle:
		return Action{Kind: ActionIdle, ActorID: e.ID}
	case BehaviorPatrol:
		return patrolAction(e, v)
	case BehaviorGuard:
		return guardAction(e, v)
	case BehaviorFlee:
		return fleeAction(e, v)
	case BehaviorAttackOnSight:
		return attackOnSightAction(e, v)
	case BehaviorLeader:
		return leaderAction(e, v)
	case BehaviorForager:
		return foragerAction(e, v)
	default:
		return Action{Kind: ActionIdle, ActorID: e.ID}
	}
}

// patrolAction walks the waypoint list with wrap-around. Reaching the
// current waypoint advances the index in the apply phase.
func patrolAction(e *Entity, v *View) Action {
	wps := e.Behavior.Waypoints
	if len(wps) == 0 {
		return Action{Kind: ActionIdle, ActorID: e.ID}
	}
	idx := e.Behavior.WaypointIndex % len(wps)
	wp := wps[idx]
	if wp.Location == e.Location && wp.Pos == e.Pos {
		next := wps[(idx+1)%len(wps)]
		return Action{
			Kind:            ActionMove,
			ActorID:         e.ID,
			TargetPos:       next.Pos,
			TargetLocation:  next.Location,
			AdvanceWaypoint: true,
		}
	}
	return Action{Kind: ActionMove, ActorID: e.ID, TargetPos: wp.Pos, TargetLocation: wp.Location}
}

// guardAction holds the home position and engages only adjacent hostiles.
func guardAction(e *Entity, v *View) Action {
	if target := v.NearestHostile(e, 1); target != nil {
		return Action{Kind: ActionAttack, ActorID: e.ID, TargetID: target.ID}
	}
	if e.Pos != e.Behavior.Home {
		return Action{Kind: ActionMove, ActorID: e.ID, TargetPos: e.Behavior.Home, TargetLocation: e.Location}
	}
	return Action{Kind: ActionIdle, ActorID: e.ID}
}

func fleeAction(e *Entity, v *View) Action {
	rng := e.Behavior.DetectionRange
	if rng <= 0 {
		rng = 5
	}
	threat := v.NearestHostile(e, rng)
	if threat == nil {
		return Action{Kind: ActionIdle, ActorID: e.ID}
	}
	return Action{Kind: ActionFlee, ActorID: e.ID, TargetID: threat.ID, TargetPos: threat.Pos}
}

// attackOnSightAction closes on the nearest hostile in detection range and
// attacks once adjacent. Ties break by lowest entity id.
func attackOnSightAction(e *Entity, v *View) Action {
	rng := e.Behavior.DetectionRange
	if rng <= 0 {
		rng = 5
	}
	target := v.NearestHostile(e, rng)
	if target == nil {
		return Action{Kind: ActionIdle, ActorID: e.ID}
	}
	if Manhattan(e.Pos, target.Pos) <= 1 {
		return Action{Kind: ActionAttack, ActorID: e.ID, TargetID: target.ID}
	}
	return Action{Kind: ActionMove, ActorID: e.ID, TargetPos: target.Pos, TargetLocation: e.Location}
}

// leaderAction recruits the nearest groupless autonomous entity in range,
// then behaves like a guard.
func leaderAction(e *Entity, v *View) Action {
	rng := e.Behavior.DetectionRange
	if rng <= 0 {
		rng = 5
	}
	if e.GroupID != "" {
		if cand := v.NearestGroupless(e, rng); cand != nil {
			return Action{Kind: ActionRecruit, ActorID: e.ID, TargetID: cand.ID}
		}
	}
	return guardAction(e, v)
}

// foragerAction gathers where it stands, or walks toward the nearest
// resource-bearing location.
func foragerAction(e *Entity, v *View) Action {
	loc := v.Location(e.Location)
	if loc != nil && totalResources(loc) > 0 {
		return Action{Kind: ActionGather, ActorID: e.ID}
	}
	dest := v.NearestResourceLocation(e.Location)
	if dest == "" || dest == e.Location {
		return Action{Kind: ActionIdle, ActorID: e.ID}
	}
	return Action{Kind: ActionMove, ActorID: e.ID, TargetPos: e.Pos, TargetLocation: dest}
}
