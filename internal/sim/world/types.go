package world

// Vec2i is a grid coordinate inside a location.
type Vec2i struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func Manhattan(a, b Vec2i) int {
	return absInt(a.X-b.X) + absInt(a.Y-b.Y)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// stepToward moves one grid step from `from` toward `to` on each axis.
func stepToward(from, to Vec2i) Vec2i {
	next := from
	if from.X < to.X {
		next.X++
	} else if from.X > to.X {
		next.X--
	}
	if from.Y < to.Y {
		next.Y++
	} else if from.Y > to.Y {
		next.Y--
	}
	return next
}

// stepAway moves one grid step from `from` away from `threat`.
func stepAway(from, threat Vec2i) Vec2i {
	next := from
	if from.X <= threat.X {
		next.X--
	} else {
		next.X++
	}
	if from.Y <= threat.Y {
		next.Y--
	} else {
		next.Y++
	}
	return next
}

type EntityKind string

const (
	KindPlayer     EntityKind = "PLAYER"
	KindAutonomous EntityKind = "AUTONOMOUS"
	KindInert      EntityKind = "INERT"
)

// Entity is one simulation object. The GroupID back-reference is weak: the
// ledger owns membership, the registry never dereferences it.
type Entity struct {
	ID       string
	Name     string
	Kind     EntityKind
	Location string
	Pos      Vec2i

	HP       int
	MaxHP    int
	Strength int
	Armor    int
	Alive    bool

	GroupID string

	Behavior BehaviorSpec

	// TravelEventID names the pending travel-arrive event, if any, so a
	// second cross-location move does not stack a duplicate.
	TravelEventID string
}

// Location is a node of the static location graph loaded at start. Resources
// are the only mutable part (depleted by foraging).
type Location struct {
	ID        string
	Name      string
	Neighbors []string
	Resources map[string]int
}
