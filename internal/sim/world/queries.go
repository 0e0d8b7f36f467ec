package world

// EntitySnapshot is a value copy of one entity, safe to hold across ticks.
type EntitySnapshot struct {
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
	GroupID  string
	Behavior BehaviorKind
}

type RelationView struct {
	GroupID string
	Score   int
	Band    RelationBand
}

// GroupSnapshot pairs the group's stored state with its derived power and
// banded relations, sorted by counterpart id.
type GroupSnapshot struct {
	ID        string
	Name      string
	Power     float64
	Members   []string
	Territory []string
	Relations []RelationView
	Resources map[string]int
}

func (w *World) EntitySnapshot(id string) (EntitySnapshot, error) {
	e, err := w.registry.Get(id)
	if err != nil {
		return EntitySnapshot{}, err
	}
	return EntitySnapshot{
		ID:       e.ID,
		Name:     e.Name,
		Kind:     e.Kind,
		Location: e.Location,
		Pos:      e.Pos,
		HP:       e.HP,
		MaxHP:    e.MaxHP,
		Strength: e.Strength,
		Armor:    e.Armor,
		Alive:    e.Alive,
		GroupID:  e.GroupID,
		Behavior: e.Behavior.Kind,
	}, nil
}

func (w *World) GroupSnapshot(id string) (GroupSnapshot, error) {
	g, err := w.ledger.Group(id)
	if err != nil {
		return GroupSnapshot{}, err
	}
	power, err := w.ledger.PowerLevel(id)
	if err != nil {
		return GroupSnapshot{}, err
	}
	snap := GroupSnapshot{
		ID:        g.ID,
		Name:      g.Name,
		Power:     power,
		Members:   sortedKeys(g.Members),
		Territory: w.ledger.TerritoryOf(id),
		Resources: map[string]int{},
	}
	for k, v := range g.Resources {
		snap.Resources[k] = v
	}
	for _, other := range sortedKeys(g.Relations) {
		score := g.Relations[other]
		snap.Relations = append(snap.Relations, RelationView{GroupID: other, Score: score, Band: BandFor(score)})
	}
	return snap, nil
}

// PendingEvents returns due-ordered copies of everything still scheduled.
func (w *World) PendingEvents() []ScheduledEvent {
	return w.scheduler.Pending()
}

// TimeOfDay breaks the current tick into calendar parts.
func (w *World) TimeOfDay() TimeOfDay {
	return BreakdownTick(w.clock.Now())
}
