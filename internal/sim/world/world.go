package world

import (
	"fmt"
	"sync/atomic"

	"ashvale.world/internal/persistence/snapshot"
	"ashvale.world/internal/sim/dice"
)

type WorldConfig struct {
	ID         string
	Seed       int64
	TickRateHz int

	StrategyEveryTicks int
	SnapshotEveryTicks int
	DecayEveryTicks    int
	DecayStep          int
	DiplomacyStep      int
	TravelTicks        int

	Power    PowerWeights
	Conflict ConflictConfig
	Recruit  RecruitConfig
	Combat   CombatConfig
}

type ConflictConfig struct {
	// Dice is the bounded random factor added to the power difference,
	// centered on its midpoint so the expected factor is ~0.
	Dice             dice.Spec
	LatencyTicks     int
	CasualtyPermille int
	RelationshipHit  int
}

type RecruitConfig struct {
	PowerFloor   float64
	LatencyTicks int
	Slots        int
	CostResource string
	Cost         int
}

type CombatConfig struct {
	AttackDice dice.Spec
	DamageDice dice.Spec
	HitTarget  int
}

// World is the single-threaded authoritative simulation. The four state
// singletons (registry, clock, scheduler, ledger) are owned here and handed
// by reference to the layers; all state is accessed only from the world loop
// goroutine, or between ticks.
type World struct {
	cfg WorldConfig

	clock     *Clock
	registry  *Registry
	scheduler *Scheduler
	ledger    *Ledger
	locations map[string]*Location

	playerID string

	// tick mirrors the clock for cross-goroutine reads.
	tick atomic.Uint64

	errors []ErrorRecord

	inbox chan Action
	admin chan AdminRequest
	stop  chan struct{}

	// pendingActions buffers inbox drains for the headless step path.
	pendingActions []Action

	// Optional sinks (may be nil). Implemented in internal/persistence/*.
	tickLogger   TickLogger
	eventLogger  EventLogger
	snapshotSink chan<- snapshot.SnapshotV1
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type EventLogger interface {
	WriteSimEvent(entry SimEventEntry) error
}

type TickLogEntry struct {
	Tick     uint64 `json:"tick"`
	Digest   string `json:"digest"`
	Entities int    `json:"entities"`
	Groups   int    `json:"groups"`
	Pending  int    `json:"pending"`
	Actions  int    `json:"actions,omitempty"`
	Errors   int    `json:"errors,omitempty"`
}

// SimEventEntry is one observable state transition: dispatches, claim
// handovers, conflict outcomes, removals, and caught errors.
type SimEventEntry struct {
	Tick    uint64 `json:"tick"`
	Kind    string `json:"kind"`
	EventID string `json:"event_id,omitempty"`
	Detail  string `json:"detail"`
}

func New(cfg WorldConfig) (*World, error) {
	if cfg.Conflict.Dice.Sides == 0 {
		cfg.Conflict.Dice = dice.MustParse("2d20")
	}
	if cfg.Combat.AttackDice.Sides == 0 {
		cfg.Combat.AttackDice = dice.MustParse("1d20")
	}
	if cfg.Combat.DamageDice.Sides == 0 {
		cfg.Combat.DamageDice = dice.MustParse("1d6")
	}
	if cfg.Combat.HitTarget == 0 {
		cfg.Combat.HitTarget = 10
	}
	if cfg.TravelTicks <= 0 {
		cfg.TravelTicks = 12
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}

	w := &World{
		cfg:       cfg,
		clock:     NewClock(0),
		registry:  NewRegistry(),
		locations: map[string]*Location{},
		scheduler: NewScheduler(),
		inbox:     make(chan Action, 1024),
		admin:     make(chan AdminRequest, 64),
		stop:      make(chan struct{}),
	}
	w.ledger = NewLedger(w.registry, cfg.Power)

	// Relationship decay is a self-rescheduling periodic event.
	if cfg.DecayEveryTicks > 0 {
		if _, err := w.scheduler.Schedule(0, uint64(cfg.DecayEveryTicks), EventPayload{Kind: EventRelationshipDecay}); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *World) ID() string { return w.cfg.ID }

// PlayerID is the player entity's id, or "" in headless worlds. Read it
// before the loop starts; a mid-run removal may leave it stale.
func (w *World) PlayerID() string { return w.playerID }

func (w *World) Seed() int64         { return w.cfg.Seed }
func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// Now is the authoritative clock value; loop-goroutine use only.
func (w *World) Now() uint64 { return w.clock.Now() }

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetEventLogger(l EventLogger)                  { w.eventLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

// Inbox accepts player actions; they are drained at the next tick boundary.
func (w *World) Inbox() chan<- Action { return w.inbox }

// SubmitAction enqueues a player action for the next tick boundary.
func (w *World) SubmitAction(act Action) error {
	select {
	case w.inbox <- act:
		return nil
	case <-w.stop:
		return fmt.Errorf("world stopped")
	}
}

// --- mutation contracts (internal layers, scenario loader, admin) ---

func (w *World) AddLocation(loc *Location) error {
	if loc == nil || loc.ID == "" {
		return fmt.Errorf("location without id: %w", ErrInvalidMembership)
	}
	if _, ok := w.locations[loc.ID]; ok {
		return fmt.Errorf("location %s: %w", loc.ID, ErrDuplicateIdentifier)
	}
	if loc.Resources == nil {
		loc.Resources = map[string]int{}
	}
	w.locations[loc.ID] = loc
	return nil
}

func (w *World) AddEntity(e *Entity) error {
	if e != nil && e.Kind == KindPlayer {
		if w.playerID != "" && w.playerID != e.ID {
			return fmt.Errorf("player entity %s already present: %w", w.playerID, ErrDuplicateIdentifier)
		}
	}
	if err := w.registry.Add(e); err != nil {
		return err
	}
	if e.Kind == KindPlayer {
		w.playerID = e.ID
	}
	return nil
}

// RemoveEntity detaches the entity and reconciles dependents in the same
// apply phase: ledger membership is released and pending events referencing
// the id are cancelled.
func (w *World) RemoveEntity(id, reason string) error {
	e, err := w.registry.Remove(id)
	if err != nil {
		return err
	}
	e.Alive = false
	if gid := w.ledger.ReleaseMember(id); gid != "" {
		w.emit("MEMBER_LOST", "", fmt.Sprintf("group %s lost member %s (%s)", gid, id, reason))
	}
	for _, evID := range w.scheduler.CancelReferencing(id) {
		w.emit("EVENT_CANCELLED", evID, fmt.Sprintf("referenced removed entity %s", id))
	}
	if w.playerID == id {
		w.playerID = ""
	}
	w.emit("ENTITY_REMOVED", "", fmt.Sprintf("%s (%s)", id, reason))
	return nil
}

func (w *World) AddGroup(id, name string) (*Group, error) {
	return w.ledger.AddGroup(id, name, w.clock.Now())
}

func (w *World) AddMember(groupID, entityID string) error {
	return w.ledger.AddMember(groupID, entityID)
}

// UpdateRelationship applies a one-directional clamped delta.
func (w *World) UpdateRelationship(a, b string, delta int) (int, error) {
	return w.ledger.UpdateRelationship(a, b, delta)
}

// ClaimTerritory is last-writer-wins; a displaced holder is reported as an
// observable transition.
func (w *World) ClaimTerritory(groupID, location string) error {
	if _, ok := w.locations[location]; !ok {
		return fmt.Errorf("location %s: %w", location, ErrNotFound)
	}
	prev, err := w.ledger.ClaimTerritory(groupID, location)
	if err != nil {
		return err
	}
	if prev != "" {
		w.emit("CLAIM_LOST", "", fmt.Sprintf("group %s lost %s to %s", prev, location, groupID))
	}
	w.emit("CLAIM", "", fmt.Sprintf("group %s claimed %s", groupID, location))
	return nil
}

func (w *World) ScheduleEvent(due uint64, p EventPayload) (string, error) {
	return w.scheduler.Schedule(w.clock.Now(), due, p)
}

func (w *World) CancelEvent(id string) error {
	return w.scheduler.Cancel(id)
}

// --- read access for layers and tests ---

func (w *World) Registry() *Registry  { return w.registry }
func (w *World) Ledger() *Ledger      { return w.ledger }
func (w *World) Scheduler() *Scheduler { return w.scheduler }

func (w *World) emit(kind, eventID, detail string) {
	if w.eventLogger == nil {
		return
	}
	_ = w.eventLogger.WriteSimEvent(SimEventEntry{
		Tick:    w.clock.Now(),
		Kind:    kind,
		EventID: eventID,
		Detail:  detail,
	})
}

// recordError appends to the queryable error log and mirrors the record to
// the event sink. No error silently vanishes in headless mode.
func (w *World) recordError(eventID, source, msg string) {
	w.errors = append(w.errors, ErrorRecord{
		Tick:    w.clock.Now(),
		EventID: eventID,
		Source:  source,
		Message: msg,
	})
	w.emit("ERROR", eventID, fmt.Sprintf("%s: %s", source, msg))
}

// ErrorLog returns a copy of the recorded errors.
func (w *World) ErrorLog() []ErrorRecord {
	out := make([]ErrorRecord, len(w.errors))
	copy(out, w.errors)
	return out
}
