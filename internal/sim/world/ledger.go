package world

import (
	"fmt"
	"sort"
)

// Relationship scores are clamped to this range on every update.
const (
	RelationMin = -100
	RelationMax = 100
)

type RelationBand string

const (
	BandAllied       RelationBand = "ALLIED"
	BandFriendly     RelationBand = "FRIENDLY"
	BandNeutral      RelationBand = "NEUTRAL"
	BandUnfriendly   RelationBand = "UNFRIENDLY"
	BandHostile      RelationBand = "HOSTILE"
	BandOpenConflict RelationBand = "OPEN_CONFLICT"
)

// BandFor maps a score to its band. Inclusive lower bounds.
func BandFor(score int) RelationBand {
	switch {
	case score >= 100:
		return BandAllied
	case score >= 50:
		return BandFriendly
	case score >= 0:
		return BandNeutral
	case score >= -49:
		return BandUnfriendly
	case score >= -99:
		return BandHostile
	default:
		return BandOpenConflict
	}
}

type Goal struct {
	Kind     string `json:"kind"`
	Target   string `json:"target,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

// Group is one faction-style collection of entities. Relations are stored
// per-direction; symmetric updates are a caller convention, not a ledger
// invariant.
type Group struct {
	ID          string
	Name        string
	CreatedTick uint64

	Members   map[string]bool
	Relations map[string]int
	Resources map[string]int
	Goals     []Goal
}

// PowerWeights tune the derived power metric. Loaded from tuning so balance
// changes never touch the algorithm.
type PowerWeights struct {
	Member    float64
	Strength  float64
	Territory float64
	Cap       float64
}

// Ledger tracks groups, membership, pairwise relations, resources, and
// territorial claims. Membership validity leans on the registry: a member id
// must name a live entity at insertion time.
type Ledger struct {
	reg       *Registry
	groups    map[string]*Group
	territory map[string]string // location id -> holding group id
	weights   PowerWeights
}

func NewLedger(reg *Registry, weights PowerWeights) *Ledger {
	return &Ledger{
		reg:       reg,
		groups:    map[string]*Group{},
		territory: map[string]string{},
		weights:   weights,
	}
}

func (l *Ledger) AddGroup(id, name string, createdTick uint64) (*Group, error) {
	if id == "" {
		return nil, fmt.Errorf("group without id: %w", ErrInvalidMembership)
	}
	if _, ok := l.groups[id]; ok {
		return nil, fmt.Errorf("group %s: %w", id, ErrDuplicateIdentifier)
	}
	g := &Group{
		ID:          id,
		Name:        name,
		CreatedTick: createdTick,
		Members:     map[string]bool{},
		Relations:   map[string]int{},
		Resources:   map[string]int{},
	}
	l.groups[id] = g
	return g, nil
}

func (l *Ledger) Group(id string) (*Group, error) {
	g, ok := l.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	return g, nil
}

func (l *Ledger) Has(id string) bool {
	_, ok := l.groups[id]
	return ok
}

func (l *Ledger) GroupIDs() []string {
	ids := make([]string, 0, len(l.groups))
	for id := range l.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AddMember joins a live entity to a group. An entity belongs to at most one
// group at a time.
func (l *Ledger) AddMember(groupID, entityID string) error {
	g, err := l.Group(groupID)
	if err != nil {
		return err
	}
	e, err := l.reg.Get(entityID)
	if err != nil {
		return err
	}
	if !e.Alive {
		return fmt.Errorf("entity %s is not alive: %w", entityID, ErrInvalidMembership)
	}
	if e.GroupID != "" && e.GroupID != groupID {
		return fmt.Errorf("entity %s already in group %s: %w", entityID, e.GroupID, ErrInvalidMembership)
	}
	if g.Members[entityID] {
		return fmt.Errorf("entity %s already a member of %s: %w", entityID, groupID, ErrInvalidMembership)
	}
	g.Members[entityID] = true
	e.GroupID = groupID
	return nil
}

func (l *Ledger) RemoveMember(groupID, entityID string) error {
	g, err := l.Group(groupID)
	if err != nil {
		return err
	}
	if !g.Members[entityID] {
		return fmt.Errorf("entity %s not a member of %s: %w", entityID, groupID, ErrInvalidMembership)
	}
	delete(g.Members, entityID)
	if e, err := l.reg.Get(entityID); err == nil && e.GroupID == groupID {
		e.GroupID = ""
	}
	return nil
}

// ReleaseMember drops the entity from whichever group holds it. Used by the
// removal cascade, where the entity may already be gone from the registry.
// Returns the group id it was released from, or "".
func (l *Ledger) ReleaseMember(entityID string) string {
	for _, gid := range l.GroupIDs() {
		g := l.groups[gid]
		if g.Members[entityID] {
			delete(g.Members, entityID)
			return gid
		}
	}
	return ""
}

// UpdateRelationship applies a delta to a's stance toward b, clamped into
// [RelationMin, RelationMax], and returns the new score.
func (l *Ledger) UpdateRelationship(a, b string, delta int) (int, error) {
	ga, err := l.Group(a)
	if err != nil {
		return 0, err
	}
	if _, err := l.Group(b); err != nil {
		return 0, err
	}
	score := clampInt(ga.Relations[b]+delta, RelationMin, RelationMax)
	ga.Relations[b] = score
	return score, nil
}

func (l *Ledger) Relationship(a, b string) int {
	g, ok := l.groups[a]
	if !ok {
		return 0
	}
	return g.Relations[b]
}

// ClaimTerritory assigns a location to a group, last writer wins. The
// displaced prior holder ("" if none) is returned so the caller can report
// the transition; it is never dropped silently.
func (l *Ledger) ClaimTerritory(groupID, location string) (prev string, err error) {
	if _, err := l.Group(groupID); err != nil {
		return "", err
	}
	prev = l.territory[location]
	if prev == groupID {
		return "", nil
	}
	l.territory[location] = groupID
	return prev, nil
}

func (l *Ledger) Holder(location string) string { return l.territory[location] }

// TerritoryOf returns the sorted locations a group currently holds.
func (l *Ledger) TerritoryOf(groupID string) []string {
	var locs []string
	for loc, gid := range l.territory {
		if gid == groupID {
			locs = append(locs, loc)
		}
	}
	sort.Strings(locs)
	return locs
}

func (l *Ledger) TerritoryLocations() []string {
	locs := make([]string, 0, len(l.territory))
	for loc := range l.territory {
		locs = append(locs, loc)
	}
	sort.Strings(locs)
	return locs
}

// PowerLevel recomputes the derived power metric on read: a weighted sum of
// member count, live member strength, and territory count, clamped to
// [0, Cap].
func (l *Ledger) PowerLevel(groupID string) (float64, error) {
	g, err := l.Group(groupID)
	if err != nil {
		return 0, err
	}
	members := 0
	strength := 0
	for id := range g.Members {
		e, err := l.reg.Get(id)
		if err != nil || !e.Alive {
			continue
		}
		members++
		strength += e.Strength
	}
	p := l.weights.Member*float64(members) +
		l.weights.Strength*float64(strength) +
		l.weights.Territory*float64(len(l.TerritoryOf(groupID)))
	if p < 0 {
		p = 0
	}
	if l.weights.Cap > 0 && p > l.weights.Cap {
		p = l.weights.Cap
	}
	return p, nil
}

// Dormant groups keep their history but are skipped by the strategy layer.
func (l *Ledger) Dormant(groupID string) bool {
	g, ok := l.groups[groupID]
	if !ok {
		return false
	}
	return len(g.Members) == 0 && len(l.TerritoryOf(groupID)) == 0
}

func (l *Ledger) Deposit(groupID, resource string, n int) error {
	g, err := l.Group(groupID)
	if err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("deposit of %d %s into %s: amount must be positive", n, resource, groupID)
	}
	g.Resources[resource] += n
	return nil
}

func (l *Ledger) Spend(groupID, resource string, n int) error {
	g, err := l.Group(groupID)
	if err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("spend of %d %s from %s: amount must be positive", n, resource, groupID)
	}
	if g.Resources[resource] < n {
		return fmt.Errorf("group %s has %d %s, need %d: %w", groupID, g.Resources[resource], resource, n, ErrNoResource)
	}
	g.Resources[resource] -= n
	if g.Resources[resource] == 0 {
		delete(g.Resources, resource)
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
