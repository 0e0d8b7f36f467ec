package world

import (
	"fmt"
	"sort"
)

// Registry owns every mutable entity, keyed by identifier. Pure storage and
// query; cascades on removal are the orchestrator's job.
type Registry struct {
	entities map[string]*Entity
}

func NewRegistry() *Registry {
	return &Registry{entities: map[string]*Entity{}}
}

func (r *Registry) Add(e *Entity) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("entity without id: %w", ErrInvalidMembership)
	}
	if _, ok := r.entities[e.ID]; ok {
		return fmt.Errorf("entity %s: %w", e.ID, ErrDuplicateIdentifier)
	}
	r.entities[e.ID] = e
	return nil
}

// Remove detaches and returns the entity. The caller reconciles dependents
// (ledger membership, scheduled events referencing the id).
func (r *Registry) Remove(id string) (*Entity, error) {
	e, ok := r.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	delete(r.entities, id)
	return e, nil
}

func (r *Registry) Get(id string) (*Entity, error) {
	e, ok := r.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	return e, nil
}

func (r *Registry) Has(id string) bool {
	_, ok := r.entities[id]
	return ok
}

// ListIDs returns a sorted snapshot of all entity ids. Sorted iteration is
// what keeps behavior evaluation reproducible.
func (r *Registry) ListIDs() []string {
	ids := make([]string, 0, len(r.entities))
	for id := range r.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int { return len(r.entities) }
