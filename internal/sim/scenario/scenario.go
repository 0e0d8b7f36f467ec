package scenario

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"ashvale.world/internal/sim/world"
)

// Scenario is the loaded and cross-checked starting state: the location
// graph, the groups, and the entity roster.
type Scenario struct {
	Locations []LocationDef
	Groups    []GroupDef
	Entities  []EntityDef

	LocationsDigest string
	GroupsDigest    string
	EntitiesDigest  string
}

type LocationDef struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Neighbors []string       `json:"neighbors,omitempty"`
	Resources map[string]int `json:"resources,omitempty"`
}

type GroupDef struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Territory []string       `json:"territory,omitempty"`
	Relations map[string]int `json:"relations,omitempty"`
	Resources map[string]int `json:"resources,omitempty"`
	Goals     []GoalDef      `json:"goals,omitempty"`
}

type GoalDef struct {
	Kind     string `json:"kind"`
	Target   string `json:"target,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

type EntityDef struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Kind     string      `json:"kind"`
	Location string      `json:"location"`
	Pos      [2]int      `json:"pos,omitempty"`
	HP       int         `json:"hp"`
	Strength int         `json:"strength,omitempty"`
	Armor    int         `json:"armor,omitempty"`
	GroupID  string      `json:"group_id,omitempty"`
	Behavior BehaviorDef `json:"behavior,omitempty"`
}

type BehaviorDef struct {
	Kind           string        `json:"kind,omitempty"`
	Waypoints      []WaypointDef `json:"waypoints,omitempty"`
	DetectionRange int           `json:"detection_range,omitempty"`
	Home           [2]int        `json:"home,omitempty"`
	HostileTo      []string      `json:"hostile_to,omitempty"`
}

type WaypointDef struct {
	Location string `json:"location"`
	Pos      [2]int `json:"pos"`
}

// Load reads the three scenario files from dataDir, validates each against
// its schema in schemasDir, and cross-checks every reference before
// returning. A scenario that loads is guaranteed to populate cleanly.
func Load(dataDir, schemasDir string) (*Scenario, error) {
	var s Scenario

	if err := loadFile(dataDir, schemasDir, "locations", &s.Locations, &s.LocationsDigest); err != nil {
		return nil, err
	}
	if err := loadFile(dataDir, schemasDir, "groups", &s.Groups, &s.GroupsDigest); err != nil {
		return nil, err
	}
	if err := loadFile(dataDir, schemasDir, "entities", &s.Entities, &s.EntitiesDigest); err != nil {
		return nil, err
	}

	if err := s.crossCheck(); err != nil {
		return nil, err
	}
	return &s, nil
}

func loadFile(dataDir, schemasDir, name string, out any, digest *string) error {
	raw, err := os.ReadFile(filepath.Join(dataDir, name+".json"))
	if err != nil {
		return err
	}
	*digest = sha256Hex(raw)

	if schemasDir != "" {
		schema, err := jsonschema.Compile(filepath.Join(schemasDir, name+".schema.json"))
		if err != nil {
			return fmt.Errorf("%s schema: %w", name, err)
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("%s.json: %w", name, err)
		}
		if err := schema.Validate(v); err != nil {
			return fmt.Errorf("%s.json: %w", name, err)
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s.json: %w", name, err)
	}
	return nil
}

// crossCheck rejects dangling references and invalid enum values so bad
// content fails at load time, not ticks later.
func (s *Scenario) crossCheck() error {
	locs := map[string]bool{}
	for _, l := range s.Locations {
		if l.ID == "" {
			return fmt.Errorf("locations.json: empty id")
		}
		if locs[l.ID] {
			return fmt.Errorf("locations.json: duplicate id %s", l.ID)
		}
		locs[l.ID] = true
	}
	for _, l := range s.Locations {
		for _, n := range l.Neighbors {
			if !locs[n] {
				return fmt.Errorf("location %s: unknown neighbor %s", l.ID, n)
			}
		}
	}

	groups := map[string]bool{}
	for _, g := range s.Groups {
		if g.ID == "" {
			return fmt.Errorf("groups.json: empty id")
		}
		if groups[g.ID] {
			return fmt.Errorf("groups.json: duplicate id %s", g.ID)
		}
		groups[g.ID] = true
	}
	for _, g := range s.Groups {
		for _, loc := range g.Territory {
			if !locs[loc] {
				return fmt.Errorf("group %s: unknown territory %s", g.ID, loc)
			}
		}
		for other := range g.Relations {
			if !groups[other] {
				return fmt.Errorf("group %s: relation to unknown group %s", g.ID, other)
			}
		}
	}

	players := 0
	seen := map[string]bool{}
	for _, e := range s.Entities {
		if e.ID == "" {
			return fmt.Errorf("entities.json: empty id")
		}
		if seen[e.ID] {
			return fmt.Errorf("entities.json: duplicate id %s", e.ID)
		}
		seen[e.ID] = true
		switch world.EntityKind(e.Kind) {
		case world.KindPlayer:
			players++
			if players > 1 {
				return fmt.Errorf("entity %s: more than one player", e.ID)
			}
		case world.KindAutonomous, world.KindInert:
		default:
			return fmt.Errorf("entity %s: unknown kind %q", e.ID, e.Kind)
		}
		if !locs[e.Location] {
			return fmt.Errorf("entity %s: unknown location %s", e.ID, e.Location)
		}
		if e.GroupID != "" && !groups[e.GroupID] {
			return fmt.Errorf("entity %s: unknown group %s", e.ID, e.GroupID)
		}
		if e.Behavior.Kind != "" {
			if err := world.ValidateBehaviorKind(e.Behavior.Kind); err != nil {
				return fmt.Errorf("entity %s: %w", e.ID, err)
			}
		}
		for _, wp := range e.Behavior.Waypoints {
			if !locs[wp.Location] {
				return fmt.Errorf("entity %s: waypoint in unknown location %s", e.ID, wp.Location)
			}
		}
	}
	return nil
}

// Populate fills an empty world through its mutation contracts, in file
// order within each section: locations, groups, entities, then membership
// and claims.
func (s *Scenario) Populate(w *world.World) error {
	for _, l := range s.Locations {
		if err := w.AddLocation(&world.Location{
			ID:        l.ID,
			Name:      l.Name,
			Neighbors: append([]string(nil), l.Neighbors...),
			Resources: copyMap(l.Resources),
		}); err != nil {
			return err
		}
	}

	for _, g := range s.Groups {
		grp, err := w.AddGroup(g.ID, g.Name)
		if err != nil {
			return err
		}
		for k, v := range g.Resources {
			grp.Resources[k] = v
		}
		for _, goal := range g.Goals {
			grp.Goals = append(grp.Goals, world.Goal{Kind: goal.Kind, Target: goal.Target, Priority: goal.Priority})
		}
	}
	for _, g := range s.Groups {
		for other, score := range g.Relations {
			if _, err := w.UpdateRelationship(g.ID, other, score); err != nil {
				return err
			}
		}
		for _, loc := range g.Territory {
			if err := w.ClaimTerritory(g.ID, loc); err != nil {
				return err
			}
		}
	}

	for _, e := range s.Entities {
		ent := &world.Entity{
			ID:       e.ID,
			Name:     e.Name,
			Kind:     world.EntityKind(e.Kind),
			Location: e.Location,
			Pos:      world.Vec2i{X: e.Pos[0], Y: e.Pos[1]},
			HP:       e.HP,
			MaxHP:    e.HP,
			Strength: e.Strength,
			Armor:    e.Armor,
			Alive:    true,
			Behavior: world.BehaviorSpec{
				Kind:           world.BehaviorKind(e.Behavior.Kind),
				DetectionRange: e.Behavior.DetectionRange,
				Home:           world.Vec2i{X: e.Behavior.Home[0], Y: e.Behavior.Home[1]},
				HostileTo:      append([]string(nil), e.Behavior.HostileTo...),
			},
		}
		for _, wp := range e.Behavior.Waypoints {
			ent.Behavior.Waypoints = append(ent.Behavior.Waypoints, world.Waypoint{
				Location: wp.Location,
				Pos:      world.Vec2i{X: wp.Pos[0], Y: wp.Pos[1]},
			})
		}
		if err := w.AddEntity(ent); err != nil {
			return err
		}
		if e.GroupID != "" {
			if err := w.AddMember(e.GroupID, e.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func copyMap(m map[string]int) map[string]int {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
