package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

// SnapshotV1 captures everything needed to resume a world mid-run: clock,
// entities, groups, territory, pending events, and the id counters. The
// random stream is derived from seed and tick, so no generator state is
// stored.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed       int64 `json:"seed"`
	TickRateHz int   `json:"tick_rate_hz"`

	StrategyEveryTicks int `json:"strategy_every_ticks,omitempty"`
	SnapshotEveryTicks int `json:"snapshot_every_ticks,omitempty"`
	DecayEveryTicks    int `json:"decay_every_ticks,omitempty"`

	Locations []LocationV1 `json:"locations"`
	Entities  []EntityV1   `json:"entities"`
	Groups    []GroupV1    `json:"groups"`
	Territory []ClaimV1    `json:"territory"`
	Events    []EventV1    `json:"events"`
	Errors    []ErrorV1    `json:"errors,omitempty"`

	Counters CountersV1 `json:"counters"`
}

type CountersV1 struct {
	NextEvent uint64 `json:"next_event"`
	NextSeq   uint64 `json:"next_seq"`
}

type LocationV1 struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Neighbors []string       `json:"neighbors,omitempty"`
	Resources map[string]int `json:"resources,omitempty"`
}

type EntityV1 struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Location string `json:"location"`
	Pos      [2]int `json:"pos"`

	HP       int  `json:"hp"`
	MaxHP    int  `json:"max_hp"`
	Strength int  `json:"strength"`
	Armor    int  `json:"armor"`
	Alive    bool `json:"alive"`

	GroupID       string `json:"group_id,omitempty"`
	TravelEventID string `json:"travel_event_id,omitempty"`

	Behavior BehaviorV1 `json:"behavior"`
}

type BehaviorV1 struct {
	Kind           string       `json:"kind"`
	Waypoints      []WaypointV1 `json:"waypoints,omitempty"`
	WaypointIndex  int          `json:"waypoint_index,omitempty"`
	DetectionRange int          `json:"detection_range,omitempty"`
	Home           [2]int       `json:"home,omitempty"`
	HostileTo      []string     `json:"hostile_to,omitempty"`
}

type WaypointV1 struct {
	Location string `json:"location"`
	Pos      [2]int `json:"pos"`
}

type GroupV1 struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	CreatedTick uint64         `json:"created_tick"`
	Members     []string       `json:"members"`
	Relations   map[string]int `json:"relations,omitempty"`
	Resources   map[string]int `json:"resources,omitempty"`
	Goals       []GoalV1       `json:"goals,omitempty"`
}

type GoalV1 struct {
	Kind     string `json:"kind"`
	Target   string `json:"target,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

type ClaimV1 struct {
	Location string `json:"location"`
	GroupID  string `json:"group_id"`
}

type EventV1 struct {
	ID      string `json:"id"`
	Due     uint64 `json:"due"`
	Seq     uint64 `json:"seq"`
	Payload []byte `json:"payload"`
}

type ErrorV1 struct {
	Tick    uint64 `json:"tick"`
	EventID string `json:"event_id,omitempty"`
	Source  string `json:"source"`
	Message string `json:"message"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is informational; gob carries the full header too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
