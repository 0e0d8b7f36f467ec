package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"io"
)

// StateDigest hashes the full observable state in a fixed, sorted order.
// Two worlds with equal digests are indistinguishable to every query.
func (w *World) StateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	w.digestHeader(h, &tmp, nowTick)
	w.digestLocations(h, &tmp)
	w.digestEntities(h, &tmp)
	w.digestGroups(h, &tmp)
	w.digestTerritory(h, &tmp)
	w.digestEvents(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h io.Writer, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h io.Writer, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteString(h io.Writer, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	io.WriteString(h, s)
}

func digestWriteIntMap(h io.Writer, tmp *[8]byte, m map[string]int) {
	keys := sortedKeys(m)
	digestWriteU64(h, tmp, uint64(len(keys)))
	for _, k := range keys {
		digestWriteString(h, tmp, k)
		digestWriteI64(h, tmp, int64(m[k]))
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (w *World) digestHeader(h io.Writer, tmp *[8]byte, nowTick uint64) {
	digestWriteString(h, tmp, w.cfg.ID)
	digestWriteI64(h, tmp, w.cfg.Seed)
	digestWriteU64(h, tmp, nowTick)
	digestWriteString(h, tmp, w.playerID)
	digestWriteU64(h, tmp, uint64(len(w.errors)))
}

func (w *World) digestLocations(h io.Writer, tmp *[8]byte) {
	ids := sortedKeys(w.locations)
	digestWriteU64(h, tmp, uint64(len(ids)))
	for _, id := range ids {
		loc := w.locations[id]
		digestWriteString(h, tmp, loc.ID)
		digestWriteIntMap(h, tmp, loc.Resources)
	}
}

func (w *World) digestEntities(h io.Writer, tmp *[8]byte) {
	ids := w.registry.ListIDs()
	digestWriteU64(h, tmp, uint64(len(ids)))
	for _, id := range ids {
		e, err := w.registry.Get(id)
		if err != nil {
			continue
		}
		digestWriteString(h, tmp, e.ID)
		digestWriteString(h, tmp, string(e.Kind))
		digestWriteString(h, tmp, e.Location)
		digestWriteI64(h, tmp, int64(e.Pos.X))
		digestWriteI64(h, tmp, int64(e.Pos.Y))
		digestWriteI64(h, tmp, int64(e.HP))
		digestWriteI64(h, tmp, int64(e.Strength))
		digestWriteI64(h, tmp, int64(e.Armor))
		h.Write([]byte{boolByte(e.Alive)})
		digestWriteString(h, tmp, e.GroupID)
		digestWriteString(h, tmp, string(e.Behavior.Kind))
		digestWriteI64(h, tmp, int64(e.Behavior.WaypointIndex))
		digestWriteString(h, tmp, e.TravelEventID)
	}
}

func (w *World) digestGroups(h io.Writer, tmp *[8]byte) {
	ids := w.ledger.GroupIDs()
	digestWriteU64(h, tmp, uint64(len(ids)))
	for _, id := range ids {
		g, err := w.ledger.Group(id)
		if err != nil {
			continue
		}
		digestWriteString(h, tmp, g.ID)
		digestWriteU64(h, tmp, g.CreatedTick)
		members := sortedKeys(g.Members)
		digestWriteU64(h, tmp, uint64(len(members)))
		for _, m := range members {
			digestWriteString(h, tmp, m)
		}
		digestWriteIntMap(h, tmp, g.Relations)
		digestWriteIntMap(h, tmp, g.Resources)
		digestWriteU64(h, tmp, uint64(len(g.Goals)))
		for _, goal := range g.Goals {
			digestWriteString(h, tmp, goal.Kind)
			digestWriteString(h, tmp, goal.Target)
			digestWriteI64(h, tmp, int64(goal.Priority))
		}
	}
}

func (w *World) digestTerritory(h io.Writer, tmp *[8]byte) {
	claims := w.ledger.TerritoryLocations()
	digestWriteU64(h, tmp, uint64(len(claims)))
	for _, loc := range claims {
		digestWriteString(h, tmp, loc)
		digestWriteString(h, tmp, w.ledger.Holder(loc))
	}
}

func (w *World) digestEvents(h io.Writer, tmp *[8]byte) {
	pending := w.scheduler.Pending()
	digestWriteU64(h, tmp, uint64(len(pending)))
	for _, ev := range pending {
		digestWriteString(h, tmp, ev.ID)
		digestWriteU64(h, tmp, ev.Due)
		digestWriteU64(h, tmp, ev.Seq)
		// Full payload bytes: a human summary would collapse payloads that
		// differ only in nested fields (spawn lists).
		raw, _ := json.Marshal(ev.Payload)
		digestWriteString(h, tmp, string(raw))
	}
}
