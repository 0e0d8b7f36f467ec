package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"ashvale.world/internal/sim/world"
)

// Journal is the queryable sqlite index over the run's tick and event
// streams. Writes are buffered and applied by a single writer goroutine so
// the simulation never blocks on the database; the JSONL logs remain the
// source of truth when the buffer overflows.
type Journal struct {
	db    *sqlx.DB
	runID string

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqEvent
	reqBarrier
)

type req struct {
	kind  reqKind
	tick  world.TickLogEntry
	event world.SimEventEntry
	done  chan struct{}
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	world_id   TEXT NOT NULL,
	seed       INTEGER NOT NULL,
	started_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS ticks (
	run_id   TEXT NOT NULL,
	tick     INTEGER NOT NULL,
	digest   TEXT NOT NULL,
	entities INTEGER NOT NULL,
	groups   INTEGER NOT NULL,
	pending  INTEGER NOT NULL,
	actions  INTEGER NOT NULL,
	errors   INTEGER NOT NULL,
	PRIMARY KEY (run_id, tick)
);
CREATE TABLE IF NOT EXISTS events (
	run_id   TEXT NOT NULL,
	tick     INTEGER NOT NULL,
	seq      INTEGER NOT NULL,
	kind     TEXT NOT NULL,
	event_id TEXT,
	detail   TEXT NOT NULL,
	PRIMARY KEY (run_id, tick, seq)
);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(run_id, kind, tick);
`

func Open(path, worldID string, seed int64) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("empty journal path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	j := &Journal{
		db:    db,
		runID: uuid.NewString(),
		ch:    make(chan req, 65536),
	}
	if _, err := db.Exec(`INSERT INTO runs(run_id, world_id, seed, started_at) VALUES(?,?,?,?)`,
		j.runID, worldID, seed, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		_ = db.Close()
		return nil, err
	}

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.loop()
	}()
	return j, nil
}

// OpenRead opens an existing journal for querying, bound to its most recent
// run. No writer goroutine is started; Write calls are rejected by Close
// state only at the channel, so callers must not write to a read handle.
func OpenRead(path string) (*Journal, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	var runID string
	if err := db.Get(&runID, `SELECT run_id FROM runs ORDER BY started_at DESC LIMIT 1`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("no runs recorded: %w", err)
	}
	j := &Journal{db: db, runID: runID, ch: make(chan req)}
	j.closed.Store(true)
	return j, nil
}

func (j *Journal) RunID() string { return j.runID }

// Dropped reports how many writes were shed because the buffer was full.
func (j *Journal) Dropped() uint64 { return j.dropped.Load() }

func (j *Journal) Close() error {
	var err error
	j.once.Do(func() {
		j.closed.Store(true)
		close(j.ch)
		j.wg.Wait()
		err = j.db.Close()
	})
	return err
}

func (j *Journal) WriteTick(entry world.TickLogEntry) error {
	if j == nil || j.closed.Load() {
		return nil
	}
	select {
	case j.ch <- req{kind: reqTick, tick: entry}:
	default:
		j.dropped.Add(1)
	}
	return nil
}

func (j *Journal) WriteSimEvent(entry world.SimEventEntry) error {
	if j == nil || j.closed.Load() {
		return nil
	}
	select {
	case j.ch <- req{kind: reqEvent, event: entry}:
	default:
		j.dropped.Add(1)
	}
	return nil
}

func (j *Journal) loop() {
	var (
		tx            *sqlx.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastEventTick uint64
		eventSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := j.db.Beginx()
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range j.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			t := r.tick
			if _, err := tx.Exec(`INSERT OR REPLACE INTO ticks(run_id,tick,digest,entities,groups,pending,actions,errors) VALUES(?,?,?,?,?,?,?,?)`,
				j.runID, int64(t.Tick), t.Digest, t.Entities, t.Groups, t.Pending, t.Actions, t.Errors); err != nil {
				rollback()
				continue
			}
			opCount++
		case reqEvent:
			e := r.event
			if e.Tick != lastEventTick {
				lastEventTick = e.Tick
				eventSeq = 0
			}
			seq := eventSeq
			eventSeq++
			if _, err := tx.Exec(`INSERT OR REPLACE INTO events(run_id,tick,seq,kind,event_id,detail) VALUES(?,?,?,?,?,?)`,
				j.runID, int64(e.Tick), seq, e.Kind, e.EventID, e.Detail); err != nil {
				rollback()
				continue
			}
			opCount++
		case reqBarrier:
			commit()
			close(r.done)
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}

// Flush blocks until everything queued before the call is committed.
func (j *Journal) Flush() {
	if j == nil || j.closed.Load() {
		return
	}
	done := make(chan struct{})
	j.ch <- req{kind: reqBarrier, done: done}
	<-done
}
