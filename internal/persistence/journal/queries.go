package journal

// EventRow is one journaled state transition.
type EventRow struct {
	Tick    uint64 `db:"tick"`
	Seq     int    `db:"seq"`
	Kind    string `db:"kind"`
	EventID string `db:"event_id"`
	Detail  string `db:"detail"`
}

// TickRow mirrors one tick log line.
type TickRow struct {
	Tick     uint64 `db:"tick"`
	Digest   string `db:"digest"`
	Entities int    `db:"entities"`
	Groups   int    `db:"groups"`
	Pending  int    `db:"pending"`
	Actions  int    `db:"actions"`
	Errors   int    `db:"errors"`
}

type KindCount struct {
	Kind  string `db:"kind"`
	Count int    `db:"n"`
}

// RecentErrors returns the newest n ERROR events for this run, newest first.
func (j *Journal) RecentErrors(n int) ([]EventRow, error) {
	var rows []EventRow
	err := j.db.Select(&rows,
		`SELECT tick, seq, kind, event_id, detail FROM events
		 WHERE run_id = ? AND kind = 'ERROR'
		 ORDER BY tick DESC, seq DESC LIMIT ?`, j.runID, n)
	return rows, err
}

// EventsBetween returns every event in [from, to], in dispatch order.
func (j *Journal) EventsBetween(from, to uint64) ([]EventRow, error) {
	var rows []EventRow
	err := j.db.Select(&rows,
		`SELECT tick, seq, kind, event_id, detail FROM events
		 WHERE run_id = ? AND tick BETWEEN ? AND ?
		 ORDER BY tick, seq`, j.runID, int64(from), int64(to))
	return rows, err
}

// CountByKind aggregates this run's events per kind.
func (j *Journal) CountByKind() ([]KindCount, error) {
	var rows []KindCount
	err := j.db.Select(&rows,
		`SELECT kind, COUNT(*) AS n FROM events
		 WHERE run_id = ?
		 GROUP BY kind ORDER BY kind`, j.runID)
	return rows, err
}

// Ticks returns the newest n tick rows, newest first.
func (j *Journal) Ticks(n int) ([]TickRow, error) {
	var rows []TickRow
	err := j.db.Select(&rows,
		`SELECT tick, digest, entities, groups, pending, actions, errors FROM ticks
		 WHERE run_id = ?
		 ORDER BY tick DESC LIMIT ?`, j.runID, n)
	return rows, err
}
