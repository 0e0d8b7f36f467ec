package world

import (
	"container/heap"
	"fmt"
	"sort"
)

// ScheduledEvent is one queued unit of deferred work. Seq is the insertion
// counter used as the tie-break for equal due times.
type ScheduledEvent struct {
	ID      string
	Due     uint64
	Seq     uint64
	Payload EventPayload
}

// Scheduler is the time-ordered queue of pending events. Events pop in
// (Due, Seq) order; a popped event is gone before its payload executes, so a
// payload that reschedules for the current tick waits for the next dispatch.
type Scheduler struct {
	q    eventHeap
	byID map[string]*queuedEvent

	nextEventNum uint64
	nextSeq      uint64
}

type queuedEvent struct {
	ev    ScheduledEvent
	index int // heap position, -1 once popped
}

func NewScheduler() *Scheduler {
	return &Scheduler{byID: map[string]*queuedEvent{}}
}

// Schedule queues a payload for due >= now and returns the new event id.
// Scheduling into the past is rejected, never clamped.
func (s *Scheduler) Schedule(now, due uint64, p EventPayload) (string, error) {
	if due < now {
		return "", fmt.Errorf("due %d before now %d: %w", due, now, ErrPastDueTime)
	}
	s.nextEventNum++
	s.nextSeq++
	qe := &queuedEvent{ev: ScheduledEvent{
		ID:      fmt.Sprintf("EVT_%06d", s.nextEventNum),
		Due:     due,
		Seq:     s.nextSeq,
		Payload: p,
	}}
	s.byID[qe.ev.ID] = qe
	heap.Push(&s.q, qe)
	return qe.ev.ID, nil
}

// Cancel removes a pending event. Already-dispatched or unknown ids fail
// with ErrNotFound; the failure is recoverable and never aborts a tick.
func (s *Scheduler) Cancel(id string) error {
	qe, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	delete(s.byID, id)
	heap.Remove(&s.q, qe.index)
	return nil
}

// DispatchDue removes and returns every event with Due <= now, in
// non-decreasing due order with insertion-order tie-break. The caller
// executes the returned batch; failures there do not re-queue anything.
func (s *Scheduler) DispatchDue(now uint64) []ScheduledEvent {
	var due []ScheduledEvent
	for s.q.Len() > 0 && s.q[0].ev.Due <= now {
		qe := heap.Pop(&s.q).(*queuedEvent)
		delete(s.byID, qe.ev.ID)
		due = append(due, qe.ev)
	}
	return due
}

// CancelReferencing drops every pending event whose payload references the
// entity. Part of the removal cascade; returns the cancelled ids.
func (s *Scheduler) CancelReferencing(entityID string) []string {
	var ids []string
	for id, qe := range s.byID {
		if qe.ev.Payload.references(entityID) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		_ = s.Cancel(id)
	}
	return ids
}

// Pending returns a sorted copy of the queue for presentation and export.
func (s *Scheduler) Pending() []ScheduledEvent {
	out := make([]ScheduledEvent, 0, len(s.q))
	for _, qe := range s.q {
		out = append(out, qe.ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Due != out[j].Due {
			return out[i].Due < out[j].Due
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

func (s *Scheduler) Len() int { return s.q.Len() }

// counters exposes the id counters for snapshot export.
func (s *Scheduler) counters() (nextEventNum, nextSeq uint64) {
	return s.nextEventNum, s.nextSeq
}

// restore reloads queue contents and counters from a snapshot.
func (s *Scheduler) restore(events []ScheduledEvent, nextEventNum, nextSeq uint64) {
	s.q = s.q[:0]
	s.byID = map[string]*queuedEvent{}
	for _, ev := range events {
		qe := &queuedEvent{ev: ev}
		s.byID[ev.ID] = qe
		heap.Push(&s.q, qe)
	}
	s.nextEventNum = nextEventNum
	s.nextSeq = nextSeq
}

type eventHeap []*queuedEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].ev.Due != h[j].ev.Due {
		return h[i].ev.Due < h[j].ev.Due
	}
	return h[i].ev.Seq < h[j].ev.Seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *eventHeap) Push(x any) {
	qe := x.(*queuedEvent)
	qe.index = len(*h)
	*h = append(*h, qe)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	qe := old[n-1]
	old[n-1] = nil
	qe.index = -1
	*h = old[:n-1]
	return qe
}
