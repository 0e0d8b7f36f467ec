package world

import (
	"errors"
	"testing"
)

func TestScheduler_DueOrderWithTieBreak(t *testing.T) {
	s := NewScheduler()
	// B scheduled for tick 10, then A for tick 5, then C also for tick 10.
	b, _ := s.Schedule(0, 10, EventPayload{Kind: EventRelationshipDecay})
	a, _ := s.Schedule(0, 5, EventPayload{Kind: EventRelationshipDecay})
	c, _ := s.Schedule(0, 10, EventPayload{Kind: EventRelationshipDecay})

	batch := s.DispatchDue(10)
	if len(batch) != 3 {
		t.Fatalf("got %d events", len(batch))
	}
	if batch[0].ID != a || batch[1].ID != b || batch[2].ID != c {
		t.Fatalf("order: %s %s %s, want %s %s %s", batch[0].ID, batch[1].ID, batch[2].ID, a, b, c)
	}
	if s.Len() != 0 {
		t.Fatalf("queue not drained: %d", s.Len())
	}
}

func TestScheduler_PastDueRejected(t *testing.T) {
	s := NewScheduler()
	if _, err := s.Schedule(100, 99, EventPayload{Kind: EventRelationshipDecay}); !errors.Is(err, ErrPastDueTime) {
		t.Fatalf("got %v", err)
	}
	// due == now is allowed.
	if _, err := s.Schedule(100, 100, EventPayload{Kind: EventRelationshipDecay}); err != nil {
		t.Fatalf("due==now rejected: %v", err)
	}
}

func TestScheduler_CancelTwice(t *testing.T) {
	s := NewScheduler()
	id, _ := s.Schedule(0, 10, EventPayload{Kind: EventRelationshipDecay})
	if err := s.Cancel(id); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if err := s.Cancel(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second cancel: %v", err)
	}
	if err := s.Cancel("EVT_999999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown cancel: %v", err)
	}
}

func TestScheduler_SameTickRescheduleDefers(t *testing.T) {
	s := NewScheduler()
	_, _ = s.Schedule(0, 5, EventPayload{Kind: EventRelationshipDecay})

	batch := s.DispatchDue(5)
	if len(batch) != 1 {
		t.Fatalf("got %d", len(batch))
	}
	// An execution that schedules for the current tick must not re-enter
	// this dispatch.
	if _, err := s.Schedule(5, 5, EventPayload{Kind: EventRelationshipDecay}); err != nil {
		t.Fatal(err)
	}
	if again := s.DispatchDue(5); len(again) != 1 {
		t.Fatalf("rescheduled event dispatched %d times in follow-up batch", len(again))
	}
}

func TestScheduler_CancelReferencing(t *testing.T) {
	s := NewScheduler()
	_, _ = s.Schedule(0, 10, EventPayload{Kind: EventTravelArrive, EntityID: "npc_1", Location: "hommlet"})
	_, _ = s.Schedule(0, 12, EventPayload{Kind: EventTravelArrive, EntityID: "npc_2", Location: "hommlet"})
	keep, _ := s.Schedule(0, 14, EventPayload{Kind: EventRecruitmentDrive, GroupID: "militia", Slots: 1})

	cancelled := s.CancelReferencing("npc_1")
	if len(cancelled) != 1 {
		t.Fatalf("cancelled %v", cancelled)
	}
	if s.Len() != 2 {
		t.Fatalf("queue len %d", s.Len())
	}
	if err := s.Cancel(keep); err != nil {
		t.Fatalf("unrelated event was touched: %v", err)
	}
}
