package world

import (
	"context"
	"time"
)

// Run drives the world at the configured tick rate until the context is
// cancelled or Stop is called. Player actions and admin requests accumulate
// between ticks and are applied at the next boundary.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingActions []Action
	var pendingAdmin []AdminRequest

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case act := <-w.inbox:
			pendingActions = append(pendingActions, act)
		case req := <-w.admin:
			pendingAdmin = append(pendingAdmin, req)
		case <-ticker.C:
			w.step(pendingActions)
			for _, req := range pendingAdmin {
				w.handleAdmin(req)
			}
			pendingActions = pendingActions[:0]
			pendingAdmin = pendingAdmin[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// RunTicks advances exactly n ticks as fast as possible, checking for
// cancellation between ticks. Headless batch mode.
func (w *World) RunTicks(ctx context.Context, n uint64) (uint64, error) {
	var tick uint64
	for i := uint64(0); i < n; i++ {
		select {
		case <-ctx.Done():
			return tick, ctx.Err()
		case <-w.stop:
			return tick, nil
		default:
		}
		w.drainInbox()
		tick, _ = w.StepOnce()
	}
	return tick, nil
}

func (w *World) drainInbox() {
	for {
		select {
		case act := <-w.inbox:
			w.pendingActions = append(w.pendingActions, act)
		case req := <-w.admin:
			w.handleAdmin(req)
		default:
			return
		}
	}
}

// StepOnce advances the world by a single tick with the same ordering as the
// live loop. Intended for deterministic replays and tests.
func (w *World) StepOnce() (tick uint64, digest string) {
	actions := w.pendingActions
	w.pendingActions = nil
	w.step(actions)
	tick = w.clock.Now()
	return tick, w.StateDigest(tick)
}

// step is the single-tick pipeline. Phase order is fixed: clock, event
// dispatch, behavior evaluation over a frozen view, sequential apply,
// group strategy, then observation sinks.
func (w *World) step(playerActions []Action) {
	nowTick, err := w.clock.Advance(1)
	if err != nil {
		w.recordError("", "clock", err.Error())
		return
	}
	w.tick.Store(nowTick)

	w.dispatchDue(nowTick)

	v := &View{
		Now:       nowTick,
		reg:       w.registry,
		ledger:    w.ledger,
		locations: w.locations,
		seed:      w.cfg.Seed,
	}

	// Player-submitted actions stand in for the player's evaluation this
	// tick; the last submission wins.
	playerAction := map[string]Action{}
	for _, act := range playerActions {
		if act.ActorID == "" {
			continue
		}
		playerAction[act.ActorID] = act
	}

	var actions []Action
	for _, id := range v.LiveIDs() {
		e := v.Entity(id)
		if e == nil {
			continue
		}
		if act, ok := playerAction[id]; ok && e.Kind == KindPlayer {
			actions = append(actions, act)
			continue
		}
		if e.Kind != KindAutonomous {
			continue
		}
		actions = append(actions, evalBehavior(e, v))
	}

	for _, act := range actions {
		w.applyAction(act, nowTick)
	}

	w.evaluateStrategies(nowTick)

	w.observe(nowTick, len(actions))
}

// observe feeds the tick log and, on cadence, the snapshot sink. Neither
// can affect simulation state.
func (w *World) observe(nowTick uint64, actionCount int) {
	if w.tickLogger != nil {
		err := w.tickLogger.WriteTick(TickLogEntry{
			Tick:     nowTick,
			Digest:   w.StateDigest(nowTick),
			Entities: w.registry.Len(),
			Groups:   len(w.ledger.GroupIDs()),
			Pending:  w.scheduler.Len(),
			Actions:  actionCount,
			Errors:   len(w.errors),
		})
		if err != nil {
			w.recordError("", "ticklog", err.Error())
		}
	}
	if w.snapshotSink != nil && w.cfg.SnapshotEveryTicks > 0 && nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		select {
		case w.snapshotSink <- w.ExportSnapshot():
		default:
			w.recordError("", "snapshot", "snapshot sink full, skipped")
		}
	}
}
