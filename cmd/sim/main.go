package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	persistlog "ashvale.world/internal/persistence/log"
	"ashvale.world/internal/persistence/journal"
	"ashvale.world/internal/persistence/snapshot"
	"ashvale.world/internal/sim/scenario"
	"ashvale.world/internal/sim/tuning"
	"ashvale.world/internal/sim/world"
)

func main() {
	var (
		worldID     = flag.String("world", "ashvale", "world id")
		seed        = flag.Int64("seed", 1337, "world seed (fresh worlds only)")
		scenarioDir = flag.String("scenario", "./configs/scenario", "scenario directory (locations/groups/entities .json)")
		schemasDir  = flag.String("schemas", "./schemas", "json schema directory (empty to skip validation)")
		tuningPath  = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		ticks       = flag.Uint64("ticks", 0, "run this many ticks headless and exit (0 = run live)")
		console     = flag.Bool("console", false, "read admin commands from stdin")
		resume      = flag.String("resume", "", "snapshot to resume from (default: latest in data dir)")
		fresh       = flag.Bool("fresh", false, "ignore existing snapshots and start from the scenario")
		save        = flag.Bool("save", true, "write a final snapshot on exit")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite journal")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[sim] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", *tuningPath)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}
	cfg, err := tune.WorldConfig()
	if err != nil {
		logger.Fatalf("tuning: %v", err)
	}
	cfg.ID = *worldID
	cfg.Seed = *seed

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	var w *world.World
	snapshotToLoad := strings.TrimSpace(*resume)
	if snapshotToLoad == "" && !*fresh {
		snapshotToLoad = latestSnapshot(worldDir)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		w, err = world.FromSnapshot(cfg, snap)
		if err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.CurrentTick())
	} else {
		w, err = world.New(cfg)
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
		scn, err := scenario.Load(*scenarioDir, *schemasDir)
		if err != nil {
			logger.Fatalf("load scenario: %v", err)
		}
		if err := scn.Populate(w); err != nil {
			logger.Fatalf("populate: %v", err)
		}
		logger.Printf("fresh world seed=%d locations=%s groups=%s entities=%s",
			*seed, short(scn.LocationsDigest), short(scn.GroupsDigest), short(scn.EntitiesDigest))
	}

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(worldDir)
	eventLog := persistlog.NewEventLogger(worldDir)
	defer tickLog.Close()
	defer eventLog.Close()

	var jrn *journal.Journal
	if !*disableDB {
		jrn, err = journal.Open(filepath.Join(worldDir, "journal.db"), *worldID, w.Seed())
		if err != nil {
			logger.Fatalf("open journal: %v", err)
		}
		defer jrn.Close()
		logger.Printf("journal run=%s", jrn.RunID())
	}
	w.SetTickLogger(multiTickLogger{a: tickLog, b: jrn})
	w.SetEventLogger(multiEventLogger{a: eventLog, b: jrn})

	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
				}
			}
		}
	}()

	if *ticks > 0 {
		last, err := w.RunTicks(ctx, *ticks)
		if err != nil && err != context.Canceled {
			logger.Fatalf("run: %v", err)
		}
		logger.Printf("ran to tick=%d digest=%s", last, short(w.StateDigest(last)))
	} else {
		go func() {
			if err := w.Run(ctx); err != nil && err != context.Canceled {
				logger.Printf("world stopped: %v", err)
			}
		}()
		if *console {
			runConsole(ctx, w, w.PlayerID())
		} else {
			<-ctx.Done()
		}
		w.Stop()
	}

	if *save {
		snap := w.ExportSnapshot()
		path := filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			logger.Fatalf("final snapshot: %v", err)
		}
		logger.Printf("saved %s", path)
	}
}

// runConsole reads admin commands from stdin; lines starting with "act"
// become player actions for the next tick instead.
func runConsole(ctx context.Context, w *world.World, playerID string) {
	sc := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "quit" || line == "exit" {
			return
		}
		switch {
		case line == "":
		case strings.HasPrefix(line, "act ") || line == "act":
			act, err := parsePlayerAction(playerID, strings.Fields(line)[1:])
			if err == nil {
				err = w.SubmitAction(act)
			}
			if err != nil {
				fmt.Println("error:", err)
			}
		default:
			out, err := w.Admin(line)
			if err != nil {
				fmt.Println("error:", err)
			} else if out != "" {
				fmt.Println(out)
			}
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		fmt.Print("> ")
	}
}

func parsePlayerAction(playerID string, args []string) (world.Action, error) {
	if playerID == "" {
		return world.Action{}, fmt.Errorf("no player entity in this world")
	}
	if len(args) == 0 {
		return world.Action{}, fmt.Errorf("usage: act idle|move <x> <y>|travel <location>|attack <id>|gather")
	}
	act := world.Action{ActorID: playerID}
	switch args[0] {
	case "idle":
		act.Kind = world.ActionIdle
	case "move":
		if len(args) != 3 {
			return act, fmt.Errorf("usage: act move <x> <y>")
		}
		x, err1 := strconv.Atoi(args[1])
		y, err2 := strconv.Atoi(args[2])
		if err1 != nil || err2 != nil {
			return act, fmt.Errorf("act move: bad coordinates")
		}
		act.Kind = world.ActionMove
		act.TargetPos = world.Vec2i{X: x, Y: y}
	case "travel":
		if len(args) != 2 {
			return act, fmt.Errorf("usage: act travel <location>")
		}
		act.Kind = world.ActionMove
		act.TargetLocation = args[1]
	case "attack":
		if len(args) != 2 {
			return act, fmt.Errorf("usage: act attack <id>")
		}
		act.Kind = world.ActionAttack
		act.TargetID = args[1]
	case "gather":
		act.Kind = world.ActionGather
	default:
		return act, fmt.Errorf("unknown action %q", args[0])
	}
	return act, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".snap.zst")
		tick, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

type multiTickLogger struct {
	a world.TickLogger
	b *journal.Journal
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiEventLogger struct {
	a world.EventLogger
	b *journal.Journal
}

func (m multiEventLogger) WriteSimEvent(entry world.SimEventEntry) error {
	if m.a != nil {
		_ = m.a.WriteSimEvent(entry)
	}
	if m.b != nil {
		_ = m.b.WriteSimEvent(entry)
	}
	return nil
}
