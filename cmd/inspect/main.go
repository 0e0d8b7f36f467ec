package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"ashvale.world/internal/persistence/journal"
	"ashvale.world/internal/persistence/snapshot"
)

// inspect reads the artifacts a run leaves behind: the sqlite journal, the
// compressed JSONL logs, and snapshots.
func main() {
	var (
		dataDir = flag.String("data", "./data", "runtime data directory")
		worldID = flag.String("world", "ashvale", "world id")
		n       = flag.Int("n", 20, "row limit for tail/errors")
		from    = flag.Uint64("from", 0, "events: first tick")
		to      = flag.Uint64("to", ^uint64(0), "events: last tick")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[inspect] ", 0)

	if flag.NArg() < 1 {
		logger.Fatalf("usage: inspect [flags] tail|errors|events|kinds|snapshot|log <args>")
	}
	worldDir := filepath.Join(*dataDir, "worlds", *worldID)

	switch flag.Arg(0) {
	case "tail":
		j := openJournal(logger, worldDir)
		defer j.Close()
		rows, err := j.Ticks(*n)
		if err != nil {
			logger.Fatalf("ticks: %v", err)
		}
		for _, r := range rows {
			fmt.Printf("tick=%d digest=%s entities=%d groups=%d pending=%d actions=%d errors=%d\n",
				r.Tick, r.Digest[:12], r.Entities, r.Groups, r.Pending, r.Actions, r.Errors)
		}
	case "errors":
		j := openJournal(logger, worldDir)
		defer j.Close()
		rows, err := j.RecentErrors(*n)
		if err != nil {
			logger.Fatalf("errors: %v", err)
		}
		for _, r := range rows {
			fmt.Printf("tick=%d event=%s %s\n", r.Tick, r.EventID, r.Detail)
		}
	case "events":
		j := openJournal(logger, worldDir)
		defer j.Close()
		rows, err := j.EventsBetween(*from, *to)
		if err != nil {
			logger.Fatalf("events: %v", err)
		}
		for _, r := range rows {
			fmt.Printf("tick=%d kind=%s event=%s %s\n", r.Tick, r.Kind, r.EventID, r.Detail)
		}
	case "kinds":
		j := openJournal(logger, worldDir)
		defer j.Close()
		rows, err := j.CountByKind()
		if err != nil {
			logger.Fatalf("kinds: %v", err)
		}
		for _, r := range rows {
			fmt.Printf("%-18s %d\n", r.Kind, r.Count)
		}
	case "snapshot":
		if flag.NArg() < 2 {
			logger.Fatalf("usage: inspect snapshot <path>")
		}
		snap, err := snapshot.ReadSnapshot(flag.Arg(1))
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		fmt.Printf("world=%s tick=%d seed=%d\n", snap.Header.WorldID, snap.Header.Tick, snap.Seed)
		fmt.Printf("locations=%d entities=%d groups=%d claims=%d pending=%d errors=%d\n",
			len(snap.Locations), len(snap.Entities), len(snap.Groups),
			len(snap.Territory), len(snap.Events), len(snap.Errors))
		for _, g := range snap.Groups {
			fmt.Printf("  group %s %q members=%d\n", g.ID, g.Name, len(g.Members))
		}
	case "log":
		if flag.NArg() < 2 {
			logger.Fatalf("usage: inspect log ticks|events")
		}
		dumpLogs(logger, filepath.Join(worldDir, flag.Arg(1)))
	default:
		logger.Fatalf("unknown subcommand %q", flag.Arg(0))
	}
}

func openJournal(logger *log.Logger, worldDir string) *journal.Journal {
	j, err := journal.OpenRead(filepath.Join(worldDir, "journal.db"))
	if err != nil {
		logger.Fatalf("open journal: %v", err)
	}
	return j
}

// dumpLogs decompresses every rotated JSONL file in the directory, in name
// (hour) order, and prints the raw lines.
func dumpLogs(logger *log.Logger, dir string) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		logger.Fatalf("read %s: %v", dir, err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jsonl.zst") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			logger.Fatalf("open %s: %v", path, err)
		}
		dec, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			logger.Fatalf("zstd %s: %v", path, err)
		}
		sc := bufio.NewScanner(dec)
		sc.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
		for sc.Scan() {
			fmt.Println(sc.Text())
		}
		dec.Close()
		_ = f.Close()
	}
}
