/*
Copyright (C) 2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// sweepd is the process entrypoint: it wires a kv.Store/kv.TransactionTable
// backend, an archive.Factory, and a sweep.Queue together, serves the
// metrics dashboard, and drops into an interactive console for poking at
// the queue by hand — the same readline-driven REPL shape as scm/prompt.go,
// generalized from "evaluate scheme" to "run one sweep console command".
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/docker/go-units"
	"github.com/google/uuid"

	"github.com/launix-de/sweepcells/archive"
	"github.com/launix-de/sweepcells/config"
	"github.com/launix-de/sweepcells/kv"
	"github.com/launix-de/sweepcells/kv/memkv"
	"github.com/launix-de/sweepcells/kv/pgkv"
	"github.com/launix-de/sweepcells/sweep"
	"github.com/launix-de/sweepcells/sweepmetrics"
)

const (
	newPrompt  = "\033[32msweepd>\033[0m "
	resultMark = "\033[31m=\033[0m "
)

func main() {
	configPath := flag.String("config", "", "path to a JSON settings file; defaults built in if omitted")
	dashboardAddr := flag.String("dashboard", "", "address to serve the metrics dashboard on, e.g. :8090; disabled if empty")
	flag.Parse()

	fmt.Print(`sweepd Copyright (C) 2026   Carl-Philip Hänsch
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;
`)

	settings := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("sweepd: %v", err)
		}
		settings = loaded
		store := config.NewStore(settings)
		if stop, err := config.Watch(*configPath, store); err != nil {
			log.Printf("sweepd: config hot-reload disabled: %v", err)
		} else {
			defer stop()
		}
	}

	kvStore, txns, closeStore, err := openBackend(settings)
	if err != nil {
		log.Fatalf("sweepd: %v", err)
	}
	defer closeStore()

	factory, err := openArchive(settings)
	if err != nil {
		log.Fatalf("sweepd: %v", err)
	}
	archiver := factory.CreateArchiver("default")

	metrics := sweep.NewAtomicMetrics()
	queue, err := sweep.NewQueue(kvStore, txns, settings.Sweep, metrics)
	if err != nil {
		log.Fatalf("sweepd: %v", err)
	}

	if *dashboardAddr != "" {
		sampler := sweepmetrics.NewSampler(metrics)
		defer sampler.Stop()
		mux := http.NewServeMux()
		mux.HandleFunc("/dashboard", sweepmetrics.DashboardHandler(sampler))
		go func() {
			log.Printf("sweepd: metrics dashboard listening on %s", *dashboardAddr)
			if err := http.ListenAndServe(*dashboardAddr, mux); err != nil {
				log.Printf("sweepd: dashboard server stopped: %v", err)
			}
		}()
	}

	repl(&console{queue: queue, archiver: archiver})
}

func openBackend(settings config.Settings) (kv.Store, kv.TransactionTable, func() error, error) {
	switch settings.StoreBackend {
	case "postgres":
		st, err := pgkv.Open(settings.PostgresDSN, "sweep_cells")
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		tt, err := pgkv.OpenTransactionTable(settings.PostgresDSN, "sweep_txns")
		if err != nil {
			st.Close()
			return nil, nil, nil, fmt.Errorf("open postgres transaction table: %w", err)
		}
		return st, tt, func() error {
			tt.Close()
			return st.Close()
		}, nil
	default: // "mem"
		return memkv.New(), memkv.NewTransactionTable(), func() error { return nil }, nil
	}
}

func openArchive(settings config.Settings) (archive.Factory, error) {
	build, ok := archive.BackendRegistry[settings.ArchiveBackend]
	if !ok {
		return nil, fmt.Errorf("unknown archive_backend %q", settings.ArchiveBackend)
	}
	return build(settings.ArchiveSettings)
}

// console holds the state one REPL command acts on.
type console struct {
	queue    *sweep.Queue
	archiver archive.Archiver
}

func repl(c *console) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            newPrompt,
		HistoryFile:       ".sweepd-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		log.Fatalf("sweepd: %v", err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			log.Fatalf("sweepd: %v", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Println("panic:", r, string(debug.Stack()))
				}
			}()
			reqID := uuid.New()
			var b bytes.Buffer
			runCommand(c, line, &b)
			fmt.Print(resultMark)
			fmt.Printf("[%s] %s\n", reqID.String()[:8], b.String())
		}()
	}
}

// runCommand dispatches one line of console input. Commands: help, enqueue,
// read, cleanup, status.
func runCommand(c *console, line string, out *bytes.Buffer) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]
	ctx := context.Background()

	switch cmd {
	case "help":
		fmt.Fprint(out, "commands: enqueue <table> <row> <col> <startTs> <strategy:c|t> [tombstone], "+
			"read <shard> <strategy:c|t> <finePartition> <minExcl> <maxExcl> <sweepTs>, "+
			"cleanup <shard> <strategy:c|t> <finePartition>, status")

	case "enqueue":
		if len(args) < 5 {
			fmt.Fprint(out, "usage: enqueue <table> <row> <col> <startTs> <strategy:c|t> [tombstone]")
			return
		}
		startTs, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			fmt.Fprintf(out, "bad startTs: %v", err)
			return
		}
		strategy, err := parseStrategy(args[4])
		if err != nil {
			fmt.Fprintf(out, "%v", err)
			return
		}
		w := sweep.WriteInfo{
			TableRef:       args[0],
			Cell:           sweep.Cell{Row: []byte(args[1]), Column: []byte(args[2])},
			StartTimestamp: startTs,
			Strategy:       strategy,
			IsTombstone:    len(args) > 5 && args[5] == "tombstone",
		}
		touched, err := c.queue.Enqueue(ctx, []sweep.WriteInfo{w})
		if err != nil {
			fmt.Fprintf(out, "enqueue failed: %v", err)
			return
		}
		fmt.Fprintf(out, "enqueued into %d shard/strategy domains", len(touched))

	case "read":
		if len(args) != 6 {
			fmt.Fprint(out, "usage: read <shard> <strategy:c|t> <finePartition> <minExcl> <maxExcl> <sweepTs>")
			return
		}
		sas, err := parseShardAndStrategy(args[0], args[1])
		if err != nil {
			fmt.Fprintf(out, "%v", err)
			return
		}
		nums, err := parseInt64s(args[2:])
		if err != nil {
			fmt.Fprintf(out, "%v", err)
			return
		}
		batch, err := c.queue.GetBatchForPartition(ctx, sas, nums[0], nums[1], nums[2], nums[3])
		if err != nil {
			fmt.Fprintf(out, "read failed: %v", err)
			return
		}
		fmt.Fprintf(out, "%d writes, lastSweptTimestamp=%d", len(batch.Writes), batch.LastSweptTimestamp)

	case "cleanup":
		if len(args) != 3 {
			fmt.Fprint(out, "usage: cleanup <shard> <strategy:c|t> <finePartition>")
			return
		}
		sas, err := parseShardAndStrategy(args[0], args[1])
		if err != nil {
			fmt.Fprintf(out, "%v", err)
			return
		}
		fine, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			fmt.Fprintf(out, "bad finePartition: %v", err)
			return
		}
		rows, err := c.queue.SnapshotRows(ctx, sas, fine)
		if err != nil {
			fmt.Fprintf(out, "snapshot before cleanup failed: %v", err)
			return
		}
		if err := c.archiver.Archive(ctx, toArchiveSnapshot(sas, fine, rows)); err != nil {
			fmt.Fprintf(out, "archive failed, aborting cleanup: %v", err)
			return
		}
		if err := c.queue.DeleteDedicatedRows(ctx, sas, fine); err != nil {
			fmt.Fprintf(out, "cleanup dedicated rows failed: %v", err)
			return
		}
		if err := c.queue.DeleteNonDedicatedRow(ctx, sas, fine); err != nil {
			fmt.Fprintf(out, "cleanup reference row failed: %v", err)
			return
		}
		fmt.Fprintf(out, "archived and cleaned up %d rows", len(rows))

	case "status":
		fmt.Fprintf(out, "sweepd up; heap in use %s", units.BytesSize(float64(heapInUse())))

	default:
		fmt.Fprintf(out, "unknown command %q, try \"help\"", cmd)
	}
}

func toArchiveSnapshot(sas sweep.ShardAndStrategy, finePartition int64, rows []kv.Row) archive.Snapshot {
	out := make([]archive.Row, len(rows))
	for i, r := range rows {
		cols := make(map[string][]byte, len(r.Columns))
		for _, cv := range r.Columns {
			cols[string(cv.Column)] = cv.Value
		}
		out[i] = archive.Row{Key: r.Key, Columns: cols}
	}
	return archive.Snapshot{
		Shard:         sas.Shard,
		Strategy:      sas.Strategy.String(),
		FinePartition: finePartition,
		Rows:          out,
	}
}

func heapInUse() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapInuse
}

func parseShardAndStrategy(shardArg, strategyArg string) (sweep.ShardAndStrategy, error) {
	shard, err := strconv.ParseUint(shardArg, 10, 32)
	if err != nil {
		return sweep.ShardAndStrategy{}, fmt.Errorf("bad shard: %w", err)
	}
	strategy, err := parseStrategy(strategyArg)
	if err != nil {
		return sweep.ShardAndStrategy{}, err
	}
	return sweep.ShardAndStrategy{Shard: uint32(shard), Strategy: strategy}, nil
}

func parseStrategy(strategyArg string) (sweep.Strategy, error) {
	switch strategyArg {
	case "c", "conservative":
		return sweep.Conservative, nil
	case "t", "thorough":
		return sweep.Thorough, nil
	default:
		return 0, fmt.Errorf("bad strategy %q, want c or t", strategyArg)
	}
}

func parseInt64s(args []string) ([]int64, error) {
	out := make([]int64, len(args))
	for i, a := range args {
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad integer %q: %w", a, err)
		}
		out[i] = v
	}
	return out, nil
}
