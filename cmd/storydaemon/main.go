// Storydaemon is an autonomous long-form fiction generator. It runs the
// tick-orchestration core against a project directory, one tick at a time.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/storydaemon/storydaemon"
	"github.com/storydaemon/storydaemon/checkpoint"
	"github.com/storydaemon/storydaemon/index"
	"github.com/storydaemon/storydaemon/llm"
	"github.com/storydaemon/storydaemon/memory"
)

var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	var (
		projectRoot = flag.String("project", ".", "Project directory root")
		novelName   = flag.String("name", "", "Novel name (set once, at project initialization)")
		genre       = flag.String("genre", "", "Story foundation genre (set once, at project initialization)")
		premise     = flag.String("premise", "", "Story foundation premise (set once, at project initialization)")
		setting     = flag.String("setting", "", "Story foundation setting (set once, at project initialization)")
		tone        = flag.String("tone", "", "Story foundation tone (set once, at project initialization)")
		backend     = flag.String("backend", "", "LLM backend: codex|api|gemini-cli|claude-cli (overrides config.yaml)")
		model       = flag.String("model", "", "LLM model name (overrides config.yaml)")
		vectorDB    = flag.String("vector-db", "", "SQLite vector index path (default: <project>/memory/index/vectors.db)")
		ticks       = flag.Int("ticks", 1, "Number of ticks to run (0 runs until interrupted)")
		interval    = flag.Duration("interval", 0, "Delay between ticks (0 runs back-to-back)")
		showVersion = flag.Bool("version", false, "Show version")
		status      = flag.Bool("status", false, "Show project status and exit")
		restoreTick = flag.Int("restore", -1, "Restore the project directory from the checkpoint at this tick, then exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("storydaemon %s (commit: %s)\n", version, gitCommit)
		return
	}

	if *restoreTick >= 0 {
		if err := checkpoint.Restore(*projectRoot, *restoreTick); err != nil {
			fatalf("restore: %v", err)
		}
		fmt.Printf("restored project from checkpoint_tick_%03d\n", *restoreTick)
		return
	}

	cfg, err := storydaemon.LoadConfig(memory.NewLayout(*projectRoot).ConfigPath())
	if err != nil {
		fatalf("load config: %v", err)
	}
	if *backend != "" {
		cfg.LLM.Backend = *backend
	}
	if *model != "" {
		cfg.LLM.Model = *model
	}
	if cfg.LLM.Backend == "" {
		cfg.LLM.Backend = "api"
	}

	store := memory.NewStore(*projectRoot)
	if err := store.EnsureDirs(); err != nil {
		fatalf("initialize project directory: %v", err)
	}
	if err := initFoundation(store, *novelName, *genre, *premise, *setting, *tone); err != nil {
		fatalf("initialize project: %v", err)
	}

	if *status {
		printStatus(store)
		return
	}

	adapter, err := llm.NewBackend(cfg.LLM.Backend, cfg.LLM.Model)
	if err != nil {
		fatalf("llm backend: %v", err)
	}

	dbPath := *vectorDB
	if dbPath == "" {
		dbPath = store.Layout().IndexDir() + "/vectors.db"
	}
	vectorStore, err := index.NewSQLiteStore(dbPath, nil)
	if err != nil {
		fatalf("open vector index: %v", err)
	}

	lock, err := storydaemon.AcquireProjectLock(*projectRoot)
	if err != nil {
		fatalf("acquire project lock: %v", err)
	}
	defer lock.Release()

	orc, err := storydaemon.NewTickOrchestrator(*projectRoot, adapter, vectorStore, cfg)
	if err != nil {
		fatalf("initialize orchestrator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nshutting down after the current tick...")
		cancel()
	}()

	runLoop(ctx, orc, store, *ticks, *interval)
}

// runLoop runs count ticks (or until ctx is cancelled, if count<=0),
// printing each tick's outcome. A failed tick stops the loop — the
// project directory is left exactly as the failure left it (spec §5 "a
// failed tick leaves it unchanged"), ready for the next invocation to
// retry or for a human to inspect errors/error_NNN.{json,log}.
func runLoop(ctx context.Context, orc *storydaemon.TickOrchestrator, store *memory.Store, count int, interval time.Duration) {
	for i := 0; count <= 0 || i < count; i++ {
		if ctx.Err() != nil {
			return
		}
		before, err := store.LoadState()
		if err != nil {
			fatalf("load state: %v", err)
		}
		if err := orc.RunTick(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "tick %d failed: %v\n", before.CurrentTick, err)
			os.Exit(1)
		}
		after, err := store.LoadState()
		if err != nil {
			fatalf("load state: %v", err)
		}
		fmt.Printf("tick %d complete (current_tick now %d)\n", before.CurrentTick, after.CurrentTick)

		if interval > 0 && (count <= 0 || i < count-1) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	}
}

// initFoundation sets the one-time project identity fields on first run.
// A project already carrying a NovelName is left untouched: these flags
// only take effect the first time a project directory is initialized.
func initFoundation(store *memory.Store, novelName, genre, premise, setting, tone string) error {
	state, err := store.LoadState()
	if err != nil {
		return err
	}
	if state.NovelName != "" {
		return nil
	}

	if novelName == "" {
		novelName = "Untitled Novel"
	}
	state.NovelName = novelName
	id := uuid.New().String()
	state.ProjectID = id[len(id)-8:]
	if genre != "" || premise != "" || setting != "" || tone != "" {
		state.StoryFoundation = &memory.StoryFoundation{
			Genre:   genre,
			Premise: premise,
			Setting: setting,
			Tone:    tone,
		}
	}
	return store.SaveState(state)
}

func printStatus(store *memory.Store) {
	state, err := store.LoadState()
	if err != nil {
		fatalf("load state: %v", err)
	}
	fmt.Println("=== StoryDaemon Status ===")
	fmt.Printf("Novel:         %s (%s)\n", state.NovelName, state.ProjectID)
	fmt.Printf("Current tick:  %d\n", state.CurrentTick)
	fmt.Printf("Active char:   %s\n", state.ActiveCharacter)
	if len(state.TensionHistory) > 0 {
		last := state.TensionHistory[len(state.TensionHistory)-1]
		fmt.Printf("Last tension:  %s (level %d)\n", last.Category, last.Level)
	}
	for _, kind := range []memory.Kind{memory.KindCharacter, memory.KindLocation, memory.KindScene, memory.KindFaction} {
		ids, _ := store.ListIDs(kind)
		fmt.Printf("%-14s %d\n", string(kind)+":", len(ids))
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "storydaemon: "+format+"\n", args...)
	os.Exit(1)
}
