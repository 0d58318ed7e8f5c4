package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/levelkit/textquest/internal/config"
	"github.com/levelkit/textquest/internal/loader"
	"github.com/levelkit/textquest/internal/logger"
	"github.com/levelkit/textquest/internal/save"
	"github.com/levelkit/textquest/internal/session"
	"github.com/levelkit/textquest/internal/tui"
	"github.com/levelkit/textquest/internal/validator"
	"github.com/levelkit/textquest/pkg/state"
)

func main() {
	cfg := config.Load()

	var (
		contentDir   = flag.String("content", cfg.ContentDir, "content bundle directory")
		tuningPath   = flag.String("tuning", cfg.TuningPath, "tuning file path")
		saveSlot     = flag.String("save", cfg.SaveSlot, "save slot name")
		seed         = flag.Int64("seed", 0, "battle RNG seed (0 = time-based)")
		validateOnly = flag.Bool("validate", false, "validate the content bundle and exit")
		freshStart   = flag.Bool("new", false, "ignore any existing save and start fresh")
	)
	flag.Parse()

	log := logger.Setup(cfg, os.Stderr)

	tuning, err := config.LoadTuning(*tuningPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load tuning: %v\n", err)
		os.Exit(1)
	}

	reg, issues, err := loader.Load(*contentDir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load content: %v\n", err)
		os.Exit(1)
	}
	issues = append(issues, validator.Validate(reg, tuning)...)

	if *validateOnly {
		os.Exit(runValidate(*contentDir, issues))
	}

	if validator.HasErrors(issues) {
		fmt.Fprintf(os.Stderr, "Content bundle has errors; run with -validate for the full report.\n")
		for _, issue := range issues {
			if issue.Severity == validator.SeverityError {
				fmt.Fprintf(os.Stderr, "  %s\n", issue)
			}
		}
		os.Exit(1)
	}

	store := newStore(cfg, log)
	defer func() {
		_ = store.Close() // Ignore error in defer
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	restored := loadSave(ctx, store, *saveSlot, *freshStart, log)
	cancel()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(rngSeed))

	sess := session.New(reg, tuning, log, rng)
	if err := sess.Start(tuning.StartRoomID, restored); err != nil {
		var stateErr *session.InvalidStateError
		if errors.As(err, &stateErr) && restored != nil {
			// Stale save pointing at removed content; start over.
			log.Warn("restored save is unusable, starting fresh", "error", err)
			err = sess.Start(tuning.StartRoomID, nil)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start session: %v\n", err)
			os.Exit(1)
		}
	}

	if err := tui.Run(tui.New(sess, reg, store, *saveSlot, log)); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}

	// Final autosave on the way out.
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Save(ctx, *saveSlot, sess.Snapshot()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save game: %v\n", err)
		os.Exit(1)
	}
}

// runValidate prints the full issue report and returns the exit code:
// 0 when no errors (warnings allowed), 1 when any error is present.
func runValidate(contentDir string, issues []validator.Issue) int {
	fmt.Printf("Validating %s...\n", contentDir)

	if len(issues) == 0 {
		fmt.Println("Content bundle is valid!")
		return 0
	}

	errs, warnings := 0, 0
	for _, issue := range issues {
		fmt.Printf("  - %s\n", issue)
		if issue.Severity == validator.SeverityError {
			errs++
		} else {
			warnings++
		}
	}
	fmt.Printf("%d error(s), %d warning(s)\n", errs, warnings)

	if errs > 0 {
		return 1
	}
	fmt.Println("Content bundle is valid!")
	return 0
}

// newStore picks Redis when configured, local files otherwise.
func newStore(cfg *config.Config, log *slog.Logger) save.Store {
	if cfg.RedisAddr != "" {
		store := save.NewRedisStore(cfg.RedisAddr, log)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := store.WaitForConnection(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to Redis at %s: %v\n", cfg.RedisAddr, err)
			os.Exit(1)
		}
		log.Info("using redis save store", "addr", cfg.RedisAddr)
		return store
	}
	return save.NewFileStore(cfg.SaveDir, log)
}

// loadSave returns the restored state, or nil for a fresh start. A corrupt
// save is reported and treated as absent rather than aborting the run.
func loadSave(ctx context.Context, store save.Store, slot string, fresh bool, log *slog.Logger) *state.GameState {
	if fresh {
		return nil
	}
	gs, err := store.Load(ctx, slot)
	if err != nil {
		var corrupt *save.CorruptSaveError
		if errors.As(err, &corrupt) {
			fmt.Fprintf(os.Stderr, "Save slot %q is corrupt (%s); starting a new game.\n", slot, corrupt.Reason)
			log.Warn("corrupt save ignored", "slot", slot, "error", err)
			return nil
		}
		fmt.Fprintf(os.Stderr, "Failed to load save: %v\n", err)
		os.Exit(1)
	}
	return gs
}
