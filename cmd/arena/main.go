// Command arena plays greedy snakes against each other and records every
// decision to parquet.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/brensch/greedysnek/arena"
	"github.com/brensch/greedysnek/logging"
	"github.com/brensch/greedysnek/store"
)

var (
	totalMoves atomic.Int64
	totalGames atomic.Int64
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "arena: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("arena", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	def := arena.DefaultConfig()
	outDir := fs.String("out-dir", "data/arena", "Output directory for parquet batches (empty disables recording)")
	workers := fs.Int("workers", 4, "Number of concurrent games")
	maxGames := fs.Int64("max-games", 0, "If > 0, stop after this many games")
	gamesPerFlush := fs.Int("games-per-flush", 50, "Games to buffer per parquet batch")
	seed := fs.Int64("seed", 0, "Base seed; worker i uses seed+i (0 picks one from the clock)")
	snakes := fs.Int("snakes", def.Snakes, "Snakes per game")
	width := fs.Int("width", def.Width, "Board width")
	height := fs.Int("height", def.Height, "Board height")
	maxTurns := fs.Int("max-turns", def.MaxTurns, "Turn limit per game (0 for none)")
	minFood := fs.Int("min-food", def.Food.MinimumFood, "Minimum food on the board")
	foodChance := fs.Int("food-chance", def.Food.FoodSpawnChance, "Percent chance to spawn extra food each turn")
	noTUI := fs.Bool("no-tui", false, "Log progress instead of drawing the dashboard")
	logFile := fs.String("log-file", "arena.log", "Log destination while the dashboard is shown")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("flag parse: %w", err)
	}

	cfg := arena.Config{
		Width:    *width,
		Height:   *height,
		Snakes:   *snakes,
		MaxTurns: *maxTurns,
		Food:     def.Food,
	}
	cfg.Food.MinimumFood = *minFood
	cfg.Food.FoodSpawnChance = *foodChance

	// Keep the terminal clean for the dashboard.
	logOut := os.Stderr
	if !*noTUI {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := logging.New(logOut, logging.Options{Format: logging.FormatText, Level: slog.LevelInfo})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	var recorder *store.Recorder
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			return fmt.Errorf("creating out dir: %w", err)
		}
		recorder = store.NewRecorder(store.RecorderConfig{OutDir: *outDir, FlushGames: *gamesPerFlush}, nil, logger)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan GameUpdate, *workers)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < *workers; i++ {
		workerID := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(*seed + int64(workerID)))
			for n := 0; gctx.Err() == nil; n++ {
				gameID := fmt.Sprintf("arena_%d_%d_%d", *seed, workerID, n)
				res, err := arena.PlayGame(gctx, gameID, cfg, rng)
				if err != nil {
					if gctx.Err() != nil {
						// Partial games are dropped.
						return nil
					}
					return fmt.Errorf("worker %d: %w", workerID, err)
				}

				totalMoves.Add(int64(len(res.Rows)))
				total := totalGames.Add(1)
				if recorder != nil {
					recorder.Add(res.GameID, res.Rows)
				}
				logger.Info("game finished", "worker", workerID, "game_id", res.GameID, "winner", res.Winner, "turns", res.Turns, "rows", len(res.Rows))

				select {
				case updates <- GameUpdate{WorkerID: workerID, Result: res}:
				default:
				}

				if *maxGames > 0 && total >= *maxGames {
					cancel()
				}
			}
			return nil
		})
	}

	if *noTUI {
		logProgress(gctx, logger)
	} else {
		p := tea.NewProgram(initialModel(updates), tea.WithAltScreen(), tea.WithContext(gctx))
		if _, err := p.Run(); err != nil && gctx.Err() == nil {
			logger.Error("dashboard failed", "err", err)
		}
		// Quitting the dashboard stops the run.
		cancel()
	}

	err = g.Wait()
	if recorder != nil {
		recorder.Close()
	}
	logger.Info("arena stopped", "games", totalGames.Load(), "moves", totalMoves.Load())
	return err
}

func logProgress(ctx context.Context, logger *slog.Logger) {
	start := time.Now()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := time.Since(start).Seconds()
			logger.Info("progress",
				"games", totalGames.Load(),
				"moves", totalMoves.Load(),
				"games_per_sec", float64(totalGames.Load())/elapsed,
			)
		}
	}
}
