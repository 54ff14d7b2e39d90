// Command debuggame plays one seeded arena game, prints every turn and writes
// the rows to a parquet file for inspection.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/brensch/greedysnek/arena"
	"github.com/brensch/greedysnek/game"
	"github.com/brensch/greedysnek/logging"
	"github.com/brensch/greedysnek/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "debuggame: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("debuggame", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	def := arena.DefaultConfig()
	outDir := fs.String("out-dir", "debug_games", "Output directory for the parquet file (empty to skip)")
	seed := fs.Int64("seed", 1, "Game seed")
	snakes := fs.Int("snakes", def.Snakes, "Snakes in the game")
	quiet := fs.Bool("quiet", false, "Only print the final board")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("flag parse: %w", err)
	}

	logger, err := logging.New(os.Stderr, logging.Options{Format: logging.FormatText, Level: slog.LevelInfo})
	if err != nil {
		return err
	}

	cfg := def
	cfg.Snakes = *snakes
	if !*quiet {
		cfg.OnTurn = func(state *game.GameState, moves map[string]game.Direction) {
			fmt.Print(arena.Render(state))
			fmt.Printf("moves: %s\n\n", formatMoves(moves))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	gameID := fmt.Sprintf("debug_%d", *seed)
	res, err := arena.PlayGame(ctx, gameID, cfg, rand.New(rand.NewSource(*seed)))
	if err != nil {
		return err
	}
	fmt.Print(arena.Render(res.Final))

	winner := res.Winner
	if winner == "" {
		winner = "draw"
	}
	logger.Info("game complete", "game_id", res.GameID, "turns", res.Turns, "winner", winner, "rows", len(res.Rows))

	if *outDir == "" {
		return nil
	}
	path, err := store.WriteMoveBatchAtomic(*outDir, res.Rows)
	if err != nil {
		return err
	}
	logger.Info("debug game written", "path", path)
	return nil
}

func formatMoves(moves map[string]game.Direction) string {
	ids := make([]string, 0, len(moves))
	for id := range moves {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s→%s", id, moves[id])
	}
	return strings.Join(parts, ", ")
}
