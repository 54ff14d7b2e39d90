// Package arena plays whole games between greedy snakes using the local rules
// engine. Every decision is captured as a store.MoveRow.
package arena

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/brensch/greedysnek/game"
	"github.com/brensch/greedysnek/greedy"
	"github.com/brensch/greedysnek/rules"
	"github.com/brensch/greedysnek/store"
)

type Config struct {
	Width  int
	Height int
	// Snakes is the number of players, 1 to 8.
	Snakes int
	// MaxTurns ends a game as a draw; 0 means no limit.
	MaxTurns int
	Food     rules.FoodSettings
	// OnTurn, if set, sees every state with the moves chosen on it.
	OnTurn func(state *game.GameState, moves map[string]game.Direction)
}

func DefaultConfig() Config {
	return Config{
		Width:    11,
		Height:   11,
		Snakes:   4,
		MaxTurns: 1000,
		Food:     rules.FoodSettings{MinimumFood: 1, FoodSpawnChance: 15},
	}
}

type Result struct {
	GameID string
	// Winner is "" for a draw.
	Winner string
	Turns  int
	Rows   []store.MoveRow
	// Final is the last state of the game.
	Final *game.GameState
}

// PlayGame runs one game to completion. rng seeds each snake's selector and
// drives food spawns, so a fixed seed replays the same game. On cancellation the partial
// result is returned together with the context error.
func PlayGame(ctx context.Context, gameID string, cfg Config, rng *rand.Rand) (Result, error) {
	state, err := NewGame(gameID, cfg, rng)
	if err != nil {
		return Result{}, err
	}
	selectors := make(map[string]*greedy.Selector, len(state.Board.Snakes))
	for _, s := range state.Board.Snakes {
		selectors[s.ID] = greedy.New(rand.New(rand.NewSource(rng.Int63())))
	}
	res := Result{GameID: gameID, Rows: make([]store.MoveRow, 0, 256)}

	for {
		// Solo games run until the snake dies.
		alive := len(state.Board.Snakes)
		if alive == 0 || (cfg.Snakes > 1 && rules.IsGameOver(state)) {
			break
		}
		if err := ctx.Err(); err != nil {
			res.Turns, res.Final = state.Turn, state
			return res, err
		}
		if cfg.MaxTurns > 0 && state.Turn >= cfg.MaxTurns {
			break
		}

		moves := make(map[string]game.Direction, len(state.Board.Snakes))
		for _, s := range state.Board.Snakes {
			view, _ := state.ForSnake(s.ID)
			d, err := selectors[s.ID].Decide(view)
			if err != nil {
				return res, fmt.Errorf("turn %d snake %s: %w", state.Turn, s.ID, err)
			}
			moves[s.ID] = d.Move

			row := store.NewMoveRow(view, d, store.SourceArena)
			row.ActualMove = row.Move
			res.Rows = append(res.Rows, row)
		}

		if cfg.OnTurn != nil {
			cfg.OnTurn(state, moves)
		}
		state = rules.NextState(state, moves, rng, cfg.Food)
	}

	res.Turns = state.Turn
	res.Final = state
	if cfg.MaxTurns == 0 || state.Turn < cfg.MaxTurns {
		res.Winner = rules.Winner(state)
	}
	return res, nil
}

// NewGame builds the turn 0 state: snakes stacked on shuffled start cells with
// one food diagonal to each and one in the centre.
func NewGame(gameID string, cfg Config, rng *rand.Rand) (*game.GameState, error) {
	if cfg.Width < 5 || cfg.Height < 5 {
		return nil, fmt.Errorf("board %dx%d is too small", cfg.Width, cfg.Height)
	}
	starts := StartPoints(cfg.Width, cfg.Height)
	if cfg.Snakes < 1 || cfg.Snakes > len(starts) {
		return nil, fmt.Errorf("snakes must be between 1 and %d, got %d", len(starts), cfg.Snakes)
	}
	rng.Shuffle(len(starts), func(i, j int) { starts[i], starts[j] = starts[j], starts[i] })

	state := &game.GameState{
		Game: game.Game{
			ID: gameID,
			Ruleset: game.Ruleset{
				Name: "standard",
				Settings: game.RulesetSettings{
					FoodSpawnChance:     cfg.Food.FoodSpawnChance,
					MinimumFood:         cfg.Food.MinimumFood,
					HazardDamagePerTurn: cfg.Food.HazardDamagePerTurn,
				},
			},
			Source: "arena",
		},
		Board: game.Board{Width: cfg.Width, Height: cfg.Height},
	}

	occupied := make(map[game.Point]bool)
	for i := 0; i < cfg.Snakes; i++ {
		p := starts[i]
		occupied[p] = true
		state.Board.Snakes = append(state.Board.Snakes, game.Snake{
			ID:     fmt.Sprintf("snake%d", i+1),
			Name:   fmt.Sprintf("greedy-%d", i+1),
			Health: rules.MaxHealth,
			Body:   []game.Point{p, p, p},
			Head:   p,
			Length: 3,
		})
	}

	center := game.Point{X: (cfg.Width - 1) / 2, Y: (cfg.Height - 1) / 2}
	for _, s := range state.Board.Snakes {
		p := s.Body[0]
		dx, dy := 1, 1
		if p.X > center.X {
			dx = -1
		}
		if p.Y > center.Y {
			dy = -1
		}
		f := game.Point{X: p.X + dx, Y: p.Y + dy}
		if state.Board.InBounds(f) && !occupied[f] {
			occupied[f] = true
			state.Board.Food = append(state.Board.Food, f)
		}
	}
	if !occupied[center] {
		state.Board.Food = append(state.Board.Food, center)
	}

	rules.ApplyFoodSettings(state, rng, rules.FoodSettings{MinimumFood: cfg.Food.MinimumFood})
	state.You = state.Board.Snakes[0]
	return state, nil
}

// StartPoints lists the standard start cells: corners first, then edge
// midpoints, all one cell in from the wall.
func StartPoints(width, height int) []game.Point {
	minX, maxX, midX := 1, width-2, (width-1)/2
	minY, maxY, midY := 1, height-2, (height-1)/2
	return []game.Point{
		{X: minX, Y: minY}, {X: minX, Y: maxY}, {X: maxX, Y: minY}, {X: maxX, Y: maxY},
		{X: minX, Y: midY}, {X: midX, Y: minY}, {X: midX, Y: maxY}, {X: maxX, Y: midY},
	}
}
