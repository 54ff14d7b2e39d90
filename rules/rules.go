// Package rules advances a Battlesnake board by one turn with the standard
// ruleset. It powers local greedy-vs-greedy games; the move selector itself
// never looks ahead.
package rules

import (
	"math/rand"

	"github.com/brensch/greedysnek/game"
)

const MaxHealth = 100

// NextState applies one simultaneous move per snake and returns the new state.
// Snakes without an entry in moves are eliminated. The input is not modified.
func NextState(state *game.GameState, moves map[string]game.Direction, rng *rand.Rand, settings FoodSettings) *game.GameState {
	next := state.Clone()
	next.Turn++
	board := &next.Board

	// 1. Move heads; the tail follows unless the snake eats this turn.
	moved := make(map[string]bool, len(board.Snakes))
	for i := range board.Snakes {
		s := &board.Snakes[i]
		move, ok := moves[s.ID]
		if !ok || len(s.Body) == 0 {
			continue
		}
		head := s.Body[0].Add(move)
		s.Body = append([]game.Point{head}, s.Body[:len(s.Body)-1]...)
		s.Health--
		moved[s.ID] = true
	}

	// 2. Hazards.
	if dmg := settings.HazardDamagePerTurn; dmg > 0 {
		hazards := make(map[game.Point]bool, len(board.Hazards))
		for _, h := range board.Hazards {
			hazards[h] = true
		}
		for i := range board.Snakes {
			s := &board.Snakes[i]
			if moved[s.ID] && hazards[s.Body[0]] {
				s.Health -= dmg
			}
		}
	}

	// 3. Feed. Every snake reaching a food cell eats it, and the food is gone.
	eaten := make(map[game.Point]bool)
	for i := range board.Snakes {
		s := &board.Snakes[i]
		if !moved[s.ID] {
			continue
		}
		for _, f := range board.Food {
			if f == s.Body[0] {
				eaten[f] = true
				s.Health = MaxHealth
				s.Body = append(s.Body, s.Body[len(s.Body)-1])
				break
			}
		}
	}
	if len(eaten) > 0 {
		remaining := board.Food[:0]
		for _, f := range board.Food {
			if !eaten[f] {
				remaining = append(remaining, f)
			}
		}
		board.Food = remaining
	}

	// 4. Eliminations, judged against the bodies after everyone moved.
	dead := make(map[string]bool)
	for _, s := range board.Snakes {
		if !moved[s.ID] || s.Health <= 0 {
			dead[s.ID] = true
			continue
		}
		head := s.Body[0]
		if !board.InBounds(head) {
			dead[s.ID] = true
			continue
		}
		for _, other := range board.Snakes {
			if !moved[other.ID] {
				continue
			}
			for i, p := range other.Body {
				if i == 0 {
					continue // head-to-head handled below
				}
				if p == head {
					dead[s.ID] = true
				}
			}
		}
	}

	for i := 0; i < len(board.Snakes); i++ {
		a := board.Snakes[i]
		if !moved[a.ID] {
			continue
		}
		for j := i + 1; j < len(board.Snakes); j++ {
			b := board.Snakes[j]
			if !moved[b.ID] || a.Body[0] != b.Body[0] {
				continue
			}
			switch {
			case len(a.Body) > len(b.Body):
				dead[b.ID] = true
			case len(b.Body) > len(a.Body):
				dead[a.ID] = true
			default:
				dead[a.ID] = true
				dead[b.ID] = true
			}
		}
	}

	alive := make([]game.Snake, 0, len(board.Snakes))
	for _, s := range board.Snakes {
		if dead[s.ID] {
			continue
		}
		s.Head = s.Body[0]
		s.Length = len(s.Body)
		alive = append(alive, s)
	}
	board.Snakes = alive

	// 5. Spawn food for the next turn.
	applyFoodRules(next, rng, settings, 0x464F4F445F54524E) // "FOOD_TRN"

	if you, ok := board.Snake(next.You.ID); ok {
		next.You = *you
	} else {
		next.You.Health = 0
	}
	return next
}

// IsGameOver reports whether at most one snake is left.
func IsGameOver(state *game.GameState) bool {
	return len(state.Board.Snakes) <= 1
}

// Winner returns the ID of the only surviving snake, or "" for a draw or an
// unfinished game.
func Winner(state *game.GameState) string {
	if len(state.Board.Snakes) == 1 {
		return state.Board.Snakes[0].ID
	}
	return ""
}
