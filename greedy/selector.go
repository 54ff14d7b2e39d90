// Package greedy picks a Battlesnake move with a one-turn safety filter and a
// nearest-food override. It keeps no state between turns; the only
// nondeterminism is the injected random source.
package greedy

import (
	"github.com/brensch/greedysnek/game"
)

// Reason explains which branch produced a decision.
type Reason int

const (
	// ReasonNoSafeMoves means every direction was blocked and Down was returned.
	ReasonNoSafeMoves Reason = iota
	// ReasonRandom means the move was drawn uniformly from the safe set.
	ReasonRandom
	// ReasonFood means the nearest food overrode the random draw.
	ReasonFood
)

func (r Reason) String() string {
	switch r {
	case ReasonNoSafeMoves:
		return "no_safe_moves"
	case ReasonRandom:
		return "random"
	case ReasonFood:
		return "food"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a single turn.
type Decision struct {
	Move   game.Direction
	Reason Reason
	Safe   SafetyMap
	// Target is the nearest food, if the board had any.
	Target *game.Point
}

type Selector struct {
	rng Source
}

func New(rng Source) *Selector {
	return &Selector{rng: rng}
}

// Move returns only the chosen direction.
func (s *Selector) Move(state *game.GameState) (game.Direction, error) {
	d, err := s.Decide(state)
	return d.Move, err
}

// Decide runs the safety filter then the food override.
// The returned error can only wrap game.ErrInvalidGeometry.
func (s *Selector) Decide(state *game.GameState) (Decision, error) {
	safe, err := Safety(state)
	if err != nil {
		return Decision{}, err
	}

	moves := safe.Moves()
	if len(moves) == 0 {
		return Decision{Move: game.Down, Reason: ReasonNoSafeMoves, Safe: safe}, nil
	}

	d := Decision{
		Move:   moves[s.rng.Intn(len(moves))],
		Reason: ReasonRandom,
		Safe:   safe,
	}

	food, ok := NearestFood(state.You.Body[0], state.Board.Food)
	if !ok {
		return d, nil
	}
	d.Target = &food

	if move, ok := towardFood(state.You.Body[0], food, safe); ok {
		d.Move = move
		d.Reason = ReasonFood
	}
	return d, nil
}

// NearestFood returns the food closest to head. Ties keep the earlier item.
func NearestFood(head game.Point, food []game.Point) (game.Point, bool) {
	if len(food) == 0 {
		return game.Point{}, false
	}
	best := food[0]
	bestDist := game.Distance(head, best)
	for _, f := range food[1:] {
		if dist := game.Distance(head, f); dist < bestDist {
			best = f
			bestDist = dist
		}
	}
	return best, true
}

// towardFood checks, in order, left, right, down and up; the first direction
// that both points at the food and is safe wins.
func towardFood(head, food game.Point, safe SafetyMap) (game.Direction, bool) {
	switch {
	case food.X < head.X && safe[game.Left]:
		return game.Left, true
	case food.X > head.X && safe[game.Right]:
		return game.Right, true
	case food.Y < head.Y && safe[game.Down]:
		return game.Down, true
	case food.Y > head.Y && safe[game.Up]:
		return game.Up, true
	}
	return 0, false
}
