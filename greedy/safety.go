package greedy

import (
	"fmt"

	"github.com/brensch/greedysnek/game"
)

// SafetyMap records, per direction, whether a move is still allowed.
type SafetyMap [4]bool

func allSafe() SafetyMap {
	return SafetyMap{true, true, true, true}
}

func (m SafetyMap) Safe(d game.Direction) bool {
	return d.Valid() && m[d]
}

// Moves returns the safe directions in canonical order.
func (m SafetyMap) Moves() []game.Direction {
	moves := make([]game.Direction, 0, len(m))
	for _, d := range game.Directions {
		if m[d] {
			moves = append(moves, d)
		}
	}
	return moves
}

func (m SafetyMap) Any() bool {
	return m[game.Up] || m[game.Down] || m[game.Left] || m[game.Right]
}

// Safety builds the safety map for the controlled snake. Each step only clears
// entries; nothing is ever marked safe again.
func Safety(state *game.GameState) (SafetyMap, error) {
	safe := allSafe()
	body := state.You.Body
	if len(body) == 0 {
		return SafetyMap{}, nil
	}
	head := body[0]

	// Don't move back onto the neck.
	if len(body) >= 2 {
		neck := body[1]
		switch {
		case neck.X < head.X:
			safe[game.Left] = false
		case neck.X > head.X:
			safe[game.Right] = false
		case neck.Y < head.Y:
			safe[game.Down] = false
		case neck.Y > head.Y:
			safe[game.Up] = false
		}
	}

	// Walls.
	if head.X == 0 {
		safe[game.Left] = false
	}
	if head.X == state.Board.Width-1 {
		safe[game.Right] = false
	}
	if head.Y == 0 {
		safe[game.Down] = false
	}
	if head.Y == state.Board.Height-1 {
		safe[game.Up] = false
	}

	if err := excludeNeighbors(&safe, head, body); err != nil {
		return SafetyMap{}, fmt.Errorf("own body: %w", err)
	}

	// Every snake on the board, including our own entry.
	for i := range state.Board.Snakes {
		if err := excludeNeighbors(&safe, head, state.Board.Snakes[i].Body); err != nil {
			return SafetyMap{}, fmt.Errorf("snake %s: %w", state.Board.Snakes[i].ID, err)
		}
	}

	return safe, nil
}

func excludeNeighbors(safe *SafetyMap, head game.Point, segments []game.Point) error {
	for _, seg := range segments {
		if !game.IsOrthogonalNeighbor(head, seg) {
			continue
		}
		d, err := game.RelativeDirection(head, seg)
		if err != nil {
			return err
		}
		safe[d] = false
	}
	return nil
}
