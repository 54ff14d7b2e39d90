package downloader

import (
	"fmt"

	"github.com/brensch/greedysnek/game"
	"github.com/brensch/greedysnek/greedy"
	"github.com/brensch/greedysnek/store"
)

const defaultBoardSize = 11

// Agreement counts how often the selector picked what the real snake did.
type Agreement struct {
	Decisions int
	// Known is the number of decisions whose actual move could be read from
	// the next frame.
	Known  int
	Agreed int
	NoSafe int
}

func (a Agreement) Rate() float64 {
	if a.Known == 0 {
		return 0
	}
	return float64(a.Agreed) / float64(a.Known)
}

func (a *Agreement) Merge(b Agreement) {
	a.Decisions += b.Decisions
	a.Known += b.Known
	a.Agreed += b.Agreed
	a.NoSafe += b.NoSafe
}

// Evaluate replays a downloaded game through selector. For every live snake
// in every frame but the last it records the selector's decision alongside
// the move the snake actually made into the next frame.
func Evaluate(frames []FrameData, info GameInfo, selector *greedy.Selector) ([]store.MoveRow, Agreement, error) {
	var (
		rows  []store.MoveRow
		stats Agreement
	)
	for t := 0; t+1 < len(frames); t++ {
		state := FrameState(frames[t], info)
		next := frames[t+1]

		for _, s := range state.Board.Snakes {
			view, _ := state.ForSnake(s.ID)
			d, err := selector.Decide(view)
			if err != nil {
				return rows, stats, fmt.Errorf("game %s turn %d snake %s: %w", info.Game.ID, state.Turn, s.ID, err)
			}

			row := store.NewMoveRow(view, d, store.SourceReplay)
			stats.Decisions++
			if d.Reason == greedy.ReasonNoSafeMoves {
				stats.NoSafe++
			}
			if actual, ok := actualMove(s, next); ok {
				row.ActualMove = int32(actual)
				stats.Known++
				if actual == d.Move {
					stats.Agreed++
				}
			}
			rows = append(rows, row)
		}
	}
	return rows, stats, nil
}

// FrameState converts a frame into a game state holding only the live snakes.
// You is left empty; use ForSnake.
func FrameState(frame FrameData, info GameInfo) *game.GameState {
	width, height := info.Game.Width, info.Game.Height
	if width <= 0 || height <= 0 {
		width, height = defaultBoardSize, defaultBoardSize
	}

	state := &game.GameState{
		Game: game.Game{
			ID:      info.Game.ID,
			Ruleset: game.Ruleset{Name: info.Ruleset.Name, Version: info.Ruleset.Version},
			Map:     info.Game.Map,
			Timeout: info.Game.Timeout,
		},
		Turn: frame.Turn,
		Board: game.Board{
			Width:   width,
			Height:  height,
			Food:    toPoints(frame.Food),
			Hazards: toPoints(frame.Hazards),
		},
	}
	for _, s := range frame.Snakes {
		if s.Death != nil || len(s.Body) == 0 {
			continue
		}
		body := toPoints(s.Body)
		state.Board.Snakes = append(state.Board.Snakes, game.Snake{
			ID:     s.ID,
			Name:   s.Name,
			Health: s.Health,
			Body:   body,
			Head:   body[0],
			Length: len(body),
			Squad:  s.Squad,
		})
	}
	return state
}

// actualMove reads the direction s moved from the same snake's head in next.
// Snakes that vanished or jumped (wrapped boards) report false.
func actualMove(s game.Snake, next FrameData) (game.Direction, bool) {
	for _, n := range next.Snakes {
		if n.ID != s.ID || len(n.Body) == 0 {
			continue
		}
		head := game.Point{X: n.Body[0].X, Y: n.Body[0].Y}
		if !game.IsOrthogonalNeighbor(s.Body[0], head) {
			return 0, false
		}
		d, err := game.RelativeDirection(s.Body[0], head)
		return d, err == nil
	}
	return 0, false
}

func toPoints(cs []Coord) []game.Point {
	if len(cs) == 0 {
		return nil
	}
	out := make([]game.Point, len(cs))
	for i, c := range cs {
		out[i] = game.Point{X: c.X, Y: c.Y}
	}
	return out
}
