// Package store persists move decisions as Parquet batches.
//
// One MoveRow is one (game, turn, snake) decision together with the board it
// was made on. Rows are model-agnostic so they can be replayed or analysed
// without this module.
package store

import (
	"github.com/brensch/greedysnek/game"
	"github.com/brensch/greedysnek/greedy"
)

// Where a row came from.
const (
	SourceServer = "server"
	SourceArena  = "arena"
	SourceReplay = "replay"
)

// NoMove marks an unknown move (ActualMove on rows without a next frame).
const NoMove = -1

// MoveRow is a single recorded decision.
// Move and ActualMove use the direction ordinals: 0=Up, 1=Down, 2=Left, 3=Right.
type MoveRow struct {
	GameID string `parquet:"game_id,dict"`
	Turn   int32  `parquet:"turn"`
	Source string `parquet:"source,dict"`
	YouID  string `parquet:"you_id,dict"`
	Width  int32  `parquet:"width"`
	Height int32  `parquet:"height"`

	FoodX   []int32 `parquet:"food_x"`
	FoodY   []int32 `parquet:"food_y"`
	HazardX []int32 `parquet:"hazard_x"`
	HazardY []int32 `parquet:"hazard_y"`

	Snakes []SnakeRow `parquet:"snakes"`

	Move      int32   `parquet:"move"`
	Reason    string  `parquet:"reason,dict"`
	SafeMoves []int32 `parquet:"safe_moves"`
	HasTarget bool    `parquet:"has_target"`
	TargetX   int32   `parquet:"target_x"`
	TargetY   int32   `parquet:"target_y"`

	// ActualMove is what the snake really did next turn, when known.
	ActualMove int32 `parquet:"actual_move"`
}

type SnakeRow struct {
	ID     string  `parquet:"id,dict"`
	Health int32   `parquet:"health"`
	BodyX  []int32 `parquet:"body_x"`
	BodyY  []int32 `parquet:"body_y"`
}

// NewMoveRow captures state and the decision made on it.
func NewMoveRow(state *game.GameState, d greedy.Decision, source string) MoveRow {
	row := MoveRow{
		GameID:     state.Game.ID,
		Turn:       int32(state.Turn),
		Source:     source,
		YouID:      state.You.ID,
		Width:      int32(state.Board.Width),
		Height:     int32(state.Board.Height),
		Snakes:     make([]SnakeRow, len(state.Board.Snakes)),
		Move:       int32(d.Move),
		Reason:     d.Reason.String(),
		ActualMove: NoMove,
	}
	row.FoodX, row.FoodY = splitPoints(state.Board.Food)
	row.HazardX, row.HazardY = splitPoints(state.Board.Hazards)

	for i, s := range state.Board.Snakes {
		row.Snakes[i] = SnakeRow{ID: s.ID, Health: int32(s.Health)}
		row.Snakes[i].BodyX, row.Snakes[i].BodyY = splitPoints(s.Body)
	}

	for _, m := range d.Safe.Moves() {
		row.SafeMoves = append(row.SafeMoves, int32(m))
	}
	if d.Target != nil {
		row.HasTarget = true
		row.TargetX = int32(d.Target.X)
		row.TargetY = int32(d.Target.Y)
	}
	return row
}

// State rebuilds the board the row was recorded on, seen from YouID.
func (r *MoveRow) State() *game.GameState {
	state := &game.GameState{
		Game: game.Game{ID: r.GameID},
		Turn: int(r.Turn),
		Board: game.Board{
			Width:   int(r.Width),
			Height:  int(r.Height),
			Food:    joinPoints(r.FoodX, r.FoodY),
			Hazards: joinPoints(r.HazardX, r.HazardY),
			Snakes:  make([]game.Snake, len(r.Snakes)),
		},
	}
	for i, s := range r.Snakes {
		body := joinPoints(s.BodyX, s.BodyY)
		snake := game.Snake{ID: s.ID, Health: int(s.Health), Body: body, Length: len(body)}
		if len(body) > 0 {
			snake.Head = body[0]
		}
		state.Board.Snakes[i] = snake
		if s.ID == r.YouID {
			state.You = snake
		}
	}
	return state
}

func splitPoints(ps []game.Point) (xs, ys []int32) {
	if len(ps) == 0 {
		return nil, nil
	}
	xs = make([]int32, len(ps))
	ys = make([]int32, len(ps))
	for i, p := range ps {
		xs[i] = int32(p.X)
		ys[i] = int32(p.Y)
	}
	return xs, ys
}

func joinPoints(xs, ys []int32) []game.Point {
	n := min(len(xs), len(ys))
	if n == 0 {
		return nil
	}
	out := make([]game.Point, n)
	for i := 0; i < n; i++ {
		out[i] = game.Point{X: int(xs[i]), Y: int(ys[i])}
	}
	return out
}
