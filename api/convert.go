package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/brensch/greedysnek/game"
)

// ErrInvalidRequest marks a body that decoded but cannot describe a turn.
var ErrInvalidRequest = errors.New("invalid request")

// DecodeGameRequest reads one request body and validates the fields the
// move selector depends on.
func DecodeGameRequest(r io.Reader) (*GameRequest, error) {
	var req GameRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode game request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *GameRequest) Validate() error {
	if r.Board.Width <= 0 || r.Board.Height <= 0 {
		return fmt.Errorf("board %dx%d: %w", r.Board.Width, r.Board.Height, ErrInvalidRequest)
	}
	if len(r.You.Body) == 0 {
		return fmt.Errorf("snake %q has no body: %w", r.You.ID, ErrInvalidRequest)
	}
	return nil
}

// ToGameState converts a decoded request into the core snapshot.
func ToGameState(req *GameRequest) *game.GameState {
	return &game.GameState{
		Game:  toGame(req.Game),
		Turn:  req.Turn,
		Board: toBoard(req.Board),
		You:   toSnake(req.You),
	}
}

func toGame(g Game) game.Game {
	return game.Game{
		ID: g.ID,
		Ruleset: game.Ruleset{
			Name:    g.Ruleset.Name,
			Version: g.Ruleset.Version,
			Settings: game.RulesetSettings{
				FoodSpawnChance:     g.Ruleset.Settings.FoodSpawnChance,
				MinimumFood:         g.Ruleset.Settings.MinimumFood,
				HazardDamagePerTurn: g.Ruleset.Settings.HazardDamagePerTurn,
			},
		},
		Map:     g.Map,
		Timeout: g.Timeout,
		Source:  g.Source,
	}
}

func toBoard(b Board) game.Board {
	out := game.Board{
		Width:   b.Width,
		Height:  b.Height,
		Food:    toPoints(b.Food),
		Hazards: toPoints(b.Hazards),
	}
	if len(b.Snakes) > 0 {
		out.Snakes = make([]game.Snake, len(b.Snakes))
		for i, s := range b.Snakes {
			out.Snakes[i] = toSnake(s)
		}
	}
	return out
}

func toSnake(s Battlesnake) game.Snake {
	return game.Snake{
		ID:      s.ID,
		Name:    s.Name,
		Health:  s.Health,
		Body:    toPoints(s.Body),
		Head:    toPoint(s.Head),
		Length:  s.Length,
		Latency: s.Latency,
		Shout:   s.Shout,
		Squad:   s.Squad,
	}
}

func toPoint(c Coord) game.Point {
	return game.Point{X: c.X, Y: c.Y}
}

func toPoints(cs []Coord) []game.Point {
	if len(cs) == 0 {
		return nil
	}
	out := make([]game.Point, len(cs))
	for i, c := range cs {
		out[i] = toPoint(c)
	}
	return out
}

// FromGameState builds the wire request the host would send for state.
// Tests use it to drive the HTTP surface.
func FromGameState(state *game.GameState) *GameRequest {
	req := &GameRequest{
		Game: Game{
			ID: state.Game.ID,
			Ruleset: Ruleset{
				Name:    state.Game.Ruleset.Name,
				Version: state.Game.Ruleset.Version,
				Settings: RulesetSettings{
					FoodSpawnChance:     state.Game.Ruleset.Settings.FoodSpawnChance,
					MinimumFood:         state.Game.Ruleset.Settings.MinimumFood,
					HazardDamagePerTurn: state.Game.Ruleset.Settings.HazardDamagePerTurn,
				},
			},
			Map:     state.Game.Map,
			Timeout: state.Game.Timeout,
			Source:  state.Game.Source,
		},
		Turn: state.Turn,
		Board: Board{
			Width:   state.Board.Width,
			Height:  state.Board.Height,
			Food:    fromPoints(state.Board.Food),
			Hazards: fromPoints(state.Board.Hazards),
			Snakes:  make([]Battlesnake, len(state.Board.Snakes)),
		},
		You: fromSnake(state.You),
	}
	for i, s := range state.Board.Snakes {
		req.Board.Snakes[i] = fromSnake(s)
	}
	return req
}

func fromSnake(s game.Snake) Battlesnake {
	return Battlesnake{
		ID:      s.ID,
		Name:    s.Name,
		Health:  s.Health,
		Body:    fromPoints(s.Body),
		Latency: s.Latency,
		Head:    Coord{X: s.HeadPoint().X, Y: s.HeadPoint().Y},
		Length:  len(s.Body),
		Shout:   s.Shout,
		Squad:   s.Squad,
	}
}

func fromPoints(ps []game.Point) []Coord {
	out := make([]Coord, len(ps))
	for i, p := range ps {
		out[i] = Coord{X: p.X, Y: p.Y}
	}
	return out
}
