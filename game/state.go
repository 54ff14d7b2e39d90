// Package game defines the core game state types for Battlesnake.
//
// A GameState is decoded once per turn from the host's request and treated as
// an immutable snapshot by the move selector. Clone exists for the local rules
// engine, which advances copies and never the caller's value.
package game

// Point is a board coordinate.
// Coordinates follow Battlesnake conventions: (0,0) is bottom-left.
type Point struct {
	X int
	Y int
}

// Add returns p shifted one cell in direction d.
func (p Point) Add(d Direction) Point {
	switch d {
	case Up:
		return Point{X: p.X, Y: p.Y + 1}
	case Down:
		return Point{X: p.X, Y: p.Y - 1}
	case Left:
		return Point{X: p.X - 1, Y: p.Y}
	case Right:
		return Point{X: p.X + 1, Y: p.Y}
	}
	return p
}

type Snake struct {
	ID      string
	Name    string
	Health  int
	Body    []Point
	Head    Point
	Length  int
	Latency string
	Shout   string
	Squad   string
}

// HeadPoint returns Body[0], falling back to Head for bodiless snakes.
func (s *Snake) HeadPoint() Point {
	if len(s.Body) > 0 {
		return s.Body[0]
	}
	return s.Head
}

type Board struct {
	Width   int
	Height  int
	Food    []Point
	Hazards []Point
	Snakes  []Snake
}

// InBounds reports whether p lies on the board.
func (b *Board) InBounds(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < b.Width && p.Y < b.Height
}

// Snake returns the board entry with the given id.
func (b *Board) Snake(id string) (*Snake, bool) {
	for i := range b.Snakes {
		if b.Snakes[i].ID == id {
			return &b.Snakes[i], true
		}
	}
	return nil, false
}

type RulesetSettings struct {
	FoodSpawnChance     int
	MinimumFood         int
	HazardDamagePerTurn int
}

type Ruleset struct {
	Name     string
	Version  string
	Settings RulesetSettings
}

type Game struct {
	ID      string
	Ruleset Ruleset
	Map     string
	Timeout int
	Source  string
}

// GameState is everything the host sends for a single turn.
// You is the controlled snake; its head is You.Body[0].
type GameState struct {
	Game  Game
	Turn  int
	Board Board
	You   Snake
}

// ForSnake returns a copy of the state seen from the snake with the given id.
// The board is shared with s, so callers must not mutate the result.
func (s *GameState) ForSnake(id string) (*GameState, bool) {
	you, ok := s.Board.Snake(id)
	if !ok {
		return nil, false
	}
	view := *s
	view.You = *you
	return &view, true
}

// Clone performs a deep copy of the game state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}

	out := &GameState{
		Game: s.Game,
		Turn: s.Turn,
		Board: Board{
			Width:   s.Board.Width,
			Height:  s.Board.Height,
			Food:    clonePoints(s.Board.Food),
			Hazards: clonePoints(s.Board.Hazards),
		},
		You: s.You.clone(),
	}

	if len(s.Board.Snakes) > 0 {
		out.Board.Snakes = make([]Snake, len(s.Board.Snakes))
		for i := range s.Board.Snakes {
			out.Board.Snakes[i] = s.Board.Snakes[i].clone()
		}
	}

	return out
}

func (s Snake) clone() Snake {
	s.Body = clonePoints(s.Body)
	return s
}

func clonePoints(in []Point) []Point {
	if len(in) == 0 {
		return nil
	}
	out := make([]Point, len(in))
	copy(out, in)
	return out
}
