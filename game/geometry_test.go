package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	assert.Equal(t, 5.0, Distance(Point{0, 0}, Point{3, 4}))
	assert.Equal(t, 5.0, Distance(Point{3, 4}, Point{0, 0}))
	assert.Equal(t, 0.0, Distance(Point{7, 2}, Point{7, 2}))
	assert.InDelta(t, 1.41421356, Distance(Point{1, 1}, Point{2, 2}), 1e-6)
}

func TestIsOrthogonalNeighbor(t *testing.T) {
	center := Point{5, 5}
	tests := []struct {
		name  string
		other Point
		want  bool
	}{
		{"above", Point{5, 6}, true},
		{"below", Point{5, 4}, true},
		{"left", Point{4, 5}, true},
		{"right", Point{6, 5}, true},
		{"diagonal", Point{6, 6}, false},
		{"identical", Point{5, 5}, false},
		{"two away", Point{5, 7}, false},
		{"far", Point{0, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOrthogonalNeighbor(center, tt.other))
		})
	}
}

func TestRelativeDirection(t *testing.T) {
	center := Point{5, 5}
	tests := []struct {
		other Point
		want  Direction
	}{
		{Point{5, 6}, Up},
		{Point{5, 4}, Down},
		{Point{4, 5}, Left},
		{Point{6, 5}, Right},
		{Point{5, 9}, Up},
		{Point{5, 5}, Down},
	}
	for _, tt := range tests {
		got, err := RelativeDirection(center, tt.other)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "other=%v", tt.other)
	}
}

func TestRelativeDirection_DiagonalFails(t *testing.T) {
	_, err := RelativeDirection(Point{5, 5}, Point{6, 6})
	require.ErrorIs(t, err, ErrInvalidGeometry)
	assert.Contains(t, err.Error(), "(5,5) and (6,6)")
}

func TestDirection_TextRoundTrip(t *testing.T) {
	for _, d := range Directions {
		b, err := d.MarshalText()
		require.NoError(t, err)

		var back Direction
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, d, back)
	}

	_, err := Direction(9).MarshalText()
	assert.Error(t, err)
	_, err = ParseDirection("north")
	assert.Error(t, err)
}

func TestDirection_OppositeAndAdd(t *testing.T) {
	p := Point{3, 3}
	for _, d := range Directions {
		assert.Equal(t, p, p.Add(d).Add(d.Opposite()), "direction %s", d)
	}
	assert.Equal(t, Point{3, 4}, p.Add(Up))
	assert.Equal(t, Point{2, 3}, p.Add(Left))
}

func TestGameState_CloneIsDeep(t *testing.T) {
	s := &GameState{
		Turn: 4,
		Board: Board{
			Width: 7, Height: 7,
			Food:   []Point{{1, 1}},
			Snakes: []Snake{{ID: "a", Body: []Point{{3, 3}, {3, 2}}}},
		},
		You: Snake{ID: "a", Body: []Point{{3, 3}, {3, 2}}},
	}

	c := s.Clone()
	c.Board.Food[0] = Point{6, 6}
	c.Board.Snakes[0].Body[0] = Point{0, 0}
	c.You.Body[1] = Point{0, 0}

	assert.Equal(t, Point{1, 1}, s.Board.Food[0])
	assert.Equal(t, Point{3, 3}, s.Board.Snakes[0].Body[0])
	assert.Equal(t, Point{3, 2}, s.You.Body[1])
}

func TestGameState_ForSnake(t *testing.T) {
	s := &GameState{Board: Board{Snakes: []Snake{
		{ID: "a", Body: []Point{{1, 1}}},
		{ID: "b", Body: []Point{{5, 5}}},
	}}}

	view, ok := s.ForSnake("b")
	require.True(t, ok)
	assert.Equal(t, Point{5, 5}, view.You.HeadPoint())

	_, ok = s.ForSnake("c")
	assert.False(t, ok)
}
