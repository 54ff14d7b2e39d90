package arena

import (
	"fmt"
	"strings"

	"github.com/brensch/greedysnek/game"
)

// Render draws the board with y growing upwards. Heads are capital letters
// (A for the first snake), bodies lower case, F food and H hazards.
func Render(state *game.GameState) string {
	b := state.Board
	grid := make([][]byte, b.Height)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", b.Width))
	}
	put := func(p game.Point, c byte) {
		if b.InBounds(p) {
			grid[p.Y][p.X] = c
		}
	}

	for _, h := range b.Hazards {
		put(h, 'H')
	}
	for _, f := range b.Food {
		put(f, 'F')
	}
	for i, s := range b.Snakes {
		letter := byte('a' + i%26)
		for j := len(s.Body) - 1; j >= 0; j-- {
			if j == 0 {
				put(s.Body[j], letter-'a'+'A')
			} else {
				put(s.Body[j], letter)
			}
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "turn %d\n", state.Turn)
	for y := b.Height - 1; y >= 0; y-- {
		for x, c := range grid[y] {
			if x > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte(c)
		}
		sb.WriteByte('\n')
	}
	for i, s := range b.Snakes {
		fmt.Fprintf(&sb, "%c %s health=%d length=%d\n", 'A'+i%26, s.ID, s.Health, len(s.Body))
	}
	return sb.String()
}
