package game

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGeometry is returned when two points have no cardinal relation.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// IsOrthogonalNeighbor reports whether other is exactly one step from center
// along a single axis.
func IsOrthogonalNeighbor(center, other Point) bool {
	if center.X == other.X && abs(center.Y-other.Y) == 1 {
		return true
	}
	if center.Y == other.Y && abs(center.X-other.X) == 1 {
		return true
	}
	return false
}

// RelativeDirection returns the move from center toward other.
// The points must share an axis; callers filter with IsOrthogonalNeighbor first.
// Identical points resolve to Down.
func RelativeDirection(center, other Point) (Direction, error) {
	if center.X == other.X {
		if other.Y > center.Y {
			return Up, nil
		}
		return Down, nil
	}

	if center.Y == other.Y {
		if other.X > center.X {
			return Right, nil
		}
		return Left, nil
	}

	return 0, fmt.Errorf("points (%d,%d) and (%d,%d) are diagonal: %w",
		center.X, center.Y, other.X, other.Y, ErrInvalidGeometry)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
