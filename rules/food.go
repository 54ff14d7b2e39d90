package rules

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"

	"github.com/brensch/greedysnek/game"
)

// FoodSettings are the Battlesnake server knobs the arena honours.
//   - MinimumFood: ensure at least this many food items exist after each turn
//   - FoodSpawnChance: percentage chance (0-100) to spawn one extra food each turn
//   - HazardDamagePerTurn: extra health lost when a head ends on a hazard
type FoodSettings struct {
	MinimumFood         int
	FoodSpawnChance     int
	HazardDamagePerTurn int
}

var DefaultFoodSettings = FoodSettings{MinimumFood: 1, FoodSpawnChance: 15, HazardDamagePerTurn: 14}

// SettingsFromRuleset reads the food knobs a host sent with the game.
func SettingsFromRuleset(rs game.RulesetSettings) FoodSettings {
	return FoodSettings{
		MinimumFood:         rs.MinimumFood,
		FoodSpawnChance:     rs.FoodSpawnChance,
		HazardDamagePerTurn: rs.HazardDamagePerTurn,
	}
}

// ApplyFoodSettings tops up food on an existing state, e.g. at game start.
// A nil rng makes placement a deterministic function of the board.
func ApplyFoodSettings(state *game.GameState, rng *rand.Rand, settings FoodSettings) {
	applyFoodRules(state, rng, settings, 0x464F4F445F494E49) // "FOOD_INI"
}

func applyFoodRules(state *game.GameState, rng *rand.Rand, settings FoodSettings, salt uint64) {
	board := &state.Board
	if board.Width <= 0 || board.Height <= 0 {
		return
	}
	settings.MinimumFood = max(settings.MinimumFood, 0)
	settings.FoodSpawnChance = min(max(settings.FoodSpawnChance, 0), 100)

	if rng == nil {
		seed := int64(deterministicSeed(state, salt))
		if seed == 0 {
			seed = 1
		}
		rng = rand.New(rand.NewSource(seed))
	}

	toSpawn := max(settings.MinimumFood-len(board.Food), 0)
	if settings.FoodSpawnChance > 0 && rng.Intn(100) < settings.FoodSpawnChance {
		toSpawn++
	}
	if toSpawn == 0 {
		return
	}

	occupied := make(map[game.Point]bool, board.Width*board.Height)
	for _, s := range board.Snakes {
		for _, p := range s.Body {
			occupied[p] = true
		}
	}
	for _, f := range board.Food {
		occupied[f] = true
	}

	free := make([]game.Point, 0, board.Width*board.Height-len(occupied))
	for y := 0; y < board.Height; y++ {
		for x := 0; x < board.Width; x++ {
			p := game.Point{X: x, Y: y}
			if !occupied[p] {
				free = append(free, p)
			}
		}
	}

	for ; toSpawn > 0 && len(free) > 0; toSpawn-- {
		i := rng.Intn(len(free))
		board.Food = append(board.Food, free[i])
		free[i] = free[len(free)-1]
		free = free[:len(free)-1]
	}
}

// deterministicSeed mixes turn, board size and snake heads.
func deterministicSeed(state *game.GameState, salt uint64) uint64 {
	h := fnv.New64a()
	var buf [8]byte

	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	put(uint64(uint32(state.Board.Width)) | uint64(uint32(state.Board.Height))<<32)
	put(uint64(uint32(state.Turn)))
	put(salt)
	put(uint64(len(state.Board.Food)))

	for _, s := range state.Board.Snakes {
		if len(s.Body) == 0 {
			continue
		}
		_, _ = h.Write([]byte(s.ID))
		head := s.Body[0]
		put(uint64(uint32(head.X))<<32 | uint64(uint32(head.Y)))
	}

	return h.Sum64()
}
