package greedy

import (
	"math/rand"
	"sync"
)

// Source is the random draw used to pick among safe moves.
// *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// LockedSource is a Source safe for use by concurrent requests.
type LockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewLockedSource(seed int64) *LockedSource {
	return &LockedSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *LockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
