package device

import (
	"math/rand/v2"
	"sync"
)

// MaxDynamicID is the highest id handed out by the allocators. Id 0 is the
// MDS device, so dynamic ids fall in [1, MaxDynamicID].
const MaxDynamicID = 255

// Allocator hands out device ids for new data server assignments.
type Allocator interface {
	// Next returns a non-reserved device id. Ids are not guaranteed to be
	// unique; a repeated id overwrites the earlier registry entry.
	Next() ID
}

// RandomAllocator draws ids uniformly from [1, MaxDynamicID].
//
// Collisions between live devices are possible and tolerated: with 255 ids
// the registry behaves as a small table of recent assignments.
type RandomAllocator struct {
	mu  sync.Mutex
	rng *rand.Rand // nil uses the concurrency-safe global source
}

// NewRandomAllocator creates an allocator backed by the runtime's random source.
func NewRandomAllocator() *RandomAllocator {
	return &RandomAllocator{}
}

// NewSeededAllocator creates an allocator with a deterministic sequence.
// Useful in tests that need reproducible device ids.
func NewSeededAllocator(seed uint64) *RandomAllocator {
	return &RandomAllocator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next implements Allocator.
func (a *RandomAllocator) Next() ID {
	if a.rng == nil {
		return IDOf(uint32(rand.IntN(MaxDynamicID)) + 1)
	}

	a.mu.Lock()
	n := a.rng.IntN(MaxDynamicID)
	a.mu.Unlock()
	return IDOf(uint32(n) + 1)
}
