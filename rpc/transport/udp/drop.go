package udp

import (
	"math/rand"
	"sync"
	"time"
)

// RandomSource yields uniformly distributed values in [0,1).
// *rand.Rand satisfies this interface.
type RandomSource interface {
	Float64() float64
}

// dropSimulator decides whether an outbound attempt is treated as lost.
// It is used for fault injection only, a rate of 0 never draws from the source.
type dropSimulator struct {
	rate float64
	mu   sync.Mutex // rand.Rand is not safe for concurrent use
	rnd  RandomSource
}

// newDropSimulator creates a simulator. A nil source is replaced by a rand.Rand seeded
// with seed, or with the current time if seed is 0.
func newDropSimulator(rate float64, seed int64, rnd RandomSource) *dropSimulator {
	if rnd == nil {
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rnd = rand.New(rand.NewSource(seed))
	}
	return &dropSimulator{rate: rate, rnd: rnd}
}

// shouldDrop draws one value and reports whether it falls below the drop rate
func (d *dropSimulator) shouldDrop() bool {
	if d == nil || d.rate <= 0 {
		return false
	}

	d.mu.Lock()
	v := d.rnd.Float64()
	d.mu.Unlock()

	return v < d.rate
}
