package udp

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math"
	"sync"
	"testing"
)

func TestRequestIDAllocatorSequence(t *testing.T) {
	a := NewRequestIDAllocator()
	for want := uint32(1); want <= 100; want++ {
		assert.Equal(t, want, a.Next())
	}
}

func TestRequestIDAllocatorZeroValue(t *testing.T) {
	var a RequestIDAllocator
	assert.Equal(t, uint32(1), a.Next())
	assert.Equal(t, uint32(2), a.Next())
}

func TestRequestIDAllocatorWrapSkipsZero(t *testing.T) {
	a := NewRequestIDAllocator()
	a.next = math.MaxUint32 - 1

	assert.Equal(t, uint32(math.MaxUint32-1), a.Next())
	assert.Equal(t, uint32(math.MaxUint32), a.Next())
	assert.Equal(t, uint32(1), a.Next())
	assert.Equal(t, uint32(2), a.Next())
}

func TestRequestIDAllocatorConcurrent(t *testing.T) {
	const (
		workers = 16
		perWork = 1000
	)

	a := NewRequestIDAllocator()
	ids := make(chan uint32, workers*perWork)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWork; i++ {
				ids <- a.Next()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint32]struct{}, workers*perWork)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "id %d issued twice", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, workers*perWork)
	assert.Equal(t, uint32(workers*perWork+1), a.Next())
}

// countingSource returns a fixed value and counts draws
type countingSource struct {
	value float64
	draws int
}

func (s *countingSource) Float64() float64 {
	s.draws++
	return s.value
}

func TestDropSimulator(t *testing.T) {
	t.Run("ZeroRateNeverDraws", func(t *testing.T) {
		src := &countingSource{value: 0}
		d := newDropSimulator(0, 0, src)
		for i := 0; i < 10; i++ {
			assert.False(t, d.shouldDrop())
		}
		assert.Equal(t, 0, src.draws)
	})

	t.Run("FullRateAlwaysDrops", func(t *testing.T) {
		src := &countingSource{value: 0.999999}
		d := newDropSimulator(1.0, 0, src)
		for i := 0; i < 10; i++ {
			assert.True(t, d.shouldDrop())
		}
		assert.Equal(t, 10, src.draws)
	})

	t.Run("Threshold", func(t *testing.T) {
		assert.True(t, newDropSimulator(0.5, 0, &countingSource{value: 0.49}).shouldDrop())
		assert.False(t, newDropSimulator(0.5, 0, &countingSource{value: 0.5}).shouldDrop())
	})

	t.Run("NilSimulator", func(t *testing.T) {
		var d *dropSimulator
		assert.False(t, d.shouldDrop())
	})
}
