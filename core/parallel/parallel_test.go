package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelizeCoversEveryItemOnce(t *testing.T) {
	for _, n := range []int{0, 1, 7, 1000} {
		seen := make([]int32, n)
		Parallelize(n, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, c := range seen {
			assert.Equal(t, int32(1), c, "item %d of %d", i, n)
		}
	}
}

func TestParallelizeWithThresholdRunsInlineBelowThreshold(t *testing.T) {
	calls := 0
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, 1, calls)
}

func TestForEachIsIndexAddressed(t *testing.T) {
	square := func(workers int) []int {
		out := make([]int, 50)
		ForEach(len(out), workers, func(i int) { out[i] = i * i })
		return out
	}

	serial := square(1)
	assert.Equal(t, serial, square(4))
	assert.Equal(t, serial, square(0))
	assert.Equal(t, 49*49, serial[49])
}

func TestForEachEmpty(t *testing.T) {
	ForEach(0, 4, func(int) { t.Fatal("must not be called") })
}
