package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_Sequence(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())

	for want := int64(1); want <= 3; want++ {
		assert.Equal(t, want, clock.Next())
	}
	assert.Equal(t, int64(3), clock.Current())
}

func TestDeterministicClock_ResetReplaysSameSeqs(t *testing.T) {
	clock := NewDeterministicClock()

	first := []int64{clock.Next(), clock.Next()}
	clock.Reset()
	second := []int64{clock.Next(), clock.Next()}

	assert.Equal(t, first, second)
}

func TestDeterministicClock_ConcurrentNext(t *testing.T) {
	clock := NewDeterministicClock()
	const workers, calls = 20, 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				clock.Next()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(workers*calls), clock.Current())
}
