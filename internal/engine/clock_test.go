package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())

	resumed := NewClockAt(41)
	assert.Equal(t, int64(42), resumed.Next())
}

func TestClock_Concurrent(t *testing.T) {
	c := NewClock()
	seen := sync.Map{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, dup := seen.LoadOrStore(c.Next(), true)
			assert.False(t, dup)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), c.Current())
}

func TestFlowGenerators(t *testing.T) {
	a := UUIDv7Generator{}.Generate()
	b := UUIDv7Generator{}.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)

	fixed := NewFixedGenerator("one", "two")
	assert.Equal(t, "one", fixed.Generate())
	assert.Equal(t, "two", fixed.Generate())
	assert.Panics(t, func() { fixed.Generate() })

	seq := NewSequentialGenerator("flow")
	assert.Equal(t, "flow-1", seq.Generate())
	assert.Equal(t, "flow-2", seq.Generate())
}
