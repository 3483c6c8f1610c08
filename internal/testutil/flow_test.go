package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/engine"
)

var _ engine.FlowTokenGenerator = (*FixedFlowGenerator)(nil)

func TestFixedFlowGenerator_ReturnsSameToken(t *testing.T) {
	gen := NewFixedFlowGenerator("harvest-flow")
	assert.Equal(t, "harvest-flow", gen.Generate())
	assert.Equal(t, "harvest-flow", gen.Generate())
}

func TestFixedFlowGenerator_EmptyTokenDefault(t *testing.T) {
	assert.Equal(t, DefaultFlowToken, NewFixedFlowGenerator("").Generate())
}

func TestFixedFlowGenerator_ConcurrentUse(t *testing.T) {
	gen := NewFixedFlowGenerator("shared")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "shared", gen.Generate())
			}
		}()
	}
	wg.Wait()
}
