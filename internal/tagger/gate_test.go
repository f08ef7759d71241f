package tagger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_BoundsActiveSlots(t *testing.T) {
	const capacity = 3
	g := NewGate(capacity)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, g.Acquire(context.Background()))
			assert.LessOrEqual(t, g.Active(), capacity)
			time.Sleep(time.Millisecond)
			g.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, g.Active())
	assert.LessOrEqual(t, g.Peak(), capacity)
	assert.Greater(t, g.Peak(), 0)
}

func TestGate_AcquireHonorsCancellation(t *testing.T) {
	g := NewGate(1)
	require.NoError(t, g.Acquire(context.Background()))
	defer g.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGate_MinimumCapacity(t *testing.T) {
	g := NewGate(0)
	assert.Equal(t, 1, g.Capacity())
}
