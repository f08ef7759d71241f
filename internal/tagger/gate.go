package tagger

import (
	"context"
	"sync/atomic"
)

// Gate is a counting admission gate bounding the number of simultaneously
// in-flight remote calls. It tracks the active and peak counts so tests and
// end-of-run stats can verify the capacity ceiling was honored.
type Gate struct {
	slots  chan struct{}
	active int32
	peak   int32
}

// NewGate creates a gate with the given capacity.
func NewGate(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{
		slots: make(chan struct{}, capacity),
	}
}

// Acquire blocks until a slot is free or the context is done.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	active := atomic.AddInt32(&g.active, 1)
	for {
		peak := atomic.LoadInt32(&g.peak)
		if active <= peak || atomic.CompareAndSwapInt32(&g.peak, peak, active) {
			break
		}
	}
	return nil
}

// Release frees a slot.
func (g *Gate) Release() {
	atomic.AddInt32(&g.active, -1)
	<-g.slots
}

// Active returns the current number of held slots.
func (g *Gate) Active() int {
	return int(atomic.LoadInt32(&g.active))
}

// Peak returns the highest number of simultaneously held slots observed.
func (g *Gate) Peak() int {
	return int(atomic.LoadInt32(&g.peak))
}

// Capacity returns the gate's slot capacity.
func (g *Gate) Capacity() int {
	return cap(g.slots)
}
