// Package gate bounds how many optimize operations run at once: a
// weighted semaphore with an explicit, observable queue so callers can be
// rejected outright instead of blocking indefinitely when the system is
// saturated.
package gate

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/amitray007/pare/internal/imaging"
)

// Gate limits concurrent operations to Capacity and queues at most
// QueueLimit callers waiting for a slot; anyone beyond that is rejected
// immediately with ErrOverloaded rather than queued.
type Gate struct {
	sem        *semaphore.Weighted
	queueLimit int

	mu         sync.Mutex
	queueDepth int
	inUse      int
}

// New builds a Gate that admits at most capacity concurrent operations
// and lets at most queueLimit additional callers wait for a slot.
// capacity and queueLimit must both be positive.
func New(capacity, queueLimit int) (*Gate, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive, got %d", imaging.ErrInvalidConfig, capacity)
	}
	if queueLimit <= 0 {
		return nil, fmt.Errorf("%w: queueLimit must be positive, got %d", imaging.ErrInvalidConfig, queueLimit)
	}

	return &Gate{
		sem:        semaphore.NewWeighted(int64(capacity)),
		queueLimit: queueLimit,
	}, nil
}

// NewDefault builds a Gate with the default sizing: one permit per CPU
// and a queue twice that deep.
func NewDefault() *Gate {
	capacity := runtime.NumCPU()
	g, err := New(capacity, 2*capacity)
	if err != nil {
		// Unreachable: NumCPU is always >= 1.
		panic(fmt.Sprintf("gate: default sizing invalid: %v", err))
	}
	return g
}

// Release is returned by Acquire to free the held slot. It is safe to
// call more than once; cancellation paths often release both in a defer
// and in an error branch.
type Release func()

// Acquire reserves a slot, blocking (respecting ctx) if the gate is at
// capacity but there's still room in the queue. It returns ErrOverloaded
// immediately, without waiting, when the queue is already full — the
// caller is expected to reject the request rather than pile on latency.
func (g *Gate) Acquire(ctx context.Context) (Release, error) {
	if !g.reserveQueueSlot() {
		return nil, imaging.ErrOverloaded
	}
	defer g.releaseQueueSlot()

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", imaging.ErrCancelled, err)
	}

	g.mu.Lock()
	g.inUse++
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.inUse--
			g.mu.Unlock()
			g.sem.Release(1)
		})
	}, nil
}

// QueueDepth reports how many callers are currently waiting for a slot.
func (g *Gate) QueueDepth() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queueDepth
}

// InUse reports how many permits are currently held. Alongside
// QueueDepth it feeds a periodic occupancy sampler (see
// metrics.Collector.SetGateOccupancy).
func (g *Gate) InUse() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inUse
}

func (g *Gate) reserveQueueSlot() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.queueDepth >= g.queueLimit {
		return false
	}
	g.queueDepth++
	return true
}

func (g *Gate) releaseQueueSlot() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queueDepth--
}
