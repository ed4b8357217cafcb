package scheduler

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Tracker marks subscriptions as in flight so overlapping ticks never
// select the same subscription twice. Acquire/release pairs are scoped
// to a single per-subscription work item.
type Tracker interface {
	// TryAcquire marks id in flight. It returns false without error if
	// the id is already held.
	TryAcquire(ctx context.Context, id uuid.UUID) (bool, error)
	Release(ctx context.Context, id uuid.UUID) error
}

// MemoryTracker is a process-local Tracker for single-instance
// deployments and tests.
type MemoryTracker struct {
	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
}

// NewMemoryTracker creates an empty tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{inFlight: make(map[uuid.UUID]bool)}
}

func (t *MemoryTracker) TryAcquire(ctx context.Context, id uuid.UUID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight[id] {
		return false, nil
	}
	t.inFlight[id] = true
	return true, nil
}

func (t *MemoryTracker) Release(ctx context.Context, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inFlight, id)
	return nil
}
