package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/payflow/internal/subscriptions"
)

// SubscriptionStore is an in-memory subscriptions.Store. Update swaps
// the whole record under the lock, satisfying the atomic update
// contract.
type SubscriptionStore struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]subscriptions.Subscription
}

// NewSubscriptionStore creates an empty subscription store.
func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{rows: make(map[uuid.UUID]subscriptions.Subscription)}
}

// Create stores a copy of the subscription.
func (s *SubscriptionStore) Create(ctx context.Context, sub *subscriptions.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[sub.ID]; exists {
		return fmt.Errorf("memory: subscription %s already exists", sub.ID)
	}
	s.rows[sub.ID] = *sub
	return nil
}

// Update replaces the stored subscription atomically.
func (s *SubscriptionStore) Update(ctx context.Context, sub *subscriptions.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[sub.ID]; !exists {
		return subscriptions.ErrNotFound
	}
	s.rows[sub.ID] = *sub
	return nil
}

// GetByID returns a copy of the subscription.
func (s *SubscriptionStore) GetByID(ctx context.Context, id uuid.UUID) (*subscriptions.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, subscriptions.ErrNotFound
	}
	return &row, nil
}

// List returns all subscriptions ordered by creation time then id.
func (s *SubscriptionStore) List(ctx context.Context) ([]*subscriptions.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*subscriptions.Subscription, 0, len(s.rows))
	for _, row := range s.rows {
		row := row
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// ListDue returns active subscriptions due at now, ordered by due date
// then id for reproducible scheduler ticks.
func (s *SubscriptionStore) ListDue(ctx context.Context, now time.Time) ([]*subscriptions.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*subscriptions.Subscription, 0)
	for _, row := range s.rows {
		if row.Status != subscriptions.StatusActive || row.NextPaymentDate.After(now) {
			continue
		}
		row := row
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextPaymentDate.Equal(out[j].NextPaymentDate) {
			return out[i].NextPaymentDate.Before(out[j].NextPaymentDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
