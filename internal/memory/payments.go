// Package memory provides mutex-guarded in-memory stores used by tests
// and by cmd/api when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/wolfman30/payflow/internal/payments"
)

// PaymentStore is an in-memory payments.Store.
type PaymentStore struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]payments.Payment
}

// NewPaymentStore creates an empty payment store.
func NewPaymentStore() *PaymentStore {
	return &PaymentStore{rows: make(map[uuid.UUID]payments.Payment)}
}

// Create stores a copy of the payment.
func (s *PaymentStore) Create(ctx context.Context, p *payments.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[p.ID]; exists {
		return fmt.Errorf("memory: payment %s already exists", p.ID)
	}
	s.rows[p.ID] = *p
	return nil
}

// Update replaces the stored payment atomically.
func (s *PaymentStore) Update(ctx context.Context, p *payments.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[p.ID]; !exists {
		return payments.ErrNotFound
	}
	s.rows[p.ID] = *p
	return nil
}

// GetByID returns a copy of the payment.
func (s *PaymentStore) GetByID(ctx context.Context, id uuid.UUID) (*payments.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, payments.ErrNotFound
	}
	return &row, nil
}

// List returns all payments ordered by creation time then id.
func (s *PaymentStore) List(ctx context.Context) ([]*payments.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*payments.Payment, 0, len(s.rows))
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
