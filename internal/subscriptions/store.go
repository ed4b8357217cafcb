package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists subscriptions. Update must apply the whole record
// atomically so a scheduler tick never observes a half-updated
// subscription (charged but not advanced, or vice versa).
type Store interface {
	Create(ctx context.Context, s *Subscription) error
	Update(ctx context.Context, s *Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	List(ctx context.Context) ([]*Subscription, error)

	// ListDue returns active subscriptions with next_payment_date <= now,
	// ordered by next_payment_date ascending then id, so a tick over the
	// same snapshot is reproducible.
	ListDue(ctx context.Context, now time.Time) ([]*Subscription, error)
}
