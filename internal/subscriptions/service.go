package subscriptions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/payflow/pkg/logging"
)

// Service exposes subscription management to the API layer.
type Service struct {
	store  Store
	logger *logging.Logger
	nowFn  func() time.Time
}

// NewService creates a subscription service over store.
func NewService(store Store, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
		nowFn:  time.Now,
	}
}

// WithClock injects the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.nowFn = now
	return s
}

// Create registers an active subscription. A zero firstDue schedules
// the first charge one interval from now.
func (s *Service) Create(ctx context.Context, amount decimal.Decimal, currency, customerID string, interval Interval, firstDue time.Time) (*Subscription, error) {
	now := s.nowFn()
	if firstDue.IsZero() {
		firstDue = interval.Advance(now)
	}
	sub, err := New(amount, currency, customerID, interval, firstDue, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("subscriptions: create: %w", err)
	}
	s.logger.Info("subscription created",
		"subscription_id", sub.ID,
		"interval", sub.Interval,
		"next_payment_date", sub.NextPaymentDate,
	)
	return sub, nil
}

// Get loads a subscription by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	return s.store.GetByID(ctx, id)
}

// List returns all subscriptions.
func (s *Service) List(ctx context.Context) ([]*Subscription, error) {
	return s.store.List(ctx)
}

// Pause suspends scheduling for a subscription.
func (s *Service) Pause(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	return s.transition(ctx, id, "paused", (*Subscription).Pause)
}

// Resume reactivates a paused subscription.
func (s *Service) Resume(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	return s.transition(ctx, id, "resumed", (*Subscription).Resume)
}

// Cancel terminates a subscription.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	return s.transition(ctx, id, "cancelled", (*Subscription).Cancel)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, action string, apply func(*Subscription) error) (*Subscription, error) {
	sub, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(sub); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("subscriptions: update: %w", err)
	}
	s.logger.Info("subscription "+action, "subscription_id", sub.ID)
	return sub, nil
}
