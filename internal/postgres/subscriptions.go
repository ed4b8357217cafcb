package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/payflow/internal/subscriptions"
)

// SubscriptionStore persists subscriptions in the subscriptions table.
type SubscriptionStore struct {
	db db
}

// NewSubscriptionStore creates a store backed by pool.
func NewSubscriptionStore(pool db) *SubscriptionStore {
	if pool == nil {
		panic("postgres: pool required")
	}
	return &SubscriptionStore{db: pool}
}

// Create inserts a new subscription row.
func (s *SubscriptionStore) Create(ctx context.Context, sub *subscriptions.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, amount, currency, customer_id, billing_interval, status, next_payment_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.Exec(ctx, query,
		sub.ID,
		sub.Amount.String(),
		sub.Currency,
		sub.CustomerID,
		string(sub.Interval),
		string(sub.Status),
		sub.NextPaymentDate,
		sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert subscription: %w", err)
	}
	return nil
}

// Update rewrites the mutable subscription fields in one statement, so
// a concurrent tick never observes status and due date out of step.
func (s *SubscriptionStore) Update(ctx context.Context, sub *subscriptions.Subscription) error {
	query := `
		UPDATE subscriptions
		SET status = $2, next_payment_date = $3
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, query,
		sub.ID,
		string(sub.Status),
		sub.NextPaymentDate,
	)
	if err != nil {
		return fmt.Errorf("postgres: update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return subscriptions.ErrNotFound
	}
	return nil
}

// GetByID fetches a subscription row.
func (s *SubscriptionStore) GetByID(ctx context.Context, id uuid.UUID) (*subscriptions.Subscription, error) {
	query := subscriptionSelect + ` WHERE id = $1`
	sub, err := scanSubscription(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, subscriptions.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: load subscription: %w", err)
	}
	return sub, nil
}

// List returns all subscriptions ordered by creation time then id.
func (s *SubscriptionStore) List(ctx context.Context) ([]*subscriptions.Subscription, error) {
	query := subscriptionSelect + ` ORDER BY created_at, id`
	return s.queryMany(ctx, query)
}

// ListDue returns active subscriptions due at now, ordered by due date
// then id.
func (s *SubscriptionStore) ListDue(ctx context.Context, now time.Time) ([]*subscriptions.Subscription, error) {
	query := subscriptionSelect + `
		WHERE status = 'active' AND next_payment_date <= $1
		ORDER BY next_payment_date, id
	`
	return s.queryMany(ctx, query, now)
}

const subscriptionSelect = `
	SELECT id, amount::text, currency, customer_id, billing_interval, status, next_payment_date, created_at
	FROM subscriptions`

func (s *SubscriptionStore) queryMany(ctx context.Context, query string, args ...any) ([]*subscriptions.Subscription, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*subscriptions.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan subscription: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: query subscriptions: %w", err)
	}
	return out, nil
}

func scanSubscription(row pgx.Row) (*subscriptions.Subscription, error) {
	var (
		sub      subscriptions.Subscription
		amount   string
		interval string
		status   string
	)
	if err := row.Scan(&sub.ID, &amount, &sub.Currency, &sub.CustomerID, &interval, &status, &sub.NextPaymentDate, &sub.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	sub.Amount = parsed
	sub.Interval = subscriptions.Interval(interval)
	sub.Status = subscriptions.Status(status)
	return &sub, nil
}
