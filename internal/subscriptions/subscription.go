package subscriptions

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/payflow/internal/currencies"
)

var (
	// ErrNotFound is returned when a subscription does not exist in the store.
	ErrNotFound = errors.New("subscriptions: subscription not found")

	// ErrInvalidTransition is returned for illegal status transitions,
	// e.g. resuming a cancelled subscription.
	ErrInvalidTransition = errors.New("subscriptions: invalid status transition")

	// ErrInvalidArgument is returned for bad subscription parameters.
	ErrInvalidArgument = errors.New("subscriptions: invalid argument")
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
)

// Interval is the billing cadence of a subscription.
type Interval string

const (
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
	IntervalYearly  Interval = "yearly"
)

// ParseInterval validates a billing interval string.
func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case IntervalDaily, IntervalWeekly, IntervalMonthly, IntervalYearly:
		return Interval(s), nil
	default:
		return "", fmt.Errorf("%w: unknown interval %q", ErrInvalidArgument, s)
	}
}

// Advance returns the next due date one interval after from. Monthly
// and yearly steps move by calendar unit and clamp to the last day of
// the target month, so Jan 31 + monthly = Feb 28 (29 in leap years)
// rather than spilling into March.
func (i Interval) Advance(from time.Time) time.Time {
	switch i {
	case IntervalDaily:
		return from.AddDate(0, 0, 1)
	case IntervalWeekly:
		return from.AddDate(0, 0, 7)
	case IntervalMonthly:
		return addMonthsClamped(from, 1)
	case IntervalYearly:
		return addMonthsClamped(from, 12)
	default:
		return from
	}
}

func addMonthsClamped(from time.Time, months int) time.Time {
	year, month, day := from.Date()
	first := time.Date(year, month+time.Month(months), 1,
		from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day,
		from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
}

// Subscription is a recurring billing agreement. Only active
// subscriptions are eligible for scheduling.
type Subscription struct {
	ID              uuid.UUID
	Amount          decimal.Decimal
	Currency        string
	CustomerID      string
	Interval        Interval
	Status          Status
	NextPaymentDate time.Time
	CreatedAt       time.Time
}

// New creates an active subscription with the first charge due at
// nextPaymentDate.
func New(amount decimal.Decimal, currency, customerID string, interval Interval, nextPaymentDate, now time.Time) (*Subscription, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidArgument, amount)
	}
	if !currencies.Recognized(currency) {
		return nil, fmt.Errorf("%w: unrecognized currency %q", ErrInvalidArgument, currency)
	}
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrInvalidArgument)
	}
	return &Subscription{
		ID:              uuid.New(),
		Amount:          amount,
		Currency:        currency,
		CustomerID:      customerID,
		Interval:        interval,
		Status:          StatusActive,
		NextPaymentDate: nextPaymentDate.UTC(),
		CreatedAt:       now.UTC(),
	}, nil
}

// IsDue reports whether a charge is due at now. Paused and cancelled
// subscriptions are never due.
func (s *Subscription) IsDue(now time.Time) bool {
	return s.Status == StatusActive && !s.NextPaymentDate.After(now)
}

// AdvanceNextPaymentDate moves the due date one interval forward from
// the previous due date, not from now, so late scheduler ticks do not
// accumulate drift.
func (s *Subscription) AdvanceNextPaymentDate() {
	s.NextPaymentDate = s.Interval.Advance(s.NextPaymentDate)
}

// Pause suspends scheduling for an active subscription.
func (s *Subscription) Pause() error {
	if s.Status != StatusActive {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, s.Status)
	}
	s.Status = StatusPaused
	return nil
}

// Resume reactivates a paused subscription.
func (s *Subscription) Resume() error {
	if s.Status != StatusPaused {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, s.Status)
	}
	s.Status = StatusActive
	return nil
}

// Cancel terminates the subscription. Cancellation is terminal.
func (s *Subscription) Cancel() error {
	if s.Status == StatusCancelled {
		return fmt.Errorf("%w: already cancelled", ErrInvalidTransition)
	}
	s.Status = StatusCancelled
	return nil
}
