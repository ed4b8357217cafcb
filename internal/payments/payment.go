package payments

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/payflow/internal/currencies"
)

// Status is the lifecycle state of a payment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// ValidCurrency reports whether code is a recognized ISO 4217 currency.
func ValidCurrency(code string) bool {
	return currencies.Recognized(code)
}

// Payment is a single payment transaction. Status transitions are
// pending -> completed | failed, and completed -> refunded; refunded
// is terminal.
type Payment struct {
	ID             uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	Status         Status
	TransactionRef string
	CustomerID     string
	SubscriptionID uuid.UUID // uuid.Nil for one-off charges
	CreatedAt      time.Time
}

// NewPayment creates a pending payment record.
func NewPayment(amount decimal.Decimal, currency, customerID string, now time.Time) *Payment {
	return &Payment{
		ID:         uuid.New(),
		Amount:     amount,
		Currency:   currency,
		Status:     StatusPending,
		CustomerID: customerID,
		CreatedAt:  now.UTC(),
	}
}

// MarkCompleted records a successful charge and its gateway reference.
func (p *Payment) MarkCompleted(transactionRef string) error {
	if p.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, StatusCompleted)
	}
	if transactionRef == "" {
		return fmt.Errorf("%w: completed payment requires a transaction reference", ErrInvalidTransition)
	}
	p.Status = StatusCompleted
	p.TransactionRef = transactionRef
	return nil
}

// MarkFailed records a declined charge. No transaction reference is kept.
func (p *Payment) MarkFailed() error {
	if p.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, StatusFailed)
	}
	p.Status = StatusFailed
	return nil
}

// MarkRefunded records a successful refund. Only completed payments can
// be refunded, and a refund is terminal.
func (p *Payment) MarkRefunded() error {
	if p.Status != StatusCompleted {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, StatusRefunded)
	}
	p.Status = StatusRefunded
	return nil
}
